package asm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bassosimone/rvjit/pkg/isa"
	"github.com/bassosimone/rvjit/pkg/reg"
)

func TestMulEncoding(t *testing.T) {
	code := assembleOne(t, isa.RV32IMA, func(e *Emitter) error {
		return e.Mul(reg.A0, reg.A1, reg.A2)
	})
	require.Len(t, code, 4)
	word := uint32(code[0]) | uint32(code[1])<<8 | uint32(code[2])<<16 | uint32(code[3])<<24
	require.Equal(t, uint32(0b0110011), word&0x7f, "R-type opcode")
	require.Equal(t, uint32(0b000), (word>>12)&0b111, "MUL funct3")
	require.Equal(t, uint32(0b0000001), (word>>25)&0x7f, "M-extension funct7")
}

func TestDivRemEncodings(t *testing.T) {
	cases := []struct {
		name   string
		fn     func(e *Emitter) error
		funct3 uint32
	}{
		{"div", func(e *Emitter) error { return e.Div(reg.A0, reg.A1, reg.A2) }, 0b100},
		{"divu", func(e *Emitter) error { return e.Divu(reg.A0, reg.A1, reg.A2) }, 0b101},
		{"rem", func(e *Emitter) error { return e.Rem(reg.A0, reg.A1, reg.A2) }, 0b110},
		{"remu", func(e *Emitter) error { return e.Remu(reg.A0, reg.A1, reg.A2) }, 0b111},
	}
	for _, c := range cases {
		code := assembleOne(t, isa.RV32IMA, c.fn)
		word := uint32(code[0]) | uint32(code[1])<<8 | uint32(code[2])<<16 | uint32(code[3])<<24
		require.Equal(t, c.funct3, (word>>12)&0b111, c.name)
	}
}

func TestLrScReservation(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 64), 64)
	e := NewEmitter(buf, isa.RV32IMA)
	require.NoError(t, e.Lr_W(reg.A0, reg.A1, false, false))
	require.NoError(t, e.Sc_W(reg.A2, reg.A1, reg.A3, false, false))
	code, err := e.Generate()
	require.NoError(t, err)
	require.Len(t, code, 8)

	lr := uint32(code[0]) | uint32(code[1])<<8 | uint32(code[2])<<16 | uint32(code[3])<<24
	require.Equal(t, uint32(0b0101111), lr&0x7f)
	require.Equal(t, uint32(0b00010), (lr>>27)&0x1f, "LR.W funct5")

	sc := uint32(code[4]) | uint32(code[5])<<8 | uint32(code[6])<<16 | uint32(code[7])<<24
	require.Equal(t, uint32(0b00011), (sc>>27)&0x1f, "SC.W funct5")
}

func TestAmoaddAcquireRelease(t *testing.T) {
	code := assembleOne(t, isa.RV32IMA, func(e *Emitter) error {
		return e.Amoadd_W(reg.A0, reg.A1, reg.A2, true, true)
	})
	word := uint32(code[0]) | uint32(code[1])<<8 | uint32(code[2])<<16 | uint32(code[3])<<24
	require.Equal(t, uint32(0b11), (word>>25)&0b11, "aq and rl both set")
}

func TestAExtensionRequiresTarget(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 64), 64)
	e := NewEmitter(buf, isa.RV32I) // no A
	err := e.Lr_W(reg.A0, reg.A1, false, false)
	require.Error(t, err)
	var unsupported *isa.UnsupportedInstructionError
	require.ErrorAs(t, err, &unsupported)
}

// Atomic encoders have no immediate field to carry a memory offset, so a
// nonzero rs1.Offset (from a prior At() call) must be rejected rather than
// silently dropped.
func TestAtomicsRejectNonzeroOffset(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 64), 64)
	e := NewEmitter(buf, isa.RV32IMA)

	require.Error(t, e.Lr_W(reg.A0, reg.A1.At(4), false, false))
	require.Error(t, e.Sc_W(reg.A0, reg.A1.At(4), reg.A2, false, false))
	require.Error(t, e.Amoadd_W(reg.A0, reg.A1.At(4), reg.A2, false, false))
}
