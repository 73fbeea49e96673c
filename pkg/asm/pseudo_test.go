package asm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bassosimone/rvjit/pkg/isa"
	"github.com/bassosimone/rvjit/pkg/reg"
)

// TestConditionalBranchPseudosRewriteOperands checks that each branch
// pseudo-instruction reduces to the real encoder with the documented
// operand rewrite, rather than emitting a distinct opcode.
func TestConditionalBranchPseudosRewriteOperands(t *testing.T) {
	cases := []struct {
		name string
		got  func(e *Emitter) error
		want func(e *Emitter) error
	}{
		{"blez", func(e *Emitter) error { return e.Blez(reg.A0, "L") }, func(e *Emitter) error { return e.Bge(reg.Zero, reg.A0, "L") }},
		{"bgez", func(e *Emitter) error { return e.Bgez(reg.A0, "L") }, func(e *Emitter) error { return e.Bge(reg.A0, reg.Zero, "L") }},
		{"bltz", func(e *Emitter) error { return e.Bltz(reg.A0, "L") }, func(e *Emitter) error { return e.Blt(reg.A0, reg.Zero, "L") }},
		{"bgtz", func(e *Emitter) error { return e.Bgtz(reg.A0, "L") }, func(e *Emitter) error { return e.Blt(reg.Zero, reg.A0, "L") }},
		{"bgt", func(e *Emitter) error { return e.Bgt(reg.A0, reg.A1, "L") }, func(e *Emitter) error { return e.Blt(reg.A1, reg.A0, "L") }},
		{"ble", func(e *Emitter) error { return e.Ble(reg.A0, reg.A1, "L") }, func(e *Emitter) error { return e.Bge(reg.A1, reg.A0, "L") }},
		{"bgtu", func(e *Emitter) error { return e.Bgtu(reg.A0, reg.A1, "L") }, func(e *Emitter) error { return e.Bltu(reg.A1, reg.A0, "L") }},
		{"bleu", func(e *Emitter) error { return e.Bleu(reg.A0, reg.A1, "L") }, func(e *Emitter) error { return e.Bgeu(reg.A1, reg.A0, "L") }},
	}
	for _, c := range cases {
		got := assembleBranchTo(t, c.got)
		want := assembleBranchTo(t, c.want)
		require.Equal(t, want, got, c.name)
	}
}

func assembleBranchTo(t *testing.T, fn func(e *Emitter) error) []byte {
	t.Helper()
	buf := NewCodeBuffer(make([]byte, 64), 64)
	e := NewEmitter(buf, isa.RV32I)
	require.NoError(t, fn(e))
	require.NoError(t, e.L("L"))
	code, err := e.Generate()
	require.NoError(t, err)
	return code
}

func TestSetCompareOpsRewriteOperands(t *testing.T) {
	snez := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Snez(reg.A0, reg.A1) })
	sltu := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Sltu(reg.A0, reg.Zero, reg.A1) })
	require.Equal(t, sltu, snez)

	sltz := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Sltz(reg.A0, reg.A1) })
	slt1 := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Slt(reg.A0, reg.A1, reg.Zero) })
	require.Equal(t, slt1, sltz)

	sgtz := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Sgtz(reg.A0, reg.A1) })
	slt2 := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Slt(reg.A0, reg.Zero, reg.A1) })
	require.Equal(t, slt2, sgtz)
}

func TestJrAndJalrPseudoRewrite(t *testing.T) {
	jr := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Jr(reg.A0) })
	jalrZero := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Jalr(reg.Zero, reg.A0.At(0)) })
	require.Equal(t, jalrZero, jr)

	jalrP := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.JalrPseudo(reg.A0) })
	jalrRA := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Jalr(reg.RA, reg.A0.At(0)) })
	require.Equal(t, jalrRA, jalrP)
}

func TestTailUsesT1ScratchNoLink(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 4096), 4096)
	e := NewEmitter(buf, isa.RV32I)
	require.NoError(t, e.Tail("callee"))
	for i := 0; i < 10; i++ {
		require.NoError(t, e.Nop())
	}
	require.NoError(t, e.L("callee"))
	code, err := e.Generate()
	require.NoError(t, err)

	auipc := uint32(code[0]) | uint32(code[1])<<8 | uint32(code[2])<<16 | uint32(code[3])<<24
	require.Equal(t, uint32(reg.T1.Index), (auipc>>7)&0x1f, "auipc writes into t1, not ra")

	jalr := uint32(code[4]) | uint32(code[5])<<8 | uint32(code[6])<<16 | uint32(code[7])<<24
	require.Equal(t, uint32(reg.Zero.Index), (jalr>>7)&0x1f, "jalr's rd is x0: tail does not link")
}
