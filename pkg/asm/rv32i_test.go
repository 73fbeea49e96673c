package asm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bassosimone/rvjit/pkg/isa"
	"github.com/bassosimone/rvjit/pkg/reg"
)

func assembleOne(t *testing.T, target isa.ISA, fn func(e *Emitter) error) []byte {
	t.Helper()
	buf := NewCodeBuffer(make([]byte, 256), 256)
	e := NewEmitter(buf, target)
	require.NoError(t, fn(e))
	code, err := e.Generate()
	require.NoError(t, err)
	return code
}

// Scenario 1: RV32I, addi a0, zero, 5 -> 0x00500513.
func TestAddiRV32IWord(t *testing.T) {
	code := assembleOne(t, isa.RV32I, func(e *Emitter) error {
		return e.Addi(reg.A0, reg.Zero, 5)
	})
	require.Len(t, code, 4)
	word := uint32(code[0]) | uint32(code[1])<<8 | uint32(code[2])<<16 | uint32(code[3])<<24
	require.Equal(t, uint32(0x00500513), word)
}

// Scenario 2: RV32IC, addi a0, zero, 5 -> c.li a0,5 -> 0x4515.
func TestAddiRV32ICCompressed(t *testing.T) {
	code := assembleOne(t, isa.RV32IC, func(e *Emitter) error {
		return e.Addi(reg.A0, reg.Zero, 5)
	})
	require.Len(t, code, 2)
	half := uint16(code[0]) | uint16(code[1])<<8
	require.Equal(t, uint16(0x4515), half)
}

// Scenario 3: RV32IC, li a0, 0x12345 -> c.lui a0,0x12 ; addi a0,a0,0x345
// (the addi stays in standard form because 0x345 exceeds c.addi's 6-bit range).
func TestLiSplitsLuiAddi(t *testing.T) {
	code := assembleOne(t, isa.RV32IC, func(e *Emitter) error {
		return e.Li(reg.A0, 0x12345)
	})
	require.Len(t, code, 6, "c.lui (2 bytes) + standard addi (4 bytes)")

	cLui := uint16(code[0]) | uint16(code[1])<<8
	require.Equal(t, uint16(0b01), cLui&0b11, "quadrant 1")
	require.Equal(t, uint16(0b011), (cLui>>13)&0b111, "C.LUI funct3")

	addi := uint32(code[2]) | uint32(code[3])<<8 | uint32(code[4])<<16 | uint32(code[5])<<24
	require.Equal(t, uint32(0b0010011), addi&0x7f, "ADDI opcode")
	imm := int32(addi) >> 20
	require.Equal(t, int32(0x345), imm)
}

// Scenario 4: RV32IC, a forward beq 800 bytes ahead (the 4-byte beq plus
// 398 two-byte c.nop) must not compress when the label is marked far.
func TestFarLabelSuppressesCompression(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 4096), 4096)
	e := NewEmitter(buf, isa.RV32IC)

	require.NoError(t, e.Beq(reg.A0, reg.Zero, e.Far(e.Sym("L"))))
	for i := 0; i < 398; i++ {
		require.NoError(t, e.Nop())
	}
	require.NoError(t, e.L("L"))

	code, err := e.Generate()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(code), 4)
	// A far-marked beqz must fall back to the 32-bit form: opcode 1100011.
	word := uint32(code[0]) | uint32(code[1])<<8 | uint32(code[2])<<16 | uint32(code[3])<<24
	require.Equal(t, uint32(0b1100011), word&0x7f)
}

// Scenario 5: a short BrainFuck-style inner loop compresses both its
// conditional exit and its backward jump.
func TestShortLoopCompressesBranchAndJump(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 256), 256)
	e := NewEmitter(buf, isa.RV32IC)

	require.NoError(t, e.L("B"))
	require.NoError(t, e.Lbu(reg.A0, reg.S1.At(0)))
	require.NoError(t, e.Beqz(reg.A0, "E"))
	require.NoError(t, e.Addi(reg.A0, reg.A0, 1))
	require.NoError(t, e.Sb(reg.A0, reg.S1.At(0)))
	require.NoError(t, e.J("B"))
	require.NoError(t, e.L("E"))

	code, err := e.Generate()
	require.NoError(t, err)

	// beqz a0,"E": the second instruction (lbu has no compressed form here
	// since a0 lacks... actually a0/s1 both have compressed aliases, so lbu
	// stays standard — there is no C.LBU in the base C extension).
	// Locate the c.beqz (quadrant 01, funct3 110) and the c.j (quadrant 01,
	// funct3 101) by scanning for 16-bit instructions among the stream.
	foundBeqz, foundJ := false, false
	for i := 0; i+1 < len(code); {
		lo := uint16(code[i]) | uint16(code[i+1])<<8
		if lo&0b11 != 0b11 {
			if (lo>>13)&0b111 == 0b110 && lo&0b11 == 0b01 {
				foundBeqz = true
			}
			if (lo>>13)&0b111 == 0b101 && lo&0b11 == 0b01 {
				foundJ = true
			}
			i += 2
		} else {
			i += 4
		}
	}
	require.True(t, foundBeqz, "expected a compressed c.beqz in the loop body")
	require.True(t, foundJ, "expected a compressed c.j closing the loop")
}

func TestUnsupportedInstructionError(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 64), 64)
	e := NewEmitter(buf, isa.RV32I) // no M extension
	err := e.Mul(reg.A0, reg.A1, reg.A2)
	require.Error(t, err)
	var unsupported *isa.UnsupportedInstructionError
	require.ErrorAs(t, err, &unsupported)
}

func TestBufferExhaustedError(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 2), 2)
	e := NewEmitter(buf, isa.RV32I)
	// The cursor is bounds-checked in pass 1 too, so the 4-byte addi is
	// rejected at the call site and the cursor does not move.
	err := e.Addi(reg.A0, reg.Zero, 1)
	require.ErrorIs(t, err, ErrBufferExhausted)
	require.Equal(t, uint64(0), buf.Cursor())
}

func TestUnknownLabelIsFatalInPass2(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 64), 64)
	e := NewEmitter(buf, isa.RV32I)
	require.NoError(t, e.J("nowhere"))
	_, err := e.Generate()
	require.ErrorIs(t, err, ErrUnknownLabel)
}

// Pseudo equivalence: nop, mv, not, neg, seqz, ret.
func TestPseudoEquivalence(t *testing.T) {
	nop := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Nop() })
	addiZero := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Addi(reg.Zero, reg.Zero, 0) })
	require.Equal(t, addiZero, nop)

	mv := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Mv(reg.A0, reg.A1) })
	addi := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Addi(reg.A0, reg.A1, 0) })
	require.Equal(t, addi, mv)

	not := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Not(reg.A0, reg.A1) })
	xori := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Xori(reg.A0, reg.A1, -1) })
	require.Equal(t, xori, not)

	neg := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Neg(reg.A0, reg.A1) })
	sub := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Sub(reg.A0, reg.Zero, reg.A1) })
	require.Equal(t, sub, neg)

	seqz := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Seqz(reg.A0, reg.A1) })
	sltiu := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Sltiu(reg.A0, reg.A1, 1) })
	require.Equal(t, sltiu, seqz)

	ret := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Ret() })
	jalr := assembleOne(t, isa.RV32I, func(e *Emitter) error { return e.Jalr(reg.Zero, reg.RA.At(0)) })
	require.Equal(t, jalr, ret)

	mvC := assembleOne(t, isa.RV32IC, func(e *Emitter) error { return e.Mv(reg.A0, reg.A1) })
	require.Len(t, mvC, 2, "mv should compress to c.mv when C is available")
}

func TestCallProducesAuipcJalr(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 4096), 4096)
	e := NewEmitter(buf, isa.RV32I)
	require.NoError(t, e.Call("callee"))
	for i := 0; i < 40; i++ {
		require.NoError(t, e.Nop())
	}
	require.NoError(t, e.L("callee"))
	code, err := e.Generate()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(code), 8)

	auipc := uint32(code[0]) | uint32(code[1])<<8 | uint32(code[2])<<16 | uint32(code[3])<<24
	require.Equal(t, uint32(0b0010111), auipc&0x7f)
	jalr := uint32(code[4]) | uint32(code[5])<<8 | uint32(code[6])<<16 | uint32(code[7])<<24
	require.Equal(t, uint32(0b1100111), jalr&0x7f)
}

func TestCallRejectsAbsoluteAddress(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 64), 64)
	e := NewEmitter(buf, isa.RV32I)
	err := e.Call(e.Addr(0x1000))
	require.ErrorIs(t, err, ErrTarget)
}

// sub a0,a0,a1 under RV32IC must hit CA-format c.sub -> 0x8d0d.
func TestSubCompressesToCA(t *testing.T) {
	code := assembleOne(t, isa.RV32IC, func(e *Emitter) error {
		return e.Sub(reg.A0, reg.A0, reg.A1)
	})
	require.Len(t, code, 2)
	half := uint16(code[0]) | uint16(code[1])<<8
	require.Equal(t, uint16(0x8d0d), half)
}

func TestXorOrAndCompressToCA(t *testing.T) {
	xor := assembleOne(t, isa.RV32IC, func(e *Emitter) error { return e.Xor(reg.A0, reg.A0, reg.A1) })
	require.Len(t, xor, 2)
	or := assembleOne(t, isa.RV32IC, func(e *Emitter) error { return e.Or(reg.A0, reg.A0, reg.A1) })
	require.Len(t, or, 2)
	and := assembleOne(t, isa.RV32IC, func(e *Emitter) error { return e.And(reg.A0, reg.A0, reg.A1) })
	require.Len(t, and, 2)

	// all three share the same CA-format shape, differing only in funct2
	// at bits 6:5 — confirm that bit pair actually varies across them.
	xorWord := uint16(xor[0]) | uint16(xor[1])<<8
	orWord := uint16(or[0]) | uint16(or[1])<<8
	andWord := uint16(and[0]) | uint16(and[1])<<8
	require.Equal(t, uint16(0b01), (xorWord>>5)&0b11)
	require.Equal(t, uint16(0b10), (orWord>>5)&0b11)
	require.Equal(t, uint16(0b11), (andWord>>5)&0b11)
}

// srli s0,s0,5 under RV32IC -> c.srli -> 0x8015 (CB-format).
func TestSrliCompressesToCB(t *testing.T) {
	code := assembleOne(t, isa.RV32IC, func(e *Emitter) error {
		return e.Srli(reg.S0, reg.S0, 5)
	})
	require.Len(t, code, 2)
	half := uint16(code[0]) | uint16(code[1])<<8
	require.Equal(t, uint16(0x8015), half)
}

func TestSraiCompressesToCB(t *testing.T) {
	code := assembleOne(t, isa.RV32IC, func(e *Emitter) error {
		return e.Srai(reg.S0, reg.S0, 5)
	})
	require.Len(t, code, 2)
	half := uint16(code[0]) | uint16(code[1])<<8
	require.Equal(t, uint16(0b01), half&0b11, "quadrant 1")
	require.Equal(t, uint16(0b01), (half>>10)&0b11, "srai sub-opcode")
}

// c.slli uses the full 5-bit rd field, so it is not restricted to the
// compressed-alias register subset the way srli/srai are.
func TestSlliCompressesWithoutAliasRestriction(t *testing.T) {
	code := assembleOne(t, isa.RV32IC, func(e *Emitter) error {
		return e.Slli(reg.T1, reg.T1, 3)
	})
	require.Len(t, code, 2)
}

// srli on a register lacking a compressed alias must fall back to the
// standard 32-bit form.
func TestSrliFallsBackWithoutCompressedAlias(t *testing.T) {
	code := assembleOne(t, isa.RV32IC, func(e *Emitter) error {
		return e.Srli(reg.T1, reg.T1, 5)
	})
	require.Len(t, code, 4)
	word := uint32(code[0]) | uint32(code[1])<<8 | uint32(code[2])<<16 | uint32(code[3])<<24
	require.Equal(t, uint32(0b0010011), word&0x7f)
}

// andi s0,s0,0x1f under RV32IC must prefer c.andi (CB-format).
func TestAndiCompressesToCB(t *testing.T) {
	code := assembleOne(t, isa.RV32IC, func(e *Emitter) error {
		return e.Andi(reg.S0, reg.S0, 0x1f)
	})
	require.Len(t, code, 2)
	half := uint16(code[0]) | uint16(code[1])<<8
	require.Equal(t, uint16(0b01), half&0b11, "quadrant 1")
	require.Equal(t, uint16(0b100), (half>>13)&0b111, "c.andi funct3")
	require.Equal(t, uint16(0b10), (half>>10)&0b11, "c.andi sub-opcode")
}

// an out-of-range immediate must keep andi in standard form.
func TestAndiFallsBackWhenImmediateTooWide(t *testing.T) {
	code := assembleOne(t, isa.RV32IC, func(e *Emitter) error {
		return e.Andi(reg.S0, reg.S0, 0x345)
	})
	require.Len(t, code, 4)
}
