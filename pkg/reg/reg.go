// Package reg implements the RISC-V register model: the fixed roster of
// 32 integer and 32 floating-point registers, each carrying a 5-bit index,
// an optional 3-bit "compressed" alias (only for x8-x15/f8-f15), and a
// canonical ABI name, plus the rounding-mode enumeration used by the F/D
// encoders.
package reg

import "github.com/bassosimone/rvjit/pkg/bitfield"

// noCompressed marks a register with no compressed-form alias.
const noCompressed = -1

// IntReg is an integer register reference, optionally carrying a signed
// memory-operand displacement (the "offset" syntax, x(imm) / x[imm]).
type IntReg struct {
	Index    int
	CIndex   int // -1 if this register has no compressed alias
	Name     string
	Offset   int32
}

// FpReg is a floating-point register reference.
type FpReg struct {
	Index  int
	CIndex int
	Name   string
}

// HasCompressedAlias reports whether the register is addressable with a
// 3-bit compressed-form index (x8-x15 / f8-f15).
func (r IntReg) HasCompressedAlias() bool { return r.CIndex >= noCompressed+1 }
func (r FpReg) HasCompressedAlias() bool  { return r.CIndex >= noCompressed+1 }

// Equal compares two integer registers by index. The displacement is not
// part of register identity, matching the original design's operator==.
func (r IntReg) Equal(o IntReg) bool { return r.Index == o.Index }

// Equal compares two floating-point registers by index.
func (r FpReg) Equal(o FpReg) bool { return r.Index == o.Index }

// At returns a copy of r bound to the given signed memory-operand offset,
// i.e. the "offset(reg)" addressing syntax.
func (r IntReg) At(offset int32) IntReg {
	r.Offset = offset
	return r
}

// Idx returns the register's 5-bit index as a Constant, the form every
// encoder concatenates into an opcode word.
func (r IntReg) Idx() bitfield.Constant { return bitfield.NewConstant(5, uint64(r.Index)) }

// CIdx returns the register's 3-bit compressed-form index as a Constant.
// It panics if the register has no compressed alias; callers must check
// HasCompressedAlias (or rely on an encoder's own predicate check) first.
func (r IntReg) CIdx() bitfield.Constant {
	if !r.HasCompressedAlias() {
		panic("reg: register has no compressed alias")
	}
	return bitfield.NewConstant(3, uint64(r.CIndex))
}

// Idx returns the register's 5-bit index as a Constant.
func (r FpReg) Idx() bitfield.Constant { return bitfield.NewConstant(5, uint64(r.Index)) }

// CIdx returns the register's 3-bit compressed-form index as a Constant.
func (r FpReg) CIdx() bitfield.Constant {
	if !r.HasCompressedAlias() {
		panic("reg: register has no compressed alias")
	}
	return bitfield.NewConstant(3, uint64(r.CIndex))
}

func ireg(index, cindex int, name string) IntReg {
	return IntReg{Index: index, CIndex: cindex, Name: name}
}

func freg(index, cindex int, name string) FpReg {
	return FpReg{Index: index, CIndex: cindex, Name: name}
}

// The integer register roster, named per the RISC-V calling convention.
var (
	X0, Zero = ireg(0, noCompressed, "zero"), ireg(0, noCompressed, "zero")
	X1, RA   = ireg(1, noCompressed, "ra"), ireg(1, noCompressed, "ra")
	X2, SP   = ireg(2, noCompressed, "sp"), ireg(2, noCompressed, "sp")
	X3, GP   = ireg(3, noCompressed, "gp"), ireg(3, noCompressed, "gp")
	X4, TP   = ireg(4, noCompressed, "tp"), ireg(4, noCompressed, "tp")
	X5, T0   = ireg(5, noCompressed, "t0"), ireg(5, noCompressed, "t0")
	X6, T1   = ireg(6, noCompressed, "t1"), ireg(6, noCompressed, "t1")
	X7, T2   = ireg(7, noCompressed, "t2"), ireg(7, noCompressed, "t2")
	X8, S0   = ireg(8, 0, "s0"), ireg(8, 0, "s0")
	FP       = ireg(8, 0, "s0")
	X9, S1   = ireg(9, 1, "s1"), ireg(9, 1, "s1")
	X10, A0  = ireg(10, 2, "a0"), ireg(10, 2, "a0")
	X11, A1  = ireg(11, 3, "a1"), ireg(11, 3, "a1")
	X12, A2  = ireg(12, 4, "a2"), ireg(12, 4, "a2")
	X13, A3  = ireg(13, 5, "a3"), ireg(13, 5, "a3")
	X14, A4  = ireg(14, 6, "a4"), ireg(14, 6, "a4")
	X15, A5  = ireg(15, 7, "a5"), ireg(15, 7, "a5")
	X16, A6  = ireg(16, noCompressed, "a6"), ireg(16, noCompressed, "a6")
	X17, A7  = ireg(17, noCompressed, "a7"), ireg(17, noCompressed, "a7")
	X18, S2  = ireg(18, noCompressed, "s2"), ireg(18, noCompressed, "s2")
	X19, S3  = ireg(19, noCompressed, "s3"), ireg(19, noCompressed, "s3")
	X20, S4  = ireg(20, noCompressed, "s4"), ireg(20, noCompressed, "s4")
	X21, S5  = ireg(21, noCompressed, "s5"), ireg(21, noCompressed, "s5")
	X22, S6  = ireg(22, noCompressed, "s6"), ireg(22, noCompressed, "s6")
	X23, S7  = ireg(23, noCompressed, "s7"), ireg(23, noCompressed, "s7")
	X24, S8  = ireg(24, noCompressed, "s8"), ireg(24, noCompressed, "s8")
	X25, S9  = ireg(25, noCompressed, "s9"), ireg(25, noCompressed, "s9")
	X26, S10 = ireg(26, noCompressed, "s10"), ireg(26, noCompressed, "s10")
	X27, S11 = ireg(27, noCompressed, "s11"), ireg(27, noCompressed, "s11")
	X28, T3  = ireg(28, noCompressed, "t3"), ireg(28, noCompressed, "t3")
	X29, T4  = ireg(29, noCompressed, "t4"), ireg(29, noCompressed, "t4")
	X30, T5  = ireg(30, noCompressed, "t5"), ireg(30, noCompressed, "t5")
	X31, T6  = ireg(31, noCompressed, "t6"), ireg(31, noCompressed, "t6")
)

// The floating-point register roster.
var (
	F0, FT0   = freg(0, noCompressed, "ft0"), freg(0, noCompressed, "ft0")
	F1, FT1   = freg(1, noCompressed, "ft1"), freg(1, noCompressed, "ft1")
	F2, FT2   = freg(2, noCompressed, "ft2"), freg(2, noCompressed, "ft2")
	F3, FT3   = freg(3, noCompressed, "ft3"), freg(3, noCompressed, "ft3")
	F4, FT4   = freg(4, noCompressed, "ft4"), freg(4, noCompressed, "ft4")
	F5, FT5   = freg(5, noCompressed, "ft5"), freg(5, noCompressed, "ft5")
	F6, FT6   = freg(6, noCompressed, "ft6"), freg(6, noCompressed, "ft6")
	F7, FT7   = freg(7, noCompressed, "ft7"), freg(7, noCompressed, "ft7")
	F8, FS0   = freg(8, 0, "fs0"), freg(8, 0, "fs0")
	F9, FS1   = freg(9, 1, "fs1"), freg(9, 1, "fs1")
	F10, FA0  = freg(10, 2, "fa0"), freg(10, 2, "fa0")
	F11, FA1  = freg(11, 3, "fa1"), freg(11, 3, "fa1")
	F12, FA2  = freg(12, 4, "fa2"), freg(12, 4, "fa2")
	F13, FA3  = freg(13, 5, "fa3"), freg(13, 5, "fa3")
	F14, FA4  = freg(14, 6, "fa4"), freg(14, 6, "fa4")
	F15, FA5  = freg(15, 7, "fa5"), freg(15, 7, "fa5")
	F16, FA6  = freg(16, noCompressed, "fa6"), freg(16, noCompressed, "fa6")
	F17, FA7  = freg(17, noCompressed, "fa7"), freg(17, noCompressed, "fa7")
	F18, FS2  = freg(18, noCompressed, "fs2"), freg(18, noCompressed, "fs2")
	F19, FS3  = freg(19, noCompressed, "fs3"), freg(19, noCompressed, "fs3")
	F20, FS4  = freg(20, noCompressed, "fs4"), freg(20, noCompressed, "fs4")
	F21, FS5  = freg(21, noCompressed, "fs5"), freg(21, noCompressed, "fs5")
	F22, FS6  = freg(22, noCompressed, "fs6"), freg(22, noCompressed, "fs6")
	F23, FS7  = freg(23, noCompressed, "fs7"), freg(23, noCompressed, "fs7")
	F24, FS8  = freg(24, noCompressed, "fs8"), freg(24, noCompressed, "fs8")
	F25, FS9  = freg(25, noCompressed, "fs9"), freg(25, noCompressed, "fs9")
	F26, FS10 = freg(26, noCompressed, "fs10"), freg(26, noCompressed, "fs10")
	F27, FS11 = freg(27, noCompressed, "fs11"), freg(27, noCompressed, "fs11")
	F28, FT8  = freg(28, noCompressed, "ft8"), freg(28, noCompressed, "ft8")
	F29, FT9  = freg(29, noCompressed, "ft9"), freg(29, noCompressed, "ft9")
	F30, FT10 = freg(30, noCompressed, "ft10"), freg(30, noCompressed, "ft10")
	F31, FT11 = freg(31, noCompressed, "ft11"), freg(31, noCompressed, "ft11")
)

// RoundingMode is a 3-bit floating-point rounding-mode selector.
type RoundingMode uint8

// Rounding modes, per the RISC-V F/D extension encoding.
const (
	RNE RoundingMode = 0
	RTZ RoundingMode = 1
	RDN RoundingMode = 2
	RUP RoundingMode = 3
	RMM RoundingMode = 4
	// 5 and 6 are reserved/invalid.
	Dyn RoundingMode = 7
)

// Constant returns the rounding mode as a 3-bit Constant.
func (rm RoundingMode) Constant() bitfield.Constant {
	return bitfield.NewConstant(3, uint64(rm))
}

// Symbol returns the rounding mode's mnemonic suffix, or "" for Dyn, which
// the mnemonic formatter suppresses entirely (§4.6).
func (rm RoundingMode) Symbol() string {
	switch rm {
	case RNE:
		return "rne"
	case RTZ:
		return "rtz"
	case RDN:
		return "rdn"
	case RUP:
		return "rup"
	case RMM:
		return "rmm"
	case Dyn:
		return ""
	default:
		panic("reg: invalid rounding mode")
	}
}
