package asm

import (
	"github.com/bassosimone/rvjit/pkg/isa"
	"github.com/bassosimone/rvjit/pkg/reg"
)

// mulDiv encodes the RV32M R-type family: opcode 0110011, funct7 0000001,
// varying only in funct3. None of these have a compressed form.
func (e *Emitter) mulDiv(rd, rs1, rs2 reg.IntReg, funct3 uint64, name string) error {
	if err := e.require(isa.ExtM, name); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(7, 0b0000001).Concat(rs2.Idx()).Concat(rs1.Idx()).Concat(bc(3, funct3)).Concat(rd.Idx()).Concat(bc(7, 0b0110011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("oiii").With(name).With(rd).With(rs1).With(rs2) })
		return nil
	})
}

// Mul stores the low XLEN bits of rs1*rs2 (signed) in rd.
func (e *Emitter) Mul(rd, rs1, rs2 reg.IntReg) error { return e.mulDiv(rd, rs1, rs2, 0b000, "mul") }

// Mulh stores the high XLEN bits of the signed*signed product in rd.
func (e *Emitter) Mulh(rd, rs1, rs2 reg.IntReg) error { return e.mulDiv(rd, rs1, rs2, 0b001, "mulh") }

// Mulhsu stores the high XLEN bits of the signed*unsigned product.
func (e *Emitter) Mulhsu(rd, rs1, rs2 reg.IntReg) error {
	return e.mulDiv(rd, rs1, rs2, 0b010, "mulhsu")
}

// Mulhu stores the high XLEN bits of the unsigned*unsigned product.
func (e *Emitter) Mulhu(rd, rs1, rs2 reg.IntReg) error { return e.mulDiv(rd, rs1, rs2, 0b011, "mulhu") }

// Div performs signed division; quotient is all-ones on division by zero
// and the dividend on signed overflow, per the RISC-V M extension.
func (e *Emitter) Div(rd, rs1, rs2 reg.IntReg) error { return e.mulDiv(rd, rs1, rs2, 0b100, "div") }

// Divu performs unsigned division.
func (e *Emitter) Divu(rd, rs1, rs2 reg.IntReg) error { return e.mulDiv(rd, rs1, rs2, 0b101, "divu") }

// Rem computes the signed remainder.
func (e *Emitter) Rem(rd, rs1, rs2 reg.IntReg) error { return e.mulDiv(rd, rs1, rs2, 0b110, "rem") }

// Remu computes the unsigned remainder.
func (e *Emitter) Remu(rd, rs1, rs2 reg.IntReg) error { return e.mulDiv(rd, rs1, rs2, 0b111, "remu") }
