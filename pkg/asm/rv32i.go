package asm

import (
	"github.com/bassosimone/rvjit/pkg/bitfield"
	"github.com/bassosimone/rvjit/pkg/isa"
	"github.com/bassosimone/rvjit/pkg/reg"
)

// Lui loads imm20 into the upper 20 bits of rd (RV32I LUI), preferring
// C.LUI when the target has the C extension, rd is neither zero nor sp,
// and the sign-extended immediate fits six bits and is non-zero.
func (e *Emitter) Lui(rd reg.IntReg, imm20 uint32) error {
	if err := e.require(isa.ExtI, "lui"); err != nil {
		return err
	}
	if !isUintN(uint64(imm20), 20) {
		return rangeErr("imm20", int64(imm20))
	}
	imm := imm20 << 12

	return e.buf.Emit(func(b *CodeBuffer) error {
		if e.target.Supports(isa.ExtC) && !rd.Equal(reg.Zero) && !rd.Equal(reg.SP) &&
			isSintN(signExtend(int64(imm20), 20), 6) && imm20 != 0 {
			op := bc(3, 0b011).Concat(bitfield.Bit(17).Of(uint64(imm))).Concat(rd.Idx()).
				Concat(bitfield.Range(16, 12).Of(uint64(imm))).Concat(bc(2, 0b01))
			if err := b.WriteHword(op.Uint16()); err != nil {
				return err
			}
			b.desc(func() Formatter {
				return Format("oiu#oiu").With("lui").With(rd).With(imm20).With("c.lui").With(rd).With(imm20)
			})
			return nil
		}
		op := bitfield.Range(31, 12).Of(uint64(imm)).Concat(rd.Idx()).Concat(bc(7, 0b0110111))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("oiu").With("lui").With(rd).With(imm20) })
		return nil
	})
}

// Auipc adds imm20<<12 to the current PC and stores the result in rd
// (RV32I AUIPC); it has no compressed form.
func (e *Emitter) Auipc(rd reg.IntReg, imm20 uint32) error {
	if err := e.require(isa.ExtI, "auipc"); err != nil {
		return err
	}
	if !isUintN(uint64(imm20), 20) {
		return rangeErr("imm20", int64(imm20))
	}
	imm := imm20 << 12
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bitfield.Range(31, 12).Of(uint64(imm)).Concat(rd.Idx()).Concat(bc(7, 0b0010111))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("oiu").With("auipc").With(rd).With(imm20) })
		return nil
	})
}

// j20Field reorders a 21-bit J-type immediate into its scattered encoding.
func j20Field(imm21 int64) bitfield.Constant {
	u := uint64(imm21)
	return bitfield.Bit(20).Of(u).
		Concat(bitfield.Range(10, 1).Of(u)).
		Concat(bitfield.Bit(11).Of(u)).
		Concat(bitfield.Range(19, 12).Of(u))
}

// Jal jumps to target and links the return address into rd (RV32I JAL),
// preferring C.JAL (rd=ra) or C.J (rd=zero) when the C extension is
// present, the target is near, and the offset fits a compressed jump's
// 12-bit signed range.
func (e *Emitter) Jal(rd reg.IntReg, target Target) error {
	if err := e.require(isa.ExtI, "jal"); err != nil {
		return err
	}
	label, err := e.resolveTarget(target)
	if err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		rel, err := label.RelAddr()
		if err != nil {
			return err
		}
		if !isAlignedN(rel, 2) || !isSintN(rel, 21) {
			return rangeErr("jal offset", rel)
		}

		if e.target.Supports(isa.ExtC) && label.IsNear() && isSintN(rel, 12) {
			u := uint64(rel)
			cimm := bitfield.Bit(11).Of(u).Concat(bitfield.Bit(4).Of(u)).
				Concat(bitfield.Range(9, 8).Of(u)).Concat(bitfield.Bit(10).Of(u)).
				Concat(bitfield.Bit(6).Of(u)).Concat(bitfield.Bit(7).Of(u)).
				Concat(bitfield.Range(3, 1).Of(u)).Concat(bitfield.Bit(5).Of(u))
			switch {
			case rd.Equal(reg.RA):
				op := bc(3, 0b001).Concat(cimm).Concat(bc(2, 0b01))
				if err := b.WriteHword(op.Uint16()); err != nil {
					return err
				}
				b.desc(func() Formatter { return Format("oL#oL").With("jal").With(label).With("c.jal").With(label) })
				return nil
			case rd.Equal(reg.Zero):
				op := bc(3, 0b101).Concat(cimm).Concat(bc(2, 0b01))
				if err := b.WriteHword(op.Uint16()); err != nil {
					return err
				}
				b.desc(func() Formatter { return Format("oL#oL").With("j").With(label).With("c.j").With(label) })
				return nil
			}
		}

		op := j20Field(rel).Concat(rd.Idx()).Concat(bc(7, 0b1101111))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		if rd.Equal(reg.Zero) {
			b.desc(func() Formatter { return Format("oL").With("j").With(label) })
		} else {
			b.desc(func() Formatter { return Format("oiL").With("jal").With(rd).With(label) })
		}
		return nil
	})
}

// Jalr jumps to rs1's base register plus its bound offset, linking into
// rd (RV32I JALR). It prefers C.JALR (rd=ra, offset 0), C.JR (rd=zero,
// offset 0), and renders the ret pseudo-instruction when rd=zero,
// rs1=ra, offset=0.
func (e *Emitter) Jalr(rd reg.IntReg, rs1 reg.IntReg) error {
	if err := e.require(isa.ExtI, "jalr"); err != nil {
		return err
	}
	imm12 := int64(rs1.Offset)
	if !isSintN(imm12, 12) {
		return rangeErr("jalr offset", imm12)
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		if e.target.Supports(isa.ExtC) && !rs1.Equal(reg.Zero) && imm12 == 0 {
			switch {
			case rd.Equal(reg.RA):
				op := bc(3, 0b100).Concat(bc(1, 1)).Concat(rs1.Idx()).Concat(bc(7, 0b0000010))
				if err := b.WriteHword(op.Uint16()); err != nil {
					return err
				}
				b.desc(func() Formatter { return Format("oi#oi").With("jalr").With(rs1).With("c.jalr").With(rs1) })
				return nil
			case rd.Equal(reg.Zero):
				op := bc(3, 0b100).Concat(bc(1, 0)).Concat(rs1.Idx()).Concat(bc(7, 0b0000010))
				if err := b.WriteHword(op.Uint16()); err != nil {
					return err
				}
				if rs1.Equal(reg.RA) {
					b.desc(func() Formatter { return Format("o#oi").With("ret").With("c.jr").With(rs1) })
				} else {
					b.desc(func() Formatter { return Format("oi#oi").With("jr").With(rs1).With("c.jr").With(rs1) })
				}
				return nil
			}
		}

		op := bitfield.Range(11, 0).Of(uint64(imm12)).Concat(rs1.Idx()).Concat(bc(3, 0)).Concat(rd.Idx()).Concat(bc(7, 0b1100111))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		switch {
		case rd.Equal(reg.RA) && imm12 == 0:
			b.desc(func() Formatter { return Format("oi").With("jalr").With(rs1) })
		case rd.Equal(reg.Zero) && rs1.Equal(reg.RA) && imm12 == 0:
			b.desc(func() Formatter { return Format("o").With("ret") })
		case rd.Equal(reg.Zero) && imm12 == 0:
			b.desc(func() Formatter { return Format("oi").With("jr").With(rs1) })
		default:
			b.desc(func() Formatter { return Format("oiI").With("jalr").With(rd).With(rs1) })
		}
		return nil
	})
}

func bFields(rel int64) bitfield.Constant {
	u := uint64(rel)
	return bitfield.Bit(12).Of(u).Concat(bitfield.Range(10, 5).Of(u))
}
func bFieldsLow(rel int64) bitfield.Constant {
	u := uint64(rel)
	return bitfield.Range(4, 1).Of(u).Concat(bitfield.Bit(11).Of(u))
}

type branchKind struct {
	funct3     uint64
	canonical  string
	zeroMn     string
	compressed bool
	cbFunct3   uint64 // 0b110 (beqz) or 0b111 (bnez)
}

func (e *Emitter) branch(rs1, rs2 reg.IntReg, target Target, k branchKind, mnemonic string) error {
	if err := e.require(isa.ExtI, mnemonic); err != nil {
		return err
	}
	label, err := e.resolveTarget(target)
	if err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		rel, err := label.RelAddr()
		if err != nil {
			return err
		}
		if !isAlignedN(rel, 2) || !isSintN(rel, 13) {
			return rangeErr(mnemonic+" offset", rel)
		}

		if k.compressed && e.target.Supports(isa.ExtC) && label.IsNear() && rs1.HasCompressedAlias() &&
			rs2.Equal(reg.Zero) && isSintN(rel, 9) && isAlignedN(rel, 2) {
			u := uint64(rel)
			cimm := bitfield.Bit(8).Of(u).Concat(bitfield.Range(4, 3).Of(u))
			cimmLow := bitfield.Range(7, 6).Of(u).Concat(bitfield.Range(2, 1).Of(u)).Concat(bitfield.Bit(5).Of(u))
			op := bc(3, k.cbFunct3).Concat(cimm).Concat(rs1.CIdx()).Concat(cimmLow).Concat(bc(2, 0b01))
			if err := b.WriteHword(op.Uint16()); err != nil {
				return err
			}
			b.desc(func() Formatter {
				return Format("oiL#oiL").With(k.zeroMn).With(rs1).With(label).With("c."+k.zeroMn).With(rs1).With(label)
			})
			return nil
		}

		op := bFields(rel).Concat(rs2.Idx()).Concat(rs1.Idx()).Concat(bc(3, k.funct3)).Concat(bFieldsLow(rel)).Concat(bc(7, 0b1100011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		if k.zeroMn != "" && rs2.Equal(reg.Zero) {
			b.desc(func() Formatter { return Format("oiL").With(k.zeroMn).With(rs1).With(label) })
		} else {
			b.desc(func() Formatter { return Format("oiiL").With(k.canonical).With(rs1).With(rs2).With(label) })
		}
		return nil
	})
}

// Beq branches to target when rs1 equals rs2 (RV32I BEQ), preferring
// C.BEQZ when rs2 is zero, rs1 has a compressed alias, and the target is
// near and within range.
func (e *Emitter) Beq(rs1, rs2 reg.IntReg, target Target) error {
	return e.branch(rs1, rs2, target, branchKind{funct3: 0b000, canonical: "beq", zeroMn: "beqz", compressed: true, cbFunct3: 0b110}, "beq")
}

// Bne branches to target when rs1 differs from rs2 (RV32I BNE),
// preferring C.BNEZ under the same conditions as Beq/C.BEQZ.
func (e *Emitter) Bne(rs1, rs2 reg.IntReg, target Target) error {
	return e.branch(rs1, rs2, target, branchKind{funct3: 0b001, canonical: "bne", zeroMn: "bnez", compressed: true, cbFunct3: 0b111}, "bne")
}

// Blt branches to target when rs1 < rs2, signed (RV32I BLT). It has no
// compressed form; bltz/bgtz are rendered as mnemonic aliases only.
func (e *Emitter) Blt(rs1, rs2 reg.IntReg, target Target) error {
	if err := e.require(isa.ExtI, "blt"); err != nil {
		return err
	}
	label, err := e.resolveTarget(target)
	if err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		rel, err := label.RelAddr()
		if err != nil {
			return err
		}
		if !isAlignedN(rel, 2) || !isSintN(rel, 13) {
			return rangeErr("blt offset", rel)
		}
		op := bFields(rel).Concat(rs2.Idx()).Concat(rs1.Idx()).Concat(bc(3, 0b100)).Concat(bFieldsLow(rel)).Concat(bc(7, 0b1100011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		switch {
		case rs2.Equal(reg.Zero):
			b.desc(func() Formatter { return Format("oiL").With("bltz").With(rs1).With(label) })
		case rs1.Equal(reg.Zero):
			b.desc(func() Formatter { return Format("oiL").With("bgtz").With(rs2).With(label) })
		default:
			b.desc(func() Formatter { return Format("oiiL").With("blt").With(rs1).With(rs2).With(label) })
		}
		return nil
	})
}

// Bge branches to target when rs1 >= rs2, signed (RV32I BGE).
func (e *Emitter) Bge(rs1, rs2 reg.IntReg, target Target) error {
	if err := e.require(isa.ExtI, "bge"); err != nil {
		return err
	}
	label, err := e.resolveTarget(target)
	if err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		rel, err := label.RelAddr()
		if err != nil {
			return err
		}
		if !isAlignedN(rel, 2) || !isSintN(rel, 13) {
			return rangeErr("bge offset", rel)
		}
		op := bFields(rel).Concat(rs2.Idx()).Concat(rs1.Idx()).Concat(bc(3, 0b101)).Concat(bFieldsLow(rel)).Concat(bc(7, 0b1100011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		switch {
		case rs1.Equal(reg.Zero):
			b.desc(func() Formatter { return Format("oiL").With("blez").With(rs2).With(label) })
		case rs2.Equal(reg.Zero):
			b.desc(func() Formatter { return Format("oiL").With("bgez").With(rs1).With(label) })
		default:
			b.desc(func() Formatter { return Format("oiiL").With("ble").With(rs2).With(rs1).With(label) })
		}
		return nil
	})
}

// Bltu branches to target when rs1 < rs2, unsigned (RV32I BLTU).
func (e *Emitter) Bltu(rs1, rs2 reg.IntReg, target Target) error {
	return e.unsignedBranch(rs1, rs2, target, 0b110, "bltu")
}

// Bgeu branches to target when rs1 >= rs2, unsigned (RV32I BGEU); the
// bgtu/bleu pseudo-ops are disassembly aliases of bltu/bgeu with swapped
// operands and are not separate encoders.
func (e *Emitter) Bgeu(rs1, rs2 reg.IntReg, target Target) error {
	return e.unsignedBranch(rs1, rs2, target, 0b111, "bleu")
}

func (e *Emitter) unsignedBranch(rs1, rs2 reg.IntReg, target Target, funct3 uint64, displayAsReversed string) error {
	mnemonic := "bltu"
	if funct3 == 0b111 {
		mnemonic = "bgeu"
	}
	if err := e.require(isa.ExtI, mnemonic); err != nil {
		return err
	}
	label, err := e.resolveTarget(target)
	if err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		rel, err := label.RelAddr()
		if err != nil {
			return err
		}
		if !isAlignedN(rel, 2) || !isSintN(rel, 13) {
			return rangeErr(mnemonic+" offset", rel)
		}
		op := bFields(rel).Concat(rs2.Idx()).Concat(rs1.Idx()).Concat(bc(3, funct3)).Concat(bFieldsLow(rel)).Concat(bc(7, 0b1100011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		if funct3 == 0b110 {
			b.desc(func() Formatter { return Format("oiiL").With("bltu").With(rs1).With(rs2).With(label) })
		} else {
			b.desc(func() Formatter { return Format("oiiL").With("bleu").With(rs2).With(rs1).With(label) })
		}
		return nil
	})
}

type loadKind struct {
	funct3 uint64
	name   string
}

func (e *Emitter) load(rd reg.IntReg, rs1 reg.IntReg, k loadKind, wide bool) error {
	if err := e.require(isa.ExtI, k.name); err != nil {
		return err
	}
	imm12 := int64(rs1.Offset)
	if !isSintN(imm12, 12) {
		return rangeErr(k.name+" offset", imm12)
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		if wide && e.target.Supports(isa.ExtC) && rs1.Equal(reg.SP) && rd.Idx().Value != 0 && imm12 >= 0 && imm12 <= 252 && isAlignedN(imm12, 4) {
			u := uint64(imm12)
			cimm := bitfield.Range(4, 2).Of(u).Concat(bitfield.Range(7, 6).Of(u))
			op := bc(3, 0b010).Concat(bitfield.Bit(5).Of(u)).Concat(rd.Idx()).Concat(cimm).Concat(bc(2, 0b10))
			if err := b.WriteHword(op.Uint16()); err != nil {
				return err
			}
			b.desc(func() Formatter { return Format("oiI#oiu").With(k.name).With(rd).With(rs1).With("c.lwsp").With(rd).With(uint32(imm12)) })
			return nil
		}
		if wide && e.target.Supports(isa.ExtC) && rd.HasCompressedAlias() && rs1.HasCompressedAlias() && imm12 >= 0 && imm12 <= 124 && isAlignedN(imm12, 4) {
			u := uint64(imm12)
			cimm := bitfield.Range(5, 3).Of(u)
			cimmLow := bitfield.Bit(2).Of(u).Concat(bitfield.Bit(6).Of(u))
			op := bc(3, 0b010).Concat(cimm).Concat(rs1.CIdx()).Concat(cimmLow).Concat(rd.CIdx()).Concat(bc(2, 0b00))
			if err := b.WriteHword(op.Uint16()); err != nil {
				return err
			}
			b.desc(func() Formatter { return Format("oiI#oiI").With(k.name).With(rd).With(rs1).With("c.lw").With(rd).With(rs1) })
			return nil
		}

		op := bitfield.Range(11, 0).Of(uint64(imm12)).Concat(rs1.Idx()).Concat(bc(3, k.funct3)).Concat(rd.Idx()).Concat(bc(7, 0b0000011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("oiI").With(k.name).With(rd).With(rs1) })
		return nil
	})
}

func (e *Emitter) Lb(rd, rs1 reg.IntReg) error  { return e.load(rd, rs1, loadKind{0b000, "lb"}, false) }
func (e *Emitter) Lh(rd, rs1 reg.IntReg) error  { return e.load(rd, rs1, loadKind{0b001, "lh"}, false) }
func (e *Emitter) Lw(rd, rs1 reg.IntReg) error  { return e.load(rd, rs1, loadKind{0b010, "lw"}, true) }
func (e *Emitter) Lbu(rd, rs1 reg.IntReg) error { return e.load(rd, rs1, loadKind{0b100, "lbu"}, false) }
func (e *Emitter) Lhu(rd, rs1 reg.IntReg) error { return e.load(rd, rs1, loadKind{0b101, "lhu"}, false) }

type storeKind struct {
	funct3 uint64
	name   string
}

func (e *Emitter) store(rs2 reg.IntReg, rs1 reg.IntReg, k storeKind, wide bool) error {
	if err := e.require(isa.ExtI, k.name); err != nil {
		return err
	}
	imm12 := int64(rs1.Offset)
	if !isSintN(imm12, 12) {
		return rangeErr(k.name+" offset", imm12)
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		if wide && e.target.Supports(isa.ExtC) && rs1.Equal(reg.SP) && imm12 >= 0 && imm12 <= 252 && isAlignedN(imm12, 4) {
			u := uint64(imm12)
			cimm := bitfield.Range(5, 2).Of(u).Concat(bitfield.Range(7, 6).Of(u))
			op := bc(3, 0b110).Concat(cimm).Concat(rs2.Idx()).Concat(bc(2, 0b10))
			if err := b.WriteHword(op.Uint16()); err != nil {
				return err
			}
			b.desc(func() Formatter { return Format("oiI#oiu").With(k.name).With(rs2).With(rs1).With("c.swsp").With(rs2).With(uint32(imm12)) })
			return nil
		}
		if wide && e.target.Supports(isa.ExtC) && rs2.HasCompressedAlias() && rs1.HasCompressedAlias() && imm12 >= 0 && imm12 <= 124 && isAlignedN(imm12, 4) {
			u := uint64(imm12)
			cimm := bitfield.Range(5, 3).Of(u)
			cimmLow := bitfield.Bit(2).Of(u).Concat(bitfield.Bit(6).Of(u))
			op := bc(3, 0b110).Concat(cimm).Concat(rs1.CIdx()).Concat(cimmLow).Concat(rs2.CIdx()).Concat(bc(2, 0b00))
			if err := b.WriteHword(op.Uint16()); err != nil {
				return err
			}
			b.desc(func() Formatter { return Format("oiI#oiI").With(k.name).With(rs2).With(rs1).With("c.sw").With(rs2).With(rs1) })
			return nil
		}

		imm := uint64(imm12)
		op := bitfield.Range(11, 5).Of(imm).Concat(rs2.Idx()).Concat(rs1.Idx()).Concat(bc(3, k.funct3)).Concat(bitfield.Range(4, 0).Of(imm)).Concat(bc(7, 0b0100011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("oiI").With(k.name).With(rs2).With(rs1) })
		return nil
	})
}

func (e *Emitter) Sb(rs2, rs1 reg.IntReg) error { return e.store(rs2, rs1, storeKind{0b000, "sb"}, false) }
func (e *Emitter) Sh(rs2, rs1 reg.IntReg) error { return e.store(rs2, rs1, storeKind{0b001, "sh"}, false) }
func (e *Emitter) Sw(rs2, rs1 reg.IntReg) error { return e.store(rs2, rs1, storeKind{0b010, "sw"}, true) }

// Addi adds a signed 12-bit immediate to rs1 and stores the result in rd
// (RV32I ADDI). It prefers C.ADDI, C.NOP (rd=rs1=zero, imm=0) and C.LI
// (rs1=zero); imm=0 with two distinct registers stays a 32-bit addi,
// rendered as mv.
func (e *Emitter) Addi(rd, rs1 reg.IntReg, imm12 int32) error {
	if err := e.require(isa.ExtI, "addi"); err != nil {
		return err
	}
	if !isSintN(int64(imm12), 12) {
		return rangeErr("imm12", int64(imm12))
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		if e.target.Supports(isa.ExtC) {
			u := uint64(uint32(imm12))
			switch {
			case rd.Equal(reg.Zero) && rs1.Equal(reg.Zero) && imm12 == 0:
				op := bc(3, 0).Concat(bc(1, 0)).Concat(bc(5, 0)).Concat(bc(5, 0)).Concat(bc(2, 0b01))
				if err := b.WriteHword(op.Uint16()); err != nil {
					return err
				}
				b.desc(func() Formatter { return Format("#o").With("c.nop") })
				return nil
			case rs1.Equal(reg.Zero) && !rd.Equal(reg.Zero) && isSintN(int64(imm12), 6):
				op := bc(3, 0b010).Concat(bitfield.Bit(5).Of(u)).Concat(rd.Idx()).Concat(bitfield.Range(4, 0).Of(u)).Concat(bc(2, 0b01))
				if err := b.WriteHword(op.Uint16()); err != nil {
					return err
				}
				b.desc(func() Formatter { return Format("ois#ois").With("li").With(rd).With(imm12).With("c.li").With(rd).With(imm12) })
				return nil
			case rd.Equal(rs1) && !rd.Equal(reg.Zero) && imm12 != 0 && isSintN(int64(imm12), 6):
				op := bc(3, 0).Concat(bitfield.Bit(5).Of(u)).Concat(rd.Idx()).Concat(bitfield.Range(4, 0).Of(u)).Concat(bc(2, 0b01))
				if err := b.WriteHword(op.Uint16()); err != nil {
					return err
				}
				b.desc(func() Formatter { return Format("ois#ois").With("addi").With(rd).With(imm12).With("c.addi").With(rd).With(imm12) })
				return nil
			}
		}
		op := bitfield.Range(11, 0).Of(uint64(uint32(imm12))).Concat(rs1.Idx()).Concat(bc(3, 0)).Concat(rd.Idx()).Concat(bc(7, 0b0010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		if rs1.Equal(reg.Zero) {
			b.desc(func() Formatter { return Format("ois").With("li").With(rd).With(imm12) })
		} else if imm12 == 0 {
			b.desc(func() Formatter { return Format("oii").With("mv").With(rd).With(rs1) })
		} else {
			b.desc(func() Formatter { return Format("oiis").With("addi").With(rd).With(rs1).With(imm12) })
		}
		return nil
	})
}

func (e *Emitter) immOp(rd, rs1 reg.IntReg, imm12 int32, funct3 uint64, name string) error {
	if err := e.require(isa.ExtI, name); err != nil {
		return err
	}
	if !isSintN(int64(imm12), 12) {
		return rangeErr("imm12", int64(imm12))
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bitfield.Range(11, 0).Of(uint64(uint32(imm12))).Concat(rs1.Idx()).Concat(bc(3, funct3)).Concat(rd.Idx()).Concat(bc(7, 0b0010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("oiis").With(name).With(rd).With(rs1).With(imm12) })
		return nil
	})
}

func (e *Emitter) Slti(rd, rs1 reg.IntReg, imm12 int32) error  { return e.immOp(rd, rs1, imm12, 0b010, "slti") }
func (e *Emitter) Sltiu(rd, rs1 reg.IntReg, imm12 int32) error { return e.immOp(rd, rs1, imm12, 0b011, "sltiu") }
func (e *Emitter) Xori(rd, rs1 reg.IntReg, imm12 int32) error  { return e.immOp(rd, rs1, imm12, 0b100, "xori") }
func (e *Emitter) Ori(rd, rs1 reg.IntReg, imm12 int32) error   { return e.immOp(rd, rs1, imm12, 0b110, "ori") }

// Andi ands rs1 with a signed 12-bit immediate into rd (RV32I ANDI),
// preferring C.ANDI (CB-format) when rd==rs1 share a compressed alias and
// the immediate fits six signed bits.
func (e *Emitter) Andi(rd, rs1 reg.IntReg, imm12 int32) error {
	if err := e.require(isa.ExtI, "andi"); err != nil {
		return err
	}
	if !isSintN(int64(imm12), 12) {
		return rangeErr("imm12", int64(imm12))
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		if e.target.Supports(isa.ExtC) && rd.Equal(rs1) && rd.HasCompressedAlias() && isSintN(int64(imm12), 6) {
			u := uint64(uint32(imm12))
			op := bc(3, 0b100).Concat(bitfield.Bit(5).Of(u)).Concat(bc(2, 0b10)).Concat(rd.CIdx()).
				Concat(bitfield.Range(4, 0).Of(u)).Concat(bc(2, 0b01))
			if err := b.WriteHword(op.Uint16()); err != nil {
				return err
			}
			b.desc(func() Formatter { return Format("oiis#ois").With("andi").With(rd).With(rs1).With(imm12).With("c.andi").With(rd).With(imm12) })
			return nil
		}
		op := bitfield.Range(11, 0).Of(uint64(uint32(imm12))).Concat(rs1.Idx()).Concat(bc(3, 0b111)).Concat(rd.Idx()).Concat(bc(7, 0b0010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("oiis").With("andi").With(rd).With(rs1).With(imm12) })
		return nil
	})
}

// shiftImm backs Slli, whose compressed form (C.SLLI) keeps the CI-format
// layout: a full 5-bit rd/rs1 field, not restricted to the compressed-alias
// register subset.
func (e *Emitter) shiftImm(rd, rs1 reg.IntReg, shamt uint32, funct3, funct7 uint64, name, cname string, cfunct3 uint64) error {
	if err := e.require(isa.ExtI, name); err != nil {
		return err
	}
	if !isUintN(uint64(shamt), 5) {
		return rangeErr("shamt", int64(shamt))
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		if e.target.Supports(isa.ExtC) && rd.Equal(rs1) && !rd.Equal(reg.Zero) && shamt != 0 {
			u := uint64(shamt)
			op := bc(3, cfunct3).Concat(bitfield.Bit(5).Of(u)).Concat(rd.Idx()).Concat(bitfield.Range(4, 0).Of(u)).Concat(bc(2, 0b10))
			if err := b.WriteHword(op.Uint16()); err != nil {
				return err
			}
			b.desc(func() Formatter { return Format("oiu#oiu").With(name).With(rd).With(shamt).With(cname).With(rd).With(shamt) })
			return nil
		}
		op := bc(7, funct7).Concat(bc(5, uint64(shamt))).Concat(rs1.Idx()).Concat(bc(3, funct3)).Concat(rd.Idx()).Concat(bc(7, 0b0010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("oiiu").With(name).With(rd).With(rs1).With(shamt) })
		return nil
	})
}

// shiftImmCB backs Srli and Srai, whose compressed forms (C.SRLI/C.SRAI)
// use the CB-format: funct3, shamt[5], a 2-bit sub-opcode, rd' (compressed
// alias only), shamt[4:0], op.
func (e *Emitter) shiftImmCB(rd, rs1 reg.IntReg, shamt uint32, funct3, funct7 uint64, name, cname string, csubop uint64) error {
	if err := e.require(isa.ExtI, name); err != nil {
		return err
	}
	if !isUintN(uint64(shamt), 5) {
		return rangeErr("shamt", int64(shamt))
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		if e.target.Supports(isa.ExtC) && rd.Equal(rs1) && rd.HasCompressedAlias() && shamt != 0 {
			u := uint64(shamt)
			op := bc(3, 0b100).Concat(bitfield.Bit(5).Of(u)).Concat(bc(2, csubop)).Concat(rd.CIdx()).
				Concat(bitfield.Range(4, 0).Of(u)).Concat(bc(2, 0b01))
			if err := b.WriteHword(op.Uint16()); err != nil {
				return err
			}
			b.desc(func() Formatter { return Format("oiu#oiu").With(name).With(rd).With(shamt).With(cname).With(rd).With(shamt) })
			return nil
		}
		op := bc(7, funct7).Concat(bc(5, uint64(shamt))).Concat(rs1.Idx()).Concat(bc(3, funct3)).Concat(rd.Idx()).Concat(bc(7, 0b0010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("oiiu").With(name).With(rd).With(rs1).With(shamt) })
		return nil
	})
}

func (e *Emitter) Slli(rd, rs1 reg.IntReg, shamt uint32) error {
	return e.shiftImm(rd, rs1, shamt, 0b001, 0b0000000, "slli", "c.slli", 0b000)
}
func (e *Emitter) Srli(rd, rs1 reg.IntReg, shamt uint32) error {
	return e.shiftImmCB(rd, rs1, shamt, 0b101, 0b0000000, "srli", "c.srli", 0b00)
}
func (e *Emitter) Srai(rd, rs1 reg.IntReg, shamt uint32) error {
	return e.shiftImmCB(rd, rs1, shamt, 0b101, 0b0100000, "srai", "c.srai", 0b01)
}

func (e *Emitter) regOp(rd, rs1, rs2 reg.IntReg, funct3, funct7 uint64, name string, compressible bool) error {
	if err := e.require(isa.ExtI, name); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		if compressible && e.target.Supports(isa.ExtC) {
			switch {
			case name == "add" && rd.Equal(rs1) && !rd.Equal(reg.Zero) && !rs2.Equal(reg.Zero):
				op := bc(4, 0b1001).Concat(rd.Idx()).Concat(rs2.Idx()).Concat(bc(2, 0b10))
				if err := b.WriteHword(op.Uint16()); err != nil {
					return err
				}
				b.desc(func() Formatter { return Format("oii#oii").With("add").With(rd).With(rs2).With("c.add").With(rd).With(rs2) })
				return nil
			case name == "add" && rs1.Equal(reg.Zero) && !rs2.Equal(reg.Zero) && !rd.Equal(reg.Zero):
				op := bc(4, 0b1000).Concat(rd.Idx()).Concat(rs2.Idx()).Concat(bc(2, 0b10))
				if err := b.WriteHword(op.Uint16()); err != nil {
					return err
				}
				b.desc(func() Formatter { return Format("oii#oii").With("mv").With(rd).With(rs2).With("c.mv").With(rd).With(rs2) })
				return nil
			case (name == "sub" || name == "xor" || name == "or" || name == "and") && rd.Equal(rs1) &&
				rd.HasCompressedAlias() && rs2.HasCompressedAlias():
				var cfunct2 uint64
				switch name {
				case "sub":
					cfunct2 = 0b00
				case "xor":
					cfunct2 = 0b01
				case "or":
					cfunct2 = 0b10
				case "and":
					cfunct2 = 0b11
				}
				op := bc(6, 0b100011).Concat(rd.CIdx()).Concat(bc(2, cfunct2)).Concat(rs2.CIdx()).Concat(bc(2, 0b01))
				if err := b.WriteHword(op.Uint16()); err != nil {
					return err
				}
				b.desc(func() Formatter { return Format("oii#oii").With(name).With(rd).With(rs2).With("c."+name).With(rd).With(rs2) })
				return nil
			}
		}
		op := bc(7, funct7).Concat(rs2.Idx()).Concat(rs1.Idx()).Concat(bc(3, funct3)).Concat(rd.Idx()).Concat(bc(7, 0b0110011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("oiii").With(name).With(rd).With(rs1).With(rs2) })
		return nil
	})
}

func (e *Emitter) Add(rd, rs1, rs2 reg.IntReg) error  { return e.regOp(rd, rs1, rs2, 0b000, 0b0000000, "add", true) }
func (e *Emitter) Sub(rd, rs1, rs2 reg.IntReg) error  { return e.regOp(rd, rs1, rs2, 0b000, 0b0100000, "sub", true) }
func (e *Emitter) Sll(rd, rs1, rs2 reg.IntReg) error  { return e.regOp(rd, rs1, rs2, 0b001, 0b0000000, "sll", false) }
func (e *Emitter) Slt(rd, rs1, rs2 reg.IntReg) error  { return e.regOp(rd, rs1, rs2, 0b010, 0b0000000, "slt", false) }
func (e *Emitter) Sltu(rd, rs1, rs2 reg.IntReg) error { return e.regOp(rd, rs1, rs2, 0b011, 0b0000000, "sltu", false) }
func (e *Emitter) Xor(rd, rs1, rs2 reg.IntReg) error  { return e.regOp(rd, rs1, rs2, 0b100, 0b0000000, "xor", true) }
func (e *Emitter) Srl(rd, rs1, rs2 reg.IntReg) error  { return e.regOp(rd, rs1, rs2, 0b101, 0b0000000, "srl", false) }
func (e *Emitter) Sra(rd, rs1, rs2 reg.IntReg) error  { return e.regOp(rd, rs1, rs2, 0b101, 0b0100000, "sra", false) }
func (e *Emitter) Or(rd, rs1, rs2 reg.IntReg) error   { return e.regOp(rd, rs1, rs2, 0b110, 0b0000000, "or", true) }
func (e *Emitter) And(rd, rs1, rs2 reg.IntReg) error  { return e.regOp(rd, rs1, rs2, 0b111, 0b0000000, "and", true) }

// Ecall raises an environment call.
func (e *Emitter) Ecall() error {
	if err := e.require(isa.ExtI, "ecall"); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		if err := b.WriteWord(0b000000000000_00000_000_00000_1110011); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("o").With("ecall") })
		return nil
	})
}

// Ebreak raises a breakpoint exception, preferring C.EBREAK.
func (e *Emitter) Ebreak() error {
	if err := e.require(isa.ExtI, "ebreak"); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		if e.target.Supports(isa.ExtC) {
			if err := b.WriteHword(0b1001_00000_00000_10); err != nil {
				return err
			}
			b.desc(func() Formatter { return Format("o#o").With("ebreak").With("c.ebreak") })
			return nil
		}
		if err := b.WriteWord(0b000000000001_00000_000_00000_1110011); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("o").With("ebreak") })
		return nil
	})
}
