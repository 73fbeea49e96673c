package asm

import (
	"github.com/bassosimone/rvjit/pkg/bitfield"
	"github.com/bassosimone/rvjit/pkg/isa"
	"github.com/bassosimone/rvjit/pkg/reg"
)

// Fld loads a double-precision value from rs1's base+offset into fd
// (RV32D FLD), preferring C.FLD when both registers have a compressed
// alias and the (8-byte-aligned, 0-248) offset fits.
func (e *Emitter) Fld(fd reg.FpReg, rs1 reg.IntReg) error {
	if err := e.require(isa.ExtD, "fld"); err != nil {
		return err
	}
	imm12 := int64(rs1.Offset)
	if !isSintN(imm12, 12) {
		return rangeErr("fld offset", imm12)
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		if e.target.Supports(isa.ExtC) && rs1.Equal(reg.SP) && imm12 >= 0 && imm12 <= 504 && isAlignedN(imm12, 8) {
			u := uint64(imm12)
			cimm := bitfield.Range(4, 3).Of(u).Concat(bitfield.Range(8, 6).Of(u))
			op := bc(3, 0b001).Concat(bitfield.Bit(5).Of(u)).Concat(fd.Idx()).Concat(cimm).Concat(bc(2, 0b10))
			if err := b.WriteHword(op.Uint16()); err != nil {
				return err
			}
			b.desc(func() Formatter { return Format("ofI#ofI").With("fld").With(fd).With(rs1).With("c.fldsp").With(fd).With(rs1) })
			return nil
		}
		if e.target.Supports(isa.ExtC) && fd.HasCompressedAlias() && rs1.HasCompressedAlias() &&
			imm12 >= 0 && imm12 <= 248 && isAlignedN(imm12, 8) {
			u := uint64(imm12)
			op := bc(3, 0b001).Concat(bitfield.Range(5, 3).Of(u)).Concat(rs1.CIdx()).
				Concat(bitfield.Range(7, 6).Of(u)).Concat(fd.CIdx()).Concat(bc(2, 0b00))
			if err := b.WriteHword(op.Uint16()); err != nil {
				return err
			}
			b.desc(func() Formatter { return Format("ofI#ofI").With("fld").With(fd).With(rs1).With("c.fld").With(fd).With(rs1) })
			return nil
		}
		op := bitfield.Range(11, 0).Of(uint64(imm12)).Concat(rs1.Idx()).Concat(bc(3, 0b011)).Concat(fd.Idx()).Concat(bc(7, 0b0000111))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("ofI").With("fld").With(fd).With(rs1) })
		return nil
	})
}

// Fsd stores fs2's double-precision value to rs1's base+offset (RV32D
// FSD), preferring C.FSD under the same conditions as Fld/C.FLD.
func (e *Emitter) Fsd(fs2 reg.FpReg, rs1 reg.IntReg) error {
	if err := e.require(isa.ExtD, "fsd"); err != nil {
		return err
	}
	imm12 := int64(rs1.Offset)
	if !isSintN(imm12, 12) {
		return rangeErr("fsd offset", imm12)
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		if e.target.Supports(isa.ExtC) && rs1.Equal(reg.SP) && imm12 >= 0 && imm12 <= 504 && isAlignedN(imm12, 8) {
			u := uint64(imm12)
			cimm := bitfield.Range(5, 3).Of(u).Concat(bitfield.Range(8, 6).Of(u))
			op := bc(3, 0b101).Concat(cimm).Concat(fs2.Idx()).Concat(bc(2, 0b10))
			if err := b.WriteHword(op.Uint16()); err != nil {
				return err
			}
			b.desc(func() Formatter { return Format("ofI#ofI").With("fsd").With(fs2).With(rs1).With("c.fsdsp").With(fs2).With(rs1) })
			return nil
		}
		if e.target.Supports(isa.ExtC) && fs2.HasCompressedAlias() && rs1.HasCompressedAlias() &&
			imm12 >= 0 && imm12 <= 248 && isAlignedN(imm12, 8) {
			u := uint64(imm12)
			op := bc(3, 0b101).Concat(bitfield.Range(5, 3).Of(u)).Concat(rs1.CIdx()).
				Concat(bitfield.Range(7, 6).Of(u)).Concat(fs2.CIdx()).Concat(bc(2, 0b00))
			if err := b.WriteHword(op.Uint16()); err != nil {
				return err
			}
			b.desc(func() Formatter { return Format("ofI#ofI").With("fsd").With(fs2).With(rs1).With("c.fsd").With(fs2).With(rs1) })
			return nil
		}
		imm := uint64(imm12)
		op := bitfield.Range(11, 5).Of(imm).Concat(fs2.Idx()).Concat(rs1.Idx()).Concat(bc(3, 0b011)).
			Concat(bitfield.Range(4, 0).Of(imm)).Concat(bc(7, 0b0100111))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("ofI").With("fsd").With(fs2).With(rs1) })
		return nil
	})
}

func (e *Emitter) fmaD(fd, fs1, fs2, fs3 reg.FpReg, rm reg.RoundingMode, opcode uint64, name string) error {
	if err := e.require(isa.ExtD, name); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := fs3.Idx().Concat(bc(2, fmtDouble)).Concat(fs2.Idx()).Concat(fs1.Idx()).
			Concat(rm.Constant()).Concat(fd.Idx()).Concat(bc(7, opcode))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return descRM(name, rm, fd, fs1, fs2, fs3) })
		return nil
	})
}

func (e *Emitter) Fmadd_D(fd, fs1, fs2, fs3 reg.FpReg, rm reg.RoundingMode) error {
	return e.fmaD(fd, fs1, fs2, fs3, rm, 0b1000011, "fmadd.d")
}
func (e *Emitter) Fmsub_D(fd, fs1, fs2, fs3 reg.FpReg, rm reg.RoundingMode) error {
	return e.fmaD(fd, fs1, fs2, fs3, rm, 0b1000111, "fmsub.d")
}
func (e *Emitter) Fnmsub_D(fd, fs1, fs2, fs3 reg.FpReg, rm reg.RoundingMode) error {
	return e.fmaD(fd, fs1, fs2, fs3, rm, 0b1001011, "fnmsub.d")
}
func (e *Emitter) Fnmadd_D(fd, fs1, fs2, fs3 reg.FpReg, rm reg.RoundingMode) error {
	return e.fmaD(fd, fs1, fs2, fs3, rm, 0b1001111, "fnmadd.d")
}

func (e *Emitter) opfp2D(fd, fs1, fs2 reg.FpReg, rm reg.RoundingMode, funct5 uint64, name string) error {
	if err := e.require(isa.ExtD, name); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(5, funct5).Concat(bc(2, fmtDouble)).Concat(fs2.Idx()).Concat(fs1.Idx()).
			Concat(rm.Constant()).Concat(fd.Idx()).Concat(bc(7, 0b1010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return descRM(name, rm, fd, fs1, fs2) })
		return nil
	})
}

func (e *Emitter) Fadd_D(fd, fs1, fs2 reg.FpReg, rm reg.RoundingMode) error {
	return e.opfp2D(fd, fs1, fs2, rm, 0b00000, "fadd.d")
}
func (e *Emitter) Fsub_D(fd, fs1, fs2 reg.FpReg, rm reg.RoundingMode) error {
	return e.opfp2D(fd, fs1, fs2, rm, 0b00001, "fsub.d")
}
func (e *Emitter) Fmul_D(fd, fs1, fs2 reg.FpReg, rm reg.RoundingMode) error {
	return e.opfp2D(fd, fs1, fs2, rm, 0b00010, "fmul.d")
}
func (e *Emitter) Fdiv_D(fd, fs1, fs2 reg.FpReg, rm reg.RoundingMode) error {
	return e.opfp2D(fd, fs1, fs2, rm, 0b00011, "fdiv.d")
}

// Fsqrt_D computes the square root of fs1, rounded per rm.
func (e *Emitter) Fsqrt_D(fd, fs1 reg.FpReg, rm reg.RoundingMode) error {
	if err := e.require(isa.ExtD, "fsqrt.d"); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(5, 0b01011).Concat(bc(2, fmtDouble)).Concat(bc(5, 0)).Concat(fs1.Idx()).
			Concat(rm.Constant()).Concat(fd.Idx()).Concat(bc(7, 0b1010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return descRM("fsqrt.d", rm, fd, fs1) })
		return nil
	})
}

func (e *Emitter) fsgnjFamilyD(fd, fs1, fs2 reg.FpReg, funct3 uint64, name string) error {
	if err := e.require(isa.ExtD, name); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(5, 0b00100).Concat(bc(2, fmtDouble)).Concat(fs2.Idx()).Concat(fs1.Idx()).
			Concat(bc(3, funct3)).Concat(fd.Idx()).Concat(bc(7, 0b1010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("offf").With(name).With(fd).With(fs1).With(fs2) })
		return nil
	})
}

func (e *Emitter) Fsgnj_D(fd, fs1, fs2 reg.FpReg) error  { return e.fsgnjFamilyD(fd, fs1, fs2, 0b000, "fsgnj.d") }
func (e *Emitter) Fsgnjn_D(fd, fs1, fs2 reg.FpReg) error { return e.fsgnjFamilyD(fd, fs1, fs2, 0b001, "fsgnjn.d") }
func (e *Emitter) Fsgnjx_D(fd, fs1, fs2 reg.FpReg) error { return e.fsgnjFamilyD(fd, fs1, fs2, 0b010, "fsgnjx.d") }
func (e *Emitter) Fmin_D(fd, fs1, fs2 reg.FpReg) error {
	return e.minMax(fd, fs1, fs2, 0b00101, 0b000, "fmin.d", fmtDouble)
}
func (e *Emitter) Fmax_D(fd, fs1, fs2 reg.FpReg) error {
	return e.minMax(fd, fs1, fs2, 0b00101, 0b001, "fmax.d", fmtDouble)
}

// Fcvt_S_D narrows fs1 from double to single precision.
func (e *Emitter) Fcvt_S_D(fd, fs1 reg.FpReg, rm reg.RoundingMode) error {
	if err := e.require(isa.ExtD, "fcvt.s.d"); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(5, 0b01000).Concat(bc(2, fmtSingle)).Concat(bc(5, 0b00001)).Concat(fs1.Idx()).
			Concat(rm.Constant()).Concat(fd.Idx()).Concat(bc(7, 0b1010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return descRM("fcvt.s.d", rm, fd, fs1) })
		return nil
	})
}

// Fcvt_D_S widens fs1 from single to double precision (exact, no
// rounding mode needed, but the field is still present in the encoding).
func (e *Emitter) Fcvt_D_S(fd, fs1 reg.FpReg) error {
	if err := e.require(isa.ExtD, "fcvt.d.s"); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(5, 0b01000).Concat(bc(2, fmtDouble)).Concat(bc(5, 0)).Concat(fs1.Idx()).
			Concat(reg.RNE.Constant()).Concat(fd.Idx()).Concat(bc(7, 0b1010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("off").With("fcvt.d.s").With(fd).With(fs1) })
		return nil
	})
}

func (e *Emitter) Fcvt_W_D(rd reg.IntReg, fs1 reg.FpReg, rm reg.RoundingMode) error {
	return e.fcvtToInt(rd, fs1, rm, 0b00000, fmtDouble, "fcvt.w.d")
}
func (e *Emitter) Fcvt_WU_D(rd reg.IntReg, fs1 reg.FpReg, rm reg.RoundingMode) error {
	return e.fcvtToInt(rd, fs1, rm, 0b00001, fmtDouble, "fcvt.wu.d")
}
func (e *Emitter) Fcvt_D_W(fd reg.FpReg, rs1 reg.IntReg, rm reg.RoundingMode) error {
	return e.fcvtFromInt(fd, rs1, rm, 0b00000, fmtDouble, "fcvt.d.w")
}
func (e *Emitter) Fcvt_D_WU(fd reg.FpReg, rs1 reg.IntReg, rm reg.RoundingMode) error {
	return e.fcvtFromInt(fd, rs1, rm, 0b00001, fmtDouble, "fcvt.d.wu")
}

// Fclass_D classifies fs1's value into rd using the ten-bit class mask.
// RV32D has no FMV.X.D/FMV.D.X: moving a double's raw bit pattern through
// an integer register needs a 64-bit XLEN, so those two are RV64D-only
// and are intentionally not exposed here.
func (e *Emitter) Fclass_D(rd reg.IntReg, fs1 reg.FpReg) error {
	if err := e.require(isa.ExtD, "fclass.d"); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(5, 0b11100).Concat(bc(2, fmtDouble)).Concat(bc(5, 0)).Concat(fs1.Idx()).
			Concat(bc(3, 1)).Concat(rd.Idx()).Concat(bc(7, 0b1010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("oif").With("fclass.d").With(rd).With(fs1) })
		return nil
	})
}

func (e *Emitter) Feq_D(rd reg.IntReg, fs1, fs2 reg.FpReg) error {
	return e.compareFix(rd, fs1, fs2, 0b010, "feq.d", fmtDouble)
}
func (e *Emitter) Flt_D(rd reg.IntReg, fs1, fs2 reg.FpReg) error {
	return e.compareFix(rd, fs1, fs2, 0b001, "flt.d", fmtDouble)
}
func (e *Emitter) Fle_D(rd reg.IntReg, fs1, fs2 reg.FpReg) error {
	return e.compareFix(rd, fs1, fs2, 0b000, "fle.d", fmtDouble)
}
