package asm

import (
	"github.com/bassosimone/rvjit/pkg/bitfield"
	"github.com/bassosimone/rvjit/pkg/isa"
	"github.com/bassosimone/rvjit/pkg/reg"
)

// fmtSingle and fmtDouble select the two-bit "fmt" field distinguishing single (00) from
// double (01) precision in the OP-FP opcode space.
const (
	fmtSingle = 0b00
	fmtDouble = 0b01
)

// Flw loads a single-precision value from rs1's base+offset into fd
// (RV32F FLW), preferring C.FLW when both registers have a compressed
// alias and the (4-byte-aligned, 0-124) offset fits.
func (e *Emitter) Flw(fd reg.FpReg, rs1 reg.IntReg) error {
	if err := e.require(isa.ExtF, "flw"); err != nil {
		return err
	}
	imm12 := int64(rs1.Offset)
	if !isSintN(imm12, 12) {
		return rangeErr("flw offset", imm12)
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		if e.target.Supports(isa.ExtC) && rs1.Equal(reg.SP) && imm12 >= 0 && imm12 <= 252 && isAlignedN(imm12, 4) {
			u := uint64(imm12)
			cimm := bitfield.Range(4, 2).Of(u).Concat(bitfield.Range(7, 6).Of(u))
			op := bc(3, 0b011).Concat(bitfield.Bit(5).Of(u)).Concat(fd.Idx()).Concat(cimm).Concat(bc(2, 0b10))
			if err := b.WriteHword(op.Uint16()); err != nil {
				return err
			}
			b.desc(func() Formatter { return Format("ofI#ofI").With("flw").With(fd).With(rs1).With("c.flwsp").With(fd).With(rs1) })
			return nil
		}
		if e.target.Supports(isa.ExtC) && fd.HasCompressedAlias() && rs1.HasCompressedAlias() &&
			imm12 >= 0 && imm12 <= 124 && isAlignedN(imm12, 4) {
			u := uint64(imm12)
			op := bc(3, 0b011).Concat(bitfield.Range(5, 3).Of(u)).Concat(rs1.CIdx()).
				Concat(bitfield.Bit(2).Of(u)).Concat(bitfield.Bit(6).Of(u)).Concat(fd.CIdx()).Concat(bc(2, 0b00))
			if err := b.WriteHword(op.Uint16()); err != nil {
				return err
			}
			b.desc(func() Formatter { return Format("ofI#ofI").With("flw").With(fd).With(rs1).With("c.flw").With(fd).With(rs1) })
			return nil
		}
		op := bitfield.Range(11, 0).Of(uint64(imm12)).Concat(rs1.Idx()).Concat(bc(3, 0b010)).Concat(fd.Idx()).Concat(bc(7, 0b0000111))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("ofI").With("flw").With(fd).With(rs1) })
		return nil
	})
}

// Fsw stores fs2's single-precision value to rs1's base+offset (RV32F
// FSW), preferring C.FSW under the same conditions as Flw/C.FLW.
func (e *Emitter) Fsw(fs2 reg.FpReg, rs1 reg.IntReg) error {
	if err := e.require(isa.ExtF, "fsw"); err != nil {
		return err
	}
	imm12 := int64(rs1.Offset)
	if !isSintN(imm12, 12) {
		return rangeErr("fsw offset", imm12)
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		if e.target.Supports(isa.ExtC) && rs1.Equal(reg.SP) && imm12 >= 0 && imm12 <= 252 && isAlignedN(imm12, 4) {
			u := uint64(imm12)
			cimm := bitfield.Range(5, 2).Of(u).Concat(bitfield.Range(7, 6).Of(u))
			op := bc(3, 0b111).Concat(cimm).Concat(fs2.Idx()).Concat(bc(2, 0b10))
			if err := b.WriteHword(op.Uint16()); err != nil {
				return err
			}
			b.desc(func() Formatter { return Format("ofI#ofI").With("fsw").With(fs2).With(rs1).With("c.fswsp").With(fs2).With(rs1) })
			return nil
		}
		if e.target.Supports(isa.ExtC) && fs2.HasCompressedAlias() && rs1.HasCompressedAlias() &&
			imm12 >= 0 && imm12 <= 124 && isAlignedN(imm12, 4) {
			u := uint64(imm12)
			op := bc(3, 0b111).Concat(bitfield.Range(5, 3).Of(u)).Concat(rs1.CIdx()).
				Concat(bitfield.Bit(2).Of(u)).Concat(bitfield.Bit(6).Of(u)).Concat(fs2.CIdx()).Concat(bc(2, 0b00))
			if err := b.WriteHword(op.Uint16()); err != nil {
				return err
			}
			b.desc(func() Formatter { return Format("ofI#ofI").With("fsw").With(fs2).With(rs1).With("c.fsw").With(fs2).With(rs1) })
			return nil
		}
		imm := uint64(imm12)
		op := bitfield.Range(11, 5).Of(imm).Concat(fs2.Idx()).Concat(rs1.Idx()).Concat(bc(3, 0b010)).
			Concat(bitfield.Range(4, 0).Of(imm)).Concat(bc(7, 0b0100111))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("ofI").With("fsw").With(fs2).With(rs1) })
		return nil
	})
}

func (e *Emitter) fma(fd, fs1, fs2, fs3 reg.FpReg, rm reg.RoundingMode, opcode uint64, name string) error {
	if err := e.require(isa.ExtF, name); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := fs3.Idx().Concat(bc(2, fmtSingle)).Concat(fs2.Idx()).Concat(fs1.Idx()).
			Concat(rm.Constant()).Concat(fd.Idx()).Concat(bc(7, opcode))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return descRM(name, rm, fd, fs1, fs2, fs3) })
		return nil
	})
}

// descRM renders an R4-type FP mnemonic, dropping the rounding-mode
// operand entirely when it is Dyn (the encoded-but-implicit default).
func descRM(name string, rm reg.RoundingMode, operands ...reg.FpReg) Formatter {
	tmpl := "o"
	for range operands {
		tmpl += "f"
	}
	if rm.Symbol() != "" {
		tmpl += "r"
	}
	f := Format(tmpl).With(name)
	for _, o := range operands {
		f = f.With(o)
	}
	if rm.Symbol() != "" {
		f = f.With(rm)
	}
	return f
}

// Fmadd_S computes fs1*fs2+fs3, rounded per rm, into fd (RV32F FMADD.S).
func (e *Emitter) Fmadd_S(fd, fs1, fs2, fs3 reg.FpReg, rm reg.RoundingMode) error {
	return e.fma(fd, fs1, fs2, fs3, rm, 0b1000011, "fmadd.s")
}

// Fmsub_S computes fs1*fs2-fs3.
func (e *Emitter) Fmsub_S(fd, fs1, fs2, fs3 reg.FpReg, rm reg.RoundingMode) error {
	return e.fma(fd, fs1, fs2, fs3, rm, 0b1000111, "fmsub.s")
}

// Fnmsub_S computes -(fs1*fs2)+fs3.
func (e *Emitter) Fnmsub_S(fd, fs1, fs2, fs3 reg.FpReg, rm reg.RoundingMode) error {
	return e.fma(fd, fs1, fs2, fs3, rm, 0b1001011, "fnmsub.s")
}

// Fnmadd_S computes -(fs1*fs2)-fs3.
func (e *Emitter) Fnmadd_S(fd, fs1, fs2, fs3 reg.FpReg, rm reg.RoundingMode) error {
	return e.fma(fd, fs1, fs2, fs3, rm, 0b1001111, "fnmadd.s")
}

func (e *Emitter) opfp2(fd, fs1, fs2 reg.FpReg, rm reg.RoundingMode, funct5 uint64, name string) error {
	if err := e.require(isa.ExtF, name); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(5, funct5).Concat(bc(2, fmtSingle)).Concat(fs2.Idx()).Concat(fs1.Idx()).
			Concat(rm.Constant()).Concat(fd.Idx()).Concat(bc(7, 0b1010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return descRM(name, rm, fd, fs1, fs2) })
		return nil
	})
}

func (e *Emitter) Fadd_S(fd, fs1, fs2 reg.FpReg, rm reg.RoundingMode) error {
	return e.opfp2(fd, fs1, fs2, rm, 0b00000, "fadd.s")
}
func (e *Emitter) Fsub_S(fd, fs1, fs2 reg.FpReg, rm reg.RoundingMode) error {
	return e.opfp2(fd, fs1, fs2, rm, 0b00001, "fsub.s")
}
func (e *Emitter) Fmul_S(fd, fs1, fs2 reg.FpReg, rm reg.RoundingMode) error {
	return e.opfp2(fd, fs1, fs2, rm, 0b00010, "fmul.s")
}
func (e *Emitter) Fdiv_S(fd, fs1, fs2 reg.FpReg, rm reg.RoundingMode) error {
	return e.opfp2(fd, fs1, fs2, rm, 0b00011, "fdiv.s")
}

// Fsqrt_S computes the square root of fs1, rounded per rm.
func (e *Emitter) Fsqrt_S(fd, fs1 reg.FpReg, rm reg.RoundingMode) error {
	if err := e.require(isa.ExtF, "fsqrt.s"); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(5, 0b01011).Concat(bc(2, fmtSingle)).Concat(bc(5, 0)).Concat(fs1.Idx()).
			Concat(rm.Constant()).Concat(fd.Idx()).Concat(bc(7, 0b1010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return descRM("fsqrt.s", rm, fd, fs1) })
		return nil
	})
}

func (e *Emitter) fsgnjFamily(fd, fs1, fs2 reg.FpReg, funct3 uint64, name string) error {
	if err := e.require(isa.ExtF, name); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(5, 0b00100).Concat(bc(2, fmtSingle)).Concat(fs2.Idx()).Concat(fs1.Idx()).
			Concat(bc(3, funct3)).Concat(fd.Idx()).Concat(bc(7, 0b1010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("offf").With(name).With(fd).With(fs1).With(fs2) })
		return nil
	})
}

func (e *Emitter) Fsgnj_S(fd, fs1, fs2 reg.FpReg) error  { return e.fsgnjFamily(fd, fs1, fs2, 0b000, "fsgnj.s") }
func (e *Emitter) Fsgnjn_S(fd, fs1, fs2 reg.FpReg) error { return e.fsgnjFamily(fd, fs1, fs2, 0b001, "fsgnjn.s") }
func (e *Emitter) Fsgnjx_S(fd, fs1, fs2 reg.FpReg) error { return e.fsgnjFamily(fd, fs1, fs2, 0b010, "fsgnjx.s") }
func (e *Emitter) Fmin_S(fd, fs1, fs2 reg.FpReg) error {
	return e.minMax(fd, fs1, fs2, 0b00101, 0b000, "fmin.s", fmtSingle)
}
func (e *Emitter) Fmax_S(fd, fs1, fs2 reg.FpReg) error {
	return e.minMax(fd, fs1, fs2, 0b00101, 0b001, "fmax.s", fmtSingle)
}

func (e *Emitter) minMax(fd, fs1, fs2 reg.FpReg, funct5, funct3 uint64, name string, fmt uint64) error {
	ext := isa.ExtF
	if fmt == fmtDouble {
		ext = isa.ExtD
	}
	if err := e.require(ext, name); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(5, funct5).Concat(bc(2, fmt)).Concat(fs2.Idx()).Concat(fs1.Idx()).
			Concat(bc(3, funct3)).Concat(fd.Idx()).Concat(bc(7, 0b1010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("offf").With(name).With(fd).With(fs1).With(fs2) })
		return nil
	})
}

func (e *Emitter) fcvtToInt(rd reg.IntReg, fs1 reg.FpReg, rm reg.RoundingMode, rs2, fmt uint64, name string) error {
	ext := isa.ExtF
	if fmt == fmtDouble {
		ext = isa.ExtD
	}
	if err := e.require(ext, name); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(5, 0b11000).Concat(bc(2, fmt)).Concat(bc(5, rs2)).Concat(fs1.Idx()).
			Concat(rm.Constant()).Concat(rd.Idx()).Concat(bc(7, 0b1010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter {
			f := Format("oi" + rmDirective(rm) + "f").With(name).With(rd)
			if rm.Symbol() != "" {
				f = f.With(rm)
			}
			return f.With(fs1)
		})
		return nil
	})
}

func rmDirective(rm reg.RoundingMode) string {
	if rm.Symbol() == "" {
		return ""
	}
	return "r"
}

// Fcvt_W_S converts fs1 to a signed 32-bit integer in rd, rounding per rm.
func (e *Emitter) Fcvt_W_S(rd reg.IntReg, fs1 reg.FpReg, rm reg.RoundingMode) error {
	return e.fcvtToInt(rd, fs1, rm, 0b00000, fmtSingle, "fcvt.w.s")
}

// Fcvt_WU_S converts fs1 to an unsigned 32-bit integer in rd.
func (e *Emitter) Fcvt_WU_S(rd reg.IntReg, fs1 reg.FpReg, rm reg.RoundingMode) error {
	return e.fcvtToInt(rd, fs1, rm, 0b00001, fmtSingle, "fcvt.wu.s")
}

func (e *Emitter) fcvtFromInt(fd reg.FpReg, rs1 reg.IntReg, rm reg.RoundingMode, rs2, fmt uint64, name string) error {
	ext := isa.ExtF
	if fmt == fmtDouble {
		ext = isa.ExtD
	}
	if err := e.require(ext, name); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(5, 0b11010).Concat(bc(2, fmt)).Concat(bc(5, rs2)).Concat(rs1.Idx()).
			Concat(rm.Constant()).Concat(fd.Idx()).Concat(bc(7, 0b1010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter {
			f := Format("of" + rmDirective(rm) + "i").With(name).With(fd)
			if rm.Symbol() != "" {
				f = f.With(rm)
			}
			return f.With(rs1)
		})
		return nil
	})
}

// Fcvt_S_W converts a signed 32-bit integer in rs1 to single precision.
func (e *Emitter) Fcvt_S_W(fd reg.FpReg, rs1 reg.IntReg, rm reg.RoundingMode) error {
	return e.fcvtFromInt(fd, rs1, rm, 0b00000, fmtSingle, "fcvt.s.w")
}

// Fcvt_S_WU converts an unsigned 32-bit integer in rs1 to single precision.
func (e *Emitter) Fcvt_S_WU(fd reg.FpReg, rs1 reg.IntReg, rm reg.RoundingMode) error {
	return e.fcvtFromInt(fd, rs1, rm, 0b00001, fmtSingle, "fcvt.s.wu")
}

// Fmv_X_W reinterprets fs1's bit pattern as an integer in rd.
func (e *Emitter) Fmv_X_W(rd reg.IntReg, fs1 reg.FpReg) error {
	if err := e.require(isa.ExtF, "fmv.x.w"); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(5, 0b11100).Concat(bc(2, fmtSingle)).Concat(bc(5, 0)).Concat(fs1.Idx()).
			Concat(bc(3, 0)).Concat(rd.Idx()).Concat(bc(7, 0b1010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("oif").With("fmv.x.w").With(rd).With(fs1) })
		return nil
	})
}

// Fmv_W_X reinterprets rs1's bit pattern as a single-precision value in fd.
func (e *Emitter) Fmv_W_X(fd reg.FpReg, rs1 reg.IntReg) error {
	if err := e.require(isa.ExtF, "fmv.w.x"); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(5, 0b11110).Concat(bc(2, fmtSingle)).Concat(bc(5, 0)).Concat(rs1.Idx()).
			Concat(bc(3, 0)).Concat(fd.Idx()).Concat(bc(7, 0b1010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("ofi").With("fmv.w.x").With(fd).With(rs1) })
		return nil
	})
}

// Fclass_S classifies fs1's value into rd using the ten-bit class mask.
func (e *Emitter) Fclass_S(rd reg.IntReg, fs1 reg.FpReg) error {
	if err := e.require(isa.ExtF, "fclass.s"); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(5, 0b11100).Concat(bc(2, fmtSingle)).Concat(bc(5, 0)).Concat(fs1.Idx()).
			Concat(bc(3, 1)).Concat(rd.Idx()).Concat(bc(7, 0b1010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("oif").With("fclass.s").With(rd).With(fs1) })
		return nil
	})
}

// Feq_S sets rd to 1 if fs1 equals fs2, else 0.
func (e *Emitter) Feq_S(rd reg.IntReg, fs1, fs2 reg.FpReg) error {
	return e.compareFix(rd, fs1, fs2, 0b010, "feq.s", fmtSingle)
}

// Flt_S sets rd to 1 if fs1 < fs2, else 0.
func (e *Emitter) Flt_S(rd reg.IntReg, fs1, fs2 reg.FpReg) error {
	return e.compareFix(rd, fs1, fs2, 0b001, "flt.s", fmtSingle)
}

// Fle_S sets rd to 1 if fs1 <= fs2, else 0.
func (e *Emitter) Fle_S(rd reg.IntReg, fs1, fs2 reg.FpReg) error {
	return e.compareFix(rd, fs1, fs2, 0b000, "fle.s", fmtSingle)
}

func (e *Emitter) compareFix(rd reg.IntReg, fs1, fs2 reg.FpReg, funct3 uint64, name string, fmt uint64) error {
	ext := isa.ExtF
	if fmt == fmtDouble {
		ext = isa.ExtD
	}
	if err := e.require(ext, name); err != nil {
		return err
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(5, 0b10100).Concat(bc(2, fmt)).Concat(fs2.Idx()).Concat(fs1.Idx()).
			Concat(bc(3, funct3)).Concat(rd.Idx()).Concat(bc(7, 0b1010011))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("oiff").With(name).With(rd).With(fs1).With(fs2) })
		return nil
	})
}
