package asm

import (
	"github.com/bassosimone/rvjit/pkg/isa"
	"github.com/bassosimone/rvjit/pkg/reg"
)

// amoBits renders the acquire/release pair as a 2-bit value.
func amoBits(aq, rl bool) uint64 {
	var v uint64
	if aq {
		v |= 0b10
	}
	if rl {
		v |= 0b01
	}
	return v
}

func amoSuffix(aq, rl bool) string {
	switch {
	case aq && rl:
		return ".aqrl"
	case aq:
		return ".aq"
	case rl:
		return ".rl"
	default:
		return ""
	}
}

// Lr_W loads a word from the address in rs1 and registers a
// reservation on it (RV32A LR.W); rs2 is implicitly x0.
func (e *Emitter) Lr_W(rd, rs1 reg.IntReg, aq, rl bool) error {
	if err := e.require(isa.ExtA, "lr.w"); err != nil {
		return err
	}
	if rs1.Offset != 0 {
		return rangeErr("lr.w address offset", int64(rs1.Offset))
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(5, 0b00010).Concat(bc(2, amoBits(aq, rl))).Concat(reg.Zero.Idx()).Concat(rs1.Idx()).
			Concat(bc(3, 0b010)).Concat(rd.Idx()).Concat(bc(7, 0b0101111))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		name := "lr.w" + amoSuffix(aq, rl)
		b.desc(func() Formatter { return Format("oiI").With(name).With(rd).With(rs1) })
		return nil
	})
}

// Sc_W conditionally stores rs2's value to the address in rs1, provided
// the LR.W reservation still holds; rd receives 0 on success, nonzero on
// failure (RV32A SC.W).
func (e *Emitter) Sc_W(rd, rs1, rs2 reg.IntReg, aq, rl bool) error {
	if err := e.require(isa.ExtA, "sc.w"); err != nil {
		return err
	}
	if rs1.Offset != 0 {
		return rangeErr("sc.w address offset", int64(rs1.Offset))
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(5, 0b00011).Concat(bc(2, amoBits(aq, rl))).Concat(rs2.Idx()).Concat(rs1.Idx()).
			Concat(bc(3, 0b010)).Concat(rd.Idx()).Concat(bc(7, 0b0101111))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		name := "sc.w" + amoSuffix(aq, rl)
		b.desc(func() Formatter { return Format("oiiI").With(name).With(rd).With(rs2).With(rs1) })
		return nil
	})
}

func (e *Emitter) amo(rd, rs1, rs2 reg.IntReg, funct5 uint64, name string, aq, rl bool) error {
	if err := e.require(isa.ExtA, name); err != nil {
		return err
	}
	if rs1.Offset != 0 {
		return rangeErr(name+" address offset", int64(rs1.Offset))
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		op := bc(5, funct5).Concat(bc(2, amoBits(aq, rl))).Concat(rs2.Idx()).Concat(rs1.Idx()).
			Concat(bc(3, 0b010)).Concat(rd.Idx()).Concat(bc(7, 0b0101111))
		if err := b.WriteWord(op.Uint32()); err != nil {
			return err
		}
		full := name + amoSuffix(aq, rl)
		b.desc(func() Formatter { return Format("oiiI").With(full).With(rd).With(rs2).With(rs1) })
		return nil
	})
}

func (e *Emitter) Amoswap_W(rd, rs1, rs2 reg.IntReg, aq, rl bool) error {
	return e.amo(rd, rs1, rs2, 0b00001, "amoswap.w", aq, rl)
}
func (e *Emitter) Amoadd_W(rd, rs1, rs2 reg.IntReg, aq, rl bool) error {
	return e.amo(rd, rs1, rs2, 0b00000, "amoadd.w", aq, rl)
}
func (e *Emitter) Amoxor_W(rd, rs1, rs2 reg.IntReg, aq, rl bool) error {
	return e.amo(rd, rs1, rs2, 0b00100, "amoxor.w", aq, rl)
}
func (e *Emitter) Amoand_W(rd, rs1, rs2 reg.IntReg, aq, rl bool) error {
	return e.amo(rd, rs1, rs2, 0b01100, "amoand.w", aq, rl)
}
func (e *Emitter) Amoor_W(rd, rs1, rs2 reg.IntReg, aq, rl bool) error {
	return e.amo(rd, rs1, rs2, 0b01000, "amoor.w", aq, rl)
}
func (e *Emitter) Amomin_W(rd, rs1, rs2 reg.IntReg, aq, rl bool) error {
	return e.amo(rd, rs1, rs2, 0b10000, "amomin.w", aq, rl)
}
func (e *Emitter) Amomax_W(rd, rs1, rs2 reg.IntReg, aq, rl bool) error {
	return e.amo(rd, rs1, rs2, 0b10100, "amomax.w", aq, rl)
}
func (e *Emitter) Amominu_W(rd, rs1, rs2 reg.IntReg, aq, rl bool) error {
	return e.amo(rd, rs1, rs2, 0b11000, "amominu.w", aq, rl)
}
func (e *Emitter) Amomaxu_W(rd, rs1, rs2 reg.IntReg, aq, rl bool) error {
	return e.amo(rd, rs1, rs2, 0b11100, "amomaxu.w", aq, rl)
}
