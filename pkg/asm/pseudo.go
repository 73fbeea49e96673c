package asm

import (
	"fmt"

	"github.com/bassosimone/rvjit/pkg/bitfield"
	"github.com/bassosimone/rvjit/pkg/isa"
	"github.com/bassosimone/rvjit/pkg/reg"
)

// Pseudo-instructions are expressed as direct calls into the real
// encoders above, exactly as the base ISA's pseudo-op table defines them
// (RISC-V User-Level ISA, chapter 25): each one is a thin rewrite into an
// existing instruction's bit pattern, not a new encoding.

// Nop does nothing (addi x0, x0, 0; or its compressed C.NOP form).
func (e *Emitter) Nop() error { return e.Addi(reg.Zero, reg.Zero, 0) }

// Mv copies rs into rd (add rd, x0, rs when C is available, so it can
// compress to C.MV; addi rd, rs, 0 otherwise).
func (e *Emitter) Mv(rd, rs reg.IntReg) error {
	if e.target.Supports(isa.ExtC) {
		return e.Add(rd, reg.Zero, rs)
	}
	return e.Addi(rd, rs, 0)
}

// Not computes the bitwise complement of rs into rd (xori rd, rs, -1).
func (e *Emitter) Not(rd, rs reg.IntReg) error { return e.Xori(rd, rs, -1) }

// Neg computes the two's-complement negation of rs into rd (sub rd, x0, rs).
func (e *Emitter) Neg(rd, rs reg.IntReg) error { return e.Sub(rd, reg.Zero, rs) }

// Seqz sets rd to 1 if rs is zero, else 0 (sltiu rd, rs, 1).
func (e *Emitter) Seqz(rd, rs reg.IntReg) error { return e.Sltiu(rd, rs, 1) }

// Snez sets rd to 1 if rs is nonzero, else 0 (sltu rd, x0, rs).
func (e *Emitter) Snez(rd, rs reg.IntReg) error { return e.Sltu(rd, reg.Zero, rs) }

// Sltz sets rd to 1 if rs is negative, else 0 (slt rd, rs, x0).
func (e *Emitter) Sltz(rd, rs reg.IntReg) error { return e.Slt(rd, rs, reg.Zero) }

// Sgtz sets rd to 1 if rs is positive, else 0 (slt rd, x0, rs).
func (e *Emitter) Sgtz(rd, rs reg.IntReg) error { return e.Slt(rd, reg.Zero, rs) }

// Beqz branches to target when rs equals zero (beq rs, x0, target).
func (e *Emitter) Beqz(rs reg.IntReg, target Target) error { return e.Beq(rs, reg.Zero, target) }

// Bnez branches to target when rs is nonzero (bne rs, x0, target).
func (e *Emitter) Bnez(rs reg.IntReg, target Target) error { return e.Bne(rs, reg.Zero, target) }

// Blez branches to target when rs <= 0 (bge x0, rs, target).
func (e *Emitter) Blez(rs reg.IntReg, target Target) error { return e.Bge(reg.Zero, rs, target) }

// Bgez branches to target when rs >= 0 (bge rs, x0, target).
func (e *Emitter) Bgez(rs reg.IntReg, target Target) error { return e.Bge(rs, reg.Zero, target) }

// Bltz branches to target when rs < 0 (blt rs, x0, target).
func (e *Emitter) Bltz(rs reg.IntReg, target Target) error { return e.Blt(rs, reg.Zero, target) }

// Bgtz branches to target when rs > 0 (blt x0, rs, target).
func (e *Emitter) Bgtz(rs reg.IntReg, target Target) error { return e.Blt(reg.Zero, rs, target) }

// Bgt branches to target when rs > rt (blt rt, rs, target).
func (e *Emitter) Bgt(rs, rt reg.IntReg, target Target) error { return e.Blt(rt, rs, target) }

// Ble branches to target when rs <= rt (bge rt, rs, target).
func (e *Emitter) Ble(rs, rt reg.IntReg, target Target) error { return e.Bge(rt, rs, target) }

// Bgtu branches to target when rs > rt, unsigned (bltu rt, rs, target).
func (e *Emitter) Bgtu(rs, rt reg.IntReg, target Target) error { return e.Bltu(rt, rs, target) }

// Bleu branches to target when rs <= rt, unsigned (bgeu rt, rs, target).
func (e *Emitter) Bleu(rs, rt reg.IntReg, target Target) error { return e.Bgeu(rt, rs, target) }

// J jumps unconditionally to target (jal x0, target).
func (e *Emitter) J(target Target) error { return e.Jal(reg.Zero, target) }

// JalPseudo jumps and links into ra (jal ra, target). It is a shorthand
// for Jal(reg.RA, target): both produce identical bytes and the same
// listing line.
func (e *Emitter) JalPseudo(target Target) error { return e.Jal(reg.RA, target) }

// Jr jumps to the address in rs (jalr x0, 0(rs)).
func (e *Emitter) Jr(rs reg.IntReg) error { return e.Jalr(reg.Zero, rs.At(0)) }

// JalrPseudo jumps to the address in rs and links into ra (jalr ra, 0(rs)).
func (e *Emitter) JalrPseudo(rs reg.IntReg) error { return e.Jalr(reg.RA, rs.At(0)) }

// Ret returns from a subroutine (jalr x0, 0(ra)).
func (e *Emitter) Ret() error { return e.Jalr(reg.Zero, reg.RA.At(0)) }

// Li materializes imm into rd. A 12-bit-signed immediate becomes a
// single addi (or C.LI); anything wider splits into a LUI/C.LUI
// of the upper 20 bits and, when the lower 12 bits are nonzero, a
// following ADDI — the standard %hi/%lo decomposition, rounding the
// upper half up when the lower half's sign bit would otherwise borrow
// from it.
func (e *Emitter) Li(rd reg.IntReg, imm int32) error {
	if isSintN(int64(imm), 12) {
		return e.Addi(rd, reg.Zero, imm)
	}
	hi20 := (uint32(imm) + 0x800) >> 12
	lo12 := imm - int32(hi20<<12)
	if err := e.Lui(rd, hi20); err != nil {
		return err
	}
	if lo12 == 0 {
		return nil
	}
	return e.Addi(rd, rd, lo12)
}

// splitPCRel computes the %hi/%lo decomposition of a PC-relative
// distance, the way Call and Tail need it: an AUIPC supplying the upper
// bits plus a base register, and a JALR immediate supplying the
// remainder as a register-relative offset.
func splitPCRel(rel int64) (hi20 uint32, lo12 int32) {
	hi20 = uint32((rel + 0x800) >> 12)
	lo12 = int32(rel - int64(hi20)<<12)
	return hi20, lo12
}

// Call performs an AUIPC+JALR far call through ra, per the call
// pseudo-instruction. Only in-buffer label targets are accepted: an
// absolute address would need a full 32-bit materialization (li+jalr)
// rather than a PC-relative pair, which call does not perform — use Li
// followed by Jalr directly for that case.
func (e *Emitter) Call(target Target) error {
	return e.farCall(target, reg.RA, reg.RA, "call")
}

// Tail performs an AUIPC+JALR far tail-call through the t1 scratch
// register, per the tail pseudo-instruction; it does not link ra, so the
// callee's return goes directly to the original caller.
func (e *Emitter) Tail(target Target) error {
	return e.farCall(target, reg.T1, reg.Zero, "tail")
}

func (e *Emitter) farCall(target Target, scratch, rd reg.IntReg, name string) error {
	if err := e.require(isa.ExtI, name); err != nil {
		return err
	}
	label, err := e.resolveTarget(target)
	if err != nil {
		return err
	}
	if label.absolute {
		return fmt.Errorf("%w: %s requires a label, not an absolute address", ErrTarget, name)
	}
	return e.buf.Emit(func(b *CodeBuffer) error {
		rel, err := label.RelAddr()
		if err != nil {
			return err
		}
		hi20, lo12 := splitPCRel(rel)

		auipcOp := bitfield.Range(31, 12).Of(uint64(hi20 << 12)).Concat(scratch.Idx()).Concat(bc(7, 0b0010111))
		if err := b.WriteWord(auipcOp.Uint32()); err != nil {
			return err
		}
		b.ForcePCUpdate()
		jalrOp := bitfield.Range(11, 0).Of(uint64(uint32(lo12))).Concat(scratch.Idx()).Concat(bc(3, 0)).Concat(rd.Idx()).Concat(bc(7, 0b1100111))
		if err := b.WriteWord(jalrOp.Uint32()); err != nil {
			return err
		}
		b.desc(func() Formatter { return Format("oL").With(name).With(label) })
		return nil
	})
}
