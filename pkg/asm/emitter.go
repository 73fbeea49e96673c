package asm

import (
	"errors"
	"fmt"

	"github.com/bassosimone/rvjit/pkg/bitfield"
	"github.com/bassosimone/rvjit/pkg/isa"
	"github.com/bassosimone/rvjit/pkg/reg"
)

// ErrOperandRange is wrapped into the error returned when an immediate,
// displacement, or register combination falls outside what an encoder's
// instruction format can represent.
var ErrOperandRange = errors.New("asm: operand out of range")

// ErrTarget is wrapped into the error returned when a Target value has a
// type no encoder understands, or is used where it isn't allowed (an
// absolute address handed to call/tail, see SPEC_FULL.md's resolution of
// that otherwise-open question).
var ErrTarget = errors.New("asm: invalid branch/jump target")

// Emitter is a RV32GC (or narrower) instruction-set encoder bound to one
// target profile and one underlying CodeBuffer. Every method that builds
// an instruction registers a deferred emission closure on the buffer and
// returns an error immediately if the operands are invalid for the
// selected target or out of range for the instruction's encoding.
type Emitter struct {
	buf    *CodeBuffer
	target isa.ISA
}

// NewEmitter returns an Emitter that encodes for target, writing into buf.
func NewEmitter(buf *CodeBuffer, target isa.ISA) *Emitter {
	return &Emitter{buf: buf, target: target}
}

// Buffer exposes the underlying CodeBuffer, e.g. to attach a listing sink
// or inspect the current cursor.
func (e *Emitter) Buffer() *CodeBuffer { return e.buf }

// Target reports the emitter's configured ISA profile.
func (e *Emitter) Target() isa.ISA { return e.target }

// Generate runs pass 2 and returns the committed machine code.
func (e *Emitter) Generate() ([]byte, error) { return e.buf.RunGeneration() }

// L places a label at the current cursor.
func (e *Emitter) L(name string) error {
	return e.buf.Emit(func(b *CodeBuffer) error {
		b.AddLabel(name)
		return nil
	})
}

// Sym returns a Target referring to the named label, to be passed to a
// branch or jump encoder. Most callers pass a plain string instead; Sym
// exists for composing with Far.
func (e *Emitter) Sym(name string) Label { return Label{buf: e.buf, name: name} }

// Addr returns a Target referring to a fixed absolute address.
func (e *Emitter) Addr(addr uint64) Label { return Label{buf: e.buf, address: addr, absolute: true} }

// Far marks a label as ineligible for compressed-form encoding, for use
// when a forward reference's true distance might exceed a compressed
// branch or jump's range (§4.5): the two-pass scheme cannot see a
// not-yet-placed label's real address during pass 1, so it cannot always
// tell a near reference from a far one on its own.
func (e *Emitter) Far(t Target) Label {
	l := e.resolveTargetOrPanic(t)
	l.far = true
	return l
}

func (e *Emitter) resolveTargetOrPanic(t Target) Label {
	l, err := e.resolveTarget(t)
	if err != nil {
		panic(err)
	}
	return l
}

func (e *Emitter) resolveTarget(t Target) (Label, error) {
	switch v := t.(type) {
	case Label:
		if v.buf == nil {
			v.buf = e.buf
		}
		return v, nil
	case string:
		return Label{buf: e.buf, name: v}, nil
	case uint64:
		return Label{buf: e.buf, address: v, absolute: true}, nil
	case int:
		return Label{buf: e.buf, address: uint64(v), absolute: true}, nil
	case uint32:
		return Label{buf: e.buf, address: uint64(v), absolute: true}, nil
	default:
		return Label{}, fmt.Errorf("%w: %T", ErrTarget, t)
	}
}

func (e *Emitter) require(bits isa.ISA, mnemonic string) error {
	if !e.target.Supports(bits) {
		return isa.NewUnsupported(mnemonic)
	}
	return nil
}

// -- shared range/alignment predicates, grounded on the original's
// signextend/isSintN/isUintN/isAlignedN helpers --

func signExtend(val int64, size int) int64 {
	shift := 64 - uint(size)
	return (val << shift) >> shift
}

func isSintN(val int64, n int) bool { return signExtend(val, n) == val }

func isUintN(val uint64, n int) bool {
	if n >= 64 {
		return true
	}
	return val>>uint(n) == 0
}

func isAlignedN(val int64, n int64) bool { return val%n == 0 }

func rangeErr(what string, val int64) error {
	return fmt.Errorf("%w: %s = %d", ErrOperandRange, what, val)
}

// bc is a terse alias for bitfield.NewConstant, used throughout the
// encoders to keep opcode-composition lines close to the bit diagrams
// they transcribe.
func bc(width int, value uint64) bitfield.Constant { return bitfield.NewConstant(width, value) }

func bu32(c bitfield.Constant) uint32 { return c.Uint32() }
