package asm

import "fmt"

// Target is anything an encoder can resolve to a branch/jump destination:
// a label name (string), an already-built Label, or an absolute address
// (uint64 or int). This mirrors the flexibility of the original design's
// three constructor overloads without requiring Go method overloading.
type Target interface{}

// Label is a resolved jump/branch target: either a name looked up in the
// owning buffer's label table, or a fixed absolute address.
type Label struct {
	buf      *CodeBuffer
	name     string
	address  uint64
	absolute bool
	far      bool
}

// IsNear reports whether compressed-form encodings may be attempted
// against this label. Far labels opt out of compression because a
// forward reference's true distance is unknown during pass 1: the
// buffer reports offset 0 for an undefined label, which could wrongly
// look "near" even though the real distance, once label placement is
// known, exceeds a compressed form's range. far() is the caller's
// escape hatch for exactly that situation (§4.5).
func (l Label) IsNear() bool { return !l.far }

// RelAddr returns the label's PC-relative distance from the buffer's
// current instruction PC.
func (l Label) RelAddr() (int64, error) {
	if l.absolute {
		return int64(l.address) - int64(l.buf.PC()), nil
	}
	return l.buf.LabelOffset(l.name)
}

// AbsAddr returns the label's absolute address.
func (l Label) AbsAddr() (uint64, error) {
	if l.absolute {
		return l.address, nil
	}
	off, err := l.buf.LabelOffset(l.name)
	if err != nil {
		return 0, err
	}
	return uint64(int64(l.buf.PC()) + off), nil
}

// Value returns the absolute address a named label is bound to, as
// recorded by its defining L() call (distinct from AbsAddr, which
// derives the address from the current PC plus a relative offset; for
// a defined label the two agree).
func (l Label) Value() (uint64, error) {
	if l.absolute {
		return l.address, nil
	}
	return l.buf.LabelValue(l.name)
}

func (l Label) String() string {
	if l.absolute {
		return fmt.Sprintf("0x%x", l.address)
	}
	return l.name
}
