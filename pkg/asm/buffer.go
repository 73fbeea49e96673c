// Package asm implements the label-resolution code buffer, the deferred
// emission list, the mnemonic formatter, and the per-instruction RV32GC
// encoders that together form the two-pass assembler described by the
// emitter's design: callers register instructions, each of which runs
// once immediately (to size itself and record any label it defines) and
// once again when Generate is called (to commit bytes).
package asm

import (
	"errors"
	"fmt"
	"io"
	"unsafe"
)

// defaultAlign is the suggested minimum alignment for a self-allocated
// code buffer. The teacher's original implementation found empirically
// that anything less could produce instruction-cache coherency glitches
// on some hosts; this core does not mandate it, only defaults to it.
const defaultAlign = 2048

// ErrBufferExhausted is returned when an encoder would write past the end
// of the allocated code buffer.
var ErrBufferExhausted = errors.New("asm: buffer exhausted")

// ErrUnknownLabel is returned when a pass-2 label lookup finds no entry.
var ErrUnknownLabel = errors.New("asm: unknown label")

// AlignedBuffer allocates a byte slice of the given size with at least
// defaultAlign alignment, by over-allocating and slicing to an aligned
// sub-range. It is the self-allocation path used when a caller does not
// supply its own backing memory to NewCodeBuffer.
func AlignedBuffer(size int) []byte {
	raw := make([]byte, size+defaultAlign)
	base := uintptr(unsafe.Pointer(&raw[0]))
	aligned := (base + defaultAlign - 1) &^ (defaultAlign - 1)
	off := int(aligned - base)
	return raw[off : off+size : off+size]
}

// CodeBuffer is the code-generation target: a byte region with a write
// cursor, a per-instruction program counter, a label table, and an
// ordered list of deferred emission callbacks (§4.4).
type CodeBuffer struct {
	mem []byte

	p  uint64 // write cursor
	pc uint64 // PC of the instruction currently being emitted

	labels map[string]uint64

	deferred   []func(*CodeBuffer) error
	inGenerate bool

	lastInsn   uint32
	lastIsWord bool

	listing io.Writer // optional GNU-as-style debug sink (ADDED)
}

// NewCodeBuffer returns a CodeBuffer backed by buf. If buf is nil, a
// freshly aligned buffer of the given size is allocated.
func NewCodeBuffer(buf []byte, size int) *CodeBuffer {
	if buf == nil {
		buf = AlignedBuffer(size)
	}
	return &CodeBuffer{mem: buf, labels: make(map[string]uint64)}
}

// SetListing directs the GNU-as-compatible disassembly listing (the
// teacher's "out.s" debug dump, kept as an opt-in sink rather than a
// default file write, see SPEC_FULL.md) to w. Passing nil disables it.
func (b *CodeBuffer) SetListing(w io.Writer) { b.listing = w }

// Bytes returns the underlying backing memory.
func (b *CodeBuffer) Bytes() []byte { return b.mem }

// PC returns the address of the instruction currently being emitted.
func (b *CodeBuffer) PC() uint64 { return b.pc }

// Cursor returns the current write position.
func (b *CodeBuffer) Cursor() uint64 { return b.p }

// InGenerate reports whether the buffer is in pass 2 (committing bytes)
// as opposed to pass 1 (sizing and label discovery).
func (b *CodeBuffer) InGenerate() bool { return b.inGenerate }

// ForcePCUpdate advances pc to the current cursor. Multi-instruction
// encoders (call/tail) use this between their two halves so that the
// second half computes its PC-relative fields against the right PC.
func (b *CodeBuffer) ForcePCUpdate() { b.pc = b.p }

// WriteHword writes a 16-bit compressed instruction, little-endian.
func (b *CodeBuffer) WriteHword(h uint16) error {
	if b.p+2 > uint64(len(b.mem)) {
		return ErrBufferExhausted
	}
	b.lastInsn, b.lastIsWord = uint32(h), false
	if b.inGenerate {
		b.mem[b.p] = byte(h)
		b.mem[b.p+1] = byte(h >> 8)
	}
	b.p += 2
	return nil
}

// WriteWord writes a 32-bit standard instruction, little-endian.
func (b *CodeBuffer) WriteWord(w uint32) error {
	if b.p+4 > uint64(len(b.mem)) {
		return ErrBufferExhausted
	}
	b.lastInsn, b.lastIsWord = w, true
	if b.inGenerate {
		b.mem[b.p] = byte(w)
		b.mem[b.p+1] = byte(w >> 8)
		b.mem[b.p+2] = byte(w >> 16)
		b.mem[b.p+3] = byte(w >> 24)
	}
	b.p += 4
	return nil
}

// AddLabel records name as pointing at the current PC during pass 1. In
// pass 2, label addresses are already fixed, so this only feeds the
// optional listing sink.
func (b *CodeBuffer) AddLabel(name string) {
	if !b.inGenerate {
		b.labels[name] = b.pc
	}
	if b.listing != nil {
		fmt.Fprintf(b.listing, "%s:\n", name)
	}
}

// LabelOffset returns the signed PC-relative distance from the current
// PC to name. During pass 1, a forward reference to a label not yet
// defined returns 0 (the caller is expected to re-derive the true value
// in pass 2, once every label has been visited once). During pass 2, a
// missing label is fatal.
func (b *CodeBuffer) LabelOffset(name string) (int64, error) {
	addr, ok := b.labels[name]
	if !ok {
		if b.inGenerate {
			return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, name)
		}
		return 0, nil
	}
	return int64(addr) - int64(b.pc), nil
}

// LabelValue returns the absolute address bound to name.
func (b *CodeBuffer) LabelValue(name string) (uint64, error) {
	addr, ok := b.labels[name]
	if !ok {
		if b.inGenerate {
			return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, name)
		}
		return 0, nil
	}
	return addr, nil
}

// Emit registers a deferred emission closure: fn runs once immediately,
// in pass-1 mode (sizing and label discovery only — no bytes are
// committed), and again later when the owning Emitter's Generate method
// performs pass 2. Any error from the immediate pass-1 run is returned
// right away, without pushing the closure, matching the "fatal,
// non-recoverable operand error" taxonomy (§7): an invalid immediate or
// misaligned target is rejected at the call site, not deferred.
func (b *CodeBuffer) Emit(fn func(*CodeBuffer) error) error {
	if err := fn(b); err != nil {
		return err
	}
	b.pc = b.p
	b.deferred = append(b.deferred, fn)
	return nil
}

// RunGeneration performs pass 2: it resets the cursor and replays every
// deferred closure in registration order, this time committing bytes. It
// returns the bytes actually written (b.mem[:b.p]), not the full backing
// region — a caller that wants the untrimmed allocation (to map it
// executable in place, say) can still reach it through Bytes. Returns the
// first error encountered — generation aborts on the first failure (§7),
// leaving the buffer partially written.
func (b *CodeBuffer) RunGeneration() ([]byte, error) {
	b.p, b.pc = 0, 0
	b.inGenerate = true
	defer func() { b.inGenerate = false }()
	for _, fn := range b.deferred {
		if err := fn(b); err != nil {
			return nil, err
		}
		b.pc = b.p
	}
	return b.mem[:b.p], nil
}

// desc records a lazily-formatted mnemonic for the instruction just
// written, evaluating the formatter only during pass 2 (§4.6) and, if a
// listing sink is attached, writing a GNU-as-compatible directive line.
func (b *CodeBuffer) desc(lazy func() Formatter) {
	if !b.inGenerate {
		return
	}
	text := lazy().String()
	if b.listing == nil {
		return
	}
	if b.lastIsWord {
		fmt.Fprintf(b.listing, "\t.word 0x%08x\t#%s\n", b.lastInsn, text)
	} else {
		fmt.Fprintf(b.listing, "\t.hword 0x%04x\t#%s\n", uint16(b.lastInsn), text)
	}
}
