package asm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bassosimone/rvjit/pkg/isa"
	"github.com/bassosimone/rvjit/pkg/reg"
)

// Scenario 6: RV32GC, fmadd.s fa0,fa1,fa2,fa3 with default (dyn) rounding.
func TestFmaddSDynRounding(t *testing.T) {
	code := assembleOne(t, isa.RV32GC, func(e *Emitter) error {
		return e.Fmadd_S(reg.FA0, reg.FA1, reg.FA2, reg.FA3, reg.Dyn)
	})
	require.Len(t, code, 4)
	word := uint32(code[0]) | uint32(code[1])<<8 | uint32(code[2])<<16 | uint32(code[3])<<24

	require.Equal(t, uint32(0b1000011), word&0x7f, "FMADD.S opcode")
	require.Equal(t, uint32(0b111), (word>>12)&0b111, "dyn rounding mode field")
	require.Equal(t, uint32(reg.FA3.Index), (word>>27)&0x1f, "rs3 = fa3")
	require.Equal(t, uint32(0), (word>>25)&0b11, "fmt = single precision")
	require.Equal(t, uint32(reg.FA2.Index), (word>>20)&0x1f, "rs2 = fa2")
	require.Equal(t, uint32(reg.FA1.Index), (word>>15)&0x1f, "rs1 = fa1")
	require.Equal(t, uint32(reg.FA0.Index), (word>>7)&0x1f, "rd = fa0")
}

// The textual form must drop the rounding-mode operand when it is dyn.
func TestFmaddSDynRoundingRendersNoSuffix(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 64), 64)
	var lines []byte
	w := &sliceWriter{buf: &lines}
	buf.SetListing(w)
	e := NewEmitter(buf, isa.RV32G)
	require.NoError(t, e.Fmadd_S(reg.FA0, reg.FA1, reg.FA2, reg.FA3, reg.Dyn))
	_, err := e.Generate()
	require.NoError(t, err)
	require.Contains(t, string(lines), "fmadd.s fa0,fa1,fa2,fa3")
	require.NotContains(t, string(lines), "rne")
}

func TestFmaddSExplicitRoundingRendersSuffix(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 64), 64)
	var lines []byte
	w := &sliceWriter{buf: &lines}
	buf.SetListing(w)
	e := NewEmitter(buf, isa.RV32G)
	require.NoError(t, e.Fmadd_S(reg.FA0, reg.FA1, reg.FA2, reg.FA3, reg.RTZ))
	_, err := e.Generate()
	require.NoError(t, err)
	require.Contains(t, string(lines), "rtz")
}

func TestFeqSCompare(t *testing.T) {
	code := assembleOne(t, isa.RV32G, func(e *Emitter) error {
		return e.Feq_S(reg.A0, reg.FA1, reg.FA2)
	})
	require.Len(t, code, 4)
	word := uint32(code[0]) | uint32(code[1])<<8 | uint32(code[2])<<16 | uint32(code[3])<<24
	require.Equal(t, uint32(0b1010011), word&0x7f, "OP-FP opcode")
	require.Equal(t, uint32(0b010), (word>>12)&0b111, "funct3=010 selects FEQ")
}

func TestFDRequiresDExtension(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 64), 64)
	e := NewEmitter(buf, isa.RV32IC) // no F, no D
	err := e.Fadd_D(reg.FA0, reg.FA1, reg.FA2, reg.Dyn)
	require.Error(t, err)
	var unsupported *isa.UnsupportedInstructionError
	require.ErrorAs(t, err, &unsupported)
}

// An sp-relative offset must prefer C.FLWSP/C.FSWSP even though sp itself
// has no compressed alias (sp is excluded from HasCompressedAlias by
// design, so this path cannot be reached through the register-relative
// C.FLW/C.FSW branch).
func TestFlwFswPreferSpRelativeForms(t *testing.T) {
	flw := assembleOne(t, isa.RV32GC, func(e *Emitter) error {
		return e.Flw(reg.FA0, reg.SP.At(16))
	})
	require.Len(t, flw, 2)
	half := uint16(flw[0]) | uint16(flw[1])<<8
	require.Equal(t, uint16(0b10), half&0b11, "quadrant 2")
	require.Equal(t, uint16(0b011), (half>>13)&0b111, "c.flwsp funct3")

	fsw := assembleOne(t, isa.RV32GC, func(e *Emitter) error {
		return e.Fsw(reg.FA0, reg.SP.At(16))
	})
	require.Len(t, fsw, 2)
	half = uint16(fsw[0]) | uint16(fsw[1])<<8
	require.Equal(t, uint16(0b10), half&0b11, "quadrant 2")
	require.Equal(t, uint16(0b111), (half>>13)&0b111, "c.fswsp funct3")
}

// An unaligned sp-relative offset must fall back to the standard 32-bit
// forms for both Flw and Fsw.
func TestFlwFswFallBackWhenMisaligned(t *testing.T) {
	flw := assembleOne(t, isa.RV32GC, func(e *Emitter) error {
		return e.Flw(reg.FA0, reg.SP.At(2))
	})
	require.Len(t, flw, 4)

	fsw := assembleOne(t, isa.RV32GC, func(e *Emitter) error {
		return e.Fsw(reg.FA0, reg.SP.At(2))
	})
	require.Len(t, fsw, 4)
}

// sliceWriter is a minimal io.Writer adapter for capturing listing output
// without pulling in bytes.Buffer for a single append.
type sliceWriter struct{ buf *[]byte }

func (w *sliceWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}
