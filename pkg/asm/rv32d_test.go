package asm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bassosimone/rvjit/pkg/isa"
	"github.com/bassosimone/rvjit/pkg/reg"
)

func TestFldFsdRegisterRelativeCompress(t *testing.T) {
	fld := assembleOne(t, isa.RV32GC, func(e *Emitter) error {
		return e.Fld(reg.FS0, reg.S0.At(8))
	})
	require.Len(t, fld, 2)
	half := uint16(fld[0]) | uint16(fld[1])<<8
	require.Equal(t, uint16(0b00), half&0b11, "quadrant 0")
	require.Equal(t, uint16(0b001), (half>>13)&0b111, "c.fld funct3")

	fsd := assembleOne(t, isa.RV32GC, func(e *Emitter) error {
		return e.Fsd(reg.FS0, reg.S0.At(8))
	})
	require.Len(t, fsd, 2)
	half = uint16(fsd[0]) | uint16(fsd[1])<<8
	require.Equal(t, uint16(0b00), half&0b11, "quadrant 0")
	require.Equal(t, uint16(0b101), (half>>13)&0b111, "c.fsd funct3")
}

// An sp-relative double-precision offset must prefer C.FLDSP/C.FSDSP.
func TestFldFsdPreferSpRelativeForms(t *testing.T) {
	fld := assembleOne(t, isa.RV32GC, func(e *Emitter) error {
		return e.Fld(reg.FA0, reg.SP.At(32))
	})
	require.Len(t, fld, 2)
	half := uint16(fld[0]) | uint16(fld[1])<<8
	require.Equal(t, uint16(0b10), half&0b11, "quadrant 2")
	require.Equal(t, uint16(0b001), (half>>13)&0b111, "c.fldsp funct3")

	fsd := assembleOne(t, isa.RV32GC, func(e *Emitter) error {
		return e.Fsd(reg.FA0, reg.SP.At(32))
	})
	require.Len(t, fsd, 2)
	half = uint16(fsd[0]) | uint16(fsd[1])<<8
	require.Equal(t, uint16(0b10), half&0b11, "quadrant 2")
	require.Equal(t, uint16(0b101), (half>>13)&0b111, "c.fsdsp funct3")
}

func TestFldFallsBackWhenOffsetTooWide(t *testing.T) {
	code := assembleOne(t, isa.RV32GC, func(e *Emitter) error {
		return e.Fld(reg.FA0, reg.SP.At(600))
	})
	require.Len(t, code, 4)
}
