package asm

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/bassosimone/rvjit/pkg/isa"
	"github.com/bassosimone/rvjit/pkg/reg"
)

func TestAlignedBufferAlignment(t *testing.T) {
	buf := AlignedBuffer(1024)
	require.Len(t, buf, 1024)
	require.Zero(t, uintptr(unsafe.Pointer(&buf[0]))%defaultAlign)
}

// Label invariance: pass 1 and pass 2 must agree on every label's address,
// provided any forward reference whose distance might exceed a compressed
// range is marked far.
func TestLabelInvarianceAcrossPasses(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 256), 256)
	e := NewEmitter(buf, isa.RV32I) // no C, so no compressed-size ambiguity

	require.NoError(t, e.Addi(reg.A0, reg.Zero, 1))
	require.NoError(t, e.L("mid"))
	require.NoError(t, e.Addi(reg.A1, reg.Zero, 2))
	require.NoError(t, e.J("mid"))
	require.NoError(t, e.L("end"))

	firstPassMid := buf.labels["mid"]
	_, err := e.Generate()
	require.NoError(t, err)
	secondPassMid := buf.labels["mid"]

	require.Equal(t, firstPassMid, secondPassMid)
	require.Equal(t, uint64(4), firstPassMid)
}

func TestListingWritesGNUStyleDirectives(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 64), 64)
	var out bytes.Buffer
	buf.SetListing(&out)
	e := NewEmitter(buf, isa.RV32I)
	require.NoError(t, e.Addi(reg.A0, reg.Zero, 5))
	_, err := e.Generate()
	require.NoError(t, err)
	require.Contains(t, out.String(), ".word 0x00500513")
}

func TestFormatterDropsDynRoundingDirective(t *testing.T) {
	f := Format("or#or").With("fsqrt.s").With(reg.Dyn).With("fsqrt.s").With(reg.Dyn)
	require.Equal(t, "fsqrt.s", f.String())
}

func TestFormatterKeepsExplicitRounding(t *testing.T) {
	f := Format("or").With("fsqrt.s").With(reg.RNE)
	require.Equal(t, "fsqrt.s rne", f.String()) // single operand, no comma
}

func TestFormatterDiffersForDistinctOperands(t *testing.T) {
	a := Format("oii").With("add").With(reg.A0).With(reg.A1)
	b := Format("oii").With("add").With(reg.A0).With(reg.A2)
	if diff := cmp.Diff(a.String(), b.String()); diff == "" {
		t.Fatalf("expected formatter output to differ for distinct operands")
	}
}
