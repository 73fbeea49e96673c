package asm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bassosimone/rvjit/pkg/reg"
)

// A split template must route the canonical group of operands into the
// canonical half and the actual group into the actual half, not feed every
// operand to both sides at once.
func TestFormatterSplitTemplateRendersBothForms(t *testing.T) {
	f := Format("ois#ois").With("addi").With(reg.A0).With(int32(0)).
		With("c.addi").With(reg.A0).With(int32(0))
	require.Equal(t, "addi a0,0", f.Canonical())
	require.Equal(t, "c.addi a0,0", f.String())
}

// A split template whose two halves have different shapes (a bare name
// on the canonical side, a two-directive actual side carrying the
// compressed mnemonic's own name) must not panic and must still render
// the actual form correctly.
func TestFormatterSingleDirectiveSplit(t *testing.T) {
	f := Format("o#oi").With("ret").With("c.jr").With(reg.RA)
	require.Equal(t, "ret", f.Canonical())
	require.Equal(t, "c.jr ra", f.String())
}

// Format("o#o") is the degenerate split case where both halves are a bare
// name; the second With call must still land on the actual side, not find
// it already exhausted.
func TestFormatterBareNameSplit(t *testing.T) {
	f := Format("o#o").With("ebreak").With("c.ebreak")
	require.Equal(t, "ebreak", f.Canonical())
	require.Equal(t, "c.ebreak", f.String())
}
