package reg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasCompressedAlias(t *testing.T) {
	require.True(t, S0.HasCompressedAlias())
	require.True(t, A5.HasCompressedAlias())
	require.False(t, T0.HasCompressedAlias())
	require.False(t, RA.HasCompressedAlias())
}

func TestEqualIgnoresOffset(t *testing.T) {
	require.True(t, A0.Equal(A0.At(16)))
	require.False(t, A0.Equal(A1))
}

func TestAtBindsOffset(t *testing.T) {
	bound := SP.At(-8)
	require.Equal(t, int32(-8), bound.Offset)
	require.Equal(t, SP.Index, bound.Index)
}

func TestIdxAndCIdx(t *testing.T) {
	require.Equal(t, uint64(10), A0.Idx().Value)
	require.Equal(t, uint64(2), A0.CIdx().Value)
	require.Panics(t, func() { T0.CIdx() })
}

func TestRoundingModeSymbol(t *testing.T) {
	require.Equal(t, "rne", RNE.Symbol())
	require.Equal(t, "", Dyn.Symbol())
	require.Equal(t, uint64(7), Dyn.Constant().Value)
	require.Panics(t, func() { RoundingMode(5).Symbol() })
}

func TestFpCompressedAlias(t *testing.T) {
	require.True(t, FS0.HasCompressedAlias())
	require.False(t, FT0.HasCompressedAlias())
}
