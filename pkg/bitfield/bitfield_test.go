package bitfield

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRangeExtraction(t *testing.T) {
	src := uint64(0b1011_0100)
	got := Range(7, 4).Of(src)
	require.Equal(t, 4, got.Width)
	require.Equal(t, uint64(0b1011), got.Value)
}

func TestBitExtraction(t *testing.T) {
	require.Equal(t, uint64(1), Bit(3).Of(0b1000).Value)
	require.Equal(t, uint64(0), Bit(2).Of(0b1000).Value)
}

func TestRepSignExtension(t *testing.T) {
	// bit 11 set: sign-extends to all ones across a 20-bit field.
	got := Rep(11, 20).Of(0b1000_0000_0000)
	require.Equal(t, 20, got.Width)
	require.Equal(t, widthMask(20), got.Value)

	got = Rep(11, 20).Of(0)
	require.Equal(t, uint64(0), got.Value)
}

func TestConcatField(t *testing.T) {
	// Reassemble a byte from its high nibble and low nibble.
	src := uint64(0xAB)
	f := Concat(Range(7, 4), Range(3, 0))
	require.Equal(t, 8, f.Len())
	require.Equal(t, uint64(0xAB), f.Of(src).Value)
}

func TestConcatConstant(t *testing.T) {
	a := NewConstant(3, 0b110)
	b := NewConstant(2, 0b01)
	c := a.Concat(b)
	require.Equal(t, 5, c.Width)
	require.Equal(t, uint64(0b11001), c.Value)
}

func TestNewConstantMasks(t *testing.T) {
	c := NewConstant(4, 0xFF)
	require.Equal(t, uint64(0xF), c.Value)
}

func TestParseLit(t *testing.T) {
	cases := []struct {
		in    string
		width int
		value uint64
	}{
		{"3'b110", 3, 0b110},
		{"3'b1_10", 3, 0b110},
		{"8'o17", 8, 15},
		{"12'h345", 12, 0x345},
		{"7'd42", 7, 42},
	}
	for _, tc := range cases {
		got, err := ParseLit(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.width, got.Width, tc.in)
		require.Equal(t, tc.value, got.Value, tc.in)
	}
}

func TestParseLitErrors(t *testing.T) {
	bad := []string{"", "3", "'b101", "3'z101", "3'b"}
	for _, s := range bad {
		_, err := ParseLit(s)
		require.Error(t, err, s)
	}
}

func TestLitPanicsOnError(t *testing.T) {
	require.Panics(t, func() { Lit("garbage") })
}

func TestConstantString(t *testing.T) {
	require.Equal(t, "5'h1f", NewConstant(5, 0x1f).String())
}
