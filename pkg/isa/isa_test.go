package isa

import "testing"

func TestSupports(t *testing.T) {
	if !RV32GC.Supports(ExtC) {
		t.Fatal("RV32GC should support C")
	}
	if RV32I.Supports(ExtC) {
		t.Fatal("RV32I should not support C")
	}
	if !RV32GC.Supports(RV32I) {
		t.Fatal("RV32GC should support the base RV32I requirement")
	}
}

func TestMnemonicFromFunc(t *testing.T) {
	cases := map[string]string{
		"Fmul_S":    "Fmul.S",
		"Amoadd_W":  "Amoadd.W",
		"Fcvt_D_W":  "Fcvt.D.W",
		"Not_":      "Not",
		"addi":      "addi",
	}
	for in, want := range cases {
		if got := MnemonicFromFunc(in); got != want {
			t.Errorf("MnemonicFromFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUnsupportedError(t *testing.T) {
	err := NewUnsupported("fmul.s")
	if err.Error() != "'fmul.s' instruction not supported" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}
