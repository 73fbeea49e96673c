package asm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bassosimone/rvjit/internal/rvsim"
	"github.com/bassosimone/rvjit/pkg/isa"
	"github.com/bassosimone/rvjit/pkg/reg"
)

// TestLoopExecutesUnderRvsim runs a small decrementing-sum loop (the shape
// the cmd/rvjit demo also builds) through internal/rvsim's interpreter and
// checks the resulting register file, exercising both the compressed and
// standard encoders end to end rather than asserting on raw hex.
func TestLoopExecutesUnderRvsim(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 256), 256)
	e := NewEmitter(buf, isa.RV32IC)

	require.NoError(t, e.Li(reg.A0, 0))
	require.NoError(t, e.Li(reg.T1, 5))
	require.NoError(t, e.L("loop"))
	require.NoError(t, e.Beqz(reg.T1, "end"))
	require.NoError(t, e.Add(reg.A0, reg.A0, reg.T1))
	require.NoError(t, e.Addi(reg.T1, reg.T1, -1))
	require.NoError(t, e.J("loop"))
	require.NoError(t, e.L("end"))
	require.NoError(t, e.Ret())

	code, err := e.Generate()
	require.NoError(t, err)

	vm := rvsim.New(code, len(code)+4096)
	vm.X[1] = 0xdeadbeef // ra: Ret jumps here, and the out-of-bounds fetch stops Run with ErrSIGSEGV
	err = vm.Run(1000)
	require.Error(t, err) // the synthetic ra target is out of bounds, which is expected
	require.Equal(t, int32(15), int32(vm.X[10]), "a0 should hold 5+4+3+2+1")
}

// TestStoreLoadRoundTrip exercises Sw/Lw (and their compressed forms)
// through the interpreter's memory model.
func TestStoreLoadRoundTrip(t *testing.T) {
	buf := NewCodeBuffer(make([]byte, 256), 256)
	e := NewEmitter(buf, isa.RV32IC)

	require.NoError(t, e.Li(reg.S1, 64)) // base pointer into scratch memory
	require.NoError(t, e.Li(reg.A0, 42))
	require.NoError(t, e.Sw(reg.A0, reg.S1.At(0)))
	require.NoError(t, e.Li(reg.A1, 0))
	require.NoError(t, e.Lw(reg.A1, reg.S1.At(0)))

	code, err := e.Generate()
	require.NoError(t, err)

	vm := rvsim.New(code, 4096)
	for i := 0; i < 16; i++ {
		if err := vm.Step(); err != nil {
			break
		}
	}
	require.Equal(t, uint32(42), vm.X[11])
}
