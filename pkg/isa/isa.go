// Package isa defines the target instruction-set bitmap that gates every
// encoder in pkg/asm, along with the error raised when an encoder is
// invoked against a target that lacks a required extension.
//
// The original design selected the target through a C++ template
// parameter, giving a compile-time gate. Go has no equivalent of
// non-type template parameters over a user enum, so ISA is an ordinary
// runtime bitmap checked at the start of every encoder; Emitter still
// only needs to be configured once, at construction, so the check is a
// single cheap AND per instruction rather than a real runtime cost
// concern.
package isa

import (
	"fmt"
	"strings"
)

// ISA is a bitmap selecting a base architecture width and a set of
// extensions, modelled on the RISC-V misa register.
type ISA uint32

// Extension bits.
const (
	ExtI ISA = 0x00000100
	ExtM ISA = 0x00001000
	ExtA ISA = 0x00000001
	ExtF ISA = 0x00000020
	ExtD ISA = 0x00000008
	ExtC ISA = 0x00000004

	// ExtG is the conventional "general purpose" aggregate: I+M+A+F+D
	// plus a reserved marker bit, matching the original bitmap layout.
	ExtG ISA = 0x00000040 | ExtI | ExtM | ExtA | ExtF | ExtD
)

// Base architecture bits.
const (
	RV32  ISA = 0x04000000
	RV64  ISA = 0x08000000
	RV128 ISA = 0x10000000
)

// Common target profiles.
const (
	RV32I   = RV32 | ExtI
	RV32IC  = RV32 | ExtI | ExtC
	RV32IMA = RV32 | ExtI | ExtM | ExtA
	RV32G   = RV32 | ExtG
	RV32GC  = RV32 | ExtG | ExtC
	RV64I   = RV64 | ExtI
)

// Supports reports whether target implements every bit set in required.
func (target ISA) Supports(required ISA) bool {
	return target&required == required
}

// UnsupportedInstructionError is returned when an encoder's required
// extensions are not all present in the emitter's target ISA.
type UnsupportedInstructionError struct {
	Mnemonic string
}

func (e *UnsupportedInstructionError) Error() string {
	return fmt.Sprintf("'%s' instruction not supported", e.Mnemonic)
}

// NewUnsupported builds the error an encoder raises when its required
// extension bits are missing from the target, using a printable mnemonic.
// MnemonicFromFunc recovers that printable name from a Go method name
// such as "Fmul_S" or "Amoadd_W_" (see MnemonicFromFunc for the exact
// restoration rules).
func NewUnsupported(mnemonic string) error {
	return &UnsupportedInstructionError{Mnemonic: mnemonic}
}

// MnemonicFromFunc restores a printable dotted mnemonic from a Go
// identifier built by the dotted-name dispatchers (§4.8): underscores
// become dots, and a trailing underscore used to escape a name that
// would otherwise collide with a Go keyword or builtin is stripped.
func MnemonicFromFunc(name string) string {
	s := strings.ReplaceAll(name, "_", ".")
	s = strings.TrimSuffix(s, ".")
	return s
}
