package asm

import (
	"fmt"
	"strings"

	"github.com/bassosimone/rvjit/pkg/reg"
)

// Formatter builds a disassembly-style mnemonic string from a directive
// template, lazily: an encoder only constructs one (via a closure handed
// to CodeBuffer.desc) when the buffer is actually in pass 2, so pass-1
// sizing never pays for string formatting it will throw away (§4.6).
//
// Supported directives, consumed left to right against the operands
// passed to With, in template order:
//
//	o  mnemonic name (string)
//	i  integer register (reg.IntReg)
//	I  integer register used as an offset(reg) memory operand
//	f  floating-point register (reg.FpReg)
//	s  signed immediate (int32/int64/int)
//	u  unsigned immediate (uint32/uint64/uint)
//	r  rounding mode (reg.RoundingMode); renders as "" for Dyn, and is
//	   then dropped from the joined mnemonic rather than leaving a gap
//	L  label/jump target (Label)
//
// A '#' in the template separates two alternative renderings: everything
// before it is the canonical (uncompressed) form, everything after is
// the form actually emitted. String favors the form actually emitted.
//
// With no '#', the template drives both renderings identically (there is
// only one form, so every operand feeds both). With a '#', operands are
// supplied in two groups, matching the natural order an encoder already
// describes an instruction in: first the canonical form's own directives
// and values, then the actual form's. Each With call advances through
// whichever side still has unconsumed directives, canonical first.
type Formatter struct {
	canonical string // remaining, unconsumed canonical directives
	actual    string // remaining, unconsumed actual directives
	canonTok  []string
	actualTok []string
	split     bool // true when the template had a '#', so canonical/actual advance independently
}

// Format begins building a mnemonic from directive template s.
func Format(s string) Formatter {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		return Formatter{canonical: s[:i], actual: s[i+1:], split: true}
	}
	return Formatter{canonical: s, actual: s}
}

// With supplies the next operand. For an unsplit template it is rendered
// against both the canonical and actual directive at the current position
// (the same form, so the same value). For a split template it is rendered
// against canonical's next directive until canonical is exhausted, then
// against actual's.
func (f Formatter) With(v interface{}) Formatter {
	if !f.split {
		if len(f.canonical) > 0 {
			tok := renderDirective(f.canonical[0], v)
			f.canonical = f.canonical[1:]
			if tok != "" {
				f.canonTok = append(f.canonTok, tok)
			}
		}
		if len(f.actual) > 0 {
			tok := renderDirective(f.actual[0], v)
			f.actual = f.actual[1:]
			if tok != "" {
				f.actualTok = append(f.actualTok, tok)
			}
		}
		return f
	}
	if len(f.canonical) > 0 {
		tok := renderDirective(f.canonical[0], v)
		f.canonical = f.canonical[1:]
		if tok != "" {
			f.canonTok = append(f.canonTok, tok)
		}
		return f
	}
	if len(f.actual) > 0 {
		tok := renderDirective(f.actual[0], v)
		f.actual = f.actual[1:]
		if tok != "" {
			f.actualTok = append(f.actualTok, tok)
		}
	}
	return f
}

// String renders the mnemonic actually emitted: the mnemonic name token
// followed by its operands, comma-separated.
func (f Formatter) String() string {
	return join(f.actualTok)
}

// Canonical renders the uncompressed-form mnemonic, useful for listings
// that want to show both forms side by side.
func (f Formatter) Canonical() string {
	return join(f.canonTok)
}

func join(tok []string) string {
	if len(tok) == 0 {
		return ""
	}
	if len(tok) == 1 {
		return tok[0]
	}
	return tok[0] + " " + strings.Join(tok[1:], ",")
}

func renderDirective(dir byte, v interface{}) string {
	switch dir {
	case 'o':
		return v.(string)
	case 'i':
		return v.(reg.IntReg).Name
	case 'I':
		r := v.(reg.IntReg)
		return fmt.Sprintf("%d(%s)", r.Offset, r.Name)
	case 'f':
		return v.(reg.FpReg).Name
	case 's':
		return fmt.Sprintf("%d", toInt64(v))
	case 'u':
		return fmt.Sprintf("%d", toUint64(v))
	case 'r':
		return v.(reg.RoundingMode).Symbol()
	case 'L':
		return v.(Label).String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		panic(fmt.Sprintf("asm: format: not an integer: %T", v))
	}
}

func toUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case uint32:
		return uint64(n)
	case uint64:
		return n
	case uint:
		return uint64(n)
	default:
		panic(fmt.Sprintf("asm: format: not an unsigned integer: %T", v))
	}
}
