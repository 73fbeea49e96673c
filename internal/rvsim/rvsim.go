// Package rvsim contains a small RV32IMAC instruction-level interpreter.
//
// It exists purely as a test oracle for pkg/asm: rather than hand-checking
// every encoded instruction's hex literal, a test can emit real machine
// code with an Emitter and then Run it here, asserting on the resulting
// register file. This is not a general-purpose RISC-V simulator — there is
// no MMU, no traps beyond Ecall/Ebreak halting the machine, and the
// compressed-instruction decoder covers a subset of the forms pkg/asm's
// encoders produce (the common ADDI/LI/MV/ADD/LW/SW/branch/JAL/JR shapes),
// not the full C extension catalogue.
//
// Instruction format
//
// Memory holds raw little-endian bytes. PC addresses a byte offset into
// that memory. A fetch reads either a 16-bit compressed instruction (when
// its two low bits are not 11) or a 32-bit standard one.
package rvsim

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrHalted is returned by Run when the machine executes Ecall or Ebreak.
var ErrHalted = errors.New("rvsim: halted")

// ErrBadInstruction is returned when Fetch/Decode meets an opcode pattern
// this interpreter does not implement.
var ErrBadInstruction = errors.New("rvsim: unimplemented instruction")

// ErrSIGSEGV is returned when an access falls outside Memory.
var ErrSIGSEGV = errors.New("rvsim: segmentation fault")

// VM is the machine state: 32 integer registers (x0 always reads as
// zero), a flat byte memory, and a program counter.
type VM struct {
	X  [32]uint32
	PC uint32
	M  []byte
}

// New returns a VM with memSize bytes of memory, loaded with code.
func New(code []byte, memSize int) *VM {
	m := make([]byte, memSize)
	copy(m, code)
	return &VM{M: m}
}

func (vm *VM) read32(addr uint32) (uint32, error) {
	if int(addr)+4 > len(vm.M) {
		return 0, ErrSIGSEGV
	}
	return binary.LittleEndian.Uint32(vm.M[addr:]), nil
}

func (vm *VM) read16(addr uint32) (uint16, error) {
	if int(addr)+2 > len(vm.M) {
		return 0, ErrSIGSEGV
	}
	return binary.LittleEndian.Uint16(vm.M[addr:]), nil
}

func (vm *VM) write32(addr, val uint32) error {
	if int(addr)+4 > len(vm.M) {
		return ErrSIGSEGV
	}
	binary.LittleEndian.PutUint32(vm.M[addr:], val)
	return nil
}

func (vm *VM) write16(addr uint32, val uint16) error {
	if int(addr)+2 > len(vm.M) {
		return ErrSIGSEGV
	}
	binary.LittleEndian.PutUint16(vm.M[addr:], val)
	return nil
}

func (vm *VM) write8(addr uint32, val uint8) error {
	if int(addr)+1 > len(vm.M) {
		return ErrSIGSEGV
	}
	vm.M[addr] = val
	return nil
}

func (vm *VM) reg(i uint32) uint32 {
	if i == 0 {
		return 0
	}
	return vm.X[i]
}

func (vm *VM) setReg(i uint32, v uint32) {
	if i != 0 {
		vm.X[i] = v
	}
}

func signExtend(v uint32, bits int) int32 {
	shift := 32 - uint(bits)
	return int32(v<<shift) >> shift
}

// Run executes instructions starting at the current PC until Ecall,
// Ebreak, or maxSteps is reached. It returns ErrHalted on a normal halt.
func (vm *VM) Run(maxSteps int) error {
	for i := 0; i < maxSteps; i++ {
		if err := vm.Step(); err != nil {
			return err
		}
	}
	return fmt.Errorf("rvsim: exceeded %d steps without halting", maxSteps)
}

// Step decodes and executes a single instruction at the current PC.
func (vm *VM) Step() error {
	lo, err := vm.read16(vm.PC)
	if err != nil {
		return err
	}
	if lo&0b11 == 0b11 {
		word, err := vm.read32(vm.PC)
		if err != nil {
			return err
		}
		return vm.exec32(word)
	}
	return vm.exec16(lo)
}

func bits(v uint32, hi, lo int) uint32 {
	return (v >> uint(lo)) & ((1 << uint(hi-lo+1)) - 1)
}

func (vm *VM) exec32(w uint32) error {
	opcode := bits(w, 6, 0)
	rd := bits(w, 11, 7)
	funct3 := bits(w, 14, 12)
	rs1 := bits(w, 19, 15)
	rs2 := bits(w, 24, 20)
	funct7 := bits(w, 31, 25)
	next := vm.PC + 4

	switch opcode {
	case 0b0110111: // LUI
		vm.setReg(rd, w&0xfffff000)
	case 0b0010111: // AUIPC
		vm.setReg(rd, vm.PC+(w&0xfffff000))
	case 0b1101111: // JAL
		imm := bits(w, 31, 31)<<20 | bits(w, 19, 12)<<12 | bits(w, 20, 20)<<11 | bits(w, 30, 21)<<1
		target := uint32(int32(vm.PC) + signExtend(imm, 21))
		vm.setReg(rd, next)
		next = target
	case 0b1100111: // JALR
		imm := signExtend(bits(w, 31, 20), 12)
		target := uint32(int32(vm.reg(rs1))+imm) &^ 1
		vm.setReg(rd, next)
		next = target
	case 0b1100011: // branches
		imm := bits(w, 31, 31)<<12 | bits(w, 7, 7)<<11 | bits(w, 30, 25)<<5 | bits(w, 11, 8)<<1
		rel := signExtend(imm, 13)
		a, b := vm.reg(rs1), vm.reg(rs2)
		taken := false
		switch funct3 {
		case 0b000:
			taken = a == b
		case 0b001:
			taken = a != b
		case 0b100:
			taken = int32(a) < int32(b)
		case 0b101:
			taken = int32(a) >= int32(b)
		case 0b110:
			taken = a < b
		case 0b111:
			taken = a >= b
		default:
			return fmt.Errorf("%w: branch funct3=%03b", ErrBadInstruction, funct3)
		}
		if taken {
			next = uint32(int32(vm.PC) + rel)
		}
	case 0b0000011: // loads
		imm := signExtend(bits(w, 31, 20), 12)
		addr := uint32(int32(vm.reg(rs1)) + imm)
		switch funct3 {
		case 0b000:
			v, err := vm.read32(addr &^ 3)
			if err != nil {
				return err
			}
			shift := (addr & 3) * 8
			vm.setReg(rd, uint32(signExtend((v>>shift)&0xff, 8)))
		case 0b001:
			v, err := vm.read16(addr &^ 1)
			if err != nil {
				return err
			}
			vm.setReg(rd, uint32(signExtend(uint32(v), 16)))
		case 0b010:
			v, err := vm.read32(addr)
			if err != nil {
				return err
			}
			vm.setReg(rd, v)
		case 0b100:
			v, err := vm.read32(addr &^ 3)
			if err != nil {
				return err
			}
			shift := (addr & 3) * 8
			vm.setReg(rd, (v>>shift)&0xff)
		case 0b101:
			v, err := vm.read16(addr &^ 1)
			if err != nil {
				return err
			}
			vm.setReg(rd, uint32(v))
		default:
			return fmt.Errorf("%w: load funct3=%03b", ErrBadInstruction, funct3)
		}
	case 0b0100011: // stores
		imm := signExtend(bits(w, 31, 25)<<5|bits(w, 11, 7), 12)
		addr := uint32(int32(vm.reg(rs1)) + imm)
		v := vm.reg(rs2)
		switch funct3 {
		case 0b000:
			if err := vm.write8(addr, uint8(v)); err != nil {
				return err
			}
		case 0b001:
			if err := vm.write16(addr, uint16(v)); err != nil {
				return err
			}
		case 0b010:
			if err := vm.write32(addr, v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: store funct3=%03b", ErrBadInstruction, funct3)
		}
	case 0b0010011: // immediate arithmetic
		imm := signExtend(bits(w, 31, 20), 12)
		a := vm.reg(rs1)
		switch funct3 {
		case 0b000:
			vm.setReg(rd, uint32(int32(a)+imm))
		case 0b010:
			vm.setReg(rd, boolToU32(int32(a) < imm))
		case 0b011:
			vm.setReg(rd, boolToU32(a < uint32(imm)))
		case 0b100:
			vm.setReg(rd, a^uint32(imm))
		case 0b110:
			vm.setReg(rd, a|uint32(imm))
		case 0b111:
			vm.setReg(rd, a&uint32(imm))
		case 0b001:
			vm.setReg(rd, a<<bits(w, 24, 20))
		case 0b101:
			if funct7 == 0b0100000 {
				vm.setReg(rd, uint32(int32(a)>>bits(w, 24, 20)))
			} else {
				vm.setReg(rd, a>>bits(w, 24, 20))
			}
		default:
			return fmt.Errorf("%w: imm-op funct3=%03b", ErrBadInstruction, funct3)
		}
	case 0b0110011: // register arithmetic / M extension
		a, b := vm.reg(rs1), vm.reg(rs2)
		if funct7 == 0b0000001 {
			vm.setReg(rd, vm.execMulDiv(funct3, a, b))
			break
		}
		switch funct3 {
		case 0b000:
			if funct7 == 0b0100000 {
				vm.setReg(rd, a-b)
			} else {
				vm.setReg(rd, a+b)
			}
		case 0b001:
			vm.setReg(rd, a<<(b&31))
		case 0b010:
			vm.setReg(rd, boolToU32(int32(a) < int32(b)))
		case 0b011:
			vm.setReg(rd, boolToU32(a < b))
		case 0b100:
			vm.setReg(rd, a^b)
		case 0b101:
			if funct7 == 0b0100000 {
				vm.setReg(rd, uint32(int32(a)>>(b&31)))
			} else {
				vm.setReg(rd, a>>(b&31))
			}
		case 0b110:
			vm.setReg(rd, a|b)
		case 0b111:
			vm.setReg(rd, a&b)
		default:
			return fmt.Errorf("%w: reg-op funct3=%03b", ErrBadInstruction, funct3)
		}
	case 0b0101111: // A extension (RV32A, single-hart: always succeeds)
		funct5 := bits(w, 31, 27)
		addr := vm.reg(rs1)
		old, err := vm.read32(addr)
		if err != nil {
			return err
		}
		rhs := vm.reg(rs2)
		var result uint32
		switch funct5 {
		case 0b00010: // LR.W
			vm.setReg(rd, old)
		case 0b00011: // SC.W
			if err := vm.write32(addr, rhs); err != nil {
				return err
			}
			vm.setReg(rd, 0)
		case 0b00001:
			result = rhs
		case 0b00000:
			result = old + rhs
		case 0b00100:
			result = old ^ rhs
		case 0b01100:
			result = old & rhs
		case 0b01000:
			result = old | rhs
		case 0b10000:
			result = uint32(minInt32(int32(old), int32(rhs)))
		case 0b10100:
			result = uint32(maxInt32(int32(old), int32(rhs)))
		case 0b11000:
			if old < rhs {
				result = old
			} else {
				result = rhs
			}
		case 0b11100:
			if old > rhs {
				result = old
			} else {
				result = rhs
			}
		default:
			return fmt.Errorf("%w: amo funct5=%05b", ErrBadInstruction, funct5)
		}
		if funct5 != 0b00010 && funct5 != 0b00011 {
			if err := vm.write32(addr, result); err != nil {
				return err
			}
			vm.setReg(rd, old)
		}
	case 0b1110011: // ECALL/EBREAK
		vm.PC = next
		return ErrHalted
	default:
		return fmt.Errorf("%w: opcode=%07b", ErrBadInstruction, opcode)
	}
	vm.PC = next
	return nil
}

func (vm *VM) execMulDiv(funct3 uint32, a, b uint32) uint32 {
	switch funct3 {
	case 0b000:
		return a * b
	case 0b001:
		return uint32((int64(int32(a)) * int64(int32(b))) >> 32)
	case 0b010:
		return uint32((int64(int32(a)) * int64(uint32(b))) >> 32)
	case 0b011:
		return uint32((uint64(a) * uint64(b)) >> 32)
	case 0b100:
		if b == 0 {
			return 0xffffffff
		}
		return uint32(int32(a) / int32(b))
	case 0b101:
		if b == 0 {
			return 0xffffffff
		}
		return a / b
	case 0b110:
		if b == 0 {
			return a
		}
		return uint32(int32(a) % int32(b))
	case 0b111:
		if b == 0 {
			return a
		}
		return a % b
	}
	return 0
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func minInt32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func maxInt32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// exec16 decodes and executes this subset of the compressed forms that
// pkg/asm's encoders emit: C.ADDI/C.LI/C.NOP, C.MV/C.ADD, C.LUI,
// C.SUB/C.XOR/C.OR/C.AND, C.LW/C.SW (register and sp-relative forms),
// C.J/C.JAL, C.JR/C.JALR, C.BEQZ/C.BNEZ, and C.SLLI.
func (vm *VM) exec16(h uint16) error {
	op := h & 0b11
	funct3 := (h >> 13) & 0b111
	next := vm.PC + 2

	switch op {
	case 0b01:
		switch funct3 {
		case 0b000: // C.ADDI / C.NOP
			rd := (h >> 7) & 0x1f
			imm := cImm6(h)
			vm.setReg(uint32(rd), uint32(int32(vm.reg(uint32(rd)))+imm))
		case 0b010: // C.LI
			rd := (h >> 7) & 0x1f
			imm := cImm6(h)
			vm.setReg(uint32(rd), uint32(imm))
		case 0b011: // C.LUI
			rd := (h >> 7) & 0x1f
			imm := cImm6(h)
			vm.setReg(uint32(rd), uint32(imm)<<12)
		case 0b100: // C.SUB/C.XOR/C.OR/C.AND (CA-format)
			if (h>>10)&0b11 != 0b11 || (h>>12)&1 != 0 {
				return ErrBadInstruction // C.SRLI/C.SRAI/C.ANDI are not decoded
			}
			rdp := 8 + (h>>7)&0b111
			rs2p := 8 + (h>>2)&0b111
			funct2 := (h >> 5) & 0b11
			a, b := vm.reg(uint32(rdp)), vm.reg(uint32(rs2p))
			var r uint32
			switch funct2 {
			case 0b00:
				r = a - b
			case 0b01:
				r = a ^ b
			case 0b10:
				r = a | b
			case 0b11:
				r = a & b
			}
			vm.setReg(uint32(rdp), r)
		case 0b101: // C.J
			imm := cJumpImm(h)
			next = uint32(int32(vm.PC) + imm)
		case 0b001: // C.JAL
			imm := cJumpImm(h)
			vm.setReg(1, vm.PC+2)
			next = uint32(int32(vm.PC) + imm)
		case 0b110: // C.BEQZ
			rs1p := 8 + (h>>7)&0b111
			imm := cBranchImm(h)
			if vm.reg(uint32(rs1p)) == 0 {
				next = uint32(int32(vm.PC) + imm)
			}
		case 0b111: // C.BNEZ
			rs1p := 8 + (h>>7)&0b111
			imm := cBranchImm(h)
			if vm.reg(uint32(rs1p)) != 0 {
				next = uint32(int32(vm.PC) + imm)
			}
		default:
			return fmt.Errorf("%w: compressed quadrant1 funct3=%03b", ErrBadInstruction, funct3)
		}
	case 0b10:
		switch funct3 {
		case 0b000: // C.SLLI
			rd := (h >> 7) & 0x1f
			shamt := uint32((h>>2)&0x1f) | uint32((h>>12)&1)<<5
			vm.setReg(uint32(rd), vm.reg(uint32(rd))<<shamt)
		case 0b010: // C.LWSP
			rd := (h >> 7) & 0x1f
			imm := uint32((h>>4)&0b111)<<2 | uint32((h>>12)&1)<<5 | uint32((h>>2)&0b11)<<6
			v, err := vm.read32(vm.reg(2) + imm)
			if err != nil {
				return err
			}
			vm.setReg(uint32(rd), v)
		case 0b100:
			rd := (h >> 7) & 0x1f
			rs2 := (h >> 2) & 0x1f
			if (h>>12)&1 == 0 {
				if rs2 == 0 { // C.JR
					next = vm.reg(uint32(rd)) &^ 1
				} else { // C.MV
					vm.setReg(uint32(rd), vm.reg(uint32(rs2)))
				}
			} else {
				if rs2 == 0 { // C.JALR / C.EBREAK
					if rd == 0 {
						vm.PC = next
						return ErrHalted
					}
					target := vm.reg(uint32(rd)) &^ 1
					vm.setReg(1, next)
					next = target
				} else { // C.ADD
					vm.setReg(uint32(rd), vm.reg(uint32(rd))+vm.reg(uint32(rs2)))
				}
			}
		case 0b110: // C.SWSP
			rs2 := (h >> 2) & 0x1f
			imm := uint32((h>>9)&0b1111)<<2 | uint32((h>>7)&0b11)<<6
			if err := vm.write32(vm.reg(2)+imm, vm.reg(uint32(rs2))); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: compressed quadrant2 funct3=%03b", ErrBadInstruction, funct3)
		}
	case 0b00:
		switch funct3 {
		case 0b010: // C.LW
			rdp := 8 + (h>>2)&0b111
			rs1p := 8 + (h>>7)&0b111
			imm := uint32((h>>10)&0b111)<<3 | uint32((h>>6)&1)<<2 | uint32((h>>5)&1)<<6
			v, err := vm.read32(vm.reg(uint32(rs1p)) + imm)
			if err != nil {
				return err
			}
			vm.setReg(uint32(rdp), v)
		case 0b110: // C.SW
			rs2p := 8 + (h>>2)&0b111
			rs1p := 8 + (h>>7)&0b111
			imm := uint32((h>>10)&0b111)<<3 | uint32((h>>6)&1)<<2 | uint32((h>>5)&1)<<6
			if err := vm.write32(vm.reg(uint32(rs1p))+imm, vm.reg(uint32(rs2p))); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: compressed quadrant0 funct3=%03b", ErrBadInstruction, funct3)
		}
	}
	vm.PC = next
	return nil
}

func cImm6(h uint16) int32 {
	v := uint32((h>>2)&0x1f) | uint32((h>>12)&1)<<5
	return signExtend(v, 6)
}

func cJumpImm(h uint16) int32 {
	v := uint32((h>>3)&0b111)<<1 | uint32((h>>11)&1)<<4 | uint32((h>>2)&1)<<5 |
		uint32((h>>7)&1)<<6 | uint32((h>>6)&1)<<7 | uint32((h>>9)&0b11)<<8 |
		uint32((h>>8)&1)<<10 | uint32((h>>12)&1)<<11
	return signExtend(v, 12)
}

func cBranchImm(h uint16) int32 {
	v := uint32((h>>3)&0b11)<<1 | uint32((h>>10)&0b11)<<3 | uint32((h>>2)&1)<<5 |
		uint32((h>>5)&0b11)<<6 | uint32((h>>12)&1)<<8
	return signExtend(v, 9)
}
