// Copyright 2025, Adeline Murphy

package cpu

import (
	"fmt"
)

// Opcode is the operation selected by the top four bits of an instruction.
type Opcode int

//go:generate go tool stringer -linecomment -type=Opcode
const (
	OP_CMOV  = Opcode(0)  // cmov
	OP_LOAD  = Opcode(1)  // load
	OP_STORE = Opcode(2)  // store
	OP_ADD   = Opcode(3)  // add
	OP_MUL   = Opcode(4)  // mul
	OP_DIV   = Opcode(5)  // div
	OP_NAND  = Opcode(6)  // nand
	OP_HALT  = Opcode(7)  // halt
	OP_MAP   = Opcode(8)  // map
	OP_UNMAP = Opcode(9)  // unmap
	OP_OUT   = Opcode(10) // out
	OP_IN    = Opcode(11) // in
	OP_LOADP = Opcode(12) // loadp
	OP_LOADV = Opcode(13) // loadv
)

// OPCODE_COUNT is the number of assigned opcodes. 14 and 15 are unassigned.
const OPCODE_COUNT = 14

// Valid returns true if the opcode is assigned.
func (op Opcode) Valid() bool {
	return op >= 0 && op < OPCODE_COUNT
}

// Field is a bit field of an instruction word.
type Field struct {
	Width uint32 // Width in bits.
	Lsb   uint32 // Least significant bit.
}

var (
	FIELD_OPCODE      = Field{Width: 4, Lsb: 28}
	FIELD_A           = Field{Width: 3, Lsb: 6}
	FIELD_B           = Field{Width: 3, Lsb: 3}
	FIELD_C           = Field{Width: 3, Lsb: 0}
	FIELD_LOADV_A     = Field{Width: 3, Lsb: 25}
	FIELD_LOADV_VALUE = Field{Width: 25, Lsb: 0}
)

// VALUE_MAX is the largest immediate a loadv can carry.
const VALUE_MAX = (1 << 25) - 1

// Extract returns `width` bits of `word` starting at `lsb`.
func Extract(word uint32, width uint32, lsb uint32) uint32 {
	if lsb >= 32 {
		return 0
	}
	mask := uint32((uint64(1) << width) - 1)
	return (word >> lsb) & mask
}

// Mask returns the unshifted mask of the field.
func (field Field) Mask() uint32 {
	return uint32((uint64(1) << field.Width) - 1)
}

// Get extracts the field from an instruction word.
func (field Field) Get(word uint32) uint32 {
	return Extract(word, field.Width, field.Lsb)
}

// Put replaces the field in an instruction word with value.
func (field Field) Put(word uint32, value uint32) uint32 {
	mask := field.Mask()
	word &= ^(mask << field.Lsb)
	return word | ((value & mask) << field.Lsb)
}

// Code is a single 32-bit instruction word.
type Code uint32

// MakeCode creates a three register instruction.
func MakeCode(op Opcode, a, b, c int) Code {
	var word uint32
	word = FIELD_OPCODE.Put(word, uint32(op))
	word = FIELD_A.Put(word, uint32(a))
	word = FIELD_B.Put(word, uint32(b))
	word = FIELD_C.Put(word, uint32(c))
	return Code(word)
}

// MakeCodeLoadv creates an immediate load instruction.
func MakeCodeLoadv(a int, value uint32) Code {
	var word uint32
	word = FIELD_OPCODE.Put(word, uint32(OP_LOADV))
	word = FIELD_LOADV_A.Put(word, uint32(a))
	word = FIELD_LOADV_VALUE.Put(word, value)
	return Code(word)
}

// Opcode returns the opcode of the instruction. It may be unassigned.
func (code Code) Opcode() Opcode {
	return Opcode(FIELD_OPCODE.Get(uint32(code)))
}

// Abc decodes the three register indexes.
func (code Code) Abc() (a, b, c int) {
	word := uint32(code)
	a = int(FIELD_A.Get(word))
	b = int(FIELD_B.Get(word))
	c = int(FIELD_C.Get(word))
	return
}

// LoadvDecode decodes the destination register and immediate value.
func (code Code) LoadvDecode() (a int, value uint32) {
	word := uint32(code)
	a = int(FIELD_LOADV_A.Get(word))
	value = FIELD_LOADV_VALUE.Get(word)
	return
}

// String returns the assembly language representation of this instruction.
func (code Code) String() (out string) {
	op := code.Opcode()
	a, b, c := code.Abc()

	switch op {
	case OP_CMOV, OP_LOAD, OP_STORE, OP_ADD, OP_MUL, OP_DIV, OP_NAND:
		out = fmt.Sprintf("%v r%d r%d r%d", op, a, b, c)
	case OP_HALT:
		out = op.String()
	case OP_MAP, OP_LOADP:
		out = fmt.Sprintf("%v r%d r%d", op, b, c)
	case OP_UNMAP, OP_OUT, OP_IN:
		out = fmt.Sprintf("%v r%d", op, c)
	case OP_LOADV:
		a, value := code.LoadvDecode()
		out = fmt.Sprintf("%v r%d 0x%x", op, a, value)
	default:
		out = fmt.Sprintf(".word 0x%08x", uint32(code))
	}

	return
}
