package decoder

import (
	"github.com/retroenv/retrolift/internal/cursor"
	"github.com/retroenv/retrolift/internal/instruction"
)

// State is the context of one instruction decode. It is created for each
// call to Engine.Next and never shared between decodes.
type State struct {
	cursor  *cursor.Cursor
	address uint64
	start   int

	operands []instruction.Operand
	width    instruction.Width
	mnemonic instruction.Mnemonic
	class    instruction.Class

	truncated bool
}

// NewState returns a decode state for an instruction starting at the
// current cursor position. Engine.Next creates it, backends only need it for
// decoding outside of an engine, for example in tests of single mutators.
func NewState(c *cursor.Cursor) *State {
	return &State{
		cursor:  c,
		address: c.Address(),
		start:   c.Offset(),
	}
}

// Address returns the address of the first byte of the instruction.
func (s *State) Address() uint64 {
	return s.address
}

// Next returns the address following the bytes consumed so far.
func (s *State) Next() uint64 {
	return s.cursor.Address()
}

// Consumed returns the bytes of the instruction consumed so far.
func (s *State) Consumed() []byte {
	return s.cursor.Slice(s.address, s.cursor.Address())
}

// Length returns the number of bytes consumed so far.
func (s *State) Length() int {
	return s.cursor.Offset() - s.start
}

// Byte reads the next byte.
func (s *State) Byte() (byte, bool) {
	b, ok := s.cursor.TryReadUint8()
	return b, s.check(ok)
}

// Int8 reads the next byte as signed value.
func (s *State) Int8() (int8, bool) {
	v, ok := s.cursor.TryReadInt8()
	return v, s.check(ok)
}

// Uint16 reads a 16 bit value.
func (s *State) Uint16() (uint16, bool) {
	v, ok := s.cursor.TryReadUint16()
	return v, s.check(ok)
}

// Int16 reads a signed 16 bit value.
func (s *State) Int16() (int16, bool) {
	v, ok := s.cursor.TryReadInt16()
	return v, s.check(ok)
}

// Uint32 reads a 32 bit value.
func (s *State) Uint32() (uint32, bool) {
	v, ok := s.cursor.TryReadUint32()
	return v, s.check(ok)
}

// Int32 reads a signed 32 bit value.
func (s *State) Int32() (int32, bool) {
	v, ok := s.cursor.TryReadInt32()
	return v, s.check(ok)
}

// UintN reads an n byte unsigned value.
func (s *State) UintN(n int) (uint64, bool) {
	v, ok := s.cursor.TryReadUintN(n)
	return v, s.check(ok)
}

// Read reads an unsigned value of the given integer width.
func (s *State) Read(w instruction.Width) (uint64, bool) {
	switch w {
	case instruction.Byte, instruction.Word16, instruction.Word32, instruction.Word64:
		return s.UintN(w.Size())
	case instruction.Word128:
		// only the low quadword is kept, the high one is consumed
		lo, ok := s.UintN(8)
		if !ok {
			return 0, false
		}
		_, ok = s.UintN(8)
		return lo, ok
	default:
		return 0, false
	}
}

// ReadSigned reads a value of the given integer width and sign extends it.
func (s *State) ReadSigned(w instruction.Width) (int64, bool) {
	v, ok := s.Read(w)
	if !ok {
		return 0, false
	}
	bits := w.Bits()
	if bits >= 64 {
		return int64(v), true
	}
	shift := 64 - bits
	return int64(v<<shift) >> shift, true
}

func (s *State) check(ok bool) bool {
	if !ok {
		s.truncated = true
	}
	return ok
}

// Width returns the inferred operand width, which may be unset.
func (s *State) Width() instruction.Width {
	return s.width
}

// SetWidth explicitly sets the inferred operand width. The latest explicit
// width wins.
func (s *State) SetWidth(w instruction.Width) {
	if w.IsSet() {
		s.width = w
	}
}

// ResolveWidth returns the width a mutator should use: an explicit width is
// used and becomes the inferred width, an unset width falls back to the
// inferred width. It returns false if neither is known.
func (s *State) ResolveWidth(w instruction.Width) (instruction.Width, bool) {
	if w.IsSet() {
		s.width = w
		return w, true
	}
	return s.width, s.width.IsSet()
}

// Add appends an operand.
func (s *State) Add(op instruction.Operand) {
	s.operands = append(s.operands, op)
}

// Operands returns the operands decoded so far.
func (s *State) Operands() []instruction.Operand {
	return s.operands
}

// Operand returns the operand at index or nil.
func (s *State) Operand(index int) instruction.Operand {
	if index < 0 || index >= len(s.operands) {
		return nil
	}
	return s.operands[index]
}

// Reverse reverses the operand order.
func (s *State) Reverse() {
	for i, j := 0, len(s.operands)-1; i < j; i, j = i+1, j-1 {
		s.operands[i], s.operands[j] = s.operands[j], s.operands[i]
	}
}

// Clear removes all operands.
func (s *State) Clear() {
	s.operands = s.operands[:0]
}

// Mnemonic returns the mnemonic chosen by the terminal node.
func (s *State) Mnemonic() instruction.Mnemonic {
	return s.mnemonic
}

// Rename replaces the mnemonic chosen by the terminal node, for encodings
// whose mnemonic depends on decoded state like the operand width.
func (s *State) Rename(m instruction.Mnemonic) {
	s.mnemonic = m
}

// Class returns the instruction class chosen by the terminal node.
func (s *State) Class() instruction.Class {
	return s.class
}

// SetClass replaces the instruction class.
func (s *State) SetClass(c instruction.Class) {
	s.class = c
}

func (s *State) instruction() *instruction.Instruction {
	ops := make([]instruction.Operand, len(s.operands))
	copy(ops, s.operands)
	return &instruction.Instruction{
		Address:  s.address,
		Length:   s.Length(),
		Mnemonic: s.mnemonic,
		Operands: ops,
		Class:    s.class,
	}
}

func (s *State) invalid(reason error) *instruction.Instruction {
	length := s.Length()
	if length == 0 {
		s.cursor.Skip(1)
		length = s.Length()
	}
	return instruction.NewInvalid(s.address, length, reason)
}
