package chip8

import (
	"strings"
	"sync"

	"github.com/retroenv/retrogolib/arch/cpu/chip8"
	"github.com/retroenv/retrolift/internal/decoder"
	"github.com/retroenv/retrolift/internal/instruction"
)

const (
	linear   = instruction.Linear
	transfer = instruction.Transfer
	call     = instruction.Transfer | instruction.Call
	ret      = instruction.Transfer | instruction.Return
	skip     = instruction.Transfer | instruction.Conditional
)

// rootTable returns the root of the opcode map, generated on first use.
var rootTable = sync.OnceValue(buildRoot)

func buildRoot() *decoder.Dispatch {
	tables := map[byte]*decoder.Dispatch{}
	b := &decoder.Builder{}
	for first := range 256 {
		key := byte(first) & 0xf0
		if dependsOnRegisterNibble(first >> 4) {
			key = byte(first)
		}
		table, ok := tables[key]
		if !ok {
			table = buildSecondTable(byte(first))
			tables[key] = table
		}
		b.Set(byte(first), &decoder.Continuation{Table: table})
	}
	return b.Build()
}

// dependsOnRegisterNibble returns whether an opcode of the group selected by
// the high nibble of the first byte matches on the low nibble too.
func dependsOnRegisterNibble(group int) bool {
	for _, op := range chip8.Opcodes[group] {
		if op.Info.Mask&0x0f00 != 0 {
			return true
		}
	}
	return false
}

// buildSecondTable returns the table of the second byte for instructions
// starting with first.
func buildSecondTable(first byte) *decoder.Dispatch {
	b := &decoder.Builder{}
	for second := range 256 {
		word := uint16(first)<<8 | uint16(second)
		b.Set(byte(second), terminal(word))
	}
	return b.Build()
}

// lookup returns the opcode that matches an instruction word.
func lookup(word uint16) (chip8.Opcode, bool) {
	for _, op := range chip8.Opcodes[int(word>>12)] {
		if op.Info.Mask&word == op.Info.Value && op.Instruction != nil {
			return op, true
		}
	}
	return chip8.Opcode{}, false
}

// terminal returns the decoder node of an instruction word. Unknown words
// are invalid.
func terminal(word uint16) decoder.Node {
	op, ok := lookup(word)
	if !ok {
		return decoder.Invalid()
	}
	mutators, class, ok := layout(word)
	if !ok {
		return decoder.Invalid()
	}
	mnemonic := instruction.Mnemonic(strings.ToLower(op.Instruction.Name))
	return decoder.Instr(mnemonic, class, mutators...)
}

// layout returns the operand mutators and the class of an instruction word.
func layout(word uint16) ([]decoder.Mutator, instruction.Class, bool) {
	switch word >> 12 {
	case 0x0:
		switch word {
		case 0x00e0:
			return nil, linear, true
		case 0x00ee:
			return nil, ret, true
		}
		return []decoder.Mutator{address}, linear | instruction.Privileged, true
	case 0x1:
		return []decoder.Mutator{target}, transfer, true
	case 0x2:
		return []decoder.Mutator{target}, call, true
	case 0x3, 0x4:
		return []decoder.Mutator{vx, kk}, skip, true
	case 0x5, 0x9:
		return []decoder.Mutator{vx, vy}, skip, true
	case 0x6, 0x7, 0xc:
		return []decoder.Mutator{vx, kk}, linear, true
	case 0x8:
		if n := word & 0xf; n == 0x6 || n == 0xe {
			return []decoder.Mutator{vx}, linear, true
		}
		return []decoder.Mutator{vx, vy}, linear, true
	case 0xa:
		return []decoder.Mutator{fixed(I), address}, linear, true
	case 0xb:
		return []decoder.Mutator{fixed(vRegisters[0]), target}, transfer, true
	case 0xd:
		return []decoder.Mutator{vx, vy, nibble}, linear, true
	case 0xe:
		return []decoder.Mutator{vx}, skip, true
	}

	switch word & 0xff {
	case 0x07:
		return []decoder.Mutator{vx, fixed(DT)}, linear, true
	case 0x0a:
		return []decoder.Mutator{vx, fixed(keypad)}, linear, true
	case 0x15:
		return []decoder.Mutator{fixed(DT), vx}, linear, true
	case 0x18:
		return []decoder.Mutator{fixed(ST), vx}, linear, true
	case 0x1e:
		return []decoder.Mutator{fixed(I), vx}, linear, true
	case 0x29:
		return []decoder.Mutator{fixed(font), vx}, linear, true
	case 0x33:
		return []decoder.Mutator{fixed(bcd), vx}, linear, true
	case 0x55:
		return []decoder.Mutator{indirectI, vx}, linear, true
	case 0x65:
		return []decoder.Mutator{vx, indirectI}, linear, true
	}
	return nil, 0, false
}

// firstByte returns the first instruction byte, the mutators run on the
// second one.
func firstByte(s *decoder.State) byte {
	return s.Consumed()[0]
}

func nnn(op byte, s *decoder.State) uint64 {
	return uint64(firstByte(s)&0xf)<<8 | uint64(op)
}

func vx(_ byte, s *decoder.State) bool {
	s.Add(instruction.NewRegister(vRegisters[firstByte(s)&0xf]))
	return true
}

func vy(op byte, s *decoder.State) bool {
	s.Add(instruction.NewRegister(vRegisters[op>>4]))
	return true
}

func kk(op byte, s *decoder.State) bool {
	s.Add(instruction.NewImmediate(uint64(op), instruction.Byte))
	return true
}

func nibble(op byte, s *decoder.State) bool {
	s.Add(instruction.NewImmediate(uint64(op&0xf), instruction.Byte))
	return true
}

func target(op byte, s *decoder.State) bool {
	s.Add(instruction.NewAddress(nnn(op, s), instruction.Word16))
	return true
}

func address(op byte, s *decoder.State) bool {
	s.Add(instruction.NewImmediate(nnn(op, s), instruction.Word16))
	return true
}

func fixed(r instruction.Register) decoder.Mutator {
	return func(_ byte, s *decoder.State) bool {
		s.Add(instruction.NewRegister(r))
		return true
	}
}

func indirectI(_ byte, s *decoder.State) bool {
	base := I
	s.Add(&instruction.Memory{Mode: instruction.Indirect, Base: &base, DataWidth: instruction.Byte})
	return true
}
