package m6502

import (
	"strings"
	"sync"

	m6502 "github.com/retroenv/retrogolib/arch/cpu/cpu6502"
	"github.com/retroenv/retrolift/internal/decoder"
	"github.com/retroenv/retrolift/internal/instruction"
)

// rootTable returns the opcode table, generated on first use.
var rootTable = sync.OnceValue(func() *decoder.Dispatch {
	b := &decoder.Builder{}
	b.RangeFunc(0x00, 0xff, func(op byte) decoder.Node {
		return terminal(m6502.Opcodes[op])
	})
	return b.Build()
})

// terminal returns the decoder node of an opcode. Opcodes without an
// instruction and addressing modes without a reader are invalid.
func terminal(opcode m6502.Opcode) decoder.Node {
	if opcode.Instruction == nil {
		return decoder.Invalid()
	}
	reader, ok := paramReader[opcode.Addressing]
	if !ok {
		return decoder.Invalid()
	}

	name := opcode.Instruction.Name
	if opcode.Addressing == m6502.AbsoluteAddressing && (name == m6502.JmpInst.Name || name == m6502.JsrInst.Name) {
		reader = targetReader
	}
	mnemonic := instruction.Mnemonic(strings.ToLower(name))
	return decoder.Instr(mnemonic, class(opcode), reader)
}

// class returns the control flow class of an opcode.
func class(opcode m6502.Opcode) instruction.Class {
	name := opcode.Instruction.Name
	switch {
	case name == m6502.JsrInst.Name:
		return instruction.Transfer | instruction.Call
	case opcode.Addressing == m6502.RelativeAddressing:
		return instruction.Transfer | instruction.Conditional
	}

	switch strings.ToLower(name) {
	case "rts", "rti":
		return instruction.Transfer | instruction.Return
	}
	if _, ok := m6502.NotExecutingFollowingOpcodeInstructions[name]; ok {
		return instruction.Transfer
	}
	return instruction.Linear
}
