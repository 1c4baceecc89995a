// Package tlcs900 implements the Toshiba TLCS-900/H backend.
//
// The opcode map is a root table whose memory and register prefixes
// continue into second stage tables. The prefix sets the operand width that
// the second byte inherits, the destination prefixes leave the width open
// until the second operand is known.
package tlcs900

import (
	"encoding/binary"

	"github.com/retroenv/retrolift/internal/cursor"
	"github.com/retroenv/retrolift/internal/decoder"
	"github.com/retroenv/retrolift/internal/instruction"
	"github.com/retroenv/retrolift/internal/rtl"
)

// Name is the architecture name used on the command line.
const Name = "tlcs900"

// Arch is the TLCS-900/H backend.
type Arch struct {
	engine *decoder.Engine
}

// New returns the TLCS-900/H backend.
func New() *Arch {
	return &Arch{engine: decoder.New(rootTable())}
}

// Name returns the architecture name.
func (a *Arch) Name() string {
	return Name
}

// ByteOrder returns little endian.
func (a *Arch) ByteOrder() binary.ByteOrder {
	return binary.LittleEndian
}

// PointerWidth returns the 32 bit width of the address registers.
func (a *Arch) PointerWidth() instruction.Width {
	return long32
}

// Disassemble decodes the instruction at the cursor position.
func (a *Arch) Disassemble(c *cursor.Cursor) (*instruction.Instruction, bool) {
	return a.engine.Next(c)
}

// Rewrite lowers a decoded instruction.
func (a *Arch) Rewrite(instr *instruction.Instruction, binder rtl.Binder) *rtl.Cluster {
	return Rewrite(instr, binder)
}

// Registers returns all registers.
func (a *Arch) Registers() []instruction.Register {
	return Registers()
}

// Root returns the root opcode table.
func (a *Arch) Root() *decoder.Dispatch {
	return rootTable()
}
