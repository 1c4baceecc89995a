// Package m6502 provides the MOS 6502 backend. The opcode table is generated
// from the retrogolib 6502 opcode data, one terminal per opcode byte with
// operand readers selected by the addressing mode.
package m6502

import (
	"encoding/binary"

	"github.com/retroenv/retrolift/internal/cursor"
	"github.com/retroenv/retrolift/internal/decoder"
	"github.com/retroenv/retrolift/internal/instruction"
	"github.com/retroenv/retrolift/internal/rtl"
)

// Name is the architecture name used on the command line.
const Name = "6502"

// Registers.
var (
	A = instruction.Register{Name: "a", Number: 0, Width: instruction.Byte}
	X = instruction.Register{Name: "x", Number: 1, Width: instruction.Byte}
	Y = instruction.Register{Name: "y", Number: 2, Width: instruction.Byte}
	S = instruction.Register{Name: "s", Number: 3, Width: instruction.Byte}
	P = instruction.Register{Name: "p", Number: 4, Width: instruction.Byte}
)

// Flag bits of the P register.
const (
	FlagC uint32 = 1 << 0
	FlagZ uint32 = 1 << 1
	FlagI uint32 = 1 << 2
	FlagD uint32 = 1 << 3
	FlagV uint32 = 1 << 6
	FlagN uint32 = 1 << 7
)

// stackPage is the address of the hardware stack page.
const stackPage = 0x0100

// Arch is the 6502 backend.
type Arch struct {
	engine *decoder.Engine
}

// New returns the 6502 backend.
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

// PointerWidth returns the 16 bit address width.
func (a *Arch) PointerWidth() instruction.Width {
	return instruction.Word16
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
	return []instruction.Register{A, X, Y, S, P}
}

// Root returns the root opcode table.
func (a *Arch) Root() *decoder.Dispatch {
	return rootTable()
}
