package chip8

import (
	"encoding/binary"
	"fmt"

	"github.com/retroenv/retrolift/internal/cursor"
	"github.com/retroenv/retrolift/internal/decoder"
	"github.com/retroenv/retrolift/internal/instruction"
	"github.com/retroenv/retrolift/internal/rtl"
)

// Name is the architecture name used on the command line.
const Name = "chip8"

// CHIP-8 memory layout constants.
const (
	// ProgramStart is the memory address where CHIP-8 programs begin execution.
	// Programs are loaded at address 0x200 in the virtual machine's memory space,
	// but stored starting at offset 0x0 in ROM files.
	ProgramStart = 0x200

	// MaxAddress is the highest valid address in CHIP-8 memory space (4KB total).
	MaxAddress = 0xFFF
)

// opcodeSize is the size of CHIP-8 instructions in bytes.
const opcodeSize = 2

// Registers.
var (
	vRegisters = func() [16]instruction.Register {
		var regs [16]instruction.Register
		for i := range regs {
			regs[i] = instruction.Register{Name: fmt.Sprintf("V%X", i), Number: i, Width: instruction.Byte}
		}
		return regs
	}()

	I  = instruction.Register{Name: "I", Number: 16, Width: instruction.Word16}
	DT = instruction.Register{Name: "DT", Number: 17, Width: instruction.Byte}
	ST = instruction.Register{Name: "ST", Number: 18, Width: instruction.Byte}
	VF = vRegisters[0xf]

	// pseudo registers of the ld forms that access the keypad, the font
	// and the BCD conversion
	keypad = instruction.Register{Name: "K", Number: 19, Width: instruction.Byte}
	font   = instruction.Register{Name: "F", Number: 20, Width: instruction.Byte}
	bcd    = instruction.Register{Name: "B", Number: 21, Width: instruction.Byte}
)

// Arch is the CHIP-8 backend.
type Arch struct {
	engine *decoder.Engine
}

// New returns the CHIP-8 backend.
func New() *Arch {
	return &Arch{engine: decoder.New(rootTable())}
}

// Name returns the architecture name.
func (a *Arch) Name() string {
	return Name
}

// ByteOrder returns big endian.
func (a *Arch) ByteOrder() binary.ByteOrder {
	return binary.BigEndian
}

// PointerWidth returns the width of the I register and the program counter.
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

// Registers returns all registers, pseudo registers excluded.
func (a *Arch) Registers() []instruction.Register {
	regs := make([]instruction.Register, 0, len(vRegisters)+3)
	regs = append(regs, vRegisters[:]...)
	return append(regs, I, DT, ST)
}

// Root returns the root opcode table.
func (a *Arch) Root() *decoder.Dispatch {
	return rootTable()
}
