// Package vax implements the DEC VAX backend for the integer instruction
// set.
//
// Every operand is encoded as an operand specifier. The high nibble of the
// specifier byte selects the addressing mode, the low nibble the register.
// Operands using the program counter as register turn into immediates,
// absolute addresses and PC relative addresses.
package vax

import (
	"encoding/binary"
	"fmt"

	"github.com/retroenv/retrolift/internal/cursor"
	"github.com/retroenv/retrolift/internal/decoder"
	"github.com/retroenv/retrolift/internal/instruction"
	"github.com/retroenv/retrolift/internal/rtl"
)

// Name is the architecture name used on the command line.
const Name = "vax"

// registers are the general registers r0 to r15. The last four have the
// names of their dedicated function.
var registers = func() [16]instruction.Register {
	var regs [16]instruction.Register
	for i := range regs {
		regs[i] = instruction.Register{Name: fmt.Sprintf("r%d", i), Number: i, Width: instruction.Word32}
	}
	for i, name := range []string{"ap", "fp", "sp", "pc"} {
		regs[12+i].Name = name
	}
	return regs
}()

// Dedicated registers.
var (
	AP  = registers[12]
	FP  = registers[13]
	SP  = registers[14]
	PC  = registers[15]
	PSW = instruction.Register{Name: "psw", Number: 16, Width: instruction.Word32}
)

// Condition code bits of the PSW.
const (
	FlagC uint32 = 1 << 0
	FlagV uint32 = 1 << 1
	FlagZ uint32 = 1 << 2
	FlagN uint32 = 1 << 3
)

// Reg returns the general register with the given number.
func Reg(n int) (instruction.Register, bool) {
	if n < 0 || n >= len(registers) {
		return instruction.Register{}, false
	}
	return registers[n], true
}

// Arch is the VAX backend.
type Arch struct {
	engine *decoder.Engine
}

// New returns the VAX backend.
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

// PointerWidth returns the 32 bit address width.
func (a *Arch) PointerWidth() instruction.Width {
	return instruction.Word32
}

// Disassemble decodes the instruction at the cursor position.
func (a *Arch) Disassemble(c *cursor.Cursor) (*instruction.Instruction, bool) {
	return a.engine.Next(c)
}

// Rewrite lowers a decoded instruction.
func (a *Arch) Rewrite(instr *instruction.Instruction, binder rtl.Binder) *rtl.Cluster {
	return Rewrite(instr, binder)
}

// Registers returns the general registers and the PSW.
func (a *Arch) Registers() []instruction.Register {
	regs := make([]instruction.Register, 0, len(registers)+1)
	regs = append(regs, registers[:]...)
	return append(regs, PSW)
}

// Root returns the root opcode table.
func (a *Arch) Root() *decoder.Dispatch {
	return rootTable()
}
