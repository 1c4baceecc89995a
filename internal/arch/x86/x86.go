// Package x86 implements the Intel x86 backend for the 16, 32 and 64 bit
// processor modes. Decoding is done by golang.org/x/arch/x86/x86asm, this
// package adapts its instructions to the uniform instruction model and
// lowers an integer subset to RTL.
package x86

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/retroenv/retrolift/internal/cursor"
	"github.com/retroenv/retrolift/internal/decoder"
	"github.com/retroenv/retrolift/internal/instruction"
	"github.com/retroenv/retrolift/internal/rtl"
	"golang.org/x/arch/x86/x86asm"
)

// Name is the architecture name prefix used on the command line.
const Name = "x86"

// maxInstructionLength is the longest legal encoding.
const maxInstructionLength = 15

// Arch is the x86 backend for one processor mode.
type Arch struct {
	mode int
}

// New returns the x86 backend for the processor mode of the given bit
// size. Unsupported sizes select the 32 bit mode.
func New(bits int) *Arch {
	switch bits {
	case 16, 32, 64:
	default:
		bits = 32
	}
	return &Arch{mode: bits}
}

// Name returns the architecture name including the processor mode.
func (a *Arch) Name() string {
	return fmt.Sprintf("%s-%d", Name, a.mode)
}

// ByteOrder returns little endian.
func (a *Arch) ByteOrder() binary.ByteOrder {
	return binary.LittleEndian
}

// PointerWidth returns the width of the instruction pointer of the mode.
func (a *Arch) PointerWidth() instruction.Width {
	return modeWidth(a.mode)
}

// Registers returns the general registers of the mode, the instruction
// pointer and the flags register.
func (a *Arch) Registers() []instruction.Register {
	first := familyBase(a.mode)
	count := 8
	if a.mode == 64 {
		count = 16
	}
	regs := make([]instruction.Register, 0, count+2)
	for i := range count {
		regs = append(regs, register(first+x86asm.Reg(i)))
	}
	return append(regs, register(instructionPointer(a.mode)), Flags)
}

// Disassemble decodes the instruction at the cursor position. Bytes that
// x86asm can not decode form an invalid instruction of length 1.
func (a *Arch) Disassemble(c *cursor.Cursor) (*instruction.Instruction, bool) {
	if !c.IsValid() {
		return nil, false
	}
	address := c.Address()
	window := c.Peek(maxInstructionLength)

	inst, err := x86asm.Decode(window, a.mode)
	if err != nil || inst.Op == 0 {
		c.Skip(1)
		return instruction.NewInvalid(address, 1, decodeError(err, len(window))), true
	}

	instr, err := a.convert(inst, address)
	if err != nil {
		c.Skip(1)
		return instruction.NewInvalid(address, 1, err), true
	}
	c.Skip(inst.Len)
	return instr, true
}

// Rewrite lowers a decoded instruction.
func (a *Arch) Rewrite(instr *instruction.Instruction, binder rtl.Binder) *rtl.Cluster {
	e := rtl.NewEmitter(instr, binder, a.PointerWidth())
	if instr.IsInvalid() {
		return e.Cluster()
	}

	r := &rewriter{e: e, instr: instr, mode: a.mode}
	if err := r.rewrite(); err != nil {
		e.Unimplemented(err)
	}
	return e.Cluster()
}

// decodeError maps a failed x86asm decode to the decoder errors. x86asm
// reports running out of bytes as a lone prefix, a window shorter than the
// longest encoding is therefore taken as truncation.
func decodeError(err error, window int) error {
	switch {
	case errors.Is(err, x86asm.ErrTruncated):
		return decoder.ErrTruncated
	case err != nil:
		return fmt.Errorf("%w: %w", decoder.ErrUnmappedEncoding, err)
	case window < maxInstructionLength:
		return decoder.ErrTruncated
	default:
		return decoder.ErrUnmappedEncoding
	}
}

func modeWidth(mode int) instruction.Width {
	switch mode {
	case 16:
		return instruction.Word16
	case 64:
		return instruction.Word64
	default:
		return instruction.Word32
	}
}
