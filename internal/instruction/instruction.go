// Package instruction contains the architecture neutral model of a decoded
// machine instruction and its operands.
package instruction

import (
	"fmt"
	"strings"
)

// Mnemonic is the symbolic operation name of an instruction.
type Mnemonic string

// Illegal is the mnemonic of invalid instructions.
const Illegal Mnemonic = "illegal"

// Instruction is a decoded machine instruction. Instructions are values, they
// must not be modified after the decoder returned them.
type Instruction struct {
	Address  uint64
	Length   int
	Mnemonic Mnemonic
	Operands []Operand
	Class    Class

	// Completers are encoded suffixes like condition or size markers that
	// are rendered after the mnemonic, each prefixed with a comma.
	Completers []string

	// Reason is set for invalid instructions and describes the decode failure.
	Reason error
}

// NewInvalid returns an invalid instruction of the given length, which is
// forced to be at least 1 to guarantee forward progress.
func NewInvalid(address uint64, length int, reason error) *Instruction {
	return &Instruction{
		Address:  address,
		Length:   max(length, 1),
		Mnemonic: Illegal,
		Class:    Invalid,
		Reason:   reason,
	}
}

// IsInvalid returns whether the instruction could not be decoded.
func (i *Instruction) IsInvalid() bool {
	return i.Class&Invalid != 0
}

// Next returns the address of the following instruction.
func (i *Instruction) Next() uint64 {
	return i.Address + uint64(i.Length)
}

// Target returns the first absolute address operand, which for transfer
// instructions is the destination.
func (i *Instruction) Target() (uint64, bool) {
	for _, op := range i.Operands {
		if a, ok := op.(*Address); ok {
			return a.Value, true
		}
	}
	return 0, false
}

// Operand returns the operand at index or nil if it does not exist.
func (i *Instruction) Operand(index int) Operand {
	if index < 0 || index >= len(i.Operands) {
		return nil
	}
	return i.Operands[index]
}

// String renders the instruction with default options.
func (i *Instruction) String() string {
	return i.Render(RenderOptions{})
}

// Render formats the instruction as mnemonic, completers and a tab separated,
// comma joined operand list. Underscores in mnemonics render as commas.
func (i *Instruction) Render(opts RenderOptions) string {
	if i.IsInvalid() {
		return opts.caseOf(string(Illegal))
	}

	var b strings.Builder
	b.WriteString(opts.caseOf(strings.ReplaceAll(string(i.Mnemonic), "_", ",")))
	for _, c := range i.Completers {
		b.WriteByte(',')
		b.WriteString(opts.caseOf(c))
	}

	for j, op := range i.Operands {
		if j == 0 {
			b.WriteByte('\t')
		} else {
			b.WriteByte(',')
		}
		b.WriteString(op.Render(opts))
	}
	return b.String()
}

// RenderOptions controls instruction formatting.
type RenderOptions struct {
	Uppercase     bool // upper case mnemonics and register names
	AddressDigits int  // number of hex digits of addresses, 8 if not set
}

func (o RenderOptions) caseOf(s string) string {
	if o.Uppercase {
		return strings.ToUpper(s)
	}
	return s
}

func (o RenderOptions) address(value uint64) string {
	digits := o.AddressDigits
	if digits == 0 {
		digits = 8
	}
	return fmt.Sprintf("%0*X", digits, value)
}
