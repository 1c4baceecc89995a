// Package arch contains the architecture interface and the registry of all
// supported backends. It acts as a bridge between the listing front end and
// the architecture specific decoders and rewriters.
package arch

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/retroenv/retrolift/internal/arch/chip8"
	"github.com/retroenv/retrolift/internal/arch/m6502"
	"github.com/retroenv/retrolift/internal/arch/tlcs900"
	"github.com/retroenv/retrolift/internal/arch/vax"
	"github.com/retroenv/retrolift/internal/arch/x86"
	"github.com/retroenv/retrolift/internal/cursor"
	"github.com/retroenv/retrolift/internal/instruction"
	"github.com/retroenv/retrolift/internal/rtl"
)

// ErrUnknownArchitecture is returned by Lookup for unsupported names.
var ErrUnknownArchitecture = errors.New("unknown architecture")

// Architecture contains architecture specific decoding and lowering.
type Architecture interface {
	// Name returns the name used to select the architecture.
	Name() string
	// ByteOrder returns the byte order of multi byte instruction fields.
	ByteOrder() binary.ByteOrder
	// PointerWidth returns the width of code and data addresses.
	PointerWidth() instruction.Width
	// Disassemble decodes the instruction at the cursor position and
	// advances the cursor by its length. It returns false only if the
	// cursor has no bytes left, undecodable bytes result in an invalid
	// instruction.
	Disassemble(c *cursor.Cursor) (*instruction.Instruction, bool)
	// Rewrite lowers a decoded instruction to its RTL cluster.
	Rewrite(instr *instruction.Instruction, binder rtl.Binder) *rtl.Cluster
	// Registers returns all registers of the architecture.
	Registers() []instruction.Register
}

// EntryPointer is implemented by architectures that can find entry points in
// an image, like the interrupt vectors of the 6502.
type EntryPointer interface {
	EntryPoints(c *cursor.Cursor) []uint64
}

var (
	_ EntryPointer = (*m6502.Arch)(nil)

	_ Architecture = (*tlcs900.Arch)(nil)
	_ Architecture = (*vax.Arch)(nil)
	_ Architecture = (*m6502.Arch)(nil)
	_ Architecture = (*chip8.Arch)(nil)
	_ Architecture = (*x86.Arch)(nil)
)

var constructors = map[string]func() Architecture{
	tlcs900.Name: func() Architecture { return tlcs900.New() },
	vax.Name:     func() Architecture { return vax.New() },
	m6502.Name:   func() Architecture { return m6502.New() },
	chip8.Name:   func() Architecture { return chip8.New() },
	"x86":        func() Architecture { return x86.New(32) },
	"x86-16":     func() Architecture { return x86.New(16) },
	"x86-32":     func() Architecture { return x86.New(32) },
	"x86-64":     func() Architecture { return x86.New(64) },
}

// Lookup returns the backend for an architecture name.
func Lookup(name string) (Architecture, error) {
	newArch, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w '%s', supported: %v", ErrUnknownArchitecture, name, Names())
	}
	return newArch(), nil
}

// Names returns the sorted names of all supported architectures.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
