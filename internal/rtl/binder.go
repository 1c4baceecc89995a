package rtl

import (
	"fmt"

	"github.com/retroenv/retrolift/internal/instruction"
)

// Binder resolves machine storage to RTL identifiers and creates
// temporaries. Rewriters receive it from the caller, which decides how
// identifiers are shared between instructions.
type Binder interface {
	// EnsureRegister returns the identifier of a register.
	EnsureRegister(reg instruction.Register) *Identifier
	// EnsureFlagGroup returns the identifier of the flag bits of a flag
	// register, named by name.
	EnsureFlagGroup(flags instruction.Register, bits uint32, name string) *Identifier
	// CreateTemporary returns a fresh temporary of the given width.
	CreateTemporary(w instruction.Width) *Identifier
	// CodeAddress returns the RTL form of a code address.
	CodeAddress(address uint64) CodeAddress
}

// Frame is the default binder. It returns the same identifier for the same
// storage and numbers temporaries v1, v2 and so on. A frame is not safe for
// concurrent use.
type Frame struct {
	pointerWidth instruction.Width
	registers    map[string]*Identifier
	flagGroups   map[string]*Identifier
	temporaries  int
}

// NewFrame returns a frame for an architecture with the given pointer width.
func NewFrame(pointerWidth instruction.Width) *Frame {
	return &Frame{
		pointerWidth: pointerWidth,
		registers:    map[string]*Identifier{},
		flagGroups:   map[string]*Identifier{},
	}
}

// EnsureRegister returns the identifier of a register.
func (f *Frame) EnsureRegister(reg instruction.Register) *Identifier {
	id, ok := f.registers[reg.Name]
	if !ok {
		id = &Identifier{
			Name:      reg.Name,
			Kind:      RegisterStorage,
			DataWidth: reg.Width,
			Register:  reg,
		}
		f.registers[reg.Name] = id
	}
	return id
}

// EnsureFlagGroup returns the identifier of a flag group.
func (f *Frame) EnsureFlagGroup(flags instruction.Register, bits uint32, name string) *Identifier {
	key := fmt.Sprintf("%s:%X", flags.Name, bits)
	id, ok := f.flagGroups[key]
	if !ok {
		w := instruction.Byte
		if bits&(bits-1) == 0 {
			w = instruction.Bool
		}
		id = &Identifier{
			Name:      name,
			Kind:      FlagStorage,
			DataWidth: w,
			Register:  flags,
			Flags:     bits,
		}
		f.flagGroups[key] = id
	}
	return id
}

// CreateTemporary returns a new temporary.
func (f *Frame) CreateTemporary(w instruction.Width) *Identifier {
	f.temporaries++
	return &Identifier{
		Name:      fmt.Sprintf("v%d", f.temporaries),
		Kind:      TemporaryStorage,
		DataWidth: w,
	}
}

// CodeAddress returns an address of the frame pointer width.
func (f *Frame) CodeAddress(address uint64) CodeAddress {
	return CodeAddress{Value: address & f.pointerWidth.Mask(), DataWidth: f.pointerWidth}
}
