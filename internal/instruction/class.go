package instruction

import "strings"

// Class is a bit set describing how an instruction affects control flow.
type Class uint16

// Instruction classes. Calls and returns also carry the Transfer bit.
const (
	Linear Class = 1 << iota
	Transfer
	Conditional
	Call
	Return
	Invalid
	Padding
	Zero
	Privileged
)

var classNames = []struct {
	class Class
	name  string
}{
	{Linear, "linear"},
	{Transfer, "transfer"},
	{Conditional, "conditional"},
	{Call, "call"},
	{Return, "return"},
	{Invalid, "invalid"},
	{Padding, "padding"},
	{Zero, "zero"},
	{Privileged, "privileged"},
}

// Has returns whether all bits of flags are set.
func (c Class) Has(flags Class) bool {
	return c&flags == flags
}

// IsTransfer returns whether the instruction can change the program counter
// to something other than the following instruction.
func (c Class) IsTransfer() bool {
	return c&Transfer != 0
}

// FallsThrough returns whether execution can continue at the following
// instruction after this one.
func (c Class) FallsThrough() bool {
	switch {
	case c&Invalid != 0:
		return false
	case c&Transfer == 0:
		return true
	case c&(Conditional|Call) != 0:
		return true
	default:
		return false
	}
}

// String returns the set class names joined by '|'.
func (c Class) String() string {
	if c == 0 {
		return "none"
	}
	var names []string
	for _, n := range classNames {
		if c&n.class != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}
