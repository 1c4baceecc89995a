package instruction

import (
	"fmt"
	"strings"
)

// Register names a machine register of a fixed width.
type Register struct {
	Name   string
	Number int
	Width  Width
}

// String returns the register name.
func (r Register) String() string {
	return r.Name
}

// Operand is one decoded instruction operand.
type Operand interface {
	// Width returns the width of the value the operand refers to.
	Width() Width
	// Render formats the operand using the given options.
	Render(opts RenderOptions) string
	String() string

	isOperand()
}

// WidthSetter is implemented by operands whose width can be fixed after the
// operand was created.
type WidthSetter interface {
	SetWidth(w Width)
}

var (
	_ Operand = (*RegisterOperand)(nil)
	_ Operand = (*Immediate)(nil)
	_ Operand = (*Memory)(nil)
	_ Operand = (*Address)(nil)
	_ Operand = (*Condition)(nil)

	_ WidthSetter = (*Immediate)(nil)
	_ WidthSetter = (*Memory)(nil)
	_ WidthSetter = (*Address)(nil)
)

// RegisterOperand refers to the contents of a register.
type RegisterOperand struct {
	Register Register
}

// NewRegister returns a register operand.
func NewRegister(reg Register) *RegisterOperand {
	return &RegisterOperand{Register: reg}
}

func (*RegisterOperand) isOperand() {}

// Width returns the register width.
func (r *RegisterOperand) Width() Width {
	return r.Register.Width
}

// Render returns the register name.
func (r *RegisterOperand) Render(opts RenderOptions) string {
	return opts.caseOf(r.Register.Name)
}

func (r *RegisterOperand) String() string {
	return r.Render(RenderOptions{})
}

// Immediate is a constant encoded in the instruction.
type Immediate struct {
	Value     uint64 // raw bits, masked to the width
	DataWidth Width
	Signed    bool
}

// NewImmediate returns an immediate operand, masking the value to the width.
func NewImmediate(value uint64, w Width) *Immediate {
	return &Immediate{Value: value & w.Mask(), DataWidth: w}
}

func (*Immediate) isOperand() {}

// Width returns the immediate width.
func (i *Immediate) Width() Width {
	return i.DataWidth
}

// SetWidth changes the immediate width.
func (i *Immediate) SetWidth(w Width) {
	i.DataWidth = w
	i.Value &= w.Mask()
}

// Int returns the value sign extended from the immediate width.
func (i *Immediate) Int() int64 {
	bits := i.DataWidth.Bits()
	if bits == 0 || bits >= 64 {
		return int64(i.Value)
	}
	shift := 64 - bits
	return int64(i.Value<<shift) >> shift
}

// Render formats the immediate as zero padded hexadecimal, or as signed
// hexadecimal for negative signed immediates.
func (i *Immediate) Render(_ RenderOptions) string {
	if i.Signed && i.Int() < 0 {
		return fmt.Sprintf("-0x%X", -i.Int())
	}
	return fmt.Sprintf("0x%0*X", i.DataWidth.Size()*2, i.Value)
}

func (i *Immediate) String() string {
	return i.Render(RenderOptions{})
}

// Address is an absolute code or data address, usually a transfer target.
// PC relative encodings are resolved to absolute addresses while decoding.
type Address struct {
	Value     uint64
	DataWidth Width
}

// NewAddress returns an address operand.
func NewAddress(value uint64, w Width) *Address {
	return &Address{Value: value, DataWidth: w}
}

func (*Address) isOperand() {}

// Width returns the width of the address.
func (a *Address) Width() Width {
	return a.DataWidth
}

// SetWidth changes the width of the address.
func (a *Address) SetWidth(w Width) {
	a.DataWidth = w
}

// Render formats the address as zero padded hexadecimal.
func (a *Address) Render(opts RenderOptions) string {
	return opts.address(a.Value)
}

func (a *Address) String() string {
	return a.Render(RenderOptions{})
}

// MemoryMode selects how a memory operand computes its effective address.
type MemoryMode uint8

// Memory addressing modes.
const (
	// Direct uses the absolute Address field.
	Direct MemoryMode = iota
	// Indirect adds base, scaled index and offset, any of which may be absent.
	Indirect
	// PreDecrement decrements the base register by Step before the access.
	PreDecrement
	// PostIncrement increments the base register by Step after the access.
	PostIncrement
)

// Memory refers to a memory location.
type Memory struct {
	Mode     MemoryMode
	Base     *Register
	Index    *Register
	Scale    uint8
	Offset   int64
	Address  uint64
	Step     int
	Deferred bool // the computed location holds the address of the operand
	// PostIndexed applies the index after loading the deferred address.
	PostIndexed bool
	Segment     *Register
	DataWidth   Width
}

func (*Memory) isOperand() {}

// Width returns the width of the accessed value.
func (m *Memory) Width() Width {
	return m.DataWidth
}

// SetWidth changes the width of the accessed value.
func (m *Memory) SetWidth(w Width) {
	m.DataWidth = w
}

// Render formats the memory reference.
func (m *Memory) Render(opts RenderOptions) string {
	var b strings.Builder
	if m.Deferred {
		b.WriteByte('@')
	}
	if m.Segment != nil {
		b.WriteString(opts.caseOf(m.Segment.Name))
		b.WriteByte(':')
	}

	switch m.Mode {
	case Direct:
		b.WriteString("(" + opts.address(m.Address) + ")")
		return b.String()
	case PreDecrement:
		b.WriteString("(-" + opts.caseOf(m.Base.Name) + ")")
	case PostIncrement:
		b.WriteString("(" + opts.caseOf(m.Base.Name) + "+)")
	default:
		b.WriteByte('(')
		b.WriteString(m.renderIndirect(opts))
		b.WriteByte(')')
		if !m.PostIndexed {
			return b.String()
		}
	}

	// the index is applied to the address computed by the mode
	if m.Index != nil {
		b.WriteString("+" + opts.caseOf(m.Index.Name))
		if m.Scale > 1 {
			fmt.Fprintf(&b, "*%d", m.Scale)
		}
	}
	return b.String()
}

func (m *Memory) renderIndirect(opts RenderOptions) string {
	var parts []string
	if m.Base != nil {
		parts = append(parts, opts.caseOf(m.Base.Name))
	}
	if m.Index != nil && !m.PostIndexed {
		index := opts.caseOf(m.Index.Name)
		if m.Scale > 1 {
			index = fmt.Sprintf("%s*%d", index, m.Scale)
		}
		parts = append(parts, index)
	}
	s := strings.Join(parts, "+")

	switch {
	case s == "":
		return opts.address(uint64(m.Offset))
	case m.Base == nil:
		// absolute address indexed by a register
		return opts.address(uint64(m.Offset)) + "+" + s
	case m.Offset > 0:
		return fmt.Sprintf("%s+%d", s, m.Offset)
	case m.Offset < 0:
		return fmt.Sprintf("%s-%d", s, -m.Offset)
	default:
		return s
	}
}

func (m *Memory) String() string {
	return m.Render(RenderOptions{})
}

// Condition is a condition code operand of a conditional instruction.
type Condition struct {
	Name string
	Code int
}

func (*Condition) isOperand() {}

// Width returns Unset, conditions have no data width.
func (*Condition) Width() Width {
	return Unset
}

// Render returns the condition name.
func (c *Condition) Render(opts RenderOptions) string {
	return opts.caseOf(c.Name)
}

func (c *Condition) String() string {
	return c.Render(RenderOptions{})
}
