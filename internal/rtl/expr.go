// Package rtl contains the register transfer language that rewriters lower
// decoded instructions to: expressions over registers, flag groups,
// temporaries and memory, and the effects one instruction has on them.
package rtl

import (
	"fmt"
	"strings"

	"github.com/retroenv/retrolift/internal/instruction"
)

// Expr is a side effect free RTL expression.
type Expr interface {
	// Width returns the width of the expression value.
	Width() instruction.Width
	String() string

	precedence() int
}

var (
	_ Expr = (*Identifier)(nil)
	_ Expr = Constant{}
	_ Expr = CodeAddress{}
	_ Expr = (*Mem)(nil)
	_ Expr = (*Binary)(nil)
	_ Expr = (*Unary)(nil)
	_ Expr = (*Cond)(nil)
	_ Expr = (*Test)(nil)
	_ Expr = (*Application)(nil)
	_ Expr = (*Cast)(nil)
	_ Expr = (*Slice)(nil)
	_ Expr = (*Seq)(nil)
)

const atomic = 15

// StorageKind classifies the storage an identifier is bound to.
type StorageKind uint8

// Storage kinds.
const (
	RegisterStorage StorageKind = iota
	FlagStorage
	TemporaryStorage
)

// Identifier names a storage location: a register, a group of flag bits of a
// flag register, or a temporary.
type Identifier struct {
	Name      string
	Kind      StorageKind
	DataWidth instruction.Width
	Register  instruction.Register // register or flag register
	Flags     uint32               // flag bits of flag groups
}

// Width returns the width of the storage.
func (id *Identifier) Width() instruction.Width {
	return id.DataWidth
}

func (id *Identifier) String() string {
	return id.Name
}

func (*Identifier) precedence() int { return atomic }

// Constant is a typed constant. Signed constants render as decimal numbers,
// unsigned ones as zero padded hexadecimal of their width.
type Constant struct {
	Value     uint64
	DataWidth instruction.Width
	Signed    bool
}

// Word returns an unsigned constant of the given width.
func Word(value uint64, w instruction.Width) Constant {
	return Constant{Value: value & w.Mask(), DataWidth: w}
}

// Int returns a signed constant of the given width.
func Int(value int64, w instruction.Width) Constant {
	return Constant{Value: uint64(value) & w.Mask(), DataWidth: w, Signed: true}
}

// Bool returns a boolean constant.
func Bool(b bool) Constant {
	c := Constant{DataWidth: instruction.Bool}
	if b {
		c.Value = 1
	}
	return c
}

// True and False are the boolean constants.
var (
	True  = Bool(true)
	False = Bool(false)
)

// Width returns the constant width.
func (c Constant) Width() instruction.Width {
	return c.DataWidth
}

// Int64 returns the value sign extended from the constant width.
func (c Constant) Int64() int64 {
	bits := c.DataWidth.Bits()
	if bits == 0 || bits >= 64 {
		return int64(c.Value)
	}
	shift := 64 - bits
	return int64(c.Value<<shift) >> shift
}

func (c Constant) String() string {
	switch {
	case c.DataWidth == instruction.Bool:
		if c.Value != 0 {
			return "true"
		}
		return "false"
	case c.Signed:
		return fmt.Sprintf("%d", c.Int64())
	default:
		return fmt.Sprintf("0x%0*X", c.DataWidth.Size()*2, c.Value)
	}
}

func (Constant) precedence() int { return atomic }

// CodeAddress is the address of code, rendered as bare hexadecimal.
type CodeAddress struct {
	Value     uint64
	DataWidth instruction.Width
}

// Width returns the pointer width of the address.
func (a CodeAddress) Width() instruction.Width {
	return a.DataWidth
}

func (a CodeAddress) String() string {
	return fmt.Sprintf("%0*X", a.DataWidth.Size()*2, a.Value)
}

func (CodeAddress) precedence() int { return atomic }

// Mem is an access of the given width to the default memory space at the
// effective address EA.
type Mem struct {
	EA        Expr
	DataWidth instruction.Width
}

// Width returns the access width.
func (m *Mem) Width() instruction.Width {
	return m.DataWidth
}

func (m *Mem) String() string {
	return fmt.Sprintf("Mem0[%s:%s]", m.EA, m.DataWidth)
}

func (*Mem) precedence() int { return atomic }

// Binary is a binary operation.
type Binary struct {
	Op        Operator
	Left      Expr
	Right     Expr
	DataWidth instruction.Width
}

// Width returns the result width.
func (b *Binary) Width() instruction.Width {
	return b.DataWidth
}

func (b *Binary) String() string {
	p := b.Op.precedence()
	return fmt.Sprintf("%s %s %s", wrap(b.Left, p, false), b.Op, wrap(b.Right, p, true))
}

func (b *Binary) precedence() int { return b.Op.precedence() }

// wrap parenthesizes operands that bind weaker than the operator. Right
// operands of equal precedence are wrapped too since all operators are left
// associative.
func wrap(e Expr, p int, right bool) string {
	ep := e.precedence()
	if ep < p || (right && ep == p) {
		return "(" + e.String() + ")"
	}
	return e.String()
}

// Unary is a unary operation.
type Unary struct {
	Op        Operator
	X         Expr
	DataWidth instruction.Width
}

// Width returns the result width.
func (u *Unary) Width() instruction.Width {
	return u.DataWidth
}

func (u *Unary) String() string {
	return u.Op.String() + wrap(u.X, unaryPrecedence, true)
}

func (*Unary) precedence() int { return unaryPrecedence }

// Cond derives condition code flags from a value.
type Cond struct {
	X Expr
}

// Width returns Bool.
func (*Cond) Width() instruction.Width {
	return instruction.Bool
}

func (c *Cond) String() string {
	return fmt.Sprintf("cond(%s)", c.X)
}

func (*Cond) precedence() int { return atomic }

// Test evaluates a condition code against a flag group.
type Test struct {
	CC    ConditionCode
	Group *Identifier
}

// Width returns Bool.
func (*Test) Width() instruction.Width {
	return instruction.Bool
}

func (t *Test) String() string {
	return fmt.Sprintf("Test(%s,%s)", t.CC, t.Group)
}

func (*Test) precedence() int { return atomic }

// Application calls an intrinsic that models behavior RTL can not express.
type Application struct {
	Name      string
	Args      []Expr
	DataWidth instruction.Width
}

// Width returns the result width.
func (a *Application) Width() instruction.Width {
	return a.DataWidth
}

func (a *Application) String() string {
	args := make([]string, len(a.Args))
	for i, arg := range a.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("__%s(%s)", a.Name, strings.Join(args, ", "))
}

func (*Application) precedence() int { return atomic }

// Cast converts a value to another width, sign or zero extending it.
type Cast struct {
	X         Expr
	DataWidth instruction.Width
	Signed    bool
}

// Width returns the target width.
func (c *Cast) Width() instruction.Width {
	return c.DataWidth
}

func (c *Cast) String() string {
	prefix := "uint"
	if c.Signed {
		prefix = "int"
	}
	return fmt.Sprintf("(%s%d) %s", prefix, c.DataWidth.Bits(), wrap(c.X, unaryPrecedence, true))
}

func (*Cast) precedence() int { return unaryPrecedence }

// Slice extracts the bits starting at Offset of a wider value.
type Slice struct {
	X         Expr
	Offset    int
	DataWidth instruction.Width
}

// Width returns the width of the extracted bits.
func (s *Slice) Width() instruction.Width {
	return s.DataWidth
}

func (s *Slice) String() string {
	return fmt.Sprintf("SLICE(%s, %s, %d)", s.X, s.DataWidth, s.Offset)
}

func (*Slice) precedence() int { return atomic }

// Seq concatenates values, the first one forming the most significant bits.
type Seq struct {
	Parts     []Expr
	DataWidth instruction.Width
}

// Width returns the combined width.
func (s *Seq) Width() instruction.Width {
	return s.DataWidth
}

func (s *Seq) String() string {
	parts := make([]string, len(s.Parts))
	for i, p := range s.Parts {
		parts[i] = p.String()
	}
	return fmt.Sprintf("SEQ(%s)", strings.Join(parts, ", "))
}

func (*Seq) precedence() int { return atomic }
