package rtl

import (
	"fmt"

	"github.com/retroenv/retrolift/internal/instruction"
)

// Effect is one element of the ordered effect list of an instruction.
type Effect interface {
	// Class returns the control flow class of the effect.
	Class() instruction.Class
	String() string

	isEffect()
}

var (
	_ Effect = (*Assign)(nil)
	_ Effect = (*Branch)(nil)
	_ Effect = (*Goto)(nil)
	_ Effect = (*Call)(nil)
	_ Effect = (*Return)(nil)
	_ Effect = (*SideEffect)(nil)
	_ Effect = Nop{}
	_ Effect = (*Unimplemented)(nil)
	_ Effect = Invalid{}
)

// Assign stores a value. A flag group update is an Assign whose destination
// is a flag group identifier and whose source is a Cond or boolean value.
type Assign struct {
	Dst Expr
	Src Expr
}

func (*Assign) isEffect() {}

// Class returns Linear.
func (*Assign) Class() instruction.Class { return instruction.Linear }

func (a *Assign) String() string {
	return fmt.Sprintf("%s = %s", a.Dst, a.Src)
}

// Branch transfers control to Target if Condition holds.
type Branch struct {
	Condition Expr
	Target    CodeAddress
}

func (*Branch) isEffect() {}

// Class returns a conditional transfer.
func (*Branch) Class() instruction.Class { return instruction.Transfer | instruction.Conditional }

func (b *Branch) String() string {
	return fmt.Sprintf("if (%s) branch %s", b.Condition, b.Target)
}

// Goto transfers control unconditionally.
type Goto struct {
	Target Expr
}

func (*Goto) isEffect() {}

// Class returns Transfer.
func (*Goto) Class() instruction.Class { return instruction.Transfer }

func (g *Goto) String() string {
	return "goto " + g.Target.String()
}

// Call calls a subroutine that returns to the next instruction. ReturnSize
// is the size of the return address pushed on the stack.
type Call struct {
	Target     Expr
	ReturnSize int
}

func (*Call) isEffect() {}

// Class returns a call transfer.
func (*Call) Class() instruction.Class { return instruction.Transfer | instruction.Call }

func (c *Call) String() string {
	return fmt.Sprintf("call %s (%d)", c.Target, c.ReturnSize)
}

// Return returns from a subroutine, popping the return address of
// ReturnSize bytes and Extra further bytes.
type Return struct {
	ReturnSize int
	Extra      int
}

func (*Return) isEffect() {}

// Class returns a return transfer.
func (*Return) Class() instruction.Class { return instruction.Transfer | instruction.Return }

func (r *Return) String() string {
	return fmt.Sprintf("return (%d,%d)", r.ReturnSize, r.Extra)
}

// SideEffect evaluates an intrinsic for its side effects only.
type SideEffect struct {
	Expr *Application
}

func (*SideEffect) isEffect() {}

// Class returns Linear.
func (*SideEffect) Class() instruction.Class { return instruction.Linear }

func (s *SideEffect) String() string {
	return s.Expr.String()
}

// Nop has no effect.
type Nop struct{}

func (Nop) isEffect() {}

// Class returns Linear.
func (Nop) Class() instruction.Class { return instruction.Linear }

func (Nop) String() string { return "nop" }

// Unimplemented marks an instruction that decodes but has no lowering.
type Unimplemented struct {
	Mnemonic instruction.Mnemonic
}

func (*Unimplemented) isEffect() {}

// Class returns Linear.
func (*Unimplemented) Class() instruction.Class { return instruction.Linear }

func (u *Unimplemented) String() string {
	return "<unimplemented> " + string(u.Mnemonic)
}

// Invalid is the only effect of an invalid instruction.
type Invalid struct{}

func (Invalid) isEffect() {}

// Class returns Invalid.
func (Invalid) Class() instruction.Class { return instruction.Invalid }

func (Invalid) String() string { return "<invalid>" }
