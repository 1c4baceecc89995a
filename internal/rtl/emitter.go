package rtl

import (
	"errors"
	"fmt"

	"github.com/retroenv/retrolift/internal/instruction"
)

// ErrUnimplemented is returned by operand lowering for operand shapes that
// have no RTL form. Rewriters turn it into an Unimplemented effect.
var ErrUnimplemented = errors.New("unimplemented semantics")

// Emitter collects the effects of one instruction while a rewriter lowers
// it. Effects of post increment addressing are held back until
// FlushDeferred, so that they follow the memory access they belong to.
type Emitter struct {
	instr        *instruction.Instruction
	binder       Binder
	pointerWidth instruction.Width

	effects  []Effect
	deferred []Effect
	reason   error
}

// NewEmitter returns an emitter for the instruction.
func NewEmitter(instr *instruction.Instruction, binder Binder, pointerWidth instruction.Width) *Emitter {
	return &Emitter{
		instr:        instr,
		binder:       binder,
		pointerWidth: pointerWidth,
	}
}

// Instruction returns the instruction being lowered.
func (e *Emitter) Instruction() *instruction.Instruction {
	return e.instr
}

// Binder returns the storage binder.
func (e *Emitter) Binder() Binder {
	return e.binder
}

// Emit appends effects.
func (e *Emitter) Emit(effects ...Effect) {
	e.effects = append(e.effects, effects...)
}

// Assign appends the assignment dst = src.
func (e *Emitter) Assign(dst, src Expr) {
	e.Emit(&Assign{Dst: dst, Src: src})
}

// Defer holds effects back until the next FlushDeferred.
func (e *Emitter) Defer(effects ...Effect) {
	e.deferred = append(e.deferred, effects...)
}

// FlushDeferred appends the effects held back by Defer.
func (e *Emitter) FlushDeferred() {
	e.effects = append(e.effects, e.deferred...)
	e.deferred = e.deferred[:0]
}

// Unimplemented discards all effects, the cluster will only contain an
// Unimplemented marker. The reason is kept in the cluster.
func (e *Emitter) Unimplemented(reason error) {
	if reason == nil {
		reason = ErrUnimplemented
	}
	e.reason = reason
}

// Reg returns the identifier of a register.
func (e *Emitter) Reg(reg instruction.Register) *Identifier {
	return e.binder.EnsureRegister(reg)
}

// Temp returns a new temporary.
func (e *Emitter) Temp(w instruction.Width) *Identifier {
	return e.binder.CreateTemporary(w)
}

// Const returns a signed pointer width constant, used for address
// adjustments.
func (e *Emitter) Const(v int64) Constant {
	return Int(v, e.pointerWidth)
}

// Addr returns the RTL form of a code address.
func (e *Emitter) Addr(address uint64) CodeAddress {
	return e.binder.CodeAddress(address)
}

// EffectiveAddress lowers the address computation of a memory operand.
// Pre decrement adjustments are emitted immediately, post increment ones
// are deferred.
func (e *Emitter) EffectiveAddress(m *instruction.Memory) (Expr, error) {
	if m.Segment != nil {
		return nil, fmt.Errorf("%w: segment override %s", ErrUnimplemented, m.Segment.Name)
	}

	var ea Expr
	switch m.Mode {
	case instruction.Direct:
		ea = Word(m.Address, e.pointerWidth)

	case instruction.PreDecrement, instruction.PostIncrement:
		if m.Base == nil {
			return nil, fmt.Errorf("%w: auto increment without base register", ErrUnimplemented)
		}
		base := e.Reg(*m.Base)
		ea = base
		if m.Mode == instruction.PreDecrement {
			e.Assign(base, Sub(base, e.Const(int64(m.Step))))
		} else {
			e.Defer(&Assign{Dst: base, Src: Add(base, e.Const(int64(m.Step)))})
		}
		if m.Index != nil && !m.PostIndexed {
			ea = e.addIndex(ea, m)
		}

	case instruction.Indirect:
		if m.Base == nil {
			// the offset is an absolute address
			ea = Word(uint64(m.Offset), e.pointerWidth)
			if m.Index != nil && !m.PostIndexed {
				ea = e.addIndex(ea, m)
			}
			break
		}
		ea = e.Reg(*m.Base)
		if m.Index != nil && !m.PostIndexed {
			ea = e.addIndex(ea, m)
		}
		switch {
		case m.Offset > 0:
			ea = Add(ea, e.Const(m.Offset))
		case m.Offset < 0:
			ea = Sub(ea, e.Const(-m.Offset))
		}

	default:
		return nil, fmt.Errorf("%w: memory mode %d", ErrUnimplemented, m.Mode)
	}

	if m.Deferred {
		ea = Load(ea, e.pointerWidth)
	}
	if m.Index != nil && m.PostIndexed {
		ea = e.addIndex(ea, m)
	}
	return ea, nil
}

// addIndex adds the scaled index register of a memory operand to ea, which
// may be nil. Narrow index registers are zero extended to the pointer width.
func (e *Emitter) addIndex(ea Expr, m *instruction.Memory) Expr {
	var index Expr = e.Reg(*m.Index)
	if index.Width().Bits() < e.pointerWidth.Bits() {
		index = &Cast{X: index, DataWidth: e.pointerWidth}
	}
	if m.Scale > 1 {
		index = Apply(OpMul, index, Int(int64(m.Scale), e.pointerWidth))
	}
	if ea == nil {
		return index
	}
	return Add(ea, index)
}

// Location lowers a register or memory operand to an expression that can
// be read and assigned. Address computation effects are emitted once, so a
// read-modify-write sequence must reuse the returned location.
func (e *Emitter) Location(op instruction.Operand) (Expr, error) {
	switch o := op.(type) {
	case *instruction.RegisterOperand:
		return e.Reg(o.Register), nil
	case *instruction.Memory:
		if !o.DataWidth.IsSet() {
			return nil, fmt.Errorf("%w: memory operand %s without width", ErrUnimplemented, o)
		}
		ea, err := e.EffectiveAddress(o)
		if err != nil {
			return nil, err
		}
		return Load(ea, o.DataWidth), nil
	default:
		return nil, fmt.Errorf("%w: operand %s is not a location", ErrUnimplemented, op)
	}
}

// Read lowers an operand to the value it provides.
func (e *Emitter) Read(op instruction.Operand) (Expr, error) {
	switch o := op.(type) {
	case *instruction.Immediate:
		if o.Signed {
			return Int(o.Int(), o.DataWidth), nil
		}
		return Word(o.Value, o.DataWidth), nil
	case *instruction.Address:
		return e.Addr(o.Value), nil
	case nil:
		return nil, fmt.Errorf("%w: missing operand", ErrUnimplemented)
	default:
		return e.Location(op)
	}
}

// Cluster returns the lowered instruction. Invalid instructions yield a
// single Invalid effect and instructions marked as unimplemented a single
// Unimplemented effect.
func (e *Emitter) Cluster() *Cluster {
	c := &Cluster{
		Address: e.instr.Address,
		Length:  e.instr.Length,
		Class:   e.instr.Class,
	}

	switch {
	case e.instr.IsInvalid():
		c.Effects = []Effect{Invalid{}}
	case e.reason != nil:
		c.Effects = []Effect{&Unimplemented{Mnemonic: e.instr.Mnemonic}}
		c.Reason = e.reason
	default:
		e.FlushDeferred()
		c.Effects = e.effects
		if len(c.Effects) == 0 {
			c.Effects = []Effect{Nop{}}
		}
	}
	return c
}
