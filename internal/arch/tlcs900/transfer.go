package tlcs900

import (
	"fmt"

	"github.com/retroenv/retrolift/internal/instruction"
	"github.com/retroenv/retrolift/internal/rtl"
)

// returnSize is the size of the return address pushed by calls.
const returnSize = 4

// swiVectors is the address of the software interrupt vector table.
const swiVectors = 0xffff00

// splitCondition returns the condition operand and the remaining operands.
func (r *rewriter) splitCondition() (*instruction.Condition, []instruction.Operand) {
	ops := r.instr.Operands
	if len(ops) > 0 {
		if c, ok := ops[0].(*instruction.Condition); ok {
			return c, ops[1:]
		}
	}
	return nil, ops
}

// target lowers the destination of a transfer. Memory operands transfer to
// their effective address.
func (r *rewriter) target(op instruction.Operand) (rtl.Expr, error) {
	switch o := op.(type) {
	case *instruction.Address:
		return r.e.Addr(o.Value), nil
	case *instruction.Memory:
		return r.e.EffectiveAddress(o)
	default:
		return nil, fmt.Errorf("%w: transfer target %v", rtl.ErrUnimplemented, op)
	}
}

// skipUnless branches to the next instruction if the condition does not
// hold.
func (r *rewriter) skipUnless(cond *instruction.Condition) {
	r.e.Emit(&rtl.Branch{
		Condition: r.test(invertCondition(cond.Code)),
		Target:    r.e.Addr(r.instr.Next()),
	})
}

func (r *rewriter) jump() error {
	cond, ops := r.splitCondition()
	if len(ops) != 1 {
		return fmt.Errorf("%w: jump without target", rtl.ErrUnimplemented)
	}
	if cond != nil && cond.Code == condNever {
		return nil
	}
	target, err := r.target(ops[0])
	if err != nil {
		return err
	}

	switch t := target.(type) {
	case rtl.CodeAddress:
		if cond != nil {
			r.e.Emit(&rtl.Branch{Condition: r.test(cond.Code), Target: t})
			return nil
		}
	default:
		if cond != nil {
			r.skipUnless(cond)
		}
	}
	r.e.Emit(&rtl.Goto{Target: target})
	return nil
}

func (r *rewriter) call() error {
	cond, ops := r.splitCondition()
	if len(ops) != 1 {
		return fmt.Errorf("%w: call without target", rtl.ErrUnimplemented)
	}
	if cond != nil && cond.Code == condNever {
		return nil
	}
	target, err := r.target(ops[0])
	if err != nil {
		return err
	}
	if cond != nil {
		r.skipUnless(cond)
	}
	r.e.Emit(&rtl.Call{Target: target, ReturnSize: returnSize})
	return nil
}

func (r *rewriter) callRelative() error {
	target, err := r.target(r.op(0))
	if err != nil {
		return err
	}
	r.e.Emit(&rtl.Call{Target: target, ReturnSize: returnSize})
	return nil
}

func (r *rewriter) softwareInterrupt() error {
	imm, ok := r.op(0).(*instruction.Immediate)
	if !ok {
		return fmt.Errorf("%w: swi without vector", rtl.ErrUnimplemented)
	}
	r.e.Emit(&rtl.Call{Target: r.e.Addr(swiVectors + 4*imm.Value), ReturnSize: returnSize})
	return nil
}

func (r *rewriter) ret() error {
	switch r.instr.Mnemonic {
	case "reti":
		r.e.Emit(&rtl.Return{ReturnSize: returnSize, Extra: 2})
	case "retd":
		imm, ok := r.op(0).(*instruction.Immediate)
		if !ok {
			return fmt.Errorf("%w: retd without size", rtl.ErrUnimplemented)
		}
		r.e.Emit(&rtl.Return{ReturnSize: returnSize, Extra: int(imm.Value)})
	default:
		cond, _ := r.splitCondition()
		if cond != nil {
			if cond.Code == condNever {
				return nil
			}
			r.skipUnless(cond)
		}
		r.e.Emit(&rtl.Return{ReturnSize: returnSize})
	}
	return nil
}

func (r *rewriter) decrementJump() error {
	counter, err := r.e.Location(r.op(0))
	if err != nil {
		return err
	}
	target, ok := r.op(1).(*instruction.Address)
	if !ok {
		return fmt.Errorf("%w: djnz without target", rtl.ErrUnimplemented)
	}
	w := counter.Width()
	r.e.Assign(counter, rtl.Sub(counter, rtl.Word(1, w)))
	r.e.Emit(&rtl.Branch{Condition: rtl.Ne(counter, rtl.Word(0, w)), Target: r.e.Addr(target.Value)})
	return nil
}
