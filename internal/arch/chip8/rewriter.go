package chip8

import (
	"fmt"

	"github.com/retroenv/retrolift/internal/instruction"
	"github.com/retroenv/retrolift/internal/rtl"
)

// returnSize is the size of a stack entry.
const returnSize = 2

// Rewrite lowers a decoded instruction to its RTL cluster.
func Rewrite(instr *instruction.Instruction, binder rtl.Binder) *rtl.Cluster {
	e := rtl.NewEmitter(instr, binder, instruction.Word16)
	if instr.IsInvalid() {
		return e.Cluster()
	}

	r := rewriter{e: e, instr: instr}
	if err := r.rewrite(); err != nil {
		e.Unimplemented(err)
	}
	return e.Cluster()
}

type rewriter struct {
	e     *rtl.Emitter
	instr *instruction.Instruction
}

func (r rewriter) rewrite() error {
	switch r.instr.Mnemonic {
	case "cls":
		r.intrinsic("cls")
	case "ret":
		r.e.Emit(&rtl.Return{ReturnSize: returnSize})
	case "sys":
		r.intrinsic("sys", r.word(0))
	case "jp":
		return r.jump()
	case "call":
		r.e.Emit(&rtl.Call{Target: r.e.Addr(r.address(0)), ReturnSize: returnSize})
	case "se":
		r.skipIf(rtl.Eq(r.value(0), r.value(1)))
	case "sne":
		r.skipIf(rtl.Ne(r.value(0), r.value(1)))
	case "skp":
		r.skipIf(r.keyPressed())
	case "sknp":
		r.skipIf(rtl.Not(r.keyPressed()))
	case "ld":
		return r.load()
	case "add":
		r.add()
	case "sub":
		r.subtract(r.value(0), r.value(1))
	case "subn":
		r.subtract(r.value(1), r.value(0))
	case "or":
		r.logical(rtl.OpOr)
	case "and":
		r.logical(rtl.OpAnd)
	case "xor":
		r.logical(rtl.OpXor)
	case "shr":
		r.shift(rtl.And(r.value(0), rtl.Word(1, instruction.Byte)), rtl.OpShrU)
	case "shl":
		r.shift(rtl.Apply(rtl.OpShrU, r.value(0), rtl.Int(7, instruction.Byte)), rtl.OpShl)
	case "rnd":
		r.e.Assign(r.value(0), rtl.And(rtl.Fn("rand", instruction.Byte), r.value(1)))
	case "drw":
		r.e.Assign(r.e.Reg(VF), rtl.Fn("draw", instruction.Byte,
			r.value(0), r.value(1), r.e.Reg(I), r.value(2)))
	default:
		return fmt.Errorf("%w: %s", rtl.ErrUnimplemented, r.instr.Mnemonic)
	}
	return nil
}

// value returns the value of a register or immediate operand.
func (r rewriter) value(index int) rtl.Expr {
	switch op := r.instr.Operand(index).(type) {
	case *instruction.RegisterOperand:
		return r.e.Reg(op.Register)
	case *instruction.Immediate:
		return rtl.Word(op.Value, op.DataWidth)
	case *instruction.Address:
		return rtl.Word(op.Value, instruction.Word16)
	default:
		return rtl.Word(0, instruction.Byte)
	}
}

func (r rewriter) word(index int) rtl.Expr {
	return rtl.Word(r.address(index), instruction.Word16)
}

// address returns the 12 bit address of an address or immediate operand.
func (r rewriter) address(index int) uint64 {
	switch op := r.instr.Operand(index).(type) {
	case *instruction.Address:
		return op.Value
	case *instruction.Immediate:
		return op.Value
	default:
		return 0
	}
}

func (r rewriter) intrinsic(name string, args ...rtl.Expr) {
	r.e.Emit(&rtl.SideEffect{Expr: rtl.Fn(name, instruction.Unset, args...)})
}

func (r rewriter) keyPressed() rtl.Expr {
	return rtl.Fn("key_pressed", instruction.Bool, r.value(0))
}

// skipIf branches over the following instruction if the condition holds.
func (r rewriter) skipIf(cond rtl.Expr) {
	r.e.Emit(&rtl.Branch{Condition: cond, Target: r.e.Addr(r.instr.Next() + opcodeSize)})
}

func (r rewriter) jump() error {
	if len(r.instr.Operands) == 1 {
		r.e.Emit(&rtl.Goto{Target: r.e.Addr(r.address(0))})
		return nil
	}
	base, ok := r.instr.Operand(0).(*instruction.RegisterOperand)
	if !ok {
		return fmt.Errorf("%w: jump operands %v", rtl.ErrUnimplemented, r.instr.Operands)
	}
	offset := &rtl.Cast{X: r.e.Reg(base.Register), DataWidth: instruction.Word16}
	r.e.Emit(&rtl.Goto{Target: rtl.Add(offset, r.word(1))})
	return nil
}

func (r rewriter) load() error {
	dst, src := r.instr.Operand(0), r.instr.Operand(1)
	if m, ok := dst.(*instruction.Memory); ok && m.Base != nil {
		r.intrinsic("store", r.e.Reg(I), r.value(1))
		return nil
	}
	if m, ok := src.(*instruction.Memory); ok && m.Base != nil {
		r.intrinsic("load", r.e.Reg(I), r.value(0))
		return nil
	}

	reg, ok := dst.(*instruction.RegisterOperand)
	if !ok {
		return fmt.Errorf("%w: load destination %v", rtl.ErrUnimplemented, dst)
	}
	switch reg.Register {
	case font:
		r.e.Assign(r.e.Reg(I), rtl.Fn("font", instruction.Word16, r.value(1)))
		return nil
	case bcd:
		r.intrinsic("bcd", r.value(1), r.e.Reg(I))
		return nil
	}

	if s, ok := src.(*instruction.RegisterOperand); ok && s.Register == keypad {
		r.e.Assign(r.e.Reg(reg.Register), rtl.Fn("wait_key", instruction.Byte))
		return nil
	}
	r.e.Assign(r.e.Reg(reg.Register), r.value(1))
	return nil
}

func (r rewriter) add() {
	dst := r.value(0)
	if dst.Width() == instruction.Word16 {
		src := &rtl.Cast{X: r.value(1), DataWidth: instruction.Word16}
		r.e.Assign(dst, rtl.Add(dst, src))
		return
	}
	if _, ok := r.instr.Operand(1).(*instruction.Immediate); ok {
		r.e.Assign(dst, rtl.Add(dst, r.value(1)))
		return
	}

	sum := r.e.Temp(instruction.Byte)
	carry := r.e.Temp(instruction.Byte)
	r.e.Assign(sum, rtl.Add(dst, r.value(1)))
	r.e.Assign(carry, flag(rtl.Apply(rtl.OpLtU, sum, dst)))
	r.e.Assign(dst, sum)
	r.e.Assign(r.e.Reg(VF), carry)
}

// subtract assigns minuend - subtrahend to the first operand. VF is set
// if no borrow occurs.
func (r rewriter) subtract(minuend, subtrahend rtl.Expr) {
	diff := r.e.Temp(instruction.Byte)
	noBorrow := r.e.Temp(instruction.Byte)
	r.e.Assign(diff, rtl.Sub(minuend, subtrahend))
	r.e.Assign(noBorrow, flag(rtl.Apply(rtl.OpGeU, minuend, subtrahend)))
	r.e.Assign(r.value(0), diff)
	r.e.Assign(r.e.Reg(VF), noBorrow)
}

func (r rewriter) logical(op rtl.Operator) {
	dst := r.value(0)
	r.e.Assign(dst, rtl.Apply(op, dst, r.value(1)))
}

// shift shifts the register by one and stores the shifted out bit in VF.
func (r rewriter) shift(out rtl.Expr, op rtl.Operator) {
	dst := r.value(0)
	bit := r.e.Temp(instruction.Byte)
	r.e.Assign(bit, out)
	r.e.Assign(dst, rtl.Apply(op, dst, rtl.Int(1, instruction.Byte)))
	r.e.Assign(r.e.Reg(VF), bit)
}

// flag converts a boolean to the byte stored in VF.
func flag(cond rtl.Expr) rtl.Expr {
	return &rtl.Cast{X: cond, DataWidth: instruction.Byte}
}
