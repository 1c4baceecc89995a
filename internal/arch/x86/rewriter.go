package x86

import (
	"fmt"
	"strings"

	"github.com/retroenv/retrolift/internal/instruction"
	"github.com/retroenv/retrolift/internal/rtl"
	"golang.org/x/arch/x86/x86asm"
)

// flagEffect describes how an instruction updates the status flags.
type flagEffect struct {
	derived uint32
	cleared uint32
}

var (
	flagsArithmetic = flagEffect{derived: FlagS | FlagC | FlagZ | FlagO}
	flagsLogical    = flagEffect{derived: FlagS | FlagZ, cleared: FlagC | FlagO}
	flagsStep       = flagEffect{derived: FlagS | FlagZ | FlagO}
)

var flagOrder = []struct {
	bit    uint32
	letter string
}{
	{FlagS, "S"},
	{FlagC, "C"},
	{FlagZ, "Z"},
	{FlagO, "O"},
	{FlagP, "P"},
	{FlagD, "D"},
}

var jumpConditions = map[instruction.Mnemonic]struct {
	cc    rtl.ConditionCode
	flags uint32
}{
	"ja":  {rtl.CCUgt, FlagC | FlagZ},
	"jae": {rtl.CCUge, FlagC},
	"jb":  {rtl.CCUlt, FlagC},
	"jbe": {rtl.CCUle, FlagC | FlagZ},
	"je":  {rtl.CCEq, FlagZ},
	"jne": {rtl.CCNe, FlagZ},
	"jg":  {rtl.CCGt, FlagS | FlagZ | FlagO},
	"jge": {rtl.CCGe, FlagS | FlagO},
	"jl":  {rtl.CCLt, FlagS | FlagO},
	"jle": {rtl.CCLe, FlagS | FlagZ | FlagO},
	"jo":  {rtl.CCOv, FlagO},
	"jno": {rtl.CCNo, FlagO},
	"js":  {rtl.CCSg, FlagS},
	"jns": {rtl.CCNs, FlagS},
	"jp":  {rtl.CCPe, FlagP},
	"jnp": {rtl.CCPo, FlagP},
}

// counters are the count registers of jcxz and its wider forms.
var counters = map[instruction.Mnemonic]x86asm.Reg{
	"jcxz":  x86asm.CX,
	"jecxz": x86asm.ECX,
	"jrcxz": x86asm.RCX,
}

type rewriter struct {
	e     *rtl.Emitter
	instr *instruction.Instruction
	mode  int
}

func (r *rewriter) rewrite() error {
	m := r.instr.Mnemonic
	if c, ok := jumpConditions[m]; ok {
		return r.branch(&rtl.Test{CC: c.cc, Group: r.flag(c.flags)})
	}
	if counter, ok := counters[m]; ok {
		count := r.reg(register(counter))
		return r.branch(rtl.Eq(count, rtl.Int(0, count.Width())))
	}

	switch m {
	case "nop":
	case "hlt":
		r.e.Emit(&rtl.SideEffect{Expr: rtl.Fn("hlt", instruction.Unset)})
	case "int":
		return r.interrupt()

	case "mov":
		return r.move(func(x rtl.Expr) rtl.Expr { return x })
	case "movzx":
		return r.move(r.extend(false))
	case "movsx", "movsxd":
		return r.move(r.extend(true))
	case "lea":
		return r.loadAddress()

	case "add":
		return r.binary(rtl.OpAdd, flagsArithmetic)
	case "sub":
		return r.binary(rtl.OpSub, flagsArithmetic)
	case "adc":
		return r.binaryCarry(rtl.OpAdd)
	case "sbb":
		return r.binaryCarry(rtl.OpSub)
	case "and":
		return r.binary(rtl.OpAnd, flagsLogical)
	case "or":
		return r.binary(rtl.OpOr, flagsLogical)
	case "xor":
		return r.binary(rtl.OpXor, flagsLogical)
	case "cmp":
		return r.compare(rtl.OpSub, flagsArithmetic)
	case "test":
		return r.compare(rtl.OpAnd, flagsLogical)
	case "inc":
		return r.step(rtl.OpAdd)
	case "dec":
		return r.step(rtl.OpSub)
	case "neg":
		return r.unary(rtl.Neg, flagsArithmetic)
	case "not":
		return r.unary(rtl.Comp, flagEffect{})

	case "push":
		return r.push()
	case "pop":
		return r.pop()
	case "jmp":
		return r.jump()
	case "call":
		return r.call()
	case "ret":
		return r.ret()
	case "loop":
		return r.loop()

	case "movsb", "movsw", "movsd", "movsq":
		return r.stringMove(false)
	case "rep movsb", "rep movsw", "rep movsd", "rep movsq":
		return r.stringMove(true)

	default:
		return fmt.Errorf("%w: %s", rtl.ErrUnimplemented, m)
	}
	return nil
}

// flag returns the identifier of a group of status flags.
func (r *rewriter) flag(bits uint32) *rtl.Identifier {
	var name strings.Builder
	for _, f := range flagOrder {
		if bits&f.bit != 0 {
			name.WriteString(f.letter)
		}
	}
	return r.e.Binder().EnsureFlagGroup(Flags, bits, name.String())
}

// flags emits the cleared flags followed by the group derived from the
// result.
func (r *rewriter) flags(fe flagEffect, result rtl.Expr) {
	for _, f := range flagOrder {
		if fe.cleared&f.bit != 0 {
			r.e.Assign(r.flag(f.bit), rtl.False)
		}
	}
	if fe.derived != 0 {
		r.e.Assign(r.flag(fe.derived), &rtl.Cond{X: result})
	}
}

func (r *rewriter) pointerWidth() instruction.Width {
	return modeWidth(r.mode)
}

// reg returns the expression of a register. Registers narrower than the
// general registers of the mode are slices of them.
func (r *rewriter) reg(reg instruction.Register) rtl.Expr {
	n, offset, ok := general(x86asm.Reg(reg.Number))
	if !ok {
		return r.e.Reg(reg)
	}
	full := register(familyBase(r.mode) + x86asm.Reg(n))
	if reg.Width.Bits() >= full.Width.Bits() {
		return r.e.Reg(reg)
	}
	return &rtl.Slice{X: r.e.Reg(full), Offset: offset, DataWidth: reg.Width}
}

// stackPointer returns the stack pointer of the mode.
func (r *rewriter) stackPointer() rtl.Expr {
	return r.e.Reg(register(familyBase(r.mode) + x86asm.Reg(4)))
}

// effectiveAddress computes the address of a memory operand. The segments
// of the flat memory model are ignored, fs and gs are not supported.
func (r *rewriter) effectiveAddress(m *instruction.Memory) (rtl.Expr, error) {
	if m.Segment != nil {
		switch x86asm.Reg(m.Segment.Number) {
		case x86asm.FS, x86asm.GS:
			return nil, fmt.Errorf("%w: segment override %s", rtl.ErrUnimplemented, m.Segment.Name)
		}
	}

	var ea rtl.Expr
	if m.Base != nil {
		ea = r.reg(*m.Base)
	}
	if m.Index != nil {
		index := r.reg(*m.Index)
		if m.Scale > 1 {
			index = rtl.Apply(rtl.OpMul, index, rtl.Int(int64(m.Scale), index.Width()))
		}
		if ea == nil {
			ea = index
		} else {
			ea = rtl.Add(ea, index)
		}
	}

	switch {
	case ea == nil:
		return rtl.Word(uint64(m.Offset), r.pointerWidth()), nil
	case m.Offset > 0:
		return rtl.Add(ea, rtl.Int(m.Offset, ea.Width())), nil
	case m.Offset < 0:
		return rtl.Sub(ea, rtl.Int(-m.Offset, ea.Width())), nil
	default:
		return ea, nil
	}
}

// location lowers operand i to an expression that can be read and
// assigned.
func (r *rewriter) location(i int) (rtl.Expr, error) {
	switch op := r.instr.Operand(i).(type) {
	case *instruction.RegisterOperand:
		return r.reg(op.Register), nil
	case *instruction.Memory:
		if !op.DataWidth.IsSet() {
			return nil, fmt.Errorf("%w: memory operand %s without width", rtl.ErrUnimplemented, op)
		}
		ea, err := r.effectiveAddress(op)
		if err != nil {
			return nil, err
		}
		return rtl.Load(ea, op.DataWidth), nil
	default:
		return nil, fmt.Errorf("%w: operand %v is not a location", rtl.ErrUnimplemented, op)
	}
}

// source lowers operand i that is only read.
func (r *rewriter) source(i int) (rtl.Expr, error) {
	if imm, ok := r.instr.Operand(i).(*instruction.Immediate); ok {
		return rtl.Word(imm.Value, imm.DataWidth), nil
	}
	return r.location(i)
}

// store assigns value to a location and returns the expression holding
// the stored value. 32 bit results zero extend into the 64 bit register,
// narrower ones keep the other bits of the register.
func (r *rewriter) store(loc, value rtl.Expr) rtl.Expr {
	switch dst := loc.(type) {
	case *rtl.Slice:
		full := dst.X
		if dst.DataWidth == instruction.Word32 {
			r.e.Assign(full, &rtl.Cast{X: value, DataWidth: full.Width()})
			return dst
		}
		keep := rtl.Word(^(dst.DataWidth.Mask() << dst.Offset), full.Width())
		var part rtl.Expr = &rtl.Cast{X: value, DataWidth: full.Width()}
		if dst.Offset > 0 {
			part = rtl.Shl(part, rtl.Int(int64(dst.Offset), instruction.Byte))
		}
		r.e.Assign(full, rtl.Or(rtl.And(full, keep), part))
		return dst

	case *rtl.Mem:
		value = r.temporary(value)
		r.e.Assign(loc, value)
		return value

	default:
		r.e.Assign(loc, value)
		return loc
	}
}

// temporary returns value if it is a constant or an identifier, otherwise
// a temporary that was assigned the value.
func (r *rewriter) temporary(value rtl.Expr) rtl.Expr {
	switch value.(type) {
	case rtl.Constant, *rtl.Identifier:
		return value
	}
	t := r.e.Temp(value.Width())
	r.e.Assign(t, value)
	return t
}

func (r *rewriter) move(fn func(rtl.Expr) rtl.Expr) error {
	dst, err := r.location(0)
	if err != nil {
		return err
	}
	src, err := r.source(1)
	if err != nil {
		return err
	}
	r.store(dst, fn(src))
	return nil
}

// extend returns the conversion to the width of the destination.
func (r *rewriter) extend(signed bool) func(rtl.Expr) rtl.Expr {
	w := instruction.Word32
	if op := r.instr.Operand(0); op != nil {
		w = op.Width()
	}
	return func(x rtl.Expr) rtl.Expr {
		return &rtl.Cast{X: x, DataWidth: w, Signed: signed}
	}
}

func (r *rewriter) loadAddress() error {
	dst, err := r.location(0)
	if err != nil {
		return err
	}
	m, ok := r.instr.Operand(1).(*instruction.Memory)
	if !ok {
		return fmt.Errorf("%w: lea without memory operand", rtl.ErrUnimplemented)
	}
	ea, err := r.effectiveAddress(m)
	if err != nil {
		return err
	}
	r.store(dst, ea)
	return nil
}

// sameRegister returns whether both operands name the same register.
func (r *rewriter) sameRegister() bool {
	a, ok1 := r.instr.Operand(0).(*instruction.RegisterOperand)
	b, ok2 := r.instr.Operand(1).(*instruction.RegisterOperand)
	return ok1 && ok2 && a.Register == b.Register
}

// binary lowers the two operand arithmetic and logical instructions.
// Subtracting or xoring a register with itself clears it.
func (r *rewriter) binary(op rtl.Operator, fe flagEffect) error {
	dst, err := r.location(0)
	if err != nil {
		return err
	}
	src, err := r.source(1)
	if err != nil {
		return err
	}

	var value rtl.Expr = rtl.Apply(op, dst, src)
	if (op == rtl.OpXor || op == rtl.OpSub) && r.sameRegister() {
		value = rtl.Word(0, dst.Width())
	}
	r.flags(fe, r.store(dst, value))
	return nil
}

// binaryCarry lowers add and subtract with carry.
func (r *rewriter) binaryCarry(op rtl.Operator) error {
	dst, err := r.location(0)
	if err != nil {
		return err
	}
	src, err := r.source(1)
	if err != nil {
		return err
	}
	carry := &rtl.Cast{X: r.flag(FlagC), DataWidth: dst.Width()}
	r.flags(flagsArithmetic, r.store(dst, rtl.Apply(op, rtl.Apply(op, dst, src), carry)))
	return nil
}

// compare derives the flags from the operation without storing the result.
func (r *rewriter) compare(op rtl.Operator, fe flagEffect) error {
	left, err := r.source(0)
	if err != nil {
		return err
	}
	right, err := r.source(1)
	if err != nil {
		return err
	}
	r.flags(fe, rtl.Apply(op, left, right))
	return nil
}

// step lowers inc and dec, which keep the carry flag.
func (r *rewriter) step(op rtl.Operator) error {
	dst, err := r.location(0)
	if err != nil {
		return err
	}
	r.flags(flagsStep, r.store(dst, rtl.Apply(op, dst, rtl.Int(1, dst.Width()))))
	return nil
}

func (r *rewriter) unary(fn func(rtl.Expr) *rtl.Unary, fe flagEffect) error {
	dst, err := r.location(0)
	if err != nil {
		return err
	}
	result := r.store(dst, fn(dst))
	if fe.derived != 0 {
		r.flags(fe, result)
	}
	return nil
}

func (r *rewriter) push() error {
	src, err := r.source(0)
	if err != nil {
		return err
	}
	sp := r.stackPointer()
	r.e.Assign(sp, rtl.Sub(sp, rtl.Int(int64(src.Width().Size()), sp.Width())))
	r.e.Assign(rtl.Load(sp, src.Width()), src)
	return nil
}

func (r *rewriter) pop() error {
	dst, err := r.location(0)
	if err != nil {
		return err
	}
	sp := r.stackPointer()
	r.store(dst, rtl.Load(sp, dst.Width()))
	r.e.Assign(sp, rtl.Add(sp, rtl.Int(int64(dst.Width().Size()), sp.Width())))
	return nil
}

// target lowers the destination of a jump or call. Register and memory
// operands hold the destination address.
func (r *rewriter) target() (rtl.Expr, error) {
	if a, ok := r.instr.Operand(0).(*instruction.Address); ok {
		return r.e.Addr(a.Value), nil
	}
	return r.source(0)
}

func (r *rewriter) jump() error {
	target, err := r.target()
	if err != nil {
		return err
	}
	r.e.Emit(&rtl.Goto{Target: target})
	return nil
}

func (r *rewriter) call() error {
	target, err := r.target()
	if err != nil {
		return err
	}
	r.e.Emit(&rtl.Call{Target: target, ReturnSize: r.pointerWidth().Size()})
	return nil
}

// ret returns and releases the argument bytes of its optional operand.
func (r *rewriter) ret() error {
	var extra int
	if imm, ok := r.instr.Operand(0).(*instruction.Immediate); ok {
		extra = int(imm.Value)
	}
	r.e.Emit(&rtl.Return{ReturnSize: r.pointerWidth().Size(), Extra: extra})
	return nil
}

func (r *rewriter) interrupt() error {
	imm, ok := r.instr.Operand(0).(*instruction.Immediate)
	if !ok {
		return fmt.Errorf("%w: int without vector", rtl.ErrUnimplemented)
	}
	if imm.Value == 3 {
		r.e.Emit(&rtl.SideEffect{Expr: rtl.Fn("int3", instruction.Unset)})
		return nil
	}
	r.e.Emit(&rtl.SideEffect{Expr: rtl.Fn("int", instruction.Unset, rtl.Word(imm.Value, instruction.Byte))})
	return nil
}

func (r *rewriter) branch(cond rtl.Expr) error {
	a, ok := r.instr.Operand(0).(*instruction.Address)
	if !ok {
		return fmt.Errorf("%w: branch without target", rtl.ErrUnimplemented)
	}
	r.e.Emit(&rtl.Branch{Condition: cond, Target: r.e.Addr(a.Value)})
	return nil
}

// counter returns the count register of the given address width.
func (r *rewriter) counter(width instruction.Width) rtl.Expr {
	return r.reg(register(familyOf(width) + x86asm.Reg(1)))
}

// loop decrements the count register and branches while it is not zero.
func (r *rewriter) loop() error {
	count := r.counter(r.pointerWidth())
	r.store(count, rtl.Sub(count, rtl.Int(1, count.Width())))
	return r.branch(rtl.Ne(count, rtl.Int(0, count.Width())))
}

// stringMove copies one element from the source to the destination index
// register and advances both, assuming a clear direction flag. The repeated
// form skips to the next instruction when the count register is zero and
// otherwise loops back to itself after decrementing it.
func (r *rewriter) stringMove(repeat bool) error {
	dst, ok1 := r.instr.Operand(0).(*instruction.Memory)
	src, ok2 := r.instr.Operand(1).(*instruction.Memory)
	if !ok1 || !ok2 || dst.Base == nil || src.Base == nil || !dst.DataWidth.IsSet() {
		return fmt.Errorf("%w: %s operands", rtl.ErrUnimplemented, r.instr.Mnemonic)
	}
	di := r.reg(*dst.Base)
	si := r.reg(*src.Base)
	w := dst.DataWidth

	var count rtl.Expr
	if repeat {
		count = r.counter(dst.Base.Width)
		r.e.Emit(&rtl.Branch{
			Condition: rtl.Eq(count, rtl.Int(0, count.Width())),
			Target:    r.e.Addr(r.instr.Next()),
		})
	}

	t := r.e.Temp(w)
	r.e.Assign(t, rtl.Load(si, w))
	r.e.Assign(rtl.Load(di, w), t)
	r.store(si, rtl.Add(si, rtl.Int(int64(w.Size()), si.Width())))
	r.store(di, rtl.Add(di, rtl.Int(int64(w.Size()), di.Width())))

	if repeat {
		r.store(count, rtl.Sub(count, rtl.Int(1, count.Width())))
		r.e.Emit(&rtl.Goto{Target: r.e.Addr(r.instr.Address)})
	}
	return nil
}
