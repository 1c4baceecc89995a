package vax

import (
	"fmt"
	"strings"

	"github.com/retroenv/retrolift/internal/instruction"
	"github.com/retroenv/retrolift/internal/rtl"
)

// returnSize is the size of the return address pushed by calls.
const returnSize = 4

// flagEffect describes how an instruction updates the condition codes.
type flagEffect struct {
	derived uint32
	set     uint32
	cleared uint32
}

const (
	flagsNZ   = FlagN | FlagZ
	flagsNZV  = FlagN | FlagZ | FlagV
	flagsNZC  = FlagN | FlagZ | FlagC
	flagsNZVC = FlagN | FlagZ | FlagV | FlagC
)

var (
	flagsMove       = flagEffect{derived: flagsNZ, cleared: FlagV}
	flagsArithmetic = flagEffect{derived: flagsNZVC}
	flagsMultiply   = flagEffect{derived: flagsNZV, cleared: FlagC}
)

var flagOrder = []struct {
	bit    uint32
	letter string
}{
	{FlagN, "N"},
	{FlagZ, "Z"},
	{FlagV, "V"},
	{FlagC, "C"},
}

var branchConditions = map[instruction.Mnemonic]struct {
	cc    rtl.ConditionCode
	flags uint32
}{
	"bneq":  {rtl.CCNe, FlagZ},
	"beql":  {rtl.CCEq, FlagZ},
	"bgtr":  {rtl.CCGt, FlagN | FlagZ},
	"bleq":  {rtl.CCLe, FlagN | FlagZ},
	"bgeq":  {rtl.CCGe, FlagN},
	"blss":  {rtl.CCLt, FlagN},
	"bgtru": {rtl.CCUgt, FlagZ | FlagC},
	"blequ": {rtl.CCUle, FlagZ | FlagC},
	"bvc":   {rtl.CCNo, FlagV},
	"bvs":   {rtl.CCOv, FlagV},
	"bgequ": {rtl.CCUge, FlagC},
	"blssu": {rtl.CCUlt, FlagC},
}

// Rewrite lowers a decoded instruction to its RTL cluster. The octaword
// instructions of the second opcode page have no lowering.
func Rewrite(instr *instruction.Instruction, binder rtl.Binder) *rtl.Cluster {
	e := rtl.NewEmitter(instr, binder, instruction.Word32)
	if instr.IsInvalid() {
		return e.Cluster()
	}

	r := &rewriter{e: e, instr: instr}
	if err := r.rewrite(); err != nil {
		e.Unimplemented(err)
	}
	return e.Cluster()
}

type rewriter struct {
	e     *rtl.Emitter
	instr *instruction.Instruction
}

func (r *rewriter) rewrite() error {
	m := r.instr.Mnemonic
	if c, ok := branchConditions[m]; ok {
		return r.branch(&rtl.Test{CC: c.cc, Group: r.flag(c.flags)})
	}

	switch m {
	case "nop":
	case "halt", "bpt":
		r.e.Emit(&rtl.SideEffect{Expr: rtl.Fn(string(m), instruction.Unset)})
	case "rei":
		r.e.Emit(&rtl.Return{ReturnSize: returnSize, Extra: 4})
	case "ret", "rsb":
		r.e.Emit(&rtl.Return{ReturnSize: returnSize})

	case "brb", "brw", "jmp":
		return r.jump(r.instr.Operand(0))
	case "bsbb", "bsbw", "jsb":
		return r.call(r.instr.Operand(0))
	case "callg":
		return r.call(r.instr.Operand(1))
	case "calls":
		return r.callStack()
	case "blbs":
		return r.branchLowBit(rtl.OpNe)
	case "blbc":
		return r.branchLowBit(rtl.OpEq)
	case "aoblss":
		return r.addCompareBranch(rtl.OpLt)
	case "aobleq":
		return r.addCompareBranch(rtl.OpLe)
	case "sobgeq":
		return r.subtractBranch(rtl.OpGe)
	case "sobgtr":
		return r.subtractBranch(rtl.OpGt)

	case "movb", "movw", "movl", "movq":
		return r.move(func(x rtl.Expr) rtl.Expr { return x }, flagsMove)
	case "movzbl", "movzbw", "movzwl":
		return r.move(r.extend(false), flagEffect{derived: FlagZ, cleared: FlagN | FlagV})
	case "cvtbl", "cvtbw", "cvtwl", "cvtwb", "cvtlb", "cvtlw":
		return r.move(r.extend(true), flagsMultiply)
	case "mcomb", "mcomw", "mcoml":
		return r.move(func(x rtl.Expr) rtl.Expr { return rtl.Comp(x) }, flagsMove)
	case "mnegb", "mnegw", "mnegl":
		return r.move(func(x rtl.Expr) rtl.Expr { return rtl.Neg(x) }, flagsArithmetic)
	case "clrb", "clrw", "clrl", "clrq":
		return r.clear()
	case "tstb", "tstw", "tstl":
		return r.test()
	case "cmpb", "cmpw", "cmpl":
		return r.compare(rtl.OpSub, flagEffect{derived: flagsNZC, cleared: FlagV})
	case "bitb", "bitw", "bitl":
		return r.compare(rtl.OpAnd, flagsMove)
	case "incb", "incw", "incl":
		return r.step(rtl.OpAdd)
	case "decb", "decw", "decl":
		return r.step(rtl.OpSub)

	case "addb2", "addw2", "addl2", "addb3", "addw3", "addl3":
		return r.binary(rtl.OpAdd, flagsArithmetic)
	case "subb2", "subw2", "subl2", "subb3", "subw3", "subl3":
		return r.binary(rtl.OpSub, flagsArithmetic)
	case "mulb2", "mulw2", "mull2", "mulb3", "mulw3", "mull3":
		return r.binary(rtl.OpMulS, flagsMultiply)
	case "divb2", "divw2", "divl2", "divb3", "divw3", "divl3":
		return r.binary(rtl.OpDiv, flagsMultiply)
	case "bisb2", "bisw2", "bisl2", "bisb3", "bisw3", "bisl3":
		return r.binary(rtl.OpOr, flagsMove)
	case "bicb2", "bicw2", "bicl2", "bicb3", "bicw3", "bicl3":
		return r.binary(rtl.OpAnd, flagsMove)
	case "xorb2", "xorw2", "xorl2", "xorb3", "xorw3", "xorl3":
		return r.binary(rtl.OpXor, flagsMove)
	case "adwc":
		return r.binaryCarry(rtl.OpAdd)
	case "sbwc":
		return r.binaryCarry(rtl.OpSub)
	case "ashl", "ashq":
		return r.arithmeticShift()
	case "rotl":
		return r.rotate()

	case "pushl":
		return r.push()
	case "movab", "movaw", "moval", "movaq":
		return r.moveAddress()
	case "pushab", "pushaw", "pushal", "pushaq":
		return r.pushAddress()

	default:
		return fmt.Errorf("%w: %s", rtl.ErrUnimplemented, m)
	}
	return nil
}

// width returns the data width of operand i.
func (r *rewriter) width(i int) instruction.Width {
	widths := operandWidths()[r.instr.Mnemonic]
	if i < len(widths) {
		return widths[i]
	}
	return instruction.Word32
}

// flag returns the identifier of a group of condition code bits.
func (r *rewriter) flag(bits uint32) *rtl.Identifier {
	var name strings.Builder
	for _, f := range flagOrder {
		if bits&f.bit != 0 {
			name.WriteString(f.letter)
		}
	}
	return r.e.Binder().EnsureFlagGroup(PSW, bits, name.String())
}

// flags emits the condition code updates: constant flags in PSW order
// followed by the group derived from the result.
func (r *rewriter) flags(fe flagEffect, result rtl.Expr) {
	for _, f := range flagOrder {
		switch {
		case fe.set&f.bit != 0:
			r.e.Assign(r.flag(f.bit), rtl.True)
		case fe.cleared&f.bit != 0:
			r.e.Assign(r.flag(f.bit), rtl.False)
		}
	}
	if fe.derived != 0 {
		r.e.Assign(r.flag(fe.derived), &rtl.Cond{X: result})
	}
}

// register returns the part of a register that holds a value of width w.
// Quadwords occupy the register and its successor.
func (r *rewriter) register(reg instruction.Register, w instruction.Width) (rtl.Expr, error) {
	id := r.e.Reg(reg)
	switch {
	case w == instruction.Word32:
		return id, nil
	case w.Bits() < 32:
		return &rtl.Slice{X: id, DataWidth: w}, nil
	case w == instruction.Word64:
		next, ok := Reg(reg.Number + 1)
		if !ok {
			return nil, fmt.Errorf("%w: quadword in %s", rtl.ErrUnimplemented, reg.Name)
		}
		return &rtl.Seq{Parts: []rtl.Expr{r.e.Reg(next), id}, DataWidth: w}, nil
	default:
		return nil, fmt.Errorf("%w: %s operand in register", rtl.ErrUnimplemented, w)
	}
}

// location lowers operand i to an expression that can be read and
// assigned. PC relative addresses refer to memory.
func (r *rewriter) location(i int) (rtl.Expr, error) {
	w := r.width(i)
	switch op := r.instr.Operand(i).(type) {
	case *instruction.RegisterOperand:
		return r.register(op.Register, w)
	case *instruction.Address:
		return rtl.Load(rtl.Word(op.Value, instruction.Word32), w), nil
	case *instruction.Memory:
		return r.e.Location(op)
	default:
		return nil, fmt.Errorf("%w: operand %v is not a location", rtl.ErrUnimplemented, op)
	}
}

// source lowers operand i that is only read. Memory is loaded into a
// temporary first and a post increment of the operand is applied right
// after the load, so later operand specifiers see the updated register.
func (r *rewriter) source(i int) (rtl.Expr, error) {
	if imm, ok := r.instr.Operand(i).(*instruction.Immediate); ok {
		return rtl.Word(imm.Value, imm.DataWidth), nil
	}
	v, err := r.location(i)
	if err != nil {
		return nil, err
	}
	if _, ok := v.(*rtl.Mem); !ok {
		return v, nil
	}
	t := r.e.Temp(v.Width())
	r.e.Assign(t, v)
	r.e.FlushDeferred()
	return t, nil
}

// address lowers the operand of an address access to the address.
func (r *rewriter) address(i int) (rtl.Expr, error) {
	switch op := r.instr.Operand(i).(type) {
	case *instruction.Address:
		return rtl.Word(op.Value, instruction.Word32), nil
	case *instruction.Memory:
		return r.effectiveAddress(op)
	default:
		return nil, fmt.Errorf("%w: operand %v has no address", rtl.ErrUnimplemented, op)
	}
}

// effectiveAddress lowers the address of a memory operand. The address of
// an autoincrement operand is captured in a temporary before the register
// is incremented.
func (r *rewriter) effectiveAddress(m *instruction.Memory) (rtl.Expr, error) {
	ea, err := r.e.EffectiveAddress(m)
	if err != nil || m.Mode != instruction.PostIncrement {
		return ea, err
	}
	t := r.e.Temp(ea.Width())
	r.e.Assign(t, ea)
	r.e.FlushDeferred()
	return t, nil
}

// store assigns value to a location and returns the expression that holds
// the stored value afterwards. Partial registers keep their other bits,
// memory results go through a temporary.
func (r *rewriter) store(loc, value rtl.Expr) rtl.Expr {
	switch dst := loc.(type) {
	case *rtl.Slice:
		reg := dst.X
		keep := rtl.Word(^dst.DataWidth.Mask(), reg.Width())
		widened := &rtl.Cast{X: value, DataWidth: reg.Width()}
		r.e.Assign(reg, rtl.Or(rtl.And(reg, keep), widened))
		return dst

	case *rtl.Seq:
		hi, lo := dst.Parts[0], dst.Parts[1]
		if c, ok := value.(rtl.Constant); ok {
			r.e.Assign(lo, rtl.Word(c.Value, instruction.Word32))
			r.e.Assign(hi, rtl.Word(c.Value>>32, instruction.Word32))
			return dst
		}
		value = r.temporary(value)
		r.e.Assign(lo, &rtl.Slice{X: value, DataWidth: instruction.Word32})
		r.e.Assign(hi, &rtl.Slice{X: value, Offset: 32, DataWidth: instruction.Word32})
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

// finish stores the result into the last operand, applies the post
// increments of the instruction and updates the flags.
func (r *rewriter) finish(dst, value rtl.Expr, fe flagEffect) {
	result := r.store(dst, value)
	r.e.FlushDeferred()
	r.flags(fe, result)
}

func (r *rewriter) move(fn func(rtl.Expr) rtl.Expr, fe flagEffect) error {
	src, err := r.source(0)
	if err != nil {
		return err
	}
	dst, err := r.location(1)
	if err != nil {
		return err
	}
	r.finish(dst, fn(src), fe)
	return nil
}

// extend returns the conversion to the width of the destination. Wider
// destinations are sign or zero extended, narrower ones truncated.
func (r *rewriter) extend(signed bool) func(rtl.Expr) rtl.Expr {
	w := r.width(1)
	return func(x rtl.Expr) rtl.Expr {
		return &rtl.Cast{X: x, DataWidth: w, Signed: signed}
	}
}

func (r *rewriter) clear() error {
	dst, err := r.location(0)
	if err != nil {
		return err
	}
	r.store(dst, rtl.Word(0, r.width(0)))
	r.e.FlushDeferred()
	r.flags(flagEffect{set: FlagZ, cleared: FlagN | FlagV}, nil)
	return nil
}

func (r *rewriter) test() error {
	src, err := r.source(0)
	if err != nil {
		return err
	}
	r.e.FlushDeferred()
	r.flags(flagEffect{derived: flagsNZ, cleared: FlagV | FlagC}, src)
	return nil
}

// compare derives the flags from first op second without storing the
// result.
func (r *rewriter) compare(op rtl.Operator, fe flagEffect) error {
	left, err := r.source(0)
	if err != nil {
		return err
	}
	right, err := r.source(1)
	if err != nil {
		return err
	}
	r.e.FlushDeferred()
	r.flags(fe, rtl.Apply(op, left, right))
	return nil
}

func (r *rewriter) step(op rtl.Operator) error {
	dst, err := r.location(0)
	if err != nil {
		return err
	}
	r.finish(dst, rtl.Apply(op, dst, rtl.Int(1, dst.Width())), flagsArithmetic)
	return nil
}

// binary lowers the two operand form, which modifies its second operand,
// and the three operand form, which stores into the third operand. The
// second operand is the left side of the operation, bit clear complements
// the first operand.
func (r *rewriter) binary(op rtl.Operator, fe flagEffect) error {
	right, err := r.source(0)
	if err != nil {
		return err
	}
	if strings.HasPrefix(string(r.instr.Mnemonic), "bic") {
		right = rtl.Comp(right)
	}

	var left, dst rtl.Expr
	if len(r.instr.Operands) == 2 {
		if dst, err = r.location(1); err != nil {
			return err
		}
		left = dst
	} else {
		if left, err = r.source(1); err != nil {
			return err
		}
		if dst, err = r.location(2); err != nil {
			return err
		}
	}

	r.finish(dst, rtl.Apply(op, left, right), fe)
	return nil
}

// binaryCarry lowers add and subtract with carry.
func (r *rewriter) binaryCarry(op rtl.Operator) error {
	src, err := r.source(0)
	if err != nil {
		return err
	}
	dst, err := r.location(1)
	if err != nil {
		return err
	}
	carry := &rtl.Cast{X: r.flag(FlagC), DataWidth: dst.Width()}
	r.finish(dst, rtl.Apply(op, rtl.Apply(op, dst, src), carry), flagsArithmetic)
	return nil
}

// arithmeticShift shifts left by positive and right by negative counts.
// Counts that are not constant use an intrinsic.
func (r *rewriter) arithmeticShift() error {
	count, err := r.source(0)
	if err != nil {
		return err
	}
	src, err := r.source(1)
	if err != nil {
		return err
	}
	dst, err := r.location(2)
	if err != nil {
		return err
	}

	var value rtl.Expr
	c, ok := count.(rtl.Constant)
	switch n := int64(int8(c.Value)); {
	case !ok:
		value = rtl.Fn("ash", src.Width(), src, count)
	case n >= 0:
		value = rtl.Shl(src, rtl.Int(n, instruction.Byte))
	default:
		value = rtl.Apply(rtl.OpShr, src, rtl.Int(-n, instruction.Byte))
	}
	r.finish(dst, value, flagsMultiply)
	return nil
}

func (r *rewriter) rotate() error {
	count, err := r.source(0)
	if err != nil {
		return err
	}
	src, err := r.source(1)
	if err != nil {
		return err
	}
	dst, err := r.location(2)
	if err != nil {
		return err
	}
	r.finish(dst, rtl.Fn("rol", src.Width(), src, count), flagsMove)
	return nil
}

// pushValue decrements sp and stores the value on the stack.
func (r *rewriter) pushValue(value rtl.Expr) {
	sp := r.e.Reg(SP)
	r.e.Assign(sp, rtl.Sub(sp, r.e.Const(int64(value.Width().Size()))))
	r.e.Assign(rtl.Load(sp, value.Width()), value)
}

func (r *rewriter) push() error {
	src, err := r.source(0)
	if err != nil {
		return err
	}
	r.e.FlushDeferred()
	r.pushValue(src)
	r.flags(flagsMove, src)
	return nil
}

func (r *rewriter) moveAddress() error {
	ea, err := r.address(0)
	if err != nil {
		return err
	}
	dst, err := r.location(1)
	if err != nil {
		return err
	}
	r.finish(dst, ea, flagsMove)
	return nil
}

func (r *rewriter) pushAddress() error {
	ea, err := r.address(0)
	if err != nil {
		return err
	}
	value := r.temporary(ea)
	r.e.FlushDeferred()
	r.pushValue(value)
	r.flags(flagsMove, value)
	return nil
}

// target lowers the destination of a transfer.
func (r *rewriter) target(op instruction.Operand) (rtl.Expr, error) {
	switch o := op.(type) {
	case *instruction.Address:
		return r.e.Addr(o.Value), nil
	case *instruction.Memory:
		return r.effectiveAddress(o)
	default:
		return nil, fmt.Errorf("%w: transfer to %v", rtl.ErrUnimplemented, op)
	}
}

func (r *rewriter) jump(op instruction.Operand) error {
	target, err := r.target(op)
	if err != nil {
		return err
	}
	r.e.FlushDeferred()
	r.e.Emit(&rtl.Goto{Target: target})
	return nil
}

func (r *rewriter) call(op instruction.Operand) error {
	target, err := r.target(op)
	if err != nil {
		return err
	}
	r.e.FlushDeferred()
	r.e.Emit(&rtl.Call{Target: target, ReturnSize: returnSize})
	return nil
}

// callStack pushes the argument count before calling the procedure.
func (r *rewriter) callStack() error {
	count, err := r.source(0)
	if err != nil {
		return err
	}
	r.pushValue(count)
	return r.call(r.instr.Operand(1))
}

// branchTarget returns the branch displacement target, the last operand.
func (r *rewriter) branchTarget() (rtl.CodeAddress, error) {
	last := r.instr.Operand(len(r.instr.Operands) - 1)
	a, ok := last.(*instruction.Address)
	if !ok {
		return rtl.CodeAddress{}, fmt.Errorf("%w: branch without target", rtl.ErrUnimplemented)
	}
	return r.e.Addr(a.Value), nil
}

func (r *rewriter) branch(cond rtl.Expr) error {
	target, err := r.branchTarget()
	if err != nil {
		return err
	}
	r.e.FlushDeferred()
	r.e.Emit(&rtl.Branch{Condition: cond, Target: target})
	return nil
}

func (r *rewriter) branchLowBit(op rtl.Operator) error {
	src, err := r.source(0)
	if err != nil {
		return err
	}
	bit := rtl.And(src, rtl.Word(1, src.Width()))
	return r.branch(rtl.Apply(op, bit, rtl.Word(0, src.Width())))
}

// addCompareBranch increments the index and branches while it compares
// to the limit.
func (r *rewriter) addCompareBranch(op rtl.Operator) error {
	limit, err := r.source(0)
	if err != nil {
		return err
	}
	index, err := r.location(1)
	if err != nil {
		return err
	}
	result := r.store(index, rtl.Add(index, rtl.Int(1, index.Width())))
	r.e.FlushDeferred()
	r.flags(flagEffect{derived: flagsNZV}, result)
	return r.branch(rtl.Apply(op, result, limit))
}

// subtractBranch decrements the index and branches while it compares to
// zero.
func (r *rewriter) subtractBranch(op rtl.Operator) error {
	index, err := r.location(0)
	if err != nil {
		return err
	}
	result := r.store(index, rtl.Sub(index, rtl.Int(1, index.Width())))
	r.e.FlushDeferred()
	r.flags(flagEffect{derived: flagsNZV}, result)
	return r.branch(rtl.Apply(op, result, rtl.Int(0, index.Width())))
}
