package tlcs900

import (
	"fmt"
	"strings"

	"github.com/retroenv/retrolift/internal/instruction"
	"github.com/retroenv/retrolift/internal/rtl"
)

// flagEffect describes how an instruction updates the flags. Derived flags
// are computed from the result, set and cleared flags are constants.
type flagEffect struct {
	derived uint32
	set     uint32
	cleared uint32
}

const (
	flagsSZHVC = FlagS | FlagZ | FlagH | FlagV | FlagC
	flagsSZHV  = FlagS | FlagZ | FlagH | FlagV
	flagsSZVC  = FlagS | FlagZ | FlagV | FlagC
	flagsSZV   = FlagS | FlagZ | FlagV
)

var flagEffects = map[instruction.Mnemonic]flagEffect{
	"add":  {derived: flagsSZHVC, cleared: FlagN},
	"adc":  {derived: flagsSZHVC, cleared: FlagN},
	"sub":  {derived: flagsSZHVC, set: FlagN},
	"sbc":  {derived: flagsSZHVC, set: FlagN},
	"cp":   {derived: flagsSZHVC, set: FlagN},
	"inc":  {derived: flagsSZHV, cleared: FlagN},
	"dec":  {derived: flagsSZHV, set: FlagN},
	"neg":  {derived: flagsSZHVC, set: FlagN},
	"cpl":  {set: FlagH | FlagN},
	"and":  {derived: flagsSZV, set: FlagH, cleared: FlagN | FlagC},
	"or":   {derived: flagsSZV, cleared: FlagH | FlagN | FlagC},
	"xor":  {derived: flagsSZV, cleared: FlagH | FlagN | FlagC},
	"daa":  {derived: flagsSZHVC},
	"rld":  {derived: flagsSZV, cleared: FlagH | FlagN},
	"rrd":  {derived: flagsSZV, cleared: FlagH | FlagN},
	"rlc":  {derived: flagsSZVC, cleared: FlagH | FlagN},
	"rrc":  {derived: flagsSZVC, cleared: FlagH | FlagN},
	"rl":   {derived: flagsSZVC, cleared: FlagH | FlagN},
	"rr":   {derived: flagsSZVC, cleared: FlagH | FlagN},
	"sla":  {derived: flagsSZVC, cleared: FlagH | FlagN},
	"sra":  {derived: flagsSZVC, cleared: FlagH | FlagN},
	"sll":  {derived: flagsSZVC, cleared: FlagH | FlagN},
	"srl":  {derived: flagsSZVC, cleared: FlagH | FlagN},
	"bit":  {set: FlagH, cleared: FlagN},
	"tset": {set: FlagH, cleared: FlagN},
	"rcf":  {cleared: FlagH | FlagN | FlagC},
	"scf":  {set: FlagC, cleared: FlagH | FlagN},
	"ccf":  {cleared: FlagN},
	"zcf":  {cleared: FlagN},
}

// Rewrite lowers a decoded instruction to its RTL cluster. Instructions
// without a lowering produce an Unimplemented cluster.
func Rewrite(instr *instruction.Instruction, binder rtl.Binder) *rtl.Cluster {
	e := rtl.NewEmitter(instr, binder, long32)
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
	switch m := r.instr.Mnemonic; m {
	case "nop":
		return nil
	case "ld":
		return r.load()
	case "lda":
		return r.loadAddress()
	case "ex":
		return r.exchange()
	case "push":
		return r.push()
	case "pop":
		return r.pop()

	case "add", "sub", "and", "or", "xor":
		return r.arithmetic(r.op(0), r.op(1), false)
	case "adc", "sbc":
		return r.arithmetic(r.op(0), r.op(1), true)
	case "inc", "dec":
		return r.arithmetic(r.op(1), r.op(0), false)
	case "cp":
		return r.compare()
	case "neg", "cpl", "daa", "paa", "mirr":
		return r.unary()
	case "mul", "muls":
		return r.multiply()
	case "div", "divs":
		return r.divide()
	case "extz", "exts":
		return r.extend()
	case "rlc", "rrc", "rl", "rr", "sla", "sra", "sll", "srl":
		return r.shift()
	case "rld", "rrd":
		return r.rotateDigit()
	case "bs1f", "bs1b":
		return r.bitSearch()

	case "bit", "tset", "set", "res", "chg":
		return r.bitOperation()
	case "andcf", "orcf", "xorcf", "ldcf", "stcf":
		return r.carryOperation()
	case "rcf", "scf", "ccf", "zcf":
		return r.carryFlag()
	case "scc":
		return r.setCondition()

	case "ldi", "ldir", "ldd", "lddr", "ldiw", "ldirw", "lddw", "lddrw":
		return r.blockLoad()
	case "cpi", "cpir", "cpd", "cpdr", "cpiw", "cpirw", "cpdw", "cpdrw":
		return r.blockCompare()

	case "jp", "jr", "jrl":
		return r.jump()
	case "call":
		return r.call()
	case "calr":
		return r.callRelative()
	case "swi":
		return r.softwareInterrupt()
	case "ret", "retd", "reti":
		return r.ret()
	case "djnz":
		return r.decrementJump()

	case "link":
		return r.link()
	case "unlk":
		return r.unlink()
	case "ldc":
		return r.loadControl()
	case "halt", "incf", "decf":
		r.e.Emit(&rtl.SideEffect{Expr: rtl.Fn(string(m), instruction.Unset)})
		return nil
	case "ei", "ldf":
		return r.intrinsicImmediate()

	default:
		return fmt.Errorf("%w: %s", rtl.ErrUnimplemented, m)
	}
}

func (r *rewriter) op(i int) instruction.Operand {
	return r.instr.Operand(i)
}

// flag returns the identifier of a group of bits of the f register.
func (r *rewriter) flag(bits uint32) *rtl.Identifier {
	return r.e.Binder().EnsureFlagGroup(F, bits, flagGroupName(bits))
}

// flags emits the flag updates of the instruction: constant flags in
// register order followed by the group derived from the result.
func (r *rewriter) flags(result rtl.Expr) {
	fe, ok := flagEffects[r.instr.Mnemonic]
	if !ok {
		return
	}
	for _, f := range flagOrder {
		switch {
		case fe.set&f.bit != 0:
			r.e.Assign(r.flag(f.bit), rtl.True)
		case fe.cleared&f.bit != 0:
			r.e.Assign(r.flag(f.bit), rtl.False)
		}
	}
	if fe.derived != 0 && result != nil {
		r.e.Assign(r.flag(fe.derived), &rtl.Cond{X: result})
	}
}

// test returns the evaluation of an encoded condition.
func (r *rewriter) test(code int) rtl.Expr {
	c := conditions[code&0xf]
	return &rtl.Test{CC: c.cc, Group: r.flag(c.flags)}
}

// source lowers an operand that is only read, memory is loaded into a
// temporary first.
func (r *rewriter) source(op instruction.Operand) (rtl.Expr, error) {
	v, err := r.e.Read(op)
	if err != nil {
		return nil, err
	}
	if _, ok := v.(*rtl.Mem); !ok {
		return v, nil
	}
	t := r.e.Temp(v.Width())
	r.e.Assign(t, v)
	return t, nil
}

// store assigns a value to a location and returns the expression holding
// the result. Memory results go through a temporary.
func (r *rewriter) store(loc, value rtl.Expr) rtl.Expr {
	if _, ok := loc.(*rtl.Mem); !ok {
		r.e.Assign(loc, value)
		return loc
	}
	t := r.e.Temp(loc.Width())
	r.e.Assign(t, value)
	r.e.Assign(loc, t)
	return t
}

// register returns the register of a register operand.
func (r *rewriter) register(op instruction.Operand) (instruction.Register, error) {
	ro, ok := op.(*instruction.RegisterOperand)
	if !ok {
		return instruction.Register{}, fmt.Errorf("%w: operand %v is not a register", rtl.ErrUnimplemented, op)
	}
	return ro.Register, nil
}

func (r *rewriter) load() error {
	src, err := r.source(r.op(1))
	if err != nil {
		return err
	}
	dst, err := r.e.Location(r.op(0))
	if err != nil {
		return err
	}
	r.e.Assign(dst, fit(src, dst.Width()))
	return nil
}

// fit converts a value to width w. The extended register bc keeps its 16
// bits under the 32 bit prefix, its immediates are truncated.
func fit(value rtl.Expr, w instruction.Width) rtl.Expr {
	if !w.IsSet() || value.Width() == w {
		return value
	}
	if c, ok := value.(rtl.Constant); ok {
		return rtl.Word(c.Value, w)
	}
	return &rtl.Cast{X: value, DataWidth: w}
}

func (r *rewriter) loadAddress() error {
	dst, err := r.e.Location(r.op(0))
	if err != nil {
		return err
	}
	m, ok := r.op(1).(*instruction.Memory)
	if !ok {
		return fmt.Errorf("%w: lda without memory operand", rtl.ErrUnimplemented)
	}
	ea, err := r.e.EffectiveAddress(m)
	if err != nil {
		return err
	}
	r.e.Assign(dst, ea)
	return nil
}

func (r *rewriter) exchange() error {
	x, err := r.e.Location(r.op(0))
	if err != nil {
		return err
	}
	y, err := r.e.Location(r.op(1))
	if err != nil {
		return err
	}
	t := r.e.Temp(x.Width())
	r.e.Assign(t, x)
	r.e.Assign(x, y)
	r.e.Assign(y, t)
	return nil
}

func (r *rewriter) push() error {
	op := r.op(0)
	v, err := r.source(op)
	if err != nil {
		return err
	}
	w := op.Width()
	xsp := r.e.Reg(XSP)
	r.e.Assign(xsp, rtl.Sub(xsp, r.e.Const(int64(w.Size()))))
	r.e.Assign(rtl.Load(xsp, w), v)
	return nil
}

func (r *rewriter) pop() error {
	op := r.op(0)
	w := op.Width()
	xsp := r.e.Reg(XSP)
	if _, ok := op.(*instruction.Memory); !ok {
		dst, err := r.e.Location(op)
		if err != nil {
			return err
		}
		r.e.Assign(dst, rtl.Load(xsp, w))
		r.e.Assign(xsp, rtl.Add(xsp, r.e.Const(int64(w.Size()))))
		return nil
	}

	t := r.e.Temp(w)
	r.e.Assign(t, rtl.Load(xsp, w))
	r.e.Assign(xsp, rtl.Add(xsp, r.e.Const(int64(w.Size()))))
	dst, err := r.e.Location(op)
	if err != nil {
		return err
	}
	r.e.Assign(dst, t)
	return nil
}

var arithmeticOperators = map[instruction.Mnemonic]rtl.Operator{
	"add": rtl.OpAdd,
	"adc": rtl.OpAdd,
	"inc": rtl.OpAdd,
	"sub": rtl.OpSub,
	"sbc": rtl.OpSub,
	"dec": rtl.OpSub,
	"and": rtl.OpAnd,
	"or":  rtl.OpOr,
	"xor": rtl.OpXor,
}

// arithmetic lowers dst = dst op src, adding the carry flag for adc and
// sbc.
func (r *rewriter) arithmetic(dstOp, srcOp instruction.Operand, carry bool) error {
	src, err := r.source(srcOp)
	if err != nil {
		return err
	}
	dst, err := r.e.Location(dstOp)
	if err != nil {
		return err
	}

	operator := arithmeticOperators[r.instr.Mnemonic]
	value := rtl.Apply(operator, dst, src)
	if carry {
		value = rtl.Apply(operator, value, &rtl.Cast{X: r.flag(FlagC), DataWidth: dst.Width()})
	}
	result := r.store(dst, value)
	r.e.FlushDeferred()
	r.flags(result)
	return nil
}

func (r *rewriter) compare() error {
	src, err := r.source(r.op(1))
	if err != nil {
		return err
	}
	left, err := r.source(r.op(0))
	if err != nil {
		return err
	}
	r.e.FlushDeferred()
	r.flags(rtl.Sub(left, src))
	return nil
}

func (r *rewriter) unary() error {
	dst, err := r.e.Location(r.op(0))
	if err != nil {
		return err
	}

	var value rtl.Expr
	switch m := r.instr.Mnemonic; m {
	case "neg":
		value = rtl.Neg(dst)
	case "cpl":
		value = rtl.Comp(dst)
	default:
		value = rtl.Fn(string(m), dst.Width(), dst)
	}
	result := r.store(dst, value)
	r.flags(result)
	return nil
}

func (r *rewriter) multiply() error {
	reg, err := r.register(r.op(0))
	if err != nil {
		return err
	}
	wide, ok := widen(reg)
	if !ok {
		return fmt.Errorf("%w: no product register for %s", rtl.ErrUnimplemented, reg)
	}
	src, err := r.source(r.op(1))
	if err != nil {
		return err
	}

	operator := rtl.OpMulU
	if r.instr.Mnemonic == "muls" {
		operator = rtl.OpMulS
	}
	r.e.Assign(r.e.Reg(wide), rtl.Apply(operator, r.e.Reg(reg), src))
	return nil
}

// divide stores the quotient in the low and the remainder in the high half
// of the dividend register.
func (r *rewriter) divide() error {
	reg, err := r.register(r.op(0))
	if err != nil {
		return err
	}
	wide, ok := widen(reg)
	if !ok {
		return fmt.Errorf("%w: no dividend register for %s", rtl.ErrUnimplemented, reg)
	}
	low, high, ok := halves(wide)
	if !ok {
		return fmt.Errorf("%w: no quotient register for %s", rtl.ErrUnimplemented, wide)
	}
	src, err := r.source(r.op(1))
	if err != nil {
		return err
	}

	div, mod := rtl.OpDivU, rtl.OpModU
	if r.instr.Mnemonic == "divs" {
		div, mod = rtl.OpDiv, rtl.OpMod
	}
	dividend := r.e.Temp(wide.Width)
	r.e.Assign(dividend, r.e.Reg(wide))
	quotient := r.e.Reg(low)
	r.e.Assign(quotient, rtl.Apply(div, dividend, src))
	r.e.Assign(r.e.Reg(high), rtl.Apply(mod, dividend, src))
	r.e.Assign(r.flag(FlagV), &rtl.Cond{X: quotient})
	return nil
}

func (r *rewriter) extend() error {
	reg, err := r.register(r.op(0))
	if err != nil {
		return err
	}
	low, _, ok := halves(reg)
	if !ok {
		return fmt.Errorf("%w: %s can not be extended", rtl.ErrUnimplemented, reg)
	}
	r.e.Assign(r.e.Reg(reg), &rtl.Cast{
		X:         r.e.Reg(low),
		DataWidth: reg.Width,
		Signed:    r.instr.Mnemonic == "exts",
	})
	return nil
}

func (r *rewriter) shift() error {
	var count rtl.Expr
	dstOp := r.op(0)
	if len(r.instr.Operands) == 1 {
		count = rtl.Word(1, byte8)
	} else {
		c, err := r.e.Read(r.op(0))
		if err != nil {
			return err
		}
		count, dstOp = c, r.op(1)
	}
	dst, err := r.e.Location(dstOp)
	if err != nil {
		return err
	}

	var value rtl.Expr
	switch m := r.instr.Mnemonic; m {
	case "sla", "sll":
		value = rtl.Shl(dst, count)
	case "sra":
		value = rtl.Apply(rtl.OpShr, dst, count)
	case "srl":
		value = rtl.Apply(rtl.OpShrU, dst, count)
	case "rlc":
		value = rtl.Fn("rol", dst.Width(), dst, count)
	case "rrc":
		value = rtl.Fn("ror", dst.Width(), dst, count)
	case "rl":
		value = rtl.Fn("rolc", dst.Width(), dst, count, r.flag(FlagC))
	default:
		value = rtl.Fn("rorc", dst.Width(), dst, count, r.flag(FlagC))
	}
	result := r.store(dst, value)
	r.e.FlushDeferred()
	r.flags(result)
	return nil
}

// rotateDigit rotates the nibbles of a and the memory byte.
func (r *rewriter) rotateDigit() error {
	mem, err := r.e.Location(r.op(1))
	if err != nil {
		return err
	}
	a := r.e.Reg(A)
	name := string(r.instr.Mnemonic)
	t := r.e.Temp(byte8)
	r.e.Assign(t, mem)
	r.e.Assign(mem, rtl.Fn(name, byte8, a, t))
	r.e.Assign(a, rtl.Fn(name+"_a", byte8, a, t))
	r.e.FlushDeferred()
	r.flags(a)
	return nil
}

func (r *rewriter) bitSearch() error {
	src, err := r.e.Location(r.op(1))
	if err != nil {
		return err
	}
	a := r.e.Reg(A)
	r.e.Assign(a, rtl.Fn(string(r.instr.Mnemonic), byte8, src))
	r.e.Assign(r.flag(FlagV), rtl.Eq(src, rtl.Word(0, src.Width())))
	return nil
}

// bitNumber returns the bit selected by the first operand, immediate bit
// numbers are masked to the width of the tested value.
func (r *rewriter) bitNumber(w instruction.Width) (rtl.Expr, error) {
	if imm, ok := r.op(0).(*instruction.Immediate); ok {
		return rtl.Word(imm.Value&uint64(w.Bits()-1), byte8), nil
	}
	return r.e.Read(r.op(0))
}

func (r *rewriter) bitOperation() error {
	dst, err := r.e.Location(r.op(1))
	if err != nil {
		return err
	}
	n, err := r.bitNumber(dst.Width())
	if err != nil {
		return err
	}
	w := dst.Width()
	mask := rtl.Bit(n, w)

	switch r.instr.Mnemonic {
	case "bit", "tset":
		r.e.Assign(r.flag(FlagZ), rtl.Eq(rtl.And(dst, mask), rtl.Word(0, w)))
		if r.instr.Mnemonic == "tset" {
			r.store(dst, rtl.Or(dst, mask))
		}
		r.e.FlushDeferred()
		r.flags(nil)
	case "set":
		r.store(dst, rtl.Or(dst, mask))
	case "res":
		r.store(dst, rtl.And(dst, rtl.Comp(mask)))
	default:
		r.store(dst, rtl.Xor(dst, mask))
	}
	return nil
}

// carryOperation combines the carry flag with a bit of a register or
// memory byte.
func (r *rewriter) carryOperation() error {
	dst, err := r.e.Location(r.op(1))
	if err != nil {
		return err
	}
	n, err := r.bitNumber(dst.Width())
	if err != nil {
		return err
	}
	w := dst.Width()
	mask := rtl.Bit(n, w)
	c := r.flag(FlagC)
	isSet := rtl.Ne(rtl.And(dst, mask), rtl.Word(0, w))

	switch r.instr.Mnemonic {
	case "ldcf":
		r.e.Assign(c, isSet)
	case "andcf":
		r.e.Assign(c, rtl.Apply(rtl.OpCand, c, isSet))
	case "orcf":
		r.e.Assign(c, rtl.Apply(rtl.OpCor, c, isSet))
	case "xorcf":
		r.e.Assign(c, rtl.Xor(c, isSet))
	default:
		carry := rtl.Shl(&rtl.Cast{X: c, DataWidth: w}, n)
		r.store(dst, rtl.Or(rtl.And(dst, rtl.Comp(mask)), carry))
	}
	return nil
}

func (r *rewriter) carryFlag() error {
	r.flags(nil)
	c := r.flag(FlagC)
	switch r.instr.Mnemonic {
	case "ccf":
		r.e.Assign(c, rtl.Not(c))
	case "zcf":
		r.e.Assign(c, rtl.Not(r.flag(FlagZ)))
	}
	return nil
}

func (r *rewriter) setCondition() error {
	cond, ok := r.op(0).(*instruction.Condition)
	dstOp := r.op(1)
	if !ok {
		dstOp = r.op(0)
	}
	dst, err := r.e.Location(dstOp)
	if err != nil {
		return err
	}
	w := dst.Width()

	switch {
	case !ok:
		r.e.Assign(dst, rtl.Word(1, w))
	case cond.Code == condNever:
		r.e.Assign(dst, rtl.Word(0, w))
	default:
		r.e.Assign(dst, &rtl.Cast{X: r.test(cond.Code), DataWidth: w})
	}
	return nil
}

// blockParameters returns the access width and the address step of a
// block transfer or compare mnemonic.
func (r *rewriter) blockParameters() (base string, w instruction.Width, step int64) {
	base = string(r.instr.Mnemonic)
	w, step = byte8, 1
	if strings.HasSuffix(base, "w") {
		base = strings.TrimSuffix(base, "w")
		w, step = word16, 2
	}
	if strings.HasPrefix(base, "ldd") || strings.HasPrefix(base, "cpd") {
		step = -step
	}
	return base, w, step
}

func (r *rewriter) advance(reg *rtl.Identifier, step int64) {
	if step < 0 {
		r.e.Assign(reg, rtl.Sub(reg, r.e.Const(-step)))
		return
	}
	r.e.Assign(reg, rtl.Add(reg, r.e.Const(step)))
}

func (r *rewriter) blockLoad() error {
	base, w, step := r.blockParameters()
	xhl, xde, bc := r.e.Reg(XHL), r.e.Reg(XDE), r.e.Reg(BC)
	zero := rtl.Word(0, word16)

	t := r.e.Temp(w)
	r.e.Assign(t, rtl.Load(xhl, w))
	r.e.Assign(rtl.Load(xde, w), t)
	r.advance(xhl, step)
	r.advance(xde, step)
	r.e.Assign(bc, rtl.Sub(bc, rtl.Int(1, word16)))

	repeat := strings.HasSuffix(base, "r")
	if repeat {
		r.e.Emit(&rtl.Branch{Condition: rtl.Ne(bc, zero), Target: r.e.Addr(r.instr.Address)})
	}
	r.e.Assign(r.flag(FlagH), rtl.False)
	if repeat {
		r.e.Assign(r.flag(FlagV), rtl.False)
	} else {
		r.e.Assign(r.flag(FlagV), rtl.Ne(bc, zero))
	}
	r.e.Assign(r.flag(FlagN), rtl.False)
	return nil
}

func (r *rewriter) blockCompare() error {
	base, w, step := r.blockParameters()
	xhl, bc := r.e.Reg(XHL), r.e.Reg(BC)
	zero := rtl.Word(0, word16)
	acc := r.e.Reg(A)
	if w == word16 {
		acc = r.e.Reg(WA)
	}

	t := r.e.Temp(w)
	r.e.Assign(t, rtl.Load(xhl, w))
	r.advance(xhl, step)
	r.e.Assign(bc, rtl.Sub(bc, rtl.Int(1, word16)))
	r.e.Assign(r.flag(FlagS|FlagZ|FlagH), &rtl.Cond{X: rtl.Sub(acc, t)})
	r.e.Assign(r.flag(FlagV), rtl.Ne(bc, zero))
	r.e.Assign(r.flag(FlagN), rtl.True)

	if strings.HasSuffix(base, "r") {
		again := rtl.Apply(rtl.OpCand, rtl.Ne(bc, zero), &rtl.Test{CC: rtl.CCNe, Group: r.flag(FlagZ)})
		r.e.Emit(&rtl.Branch{Condition: again, Target: r.e.Addr(r.instr.Address)})
	}
	return nil
}

func (r *rewriter) link() error {
	dst, err := r.e.Location(r.op(0))
	if err != nil {
		return err
	}
	imm, ok := r.op(1).(*instruction.Immediate)
	if !ok {
		return fmt.Errorf("%w: link without frame size", rtl.ErrUnimplemented)
	}
	xsp := r.e.Reg(XSP)
	r.e.Assign(xsp, rtl.Sub(xsp, r.e.Const(4)))
	r.e.Assign(rtl.Load(xsp, long32), dst)
	r.e.Assign(dst, xsp)
	r.advance(xsp, imm.Int())
	return nil
}

func (r *rewriter) unlink() error {
	dst, err := r.e.Location(r.op(0))
	if err != nil {
		return err
	}
	xsp := r.e.Reg(XSP)
	r.e.Assign(xsp, dst)
	r.e.Assign(dst, rtl.Load(xsp, long32))
	r.e.Assign(xsp, rtl.Add(xsp, r.e.Const(4)))
	return nil
}

// loadControl moves between a register and a control register, which are
// modeled as intrinsics.
func (r *rewriter) loadControl() error {
	if imm, ok := r.op(0).(*instruction.Immediate); ok {
		src, err := r.e.Read(r.op(1))
		if err != nil {
			return err
		}
		r.e.Emit(&rtl.SideEffect{Expr: rtl.Fn("set_cr", instruction.Unset, rtl.Word(imm.Value, byte8), src)})
		return nil
	}

	dst, err := r.e.Location(r.op(0))
	if err != nil {
		return err
	}
	imm, ok := r.op(1).(*instruction.Immediate)
	if !ok {
		return fmt.Errorf("%w: ldc without control register", rtl.ErrUnimplemented)
	}
	r.e.Assign(dst, rtl.Fn("get_cr", dst.Width(), rtl.Word(imm.Value, byte8)))
	return nil
}

func (r *rewriter) intrinsicImmediate() error {
	v, err := r.e.Read(r.op(0))
	if err != nil {
		return err
	}
	r.e.Emit(&rtl.SideEffect{Expr: rtl.Fn(string(r.instr.Mnemonic), instruction.Unset, v)})
	return nil
}
