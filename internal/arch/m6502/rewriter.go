package m6502

import (
	"fmt"
	"strings"

	"github.com/retroenv/retrolift/internal/instruction"
	"github.com/retroenv/retrolift/internal/rtl"
)

const (
	flagsNZ   = FlagN | FlagZ
	flagsNZC  = FlagN | FlagZ | FlagC
	flagsNVZ  = FlagN | FlagV | FlagZ
	flagsNVZC = FlagN | FlagV | FlagZ | FlagC
)

// flagOrder is the order of the flag letters in flag group names.
var flagOrder = []struct {
	bit    uint32
	letter string
}{
	{FlagN, "N"},
	{FlagV, "V"},
	{FlagD, "D"},
	{FlagI, "I"},
	{FlagZ, "Z"},
	{FlagC, "C"},
}

var branches = map[instruction.Mnemonic]struct {
	cc   rtl.ConditionCode
	flag uint32
}{
	"bcc": {rtl.CCUge, FlagC},
	"bcs": {rtl.CCUlt, FlagC},
	"beq": {rtl.CCEq, FlagZ},
	"bne": {rtl.CCNe, FlagZ},
	"bmi": {rtl.CCSg, FlagN},
	"bpl": {rtl.CCNs, FlagN},
	"bvc": {rtl.CCNo, FlagV},
	"bvs": {rtl.CCOv, FlagV},
}

var flagChanges = map[instruction.Mnemonic]struct {
	flag  uint32
	value bool
}{
	"clc": {FlagC, false},
	"sec": {FlagC, true},
	"cli": {FlagI, false},
	"sei": {FlagI, true},
	"cld": {FlagD, false},
	"sed": {FlagD, true},
	"clv": {FlagV, false},
}

// Rewrite lowers a decoded instruction to its RTL cluster. Unofficial
// instructions that share the mnemonic of an official one lower like it,
// all other unofficial instructions are unimplemented.
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
	m := r.instr.Mnemonic
	if b, ok := branches[m]; ok {
		return r.branch(b.cc, b.flag)
	}
	if f, ok := flagChanges[m]; ok {
		r.e.Assign(r.flag(f.flag), rtl.Bool(f.value))
		return nil
	}

	switch m {
	case "nop":
	case "lda":
		return r.load(A)
	case "ldx":
		return r.load(X)
	case "ldy":
		return r.load(Y)
	case "sta":
		return r.store(A)
	case "stx":
		return r.store(X)
	case "sty":
		return r.store(Y)
	case "tax":
		r.transfer(A, X)
	case "tay":
		r.transfer(A, Y)
	case "txa":
		r.transfer(X, A)
	case "tya":
		r.transfer(Y, A)
	case "tsx":
		r.transfer(S, X)
	case "txs":
		r.e.Assign(r.e.Reg(S), r.e.Reg(X))
	case "adc":
		return r.arithmetic(rtl.OpAdd)
	case "sbc":
		return r.arithmetic(rtl.OpSub)
	case "and":
		return r.logical(rtl.OpAnd)
	case "ora":
		return r.logical(rtl.OpOr)
	case "eor":
		return r.logical(rtl.OpXor)
	case "cmp":
		return r.compare(A)
	case "cpx":
		return r.compare(X)
	case "cpy":
		return r.compare(Y)
	case "bit":
		return r.bit()
	case "inc":
		return r.modify(flagsNZ, func(x rtl.Expr) rtl.Expr { return rtl.Add(x, rtl.Int(1, instruction.Byte)) })
	case "dec":
		return r.modify(flagsNZ, func(x rtl.Expr) rtl.Expr { return rtl.Sub(x, rtl.Int(1, instruction.Byte)) })
	case "inx":
		r.step(X, rtl.OpAdd)
	case "iny":
		r.step(Y, rtl.OpAdd)
	case "dex":
		r.step(X, rtl.OpSub)
	case "dey":
		r.step(Y, rtl.OpSub)
	case "asl":
		return r.modify(flagsNZC, func(x rtl.Expr) rtl.Expr { return rtl.Shl(x, rtl.Int(1, instruction.Byte)) })
	case "lsr":
		return r.modify(flagsNZC, func(x rtl.Expr) rtl.Expr {
			return rtl.Apply(rtl.OpShrU, x, rtl.Int(1, instruction.Byte))
		})
	case "rol":
		return r.modify(flagsNZC, r.rotate("rolc"))
	case "ror":
		return r.modify(flagsNZC, r.rotate("rorc"))
	case "jmp":
		return r.jump()
	case "jsr":
		target, err := r.e.Read(r.instr.Operand(0))
		if err != nil {
			return err
		}
		r.e.Emit(&rtl.Call{Target: target, ReturnSize: 2})
	case "rts":
		r.e.Emit(&rtl.Return{ReturnSize: 2})
	case "rti":
		r.e.Emit(&rtl.Return{ReturnSize: 2, Extra: 1})
	case "pha":
		r.push(A)
	case "php":
		r.push(P)
	case "pla":
		r.pull(A)
		r.e.Assign(r.flag(flagsNZ), &rtl.Cond{X: r.e.Reg(A)})
	case "plp":
		r.pull(P)
	case "brk":
		r.e.Emit(&rtl.SideEffect{Expr: rtl.Fn("brk", instruction.Unset)})
	default:
		return fmt.Errorf("%w: %s", rtl.ErrUnimplemented, m)
	}
	return nil
}

// flag returns the flag group of the given P register bits.
func (r rewriter) flag(bits uint32) *rtl.Identifier {
	var name strings.Builder
	for _, f := range flagOrder {
		if bits&f.bit != 0 {
			name.WriteString(f.letter)
		}
	}
	return r.e.Binder().EnsureFlagGroup(P, bits, name.String())
}

func (r rewriter) flags(bits uint32, result rtl.Expr) {
	r.e.Assign(r.flag(bits), &rtl.Cond{X: result})
}

func (r rewriter) source() (rtl.Expr, error) {
	return r.e.Read(r.instr.Operand(0))
}

func (r rewriter) load(reg instruction.Register) error {
	src, err := r.source()
	if err != nil {
		return err
	}
	dst := r.e.Reg(reg)
	r.e.Assign(dst, src)
	r.flags(flagsNZ, dst)
	return nil
}

func (r rewriter) store(reg instruction.Register) error {
	dst, err := r.e.Location(r.instr.Operand(0))
	if err != nil {
		return err
	}
	r.e.Assign(dst, r.e.Reg(reg))
	return nil
}

func (r rewriter) transfer(from, to instruction.Register) {
	dst := r.e.Reg(to)
	r.e.Assign(dst, r.e.Reg(from))
	r.flags(flagsNZ, dst)
}

// arithmetic adds or subtracts with carry. Subtraction borrows if the carry
// is clear.
func (r rewriter) arithmetic(op rtl.Operator) error {
	src, err := r.source()
	if err != nil {
		return err
	}
	a := r.e.Reg(A)
	var carry rtl.Expr = r.flag(FlagC)
	if op == rtl.OpSub {
		carry = rtl.Not(carry)
	}
	r.e.Assign(a, rtl.Apply(op, rtl.Apply(op, a, src), carry))
	r.flags(flagsNVZC, a)
	return nil
}

func (r rewriter) logical(op rtl.Operator) error {
	src, err := r.source()
	if err != nil {
		return err
	}
	a := r.e.Reg(A)
	r.e.Assign(a, rtl.Apply(op, a, src))
	r.flags(flagsNZ, a)
	return nil
}

func (r rewriter) compare(reg instruction.Register) error {
	src, err := r.source()
	if err != nil {
		return err
	}
	r.flags(flagsNZC, rtl.Sub(r.e.Reg(reg), src))
	return nil
}

func (r rewriter) bit() error {
	src, err := r.source()
	if err != nil {
		return err
	}
	r.flags(flagsNVZ, rtl.And(r.e.Reg(A), src))
	return nil
}

// modify applies fn to the accumulator or a memory operand. Memory is
// updated through a temporary that the flags are derived from.
func (r rewriter) modify(bits uint32, fn func(rtl.Expr) rtl.Expr) error {
	loc, err := r.e.Location(r.instr.Operand(0))
	if err != nil {
		return err
	}
	result := loc
	if _, ok := loc.(*rtl.Identifier); ok {
		r.e.Assign(loc, fn(loc))
	} else {
		tmp := r.e.Temp(instruction.Byte)
		r.e.Assign(tmp, fn(loc))
		r.e.Assign(loc, tmp)
		result = tmp
	}
	r.flags(bits, result)
	return nil
}

func (r rewriter) step(reg instruction.Register, op rtl.Operator) {
	dst := r.e.Reg(reg)
	r.e.Assign(dst, rtl.Apply(op, dst, rtl.Int(1, instruction.Byte)))
	r.flags(flagsNZ, dst)
}

// rotate returns the rotation through the carry flag by one bit.
func (r rewriter) rotate(name string) func(rtl.Expr) rtl.Expr {
	return func(x rtl.Expr) rtl.Expr {
		return rtl.Fn(name, instruction.Byte, x, rtl.Int(1, instruction.Byte), r.flag(FlagC))
	}
}

func (r rewriter) branch(cc rtl.ConditionCode, bit uint32) error {
	target, ok := r.instr.Operand(0).(*instruction.Address)
	if !ok {
		return fmt.Errorf("%w: branch without target", rtl.ErrUnimplemented)
	}
	r.e.Emit(&rtl.Branch{
		Condition: &rtl.Test{CC: cc, Group: r.flag(bit)},
		Target:    r.e.Addr(target.Value),
	})
	return nil
}

func (r rewriter) jump() error {
	target, err := r.e.Read(r.instr.Operand(0))
	if err != nil {
		return err
	}
	r.e.Emit(&rtl.Goto{Target: target})
	return nil
}

// stackTop returns the stack slot addressed by s.
func (r rewriter) stackTop() rtl.Expr {
	offset := &rtl.Cast{X: r.e.Reg(S), DataWidth: instruction.Word16}
	return rtl.Load(rtl.Add(rtl.Word(stackPage, instruction.Word16), offset), instruction.Byte)
}

func (r rewriter) push(reg instruction.Register) {
	s := r.e.Reg(S)
	r.e.Assign(r.stackTop(), r.e.Reg(reg))
	r.e.Assign(s, rtl.Sub(s, rtl.Int(1, instruction.Byte)))
}

func (r rewriter) pull(reg instruction.Register) {
	s := r.e.Reg(S)
	r.e.Assign(s, rtl.Add(s, rtl.Int(1, instruction.Byte)))
	r.e.Assign(r.e.Reg(reg), r.stackTop())
}
