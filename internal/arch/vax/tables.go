package vax

import (
	"sync"

	"github.com/retroenv/retrolift/internal/decoder"
	"github.com/retroenv/retrolift/internal/instruction"
)

// Operand specifiers, named by access type and data type like in the
// architecture handbook.
var (
	rb = operandSpec{read, instruction.Byte}
	rw = operandSpec{read, instruction.Word16}
	rl = operandSpec{read, instruction.Word32}
	rq = operandSpec{read, instruction.Word64}
	ro = operandSpec{read, instruction.Word128}
	wb = operandSpec{write, instruction.Byte}
	ww = operandSpec{write, instruction.Word16}
	wl = operandSpec{write, instruction.Word32}
	wq = operandSpec{write, instruction.Word64}
	wo = operandSpec{write, instruction.Word128}
	mb = operandSpec{modify, instruction.Byte}
	mw = operandSpec{modify, instruction.Word16}
	ml = operandSpec{modify, instruction.Word32}
	ab = operandSpec{address, instruction.Byte}
	aw = operandSpec{address, instruction.Word16}
	al = operandSpec{address, instruction.Word32}
	aq = operandSpec{address, instruction.Word64}
	ao = operandSpec{address, instruction.Word128}
)

const (
	linear = instruction.Linear
	jump   = instruction.Transfer
	cond   = instruction.Transfer | instruction.Conditional
	call   = instruction.Transfer | instruction.Call
	ret    = instruction.Transfer | instruction.Return
	system = instruction.Transfer | instruction.Privileged
)

// opcode describes one instruction encoding. A set branch width appends a
// branch displacement after the operand specifiers.
type opcode struct {
	mnemonic instruction.Mnemonic
	class    instruction.Class
	operands []operandSpec
	branch   instruction.Width
}

func op(m instruction.Mnemonic, class instruction.Class, operands ...operandSpec) opcode {
	return opcode{mnemonic: m, class: class, operands: operands}
}

func br(m instruction.Mnemonic, class instruction.Class, w instruction.Width, operands ...operandSpec) opcode {
	return opcode{mnemonic: m, class: class, operands: operands, branch: w}
}

// terminal returns the decoder node of the opcode.
func (o opcode) terminal() decoder.Node {
	mutators := make([]decoder.Mutator, 0, len(o.operands)+1)
	for _, operand := range o.operands {
		mutators = append(mutators, operand.mutator())
	}
	if o.branch.IsSet() {
		mutators = append(mutators, decoder.RelTarget(o.branch, instruction.Word32))
	}
	return decoder.Instr(o.mnemonic, o.class, mutators...)
}

// escapeFD is the prefix byte of the second opcode page.
const escapeFD = 0xfd

// oneByteOpcodes is the integer subset of the first opcode page.
var oneByteOpcodes = map[byte]opcode{
	0x00: op("halt", system),
	0x01: op("nop", linear),
	0x02: op("rei", ret),
	0x03: op("bpt", linear),
	0x04: op("ret", ret),
	0x05: op("rsb", ret),

	0x10: br("bsbb", call, instruction.Byte),
	0x11: br("brb", jump, instruction.Byte),
	0x12: br("bneq", cond, instruction.Byte),
	0x13: br("beql", cond, instruction.Byte),
	0x14: br("bgtr", cond, instruction.Byte),
	0x15: br("bleq", cond, instruction.Byte),
	0x16: op("jsb", call, ab),
	0x17: op("jmp", jump, ab),
	0x18: br("bgeq", cond, instruction.Byte),
	0x19: br("blss", cond, instruction.Byte),
	0x1a: br("bgtru", cond, instruction.Byte),
	0x1b: br("blequ", cond, instruction.Byte),
	0x1c: br("bvc", cond, instruction.Byte),
	0x1d: br("bvs", cond, instruction.Byte),
	0x1e: br("bgequ", cond, instruction.Byte),
	0x1f: br("blssu", cond, instruction.Byte),

	0x30: br("bsbw", call, instruction.Word16),
	0x31: br("brw", jump, instruction.Word16),
	0x32: op("cvtwl", linear, rw, wl),
	0x33: op("cvtwb", linear, rw, wb),
	0x3c: op("movzwl", linear, rw, wl),
	0x3e: op("movaw", linear, aw, wl),
	0x3f: op("pushaw", linear, aw),

	0x78: op("ashl", linear, rb, rl, wl),
	0x79: op("ashq", linear, rb, rq, wq),
	0x7c: op("clrq", linear, wq),
	0x7d: op("movq", linear, rq, wq),
	0x7e: op("movaq", linear, aq, wl),
	0x7f: op("pushaq", linear, aq),

	0x80: op("addb2", linear, rb, mb),
	0x81: op("addb3", linear, rb, rb, wb),
	0x82: op("subb2", linear, rb, mb),
	0x83: op("subb3", linear, rb, rb, wb),
	0x84: op("mulb2", linear, rb, mb),
	0x85: op("mulb3", linear, rb, rb, wb),
	0x86: op("divb2", linear, rb, mb),
	0x87: op("divb3", linear, rb, rb, wb),
	0x88: op("bisb2", linear, rb, mb),
	0x89: op("bisb3", linear, rb, rb, wb),
	0x8a: op("bicb2", linear, rb, mb),
	0x8b: op("bicb3", linear, rb, rb, wb),
	0x8c: op("xorb2", linear, rb, mb),
	0x8d: op("xorb3", linear, rb, rb, wb),
	0x8e: op("mnegb", linear, rb, wb),

	0x90: op("movb", linear, rb, wb),
	0x91: op("cmpb", linear, rb, rb),
	0x92: op("mcomb", linear, rb, wb),
	0x93: op("bitb", linear, rb, rb),
	0x94: op("clrb", linear, wb),
	0x95: op("tstb", linear, rb),
	0x96: op("incb", linear, mb),
	0x97: op("decb", linear, mb),
	0x98: op("cvtbl", linear, rb, wl),
	0x99: op("cvtbw", linear, rb, ww),
	0x9a: op("movzbl", linear, rb, wl),
	0x9b: op("movzbw", linear, rb, ww),
	0x9c: op("rotl", linear, rb, rl, wl),
	0x9e: op("movab", linear, ab, wl),
	0x9f: op("pushab", linear, ab),

	0xa0: op("addw2", linear, rw, mw),
	0xa1: op("addw3", linear, rw, rw, ww),
	0xa2: op("subw2", linear, rw, mw),
	0xa3: op("subw3", linear, rw, rw, ww),
	0xa4: op("mulw2", linear, rw, mw),
	0xa5: op("mulw3", linear, rw, rw, ww),
	0xa6: op("divw2", linear, rw, mw),
	0xa7: op("divw3", linear, rw, rw, ww),
	0xa8: op("bisw2", linear, rw, mw),
	0xa9: op("bisw3", linear, rw, rw, ww),
	0xaa: op("bicw2", linear, rw, mw),
	0xab: op("bicw3", linear, rw, rw, ww),
	0xac: op("xorw2", linear, rw, mw),
	0xad: op("xorw3", linear, rw, rw, ww),
	0xae: op("mnegw", linear, rw, ww),

	0xb0: op("movw", linear, rw, ww),
	0xb1: op("cmpw", linear, rw, rw),
	0xb2: op("mcomw", linear, rw, ww),
	0xb3: op("bitw", linear, rw, rw),
	0xb4: op("clrw", linear, ww),
	0xb5: op("tstw", linear, rw),
	0xb6: op("incw", linear, mw),
	0xb7: op("decw", linear, mw),

	0xc0: op("addl2", linear, rl, ml),
	0xc1: op("addl3", linear, rl, rl, wl),
	0xc2: op("subl2", linear, rl, ml),
	0xc3: op("subl3", linear, rl, rl, wl),
	0xc4: op("mull2", linear, rl, ml),
	0xc5: op("mull3", linear, rl, rl, wl),
	0xc6: op("divl2", linear, rl, ml),
	0xc7: op("divl3", linear, rl, rl, wl),
	0xc8: op("bisl2", linear, rl, ml),
	0xc9: op("bisl3", linear, rl, rl, wl),
	0xca: op("bicl2", linear, rl, ml),
	0xcb: op("bicl3", linear, rl, rl, wl),
	0xcc: op("xorl2", linear, rl, ml),
	0xcd: op("xorl3", linear, rl, rl, wl),
	0xce: op("mnegl", linear, rl, wl),

	0xd0: op("movl", linear, rl, wl),
	0xd1: op("cmpl", linear, rl, rl),
	0xd2: op("mcoml", linear, rl, wl),
	0xd3: op("bitl", linear, rl, rl),
	0xd4: op("clrl", linear, wl),
	0xd5: op("tstl", linear, rl),
	0xd6: op("incl", linear, ml),
	0xd7: op("decl", linear, ml),
	0xd8: op("adwc", linear, rl, ml),
	0xd9: op("sbwc", linear, rl, ml),
	0xdd: op("pushl", linear, rl),
	0xde: op("moval", linear, al, wl),
	0xdf: op("pushal", linear, al),

	0xe8: br("blbs", cond, instruction.Byte, rl),
	0xe9: br("blbc", cond, instruction.Byte, rl),

	0xf2: br("aoblss", cond, instruction.Byte, rl, ml),
	0xf3: br("aobleq", cond, instruction.Byte, rl, ml),
	0xf4: br("sobgeq", cond, instruction.Byte, ml),
	0xf5: br("sobgtr", cond, instruction.Byte, ml),
	0xf6: op("cvtlb", linear, rl, wb),
	0xf7: op("cvtlw", linear, rl, ww),
	0xfa: op("callg", call, ab, ab),
	0xfb: op("calls", call, rl, ab),
}

// escapeOpcodes is the octaword subset of the second opcode page, which
// decodes but has no lowering.
var escapeOpcodes = map[byte]opcode{
	0x7c: op("clro", linear, wo),
	0x7d: op("movo", linear, ro, wo),
	0x7e: op("movao", linear, ao, wl),
	0x7f: op("pushao", linear, ao),
}

// rootTable returns the opcode tables, generated on first use.
var rootTable = sync.OnceValue(func() *decoder.Dispatch {
	escape := buildTable(escapeOpcodes)

	b := &decoder.Builder{}
	b.RangeFunc(0x00, 0xff, func(op byte) decoder.Node {
		if op == escapeFD {
			return escape
		}
		return node(oneByteOpcodes, op)
	})
	return b.Build()
})

func buildTable(opcodes map[byte]opcode) *decoder.Dispatch {
	b := &decoder.Builder{}
	b.RangeFunc(0x00, 0xff, func(op byte) decoder.Node {
		return node(opcodes, op)
	})
	return b.Build()
}

func node(opcodes map[byte]opcode, op byte) decoder.Node {
	o, ok := opcodes[op]
	if !ok {
		return decoder.Invalid()
	}
	return o.terminal()
}

// operandWidths returns the data width of the operands of each mnemonic.
var operandWidths = sync.OnceValue(func() map[instruction.Mnemonic][]instruction.Width {
	widths := make(map[instruction.Mnemonic][]instruction.Width, len(oneByteOpcodes)+len(escapeOpcodes))
	for _, opcodes := range []map[byte]opcode{oneByteOpcodes, escapeOpcodes} {
		for _, o := range opcodes {
			w := make([]instruction.Width, len(o.operands))
			for i, operand := range o.operands {
				w[i] = operand.width
			}
			widths[o.mnemonic] = w
		}
	}
	return widths
})
