package tlcs900

import (
	"sync"

	"github.com/retroenv/retrolift/internal/decoder"
	"github.com/retroenv/retrolift/internal/instruction"
)

const (
	linear      = instruction.Linear
	transfer    = instruction.Transfer
	call        = instruction.Transfer | instruction.Call
	ret         = instruction.Transfer | instruction.Return
	conditional = instruction.Transfer | instruction.Conditional
	privileged  = instruction.Linear | instruction.Privileged
)

var (
	instr   = decoder.Instr
	invalid = decoder.Invalid()
	rev     = decoder.Reverse
)

// rootTable returns the root of the opcode map, built on first use.
var rootTable = sync.OnceValue(buildRoot)

func buildRoot() *decoder.Dispatch {
	regs := buildRegisterTable()
	mems := buildMemoryTable()
	dsts := buildDestinationTable()

	register := func(width instruction.Width) decoder.Node {
		return &decoder.Continuation{Mutator: rr(width), Table: regs}
	}
	extra := func(width instruction.Width) decoder.Node {
		return &decoder.Continuation{Mutator: extraRegister(width), Table: regs}
	}
	memory := func(mut decoder.Mutator) decoder.Node {
		return &decoder.Continuation{Mutator: mut, Table: mems}
	}
	destination := func(mut decoder.Mutator) decoder.Node {
		return &decoder.Continuation{
			Mutator: mut,
			Table:   dsts,
			Post:    decoder.Seq(decoder.PropagateWidth, decoder.DefaultTransferWidth(long32)),
		}
	}

	t := &decoder.Builder{}
	t.Set(0x00, instr("nop", linear|instruction.Padding|instruction.Zero)).
		Set(0x02, instr("push", linear, regSR)).
		Set(0x03, instr("pop", linear, regSR)).
		Set(0x05, instr("halt", privileged)).
		Set(0x06, instr("ei", privileged, imm8)).
		Set(0x07, instr("reti", ret|instruction.Privileged)).
		Set(0x09, instr("push", linear, imm8)).
		Set(0x0b, instr("push", linear, imm16)).
		Set(0x0c, instr("incf", linear)).
		Set(0x0d, instr("decf", linear)).
		Set(0x0e, instr("ret", ret)).
		Set(0x0f, instr("retd", ret, imm16))

	t.Set(0x10, instr("rcf", linear)).
		Set(0x11, instr("scf", linear)).
		Set(0x12, instr("ccf", linear)).
		Set(0x13, instr("zcf", linear)).
		Set(0x14, instr("push", linear, regA)).
		Set(0x15, instr("pop", linear, regA)).
		Set(0x17, instr("ldf", linear, imm8)).
		Set(0x1a, instr("jp", transfer, abs16)).
		Set(0x1b, instr("jp", transfer, abs24)).
		Set(0x1c, instr("call", call, abs16)).
		Set(0x1d, instr("call", call, abs24)).
		Set(0x1e, instr("calr", call, rel16))

	t.Range(0x20, 0x27, instr("ld", linear, rr(byte8), imm8)).
		Range(0x28, 0x2f, instr("push", linear, rr(word16))).
		Range(0x30, 0x37, instr("ld", linear, rr(word16), imm16)).
		Range(0x38, 0x3f, instr("push", linear, rr(long32))).
		Range(0x40, 0x47, instr("ld", linear, rr(long32), imm32)).
		Range(0x48, 0x4f, instr("pop", linear, rr(word16))).
		Range(0x58, 0x5f, instr("pop", linear, rr(long32))).
		Range(0x60, 0x6f, instr("jr", transfer, cc, rel8)).
		Range(0x70, 0x7f, instr("jrl", transfer, cc, rel16))

	t.Range(0x80, 0x87, memory(ind(byte8))).
		Range(0x88, 0x8f, memory(disp8(byte8))).
		Range(0x90, 0x97, memory(ind(word16))).
		Range(0x98, 0x9f, memory(disp8(word16))).
		Range(0xa0, 0xa7, memory(ind(long32))).
		Range(0xa8, 0xaf, memory(disp8(long32))).
		Range(0xb0, 0xb7, destination(ind(inferred))).
		Range(0xb8, 0xbf, destination(disp8(inferred)))

	for _, row := range []struct {
		first byte
		width instruction.Width
	}{
		{0xc0, byte8},
		{0xd0, word16},
		{0xe0, long32},
	} {
		t.Set(row.first, memory(dir8(row.width))).
			Set(row.first+1, memory(dir16(row.width))).
			Set(row.first+2, memory(dir24(row.width))).
			Set(row.first+3, memory(mode(row.width))).
			Set(row.first+4, memory(pre(row.width))).
			Set(row.first+5, memory(post(row.width))).
			Set(row.first+7, extra(row.width)).
			Range(row.first+8, row.first+15, register(row.width))
	}

	t.Set(0xf0, destination(dir8(inferred))).
		Set(0xf1, destination(dir16(inferred))).
		Set(0xf2, destination(dir24(inferred))).
		Set(0xf3, destination(mode(inferred))).
		Set(0xf4, destination(pre(inferred))).
		Set(0xf5, destination(post(inferred))).
		Range(0xf8, 0xff, instr("swi", call, imm3(byte8)))

	return t.Fill(invalid).Build()
}

var (
	aluMnemonics   = [8]instruction.Mnemonic{"add", "adc", "sub", "sbc", "and", "xor", "or", "cp"}
	shiftMnemonics = [8]instruction.Mnemonic{"rlc", "rrc", "rl", "rr", "sla", "sra", "sll", "srl"}
	carryMnemonics = [5]instruction.Mnemonic{"andcf", "orcf", "xorcf", "ldcf", "stcf"}
)

// buildRegisterTable returns the table of the second byte of register
// instructions, which start with the register operand decoded.
func buildRegisterTable() *decoder.Dispatch {
	t := &decoder.Builder{}
	t.Set(0x03, instr("ld", linear, immz)).
		Set(0x04, instr("push", linear)).
		Set(0x05, instr("pop", linear)).
		Set(0x06, instr("cpl", linear)).
		Set(0x07, instr("neg", linear)).
		Set(0x08, instr("mul", linear, immz)).
		Set(0x09, instr("muls", linear, immz)).
		Set(0x0a, instr("div", linear, immz)).
		Set(0x0b, instr("divs", linear, immz)).
		Set(0x0c, instr("link", linear, imm16)).
		Set(0x0d, instr("unlk", linear)).
		Set(0x0e, instr("bs1f", linear, regA, rev)).
		Set(0x0f, instr("bs1b", linear, regA, rev))

	t.Set(0x10, instr("daa", linear)).
		Set(0x12, instr("extz", linear)).
		Set(0x13, instr("exts", linear)).
		Set(0x14, instr("paa", linear)).
		Set(0x16, instr("mirr", linear)).
		Set(0x19, instr("mula", linear)).
		Set(0x1c, instr("djnz", conditional, rel8))

	for i, mnemonic := range carryMnemonics {
		t.Set(0x20+byte(i), instr(mnemonic, linear, imm8, rev)).
			Set(0x28+byte(i), instr(mnemonic, linear, regA, rev))
	}
	t.Set(0x2e, instr("ldc", privileged, imm8, rev)).
		Set(0x2f, instr("ldc", privileged, imm8))

	for i, mnemonic := range []instruction.Mnemonic{"res", "set", "chg", "bit", "tset"} {
		t.Set(0x30+byte(i), instr(mnemonic, linear, imm8, rev))
	}
	for i, mnemonic := range []instruction.Mnemonic{"minc1", "minc2", "minc4"} {
		t.Set(0x38+byte(i), instr(mnemonic, linear, imm16, rev)).
			Set(0x3c+byte(i), instr("mdec"+mnemonic[4:], linear, imm16, rev))
	}

	t.Range(0x40, 0x47, instr("mul", linear, rr(inferred), rev)).
		Range(0x48, 0x4f, instr("muls", linear, rr(inferred), rev)).
		Range(0x50, 0x57, instr("div", linear, rr(inferred), rev)).
		Range(0x58, 0x5f, instr("divs", linear, rr(inferred), rev)).
		Range(0x60, 0x67, instr("inc", linear, quick3(inferred), rev)).
		Range(0x68, 0x6f, instr("dec", linear, quick3(inferred), rev)).
		Range(0x70, 0x7f, instr("scc", linear, cc, rev))

	t.Range(0x80, 0x87, instr("add", linear, rr(inferred), rev)).
		Range(0x88, 0x8f, instr("ld", linear, rr(inferred), rev)).
		Range(0x90, 0x97, instr("adc", linear, rr(inferred), rev)).
		Range(0x98, 0x9f, instr("ld", linear, rr(inferred))).
		Range(0xa0, 0xa7, instr("sub", linear, rr(inferred), rev)).
		Range(0xa8, 0xaf, instr("ld", linear, imm3(inferred))).
		Range(0xb0, 0xb7, instr("sbc", linear, rr(inferred), rev)).
		Range(0xb8, 0xbf, instr("ex", linear, rr(inferred), rev)).
		Range(0xc0, 0xc7, instr("and", linear, rr(inferred), rev)).
		Range(0xd0, 0xd7, instr("xor", linear, rr(inferred), rev)).
		Range(0xd8, 0xdf, instr("cp", linear, imm3(inferred))).
		Range(0xe0, 0xe7, instr("or", linear, rr(inferred), rev)).
		Range(0xf0, 0xf7, instr("cp", linear, rr(inferred), rev))

	for i, mnemonic := range aluMnemonics {
		t.Set(0xc8+byte(i), instr(mnemonic, linear, immz))
	}
	for i, mnemonic := range shiftMnemonics {
		t.Set(0xe8+byte(i), instr(mnemonic, linear, imm8, rev)).
			Set(0xf8+byte(i), instr(mnemonic, linear, regA, rev))
	}

	return t.Fill(invalid).Build()
}

// buildMemoryTable returns the table of the second byte of instructions
// with a sized memory source or destination.
func buildMemoryTable() *decoder.Dispatch {
	t := &decoder.Builder{}
	t.Set(0x04, instr("push", linear)).
		Set(0x06, instr("rld", linear, regA, rev)).
		Set(0x07, instr("rrd", linear, regA, rev))

	for i, mnemonic := range []instruction.Mnemonic{"ldi", "ldir", "ldd", "lddr", "cpi", "cpir", "cpd", "cpdr"} {
		t.Set(0x10+byte(i), instr(mnemonic, linear, decoder.Clear, decoder.RenameForWidth(word16, mnemonic+"w")))
	}
	t.Set(0x19, instr("ld", linear, dir16(inferred), rev))

	t.Range(0x20, 0x27, instr("ld", linear, rr(inferred), rev)).
		Range(0x30, 0x37, instr("ex", linear, rr(inferred))).
		Range(0x40, 0x47, instr("mul", linear, rr(inferred), rev)).
		Range(0x48, 0x4f, instr("muls", linear, rr(inferred), rev)).
		Range(0x50, 0x57, instr("div", linear, rr(inferred), rev)).
		Range(0x58, 0x5f, instr("divs", linear, rr(inferred), rev)).
		Range(0x60, 0x67, instr("inc", linear, quick3(inferred), rev)).
		Range(0x68, 0x6f, instr("dec", linear, quick3(inferred), rev))

	for i, mnemonic := range aluMnemonics {
		t.Set(0x38+byte(i), instr(mnemonic, linear, immz))
		t.Range(0x80+byte(i)*16, 0x87+byte(i)*16, instr(mnemonic, linear, rr(inferred), rev))
		t.Range(0x88+byte(i)*16, 0x8f+byte(i)*16, instr(mnemonic, linear, rr(inferred)))
	}
	for i, mnemonic := range shiftMnemonics {
		t.Set(0x78+byte(i), instr(mnemonic, linear))
	}

	return t.Fill(invalid).Build()
}

// buildDestinationTable returns the table of the second byte of
// instructions whose memory operand width follows from the other operand.
func buildDestinationTable() *decoder.Dispatch {
	t := &decoder.Builder{}
	t.Set(0x00, instr("ld", linear, imm8)).
		Set(0x02, instr("ld", linear, imm16)).
		Set(0x04, instr("pop", linear, override(byte8))).
		Set(0x06, instr("pop", linear, override(word16))).
		Set(0x14, instr("ld", linear, dir16(byte8))).
		Set(0x16, instr("ld", linear, dir16(word16)))

	t.Range(0x20, 0x27, instr("lda", linear, rr(word16), rev)).
		Range(0x30, 0x37, instr("lda", linear, rr(long32), rev)).
		Range(0x40, 0x47, instr("ld", linear, rr(byte8))).
		Range(0x50, 0x57, instr("ld", linear, rr(word16))).
		Range(0x60, 0x67, instr("ld", linear, rr(long32)))

	for i, mnemonic := range carryMnemonics {
		t.Set(0x28+byte(i), instr(mnemonic, linear, regA, rev))
	}
	bitMnemonics := append(carryMnemonics[:],
		"tset", "res", "set", "chg", "bit")
	for i, mnemonic := range bitMnemonics {
		first := 0x80 + byte(i)*8
		t.Range(first, first+7, instr(mnemonic, linear, imm3(byte8), rev))
	}

	t.Range(0xd0, 0xdf, instr("jp", transfer, cc, rev)).
		Range(0xe0, 0xef, instr("call", call, cc, rev)).
		Range(0xf0, 0xff, instr("ret", ret, decoder.Clear, cc))

	return t.Fill(invalid).Build()
}
