package vax

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrolift/internal/cursor"
	"github.com/retroenv/retrolift/internal/decoder"
	"github.com/retroenv/retrolift/internal/instruction"
	"github.com/retroenv/retrolift/internal/rtl"
)

const base = 0x1000

func decode(t *testing.T, hexBytes string) *instruction.Instruction {
	t.Helper()
	data, err := hex.DecodeString(hexBytes)
	assert.NoError(t, err)
	c := cursor.New(data, base, binary.LittleEndian)
	instr, ok := New().Disassemble(c)
	assert.True(t, ok)
	assert.Equal(t, instr.Length, c.Offset())
	return instr
}

func TestArch(t *testing.T) {
	a := New()
	assert.Equal(t, Name, a.Name())
	assert.Equal(t, binary.LittleEndian, a.ByteOrder())
	assert.Equal(t, instruction.Word32, a.PointerWidth())
	assert.Len(t, a.Registers(), 17)
	assert.Equal(t, "pc", PC.Name)
	assert.Equal(t, 15, PC.Number)

	_, ok := Reg(16)
	assert.False(t, ok)
}

func TestOperandSpecifiers(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		length int
	}{
		{"register", "D05051", "movl\tr0,r1", 3},
		{"short literal", "D00550", "movl\t0x00000005,r0", 3},
		{"immediate", "D08F7856341250", "movl\t0x12345678,r0", 7},
		{"byte immediate", "908FFF50", "movb\t0xFF,r0", 4},
		{"register deferred", "D06150", "movl\t(r1),r0", 3},
		{"autodecrement", "D07150", "movl\t(-r1),r0", 3},
		{"autoincrement", "D08150", "movl\t(r1+),r0", 3},
		{"autoincrement deferred", "D09150", "movl\t@(r1+),r0", 3},
		{"absolute", "D09F0020000050", "movl\t(00002000),r0", 7},
		{"byte displacement", "D0A11050", "movl\t(r1+16),r0", 4},
		{"byte displacement deferred", "D0B1F050", "movl\t@(r1-16),r0", 4},
		{"word displacement", "D0C1000150", "movl\t(r1+256),r0", 5},
		{"long displacement", "D0E10000010050", "movl\t(r1+65536),r0", 7},
		{"pc relative", "D0AF1050", "movl\t00001013,r0", 4},
		{"pc relative deferred", "D0BF1050", "movl\t@(00001013),r0", 4},
		{"indexed", "D0416250", "movl\t(r2+r1*4),r0", 4},
		{"indexed word", "B0416250", "movw\t(r2+r1*2),r0", 4},
		{"indexed deferred", "D041B20450", "movl\t@(r2+4)+r1*4,r0", 5},
		{"indexed autoincrement", "D0418250", "movl\t(r2+)+r1*4,r0", 4},
		{"indexed absolute", "D0419F0020000050", "movl\t(00002000+r1*4),r0", 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instr := decode(t, tt.input)
			assert.Equal(t, tt.want, instr.String())
			assert.Equal(t, tt.length, instr.Length)
		})
	}
}

func TestDisassemble(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		class instruction.Class
	}{
		{"halt", "00", "halt", system},
		{"return", "04", "ret", ret},
		{"branch byte", "12FE", "bneq\t00001000", cond},
		{"branch word", "310001", "brw\t00001103", jump},
		{"jump", "1761", "jmp\t(r1)", jump},
		{"subroutine", "16EF00010000", "jsb\t00001106", call},
		{"call with stack arguments", "FB02EF10000000", "calls\t0x00000002,00001017", call},
		{"subtract one and branch", "F550FD", "sobgtr\tr0,00001000", cond},
		{"add one and branch", "F25150FC", "aoblss\tr1,r0,00001000", cond},
		{"branch on low bit", "E850FD", "blbs\tr0,00001000", cond},
		{"three operands", "C1505152", "addl3\tr0,r1,r2", linear},
		{"escape page", "FD7C50", "clro\tr0", linear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instr := decode(t, tt.input)
			assert.Equal(t, tt.want, instr.String())
			assert.Equal(t, tt.class, instr.Class)
		})
	}
}

func TestDisassembleInvalid(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason error
	}{
		{"unmapped opcode", "FF", decoder.ErrUnmappedEncoding},
		{"unmapped escape opcode", "FD00", decoder.ErrUnmappedEncoding},
		{"index on register", "D0415250", decoder.ErrUnmappedEncoding},
		{"index on literal", "D0410550", decoder.ErrUnmappedEncoding},
		{"double index", "D041426250", decoder.ErrUnmappedEncoding},
		{"index on pc relative", "D041AF1050", decoder.ErrUnmappedEncoding},
		{"write to literal", "D05005", decoder.ErrUnmappedEncoding},
		{"modify immediate", "C0508F01000000", decoder.ErrUnmappedEncoding},
		{"truncated immediate", "D08F7856", decoder.ErrTruncated},
		{"truncated displacement", "D0E100", decoder.ErrTruncated},
		{"truncated specifier", "D0", decoder.ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instr := decode(t, tt.input)
			assert.True(t, instr.IsInvalid())
			assert.True(t, errors.Is(instr.Reason, tt.reason))
			assert.True(t, instr.Length >= 1)
		})
	}
}

func TestTablesAreTotal(t *testing.T) {
	root := New().Root()
	assert.NoError(t, decoder.CheckTotal(root))
	assert.Equal(t, 2, decoder.Tables(root))
}

func TestRewrite(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"move register", "D05051", []string{
			"0|L--|00001000(3): 3 instructions",
			"1|L--|r1 = r0",
			"2|L--|V = false",
			"3|L--|NZ = cond(r1)",
		}},
		{"move autoincrement", "D08150", []string{
			"0|L--|00001000(3): 5 instructions",
			"1|L--|v1 = Mem0[r1:word32]",
			"2|L--|r1 = r1 + 4",
			"3|L--|r0 = v1",
			"4|L--|V = false",
			"5|L--|NZ = cond(r0)",
		}},
		{"move autoincrement to autoincrement", "D08181", []string{
			"0|L--|00001000(3): 6 instructions",
			"1|L--|v1 = Mem0[r1:word32]",
			"2|L--|r1 = r1 + 4",
			"3|L--|Mem0[r1:word32] = v1",
			"4|L--|r1 = r1 + 4",
			"5|L--|V = false",
			"6|L--|NZ = cond(v1)",
		}},
		{"move autoincrement to autodecrement", "D08171", []string{
			"0|L--|00001000(3): 6 instructions",
			"1|L--|v1 = Mem0[r1:word32]",
			"2|L--|r1 = r1 + 4",
			"3|L--|r1 = r1 - 4",
			"4|L--|Mem0[r1:word32] = v1",
			"5|L--|V = false",
			"6|L--|NZ = cond(v1)",
		}},
		{"move autodecrement", "D05071", []string{
			"0|L--|00001000(3): 4 instructions",
			"1|L--|r1 = r1 - 4",
			"2|L--|Mem0[r1:word32] = r0",
			"3|L--|V = false",
			"4|L--|NZ = cond(r0)",
		}},
		{"move byte register", "905051", []string{
			"0|L--|00001000(3): 3 instructions",
			"1|L--|r1 = r1 & 0xFFFFFF00 | (uint32) SLICE(r0, byte, 0)",
			"2|L--|V = false",
			"3|L--|NZ = cond(SLICE(r1, byte, 0))",
		}},
		{"move pc relative", "D0AF1050", []string{
			"0|L--|00001000(4): 4 instructions",
			"1|L--|v1 = Mem0[0x00001013:word32]",
			"2|L--|r0 = v1",
			"3|L--|V = false",
			"4|L--|NZ = cond(r0)",
		}},
		{"move indexed", "D0416250", []string{
			"0|L--|00001000(4): 4 instructions",
			"1|L--|v1 = Mem0[r2 + r1 * 4:word32]",
			"2|L--|r0 = v1",
			"3|L--|V = false",
			"4|L--|NZ = cond(r0)",
		}},
		{"move quadword", "7D5052", []string{
			"0|L--|00001000(3): 5 instructions",
			"1|L--|v1 = SEQ(r1, r0)",
			"2|L--|r2 = SLICE(v1, word32, 0)",
			"3|L--|r3 = SLICE(v1, word32, 32)",
			"4|L--|V = false",
			"5|L--|NZ = cond(SEQ(r3, r2))",
		}},
		{"move zero extended", "9A5051", []string{
			"0|L--|00001000(3): 4 instructions",
			"1|L--|r1 = (uint32) SLICE(r0, byte, 0)",
			"2|L--|N = false",
			"3|L--|V = false",
			"4|L--|Z = cond(r1)",
		}},
		{"convert", "985051", []string{
			"0|L--|00001000(3): 3 instructions",
			"1|L--|r1 = (int32) SLICE(r0, byte, 0)",
			"2|L--|C = false",
			"3|L--|NZV = cond(r1)",
		}},
		{"clear", "D450", []string{
			"0|L--|00001000(2): 4 instructions",
			"1|L--|r0 = 0x00000000",
			"2|L--|N = false",
			"3|L--|Z = true",
			"4|L--|V = false",
		}},
		{"clear quadword", "7C50", []string{
			"0|L--|00001000(2): 5 instructions",
			"1|L--|r0 = 0x00000000",
			"2|L--|r1 = 0x00000000",
			"3|L--|N = false",
			"4|L--|Z = true",
			"5|L--|V = false",
		}},
		{"test", "D550", []string{
			"0|L--|00001000(2): 3 instructions",
			"1|L--|V = false",
			"2|L--|C = false",
			"3|L--|NZ = cond(r0)",
		}},
		{"compare", "D15051", []string{
			"0|L--|00001000(3): 2 instructions",
			"1|L--|V = false",
			"2|L--|NZC = cond(r0 - r1)",
		}},
		{"increment", "D650", []string{
			"0|L--|00001000(2): 2 instructions",
			"1|L--|r0 = r0 + 1",
			"2|L--|NZVC = cond(r0)",
		}},
		{"add three operands", "C1505152", []string{
			"0|L--|00001000(4): 2 instructions",
			"1|L--|r2 = r1 + r0",
			"2|L--|NZVC = cond(r2)",
		}},
		{"subtract literal", "C20150", []string{
			"0|L--|00001000(3): 2 instructions",
			"1|L--|r0 = r0 - 0x00000001",
			"2|L--|NZVC = cond(r0)",
		}},
		{"add to memory", "C050A110", []string{
			"0|L--|00001000(4): 3 instructions",
			"1|L--|v1 = Mem0[r1 + 16:word32] + r0",
			"2|L--|Mem0[r1 + 16:word32] = v1",
			"3|L--|NZVC = cond(v1)",
		}},
		{"bit clear", "CA5051", []string{
			"0|L--|00001000(3): 3 instructions",
			"1|L--|r1 = r1 & ~r0",
			"2|L--|V = false",
			"3|L--|NZ = cond(r1)",
		}},
		{"add with carry", "D85051", []string{
			"0|L--|00001000(3): 2 instructions",
			"1|L--|r1 = r1 + r0 + (uint32) C",
			"2|L--|NZVC = cond(r1)",
		}},
		{"shift left", "78025051", []string{
			"0|L--|00001000(4): 3 instructions",
			"1|L--|r1 = r0 << 2",
			"2|L--|C = false",
			"3|L--|NZV = cond(r1)",
		}},
		{"shift right", "788FFE5051", []string{
			"0|L--|00001000(5): 3 instructions",
			"1|L--|r1 = r0 >> 2",
			"2|L--|C = false",
			"3|L--|NZV = cond(r1)",
		}},
		{"push", "DD50", []string{
			"0|L--|00001000(2): 4 instructions",
			"1|L--|sp = sp - 4",
			"2|L--|Mem0[sp:word32] = r0",
			"3|L--|V = false",
			"4|L--|NZ = cond(r0)",
		}},
		{"move address", "DE6150", []string{
			"0|L--|00001000(3): 3 instructions",
			"1|L--|r0 = r1",
			"2|L--|V = false",
			"3|L--|NZ = cond(r0)",
		}},
		{"move address autoincrement", "DE8151", []string{
			"0|L--|00001000(3): 5 instructions",
			"1|L--|v1 = r1",
			"2|L--|r1 = r1 + 4",
			"3|L--|r1 = v1",
			"4|L--|V = false",
			"5|L--|NZ = cond(r1)",
		}},
		{"branch", "12FE", []string{
			"0|T--|00001000(2): 1 instruction",
			"1|T--|if (Test(NE,Z)) branch 00001000",
		}},
		{"branch signed", "14FE", []string{
			"0|T--|00001000(2): 1 instruction",
			"1|T--|if (Test(GT,NZ)) branch 00001000",
		}},
		{"branch word", "310001", []string{
			"0|T--|00001000(3): 1 instruction",
			"1|T--|goto 00001103",
		}},
		{"jump register deferred", "1761", []string{
			"0|T--|00001000(2): 1 instruction",
			"1|T--|goto r1",
		}},
		{"jump autoincrement", "1781", []string{
			"0|T--|00001000(2): 3 instructions",
			"1|L--|v1 = r1",
			"2|L--|r1 = r1 + 1",
			"3|T--|goto v1",
		}},
		{"subroutine", "16EF00010000", []string{
			"0|T--|00001000(6): 1 instruction",
			"1|T--|call 00001106 (4)",
		}},
		{"call with stack arguments", "FB02EF10000000", []string{
			"0|T--|00001000(7): 3 instructions",
			"1|L--|sp = sp - 4",
			"2|L--|Mem0[sp:word32] = 0x00000002",
			"3|T--|call 00001017 (4)",
		}},
		{"subtract one and branch", "F550FD", []string{
			"0|T--|00001000(3): 3 instructions",
			"1|L--|r0 = r0 - 1",
			"2|L--|NZV = cond(r0)",
			"3|T--|if (r0 > 0) branch 00001000",
		}},
		{"add one and branch", "F25150FC", []string{
			"0|T--|00001000(4): 3 instructions",
			"1|L--|r0 = r0 + 1",
			"2|L--|NZV = cond(r0)",
			"3|T--|if (r0 < r1) branch 00001000",
		}},
		{"branch on low bit", "E850FD", []string{
			"0|T--|00001000(3): 1 instruction",
			"1|T--|if ((r0 & 0x00000001) != 0x00000000) branch 00001000",
		}},
		{"return", "04", []string{
			"0|T--|00001000(1): 1 instruction",
			"1|T--|return (4,0)",
		}},
		{"return from exception", "02", []string{
			"0|T--|00001000(1): 1 instruction",
			"1|T--|return (4,4)",
		}},
		{"halt", "00", []string{
			"0|T--|00001000(1): 1 instruction",
			"1|L--|__halt()",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instr := decode(t, tt.input)
			c := New().Rewrite(instr, rtl.NewFrame(instruction.Word32))
			assert.Equal(t, tt.want, c.Lines())
		})
	}
}

func TestRewriteUnimplemented(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"octaword clear", "FD7C50"},
		{"octaword move", "FD7D5052"},
		{"quadword in pc", "7D505F"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Rewrite(decode(t, tt.input), rtl.NewFrame(instruction.Word32))
			assert.True(t, c.IsUnimplemented())
			assert.True(t, errors.Is(c.Reason, rtl.ErrUnimplemented))
		})
	}
}
