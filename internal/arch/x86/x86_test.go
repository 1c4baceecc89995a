package x86

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrolift/internal/cursor"
	"github.com/retroenv/retrolift/internal/decoder"
	"github.com/retroenv/retrolift/internal/instruction"
	"github.com/retroenv/retrolift/internal/rtl"
)

const base = 0x401000

func decode(t *testing.T, bits int, hexBytes string) *instruction.Instruction {
	t.Helper()
	data, err := hex.DecodeString(hexBytes)
	assert.NoError(t, err)
	c := cursor.New(data, base, binary.LittleEndian)
	instr, ok := New(bits).Disassemble(c)
	assert.True(t, ok)
	assert.Equal(t, instr.Length, c.Offset())
	return instr
}

func TestArch(t *testing.T) {
	tests := []struct {
		bits      int
		name      string
		width     instruction.Width
		registers int
	}{
		{16, "x86-16", instruction.Word16, 10},
		{32, "x86-32", instruction.Word32, 10},
		{64, "x86-64", instruction.Word64, 18},
		{8, "x86-32", instruction.Word32, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.bits)
			assert.Equal(t, tt.name, a.Name())
			assert.Equal(t, binary.LittleEndian, a.ByteOrder())
			assert.Equal(t, tt.width, a.PointerWidth())
			assert.Len(t, a.Registers(), tt.registers)
		})
	}
}

func TestRegisterNames(t *testing.T) {
	regs := New(64).Registers()
	assert.Equal(t, "rax", regs[0].Name)
	assert.Equal(t, "r15", regs[15].Name)
	assert.Equal(t, "rip", regs[16].Name)
	assert.Equal(t, Flags, regs[17])
}

func TestDisassemble(t *testing.T) {
	tests := []struct {
		name  string
		bits  int
		input string
		want  string
		class instruction.Class
	}{
		{"register", 32, "89C8", "mov\teax,ecx", instruction.Linear},
		{"immediate", 32, "B878563412", "mov\teax,0x12345678", instruction.Linear},
		{"byte immediate", 32, "B401", "mov\tah,0x01", instruction.Linear},
		{"scaled index", 32, "8B448B10", "mov\teax,(ebx+ecx*4+16)", instruction.Linear},
		{"negative displacement", 32, "8B43FC", "mov\teax,(ebx-4)", instruction.Linear},
		{"absolute", 32, "8B0500204000", "mov\teax,(00402000)", instruction.Linear},
		{"segment override", 32, "648B00", "mov\teax,fs:(eax)", instruction.Linear},
		{"rip relative", 64, "8B0510000000", "mov\teax,(00401016)", instruction.Linear},
		{"64 bit register", 64, "4889C8", "mov\trax,rcx", instruction.Linear},
		{"extended byte register", 64, "4088F0", "mov\tal,sil", instruction.Linear},
		{"16 bit mode", 16, "89C8", "mov\tax,cx", instruction.Linear},
		{"call", 32, "E8FBFFFFFF", "call\t00401000", instruction.Transfer | instruction.Call},
		{"jump", 32, "EBFE", "jmp\t00401000", instruction.Transfer},
		{"conditional jump", 32, "7402", "je\t00401004", instruction.Transfer | instruction.Conditional},
		{"return", 32, "C3", "ret", instruction.Transfer | instruction.Return},
		{"return with release", 32, "C20800", "ret\t0x0008", instruction.Transfer | instruction.Return},
		{"breakpoint", 32, "CC", "int\t0x03", instruction.Linear},
		{"halt", 32, "F4", "hlt", instruction.Transfer | instruction.Privileged},
		{"string move", 32, "A4", "movsb\tes:(edi),ds:(esi)", instruction.Linear},
		{"repeated string move", 32, "F3A4", "rep movsb\tes:(edi),ds:(esi)", instruction.Transfer | instruction.Conditional},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instr := decode(t, tt.bits, tt.input)
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
		{"truncated modrm", "8B", decoder.ErrTruncated},
		{"truncated immediate", "B87856", decoder.ErrTruncated},
		{"unrecognized", "0F04" + strings.Repeat("00", 13), decoder.ErrUnmappedEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instr := decode(t, 32, tt.input)
			assert.True(t, instr.IsInvalid())
			assert.Equal(t, 1, instr.Length)
			assert.True(t, errors.Is(instr.Reason, tt.reason))
		})
	}
}

func TestRewrite(t *testing.T) {
	tests := []struct {
		name  string
		bits  int
		input string
		want  []string
	}{
		{"move register", 32, "89C8", []string{
			"0|L--|00401000(2): 1 instruction",
			"1|L--|eax = ecx",
		}},
		{"move from memory", 32, "8B448B10", []string{
			"0|L--|00401000(4): 1 instruction",
			"1|L--|eax = Mem0[ebx + ecx * 4 + 16:word32]",
		}},
		{"move low byte", 32, "88D8", []string{
			"0|L--|00401000(2): 1 instruction",
			"1|L--|eax = eax & 0xFFFFFF00 | (uint32) SLICE(ebx, byte, 0)",
		}},
		{"move high byte", 32, "B401", []string{
			"0|L--|00401000(2): 1 instruction",
			"1|L--|eax = eax & 0xFFFF00FF | (uint32) 0x01 << 8",
		}},
		{"move zero extends in 64 bit mode", 64, "89C8", []string{
			"0|L--|00401000(2): 1 instruction",
			"1|L--|rax = (uint64) SLICE(rcx, word32, 0)",
		}},
		{"move in 16 bit mode", 16, "89C8", []string{
			"0|L--|00401000(2): 1 instruction",
			"1|L--|ax = cx",
		}},
		{"move zero extended", 32, "0FB6C3", []string{
			"0|L--|00401000(3): 1 instruction",
			"1|L--|eax = (uint32) SLICE(ebx, byte, 0)",
		}},
		{"load address", 32, "8D4308", []string{
			"0|L--|00401000(3): 1 instruction",
			"1|L--|eax = ebx + 8",
		}},
		{"add", 32, "01C8", []string{
			"0|L--|00401000(2): 2 instructions",
			"1|L--|eax = eax + ecx",
			"2|L--|SCZO = cond(eax)",
		}},
		{"add to memory", 32, "0103", []string{
			"0|L--|00401000(2): 3 instructions",
			"1|L--|v1 = Mem0[ebx:word32] + eax",
			"2|L--|Mem0[ebx:word32] = v1",
			"3|L--|SCZO = cond(v1)",
		}},
		{"add with carry", 32, "11C8", []string{
			"0|L--|00401000(2): 2 instructions",
			"1|L--|eax = eax + ecx + (uint32) C",
			"2|L--|SCZO = cond(eax)",
		}},
		{"subtract from itself", 32, "29C0", []string{
			"0|L--|00401000(2): 2 instructions",
			"1|L--|eax = 0x00000000",
			"2|L--|SCZO = cond(eax)",
		}},
		{"xor with itself", 32, "31C0", []string{
			"0|L--|00401000(2): 4 instructions",
			"1|L--|eax = 0x00000000",
			"2|L--|C = false",
			"3|L--|O = false",
			"4|L--|SZ = cond(eax)",
		}},
		{"compare", 32, "83F805", []string{
			"0|L--|00401000(3): 1 instruction",
			"1|L--|SCZO = cond(eax - 0x00000005)",
		}},
		{"test", 32, "85C0", []string{
			"0|L--|00401000(2): 3 instructions",
			"1|L--|C = false",
			"2|L--|O = false",
			"3|L--|SZ = cond(eax & eax)",
		}},
		{"increment", 32, "41", []string{
			"0|L--|00401000(1): 2 instructions",
			"1|L--|ecx = ecx + 1",
			"2|L--|SZO = cond(ecx)",
		}},
		{"negate", 32, "F7D8", []string{
			"0|L--|00401000(2): 2 instructions",
			"1|L--|eax = -eax",
			"2|L--|SCZO = cond(eax)",
		}},
		{"complement", 32, "F7D0", []string{
			"0|L--|00401000(2): 1 instruction",
			"1|L--|eax = ~eax",
		}},
		{"push", 32, "55", []string{
			"0|L--|00401000(1): 2 instructions",
			"1|L--|esp = esp - 4",
			"2|L--|Mem0[esp:word32] = ebp",
		}},
		{"pop", 32, "5D", []string{
			"0|L--|00401000(1): 2 instructions",
			"1|L--|ebp = Mem0[esp:word32]",
			"2|L--|esp = esp + 4",
		}},
		{"push in 64 bit mode", 64, "55", []string{
			"0|L--|00401000(1): 2 instructions",
			"1|L--|rsp = rsp - 8",
			"2|L--|Mem0[rsp:word64] = rbp",
		}},
		{"call", 32, "E8FBFFFFFF", []string{
			"0|T--|00401000(5): 1 instruction",
			"1|T--|call 00401000 (4)",
		}},
		{"jump", 32, "EBFE", []string{
			"0|T--|00401000(2): 1 instruction",
			"1|T--|goto 00401000",
		}},
		{"jump register", 32, "FFE0", []string{
			"0|T--|00401000(2): 1 instruction",
			"1|T--|goto eax",
		}},
		{"jump memory", 32, "FF20", []string{
			"0|T--|00401000(2): 1 instruction",
			"1|T--|goto Mem0[eax:word32]",
		}},
		{"conditional jump", 32, "7402", []string{
			"0|T--|00401000(2): 1 instruction",
			"1|T--|if (Test(EQ,Z)) branch 00401004",
		}},
		{"signed conditional jump", 32, "7F02", []string{
			"0|T--|00401000(2): 1 instruction",
			"1|T--|if (Test(GT,SZO)) branch 00401004",
		}},
		{"jump if counter zero", 32, "E3FE", []string{
			"0|T--|00401000(2): 1 instruction",
			"1|T--|if (ecx == 0) branch 00401000",
		}},
		{"loop", 32, "E2FE", []string{
			"0|T--|00401000(2): 2 instructions",
			"1|L--|ecx = ecx - 1",
			"2|T--|if (ecx != 0) branch 00401000",
		}},
		{"return", 32, "C3", []string{
			"0|T--|00401000(1): 1 instruction",
			"1|T--|return (4,0)",
		}},
		{"return with release", 32, "C20800", []string{
			"0|T--|00401000(3): 1 instruction",
			"1|T--|return (4,8)",
		}},
		{"nop", 32, "90", []string{
			"0|L--|00401000(1): 1 instruction",
			"1|L--|nop",
		}},
		{"halt", 32, "F4", []string{
			"0|T--|00401000(1): 1 instruction",
			"1|L--|__hlt()",
		}},
		{"breakpoint", 32, "CC", []string{
			"0|L--|00401000(1): 1 instruction",
			"1|L--|__int3()",
		}},
		{"string move", 32, "A4", []string{
			"0|L--|00401000(1): 4 instructions",
			"1|L--|v1 = Mem0[esi:byte]",
			"2|L--|Mem0[edi:byte] = v1",
			"3|L--|esi = esi + 1",
			"4|L--|edi = edi + 1",
		}},
		{"repeated string move", 32, "F3A4", []string{
			"0|T--|00401000(2): 7 instructions",
			"1|T--|if (ecx == 0) branch 00401002",
			"2|L--|v1 = Mem0[esi:byte]",
			"3|L--|Mem0[edi:byte] = v1",
			"4|L--|esi = esi + 1",
			"5|L--|edi = edi + 1",
			"6|L--|ecx = ecx - 1",
			"7|T--|goto 00401000",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.bits)
			instr := decode(t, tt.bits, tt.input)
			c := a.Rewrite(instr, rtl.NewFrame(a.PointerWidth()))
			assert.Equal(t, tt.want, c.Lines())
		})
	}
}

func TestRewriteUnimplemented(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"cpuid", "0FA2"},
		{"fs segment", "648B00"},
		{"shift", "C1E004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(32)
			c := a.Rewrite(decode(t, 32, tt.input), rtl.NewFrame(a.PointerWidth()))
			assert.True(t, c.IsUnimplemented())
			assert.True(t, errors.Is(c.Reason, rtl.ErrUnimplemented))
		})
	}
}

func TestRewriteInvalid(t *testing.T) {
	a := New(32)
	c := a.Rewrite(decode(t, 32, "8B"), rtl.NewFrame(a.PointerWidth()))
	assert.Equal(t, []string{
		"0|---|00401000(1): 1 instruction",
		"1|---|<invalid>",
	}, c.Lines())
}
