package m6502

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

const base = 0x8000

var listing = instruction.RenderOptions{AddressDigits: 4}

func decode(t *testing.T, hexBytes string) *instruction.Instruction {
	t.Helper()
	data, err := hex.DecodeString(hexBytes)
	assert.NoError(t, err)
	c := cursor.New(data, base, binary.LittleEndian)
	instr, ok := New().Disassemble(c)
	assert.True(t, ok)
	return instr
}

func TestArch(t *testing.T) {
	a := New()
	assert.Equal(t, Name, a.Name())
	assert.Equal(t, binary.LittleEndian, a.ByteOrder())
	assert.Equal(t, instruction.Word16, a.PointerWidth())
	assert.Len(t, a.Registers(), 5)
}

func TestDisassemble(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		length int
		class  instruction.Class
	}{
		{"implied", "E8", "inx", 1, instruction.Linear},
		{"accumulator", "0A", "asl\ta", 1, instruction.Linear},
		{"immediate", "A912", "lda\t0x12", 2, instruction.Linear},
		{"zero page", "A510", "lda\t(0010)", 2, instruction.Linear},
		{"zero page x", "B510", "lda\t(0010+x)", 2, instruction.Linear},
		{"zero page y", "B610", "ldx\t(0010+y)", 2, instruction.Linear},
		{"absolute", "AD3412", "lda\t(1234)", 3, instruction.Linear},
		{"absolute x", "BD3412", "lda\t(1234+x)", 3, instruction.Linear},
		{"absolute y", "B93412", "lda\t(1234+y)", 3, instruction.Linear},
		{"indirect x", "A110", "lda\t@(0010+x)", 2, instruction.Linear},
		{"indirect y", "B110", "lda\t@(0010)+y", 2, instruction.Linear},
		{"store", "8D0002", "sta\t(0200)", 3, instruction.Linear},
		{"branch forward", "D004", "bne\t8006", 2, instruction.Transfer | instruction.Conditional},
		{"branch backward", "F0FE", "beq\t8000", 2, instruction.Transfer | instruction.Conditional},
		{"jump", "4C0080", "jmp\t8000", 3, instruction.Transfer},
		{"jump indirect", "6C0002", "jmp\t(0200)", 3, instruction.Transfer},
		{"call", "200090", "jsr\t9000", 3, instruction.Transfer | instruction.Call},
		{"return", "60", "rts", 1, instruction.Transfer | instruction.Return},
		{"return from interrupt", "40", "rti", 1, instruction.Transfer | instruction.Return},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instr := decode(t, tt.input)
			assert.Equal(t, tt.want, instr.Render(listing))
			assert.Equal(t, tt.length, instr.Length)
			assert.Equal(t, tt.class, instr.Class)
		})
	}
}

func TestDisassembleTruncated(t *testing.T) {
	c := cursor.New([]byte{0xad, 0x34}, base, binary.LittleEndian)
	instr, ok := New().Disassemble(c)
	assert.True(t, ok)
	assert.True(t, instr.IsInvalid())
	assert.True(t, errors.Is(instr.Reason, decoder.ErrTruncated))
}

func TestTablesAreTotal(t *testing.T) {
	root := New().Root()
	assert.NoError(t, decoder.CheckTotal(root))
	assert.Equal(t, 1, decoder.Tables(root))
}

func TestRewrite(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"load immediate", "A912", []string{
			"0|L--|00008000(2): 2 instructions",
			"1|L--|a = 0x12",
			"2|L--|NZ = cond(a)",
		}},
		{"load absolute x", "BD3412", []string{
			"0|L--|00008000(3): 2 instructions",
			"1|L--|a = Mem0[0x1234 + (uint16) x:byte]",
			"2|L--|NZ = cond(a)",
		}},
		{"load indirect x", "A110", []string{
			"0|L--|00008000(2): 2 instructions",
			"1|L--|a = Mem0[Mem0[0x0010 + (uint16) x:word16]:byte]",
			"2|L--|NZ = cond(a)",
		}},
		{"load indirect y", "B110", []string{
			"0|L--|00008000(2): 2 instructions",
			"1|L--|a = Mem0[Mem0[0x0010:word16] + (uint16) y:byte]",
			"2|L--|NZ = cond(a)",
		}},
		{"store", "8D0002", []string{
			"0|L--|00008000(3): 1 instruction",
			"1|L--|Mem0[0x0200:byte] = a",
		}},
		{"transfer", "AA", []string{
			"0|L--|00008000(1): 2 instructions",
			"1|L--|x = a",
			"2|L--|NZ = cond(x)",
		}},
		{"transfer to stack pointer", "9A", []string{
			"0|L--|00008000(1): 1 instruction",
			"1|L--|s = x",
		}},
		{"add with carry", "6901", []string{
			"0|L--|00008000(2): 2 instructions",
			"1|L--|a = a + 0x01 + C",
			"2|L--|NVZC = cond(a)",
		}},
		{"subtract with borrow", "E901", []string{
			"0|L--|00008000(2): 2 instructions",
			"1|L--|a = a - 0x01 - !C",
			"2|L--|NVZC = cond(a)",
		}},
		{"or", "0910", []string{
			"0|L--|00008000(2): 2 instructions",
			"1|L--|a = a | 0x10",
			"2|L--|NZ = cond(a)",
		}},
		{"compare", "C910", []string{
			"0|L--|00008000(2): 1 instruction",
			"1|L--|NZC = cond(a - 0x10)",
		}},
		{"compare x", "E010", []string{
			"0|L--|00008000(2): 1 instruction",
			"1|L--|NZC = cond(x - 0x10)",
		}},
		{"bit test", "2410", []string{
			"0|L--|00008000(2): 1 instruction",
			"1|L--|NVZ = cond(a & Mem0[0x0010:byte])",
		}},
		{"increment memory", "EE0002", []string{
			"0|L--|00008000(3): 3 instructions",
			"1|L--|v1 = Mem0[0x0200:byte] + 1",
			"2|L--|Mem0[0x0200:byte] = v1",
			"3|L--|NZ = cond(v1)",
		}},
		{"increment x", "E8", []string{
			"0|L--|00008000(1): 2 instructions",
			"1|L--|x = x + 1",
			"2|L--|NZ = cond(x)",
		}},
		{"decrement y", "88", []string{
			"0|L--|00008000(1): 2 instructions",
			"1|L--|y = y - 1",
			"2|L--|NZ = cond(y)",
		}},
		{"shift left accumulator", "0A", []string{
			"0|L--|00008000(1): 2 instructions",
			"1|L--|a = a << 1",
			"2|L--|NZC = cond(a)",
		}},
		{"shift right memory", "4610", []string{
			"0|L--|00008000(2): 3 instructions",
			"1|L--|v1 = Mem0[0x0010:byte] >>u 1",
			"2|L--|Mem0[0x0010:byte] = v1",
			"3|L--|NZC = cond(v1)",
		}},
		{"rotate right accumulator", "6A", []string{
			"0|L--|00008000(1): 2 instructions",
			"1|L--|a = __rorc(a, 1, C)",
			"2|L--|NZC = cond(a)",
		}},
		{"branch", "F0FE", []string{
			"0|T--|00008000(2): 1 instruction",
			"1|T--|if (Test(EQ,Z)) branch 8000",
		}},
		{"branch on minus", "3004", []string{
			"0|T--|00008000(2): 1 instruction",
			"1|T--|if (Test(SG,N)) branch 8006",
		}},
		{"branch on carry clear", "9004", []string{
			"0|T--|00008000(2): 1 instruction",
			"1|T--|if (Test(UGE,C)) branch 8006",
		}},
		{"jump", "4C0080", []string{
			"0|T--|00008000(3): 1 instruction",
			"1|T--|goto 8000",
		}},
		{"jump indirect", "6C0002", []string{
			"0|T--|00008000(3): 1 instruction",
			"1|T--|goto Mem0[0x0200:word16]",
		}},
		{"call", "200090", []string{
			"0|T--|00008000(3): 1 instruction",
			"1|T--|call 9000 (2)",
		}},
		{"return", "60", []string{
			"0|T--|00008000(1): 1 instruction",
			"1|T--|return (2,0)",
		}},
		{"return from interrupt", "40", []string{
			"0|T--|00008000(1): 1 instruction",
			"1|T--|return (2,1)",
		}},
		{"push", "48", []string{
			"0|L--|00008000(1): 2 instructions",
			"1|L--|Mem0[0x0100 + (uint16) s:byte] = a",
			"2|L--|s = s - 1",
		}},
		{"pull", "68", []string{
			"0|L--|00008000(1): 3 instructions",
			"1|L--|s = s + 1",
			"2|L--|a = Mem0[0x0100 + (uint16) s:byte]",
			"3|L--|NZ = cond(a)",
		}},
		{"clear carry", "18", []string{
			"0|L--|00008000(1): 1 instruction",
			"1|L--|C = false",
		}},
		{"set interrupt disable", "78", []string{
			"0|L--|00008000(1): 1 instruction",
			"1|L--|I = true",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instr := decode(t, tt.input)
			c := New().Rewrite(instr, rtl.NewFrame(instruction.Word16))
			assert.Equal(t, tt.want, c.Lines())
		})
	}
}

func TestRewriteUnknownMnemonic(t *testing.T) {
	instr := &instruction.Instruction{
		Address:  base,
		Length:   1,
		Mnemonic: "slo",
		Class:    instruction.Linear,
	}
	c := Rewrite(instr, rtl.NewFrame(instruction.Word16))
	assert.True(t, c.IsUnimplemented())
	assert.True(t, errors.Is(c.Reason, rtl.ErrUnimplemented))
}

func TestEntryPoints(t *testing.T) {
	image := make([]byte, 0x8000)
	vector := func(address, handler uint16) {
		binary.LittleEndian.PutUint16(image[address-base:], handler)
	}

	tests := []struct {
		name  string
		nmi   uint16
		reset uint16
		irq   uint16
		want  []uint64
	}{
		{"all vectors", 0x8100, 0x8000, 0x8200, []uint64{0x8000, 0x8100, 0x8200}},
		{"shared handler", 0x8000, 0x8000, 0x8000, []uint64{0x8000}},
		{"unset vectors", 0, 0x8000, 0, []uint64{0x8000}},
		{"handler outside image", 0x1000, 0x8000, 0x9000, []uint64{0x8000, 0x9000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vector(0xfffa, tt.nmi)
			vector(0xfffc, tt.reset)
			vector(0xfffe, tt.irq)
			c := cursor.New(image, base, binary.LittleEndian)
			assert.Equal(t, tt.want, New().EntryPoints(c))
		})
	}
}

func TestEntryPointsWithoutVectors(t *testing.T) {
	c := cursor.New([]byte{0xea}, base, binary.LittleEndian)
	assert.Len(t, New().EntryPoints(c), 0)
}
