package decoder

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrolift/internal/cursor"
	"github.com/retroenv/retrolift/internal/instruction"
)

func panicking(byte, *State) bool {
	panic("unclassified addressing")
}

func newTestEngine() *Engine {
	sub := (&Builder{}).
		Set(0x10, Instr("add", instruction.Linear, Imm(instruction.Unset))).
		Set(0x11, Instr("ldi", instruction.Linear, RenameForWidth(instruction.Word16, "ldiw"))).
		Fill(Invalid()).
		Build()

	ext := (&Builder{}).
		Set(0x00, Instr("ext", instruction.Linear)).
		Fill(Invalid()).
		Build()

	root := (&Builder{}).
		Set(0x00, Instr("nop", instruction.Linear|instruction.Padding)).
		Set(0x01, Instr("ld", instruction.Linear, Imm(instruction.Byte))).
		Set(0x02, &Continuation{Mutator: SetWidth(instruction.Word16), Table: sub}).
		Set(0x03, ext).
		Set(0x04, Instr("bad", instruction.Linear, panicking)).
		Set(0x05, Instr("jr", instruction.Transfer, RelTarget(instruction.Byte, instruction.Word16))).
		Set(0x06, Instr("unsized", instruction.Linear, Imm(instruction.Unset))).
		Set(0x07, Instr("mix", instruction.Linear,
			SetWidth(instruction.Byte), Imm(instruction.Unset), Imm(instruction.Word16), Imm(instruction.Unset))).
		Set(0x08, Instr("bit", instruction.Linear, EmbeddedImm(0x07, 8, instruction.Byte))).
		Fill(Invalid()).
		Build()

	return New(root)
}

func decodeOne(t *testing.T, e *Engine, data ...byte) (*instruction.Instruction, *cursor.Cursor) {
	t.Helper()
	c := cursor.New(data, 0x100, binary.LittleEndian)
	instr, ok := e.Next(c)
	assert.True(t, ok)
	return instr, c
}

func TestEngineDecode(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		name   string
		data   []byte
		want   string
		length int
	}{
		{"terminal without operands", []byte{0x00}, "nop", 1},
		{"explicit immediate", []byte{0x01, 0x7f}, "ld\t0x7F", 2},
		{"continuation with inferred width", []byte{0x02, 0x10, 0x34, 0x12}, "add\t0x1234", 4},
		{"width dependent mnemonic", []byte{0x02, 0x11}, "ldiw", 2},
		{"nested dispatch", []byte{0x03, 0x00}, "ext", 2},
		{"relative target", []byte{0x05, 0xfe}, "jr\t00000100", 2},
		{"latest explicit width wins", []byte{0x07, 0x01, 0x02, 0x00, 0x03, 0x00}, "mix\t0x01,0x0002,0x0003", 6},
		{"embedded zero encodes 8", []byte{0x08}, "bit\t0x08", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instr, c := decodeOne(t, e, tt.data...)
			assert.Equal(t, tt.want, instr.String())
			assert.Equal(t, tt.length, instr.Length)
			assert.Equal(t, tt.length, c.Offset())
			assert.Equal(t, uint64(0x100), instr.Address)
		})
	}
}

func TestEngineInvalid(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		name   string
		data   []byte
		reason error
		length int
	}{
		{"unmapped root entry", []byte{0xff, 0x00}, ErrUnmappedEncoding, 1},
		{"unmapped subtable entry", []byte{0x02, 0x55}, ErrUnmappedEncoding, 2},
		{"truncated immediate", []byte{0x02, 0x10, 0x34}, ErrTruncated, 2},
		{"truncated prefix", []byte{0x03}, ErrTruncated, 1},
		{"width never inferred", []byte{0x06, 0x00}, ErrUnmappedEncoding, 1},
		{"panic is recovered", []byte{0x04}, ErrUnmappedEncoding, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instr, c := decodeOne(t, e, tt.data...)
			assert.True(t, instr.IsInvalid())
			assert.True(t, errors.Is(instr.Reason, tt.reason))
			assert.Equal(t, tt.length, instr.Length)
			assert.Equal(t, tt.length, c.Offset())
			assert.Empty(t, instr.Operands)
		})
	}
}

func TestEngineEndOfStream(t *testing.T) {
	e := newTestEngine()
	c := cursor.New(nil, 0, binary.LittleEndian)

	instr, ok := e.Next(c)
	assert.False(t, ok)
	assert.Nil(t, instr)
}

func TestEngineProgressAndDeterminism(t *testing.T) {
	e := newTestEngine()
	data := make([]byte, 0, 512)
	for i := range 256 {
		data = append(data, byte(i), byte(255-i))
	}

	decodeAll := func() []string {
		c := cursor.New(data, 0x4000, binary.LittleEndian)
		var lines []string
		for {
			before := c.Offset()
			instr, ok := e.Next(c)
			if !ok {
				break
			}
			assert.True(t, instr.Length >= 1)
			assert.Equal(t, before+instr.Length, c.Offset())
			lines = append(lines, instr.String())
		}
		return lines
	}

	first := decodeAll()
	second := decodeAll()
	assert.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i])
	}
}

func TestCheckTotal(t *testing.T) {
	assert.NoError(t, CheckTotal(newTestEngine().Root()))
	assert.Equal(t, 3, Tables(newTestEngine().Root()))

	sub := (&Builder{}).Set(0x01, Instr("x", instruction.Linear)).Build()
	root := (&Builder{}).
		Set(0x00, &Continuation{Table: sub}).
		Range(0x01, 0xfe, Invalid()).
		Build()

	err := CheckTotal(root)
	assert.Error(t, err)
	assert.ErrorContains(t, err, "missing entry FF")
	assert.ErrorContains(t, err, "missing entry 00 02")

	assert.Error(t, CheckTotal(nil))
}

func TestPropagateWidth(t *testing.T) {
	c := cursor.New(nil, 0, binary.LittleEndian)
	s := NewState(c)
	mem := &instruction.Memory{Mode: instruction.Direct, Address: 0x10}
	s.Add(&instruction.Condition{Name: "NE"})
	s.Add(mem)
	s.Add(instruction.NewRegister(instruction.Register{Name: "bc", Width: instruction.Word16}))

	assert.True(t, PropagateWidth(0, s))
	assert.Equal(t, instruction.Word16, mem.Width())

	jump := &instruction.Memory{Mode: instruction.Direct, Address: 0x20}
	s = NewState(c)
	s.SetClass(instruction.Transfer | instruction.Conditional)
	s.Add(&instruction.Condition{Name: "GE"})
	s.Add(jump)
	assert.True(t, PropagateWidth(0, s))
	assert.Equal(t, instruction.Unset, jump.Width())
	assert.True(t, DefaultTransferWidth(instruction.Word32)(0, s))
	assert.Equal(t, instruction.Word32, jump.Width())
}
