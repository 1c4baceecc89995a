package disasm

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrolift/internal/arch"
	"github.com/retroenv/retrolift/internal/arch/m6502"
	"github.com/retroenv/retrolift/internal/arch/x86"
	"github.com/retroenv/retrolift/internal/instruction"
	"github.com/retroenv/retrolift/internal/options"
)

// program is a 6502 routine with a branch, a call and a jump. The two
// trailing nop instructions are not reachable.
//
//	8000 lda #$01
//	8002 beq $8008
//	8004 jsr $800b
//	8007 rts
//	8008 jmp $8007
//	800b inx
//	800c rts
//	800d nop
//	800e nop
const program = "A901F004200B80604C0780E860EAEA"

func newSession(t *testing.T, ar arch.Architecture, image []byte, base uint64) *Session {
	t.Helper()
	opts := options.NewDisassembler(options.ModeLinear)
	opts.Base = base
	s, err := New(log.NewTestLogger(t), ar, image, opts)
	assert.NoError(t, err)
	return s
}

func decodeHex(t *testing.T, s string) []byte {
	t.Helper()
	data, err := hex.DecodeString(s)
	assert.NoError(t, err)
	return data
}

func addresses(instructions []*instruction.Instruction) []uint64 {
	result := make([]uint64, 0, len(instructions))
	for _, instr := range instructions {
		result = append(result, instr.Address)
	}
	return result
}

func TestLinear(t *testing.T) {
	s := newSession(t, m6502.New(), decodeHex(t, program), 0x8000)

	instructions, err := s.Linear(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []uint64{0x8000, 0x8002, 0x8004, 0x8007, 0x8008, 0x800b, 0x800c, 0x800d, 0x800e},
		addresses(instructions))
}

func TestLinearInvalid(t *testing.T) {
	// the absolute load at the end lacks its address bytes
	s := newSession(t, m6502.New(), decodeHex(t, "E8AD34"), 0x8000)

	instructions, err := s.Linear(context.Background())
	assert.NoError(t, err)
	assert.True(t, len(instructions) >= 2)
	assert.Equal(t, "inx", string(instructions[0].Mnemonic))
	assert.True(t, instructions[1].IsInvalid())

	// every byte is covered exactly once
	var total int
	for _, instr := range instructions {
		assert.True(t, instr.Length >= 1)
		total += instr.Length
	}
	assert.Equal(t, 3, total)
}

func TestTrace(t *testing.T) {
	tests := []struct {
		name    string
		entries []uint64
		want    []uint64
	}{
		{"from base", nil, []uint64{0x8000, 0x8002, 0x8004, 0x8007, 0x8008, 0x800b, 0x800c}},
		{"from subroutine", []uint64{0x800b}, []uint64{0x800b, 0x800c}},
		{"outside of image", []uint64{0x9000}, []uint64{}},
		{"duplicate entries", []uint64{0x800b, 0x800b}, []uint64{0x800b, 0x800c}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, m6502.New(), decodeHex(t, program), 0x8000)
			instructions, err := s.Trace(context.Background(), tt.entries...)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, addresses(instructions))
		})
	}
}

func TestTraceOptionEntries(t *testing.T) {
	opts := options.NewDisassembler(options.ModeTrace)
	opts.Base = 0x8000
	opts.Entries = []uint64{0x8008}
	s, err := New(log.NewTestLogger(t), m6502.New(), decodeHex(t, program), opts)
	assert.NoError(t, err)

	instructions, err := s.Trace(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []uint64{0x8007, 0x8008}, addresses(instructions))
}

func TestTraceVectors(t *testing.T) {
	image := make([]byte, 0x8000)
	copy(image[0x10:], []byte{0xe8, 0x60}) // inx, rts
	image[0x7ffc] = 0x10                   // reset vector
	image[0x7ffd] = 0x80

	s := newSession(t, m6502.New(), image, 0x8000)
	instructions, err := s.Trace(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []uint64{0x8010, 0x8011}, addresses(instructions))
}

func TestCancelled(t *testing.T) {
	s := newSession(t, m6502.New(), decodeHex(t, program), 0x8000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Linear(ctx)
	assert.True(t, errors.Is(err, context.Canceled))

	_, err = s.Trace(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDecode(t *testing.T) {
	s := newSession(t, m6502.New(), decodeHex(t, program), 0x8000)

	first, ok := s.Decode(0x8004)
	assert.True(t, ok)
	assert.Equal(t, "jsr", string(first.Mnemonic))
	assert.Equal(t, []byte{0x20, 0x0b, 0x80}, s.Bytes(first))

	cached, ok := s.Decode(0x8004)
	assert.True(t, ok)
	assert.True(t, first == cached)

	_, ok = s.Decode(0x7fff)
	assert.False(t, ok)
	_, ok = s.Decode(0x800f)
	assert.False(t, ok)
}

func TestLift(t *testing.T) {
	s := newSession(t, m6502.New(), decodeHex(t, program), 0x8000)
	instr, ok := s.Decode(0x8002)
	assert.True(t, ok)

	cluster := s.Lift(instr)
	assert.Equal(t, []string{
		"0|T--|00008002(2): 1 instruction",
		"1|T--|if (Test(EQ,Z)) branch 8008",
	}, cluster.Lines())
}

func TestLiftUnimplemented(t *testing.T) {
	s := newSession(t, x86.New(32), decodeHex(t, "0FA2"), 0x401000) // cpuid
	instr, ok := s.Decode(0x401000)
	assert.True(t, ok)

	cluster := s.Lift(instr)
	assert.True(t, cluster.IsUnimplemented())
	assert.Error(t, cluster.Reason)
}

func TestLabels(t *testing.T) {
	tests := []struct {
		name  string
		sweep func(s *Session) error
	}{
		{"linear", func(s *Session) error {
			_, err := s.Linear(context.Background())
			return err
		}},
		{"trace", func(s *Session) error {
			_, err := s.Trace(context.Background())
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, m6502.New(), decodeHex(t, program), 0x8000)
			_, ok := s.Label(0x8008)
			assert.False(t, ok)

			assert.NoError(t, tt.sweep(s))

			want := map[uint64]string{
				0x8007: "_label_8007",
				0x8008: "_label_8008",
				0x800b: "_func_800b",
			}
			for address, name := range want {
				got, ok := s.Label(address)
				assert.True(t, ok)
				assert.Equal(t, name, got)
			}
			_, ok = s.Label(0x8000)
			assert.False(t, ok)
		})
	}
}
