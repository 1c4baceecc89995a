package m6502

import (
	m6502 "github.com/retroenv/retrogolib/arch/cpu/cpu6502"
	"github.com/retroenv/retrolift/internal/decoder"
	"github.com/retroenv/retrolift/internal/instruction"
)

// paramReader maps an addressing mode to the mutator that reads the operand
// bytes following the opcode byte.
var paramReader = map[m6502.AddressingMode]decoder.Mutator{
	m6502.ImpliedAddressing:     paramReaderImplied,
	m6502.ImmediateAddressing:   decoder.Imm(instruction.Byte),
	m6502.AccumulatorAddressing: paramReaderAccumulator,
	m6502.AbsoluteAddressing:    decoder.AbsMemory(2, instruction.Byte),
	m6502.AbsoluteXAddressing:   paramReaderIndexed(2, X, false),
	m6502.AbsoluteYAddressing:   paramReaderIndexed(2, Y, false),
	m6502.ZeroPageAddressing:    decoder.AbsMemory(1, instruction.Byte),
	m6502.ZeroPageXAddressing:   paramReaderIndexed(1, X, false),
	m6502.ZeroPageYAddressing:   paramReaderIndexed(1, Y, false),
	m6502.RelativeAddressing:    decoder.RelTarget(instruction.Byte, instruction.Word16),
	m6502.IndirectAddressing:    decoder.AbsMemory(2, instruction.Word16),
	m6502.IndirectXAddressing:   paramReaderIndexed(1, X, true),
	m6502.IndirectYAddressing:   paramReaderIndirectY,
}

// targetReader replaces the memory operand of absolute jumps and calls,
// which transfer to the address itself.
var targetReader = decoder.AbsTarget(2, instruction.Word16)

func paramReaderImplied(byte, *decoder.State) bool {
	return true
}

func paramReaderAccumulator(_ byte, s *decoder.State) bool {
	s.Add(instruction.NewRegister(A))
	return true
}

// paramReaderIndexed reads a size byte address that is indexed by a
// register. Deferred operands load the final address from the indexed
// location, like (zp,x).
func paramReaderIndexed(size int, index instruction.Register, deferred bool) decoder.Mutator {
	return func(_ byte, s *decoder.State) bool {
		v, ok := s.UintN(size)
		if !ok {
			return false
		}
		s.Add(&instruction.Memory{
			Mode:      instruction.Indirect,
			Index:     &index,
			Offset:    int64(v),
			Deferred:  deferred,
			DataWidth: instruction.Byte,
		})
		return true
	}
}

// paramReaderIndirectY reads a zero page address holding a pointer that is
// indexed by y after it was loaded.
func paramReaderIndirectY(_ byte, s *decoder.State) bool {
	v, ok := s.Byte()
	if !ok {
		return false
	}
	index := Y
	s.Add(&instruction.Memory{
		Mode:        instruction.Indirect,
		Index:       &index,
		Offset:      int64(v),
		Deferred:    true,
		PostIndexed: true,
		DataWidth:   instruction.Byte,
	})
	return true
}
