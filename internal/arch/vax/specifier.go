package vax

import (
	"github.com/retroenv/retrolift/internal/decoder"
	"github.com/retroenv/retrolift/internal/instruction"
)

// access is the way an instruction uses an operand.
type access uint8

const (
	read    access = iota // the value is read
	write                 // the value is written
	modify                // the value is read and written
	address               // the address of the operand is used
)

// operandSpec describes an operand of an opcode.
type operandSpec struct {
	access access
	width  instruction.Width
}

// mutator returns the decoder step that reads the operand specifier.
// Immediates are rejected for written operands.
func (o operandSpec) mutator() decoder.Mutator {
	return func(_ byte, s *decoder.State) bool {
		op, ok := specifier(s, o.width)
		if !ok {
			return false
		}
		if _, imm := op.(*instruction.Immediate); imm && (o.access == write || o.access == modify) {
			return false
		}
		s.Add(op)
		return true
	}
}

// specifier decodes one operand specifier of the given data width.
func specifier(s *decoder.State, w instruction.Width) (instruction.Operand, bool) {
	b, ok := s.Byte()
	if !ok {
		return nil, false
	}
	reg := registers[b&0x0f]

	switch mode := b >> 4; mode {
	case 0x0, 0x1, 0x2, 0x3: // short literal
		return instruction.NewImmediate(uint64(b&0x3f), w), true

	case 0x4:
		return indexed(s, w, reg)

	case 0x5:
		return instruction.NewRegister(reg), true

	case 0x6: // register deferred
		return &instruction.Memory{Mode: instruction.Indirect, Base: &reg, DataWidth: w}, true

	case 0x7: // autodecrement
		return &instruction.Memory{Mode: instruction.PreDecrement, Base: &reg, Step: w.Size(), DataWidth: w}, true

	case 0x8: // autoincrement, immediate if pc
		if reg == PC {
			v, ok := s.Read(w)
			if !ok {
				return nil, false
			}
			return instruction.NewImmediate(v, w), true
		}
		return &instruction.Memory{Mode: instruction.PostIncrement, Base: &reg, Step: w.Size(), DataWidth: w}, true

	case 0x9: // autoincrement deferred, absolute if pc
		if reg == PC {
			v, ok := s.Uint32()
			if !ok {
				return nil, false
			}
			return &instruction.Memory{Mode: instruction.Indirect, Offset: int64(v), DataWidth: w}, true
		}
		return &instruction.Memory{
			Mode:      instruction.PostIncrement,
			Base:      &reg,
			Step:      instruction.Word32.Size(),
			Deferred:  true,
			DataWidth: w,
		}, true

	default: // byte, word and long displacement, odd modes are deferred
		return displacement(s, w, reg, mode)
	}
}

// displacementWidths maps the displacement modes to the displacement width.
var displacementWidths = map[byte]instruction.Width{
	0xa: instruction.Byte,
	0xb: instruction.Byte,
	0xc: instruction.Word16,
	0xd: instruction.Word16,
	0xe: instruction.Word32,
	0xf: instruction.Word32,
}

// displacement decodes the displacement modes. PC relative displacements
// are resolved against the address following the displacement, the plain
// form yields the address itself.
func displacement(s *decoder.State, w instruction.Width, reg instruction.Register, mode byte) (instruction.Operand, bool) {
	disp, ok := s.ReadSigned(displacementWidths[mode])
	if !ok {
		return nil, false
	}
	deferred := mode&1 != 0

	if reg == PC {
		target := uint64(int64(s.Next())+disp) & instruction.Word32.Mask()
		if !deferred {
			return instruction.NewAddress(target, instruction.Word32), true
		}
		return &instruction.Memory{Mode: instruction.Indirect, Offset: int64(target), Deferred: true, DataWidth: w}, true
	}
	return &instruction.Memory{Mode: instruction.Indirect, Base: &reg, Offset: disp, Deferred: deferred, DataWidth: w}, true
}

// indexed decodes the base operand specifier following an index mode
// specifier and attaches the index register scaled by the data size. The
// base must be a memory operand that is not indexed itself. Deferred bases
// apply the index to the loaded address.
func indexed(s *decoder.State, w instruction.Width, index instruction.Register) (instruction.Operand, bool) {
	op, ok := specifier(s, w)
	if !ok {
		return nil, false
	}
	m, ok := op.(*instruction.Memory)
	if !ok || m.Index != nil {
		return nil, false
	}
	m.Index = &index
	m.Scale = uint8(w.Size())
	m.PostIndexed = m.Deferred
	return m, true
}
