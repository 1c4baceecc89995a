package tlcs900

import (
	"github.com/retroenv/retrolift/internal/decoder"
	"github.com/retroenv/retrolift/internal/instruction"
)

// Operand widths, inferred takes the width decoded so far.
const (
	byte8    = instruction.Byte
	word16   = instruction.Word16
	long32   = instruction.Word32
	inferred = instruction.Unset
)

// Immediates of byte, word, long or inferred width.
var (
	imm8  = decoder.Imm(byte8)
	imm16 = decoder.Imm(word16)
	imm32 = decoder.Imm(long32)
	immz  = decoder.Imm(inferred)
)

// imm3 appends the immediate in the low 3 opcode bits, quick3 the same with
// 0 encoding 8.
func imm3(width instruction.Width) decoder.Mutator {
	return decoder.EmbeddedImm(0x07, 0, width)
}

func quick3(width instruction.Width) decoder.Mutator {
	return decoder.EmbeddedImm(0x07, 8, width)
}

// Relative and absolute jump targets.
var (
	rel8  = decoder.RelTarget(byte8, long32)
	rel16 = decoder.RelTarget(word16, long32)
	abs16 = decoder.AbsTarget(2, long32)
	abs24 = decoder.AbsTarget(3, long32)
)

// rr appends the register selected by the low 3 opcode bits. An unset width
// uses the inferred width.
func rr(width instruction.Width) decoder.Mutator {
	return func(op byte, s *decoder.State) bool {
		rw, ok := s.ResolveWidth(width)
		if !ok {
			return false
		}
		r, ok := Reg(rw, int(op))
		if !ok {
			return false
		}
		s.Add(instruction.NewRegister(r))
		return true
	}
}

// fixed appends a register operand.
func fixed(r instruction.Register) decoder.Mutator {
	return func(_ byte, s *decoder.State) bool {
		s.Add(instruction.NewRegister(r))
		return true
	}
}

var (
	regA  = fixed(A)
	regSR = fixed(SR)
)

// cc appends the condition in the low 4 opcode bits. The always true
// condition is omitted, all others make the instruction conditional.
func cc(op byte, s *decoder.State) bool {
	code := int(op & 0xf)
	if code == condAlways {
		return true
	}
	s.Add(&instruction.Condition{Name: conditions[code].name, Code: code})
	s.SetClass(s.Class() | instruction.Conditional)
	return true
}

// ind appends a register indirect memory operand, the long register is
// selected by the low 3 opcode bits.
func ind(width instruction.Width) decoder.Mutator {
	return func(op byte, s *decoder.State) bool {
		mw, _ := s.ResolveWidth(width)
		base := longRegisters[op&7]
		s.Add(&instruction.Memory{Mode: instruction.Indirect, Base: &base, DataWidth: mw})
		return true
	}
}

// disp8 appends a register indirect memory operand with 8 bit displacement.
func disp8(width instruction.Width) decoder.Mutator {
	return func(op byte, s *decoder.State) bool {
		disp, ok := s.Int8()
		if !ok {
			return false
		}
		mw, _ := s.ResolveWidth(width)
		base := longRegisters[op&7]
		s.Add(&instruction.Memory{Mode: instruction.Indirect, Base: &base, Offset: int64(disp), DataWidth: mw})
		return true
	}
}

// mode reads a mode byte that selects register indirect, 16 bit displacement
// or register indexed addressing.
func mode(width instruction.Width) decoder.Mutator {
	return func(_ byte, s *decoder.State) bool {
		mb, ok := s.Byte()
		if !ok {
			return false
		}
		mw, _ := s.ResolveWidth(width)
		mem := &instruction.Memory{Mode: instruction.Indirect, DataWidth: mw}

		switch mb & 3 {
		case 0:
			base := longRegisters[(mb>>2)&7]
			mem.Base = &base
		case 1:
			disp, ok := s.Int16()
			if !ok {
				return false
			}
			base := longRegisters[(mb>>2)&7]
			mem.Base = &base
			mem.Offset = int64(disp)
		case 3:
			if mb != 3 && mb != 7 {
				return false
			}
			rb, ok := s.Byte()
			if !ok {
				return false
			}
			ri, ok := s.Byte()
			if !ok {
				return false
			}
			base := longRegisters[rb&7]
			index := byteRegisters[ri&7]
			if mb == 7 {
				index = wordRegisters[ri&7]
			}
			mem.Base = &base
			mem.Index = &index
		default:
			return false
		}

		s.Add(mem)
		return true
	}
}

var incDecSteps = [3]int{1, 2, 4}

func autoIndex(mm instruction.MemoryMode, width instruction.Width) decoder.Mutator {
	return func(_ byte, s *decoder.State) bool {
		r, ok := s.Byte()
		if !ok {
			return false
		}
		code := r & 3
		if int(code) >= len(incDecSteps) {
			return false
		}
		mw, _ := s.ResolveWidth(width)
		base := longRegisters[(r>>2)&7]
		s.Add(&instruction.Memory{
			Mode:      mm,
			Base:      &base,
			Step:      incDecSteps[code],
			DataWidth: mw,
		})
		return true
	}
}

// pre appends a pre decrement memory operand, post a post increment one.
// The mode byte selects the step and the base register.
func pre(width instruction.Width) decoder.Mutator {
	return autoIndex(instruction.PreDecrement, width)
}

func post(width instruction.Width) decoder.Mutator {
	return autoIndex(instruction.PostIncrement, width)
}

// Direct memory operands with 1, 2 or 3 byte addresses.
func dir8(width instruction.Width) decoder.Mutator { return decoder.AbsMemory(1, width) }

func dir16(width instruction.Width) decoder.Mutator { return decoder.AbsMemory(2, width) }

func dir24(width instruction.Width) decoder.Mutator { return decoder.AbsMemory(3, width) }

// override changes the width of the first operand.
func override(width instruction.Width) decoder.Mutator {
	return func(_ byte, s *decoder.State) bool {
		ws, ok := s.Operand(0).(instruction.WidthSetter)
		if !ok {
			return false
		}
		ws.SetWidth(width)
		s.SetWidth(width)
		return true
	}
}

// extraRegister reads the register code byte of the C7, D7 and E7 prefixes.
// Only the codes of w and bc are known, the register does not follow the
// prefix width.
func extraRegister(width instruction.Width) decoder.Mutator {
	return func(_ byte, s *decoder.State) bool {
		code, ok := s.Byte()
		if !ok {
			return false
		}
		s.SetWidth(width)
		switch code {
		case 0x31:
			s.Add(instruction.NewRegister(byteRegisters[0]))
		case 0xe6:
			s.Add(instruction.NewRegister(BC))
		default:
			return false
		}
		return true
	}
}
