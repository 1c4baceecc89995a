package decoder

import "github.com/retroenv/retrolift/internal/instruction"

// Seq composes mutators into one that runs them in order.
func Seq(mutators ...Mutator) Mutator {
	return func(op byte, s *State) bool {
		for _, m := range mutators {
			if !m(op, s) {
				return false
			}
		}
		return true
	}
}

// SetWidth sets the inferred width without consuming bytes.
func SetWidth(w instruction.Width) Mutator {
	return func(_ byte, s *State) bool {
		s.SetWidth(w)
		return true
	}
}

// Reverse reverses the operand order, for encodings that list the
// destination after the source.
func Reverse(_ byte, s *State) bool {
	s.Reverse()
	return true
}

// Clear drops all operands decoded so far.
func Clear(_ byte, s *State) bool {
	s.Clear()
	return true
}

// Imm reads an immediate of width w, or of the inferred width if w is Unset.
func Imm(w instruction.Width) Mutator {
	return func(_ byte, s *State) bool {
		width, ok := s.ResolveWidth(w)
		if !ok {
			return false
		}
		v, ok := s.Read(width)
		if !ok {
			return false
		}
		s.Add(instruction.NewImmediate(v, width))
		return true
	}
}

// SignedImm reads an immediate like Imm and marks it as signed.
func SignedImm(w instruction.Width) Mutator {
	return func(op byte, s *State) bool {
		if !Imm(w)(op, s) {
			return false
		}
		s.operands[len(s.operands)-1].(*instruction.Immediate).Signed = true
		return true
	}
}

// EmbeddedImm appends an immediate taken from the opcode bits selected by
// mask. If zeroValue is not 0, an encoded 0 stands for zeroValue, like shift
// counts where 0 encodes the maximum.
func EmbeddedImm(mask byte, zeroValue uint64, w instruction.Width) Mutator {
	shift := 0
	for mask != 0 && mask&(1<<shift) == 0 {
		shift++
	}
	return func(op byte, s *State) bool {
		width, ok := s.ResolveWidth(w)
		if !ok {
			return false
		}
		v := uint64(op&mask) >> shift
		if v == 0 && zeroValue != 0 {
			v = zeroValue
		}
		s.Add(instruction.NewImmediate(v, width))
		return true
	}
}

// RelTarget reads a signed displacement of width w and appends the target
// address, relative to the address following the displacement.
func RelTarget(w, addressWidth instruction.Width) Mutator {
	return func(_ byte, s *State) bool {
		disp, ok := s.ReadSigned(w)
		if !ok {
			return false
		}
		target := uint64(int64(s.Next())+disp) & addressWidth.Mask()
		s.Add(instruction.NewAddress(target, addressWidth))
		return true
	}
}

// AbsTarget reads a size byte absolute address and appends it as target.
func AbsTarget(size int, addressWidth instruction.Width) Mutator {
	return func(_ byte, s *State) bool {
		v, ok := s.UintN(size)
		if !ok {
			return false
		}
		s.Add(instruction.NewAddress(v, addressWidth))
		return true
	}
}

// AbsMemory reads a size byte absolute address and appends a direct memory
// operand of width w. An unset width falls back to the inferred width and
// stays unset if that is unknown too.
func AbsMemory(size int, w instruction.Width) Mutator {
	return func(_ byte, s *State) bool {
		v, ok := s.UintN(size)
		if !ok {
			return false
		}
		width, _ := s.ResolveWidth(w)
		s.Add(&instruction.Memory{
			Mode:      instruction.Direct,
			Address:   v,
			DataWidth: width,
		})
		return true
	}
}

// RenameForWidth replaces the mnemonic if the inferred width equals w.
func RenameForWidth(w instruction.Width, m instruction.Mnemonic) Mutator {
	return func(_ byte, s *State) bool {
		if s.Width() == w {
			s.Rename(m)
		}
		return true
	}
}

// PropagateWidth gives the first memory operand without a width the width of
// the first other operand that has one. Encodings that carry the width only
// in the source operand use it to type their memory destination.
func PropagateWidth(_ byte, s *State) bool {
	var target instruction.WidthSetter
	var width instruction.Width
	for _, op := range s.operands {
		if m, ok := op.(*instruction.Memory); ok && target == nil && !m.DataWidth.IsSet() {
			target = m
			continue
		}
		if !width.IsSet() {
			width = op.Width()
		}
	}
	if target != nil && width.IsSet() {
		target.SetWidth(width)
	}
	return true
}

// DefaultTransferWidth sets the width of memory operands that are still
// unset to w, for transfer instructions only. Indirect conditional jumps and
// calls carry no width information in their encoding.
func DefaultTransferWidth(w instruction.Width) Mutator {
	return func(_ byte, s *State) bool {
		if s.class&instruction.Transfer == 0 {
			return true
		}
		for _, op := range s.operands {
			if m, ok := op.(*instruction.Memory); ok && !m.DataWidth.IsSet() {
				m.SetWidth(w)
			}
		}
		return true
	}
}
