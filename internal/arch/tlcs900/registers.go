package tlcs900

import "github.com/retroenv/retrolift/internal/instruction"

func reg(name string, number int, w instruction.Width) instruction.Register {
	return instruction.Register{Name: name, Number: number, Width: w}
}

// Register banks indexed by the 3 bit register code.
var (
	longRegisters = [8]instruction.Register{
		reg("xwa", 0, instruction.Word32),
		reg("xbc", 1, instruction.Word32),
		reg("xde", 2, instruction.Word32),
		reg("xhl", 3, instruction.Word32),
		reg("xix", 4, instruction.Word32),
		reg("xiy", 5, instruction.Word32),
		reg("xiz", 6, instruction.Word32),
		reg("xsp", 7, instruction.Word32),
	}
	wordRegisters = [8]instruction.Register{
		reg("wa", 0, instruction.Word16),
		reg("bc", 1, instruction.Word16),
		reg("de", 2, instruction.Word16),
		reg("hl", 3, instruction.Word16),
		reg("ix", 4, instruction.Word16),
		reg("iy", 5, instruction.Word16),
		reg("iz", 6, instruction.Word16),
		reg("sp", 7, instruction.Word16),
	}
	byteRegisters = [8]instruction.Register{
		reg("w", 0, instruction.Byte),
		reg("a", 1, instruction.Byte),
		reg("b", 2, instruction.Byte),
		reg("c", 3, instruction.Byte),
		reg("d", 4, instruction.Byte),
		reg("e", 5, instruction.Byte),
		reg("h", 6, instruction.Byte),
		reg("l", 7, instruction.Byte),
	}
	// upper halves of the long registers
	highWordRegisters = [8]instruction.Register{
		reg("qwa", 0, instruction.Word16),
		reg("qbc", 1, instruction.Word16),
		reg("qde", 2, instruction.Word16),
		reg("qhl", 3, instruction.Word16),
		reg("qix", 4, instruction.Word16),
		reg("qiy", 5, instruction.Word16),
		reg("qiz", 6, instruction.Word16),
		reg("qsp", 7, instruction.Word16),
	}
)

// Special registers.
var (
	F  = reg("f", 8, instruction.Byte)
	SR = reg("sr", 9, instruction.Word16)

	A   = byteRegisters[1]
	WA  = wordRegisters[0]
	BC  = wordRegisters[1]
	XDE = longRegisters[2]
	XHL = longRegisters[3]
	XSP = longRegisters[7]
)

// Reg returns the register of the given width for a register code, of
// which only the low 3 bits are used.
func Reg(w instruction.Width, n int) (instruction.Register, bool) {
	switch w {
	case instruction.Byte:
		return byteRegisters[n&7], true
	case instruction.Word16:
		return wordRegisters[n&7], true
	case instruction.Word32:
		return longRegisters[n&7], true
	default:
		return instruction.Register{}, false
	}
}

// Registers returns all registers.
func Registers() []instruction.Register {
	regs := make([]instruction.Register, 0, 34)
	regs = append(regs, longRegisters[:]...)
	regs = append(regs, wordRegisters[:]...)
	regs = append(regs, highWordRegisters[:]...)
	regs = append(regs, byteRegisters[:]...)
	return append(regs, F, SR)
}

// widen returns the register twice as wide that contains r in its lower
// half, byte registers map to the word register of their pair.
func widen(r instruction.Register) (instruction.Register, bool) {
	switch r.Width {
	case instruction.Byte:
		return wordRegisters[r.Number/2], true
	case instruction.Word16:
		if r.Name[0] == 'q' {
			return instruction.Register{}, false
		}
		return longRegisters[r.Number], true
	default:
		return instruction.Register{}, false
	}
}

// halves returns the low and high half of a word or long register.
func halves(r instruction.Register) (low, high instruction.Register, ok bool) {
	switch r.Width {
	case instruction.Word16:
		if r.Name[0] == 'q' || r.Number >= 4 {
			return low, high, false
		}
		return byteRegisters[r.Number*2+1], byteRegisters[r.Number*2], true
	case instruction.Word32:
		return wordRegisters[r.Number], highWordRegisters[r.Number], true
	default:
		return low, high, false
	}
}

// Flag bits of the f register.
const (
	FlagS uint32 = 0x80
	FlagZ uint32 = 0x40
	FlagH uint32 = 0x10
	FlagV uint32 = 0x04
	FlagN uint32 = 0x02
	FlagC uint32 = 0x01
)

var flagOrder = []struct {
	bit  uint32
	name string
}{
	{FlagS, "S"},
	{FlagZ, "Z"},
	{FlagH, "H"},
	{FlagV, "V"},
	{FlagN, "N"},
	{FlagC, "C"},
}

// flagGroupName returns the name of a set of flags, like SZHVC.
func flagGroupName(bits uint32) string {
	name := make([]byte, 0, len(flagOrder))
	for _, f := range flagOrder {
		if bits&f.bit != 0 {
			name = append(name, f.name...)
		}
	}
	return string(name)
}
