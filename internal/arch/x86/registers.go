package x86

import (
	"fmt"
	"strings"

	"github.com/retroenv/retrolift/internal/instruction"
	"golang.org/x/arch/x86/x86asm"
)

// Flags is the flags register.
var Flags = instruction.Register{Name: "eflags", Number: 0x100, Width: instruction.Word32}

// Status flag bits of the flags register.
const (
	FlagC uint32 = 1 << 0
	FlagP uint32 = 1 << 2
	FlagZ uint32 = 1 << 6
	FlagS uint32 = 1 << 7
	FlagD uint32 = 1 << 10
	FlagO uint32 = 1 << 11
)

var byteRegisterNames = [...]string{"spl", "bpl", "sil", "dil"}

// register returns the model register of an x86asm register. The register
// number is the x86asm register value.
func register(r x86asm.Reg) instruction.Register {
	return instruction.Register{Name: registerName(r), Number: int(r), Width: registerWidth(r)}
}

func registerName(r x86asm.Reg) string {
	switch {
	case r >= x86asm.SPB && r <= x86asm.DIB:
		return byteRegisterNames[r-x86asm.SPB]
	case r >= x86asm.R8L && r <= x86asm.R15L:
		return fmt.Sprintf("r%dd", 8+int(r-x86asm.R8L))
	default:
		return strings.ToLower(r.String())
	}
}

func registerWidth(r x86asm.Reg) instruction.Width {
	switch {
	case r >= x86asm.AL && r <= x86asm.R15B:
		return instruction.Byte
	case r >= x86asm.AX && r <= x86asm.R15W, r == x86asm.IP, r >= x86asm.ES && r <= x86asm.GS:
		return instruction.Word16
	case r >= x86asm.EAX && r <= x86asm.R15L, r == x86asm.EIP:
		return instruction.Word32
	case r >= x86asm.RAX && r <= x86asm.R15, r == x86asm.RIP, r >= x86asm.M0 && r <= x86asm.M7:
		return instruction.Word64
	case r >= x86asm.F0 && r <= x86asm.F7:
		return instruction.Real64
	case r >= x86asm.X0 && r <= x86asm.X15:
		return instruction.Word128
	default:
		return instruction.Word32
	}
}

// general returns the number of the general register r is a part of and
// the bit offset of r in it.
func general(r x86asm.Reg) (n int, offset int, ok bool) {
	switch {
	case r >= x86asm.AL && r <= x86asm.BL:
		return int(r - x86asm.AL), 0, true
	case r >= x86asm.AH && r <= x86asm.BH:
		return int(r - x86asm.AH), 8, true
	case r >= x86asm.SPB && r <= x86asm.DIB:
		return 4 + int(r-x86asm.SPB), 0, true
	case r >= x86asm.R8B && r <= x86asm.R15B:
		return 8 + int(r-x86asm.R8B), 0, true
	case r >= x86asm.AX && r <= x86asm.R15W:
		return int(r - x86asm.AX), 0, true
	case r >= x86asm.EAX && r <= x86asm.R15L:
		return int(r - x86asm.EAX), 0, true
	case r >= x86asm.RAX && r <= x86asm.R15:
		return int(r - x86asm.RAX), 0, true
	default:
		return 0, 0, false
	}
}

// familyBase returns the first general register of the register size of
// the processor mode.
func familyBase(mode int) x86asm.Reg {
	switch mode {
	case 16:
		return x86asm.AX
	case 64:
		return x86asm.RAX
	default:
		return x86asm.EAX
	}
}

// familyOf returns the first general register of the register size w.
func familyOf(w instruction.Width) x86asm.Reg {
	switch w {
	case instruction.Word16:
		return x86asm.AX
	case instruction.Word64:
		return x86asm.RAX
	default:
		return x86asm.EAX
	}
}

func instructionPointer(mode int) x86asm.Reg {
	switch mode {
	case 16:
		return x86asm.IP
	case 64:
		return x86asm.RIP
	default:
		return x86asm.EIP
	}
}
