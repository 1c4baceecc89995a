package x86

import (
	"fmt"
	"strings"

	"github.com/retroenv/retrolift/internal/decoder"
	"github.com/retroenv/retrolift/internal/instruction"
	"golang.org/x/arch/x86/x86asm"
)

// classes maps the control flow instructions to their class, all other
// instructions are linear.
var classes = map[x86asm.Op]instruction.Class{
	x86asm.JMP:   instruction.Transfer,
	x86asm.LJMP:  instruction.Transfer,
	x86asm.CALL:  instruction.Transfer | instruction.Call,
	x86asm.LCALL: instruction.Transfer | instruction.Call,
	x86asm.RET:   instruction.Transfer | instruction.Return,
	x86asm.LRET:  instruction.Transfer | instruction.Return,
	x86asm.IRET:  instruction.Transfer | instruction.Return,
	x86asm.IRETD: instruction.Transfer | instruction.Return,
	x86asm.IRETQ: instruction.Transfer | instruction.Return,
	x86asm.HLT:   instruction.Transfer | instruction.Privileged,
	x86asm.UD2:   instruction.Transfer,

	x86asm.JA:     instruction.Transfer | instruction.Conditional,
	x86asm.JAE:    instruction.Transfer | instruction.Conditional,
	x86asm.JB:     instruction.Transfer | instruction.Conditional,
	x86asm.JBE:    instruction.Transfer | instruction.Conditional,
	x86asm.JE:     instruction.Transfer | instruction.Conditional,
	x86asm.JNE:    instruction.Transfer | instruction.Conditional,
	x86asm.JG:     instruction.Transfer | instruction.Conditional,
	x86asm.JGE:    instruction.Transfer | instruction.Conditional,
	x86asm.JL:     instruction.Transfer | instruction.Conditional,
	x86asm.JLE:    instruction.Transfer | instruction.Conditional,
	x86asm.JO:     instruction.Transfer | instruction.Conditional,
	x86asm.JNO:    instruction.Transfer | instruction.Conditional,
	x86asm.JS:     instruction.Transfer | instruction.Conditional,
	x86asm.JNS:    instruction.Transfer | instruction.Conditional,
	x86asm.JP:     instruction.Transfer | instruction.Conditional,
	x86asm.JNP:    instruction.Transfer | instruction.Conditional,
	x86asm.JCXZ:   instruction.Transfer | instruction.Conditional,
	x86asm.JECXZ:  instruction.Transfer | instruction.Conditional,
	x86asm.JRCXZ:  instruction.Transfer | instruction.Conditional,
	x86asm.LOOP:   instruction.Transfer | instruction.Conditional,
	x86asm.LOOPE:  instruction.Transfer | instruction.Conditional,
	x86asm.LOOPNE: instruction.Transfer | instruction.Conditional,
}

// stringWidths are the element widths of the string instructions, whose
// implicit memory operands carry no size.
var stringWidths = map[x86asm.Op]instruction.Width{
	x86asm.MOVSB: instruction.Byte,
	x86asm.MOVSW: instruction.Word16,
	x86asm.MOVSD: instruction.Word32,
	x86asm.MOVSQ: instruction.Word64,
	x86asm.CMPSB: instruction.Byte,
	x86asm.CMPSW: instruction.Word16,
	x86asm.CMPSD: instruction.Word32,
	x86asm.CMPSQ: instruction.Word64,
	x86asm.STOSB: instruction.Byte,
	x86asm.STOSW: instruction.Word16,
	x86asm.STOSD: instruction.Word32,
	x86asm.STOSQ: instruction.Word64,
	x86asm.LODSB: instruction.Byte,
	x86asm.LODSW: instruction.Word16,
	x86asm.LODSD: instruction.Word32,
	x86asm.LODSQ: instruction.Word64,
	x86asm.SCASB: instruction.Byte,
	x86asm.SCASW: instruction.Word16,
	x86asm.SCASD: instruction.Word32,
	x86asm.SCASQ: instruction.Word64,
}

// convert maps a decoded x86asm instruction to the instruction model.
// Relative targets and RIP relative memory are resolved against the
// address of the next instruction, like delve does it.
func (a *Arch) convert(inst x86asm.Inst, address uint64) (*instruction.Instruction, error) {
	instr := &instruction.Instruction{
		Address: address,
		Length:  inst.Len,
		Class:   classes[inst.Op],
	}
	if instr.Class == 0 {
		instr.Class = instruction.Linear
	}

	mnemonic := strings.ToLower(strings.TrimSuffix(inst.Op.String(), "_XMM"))
	if prefix := repeatPrefix(inst); prefix != "" {
		mnemonic = prefix + " " + mnemonic
		// the repeated instruction branches back to itself
		instr.Class = instruction.Transfer | instruction.Conditional
	}
	instr.Mnemonic = instruction.Mnemonic(mnemonic)

	next := address + uint64(inst.Len)
	for i, arg := range inst.Args {
		if arg == nil {
			break
		}
		op, err := a.operand(inst, i, next)
		if err != nil {
			return nil, err
		}
		instr.Operands = append(instr.Operands, op)
	}
	return instr, nil
}

// repeatPrefix returns the name of the repeat prefix of a string
// instruction.
func repeatPrefix(inst x86asm.Inst) string {
	if _, ok := stringWidths[inst.Op]; !ok {
		return ""
	}
	for _, p := range inst.Prefix {
		if p == 0 {
			break
		}
		if p&x86asm.PrefixIgnored != 0 {
			continue
		}
		switch p &^ x86asm.PrefixImplicit {
		case x86asm.PrefixREP:
			return "rep"
		case x86asm.PrefixREPN:
			return "repne"
		}
	}
	return ""
}

func (a *Arch) operand(inst x86asm.Inst, i int, next uint64) (instruction.Operand, error) {
	pointer := a.PointerWidth()

	switch arg := inst.Args[i].(type) {
	case x86asm.Reg:
		return instruction.NewRegister(register(arg)), nil

	case x86asm.Imm:
		return instruction.NewImmediate(uint64(arg), immediateWidth(inst, i)), nil

	case x86asm.Rel:
		target := uint64(int64(next)+int64(arg)) & pointer.Mask()
		return instruction.NewAddress(target, pointer), nil

	case x86asm.Mem:
		m := &instruction.Memory{
			Mode:      instruction.Indirect,
			Offset:    arg.Disp,
			DataWidth: memoryWidth(inst.MemBytes),
		}
		if w, ok := stringWidths[inst.Op]; ok && !m.DataWidth.IsSet() {
			m.DataWidth = w
		}
		switch arg.Base {
		case 0:
		case x86asm.RIP, x86asm.EIP:
			m.Offset = int64(uint64(int64(next)+arg.Disp) & pointer.Mask())
		default:
			base := register(arg.Base)
			m.Base = &base
		}
		if arg.Index != 0 {
			index := register(arg.Index)
			m.Index = &index
			m.Scale = arg.Scale
		}
		if arg.Segment != 0 {
			segment := register(arg.Segment)
			m.Segment = &segment
		}
		return m, nil

	default:
		return nil, fmt.Errorf("%w: operand %v", decoder.ErrUnmappedEncoding, arg)
	}
}

// immediateWidth returns the width of immediate operand i. Immediates
// following a register or memory operand have its width.
func immediateWidth(inst x86asm.Inst, i int) instruction.Width {
	switch inst.Op {
	case x86asm.INT:
		return instruction.Byte
	case x86asm.RET, x86asm.LRET, x86asm.ENTER:
		return instruction.Word16
	}

	if i > 0 {
		switch first := inst.Args[0].(type) {
		case x86asm.Reg:
			return registerWidth(first)
		case x86asm.Mem:
			if w := memoryWidth(inst.MemBytes); w.IsSet() {
				return w
			}
		}
	}
	return modeWidth(inst.DataSize)
}

func memoryWidth(size int) instruction.Width {
	switch size {
	case 1:
		return instruction.Byte
	case 2:
		return instruction.Word16
	case 4:
		return instruction.Word32
	case 8:
		return instruction.Word64
	case 16:
		return instruction.Word128
	default:
		return instruction.Unset
	}
}
