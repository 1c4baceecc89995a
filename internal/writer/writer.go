// Package writer implements the listing output of disassembled and lifted
// instructions.
package writer

import (
	"fmt"
	"hash/crc32"
	"io"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/retroenv/retrolift/internal/instruction"
	"github.com/retroenv/retrolift/internal/rtl"
)

// mnemonicWidth is the column width the mnemonic is padded to.
const mnemonicWidth = 8

// Source provides the image bytes, the RTL and the labels of instructions.
type Source interface {
	Bytes(instr *instruction.Instruction) []byte
	Label(address uint64) (string, bool)
	Lift(instr *instruction.Instruction) *rtl.Cluster
}

// Options of the writer.
type Options struct {
	AddressDigits int // number of hex digits of addresses

	HexComments bool // opcode bytes as comment
	RTL         bool // RTL lines below every instruction
	Dump        bool // dump of the decoded instruction value
	Uppercase   bool
}

// Writer writes instruction listings.
type Writer struct {
	options Options
	writer  io.Writer
	dumper  *spew.ConfigState
}

// New creates a new writer.
func New(writer io.Writer, options Options) *Writer {
	if options.AddressDigits <= 0 {
		options.AddressDigits = 8
	}
	return &Writer{
		options: options,
		writer:  writer,
		dumper: &spew.ConfigState{
			Indent:                  "  ",
			DisablePointerAddresses: true,
			DisableCapacities:       true,
			SortKeys:                true,
		},
	}
}

// WriteCommentHeader writes the architecture, the base address and the
// CRC32 checksum of the image as comments to the output.
func (w Writer) WriteCommentHeader(architecture string, base uint64, image []byte) error {
	if _, err := fmt.Fprintf(w.writer, "; Architecture: %s\n", architecture); err != nil {
		return fmt.Errorf("writing architecture: %w", err)
	}
	if _, err := fmt.Fprintf(w.writer, "; Base address: $%0*X\n", w.options.AddressDigits, base); err != nil {
		return fmt.Errorf("writing base address: %w", err)
	}
	if _, err := fmt.Fprintf(w.writer, "; Image CRC32 checksum: %08x\n\n", crc32.ChecksumIEEE(image)); err != nil {
		return fmt.Errorf("writing image checksum: %w", err)
	}
	return nil
}

// Write writes the listing of the instructions, which are expected to be
// sorted by address. An empty line separates instructions that are not
// adjacent and precedes labels.
func (w Writer) Write(instructions []*instruction.Instruction, source Source) error {
	for i, instr := range instructions {
		label, hasLabel := source.Label(instr.Address)
		if i > 0 && (hasLabel || instructions[i-1].Next() != instr.Address) {
			if _, err := fmt.Fprintln(w.writer); err != nil {
				return fmt.Errorf("writing line: %w", err)
			}
		}
		if hasLabel {
			if _, err := fmt.Fprintf(w.writer, "%s:\n", label); err != nil {
				return fmt.Errorf("writing label: %w", err)
			}
		}

		if err := w.writeInstruction(instr, source); err != nil {
			return fmt.Errorf("writing instruction at %X: %w", instr.Address, err)
		}
	}
	return nil
}

func (w Writer) writeInstruction(instr *instruction.Instruction, source Source) error {
	line := fmt.Sprintf("%0*X  %s", w.options.AddressDigits, instr.Address, w.code(instr))

	var comments []string
	if w.options.HexComments {
		comments = append(comments, hexBytes(source.Bytes(instr)))
	}
	if instr.IsInvalid() && instr.Reason != nil {
		comments = append(comments, instr.Reason.Error())
	}

	var err error
	if len(comments) == 0 {
		_, err = fmt.Fprintf(w.writer, "%s\n", line)
	} else {
		_, err = fmt.Fprintf(w.writer, "%-40s ; %s\n", line, strings.Join(comments, "  "))
	}
	if err != nil {
		return fmt.Errorf("writing code line: %w", err)
	}

	if w.options.RTL {
		for _, rtlLine := range source.Lift(instr).Lines() {
			if _, err := fmt.Fprintf(w.writer, "    %s\n", rtlLine); err != nil {
				return fmt.Errorf("writing rtl line: %w", err)
			}
		}
	}

	if w.options.Dump {
		for dumpLine := range strings.Lines(w.dumper.Sdump(instr)) {
			if _, err := fmt.Fprintf(w.writer, "    ; %s", dumpLine); err != nil {
				return fmt.Errorf("writing dump line: %w", err)
			}
		}
	}
	return nil
}

// code renders the instruction with the mnemonic padded to a column.
func (w Writer) code(instr *instruction.Instruction) string {
	text := instr.Render(instruction.RenderOptions{
		Uppercase:     w.options.Uppercase,
		AddressDigits: w.options.AddressDigits,
	})
	mnemonic, operands, ok := strings.Cut(text, "\t")
	if !ok {
		return mnemonic
	}
	return fmt.Sprintf("%-*s %s", mnemonicWidth-1, mnemonic, operands)
}

func hexBytes(data []byte) string {
	var b strings.Builder
	for i, d := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", d)
	}
	return b.String()
}
