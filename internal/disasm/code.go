package disasm

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
	"github.com/retroenv/retrolift/internal/arch"
	"github.com/retroenv/retrolift/internal/instruction"
	"github.com/retroenv/retrolift/internal/rtl"
)

const (
	funcNaming  = "_func_%0*x"
	labelNaming = "_label_%0*x"
)

// Trace follows the control flow starting at the entry points. Execution
// continues after instructions that fall through, transfer targets that
// are known addresses get queued. Without entries the option entries, the
// entry points of the architecture or the base address are used, in that
// order. The result is sorted by address.
func (s *Session) Trace(ctx context.Context, entries ...uint64) ([]*instruction.Instruction, error) {
	if len(entries) == 0 {
		entries = s.entryPoints()
	}

	queued := set.New[uint64]()
	visited := set.New[uint64]()
	var queue []uint64
	enqueue := func(address uint64) {
		if queued.Contains(address) {
			return
		}
		queued.Add(address)
		queue = append(queue, address)
	}
	for _, entry := range entries {
		enqueue(entry)
	}

	var result []*instruction.Instruction
	for len(queue) > 0 {
		address := queue[0]
		queue = queue[1:]

		for !visited.Contains(address) {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("tracing at %X: %w", address, err)
			}

			instr, ok := s.Decode(address)
			if !ok {
				s.logger.Debug("Trace left the image", log.Hex("address", address))
				break
			}
			visited.Add(address)
			result = append(result, instr)

			if instr.Class.IsTransfer() {
				for _, target := range s.targets(instr) {
					enqueue(target)
				}
			}
			if !instr.Class.FallsThrough() {
				break
			}
			address += uint64(max(instr.Length, 1))
		}
	}

	slices.SortFunc(result, func(a, b *instruction.Instruction) int {
		switch {
		case a.Address < b.Address:
			return -1
		case a.Address > b.Address:
			return 1
		default:
			return 0
		}
	})

	s.logger.Debug("Trace finished",
		log.Int("entries", len(entries)),
		log.Int("instructions", len(result)))
	return result, nil
}

// entryPoints returns the trace start addresses to use if none are passed.
func (s *Session) entryPoints() []uint64 {
	if len(s.options.Entries) > 0 {
		return s.options.Entries
	}
	if ep, ok := s.arch.(arch.EntryPointer); ok {
		if entries := ep.EntryPoints(s.cursor()); len(entries) > 0 {
			return entries
		}
	}
	return []uint64{s.options.Base}
}

// targets returns the absolute code addresses an instruction can transfer
// to, as found in the effects of its RTL. Computed targets are skipped.
// Every target gets a label, call targets are named as functions.
func (s *Session) targets(instr *instruction.Instruction) []uint64 {
	frame := rtl.NewFrame(s.arch.PointerWidth())
	cluster := s.arch.Rewrite(instr, frame)

	var targets []uint64
	for _, effect := range cluster.Effects {
		var target rtl.Expr
		naming := labelNaming
		switch e := effect.(type) {
		case *rtl.Branch:
			target = e.Target
		case *rtl.Goto:
			target = e.Target
		case *rtl.Call:
			target = e.Target
			naming = funcNaming
		default:
			continue
		}

		address, ok := target.(rtl.CodeAddress)
		if !ok {
			continue
		}
		s.setLabel(address.Value, naming)
		if !slices.Contains(targets, address.Value) {
			targets = append(targets, address.Value)
		}
	}
	return targets
}

// setLabel names a transfer target. Function names take precedence over
// plain labels.
func (s *Session) setLabel(address uint64, naming string) {
	if name, ok := s.labels[address]; ok && (naming == labelNaming || strings.HasPrefix(name, "_func_")) {
		return
	}
	digits := s.arch.PointerWidth().Size() * 2
	s.labels[address] = fmt.Sprintf(naming, digits, address)
}

// Label returns the label of a transfer target found by a previous sweep.
func (s *Session) Label(address uint64) (string, bool) {
	name, ok := s.labels[address]
	return name, ok
}
