// Package disasm implements the listing session that drives an architecture
// backend over a raw image.
package disasm

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrolift/internal/arch"
	"github.com/retroenv/retrolift/internal/cursor"
	"github.com/retroenv/retrolift/internal/instruction"
	"github.com/retroenv/retrolift/internal/options"
	"github.com/retroenv/retrolift/internal/rtl"
)

// Session disassembles and lifts the instructions of one image.
type Session struct {
	arch    arch.Architecture
	logger  *log.Logger
	options options.Disassembler

	image []byte

	// decoded instructions by address, decoding is deterministic so a
	// cached instruction equals a fresh decode
	cache *lru.Cache[uint64, *instruction.Instruction]

	labels map[uint64]string // names of transfer targets
}

// New creates a new session for the image that is mapped at the base
// address of the options.
func New(logger *log.Logger, ar arch.Architecture, image []byte, opts options.Disassembler) (*Session, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = options.DefaultCacheSize
	}
	cache, err := lru.New[uint64, *instruction.Instruction](size)
	if err != nil {
		return nil, fmt.Errorf("creating instruction cache: %w", err)
	}

	return &Session{
		arch:    ar,
		logger:  logger,
		options: opts,
		image:   image,
		cache:   cache,
		labels:  map[uint64]string{},
	}, nil
}

// Arch returns the architecture of the session.
func (s *Session) Arch() arch.Architecture {
	return s.arch
}

// Options returns the options of the session.
func (s *Session) Options() options.Disassembler {
	return s.options
}

// Bytes returns the image bytes of an instruction.
func (s *Session) Bytes(instr *instruction.Instruction) []byte {
	return s.cursor().Slice(instr.Address, instr.Address+uint64(instr.Length))
}

// Linear decodes the image from the base address to its end, every
// instruction starts where the previous one ended.
func (s *Session) Linear(ctx context.Context) ([]*instruction.Instruction, error) {
	c := s.cursor()
	var result []*instruction.Instruction

	for address := c.Base(); address < c.End(); {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("linear sweep at %X: %w", address, err)
		}

		instr, ok := s.Decode(address)
		if !ok {
			break
		}
		result = append(result, instr)
		if instr.Class.IsTransfer() {
			s.targets(instr)
		}
		address += uint64(max(instr.Length, 1))
	}

	s.logger.Debug("Linear sweep finished",
		log.Int("instructions", len(result)))
	return result, nil
}

// Decode returns the instruction at the address. It returns false if the
// address is outside of the image.
func (s *Session) Decode(address uint64) (*instruction.Instruction, bool) {
	if instr, ok := s.cache.Get(address); ok {
		return instr, true
	}

	c := s.cursor()
	if !c.Contains(address) || !c.Seek(address) {
		return nil, false
	}
	instr, ok := s.arch.Disassemble(c)
	if !ok {
		return nil, false
	}

	if instr.IsInvalid() {
		s.logger.Debug("Invalid instruction",
			log.Hex("address", address),
			log.Int("length", instr.Length),
			log.Err(instr.Reason))
	}
	s.cache.Add(address, instr)
	return instr, true
}

// Lift lowers the instruction to RTL using a fresh frame.
func (s *Session) Lift(instr *instruction.Instruction) *rtl.Cluster {
	frame := rtl.NewFrame(s.arch.PointerWidth())
	cluster := s.arch.Rewrite(instr, frame)

	if cluster.IsUnimplemented() {
		s.logger.Warn("Instruction lowering not implemented",
			log.Hex("address", instr.Address),
			log.String("mnemonic", string(instr.Mnemonic)),
			log.Err(cluster.Reason))
	}
	return cluster
}

// cursor returns a new cursor over the image.
func (s *Session) cursor() *cursor.Cursor {
	return cursor.New(s.image, s.options.Base, s.arch.ByteOrder())
}
