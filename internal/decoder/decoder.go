// Package decoder implements the table driven instruction decoding engine
// that all architecture backends share.
//
// A backend describes its opcode map as a tree of nodes: Dispatch tables
// index the next opcode byte, Continuation nodes run a prefix mutator and
// dispatch the following byte through a scoped subtable, and Terminal nodes
// end the decode by running their operand mutators. Tables are built once
// and are read only afterwards, all per instruction state lives in a State
// value owned by one call of Engine.Next.
package decoder

import (
	"errors"
	"fmt"

	"github.com/retroenv/retrolift/internal/cursor"
	"github.com/retroenv/retrolift/internal/instruction"
)

var (
	// ErrTruncated is the reason of invalid instructions that ended before
	// all their bytes could be read.
	ErrTruncated = errors.New("truncated instruction")
	// ErrUnmappedEncoding is the reason of invalid instructions whose byte
	// pattern is not part of the opcode map.
	ErrUnmappedEncoding = errors.New("unmapped encoding")
)

// Mutator is one operand extraction step. It receives the opcode byte of the
// node it belongs to and may read further bytes, append operands or change
// the inferred width. Returning false makes the instruction invalid.
type Mutator func(op byte, s *State) bool

// Node is an entry of a decoder table. The set of node kinds is closed,
// backends supply tables built from Terminal, Dispatch and Continuation.
type Node interface {
	decode(op byte, s *State) bool
}

var (
	_ Node = (*Terminal)(nil)
	_ Node = (*Dispatch)(nil)
	_ Node = (*Continuation)(nil)
)

// Terminal ends a decode and defines the resulting instruction.
type Terminal struct {
	Mnemonic instruction.Mnemonic
	Class    instruction.Class
	Mutators []Mutator
}

// Instr returns a terminal node.
func Instr(mnemonic instruction.Mnemonic, class instruction.Class, mutators ...Mutator) *Terminal {
	return &Terminal{
		Mnemonic: mnemonic,
		Class:    class,
		Mutators: mutators,
	}
}

var invalidTerminal = &Terminal{Mnemonic: instruction.Illegal, Class: instruction.Invalid}

// Invalid returns the terminal that marks an unmapped encoding.
func Invalid() *Terminal {
	return invalidTerminal
}

func (t *Terminal) decode(op byte, s *State) bool {
	if t.Class&instruction.Invalid != 0 {
		return false
	}
	s.mnemonic = t.Mnemonic
	s.class = t.Class
	for _, m := range t.Mutators {
		if !m(op, s) {
			return false
		}
	}
	return true
}

// Dispatch is a 256 entry table indexed by an opcode byte. When a Dispatch
// is reached from another table it consumes one further byte to index itself.
type Dispatch struct {
	nodes [256]Node
}

// NewDispatch returns a table with the given entries.
func NewDispatch(nodes [256]Node) *Dispatch {
	return &Dispatch{nodes: nodes}
}

// Node returns the entry for the opcode byte.
func (d *Dispatch) Node(op byte) Node {
	return d.nodes[op]
}

func (d *Dispatch) decode(_ byte, s *State) bool {
	op, ok := s.Byte()
	if !ok {
		return false
	}
	return d.dispatch(op, s)
}

func (d *Dispatch) dispatch(op byte, s *State) bool {
	n := d.nodes[op]
	if n == nil {
		return false
	}
	return n.decode(op, s)
}

// Continuation runs a prefix mutator on the current byte, reads the next
// byte and dispatches it through its own table. Post runs after the
// subtable decode finished and sees the complete operand list.
type Continuation struct {
	Mutator Mutator
	Table   *Dispatch
	Post    Mutator
}

func (c *Continuation) decode(op byte, s *State) bool {
	if c.Mutator != nil && !c.Mutator(op, s) {
		return false
	}
	next, ok := s.Byte()
	if !ok {
		return false
	}
	if !c.Table.dispatch(next, s) {
		return false
	}
	if c.Post != nil {
		return c.Post(next, s)
	}
	return true
}

// Engine decodes instructions starting at a root table.
type Engine struct {
	root *Dispatch
}

// New returns an engine for the root table.
func New(root *Dispatch) *Engine {
	return &Engine{root: root}
}

// Root returns the root table.
func (e *Engine) Root() *Dispatch {
	return e.root
}

// Next decodes the instruction at the cursor position. It returns false only
// if the cursor has no byte left. Every other outcome is an instruction,
// invalid encodings included, and the cursor advanced by its length.
func (e *Engine) Next(c *cursor.Cursor) (*instruction.Instruction, bool) {
	if !c.IsValid() {
		return nil, false
	}
	return e.decode(c), true
}

func (e *Engine) decode(c *cursor.Cursor) (instr *instruction.Instruction) {
	s := NewState(c)
	defer func() {
		if r := recover(); r != nil {
			instr = s.invalid(fmt.Errorf("%w: %v", ErrUnmappedEncoding, r))
		}
	}()

	op, _ := s.Byte()
	if !e.root.dispatch(op, s) {
		if s.truncated {
			return s.invalid(ErrTruncated)
		}
		return s.invalid(ErrUnmappedEncoding)
	}
	return s.instruction()
}
