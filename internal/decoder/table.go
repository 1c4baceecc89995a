package decoder

import (
	"errors"
	"fmt"

	"github.com/retroenv/retrogolib/set"
)

// Builder assembles the entries of a Dispatch table.
type Builder struct {
	nodes [256]Node
}

// Set assigns the node to one opcode byte.
func (b *Builder) Set(op byte, n Node) *Builder {
	b.nodes[op] = n
	return b
}

// Range assigns the node to all opcode bytes from first to last inclusive.
func (b *Builder) Range(first, last byte, n Node) *Builder {
	for op := int(first); op <= int(last); op++ {
		b.nodes[op] = n
	}
	return b
}

// RangeFunc assigns the nodes returned by fn for every opcode byte from
// first to last inclusive.
func (b *Builder) RangeFunc(first, last byte, fn func(op byte) Node) *Builder {
	for op := int(first); op <= int(last); op++ {
		b.nodes[op] = fn(byte(op))
	}
	return b
}

// Rows assigns a row of 8 nodes repeatedly, starting at first, for count rows.
// Opcode maps often repeat an operation for the 8 register encodings of the
// low 3 bits.
func (b *Builder) Rows(first byte, count int, row func(op byte) Node) *Builder {
	for i := range count * 8 {
		op := int(first) + i
		if op > 0xff {
			break
		}
		b.nodes[op] = row(byte(op))
	}
	return b
}

// Fill assigns the node to all entries that are not set yet.
func (b *Builder) Fill(n Node) *Builder {
	for i, node := range b.nodes {
		if node == nil {
			b.nodes[i] = n
		}
	}
	return b
}

// Build returns the table. Entries that were never set stay missing, which
// CheckTotal reports.
func (b *Builder) Build() *Dispatch {
	return &Dispatch{nodes: b.nodes}
}

// CheckTotal walks every table reachable from root and returns an error
// listing all entries that do not resolve to a node.
func CheckTotal(root *Dispatch) error {
	var errs []error
	visited := set.New[*Dispatch]()

	var walk func(d *Dispatch, path string)
	walk = func(d *Dispatch, path string) {
		if visited.Contains(d) {
			return
		}
		visited.Add(d)

		for op, n := range d.nodes {
			entry := fmt.Sprintf("%s%02X", path, op)
			switch node := n.(type) {
			case nil:
				errs = append(errs, fmt.Errorf("missing entry %s", entry))
			case *Dispatch:
				walk(node, entry+" ")
			case *Continuation:
				if node.Table == nil {
					errs = append(errs, fmt.Errorf("continuation %s has no table", entry))
					continue
				}
				walk(node.Table, entry+" ")
			}
		}
	}

	if root == nil {
		return errors.New("missing root table")
	}
	walk(root, "")
	return errors.Join(errs...)
}

// Tables returns the number of distinct tables reachable from root.
func Tables(root *Dispatch) int {
	visited := set.New[*Dispatch]()
	count := 0
	var walk func(d *Dispatch)
	walk = func(d *Dispatch) {
		if d == nil || visited.Contains(d) {
			return
		}
		visited.Add(d)
		count++
		for _, n := range d.nodes {
			switch node := n.(type) {
			case *Dispatch:
				walk(node)
			case *Continuation:
				walk(node.Table)
			}
		}
	}
	walk(root)
	return count
}
