// Package cursor provides a bounded forward reader over an immutable byte
// buffer that is mapped at a base address.
package cursor

import "encoding/binary"

// Cursor reads values from a byte buffer using a fixed byte order.
// A failed read never advances the position.
type Cursor struct {
	data  []byte
	base  uint64
	pos   int
	order binary.ByteOrder
}

// New returns a cursor positioned at the start of data, which is mapped at
// the given base address. The buffer must not be modified while in use.
func New(data []byte, base uint64, order binary.ByteOrder) *Cursor {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Cursor{
		data:  data,
		base:  base,
		order: order,
	}
}

// Clone returns an independent cursor over the same buffer at the same position.
func (c *Cursor) Clone() *Cursor {
	clone := *c
	return &clone
}

// Address returns the absolute address of the next byte to read.
func (c *Cursor) Address() uint64 {
	return c.base + uint64(c.pos)
}

// Base returns the address the first byte of the buffer is mapped at.
func (c *Cursor) Base() uint64 {
	return c.base
}

// End returns the address following the last byte of the buffer.
func (c *Cursor) End() uint64 {
	return c.base + uint64(len(c.data))
}

// Offset returns the current position relative to the buffer start.
func (c *Cursor) Offset() int {
	return c.pos
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.data) - c.pos
}

// IsValid returns whether at least one byte can be read.
func (c *Cursor) IsValid() bool {
	return c.pos < len(c.data)
}

// ByteOrder returns the byte order used for multi byte reads.
func (c *Cursor) ByteOrder() binary.ByteOrder {
	return c.order
}

// Contains returns whether the address is mapped by the buffer.
func (c *Cursor) Contains(address uint64) bool {
	return address >= c.base && address < c.End()
}

// Seek moves the cursor to the given absolute address. The end address is a
// valid position, addresses outside the buffer are rejected.
func (c *Cursor) Seek(address uint64) bool {
	if address < c.base || address > c.End() {
		return false
	}
	c.pos = int(address - c.base)
	return true
}

// Skip advances the cursor by n bytes if that many bytes remain.
func (c *Cursor) Skip(n int) bool {
	if n < 0 || n > c.Remaining() {
		return false
	}
	c.pos += n
	return true
}

// Peek returns up to n bytes starting at the current position without
// advancing. The returned slice aliases the buffer and must not be modified.
func (c *Cursor) Peek(n int) []byte {
	end := min(c.pos+n, len(c.data))
	return c.data[c.pos:end]
}

// Slice returns the bytes between the two absolute addresses, clamped to
// the buffer. The returned slice aliases the buffer and must not be modified.
func (c *Cursor) Slice(from, to uint64) []byte {
	if from < c.base {
		from = c.base
	}
	if to > c.End() {
		to = c.End()
	}
	if from >= to {
		return nil
	}
	return c.data[from-c.base : to-c.base]
}

func (c *Cursor) take(n int) ([]byte, bool) {
	if n > c.Remaining() {
		return nil, false
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, true
}

// TryReadUint8 reads one byte.
func (c *Cursor) TryReadUint8() (uint8, bool) {
	if !c.IsValid() {
		return 0, false
	}
	b := c.data[c.pos]
	c.pos++
	return b, true
}

// TryReadInt8 reads one signed byte.
func (c *Cursor) TryReadInt8() (int8, bool) {
	b, ok := c.TryReadUint8()
	return int8(b), ok
}

// TryReadUint16 reads a 16 bit value in the cursor byte order.
func (c *Cursor) TryReadUint16() (uint16, bool) {
	b, ok := c.take(2)
	if !ok {
		return 0, false
	}
	return c.order.Uint16(b), true
}

// TryReadInt16 reads a signed 16 bit value in the cursor byte order.
func (c *Cursor) TryReadInt16() (int16, bool) {
	v, ok := c.TryReadUint16()
	return int16(v), ok
}

// TryReadUint32 reads a 32 bit value in the cursor byte order.
func (c *Cursor) TryReadUint32() (uint32, bool) {
	b, ok := c.take(4)
	if !ok {
		return 0, false
	}
	return c.order.Uint32(b), true
}

// TryReadInt32 reads a signed 32 bit value in the cursor byte order.
func (c *Cursor) TryReadInt32() (int32, bool) {
	v, ok := c.TryReadUint32()
	return int32(v), ok
}

// TryReadUint64 reads a 64 bit value in the cursor byte order.
func (c *Cursor) TryReadUint64() (uint64, bool) {
	b, ok := c.take(8)
	if !ok {
		return 0, false
	}
	return c.order.Uint64(b), true
}

// TryReadUintN reads an n byte unsigned value in the cursor byte order,
// used for encodings like 24 bit addresses. n must be between 1 and 8.
func (c *Cursor) TryReadUintN(n int) (uint64, bool) {
	if n < 1 || n > 8 {
		return 0, false
	}
	b, ok := c.take(n)
	if !ok {
		return 0, false
	}

	var v uint64
	if c.order == binary.BigEndian {
		for _, x := range b {
			v = v<<8 | uint64(x)
		}
		return v, true
	}
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, true
}
