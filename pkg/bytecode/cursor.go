package bytecode

import "encoding/binary"

// Cursor is a read position within a program's byte stream. All multi-byte
// fetches are little-endian. The hot path performs no bounds checks of its
// own; the bytecode is produced by a trusted compiler and an out-of-range
// fetch panics like any other slice access.
type Cursor struct {
	bytes []byte
	ip    int
}

// NewCursor returns a cursor positioned at the start of bytes.
func NewCursor(bytes []byte) Cursor {
	return Cursor{bytes: bytes}
}

// Pos returns the current instruction pointer.
func (c *Cursor) Pos() int {
	return c.ip
}

// U8 fetches one byte and advances.
func (c *Cursor) U8() byte {
	b := c.bytes[c.ip]
	c.ip++
	return b
}

// U16 fetches a little-endian 16-bit value and advances by two.
func (c *Cursor) U16() uint16 {
	v := binary.LittleEndian.Uint16(c.bytes[c.ip:])
	c.ip += 2
	return v
}

// U32 fetches a little-endian 32-bit value and advances by four.
func (c *Cursor) U32() uint32 {
	v := binary.LittleEndian.Uint32(c.bytes[c.ip:])
	c.ip += 4
	return v
}

// Jump sets the instruction pointer to an absolute address.
func (c *Cursor) Jump(addr uint32) {
	c.ip = int(addr)
}

// Skip advances the instruction pointer by n bytes.
func (c *Cursor) Skip(n int) {
	c.ip += n
}

// Goto fetches a 32-bit address, jumps to it, and returns it.
func (c *Cursor) Goto() uint32 {
	addr := c.U32()
	c.ip = int(addr)
	return addr
}
