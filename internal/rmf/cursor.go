package rmf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ByteOrder is the byte order of every fixed-width field in an RMF document.
var ByteOrder binary.ByteOrder = binary.LittleEndian

// Cursor is a bounded reader over an immutable byte buffer.
type Cursor struct {
	data []byte
	off  int
}

func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Reset installs data as the backing buffer and rewinds to offset 0.
func (c *Cursor) Reset(data []byte) {
	c.data = data
	c.off = 0
}

func (c *Cursor) Offset() int    { return c.off }
func (c *Cursor) Len() int       { return len(c.data) }
func (c *Cursor) Remaining() int { return len(c.data) - c.off }

// Read returns a copy of the next n bytes and advances past them.
func (c *Cursor) Read(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, fmt.Errorf("%w: read %d bytes at offset %d (len %d)", ErrOutOfRange, n, c.off, len(c.data))
	}
	out := make([]byte, n)
	copy(out, c.data[c.off:c.off+n])
	c.off += n
	return out, nil
}

// Seek moves the offset by delta, which may be negative.
func (c *Cursor) Seek(delta int) error {
	pos := c.off + delta
	if pos < 0 || pos > len(c.data) {
		return fmt.Errorf("%w: seek %+d from offset %d (len %d)", ErrOutOfRange, delta, c.off, len(c.data))
	}
	c.off = pos
	return nil
}

func (c *Cursor) SetOffset(pos int) error {
	if pos < 0 || pos > len(c.data) {
		return fmt.Errorf("%w: set offset %d (len %d)", ErrOutOfRange, pos, len(c.data))
	}
	c.off = pos
	return nil
}

func (c *Cursor) U8() (uint8, error) {
	b, err := c.Read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) U16() (uint16, error) {
	b, err := c.Read(2)
	if err != nil {
		return 0, err
	}
	return ByteOrder.Uint16(b), nil
}

func (c *Cursor) U32() (uint32, error) {
	b, err := c.Read(4)
	if err != nil {
		return 0, err
	}
	return ByteOrder.Uint32(b), nil
}

func (c *Cursor) I32() (int32, error) {
	v, err := c.U32()
	return int32(v), err
}

// F32 reads an IEEE 754 single-precision float.
func (c *Cursor) F32() (float32, error) {
	v, err := c.U32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// FixedString reads n bytes verbatim as a string.
func (c *Cursor) FixedString(n int) (string, error) {
	b, err := c.Read(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
