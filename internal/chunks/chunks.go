// Package chunks decodes the chunked RMF body used by rmfctl.
//
// Body layout (little endian):
//
//	u32 count
//	count × { [4]byte id, u32 size, size bytes }
//
// A chunk with id LIST carries a nested u32 count and child chunks instead of
// opaque data.
package chunks

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/danmuck/rmfctl/internal/rmf"
)

const (
	IDSize     = 4
	HeaderSize = IDSize + 4
	ListID     = "LIST"

	DefaultMaxDepth = 32
	previewBytes    = 16
)

var (
	ErrChunkOverrun   = errors.New("chunks: chunk overruns its container")
	ErrInvalidChunkID = errors.New("chunks: invalid chunk id")
	ErrTooDeep        = errors.New("chunks: nesting too deep")
)

// Chunk is one decoded chunk. Offset is the position of its id in the buffer.
type Chunk struct {
	ID       string  `json:"id" yaml:"id"`
	Offset   int     `json:"offset" yaml:"offset"`
	Size     uint32  `json:"size" yaml:"size"`
	Data     []byte  `json:"-" yaml:"-"`
	Children []Chunk `json:"children,omitempty" yaml:"children,omitempty"`
}

// Document is the root produced by the chunk decoder.
type Document struct {
	Chunks   []Chunk `json:"chunks" yaml:"chunks"`
	Trailing int     `json:"trailing,omitempty" yaml:"trailing,omitempty"`
}

// Count returns the number of chunks at every depth.
func (d *Document) Count() int {
	return countChunks(d.Chunks)
}

func countChunks(list []Chunk) int {
	n := len(list)
	for _, c := range list {
		n += countChunks(c.Children)
	}
	return n
}

// Decoder implements rmf.Decoder for the chunked body.
type Decoder struct {
	MaxDepth int
}

func (d Decoder) Decode(cur *rmf.Cursor, tr *rmf.Tracer) (*Document, error) {
	maxDepth := d.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	dec := walker{cur: cur, tr: tr, maxDepth: maxDepth}

	list, err := dec.list("chunks", cur.Len(), 0)
	if err != nil {
		return nil, err
	}
	doc := &Document{Chunks: list}
	if rest := cur.Remaining(); rest > 0 {
		tr.Leaf("trailing", rmf.Int("len", int64(rest)))
		if err := cur.Seek(rest); err != nil {
			return nil, err
		}
		doc.Trailing = rest
	}
	return doc, nil
}

type walker struct {
	cur      *rmf.Cursor
	tr       *rmf.Tracer
	maxDepth int
}

// list reads a counted chunk list that must end at or before end.
func (w walker) list(tag string, end, depth int) ([]Chunk, error) {
	if depth >= w.maxDepth {
		return nil, fmt.Errorf("%w: depth %d at offset %d", ErrTooDeep, depth, w.cur.Offset())
	}
	if end-w.cur.Offset() < 4 {
		return nil, fmt.Errorf("%w: no room for %s count at offset %d", ErrChunkOverrun, tag, w.cur.Offset())
	}
	count, err := w.cur.U32()
	if err != nil {
		return nil, err
	}

	w.tr.Begin(tag, rmf.Uint("count", uint64(count)))
	var out []Chunk
	for i := uint32(0); i < count; i++ {
		c, err := w.chunk(end, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := w.tr.End(); err != nil {
		return nil, err
	}
	return out, nil
}

func (w walker) chunk(end, depth int) (Chunk, error) {
	start := w.cur.Offset()
	if end-start < HeaderSize {
		return Chunk{}, fmt.Errorf("%w: chunk header at offset %d needs %d bytes, %d available",
			ErrChunkOverrun, start, HeaderSize, end-start)
	}
	id, err := w.cur.FixedString(IDSize)
	if err != nil {
		return Chunk{}, err
	}
	if !validID(id) {
		return Chunk{}, fmt.Errorf("%w %q at offset %d", ErrInvalidChunkID, id, start)
	}
	size, err := w.cur.U32()
	if err != nil {
		return Chunk{}, err
	}
	bodyEnd := w.cur.Offset() + int(size)
	if int64(size) > int64(end-w.cur.Offset()) {
		return Chunk{}, fmt.Errorf("%w: chunk %q at offset %d declares %d bytes, %d available",
			ErrChunkOverrun, id, start, size, end-w.cur.Offset())
	}

	c := Chunk{ID: id, Offset: start, Size: size}
	w.tr.Begin("chunk", rmf.Str("id", id), rmf.Uint("size", uint64(size)))

	if id == ListID {
		children, err := w.list("list", bodyEnd, depth+1)
		if err != nil {
			return Chunk{}, err
		}
		c.Children = children
		if pad := bodyEnd - w.cur.Offset(); pad > 0 {
			w.tr.Leaf("padding", rmf.Int("len", int64(pad)))
			if err := w.cur.Seek(pad); err != nil {
				return Chunk{}, err
			}
		}
	} else {
		data, err := w.cur.Read(int(size))
		if err != nil {
			return Chunk{}, err
		}
		c.Data = data
		w.tr.Oneline("data", preview(data), rmf.Int("len", int64(len(data))))
	}

	if err := w.tr.End(); err != nil {
		return Chunk{}, err
	}
	return c, nil
}

func validID(id string) bool {
	if len(id) != IDSize {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x20 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

func preview(data []byte) string {
	if len(data) <= previewBytes {
		return hex.EncodeToString(data)
	}
	return hex.EncodeToString(data[:previewBytes]) + "..."
}

var _ rmf.Decoder[*Document] = Decoder{}
