package chunks

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/danmuck/rmfctl/internal/rmf"
)

var (
	ErrDecoderExists  = errors.New("decoder already exists")
	ErrDecoderNil     = errors.New("decoder is nil")
	ErrInvalidName    = errors.New("invalid decoder name")
	ErrUnknownDecoder = errors.New("unknown decoder")
)

const (
	NameChunks = "chunks"
	NameRaw    = "raw"
)

// Entry is a named body decoder.
type Entry struct {
	Name        string
	Description string
	Decoder     rmf.Decoder[*Document]
}

// Registry stores decoders by stable name.
type Registry struct {
	items map[string]Entry
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Entry)}
}

// DefaultRegistry returns a registry holding the built-in decoders.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(Entry{
		Name:        NameChunks,
		Description: "Counted chunk list with nested LIST chunks",
		Decoder:     Decoder{},
	})
	_ = r.Register(Entry{
		Name:        NameRaw,
		Description: "Whole body as a single opaque blob",
		Decoder:     RawDecoder{},
	})
	return r
}

// Register adds a decoder to the registry.
func (r *Registry) Register(e Entry) error {
	if e.Decoder == nil {
		return ErrDecoderNil
	}
	name := strings.TrimSpace(e.Name)
	if !isValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, e.Name)
	}
	if _, ok := r.items[name]; ok {
		return ErrDecoderExists
	}
	e.Name = name
	r.items[name] = e
	return nil
}

// Resolve returns a decoder by name.
func (r *Registry) Resolve(name string) (Entry, bool) {
	e, ok := r.items[strings.TrimSpace(name)]
	return e, ok
}

// MustResolve is Resolve with an error naming the known decoders.
func (r *Registry) MustResolve(name string) (Entry, error) {
	e, ok := r.Resolve(name)
	if !ok {
		return Entry{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownDecoder, name, strings.Join(r.Names(), ", "))
	}
	return e, nil
}

// List returns entries ordered by name.
func (r *Registry) List() []Entry {
	list := make([]Entry, 0, len(r.items))
	for _, e := range r.items {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

func (r *Registry) Names() []string {
	list := r.List()
	names := make([]string, len(list))
	for i, e := range list {
		names[i] = e.Name
	}
	return names
}

func isValidName(name string) bool {
	if name == "" {
		return false
	}
	lastSep := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		isSep := c == '.' || c == '-' || c == '_'
		if !(isLower || isDigit || isSep) {
			return false
		}
		if (i == 0 || i == len(name)-1) && isSep {
			return false
		}
		if isSep && lastSep {
			return false
		}
		lastSep = isSep
	}
	return true
}

// RawDecoder treats the whole body as one opaque chunk.
type RawDecoder struct{}

func (RawDecoder) Decode(cur *rmf.Cursor, tr *rmf.Tracer) (*Document, error) {
	start := cur.Offset()
	data, err := cur.Read(cur.Remaining())
	if err != nil {
		return nil, err
	}
	tr.Oneline("body", preview(data), rmf.Int("len", int64(len(data))))
	return &Document{Chunks: []Chunk{{ID: "", Offset: start, Size: uint32(len(data)), Data: data}}}, nil
}
