package rmf

import (
	"fmt"
	"strconv"
	"strings"
)

const indentWidth = 2

// Attr is one pre-formatted trace attribute.
type Attr struct {
	Key   string
	Value string
}

func Str(key, value string) Attr { return Attr{Key: key, Value: value} }

func Int(key string, value int64) Attr {
	return Attr{Key: key, Value: strconv.FormatInt(value, 10)}
}

func Uint(key string, value uint64) Attr {
	return Attr{Key: key, Value: strconv.FormatUint(value, 10)}
}

func Hex(key string, value uint64) Attr {
	return Attr{Key: key, Value: "0x" + strconv.FormatUint(value, 16)}
}

// Float formats value with the shortest %g representation of a float32.
func Float(key string, value float32) Attr {
	return Attr{Key: key, Value: strconv.FormatFloat(float64(value), 'g', -1, 32)}
}

func Attrf(key, format string, value any) Attr {
	return Attr{Key: key, Value: fmt.Sprintf(format, value)}
}

type LineKind uint8

const (
	LineOpen LineKind = iota
	LineClose
	LineLeaf
)

func (k LineKind) String() string {
	switch k {
	case LineOpen:
		return "open"
	case LineClose:
		return "close"
	case LineLeaf:
		return "leaf"
	default:
		return "unknown"
	}
}

// Line is one emitted trace record.
type Line struct {
	Source  string
	Offset  int
	Depth   int
	Kind    LineKind
	Element string
}

// String renders the line as "<source>+<offset>x: <indent><element>".
func (l Line) String() string {
	return fmt.Sprintf("%s+%08xx: %s%s", l.Source, l.Offset, strings.Repeat(" ", l.Depth*indentWidth), l.Element)
}

type frame struct {
	id    uint64
	tag   string
	attrs []Attr
}

// Tracer writes the nested, offset-stamped diagnostic trace for one load.
// Offsets are read from the cursor when each line is emitted.
type Tracer struct {
	source string
	cursor *Cursor
	sink   Sink
	stack  []frame
	seq    uint64
	err    error
}

func NewTracer(source string, cursor *Cursor, sink Sink) *Tracer {
	if sink == nil {
		sink = NopSink{}
	}
	return &Tracer{source: source, cursor: cursor, sink: sink}
}

// Reset empties the stack, clears any latched fault and relabels the trace.
func (t *Tracer) Reset(source string) {
	t.source = source
	t.stack = t.stack[:0]
	t.err = nil
}

func (t *Tracer) SetSink(s Sink) {
	if s == nil {
		s = NopSink{}
	}
	t.sink = s
}

func (t *Tracer) Depth() int { return len(t.stack) }

// Err returns the first balance fault seen since the last Reset.
func (t *Tracer) Err() error { return t.err }

// Begin opens a scope. The opening element is indented at the parent's depth.
func (t *Tracer) Begin(tag string, attrs ...Attr) {
	owned := append([]Attr(nil), attrs...)
	t.seq++
	t.stack = append(t.stack, frame{id: t.seq, tag: tag, attrs: owned})
	t.emit(len(t.stack)-1, LineOpen, "<"+renderTag(tag, owned)+">")
}

// Oneline writes a leaf element wrapping content at the current depth. Empty
// content still renders an open and a close tag; use Leaf for an element
// with no content.
func (t *Tracer) Oneline(tag, content string, attrs ...Attr) {
	t.emit(len(t.stack), LineLeaf, "<"+renderTag(tag, attrs)+">"+escape(content)+"</"+tag+">")
}

// Leaf writes a self-closing element at the current depth.
func (t *Tracer) Leaf(tag string, attrs ...Attr) {
	t.emit(len(t.stack), LineLeaf, "<"+renderTag(tag, attrs)+"/>")
}

// End closes the innermost scope.
func (t *Tracer) End() error {
	if len(t.stack) == 0 {
		err := fmt.Errorf("%w: end with no open scope", ErrUnbalancedTrace)
		if t.err == nil {
			t.err = err
		}
		return err
	}
	top := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	t.emit(len(t.stack), LineClose, "</"+top.tag+">")
	return nil
}

// Unwind closes every open scope, innermost first, emitting a closing line
// for each. It returns the number of scopes closed and leaves any latched
// fault in place.
func (t *Tracer) Unwind() int {
	n := len(t.stack)
	for len(t.stack) > 0 {
		_ = t.End()
	}
	return n
}

// topID identifies the innermost open scope, or 0 when none is open.
func (t *Tracer) topID() uint64 {
	if len(t.stack) == 0 {
		return 0
	}
	return t.stack[len(t.stack)-1].id
}

// Open renders the open scopes with their attributes, outermost first.
func (t *Tracer) Open() []string {
	tags := make([]string, len(t.stack))
	for i, f := range t.stack {
		tags[i] = renderTag(f.tag, f.attrs)
	}
	return tags
}

func (t *Tracer) emit(depth int, kind LineKind, elem string) {
	off := 0
	if t.cursor != nil {
		off = t.cursor.Offset()
	}
	t.sink.Emit(Line{Source: t.source, Offset: off, Depth: depth, Kind: kind, Element: elem})
}

var escaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `>`, "&gt;", `"`, "&quot;")

func escape(s string) string { return escaper.Replace(s) }

func renderTag(tag string, attrs []Attr) string {
	if len(attrs) == 0 {
		return tag
	}
	var b strings.Builder
	b.WriteString(tag)
	for _, a := range attrs {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(escape(a.Value))
		b.WriteByte('"')
	}
	return b.String()
}
