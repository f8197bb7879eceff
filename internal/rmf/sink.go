package rmf

import (
	"fmt"
	"io"
)

// Sink receives trace lines. A Sink is owned by a single load at a time and
// need not be safe for concurrent use.
type Sink interface {
	Emit(line Line)
}

// NopSink discards all lines.
type NopSink struct{}

func (NopSink) Emit(Line) {}

// MultiSink fans each line out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Emit(line Line) {
	for _, s := range m {
		if s != nil {
			s.Emit(line)
		}
	}
}

// MemorySink keeps every emitted line.
type MemorySink struct {
	lines []Line
}

func (m *MemorySink) Emit(line Line) { m.lines = append(m.lines, line) }

func (m *MemorySink) Lines() []Line { return m.lines }

func (m *MemorySink) Strings() []string {
	out := make([]string, len(m.lines))
	for i, l := range m.lines {
		out[i] = l.String()
	}
	return out
}

func (m *MemorySink) Reset() { m.lines = nil }

// WriterSink writes rendered lines, one per row, to w. Write errors are
// dropped so a broken trace stream never fails a load.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Emit(line Line) {
	_, _ = fmt.Fprintln(s.W, line.String())
}

var (
	_ Sink = NopSink{}
	_ Sink = MultiSink(nil)
	_ Sink = (*MemorySink)(nil)
	_ Sink = WriterSink{}
)
