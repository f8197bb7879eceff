package observability

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/danmuck/rmfctl/internal/rmf"
)

// traceRecord is the on-disk form of one trace line. Integer keys keep the
// file compact.
type traceRecord struct {
	Source  string `cbor:"1,keyasint"`
	Offset  int    `cbor:"2,keyasint"`
	Depth   int    `cbor:"3,keyasint"`
	Kind    uint8  `cbor:"4,keyasint"`
	Element string `cbor:"5,keyasint"`
}

var (
	traceEncMode cbor.EncMode
	traceDecMode cbor.DecMode
)

func init() {
	var err error
	encOpts := cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}
	traceEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create trace CBOR encoder mode: %v", err))
	}
	decOpts := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyQuiet,
	}
	traceDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create trace CBOR decoder mode: %v", err))
	}
}

// TraceRecorder writes trace lines to a file as a CBOR sequence.
// It is safe for concurrent use.
type TraceRecorder struct {
	file    *os.File
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
	err     error
}

// NewTraceRecorder creates or truncates path.
func NewTraceRecorder(path string) (*TraceRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &TraceRecorder{file: f, encoder: traceEncMode.NewEncoder(f)}, nil
}

// Emit appends line. The first write error is kept for Err and later lines
// are dropped; a failing recorder never interrupts a load.
func (r *TraceRecorder) Emit(line rmf.Line) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.err != nil {
		return
	}
	r.err = r.encoder.Encode(traceRecord{
		Source:  line.Source,
		Offset:  line.Offset,
		Depth:   line.Depth,
		Kind:    uint8(line.Kind),
		Element: line.Element,
	})
}

func (r *TraceRecorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close closes the file. It is safe to call more than once.
func (r *TraceRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// ReadTrace decodes every record from r.
func ReadTrace(r io.Reader) ([]rmf.Line, error) {
	dec := traceDecMode.NewDecoder(r)
	var lines []rmf.Line
	for {
		var rec traceRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return lines, nil
			}
			return lines, fmt.Errorf("trace record %d: %w", len(lines), err)
		}
		lines = append(lines, rmf.Line{
			Source:  rec.Source,
			Offset:  rec.Offset,
			Depth:   rec.Depth,
			Kind:    rmf.LineKind(rec.Kind),
			Element: rec.Element,
		})
	}
}

func ReadTraceFile(path string) ([]rmf.Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTrace(f)
}

var _ rmf.Sink = (*TraceRecorder)(nil)
