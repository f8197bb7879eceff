package rmf

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DocumentTag is the trace scope wrapping a whole document.
const DocumentTag = "rmf"

// Decoder builds the root object from the document body. It must only move
// through the cursor API and must pair every Begin with one End.
type Decoder[R any] interface {
	Decode(cur *Cursor, tr *Tracer) (R, error)
}

type DecoderFunc[R any] func(cur *Cursor, tr *Tracer) (R, error)

func (f DecoderFunc[R]) Decode(cur *Cursor, tr *Tracer) (R, error) { return f(cur, tr) }

type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options configures header validation and trace output for a Loader.
type Options struct {
	MinVersion float32
	MaxVersion float32
	Magic      string
	Policy     HeaderPolicy
	Sink       Sink
	// Logger receives operational messages. Nil uses the global zerolog logger.
	Logger *zerolog.Logger
}

func DefaultOptions() Options {
	return Options{
		MinVersion: MinSupportedVersion,
		MaxVersion: MaxSupportedVersion,
		Magic:      Magic,
		Policy:     PolicyStrict,
	}
}

// Loader runs the load protocol: header, document scope, decoder. A Loader is
// single-owner; Load must not be called concurrently.
type Loader[R any] struct {
	opts    Options
	decoder Decoder[R]
	log     zerolog.Logger

	cursor *Cursor
	tracer *Tracer

	source   string
	state    State
	version  float32
	root     R
	hasRoot  bool
	warnings []error
}

func NewLoader[R any](dec Decoder[R], opts Options) *Loader[R] {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	cur := NewCursor(nil)
	return &Loader[R]{
		opts:    opts,
		decoder: dec,
		log:     logger.With().Str("component", "rmf.loader").Logger(),
		cursor:  cur,
		tracer:  NewTracer("", cur, opts.Sink),
	}
}

// Load decodes data, replacing everything left by a previous load. source is
// used verbatim as the trace prefix.
func (l *Loader[R]) Load(source string, data []byte) (R, error) {
	var zero R
	if l.state == StateLoading {
		return zero, ErrLoadInProgress
	}
	if data == nil {
		return zero, ErrNoData
	}

	l.reset(source, data)
	defer func() {
		// a panicking decoder must not wedge the loader in StateLoading
		if l.state == StateLoading {
			l.fail()
		}
	}()
	l.log.Debug().Str("source", source).Int("bytes", len(data)).Msg("load start")

	root, err := l.run()
	if err != nil {
		l.fail()
		l.log.Debug().Str("source", source).Int("offset", l.cursor.Offset()).Err(err).Msg("load failed")
		return zero, err
	}

	l.root = root
	l.hasRoot = true
	l.state = StateLoaded
	l.log.Debug().
		Str("source", source).
		Str("version", formatVersion(l.version)).
		Int("warnings", len(l.warnings)).
		Msg("load complete")
	return root, nil
}

func (l *Loader[R]) run() (R, error) {
	var zero R

	h, err := ReadHeader(l.cursor, len(l.opts.Magic))
	if err != nil {
		return zero, err
	}
	if verr := l.opts.Validate(h); verr != nil {
		if l.opts.Policy == PolicyStrict {
			return zero, verr
		}
		for _, w := range splitJoined(verr) {
			l.warnings = append(l.warnings, w)
			l.log.Warn().Str("source", l.source).Err(w).Msg("header check failed; continuing")
		}
	}
	l.version = h.Version

	l.tracer.Begin(DocumentTag, Float("version", h.Version))
	doc := l.tracer.topID()
	root, err := l.decoder.Decode(l.cursor, l.tracer)

	// the document scope is closed on every path, including failed decodes
	balErr := l.balance(doc)
	l.tracer.Unwind()
	if err != nil {
		return zero, err
	}
	if balErr != nil {
		return zero, balErr
	}
	return root, nil
}

// balance reports whether the decoder left exactly the document scope open.
func (l *Loader[R]) balance(doc uint64) error {
	if err := l.tracer.Err(); err != nil {
		return err
	}
	t := l.tracer
	if len(t.stack) == 0 || t.stack[0].id != doc {
		return fmt.Errorf("%w: %s scope closed by decoder", ErrUnbalancedTrace, DocumentTag)
	}
	if depth := len(t.stack) - 1; depth > 0 {
		return fmt.Errorf("%w: %d scope(s) left open: %s",
			ErrUnbalancedTrace, depth, strings.Join(t.Open()[1:], "/"))
	}
	return nil
}

func (l *Loader[R]) reset(source string, data []byte) {
	var zero R
	l.source = source
	l.cursor.Reset(data)
	l.tracer.Reset(source)
	l.state = StateLoading
	l.version = 0
	l.root = zero
	l.hasRoot = false
	l.warnings = nil
}

func (l *Loader[R]) fail() {
	var zero R
	l.state = StateFailed
	l.version = 0
	l.root = zero
	l.hasRoot = false
	l.tracer.Reset(l.source)
}

// Root returns the decoded root of the last successful load.
func (l *Loader[R]) Root() (R, bool) { return l.root, l.hasRoot }

// Version returns the document version of the last successful load, or 0.
func (l *Loader[R]) Version() float32 { return l.version }

func (l *Loader[R]) State() State     { return l.state }
func (l *Loader[R]) Source() string   { return l.source }
func (l *Loader[R]) Offset() int      { return l.cursor.Offset() }
func (l *Loader[R]) Depth() int       { return l.tracer.Depth() }
func (l *Loader[R]) Options() Options { return l.opts }

// SetSink redirects trace output for subsequent loads.
func (l *Loader[R]) SetSink(s Sink) { l.tracer.SetSink(s) }

// Warnings lists header failures tolerated under PolicyLenient.
func (l *Loader[R]) Warnings() []error { return l.warnings }

func splitJoined(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
