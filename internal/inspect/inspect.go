package inspect

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/rmfctl/internal/chunks"
	"github.com/danmuck/rmfctl/internal/config"
	"github.com/danmuck/rmfctl/internal/observability"
	"github.com/danmuck/rmfctl/internal/rmf"
	"github.com/danmuck/rmfctl/internal/source"
)

// Options wires a Runner to its surroundings. Zero values fall back to the
// default registry, the global logger and stdout.
type Options struct {
	Registry *chunks.Registry
	Logger   *zerolog.Logger
	TraceOut io.Writer
	Color    bool
	NewID    func() string
}

// Runner performs loads according to one configuration.
type Runner struct {
	cfg      config.Config
	registry *chunks.Registry
	logger   zerolog.Logger
	traceOut io.Writer
	color    bool
	newID    func() string
}

func NewRunner(cfg config.Config, opts Options) *Runner {
	r := &Runner{
		cfg:      cfg,
		registry: opts.Registry,
		logger:   log.Logger,
		traceOut: opts.TraceOut,
		color:    opts.Color,
		newID:    opts.NewID,
	}
	if r.registry == nil {
		r.registry = chunks.DefaultRegistry()
	}
	if opts.Logger != nil {
		r.logger = *opts.Logger
	}
	if r.traceOut == nil {
		r.traceOut = os.Stdout
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	return r
}

// Run reads path and loads it.
func (r *Runner) Run(path string) (Report, error) {
	src, err := source.ReadFile(path)
	if err != nil {
		return Report{Source: path, State: rmf.StateUnloaded.String(), Result: "io", Error: err.Error()}, err
	}
	return r.RunSource(src)
}

// RunSource loads an already acquired buffer. The returned Report is filled
// on failure as well; err is the loader's error unchanged.
func (r *Runner) RunSource(src source.Source) (Report, error) {
	rep := Report{
		Source:     src.Label,
		Compressed: src.Compressed,
		Bytes:      len(src.Data),
		Decoder:    r.cfg.Decoder,
		State:      rmf.StateUnloaded.String(),
	}

	entry, err := r.registry.MustResolve(r.cfg.Decoder)
	if err != nil {
		rep.Result = "config"
		rep.Error = err.Error()
		return rep, err
	}

	rep.LoadID = r.newID()
	logger := r.logger.With().Str("load_id", rep.LoadID).Logger()

	sinks, recorder, err := r.sinks(logger)
	if err != nil {
		rep.Result = "io"
		rep.Error = err.Error()
		return rep, err
	}

	opts := r.cfg.LoaderOptions()
	opts.Logger = &logger
	loader := rmf.NewLoader[*chunks.Document](entry.Decoder, opts)
	loader.SetSink(sinks)
	rep.Policy = loader.Options().Policy.String()

	start := time.Now()
	doc, loadErr := loader.Load(src.Label, src.Data)
	elapsed := time.Since(start)

	if recorder != nil {
		if err := errors.Join(recorder.Err(), recorder.Close()); err != nil {
			logger.Warn().Err(err).Str("path", r.cfg.TraceRecord).Msg("trace record incomplete")
		}
	}

	rep.State = loader.State().String()
	rep.Result = rmf.KindOf(loadErr).String()
	rep.Version = loader.Version()
	for _, w := range loader.Warnings() {
		rep.Warnings = append(rep.Warnings, w.Error())
	}
	if loadErr != nil {
		rep.Error = loadErr.Error()
	} else if doc != nil {
		rep.ChunkCount = doc.Count()
		rep.Trailing = doc.Trailing
		rep.Chunks = doc.Chunks
	}

	observability.RecordLoad(entry.Name, rep.Result, rep.Bytes, len(rep.Warnings), elapsed)
	observability.LogLoad(r.logger, observability.LoadEvent{
		LoadID:   rep.LoadID,
		Source:   rep.Source,
		Decoder:  entry.Name,
		Bytes:    rep.Bytes,
		Version:  rep.Version,
		Warnings: len(rep.Warnings),
		Duration: elapsed,
		Err:      loadErr,
	})
	return rep, loadErr
}

func (r *Runner) sinks(logger zerolog.Logger) (rmf.MultiSink, *observability.TraceRecorder, error) {
	var sinks rmf.MultiSink
	switch r.cfg.Trace {
	case config.TraceConsole:
		sinks = append(sinks, observability.NewConsoleSink(r.traceOut, r.color))
	case config.TraceLog:
		sinks = append(sinks, observability.NewZerologSink(logger))
	}
	if r.cfg.TraceRecord == "" {
		return sinks, nil, nil
	}
	rec, err := observability.NewTraceRecorder(r.cfg.TraceRecord)
	if err != nil {
		return nil, nil, err
	}
	return append(sinks, rec), rec, nil
}

// ProbeHeader reads only the version and magic of src and reports every
// problem without applying the header policy.
func ProbeHeader(cfg config.Config, src source.Source) (HeaderReport, error) {
	rep := HeaderReport{Source: src.Label}
	h, err := rmf.ReadHeader(rmf.NewCursor(src.Data), len(cfg.Magic))
	if err != nil {
		return rep, err
	}
	opts := cfg.LoaderOptions()
	rep.Version = h.Version
	rep.Magic = h.Magic
	rep.Supported = rmf.VersionSupported(h.Version, opts.MinVersion, opts.MaxVersion)
	rep.MagicOK = h.Magic == opts.Magic
	if verr := opts.Validate(h); verr != nil {
		if j, ok := verr.(interface{ Unwrap() []error }); ok {
			for _, e := range j.Unwrap() {
				rep.Problems = append(rep.Problems, e.Error())
			}
		} else {
			rep.Problems = append(rep.Problems, verr.Error())
		}
	}
	return rep, nil
}
