package observability

import (
	"time"

	"github.com/rs/zerolog"
)

// LoadEvent summarizes one finished load for the operational log.
type LoadEvent struct {
	LoadID   string
	Source   string
	Decoder  string
	Bytes    int
	Version  float32
	Warnings int
	Duration time.Duration
	Err      error
}

// LogLoad writes ev at error level on failure, warn when header checks were
// tolerated, info otherwise.
func LogLoad(logger zerolog.Logger, ev LoadEvent) {
	event := logger.Info()
	if ev.Err != nil {
		event = logger.Error().Err(ev.Err)
	} else if ev.Warnings > 0 {
		event = logger.Warn()
	}

	event.
		Str("load_id", ev.LoadID).
		Str("source", ev.Source).
		Str("decoder", ev.Decoder).
		Int("bytes", ev.Bytes).
		Float32("version", ev.Version).
		Int("warnings", ev.Warnings).
		Dur("duration", ev.Duration).
		Msg("rmf load")
}
