package observability

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/danmuck/rmfctl/internal/rmf"
)

// ZerologSink writes each trace line as one zerolog event. The rendered line
// is the message; offset and depth are also attached as fields.
type ZerologSink struct {
	Logger zerolog.Logger
	Level  zerolog.Level
}

func NewZerologSink(logger zerolog.Logger) ZerologSink {
	return ZerologSink{Logger: logger, Level: zerolog.InfoLevel}
}

func (s ZerologSink) Emit(line rmf.Line) {
	s.Logger.WithLevel(s.Level).
		Str("source", line.Source).
		Int("offset", line.Offset).
		Int("depth", line.Depth).
		Str("kind", line.Kind.String()).
		Msg(line.String())
}

// ConsoleSink writes trace lines to a terminal, optionally colored. Without
// color the output is byte-identical to rmf.WriterSink.
type ConsoleSink struct {
	w      io.Writer
	prefix func(a ...any) string
	open   func(a ...any) string
	close  func(a ...any) string
	leaf   func(a ...any) string
}

func NewConsoleSink(w io.Writer, colored bool) *ConsoleSink {
	if !colored {
		return &ConsoleSink{w: w, prefix: fmt.Sprint, open: fmt.Sprint, close: fmt.Sprint, leaf: fmt.Sprint}
	}
	paint := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		c.EnableColor()
		return c.SprintFunc()
	}
	return &ConsoleSink{
		w:      w,
		prefix: paint(color.FgHiBlack),
		open:   paint(color.FgGreen),
		close:  paint(color.FgGreen, color.Faint),
		leaf:   paint(color.FgCyan),
	}
}

func (s *ConsoleSink) Emit(line rmf.Line) {
	prefix := fmt.Sprintf("%s+%08xx:", line.Source, line.Offset)
	paint := s.leaf
	switch line.Kind {
	case rmf.LineOpen:
		paint = s.open
	case rmf.LineClose:
		paint = s.close
	}
	_, _ = fmt.Fprintf(s.w, "%s %s%s\n", s.prefix(prefix), strings.Repeat("  ", line.Depth), paint(line.Element))
}

// ColorEnabled resolves a color mode ("auto", "always", "never") for f.
func ColorEnabled(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

var (
	_ rmf.Sink = ZerologSink{}
	_ rmf.Sink = (*ConsoleSink)(nil)
)
