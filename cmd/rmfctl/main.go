package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/rmfctl/internal/chunks"
	"github.com/danmuck/rmfctl/internal/config"
	"github.com/danmuck/rmfctl/internal/inspect"
	"github.com/danmuck/rmfctl/internal/logging"
	"github.com/danmuck/rmfctl/internal/observability"
	"github.com/danmuck/rmfctl/internal/rmf"
	"github.com/danmuck/rmfctl/internal/source"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

const usage = `usage: rmfctl <command> [flags] [args]

commands:
  load      decode a document and print its trace and summary
  header    print the version and magic of a document
  trace     replay a recorded .rtrace file
  decoders  list the registered body decoders
  config    init|validate a TOML config file
`

func main() {
	logging.ConfigureRuntime()
	observability.InitLogger("rmfctl")
	observability.RegisterMetrics()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "load":
		return runLoad(rest, stdout, stderr)
	case "header":
		return runHeader(rest, stdout, stderr)
	case "trace":
		return runTrace(rest, stdout, stderr)
	case "decoders":
		return runDecoders(stdout)
	case "config":
		return runConfig(rest, stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return exitUsage
	}
}

type loadFlags struct {
	config  string
	decoder string
	trace   string
	record  string
	color   string
	format  string
	lenient bool
}

func runLoad(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var lf loadFlags
	fs.StringVar(&lf.config, "config", "", "TOML config path")
	fs.StringVar(&lf.decoder, "decoder", "", "body decoder name")
	fs.StringVar(&lf.trace, "trace", "", "trace output: console|log|off")
	fs.StringVar(&lf.record, "record", "", "write a CBOR trace record to this path")
	fs.StringVar(&lf.color, "color", "", "trace color: auto|always|never")
	fs.StringVar(&lf.format, "format", "", "summary format: yaml|json")
	fs.BoolVar(&lf.lenient, "lenient", false, "report header failures as warnings")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "load: expected exactly one document path")
		return exitUsage
	}

	cfg, err := resolveConfig(lf)
	if err != nil {
		fmt.Fprintf(stderr, "load: %v\n", err)
		return exitUsage
	}
	applyLogLevel(cfg.LogLevel)

	runner := inspect.NewRunner(cfg, inspect.Options{
		TraceOut: stdout,
		Color:    observability.ColorEnabled(string(cfg.Color), fileOf(stdout)),
	})
	rep, loadErr := runner.Run(fs.Arg(0))
	if err := inspect.Encode(stdout, cfg.SummaryFormat, rep); err != nil {
		fmt.Fprintf(stderr, "load: %v\n", err)
		return exitFail
	}
	if loadErr != nil {
		fmt.Fprintf(stderr, "load %s: %v\n", fs.Arg(0), loadErr)
		return exitFail
	}
	return exitOK
}

func resolveConfig(lf loadFlags) (config.Config, error) {
	cfg := config.DefaultConfig()
	if lf.config != "" {
		loaded, err := config.LoadConfig(lf.config)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if lf.decoder != "" {
		cfg.Decoder = lf.decoder
	}
	if lf.trace != "" {
		cfg.Trace = config.TraceMode(strings.ToLower(lf.trace))
	}
	if lf.record != "" {
		cfg.TraceRecord = lf.record
	}
	if lf.color != "" {
		cfg.Color = config.ColorMode(strings.ToLower(lf.color))
	}
	if lf.format != "" {
		cfg.SummaryFormat = strings.ToLower(lf.format)
	}
	if lf.lenient {
		cfg.HeaderPolicy = rmf.PolicyLenient
	}
	return cfg, config.Validate(cfg)
}

func applyLogLevel(raw string) {
	if raw == "" {
		return
	}
	lvl, ok := logging.ParseLevel(raw)
	if !ok {
		log.Warn().Str("log_level", raw).Msg("ignoring unknown log level")
		return
	}
	zerolog.SetGlobalLevel(lvl)
}

func runHeader(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("header", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "TOML config path")
	format := fs.String("format", config.FormatYAML, "output format: yaml|json")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "header: expected exactly one document path")
		return exitUsage
	}
	cfg, err := resolveConfig(loadFlags{config: *cfgPath})
	if err != nil {
		fmt.Fprintf(stderr, "header: %v\n", err)
		return exitUsage
	}

	src, err := source.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "header: %v\n", err)
		return exitFail
	}
	rep, err := inspect.ProbeHeader(cfg, src)
	if err != nil {
		fmt.Fprintf(stderr, "header %s: %v\n", src.Label, err)
		return exitFail
	}
	if err := inspect.Encode(stdout, *format, rep); err != nil {
		fmt.Fprintf(stderr, "header: %v\n", err)
		return exitUsage
	}
	return exitOK
}

func runTrace(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("trace", flag.ContinueOnError)
	fs.SetOutput(stderr)
	color := fs.String("color", string(config.ColorAuto), "color: auto|always|never")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "trace: expected exactly one .rtrace path")
		return exitUsage
	}

	lines, err := observability.ReadTraceFile(fs.Arg(0))
	sink := observability.NewConsoleSink(stdout, observability.ColorEnabled(*color, fileOf(stdout)))
	for _, line := range lines {
		sink.Emit(line)
	}
	if err != nil {
		fmt.Fprintf(stderr, "trace %s: %v\n", fs.Arg(0), err)
		return exitFail
	}
	return exitOK
}

func runDecoders(stdout io.Writer) int {
	for _, e := range chunks.DefaultRegistry().List() {
		fmt.Fprintf(stdout, "%-10s %s\n", e.Name, e.Description)
	}
	return exitOK
}

func runConfig(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "config: expected init or validate")
		return exitUsage
	}
	switch args[0] {
	case "init":
		fs := flag.NewFlagSet("config init", flag.ContinueOnError)
		fs.SetOutput(stderr)
		output := fs.String("output", "rmfctl.toml", "output path for config template")
		force := fs.Bool("force", false, "overwrite existing config file")
		if err := fs.Parse(args[1:]); err != nil {
			return exitUsage
		}
		if *output == "-" {
			fmt.Fprint(stdout, config.Template())
			return exitOK
		}
		if err := config.WriteTemplate(*output, *force); err != nil {
			fmt.Fprintf(stderr, "config init: %v\n", err)
			return exitFail
		}
		fmt.Fprintf(stdout, "wrote config template to %s\n", *output)
		return exitOK
	case "validate":
		if len(args) != 2 {
			fmt.Fprintln(stderr, "config validate: expected exactly one config path")
			return exitUsage
		}
		if _, err := config.LoadConfig(args[1]); err != nil {
			fmt.Fprintf(stderr, "config validate: %v\n", err)
			return exitFail
		}
		fmt.Fprintf(stdout, "validated config at %s\n", args[1])
		return exitOK
	default:
		fmt.Fprintf(stderr, "config: unknown subcommand %q\n", args[0])
		return exitUsage
	}
}

func fileOf(w io.Writer) *os.File {
	f, _ := w.(*os.File)
	return f
}
