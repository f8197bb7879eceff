package inspect

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/rmfctl/internal/chunks"
	"github.com/danmuck/rmfctl/internal/config"
	"github.com/danmuck/rmfctl/internal/observability"
	"github.com/danmuck/rmfctl/internal/rmf"
	"github.com/danmuck/rmfctl/internal/source"
	"github.com/danmuck/rmfctl/internal/testutil/rmftest"
	"github.com/danmuck/rmfctl/internal/testutil/testlog"
)

func newTestRunner(t *testing.T, cfg config.Config) (*Runner, *bytes.Buffer) {
	t.Helper()
	testlog.Start(t)
	var out bytes.Buffer
	nop := zerolog.Nop()
	return NewRunner(cfg, Options{
		Logger:   &nop,
		TraceOut: &out,
		NewID:    func() string { return "load-1" },
	}), &out
}

func sampleBody() []byte {
	return rmftest.Body(
		rmftest.Chunk("HEAD", []byte{1, 2}),
		rmftest.List(rmftest.Chunk("ITEM", []byte("abc"))),
	)
}

func TestRunSourceLoadsAndTraces(t *testing.T) {
	r, out := newTestRunner(t, config.DefaultConfig())

	rep, err := r.RunSource(source.FromBytes("doc.rmf", rmftest.Valid(sampleBody())))
	require.NoError(t, err)

	assert.Equal(t, "load-1", rep.LoadID)
	assert.Equal(t, "doc.rmf", rep.Source)
	assert.Equal(t, "loaded", rep.State)
	assert.Equal(t, "ok", rep.Result)
	assert.Equal(t, "strict", rep.Policy)
	assert.Equal(t, float32(2), rep.Version)
	assert.Equal(t, 3, rep.ChunkCount)
	assert.Empty(t, rep.Warnings)
	assert.Empty(t, rep.Error)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, `doc.rmf+00000007x: <rmf version="2">`, lines[0])
	assert.True(t, strings.HasSuffix(lines[len(lines)-1], ": </rmf>"))
}

func TestRunSourceLenientRecordsWarnings(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.HeaderPolicy = rmf.PolicyLenient
	cfg.Trace = config.TraceOff
	r, out := newTestRunner(t, cfg)

	rep, err := r.RunSource(source.FromBytes("old.rmf", rmftest.Document(0.9, rmf.Magic, rmftest.Body())))
	require.NoError(t, err)
	assert.Equal(t, "loaded", rep.State)
	assert.Equal(t, "lenient", rep.Policy)
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "unsupported version 0.9")
	assert.Zero(t, out.Len(), "trace off must not write")
}

func TestRunSourceStrictFailure(t *testing.T) {
	r, out := newTestRunner(t, config.DefaultConfig())

	rep, err := r.RunSource(source.FromBytes("bad.rmf", rmftest.Document(2.0, "XYZ", rmftest.Body())))
	require.ErrorIs(t, err, rmf.ErrInvalidMagic)
	assert.Equal(t, "failed", rep.State)
	assert.Equal(t, "invalid_magic", rep.Result)
	assert.Equal(t, err.Error(), rep.Error)
	assert.Zero(t, rep.Version)
	assert.Empty(t, rep.Chunks)
	assert.Zero(t, out.Len(), "header failure opens no scope")
}

func TestRunSourceUnknownDecoder(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Decoder = "nope"
	r, _ := newTestRunner(t, cfg)

	rep, err := r.RunSource(source.FromBytes("doc.rmf", rmftest.Valid(rmftest.Body())))
	require.ErrorIs(t, err, chunks.ErrUnknownDecoder)
	assert.Equal(t, "config", rep.Result)
	assert.Empty(t, rep.LoadID)
}

func TestRunSourceRecordsTrace(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Trace = config.TraceLog
	cfg.TraceRecord = filepath.Join(t.TempDir(), "doc.rtrace")
	r, _ := newTestRunner(t, cfg)

	_, err := r.RunSource(source.FromBytes("doc.rmf", rmftest.Valid(sampleBody())))
	require.NoError(t, err)

	lines, err := observability.ReadTraceFile(cfg.TraceRecord)
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	assert.Equal(t, `doc.rmf+00000007x: <rmf version="2">`, lines[0].String())
	assert.Equal(t, rmf.LineClose, lines[len(lines)-1].Kind)
	assert.Equal(t, 0, lines[len(lines)-1].Depth)
}

func TestRunReadsCompressedFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Decoder = chunks.NameRaw
	cfg.Trace = config.TraceOff
	r, _ := newTestRunner(t, cfg)

	packed, err := source.Compress(rmftest.Valid([]byte("payload")))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "doc.rmf.zst")
	require.NoError(t, os.WriteFile(path, packed, 0o644))

	rep, err := r.Run(path)
	require.NoError(t, err)
	assert.Equal(t, "doc.rmf", rep.Source)
	assert.True(t, rep.Compressed)
	assert.Equal(t, 7+len("payload"), rep.Bytes)
	assert.Equal(t, 1, rep.ChunkCount)
}

func TestRunMissingFile(t *testing.T) {
	r, _ := newTestRunner(t, config.DefaultConfig())
	rep, err := r.Run(filepath.Join(t.TempDir(), "missing.rmf"))
	require.Error(t, err)
	assert.Equal(t, "io", rep.Result)
	assert.Equal(t, "unloaded", rep.State)
}

func TestEncodeFormats(t *testing.T) {
	rep := Report{LoadID: "load-1", Source: "doc.rmf", State: "loaded", Result: "ok", Version: 2,
		Chunks: []chunks.Chunk{{ID: "HEAD", Offset: 11, Size: 2, Data: []byte{1, 2}}}}

	var y bytes.Buffer
	require.NoError(t, Encode(&y, config.FormatYAML, rep))
	assert.Contains(t, y.String(), "load_id: load-1\n")
	assert.Contains(t, y.String(), "id: HEAD")
	assert.NotContains(t, y.String(), "data")

	var j bytes.Buffer
	require.NoError(t, Encode(&j, config.FormatJSON, rep))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(j.Bytes(), &decoded))
	assert.Equal(t, "load-1", decoded["load_id"])
	assert.Equal(t, float64(2), decoded["version"])

	require.Error(t, Encode(&j, "xml", rep))
}

func TestProbeHeaderReportsAllProblems(t *testing.T) {
	cfg := config.DefaultConfig()

	rep, err := ProbeHeader(cfg, source.FromBytes("x.rmf", rmftest.Document(0.9, "XYZ", nil)))
	require.NoError(t, err)
	assert.False(t, rep.Supported)
	assert.False(t, rep.MagicOK)
	assert.Equal(t, "XYZ", rep.Magic)
	assert.Len(t, rep.Problems, 2)

	rep, err = ProbeHeader(cfg, source.FromBytes("x.rmf", rmftest.Valid(nil)))
	require.NoError(t, err)
	assert.True(t, rep.Supported)
	assert.True(t, rep.MagicOK)
	assert.Empty(t, rep.Problems)

	_, err = ProbeHeader(cfg, source.FromBytes("x.rmf", []byte{0, 0}))
	require.ErrorIs(t, err, rmf.ErrOutOfRange)
}
