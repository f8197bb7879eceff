package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/rmfctl/internal/rmf"
	"github.com/danmuck/rmfctl/internal/testutil/rmftest"
	"github.com/danmuck/rmfctl/internal/testutil/testlog"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	testlog.Start(t)
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeDoc(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestRunUsage(t *testing.T) {
	if code, _, stderr := runCLI(t); code != exitUsage || !strings.Contains(stderr, "usage: rmfctl") {
		t.Fatalf("no args: code=%d stderr=%q", code, stderr)
	}
	if code, _, _ := runCLI(t, "bogus"); code != exitUsage {
		t.Fatalf("unknown command code=%d", code)
	}
	if code, _, _ := runCLI(t, "load"); code != exitUsage {
		t.Fatalf("load without path code=%d", code)
	}
}

func TestRunDecoders(t *testing.T) {
	code, stdout, _ := runCLI(t, "decoders")
	if code != exitOK {
		t.Fatalf("code=%d", code)
	}
	if !strings.HasPrefix(stdout, "chunks") || !strings.Contains(stdout, "\nraw") {
		t.Fatalf("unexpected decoder list %q", stdout)
	}
}

func TestRunLoadPrintsTraceAndSummary(t *testing.T) {
	path := writeDoc(t, "doc.rmf", rmftest.Valid(rmftest.Body(rmftest.Chunk("HEAD", []byte{1}))))

	code, stdout, stderr := runCLI(t, "load", "-color", "never", "-format", "json", path)
	if code != exitOK {
		t.Fatalf("code=%d stderr=%q", code, stderr)
	}
	if !strings.HasPrefix(stdout, `doc.rmf+00000007x: <rmf version="2">`+"\n") {
		t.Fatalf("trace missing from output:\n%s", stdout)
	}
	for _, want := range []string{`"state": "loaded"`, `"result": "ok"`, `"chunk_count": 1`} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("summary missing %s:\n%s", want, stdout)
		}
	}
}

func TestRunLoadFailureExitCode(t *testing.T) {
	path := writeDoc(t, "bad.rmf", rmftest.Document(2.0, "XYZ", rmftest.Body()))

	code, stdout, stderr := runCLI(t, "load", "-trace", "off", path)
	if code != exitFail {
		t.Fatalf("code=%d want %d", code, exitFail)
	}
	if !strings.Contains(stdout, "result: invalid_magic") {
		t.Fatalf("summary missing result:\n%s", stdout)
	}
	if !strings.Contains(stderr, rmf.ErrInvalidMagic.Error()) {
		t.Fatalf("stderr missing cause: %q", stderr)
	}

	code, stdout, _ = runCLI(t, "load", "-trace", "off", "-lenient", path)
	if code != exitOK || !strings.Contains(stdout, "state: loaded") {
		t.Fatalf("lenient load code=%d:\n%s", code, stdout)
	}
}

func TestRunHeaderIgnoresPolicy(t *testing.T) {
	path := writeDoc(t, "old.rmf", rmftest.Document(0.9, rmf.Magic, nil))

	code, stdout, stderr := runCLI(t, "header", path)
	if code != exitOK {
		t.Fatalf("code=%d stderr=%q", code, stderr)
	}
	for _, want := range []string{"version: 0.9", "supported: false", "magic_ok: true"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("header output missing %q:\n%s", want, stdout)
		}
	}

	short := writeDoc(t, "short.rmf", []byte{1, 2})
	if code, _, _ := runCLI(t, "header", short); code != exitFail {
		t.Fatalf("short header code=%d", code)
	}
}

func TestRunTraceReplaysRecording(t *testing.T) {
	doc := writeDoc(t, "doc.rmf", rmftest.Valid(rmftest.Body(rmftest.List(rmftest.Chunk("ITEM", []byte("ab"))))))
	record := filepath.Join(t.TempDir(), "doc.rtrace")

	code, loadOut, stderr := runCLI(t, "load", "-color", "never", "-record", record, doc)
	if code != exitOK {
		t.Fatalf("load code=%d stderr=%q", code, stderr)
	}

	code, replay, stderr := runCLI(t, "trace", "-color", "never", record)
	if code != exitOK {
		t.Fatalf("trace code=%d stderr=%q", code, stderr)
	}
	if replay == "" || !strings.HasPrefix(loadOut, replay) {
		t.Fatalf("replay does not match live trace\nreplay:\n%s\nload:\n%s", replay, loadOut)
	}
}

func TestRunConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rmfctl.toml")

	if code, _, stderr := runCLI(t, "config", "init", "-output", path); code != exitOK {
		t.Fatalf("init code=%d stderr=%q", code, stderr)
	}
	if code, _, _ := runCLI(t, "config", "init", "-output", path); code != exitFail {
		t.Fatalf("init over existing file code=%d", code)
	}
	if code, _, stderr := runCLI(t, "config", "validate", path); code != exitOK {
		t.Fatalf("validate code=%d stderr=%q", code, stderr)
	}

	bad := writeDoc(t, "bad.toml", []byte("trace = \"loud\"\n"))
	if code, _, _ := runCLI(t, "config", "validate", bad); code != exitFail {
		t.Fatalf("validate bad config code=%d", code)
	}
}
