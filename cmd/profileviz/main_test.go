package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalsfoundry/linkprofile/feed"
	"github.com/signalsfoundry/linkprofile/internal/logging"
	"github.com/signalsfoundry/linkprofile/internal/observability"
	"github.com/signalsfoundry/linkprofile/model"
)

const goodProfile = `{
  "data": {
    "arrays": {
      "distance": [0, 10, 20, 30, 40],
      "elevation": [10, 11, 12, 13, 14],
      "profile": [30, 28, 26, 24, 22],
      "fresnel": [0, 2, 3, 2, 0]
    },
    "pathType": "NLOS",
    "firstBObstIndex": 3,
    "firstCObstIndex": 1
  }
}`

const shortProfile = `{
  "data": {
    "arrays": {
      "distance": [0, 10, 20],
      "elevation": [10, 11],
      "profile": [30, 28, 26],
      "fresnel": [0, 2, 0]
    }
  }
}`

func writeInput(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunWritesToStdout(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "link.json", goodProfile)

	var stdout bytes.Buffer
	failures := run(context.Background(), options{files: []string{in}}, feed.New(), &stdout, logging.Noop())
	if failures != 0 {
		t.Fatalf("failures = %d, want 0", failures)
	}

	var viz model.ProfileVisualization
	if err := json.Unmarshal(stdout.Bytes(), &viz); err != nil {
		t.Fatalf("stdout is not a visualization: %v", err)
	}
	if viz.Empty() {
		t.Fatalf("expected series, diagnostic %q", viz.Diagnostic)
	}
	if got := len(viz.SeriesByRole(model.RoleTransmitter)); got != 1 {
		t.Fatalf("transmitter series = %d, want 1", got)
	}
}

func TestRunWritesIntoOutDir(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	in := writeInput(t, dir, "site-a.json", goodProfile)

	var stdout bytes.Buffer
	failures := run(context.Background(), options{outDir: outDir, files: []string{in}}, feed.New(), &stdout, logging.Noop())
	if failures != 0 {
		t.Fatalf("failures = %d, want 0", failures)
	}
	if stdout.Len() != 0 {
		t.Fatalf("stdout should stay empty in out-dir mode, got %q", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(outDir, "site-a.viz.json")); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
}

func TestRunCountsRejectedAndMissingInputs(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	good := writeInput(t, dir, "good.json", goodProfile)
	short := writeInput(t, dir, "short.json", shortProfile)
	missing := filepath.Join(dir, "missing.json")

	opts := options{outDir: outDir, files: []string{good, short, missing}}
	failures := run(context.Background(), opts, feed.New(), &bytes.Buffer{}, logging.Noop())
	if failures != 2 {
		t.Fatalf("failures = %d, want 2", failures)
	}

	raw, err := os.ReadFile(filepath.Join(outDir, "short.viz.json"))
	if err != nil {
		t.Fatalf("rejected profile should still be written: %v", err)
	}
	var viz model.ProfileVisualization
	if err := json.Unmarshal(raw, &viz); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if !viz.Empty() || viz.Diagnostic == "" {
		t.Fatalf("expected empty visualization with diagnostic, got %d series and %q", len(viz.Series), viz.Diagnostic)
	}
}

func TestOutputName(t *testing.T) {
	cases := map[string]string{
		"profile.json":       "profile.viz.json",
		"/tmp/a/b/link.json": "link.viz.json",
		"noext":              "noext.viz.json",
		"dir/with.dots.json": "with.dots.viz.json",
	}
	for in, want := range cases {
		if got := outputName(in); got != want {
			t.Fatalf("outputName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWatchInputsRendersOnceBeforeStopping(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	in := writeInput(t, dir, "link.json", goodProfile)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := feed.New()
	opts := options{outDir: outDir, watch: true, settle: time.Millisecond, files: []string{in}}
	if failures := watchInputs(ctx, opts, f, &bytes.Buffer{}, logging.Noop()); failures != 0 {
		t.Fatalf("failures = %d, want 0", failures)
	}

	if _, err := os.Stat(filepath.Join(outDir, "link.viz.json")); err != nil {
		t.Fatalf("expected initial render: %v", err)
	}
	if latest, ok := f.Latest(); !ok || latest.Seq != 1 {
		t.Fatalf("latest = %+v, %v; want one delivered update", latest, ok)
	}
}

func TestWatchInputsCountsFirstPassFailures(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	good := writeInput(t, dir, "good.json", goodProfile)
	short := writeInput(t, dir, "short.json", shortProfile)
	missing := filepath.Join(dir, "missing.json")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := options{outDir: outDir, watch: true, files: []string{good, short, missing}}
	if failures := watchInputs(ctx, opts, feed.New(), &bytes.Buffer{}, logging.Noop()); failures != 2 {
		t.Fatalf("failures = %d, want 2", failures)
	}
	if _, err := os.Stat(filepath.Join(outDir, "good.viz.json")); err != nil {
		t.Fatalf("good input should still render: %v", err)
	}
}

func TestTracingConfigFlagOverridesEnv(t *testing.T) {
	t.Setenv("PROFILEVIZ_TRACE", "otlp")
	t.Setenv("PROFILEVIZ_TRACE_SAMPLE_RATIO", "")

	cfg, err := tracingConfig(options{})
	if err != nil {
		t.Fatalf("tracingConfig: %v", err)
	}
	if cfg.Exporter != observability.TraceOTLP {
		t.Fatalf("exporter = %q, want otlp from env", cfg.Exporter)
	}

	cfg, err = tracingConfig(options{trace: "stdout"})
	if err != nil {
		t.Fatalf("tracingConfig: %v", err)
	}
	if cfg.Exporter != observability.TraceStdout {
		t.Fatalf("exporter = %q, want stdout from flag", cfg.Exporter)
	}

	if _, err := tracingConfig(options{trace: "carrier-pigeon"}); err == nil {
		t.Fatalf("expected error for unknown -trace value")
	}
}
