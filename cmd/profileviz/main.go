// Command profileviz turns prediction-service profile responses into
// render-ready visualization JSON.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/signalsfoundry/linkprofile/feed"
	"github.com/signalsfoundry/linkprofile/internal/logging"
	"github.com/signalsfoundry/linkprofile/internal/observability"
	"github.com/signalsfoundry/linkprofile/internal/profileio"
	"github.com/signalsfoundry/linkprofile/watch"
)

type options struct {
	outDir      string
	metricsAddr string
	watch       bool
	settle      time.Duration
	trace       string // overrides PROFILEVIZ_TRACE when set
	files       []string
}

func main() {
	flags := flag.NewFlagSet("profileviz", flag.ExitOnError)
	outDir := flags.String("out", "", "directory for <name>.viz.json output; stdout when empty")
	metricsAddr := flags.String("metrics-addr", "", "HTTP address for Prometheus /metrics; when set, stay up until interrupted")
	envFile := flags.String("env-file", ".env", "optional dotenv file with PROFILEVIZ_* settings")
	watchInputsFlag := flags.Bool("watch", false, "keep running and re-render inputs when they change")
	traceExporter := flags.String("trace", "", "span exporter: off, stdout (stderr output) or otlp; overrides PROFILEVIZ_TRACE")
	settle := flags.Duration("watch-settle", watch.DefaultSettle, "coalesce bursts of changes to one input within this window")
	_ = flags.Parse(os.Args[1:])

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", *envFile, err)
	}

	log := logging.NewFromEnv()
	ctx := context.Background()

	collector, err := observability.NewPipelineCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		os.Exit(1)
	}

	opts := options{
		outDir:      *outDir,
		metricsAddr: *metricsAddr,
		watch:       *watchInputsFlag,
		settle:      *settle,
		trace:       *traceExporter,
		files:       flags.Args(),
	}
	if len(opts.files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: profileviz [flags] profile.json...")
		os.Exit(2)
	}

	traceCfg, err := tracingConfig(opts)
	if err != nil {
		log.Error(ctx, "invalid tracing configuration", logging.Err(err))
		os.Exit(2)
	}
	tracing, err := observability.NewTracing(ctx, traceCfg, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer tracing.Shutdown(ctx, log)

	var metricsSrv *http.Server
	if opts.metricsAddr != "" {
		metricsSrv = serveMetrics(opts.metricsAddr, collector, log)
	}

	f := feed.New(
		feed.WithLogger(log),
		feed.WithMetricsRecorder(collector),
		feed.WithTracerProvider(tracing.TracerProvider()),
	)

	var failures int
	if opts.watch {
		stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		failures = watchInputs(stopCtx, opts, f, os.Stdout, log)
		stop()
	} else {
		failures = run(ctx, opts, f, os.Stdout, log)
		if metricsSrv != nil {
			stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
			<-stopCtx.Done()
			stop()
		}
	}

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsSrv.Shutdown(shutdownCtx)
		cancel()
	}

	if failures > 0 {
		tracing.Shutdown(ctx, log)
		os.Exit(1)
	}
}

// tracingConfig reads the environment and applies the -trace override.
func tracingConfig(opts options) (observability.TracingConfig, error) {
	cfg, err := observability.TracingConfigFromEnv()
	if err != nil {
		return observability.TracingConfig{}, err
	}
	if opts.trace != "" {
		exporter, err := observability.ParseTraceExporter(opts.trace)
		if err != nil {
			return observability.TracingConfig{}, fmt.Errorf("-trace: %w", err)
		}
		cfg.Exporter = exporter
	}
	return cfg, nil
}

// run processes every input file in order and returns how many failed.
// A profile the pipeline rejects still produces an output file carrying
// the diagnostic, and counts as a failure.
func run(ctx context.Context, opts options, f *feed.Feed, stdout io.Writer, log logging.Logger) int {
	failures := 0
	for _, path := range opts.files {
		if err := processFile(ctx, opts, f, path, stdout, log); err != nil {
			log.Error(ctx, "profile failed", logging.String("path", path), logging.Err(err))
			failures++
		}
	}
	return failures
}

func processFile(ctx context.Context, opts options, f *feed.Feed, path string, stdout io.Writer, log logging.Logger) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	dec, err := profileio.DecodeProfileResponse(in)
	if err != nil {
		return err
	}

	u := f.Process(ctx, dec.Profile, dec.Catalog)

	if opts.outDir == "" {
		if err := profileio.EncodeVisualization(stdout, u.Visualization); err != nil {
			return err
		}
		return u.Err
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return err
	}
	outPath := filepath.Join(opts.outDir, outputName(path))
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := profileio.EncodeVisualization(out, u.Visualization); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	log.Info(ctx, "wrote visualization",
		logging.String("path", outPath),
		logging.Int("series", len(u.Visualization.Series)),
		logging.Int("warnings", len(u.Visualization.Warnings)),
		logging.String("run_id", u.RunID),
		logging.Bool("rejected", u.Err != nil),
	)
	return u.Err
}

// watchInputs renders every input once, then re-renders inputs as they
// change until ctx is done. It returns the failures of the first pass.
func watchInputs(ctx context.Context, opts options, f *feed.Feed, stdout io.Writer, log logging.Logger) int {
	w := watch.New(opts.files, watch.WithSettle(opts.settle), watch.WithLogger(log))

	failures := 0
	found := make(map[string]bool, len(opts.files))
	for _, c := range w.Poll() {
		found[c.Path] = true
		if err := processFile(ctx, opts, f, c.Path, stdout, log); err != nil {
			log.Error(ctx, "profile failed", logging.String("path", c.Path), logging.Err(err))
			failures++
		}
	}
	for _, path := range opts.files {
		if !found[filepath.Clean(path)] {
			log.Error(ctx, "profile input not readable", logging.String("path", path))
			failures++
		}
	}

	w.AddListener(func(c watch.Change) {
		if err := processFile(ctx, opts, f, c.Path, stdout, log); err != nil {
			log.Error(ctx, "profile failed", logging.String("path", c.Path), logging.Err(err))
		}
	})
	done, err := w.Start(ctx)
	if err != nil {
		log.Error(ctx, "cannot watch inputs", logging.Err(err))
		return failures + 1
	}
	log.Info(ctx, "watching inputs",
		logging.Int("files", len(opts.files)),
		logging.Any("settle", opts.settle),
	)
	<-done
	return failures
}

// outputName maps profile.json to profile.viz.json.
func outputName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".viz.json"
}

func serveMetrics(addr string, collector *observability.PipelineCollector, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
