package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/linkprofile/internal/logging"
)

// TraceExporter selects where pipeline spans are sent.
type TraceExporter string

const (
	TraceOff    TraceExporter = "off"
	TraceStdout TraceExporter = "stdout"
	TraceOTLP   TraceExporter = "otlp"
)

// DefaultOTLPEndpoint is used when the OTLP exporter has no endpoint.
const DefaultOTLPEndpoint = "localhost:4317"

// ParseTraceExporter accepts off, stdout and otlp, case-insensitively.
// An empty string means off.
func ParseTraceExporter(raw string) (TraceExporter, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "off", "none":
		return TraceOff, nil
	case "stdout":
		return TraceStdout, nil
	case "otlp", "otlpgrpc":
		return TraceOTLP, nil
	default:
		return "", fmt.Errorf("unsupported trace exporter %q (want off, stdout or otlp)", raw)
	}
}

// TracingConfig describes where the pipeline's spans go.
type TracingConfig struct {
	Exporter    TraceExporter
	ServiceName string
	// Endpoint is the OTLP collector address.
	Endpoint    string
	SampleRatio float64
	// Writer receives stdout exporter output; defaults to stderr so it never
	// mixes with visualization JSON on stdout.
	Writer io.Writer
}

// TracingConfigFromEnv reads PROFILEVIZ_TRACE, PROFILEVIZ_TRACE_SAMPLE_RATIO
// and PROFILEVIZ_OTLP_ENDPOINT. Tracing is off unless PROFILEVIZ_TRACE names
// an exporter.
func TracingConfigFromEnv() (TracingConfig, error) {
	exporter, err := ParseTraceExporter(os.Getenv("PROFILEVIZ_TRACE"))
	if err != nil {
		return TracingConfig{}, fmt.Errorf("PROFILEVIZ_TRACE: %w", err)
	}

	ratio := 1.0
	if raw := os.Getenv("PROFILEVIZ_TRACE_SAMPLE_RATIO"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			return TracingConfig{}, fmt.Errorf("PROFILEVIZ_TRACE_SAMPLE_RATIO: %q is not a ratio in [0, 1]", raw)
		}
		ratio = parsed
	}

	return TracingConfig{
		Exporter:    exporter,
		ServiceName: "profileviz",
		Endpoint:    os.Getenv("PROFILEVIZ_OTLP_ENDPOINT"),
		SampleRatio: ratio,
	}, nil
}

// Tracing owns the tracer provider handed to the feed. It does not touch
// the global OpenTelemetry provider.
type Tracing struct {
	exporter TraceExporter
	provider trace.TracerProvider
	shutdown func(context.Context) error
}

// NewTracing builds a tracer provider for cfg. With TraceOff the provider
// is a no-op and Shutdown does nothing.
func NewTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (*Tracing, error) {
	if log == nil {
		log = logging.Noop()
	}
	if cfg.Exporter == "" {
		cfg.Exporter = TraceOff
	}
	if cfg.Exporter == TraceOff {
		return &Tracing{exporter: TraceOff, provider: noop.NewTracerProvider()}, nil
	}

	res := pipelineResource(cfg)
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
	}

	switch cfg.Exporter {
	case TraceStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stderr
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		// One span per profile; write each as it ends so a short CLI run
		// never loses spans to an unflushed batch.
		opts = append(opts, sdktrace.WithSyncer(exp))
	case TraceOTLP:
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = DefaultOTLPEndpoint
		}
		exp, err := otlptrace.New(ctx, otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		))
		if err != nil {
			return nil, fmt.Errorf("create otlp trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	default:
		return nil, fmt.Errorf("unsupported trace exporter %q", cfg.Exporter)
	}

	tp := sdktrace.NewTracerProvider(opts...)
	log.Info(ctx, "pipeline tracing enabled",
		logging.String("exporter", string(cfg.Exporter)),
		logging.String("service_version", buildVersion()),
		logging.Float64("sample_ratio", cfg.SampleRatio),
	)
	return &Tracing{exporter: cfg.Exporter, provider: tp, shutdown: tp.Shutdown}, nil
}

// TracerProvider returns the provider spans should be created from.
func (t *Tracing) TracerProvider() trace.TracerProvider {
	if t == nil || t.provider == nil {
		return noop.NewTracerProvider()
	}
	return t.provider
}

// Exporter reports which exporter is active.
func (t *Tracing) Exporter() TraceExporter {
	if t == nil {
		return TraceOff
	}
	return t.exporter
}

// Shutdown flushes pending spans within five seconds. Errors are logged.
func (t *Tracing) Shutdown(ctx context.Context, log logging.Logger) {
	if t == nil || t.shutdown == nil {
		return
	}
	if log == nil {
		log = logging.Noop()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := t.shutdown(ctx); err != nil {
		log.Warn(ctx, "tracing shutdown failed", logging.Err(err))
	}
}

func pipelineResource(cfg TracingConfig) *resource.Resource {
	name := cfg.ServiceName
	if name == "" {
		name = "profileviz"
	}
	return resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName(name),
		semconv.ServiceVersion(buildVersion()),
		semconv.ServiceNamespace("linkprofile"),
		attribute.String("profileviz.trace_exporter", string(cfg.Exporter)),
		attribute.Float64("profileviz.sample_ratio", cfg.SampleRatio),
	)
}

// buildVersion is the main module version stamped by the go tool.
func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}
