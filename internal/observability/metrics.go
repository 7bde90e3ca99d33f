package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for profileviz_assemblies_total.
const (
	OutcomeOK        = "ok"
	OutcomeEmpty     = "empty"
	OutcomeMalformed = "malformed"
)

// PipelineCollector bundles Prometheus metrics for profile assembly runs.
// A nil *PipelineCollector is a valid no-op recorder.
type PipelineCollector struct {
	gatherer prometheus.Gatherer

	Assemblies       *prometheus.CounterVec
	AssemblyDuration prometheus.Histogram
	ProfileSamples   prometheus.Histogram
	SeriesEmitted    prometheus.Gauge
	StaleResults     prometheus.Counter
}

// NewPipelineCollector registers pipeline metrics against reg, defaulting to
// the global Prometheus registry when nil. Registering twice against the
// same registry returns the existing collectors.
func NewPipelineCollector(reg prometheus.Registerer) (*PipelineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	assemblies, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "profileviz_assemblies_total",
		Help: "Profile assembly runs, labeled by outcome (ok, empty, malformed).",
	}, []string{"outcome"}), "profileviz_assemblies_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "profileviz_assembly_duration_seconds",
		Help:    "Wall time spent assembling one profile visualization.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}), "profileviz_assembly_duration_seconds")
	if err != nil {
		return nil, err
	}

	samples, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "profileviz_profile_samples",
		Help:    "Number of samples along each assembled link profile.",
		Buckets: prometheus.ExponentialBuckets(16, 2, 10),
	}), "profileviz_profile_samples")
	if err != nil {
		return nil, err
	}

	series, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "profileviz_series_emitted",
		Help: "Number of series in the most recently assembled visualization.",
	}), "profileviz_series_emitted")
	if err != nil {
		return nil, err
	}

	stale, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "profileviz_stale_results_total",
		Help: "Completed visualizations dropped because a newer profile had already been delivered.",
	}), "profileviz_stale_results_total")
	if err != nil {
		return nil, err
	}

	return &PipelineCollector{
		gatherer:         gatherer,
		Assemblies:       assemblies,
		AssemblyDuration: duration,
		ProfileSamples:   samples,
		SeriesEmitted:    series,
		StaleResults:     stale,
	}, nil
}

// ObserveAssembly records one finished pipeline run.
func (c *PipelineCollector) ObserveAssembly(outcome string, samples, series int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Assemblies.WithLabelValues(outcome).Inc()
	c.AssemblyDuration.Observe(elapsed.Seconds())
	if outcome == OutcomeOK {
		c.ProfileSamples.Observe(float64(samples))
		c.SeriesEmitted.Set(float64(series))
	}
}

// ObserveStale records a completed result that was superseded.
func (c *PipelineCollector) ObserveStale() {
	if c == nil {
		return
	}
	c.StaleResults.Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *PipelineCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
