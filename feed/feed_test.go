package feed

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/linkprofile/core"
	"github.com/signalsfoundry/linkprofile/internal/observability"
	"github.com/signalsfoundry/linkprofile/model"
)

func testProfile(n int) model.LinkProfile {
	p := model.LinkProfile{
		Distance:      make([]float64, n),
		Elevation:     make([]float64, n),
		Profile:       make([]float64, n),
		FresnelRadius: make([]float64, n),
	}
	for i := range n {
		p.Distance[i] = float64(i)
		p.Elevation[i] = 10
		p.Profile[i] = 20
		p.FresnelRadius[i] = 1
	}
	p.FirstSecondaryObstructionIndex = n / 2
	p.FirstPrimaryObstructionIndex = n - 1
	return p
}

func TestProcessDeliversToSubscribers(t *testing.T) {
	f := New()
	var got []Update
	f.Subscribe(func(u Update) { got = append(got, u) })

	u := f.Process(context.Background(), testProfile(6), nil)
	require.NoError(t, u.Err)
	assert.False(t, u.Stale)
	assert.Equal(t, uint64(1), u.Seq)
	assert.NotEmpty(t, u.RunID)
	assert.Equal(t, 6, u.Samples)
	assert.False(t, u.Visualization.Empty())

	require.Len(t, got, 1)
	assert.Equal(t, u.RunID, got[0].RunID)

	latest, ok := f.Latest()
	require.True(t, ok)
	assert.Equal(t, u.Seq, latest.Seq)
}

func TestProcessReportsMalformedProfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := observability.NewPipelineCollector(reg)
	require.NoError(t, err)

	f := New(WithMetricsRecorder(collector))
	p := testProfile(4)
	p.Elevation = p.Elevation[:2]

	u := f.Process(context.Background(), p, nil)
	require.Error(t, u.Err)
	assert.True(t, errors.Is(u.Err, core.ErrMalformedProfile))
	assert.NotEmpty(t, u.Visualization.Diagnostic)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Assemblies.WithLabelValues(observability.OutcomeMalformed)))

	// A rejected profile still counts as the latest result.
	latest, ok := f.Latest()
	require.True(t, ok)
	assert.Error(t, latest.Err)
}

func TestPublishDropsSupersededResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := observability.NewPipelineCollector(reg)
	require.NoError(t, err)

	release := make(chan struct{})
	slow := func(p model.LinkProfile, c model.ClutterCatalog) (model.ProfileVisualization, error) {
		if p.N() == 3 {
			<-release
		}
		return core.Assemble(p, c)
	}
	f := New(WithAssembler(slow), WithMetricsRecorder(collector))

	var mu sync.Mutex
	var delivered []uint64
	f.Subscribe(func(u Update) {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, u.Seq)
	})

	first := f.Publish(context.Background(), testProfile(3), nil)
	second := f.Publish(context.Background(), testProfile(5), nil)

	newer := <-second
	require.False(t, newer.Stale)
	assert.Equal(t, uint64(2), newer.Seq)

	close(release)
	older := <-first
	assert.True(t, older.Stale)
	assert.Equal(t, uint64(1), older.Seq)
	f.Wait()

	mu.Lock()
	assert.Equal(t, []uint64{2}, delivered)
	mu.Unlock()

	latest, ok := f.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(2), latest.Seq)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.StaleResults))
}

func TestPublishInOrderDeliversAll(t *testing.T) {
	f := New()
	var seqs []uint64
	f.Subscribe(func(u Update) { seqs = append(seqs, u.Seq) })

	for n := 1; n <= 4; n++ {
		<-f.Publish(context.Background(), testProfile(n), nil)
	}
	f.Wait()
	assert.Equal(t, []uint64{1, 2, 3, 4}, seqs)
}

func TestAssemblerPanicBecomesError(t *testing.T) {
	boom := func(model.LinkProfile, model.ClutterCatalog) (model.ProfileVisualization, error) {
		panic("boom")
	}
	f := New(WithAssembler(boom))

	u := <-f.Publish(context.Background(), testProfile(2), nil)
	require.Error(t, u.Err)
	assert.True(t, errors.Is(u.Err, ErrAssemblerPanic))
	assert.True(t, u.Visualization.Empty())
}

func TestClockDrivesElapsed(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := 0
	clock := func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Millisecond)
	}
	f := New(WithClock(clock))

	u := f.Process(context.Background(), testProfile(3), nil)
	assert.Equal(t, time.Millisecond, u.Elapsed)
	assert.Equal(t, base.Add(2*time.Millisecond), u.Completed)
}

func TestEmptyProfileIsNotAnError(t *testing.T) {
	f := New()
	u := f.Process(context.Background(), model.LinkProfile{}, nil)
	require.NoError(t, u.Err)
	assert.True(t, u.Visualization.Empty())
	assert.Equal(t, core.DiagnosticNoSamples, u.Visualization.Diagnostic)
}

func TestRunSpansUseInjectedProvider(t *testing.T) {
	var buf bytes.Buffer
	tr, err := observability.NewTracing(context.Background(), observability.TracingConfig{
		Exporter:    observability.TraceStdout,
		SampleRatio: 1,
		Writer:      &buf,
	}, nil)
	require.NoError(t, err)
	defer tr.Shutdown(context.Background(), nil)

	f := New(WithTracerProvider(tr.TracerProvider()))
	u := f.Process(context.Background(), testProfile(4), nil)
	require.NoError(t, u.Err)

	out := buf.String()
	assert.Contains(t, out, `"Name": "feed.Assemble"`)
	assert.Contains(t, out, `"profile.samples"`)
	assert.Contains(t, out, `"viz.outcome"`)
}
