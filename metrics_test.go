package teachify

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if s := m.Snapshot(); len(s.Counters) != 0 {
		t.Fatalf("disabled snapshot has %d counters", len(s.Counters))
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLogout)
	m.Observe(MetricGatewayLatency, time.Second)
	if m.Value(MetricLogout) != 0 || m.Enabled() {
		t.Fatal("nil metrics must be inert")
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricRouteAllow)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricRouteAllow); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	observations := []time.Duration{
		10 * time.Millisecond,
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		time.Second,
		2 * time.Second,
		4 * time.Second,
		time.Minute,
	}
	for _, d := range observations {
		m.Observe(MetricGatewayLatency, d)
	}
	m.Observe(MetricLoginSuccess, time.Second)

	s := m.Snapshot()
	buckets := s.Histograms[MetricGatewayLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("buckets = %v", buckets)
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d = %d, want 1 (%v)", i, v, buckets)
		}
	}
	if _, ok := s.Counters[MetricGatewayLatency]; ok {
		t.Fatal("histogram id must not appear as a counter")
	}
}
