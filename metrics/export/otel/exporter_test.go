package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/teachify/teachify"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot teachify.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() teachify.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := teachify.MetricsSnapshot{
		Counters:   make(map[teachify.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[teachify.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("teachify-test")

	src := &fakeSource{
		snapshot: teachify.MetricsSnapshot{
			Counters: map[teachify.MetricID]uint64{
				teachify.MetricLoginSuccess: 3,
			},
			Histograms: map[teachify.MetricID][]uint64{
				teachify.MetricGatewayLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("expected collected metrics, got none")
	}
}

func TestExporterRejectsNilSource(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("teachify-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("teachify-test")

	src := &fakeSource{
		snapshot: teachify.MetricsSnapshot{
			Counters: map[teachify.MetricID]uint64{
				teachify.MetricLoginSuccess: 1,
			},
			Histograms: map[teachify.MetricID][]uint64{
				teachify.MetricGatewayLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[teachify.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Sum[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s data = %T, want Sum[int64]", name, m.Data)
			}
			return sum
		}
	}
	t.Fatalf("%s not collected", name)
	return metricdata.Sum[int64]{}
}

func pointValue(t *testing.T, sum metricdata.Sum[int64], kvs ...attribute.KeyValue) int64 {
	t.Helper()
	want := attribute.NewSet(kvs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	t.Fatalf("no data point with attributes %v", want.ToSlice())
	return 0
}

func TestExporterPublishesLabeledFamilies(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("teachify-test")

	src := &fakeSource{
		snapshot: teachify.MetricsSnapshot{
			Counters: map[teachify.MetricID]uint64{
				teachify.MetricRouteRedirect:   5,
				teachify.MetricRouteAllow:      9,
				teachify.MetricLoginRolledBack: 2,
				teachify.MetricRegisterSuccess: 4,
			},
			Histograms: map[teachify.MetricID][]uint64{},
		},
	}
	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	nav := collectSum(t, reader, "teachify_navigations_total")
	if len(nav.DataPoints) != 3 {
		t.Fatalf("navigation points = %d, want 3", len(nav.DataPoints))
	}
	tests := []struct {
		verdict string
		want    int64
	}{
		{"allow", 9},
		{"redirect", 5},
		{"pending", 0},
	}
	for _, tt := range tests {
		if got := pointValue(t, nav, attribute.String("verdict", tt.verdict)); got != tt.want {
			t.Errorf("verdict %s = %d, want %d", tt.verdict, got, tt.want)
		}
	}

	attempts := collectSum(t, reader, "teachify_auth_attempts_total")
	if len(attempts.DataPoints) != 6 {
		t.Fatalf("attempt points = %d, want 6", len(attempts.DataPoints))
	}
	if got := pointValue(t, attempts, attribute.String("op", "login"), attribute.String("outcome", "rolled_back")); got != 2 {
		t.Fatalf("login rolled_back = %d, want 2", got)
	}
	if got := pointValue(t, attempts, attribute.String("op", "register"), attribute.String("outcome", "success")); got != 4 {
		t.Fatalf("register success = %d, want 4", got)
	}
}

func TestNewOTelExporterRejectsNilClient(t *testing.T) {
	provider := sdkmetric.NewMeterProvider()
	if _, err := NewOTelExporter(provider.Meter("teachify-test"), nil); err == nil {
		t.Fatal("expected error for nil client")
	}
}
