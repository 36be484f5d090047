package teachify

import (
	"context"
	"testing"
	"time"
)

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricRouteAllow)
	}
}

func BenchmarkMetricsIncDisabled(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricRouteAllow)
	}
}

func BenchmarkMetricsObserveLatencyParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	d := 120 * time.Millisecond
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricGatewayLatency, d)
		}
	})
}

var navigationMetricIDs = [...]MetricID{
	MetricRouteAllow,
	MetricRouteRedirect,
	MetricRoutePending,
	MetricLoginSuccess,
}

func BenchmarkMetricsIncMixedParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			m.Inc(navigationMetricIDs[idx])
			idx++
			if idx == len(navigationMetricIDs) {
				idx = 0
			}
		}
	})
}

func BenchmarkNavigateAuthenticatedParallel(b *testing.B) {
	c, err := New().WithGateway(newFakeGateway()).Build()
	if err != nil {
		b.Fatalf("Build: %v", err)
	}
	defer c.Close()
	ctx := context.Background()
	if err := c.Bootstrap(ctx); err != nil {
		b.Fatalf("Bootstrap: %v", err)
	}
	if err := c.Login(ctx, "sam", "secret"); err != nil {
		b.Fatalf("Login: %v", err)
	}
	paths := [...]string{"/", "/tutors", "/profile", "/login", "/dashboard"}
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			c.Navigate(ctx, paths[idx])
			idx = (idx + 1) % len(paths)
		}
	})
}
