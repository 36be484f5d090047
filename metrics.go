package teachify

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one client counter.
type MetricID uint16

const (
	// MetricBootstrapAuthenticated counts bootstraps that restored a session.
	MetricBootstrapAuthenticated MetricID = iota
	// MetricBootstrapAnonymous counts bootstraps without a persisted token.
	MetricBootstrapAnonymous
	// MetricBootstrapExpired counts bootstraps that discarded a persisted token.
	MetricBootstrapExpired
	MetricLoginSuccess
	// MetricLoginFailure counts login attempts that failed without a token
	// being rolled back.
	MetricLoginFailure
	// MetricLoginRolledBack counts logins whose persisted token was rolled
	// back after the profile fetch failed.
	MetricLoginRolledBack
	MetricRegisterSuccess
	MetricRegisterFailure
	MetricRegisterRolledBack
	MetricValidationRejected
	// MetricConcurrentRejected counts attempts refused because another one was
	// outstanding.
	MetricConcurrentRejected
	MetricLogout
	MetricSessionExpired
	MetricRouteAllow
	MetricRouteRedirect
	MetricRoutePending
	// MetricGatewayLatency is the only histogram; it observes every gateway
	// round-trip.
	MetricGatewayLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and the gateway latency histogram. A nil
// or disabled *Metrics ignores every write.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the latency histogram of id. Only
// MetricGatewayLatency carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricGatewayLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricGatewayLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricGatewayLatency].buckets[i])
		}
		s.Histograms[MetricGatewayLatency] = buckets
	}

	return s
}

// Buckets: 50ms, 100ms, 250ms, 500ms, 1s, 2.5s, 5s, +Inf.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 50:
		return 0
	case ms <= 100:
		return 1
	case ms <= 250:
		return 2
	case ms <= 500:
		return 3
	case ms <= 1000:
		return 4
	case ms <= 2500:
		return 5
	case ms <= 5000:
		return 6
	default:
		return 7
	}
}
