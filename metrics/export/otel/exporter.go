package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/teachify/teachify"
	"github.com/teachify/teachify/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() teachify.MetricsSnapshot
	AuditDropped() uint64
}

type observedSeries struct {
	id    teachify.MetricID
	attrs metric.ObserveOption
}

// observedFamily is one counter instrument carrying a data point per series.
type observedFamily struct {
	instrument metric.Int64ObservableCounter
	series     []observedSeries
}

type observedLatency struct {
	buckets metric.Int64ObservableGauge
	le      [8]metric.ObserveOption
	count   metric.Int64ObservableGauge
}

// OTelExporter publishes client metrics as observable instruments read on
// every collection.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	families     []observedFamily
	latency      observedLatency
	auditDropped metric.Int64ObservableCounter
}

// NewOTelExporter registers instruments for client on meter.
func NewOTelExporter(meter metric.Meter, client *teachify.Client) (*OTelExporter, error) {
	if client == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, client)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{
		source:   source,
		families: make([]observedFamily, 0, len(internaldefs.Families)),
	}
	observables := make([]metric.Observable, 0, len(internaldefs.Families)+3)

	for _, fam := range internaldefs.Families {
		ins, err := meter.Int64ObservableCounter(fam.Name, metric.WithDescription(fam.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", fam.Name, err)
		}
		of := observedFamily{instrument: ins, series: make([]observedSeries, 0, len(fam.Series))}
		for _, s := range fam.Series {
			kvs := make([]attribute.KeyValue, len(fam.Labels))
			for i, label := range fam.Labels {
				kvs[i] = attribute.String(label, s.Values[i])
			}
			of.series = append(of.series, observedSeries{
				id:    s.ID,
				attrs: metric.WithAttributeSet(attribute.NewSet(kvs...)),
			})
		}
		exporter.families = append(exporter.families, of)
		observables = append(observables, ins)
	}

	def := internaldefs.GatewayLatency
	buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket", metric.WithDescription(def.Help+" Cumulative count per le bound."))
	if err != nil {
		return nil, fmt.Errorf("create histogram bucket gauge %s: %w", def.Name, err)
	}
	exporter.latency.buckets = buckets
	for i, le := range internaldefs.HistogramBounds {
		exporter.latency.le[i] = metric.WithAttributeSet(attribute.NewSet(attribute.String("le", le)))
	}
	count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Gateway round-trips observed."))
	if err != nil {
		return nil, fmt.Errorf("create histogram count gauge %s: %w", def.Name, err)
	}
	exporter.latency.count = count
	observables = append(observables, buckets, count)

	auditDropped, err := meter.Int64ObservableCounter(
		internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

func (e *OTelExporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, fam := range e.families {
		for _, s := range fam.series {
			observer.ObserveInt64(fam.instrument, int64(snapshot.Counters[s.id]), s.attrs)
		}
	}
	if raw, ok := snapshot.Histograms[internaldefs.GatewayLatency.ID]; ok {
		cumulative := internaldefs.CumulativeBuckets(raw)
		for i, opt := range e.latency.le {
			observer.ObserveInt64(e.latency.buckets, int64(cumulative[i]), opt)
		}
		observer.ObserveInt64(e.latency.count, int64(cumulative[len(cumulative)-1]))
	}
	observer.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
