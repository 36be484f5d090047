// Package otel binds Teachify client metrics to an OpenTelemetry Meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter family
// with a data point per label set (for example verdict="redirect" or
// op="login",outcome="rolled_back"), plus le-labeled gauges for the gateway
// latency buckets. A single callback reads [teachify.Client.MetricsSnapshot]
// on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
