// Package prometheus renders Teachify client metrics in Prometheus text
// exposition format.
//
// Counters are grouped into labeled families such as
// teachify_navigations_total{verdict="allow"} and
// teachify_auth_attempts_total{op="register",outcome="rolled_back"}. The
// single histogram is teachify_gateway_latency_seconds, rendered only when
// latency histograms are enabled.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount Handler.
//   - Mutate client state.
package prometheus
