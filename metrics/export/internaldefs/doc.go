// Package internaldefs is the metric schema shared by the exporter packages:
// counter families with their label sets, the gateway latency histogram and
// its bucket bounds.
//
// Client counters are flat; this package groups them into labeled families
// (bootstrap outcome, attempt op and outcome, refusal reason, session end
// reason, navigation verdict) so every exporter emits the same series.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
