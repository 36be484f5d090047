// Package audit implements async event dispatching for session transitions
// and navigation decisions.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zap, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured record with timestamp, type, attempt id, username, role, path.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; that belongs to the Client and the flow functions.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import teachify or any sibling internal package.
//   - Record tokens or passwords.
package audit
