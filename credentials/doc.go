// Package credentials provides durable storage backends for the client
// credential record: the session token, the last known role and the per-role
// last visited path.
//
// # Backends
//
//   - [Memory] keeps the record in process memory. It is the default and is
//     what tests use.
//   - [File] keeps a JSON document on disk so the record outlives the
//     process, the way browser local storage outlives a page load.
//   - [Redis] keeps one hash per device in Redis.
//
// Every backend observes its own writes immediately and clears the whole
// record in a single step.
//
// # Architecture boundaries
//
// This package is pure storage. It does not decide when a token is written
// or cleared; the teachify Client owns every transition.
//
// # What this package must NOT do
//
//   - Import teachify or route (no upward imports).
//   - Interpret tokens or roles. Roles are opaque strings here.
//   - Log token values.
package credentials
