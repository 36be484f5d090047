// Package teachify implements the session lifecycle and route authorization
// core of the Teachify tutoring-platform client.
//
// A [Client] resolves persisted credentials on startup ([Client.Bootstrap]),
// mediates every login, registration and logout transition, and decides for
// every navigation whether the destination may be rendered, must redirect, or
// has to wait for the session to resolve ([Client.Navigate]).
//
// The client engine is a user-experience layer: the Teachify API remains the
// authority on every token and every protected resource.
//
// # Architecture boundaries
//
// teachify is the public surface. It exposes [Client], [Builder], [Config] and
// value types (Session, Profile, Notification, MetricsSnapshot). Flow
// orchestration and audit dispatch live under internal/. Credential backends
// live in credentials, the route table and evaluator in route, the HTTP
// gateway in gateway.
//
// # What this package must NOT do
//
//   - Verify token signatures or derive authorization from token claims.
//   - Log or audit passwords and tokens.
//   - Import gateway or middleware (they import teachify).
//   - Perform I/O outside Client methods (Build only opens the configured
//     credential backend).
package teachify
