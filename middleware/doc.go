// Package middleware adapts a teachify.Client to net/http.
//
// # Guards
//
//   - [Guard] applies the route policy to every request path: pass, 302 or
//     503 while bootstrapping.
//   - [RequireSession] admits only authenticated sessions, for JSON endpoints.
//   - [ExpireOnUnauthorized] ends the session when a wrapped handler answers
//     401.
//
// Admitted requests carry the client and the session snapshot in their
// context; read them with teachify.ClientFromContext and
// teachify.SessionFromContext.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Client calls. Every decision is
// made by Client.Navigate or the session snapshot.
//
// # What this package must NOT do
//
//   - Read or write the credential store.
//   - Inspect tokens.
//   - Make routing decisions of its own.
package middleware
