// Package flows contains pure-function orchestrators for every Client session
// transition.
//
// Each flow function (RunBootstrap, RunAuthenticate, RunLogout, RunExpire)
// accepts a typed dependency struct and returns a classified result without
// side-effects beyond those dependencies. The Client maps results to session
// state, notifications, audit events and metrics.
//
// # Architecture boundaries
//
// Flow functions sequence calls to the credential store and the auth gateway.
// They do NOT own session state, notifications or metrics; ownership stays with
// the Client.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import teachify (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency interfaces.
package flows
