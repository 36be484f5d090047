// Package route decides whether a navigation target is reachable for the
// current session.
//
// # Model
//
// A [Policy] is data: a [Table] classifying paths as public, guest-only or
// member-only (optionally restricted to one role), the login and home paths,
// and the [Area] list describing roles that own a multi-view authenticated
// area. An [Evaluator] turns a [View] of the session plus a requested path
// into a [Verdict]: allow, redirect(path) or pending.
//
// # Architecture boundaries
//
// The evaluator performs no I/O except reading and writing the per-role last
// visited path through its [Memory]. It never raises errors: storage failures
// degrade to the default redirect target.
//
// # What this package must NOT do
//
//   - Import teachify (the client adapts its session into a View).
//   - Trust a remembered path that lies outside the role's own area.
//   - Act as the only enforcement point. The server stays authoritative.
package route
