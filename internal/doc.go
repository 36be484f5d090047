// Package internal holds the pieces of the client that are private to the
// teachify module.
//
// # Sub-packages
//
//   - audit: asynchronous event dispatch (Dispatcher plus Sink implementations)
//   - flows: the bootstrap, authenticate and logout sequences over injected
//     dependencies, plus client-side form validation
//
// # What this package must NOT do
//
//   - Export types that appear in the public teachify API.
//   - Be imported by any package outside the teachify module.
package internal
