// Package gateway implements [teachify.AuthGateway] against the Teachify REST
// API.
//
// Every call runs in an OpenTelemetry client span taken from the global
// TracerProvider. Responses are mapped onto the teachify sentinel errors so
// callers only ever branch with errors.Is.
//
// # Architecture boundaries
//
// gateway depends on teachify for its types and errors. teachify never
// imports gateway; a Client receives it through Builder.WithGateway.
//
// # What this package must NOT do
//
//   - Persist tokens. The Client owns the credential store.
//   - Log passwords or tokens.
//   - Retry. A failed call is reported once and the Client decides.
package gateway
