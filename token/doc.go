// Package token reads and issues the bearer tokens exchanged with the Teachify
// API.
//
// [Inspect] decodes a token without verifying its signature. The client uses
// it only as a hint (for example to skip a profile round-trip for a token whose
// exp claim is already in the past); the server stays the authority on
// validity.
//
// [Issuer] signs and verifies HS256 tokens. It backs the in-process fake API in
// gateway/gatewaytest and is never used by the client to trust a token.
//
// # What this package must NOT do
//
//   - Treat an unverified token as proof of identity or role.
//   - Import teachify or any sibling package.
package token
