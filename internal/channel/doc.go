// Package channel owns the request transmission wire contract and its server.
//
// Ownership boundary:
// - CRLF line framing primitives
// - sentinel-delimited request assembly
// - listening endpoint, accept loop, and connection lifecycle
// - completion response writer and submitting client
package channel
