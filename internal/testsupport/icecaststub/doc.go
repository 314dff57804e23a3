// Package icecaststub hosts a deterministic fake of the Icecast admin
// interface for integration tests. The stub serves the stats endpoint from a
// mutable mount table, records every control action it receives, and can be
// told to refuse control calls or report failures, enabling end-to-end stream
// lifecycle tests without a real streaming server.
package icecaststub
