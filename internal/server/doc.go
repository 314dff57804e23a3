// Package server assembles the RadioWave admin API behind one HTTP server.
//
// The server builds a consistent middleware chain of request IDs, logging,
// metrics, security headers, CORS, rate limiting, and auth so handlers all
// share common protections and instrumentation.
package server
