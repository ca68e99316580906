// Package collector owns the passport connection lifecycle.
//
// Ownership boundary:
// - reconnect loop (dial, handshake, stream, wait)
// - per-session reader goroutine and session log
// - live status snapshot
//
// Lifecycle:
// - Run blocks until its context is cancelled
// - exactly one session is active at a time
// - each session starts with a fresh keepalive counter
package collector
