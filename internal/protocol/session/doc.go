// Package session owns the passport session primitives that sit between the
// frame reader and the supervisor.
//
// Ownership boundary:
// - version handshake (server version in, client signature out)
// - keepalive counter and one-byte acknowledgement
// - reconnect delay policy and session timeouts
package session
