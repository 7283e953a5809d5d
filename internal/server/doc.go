// Package server runs the remote store HTTP server.
//
// It owns the listener lifecycle: startup, signal handling and graceful
// shutdown on SIGINT, SIGTERM or SIGQUIT.
package server
