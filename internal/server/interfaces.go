package server

// Server is the lifecycle of the remote store server.
type Server interface {
	// RunServer serves until the process receives SIGINT, SIGTERM or
	// SIGQUIT, then drains in-flight requests.
	RunServer()

	// Shutdown stops accepting connections and waits for in-flight requests.
	Shutdown()
}
