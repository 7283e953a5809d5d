// Package http implements the REST API of the remote store server.
//
// It exposes route wiring, request handlers, and middleware used by the
// sync clients. Cross-cutting concerns such as authentication, request
// tracing, access logging with metrics, and record integrity checks are
// handled in this package before requests are delegated to the service layer.
package http
