// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package app contains shared application-layer constants used across the
// remote store handlers and middleware.
//
// All Msg* constants are human-readable message strings that are written into
// HTTP response bodies in place of the underlying error text, so internal
// details (SQL errors, token parse failures) never reach the client.
package app

const (
	// MsgInternalServerError is returned when an unexpected server-side
	// failure occurs that the client cannot resolve.
	MsgInternalServerError = "internal server error"

	// MsgServiceUnavailable is returned when the database reported a
	// retryable failure. Clients should retry the request later.
	MsgServiceUnavailable = "remote store temporarily unavailable"

	// MsgTokenIsExpiredOrInvalid is returned when a JWT bearer token is
	// either expired or cannot be verified (e.g. wrong signature).
	MsgTokenIsExpiredOrInvalid = "token is expired or invalid"

	// MsgNoUserIDProvided is returned when a handler requires a user ID (from
	// the JWT subject) but none is present in the request context.
	MsgNoUserIDProvided = "no user ID provided"

	// MsgAccessDenied is returned when the authenticated user attempts to
	// access or modify a resource that belongs to a different user.
	MsgAccessDenied = "access denied"

	// MsgVersionConflict is returned when a record upload does not replace
	// the current remote version.
	MsgVersionConflict = "record version conflict"

	// MsgIntegrityCheckFailed is returned when the HashSHA256 header or the
	// body hash does not match the uploaded record.
	MsgIntegrityCheckFailed = "integrity check failed"
)
