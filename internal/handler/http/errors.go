// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import "errors"

// Sentinel errors used by the authentication middleware when parsing the
// "Authorization" HTTP header. Callers can match against them with [errors.Is].
var (
	// ErrEmptyAuthorizationHeader is returned by the auth middleware when the
	// incoming request does not include an "Authorization" header at all.
	ErrEmptyAuthorizationHeader = errors.New("empty `Authorization` header")

	// ErrInvalidAuthorizationHeader is returned when the "Authorization"
	// header is not of the form "Bearer <token>".
	ErrInvalidAuthorizationHeader = errors.New("invalid `Authorization` header")
)

// Request errors produced by handlers before the service layer is reached.
var (
	// ErrNoUserInContext means an authenticated route ran without the auth
	// middleware putting a user id into the request context.
	ErrNoUserInContext = errors.New("no user id in request context")

	// ErrIntegrityCheckFailed is returned when the HMAC of an uploaded record
	// does not match the one sent by the client.
	ErrIntegrityCheckFailed = errors.New("integrity check failed")

	// ErrInvalidQueryParam is returned for malformed query parameters.
	ErrInvalidQueryParam = errors.New("invalid query parameter")
)
