// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package validators checks the payloads the remote store accepts: config
// records, history entries, device registrations and device statistics.
//
// Validators run in the service layer in front of the SQL store, so every
// transport shares the same rules.
package validators

import "context"

// Validator validates one of the remote store payload types. The optional
// field names restrict validation to those fields; with none given the
// whole value is checked.
type Validator interface {
	Validate(context.Context, any, ...string) error
}
