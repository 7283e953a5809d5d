// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"errors"
	"fmt"

	"github.com/MKhiriev/go-conf-sync/internal/adapter"
	"github.com/MKhiriev/go-conf-sync/internal/crypto"
)

// mapRemoteError wraps an adapter failure into a *RemoteError. Context
// errors are kept as the cause so callers can still match
// context.DeadlineExceeded.
func mapRemoteError(op string, err error) error {
	if err == nil {
		return nil
	}

	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return err
	}

	return &RemoteError{Op: op, Err: err}
}

// isVersionConflict reports whether err is a lost compare-and-set on the
// remote record.
func isVersionConflict(err error) bool {
	return errors.Is(err, adapter.ErrVersionConflict)
}

// mapDecryptError turns authentication failures into [ErrIntegrity]. Key
// mismatches and invalid keys pass through unchanged.
func mapDecryptError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, crypto.ErrDecryptionFailed):
		return fmt.Errorf("%w: %w", ErrIntegrity, err)
	default:
		return err
	}
}
