package service

import (
	"errors"
	"fmt"

	"github.com/MKhiriev/go-conf-sync/internal/syncstate"
)

// Server-side service errors.
var (
	ErrInvalidDataProvided = errors.New("invalid data provided")

	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")
	ErrTokenCreationFailed     = errors.New("token creation failed")

	ErrVersionIsNotSpecified = errors.New("app version is not specified")

	ErrValidationNoUserID   = errors.New("no user ID was given")
	ErrValidationNoDeviceID = errors.New("no device ID was given")

	ErrUnauthorizedAccessToDifferentUserData = errors.New("unauthorized access to different user data")
)

// Cloud sync errors.
var (
	// ErrNotInitialized is returned by every cloud sync method called before
	// Initialize or after Close. It matches [syncstate.ErrIllegalState].
	ErrNotInitialized = fmt.Errorf("%w: cloud sync manager is not initialized", syncstate.ErrIllegalState)

	// ErrIntegrity is returned when a downloaded payload does not hash to the
	// stored content hash or fails authenticated decryption. The data is
	// never returned.
	ErrIntegrity = errors.New("integrity check failed: data may be corrupted")

	// ErrEncryptionKeyRequired is returned when the remote record is
	// encrypted but the manager was initialized without encryption.
	ErrEncryptionKeyRequired = errors.New("remote record is encrypted but no encryption key is loaded")

	// ErrInvalidForceDirection is returned for an unknown SyncOptions.Force.
	ErrInvalidForceDirection = errors.New("invalid forced sync direction")

	// ErrInvalidConfig is returned when a caller's configuration cannot be
	// represented as a JSON object.
	ErrInvalidConfig = errors.New("configuration is not a JSON object")
)

// RemoteError wraps a failure of the remote store. The state machine is
// moved to error before it is returned; it is never retried automatically.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
