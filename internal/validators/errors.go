package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrInvalidUserID          = errors.New("invalid user ID")
	ErrInvalidDeviceID        = errors.New("invalid device ID")
	ErrInvalidDeviceName      = errors.New("device name is required")
	ErrInvalidVersion         = errors.New("invalid Version")
	ErrInvalidPreviousVersion = errors.New("previous version must be exactly one below version")
	ErrInvalidHash            = errors.New("invalid content hash")
	ErrEmptyPayload           = errors.New("payload is required")
	ErrInvalidSize            = errors.New("invalid payload size")
	ErrInvalidEncryption      = errors.New("invalid encryption metadata")
	ErrInvalidHistoryID       = errors.New("invalid history entry id")
	ErrNegativeCounter        = errors.New("counters cannot be negative")
	ErrInvalidLimit           = errors.New("invalid limit")
)
