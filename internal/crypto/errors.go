package crypto

import "errors"

var (
	// ErrDecryptionFailed is returned when authentication of a sealed
	// payload fails (wrong key, modified ciphertext, IV or tag).
	ErrDecryptionFailed = errors.New("decryption failed: payload integrity check failed")

	// ErrInvalidKey is returned for keys that are not 256 bits or were
	// already closed.
	ErrInvalidKey = errors.New("invalid encryption key")

	// ErrKeyMismatch is returned when a payload was sealed with a key other
	// than the one supplied.
	ErrKeyMismatch = errors.New("payload was encrypted with a different key")

	// ErrUnsupportedAlgorithm is returned for sealed payloads of an unknown
	// algorithm.
	ErrUnsupportedAlgorithm = errors.New("unsupported encryption algorithm")

	// ErrCorruptedKeyFile is returned when the persisted key file cannot be
	// decoded.
	ErrCorruptedKeyFile = errors.New("corrupted key file")
)
