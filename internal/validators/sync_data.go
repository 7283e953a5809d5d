package validators

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/MKhiriev/go-conf-sync/internal/crypto"
	"github.com/MKhiriev/go-conf-sync/models"
)

// Field name constants used to specify which fields should be validated.
// They are passed to Validate to restrict validation to a subset of fields.
const (
	// FieldUserID targets the owner of a record, history entry or device.
	FieldUserID = "user_id"

	// FieldDeviceID targets the stable identifier of a device.
	FieldDeviceID = "device_id"

	// FieldDeviceName targets the human-readable device label.
	FieldDeviceName = "name"

	// FieldVersion targets the record or history version; it must be at
	// least one.
	FieldVersion = "version"

	// FieldPreviousVersion targets the version an upload replaced.
	FieldPreviousVersion = "previous_version"

	// FieldLastModifiedBy targets the device that wrote a record.
	FieldLastModifiedBy = "last_modified_by"

	// FieldContentHash targets the hex SHA-256 digest of the plaintext.
	FieldContentHash = "content_hash"

	// FieldPayload targets the serialized, possibly encrypted document.
	FieldPayload = "payload"

	// FieldSize targets the plaintext length.
	FieldSize = "size"

	// FieldEncryption targets the cipher metadata of an encrypted record.
	FieldEncryption = "encryption"

	FieldHistoryID = "id"

	// FieldCounters targets the upload and download increments of a stats
	// update.
	FieldCounters = "counters"

	// FieldLimit targets the paging bounds of a history query.
	FieldLimit = "limit"
)

const (
	ivSize      = 12
	authTagSize = 16
	hashHexSize = 64
)

// SyncDataValidator validates the documents exchanged with the remote store.
type SyncDataValidator struct {
}

func NewSyncDataValidator() Validator {
	return &SyncDataValidator{}
}

// Validate dispatches on the dynamic type of obj. Pointers and values are
// treated alike.
func (v *SyncDataValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.RemoteConfigRecord:
		return v.validateRecord(ctx, value, fields...)
	case *models.RemoteConfigRecord:
		return v.validateRecord(ctx, *value, fields...)

	case models.HistoryEntry:
		return v.validateHistoryEntry(ctx, value, fields...)
	case *models.HistoryEntry:
		return v.validateHistoryEntry(ctx, *value, fields...)

	case models.HistoryOptions:
		return v.validateHistoryOptions(ctx, value, fields...)
	case *models.HistoryOptions:
		return v.validateHistoryOptions(ctx, *value, fields...)

	case models.Device:
		return v.validateDevice(ctx, value, fields...)
	case *models.Device:
		return v.validateDevice(ctx, *value, fields...)

	case models.DeviceStatsUpdate:
		return v.validateStatsUpdate(ctx, value, fields...)
	case *models.DeviceStatsUpdate:
		return v.validateStatsUpdate(ctx, *value, fields...)

	default:
		return ErrUnsupportedType
	}
}

func (v *SyncDataValidator) validateRecord(ctx context.Context, record models.RemoteConfigRecord, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldUserID, FieldVersion, FieldLastModifiedBy, FieldContentHash, FieldPayload, FieldSize, FieldEncryption}
	}

	for _, f := range fields {
		switch f {
		case FieldUserID:
			if strings.TrimSpace(record.UserID) == "" {
				return ErrInvalidUserID
			}
		case FieldVersion:
			if record.Version < 1 {
				return fmt.Errorf("%w: %d", ErrInvalidVersion, record.Version)
			}
		case FieldLastModifiedBy:
			if strings.TrimSpace(record.LastModifiedBy) == "" {
				return ErrInvalidDeviceID
			}
		case FieldContentHash:
			if !isHexDigest(record.ContentHash) {
				return ErrInvalidHash
			}
		case FieldPayload:
			if len(record.Payload) == 0 {
				return ErrEmptyPayload
			}
		case FieldSize:
			if record.Size < 0 {
				return ErrInvalidSize
			}
			// plaintext size is only checkable without encryption
			if record.Encryption == nil && record.Size != int64(len(record.Payload)) {
				return fmt.Errorf("%w: declared %d, payload has %d bytes", ErrInvalidSize, record.Size, len(record.Payload))
			}
		case FieldEncryption:
			if err := validateEncryption(record.Encryption); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s", ErrUnknownField, f)
		}
	}

	return nil
}

func validateEncryption(enc *models.EncryptionInfo) error {
	if enc == nil {
		return nil
	}

	switch {
	case enc.Algorithm != crypto.AlgorithmAES256GCM:
		return fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidEncryption, enc.Algorithm)
	case len(enc.IV) != ivSize:
		return fmt.Errorf("%w: iv must be %d bytes", ErrInvalidEncryption, ivSize)
	case len(enc.AuthTag) != authTagSize:
		return fmt.Errorf("%w: auth tag must be %d bytes", ErrInvalidEncryption, authTagSize)
	case enc.KeyID == "":
		return fmt.Errorf("%w: key id is required", ErrInvalidEncryption)
	}
	return nil
}

func (v *SyncDataValidator) validateHistoryEntry(ctx context.Context, entry models.HistoryEntry, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldHistoryID, FieldUserID, FieldDeviceID, FieldVersion, FieldPreviousVersion, FieldContentHash}
	}

	for _, f := range fields {
		switch f {
		case FieldHistoryID:
			if strings.TrimSpace(entry.ID) == "" {
				return ErrInvalidHistoryID
			}
		case FieldUserID:
			if strings.TrimSpace(entry.UserID) == "" {
				return ErrInvalidUserID
			}
		case FieldDeviceID:
			if strings.TrimSpace(entry.DeviceID) == "" {
				return ErrInvalidDeviceID
			}
		case FieldVersion:
			if entry.Version < 1 {
				return fmt.Errorf("%w: %d", ErrInvalidVersion, entry.Version)
			}
		case FieldPreviousVersion:
			if entry.PreviousVersion != entry.Version-1 {
				return ErrInvalidPreviousVersion
			}
		case FieldContentHash:
			if !isHexDigest(entry.ContentHash) {
				return ErrInvalidHash
			}
		default:
			return fmt.Errorf("%w: %s", ErrUnknownField, f)
		}
	}

	return nil
}

func (v *SyncDataValidator) validateHistoryOptions(ctx context.Context, opts models.HistoryOptions, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldLimit, FieldVersion}
	}

	for _, f := range fields {
		switch f {
		case FieldLimit:
			if opts.Limit < 0 {
				return ErrInvalidLimit
			}
		case FieldVersion:
			if opts.SinceVersion < 0 {
				return ErrInvalidVersion
			}
		default:
			return fmt.Errorf("%w: %s", ErrUnknownField, f)
		}
	}

	return nil
}

func (v *SyncDataValidator) validateDevice(ctx context.Context, device models.Device, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldDeviceID, FieldUserID, FieldDeviceName}
	}

	for _, f := range fields {
		switch f {
		case FieldDeviceID:
			if strings.TrimSpace(device.DeviceID) == "" {
				return ErrInvalidDeviceID
			}
		case FieldUserID:
			if strings.TrimSpace(device.UserID) == "" {
				return ErrInvalidUserID
			}
		case FieldDeviceName:
			if strings.TrimSpace(device.Name) == "" {
				return ErrInvalidDeviceName
			}
		default:
			return fmt.Errorf("%w: %s", ErrUnknownField, f)
		}
	}

	return nil
}

func (v *SyncDataValidator) validateStatsUpdate(ctx context.Context, update models.DeviceStatsUpdate, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldCounters, FieldVersion}
	}

	for _, f := range fields {
		switch f {
		case FieldCounters:
			if update.Uploads < 0 || update.Downloads < 0 {
				return ErrNegativeCounter
			}
		case FieldVersion:
			if update.LastSyncVersion < 0 {
				return ErrInvalidVersion
			}
		default:
			return fmt.Errorf("%w: %s", ErrUnknownField, f)
		}
	}

	return nil
}

func isHexDigest(s string) bool {
	if len(s) != hashHexSize {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
