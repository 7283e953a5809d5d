package store

import (
	"encoding/json"
	"fmt"

	"github.com/MKhiriev/go-conf-sync/models"
	sq "github.com/Masterminds/squirrel"
)

const (
	usersTable   = "users"
	recordsTable = "records"
	historyTable = "history"
	devicesTable = "devices"
)

var (
	userColumns   = []string{"user_id", "created_at"}
	recordColumns = []string{
		"user_id",
		"version",
		"last_modified",
		"last_modified_by",
		"payload",
		"encryption",
		"content_hash",
		"size",
		"metadata",
	}
	historyColumns = []string{
		"id",
		"user_id",
		"previous_version",
		"version",
		"device_id",
		"changed_paths",
		"content_hash",
		"created_at",
	}
	deviceColumns = []string{
		"user_id",
		"device_id",
		"name",
		"platform",
		"last_sync_at",
		"last_sync_version",
		"uploads",
		"downloads",
	}
)

func buildInsertUserQuery(b sq.StatementBuilderType, user models.User) (string, []any, error) {
	return b.Insert(usersTable).
		Columns(userColumns...).
		Values(user.UserID, user.CreatedAt).
		Suffix("ON CONFLICT (user_id) DO NOTHING").
		ToSql()
}

func buildSelectUserQuery(b sq.StatementBuilderType, userID string) (string, []any, error) {
	return b.Select(userColumns...).
		From(usersTable).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
}

func buildSelectRecordQuery(b sq.StatementBuilderType, userID string) (string, []any, error) {
	return b.Select(recordColumns...).
		From(recordsTable).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
}

// buildPutRecordQuery builds the compare-and-set write of a record. The
// first version is an insert that does nothing if a row already exists;
// every later version is an update guarded by the previous version. Either
// way zero affected rows means the version did not match.
func buildPutRecordQuery(b sq.StatementBuilderType, record models.RemoteConfigRecord) (string, []any, error) {
	encryption, metadata, err := encodeRecordColumns(record)
	if err != nil {
		return "", nil, err
	}

	if record.Version == 1 {
		return b.Insert(recordsTable).
			Columns(recordColumns...).
			Values(
				record.UserID,
				record.Version,
				record.LastModified,
				record.LastModifiedBy,
				record.Payload,
				encryption,
				record.ContentHash,
				record.Size,
				metadata,
			).
			Suffix("ON CONFLICT (user_id) DO NOTHING").
			ToSql()
	}

	return b.Update(recordsTable).
		Set("version", record.Version).
		Set("last_modified", record.LastModified).
		Set("last_modified_by", record.LastModifiedBy).
		Set("payload", record.Payload).
		Set("encryption", encryption).
		Set("content_hash", record.ContentHash).
		Set("size", record.Size).
		Set("metadata", metadata).
		Where(sq.Eq{"user_id": record.UserID, "version": record.Version - 1}).
		ToSql()
}

func buildInsertHistoryQuery(b sq.StatementBuilderType, entry models.HistoryEntry) (string, []any, error) {
	paths := entry.ChangedPaths
	if paths == nil {
		paths = []string{}
	}
	changedPaths, err := json.Marshal(paths)
	if err != nil {
		return "", nil, fmt.Errorf("%w: changed paths: %w", ErrEncodingColumn, err)
	}

	return b.Insert(historyTable).
		Columns(historyColumns...).
		Values(
			entry.ID,
			entry.UserID,
			entry.PreviousVersion,
			entry.Version,
			entry.DeviceID,
			string(changedPaths),
			entry.ContentHash,
			entry.CreatedAt,
		).
		ToSql()
}

func buildSelectHistoryQuery(b sq.StatementBuilderType, userID string, opts models.HistoryOptions) (string, []any, error) {
	q := b.Select(historyColumns...).
		From(historyTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("version DESC", "created_at DESC")

	if opts.SinceVersion > 0 {
		q = q.Where(sq.Gt{"version": opts.SinceVersion})
	}
	if opts.Limit > 0 {
		q = q.Limit(uint64(opts.Limit))
	}

	return q.ToSql()
}

// buildUpsertDeviceQuery registers a device, refreshing its descriptive
// columns while keeping counters and last-sync state.
func buildUpsertDeviceQuery(b sq.StatementBuilderType, device models.Device) (string, []any, error) {
	platform, err := json.Marshal(device.Platform)
	if err != nil {
		return "", nil, fmt.Errorf("%w: platform: %w", ErrEncodingColumn, err)
	}

	return b.Insert(devicesTable).
		Columns("user_id", "device_id", "name", "platform").
		Values(device.UserID, device.DeviceID, device.Name, string(platform)).
		Suffix("ON CONFLICT (user_id, device_id) DO UPDATE SET name = excluded.name, platform = excluded.platform").
		ToSql()
}

func buildUpdateDeviceStatsQuery(b sq.StatementBuilderType, userID, deviceID string, update models.DeviceStatsUpdate) (string, []any, error) {
	return b.Update(devicesTable).
		Set("uploads", sq.Expr("uploads + ?", update.Uploads)).
		Set("downloads", sq.Expr("downloads + ?", update.Downloads)).
		Set("last_sync_at", update.LastSyncAt).
		Set("last_sync_version", update.LastSyncVersion).
		Where(sq.Eq{"user_id": userID, "device_id": deviceID}).
		ToSql()
}

func buildSelectDevicesQuery(b sq.StatementBuilderType, userID string, deviceID string) (string, []any, error) {
	q := b.Select(deviceColumns...).
		From(devicesTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("device_id")
	if deviceID != "" {
		q = q.Where(sq.Eq{"device_id": deviceID})
	}
	return q.ToSql()
}

func encodeRecordColumns(record models.RemoteConfigRecord) (encryption *string, metadata string, err error) {
	if record.Encryption != nil {
		raw, err := json.Marshal(record.Encryption)
		if err != nil {
			return nil, "", fmt.Errorf("%w: encryption: %w", ErrEncodingColumn, err)
		}
		s := string(raw)
		encryption = &s
	}

	md := record.Metadata
	if md == nil {
		md = map[string]string{}
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return nil, "", fmt.Errorf("%w: metadata: %w", ErrEncodingColumn, err)
	}

	return encryption, string(raw), nil
}
