// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/models"
)

type recordRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewRecordRepository constructs a [RecordRepository] over the "records"
// table.
func NewRecordRepository(db *DB, logger *logger.Logger) RecordRepository {
	logger.Debug().Msg("creating record repository")
	return &recordRepository{
		db:     db,
		logger: logger,
	}
}

func (r *recordRepository) GetRecord(ctx context.Context, userID string) (models.RemoteConfigRecord, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectRecordQuery(r.db.builder(), userID)
	if err != nil {
		return models.RemoteConfigRecord{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var (
		record     models.RemoteConfigRecord
		encryption sql.NullString
		metadata   string
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&record.UserID,
		&record.Version,
		&record.LastModified,
		&record.LastModifiedBy,
		&record.Payload,
		&encryption,
		&record.ContentHash,
		&record.Size,
		&metadata,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RemoteConfigRecord{}, ErrRecordNotFound
	}
	if err != nil {
		log.Err(err).Str("func", "*recordRepository.GetRecord").Msg("error scanning record")
		return models.RemoteConfigRecord{}, r.db.wrap(ErrScanningRow, err)
	}

	if encryption.Valid && encryption.String != "" {
		record.Encryption = new(models.EncryptionInfo)
		if err = json.Unmarshal([]byte(encryption.String), record.Encryption); err != nil {
			return models.RemoteConfigRecord{}, fmt.Errorf("%w: encryption: %w", ErrEncodingColumn, err)
		}
	}
	if metadata != "" {
		if err = json.Unmarshal([]byte(metadata), &record.Metadata); err != nil {
			return models.RemoteConfigRecord{}, fmt.Errorf("%w: metadata: %w", ErrEncodingColumn, err)
		}
		if len(record.Metadata) == 0 {
			record.Metadata = nil
		}
	}

	return record, nil
}

// PutRecord runs a single conditional statement, so the version check and
// the write are atomic without an explicit transaction.
func (r *recordRepository) PutRecord(ctx context.Context, record models.RemoteConfigRecord) error {
	log := logger.FromContext(ctx)

	if record.Version < 1 {
		return fmt.Errorf("%w: version must be positive, got %d", ErrVersionConflict, record.Version)
	}

	query, args, err := buildPutRecordQuery(r.db.builder(), record)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*recordRepository.PutRecord").Msg("error writing record")
		return r.db.wrap(ErrExecutingStatement, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return r.db.wrap(ErrExecutingStatement, err)
	}
	if affected == 0 {
		log.Info().
			Str("func", "*recordRepository.PutRecord").
			Str("user_id", record.UserID).
			Int64("version", record.Version).
			Msg("record version conflict")
		return ErrVersionConflict
	}

	return nil
}
