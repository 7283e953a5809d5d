package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/models"
)

type historyRepository struct {
	logger *logger.Logger
	db     *DB
}

func NewHistoryRepository(db *DB, logger *logger.Logger) HistoryRepository {
	logger.Debug().Msg("creating history repository")
	return &historyRepository{
		db:     db,
		logger: logger,
	}
}

func (r *historyRepository) AppendHistoryEntry(ctx context.Context, entry models.HistoryEntry) error {
	log := logger.FromContext(ctx)

	query, args, err := buildInsertHistoryQuery(r.db.builder(), entry)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).Str("func", "*historyRepository.AppendHistoryEntry").Msg("error inserting history entry")
		return r.db.wrap(ErrExecutingStatement, err)
	}

	return nil
}

func (r *historyRepository) GetHistory(ctx context.Context, userID string, opts models.HistoryOptions) ([]models.HistoryEntry, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectHistoryQuery(r.db.builder(), userID, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*historyRepository.GetHistory").Msg("error querying history")
		return nil, r.db.wrap(ErrExecutingQuery, err)
	}
	defer rows.Close()

	entries := make([]models.HistoryEntry, 0)
	for rows.Next() {
		var (
			e     models.HistoryEntry
			paths string
		)
		if err = rows.Scan(&e.ID, &e.UserID, &e.PreviousVersion, &e.Version, &e.DeviceID, &paths, &e.ContentHash, &e.CreatedAt); err != nil {
			return nil, r.db.wrap(ErrScanningRows, err)
		}
		if err = json.Unmarshal([]byte(paths), &e.ChangedPaths); err != nil {
			return nil, fmt.Errorf("%w: changed paths: %w", ErrEncodingColumn, err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, r.db.wrap(ErrScanningRows, err)
	}

	return entries, nil
}
