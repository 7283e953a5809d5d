package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/internal/store"
	"github.com/MKhiriev/go-conf-sync/internal/utils"
	"github.com/MKhiriev/go-conf-sync/models"
)

type recordService struct {
	records store.RecordRepository
	history store.HistoryRepository
	now     func() time.Time

	logger *logger.Logger
}

func NewRecordService(records store.RecordRepository, history store.HistoryRepository, logger *logger.Logger) RecordService {
	return &recordService{
		records: records,
		history: history,
		now:     time.Now,
		logger:  logger,
	}
}

func (s *recordService) GetRecord(ctx context.Context, userID string) (*models.RemoteConfigRecord, error) {
	log := logger.FromContext(ctx)

	record, err := s.records.GetRecord(ctx, userID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Err(err).Str("func", "*recordService.GetRecord").Str("user_id", userID).Msg("error getting record")
		return nil, fmt.Errorf("get record: %w", err)
	}

	return &record, nil
}

// PutRecord forces the record owner to userID before the conditional write.
func (s *recordService) PutRecord(ctx context.Context, userID string, record models.RemoteConfigRecord) error {
	log := logger.FromContext(ctx)

	record.UserID = userID
	if err := s.records.PutRecord(ctx, record); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			log.Info().
				Str("func", "*recordService.PutRecord").
				Str("user_id", userID).
				Int64("version", record.Version).
				Msg("stale record version rejected")
		} else {
			log.Err(err).Str("func", "*recordService.PutRecord").Str("user_id", userID).Msg("error saving record")
		}
		return fmt.Errorf("put record: %w", err)
	}

	log.Debug().
		Str("func", "*recordService.PutRecord").
		Str("user_id", userID).
		Int64("version", record.Version).
		Str("by", record.LastModifiedBy).
		Msg("record saved")
	return nil
}

// AppendHistoryEntry fills in the id and creation time when the client left
// them empty.
func (s *recordService) AppendHistoryEntry(ctx context.Context, userID string, entry models.HistoryEntry) error {
	entry.UserID = userID
	if entry.ID == "" {
		entry.ID = utils.NewID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if entry.ChangedPaths == nil {
		entry.ChangedPaths = []string{}
	}

	if err := s.history.AppendHistoryEntry(ctx, entry); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "*recordService.AppendHistoryEntry").
			Str("user_id", userID).
			Msg("error appending history entry")
		return fmt.Errorf("append history entry: %w", err)
	}

	return nil
}

func (s *recordService) GetHistory(ctx context.Context, userID string, opts models.HistoryOptions) ([]models.HistoryEntry, error) {
	entries, err := s.history.GetHistory(ctx, userID, opts)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "*recordService.GetHistory").
			Str("user_id", userID).
			Msg("error getting history")
		return nil, fmt.Errorf("get history: %w", err)
	}

	return entries, nil
}
