package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/internal/utils"
	"github.com/MKhiriev/go-conf-sync/models"
)

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	userID, err := userFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	record, err := h.services.RecordService.GetRecord(r.Context(), userID)
	if err != nil {
		log.Err(err).Str("func", "*Handler.getRecord").Str("user_id", userID).Msg("error getting record")
		writeError(w, err)
		return
	}
	if record == nil {
		http.Error(w, "no record", http.StatusNotFound)
		return
	}

	utils.WriteJSON(w, record, http.StatusOK)
}

func (h *Handler) putRecord(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	userID, err := userFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req models.PutRecordRequest
	if err = utils.ReadJSON(r, &req); err != nil {
		log.Err(err).Str("func", "*Handler.putRecord").Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	if err = h.services.RecordService.PutRecord(r.Context(), userID, req.Record); err != nil {
		log.Err(err).
			Str("func", "*Handler.putRecord").
			Str("user_id", userID).
			Int64("version", req.Record.Version).
			Msg("error saving record")
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) appendHistory(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	userID, err := userFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var entry models.HistoryEntry
	if err = utils.ReadJSON(r, &entry); err != nil {
		log.Err(err).Str("func", "*Handler.appendHistory").Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	if err = h.services.RecordService.AppendHistoryEntry(r.Context(), userID, entry); err != nil {
		log.Err(err).Str("func", "*Handler.appendHistory").Str("user_id", userID).Msg("error appending history entry")
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	userID, err := userFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	opts, err := historyOptionsFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := h.services.RecordService.GetHistory(r.Context(), userID, opts)
	if err != nil {
		log.Err(err).Str("func", "*Handler.getHistory").Str("user_id", userID).Msg("error getting history")
		writeError(w, err)
		return
	}

	utils.WriteJSON(w, models.HistoryResponse{Entries: entries, Length: len(entries)}, http.StatusOK)
}

func historyOptionsFromQuery(r *http.Request) (models.HistoryOptions, error) {
	var opts models.HistoryOptions
	q := r.URL.Query()

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return opts, fmt.Errorf("%w: limit: %w", ErrInvalidQueryParam, err)
		}
		opts.Limit = limit
	}
	if raw := q.Get("since_version"); raw != "" {
		since, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return opts, fmt.Errorf("%w: since_version: %w", ErrInvalidQueryParam, err)
		}
		opts.SinceVersion = since
	}
	return opts, nil
}
