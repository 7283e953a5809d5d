package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/internal/utils"
	"github.com/MKhiriev/go-conf-sync/models"
)

// recordHashing verifies the HMAC of an uploaded record. The digest covers
// the JSON encoding of the record and travels both in the body and in the
// HashSHA256 header; when both are present they must both match. Without a
// configured hash key the check is skipped.
func (h *Handler) recordHashing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.hasher == nil {
			next.ServeHTTP(w, r)
			return
		}

		log := logger.FromRequest(r)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Err(err).Str("func", "*Handler.recordHashing").Msg("failed to read request body")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		// restore request body
		r.Body = io.NopCloser(bytes.NewReader(body))

		var req models.PutRecordRequest
		if err = json.Unmarshal(body, &req); err != nil {
			log.Err(err).Str("func", "*Handler.recordHashing").Msg("failed to decode JSON")
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		// Serialize the record back to JSON for hashing
		payload, err := json.Marshal(req.Record)
		if err != nil {
			log.Err(err).Str("func", "*Handler.recordHashing").Msg("failed to marshal record")
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		headerHash := r.Header.Get(utils.HashHeader)
		if headerHash == "" && req.Hash == "" {
			log.Error().Str("func", "*Handler.recordHashing").Msg("no hash provided")
			http.Error(w, ErrIntegrityCheckFailed.Error(), http.StatusBadRequest)
			return
		}
		for _, sig := range []string{headerHash, req.Hash} {
			if sig != "" && !h.hasher.Verify(payload, sig) {
				log.Error().Str("func", "*Handler.recordHashing").
					Str("hash from request", sig).
					Msg("hashes are not equal")
				http.Error(w, ErrIntegrityCheckFailed.Error(), http.StatusBadRequest)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
