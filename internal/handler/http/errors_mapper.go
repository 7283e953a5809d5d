package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/go-conf-sync/internal/app"
	"github.com/MKhiriev/go-conf-sync/internal/service"
	"github.com/MKhiriev/go-conf-sync/internal/store"
)

// errorStatuses is checked in order, so more specific errors come first. A
// non-empty msg replaces the error text in the response body.
var errorStatuses = []struct {
	err    error
	status int
	msg    string
}{
	{service.ErrUnauthorizedAccessToDifferentUserData, http.StatusForbidden, app.MsgAccessDenied},
	{service.ErrTokenIsExpiredOrInvalid, http.StatusUnauthorized, app.MsgTokenIsExpiredOrInvalid},
	{service.ErrTokenCreationFailed, http.StatusInternalServerError, ""},
	{service.ErrValidationNoUserID, http.StatusBadRequest, ""},
	{service.ErrValidationNoDeviceID, http.StatusBadRequest, ""},
	{service.ErrInvalidDataProvided, http.StatusBadRequest, ""},
	{ErrInvalidQueryParam, http.StatusBadRequest, ""},
	{ErrIntegrityCheckFailed, http.StatusBadRequest, app.MsgIntegrityCheckFailed},
	{ErrNoUserInContext, http.StatusUnauthorized, app.MsgNoUserIDProvided},

	{store.ErrVersionConflict, http.StatusConflict, app.MsgVersionConflict},
	{store.ErrRecordNotFound, http.StatusNotFound, ""},
	{store.ErrDeviceNotFound, http.StatusNotFound, ""},
	{store.ErrNoUserWasFound, http.StatusNotFound, ""},
	{store.ErrTransient, http.StatusServiceUnavailable, app.MsgServiceUnavailable},

	{store.ErrBuildingSQLQuery, http.StatusInternalServerError, ""},
	{store.ErrExecutingQuery, http.StatusInternalServerError, ""},
	{store.ErrExecutingStatement, http.StatusInternalServerError, ""},
	{store.ErrScanningRow, http.StatusInternalServerError, ""},
	{store.ErrScanningRows, http.StatusInternalServerError, ""},
	{store.ErrEncodingColumn, http.StatusInternalServerError, ""},
}

func statusFromError(err error) int {
	status, _ := responseForError(err)
	return status
}

func responseForError(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, e.msg
		}
	}
	return http.StatusInternalServerError, ""
}

// writeError replies with the status mapped from err. Server-side failures
// never expose the error text.
func writeError(w http.ResponseWriter, err error) {
	status, msg := responseForError(err)
	switch {
	case status >= http.StatusInternalServerError && msg == "":
		msg = app.MsgInternalServerError
	case msg == "":
		msg = err.Error()
	}
	http.Error(w, msg, status)
}
