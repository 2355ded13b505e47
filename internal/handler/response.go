package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	log "github.com/sirupsen/logrus"

	"github.com/garageos/api/internal/service"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("failed to encode JSON response")
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps a service error to a response. Validation and
// conflict errors are 400, missing entities 404. Anything else is logged and
// reported with the generic failure message for the operation.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, failure string) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusBadRequest, service.Message(err))
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, service.Message(err))
	default:
		writeInternalError(w, r, err, failure)
	}
}

func writeInternalError(w http.ResponseWriter, r *http.Request, err error, failure string) {
	log.WithError(err).WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Error(failure)
	writeError(w, http.StatusInternalServerError, failure)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

// queryUUID parses an optional UUID query parameter. ok is false when the
// parameter is present but malformed.
func queryUUID(r *http.Request, name string) (id pgtype.UUID, ok bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return pgtype.UUID{}, true
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, false
	}
	return pgtype.UUID{Bytes: u, Valid: true}, true
}

func queryText(r *http.Request, name string) pgtype.Text {
	s := r.URL.Query().Get(name)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// queryTime parses an optional RFC3339 or YYYY-MM-DD query parameter.
func queryTime(r *http.Request, name string) (pgtype.Timestamptz, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return pgtype.Timestamptz{}, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Timestamptz{Time: t, Valid: true}, true
		}
	}
	return pgtype.Timestamptz{}, false
}

func numericToString(n pgtype.Numeric) string {
	return service.NumericToDecimal(n).StringFixed(2)
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}
