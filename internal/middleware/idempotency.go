package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/garageos/api/internal/idempotency"
	"github.com/garageos/api/internal/metrics"
)

const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotentReplayedHeader  = "Idempotent-Replayed"
	maxIdempotencyKeyLength   = 255
	maxIdempotentRequestBytes = 1 << 20
)

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Requests without the header pass through. Responses with status >= 500 are
// not stored, so the client may retry them. When the store is unavailable the
// request is processed normally.
func Idempotency(store idempotency.Store, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLength {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Idempotency-Key must be at most 255 characters"})
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIdempotentRequestBytes))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
					return
				}
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			sum := sha256.Sum256(body)
			fingerprint := hex.EncodeToString(sum[:])

			scoped := scopeKey(r, key)
			logger := log.WithFields(log.Fields{"idempotency_key": key, "path": r.URL.Path})

			rec, err := store.Reserve(r.Context(), scoped, ttl)
			if err != nil {
				logger.WithError(err).Warn("idempotency store unavailable, processing without key")
				next.ServeHTTP(w, r)
				return
			}
			if rec != nil {
				replay(w, rec, fingerprint)
				return
			}

			var captured bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)

			// The client may be gone; the record must still be written.
			ctx := context.WithoutCancel(r.Context())

			// A panicking handler must not leave the key pending until it expires.
			defer func() {
				if rvr := recover(); rvr != nil {
					if err := store.Release(ctx, scoped); err != nil {
						logger.WithError(err).Warn("failed to release idempotency key")
					}
					panic(rvr)
				}
			}()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= 500 {
				if err := store.Release(ctx, scoped); err != nil {
					logger.WithError(err).Warn("failed to release idempotency key")
				}
				return
			}
			err = store.Save(ctx, scoped, idempotency.Record{
				Status:      status,
				Body:        captured.Bytes(),
				Fingerprint: fingerprint,
			}, ttl)
			if err != nil {
				logger.WithError(err).Warn("failed to store idempotent response")
			}
		})
	}
}

func replay(w http.ResponseWriter, rec *idempotency.Record, fingerprint string) {
	if rec.Pending {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a request with this Idempotency-Key is still being processed"})
		return
	}
	if rec.Fingerprint != "" && rec.Fingerprint != fingerprint {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "Idempotency-Key was already used with a different request body"})
		return
	}

	metrics.IdempotentReplays.Inc()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(IdempotentReplayedHeader, "true")
	w.WriteHeader(rec.Status)
	w.Write(rec.Body) //nolint:errcheck
}

// scopeKey namespaces a client key by caller, method and path so two
// employees (or two endpoints) never share a record.
func scopeKey(r *http.Request, key string) string {
	caller := "anonymous"
	if claims := ClaimsFromContext(r.Context()); claims != nil {
		caller = claims.EmployeeID.String()
	}
	return caller + ":" + r.Method + ":" + r.URL.Path + ":" + key
}
