// Package idempotency remembers the responses to POST requests carrying an
// Idempotency-Key header so that client retries replay the first response
// instead of writing twice.
package idempotency

import (
	"context"
	"time"
)

// Record is what a Store keeps per key. A pending record marks a request that
// is still being processed.
type Record struct {
	Status int    `json:"status"`
	Body   []byte `json:"body,omitempty"`
	// Fingerprint identifies the request body the response belongs to.
	Fingerprint string    `json:"fingerprint,omitempty"`
	Pending     bool      `json:"pending"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Store persists idempotency records.
//
// Reserve claims key for a new request. It returns (nil, nil) when the caller
// now owns the key, or the existing record when the key is already taken.
// Save replaces the reservation with the final response; Release drops it so
// the request can be retried.
type Store interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (*Record, error)
	Save(ctx context.Context, key string, rec Record, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}
