// Package service holds the transactional business logic: the repair order
// lifecycle, the inventory ledger, the invoice/payment ledger and appointments.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/garageos/api/internal/metrics"
)

const maxNumberRetries = 3

// Unique constraints backing generated document numbers.
const (
	constraintOrderNumber   = "repair_orders_order_number_key"
	constraintInvoiceNumber = "invoices_invoice_number_key"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Publisher receives domain events after their transaction has committed.
// Satisfied by *ws.Hub.
type Publisher interface {
	Publish(locationID uuid.UUID, eventType string, payload any)
}

type noopPublisher struct{}

func (noopPublisher) Publish(uuid.UUID, string, any) {}

// withNumberRetry runs fn, retrying when it fails on a unique violation of a
// generated document number. Sequences make collisions rare; the retry covers
// numbers inserted out of band.
func withNumberRetry[T any](fn func() (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !isNumberConflict(err) {
			return zero, err
		}
		metrics.NumberRetries.Inc()
		lastErr = err
	}
	return zero, lastErr
}

// isNumberConflict checks if the error is a unique constraint violation
// (pgconn error code 23505) on a generated document number.
func isNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" &&
			(pgErr.ConstraintName == constraintOrderNumber || pgErr.ConstraintName == constraintInvoiceNumber)
	}
	return false
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// --- Parsing helpers ---

func parseID(field, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, validationError("invalid %s", field)
	}
	return id, nil
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// parseTime accepts RFC3339 timestamps and plain dates (midnight UTC).
func parseTime(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%s: %w", field, ErrInvalidDate)
}

// parseMoney parses a non-negative amount with at most 2 decimal places of
// significance; extra places are rounded.
func parseMoney(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s: %w", field, ErrInvalidPrice)
	}
	return d.Round(2), nil
}

// --- Numeric helpers ---

// NumericToDecimal converts a database numeric to a decimal; NULL and
// unparseable values are zero.
func NumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

func textOrNull(p *string) pgtype.Text {
	if p == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *p, Valid: true}
}
