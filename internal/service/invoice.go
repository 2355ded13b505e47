package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/garageos/api/internal/database"
	"github.com/garageos/api/internal/enum"
	"github.com/garageos/api/internal/metrics"
)

// InvoiceStore defines the DB methods needed by the invoice/payment ledger.
// Satisfied by *database.Queries (and its WithTx variant).
type InvoiceStore interface {
	GetInvoiceForUpdate(ctx context.Context, id uuid.UUID) (database.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, arg database.UpdateInvoiceStatusParams) (database.Invoice, error)
	DeleteInvoice(ctx context.Context, id uuid.UUID) error
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	SumPaymentsByInvoice(ctx context.Context, invoiceID uuid.UUID) (pgtype.Numeric, error)
	DeletePaymentsByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error)
	GetRepairOrder(ctx context.Context, id uuid.UUID) (database.RepairOrder, error)
}

// NewInvoiceStore creates an InvoiceStore from a DBTX (pool or tx).
type NewInvoiceStore func(db database.DBTX) InvoiceStore

// RecordPaymentRequest is the input for recording a payment.
type RecordPaymentRequest struct {
	InvoiceID string
	Amount    string
	Method    string
	Reference string
}

// RecordPaymentResult is the stored payment and the invoice after its status
// was re-derived.
type RecordPaymentResult struct {
	Payment database.Payment
	Invoice database.Invoice
}

// PaymentEvent is the websocket payload for recorded payments.
type PaymentEvent struct {
	PaymentID     uuid.UUID `json:"paymentId"`
	InvoiceID     uuid.UUID `json:"invoiceId"`
	Amount        string    `json:"amount"`
	InvoiceStatus string    `json:"invoiceStatus"`
}

// InvoiceService records payments and maintains invoice status.
type InvoiceService struct {
	pool      TxBeginner
	newStore  NewInvoiceStore
	publisher Publisher
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(pool TxBeginner, newStore NewInvoiceStore, publisher Publisher) *InvoiceService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &InvoiceService{pool: pool, newStore: newStore, publisher: publisher}
}

// DeriveInvoiceStatus maps the amount paid so far against the invoice total:
// PAID once paid covers the total, PARTIAL for any positive amount below it,
// PENDING otherwise.
func DeriveInvoiceStatus(paid, total decimal.Decimal) string {
	switch {
	case paid.GreaterThanOrEqual(total):
		return enum.InvoiceStatusPaid
	case paid.IsPositive():
		return enum.InvoiceStatusPartial
	default:
		return enum.InvoiceStatusPending
	}
}

// RecordPayment appends a payment to an invoice and re-derives the invoice
// status from the sum of all its payments. The invoice row is locked for the
// duration so concurrent payments see each other's totals.
func (s *InvoiceService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*RecordPaymentResult, error) {
	var missing []string
	if strings.TrimSpace(req.Amount) == "" {
		missing = append(missing, "amount")
	}
	if strings.TrimSpace(req.Method) == "" {
		missing = append(missing, "method")
	}
	if strings.TrimSpace(req.InvoiceID) == "" {
		missing = append(missing, "invoiceId")
	}
	if len(missing) > 0 {
		return nil, requiredError(missing...)
	}

	invoiceID, err := parseID("invoiceId", req.InvoiceID)
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return nil, ErrInvalidAmount
	}
	// Stored at cent precision, so the rounded value must be positive.
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	inv, err := store.GetInvoiceForUpdate(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}

	reference := pgtype.Text{}
	if strings.TrimSpace(req.Reference) != "" {
		reference = pgtype.Text{String: req.Reference, Valid: true}
	}
	payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		Amount:    decimalToNumeric(amount),
		Method:    req.Method,
		Reference: reference,
		InvoiceID: invoiceID,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	paid, err := store.SumPaymentsByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}
	status := DeriveInvoiceStatus(NumericToDecimal(paid), NumericToDecimal(inv.Total))

	updated, err := store.UpdateInvoiceStatus(ctx, database.UpdateInvoiceStatusParams{
		ID:     invoiceID,
		Status: pgtype.Text{String: status, Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("update invoice status: %w", err)
	}

	order, err := store.GetRepairOrder(ctx, inv.RepairOrderID)
	if err != nil {
		return nil, fmt.Errorf("get repair order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	metrics.PaymentsRecorded.WithLabelValues(status).Inc()
	s.publisher.Publish(order.LocationID, enum.EventPaymentRecorded, PaymentEvent{
		PaymentID:     payment.ID,
		InvoiceID:     invoiceID,
		Amount:        amount.StringFixed(2),
		InvoiceStatus: status,
	})
	return &RecordPaymentResult{Payment: payment, Invoice: updated}, nil
}

// UpdateInvoice overrides an invoice's status. A nil status leaves it as is.
// The override is not checked against the recorded payments.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, id uuid.UUID, status *string) (*database.Invoice, error) {
	params := database.UpdateInvoiceStatusParams{ID: id}
	if status != nil {
		if !isValidInvoiceStatus(*status) {
			return nil, ErrInvalidInvoiceStatus
		}
		params.Status = pgtype.Text{String: *status, Valid: true}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetInvoiceForUpdate(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}

	inv, err := store.UpdateInvoiceStatus(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &inv, nil
}

// DeleteInvoice removes an invoice together with its payments.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetInvoiceForUpdate(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvoiceNotFound
		}
		return fmt.Errorf("get invoice: %w", err)
	}
	if _, err := store.DeletePaymentsByInvoice(ctx, id); err != nil {
		return fmt.Errorf("delete payments: %w", err)
	}
	if err := store.DeleteInvoice(ctx, id); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isValidInvoiceStatus(s string) bool {
	switch s {
	case enum.InvoiceStatusPending, enum.InvoiceStatusPartial, enum.InvoiceStatusPaid:
		return true
	}
	return false
}
