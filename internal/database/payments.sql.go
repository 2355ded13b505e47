package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, amount, method, reference, invoice_id, created_at`

func scanPayment(row rowScanner) (Payment, error) {
	var i Payment
	err := row.Scan(&i.ID, &i.Amount, &i.Method, &i.Reference, &i.InvoiceID, &i.CreatedAt)
	return i, err
}

const createPayment = `-- name: CreatePayment :one
INSERT INTO payments (amount, method, reference, invoice_id)
VALUES ($1, $2, $3, $4)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
	Amount    pgtype.Numeric `json:"amount"`
	Method    string         `json:"method"`
	Reference pgtype.Text    `json:"reference"`
	InvoiceID uuid.UUID      `json:"invoice_id"`
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, createPayment, arg.Amount, arg.Method, arg.Reference, arg.InvoiceID))
}

const sumPaymentsByInvoice = `-- name: SumPaymentsByInvoice :one
SELECT COALESCE(SUM(amount), 0)::numeric FROM payments WHERE invoice_id = $1
`

func (q *Queries) SumPaymentsByInvoice(ctx context.Context, invoiceID uuid.UUID) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, sumPaymentsByInvoice, invoiceID)
	var sum pgtype.Numeric
	err := row.Scan(&sum)
	return sum, err
}

const listPaymentsByInvoice = `-- name: ListPaymentsByInvoice :many
SELECT ` + paymentColumns + `
FROM payments
WHERE invoice_id = $1
ORDER BY created_at DESC
`

func (q *Queries) ListPaymentsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByInvoice, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Payment{}
	for rows.Next() {
		i, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deletePaymentsByInvoice = `-- name: DeletePaymentsByInvoice :execrows
DELETE FROM payments WHERE invoice_id = $1
`

func (q *Queries) DeletePaymentsByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePaymentsByInvoice, invoiceID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deletePaymentsByRepairOrder = `-- name: DeletePaymentsByRepairOrder :execrows
DELETE FROM payments
WHERE invoice_id IN (SELECT id FROM invoices WHERE repair_order_id = $1)
`

func (q *Queries) DeletePaymentsByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePaymentsByRepairOrder, repairOrderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
