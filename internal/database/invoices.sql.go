package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const invoiceColumns = `id, invoice_number, amount, tax, total, status, repair_order_id, customer_id, created_at, updated_at`

func scanInvoice(row rowScanner) (Invoice, error) {
	var i Invoice
	err := row.Scan(
		&i.ID,
		&i.InvoiceNumber,
		&i.Amount,
		&i.Tax,
		&i.Total,
		&i.Status,
		&i.RepairOrderID,
		&i.CustomerID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const nextInvoiceNumber = `-- name: NextInvoiceNumber :one
SELECT nextval('invoice_number_seq')::bigint
`

func (q *Queries) NextInvoiceNumber(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, nextInvoiceNumber)
	var n int64
	err := row.Scan(&n)
	return n, err
}

const createInvoice = `-- name: CreateInvoice :one
INSERT INTO invoices (invoice_number, amount, tax, total, status, repair_order_id, customer_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + invoiceColumns

type CreateInvoiceParams struct {
	InvoiceNumber string         `json:"invoice_number"`
	Amount        pgtype.Numeric `json:"amount"`
	Tax           pgtype.Numeric `json:"tax"`
	Total         pgtype.Numeric `json:"total"`
	Status        string         `json:"status"`
	RepairOrderID uuid.UUID      `json:"repair_order_id"`
	CustomerID    uuid.UUID      `json:"customer_id"`
}

func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error) {
	row := q.db.QueryRow(ctx, createInvoice,
		arg.InvoiceNumber,
		arg.Amount,
		arg.Tax,
		arg.Total,
		arg.Status,
		arg.RepairOrderID,
		arg.CustomerID,
	)
	return scanInvoice(row)
}

const getInvoice = `-- name: GetInvoice :one
SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1
`

func (q *Queries) GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getInvoice, id))
}

const getInvoiceForUpdate = `-- name: GetInvoiceForUpdate :one
SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 FOR UPDATE
`

func (q *Queries) GetInvoiceForUpdate(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getInvoiceForUpdate, id))
}

const getInvoiceByRepairOrder = `-- name: GetInvoiceByRepairOrder :one
SELECT ` + invoiceColumns + ` FROM invoices WHERE repair_order_id = $1
`

func (q *Queries) GetInvoiceByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getInvoiceByRepairOrder, repairOrderID))
}

const updateInvoiceStatus = `-- name: UpdateInvoiceStatus :one
UPDATE invoices SET status = COALESCE($2, status), updated_at = now()
WHERE id = $1
RETURNING ` + invoiceColumns

type UpdateInvoiceStatusParams struct {
	ID     uuid.UUID   `json:"id"`
	Status pgtype.Text `json:"status"`
}

func (q *Queries) UpdateInvoiceStatus(ctx context.Context, arg UpdateInvoiceStatusParams) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, updateInvoiceStatus, arg.ID, arg.Status))
}

const deleteInvoice = `-- name: DeleteInvoice :exec
DELETE FROM invoices WHERE id = $1
`

func (q *Queries) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteInvoice, id)
	return err
}

const deleteInvoicesByRepairOrder = `-- name: DeleteInvoicesByRepairOrder :exec
DELETE FROM invoices WHERE repair_order_id = $1
`

func (q *Queries) DeleteInvoicesByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteInvoicesByRepairOrder, repairOrderID)
	return err
}

const invoiceDetailSelect = `
SELECT i.id, i.invoice_number, i.amount, i.tax, i.total, i.status, i.repair_order_id,
       i.customer_id, i.created_at, i.updated_at,
       (SELECT COALESCE(SUM(p.amount), 0) FROM payments p WHERE p.invoice_id = i.id)::numeric,
       ro.order_number, ro.location_id, ro.description,
       c.first_name, c.last_name,
       v.make, v.model, v.year,
       l.name
FROM invoices i
JOIN repair_orders ro ON ro.id = i.repair_order_id
JOIN customers c ON c.id = i.customer_id
JOIN vehicles v ON v.id = ro.vehicle_id
JOIN locations l ON l.id = ro.location_id
`

type InvoiceDetail struct {
	Invoice
	PaidAmount        pgtype.Numeric `json:"paid_amount"`
	OrderNumber       string         `json:"order_number"`
	LocationID        uuid.UUID      `json:"location_id"`
	OrderDescription  string         `json:"order_description"`
	CustomerFirstName string         `json:"customer_first_name"`
	CustomerLastName  string         `json:"customer_last_name"`
	VehicleMake       string         `json:"vehicle_make"`
	VehicleModel      string         `json:"vehicle_model"`
	VehicleYear       int32          `json:"vehicle_year"`
	LocationName      string         `json:"location_name"`
}

func scanInvoiceDetail(row rowScanner) (InvoiceDetail, error) {
	var i InvoiceDetail
	err := row.Scan(
		&i.ID,
		&i.InvoiceNumber,
		&i.Amount,
		&i.Tax,
		&i.Total,
		&i.Status,
		&i.RepairOrderID,
		&i.CustomerID,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.PaidAmount,
		&i.OrderNumber,
		&i.LocationID,
		&i.OrderDescription,
		&i.CustomerFirstName,
		&i.CustomerLastName,
		&i.VehicleMake,
		&i.VehicleModel,
		&i.VehicleYear,
		&i.LocationName,
	)
	return i, err
}

const getInvoiceDetail = `-- name: GetInvoiceDetail :one` + invoiceDetailSelect + `WHERE i.id = $1
`

func (q *Queries) GetInvoiceDetail(ctx context.Context, id uuid.UUID) (InvoiceDetail, error) {
	return scanInvoiceDetail(q.db.QueryRow(ctx, getInvoiceDetail, id))
}

const listInvoices = `-- name: ListInvoices :many` + invoiceDetailSelect + `WHERE ($1::uuid IS NULL OR i.customer_id = $1)
  AND ($2::text IS NULL OR i.status = $2)
ORDER BY i.created_at DESC
`

type ListInvoicesParams struct {
	CustomerID pgtype.UUID `json:"customer_id"`
	Status     pgtype.Text `json:"status"`
}

func (q *Queries) ListInvoices(ctx context.Context, arg ListInvoicesParams) ([]InvoiceDetail, error) {
	rows, err := q.db.Query(ctx, listInvoices, arg.CustomerID, arg.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []InvoiceDetail{}
	for rows.Next() {
		i, err := scanInvoiceDetail(rows)
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
