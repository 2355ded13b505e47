package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createService = `-- name: CreateService :one
INSERT INTO services (repair_order_id, name, description, price)
VALUES ($1, $2, $3, $4)
RETURNING id, repair_order_id, name, description, price, created_at
`

type CreateServiceParams struct {
	RepairOrderID uuid.UUID      `json:"repair_order_id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Price         pgtype.Numeric `json:"price"`
}

func (q *Queries) CreateService(ctx context.Context, arg CreateServiceParams) (Service, error) {
	row := q.db.QueryRow(ctx, createService, arg.RepairOrderID, arg.Name, arg.Description, arg.Price)
	var i Service
	err := row.Scan(&i.ID, &i.RepairOrderID, &i.Name, &i.Description, &i.Price, &i.CreatedAt)
	return i, err
}

const listServicesByRepairOrder = `-- name: ListServicesByRepairOrder :many
SELECT id, repair_order_id, name, description, price, created_at
FROM services
WHERE repair_order_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListServicesByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) ([]Service, error) {
	rows, err := q.db.Query(ctx, listServicesByRepairOrder, repairOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Service{}
	for rows.Next() {
		var i Service
		if err := rows.Scan(&i.ID, &i.RepairOrderID, &i.Name, &i.Description, &i.Price, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteServicesByRepairOrder = `-- name: DeleteServicesByRepairOrder :exec
DELETE FROM services WHERE repair_order_id = $1
`

func (q *Queries) DeleteServicesByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteServicesByRepairOrder, repairOrderID)
	return err
}

const sumServicePrices = `-- name: SumServicePrices :one
SELECT COALESCE(SUM(price), 0)::numeric
FROM services
WHERE repair_order_id = $1
`

func (q *Queries) SumServicePrices(ctx context.Context, repairOrderID uuid.UUID) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, sumServicePrices, repairOrderID)
	var sum pgtype.Numeric
	err := row.Scan(&sum)
	return sum, err
}

const createServiceNote = `-- name: CreateServiceNote :one
INSERT INTO service_notes (repair_order_id, note)
VALUES ($1, $2)
RETURNING id, repair_order_id, note, created_at
`

type CreateServiceNoteParams struct {
	RepairOrderID uuid.UUID `json:"repair_order_id"`
	Note          string    `json:"note"`
}

func (q *Queries) CreateServiceNote(ctx context.Context, arg CreateServiceNoteParams) (ServiceNote, error) {
	row := q.db.QueryRow(ctx, createServiceNote, arg.RepairOrderID, arg.Note)
	var i ServiceNote
	err := row.Scan(&i.ID, &i.RepairOrderID, &i.Note, &i.CreatedAt)
	return i, err
}

const listServiceNotesByRepairOrder = `-- name: ListServiceNotesByRepairOrder :many
SELECT id, repair_order_id, note, created_at
FROM service_notes
WHERE repair_order_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListServiceNotesByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) ([]ServiceNote, error) {
	rows, err := q.db.Query(ctx, listServiceNotesByRepairOrder, repairOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ServiceNote{}
	for rows.Next() {
		var i ServiceNote
		if err := rows.Scan(&i.ID, &i.RepairOrderID, &i.Note, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteServiceNotesByRepairOrder = `-- name: DeleteServiceNotesByRepairOrder :exec
DELETE FROM service_notes WHERE repair_order_id = $1
`

func (q *Queries) DeleteServiceNotesByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteServiceNotesByRepairOrder, repairOrderID)
	return err
}
