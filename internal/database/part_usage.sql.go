package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const partUsageColumns = `id, repair_order_id, inventory_item_id, quantity, price, created_at, updated_at`

func scanPartUsage(row rowScanner) (PartUsage, error) {
	var i PartUsage
	err := row.Scan(
		&i.ID,
		&i.RepairOrderID,
		&i.InventoryItemID,
		&i.Quantity,
		&i.Price,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createPartUsage = `-- name: CreatePartUsage :one
INSERT INTO part_usage (repair_order_id, inventory_item_id, quantity, price)
VALUES ($1, $2, $3, $4)
RETURNING ` + partUsageColumns

type CreatePartUsageParams struct {
	RepairOrderID   uuid.UUID      `json:"repair_order_id"`
	InventoryItemID uuid.UUID      `json:"inventory_item_id"`
	Quantity        int32          `json:"quantity"`
	Price           pgtype.Numeric `json:"price"`
}

func (q *Queries) CreatePartUsage(ctx context.Context, arg CreatePartUsageParams) (PartUsage, error) {
	row := q.db.QueryRow(ctx, createPartUsage, arg.RepairOrderID, arg.InventoryItemID, arg.Quantity, arg.Price)
	return scanPartUsage(row)
}

const listPartUsageByRepairOrder = `-- name: ListPartUsageByRepairOrder :many
SELECT ` + partUsageColumns + `
FROM part_usage
WHERE repair_order_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListPartUsageByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) ([]PartUsage, error) {
	rows, err := q.db.Query(ctx, listPartUsageByRepairOrder, repairOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []PartUsage{}
	for rows.Next() {
		i, err := scanPartUsage(rows)
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

const updatePartUsage = `-- name: UpdatePartUsage :one
UPDATE part_usage SET quantity = $2, price = $3, updated_at = now()
WHERE id = $1
RETURNING ` + partUsageColumns

type UpdatePartUsageParams struct {
	ID       uuid.UUID      `json:"id"`
	Quantity int32          `json:"quantity"`
	Price    pgtype.Numeric `json:"price"`
}

func (q *Queries) UpdatePartUsage(ctx context.Context, arg UpdatePartUsageParams) (PartUsage, error) {
	return scanPartUsage(q.db.QueryRow(ctx, updatePartUsage, arg.ID, arg.Quantity, arg.Price))
}

const deletePartUsage = `-- name: DeletePartUsage :exec
DELETE FROM part_usage WHERE id = $1
`

func (q *Queries) DeletePartUsage(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deletePartUsage, id)
	return err
}

const deletePartUsageByRepairOrder = `-- name: DeletePartUsageByRepairOrder :exec
DELETE FROM part_usage WHERE repair_order_id = $1
`

func (q *Queries) DeletePartUsageByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deletePartUsageByRepairOrder, repairOrderID)
	return err
}

const sumPartUsageTotals = `-- name: SumPartUsageTotals :one
SELECT COALESCE(SUM(price * quantity), 0)::numeric
FROM part_usage
WHERE repair_order_id = $1
`

func (q *Queries) SumPartUsageTotals(ctx context.Context, repairOrderID uuid.UUID) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, sumPartUsageTotals, repairOrderID)
	var sum pgtype.Numeric
	err := row.Scan(&sum)
	return sum, err
}

const countPartUsageByInventoryItem = `-- name: CountPartUsageByInventoryItem :one
SELECT count(*) FROM part_usage WHERE inventory_item_id = $1
`

func (q *Queries) CountPartUsageByInventoryItem(ctx context.Context, inventoryItemID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countPartUsageByInventoryItem, inventoryItemID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
