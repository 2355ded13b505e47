package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const inventoryItemColumns = `id, name, description, part_number, price, quantity, location_id, created_at, updated_at`

func scanInventoryItem(row rowScanner) (InventoryItem, error) {
	var i InventoryItem
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.PartNumber,
		&i.Price,
		&i.Quantity,
		&i.LocationID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const adjustInventoryQuantity = `-- name: AdjustInventoryQuantity :one
UPDATE inventory_items
SET quantity = quantity + $2, updated_at = now()
WHERE id = $1
RETURNING ` + inventoryItemColumns

type AdjustInventoryQuantityParams struct {
	ID    uuid.UUID `json:"id"`
	Delta int32     `json:"delta"`
}

// AdjustInventoryQuantity applies a relative change to an item's stock in a
// single statement, so concurrent adjustments never overwrite each other.
func (q *Queries) AdjustInventoryQuantity(ctx context.Context, arg AdjustInventoryQuantityParams) (InventoryItem, error) {
	return scanInventoryItem(q.db.QueryRow(ctx, adjustInventoryQuantity, arg.ID, arg.Delta))
}

const lockInventoryItems = `-- name: LockInventoryItems :many
SELECT id FROM inventory_items
WHERE id = ANY($1::uuid[])
ORDER BY id
FOR UPDATE
`

// LockInventoryItems row-locks the given items in id order and returns the ids
// that exist.
func (q *Queries) LockInventoryItems(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, lockInventoryItems, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	locked := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		locked = append(locked, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return locked, nil
}

const getInventoryItem = `-- name: GetInventoryItem :one
SELECT ` + inventoryItemColumns + `
FROM inventory_items
WHERE id = $1
`

func (q *Queries) GetInventoryItem(ctx context.Context, id uuid.UUID) (InventoryItem, error) {
	return scanInventoryItem(q.db.QueryRow(ctx, getInventoryItem, id))
}

const inventoryItemDetailSelect = `
SELECT i.id, i.name, i.description, i.part_number, i.price, i.quantity, i.location_id,
       i.created_at, i.updated_at, l.name
FROM inventory_items i
JOIN locations l ON l.id = i.location_id
`

type InventoryItemDetail struct {
	InventoryItem
	LocationName string `json:"location_name"`
}

func scanInventoryItemDetail(row rowScanner) (InventoryItemDetail, error) {
	var i InventoryItemDetail
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.PartNumber,
		&i.Price,
		&i.Quantity,
		&i.LocationID,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.LocationName,
	)
	return i, err
}

const getInventoryItemDetail = `-- name: GetInventoryItemDetail :one` + inventoryItemDetailSelect + `WHERE i.id = $1
`

func (q *Queries) GetInventoryItemDetail(ctx context.Context, id uuid.UUID) (InventoryItemDetail, error) {
	return scanInventoryItemDetail(q.db.QueryRow(ctx, getInventoryItemDetail, id))
}

const listInventoryItems = `-- name: ListInventoryItems :many` + inventoryItemDetailSelect + `WHERE ($1::uuid IS NULL OR i.location_id = $1)
  AND ($2::int IS NULL OR i.quantity < $2)
ORDER BY i.name
`

type ListInventoryItemsParams struct {
	LocationID pgtype.UUID `json:"location_id"`
	// BelowQuantity restricts the list to items whose quantity is strictly less.
	BelowQuantity pgtype.Int4 `json:"below_quantity"`
}

func (q *Queries) ListInventoryItems(ctx context.Context, arg ListInventoryItemsParams) ([]InventoryItemDetail, error) {
	rows, err := q.db.Query(ctx, listInventoryItems, arg.LocationID, arg.BelowQuantity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []InventoryItemDetail{}
	for rows.Next() {
		i, err := scanInventoryItemDetail(rows)
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

const createInventoryItem = `-- name: CreateInventoryItem :one
INSERT INTO inventory_items (name, description, part_number, price, quantity, location_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + inventoryItemColumns

type CreateInventoryItemParams struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	PartNumber  string         `json:"part_number"`
	Price       pgtype.Numeric `json:"price"`
	Quantity    int32          `json:"quantity"`
	LocationID  uuid.UUID      `json:"location_id"`
}

func (q *Queries) CreateInventoryItem(ctx context.Context, arg CreateInventoryItemParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, createInventoryItem,
		arg.Name,
		arg.Description,
		arg.PartNumber,
		arg.Price,
		arg.Quantity,
		arg.LocationID,
	)
	return scanInventoryItem(row)
}

const updateInventoryItem = `-- name: UpdateInventoryItem :one
UPDATE inventory_items SET
    name        = $2,
    description = $3,
    part_number = $4,
    price       = $5,
    quantity    = $6,
    location_id = $7,
    updated_at  = now()
WHERE id = $1
RETURNING ` + inventoryItemColumns

type UpdateInventoryItemParams struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	PartNumber  string         `json:"part_number"`
	Price       pgtype.Numeric `json:"price"`
	Quantity    int32          `json:"quantity"`
	LocationID  uuid.UUID      `json:"location_id"`
}

func (q *Queries) UpdateInventoryItem(ctx context.Context, arg UpdateInventoryItemParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, updateInventoryItem,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.PartNumber,
		arg.Price,
		arg.Quantity,
		arg.LocationID,
	)
	return scanInventoryItem(row)
}

const deleteInventoryItem = `-- name: DeleteInventoryItem :exec
DELETE FROM inventory_items WHERE id = $1
`

func (q *Queries) DeleteInventoryItem(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteInventoryItem, id)
	return err
}
