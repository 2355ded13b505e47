package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const repairOrderColumns = `id, order_number, status, description, customer_id, vehicle_id,
    location_id, employee_id, start_date, end_date, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRepairOrder(row rowScanner) (RepairOrder, error) {
	var i RepairOrder
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.Status,
		&i.Description,
		&i.CustomerID,
		&i.VehicleID,
		&i.LocationID,
		&i.EmployeeID,
		&i.StartDate,
		&i.EndDate,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const nextRepairOrderNumber = `-- name: NextRepairOrderNumber :one
SELECT nextval('repair_order_number_seq')::bigint
`

func (q *Queries) NextRepairOrderNumber(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, nextRepairOrderNumber)
	var n int64
	err := row.Scan(&n)
	return n, err
}

const createRepairOrder = `-- name: CreateRepairOrder :one
INSERT INTO repair_orders (
    order_number, status, description, customer_id, vehicle_id,
    location_id, employee_id, start_date
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + repairOrderColumns

type CreateRepairOrderParams struct {
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	CustomerID  uuid.UUID `json:"customer_id"`
	VehicleID   uuid.UUID `json:"vehicle_id"`
	LocationID  uuid.UUID `json:"location_id"`
	EmployeeID  uuid.UUID `json:"employee_id"`
	StartDate   time.Time `json:"start_date"`
}

func (q *Queries) CreateRepairOrder(ctx context.Context, arg CreateRepairOrderParams) (RepairOrder, error) {
	row := q.db.QueryRow(ctx, createRepairOrder,
		arg.OrderNumber,
		arg.Status,
		arg.Description,
		arg.CustomerID,
		arg.VehicleID,
		arg.LocationID,
		arg.EmployeeID,
		arg.StartDate,
	)
	return scanRepairOrder(row)
}

const getRepairOrder = `-- name: GetRepairOrder :one
SELECT ` + repairOrderColumns + `
FROM repair_orders
WHERE id = $1
`

func (q *Queries) GetRepairOrder(ctx context.Context, id uuid.UUID) (RepairOrder, error) {
	return scanRepairOrder(q.db.QueryRow(ctx, getRepairOrder, id))
}

const getRepairOrderForUpdate = `-- name: GetRepairOrderForUpdate :one
SELECT ` + repairOrderColumns + `
FROM repair_orders
WHERE id = $1
FOR UPDATE
`

// GetRepairOrderForUpdate locks the order row until the surrounding
// transaction ends, serializing concurrent updates and deletes of one order.
func (q *Queries) GetRepairOrderForUpdate(ctx context.Context, id uuid.UUID) (RepairOrder, error) {
	return scanRepairOrder(q.db.QueryRow(ctx, getRepairOrderForUpdate, id))
}

const updateRepairOrder = `-- name: UpdateRepairOrder :one
UPDATE repair_orders SET
    description = COALESCE($2, description),
    status      = COALESCE($3, status),
    employee_id = COALESCE($4, employee_id),
    start_date  = COALESCE($5, start_date),
    end_date    = COALESCE($6, end_date),
    updated_at  = now()
WHERE id = $1
RETURNING ` + repairOrderColumns

type UpdateRepairOrderParams struct {
	ID          uuid.UUID          `json:"id"`
	Description pgtype.Text        `json:"description"`
	Status      pgtype.Text        `json:"status"`
	EmployeeID  pgtype.UUID        `json:"employee_id"`
	StartDate   pgtype.Timestamptz `json:"start_date"`
	EndDate     pgtype.Timestamptz `json:"end_date"`
}

func (q *Queries) UpdateRepairOrder(ctx context.Context, arg UpdateRepairOrderParams) (RepairOrder, error) {
	row := q.db.QueryRow(ctx, updateRepairOrder,
		arg.ID,
		arg.Description,
		arg.Status,
		arg.EmployeeID,
		arg.StartDate,
		arg.EndDate,
	)
	return scanRepairOrder(row)
}

const deleteRepairOrder = `-- name: DeleteRepairOrder :exec
DELETE FROM repair_orders WHERE id = $1
`

func (q *Queries) DeleteRepairOrder(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteRepairOrder, id)
	return err
}

const repairOrderDetailSelect = `
SELECT ro.id, ro.order_number, ro.status, ro.description, ro.customer_id, ro.vehicle_id,
       ro.location_id, ro.employee_id, ro.start_date, ro.end_date, ro.created_at, ro.updated_at,
       c.first_name, c.last_name,
       v.make, v.model, v.year,
       l.name,
       e.first_name, e.last_name
FROM repair_orders ro
JOIN customers c ON c.id = ro.customer_id
JOIN vehicles v ON v.id = ro.vehicle_id
JOIN locations l ON l.id = ro.location_id
JOIN employees e ON e.id = ro.employee_id
`

type RepairOrderDetail struct {
	RepairOrder
	CustomerFirstName string `json:"customer_first_name"`
	CustomerLastName  string `json:"customer_last_name"`
	VehicleMake       string `json:"vehicle_make"`
	VehicleModel      string `json:"vehicle_model"`
	VehicleYear       int32  `json:"vehicle_year"`
	LocationName      string `json:"location_name"`
	EmployeeFirstName string `json:"employee_first_name"`
	EmployeeLastName  string `json:"employee_last_name"`
}

func scanRepairOrderDetail(row rowScanner) (RepairOrderDetail, error) {
	var i RepairOrderDetail
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.Status,
		&i.Description,
		&i.CustomerID,
		&i.VehicleID,
		&i.LocationID,
		&i.EmployeeID,
		&i.StartDate,
		&i.EndDate,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.CustomerFirstName,
		&i.CustomerLastName,
		&i.VehicleMake,
		&i.VehicleModel,
		&i.VehicleYear,
		&i.LocationName,
		&i.EmployeeFirstName,
		&i.EmployeeLastName,
	)
	return i, err
}

const getRepairOrderDetail = `-- name: GetRepairOrderDetail :one` + repairOrderDetailSelect + `WHERE ro.id = $1
`

func (q *Queries) GetRepairOrderDetail(ctx context.Context, id uuid.UUID) (RepairOrderDetail, error) {
	return scanRepairOrderDetail(q.db.QueryRow(ctx, getRepairOrderDetail, id))
}

const listRepairOrders = `-- name: ListRepairOrders :many` + repairOrderDetailSelect + `WHERE ($1::uuid IS NULL OR ro.customer_id = $1)
  AND ($2::uuid IS NULL OR ro.vehicle_id = $2)
  AND ($3::text IS NULL OR ro.status = $3)
ORDER BY ro.created_at DESC
`

type ListRepairOrdersParams struct {
	CustomerID pgtype.UUID `json:"customer_id"`
	VehicleID  pgtype.UUID `json:"vehicle_id"`
	Status     pgtype.Text `json:"status"`
}

func (q *Queries) ListRepairOrders(ctx context.Context, arg ListRepairOrdersParams) ([]RepairOrderDetail, error) {
	rows, err := q.db.Query(ctx, listRepairOrders, arg.CustomerID, arg.VehicleID, arg.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []RepairOrderDetail{}
	for rows.Next() {
		i, err := scanRepairOrderDetail(rows)
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
