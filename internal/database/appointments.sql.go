package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const appointmentColumns = `id, date, repair_order_id, created_at, updated_at`

func scanAppointment(row rowScanner) (Appointment, error) {
	var i Appointment
	err := row.Scan(&i.ID, &i.Date, &i.RepairOrderID, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const createAppointment = `-- name: CreateAppointment :one
INSERT INTO appointments (date, repair_order_id)
VALUES ($1, $2)
RETURNING ` + appointmentColumns

type CreateAppointmentParams struct {
	Date          time.Time `json:"date"`
	RepairOrderID uuid.UUID `json:"repair_order_id"`
}

func (q *Queries) CreateAppointment(ctx context.Context, arg CreateAppointmentParams) (Appointment, error) {
	return scanAppointment(q.db.QueryRow(ctx, createAppointment, arg.Date, arg.RepairOrderID))
}

const getAppointment = `-- name: GetAppointment :one
SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1
`

func (q *Queries) GetAppointment(ctx context.Context, id uuid.UUID) (Appointment, error) {
	return scanAppointment(q.db.QueryRow(ctx, getAppointment, id))
}

const getAppointmentByRepairOrder = `-- name: GetAppointmentByRepairOrder :one
SELECT ` + appointmentColumns + ` FROM appointments WHERE repair_order_id = $1
`

func (q *Queries) GetAppointmentByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) (Appointment, error) {
	return scanAppointment(q.db.QueryRow(ctx, getAppointmentByRepairOrder, repairOrderID))
}

const appointmentExistsForRepairOrder = `-- name: AppointmentExistsForRepairOrder :one
SELECT EXISTS (SELECT 1 FROM appointments WHERE repair_order_id = $1)
`

func (q *Queries) AppointmentExistsForRepairOrder(ctx context.Context, repairOrderID uuid.UUID) (bool, error) {
	row := q.db.QueryRow(ctx, appointmentExistsForRepairOrder, repairOrderID)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const updateAppointmentDate = `-- name: UpdateAppointmentDate :one
UPDATE appointments SET date = $2, updated_at = now()
WHERE id = $1
RETURNING ` + appointmentColumns

type UpdateAppointmentDateParams struct {
	ID   uuid.UUID `json:"id"`
	Date time.Time `json:"date"`
}

func (q *Queries) UpdateAppointmentDate(ctx context.Context, arg UpdateAppointmentDateParams) (Appointment, error) {
	return scanAppointment(q.db.QueryRow(ctx, updateAppointmentDate, arg.ID, arg.Date))
}

const deleteAppointment = `-- name: DeleteAppointment :execrows
DELETE FROM appointments WHERE id = $1
`

// DeleteAppointment returns the number of rows removed.
func (q *Queries) DeleteAppointment(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteAppointment, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteAppointmentsByRepairOrder = `-- name: DeleteAppointmentsByRepairOrder :exec
DELETE FROM appointments WHERE repair_order_id = $1
`

func (q *Queries) DeleteAppointmentsByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteAppointmentsByRepairOrder, repairOrderID)
	return err
}

const listAppointments = `-- name: ListAppointments :many
SELECT a.id, a.date, a.repair_order_id, a.created_at, a.updated_at,
       ro.order_number, ro.status, ro.description,
       c.first_name, c.last_name,
       v.make, v.model, v.year,
       l.name
FROM appointments a
JOIN repair_orders ro ON ro.id = a.repair_order_id
JOIN customers c ON c.id = ro.customer_id
JOIN vehicles v ON v.id = ro.vehicle_id
JOIN locations l ON l.id = ro.location_id
WHERE ($1::uuid IS NULL OR a.id = $1)
  AND ($2::timestamptz IS NULL OR DATE(a.date) = DATE($2::timestamptz))
  AND ($3::timestamptz IS NULL OR a.date >= $3)
  AND ($4::timestamptz IS NULL OR a.date <= $4)
ORDER BY a.date
`

type ListAppointmentsParams struct {
	ID pgtype.UUID `json:"id"`
	// Date matches appointments on the same calendar day.
	Date      pgtype.Timestamptz `json:"date"`
	StartDate pgtype.Timestamptz `json:"start_date"`
	EndDate   pgtype.Timestamptz `json:"end_date"`
}

type AppointmentDetail struct {
	Appointment
	OrderNumber       string `json:"order_number"`
	OrderStatus       string `json:"order_status"`
	OrderDescription  string `json:"order_description"`
	CustomerFirstName string `json:"customer_first_name"`
	CustomerLastName  string `json:"customer_last_name"`
	VehicleMake       string `json:"vehicle_make"`
	VehicleModel      string `json:"vehicle_model"`
	VehicleYear       int32  `json:"vehicle_year"`
	LocationName      string `json:"location_name"`
}

func (q *Queries) ListAppointments(ctx context.Context, arg ListAppointmentsParams) ([]AppointmentDetail, error) {
	rows, err := q.db.Query(ctx, listAppointments, arg.ID, arg.Date, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []AppointmentDetail{}
	for rows.Next() {
		var i AppointmentDetail
		if err := rows.Scan(
			&i.ID,
			&i.Date,
			&i.RepairOrderID,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.OrderNumber,
			&i.OrderStatus,
			&i.OrderDescription,
			&i.CustomerFirstName,
			&i.CustomerLastName,
			&i.VehicleMake,
			&i.VehicleModel,
			&i.VehicleYear,
			&i.LocationName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
