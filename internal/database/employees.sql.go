package database

import (
	"context"

	"github.com/google/uuid"
)

const employeeColumns = `id, location_id, first_name, last_name, email, hashed_password, role, is_active, created_at, updated_at`

func scanEmployee(row rowScanner) (Employee, error) {
	var i Employee
	err := row.Scan(
		&i.ID,
		&i.LocationID,
		&i.FirstName,
		&i.LastName,
		&i.Email,
		&i.HashedPassword,
		&i.Role,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getEmployeeByEmail = `-- name: GetEmployeeByEmail :one
SELECT ` + employeeColumns + `
FROM employees
WHERE email = $1 AND is_active = true
`

func (q *Queries) GetEmployeeByEmail(ctx context.Context, email string) (Employee, error) {
	return scanEmployee(q.db.QueryRow(ctx, getEmployeeByEmail, email))
}

const getEmployee = `-- name: GetEmployee :one
SELECT ` + employeeColumns + `
FROM employees
WHERE id = $1 AND is_active = true
`

func (q *Queries) GetEmployee(ctx context.Context, id uuid.UUID) (Employee, error) {
	return scanEmployee(q.db.QueryRow(ctx, getEmployee, id))
}
