package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Location struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Customer struct {
	ID        uuid.UUID   `json:"id"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Email     pgtype.Text `json:"email"`
	Phone     pgtype.Text `json:"phone"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Vehicle struct {
	ID           uuid.UUID   `json:"id"`
	CustomerID   uuid.UUID   `json:"customer_id"`
	Make         string      `json:"make"`
	Model        string      `json:"model"`
	Year         int32       `json:"year"`
	Vin          pgtype.Text `json:"vin"`
	LicensePlate pgtype.Text `json:"license_plate"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type Employee struct {
	ID             uuid.UUID `json:"id"`
	LocationID     uuid.UUID `json:"location_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"hashed_password"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type RepairOrder struct {
	ID          uuid.UUID          `json:"id"`
	OrderNumber string             `json:"order_number"`
	Status      string             `json:"status"`
	Description string             `json:"description"`
	CustomerID  uuid.UUID          `json:"customer_id"`
	VehicleID   uuid.UUID          `json:"vehicle_id"`
	LocationID  uuid.UUID          `json:"location_id"`
	EmployeeID  uuid.UUID          `json:"employee_id"`
	StartDate   time.Time          `json:"start_date"`
	EndDate     pgtype.Timestamptz `json:"end_date"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type Service struct {
	ID            uuid.UUID      `json:"id"`
	RepairOrderID uuid.UUID      `json:"repair_order_id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Price         pgtype.Numeric `json:"price"`
	CreatedAt     time.Time      `json:"created_at"`
}

type PartUsage struct {
	ID              uuid.UUID      `json:"id"`
	RepairOrderID   uuid.UUID      `json:"repair_order_id"`
	InventoryItemID uuid.UUID      `json:"inventory_item_id"`
	Quantity        int32          `json:"quantity"`
	Price           pgtype.Numeric `json:"price"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type ServiceNote struct {
	ID            uuid.UUID `json:"id"`
	RepairOrderID uuid.UUID `json:"repair_order_id"`
	Note          string    `json:"note"`
	CreatedAt     time.Time `json:"created_at"`
}

type InventoryItem struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	PartNumber  string         `json:"part_number"`
	Price       pgtype.Numeric `json:"price"`
	Quantity    int32          `json:"quantity"`
	LocationID  uuid.UUID      `json:"location_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type Appointment struct {
	ID            uuid.UUID `json:"id"`
	Date          time.Time `json:"date"`
	RepairOrderID uuid.UUID `json:"repair_order_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Invoice struct {
	ID            uuid.UUID      `json:"id"`
	InvoiceNumber string         `json:"invoice_number"`
	Amount        pgtype.Numeric `json:"amount"`
	Tax           pgtype.Numeric `json:"tax"`
	Total         pgtype.Numeric `json:"total"`
	Status        string         `json:"status"`
	RepairOrderID uuid.UUID      `json:"repair_order_id"`
	CustomerID    uuid.UUID      `json:"customer_id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type Payment struct {
	ID        uuid.UUID      `json:"id"`
	Amount    pgtype.Numeric `json:"amount"`
	Method    string         `json:"method"`
	Reference pgtype.Text    `json:"reference"`
	InvoiceID uuid.UUID      `json:"invoice_id"`
	CreatedAt time.Time      `json:"created_at"`
}
