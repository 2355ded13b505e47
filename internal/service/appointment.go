package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/garageos/api/internal/database"
)

const constraintAppointmentOrder = "appointments_repair_order_id_key"

// AppointmentStore defines the DB methods needed to manage appointments.
// Satisfied by *database.Queries (and its WithTx variant).
type AppointmentStore interface {
	GetRepairOrderForUpdate(ctx context.Context, id uuid.UUID) (database.RepairOrder, error)
	AppointmentExistsForRepairOrder(ctx context.Context, repairOrderID uuid.UUID) (bool, error)
	CreateAppointment(ctx context.Context, arg database.CreateAppointmentParams) (database.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (database.Appointment, error)
	UpdateAppointmentDate(ctx context.Context, arg database.UpdateAppointmentDateParams) (database.Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) (int64, error)
}

// NewAppointmentStore creates an AppointmentStore from a DBTX (pool or tx).
type NewAppointmentStore func(db database.DBTX) AppointmentStore

// AppointmentService books, moves and cancels appointments. A repair order has
// at most one appointment.
type AppointmentService struct {
	pool     TxBeginner
	newStore NewAppointmentStore
}

// NewAppointmentService creates a new AppointmentService.
func NewAppointmentService(pool TxBeginner, newStore NewAppointmentStore) *AppointmentService {
	return &AppointmentService{pool: pool, newStore: newStore}
}

// Create books an appointment for a repair order.
func (s *AppointmentService) Create(ctx context.Context, date, repairOrderID string) (*database.Appointment, error) {
	var missing []string
	if strings.TrimSpace(date) == "" {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(repairOrderID) == "" {
		missing = append(missing, "repairOrderId")
	}
	if len(missing) > 0 {
		return nil, requiredError(missing...)
	}
	when, err := parseTime("date", date)
	if err != nil {
		return nil, err
	}
	orderID, err := parseID("repairOrderId", repairOrderID)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetRepairOrderForUpdate(ctx, orderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRepairOrderNotFound
		}
		return nil, fmt.Errorf("get repair order: %w", err)
	}

	exists, err := store.AppointmentExistsForRepairOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("check appointment: %w", err)
	}
	if exists {
		return nil, ErrAppointmentExists
	}

	appt, err := store.CreateAppointment(ctx, database.CreateAppointmentParams{
		Date:          when,
		RepairOrderID: orderID,
	})
	if err != nil {
		if isUniqueViolation(err, constraintAppointmentOrder) {
			return nil, ErrAppointmentExists
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &appt, nil
}

// Reschedule moves an appointment to a new date.
func (s *AppointmentService) Reschedule(ctx context.Context, id uuid.UUID, date string) (*database.Appointment, error) {
	if strings.TrimSpace(date) == "" {
		return nil, requiredError("date")
	}
	when, err := parseTime("date", date)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	appt, err := store.UpdateAppointmentDate(ctx, database.UpdateAppointmentDateParams{ID: id, Date: when})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &appt, nil
}

// Cancel deletes an appointment.
func (s *AppointmentService) Cancel(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	n, err := s.newStore(tx).DeleteAppointment(ctx, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if n == 0 {
		return ErrAppointmentNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
