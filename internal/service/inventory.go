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

const constraintPartNumber = "inventory_items_part_number_key"

// InventoryStore defines the DB methods needed to maintain inventory items.
// Satisfied by *database.Queries (and its WithTx variant).
type InventoryStore interface {
	LockInventoryItems(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	CreateInventoryItem(ctx context.Context, arg database.CreateInventoryItemParams) (database.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, arg database.UpdateInventoryItemParams) (database.InventoryItem, error)
	DeleteInventoryItem(ctx context.Context, id uuid.UUID) error
	CountPartUsageByInventoryItem(ctx context.Context, inventoryItemID uuid.UUID) (int64, error)
}

// NewInventoryStore creates an InventoryStore from a DBTX (pool or tx).
type NewInventoryStore func(db database.DBTX) InventoryStore

// InventoryItemRequest is the full set of fields for creating or overwriting
// an inventory item. Quantity is a pointer so an explicit 0 is distinguishable
// from a missing value.
type InventoryItemRequest struct {
	Name        string
	Description string
	PartNumber  string
	Price       string
	Quantity    *int32
	LocationID  string
}

// InventoryService maintains the inventory catalog. Stock movements caused by
// repair orders go through RepairOrderService.
type InventoryService struct {
	pool     TxBeginner
	newStore NewInventoryStore
}

// NewInventoryService creates a new InventoryService.
func NewInventoryService(pool TxBeginner, newStore NewInventoryStore) *InventoryService {
	return &InventoryService{pool: pool, newStore: newStore}
}

func validateItem(req InventoryItemRequest) (database.CreateInventoryItemParams, error) {
	var missing []string
	if strings.TrimSpace(req.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(req.PartNumber) == "" {
		missing = append(missing, "partNumber")
	}
	if strings.TrimSpace(req.Price) == "" {
		missing = append(missing, "price")
	}
	if req.Quantity == nil {
		missing = append(missing, "quantity")
	}
	if strings.TrimSpace(req.LocationID) == "" {
		missing = append(missing, "locationId")
	}
	if len(missing) > 0 {
		return database.CreateInventoryItemParams{}, requiredError(missing...)
	}

	price, err := parseMoney("price", req.Price)
	if err != nil {
		return database.CreateInventoryItemParams{}, err
	}
	if *req.Quantity < 0 {
		return database.CreateInventoryItemParams{}, validationError("quantity must be >= 0")
	}
	locationID, err := parseID("locationId", req.LocationID)
	if err != nil {
		return database.CreateInventoryItemParams{}, err
	}

	return database.CreateInventoryItemParams{
		Name:        req.Name,
		Description: req.Description,
		PartNumber:  req.PartNumber,
		Price:       decimalToNumeric(price),
		Quantity:    *req.Quantity,
		LocationID:  locationID,
	}, nil
}

// Create adds an item to the catalog.
func (s *InventoryService) Create(ctx context.Context, req InventoryItemRequest) (*database.InventoryItem, error) {
	v, err := validateItem(req)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	item, err := s.newStore(tx).CreateInventoryItem(ctx, v)
	if err != nil {
		return nil, mapItemWriteError("create inventory item", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &item, nil
}

// Update overwrites every field of an item, quantity included. It is a
// manual correction and does not consult part usage.
func (s *InventoryService) Update(ctx context.Context, id uuid.UUID, req InventoryItemRequest) (*database.InventoryItem, error) {
	v, err := validateItem(req)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	item, err := s.newStore(tx).UpdateInventoryItem(ctx, database.UpdateInventoryItemParams{
		ID:          id,
		Name:        v.Name,
		Description: v.Description,
		PartNumber:  v.PartNumber,
		Price:       v.Price,
		Quantity:    v.Quantity,
		LocationID:  v.LocationID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInventoryItemNotFound
		}
		return nil, mapItemWriteError("update inventory item", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &item, nil
}

// Delete removes an item that no repair order references.
func (s *InventoryService) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	locked, err := store.LockInventoryItems(ctx, []uuid.UUID{id})
	if err != nil {
		return fmt.Errorf("lock inventory item: %w", err)
	}
	if len(locked) == 0 {
		return ErrInventoryItemNotFound
	}

	uses, err := store.CountPartUsageByInventoryItem(ctx, id)
	if err != nil {
		return fmt.Errorf("count part usage: %w", err)
	}
	if uses > 0 {
		return ErrInventoryItemInUse
	}

	if err := store.DeleteInventoryItem(ctx, id); err != nil {
		return fmt.Errorf("delete inventory item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func mapItemWriteError(op string, err error) error {
	switch {
	case isUniqueViolation(err, constraintPartNumber):
		return ErrPartNumberExists
	case isForeignKeyViolation(err):
		return validationError("locationId does not exist")
	}
	return fmt.Errorf("%s: %w", op, err)
}
