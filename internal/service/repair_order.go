package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/garageos/api/internal/database"
	"github.com/garageos/api/internal/enum"
	"github.com/garageos/api/internal/metrics"
)

// TaxRate is the flat tax applied to invoices.
var TaxRate = decimal.RequireFromString("0.08")

// Document number offsets: the first order is RO-100001, the first invoice INV-10001.
const (
	orderNumberBase   = 100000
	invoiceNumberBase = 10000
)

// RepairOrderStore defines the DB methods needed by the repair order lifecycle.
// Satisfied by *database.Queries (and its WithTx variant).
type RepairOrderStore interface {
	NextRepairOrderNumber(ctx context.Context) (int64, error)
	CreateRepairOrder(ctx context.Context, arg database.CreateRepairOrderParams) (database.RepairOrder, error)
	GetRepairOrderForUpdate(ctx context.Context, id uuid.UUID) (database.RepairOrder, error)
	UpdateRepairOrder(ctx context.Context, arg database.UpdateRepairOrderParams) (database.RepairOrder, error)
	DeleteRepairOrder(ctx context.Context, id uuid.UUID) error

	CreateService(ctx context.Context, arg database.CreateServiceParams) (database.Service, error)
	DeleteServicesByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) error
	SumServicePrices(ctx context.Context, repairOrderID uuid.UUID) (pgtype.Numeric, error)

	CreatePartUsage(ctx context.Context, arg database.CreatePartUsageParams) (database.PartUsage, error)
	ListPartUsageByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) ([]database.PartUsage, error)
	UpdatePartUsage(ctx context.Context, arg database.UpdatePartUsageParams) (database.PartUsage, error)
	DeletePartUsage(ctx context.Context, id uuid.UUID) error
	DeletePartUsageByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) error
	SumPartUsageTotals(ctx context.Context, repairOrderID uuid.UUID) (pgtype.Numeric, error)

	LockInventoryItems(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	AdjustInventoryQuantity(ctx context.Context, arg database.AdjustInventoryQuantityParams) (database.InventoryItem, error)

	CreateServiceNote(ctx context.Context, arg database.CreateServiceNoteParams) (database.ServiceNote, error)
	DeleteServiceNotesByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) error

	CreateAppointment(ctx context.Context, arg database.CreateAppointmentParams) (database.Appointment, error)
	DeleteAppointmentsByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) error

	NextInvoiceNumber(ctx context.Context) (int64, error)
	CreateInvoice(ctx context.Context, arg database.CreateInvoiceParams) (database.Invoice, error)
	DeletePaymentsByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) (int64, error)
	DeleteInvoicesByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) error
}

// NewRepairOrderStore creates a RepairOrderStore from a DBTX (pool or tx).
type NewRepairOrderStore func(db database.DBTX) RepairOrderStore

// ServiceLineRequest is a labor line on a repair order.
type ServiceLineRequest struct {
	Name        string
	Description string
	Price       string
}

// PartLineRequest is a part consumed by a repair order. Price is optional;
// when empty the inventory item's current price is recorded.
type PartLineRequest struct {
	InventoryItemID string
	Quantity        int32
	Price           string
}

// CreateRepairOrderRequest is the input for opening a repair order.
type CreateRepairOrderRequest struct {
	CustomerID  string
	VehicleID   string
	Description string
	LocationID  string
	EmployeeID  string
	StartDate   string // RFC3339 or YYYY-MM-DD; empty means now
	Status      string // empty means PENDING
	Services    []ServiceLineRequest
	Parts       []PartLineRequest
}

// CreateRepairOrderResult is the created order with the lines written for it.
type CreateRepairOrderResult struct {
	Order       database.RepairOrder
	Services    []database.Service
	Parts       []database.PartUsage
	Appointment *database.Appointment
}

// UpdateRepairOrderRequest carries a partial update. Nil fields keep their
// stored value; empty Services/Parts leave those collections untouched.
type UpdateRepairOrderRequest struct {
	ID          uuid.UUID
	Description *string
	Status      *string
	EmployeeID  *string
	StartDate   *string
	EndDate     *string
	Services    []ServiceLineRequest
	Parts       []PartLineRequest
	Notes       []string
}

// UpdateRepairOrderResult is the updated order and, when the update completed
// the order, its new invoice.
type UpdateRepairOrderResult struct {
	Order   database.RepairOrder
	Invoice *database.Invoice
}

// RepairOrderEvent is the websocket payload for repair order lifecycle events.
type RepairOrderEvent struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber string    `json:"orderNumber"`
	Status      string    `json:"status"`
}

// InvoiceEvent is the websocket payload for invoice events.
type InvoiceEvent struct {
	ID            uuid.UUID `json:"id"`
	InvoiceNumber string    `json:"invoiceNumber"`
	RepairOrderID uuid.UUID `json:"repairOrderId"`
	Status        string    `json:"status"`
	Total         string    `json:"total"`
}

// RepairOrderService owns the repair order aggregate: the order with its
// services, part usage, notes, appointment and invoice. Every operation runs
// in one transaction.
type RepairOrderService struct {
	pool      TxBeginner
	newStore  NewRepairOrderStore
	clock     Clock
	publisher Publisher
}

// NewRepairOrderService creates a new RepairOrderService. A nil clock means
// the system clock; a nil publisher drops events.
func NewRepairOrderService(pool TxBeginner, newStore NewRepairOrderStore, clock Clock, publisher Publisher) *RepairOrderService {
	if clock == nil {
		clock = SystemClock{}
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &RepairOrderService{pool: pool, newStore: newStore, clock: clock, publisher: publisher}
}

// serviceLine is a validated labor line.
type serviceLine struct {
	name        string
	description string
	price       decimal.Decimal
}

type validatedCreate struct {
	customerID  uuid.UUID
	vehicleID   uuid.UUID
	locationID  uuid.UUID
	employeeID  uuid.UUID
	description string
	status      string
	startDate   time.Time
	services    []serviceLine
	parts       []partLine
}

// Create opens a repair order. Parts are taken from stock unconditionally
// (quantity may go negative) and an appointment is booked when the start date
// lies in the future.
func (s *RepairOrderService) Create(ctx context.Context, req CreateRepairOrderRequest) (*CreateRepairOrderResult, error) {
	v, err := s.validateCreate(req)
	if err != nil {
		return nil, err
	}

	result, err := withNumberRetry(func() (*CreateRepairOrderResult, error) {
		return s.createTx(ctx, v)
	})
	if err != nil {
		return nil, err
	}

	metrics.RepairOrdersCreated.Inc()
	s.publisher.Publish(result.Order.LocationID, enum.EventRepairOrderCreated, orderEvent(result.Order))
	return result, nil
}

func (s *RepairOrderService) validateCreate(req CreateRepairOrderRequest) (validatedCreate, error) {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"customerId", req.CustomerID},
		{"vehicleId", req.VehicleID},
		{"description", req.Description},
		{"locationId", req.LocationID},
		{"employeeId", req.EmployeeID},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return validatedCreate{}, requiredError(missing...)
	}

	v := validatedCreate{description: req.Description, status: enum.RepairOrderStatusPending}
	var err error
	if v.customerID, err = parseID("customerId", req.CustomerID); err != nil {
		return v, err
	}
	if v.vehicleID, err = parseID("vehicleId", req.VehicleID); err != nil {
		return v, err
	}
	if v.locationID, err = parseID("locationId", req.LocationID); err != nil {
		return v, err
	}
	if v.employeeID, err = parseID("employeeId", req.EmployeeID); err != nil {
		return v, err
	}
	if req.Status != "" {
		if !isValidRepairOrderStatus(req.Status) {
			return v, ErrInvalidStatus
		}
		v.status = req.Status
	}

	v.startDate = s.clock.Now()
	if req.StartDate != "" {
		if v.startDate, err = parseTime("startDate", req.StartDate); err != nil {
			return v, err
		}
	}

	if v.services, err = validateServices(req.Services); err != nil {
		return v, err
	}
	if v.parts, err = validateParts(req.Parts); err != nil {
		return v, err
	}
	return v, nil
}

// createTx executes the full order creation in a single transaction.
func (s *RepairOrderService) createTx(ctx context.Context, v validatedCreate) (*CreateRepairOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	n, err := store.NextRepairOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("next order number: %w", err)
	}

	order, err := store.CreateRepairOrder(ctx, database.CreateRepairOrderParams{
		OrderNumber: fmt.Sprintf("RO-%d", orderNumberBase+n),
		Status:      v.status,
		Description: v.description,
		CustomerID:  v.customerID,
		VehicleID:   v.vehicleID,
		LocationID:  v.locationID,
		EmployeeID:  v.employeeID,
		StartDate:   v.startDate,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, validationError("customerId, vehicleId, locationId or employeeId does not exist")
		}
		return nil, fmt.Errorf("create repair order: %w", err)
	}

	result := &CreateRepairOrderResult{
		Order: order,
		Parts: make([]database.PartUsage, 0, len(v.parts)),
	}

	if result.Services, err = insertServices(ctx, store, order.ID, v.services); err != nil {
		return nil, err
	}

	if len(v.parts) > 0 {
		ids := make([]uuid.UUID, 0, len(v.parts))
		for _, p := range v.parts {
			ids = append(ids, p.itemID)
		}
		if err := lockItems(ctx, store, ids); err != nil {
			return nil, err
		}
	}
	for i, p := range v.parts {
		item, err := store.AdjustInventoryQuantity(ctx, database.AdjustInventoryQuantityParams{
			ID:    p.itemID,
			Delta: -p.quantity,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("parts[%d]: %w", i, ErrInventoryItemNotFound)
			}
			return nil, fmt.Errorf("parts[%d]: adjust inventory: %w", i, err)
		}
		metrics.InventoryAdjustments.WithLabelValues("consume").Inc()

		price := item.Price
		if p.hasPrice {
			price = decimalToNumeric(p.price)
		}
		pu, err := store.CreatePartUsage(ctx, database.CreatePartUsageParams{
			RepairOrderID:   order.ID,
			InventoryItemID: p.itemID,
			Quantity:        p.quantity,
			Price:           price,
		})
		if err != nil {
			return nil, fmt.Errorf("parts[%d]: create part usage: %w", i, err)
		}
		result.Parts = append(result.Parts, pu)
	}

	if v.startDate.After(s.clock.Now()) {
		appt, err := store.CreateAppointment(ctx, database.CreateAppointmentParams{
			Date:          v.startDate,
			RepairOrderID: order.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("create appointment: %w", err)
		}
		result.Appointment = &appt
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

type validatedUpdate struct {
	params   database.UpdateRepairOrderParams
	status   string
	services []serviceLine
	parts    []partLine
	notes    []string
}

// Update applies a partial update to a repair order. Non-empty Services
// replace the stored set; non-empty Parts are reconciled against stock; Notes
// are appended. Moving the order to COMPLETED generates its invoice.
func (s *RepairOrderService) Update(ctx context.Context, req UpdateRepairOrderRequest) (*UpdateRepairOrderResult, error) {
	v, err := validateUpdate(req)
	if err != nil {
		return nil, err
	}

	result, err := withNumberRetry(func() (*UpdateRepairOrderResult, error) {
		return s.updateTx(ctx, v)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(result.Order.LocationID, enum.EventRepairOrderUpdated, orderEvent(result.Order))
	if result.Invoice != nil {
		metrics.InvoicesGenerated.Inc()
		s.publisher.Publish(result.Order.LocationID, enum.EventInvoiceCreated, invoiceEvent(*result.Invoice))
	}
	return result, nil
}

func validateUpdate(req UpdateRepairOrderRequest) (validatedUpdate, error) {
	v := validatedUpdate{
		params: database.UpdateRepairOrderParams{
			ID:          req.ID,
			Description: textOrNull(req.Description),
		},
	}

	if req.Status != nil {
		if !isValidRepairOrderStatus(*req.Status) {
			return v, ErrInvalidStatus
		}
		v.status = *req.Status
		v.params.Status = pgtype.Text{String: *req.Status, Valid: true}
	}
	if req.EmployeeID != nil {
		id, err := parseID("employeeId", *req.EmployeeID)
		if err != nil {
			return v, err
		}
		v.params.EmployeeID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if req.StartDate != nil {
		t, err := parseTime("startDate", *req.StartDate)
		if err != nil {
			return v, err
		}
		v.params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if req.EndDate != nil {
		t, err := parseTime("endDate", *req.EndDate)
		if err != nil {
			return v, err
		}
		v.params.EndDate = pgtype.Timestamptz{Time: t, Valid: true}
	}

	var err error
	if v.services, err = validateServices(req.Services); err != nil {
		return v, err
	}
	if v.parts, err = validateParts(req.Parts); err != nil {
		return v, err
	}
	for _, n := range req.Notes {
		if strings.TrimSpace(n) != "" {
			v.notes = append(v.notes, n)
		}
	}
	return v, nil
}

func (s *RepairOrderService) updateTx(ctx context.Context, v validatedUpdate) (*UpdateRepairOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Lock the order row so concurrent updates and deletes serialize.
	prior, err := store.GetRepairOrderForUpdate(ctx, v.params.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRepairOrderNotFound
		}
		return nil, fmt.Errorf("get repair order: %w", err)
	}

	order, err := store.UpdateRepairOrder(ctx, v.params)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, validationError("employeeId does not exist")
		}
		return nil, fmt.Errorf("update repair order: %w", err)
	}

	if len(v.services) > 0 {
		if err := store.DeleteServicesByRepairOrder(ctx, order.ID); err != nil {
			return nil, fmt.Errorf("delete services: %w", err)
		}
		if _, err := insertServices(ctx, store, order.ID, v.services); err != nil {
			return nil, err
		}
	}

	if len(v.parts) > 0 {
		if err := reconcileParts(ctx, store, order.ID, v.parts); err != nil {
			return nil, err
		}
	}

	for _, note := range v.notes {
		if _, err := store.CreateServiceNote(ctx, database.CreateServiceNoteParams{
			RepairOrderID: order.ID,
			Note:          note,
		}); err != nil {
			return nil, fmt.Errorf("create service note: %w", err)
		}
	}

	result := &UpdateRepairOrderResult{Order: order}

	if v.status == enum.RepairOrderStatusCompleted && prior.Status != enum.RepairOrderStatusCompleted {
		inv, err := createInvoice(ctx, store, order)
		if err != nil {
			return nil, err
		}
		result.Invoice = &inv
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// reconcileParts brings the order's part usage in line with the requested
// lines, moving the difference in and out of stock. Affected inventory rows
// are locked in id order first. A decrement that would leave an item with
// negative stock fails with ErrInsufficientStock.
func reconcileParts(ctx context.Context, store RepairOrderStore, orderID uuid.UUID, lines []partLine) error {
	existing, err := store.ListPartUsageByRepairOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("list part usage: %w", err)
	}

	plan := planPartReconciliation(existing, lines)
	ids := plan.itemIDs()
	if err := lockItems(ctx, store, ids); err != nil {
		return err
	}

	prices := make(map[uuid.UUID]pgtype.Numeric, len(ids))
	for _, id := range ids {
		delta := plan.deltas[id]
		item, err := store.AdjustInventoryQuantity(ctx, database.AdjustInventoryQuantityParams{ID: id, Delta: delta})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInventoryItemNotFound
			}
			return fmt.Errorf("adjust inventory: %w", err)
		}
		if delta < 0 && item.Quantity < 0 {
			return fmt.Errorf("%w: %s has %d left", ErrInsufficientStock, item.PartNumber, item.Quantity-delta)
		}
		prices[id] = item.Price
		metrics.InventoryAdjustments.WithLabelValues("reconcile").Inc()
	}

	for _, u := range plan.updates {
		if _, err := store.UpdatePartUsage(ctx, database.UpdatePartUsageParams{
			ID:       u.id,
			Quantity: u.quantity,
			Price:    decimalToNumeric(u.price),
		}); err != nil {
			return fmt.Errorf("update part usage: %w", err)
		}
	}
	for _, line := range plan.inserts {
		price := prices[line.itemID]
		if line.hasPrice {
			price = decimalToNumeric(line.price)
		}
		if _, err := store.CreatePartUsage(ctx, database.CreatePartUsageParams{
			RepairOrderID:   orderID,
			InventoryItemID: line.itemID,
			Quantity:        line.quantity,
			Price:           price,
		}); err != nil {
			return fmt.Errorf("create part usage: %w", err)
		}
	}
	for _, id := range plan.deletes {
		if err := store.DeletePartUsage(ctx, id); err != nil {
			return fmt.Errorf("delete part usage: %w", err)
		}
	}
	return nil
}

// createInvoice bills a completed order for the sum of its services and parts
// plus tax.
func createInvoice(ctx context.Context, store RepairOrderStore, order database.RepairOrder) (database.Invoice, error) {
	servicesSum, err := store.SumServicePrices(ctx, order.ID)
	if err != nil {
		return database.Invoice{}, fmt.Errorf("sum services: %w", err)
	}
	partsSum, err := store.SumPartUsageTotals(ctx, order.ID)
	if err != nil {
		return database.Invoice{}, fmt.Errorf("sum parts: %w", err)
	}
	amount, tax, total := InvoiceTotals(NumericToDecimal(servicesSum), NumericToDecimal(partsSum))

	n, err := store.NextInvoiceNumber(ctx)
	if err != nil {
		return database.Invoice{}, fmt.Errorf("next invoice number: %w", err)
	}
	inv, err := store.CreateInvoice(ctx, database.CreateInvoiceParams{
		InvoiceNumber: fmt.Sprintf("INV-%d", invoiceNumberBase+n),
		Amount:        decimalToNumeric(amount),
		Tax:           decimalToNumeric(tax),
		Total:         decimalToNumeric(total),
		Status:        enum.InvoiceStatusPending,
		RepairOrderID: order.ID,
		CustomerID:    order.CustomerID,
	})
	if err != nil {
		return database.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	return inv, nil
}

// InvoiceTotals computes amount, tax and total for an order. Tax is rounded
// to cents.
func InvoiceTotals(servicesSum, partsSum decimal.Decimal) (amount, tax, total decimal.Decimal) {
	amount = servicesSum.Add(partsSum)
	tax = amount.Mul(TaxRate).Round(2)
	total = amount.Add(tax)
	return amount, tax, total
}

// Delete removes a repair order and everything it owns, returning all of its
// parts to stock.
func (s *RepairOrderService) Delete(ctx context.Context, id uuid.UUID) error {
	order, err := s.deleteTx(ctx, id)
	if err != nil {
		return err
	}
	s.publisher.Publish(order.LocationID, enum.EventRepairOrderDeleted, orderEvent(order))
	return nil
}

func (s *RepairOrderService) deleteTx(ctx context.Context, id uuid.UUID) (database.RepairOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.RepairOrder{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetRepairOrderForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.RepairOrder{}, ErrRepairOrderNotFound
		}
		return database.RepairOrder{}, fmt.Errorf("get repair order: %w", err)
	}

	usage, err := store.ListPartUsageByRepairOrder(ctx, id)
	if err != nil {
		return database.RepairOrder{}, fmt.Errorf("list part usage: %w", err)
	}
	restock := make(map[uuid.UUID]int32, len(usage))
	ids := make([]uuid.UUID, 0, len(usage))
	for _, pu := range usage {
		if _, seen := restock[pu.InventoryItemID]; !seen {
			ids = append(ids, pu.InventoryItemID)
		}
		restock[pu.InventoryItemID] += pu.Quantity
	}
	sortIDs(ids)
	if err := lockItems(ctx, store, ids); err != nil {
		return database.RepairOrder{}, err
	}
	for _, itemID := range ids {
		if _, err := store.AdjustInventoryQuantity(ctx, database.AdjustInventoryQuantityParams{
			ID:    itemID,
			Delta: restock[itemID],
		}); err != nil {
			return database.RepairOrder{}, fmt.Errorf("restock %s: %w", itemID, err)
		}
		metrics.InventoryAdjustments.WithLabelValues("restock").Inc()
	}

	if err := store.DeleteServicesByRepairOrder(ctx, id); err != nil {
		return database.RepairOrder{}, fmt.Errorf("delete services: %w", err)
	}
	if err := store.DeletePartUsageByRepairOrder(ctx, id); err != nil {
		return database.RepairOrder{}, fmt.Errorf("delete part usage: %w", err)
	}
	if err := store.DeleteServiceNotesByRepairOrder(ctx, id); err != nil {
		return database.RepairOrder{}, fmt.Errorf("delete service notes: %w", err)
	}
	if err := store.DeleteAppointmentsByRepairOrder(ctx, id); err != nil {
		return database.RepairOrder{}, fmt.Errorf("delete appointments: %w", err)
	}
	removed, err := store.DeletePaymentsByRepairOrder(ctx, id)
	if err != nil {
		return database.RepairOrder{}, fmt.Errorf("delete payments: %w", err)
	}
	if removed > 0 {
		log.WithFields(log.Fields{
			"repair_order": order.OrderNumber,
			"payments":     removed,
		}).Warn("deleting repair order with recorded payments")
	}
	if err := store.DeleteInvoicesByRepairOrder(ctx, id); err != nil {
		return database.RepairOrder{}, fmt.Errorf("delete invoices: %w", err)
	}
	if err := store.DeleteRepairOrder(ctx, id); err != nil {
		return database.RepairOrder{}, fmt.Errorf("delete repair order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.RepairOrder{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

// --- Helpers ---

func insertServices(ctx context.Context, store RepairOrderStore, orderID uuid.UUID, lines []serviceLine) ([]database.Service, error) {
	created := make([]database.Service, 0, len(lines))
	for i, l := range lines {
		svc, err := store.CreateService(ctx, database.CreateServiceParams{
			RepairOrderID: orderID,
			Name:          l.name,
			Description:   l.description,
			Price:         decimalToNumeric(l.price),
		})
		if err != nil {
			return nil, fmt.Errorf("services[%d]: create service: %w", i, err)
		}
		created = append(created, svc)
	}
	return created, nil
}

// lockItems locks the inventory rows in id order and fails when any is missing.
func lockItems(ctx context.Context, store RepairOrderStore, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	sorted := append([]uuid.UUID(nil), ids...)
	sortIDs(sorted)
	locked, err := store.LockInventoryItems(ctx, sorted)
	if err != nil {
		return fmt.Errorf("lock inventory: %w", err)
	}
	if len(locked) != len(sorted) {
		return ErrInventoryItemNotFound
	}
	return nil
}

func validateServices(reqs []ServiceLineRequest) ([]serviceLine, error) {
	lines := make([]serviceLine, 0, len(reqs))
	for i, r := range reqs {
		if strings.TrimSpace(r.Name) == "" {
			return nil, validationError("services[%d]: name is required", i)
		}
		price, err := parseMoney(fmt.Sprintf("services[%d]", i), r.Price)
		if err != nil {
			return nil, err
		}
		lines = append(lines, serviceLine{name: r.Name, description: r.Description, price: price})
	}
	return lines, nil
}

func validateParts(reqs []PartLineRequest) ([]partLine, error) {
	lines := make([]partLine, 0, len(reqs))
	seen := make(map[uuid.UUID]bool, len(reqs))
	for i, r := range reqs {
		field := fmt.Sprintf("parts[%d]", i)
		if strings.TrimSpace(r.InventoryItemID) == "" {
			return nil, validationError("%s: inventoryItemId is required", field)
		}
		id, err := parseID(field+".inventoryItemId", r.InventoryItemID)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, fmt.Errorf("%s: %w", field, ErrDuplicatePart)
		}
		seen[id] = true
		if r.Quantity <= 0 {
			return nil, fmt.Errorf("%s: %w", field, ErrInvalidQuantity)
		}
		line := partLine{itemID: id, quantity: r.Quantity}
		if strings.TrimSpace(r.Price) != "" {
			if line.price, err = parseMoney(field, r.Price); err != nil {
				return nil, err
			}
			line.hasPrice = true
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func isValidRepairOrderStatus(s string) bool {
	switch s {
	case enum.RepairOrderStatusPending, enum.RepairOrderStatusInProgress,
		enum.RepairOrderStatusCompleted, enum.RepairOrderStatusCancelled:
		return true
	}
	return false
}

func orderEvent(o database.RepairOrder) RepairOrderEvent {
	return RepairOrderEvent{ID: o.ID, OrderNumber: o.OrderNumber, Status: o.Status}
}

func invoiceEvent(inv database.Invoice) InvoiceEvent {
	return InvoiceEvent{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		RepairOrderID: inv.RepairOrderID,
		Status:        inv.Status,
		Total:         NumericToDecimal(inv.Total).StringFixed(2),
	}
}
