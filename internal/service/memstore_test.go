package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/garageos/api/internal/database"
)

// --- Mock transaction plumbing ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	db        *memDB
	snapshot  memState
	committed bool
	commitErr error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}
func (m *mockTx) Rollback(ctx context.Context) error {
	if !m.committed {
		m.db.restore(m.snapshot)
	}
	return nil
}
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner. Each Begin snapshots the in-memory
// state; rolling back without a commit restores it.
type mockTxBeginner struct {
	db        *memDB
	beginErr  error
	commitErr error
	begun     int
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	m.begun++
	return &mockTx{db: m.db, snapshot: m.db.snapshot(), commitErr: m.commitErr}, nil
}

// --- In-memory store ---

type memState struct {
	orders       map[uuid.UUID]database.RepairOrder
	items        map[uuid.UUID]database.InventoryItem
	appointments map[uuid.UUID]database.Appointment
	invoices     map[uuid.UUID]database.Invoice
	services     []database.Service
	parts        []database.PartUsage
	notes        []database.ServiceNote
	payments     []database.Payment
	orderSeq     int64
	invoiceSeq   int64
}

func (s memState) clone() memState {
	c := memState{
		orders:       make(map[uuid.UUID]database.RepairOrder, len(s.orders)),
		items:        make(map[uuid.UUID]database.InventoryItem, len(s.items)),
		appointments: make(map[uuid.UUID]database.Appointment, len(s.appointments)),
		invoices:     make(map[uuid.UUID]database.Invoice, len(s.invoices)),
		services:     append([]database.Service(nil), s.services...),
		parts:        append([]database.PartUsage(nil), s.parts...),
		notes:        append([]database.ServiceNote(nil), s.notes...),
		payments:     append([]database.Payment(nil), s.payments...),
		orderSeq:     s.orderSeq,
		invoiceSeq:   s.invoiceSeq,
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.appointments {
		c.appointments[k] = v
	}
	for k, v := range s.invoices {
		c.invoices[k] = v
	}
	return c
}

// memDB satisfies every store interface in this package.
type memDB struct {
	state memState
	now   time.Time
	// fail makes the named method return the given error.
	fail map[string]error
	// lockOrder records every id list passed to LockInventoryItems.
	lockOrder [][]uuid.UUID
}

func newMemDB() *memDB {
	return &memDB{
		state: memState{}.clone(),
		now:   time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		fail:  map[string]error{},
	}
}

func (m *memDB) snapshot() memState {
	return m.state.clone()
}

// restore rolls the tables back. Sequences are not transactional and keep
// their current values.
func (m *memDB) restore(s memState) {
	s.orderSeq = m.state.orderSeq
	s.invoiceSeq = m.state.invoiceSeq
	m.state = s
}

func (m *memDB) check(method string) error {
	return m.fail[method]
}

func (m *memDB) addItem(partNumber string, qty int32, price string) database.InventoryItem {
	item := database.InventoryItem{
		ID:         uuid.New(),
		Name:       "Part " + partNumber,
		PartNumber: partNumber,
		Price:      makeNumeric(price),
		Quantity:   qty,
		LocationID: uuid.New(),
		CreatedAt:  m.now,
		UpdatedAt:  m.now,
	}
	m.state.items[item.ID] = item
	return item
}

func (m *memDB) addOrder(status string) database.RepairOrder {
	m.state.orderSeq++
	o := database.RepairOrder{
		ID:          uuid.New(),
		OrderNumber: fmt.Sprintf("RO-%d", orderNumberBase+m.state.orderSeq),
		Status:      status,
		Description: "Brake job",
		CustomerID:  uuid.New(),
		VehicleID:   uuid.New(),
		LocationID:  uuid.New(),
		EmployeeID:  uuid.New(),
		StartDate:   m.now,
		CreatedAt:   m.now,
		UpdatedAt:   m.now,
	}
	m.state.orders[o.ID] = o
	return o
}

func (m *memDB) addPartUsage(orderID, itemID uuid.UUID, qty int32, price string) database.PartUsage {
	pu := database.PartUsage{
		ID:              uuid.New(),
		RepairOrderID:   orderID,
		InventoryItemID: itemID,
		Quantity:        qty,
		Price:           makeNumeric(price),
	}
	m.state.parts = append(m.state.parts, pu)
	return pu
}

func (m *memDB) addInvoice(orderID uuid.UUID, total string) database.Invoice {
	m.state.invoiceSeq++
	inv := database.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: fmt.Sprintf("INV-%d", invoiceNumberBase+m.state.invoiceSeq),
		Amount:        makeNumeric(total),
		Tax:           makeNumeric("0"),
		Total:         makeNumeric(total),
		Status:        "PENDING",
		RepairOrderID: orderID,
		CustomerID:    m.state.orders[orderID].CustomerID,
	}
	m.state.invoices[inv.ID] = inv
	return inv
}

func (m *memDB) qty(itemID uuid.UUID) int32 { return m.state.items[itemID].Quantity }

func (m *memDB) partsFor(orderID uuid.UUID) []database.PartUsage {
	var out []database.PartUsage
	for _, pu := range m.state.parts {
		if pu.RepairOrderID == orderID {
			out = append(out, pu)
		}
	}
	return out
}

func (m *memDB) servicesFor(orderID uuid.UUID) []database.Service {
	var out []database.Service
	for _, s := range m.state.services {
		if s.RepairOrderID == orderID {
			out = append(out, s)
		}
	}
	return out
}

func (m *memDB) invoiceFor(orderID uuid.UUID) (database.Invoice, bool) {
	for _, inv := range m.state.invoices {
		if inv.RepairOrderID == orderID {
			return inv, true
		}
	}
	return database.Invoice{}, false
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

// --- Repair orders ---

func (m *memDB) NextRepairOrderNumber(ctx context.Context) (int64, error) {
	if err := m.check("NextRepairOrderNumber"); err != nil {
		return 0, err
	}
	m.state.orderSeq++
	return m.state.orderSeq, nil
}

func (m *memDB) CreateRepairOrder(ctx context.Context, arg database.CreateRepairOrderParams) (database.RepairOrder, error) {
	if err := m.check("CreateRepairOrder"); err != nil {
		return database.RepairOrder{}, err
	}
	for _, o := range m.state.orders {
		if o.OrderNumber == arg.OrderNumber {
			return database.RepairOrder{}, uniqueViolation(constraintOrderNumber)
		}
	}
	o := database.RepairOrder{
		ID:          uuid.New(),
		OrderNumber: arg.OrderNumber,
		Status:      arg.Status,
		Description: arg.Description,
		CustomerID:  arg.CustomerID,
		VehicleID:   arg.VehicleID,
		LocationID:  arg.LocationID,
		EmployeeID:  arg.EmployeeID,
		StartDate:   arg.StartDate,
		CreatedAt:   m.now,
		UpdatedAt:   m.now,
	}
	m.state.orders[o.ID] = o
	return o, nil
}

func (m *memDB) GetRepairOrder(ctx context.Context, id uuid.UUID) (database.RepairOrder, error) {
	o, ok := m.state.orders[id]
	if !ok {
		return database.RepairOrder{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *memDB) GetRepairOrderForUpdate(ctx context.Context, id uuid.UUID) (database.RepairOrder, error) {
	if err := m.check("GetRepairOrderForUpdate"); err != nil {
		return database.RepairOrder{}, err
	}
	return m.GetRepairOrder(ctx, id)
}

func (m *memDB) UpdateRepairOrder(ctx context.Context, arg database.UpdateRepairOrderParams) (database.RepairOrder, error) {
	o, ok := m.state.orders[arg.ID]
	if !ok {
		return database.RepairOrder{}, pgx.ErrNoRows
	}
	if arg.Description.Valid {
		o.Description = arg.Description.String
	}
	if arg.Status.Valid {
		o.Status = arg.Status.String
	}
	if arg.EmployeeID.Valid {
		o.EmployeeID = arg.EmployeeID.Bytes
	}
	if arg.StartDate.Valid {
		o.StartDate = arg.StartDate.Time
	}
	if arg.EndDate.Valid {
		o.EndDate = arg.EndDate
	}
	m.state.orders[o.ID] = o
	return o, nil
}

func (m *memDB) DeleteRepairOrder(ctx context.Context, id uuid.UUID) error {
	if err := m.check("DeleteRepairOrder"); err != nil {
		return err
	}
	delete(m.state.orders, id)
	return nil
}

// --- Services and notes ---

func (m *memDB) CreateService(ctx context.Context, arg database.CreateServiceParams) (database.Service, error) {
	if err := m.check("CreateService"); err != nil {
		return database.Service{}, err
	}
	s := database.Service{
		ID:            uuid.New(),
		RepairOrderID: arg.RepairOrderID,
		Name:          arg.Name,
		Description:   arg.Description,
		Price:         arg.Price,
		CreatedAt:     m.now,
	}
	m.state.services = append(m.state.services, s)
	return s, nil
}

func (m *memDB) DeleteServicesByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) error {
	kept := m.state.services[:0:0]
	for _, s := range m.state.services {
		if s.RepairOrderID != repairOrderID {
			kept = append(kept, s)
		}
	}
	m.state.services = kept
	return nil
}

func (m *memDB) SumServicePrices(ctx context.Context, repairOrderID uuid.UUID) (pgtype.Numeric, error) {
	sum := decimal.Zero
	for _, s := range m.servicesFor(repairOrderID) {
		sum = sum.Add(NumericToDecimal(s.Price))
	}
	return decimalToNumeric(sum), nil
}

func (m *memDB) CreateServiceNote(ctx context.Context, arg database.CreateServiceNoteParams) (database.ServiceNote, error) {
	n := database.ServiceNote{ID: uuid.New(), RepairOrderID: arg.RepairOrderID, Note: arg.Note, CreatedAt: m.now}
	m.state.notes = append(m.state.notes, n)
	return n, nil
}

func (m *memDB) DeleteServiceNotesByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) error {
	kept := m.state.notes[:0:0]
	for _, n := range m.state.notes {
		if n.RepairOrderID != repairOrderID {
			kept = append(kept, n)
		}
	}
	m.state.notes = kept
	return nil
}

// --- Part usage ---

func (m *memDB) CreatePartUsage(ctx context.Context, arg database.CreatePartUsageParams) (database.PartUsage, error) {
	if err := m.check("CreatePartUsage"); err != nil {
		return database.PartUsage{}, err
	}
	pu := database.PartUsage{
		ID:              uuid.New(),
		RepairOrderID:   arg.RepairOrderID,
		InventoryItemID: arg.InventoryItemID,
		Quantity:        arg.Quantity,
		Price:           arg.Price,
		CreatedAt:       m.now,
		UpdatedAt:       m.now,
	}
	m.state.parts = append(m.state.parts, pu)
	return pu, nil
}

func (m *memDB) ListPartUsageByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) ([]database.PartUsage, error) {
	return m.partsFor(repairOrderID), nil
}

func (m *memDB) UpdatePartUsage(ctx context.Context, arg database.UpdatePartUsageParams) (database.PartUsage, error) {
	for i, pu := range m.state.parts {
		if pu.ID == arg.ID {
			pu.Quantity = arg.Quantity
			pu.Price = arg.Price
			m.state.parts[i] = pu
			return pu, nil
		}
	}
	return database.PartUsage{}, pgx.ErrNoRows
}

func (m *memDB) DeletePartUsage(ctx context.Context, id uuid.UUID) error {
	kept := m.state.parts[:0:0]
	for _, pu := range m.state.parts {
		if pu.ID != id {
			kept = append(kept, pu)
		}
	}
	m.state.parts = kept
	return nil
}

func (m *memDB) DeletePartUsageByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) error {
	kept := m.state.parts[:0:0]
	for _, pu := range m.state.parts {
		if pu.RepairOrderID != repairOrderID {
			kept = append(kept, pu)
		}
	}
	m.state.parts = kept
	return nil
}

func (m *memDB) SumPartUsageTotals(ctx context.Context, repairOrderID uuid.UUID) (pgtype.Numeric, error) {
	sum := decimal.Zero
	for _, pu := range m.partsFor(repairOrderID) {
		sum = sum.Add(NumericToDecimal(pu.Price).Mul(decimal.NewFromInt32(pu.Quantity)))
	}
	return decimalToNumeric(sum), nil
}

func (m *memDB) CountPartUsageByInventoryItem(ctx context.Context, inventoryItemID uuid.UUID) (int64, error) {
	var n int64
	for _, pu := range m.state.parts {
		if pu.InventoryItemID == inventoryItemID {
			n++
		}
	}
	return n, nil
}

// --- Inventory ---

func (m *memDB) LockInventoryItems(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	m.lockOrder = append(m.lockOrder, append([]uuid.UUID(nil), ids...))
	var locked []uuid.UUID
	for _, id := range ids {
		if _, ok := m.state.items[id]; ok {
			locked = append(locked, id)
		}
	}
	sort.Slice(locked, func(i, j int) bool { return bytes.Compare(locked[i][:], locked[j][:]) < 0 })
	return locked, nil
}

func (m *memDB) AdjustInventoryQuantity(ctx context.Context, arg database.AdjustInventoryQuantityParams) (database.InventoryItem, error) {
	if err := m.check("AdjustInventoryQuantity"); err != nil {
		return database.InventoryItem{}, err
	}
	item, ok := m.state.items[arg.ID]
	if !ok {
		return database.InventoryItem{}, pgx.ErrNoRows
	}
	item.Quantity += arg.Delta
	m.state.items[arg.ID] = item
	return item, nil
}

func (m *memDB) CreateInventoryItem(ctx context.Context, arg database.CreateInventoryItemParams) (database.InventoryItem, error) {
	for _, it := range m.state.items {
		if it.PartNumber == arg.PartNumber {
			return database.InventoryItem{}, uniqueViolation(constraintPartNumber)
		}
	}
	item := database.InventoryItem{
		ID:          uuid.New(),
		Name:        arg.Name,
		Description: arg.Description,
		PartNumber:  arg.PartNumber,
		Price:       arg.Price,
		Quantity:    arg.Quantity,
		LocationID:  arg.LocationID,
		CreatedAt:   m.now,
		UpdatedAt:   m.now,
	}
	m.state.items[item.ID] = item
	return item, nil
}

func (m *memDB) UpdateInventoryItem(ctx context.Context, arg database.UpdateInventoryItemParams) (database.InventoryItem, error) {
	item, ok := m.state.items[arg.ID]
	if !ok {
		return database.InventoryItem{}, pgx.ErrNoRows
	}
	for _, it := range m.state.items {
		if it.ID != arg.ID && it.PartNumber == arg.PartNumber {
			return database.InventoryItem{}, uniqueViolation(constraintPartNumber)
		}
	}
	item.Name = arg.Name
	item.Description = arg.Description
	item.PartNumber = arg.PartNumber
	item.Price = arg.Price
	item.Quantity = arg.Quantity
	item.LocationID = arg.LocationID
	m.state.items[item.ID] = item
	return item, nil
}

func (m *memDB) DeleteInventoryItem(ctx context.Context, id uuid.UUID) error {
	delete(m.state.items, id)
	return nil
}

// --- Appointments ---

func (m *memDB) CreateAppointment(ctx context.Context, arg database.CreateAppointmentParams) (database.Appointment, error) {
	if err := m.check("CreateAppointment"); err != nil {
		return database.Appointment{}, err
	}
	for _, a := range m.state.appointments {
		if a.RepairOrderID == arg.RepairOrderID {
			return database.Appointment{}, uniqueViolation(constraintAppointmentOrder)
		}
	}
	a := database.Appointment{ID: uuid.New(), Date: arg.Date, RepairOrderID: arg.RepairOrderID, CreatedAt: m.now, UpdatedAt: m.now}
	m.state.appointments[a.ID] = a
	return a, nil
}

func (m *memDB) AppointmentExistsForRepairOrder(ctx context.Context, repairOrderID uuid.UUID) (bool, error) {
	for _, a := range m.state.appointments {
		if a.RepairOrderID == repairOrderID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memDB) GetAppointment(ctx context.Context, id uuid.UUID) (database.Appointment, error) {
	a, ok := m.state.appointments[id]
	if !ok {
		return database.Appointment{}, pgx.ErrNoRows
	}
	return a, nil
}

func (m *memDB) UpdateAppointmentDate(ctx context.Context, arg database.UpdateAppointmentDateParams) (database.Appointment, error) {
	a, ok := m.state.appointments[arg.ID]
	if !ok {
		return database.Appointment{}, pgx.ErrNoRows
	}
	a.Date = arg.Date
	m.state.appointments[a.ID] = a
	return a, nil
}

func (m *memDB) DeleteAppointment(ctx context.Context, id uuid.UUID) (int64, error) {
	if _, ok := m.state.appointments[id]; !ok {
		return 0, nil
	}
	delete(m.state.appointments, id)
	return 1, nil
}

func (m *memDB) DeleteAppointmentsByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) error {
	for id, a := range m.state.appointments {
		if a.RepairOrderID == repairOrderID {
			delete(m.state.appointments, id)
		}
	}
	return nil
}

// --- Invoices and payments ---

func (m *memDB) NextInvoiceNumber(ctx context.Context) (int64, error) {
	m.state.invoiceSeq++
	return m.state.invoiceSeq, nil
}

func (m *memDB) CreateInvoice(ctx context.Context, arg database.CreateInvoiceParams) (database.Invoice, error) {
	if err := m.check("CreateInvoice"); err != nil {
		return database.Invoice{}, err
	}
	for _, inv := range m.state.invoices {
		if inv.InvoiceNumber == arg.InvoiceNumber {
			return database.Invoice{}, uniqueViolation(constraintInvoiceNumber)
		}
	}
	inv := database.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: arg.InvoiceNumber,
		Amount:        arg.Amount,
		Tax:           arg.Tax,
		Total:         arg.Total,
		Status:        arg.Status,
		RepairOrderID: arg.RepairOrderID,
		CustomerID:    arg.CustomerID,
		CreatedAt:     m.now,
		UpdatedAt:     m.now,
	}
	m.state.invoices[inv.ID] = inv
	return inv, nil
}

func (m *memDB) GetInvoiceForUpdate(ctx context.Context, id uuid.UUID) (database.Invoice, error) {
	inv, ok := m.state.invoices[id]
	if !ok {
		return database.Invoice{}, pgx.ErrNoRows
	}
	return inv, nil
}

func (m *memDB) UpdateInvoiceStatus(ctx context.Context, arg database.UpdateInvoiceStatusParams) (database.Invoice, error) {
	if err := m.check("UpdateInvoiceStatus"); err != nil {
		return database.Invoice{}, err
	}
	inv, ok := m.state.invoices[arg.ID]
	if !ok {
		return database.Invoice{}, pgx.ErrNoRows
	}
	if arg.Status.Valid {
		inv.Status = arg.Status.String
	}
	m.state.invoices[inv.ID] = inv
	return inv, nil
}

func (m *memDB) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	delete(m.state.invoices, id)
	return nil
}

func (m *memDB) DeleteInvoicesByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) error {
	for id, inv := range m.state.invoices {
		if inv.RepairOrderID == repairOrderID {
			delete(m.state.invoices, id)
		}
	}
	return nil
}

func (m *memDB) CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	p := database.Payment{
		ID:        uuid.New(),
		Amount:    arg.Amount,
		Method:    arg.Method,
		Reference: arg.Reference,
		InvoiceID: arg.InvoiceID,
		CreatedAt: m.now,
	}
	m.state.payments = append(m.state.payments, p)
	return p, nil
}

func (m *memDB) SumPaymentsByInvoice(ctx context.Context, invoiceID uuid.UUID) (pgtype.Numeric, error) {
	sum := decimal.Zero
	for _, p := range m.state.payments {
		if p.InvoiceID == invoiceID {
			sum = sum.Add(NumericToDecimal(p.Amount))
		}
	}
	return decimalToNumeric(sum), nil
}

func (m *memDB) DeletePaymentsByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	var n int64
	kept := m.state.payments[:0:0]
	for _, p := range m.state.payments {
		if p.InvoiceID == invoiceID {
			n++
			continue
		}
		kept = append(kept, p)
	}
	m.state.payments = kept
	return n, nil
}

func (m *memDB) DeletePaymentsByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) (int64, error) {
	var n int64
	for _, inv := range m.state.invoices {
		if inv.RepairOrderID == repairOrderID {
			removed, _ := m.DeletePaymentsByInvoice(ctx, inv.ID)
			n += removed
		}
	}
	return n, nil
}

// --- Publisher and clock ---

type publishedEvent struct {
	locationID uuid.UUID
	eventType  string
	payload    any
}

type recordingPublisher struct {
	events []publishedEvent
}

func (p *recordingPublisher) Publish(locationID uuid.UUID, eventType string, payload any) {
	p.events = append(p.events, publishedEvent{locationID: locationID, eventType: eventType, payload: payload})
}

func (p *recordingPublisher) types() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.eventType)
	}
	return out
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// --- Helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	return NumericToDecimal(n).Equal(decimal.RequireFromString(expected))
}
