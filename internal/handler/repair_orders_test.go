package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garageos/api/internal/auth"
	"github.com/garageos/api/internal/database"
	"github.com/garageos/api/internal/enum"
	"github.com/garageos/api/internal/handler"
	"github.com/garageos/api/internal/middleware"
	"github.com/garageos/api/internal/service"
)

// --- Mocks ---

type mockRepairOrderService struct {
	createReq service.CreateRepairOrderRequest
	updateReq service.UpdateRepairOrderRequest
	deletedID uuid.UUID

	createResult *service.CreateRepairOrderResult
	updateResult *service.UpdateRepairOrderResult
	err          error
}

func (m *mockRepairOrderService) Create(_ context.Context, req service.CreateRepairOrderRequest) (*service.CreateRepairOrderResult, error) {
	m.createReq = req
	return m.createResult, m.err
}

func (m *mockRepairOrderService) Update(_ context.Context, req service.UpdateRepairOrderRequest) (*service.UpdateRepairOrderResult, error) {
	m.updateReq = req
	return m.updateResult, m.err
}

func (m *mockRepairOrderService) Delete(_ context.Context, id uuid.UUID) error {
	m.deletedID = id
	return m.err
}

type mockRepairOrderReader struct {
	orders      map[uuid.UUID]database.RepairOrderDetail
	listParams  database.ListRepairOrdersParams
	services    []database.Service
	parts       []database.PartUsage
	notes       []database.ServiceNote
	appointment *database.Appointment
	invoice     *database.Invoice
	err         error
}

func (m *mockRepairOrderReader) GetRepairOrderDetail(_ context.Context, id uuid.UUID) (database.RepairOrderDetail, error) {
	if m.err != nil {
		return database.RepairOrderDetail{}, m.err
	}
	o, ok := m.orders[id]
	if !ok {
		return database.RepairOrderDetail{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockRepairOrderReader) ListRepairOrders(_ context.Context, arg database.ListRepairOrdersParams) ([]database.RepairOrderDetail, error) {
	m.listParams = arg
	if m.err != nil {
		return nil, m.err
	}
	var out []database.RepairOrderDetail
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out, nil
}

func (m *mockRepairOrderReader) ListServicesByRepairOrder(context.Context, uuid.UUID) ([]database.Service, error) {
	return m.services, nil
}

func (m *mockRepairOrderReader) ListPartUsageByRepairOrder(context.Context, uuid.UUID) ([]database.PartUsage, error) {
	return m.parts, nil
}

func (m *mockRepairOrderReader) ListServiceNotesByRepairOrder(context.Context, uuid.UUID) ([]database.ServiceNote, error) {
	return m.notes, nil
}

func (m *mockRepairOrderReader) GetAppointmentByRepairOrder(context.Context, uuid.UUID) (database.Appointment, error) {
	if m.appointment == nil {
		return database.Appointment{}, pgx.ErrNoRows
	}
	return *m.appointment, nil
}

func (m *mockRepairOrderReader) GetInvoiceByRepairOrder(context.Context, uuid.UUID) (database.Invoice, error) {
	if m.invoice == nil {
		return database.Invoice{}, pgx.ErrNoRows
	}
	return *m.invoice, nil
}

// --- Helpers ---

func setupRepairOrderRouter(svc *mockRepairOrderService, store *mockRepairOrderReader, claims *auth.Claims) *chi.Mux {
	h := handler.NewRepairOrderHandler(svc, store)
	r := chi.NewRouter()
	if claims != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(middleware.WithClaims(r.Context(), claims)))
			})
		})
	}
	r.Route("/repair-orders", func(r chi.Router) {
		h.RegisterRoutes(r)
		r.Post("/", h.Create)
	})
	return r
}

func makeRepairOrder() database.RepairOrder {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return database.RepairOrder{
		ID:          uuid.New(),
		OrderNumber: "RO-100001",
		Status:      enum.RepairOrderStatusPending,
		Description: "Oil change",
		CustomerID:  uuid.New(),
		VehicleID:   uuid.New(),
		LocationID:  uuid.New(),
		EmployeeID:  uuid.New(),
		StartDate:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// --- Create ---

func TestCreateRepairOrder_DefaultsFromClaims(t *testing.T) {
	order := makeRepairOrder()
	svc := &mockRepairOrderService{createResult: &service.CreateRepairOrderResult{
		Order: order,
		Parts: []database.PartUsage{{ID: uuid.New(), InventoryItemID: uuid.New(), Quantity: 2, Price: numeric(t, "12.5")}},
	}}
	claims := &auth.Claims{EmployeeID: uuid.New(), LocationID: uuid.New(), Role: enum.EmployeeRoleFrontDesk}
	r := setupRepairOrderRouter(svc, &mockRepairOrderReader{}, claims)

	rr := doRequest(t, r, http.MethodPost, "/repair-orders", map[string]interface{}{
		"customerId":  order.CustomerID.String(),
		"vehicleId":   order.VehicleID.String(),
		"description": "Oil change",
		"services":    []map[string]interface{}{{"name": "Labor", "price": 40}},
		"parts":       []map[string]interface{}{{"inventoryItemId": uuid.NewString(), "quantity": 2}},
	})

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, claims.EmployeeID.String(), svc.createReq.EmployeeID)
	assert.Equal(t, claims.LocationID.String(), svc.createReq.LocationID)
	require.Len(t, svc.createReq.Services, 1)
	assert.Equal(t, "40", svc.createReq.Services[0].Price)
	require.Len(t, svc.createReq.Parts, 1)
	assert.Equal(t, "", svc.createReq.Parts[0].Price, "omitted part price is passed through empty")

	data := decodeData(t, rr)
	assert.Equal(t, "RO-100001", data["orderNumber"])
	parts := data["parts"].([]interface{})
	assert.Equal(t, "12.50", parts[0].(map[string]interface{})["price"])
	assert.Nil(t, data["appointment"])
}

func TestCreateRepairOrder_BodyOverridesClaims(t *testing.T) {
	svc := &mockRepairOrderService{createResult: &service.CreateRepairOrderResult{Order: makeRepairOrder()}}
	claims := &auth.Claims{EmployeeID: uuid.New(), LocationID: uuid.New()}
	r := setupRepairOrderRouter(svc, &mockRepairOrderReader{}, claims)

	employeeID := uuid.NewString()
	rr := doRequest(t, r, http.MethodPost, "/repair-orders", map[string]interface{}{
		"employeeId": employeeID,
	})

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, employeeID, svc.createReq.EmployeeID)
}

func TestCreateRepairOrder_ValidationError(t *testing.T) {
	svc := &mockRepairOrderService{err: service.ErrInvalidStatus}
	r := setupRepairOrderRouter(svc, &mockRepairOrderReader{}, nil)

	rr := doRequest(t, r, http.MethodPost, "/repair-orders", map[string]interface{}{"status": "DONE"})

	assertError(t, rr, http.StatusBadRequest, "invalid status")
}

func TestCreateRepairOrder_InternalErrorIsGeneric(t *testing.T) {
	svc := &mockRepairOrderService{err: errors.New("pq: connection reset")}
	r := setupRepairOrderRouter(svc, &mockRepairOrderReader{}, nil)

	rr := doRequest(t, r, http.MethodPost, "/repair-orders", map[string]interface{}{})

	assertError(t, rr, http.StatusInternalServerError, "failed to create repair order")
}

func TestCreateRepairOrder_InvalidBody(t *testing.T) {
	r := setupRepairOrderRouter(&mockRepairOrderService{}, &mockRepairOrderReader{}, nil)

	rr := doRequest(t, r, http.MethodPost, "/repair-orders", "not an object")

	assertError(t, rr, http.StatusBadRequest, "invalid request body")
}

// --- Get ---

func TestGetRepairOrder_Detail(t *testing.T) {
	order := makeRepairOrder()
	appt := database.Appointment{ID: uuid.New(), Date: order.StartDate, RepairOrderID: order.ID}
	store := &mockRepairOrderReader{
		orders: map[uuid.UUID]database.RepairOrderDetail{
			order.ID: {RepairOrder: order, CustomerFirstName: "Ana", VehicleMake: "Ford"},
		},
		services:    []database.Service{{ID: uuid.New(), Name: "Labor", Price: numeric(t, "80")}},
		notes:       []database.ServiceNote{{ID: uuid.New(), Note: "noisy belt"}},
		appointment: &appt,
	}
	r := setupRepairOrderRouter(&mockRepairOrderService{}, store, nil)

	rr := doRequest(t, r, http.MethodGet, "/repair-orders?id="+order.ID.String(), nil)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	data := decodeData(t, rr)
	assert.Equal(t, "Ana", data["customerFirstName"])
	assert.Equal(t, "80.00", data["services"].([]interface{})[0].(map[string]interface{})["price"])
	assert.Len(t, data["notes"], 1)
	assert.Empty(t, data["parts"])
	assert.NotNil(t, data["appointment"])
	assert.Nil(t, data["invoice"])
}

func TestGetRepairOrder_NotFound(t *testing.T) {
	r := setupRepairOrderRouter(&mockRepairOrderService{}, &mockRepairOrderReader{}, nil)

	rr := doRequest(t, r, http.MethodGet, "/repair-orders?id="+uuid.NewString(), nil)

	assertError(t, rr, http.StatusNotFound, "repair order not found")
}

func TestGetRepairOrder_InvalidID(t *testing.T) {
	r := setupRepairOrderRouter(&mockRepairOrderService{}, &mockRepairOrderReader{}, nil)

	rr := doRequest(t, r, http.MethodGet, "/repair-orders?id=abc", nil)

	assertError(t, rr, http.StatusBadRequest, "invalid id")
}

func TestListRepairOrders_Filters(t *testing.T) {
	order := makeRepairOrder()
	store := &mockRepairOrderReader{orders: map[uuid.UUID]database.RepairOrderDetail{
		order.ID: {RepairOrder: order},
	}}
	r := setupRepairOrderRouter(&mockRepairOrderService{}, store, nil)

	customerID := uuid.New()
	rr := doRequest(t, r, http.MethodGet, "/repair-orders?customerId="+customerID.String()+"&status=PENDING", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeList(t, rr), 1)
	assert.True(t, store.listParams.CustomerID.Valid)
	assert.Equal(t, customerID, uuid.UUID(store.listParams.CustomerID.Bytes))
	assert.False(t, store.listParams.VehicleID.Valid)
	assert.Equal(t, "PENDING", store.listParams.Status.String)
}

func TestListRepairOrders_EmptyIsArray(t *testing.T) {
	r := setupRepairOrderRouter(&mockRepairOrderService{}, &mockRepairOrderReader{}, nil)

	rr := doRequest(t, r, http.MethodGet, "/repair-orders", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeList(t, rr))
}

func TestListRepairOrders_StoreFailure(t *testing.T) {
	r := setupRepairOrderRouter(&mockRepairOrderService{}, &mockRepairOrderReader{err: errors.New("boom")}, nil)

	rr := doRequest(t, r, http.MethodGet, "/repair-orders", nil)

	assertError(t, rr, http.StatusInternalServerError, "failed to fetch repair orders")
}

// --- Update ---

func TestUpdateRepairOrder_CompletedReturnsInvoice(t *testing.T) {
	order := makeRepairOrder()
	order.Status = enum.RepairOrderStatusCompleted
	inv := database.Invoice{
		ID: uuid.New(), InvoiceNumber: "INV-10001", Status: enum.InvoiceStatusPending,
		Amount: numeric(t, "100"), Tax: numeric(t, "8"), Total: numeric(t, "108"),
	}
	svc := &mockRepairOrderService{updateResult: &service.UpdateRepairOrderResult{Order: order, Invoice: &inv}}
	r := setupRepairOrderRouter(svc, &mockRepairOrderReader{}, nil)

	rr := doRequest(t, r, http.MethodPut, "/repair-orders/"+order.ID.String(), map[string]interface{}{
		"status": "COMPLETED",
		"notes":  []string{"done"},
	})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, order.ID, svc.updateReq.ID)
	require.NotNil(t, svc.updateReq.Status)
	assert.Equal(t, "COMPLETED", *svc.updateReq.Status)
	assert.Nil(t, svc.updateReq.Description)
	assert.Nil(t, svc.updateReq.Parts)
	assert.Equal(t, []string{"done"}, svc.updateReq.Notes)

	data := decodeData(t, rr)
	invoice := data["invoice"].(map[string]interface{})
	assert.Equal(t, "108.00", invoice["total"])
}

func TestUpdateRepairOrder_InsufficientStock(t *testing.T) {
	svc := &mockRepairOrderService{err: service.ErrInsufficientStock}
	r := setupRepairOrderRouter(svc, &mockRepairOrderReader{}, nil)

	rr := doRequest(t, r, http.MethodPut, "/repair-orders/"+uuid.NewString(), map[string]interface{}{
		"parts": []map[string]interface{}{{"inventoryItemId": uuid.NewString(), "quantity": 99}},
	})

	assertError(t, rr, http.StatusBadRequest, "insufficient stock")
}

func TestUpdateRepairOrder_NotFound(t *testing.T) {
	svc := &mockRepairOrderService{err: service.ErrRepairOrderNotFound}
	r := setupRepairOrderRouter(svc, &mockRepairOrderReader{}, nil)

	rr := doRequest(t, r, http.MethodPut, "/repair-orders/"+uuid.NewString(), map[string]interface{}{})

	assertError(t, rr, http.StatusNotFound, "repair order not found")
}

func TestUpdateRepairOrder_InvalidID(t *testing.T) {
	r := setupRepairOrderRouter(&mockRepairOrderService{}, &mockRepairOrderReader{}, nil)

	rr := doRequest(t, r, http.MethodPut, "/repair-orders/nope", map[string]interface{}{})

	assertError(t, rr, http.StatusBadRequest, "invalid repair order ID")
}

// --- Delete ---

func TestDeleteRepairOrder(t *testing.T) {
	svc := &mockRepairOrderService{}
	r := setupRepairOrderRouter(svc, &mockRepairOrderReader{}, nil)
	id := uuid.New()

	rr := doRequest(t, r, http.MethodDelete, "/repair-orders/"+id.String(), nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, id, svc.deletedID)
	resp := decodeResponse(t, rr)
	assert.Equal(t, true, resp["success"])
	assert.NotContains(t, resp, "data")
}

func TestDeleteRepairOrder_InternalError(t *testing.T) {
	svc := &mockRepairOrderService{err: errors.New("deadlock detected")}
	r := setupRepairOrderRouter(svc, &mockRepairOrderReader{}, nil)

	rr := doRequest(t, r, http.MethodDelete, "/repair-orders/"+uuid.NewString(), nil)

	assertError(t, rr, http.StatusInternalServerError, "failed to delete repair order")
}
