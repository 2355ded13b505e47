package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/garageos/api/internal/database"
	"github.com/garageos/api/internal/middleware"
	"github.com/garageos/api/internal/service"
)

// RepairOrderServicer defines the service methods needed by repair order handlers.
// Satisfied by *service.RepairOrderService; narrow interface for testability.
type RepairOrderServicer interface {
	Create(ctx context.Context, req service.CreateRepairOrderRequest) (*service.CreateRepairOrderResult, error)
	Update(ctx context.Context, req service.UpdateRepairOrderRequest) (*service.UpdateRepairOrderResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RepairOrderReader defines the database reads behind GET /repair-orders.
// Satisfied by *database.Queries.
type RepairOrderReader interface {
	GetRepairOrderDetail(ctx context.Context, id uuid.UUID) (database.RepairOrderDetail, error)
	ListRepairOrders(ctx context.Context, arg database.ListRepairOrdersParams) ([]database.RepairOrderDetail, error)
	ListServicesByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) ([]database.Service, error)
	ListPartUsageByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) ([]database.PartUsage, error)
	ListServiceNotesByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) ([]database.ServiceNote, error)
	GetAppointmentByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) (database.Appointment, error)
	GetInvoiceByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) (database.Invoice, error)
}

// RepairOrderHandler handles repair order endpoints.
type RepairOrderHandler struct {
	svc   RepairOrderServicer
	store RepairOrderReader
}

// NewRepairOrderHandler creates a new RepairOrderHandler.
func NewRepairOrderHandler(svc RepairOrderServicer, store RepairOrderReader) *RepairOrderHandler {
	return &RepairOrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers repair order endpoints. Expected to be mounted at /repair-orders.
// POST is registered separately by the router so it can carry the idempotency middleware.
func (h *RepairOrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type serviceLineRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
}

type partLineRequest struct {
	InventoryItemID string      `json:"inventoryItemId"`
	Quantity        int32       `json:"quantity"`
	Price           json.Number `json:"price"`
}

type createRepairOrderRequest struct {
	CustomerID  string               `json:"customerId"`
	VehicleID   string               `json:"vehicleId"`
	Description string               `json:"description"`
	LocationID  string               `json:"locationId"`
	EmployeeID  string               `json:"employeeId"`
	StartDate   string               `json:"startDate"`
	Status      string               `json:"status"`
	Services    []serviceLineRequest `json:"services"`
	Parts       []partLineRequest    `json:"parts"`
}

type updateRepairOrderRequest struct {
	Description *string              `json:"description"`
	Status      *string              `json:"status"`
	EmployeeID  *string              `json:"employeeId"`
	StartDate   *string              `json:"startDate"`
	EndDate     *string              `json:"endDate"`
	Services    []serviceLineRequest `json:"services"`
	Parts       []partLineRequest    `json:"parts"`
	Notes       []string             `json:"notes"`
}

type repairOrderResponse struct {
	ID          uuid.UUID  `json:"id"`
	OrderNumber string     `json:"orderNumber"`
	Status      string     `json:"status"`
	Description string     `json:"description"`
	CustomerID  uuid.UUID  `json:"customerId"`
	VehicleID   uuid.UUID  `json:"vehicleId"`
	LocationID  uuid.UUID  `json:"locationId"`
	EmployeeID  uuid.UUID  `json:"employeeId"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// repairOrderSummaryResponse is a list row: the order with display names.
type repairOrderSummaryResponse struct {
	repairOrderResponse
	CustomerFirstName string `json:"customerFirstName"`
	CustomerLastName  string `json:"customerLastName"`
	VehicleMake       string `json:"vehicleMake"`
	VehicleModel      string `json:"vehicleModel"`
	VehicleYear       int32  `json:"vehicleYear"`
	LocationName      string `json:"locationName"`
	EmployeeFirstName string `json:"employeeFirstName"`
	EmployeeLastName  string `json:"employeeLastName"`
}

type repairOrderDetailResponse struct {
	repairOrderSummaryResponse
	Services    []serviceResponse     `json:"services"`
	Parts       []partUsageResponse   `json:"parts"`
	Notes       []serviceNoteResponse `json:"notes"`
	Appointment *appointmentResponse  `json:"appointment"`
	Invoice     *invoiceResponse      `json:"invoice"`
}

type createRepairOrderResponse struct {
	repairOrderResponse
	Services    []serviceResponse    `json:"services"`
	Parts       []partUsageResponse  `json:"parts"`
	Appointment *appointmentResponse `json:"appointment"`
}

type updateRepairOrderResponse struct {
	repairOrderResponse
	Invoice *invoiceResponse `json:"invoice"`
}

type serviceResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
}

type partUsageResponse struct {
	ID              uuid.UUID `json:"id"`
	InventoryItemID uuid.UUID `json:"inventoryItemId"`
	Quantity        int32     `json:"quantity"`
	Price           string    `json:"price"`
}

type serviceNoteResponse struct {
	ID        uuid.UUID `json:"id"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"createdAt"`
}

// --- Handlers ---

// Create handles POST /repair-orders.
func (h *RepairOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRepairOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The authenticated employee opens the order unless the body names one.
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		if req.EmployeeID == "" {
			req.EmployeeID = claims.EmployeeID.String()
		}
		if req.LocationID == "" && claims.LocationID != uuid.Nil {
			req.LocationID = claims.LocationID.String()
		}
	}

	result, err := h.svc.Create(r.Context(), service.CreateRepairOrderRequest{
		CustomerID:  req.CustomerID,
		VehicleID:   req.VehicleID,
		Description: req.Description,
		LocationID:  req.LocationID,
		EmployeeID:  req.EmployeeID,
		StartDate:   req.StartDate,
		Status:      req.Status,
		Services:    toServiceLines(req.Services),
		Parts:       toPartLines(req.Parts),
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to create repair order")
		return
	}

	resp := createRepairOrderResponse{
		repairOrderResponse: toRepairOrderResponse(result.Order),
		Services:            toServiceResponses(result.Services),
		Parts:               toPartUsageResponses(result.Parts),
	}
	if result.Appointment != nil {
		a := toAppointmentResponse(*result.Appointment)
		resp.Appointment = &a
	}
	writeData(w, http.StatusCreated, resp)
}

// Get handles GET /repair-orders. With ?id it returns one order with its
// lines, notes, appointment and invoice; otherwise it lists orders filtered by
// customerId, vehicleId and status.
func (h *RepairOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	if s := r.URL.Query().Get("id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		h.getOne(w, r, id)
		return
	}

	customerID, ok := queryUUID(r, "customerId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid customerId")
		return
	}
	vehicleID, ok := queryUUID(r, "vehicleId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid vehicleId")
		return
	}

	orders, err := h.store.ListRepairOrders(r.Context(), database.ListRepairOrdersParams{
		CustomerID: customerID,
		VehicleID:  vehicleID,
		Status:     queryText(r, "status"),
	})
	if err != nil {
		writeInternalError(w, r, err, "failed to fetch repair orders")
		return
	}

	resp := make([]repairOrderSummaryResponse, len(orders))
	for i, o := range orders {
		resp[i] = toRepairOrderSummaryResponse(o)
	}
	writeData(w, http.StatusOK, resp)
}

func (h *RepairOrderHandler) getOne(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	ctx := r.Context()
	const failure = "failed to fetch repair orders"

	order, err := h.store.GetRepairOrderDetail(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "repair order not found")
			return
		}
		writeInternalError(w, r, err, failure)
		return
	}

	services, err := h.store.ListServicesByRepairOrder(ctx, id)
	if err != nil {
		writeInternalError(w, r, err, failure)
		return
	}
	parts, err := h.store.ListPartUsageByRepairOrder(ctx, id)
	if err != nil {
		writeInternalError(w, r, err, failure)
		return
	}
	notes, err := h.store.ListServiceNotesByRepairOrder(ctx, id)
	if err != nil {
		writeInternalError(w, r, err, failure)
		return
	}

	resp := repairOrderDetailResponse{
		repairOrderSummaryResponse: toRepairOrderSummaryResponse(order),
		Services:                   toServiceResponses(services),
		Parts:                      toPartUsageResponses(parts),
		Notes:                      make([]serviceNoteResponse, len(notes)),
	}
	for i, n := range notes {
		resp.Notes[i] = serviceNoteResponse{ID: n.ID, Note: n.Note, CreatedAt: n.CreatedAt}
	}

	appt, err := h.store.GetAppointmentByRepairOrder(ctx, id)
	switch {
	case err == nil:
		a := toAppointmentResponse(appt)
		resp.Appointment = &a
	case !errors.Is(err, pgx.ErrNoRows):
		writeInternalError(w, r, err, failure)
		return
	}

	inv, err := h.store.GetInvoiceByRepairOrder(ctx, id)
	switch {
	case err == nil:
		i := toInvoiceResponse(inv)
		resp.Invoice = &i
	case !errors.Is(err, pgx.ErrNoRows):
		writeInternalError(w, r, err, failure)
		return
	}

	writeData(w, http.StatusOK, resp)
}

// Update handles PUT /repair-orders/{id}.
func (h *RepairOrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid repair order ID")
		return
	}

	var req updateRepairOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Update(r.Context(), service.UpdateRepairOrderRequest{
		ID:          id,
		Description: req.Description,
		Status:      req.Status,
		EmployeeID:  req.EmployeeID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Services:    toServiceLines(req.Services),
		Parts:       toPartLines(req.Parts),
		Notes:       req.Notes,
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to update repair order")
		return
	}

	resp := updateRepairOrderResponse{repairOrderResponse: toRepairOrderResponse(result.Order)}
	if result.Invoice != nil {
		inv := toInvoiceResponse(*result.Invoice)
		resp.Invoice = &inv
	}
	writeData(w, http.StatusOK, resp)
}

// Delete handles DELETE /repair-orders/{id}.
func (h *RepairOrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid repair order ID")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "failed to delete repair order")
		return
	}
	writeSuccess(w)
}

// --- Helpers ---

func toServiceLines(reqs []serviceLineRequest) []service.ServiceLineRequest {
	if len(reqs) == 0 {
		return nil
	}
	lines := make([]service.ServiceLineRequest, len(reqs))
	for i, s := range reqs {
		lines[i] = service.ServiceLineRequest{Name: s.Name, Description: s.Description, Price: s.Price.String()}
	}
	return lines
}

func toPartLines(reqs []partLineRequest) []service.PartLineRequest {
	if len(reqs) == 0 {
		return nil
	}
	lines := make([]service.PartLineRequest, len(reqs))
	for i, p := range reqs {
		lines[i] = service.PartLineRequest{InventoryItemID: p.InventoryItemID, Quantity: p.Quantity, Price: p.Price.String()}
	}
	return lines
}

func toRepairOrderResponse(o database.RepairOrder) repairOrderResponse {
	return repairOrderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Status:      o.Status,
		Description: o.Description,
		CustomerID:  o.CustomerID,
		VehicleID:   o.VehicleID,
		LocationID:  o.LocationID,
		EmployeeID:  o.EmployeeID,
		StartDate:   o.StartDate,
		EndDate:     timePtr(o.EndDate),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func toRepairOrderSummaryResponse(o database.RepairOrderDetail) repairOrderSummaryResponse {
	return repairOrderSummaryResponse{
		repairOrderResponse: toRepairOrderResponse(o.RepairOrder),
		CustomerFirstName:   o.CustomerFirstName,
		CustomerLastName:    o.CustomerLastName,
		VehicleMake:         o.VehicleMake,
		VehicleModel:        o.VehicleModel,
		VehicleYear:         o.VehicleYear,
		LocationName:        o.LocationName,
		EmployeeFirstName:   o.EmployeeFirstName,
		EmployeeLastName:    o.EmployeeLastName,
	}
}

func toServiceResponses(services []database.Service) []serviceResponse {
	resp := make([]serviceResponse, len(services))
	for i, s := range services {
		resp[i] = serviceResponse{ID: s.ID, Name: s.Name, Description: s.Description, Price: numericToString(s.Price)}
	}
	return resp
}

func toPartUsageResponses(parts []database.PartUsage) []partUsageResponse {
	resp := make([]partUsageResponse, len(parts))
	for i, p := range parts {
		resp[i] = partUsageResponse{
			ID:              p.ID,
			InventoryItemID: p.InventoryItemID,
			Quantity:        p.Quantity,
			Price:           numericToString(p.Price),
		}
	}
	return resp
}
