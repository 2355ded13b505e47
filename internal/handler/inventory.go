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
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/garageos/api/internal/database"
	"github.com/garageos/api/internal/enum"
	"github.com/garageos/api/internal/service"
)

// InventoryServicer defines the service methods needed by inventory handlers.
// Satisfied by *service.InventoryService.
type InventoryServicer interface {
	Create(ctx context.Context, req service.InventoryItemRequest) (*database.InventoryItem, error)
	Update(ctx context.Context, id uuid.UUID, req service.InventoryItemRequest) (*database.InventoryItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// InventoryReader defines the database reads behind GET /inventory.
// Satisfied by *database.Queries.
type InventoryReader interface {
	GetInventoryItemDetail(ctx context.Context, id uuid.UUID) (database.InventoryItemDetail, error)
	ListInventoryItems(ctx context.Context, arg database.ListInventoryItemsParams) ([]database.InventoryItemDetail, error)
}

// InventoryHandler handles inventory endpoints.
type InventoryHandler struct {
	svc   InventoryServicer
	store InventoryReader
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(svc InventoryServicer, store InventoryReader) *InventoryHandler {
	return &InventoryHandler{svc: svc, store: store}
}

// RegisterRoutes registers inventory endpoints. Expected to be mounted at /inventory.
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type inventoryItemRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	PartNumber  string      `json:"partNumber"`
	Price       json.Number `json:"price"`
	Quantity    *int32      `json:"quantity"`
	LocationID  string      `json:"locationId"`
}

type inventoryItemResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	PartNumber   string    `json:"partNumber"`
	Price        string    `json:"price"`
	Quantity     int32     `json:"quantity"`
	LowStock     bool      `json:"lowStock"`
	LocationID   uuid.UUID `json:"locationId"`
	LocationName string    `json:"locationName,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// --- Handlers ---

// Get handles GET /inventory. With ?id it returns one item; otherwise it
// lists items filtered by locationId and lowStock=true.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	const failure = "failed to fetch inventory"

	if s := r.URL.Query().Get("id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		item, err := h.store.GetInventoryItemDetail(r.Context(), id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeError(w, http.StatusNotFound, "inventory item not found")
				return
			}
			writeInternalError(w, r, err, failure)
			return
		}
		writeData(w, http.StatusOK, toInventoryDetailResponse(item))
		return
	}

	locationID, ok := queryUUID(r, "locationId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid locationId")
		return
	}
	params := database.ListInventoryItemsParams{LocationID: locationID}
	if r.URL.Query().Get("lowStock") == "true" {
		params.BelowQuantity = pgtype.Int4{Int32: enum.LowStockThreshold, Valid: true}
	}

	items, err := h.store.ListInventoryItems(r.Context(), params)
	if err != nil {
		writeInternalError(w, r, err, failure)
		return
	}

	resp := make([]inventoryItemResponse, len(items))
	for i, it := range items {
		resp[i] = toInventoryDetailResponse(it)
	}
	writeData(w, http.StatusOK, resp)
}

// Create handles POST /inventory.
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req inventoryItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.Create(r.Context(), req.toService())
	if err != nil {
		writeServiceError(w, r, err, "failed to create inventory item")
		return
	}
	writeData(w, http.StatusCreated, toInventoryItemResponse(*item))
}

// Update handles PUT /inventory/{id}.
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid inventory item ID")
		return
	}

	var req inventoryItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.Update(r.Context(), id, req.toService())
	if err != nil {
		writeServiceError(w, r, err, "failed to update inventory item")
		return
	}
	writeData(w, http.StatusOK, toInventoryItemResponse(*item))
}

// Delete handles DELETE /inventory/{id}.
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid inventory item ID")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "failed to delete inventory item")
		return
	}
	writeSuccess(w)
}

// --- Helpers ---

func (req inventoryItemRequest) toService() service.InventoryItemRequest {
	return service.InventoryItemRequest{
		Name:        req.Name,
		Description: req.Description,
		PartNumber:  req.PartNumber,
		Price:       req.Price.String(),
		Quantity:    req.Quantity,
		LocationID:  req.LocationID,
	}
}

func toInventoryItemResponse(it database.InventoryItem) inventoryItemResponse {
	return inventoryItemResponse{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		PartNumber:  it.PartNumber,
		Price:       numericToString(it.Price),
		Quantity:    it.Quantity,
		LowStock:    it.Quantity < enum.LowStockThreshold,
		LocationID:  it.LocationID,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

func toInventoryDetailResponse(it database.InventoryItemDetail) inventoryItemResponse {
	resp := toInventoryItemResponse(it.InventoryItem)
	resp.LocationName = it.LocationName
	return resp
}
