package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/garageos/api/internal/database"
	"github.com/garageos/api/internal/report"
)

// InvoiceServicer defines the service methods needed by invoice and payment handlers.
// Satisfied by *service.InvoiceService.
type InvoiceServicer interface {
	UpdateInvoice(ctx context.Context, id uuid.UUID, status *string) (*database.Invoice, error)
	DeleteInvoice(ctx context.Context, id uuid.UUID) error
}

// InvoiceReader defines the database reads behind GET /invoices and the PDF export.
// Satisfied by *database.Queries.
type InvoiceReader interface {
	GetInvoiceDetail(ctx context.Context, id uuid.UUID) (database.InvoiceDetail, error)
	ListInvoices(ctx context.Context, arg database.ListInvoicesParams) ([]database.InvoiceDetail, error)
	ListPaymentsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]database.Payment, error)
	ListServicesByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) ([]database.Service, error)
	ListPartUsageByRepairOrder(ctx context.Context, repairOrderID uuid.UUID) ([]database.PartUsage, error)
	GetInventoryItem(ctx context.Context, id uuid.UUID) (database.InventoryItem, error)
}

// InvoiceHandler handles invoice endpoints.
type InvoiceHandler struct {
	svc   InvoiceServicer
	store InvoiceReader
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(svc InvoiceServicer, store InvoiceReader) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, store: store}
}

// RegisterRoutes registers invoice endpoints. Expected to be mounted at /invoices.
func (h *InvoiceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Get("/{id}/pdf", h.PDF)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type updateInvoiceRequest struct {
	Status *string `json:"status"`
}

type invoiceResponse struct {
	ID            uuid.UUID `json:"id"`
	InvoiceNumber string    `json:"invoiceNumber"`
	Amount        string    `json:"amount"`
	Tax           string    `json:"tax"`
	Total         string    `json:"total"`
	Status        string    `json:"status"`
	RepairOrderID uuid.UUID `json:"repairOrderId"`
	CustomerID    uuid.UUID `json:"customerId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type invoiceSummaryResponse struct {
	invoiceResponse
	PaidAmount        string    `json:"paidAmount"`
	OrderNumber       string    `json:"orderNumber"`
	LocationID        uuid.UUID `json:"locationId"`
	CustomerFirstName string    `json:"customerFirstName"`
	CustomerLastName  string    `json:"customerLastName"`
	VehicleMake       string    `json:"vehicleMake"`
	VehicleModel      string    `json:"vehicleModel"`
	VehicleYear       int32     `json:"vehicleYear"`
	LocationName      string    `json:"locationName"`
}

type invoiceDetailResponse struct {
	invoiceSummaryResponse
	Payments []paymentResponse `json:"payments"`
}

// --- Handlers ---

// Get handles GET /invoices. With ?id it returns one invoice with its
// payments, newest first; otherwise it lists invoices filtered by customerId
// and status.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	const failure = "failed to fetch invoices"

	if s := r.URL.Query().Get("id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		inv, err := h.store.GetInvoiceDetail(r.Context(), id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeError(w, http.StatusNotFound, "invoice not found")
				return
			}
			writeInternalError(w, r, err, failure)
			return
		}
		payments, err := h.store.ListPaymentsByInvoice(r.Context(), id)
		if err != nil {
			writeInternalError(w, r, err, failure)
			return
		}
		resp := invoiceDetailResponse{
			invoiceSummaryResponse: toInvoiceSummaryResponse(inv),
			Payments:               make([]paymentResponse, len(payments)),
		}
		for i, p := range payments {
			resp.Payments[i] = toPaymentResponse(p)
		}
		writeData(w, http.StatusOK, resp)
		return
	}

	customerID, ok := queryUUID(r, "customerId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid customerId")
		return
	}
	invoices, err := h.store.ListInvoices(r.Context(), database.ListInvoicesParams{
		CustomerID: customerID,
		Status:     queryText(r, "status"),
	})
	if err != nil {
		writeInternalError(w, r, err, failure)
		return
	}

	resp := make([]invoiceSummaryResponse, len(invoices))
	for i, inv := range invoices {
		resp[i] = toInvoiceSummaryResponse(inv)
	}
	writeData(w, http.StatusOK, resp)
}

// PDF handles GET /invoices/{id}/pdf.
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	const failure = "failed to render invoice"
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid invoice ID")
		return
	}

	inv, err := h.store.GetInvoiceDetail(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "invoice not found")
			return
		}
		writeInternalError(w, r, err, failure)
		return
	}

	doc := report.InvoiceDocument{Invoice: inv, PartNames: make(map[string]string)}
	if doc.Payments, err = h.store.ListPaymentsByInvoice(ctx, id); err != nil {
		writeInternalError(w, r, err, failure)
		return
	}
	if doc.Services, err = h.store.ListServicesByRepairOrder(ctx, inv.RepairOrderID); err != nil {
		writeInternalError(w, r, err, failure)
		return
	}
	if doc.Parts, err = h.store.ListPartUsageByRepairOrder(ctx, inv.RepairOrderID); err != nil {
		writeInternalError(w, r, err, failure)
		return
	}
	for _, p := range doc.Parts {
		key := p.InventoryItemID.String()
		if _, ok := doc.PartNames[key]; ok {
			continue
		}
		item, err := h.store.GetInventoryItem(ctx, p.InventoryItemID)
		if err != nil {
			writeInternalError(w, r, err, failure)
			return
		}
		doc.PartNames[key] = item.Name
	}

	out, err := report.RenderInvoicePDF(doc)
	if err != nil {
		writeInternalError(w, r, err, failure)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s.pdf"`, inv.InvoiceNumber))
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	w.Write(out) //nolint:errcheck
}

// Update handles PUT /invoices/{id}: a manual status override.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid invoice ID")
		return
	}

	var req updateInvoiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inv, err := h.svc.UpdateInvoice(r.Context(), id, req.Status)
	if err != nil {
		writeServiceError(w, r, err, "failed to update invoice")
		return
	}
	writeData(w, http.StatusOK, toInvoiceResponse(*inv))
}

// Delete handles DELETE /invoices/{id}.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid invoice ID")
		return
	}

	if err := h.svc.DeleteInvoice(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "failed to delete invoice")
		return
	}
	writeSuccess(w)
}

// --- Helpers ---

func toInvoiceResponse(inv database.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		Amount:        numericToString(inv.Amount),
		Tax:           numericToString(inv.Tax),
		Total:         numericToString(inv.Total),
		Status:        inv.Status,
		RepairOrderID: inv.RepairOrderID,
		CustomerID:    inv.CustomerID,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
}

func toInvoiceSummaryResponse(inv database.InvoiceDetail) invoiceSummaryResponse {
	return invoiceSummaryResponse{
		invoiceResponse:   toInvoiceResponse(inv.Invoice),
		PaidAmount:        numericToString(inv.PaidAmount),
		OrderNumber:       inv.OrderNumber,
		LocationID:        inv.LocationID,
		CustomerFirstName: inv.CustomerFirstName,
		CustomerLastName:  inv.CustomerLastName,
		VehicleMake:       inv.VehicleMake,
		VehicleModel:      inv.VehicleModel,
		VehicleYear:       inv.VehicleYear,
		LocationName:      inv.LocationName,
	}
}
