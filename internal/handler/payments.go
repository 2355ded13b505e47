package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/garageos/api/internal/database"
	"github.com/garageos/api/internal/service"
)

// PaymentServicer defines the service methods needed by payment handlers.
// Satisfied by *service.InvoiceService.
type PaymentServicer interface {
	RecordPayment(ctx context.Context, req service.RecordPaymentRequest) (*service.RecordPaymentResult, error)
}

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	svc PaymentServicer
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc PaymentServicer) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// RegisterRoutes registers payment endpoints. Expected to be mounted at /payments.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
}

// --- Request / Response types ---

type createPaymentRequest struct {
	Amount    json.Number `json:"amount"`
	Method    string      `json:"method"`
	Reference string      `json:"reference"`
	InvoiceID string      `json:"invoiceId"`
}

type paymentResponse struct {
	ID        uuid.UUID `json:"id"`
	Amount    string    `json:"amount"`
	Method    string    `json:"method"`
	Reference *string   `json:"reference"`
	InvoiceID uuid.UUID `json:"invoiceId"`
	CreatedAt time.Time `json:"createdAt"`
}

type createPaymentResponse struct {
	paymentResponse
	InvoiceStatus string `json:"invoiceStatus"`
}

// --- Handlers ---

// Create handles POST /payments. The invoice's status is re-derived from the
// sum of its payments in the same transaction.
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.RecordPayment(r.Context(), service.RecordPaymentRequest{
		InvoiceID: req.InvoiceID,
		Amount:    req.Amount.String(),
		Method:    req.Method,
		Reference: req.Reference,
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to create payment")
		return
	}

	writeData(w, http.StatusCreated, createPaymentResponse{
		paymentResponse: toPaymentResponse(result.Payment),
		InvoiceStatus:   result.Invoice.Status,
	})
}

func toPaymentResponse(p database.Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID,
		Amount:    numericToString(p.Amount),
		Method:    p.Method,
		Reference: textPtr(p.Reference),
		InvoiceID: p.InvoiceID,
		CreatedAt: p.CreatedAt,
	}
}
