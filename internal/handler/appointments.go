package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/garageos/api/internal/database"
)

// AppointmentServicer defines the service methods needed by appointment handlers.
// Satisfied by *service.AppointmentService.
type AppointmentServicer interface {
	Create(ctx context.Context, date, repairOrderID string) (*database.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, date string) (*database.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

// AppointmentReader defines the database reads behind GET /appointments.
// Satisfied by *database.Queries.
type AppointmentReader interface {
	ListAppointments(ctx context.Context, arg database.ListAppointmentsParams) ([]database.AppointmentDetail, error)
}

// AppointmentHandler handles appointment endpoints.
type AppointmentHandler struct {
	svc   AppointmentServicer
	store AppointmentReader
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(svc AppointmentServicer, store AppointmentReader) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, store: store}
}

// RegisterRoutes registers appointment endpoints. Expected to be mounted at /appointments.
func (h *AppointmentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createAppointmentRequest struct {
	Date          string `json:"date"`
	RepairOrderID string `json:"repairOrderId"`
}

type updateAppointmentRequest struct {
	Date string `json:"date"`
}

type appointmentResponse struct {
	ID            uuid.UUID `json:"id"`
	Date          time.Time `json:"date"`
	RepairOrderID uuid.UUID `json:"repairOrderId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type appointmentDetailResponse struct {
	appointmentResponse
	OrderNumber       string `json:"orderNumber"`
	OrderStatus       string `json:"orderStatus"`
	OrderDescription  string `json:"orderDescription"`
	CustomerFirstName string `json:"customerFirstName"`
	CustomerLastName  string `json:"customerLastName"`
	VehicleMake       string `json:"vehicleMake"`
	VehicleModel      string `json:"vehicleModel"`
	VehicleYear       int32  `json:"vehicleYear"`
	LocationName      string `json:"locationName"`
}

// --- Handlers ---

// Get handles GET /appointments. With ?id it returns one appointment;
// otherwise it lists appointments filtered by date (same day) or a
// startDate/endDate range, ordered by date.
func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	var params database.ListAppointmentsParams

	if s := r.URL.Query().Get("id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		params.ID = pgtype.UUID{Bytes: id, Valid: true}
	} else {
		for _, f := range []struct {
			name string
			dst  *pgtype.Timestamptz
		}{
			{"date", &params.Date},
			{"startDate", &params.StartDate},
			{"endDate", &params.EndDate},
		} {
			t, ok := queryTime(r, f.name)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid "+f.name)
				return
			}
			*f.dst = t
		}
	}

	appts, err := h.store.ListAppointments(r.Context(), params)
	if err != nil {
		writeInternalError(w, r, err, "failed to fetch appointments")
		return
	}

	if params.ID.Valid {
		if len(appts) == 0 {
			writeError(w, http.StatusNotFound, "appointment not found")
			return
		}
		writeData(w, http.StatusOK, toAppointmentDetailResponse(appts[0]))
		return
	}

	resp := make([]appointmentDetailResponse, len(appts))
	for i, a := range appts {
		resp[i] = toAppointmentDetailResponse(a)
	}
	writeData(w, http.StatusOK, resp)
}

// Create handles POST /appointments.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.svc.Create(r.Context(), req.Date, req.RepairOrderID)
	if err != nil {
		writeServiceError(w, r, err, "failed to create appointment")
		return
	}
	writeData(w, http.StatusCreated, toAppointmentResponse(*appt))
}

// Update handles PUT /appointments/{id}.
func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment ID")
		return
	}

	var req updateAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.svc.Reschedule(r.Context(), id, req.Date)
	if err != nil {
		writeServiceError(w, r, err, "failed to update appointment")
		return
	}
	writeData(w, http.StatusOK, toAppointmentResponse(*appt))
}

// Delete handles DELETE /appointments/{id}.
func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment ID")
		return
	}

	if err := h.svc.Cancel(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "failed to delete appointment")
		return
	}
	writeSuccess(w)
}

// --- Helpers ---

func toAppointmentResponse(a database.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:            a.ID,
		Date:          a.Date,
		RepairOrderID: a.RepairOrderID,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func toAppointmentDetailResponse(a database.AppointmentDetail) appointmentDetailResponse {
	return appointmentDetailResponse{
		appointmentResponse: toAppointmentResponse(a.Appointment),
		OrderNumber:         a.OrderNumber,
		OrderStatus:         a.OrderStatus,
		OrderDescription:    a.OrderDescription,
		CustomerFirstName:   a.CustomerFirstName,
		CustomerLastName:    a.CustomerLastName,
		VehicleMake:         a.VehicleMake,
		VehicleModel:        a.VehicleModel,
		VehicleYear:         a.VehicleYear,
		LocationName:        a.LocationName,
	}
}
