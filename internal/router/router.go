package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/garageos/api/internal/config"
	"github.com/garageos/api/internal/database"
	"github.com/garageos/api/internal/handler"
	"github.com/garageos/api/internal/idempotency"
	mw "github.com/garageos/api/internal/middleware"
	"github.com/garageos/api/internal/service"
	"github.com/garageos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// idem may be nil, in which case POST endpoints run without replay protection.
func New(cfg *config.Config, logger *log.Logger, pool *pgxpool.Pool, hub *ws.Hub, idem idempotency.Store) chi.Router {
	r := chi.NewRouter()
	queries := database.New(pool)

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.Metrics)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CorsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Idempotent-Replayed"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`)) //nolint:errcheck
			return
		}
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})
	r.Handle("/metrics", promhttp.Handler())

	authHandler := handler.NewAuthHandler(queries, cfg.JWT.Secret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/locations/{lid}/events", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWT.Secret, w, r)
	})

	// Services
	repairOrderService := service.NewRepairOrderService(pool,
		func(db database.DBTX) service.RepairOrderStore { return database.New(db) },
		service.SystemClock{}, hub)
	invoiceService := service.NewInvoiceService(pool,
		func(db database.DBTX) service.InvoiceStore { return database.New(db) },
		hub)
	inventoryService := service.NewInventoryService(pool,
		func(db database.DBTX) service.InventoryStore { return database.New(db) })
	appointmentService := service.NewAppointmentService(pool,
		func(db database.DBTX) service.AppointmentStore { return database.New(db) })

	idempotent := func(next http.Handler) http.Handler { return next }
	if idem != nil {
		idempotent = mw.Idempotency(idem, cfg.Idempotency.TTL)
	}

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWT.Secret))

		repairOrderHandler := handler.NewRepairOrderHandler(repairOrderService, queries)
		r.Route("/repair-orders", func(r chi.Router) {
			repairOrderHandler.RegisterRoutes(r)
			r.With(idempotent).Post("/", repairOrderHandler.Create)
		})

		inventoryHandler := handler.NewInventoryHandler(inventoryService, queries)
		r.Route("/inventory", inventoryHandler.RegisterRoutes)

		appointmentHandler := handler.NewAppointmentHandler(appointmentService, queries)
		r.Route("/appointments", appointmentHandler.RegisterRoutes)

		invoiceHandler := handler.NewInvoiceHandler(invoiceService, queries)
		r.Route("/invoices", invoiceHandler.RegisterRoutes)

		paymentHandler := handler.NewPaymentHandler(invoiceService)
		r.Route("/payments", func(r chi.Router) {
			r.Use(idempotent)
			paymentHandler.RegisterRoutes(r)
		})
	})

	logger.Info("router initialized")
	return r
}
