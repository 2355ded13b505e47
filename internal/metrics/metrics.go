// Package metrics declares the prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "garageos"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

var (
	RepairOrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "repair_orders_created_total",
		Help:      "Repair orders created.",
	})

	InvoicesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invoices_generated_total",
		Help:      "Invoices generated on repair order completion.",
	})

	PaymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_recorded_total",
		Help:      "Payments recorded, by resulting invoice status.",
	}, []string{"invoice_status"})

	// InventoryAdjustments counts stock movements caused by repair orders.
	// reason is one of consume, reconcile or restock.
	InventoryAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inventory_adjustments_total",
		Help:      "Inventory quantity adjustments by reason.",
	}, []string{"reason"})

	NumberRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "document_number_retries_total",
		Help:      "Transactions retried after a document number collision.",
	})

	LowStockItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "inventory_low_stock_items",
		Help:      "Inventory items below the low-stock threshold, by location.",
	}, []string{"location_id"})

	IdempotentReplays = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotent_replays_total",
		Help:      "Responses replayed from a stored Idempotency-Key record.",
	})
)
