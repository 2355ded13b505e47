// Package jobs runs scheduled background work.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/garageos/api/internal/database"
	"github.com/garageos/api/internal/enum"
	"github.com/garageos/api/internal/metrics"
	"github.com/garageos/api/internal/service"
)

const runTimeout = time.Minute

// InventoryLister is the read needed by the low-stock sweep.
type InventoryLister interface {
	ListInventoryItems(ctx context.Context, arg database.ListInventoryItemsParams) ([]database.InventoryItemDetail, error)
}

// Purger removes expired records from an embedded store.
type Purger interface {
	Purge(ctx context.Context) (int, error)
}

// LowStockItem is one entry in a low-stock event.
type LowStockItem struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	PartNumber string    `json:"partNumber"`
	Quantity   int32     `json:"quantity"`
}

// LowStockEvent is the websocket payload of inventory.low_stock.
type LowStockEvent struct {
	LocationID uuid.UUID      `json:"locationId"`
	Threshold  int            `json:"threshold"`
	Items      []LowStockItem `json:"items"`
}

// LowStockJob finds inventory below the low-stock threshold and notifies each
// affected location.
type LowStockJob struct {
	items     InventoryLister
	publisher service.Publisher
	purger    Purger
}

// NewLowStockJob creates the sweep. purger may be nil.
func NewLowStockJob(items InventoryLister, publisher service.Publisher, purger Purger) *LowStockJob {
	return &LowStockJob{items: items, publisher: publisher, purger: purger}
}

// Run performs one sweep.
func (j *LowStockJob) Run(ctx context.Context) error {
	items, err := j.items.ListInventoryItems(ctx, database.ListInventoryItemsParams{
		BelowQuantity: pgtype.Int4{Int32: enum.LowStockThreshold, Valid: true},
	})
	if err != nil {
		return fmt.Errorf("list low stock items: %w", err)
	}

	byLocation := make(map[uuid.UUID][]LowStockItem)
	var order []uuid.UUID
	for _, it := range items {
		if _, seen := byLocation[it.LocationID]; !seen {
			order = append(order, it.LocationID)
		}
		byLocation[it.LocationID] = append(byLocation[it.LocationID], LowStockItem{
			ID:         it.ID,
			Name:       it.Name,
			PartNumber: it.PartNumber,
			Quantity:   it.Quantity,
		})
	}

	// Locations that recovered drop out of the gauge.
	metrics.LowStockItems.Reset()
	for _, locationID := range order {
		low := byLocation[locationID]
		metrics.LowStockItems.WithLabelValues(locationID.String()).Set(float64(len(low)))
		j.publisher.Publish(locationID, enum.EventInventoryLowStock, LowStockEvent{
			LocationID: locationID,
			Threshold:  enum.LowStockThreshold,
			Items:      low,
		})
	}

	log.WithFields(log.Fields{
		"items":     len(items),
		"locations": len(order),
	}).Info("low stock sweep completed")

	if j.purger != nil {
		n, err := j.purger.Purge(ctx)
		if err != nil {
			return fmt.Errorf("purge idempotency keys: %w", err)
		}
		if n > 0 {
			log.WithField("purged", n).Info("expired idempotency keys purged")
		}
	}
	return nil
}

// Schedule registers the sweep on c using a standard cron spec or a
// descriptor such as "@every 15m".
func (j *LowStockJob) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if err := j.Run(ctx); err != nil {
			log.WithError(err).Error("low stock sweep failed")
		}
	})
	if err != nil {
		return 0, fmt.Errorf("schedule low stock sweep %q: %w", spec, err)
	}
	return id, nil
}
