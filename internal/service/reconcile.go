package service

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garageos/api/internal/database"
)

// partLine is a validated part line from a request.
type partLine struct {
	itemID   uuid.UUID
	quantity int32
	price    decimal.Decimal
	hasPrice bool
}

// partUsageUpdate rewrites an existing part usage row in place.
type partUsageUpdate struct {
	id       uuid.UUID
	quantity int32
	price    decimal.Decimal
}

// partPlan is the set of writes that turns an order's current part usage into
// the requested one.
type partPlan struct {
	updates []partUsageUpdate
	inserts []partLine
	deletes []uuid.UUID
	// deltas is the net stock change per inventory item. Zero entries are omitted.
	deltas map[uuid.UUID]int32
}

// planPartReconciliation diffs the existing usage rows against the incoming
// lines, keyed by inventory item:
//   - a matched item moves stock by -(new - old) and rewrites the row;
//   - an unmatched incoming line takes its full quantity from stock;
//   - an existing row left unmatched returns its quantity to stock and is removed.
//
// When several existing rows share an item the first one is matched and the
// others are treated as leftovers. For every item the net delta therefore
// equals sum(old quantities) - sum(new quantities).
func planPartReconciliation(existing []database.PartUsage, incoming []partLine) partPlan {
	plan := partPlan{deltas: make(map[uuid.UUID]int32)}

	lookup := make(map[uuid.UUID]database.PartUsage, len(existing))
	var leftovers []database.PartUsage
	for _, pu := range existing {
		if _, dup := lookup[pu.InventoryItemID]; dup {
			leftovers = append(leftovers, pu)
			continue
		}
		lookup[pu.InventoryItemID] = pu
	}

	for _, line := range incoming {
		old, ok := lookup[line.itemID]
		if !ok {
			plan.inserts = append(plan.inserts, line)
			plan.deltas[line.itemID] -= line.quantity
			continue
		}
		delete(lookup, line.itemID)

		oldPrice := NumericToDecimal(old.Price)
		price := oldPrice
		if line.hasPrice {
			price = line.price
		}
		diff := line.quantity - old.Quantity
		if diff != 0 || !price.Equal(oldPrice) {
			plan.updates = append(plan.updates, partUsageUpdate{id: old.ID, quantity: line.quantity, price: price})
		}
		plan.deltas[line.itemID] -= diff
	}

	// Unmatched rows keep their stored order so the plan is deterministic.
	for _, pu := range existing {
		if remaining, ok := lookup[pu.InventoryItemID]; ok && remaining.ID == pu.ID {
			leftovers = append(leftovers, pu)
		}
	}
	for _, pu := range leftovers {
		plan.deletes = append(plan.deletes, pu.ID)
		plan.deltas[pu.InventoryItemID] += pu.Quantity
	}

	for id, d := range plan.deltas {
		if d == 0 {
			delete(plan.deltas, id)
		}
	}
	return plan
}

// itemIDs returns the items whose stock changes, in lock order.
func (p partPlan) itemIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.deltas))
	for id := range p.deltas {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// sortIDs orders ids the way Postgres orders uuid values, so row locks are
// always taken in the same order.
func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
}
