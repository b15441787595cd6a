package inventory

import (
	"sort"

	"github.com/erp/manufacturing/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// BatchDraw is the quantity taken from one batch
type BatchDraw struct {
	BatchID  int64
	Number   string
	Quantity decimal.Decimal
}

func sumDraws(draws []BatchDraw) decimal.Decimal {
	total := decimal.Zero
	for _, d := range draws {
		total = total.Add(d.Quantity)
	}
	return total
}

// BatchSelector decides which batches an unpicked issue draws from
type BatchSelector interface {
	strategy.Strategy
	// Select returns the draws covering qty and the quantity left uncovered
	Select(qty decimal.Decimal, batches []*ProductBatch) ([]BatchDraw, decimal.Decimal)
}

// FEFOSelector draws from the earliest expiring batch first.
// Batches without expiry go last; ties fall back to received date, then id.
type FEFOSelector struct {
	strategy.Base
}

// NewFEFOSelector creates a first-expired-first-out selector
func NewFEFOSelector() *FEFOSelector {
	return &FEFOSelector{
		Base: strategy.NewBase("fefo", strategy.KindBatch),
	}
}

// Select implements BatchSelector
func (s *FEFOSelector) Select(qty decimal.Decimal, batches []*ProductBatch) ([]BatchDraw, decimal.Decimal) {
	sorted := usableBatches(batches)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		switch {
		case a.ExpiryDate != nil && b.ExpiryDate != nil:
			if !a.ExpiryDate.Equal(*b.ExpiryDate) {
				return a.ExpiryDate.Before(*b.ExpiryDate)
			}
		case a.ExpiryDate != nil:
			return true
		case b.ExpiryDate != nil:
			return false
		}
		if !a.ReceivedDate.Equal(b.ReceivedDate) {
			return a.ReceivedDate.Before(b.ReceivedDate)
		}
		return a.ID < b.ID
	})
	return drawInOrder(qty, sorted)
}

// FIFOSelector draws from the oldest received batch first regardless of expiry
type FIFOSelector struct {
	strategy.Base
}

// NewFIFOSelector creates a first-in-first-out selector
func NewFIFOSelector() *FIFOSelector {
	return &FIFOSelector{
		Base: strategy.NewBase("fifo", strategy.KindBatch),
	}
}

// Select implements BatchSelector
func (s *FIFOSelector) Select(qty decimal.Decimal, batches []*ProductBatch) ([]BatchDraw, decimal.Decimal) {
	sorted := usableBatches(batches)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ReceivedDate.Equal(sorted[j].ReceivedDate) {
			return sorted[i].ReceivedDate.Before(sorted[j].ReceivedDate)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return drawInOrder(qty, sorted)
}

// SelectorByName returns the selector registered under name, defaulting to FEFO
func SelectorByName(name string) BatchSelector {
	if name == "fifo" {
		return NewFIFOSelector()
	}
	return NewFEFOSelector()
}

func usableBatches(batches []*ProductBatch) []*ProductBatch {
	out := make([]*ProductBatch, 0, len(batches))
	for _, b := range batches {
		if b.IsUsable() {
			out = append(out, b)
		}
	}
	return out
}

func drawInOrder(qty decimal.Decimal, sorted []*ProductBatch) ([]BatchDraw, decimal.Decimal) {
	remaining := qty
	draws := make([]BatchDraw, 0)
	for _, b := range sorted {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(remaining, b.QuantityAvailable)
		draws = append(draws, BatchDraw{BatchID: b.ID, Number: b.Number, Quantity: take})
		remaining = remaining.Sub(take)
	}
	return draws, remaining
}
