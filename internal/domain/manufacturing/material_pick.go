package manufacturing

import (
	"time"

	"github.com/shopspring/decimal"
)

// PickStatus tracks a single pick
type PickStatus string

const (
	PickStatusPicked   PickStatus = "picked"
	PickStatusIssued   PickStatus = "issued"
	PickStatusReturned PickStatus = "returned"
)

// MaterialPick is stock physically taken from a batch (or from bulk when
// the product is untracked) for one requisition item.
type MaterialPick struct {
	ID                int64
	RequisitionItemID int64
	BatchID           *int64
	BatchNumber       string
	QuantityPicked    decimal.Decimal
	Location          string
	PickedBy          string
	PickedAt          time.Time
	Status            PickStatus
}

// PickSpec describes a pick request
type PickSpec struct {
	BatchID     *int64
	BatchNumber string
	Quantity    decimal.Decimal
	Location    string
}
