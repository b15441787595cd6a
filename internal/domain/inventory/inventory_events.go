package inventory

import (
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeStockBalance = "StockBalance"

// Event type constants
const (
	EventTypeStockReserved = "StockReserved"
	EventTypeStockReleased = "StockReleased"
	EventTypeStockIssued   = "StockIssued"
	EventTypeStockReceived = "StockReceived"
	EventTypeStockAdjusted = "StockAdjusted"
)

// StockReservedEvent is raised when a reservation is placed on a balance
type StockReservedEvent struct {
	shared.BaseDomainEvent
	ProductID   int64           `json:"product_id"`
	WarehouseID int64           `json:"warehouse_id"`
	Handle      uuid.UUID       `json:"reservation"`
	Quantity    decimal.Decimal `json:"quantity"`
	Document    DocumentKind    `json:"document_kind"`
}

// NewStockReservedEvent creates a new StockReservedEvent
func NewStockReservedEvent(b *StockBalance, r *Reservation, actor string) *StockReservedEvent {
	return &StockReservedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReserved, AggregateTypeStockBalance, b.ID, actor),
		ProductID:       b.ProductID,
		WarehouseID:     b.WarehouseID,
		Handle:          r.Handle,
		Quantity:        r.Quantity,
		Document:        r.Document.Kind(),
	}
}

// StockReleasedEvent is raised when the outstanding part of a reservation is returned
type StockReleasedEvent struct {
	shared.BaseDomainEvent
	ProductID   int64           `json:"product_id"`
	WarehouseID int64           `json:"warehouse_id"`
	Handle      uuid.UUID       `json:"reservation"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// NewStockReleasedEvent creates a new StockReleasedEvent
func NewStockReleasedEvent(b *StockBalance, r *Reservation, qty decimal.Decimal, actor string) *StockReleasedEvent {
	return &StockReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReleased, AggregateTypeStockBalance, b.ID, actor),
		ProductID:       b.ProductID,
		WarehouseID:     b.WarehouseID,
		Handle:          r.Handle,
		Quantity:        qty,
	}
}

// StockIssuedEvent is raised when stock leaves a warehouse
type StockIssuedEvent struct {
	shared.BaseDomainEvent
	ProductID   int64           `json:"product_id"`
	WarehouseID int64           `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Document    DocumentKind    `json:"document_kind"`
}

// NewStockIssuedEvent creates a new StockIssuedEvent
func NewStockIssuedEvent(b *StockBalance, qty decimal.Decimal, doc DocumentRef, actor string) *StockIssuedEvent {
	return &StockIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockIssued, AggregateTypeStockBalance, b.ID, actor),
		ProductID:       b.ProductID,
		WarehouseID:     b.WarehouseID,
		Quantity:        qty,
		Document:        FlattenDocument(doc).Kind,
	}
}

// StockReceivedEvent is raised when stock enters a warehouse
type StockReceivedEvent struct {
	shared.BaseDomainEvent
	ProductID   int64           `json:"product_id"`
	WarehouseID int64           `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Document    DocumentKind    `json:"document_kind"`
}

// NewStockReceivedEvent creates a new StockReceivedEvent
func NewStockReceivedEvent(b *StockBalance, qty decimal.Decimal, doc DocumentRef, actor string) *StockReceivedEvent {
	return &StockReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReceived, AggregateTypeStockBalance, b.ID, actor),
		ProductID:       b.ProductID,
		WarehouseID:     b.WarehouseID,
		Quantity:        qty,
		Document:        FlattenDocument(doc).Kind,
	}
}

// StockAdjustedEvent is raised on a manual correction
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	ProductID   int64           `json:"product_id"`
	WarehouseID int64           `json:"warehouse_id"`
	Delta       decimal.Decimal `json:"delta"`
	Reason      string          `json:"reason"`
}

// NewStockAdjustedEvent creates a new StockAdjustedEvent
func NewStockAdjustedEvent(b *StockBalance, delta decimal.Decimal, reason, actor string) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, AggregateTypeStockBalance, b.ID, actor),
		ProductID:       b.ProductID,
		WarehouseID:     b.WarehouseID,
		Delta:           delta,
		Reason:          reason,
	}
}

// Description implements shared.ActivityEvent
func (e *StockAdjustedEvent) Description() string {
	return "Stock adjusted by " + e.Delta.String() + ": " + e.Reason
}

// Properties implements shared.ActivityEvent
func (e *StockAdjustedEvent) Properties() map[string]any {
	return map[string]any{
		"product_id":   e.ProductID,
		"warehouse_id": e.WarehouseID,
		"delta":        e.Delta.String(),
		"reason":       e.Reason,
	}
}
