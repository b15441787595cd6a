package inventory

import (
	"time"

	"github.com/erp/manufacturing/internal/domain/inventory"
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceResponse represents a stock balance in API responses
type BalanceResponse struct {
	ID                int64           `json:"id"`
	ProductID         int64           `json:"product_id"`
	WarehouseID       int64           `json:"warehouse_id"`
	Quantity          decimal.Decimal `json:"quantity"`
	ReservedQuantity  decimal.Decimal `json:"reserved_quantity"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	Version           int             `json:"version"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ToBalanceResponse converts a domain balance
func ToBalanceResponse(b *inventory.StockBalance) BalanceResponse {
	return BalanceResponse{
		ID:                b.ID,
		ProductID:         b.ProductID,
		WarehouseID:       b.WarehouseID,
		Quantity:          b.Quantity,
		ReservedQuantity:  b.ReservedQuantity,
		AvailableQuantity: b.AvailableQuantity(),
		Version:           b.Version,
		UpdatedAt:         b.UpdatedAt,
	}
}

// DocumentResponse is the flattened form of a document reference
type DocumentResponse struct {
	Kind   string `json:"kind"`
	ID     int64  `json:"id,omitempty"`
	LineID int64  `json:"line_id,omitempty"`
	Note   string `json:"note,omitempty"`
}

func toDocumentResponse(ref inventory.DocumentRef) DocumentResponse {
	cols := inventory.FlattenDocument(ref)
	return DocumentResponse{Kind: string(cols.Kind), ID: cols.ID, LineID: cols.LineID, Note: cols.Note}
}

// ReservationResponse represents a reservation handle
type ReservationResponse struct {
	Handle         uuid.UUID        `json:"handle"`
	ProductID      int64            `json:"product_id"`
	WarehouseID    int64            `json:"warehouse_id"`
	Quantity       decimal.Decimal  `json:"quantity"`
	QuantityIssued decimal.Decimal  `json:"quantity_issued"`
	Outstanding    decimal.Decimal  `json:"outstanding"`
	Released       bool             `json:"released"`
	Document       DocumentResponse `json:"document"`
	CreatedAt      time.Time        `json:"created_at"`
}

// ToReservationResponse converts a domain reservation
func ToReservationResponse(r *inventory.Reservation) ReservationResponse {
	return ReservationResponse{
		Handle:         r.Handle,
		ProductID:      r.ProductID,
		WarehouseID:    r.WarehouseID,
		Quantity:       r.Quantity,
		QuantityIssued: r.QuantityIssued,
		Outstanding:    r.Outstanding(),
		Released:       r.Released,
		Document:       toDocumentResponse(r.Document),
		CreatedAt:      r.CreatedAt,
	}
}

// MovementResponse represents a stock movement
type MovementResponse struct {
	ID            int64            `json:"id"`
	ProductID     int64            `json:"product_id"`
	WarehouseID   int64            `json:"warehouse_id"`
	MovementType  string           `json:"movement_type"`
	Quantity      decimal.Decimal  `json:"quantity"`
	BalanceBefore decimal.Decimal  `json:"balance_before"`
	BalanceAfter  decimal.Decimal  `json:"balance_after"`
	BatchID       *int64           `json:"batch_id,omitempty"`
	Document      DocumentResponse `json:"document"`
	Actor         string           `json:"actor"`
	Reason        string           `json:"reason,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// ToMovementResponses converts domain movements
func ToMovementResponses(movements []*inventory.StockMovement) []MovementResponse {
	out := make([]MovementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, MovementResponse{
			ID:            m.ID,
			ProductID:     m.ProductID,
			WarehouseID:   m.WarehouseID,
			MovementType:  string(m.MovementType),
			Quantity:      m.Quantity,
			BalanceBefore: m.BalanceBefore,
			BalanceAfter:  m.BalanceAfter,
			BatchID:       m.BatchID,
			Document:      toDocumentResponse(m.Document),
			Actor:         m.Actor,
			Reason:        m.Reason,
			OccurredAt:    m.OccurredAt,
		})
	}
	return out
}

// ReserveStockRequest reserves free stock for a document
type ReserveStockRequest struct {
	ProductID   int64           `json:"product_id" binding:"required,min=1"`
	WarehouseID int64           `json:"warehouse_id" binding:"required,min=1"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required,decimal_positive"`
	Note        string          `json:"note"`
}

// IssueStockRequest issues free or reserved stock
type IssueStockRequest struct {
	ProductID   int64           `json:"product_id" binding:"required,min=1"`
	WarehouseID int64           `json:"warehouse_id" binding:"required,min=1"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required,decimal_positive"`
	Reservation *uuid.UUID      `json:"reservation"`
	Note        string          `json:"note"`
}

// ReceiveStockRequest receives stock into a warehouse
type ReceiveStockRequest struct {
	ProductID     int64           `json:"product_id" binding:"required,min=1"`
	WarehouseID   int64           `json:"warehouse_id" binding:"required,min=1"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required,decimal_positive"`
	BatchNumber   string          `json:"batch_number"`
	SerialNumbers []string        `json:"serial_numbers"`
	ExpiryDate    *time.Time      `json:"expiry_date"`
	Note          string          `json:"note"`
}

// AdjustStockRequest corrects a balance by a signed delta
type AdjustStockRequest struct {
	ProductID   int64           `json:"product_id" binding:"required,min=1"`
	WarehouseID int64           `json:"warehouse_id" binding:"required,min=1"`
	Delta       decimal.Decimal `json:"delta" binding:"required"`
	Reason      string          `json:"reason" binding:"required,max=255"`
}

// TransferStockRequest moves stock between warehouses
type TransferStockRequest struct {
	ProductID       int64           `json:"product_id" binding:"required,min=1"`
	FromWarehouseID int64           `json:"from_warehouse_id" binding:"required,min=1"`
	ToWarehouseID   int64           `json:"to_warehouse_id" binding:"required,min=1,nefield=FromWarehouseID"`
	Quantity        decimal.Decimal `json:"quantity" binding:"required,decimal_positive"`
	Note            string          `json:"note"`
}

// MovementListFilter pages through the movement log
type MovementListFilter struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

func (f MovementListFilter) toDomain() shared.Filter {
	filter := shared.DefaultFilter()
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	filter.OrderBy = "occurred_at"
	filter.OrderDir = "desc"
	if f.OrderDir != "" {
		filter.OrderDir = f.OrderDir
	}
	return filter
}
