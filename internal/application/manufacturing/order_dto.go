package manufacturing

import (
	"time"

	"github.com/erp/manufacturing/internal/domain/manufacturing"
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest creates a draft production order
type CreateOrderRequest struct {
	BillOfMaterialID int64           `json:"bill_of_material_id" binding:"required,min=1"`
	WarehouseID      int64           `json:"warehouse_id" binding:"required,min=1"`
	Quantity         decimal.Decimal `json:"quantity" binding:"required,decimal_positive"`
	Priority         int             `json:"priority" binding:"min=0,max=10"`
	AllocationMode   string          `json:"allocation_mode" binding:"omitempty,oneof=auto manual"`
	PlannedStartDate *time.Time      `json:"planned_start_date"`
	PlannedEndDate   *time.Time      `json:"planned_end_date"`
	EstimatedTime    int             `json:"estimated_time" binding:"min=0"`
}

// CompleteOrderRequest records output of a finished order
type CompleteOrderRequest struct {
	QuantityProduced decimal.Decimal `json:"quantity_produced"`
	QuantityScrapped decimal.Decimal `json:"quantity_scrapped"`
	ExpiryDate       *time.Time      `json:"expiry_date"`
}

// HoldOrderRequest pauses an order
type HoldOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// OrderListFilter filters the order list
type OrderListFilter struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	ProductID int64  `form:"product_id"`
	Status    string `form:"status"`
}

func (f OrderListFilter) toDomain() shared.Filter {
	filter := listFilter(f.Page, f.PageSize)
	if f.ProductID > 0 {
		filter.Filters["product_id"] = f.ProductID
	}
	if f.Status != "" {
		filter.Filters["status"] = f.Status
	}
	return filter
}

// OrderItemResponse represents one material line of an order
type OrderItemResponse struct {
	ID                int64           `json:"id"`
	ProductID         int64           `json:"product_id"`
	QuantityRequired  decimal.Decimal `json:"quantity_required"`
	QuantityReserved  decimal.Decimal `json:"quantity_reserved"`
	QuantityIssued    decimal.Decimal `json:"quantity_issued"`
	QuantityConsumed  decimal.Decimal `json:"quantity_consumed"`
	QuantityReturned  decimal.Decimal `json:"quantity_returned"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	Status            string          `json:"status"`
	ReservationHandle *uuid.UUID      `json:"reservation_handle,omitempty"`
}

// OrderResponse represents a production order
type OrderResponse struct {
	ID                 int64               `json:"id"`
	Reference          string              `json:"reference"`
	BillOfMaterialID   int64               `json:"bill_of_material_id"`
	ProductID          int64               `json:"product_id"`
	WarehouseID        int64               `json:"warehouse_id"`
	QuantityToProduce  decimal.Decimal     `json:"quantity_to_produce"`
	QuantityProduced   decimal.Decimal     `json:"quantity_produced"`
	QuantityScrapped   decimal.Decimal     `json:"quantity_scrapped"`
	Status             string              `json:"status"`
	Priority           int                 `json:"priority"`
	AllocationMode     string              `json:"allocation_mode"`
	PlannedStartDate   *time.Time          `json:"planned_start_date,omitempty"`
	PlannedEndDate     *time.Time          `json:"planned_end_date,omitempty"`
	ActualStartDate    *time.Time          `json:"actual_start_date,omitempty"`
	ActualEndDate      *time.Time          `json:"actual_end_date,omitempty"`
	EstimatedCost      decimal.Decimal     `json:"estimated_cost"`
	ActualCost         decimal.Decimal     `json:"actual_cost"`
	EstimatedTime      int                 `json:"estimated_time"`
	ActualTime         int                 `json:"actual_time"`
	StartedBy          string              `json:"started_by,omitempty"`
	CompletedBy        string              `json:"completed_by,omitempty"`
	CancellationReason string              `json:"cancellation_reason,omitempty"`
	HoldReason         string              `json:"hold_reason,omitempty"`
	ShortageNote       string              `json:"shortage_note,omitempty"`
	Items              []OrderItemResponse `json:"items"`
	RowVersion         int                 `json:"row_version"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// ToOrderResponse converts a domain order
func ToOrderResponse(o *manufacturing.ProductionOrder) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ID:                it.ID,
			ProductID:         it.ProductID,
			QuantityRequired:  it.QuantityRequired,
			QuantityReserved:  it.QuantityReserved,
			QuantityIssued:    it.QuantityIssued,
			QuantityConsumed:  it.QuantityConsumed,
			QuantityReturned:  it.QuantityReturned,
			UnitCost:          it.UnitCost,
			Status:            string(it.Status),
			ReservationHandle: it.ReservationHandle,
		})
	}
	return OrderResponse{
		ID:                 o.ID,
		Reference:          o.Reference,
		BillOfMaterialID:   o.BillOfMaterialID,
		ProductID:          o.ProductID,
		WarehouseID:        o.WarehouseID,
		QuantityToProduce:  o.QuantityToProduce,
		QuantityProduced:   o.QuantityProduced,
		QuantityScrapped:   o.QuantityScrapped,
		Status:             string(o.Status),
		Priority:           o.Priority,
		AllocationMode:     string(o.AllocationMode),
		PlannedStartDate:   o.PlannedStartDate,
		PlannedEndDate:     o.PlannedEndDate,
		ActualStartDate:    o.ActualStartDate,
		ActualEndDate:      o.ActualEndDate,
		EstimatedCost:      o.EstimatedCost,
		ActualCost:         o.ActualCost,
		EstimatedTime:      o.EstimatedTime,
		ActualTime:         o.ActualTime,
		StartedBy:          o.StartedBy,
		CompletedBy:        o.CompletedBy,
		CancellationReason: o.CancellationReason,
		HoldReason:         o.HoldReason,
		ShortageNote:       o.ShortageNote,
		Items:              items,
		RowVersion:         o.GetVersion(),
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}
