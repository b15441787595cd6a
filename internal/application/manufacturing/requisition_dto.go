package manufacturing

import (
	"time"

	"github.com/erp/manufacturing/internal/domain/manufacturing"
	"github.com/shopspring/decimal"
)

// RequisitionLineRequest is one requested product
type RequisitionLineRequest struct {
	ProductionOrderItemID *int64          `json:"production_order_item_id"`
	ProductID             int64           `json:"product_id" binding:"required,min=1"`
	Quantity              decimal.Decimal `json:"quantity" binding:"required,decimal_positive"`
}

// CreateRequisitionRequest creates a manual requisition. Without lines, the
// outstanding requirement of every order item is requested.
type CreateRequisitionRequest struct {
	ProductionOrderID int64                    `json:"production_order_id" binding:"required,min=1"`
	Lines             []RequisitionLineRequest `json:"lines" binding:"dive"`
}

// PickRequest records stock picked for a requisition item
type PickRequest struct {
	BatchID     *int64          `json:"batch_id"`
	BatchNumber string          `json:"batch_number" binding:"max=50"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required,decimal_positive"`
	Location    string          `json:"location" binding:"max=100"`
}

// PickResponse represents one pick
type PickResponse struct {
	ID             int64           `json:"id"`
	BatchID        *int64          `json:"batch_id,omitempty"`
	BatchNumber    string          `json:"batch_number,omitempty"`
	QuantityPicked decimal.Decimal `json:"quantity_picked"`
	Location       string          `json:"location,omitempty"`
	PickedBy       string          `json:"picked_by"`
	PickedAt       time.Time       `json:"picked_at"`
	Status         string          `json:"status"`
}

// RequisitionItemResponse represents one requisition line
type RequisitionItemResponse struct {
	ID                    int64           `json:"id"`
	ProductionOrderItemID *int64          `json:"production_order_item_id,omitempty"`
	ProductID             int64           `json:"product_id"`
	QuantityRequested     decimal.Decimal `json:"quantity_requested"`
	QuantityApproved      decimal.Decimal `json:"quantity_approved"`
	QuantityPicked        decimal.Decimal `json:"quantity_picked"`
	QuantityIssued        decimal.Decimal `json:"quantity_issued"`
	ShortageQuantity      decimal.Decimal `json:"shortage_quantity"`
	Status                string          `json:"status"`
	ShortClosed           bool            `json:"short_closed"`
	Picks                 []PickResponse  `json:"picks"`
}

// RequisitionResponse represents a material requisition
type RequisitionResponse struct {
	ID                 int64                     `json:"id"`
	Reference          string                    `json:"reference"`
	ProductionOrderID  int64                     `json:"production_order_id"`
	WarehouseID        int64                     `json:"warehouse_id"`
	Type               string                    `json:"type"`
	Status             string                    `json:"status"`
	HasShortage        bool                      `json:"has_shortage"`
	RequestedBy        string                    `json:"requested_by"`
	ApprovedBy         string                    `json:"approved_by,omitempty"`
	ApprovedAt         *time.Time                `json:"approved_at,omitempty"`
	CancellationReason string                    `json:"cancellation_reason,omitempty"`
	Items              []RequisitionItemResponse `json:"items"`
	RowVersion         int                       `json:"row_version"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

func toPickResponse(p *manufacturing.MaterialPick) PickResponse {
	return PickResponse{
		ID:             p.ID,
		BatchID:        p.BatchID,
		BatchNumber:    p.BatchNumber,
		QuantityPicked: p.QuantityPicked,
		Location:       p.Location,
		PickedBy:       p.PickedBy,
		PickedAt:       p.PickedAt,
		Status:         string(p.Status),
	}
}

// ToRequisitionResponse converts a domain requisition
func ToRequisitionResponse(r *manufacturing.MaterialRequisition) RequisitionResponse {
	items := make([]RequisitionItemResponse, 0, len(r.Items))
	for _, it := range r.Items {
		picks := make([]PickResponse, 0, len(it.Picks))
		for _, p := range it.Picks {
			picks = append(picks, toPickResponse(p))
		}
		items = append(items, RequisitionItemResponse{
			ID:                    it.ID,
			ProductionOrderItemID: it.ProductionOrderItemID,
			ProductID:             it.ProductID,
			QuantityRequested:     it.QuantityRequested,
			QuantityApproved:      it.QuantityApproved,
			QuantityPicked:        it.QuantityPicked,
			QuantityIssued:        it.QuantityIssued,
			ShortageQuantity:      it.ShortageQuantity,
			Status:                string(it.Status),
			ShortClosed:           it.ShortClosed,
			Picks:                 picks,
		})
	}
	return RequisitionResponse{
		ID:                 r.ID,
		Reference:          r.Reference,
		ProductionOrderID:  r.ProductionOrderID,
		WarehouseID:        r.WarehouseID,
		Type:               string(r.Type),
		Status:             string(r.Status),
		HasShortage:        r.HasShortage,
		RequestedBy:        r.RequestedBy,
		ApprovedBy:         r.ApprovedBy,
		ApprovedAt:         r.ApprovedAt,
		CancellationReason: r.CancellationReason,
		Items:              items,
		RowVersion:         r.GetVersion(),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}
