package manufacturing

import (
	"time"

	"github.com/erp/manufacturing/internal/domain/manufacturing"
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BOMItemRequest describes one line of a bill of material.
// ParentLine refers to the Line of an item earlier in the same request, or an existing line on update.
type BOMItemRequest struct {
	ProductID       int64           `json:"product_id" binding:"required,min=1"`
	Line            int             `json:"line" binding:"min=0"`
	ParentLine      int             `json:"parent_line" binding:"min=0"`
	Sequence        int             `json:"sequence"`
	Quantity        decimal.Decimal `json:"quantity" binding:"required,decimal_positive"`
	ScrapPercentage decimal.Decimal `json:"scrap_percentage"`
	ItemType        string          `json:"item_type" binding:"required,oneof=component raw_material sub_assembly"`
	IsOptional      bool            `json:"is_optional"`
	IsPhantom       bool            `json:"is_phantom"`
	Notes           string          `json:"notes" binding:"max=500"`
}

func (r BOMItemRequest) toSpec() manufacturing.ItemSpec {
	return manufacturing.ItemSpec{
		ProductID:       r.ProductID,
		ParentLine:      r.ParentLine,
		Sequence:        r.Sequence,
		Quantity:        r.Quantity,
		ScrapPercentage: r.ScrapPercentage,
		ItemType:        manufacturing.ItemType(r.ItemType),
		IsOptional:      r.IsOptional,
		IsPhantom:       r.IsPhantom,
		Notes:           r.Notes,
	}
}

// CreateBOMRequest creates a draft bill of material
type CreateBOMRequest struct {
	ProductID     int64            `json:"product_id" binding:"required,min=1"`
	Version       string           `json:"version" binding:"required,min=1,max=20"`
	Quantity      decimal.Decimal  `json:"quantity" binding:"required,decimal_positive"`
	Unit          string           `json:"unit" binding:"max=20"`
	LaborCost     decimal.Decimal  `json:"labor_cost"`
	OverheadCost  decimal.Decimal  `json:"overhead_cost"`
	EffectiveDate *time.Time       `json:"effective_date"`
	ExpiryDate    *time.Time       `json:"expiry_date"`
	Items         []BOMItemRequest `json:"items" binding:"dive"`
}

// UpdateBOMCostsRequest changes labor and overhead on a draft
type UpdateBOMCostsRequest struct {
	LaborCost     decimal.Decimal `json:"labor_cost"`
	OverheadCost  decimal.Decimal `json:"overhead_cost"`
	EffectiveDate *time.Time      `json:"effective_date"`
	ExpiryDate    *time.Time      `json:"expiry_date"`
}

// MoveBOMItemRequest re-parents a line
type MoveBOMItemRequest struct {
	ParentLine int `json:"parent_line" binding:"min=0"`
}

// NewBOMVersionRequest copies a BOM into a new draft version
type NewBOMVersionRequest struct {
	Version string `json:"version" binding:"required,min=1,max=20"`
}

// ReasonRequest carries a mandatory free-text reason
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// ExplodeBOMRequest asks for the flattened requirements of a quantity
type ExplodeBOMRequest struct {
	Quantity     decimal.Decimal `json:"quantity" binding:"required,decimal_positive"`
	RequiredOnly bool            `json:"required_only"`
}

// BOMListFilter filters the BOM list
type BOMListFilter struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	ProductID int64  `form:"product_id"`
	Status    string `form:"status" binding:"omitempty,oneof=draft pending_approval approved rejected obsolete"`
}

func (f BOMListFilter) toDomain() shared.Filter {
	filter := listFilter(f.Page, f.PageSize)
	if f.ProductID > 0 {
		filter.Filters["product_id"] = f.ProductID
	}
	if f.Status != "" {
		filter.Filters["status"] = f.Status
	}
	return filter
}

func listFilter(page, pageSize int) shared.Filter {
	filter := shared.DefaultFilter()
	if page > 0 {
		filter.Page = page
	}
	if pageSize > 0 {
		filter.PageSize = pageSize
	}
	return filter
}

// BOMItemResponse represents a BOM line
type BOMItemResponse struct {
	ID              int64           `json:"id"`
	Line            int             `json:"line"`
	ParentLine      int             `json:"parent_line"`
	Level           int             `json:"level"`
	Sequence        int             `json:"sequence"`
	ProductID       int64           `json:"product_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	ScrapPercentage decimal.Decimal `json:"scrap_percentage"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	ItemType        string          `json:"item_type"`
	IsOptional      bool            `json:"is_optional"`
	IsPhantom       bool            `json:"is_phantom"`
	Notes           string          `json:"notes,omitempty"`
}

// BOMResponse represents a bill of material
type BOMResponse struct {
	ID              int64             `json:"id"`
	Reference       string            `json:"reference"`
	ProductID       int64             `json:"product_id"`
	Version         string            `json:"version"`
	ParentBOMID     *int64            `json:"parent_bom_id,omitempty"`
	Status          string            `json:"status"`
	IsLatestVersion bool              `json:"is_latest_version"`
	IsActive        bool              `json:"is_active"`
	Quantity        decimal.Decimal   `json:"quantity"`
	Unit            string            `json:"unit"`
	TotalCost       decimal.Decimal   `json:"total_cost"`
	LaborCost       decimal.Decimal   `json:"labor_cost"`
	OverheadCost    decimal.Decimal   `json:"overhead_cost"`
	TotalBOMCost    decimal.Decimal   `json:"total_bom_cost"`
	EffectiveDate   *time.Time        `json:"effective_date,omitempty"`
	ExpiryDate      *time.Time        `json:"expiry_date,omitempty"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
	ApprovedBy      string            `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time        `json:"approved_at,omitempty"`
	Items           []BOMItemResponse `json:"items"`
	RowVersion      int               `json:"row_version"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ToBOMResponse converts a domain BOM
func ToBOMResponse(b *manufacturing.BillOfMaterial) BOMResponse {
	items := make([]BOMItemResponse, 0, len(b.Items))
	for _, it := range b.Items {
		items = append(items, BOMItemResponse{
			ID:              it.ID,
			Line:            it.Line,
			ParentLine:      it.ParentLine,
			Level:           it.Level,
			Sequence:        it.Sequence,
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			ScrapPercentage: it.ScrapPercentage,
			UnitCost:        it.UnitCost,
			TotalCost:       it.TotalCost,
			ItemType:        string(it.ItemType),
			IsOptional:      it.IsOptional,
			IsPhantom:       it.IsPhantom,
			Notes:           it.Notes,
		})
	}
	return BOMResponse{
		ID:              b.ID,
		Reference:       b.Reference,
		ProductID:       b.ProductID,
		Version:         b.Version,
		ParentBOMID:     b.ParentBOMID,
		Status:          string(b.Status),
		IsLatestVersion: b.IsLatestVersion,
		IsActive:        b.IsActive,
		Quantity:        b.Quantity,
		Unit:            b.Unit,
		TotalCost:       b.TotalCost,
		LaborCost:       b.LaborCost,
		OverheadCost:    b.OverheadCost,
		TotalBOMCost:    b.TotalBOMCost,
		EffectiveDate:   b.EffectiveDate,
		ExpiryDate:      b.ExpiryDate,
		RejectionReason: b.RejectionReason,
		ApprovedBy:      b.ApprovedBy,
		ApprovedAt:      b.ApprovedAt,
		Items:           items,
		RowVersion:      b.GetVersion(),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

// RequirementResponse is one exploded component total
type RequirementResponse struct {
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

func toRequirementResponses(reqs []manufacturing.Requirement) []RequirementResponse {
	out := make([]RequirementResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, RequirementResponse{ProductID: r.ProductID, Quantity: r.Quantity, UnitCost: r.UnitCost})
	}
	return out
}
