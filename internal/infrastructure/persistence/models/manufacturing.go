package models

import (
	"time"

	"github.com/erp/manufacturing/internal/domain/manufacturing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillOfMaterialModel is the persistence model for the BillOfMaterial aggregate root.
// BOMVersion holds the user-facing version label; Version is the optimistic lock counter.
type BillOfMaterialModel struct {
	AggregateModel
	Reference       string                  `gorm:"type:varchar(50);not null;uniqueIndex"`
	ProductID       int64                   `gorm:"not null;uniqueIndex:idx_bom_product_version,priority:1;uniqueIndex:idx_bom_latest,where:is_latest_version = true"`
	BOMVersion      string                  `gorm:"column:bom_version;type:varchar(20);not null;uniqueIndex:idx_bom_product_version,priority:2"`
	ParentBOMID     *int64                  `gorm:"column:parent_bom_id;index"`
	Status          manufacturing.BOMStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	IsLatestVersion bool                    `gorm:"not null;default:false"`
	IsActive        bool                    `gorm:"not null"`
	Quantity        decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Unit            string                  `gorm:"type:varchar(20)"`
	TotalCost       decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	LaborCost       decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	OverheadCost    decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	TotalBOMCost    decimal.Decimal         `gorm:"column:total_bom_cost;type:decimal(18,4);not null;default:0"`
	EffectiveDate   *time.Time
	ExpiryDate      *time.Time
	RejectionReason string `gorm:"type:varchar(500)"`
	SubmittedBy     string `gorm:"type:varchar(100)"`
	ApprovedBy      string `gorm:"type:varchar(100)"`
	ApprovedAt      *time.Time
	Items           []BOMItemModel `gorm:"foreignKey:BOMID;references:ID"`
}

// TableName returns the table name for GORM
func (BillOfMaterialModel) TableName() string {
	return "bills_of_material"
}

// ToDomain converts the persistence model to a domain BillOfMaterial.
func (m *BillOfMaterialModel) ToDomain() *manufacturing.BillOfMaterial {
	b := &manufacturing.BillOfMaterial{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Reference:         m.Reference,
		ProductID:         m.ProductID,
		Version:           m.BOMVersion,
		ParentBOMID:       m.ParentBOMID,
		Status:            m.Status,
		IsLatestVersion:   m.IsLatestVersion,
		IsActive:          m.IsActive,
		Quantity:          m.Quantity,
		Unit:              m.Unit,
		TotalCost:         m.TotalCost,
		LaborCost:         m.LaborCost,
		OverheadCost:      m.OverheadCost,
		TotalBOMCost:      m.TotalBOMCost,
		EffectiveDate:     m.EffectiveDate,
		ExpiryDate:        m.ExpiryDate,
		RejectionReason:   m.RejectionReason,
		SubmittedBy:       m.SubmittedBy,
		ApprovedBy:        m.ApprovedBy,
		ApprovedAt:        m.ApprovedAt,
		Items:             make([]*manufacturing.BOMItem, len(m.Items)),
	}
	for i := range m.Items {
		b.Items[i] = m.Items[i].ToDomain()
	}
	return b
}

// FromDomain populates the persistence model from a domain BillOfMaterial.
func (m *BillOfMaterialModel) FromDomain(b *manufacturing.BillOfMaterial) {
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	m.Reference = b.Reference
	m.ProductID = b.ProductID
	m.BOMVersion = b.Version
	m.ParentBOMID = b.ParentBOMID
	m.Status = b.Status
	m.IsLatestVersion = b.IsLatestVersion
	m.IsActive = b.IsActive
	m.Quantity = b.Quantity
	m.Unit = b.Unit
	m.TotalCost = b.TotalCost
	m.LaborCost = b.LaborCost
	m.OverheadCost = b.OverheadCost
	m.TotalBOMCost = b.TotalBOMCost
	m.EffectiveDate = b.EffectiveDate
	m.ExpiryDate = b.ExpiryDate
	m.RejectionReason = b.RejectionReason
	m.SubmittedBy = b.SubmittedBy
	m.ApprovedBy = b.ApprovedBy
	m.ApprovedAt = b.ApprovedAt
	m.Items = make([]BOMItemModel, len(b.Items))
	for i, it := range b.Items {
		m.Items[i].FromDomain(b.ID, it)
	}
}

// BillOfMaterialModelFromDomain creates a new persistence model from a domain BillOfMaterial.
func BillOfMaterialModelFromDomain(b *manufacturing.BillOfMaterial) *BillOfMaterialModel {
	m := &BillOfMaterialModel{}
	m.FromDomain(b)
	return m
}

// BOMItemModel is one row of a BOM item arena. Line is unique within its BOM
// and ParentLine points at another line of the same BOM (0 for top level).
type BOMItemModel struct {
	ID              int64                  `gorm:"primaryKey;autoIncrement"`
	BOMID           int64                  `gorm:"column:bom_id;not null;uniqueIndex:idx_bom_item_line,priority:1"`
	Line            int                    `gorm:"not null;uniqueIndex:idx_bom_item_line,priority:2"`
	ParentLine      int                    `gorm:"not null;default:0"`
	Level           int                    `gorm:"not null;default:0"`
	Sequence        int                    `gorm:"not null;default:0"`
	ProductID       int64                  `gorm:"not null;index"`
	Quantity        decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	ScrapPercentage decimal.Decimal        `gorm:"type:decimal(9,4);not null;default:0"`
	UnitCost        decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	TotalCost       decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	ItemType        manufacturing.ItemType `gorm:"type:varchar(20);not null"`
	IsOptional      bool                   `gorm:"not null;default:false"`
	IsPhantom       bool                   `gorm:"not null;default:false"`
	Notes           string                 `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (BOMItemModel) TableName() string {
	return "bill_of_material_items"
}

// ToDomain converts the persistence model to a domain BOMItem.
func (m *BOMItemModel) ToDomain() *manufacturing.BOMItem {
	return &manufacturing.BOMItem{
		ID:              m.ID,
		Line:            m.Line,
		ParentLine:      m.ParentLine,
		Level:           m.Level,
		Sequence:        m.Sequence,
		ProductID:       m.ProductID,
		Quantity:        m.Quantity,
		ScrapPercentage: m.ScrapPercentage,
		UnitCost:        m.UnitCost,
		TotalCost:       m.TotalCost,
		ItemType:        m.ItemType,
		IsOptional:      m.IsOptional,
		IsPhantom:       m.IsPhantom,
		Notes:           m.Notes,
	}
}

// FromDomain populates the persistence model from a domain BOMItem.
func (m *BOMItemModel) FromDomain(bomID int64, it *manufacturing.BOMItem) {
	m.ID = it.ID
	m.BOMID = bomID
	m.Line = it.Line
	m.ParentLine = it.ParentLine
	m.Level = it.Level
	m.Sequence = it.Sequence
	m.ProductID = it.ProductID
	m.Quantity = it.Quantity
	m.ScrapPercentage = it.ScrapPercentage
	m.UnitCost = it.UnitCost
	m.TotalCost = it.TotalCost
	m.ItemType = it.ItemType
	m.IsOptional = it.IsOptional
	m.IsPhantom = it.IsPhantom
	m.Notes = it.Notes
}

// ProductionOrderModel is the persistence model for the ProductionOrder aggregate root.
type ProductionOrderModel struct {
	AggregateModel
	Reference          string                       `gorm:"type:varchar(50);not null;uniqueIndex"`
	BillOfMaterialID   int64                        `gorm:"not null;index"`
	ProductID          int64                        `gorm:"not null;index"`
	WarehouseID        int64                        `gorm:"not null;index"`
	QuantityToProduce  decimal.Decimal              `gorm:"type:decimal(18,4);not null"`
	QuantityProduced   decimal.Decimal              `gorm:"type:decimal(18,4);not null;default:0"`
	QuantityScrapped   decimal.Decimal              `gorm:"type:decimal(18,4);not null;default:0"`
	Status             manufacturing.OrderStatus    `gorm:"type:varchar(30);not null;default:'draft';index"`
	Priority           int                          `gorm:"not null;default:0"`
	AllocationMode     manufacturing.AllocationMode `gorm:"column:material_allocation_mode;type:varchar(10);not null;default:'auto'"`
	PlannedStartDate   *time.Time
	PlannedEndDate     *time.Time
	ActualStartDate    *time.Time
	ActualEndDate      *time.Time
	EstimatedCost      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ActualCost         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	EstimatedTime      int             `gorm:"not null;default:0"`
	ActualTime         int             `gorm:"not null;default:0"`
	StartedBy          string          `gorm:"type:varchar(100)"`
	CompletedBy        string          `gorm:"type:varchar(100)"`
	CancellationReason string          `gorm:"type:varchar(500)"`
	HoldReason         string          `gorm:"type:varchar(500)"`
	ShortageNote       string          `gorm:"type:text"`
	Items              []ProductionOrderItemModel `gorm:"foreignKey:ProductionOrderID;references:ID"`
}

// TableName returns the table name for GORM
func (ProductionOrderModel) TableName() string {
	return "production_orders"
}

// ToDomain converts the persistence model to a domain ProductionOrder.
func (m *ProductionOrderModel) ToDomain() *manufacturing.ProductionOrder {
	o := &manufacturing.ProductionOrder{
		BaseAggregateRoot:  m.ToAggregateRoot(),
		Reference:          m.Reference,
		BillOfMaterialID:   m.BillOfMaterialID,
		ProductID:          m.ProductID,
		WarehouseID:        m.WarehouseID,
		QuantityToProduce:  m.QuantityToProduce,
		QuantityProduced:   m.QuantityProduced,
		QuantityScrapped:   m.QuantityScrapped,
		Status:             m.Status,
		Priority:           m.Priority,
		AllocationMode:     m.AllocationMode,
		PlannedStartDate:   m.PlannedStartDate,
		PlannedEndDate:     m.PlannedEndDate,
		ActualStartDate:    m.ActualStartDate,
		ActualEndDate:      m.ActualEndDate,
		EstimatedCost:      m.EstimatedCost,
		ActualCost:         m.ActualCost,
		EstimatedTime:      m.EstimatedTime,
		ActualTime:         m.ActualTime,
		StartedBy:          m.StartedBy,
		CompletedBy:        m.CompletedBy,
		CancellationReason: m.CancellationReason,
		HoldReason:         m.HoldReason,
		ShortageNote:       m.ShortageNote,
		Items:              make([]*manufacturing.ProductionOrderItem, len(m.Items)),
	}
	for i := range m.Items {
		o.Items[i] = m.Items[i].ToDomain()
	}
	return o
}

// FromDomain populates the persistence model from a domain ProductionOrder.
func (m *ProductionOrderModel) FromDomain(o *manufacturing.ProductionOrder) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.Reference = o.Reference
	m.BillOfMaterialID = o.BillOfMaterialID
	m.ProductID = o.ProductID
	m.WarehouseID = o.WarehouseID
	m.QuantityToProduce = o.QuantityToProduce
	m.QuantityProduced = o.QuantityProduced
	m.QuantityScrapped = o.QuantityScrapped
	m.Status = o.Status
	m.Priority = o.Priority
	m.AllocationMode = o.AllocationMode
	m.PlannedStartDate = o.PlannedStartDate
	m.PlannedEndDate = o.PlannedEndDate
	m.ActualStartDate = o.ActualStartDate
	m.ActualEndDate = o.ActualEndDate
	m.EstimatedCost = o.EstimatedCost
	m.ActualCost = o.ActualCost
	m.EstimatedTime = o.EstimatedTime
	m.ActualTime = o.ActualTime
	m.StartedBy = o.StartedBy
	m.CompletedBy = o.CompletedBy
	m.CancellationReason = o.CancellationReason
	m.HoldReason = o.HoldReason
	m.ShortageNote = o.ShortageNote
	m.Items = make([]ProductionOrderItemModel, len(o.Items))
	for i, it := range o.Items {
		m.Items[i].FromDomain(o.ID, it)
	}
}

// ProductionOrderModelFromDomain creates a new persistence model from a domain ProductionOrder.
func ProductionOrderModelFromDomain(o *manufacturing.ProductionOrder) *ProductionOrderModel {
	m := &ProductionOrderModel{}
	m.FromDomain(o)
	return m
}

// ProductionOrderItemModel is one exploded component requirement of an order.
type ProductionOrderItemModel struct {
	ID                int64                         `gorm:"primaryKey;autoIncrement"`
	ProductionOrderID int64                         `gorm:"not null;index"`
	ProductID         int64                         `gorm:"not null;index"`
	QuantityRequired  decimal.Decimal               `gorm:"type:decimal(18,4);not null"`
	QuantityReserved  decimal.Decimal               `gorm:"type:decimal(18,4);not null;default:0"`
	QuantityIssued    decimal.Decimal               `gorm:"type:decimal(18,4);not null;default:0"`
	QuantityConsumed  decimal.Decimal               `gorm:"type:decimal(18,4);not null;default:0"`
	QuantityReturned  decimal.Decimal               `gorm:"type:decimal(18,4);not null;default:0"`
	UnitCost          decimal.Decimal               `gorm:"type:decimal(18,4);not null;default:0"`
	Status            manufacturing.OrderItemStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	ReservationHandle *uuid.UUID                    `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (ProductionOrderItemModel) TableName() string {
	return "production_order_items"
}

// ToDomain converts the persistence model to a domain ProductionOrderItem.
func (m *ProductionOrderItemModel) ToDomain() *manufacturing.ProductionOrderItem {
	return &manufacturing.ProductionOrderItem{
		ID:                m.ID,
		ProductionOrderID: m.ProductionOrderID,
		ProductID:         m.ProductID,
		QuantityRequired:  m.QuantityRequired,
		QuantityReserved:  m.QuantityReserved,
		QuantityIssued:    m.QuantityIssued,
		QuantityConsumed:  m.QuantityConsumed,
		QuantityReturned:  m.QuantityReturned,
		UnitCost:          m.UnitCost,
		Status:            m.Status,
		ReservationHandle: m.ReservationHandle,
	}
}

// FromDomain populates the persistence model from a domain ProductionOrderItem.
func (m *ProductionOrderItemModel) FromDomain(orderID int64, it *manufacturing.ProductionOrderItem) {
	m.ID = it.ID
	m.ProductionOrderID = orderID
	m.ProductID = it.ProductID
	m.QuantityRequired = it.QuantityRequired
	m.QuantityReserved = it.QuantityReserved
	m.QuantityIssued = it.QuantityIssued
	m.QuantityConsumed = it.QuantityConsumed
	m.QuantityReturned = it.QuantityReturned
	m.UnitCost = it.UnitCost
	m.Status = it.Status
	m.ReservationHandle = it.ReservationHandle
}

// MaterialRequisitionModel is the persistence model for the MaterialRequisition aggregate root.
type MaterialRequisitionModel struct {
	AggregateModel
	Reference          string                          `gorm:"type:varchar(50);not null;uniqueIndex"`
	ProductionOrderID  int64                           `gorm:"not null;index"`
	WarehouseID        int64                           `gorm:"not null"`
	Type               manufacturing.RequisitionType   `gorm:"type:varchar(20);not null"`
	Status             manufacturing.RequisitionStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	HasShortage        bool                            `gorm:"not null;default:false"`
	RequestedBy        string                          `gorm:"type:varchar(100)"`
	ApprovedBy         string                          `gorm:"type:varchar(100)"`
	ApprovedAt         *time.Time
	CancellationReason string                         `gorm:"type:varchar(500)"`
	Items              []MaterialRequisitionItemModel `gorm:"foreignKey:RequisitionID;references:ID"`
}

// TableName returns the table name for GORM
func (MaterialRequisitionModel) TableName() string {
	return "material_requisitions"
}

// ToDomain converts the persistence model to a domain MaterialRequisition.
func (m *MaterialRequisitionModel) ToDomain() *manufacturing.MaterialRequisition {
	r := &manufacturing.MaterialRequisition{
		BaseAggregateRoot:  m.ToAggregateRoot(),
		Reference:          m.Reference,
		ProductionOrderID:  m.ProductionOrderID,
		WarehouseID:        m.WarehouseID,
		Type:               m.Type,
		Status:             m.Status,
		HasShortage:        m.HasShortage,
		RequestedBy:        m.RequestedBy,
		ApprovedBy:         m.ApprovedBy,
		ApprovedAt:         m.ApprovedAt,
		CancellationReason: m.CancellationReason,
		Items:              make([]*manufacturing.MaterialRequisitionItem, len(m.Items)),
	}
	for i := range m.Items {
		r.Items[i] = m.Items[i].ToDomain()
	}
	return r
}

// FromDomain populates the persistence model from a domain MaterialRequisition.
func (m *MaterialRequisitionModel) FromDomain(r *manufacturing.MaterialRequisition) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.Reference = r.Reference
	m.ProductionOrderID = r.ProductionOrderID
	m.WarehouseID = r.WarehouseID
	m.Type = r.Type
	m.Status = r.Status
	m.HasShortage = r.HasShortage
	m.RequestedBy = r.RequestedBy
	m.ApprovedBy = r.ApprovedBy
	m.ApprovedAt = r.ApprovedAt
	m.CancellationReason = r.CancellationReason
	m.Items = make([]MaterialRequisitionItemModel, len(r.Items))
	for i, it := range r.Items {
		m.Items[i].FromDomain(r.ID, it)
	}
}

// MaterialRequisitionModelFromDomain creates a new persistence model from a domain MaterialRequisition.
func MaterialRequisitionModelFromDomain(r *manufacturing.MaterialRequisition) *MaterialRequisitionModel {
	m := &MaterialRequisitionModel{}
	m.FromDomain(r)
	return m
}

// MaterialRequisitionItemModel is one requested component with its picks.
type MaterialRequisitionItemModel struct {
	ID                    int64                               `gorm:"primaryKey;autoIncrement"`
	RequisitionID         int64                               `gorm:"not null;index"`
	ProductionOrderItemID *int64                              `gorm:"index"`
	ProductID             int64                               `gorm:"not null"`
	QuantityRequested     decimal.Decimal                     `gorm:"type:decimal(18,4);not null"`
	QuantityApproved      decimal.Decimal                     `gorm:"type:decimal(18,4);not null;default:0"`
	QuantityPicked        decimal.Decimal                     `gorm:"type:decimal(18,4);not null;default:0"`
	QuantityIssued        decimal.Decimal                     `gorm:"type:decimal(18,4);not null;default:0"`
	ShortageQuantity      decimal.Decimal                     `gorm:"type:decimal(18,4);not null;default:0"`
	Status                manufacturing.RequisitionItemStatus `gorm:"type:varchar(20);not null"`
	ShortClosed           bool                                `gorm:"not null;default:false"`
	Picks                 []MaterialPickModel                 `gorm:"foreignKey:RequisitionItemID;references:ID"`
}

// TableName returns the table name for GORM
func (MaterialRequisitionItemModel) TableName() string {
	return "material_requisition_items"
}

// ToDomain converts the persistence model to a domain MaterialRequisitionItem.
func (m *MaterialRequisitionItemModel) ToDomain() *manufacturing.MaterialRequisitionItem {
	it := &manufacturing.MaterialRequisitionItem{
		ID:                    m.ID,
		RequisitionID:         m.RequisitionID,
		ProductionOrderItemID: m.ProductionOrderItemID,
		ProductID:             m.ProductID,
		QuantityRequested:     m.QuantityRequested,
		QuantityApproved:      m.QuantityApproved,
		QuantityPicked:        m.QuantityPicked,
		QuantityIssued:        m.QuantityIssued,
		ShortageQuantity:      m.ShortageQuantity,
		Status:                m.Status,
		ShortClosed:           m.ShortClosed,
		Picks:                 make([]*manufacturing.MaterialPick, len(m.Picks)),
	}
	for i := range m.Picks {
		it.Picks[i] = m.Picks[i].ToDomain()
	}
	return it
}

// FromDomain populates the persistence model from a domain MaterialRequisitionItem.
func (m *MaterialRequisitionItemModel) FromDomain(requisitionID int64, it *manufacturing.MaterialRequisitionItem) {
	m.ID = it.ID
	m.RequisitionID = requisitionID
	m.ProductionOrderItemID = it.ProductionOrderItemID
	m.ProductID = it.ProductID
	m.QuantityRequested = it.QuantityRequested
	m.QuantityApproved = it.QuantityApproved
	m.QuantityPicked = it.QuantityPicked
	m.QuantityIssued = it.QuantityIssued
	m.ShortageQuantity = it.ShortageQuantity
	m.Status = it.Status
	m.ShortClosed = it.ShortClosed
	m.Picks = make([]MaterialPickModel, len(it.Picks))
	for i, p := range it.Picks {
		m.Picks[i].FromDomain(it.ID, p)
	}
}

// MaterialPickModel is stock taken from a batch for a requisition item.
type MaterialPickModel struct {
	ID                int64                    `gorm:"primaryKey;autoIncrement"`
	RequisitionItemID int64                    `gorm:"not null;index"`
	BatchID           *int64                   `gorm:"index"`
	BatchNumber       string                   `gorm:"type:varchar(100)"`
	QuantityPicked    decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Location          string                   `gorm:"type:varchar(100)"`
	PickedBy          string                   `gorm:"type:varchar(100)"`
	PickedAt          time.Time                `gorm:"not null"`
	Status            manufacturing.PickStatus `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (MaterialPickModel) TableName() string {
	return "material_picks"
}

// ToDomain converts the persistence model to a domain MaterialPick.
func (m *MaterialPickModel) ToDomain() *manufacturing.MaterialPick {
	return &manufacturing.MaterialPick{
		ID:                m.ID,
		RequisitionItemID: m.RequisitionItemID,
		BatchID:           m.BatchID,
		BatchNumber:       m.BatchNumber,
		QuantityPicked:    m.QuantityPicked,
		Location:          m.Location,
		PickedBy:          m.PickedBy,
		PickedAt:          m.PickedAt,
		Status:            m.Status,
	}
}

// FromDomain populates the persistence model from a domain MaterialPick.
func (m *MaterialPickModel) FromDomain(itemID int64, p *manufacturing.MaterialPick) {
	m.ID = p.ID
	m.RequisitionItemID = itemID
	m.BatchID = p.BatchID
	m.BatchNumber = p.BatchNumber
	m.QuantityPicked = p.QuantityPicked
	m.Location = p.Location
	m.PickedBy = p.PickedBy
	m.PickedAt = p.PickedAt
	m.Status = p.Status
}

// ProductionScheduleModel is the persistence model for a schedule entry.
type ProductionScheduleModel struct {
	AggregateModel
	Reference          string                       `gorm:"type:varchar(50);not null;uniqueIndex"`
	ProductionOrderID  int64                        `gorm:"not null;index"`
	WorkCenterID       int64                        `gorm:"not null;index:idx_schedule_work_center_window,priority:1"`
	Operation          string                       `gorm:"type:varchar(100)"`
	Sequence           int                          `gorm:"not null;default:0"`
	Status             manufacturing.ScheduleStatus `gorm:"type:varchar(20);not null;default:'scheduled'"`
	HeldFrom           manufacturing.ScheduleStatus `gorm:"type:varchar(20)"`
	ScheduledStart     time.Time                    `gorm:"not null;index:idx_schedule_work_center_window,priority:2"`
	ScheduledEnd       time.Time                    `gorm:"not null"`
	ActualStart        *time.Time
	ActualEnd          *time.Time
	QuantityScheduled  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantityCompleted  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	QuantityScrapped   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	HasConflict        bool            `gorm:"not null;default:false;index"`
	ConflictDetails    string          `gorm:"type:text"`
	HoldReason         string          `gorm:"type:varchar(500)"`
	CancellationReason string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ProductionScheduleModel) TableName() string {
	return "production_schedules"
}

// ToDomain converts the persistence model to a domain ProductionSchedule.
func (m *ProductionScheduleModel) ToDomain() *manufacturing.ProductionSchedule {
	return &manufacturing.ProductionSchedule{
		BaseAggregateRoot:  m.ToAggregateRoot(),
		Reference:          m.Reference,
		ProductionOrderID:  m.ProductionOrderID,
		WorkCenterID:       m.WorkCenterID,
		Operation:          m.Operation,
		Sequence:           m.Sequence,
		Status:             m.Status,
		HeldFrom:           m.HeldFrom,
		ScheduledStart:     m.ScheduledStart,
		ScheduledEnd:       m.ScheduledEnd,
		ActualStart:        m.ActualStart,
		ActualEnd:          m.ActualEnd,
		QuantityScheduled:  m.QuantityScheduled,
		QuantityCompleted:  m.QuantityCompleted,
		QuantityScrapped:   m.QuantityScrapped,
		HasConflict:        m.HasConflict,
		ConflictDetails:    m.ConflictDetails,
		HoldReason:         m.HoldReason,
		CancellationReason: m.CancellationReason,
	}
}

// FromDomain populates the persistence model from a domain ProductionSchedule.
func (m *ProductionScheduleModel) FromDomain(s *manufacturing.ProductionSchedule) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.Reference = s.Reference
	m.ProductionOrderID = s.ProductionOrderID
	m.WorkCenterID = s.WorkCenterID
	m.Operation = s.Operation
	m.Sequence = s.Sequence
	m.Status = s.Status
	m.HeldFrom = s.HeldFrom
	m.ScheduledStart = s.ScheduledStart
	m.ScheduledEnd = s.ScheduledEnd
	m.ActualStart = s.ActualStart
	m.ActualEnd = s.ActualEnd
	m.QuantityScheduled = s.QuantityScheduled
	m.QuantityCompleted = s.QuantityCompleted
	m.QuantityScrapped = s.QuantityScrapped
	m.HasConflict = s.HasConflict
	m.ConflictDetails = s.ConflictDetails
	m.HoldReason = s.HoldReason
	m.CancellationReason = s.CancellationReason
}

// ProductionScheduleModelFromDomain creates a new persistence model from a domain ProductionSchedule.
func ProductionScheduleModelFromDomain(s *manufacturing.ProductionSchedule) *ProductionScheduleModel {
	m := &ProductionScheduleModel{}
	m.FromDomain(s)
	return m
}

// WorkCenterModel is the persistence model for a work center.
type WorkCenterModel struct {
	AggregateModel
	Code                  string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name                  string          `gorm:"type:varchar(100);not null"`
	CapacityPerDay        int             `gorm:"not null"`
	EfficiencyPercentage  decimal.Decimal `gorm:"type:decimal(5,2);not null;default:100"`
	UtilizationPercentage decimal.Decimal `gorm:"type:decimal(7,2);not null;default:0"`
	SetupMinutes          int             `gorm:"not null;default:0"`
	TeardownMinutes       int             `gorm:"not null;default:0"`
	MinBatchSize          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MaxBatchSize          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	IsActive              bool            `gorm:"not null"`
	IsAvailable           bool            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WorkCenterModel) TableName() string {
	return "work_centers"
}

// ToDomain converts the persistence model to a domain WorkCenter.
func (m *WorkCenterModel) ToDomain() *manufacturing.WorkCenter {
	return &manufacturing.WorkCenter{
		BaseAggregateRoot:     m.ToAggregateRoot(),
		Code:                  m.Code,
		Name:                  m.Name,
		CapacityPerDay:        m.CapacityPerDay,
		EfficiencyPercentage:  m.EfficiencyPercentage,
		UtilizationPercentage: m.UtilizationPercentage,
		SetupMinutes:          m.SetupMinutes,
		TeardownMinutes:       m.TeardownMinutes,
		MinBatchSize:          m.MinBatchSize,
		MaxBatchSize:          m.MaxBatchSize,
		IsActive:              m.IsActive,
		IsAvailable:           m.IsAvailable,
	}
}

// FromDomain populates the persistence model from a domain WorkCenter.
func (m *WorkCenterModel) FromDomain(w *manufacturing.WorkCenter) {
	m.FromDomainAggregateRoot(w.BaseAggregateRoot)
	m.Code = w.Code
	m.Name = w.Name
	m.CapacityPerDay = w.CapacityPerDay
	m.EfficiencyPercentage = w.EfficiencyPercentage
	m.UtilizationPercentage = w.UtilizationPercentage
	m.SetupMinutes = w.SetupMinutes
	m.TeardownMinutes = w.TeardownMinutes
	m.MinBatchSize = w.MinBatchSize
	m.MaxBatchSize = w.MaxBatchSize
	m.IsActive = w.IsActive
	m.IsAvailable = w.IsAvailable
}

// WorkCenterModelFromDomain creates a new persistence model from a domain WorkCenter.
func WorkCenterModelFromDomain(w *manufacturing.WorkCenter) *WorkCenterModel {
	m := &WorkCenterModel{}
	m.FromDomain(w)
	return m
}

// ManufacturingModels lists the manufacturing tables for AutoMigrate in tests
func ManufacturingModels() []any {
	return []any{
		&BillOfMaterialModel{},
		&BOMItemModel{},
		&ProductionOrderModel{},
		&ProductionOrderItemModel{},
		&MaterialRequisitionModel{},
		&MaterialRequisitionItemModel{},
		&MaterialPickModel{},
		&ProductionScheduleModel{},
		&WorkCenterModel{},
	}
}
