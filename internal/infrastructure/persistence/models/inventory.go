package models

import (
	"time"

	"github.com/erp/manufacturing/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentColumns is the flattened storage form of an inventory.DocumentRef
type DocumentColumns struct {
	DocumentKind   inventory.DocumentKind `gorm:"type:varchar(30);not null;default:'manual'"`
	DocumentID     int64                  `gorm:"not null;default:0;index"`
	DocumentLineID int64                  `gorm:"not null;default:0"`
	DocumentNote   string                 `gorm:"type:varchar(255)"`
}

func documentColumnsFrom(ref inventory.DocumentRef) DocumentColumns {
	cols := inventory.FlattenDocument(ref)
	return DocumentColumns{
		DocumentKind:   cols.Kind,
		DocumentID:     cols.ID,
		DocumentLineID: cols.LineID,
		DocumentNote:   cols.Note,
	}
}

// Ref rebuilds the DocumentRef; unknown kinds degrade to a manual note
func (d DocumentColumns) Ref() inventory.DocumentRef {
	ref, err := inventory.RestoreDocument(inventory.DocumentColumns{
		Kind: d.DocumentKind, ID: d.DocumentID, LineID: d.DocumentLineID, Note: d.DocumentNote,
	})
	if err != nil {
		return inventory.ManualDoc{Note: d.DocumentNote}
	}
	return ref
}

// StockBalanceModel is the persistence model for the StockBalance aggregate root.
type StockBalanceModel struct {
	AggregateModel
	ProductID        int64           `gorm:"not null;uniqueIndex:idx_stock_balance_product_warehouse,priority:1"`
	WarehouseID      int64           `gorm:"not null;uniqueIndex:idx_stock_balance_product_warehouse,priority:2"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReservedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (StockBalanceModel) TableName() string {
	return "stock_balances"
}

// ToDomain converts the persistence model to a domain StockBalance.
func (m *StockBalanceModel) ToDomain() *inventory.StockBalance {
	return &inventory.StockBalance{
		BaseAggregateRoot: m.ToAggregateRoot(),
		ProductID:         m.ProductID,
		WarehouseID:       m.WarehouseID,
		Quantity:          m.Quantity,
		ReservedQuantity:  m.ReservedQuantity,
	}
}

// FromDomain populates the persistence model from a domain StockBalance.
func (m *StockBalanceModel) FromDomain(b *inventory.StockBalance) {
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	m.ProductID = b.ProductID
	m.WarehouseID = b.WarehouseID
	m.Quantity = b.Quantity
	m.ReservedQuantity = b.ReservedQuantity
}

// StockBalanceModelFromDomain creates a new persistence model from a domain StockBalance.
func StockBalanceModelFromDomain(b *inventory.StockBalance) *StockBalanceModel {
	m := &StockBalanceModel{}
	m.FromDomain(b)
	return m
}

// ReservationModel is the persistence model for a reservation handle.
type ReservationModel struct {
	BaseModel
	Handle         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	ProductID      int64           `gorm:"not null;index:idx_reservation_product_warehouse,priority:1"`
	WarehouseID    int64           `gorm:"not null;index:idx_reservation_product_warehouse,priority:2"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantityIssued decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DocumentColumns
	Released   bool `gorm:"not null;default:false"`
	ReleasedAt *time.Time
}

// TableName returns the table name for GORM
func (ReservationModel) TableName() string {
	return "stock_reservations"
}

// ToDomain converts the persistence model to a domain Reservation.
func (m *ReservationModel) ToDomain() *inventory.Reservation {
	return &inventory.Reservation{
		BaseEntity:     m.BaseModel.ToDomain(),
		Handle:         m.Handle,
		ProductID:      m.ProductID,
		WarehouseID:    m.WarehouseID,
		Quantity:       m.Quantity,
		QuantityIssued: m.QuantityIssued,
		Document:       m.Ref(),
		Released:       m.Released,
		ReleasedAt:     m.ReleasedAt,
	}
}

// FromDomain populates the persistence model from a domain Reservation.
func (m *ReservationModel) FromDomain(r *inventory.Reservation) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.Handle = r.Handle
	m.ProductID = r.ProductID
	m.WarehouseID = r.WarehouseID
	m.Quantity = r.Quantity
	m.QuantityIssued = r.QuantityIssued
	m.DocumentColumns = documentColumnsFrom(r.Document)
	m.Released = r.Released
	m.ReleasedAt = r.ReleasedAt
}

// ReservationModelFromDomain creates a new persistence model from a domain Reservation.
func ReservationModelFromDomain(r *inventory.Reservation) *ReservationModel {
	m := &ReservationModel{}
	m.FromDomain(r)
	return m
}

// StockMovementModel is the persistence model for the append-only movement log.
type StockMovementModel struct {
	BaseModel
	ProductID     int64                  `gorm:"not null;index:idx_movement_product_warehouse,priority:1"`
	WarehouseID   int64                  `gorm:"not null;index:idx_movement_product_warehouse,priority:2"`
	MovementType  inventory.MovementType `gorm:"type:varchar(20);not null"`
	Quantity      decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	BalanceBefore decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	BalanceAfter  decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	BatchID       *int64                 `gorm:"index"`
	ReservationID *uuid.UUID             `gorm:"type:uuid"`
	DocumentColumns
	Actor      string    `gorm:"type:varchar(100)"`
	Reason     string    `gorm:"type:varchar(255)"`
	OccurredAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain converts the persistence model to a domain StockMovement.
func (m *StockMovementModel) ToDomain() *inventory.StockMovement {
	return &inventory.StockMovement{
		BaseEntity:    m.BaseModel.ToDomain(),
		ProductID:     m.ProductID,
		WarehouseID:   m.WarehouseID,
		MovementType:  m.MovementType,
		Quantity:      m.Quantity,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		BatchID:       m.BatchID,
		ReservationID: m.ReservationID,
		Document:      m.Ref(),
		Actor:         m.Actor,
		Reason:        m.Reason,
		OccurredAt:    m.OccurredAt,
	}
}

// FromDomain populates the persistence model from a domain StockMovement.
func (m *StockMovementModel) FromDomain(mv *inventory.StockMovement) {
	m.FromDomainBaseEntity(mv.BaseEntity)
	m.ProductID = mv.ProductID
	m.WarehouseID = mv.WarehouseID
	m.MovementType = mv.MovementType
	m.Quantity = mv.Quantity
	m.BalanceBefore = mv.BalanceBefore
	m.BalanceAfter = mv.BalanceAfter
	m.BatchID = mv.BatchID
	m.ReservationID = mv.ReservationID
	m.DocumentColumns = documentColumnsFrom(mv.Document)
	m.Actor = mv.Actor
	m.Reason = mv.Reason
	m.OccurredAt = mv.OccurredAt
}

// StockMovementModelFromDomain creates a new persistence model from a domain StockMovement.
func StockMovementModelFromDomain(mv *inventory.StockMovement) *StockMovementModel {
	m := &StockMovementModel{}
	m.FromDomain(mv)
	return m
}

// ProductBatchModel is the persistence model for lots and serial units.
type ProductBatchModel struct {
	AggregateModel
	ProductID         int64                   `gorm:"not null;index:idx_batch_product_warehouse,priority:1"`
	WarehouseID       int64                   `gorm:"not null;index:idx_batch_product_warehouse,priority:2"`
	Kind              inventory.BatchKind     `gorm:"type:varchar(10);not null;default:'batch'"`
	Number            string                  `gorm:"type:varchar(100);not null;index"`
	Quantity          decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	QuantityAvailable decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	QuantityAllocated decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	SerialStatus      inventory.SerialStatus  `gorm:"type:varchar(20)"`
	ExpiryDate        *time.Time              `gorm:"index"`
	ReceivedDate      time.Time               `gorm:"not null"`
	QualityStatus     inventory.QualityStatus `gorm:"type:varchar(20);not null;default:'released'"`
}

// TableName returns the table name for GORM
func (ProductBatchModel) TableName() string {
	return "product_batches"
}

// ToDomain converts the persistence model to a domain ProductBatch.
func (m *ProductBatchModel) ToDomain() *inventory.ProductBatch {
	return &inventory.ProductBatch{
		BaseAggregateRoot: m.ToAggregateRoot(),
		ProductID:         m.ProductID,
		WarehouseID:       m.WarehouseID,
		Kind:              m.Kind,
		Number:            m.Number,
		Quantity:          m.Quantity,
		QuantityAvailable: m.QuantityAvailable,
		QuantityAllocated: m.QuantityAllocated,
		SerialStatus:      m.SerialStatus,
		ExpiryDate:        m.ExpiryDate,
		ReceivedDate:      m.ReceivedDate,
		QualityStatus:     m.QualityStatus,
	}
}

// FromDomain populates the persistence model from a domain ProductBatch.
func (m *ProductBatchModel) FromDomain(b *inventory.ProductBatch) {
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	m.ProductID = b.ProductID
	m.WarehouseID = b.WarehouseID
	m.Kind = b.Kind
	m.Number = b.Number
	m.Quantity = b.Quantity
	m.QuantityAvailable = b.QuantityAvailable
	m.QuantityAllocated = b.QuantityAllocated
	m.SerialStatus = b.SerialStatus
	m.ExpiryDate = b.ExpiryDate
	m.ReceivedDate = b.ReceivedDate
	m.QualityStatus = b.QualityStatus
}

// ProductBatchModelFromDomain creates a new persistence model from a domain ProductBatch.
func ProductBatchModelFromDomain(b *inventory.ProductBatch) *ProductBatchModel {
	m := &ProductBatchModel{}
	m.FromDomain(b)
	return m
}

// InventoryModels lists the stock ledger tables for AutoMigrate in tests
func InventoryModels() []any {
	return []any{
		&ProductModel{},
		&WarehouseModel{},
		&StockBalanceModel{},
		&ReservationModel{},
		&StockMovementModel{},
		&ProductBatchModel{},
	}
}
