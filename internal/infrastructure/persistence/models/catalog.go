package models

import (
	"github.com/erp/manufacturing/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the catalog Product.
type ProductModel struct {
	BaseModel
	Code           string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name           string               `gorm:"type:varchar(200);not null"`
	Unit           string               `gorm:"type:varchar(20);not null"`
	CostPrice      decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	TrackInventory bool                 `gorm:"not null"`
	TrackingMode   catalog.TrackingMode `gorm:"type:varchar(20);not null;default:'none'"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity:     m.BaseModel.ToDomain(),
		Code:           m.Code,
		Name:           m.Name,
		Unit:           m.Unit,
		CostPrice:      m.CostPrice,
		TrackInventory: m.TrackInventory,
		TrackingMode:   m.TrackingMode,
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.Code = p.Code
	m.Name = p.Name
	m.Unit = p.Unit
	m.CostPrice = p.CostPrice
	m.TrackInventory = p.TrackInventory
	m.TrackingMode = p.TrackingMode
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
