package models

import (
	"github.com/erp/manufacturing/internal/domain/partner"
)

// WarehouseModel is the persistence model for the Warehouse referenced by the ledger.
type WarehouseModel struct {
	BaseModel
	Code            string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name            string `gorm:"type:varchar(100);not null"`
	IsActive        bool   `gorm:"not null"`
	AcceptsInbound  bool   `gorm:"not null"`
	AcceptsOutbound bool   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WarehouseModel) TableName() string {
	return "warehouses"
}

// ToDomain converts the persistence model to a domain Warehouse entity.
func (m *WarehouseModel) ToDomain() *partner.Warehouse {
	return &partner.Warehouse{
		BaseEntity:      m.BaseModel.ToDomain(),
		Code:            m.Code,
		Name:            m.Name,
		IsActive:        m.IsActive,
		AcceptsInbound:  m.AcceptsInbound,
		AcceptsOutbound: m.AcceptsOutbound,
	}
}

// FromDomain populates the persistence model from a domain Warehouse entity.
func (m *WarehouseModel) FromDomain(w *partner.Warehouse) {
	m.FromDomainBaseEntity(w.BaseEntity)
	m.Code = w.Code
	m.Name = w.Name
	m.IsActive = w.IsActive
	m.AcceptsInbound = w.AcceptsInbound
	m.AcceptsOutbound = w.AcceptsOutbound
}

// WarehouseModelFromDomain creates a new persistence model from a domain Warehouse entity.
func WarehouseModelFromDomain(w *partner.Warehouse) *WarehouseModel {
	m := &WarehouseModel{}
	m.FromDomain(w)
	return m
}
