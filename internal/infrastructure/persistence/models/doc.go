// Package models holds the GORM rows behind the domain aggregates. Domain
// types carry no ORM tags; each model converts with ToDomain and FromDomain.
//
//   - base.go: BaseModel and AggregateModel (optimistic version column)
//   - catalog.go, partner.go: read-side product and warehouse rows
//   - inventory.go: balances, reservations, movements and batches
//   - manufacturing.go: BOMs, production orders, requisitions, work centers and schedules
package models
