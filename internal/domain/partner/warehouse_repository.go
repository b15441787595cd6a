package partner

import "context"

// WarehouseReader gives read access to warehouses
type WarehouseReader interface {
	FindByID(ctx context.Context, id int64) (*Warehouse, error)
}

// WarehouseRepository extends WarehouseReader with persistence used for seeding and tests
type WarehouseRepository interface {
	WarehouseReader
	Save(ctx context.Context, warehouse *Warehouse) error
}
