package catalog

import "context"

// ProductReader gives read access to catalog products
type ProductReader interface {
	FindByID(ctx context.Context, id int64) (*Product, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]*Product, error)
}

// ProductRepository extends ProductReader with persistence used for seeding and tests
type ProductRepository interface {
	ProductReader
	Save(ctx context.Context, product *Product) error
}
