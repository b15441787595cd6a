package manufacturing

import (
	"context"

	appinventory "github.com/erp/manufacturing/internal/application/inventory"
	"github.com/erp/manufacturing/internal/domain/catalog"
	"github.com/erp/manufacturing/internal/domain/inventory"
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Reference prefixes
const (
	PrefixBOM         = "BOM"
	PrefixOrder       = "PRO"
	PrefixRequisition = "MR"
	PrefixSchedule    = "PS"
)

// ReferenceGenerator hands out human-readable document codes such as BOM-20250101-0001
type ReferenceGenerator interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// Settings carries the manufacturing tunables from configuration
type Settings struct {
	// OverproductionTolerance is the fraction produced+scrapped may exceed the order quantity by
	OverproductionTolerance decimal.Decimal
	Retry                   appinventory.RetryPolicy
	BatchSelection          string
}

// DefaultSettings returns zero tolerance and the default retry policy
func DefaultSettings() Settings {
	return Settings{
		OverproductionTolerance: decimal.Zero,
		Retry:                   appinventory.DefaultRetryPolicy(),
		BatchSelection:          "fefo",
	}
}

// Dependencies bundles what every manufacturing service needs
type Dependencies struct {
	Scope      TransactionScope
	References ReferenceGenerator
	Publisher  shared.EventPublisher
	Settings   Settings
	Logger     *zap.Logger
}

func (d Dependencies) runner() *runner {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &runner{
		scope:     d.Scope,
		selector:  inventory.SelectorByName(d.Settings.BatchSelection),
		retry:     d.Settings.Retry,
		publisher: d.Publisher,
		logger:    logger,
	}
}

// catalogPrices adapts the product catalog to manufacturing.PriceSource
type catalogPrices struct {
	products catalog.ProductReader
}

func (p catalogPrices) CostPrice(ctx context.Context, productID int64) (decimal.Decimal, error) {
	product, err := p.products.FindByID(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return product.CostPrice, nil
}
