package manufacturing

import "github.com/erp/manufacturing/internal/domain/shared/strategy"

// ExplosionPolicy decides how BOM lines are walked by explode and cost rollup
type ExplosionPolicy interface {
	strategy.Strategy
	// Expand reports whether a line is flattened into its own components
	Expand(item *BOMItem) bool
	// Include reports whether a line takes part in the explosion at all
	Include(item *BOMItem) bool
}

// PhantomPolicy flattens phantom lines and keeps every other line as is
type PhantomPolicy struct {
	strategy.Base
}

// NewPhantomPolicy creates the default explosion policy
func NewPhantomPolicy() *PhantomPolicy {
	return &PhantomPolicy{
		Base: strategy.NewBase("phantom", strategy.KindExplosion),
	}
}

// Expand implements ExplosionPolicy
func (p *PhantomPolicy) Expand(item *BOMItem) bool {
	return item.IsPhantom
}

// Include implements ExplosionPolicy
func (p *PhantomPolicy) Include(*BOMItem) bool {
	return true
}

// RequiredOnlyPolicy behaves like PhantomPolicy but drops optional lines
type RequiredOnlyPolicy struct {
	strategy.Base
}

// NewRequiredOnlyPolicy creates a policy that skips optional lines
func NewRequiredOnlyPolicy() *RequiredOnlyPolicy {
	return &RequiredOnlyPolicy{
		Base: strategy.NewBase("required_only", strategy.KindExplosion),
	}
}

// Expand implements ExplosionPolicy
func (p *RequiredOnlyPolicy) Expand(item *BOMItem) bool {
	return item.IsPhantom
}

// Include implements ExplosionPolicy
func (p *RequiredOnlyPolicy) Include(item *BOMItem) bool {
	return !item.IsOptional
}
