// Package strategy names the pluggable policies of the engine: how batches
// are drawn on issue and how a BOM is flattened on explosion.
package strategy

// Kind groups strategies that can replace one another
type Kind string

const (
	KindBatch     Kind = "batch"
	KindExplosion Kind = "explosion"
)

// Strategy is implemented by every policy. Name is the value used in
// configuration, e.g. "fefo".
type Strategy interface {
	Name() string
	Kind() Kind
}

// Base is embedded by policies to satisfy Strategy
type Base struct {
	name string
	kind Kind
}

// NewBase creates a Base
func NewBase(name string, kind Kind) Base {
	return Base{name: name, kind: kind}
}

func (b Base) Name() string { return b.name }

func (b Base) Kind() Kind { return b.kind }
