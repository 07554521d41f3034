package mock

// Provider is a named source of mock definitions. Supply is called once
// per pool and must not have side effects, so the same provider can seed
// any number of pools.
type Provider interface {
	Name() string
	Supply() []*Definition
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc struct {
	name string
	fn   func() []*Definition
}

// NewProvider returns a provider that calls fn on every Supply.
func NewProvider(name string, fn func() []*Definition) *ProviderFunc {
	return &ProviderFunc{name: name, fn: fn}
}

// Name returns the provider name.
func (p *ProviderFunc) Name() string { return p.name }

// Supply calls the wrapped function.
func (p *ProviderFunc) Supply() []*Definition {
	if p.fn == nil {
		return nil
	}
	return p.fn()
}

// StaticProvider supplies a fixed list of definitions. Each Supply returns
// fresh copies so pools never share definition state.
type StaticProvider struct {
	name string
	defs []*Definition
}

// Static returns a provider for a fixed set of definitions.
func Static(name string, defs ...*Definition) *StaticProvider {
	return &StaticProvider{name: name, defs: defs}
}

// Name returns the provider name.
func (p *StaticProvider) Name() string { return p.name }

// Supply returns copies of the configured definitions in order.
func (p *StaticProvider) Supply() []*Definition {
	out := make([]*Definition, 0, len(p.defs))
	for _, d := range p.defs {
		if d == nil {
			out = append(out, nil)
			continue
		}
		out = append(out, d.Clone())
	}
	return out
}
