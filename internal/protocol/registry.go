package protocol

import "github.com/nao1215/hathi/internal/model"

// Registry holds one adapter per service type.
type Registry struct {
	adapters map[model.ServiceType]Adapter
}

// NewRegistry creates a registry with the PostgreSQL, SQL Server and MySQL
// adapters, all configured with opts.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{adapters: make(map[model.ServiceType]Adapter)}
	r.Register(NewPostgresAdapter(opts...))
	r.Register(NewMSSQLAdapter(opts...))
	r.Register(NewMySQLAdapter(opts...))
	return r
}

// Register adds or replaces the adapter for a's service type.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Type()] = a
}

// Lookup returns the adapter for t.
func (r *Registry) Lookup(t model.ServiceType) (Adapter, bool) {
	a, ok := r.adapters[t]
	return a, ok
}

// Types returns the registered service types in model.AllServiceTypes order.
func (r *Registry) Types() []model.ServiceType {
	types := make([]model.ServiceType, 0, len(r.adapters))
	for _, t := range model.AllServiceTypes() {
		if _, ok := r.adapters[t]; ok {
			types = append(types, t)
		}
	}
	return types
}

// Adapters returns the adapters for types, skipping unregistered ones.
// With no arguments every registered adapter is returned.
func (r *Registry) Adapters(types ...model.ServiceType) []Adapter {
	if len(types) == 0 {
		types = r.Types()
	}
	out := make([]Adapter, 0, len(types))
	for _, t := range types {
		if a, ok := r.adapters[t]; ok {
			out = append(out, a)
		}
	}
	return out
}
