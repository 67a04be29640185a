package models

// Collection names of the POS domain. Business modules write records into
// these through the repository; the sync engine treats them uniformly.
const (
	CollectionItems        = "items"
	CollectionTransactions = "transactions"
	CollectionCustomers    = "customers"
	CollectionSettings     = "settings"
)

// Registry validates collection names at startup instead of at each call.
type Registry struct {
	names map[string]struct{}
	order []string
}

// NewRegistry builds a registry over the given collection names.
func NewRegistry(names ...string) *Registry {
	r := &Registry{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if _, ok := r.names[n]; ok {
			continue
		}
		r.names[n] = struct{}{}
		r.order = append(r.order, n)
	}
	return r
}

// DefaultRegistry returns the registry of all POS collections.
func DefaultRegistry() *Registry {
	return NewRegistry(CollectionItems, CollectionTransactions, CollectionCustomers, CollectionSettings)
}

// Known reports whether name is a registered collection.
func (r *Registry) Known(name string) bool {
	_, ok := r.names[name]
	return ok
}

// Names returns the registered collection names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
