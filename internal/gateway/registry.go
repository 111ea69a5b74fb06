package gateway

import (
	"errors"
	"fmt"
)

// ErrUnsupportedProvider indicates a gateway account names a provider no
// adapter is registered for.
var ErrUnsupportedProvider = errors.New("unsupported payment provider")

// Registry resolves a provider name to its adapter. Pure lookup, no state
// beyond the immutable table built at construction.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry over the given adapters.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Resolve returns the adapter registered for name.
func (r *Registry) Resolve(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
	}
	return p, nil
}
