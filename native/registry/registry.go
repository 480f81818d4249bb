// Package registry is the directory mapping addresses to the tokens, price
// feeds, rate models and callback handlers a ledger interacts with.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"isoledger/crypto"
	"isoledger/native/lending"
)

var (
	ErrZeroAddress       = errors.New("registry: zero address")
	ErrAlreadyRegistered = errors.New("registry: address already registered")
)

// Registry implements lending.Resolver. Each address holds at most one
// entry of each kind.
type Registry struct {
	mu         sync.RWMutex
	tokens     map[crypto.Address]lending.Token
	oracles    map[crypto.Address]lending.Oracle
	rateModels map[crypto.Address]lending.RateModel
	contracts  map[crypto.Address]any
	labels     map[crypto.Address]string
}

var _ lending.Resolver = (*Registry)(nil)

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		tokens:     make(map[crypto.Address]lending.Token),
		oracles:    make(map[crypto.Address]lending.Oracle),
		rateModels: make(map[crypto.Address]lending.RateModel),
		contracts:  make(map[crypto.Address]any),
		labels:     make(map[crypto.Address]string),
	}
}

func register[T any](r *Registry, entries map[crypto.Address]T, addr crypto.Address, label string, value T) error {
	if addr.IsZero() {
		return ErrZeroAddress
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := entries[addr]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, addr)
	}
	entries[addr] = value
	if label != "" {
		r.labels[addr] = label
	}
	return nil
}

func lookup[T any](r *Registry, entries map[crypto.Address]T, addr crypto.Address) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := entries[addr]
	return v, ok
}

// RegisterToken binds a token to addr.
func (r *Registry) RegisterToken(addr crypto.Address, label string, t lending.Token) error {
	return register(r, r.tokens, addr, label, t)
}

// RegisterOracle binds a price feed to addr.
func (r *Registry) RegisterOracle(addr crypto.Address, label string, o lending.Oracle) error {
	return register(r, r.oracles, addr, label, o)
}

// RegisterRateModel binds a rate model to addr.
func (r *Registry) RegisterRateModel(addr crypto.Address, label string, m lending.RateModel) error {
	return register(r, r.rateModels, addr, label, m)
}

// RegisterContract binds a callback handler to addr.
func (r *Registry) RegisterContract(addr crypto.Address, label string, c any) error {
	return register(r, r.contracts, addr, label, c)
}

// Token implements lending.Resolver.
func (r *Registry) Token(addr crypto.Address) (lending.Token, bool) {
	return lookup(r, r.tokens, addr)
}

// Oracle implements lending.Resolver.
func (r *Registry) Oracle(addr crypto.Address) (lending.Oracle, bool) {
	return lookup(r, r.oracles, addr)
}

// RateModel implements lending.Resolver.
func (r *Registry) RateModel(addr crypto.Address) (lending.RateModel, bool) {
	return lookup(r, r.rateModels, addr)
}

// Contract implements lending.Resolver.
func (r *Registry) Contract(addr crypto.Address) (any, bool) {
	return lookup(r, r.contracts, addr)
}

// Label returns the human name an address was registered with, falling back
// to its encoded form.
func (r *Registry) Label(addr crypto.Address) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if label, ok := r.labels[addr]; ok {
		return label
	}
	return addr.String()
}

// Labels returns every labelled address keyed by label.
func (r *Registry) Labels() map[string]crypto.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]crypto.Address, len(r.labels))
	for addr, label := range r.labels {
		out[label] = addr
	}
	return out
}

// SortedLabels returns the registered labels in lexical order.
func (r *Registry) SortedLabels() []string {
	labels := r.Labels()
	out := make([]string, 0, len(labels))
	for label := range labels {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}
