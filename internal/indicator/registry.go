package indicator

import (
	"fmt"
	"sort"

	"github.com/rxtech-lab/funding-breakout/internal/types"
)

// Registry holds named bar-driven indicators that are updated together.
// It is owned by a single run and is not safe for concurrent use.
type Registry struct {
	indicators map[string]Indicator
	order      []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{indicators: make(map[string]Indicator)}
}

// Register adds an indicator under a unique key.
func (r *Registry) Register(key string, ind Indicator) error {
	if _, exists := r.indicators[key]; exists {
		return fmt.Errorf("Register: indicator with key %s already registered", key)
	}

	r.indicators[key] = ind
	r.order = append(r.order, key)

	return nil
}

// Get returns the indicator registered under key.
func (r *Registry) Get(key string) (Indicator, error) {
	ind, exists := r.indicators[key]
	if !exists {
		return nil, fmt.Errorf("Get: indicator with key %s not found", key)
	}

	return ind, nil
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	keys := append([]string(nil), r.order...)
	sort.Strings(keys)

	return keys
}

// UpdateAll feeds bar to every indicator in registration order.
func (r *Registry) UpdateAll(bar types.MarketData) {
	for _, key := range r.order {
		r.indicators[key].Update(bar)
	}
}

// Ready reports whether every registered indicator is ready.
func (r *Registry) Ready() bool {
	for _, ind := range r.indicators {
		if !ind.Ready() {
			return false
		}
	}

	return true
}

// Warmup returns the longest period among the registered indicators.
func (r *Registry) Warmup() int {
	longest := 0
	for _, ind := range r.indicators {
		if p := ind.Period(); p > longest {
			longest = p
		}
	}

	return longest
}
