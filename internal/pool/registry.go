package pool

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is a concurrency-safe set of pool records keyed by address.
// It only guards the map itself; exclusive ownership of a State during a
// swap is the caller's responsibility.
type Registry struct {
	mu    sync.RWMutex
	pools map[common.Address]*State
}

func NewRegistry() *Registry {
	return &Registry{pools: make(map[common.Address]*State)}
}

// Put registers or replaces a pool record.
func (r *Registry) Put(state *State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools[state.Address] = state
}

// Get returns the pool record for an address.
func (r *Registry) Get(address common.Address) (*State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.pools[address]
	return state, ok
}

// Addresses returns all registered pool addresses in stable order.
func (r *Registry) Addresses() []common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addresses := make([]common.Address, 0, len(r.pools))
	for addr := range r.pools {
		addresses = append(addresses, addr)
	}
	sort.Slice(addresses, func(i, j int) bool {
		return addresses[i].Hex() < addresses[j].Hex()
	})
	return addresses
}
