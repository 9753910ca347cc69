package venue

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrPoolNotFound = errors.New("venue: pool not found")

// Registry is the read-mostly pool catalog. The matching path only ever
// reads it; participant adds are rare administrative writes.
type Registry struct {
	mu    sync.RWMutex
	pools map[string]*Pool
}

func NewRegistry() *Registry {
	return &Registry{pools: make(map[string]*Pool)}
}

func (r *Registry) Add(p *Pool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pools[p.ID]; ok {
		return fmt.Errorf("venue: pool %q already registered", p.ID)
	}
	r.pools[p.ID] = p
	return nil
}

func (r *Registry) Get(id string) (*Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pools[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, id)
	}
	return p, nil
}

func (r *Registry) List() []*Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Pool, 0, len(r.pools))
	for _, p := range r.pools {
		out = append(out, p)
	}
	return out
}

// AddParticipant records pool membership. Pools are never deleted in
// normal operation, so membership only grows.
func (r *Registry) AddParticipant(poolID, clientID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[poolID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPoolNotFound, poolID)
	}
	if _, dup := p.participants[clientID]; !dup {
		p.participants[clientID] = struct{}{}
		p.UpdatedAt = now
	}
	return nil
}
