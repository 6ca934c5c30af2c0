// Package translate coordinates parallel segment translation across a
// pool of LibreTranslate-protocol endpoints with retry and fallback.
package translate

import (
	"sync"
)

// Health is the observed state of one endpoint.
type Health string

const (
	Healthy     Health = "healthy"
	Degraded    Health = "degraded"
	Unreachable Health = "unreachable"
)

// Endpoint is one translation service instance. APIKey is optional;
// the default public instances take none.
type Endpoint struct {
	BaseURL string `json:"base_url" toml:"base_url"`
	APIKey  string `json:"-" toml:"api_key"`
}

// EndpointStatus is a snapshot of one pool entry for status reporting.
type EndpointStatus struct {
	BaseURL string `json:"base_url"`
	Health  Health `json:"health"`
}

type poolEntry struct {
	Endpoint
	health           Health
	consecutiveFails int
}

// Pool holds endpoints in rotating preference order. Health state is
// mutated only by the coordinator's call outcomes and is reset at
// process start (pools are built fresh from config).
type Pool struct {
	mu               sync.Mutex
	entries          []*poolEntry
	preferred        int
	unreachableAfter int
}

// NewPool builds a pool in config order. unreachableAfter is the
// number of consecutive failures before an endpoint is written off for
// the pool's lifetime.
func NewPool(endpoints []Endpoint, unreachableAfter int) *Pool {
	if unreachableAfter <= 0 {
		unreachableAfter = 3
	}
	entries := make([]*poolEntry, len(endpoints))
	for i, ep := range endpoints {
		entries[i] = &poolEntry{Endpoint: ep, health: Healthy}
	}
	return &Pool{entries: entries, unreachableAfter: unreachableAfter}
}

// Size returns the number of configured endpoints.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// candidates returns reachable endpoints starting at the current
// preferred one, in rotation order.
func (p *Pool) candidates() []*poolEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*poolEntry, 0, len(p.entries))
	for i := 0; i < len(p.entries); i++ {
		entry := p.entries[(p.preferred+i)%len(p.entries)]
		if entry.health == Unreachable {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// markFailure records a failed call. The endpoint is degraded
// immediately and unreachable after enough consecutive failures; a
// failing preferred endpoint loses preference so later batches start
// elsewhere.
func (p *Pool) markFailure(entry *poolEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry.consecutiveFails++
	if entry.consecutiveFails >= p.unreachableAfter {
		entry.health = Unreachable
	} else {
		entry.health = Degraded
	}

	if len(p.entries) > 0 && p.entries[p.preferred] == entry {
		p.preferred = (p.preferred + 1) % len(p.entries)
	}
}

// markSuccess resets the failure streak. A degraded endpoint that
// answers again is healthy; unreachable is permanent for this pool.
func (p *Pool) markSuccess(entry *poolEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry.consecutiveFails = 0
	if entry.health != Unreachable {
		entry.health = Healthy
	}
}

// AllUnreachable reports whether every endpoint has been written off.
func (p *Pool) AllUnreachable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, entry := range p.entries {
		if entry.health != Unreachable {
			return false
		}
	}
	return len(p.entries) > 0
}

// Statuses returns a health snapshot in config order.
func (p *Pool) Statuses() []EndpointStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]EndpointStatus, len(p.entries))
	for i, entry := range p.entries {
		out[i] = EndpointStatus{BaseURL: entry.BaseURL, Health: entry.health}
	}
	return out
}
