// Package browse assembles the pages msinfo presents: application and
// permission listings, their detail views and the catalog overview.
package browse

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned by Page.Load when a newer load started before
// this one completed. Its result has been discarded.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Page holds the state of one view: its data, an error banner for the last
// failed load and whether any load has completed.
type Page[T any] struct {
	mu     sync.Mutex
	gen    uint64
	route  string
	empty  T
	data   T
	banner string
	loaded bool
}

// NewPage returns a page whose data resets to empty after a failed load.
func NewPage[T any](empty T) *Page[T] {
	return &Page[T]{empty: empty, data: empty}
}

// Load runs fn for route. Only the most recently started load may update the
// page; earlier ones return ErrSuperseded once they complete.
func (p *Page[T]) Load(ctx context.Context, route string, fn func(context.Context) (T, error)) (T, error) {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.route = route
	p.mu.Unlock()

	v, err := fn(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return p.empty, ErrSuperseded
	}

	p.loaded = true
	if err != nil {
		p.data = p.empty
		p.banner = err.Error()
		return p.empty, err
	}
	p.data = v
	p.banner = ""
	return v, nil
}

// Snapshot returns the current page state.
func (p *Page[T]) Snapshot() (data T, banner string, loaded bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data, p.banner, p.loaded
}

// Route is the route of the most recently started load.
func (p *Page[T]) Route() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.route
}
