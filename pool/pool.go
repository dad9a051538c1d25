// Package pool provides a round-robin pool of client handles.
//
// Handles are constructed up front (or lazily on first acquire) and handed
// out in rotation. Pooled handles must be safe for concurrent use; the
// OpenAI and Anthropic SDK clients are, so a handle is never checked back in.
package pool

import (
	"errors"
	"sync"
)

// ErrNoClients is returned by Acquire when no handle could be constructed.
var ErrNoClients = errors.New("pool: no clients available")

// Factory constructs one pooled handle. Factories that fail are skipped
// during initialization rather than aborting it.
type Factory[T any] func() (T, error)

// Option configures a Pool.
type Option[T any] func(*Pool[T])

// WithFailureObserver registers a callback invoked for each handle whose
// factory fails during initialization.
func WithFailureObserver[T any](fn func(index int, err error)) Option[T] {
	return func(p *Pool[T]) {
		p.onFailure = fn
	}
}

// Pool hands out client handles in round-robin order.
// It is safe for concurrent use.
type Pool[T any] struct {
	mu        sync.Mutex
	capacity  int
	factory   Factory[T]
	clients   []T
	cursor    int
	initOnce  bool
	onFailure func(index int, err error)
}

// New creates a pool that will hold up to capacity handles built by factory.
// A capacity below 1 is treated as 1. Handles are not constructed until
// Initialize or the first Acquire.
func New[T any](capacity int, factory Factory[T], opts ...Option[T]) *Pool[T] {
	if capacity < 1 {
		capacity = 1
	}
	p := &Pool[T]{
		capacity: capacity,
		factory:  factory,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize constructs up to capacity handles, skipping ones whose factory
// fails. It returns the number of handles constructed. Calling Initialize
// more than once is a no-op.
func (p *Pool[T]) Initialize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initLocked()
	return len(p.clients)
}

func (p *Pool[T]) initLocked() {
	if p.initOnce {
		return
	}
	p.initOnce = true

	for i := 0; i < p.capacity; i++ {
		client, err := p.factory()
		if err != nil {
			if p.onFailure != nil {
				p.onFailure(i, err)
			}
			continue
		}
		p.clients = append(p.clients, client)
	}
}

// Acquire returns the next handle in round-robin order.
// An empty pool initializes itself once; if no handle can be constructed,
// Acquire returns ErrNoClients rather than a zero handle.
func (p *Pool[T]) Acquire() (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.initLocked()

	if len(p.clients) == 0 {
		var zero T
		return zero, ErrNoClients
	}

	client := p.clients[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.clients)
	return client, nil
}

// Len returns the number of constructed handles.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}
