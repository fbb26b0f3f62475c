// Package pool keeps a bounded set of idle sessions for reuse across fetches.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Poolable represents any session that can be pooled and reused.
type Poolable interface {
	Connect(ctx context.Context) error
	Close() error
}

// Pool holds up to size idle sessions. Sessions beyond that are closed on Put.
type Pool[T Poolable] struct {
	mu     sync.Mutex
	idle   chan T
	closed bool
}

// New creates a pool with the given idle capacity.
func New[T Poolable](size int) *Pool[T] {
	if size <= 0 {
		size = 10 // default size
	}
	return &Pool[T]{idle: make(chan T, size)}
}

// Get returns an idle session, or a new one from factory.
// If reused is false the caller must Connect the session.
func (p *Pool[T]) Get(factory func() T) (session T, reused bool) {
	select {
	case session, ok := <-p.idle:
		if ok {
			return session, true
		}
	default:
	}
	return factory(), false
}

// Put returns a session for reuse. If the pool is full or closed the session
// is closed instead.
func (p *Pool[T]) Put(session T) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return session.Close()
	}
	select {
	case p.idle <- session:
		return nil
	default:
		return session.Close()
	}
}

// Renew closes a stale session and connects a fresh one in its place.
// It returns false when the replacement fails to connect.
func (p *Pool[T]) Renew(ctx context.Context, stale T, factory func() T) (T, bool) {
	_ = stale.Close()

	fresh := factory()
	if err := fresh.Connect(ctx); err != nil {
		var zero T
		_ = fresh.Close()
		return zero, false
	}
	return fresh, true
}

// Idle returns the number of sessions waiting for reuse.
func (p *Pool[T]) Idle() int {
	return len(p.idle)
}

// Close closes every idle session. Later Puts close their session directly.
func (p *Pool[T]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.idle)
	p.mu.Unlock()

	var errs []error
	for session := range p.idle {
		if err := session.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("pool close: %w", errors.Join(errs...))
	}
	return nil
}
