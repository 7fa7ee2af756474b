package layers

import (
	"context"
	"sync"
)

// LoadFunc produces a dataset.
type LoadFunc func(ctx context.Context) (*Tables, error)

// Cache loads the tables once and hands out the same value afterwards.
// A failed load is not remembered, so the next Get tries again.
type Cache struct {
	load LoadFunc

	mu      sync.Mutex
	tables  *Tables
	pending *loadCall
}

type loadCall struct {
	done   chan struct{}
	tables *Tables
	err    error
}

// NewCache creates a cache around load.
func NewCache(load LoadFunc) *Cache {
	return &Cache{load: load}
}

// Get returns the cached tables, loading them if needed. Concurrent
// callers share one in-flight load.
func (c *Cache) Get(ctx context.Context) (*Tables, error) {
	c.mu.Lock()
	if c.tables != nil {
		t := c.tables
		c.mu.Unlock()
		return t, nil
	}
	call := c.pending
	if call == nil {
		call = &loadCall{done: make(chan struct{})}
		c.pending = call
		c.mu.Unlock()

		// Waiters share this load; it is detached from the caller's cancellation.
		call.tables, call.err = c.load(context.WithoutCancel(ctx))

		c.mu.Lock()
		if call.err == nil {
			c.tables = call.tables
		}
		c.pending = nil
		c.mu.Unlock()
		close(call.done)
		return call.tables, call.err
	}
	c.mu.Unlock()

	select {
	case <-call.done:
		return call.tables, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Loaded returns the tables if a load has completed successfully.
func (c *Cache) Loaded() (*Tables, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tables, c.tables != nil
}

// Reset drops the cached tables so the next Get reloads them.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.tables = nil
	c.mu.Unlock()
}
