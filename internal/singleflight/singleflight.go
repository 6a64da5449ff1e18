// Package singleflight coalesces concurrent loads of the same cache key.
package singleflight

import (
	"context"
	"fmt"
	"sync"
)

// Group runs at most one fn per key at a time; concurrent callers for the
// same key wait for the leader and share its result.
//
// A follower whose ctx is cancelled returns ctx.Err() immediately; the leader
// keeps running. fn receives no ctx of its own, so close over one if the work
// itself must be cancellable.
type Group[K comparable, R any] struct {
	mu sync.Mutex
	m  map[K]*call[R]
}

type call[R any] struct {
	done    chan struct{} // closed once res/err are published
	res     R
	err     error
	waiters int
}

// PanicError is returned to every caller when fn panics.
type PanicError struct {
	Value any
}

func (p *PanicError) Error() string { return fmt.Sprintf("singleflight: load panicked: %v", p.Value) }

// Do executes fn for key unless a call is already in flight, in which case it
// waits for that call. shared reports whether the result went to more than
// one caller.
func (g *Group[K, R]) Do(ctx context.Context, key K, fn func() (R, error)) (res R, shared bool, err error) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[R])
	}
	if c, ok := g.m[key]; ok {
		c.waiters++
		g.mu.Unlock()

		select {
		case <-c.done:
			return c.res, true, c.err
		case <-ctx.Done():
			var zero R
			return zero, true, ctx.Err()
		}
	}

	c := &call[R]{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	g.run(c, fn)

	g.mu.Lock()
	if g.m[key] == c {
		delete(g.m, key)
	}
	shared = c.waiters > 0
	g.mu.Unlock()

	return c.res, shared, c.err
}

func (g *Group[K, R]) run(c *call[R], fn func() (R, error)) {
	defer close(c.done)
	defer func() {
		if r := recover(); r != nil {
			c.err = &PanicError{Value: r}
		}
	}()
	c.res, c.err = fn()
}
