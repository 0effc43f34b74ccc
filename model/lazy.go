package model

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ordo-ai/agentgraph/core"
)

// Lazy constructs a value on first use. Concurrent first callers share a
// single construction; a failed construction is not cached, so the next
// Get retries.
type Lazy[T any] struct {
	init  func(ctx context.Context) (T, error)
	group singleflight.Group

	mu    sync.RWMutex
	val   T
	ready bool
}

// NewLazy returns a Lazy that builds its value with init.
func NewLazy[T any](init func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{init: init}
}

// Get returns the cached value, constructing it if needed.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	if v, ok := l.cached(); ok {
		return v, nil
	}

	v, err, _ := l.group.Do("init", func() (any, error) {
		if v, ok := l.cached(); ok {
			return v, nil
		}

		v, err := l.init(ctx)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.val, l.ready = v, true
		l.mu.Unlock()

		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return v.(T), nil
}

// Reset drops the cached value so the next Get reconstructs it.
func (l *Lazy[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	var zero T
	l.val, l.ready = zero, false
}

func (l *Lazy[T]) cached() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.val, l.ready
}

// LazyModel is a Model whose underlying client is built on first Generate.
type LazyModel struct {
	info Info
	lazy *Lazy[Model]
}

// NewLazyModel defers construction of a provider Model until first use.
// info is reported before construction has happened.
func NewLazyModel(info Info, build func(ctx context.Context) (Model, error)) *LazyModel {
	return &LazyModel{info: info, lazy: NewLazy(build)}
}

// Info implements Model.
func (m *LazyModel) Info() Info { return m.info }

// Generate implements Model. Construction failures are reported as provider
// errors so Safe can turn them into a reply.
func (m *LazyModel) Generate(ctx context.Context, req Request) (Response, error) {
	inner, err := m.lazy.Get(ctx)
	if err != nil {
		return Response{}, core.NewProviderError(m.info.Provider, m.info.Name, fmt.Errorf("init client: %w", err))
	}

	return inner.Generate(ctx, req)
}
