// Package fetch holds fetched backend data in generation-checked state
// containers. A Resource issues one load at a time from the caller's point of
// view: starting a load cancels the previous one, and a response that is no
// longer the newest is dropped instead of overwriting fresher state.
package fetch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/couchcryptid/rabies-forecast-dashboard/internal/domain"
)

// ErrClosed is returned by loads on a closed Resource.
var ErrClosed = errors.New("resource closed")

// ErrSuperseded is returned to the caller of a load whose result was
// discarded because a newer load started.
var ErrSuperseded = errors.New("superseded by a newer fetch")

// Loader fetches T for the given parameters.
type Loader[P, T any] func(ctx context.Context, params P) (T, error)

// State is a snapshot of a Resource.
type State[P, T any] struct {
	Data      T
	Params    P
	Loading   bool
	Err       string
	UpdatedAt time.Time
	// Loaded is true once any load has committed, successfully or not.
	Loaded bool
}

// Resource is a cancellable, generation-checked state container around a Loader.
type Resource[P, T any] struct {
	loader  Loader[P, T]
	onStale func()

	mu         sync.Mutex
	state      State[P, T]
	generation uint64
	cancel     context.CancelFunc
	closed     bool
}

// Option configures a Resource.
type Option func(*options)

type options struct {
	onStale func()
}

// WithStaleHook registers fn to run whenever a superseded response is dropped.
func WithStaleHook(fn func()) Option {
	return func(o *options) { o.onStale = fn }
}

// New creates a Resource backed by loader.
func New[P, T any](loader Loader[P, T], opts ...Option) *Resource[P, T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Resource[P, T]{loader: loader, onStale: o.onStale}
}

// Load fetches with params, commits the result if it is still the newest
// load, and returns it. A superseded load returns ErrSuperseded and leaves
// state untouched.
func (r *Resource[P, T]) Load(ctx context.Context, params P) (T, error) {
	var zero T

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return zero, ErrClosed
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.generation++
	gen := r.generation
	loadCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.state.Params = params
	r.state.Loading = true
	r.mu.Unlock()

	data, err := r.loader(loadCtx, params)

	r.mu.Lock()
	defer r.mu.Unlock()
	cancel()
	if r.closed {
		return zero, ErrClosed
	}
	if gen != r.generation {
		if r.onStale != nil {
			r.onStale()
		}
		return zero, ErrSuperseded
	}

	r.cancel = nil
	r.state.Loading = false
	r.state.Loaded = true
	r.state.UpdatedAt = domain.Clock().Now()
	if err != nil {
		r.state.Err = err.Error()
		return zero, err
	}
	r.state.Data = data
	r.state.Err = ""
	return data, nil
}

// Refetch repeats the most recent load's parameters. Before any load it uses
// the zero value of P.
func (r *Resource[P, T]) Refetch(ctx context.Context) (T, error) {
	r.mu.Lock()
	params := r.state.Params
	r.mu.Unlock()
	return r.Load(ctx, params)
}

// State returns a copy of the current state.
func (r *Resource[P, T]) State() State[P, T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Close cancels any in-flight load. Results arriving afterwards are dropped
// and further loads fail with ErrClosed.
func (r *Resource[P, T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.state.Loading = false
}
