// File: promise/promise.go
// Author: momentics <momentics@gmail.com>
//
// Reference implementation of api.PromiseLibrary: a minimal single-
// settlement future with a blocking Wait and a fire-and-forget Then. The
// dispatch core never imports this package — it only depends on
// api.Promise/api.Settle/api.PromiseLibrary — so a caller is free to swap
// in a richer promise library without touching the core at all.
package promise

import (
	"context"
	"sync"

	"github.com/taskline/dispatcher/api"
)

// Promise is the concrete type this library hands back from Deferred. It
// satisfies api.Promise[T]; callers that need Wait or Then must hold this
// concrete type (or type-assert to it) rather than the narrower interface.
type Promise[T any] struct {
	mu      sync.Mutex
	done    chan struct{}
	once    sync.Once
	settled bool
	value   T
	err     error
}

// IsSettled reports whether the promise has already settled.
func (p *Promise[T]) IsSettled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settled
}

// Wait blocks until the promise settles or ctx is done, whichever comes
// first.
func (p *Promise[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then invokes fn with the settled value once the promise settles, on a
// goroutine of its own. It returns immediately.
func (p *Promise[T]) Then(fn func(value T, err error)) {
	go func() {
		<-p.done
		p.mu.Lock()
		v, e := p.value, p.err
		p.mu.Unlock()
		fn(v, e)
	}()
}

func (p *Promise[T]) settle(err error, value T) {
	p.once.Do(func() {
		p.mu.Lock()
		p.value = value
		p.err = err
		p.settled = true
		p.mu.Unlock()
		close(p.done)
	})
}

// Library is the api.PromiseLibrary implementation backing Promise.
type Library[T any] struct{}

// NewLibrary creates a promise library for type T.
func NewLibrary[T any]() Library[T] { return Library[T]{} }

// Deferred allocates a new, unsettled promise/settle pair.
func (Library[T]) Deferred() (api.Promise[T], api.Settle[T]) {
	p := &Promise[T]{done: make(chan struct{})}
	return p, p.settle
}

var _ api.PromiseLibrary[any] = Library[any]{}
