// File: api/promise.go
// Author: momentics <momentics@gmail.com>
//
// Promise is the external single-settlement primitive the dispatcher
// settles on the reactor thread. The dispatcher core depends only on this
// interface and on the Settle function handed back by a PromiseLibrary —
// the promise implementation itself (combinators, blocking Wait) is an
// external collaborator, per the non-goals in the specification this
// package implements.

package api

// Promise is a read-only handle to a deferred result.
type Promise[T any] interface {
	// IsSettled reports whether Settle has already been called.
	IsSettled() bool
}

// Settle is handed to the dispatcher by a PromiseLibrary at submission
// time. It must be safe to call exactly once from the reactor thread; a
// second call is a documented no-op, never a panic.
type Settle[T any] func(err error, value T)

// PromiseLibrary allocates a deferred result pair: a Promise the caller
// can hold, and the Settle function the dispatcher uses to resolve it.
type PromiseLibrary[T any] interface {
	Deferred() (Promise[T], Settle[T])
}
