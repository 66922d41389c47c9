// File: api/task.go
// Author: momentics <momentics@gmail.com>
//
// Task is the opaque unit of work the dispatcher transports to a worker.
// The core never inspects a task's internals beyond invoking Execute — it
// is the worker's job to run it and the task's job to resolve exactly once.

package api

// Resolver is handed to a task by the worker running it. A task must call
// Resolve exactly once before Execute returns.
type Resolver interface {
	// Resolve settles the task with status SUCCESS (payload = value) or
	// FAILURE (payload = error message). A second call is a no-op.
	Resolve(status Status, payload any)
}

// Task is the contract a worker executes. Execute runs synchronously on
// the worker's own goroutine-as-thread and may block for as long as it
// needs to — that is the entire point of running it off the reactor
// thread. If Execute panics, the worker recovers and resolves FAILURE on
// the task's behalf; if Execute returns without resolving, the worker
// resolves FAILURE with a "task did not resolve" error.
type Task interface {
	Execute(resolver Resolver)
}

// TaskFunc adapts a plain function into a Task for the common case where
// the function body is the entire unit of work.
type TaskFunc func(resolver Resolver)

// Execute calls the underlying function.
func (f TaskFunc) Execute(resolver Resolver) { f(resolver) }
