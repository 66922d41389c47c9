// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the reactor contract the Dispatcher consumes. The reactor is an
// external collaborator: a single-threaded, cooperatively scheduled event
// loop that owns timers and can be woken from other goroutines. The core
// package never assumes a particular reactor implementation — only this
// interface.
package api

import "time"

// Reactor is the event loop the Dispatcher runs on. All Dispatcher state
// mutation happens from callbacks this interface schedules or invokes.
type Reactor interface {
	// ScheduleOnce arranges for cb to run on the reactor thread after delay.
	// The returned Cancelable may be used to cancel before it fires.
	ScheduleOnce(delay time.Duration, cb func()) (Cancelable, error)

	// WatchReadable arranges for cb to run on the reactor thread whenever
	// wakeup receives a value. Multiple pending sends before cb runs must
	// coalesce into a single invocation; cb is responsible for draining
	// whatever condition triggered the wakeup until it is empty.
	WatchReadable(wakeup <-chan struct{}, cb func()) error

	// RunImmediate schedules cb to run on the reactor thread at the next
	// opportunity. Safe to call from any goroutine.
	RunImmediate(cb func())

	// Stop shuts the reactor down. Pending ScheduleOnce callbacks do not run.
	Stop()
}
