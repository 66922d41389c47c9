// File: api/options.go
// Author: momentics <momentics@gmail.com>
//
// Recognized dispatcher tunables (§4.5) and their defaults. Values here are
// plain data; validation and mutation live in the internal dispatch
// package, which is the only thing allowed to apply a setOption call.

package api

import "time"

// OptionKey enumerates the keys setOption understands.
type OptionKey string

const (
	OptPoolSizeMin       OptionKey = "POOL_SIZE_MIN"
	OptPoolSizeMax       OptionKey = "POOL_SIZE_MAX"
	OptTaskTimeout       OptionKey = "TASK_TIMEOUT"
	OptExecLimit         OptionKey = "EXEC_LIMIT"
	OptThreadFlags       OptionKey = "THREAD_FLAGS"
	OptIdleWorkerTimeout OptionKey = "IDLE_WORKER_TIMEOUT"
)

// Unbounded is the sentinel value for TASK_TIMEOUT and EXEC_LIMIT meaning
// "no limit".
const Unbounded = -1

// Options holds the dispatcher's current tunables. Zero value is not
// valid; construct via DefaultOptions.
type Options struct {
	PoolSizeMin       int
	PoolSizeMax       int
	TaskTimeout       time.Duration // 0 or negative via Unbounded sentinel semantics below
	ExecLimit         int           // Unbounded means no recycling by count
	ThreadFlags       uint64        // opaque context-creation mask, e.g. a CPU affinity bitmask
	IdleWorkerTimeout time.Duration
}

// DefaultOptions returns the §4.5 defaults.
func DefaultOptions() Options {
	return Options{
		PoolSizeMin:       1,
		PoolSizeMax:       8,
		TaskTimeout:       30 * time.Second,
		ExecLimit:         1024,
		ThreadFlags:       0,
		IdleWorkerTimeout: 10 * time.Second,
	}
}
