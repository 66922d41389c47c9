// File: api/pool.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract pooling API used to reuse transient dispatch objects
// (the Result Channel's outcome records) across submissions without extra
// GC pressure on the hot path.

package api

// ObjectPool provides generic pooling of Go objects allocated transiently.
type ObjectPool[T any] interface {
	// Get returns an available instance from pool.
	Get() T

	// Put returns an instance for reuse.
	Put(obj T)
}
