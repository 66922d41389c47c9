// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown is implemented by any component that owns resources
// needing an orderly stop — the facade's Stop(false) satisfies it so a
// larger application can shut it down alongside other subsystems through
// one uniform interface.
type GracefulShutdown interface {
	// Shutdown releases the component's resources, returning an error on
	// failure.
	Shutdown() error
}
