// Package control
// Author: momentics <momentics@gmail.com>
//
// Hot-reload, runtime metrics, YAML configuration loading, structured
// logging, and debug introspection for the dispatcher's ambient stack.
//
// Provides concurrent-safe state handling primitives including:
//   - Immutable snapshot config reads and atomic updates
//   - YAML-file-backed startup options (control.LoadYAML)
//   - Runtime observers for hot-reload
//   - Prometheus-backed metrics (control.Metrics)
//   - logrus-backed structured logging (control.NewLogger)
//   - State export, debug hooks, probe registration, and an optional
//     chi-routed HTTP surface exposing them
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
