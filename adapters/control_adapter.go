// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Control adapter implementing api.Control using the control package's
// config store, Prometheus metrics collector, and debug probe registry.

package adapters

import (
	"github.com/taskline/dispatcher/api"
	"github.com/taskline/dispatcher/control"
)

// ControlAdapter wires api.Control to the concrete control package types.
type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.Metrics
	debug   *control.DebugProbes
}

// NewControlAdapter creates a ControlAdapter backed by a fresh config
// store and debug probe registry, with platform probes (CPU count, etc.)
// pre-registered. metrics may be nil if Prometheus export isn't wired.
func NewControlAdapter(metrics *control.Metrics) api.Control {
	adapter := &ControlAdapter{
		config:  control.NewConfigStore(),
		metrics: metrics,
		debug:   control.NewDebugProbes(),
	}
	control.RegisterPlatformProbes(adapter.debug)
	return adapter
}

func (c *ControlAdapter) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

func (c *ControlAdapter) SetConfig(cfg map[string]any) error {
	c.config.SetConfig(cfg)
	return nil
}

func (c *ControlAdapter) Stats() map[string]any {
	combined := make(map[string]any)
	for k, v := range c.debug.DumpState() {
		combined["debug."+k] = v
	}
	if c.metrics != nil {
		combined["metrics.last_updated"] = c.metrics.LastUpdated()
	}
	return combined
}

func (c *ControlAdapter) OnReload(fn func()) {
	c.config.OnReload(fn)
	control.RegisterReloadHook(fn)
}

func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

// Debug exposes the underlying probe registry for direct registration
// (e.g. from the dispatcher facade) without going through api.Control.
func (c *ControlAdapter) Debug() *control.DebugProbes { return c.debug }
