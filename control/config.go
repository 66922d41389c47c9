// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with dynamic update and hot-reload
// propagation, plus a YAML file loader (C11) for the dispatcher's startup
// options.

package control

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/taskline/dispatcher/api"
)

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

// ConfigStore is a dynamic key/value map with atomic snapshot and listener support.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func()
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config:    make(map[string]any),
		listeners: make([]func(), 0),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	snap := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		snap[k] = v
	}
	return snap
}

// SetConfig merges new values and dispatches reload if needed.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	cs.dispatchReload()
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

// dispatchReload invokes all listeners.
func (cs *ConfigStore) dispatchReload() {
	for _, fn := range cs.listeners {
		go fn()
	}
}

// FileConfig is the on-disk shape of a dispatcher startup configuration.
type FileConfig struct {
	PoolSizeMin       int    `yaml:"pool_size_min"`
	PoolSizeMax       int    `yaml:"pool_size_max"`
	TaskTimeoutSec    int    `yaml:"task_timeout_seconds"`
	ExecLimit         int    `yaml:"exec_limit"`
	ThreadFlags       uint64 `yaml:"thread_flags"`
	IdleWorkerTimeout int    `yaml:"idle_worker_timeout_seconds"`
	LogLevel          string `yaml:"log_level"`
	DebugListenAddr   string `yaml:"debug_listen_addr"`
}

// LoadYAML reads and parses a FileConfig from path. Malformed YAML or an
// unreadable file is reported as *api.Error, not silently defaulted.
func LoadYAML(path string) (*FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, api.NewError("config: failed to read file").WithContext("path", path).WithContext("cause", err.Error())
	}
	var fc FileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, api.NewError("config: failed to parse YAML").WithContext("path", path).WithContext("cause", err.Error())
	}
	return &fc, nil
}

// ToOptions converts a loaded FileConfig into api.Options, starting from
// the defaults so an omitted field keeps its default rather than zeroing
// out.
func (fc *FileConfig) ToOptions() (api.Options, error) {
	opts := api.DefaultOptions()
	if fc.PoolSizeMin > 0 {
		opts.PoolSizeMin = fc.PoolSizeMin
	}
	if fc.PoolSizeMax > 0 {
		opts.PoolSizeMax = fc.PoolSizeMax
	}
	if opts.PoolSizeMin > opts.PoolSizeMax {
		return api.Options{}, fmt.Errorf("config: pool_size_min (%d) must be <= pool_size_max (%d)", opts.PoolSizeMin, opts.PoolSizeMax)
	}
	if fc.TaskTimeoutSec != 0 {
		if fc.TaskTimeoutSec < 0 {
			opts.TaskTimeout = 0
		} else {
			opts.TaskTimeout = secondsToDuration(fc.TaskTimeoutSec)
		}
	}
	if fc.ExecLimit != 0 {
		if fc.ExecLimit < 0 {
			opts.ExecLimit = api.Unbounded
		} else {
			opts.ExecLimit = fc.ExecLimit
		}
	}
	opts.ThreadFlags = fc.ThreadFlags
	if fc.IdleWorkerTimeout > 0 {
		opts.IdleWorkerTimeout = secondsToDuration(fc.IdleWorkerTimeout)
	}
	return opts, nil
}
