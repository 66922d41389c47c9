// File: facade/facade.go
// Unified facade layer for the dispatcher module.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// This file defines the Dispatcher struct, which aggregates the reactor,
// the core dispatch engine, the promise library, and the ambient stack
// (config, metrics, logging, debug HTTP, affinity) behind a single facade
// constructed from an immutable Config. It initializes every collaborator,
// starts the reactor on its own goroutine, brings the pool up, and exposes
// the call/execute/setOption/addStartTask/removeStartTask/stop surface plus
// runtime accessors for the ambient services.

package facade

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/taskline/dispatcher/adapters"
	"github.com/taskline/dispatcher/api"
	"github.com/taskline/dispatcher/control"
	"github.com/taskline/dispatcher/internal/dispatch"
	"github.com/taskline/dispatcher/promise"
	"github.com/taskline/dispatcher/reactor"
)

// Config holds the parameters New uses to build the facade; Start and Stop
// also read the affinity and debug-HTTP fields. The pool tunables change at
// runtime only through SetOption; values set through the Control interface
// are not applied to the pool.
type Config struct {
	PoolSizeMin       int           // Minimum resident worker count
	PoolSizeMax       int           // Maximum worker count under load
	TaskTimeout       time.Duration // Per-task deadline; 0 disables it
	ExecLimit         int           // Tasks a worker runs before recycling; api.Unbounded disables it
	ThreadFlags       uint64        // Opaque CPU affinity mask applied to new workers
	IdleWorkerTimeout time.Duration // How long an idle worker survives the sweep

	ConfigPath string // Optional YAML file overriding the tunables above

	LogLevel        string // logrus level name; defaults to "info"
	EnableMetrics   bool   // Whether to construct the Prometheus collector
	EnableDebugHTTP bool   // Whether to mount the chi debug/metrics router
	DebugListenAddr string // Address for the debug HTTP surface, e.g. ":9090"
	EnableAffinity  bool   // Whether Start pins the OS thread it runs on to AffinityCPU; the reactor goroutine is not pinned
	AffinityCPU     int    // CPU index to pin to when EnableAffinity is set

	Reactor    api.Reactor             // Optional injected reactor; defaults to reactor.New()
	PromiseLib api.PromiseLibrary[any] // Optional injected promise library; defaults to promise.NewLibrary[any]()
}

// DefaultConfig returns default configuration values. These sane defaults
// support typical use cases without extensive tuning.
func DefaultConfig() *Config {
	defaults := api.DefaultOptions()
	return &Config{
		PoolSizeMin:       defaults.PoolSizeMin,
		PoolSizeMax:       defaults.PoolSizeMax,
		TaskTimeout:       defaults.TaskTimeout,
		ExecLimit:         defaults.ExecLimit,
		ThreadFlags:       defaults.ThreadFlags,
		IdleWorkerTimeout: defaults.IdleWorkerTimeout,
		LogLevel:          "info",
		EnableMetrics:     true,
		EnableDebugHTTP:   false,
		DebugListenAddr:   ":9090",
		EnableAffinity:    false,
		AffinityCPU:       -1,
	}
}

// Dispatcher is the main facade type. It implements api.GracefulShutdown
// to allow unified shutdown logic alongside other components of a larger
// application.
type Dispatcher struct {
	reactor     api.Reactor
	ownsReactor bool
	core        *dispatch.Dispatcher
	control     api.Control
	affinity    api.Affinity
	metrics     *control.Metrics
	log         logrus.FieldLogger
	debugSrv    *http.Server

	instanceID string

	config  *Config
	mu      sync.RWMutex
	started bool
}

// Ensure compliance with api.GracefulShutdown.
var _ api.GracefulShutdown = (*Dispatcher)(nil)

// New constructs a Dispatcher facade with the given configuration. It wires
// the reactor, the callable registry, the promise library, and the ambient
// control/metrics/logging stack, but does not start anything until Start
// is called.
func New(cfg *Config) (*Dispatcher, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	opts := api.Options{
		PoolSizeMin:       cfg.PoolSizeMin,
		PoolSizeMax:       cfg.PoolSizeMax,
		TaskTimeout:       cfg.TaskTimeout,
		ExecLimit:         cfg.ExecLimit,
		ThreadFlags:       cfg.ThreadFlags,
		IdleWorkerTimeout: cfg.IdleWorkerTimeout,
	}
	if cfg.ConfigPath != "" {
		fc, err := control.LoadYAML(cfg.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("facade: loading config: %w", err)
		}
		opts, err = fc.ToOptions()
		if err != nil {
			return nil, fmt.Errorf("facade: applying config: %w", err)
		}
		if fc.LogLevel != "" {
			cfg.LogLevel = fc.LogLevel
		}
		if fc.DebugListenAddr != "" {
			cfg.DebugListenAddr = fc.DebugListenAddr
		}
	}

	log := control.NewLogger(cfg.LogLevel)

	var metrics *control.Metrics
	if cfg.EnableMetrics {
		metrics = control.NewMetrics()
	}

	rx := cfg.Reactor
	ownsReactor := false
	if rx == nil {
		rx = reactor.New()
		ownsReactor = true
	}

	promiseLib := cfg.PromiseLib
	if promiseLib == nil {
		promiseLib = promise.NewLibrary[any]()
	}

	// metrics must be handed to dispatch.New only when non-nil: a nil
	// *control.Metrics boxed directly into the dispatch.Metrics interface
	// would be a non-nil interface wrapping a nil pointer, defeating New's
	// own nil check and panicking on first use.
	var dispatchMetrics dispatch.Metrics
	if metrics != nil {
		dispatchMetrics = metrics
	}
	core := dispatch.New(rx, promiseLib, opts, log, dispatchMetrics)

	controlAdapter := adapters.NewControlAdapter(metrics)
	affinityAdapter := adapters.NewAffinityAdapter()

	h := &Dispatcher{
		reactor:     rx,
		ownsReactor: ownsReactor,
		core:        core,
		control:     controlAdapter,
		affinity:    affinityAdapter,
		metrics:     metrics,
		log:         log,
		instanceID:  uuid.New().String(),
		config:      cfg,
	}

	h.control.RegisterDebugProbe("instance_id", func() any { return h.instanceID })
	h.control.RegisterDebugProbe("pool_size_min", func() any { return cfg.PoolSizeMin })
	h.control.RegisterDebugProbe("pool_size_max", func() any { return cfg.PoolSizeMax })
	h.control.SetConfig(map[string]any{
		"task_timeout":        cfg.TaskTimeout.String(),
		"idle_worker_timeout": cfg.IdleWorkerTimeout.String(),
	})

	return h, nil
}

// Start brings the reactor and the worker pool up. If the facade owns its
// reactor (none was injected via Config.Reactor), it is run on a fresh
// goroutine. Subsequent calls to Start have no effect.
func (h *Dispatcher) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}

	if h.config.EnableAffinity && h.config.AffinityCPU >= 0 {
		if err := h.affinity.Pin(h.config.AffinityCPU, -1); err != nil {
			h.log.WithError(err).Warn("facade: affinity pin failed")
		}
	}

	// core.Start wires watches and spawns the initial pool. This happens
	// before the reactor's own goroutine is launched below, so it runs
	// uncontended against the single logical reactor thread it documents.
	runID := ulid.Make().String()
	if err := h.core.Start(); err != nil {
		return fmt.Errorf("facade: starting dispatcher: %w", err)
	}

	if h.ownsReactor {
		if loop, ok := h.reactor.(*reactor.Loop); ok {
			go loop.Run()
		}
	}

	if h.config.EnableDebugHTTP {
		router := control.NewDebugRouter(h.metrics, h.control.(debugger).Debug())
		h.debugSrv = &http.Server{Addr: h.config.DebugListenAddr, Handler: router}
		go func() {
			if err := h.debugSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				h.log.WithError(err).Error("facade: debug HTTP server stopped")
			}
		}()
	}

	h.log.WithFields(logrus.Fields{
		"instance_id": h.instanceID,
		"run_id":      runID,
	}).Info("facade: dispatcher started")

	h.started = true
	return nil
}

// debugger is satisfied by *adapters.ControlAdapter, narrowing just enough
// to reach its probe registry for the debug HTTP router.
type debugger interface {
	Debug() *control.DebugProbes
}

// Stop cancels queued work, settles or lets in-flight work finish per
// force, stops the reactor if the facade owns it, and shuts down the
// debug HTTP server. Calling Stop on a non-started facade is a no-op.
func (h *Dispatcher) Stop(force bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return nil
	}

	// core.Stop mutates the same queue/pending/worker tables the reactor
	// goroutine owns, so it must run on the reactor thread rather than the
	// caller's, exactly like Call/Execute/SetOption below.
	done := make(chan struct{})
	h.reactor.RunImmediate(func() {
		h.core.Stop(force)
		close(done)
	})
	<-done

	if h.debugSrv != nil {
		_ = h.debugSrv.Close()
	}
	if h.ownsReactor {
		h.reactor.Stop()
	}
	if h.config.EnableAffinity {
		_ = h.affinity.Unpin()
	}

	h.started = false
	return nil
}

// Shutdown implements api.GracefulShutdown by delegating to a non-forced
// Stop.
func (h *Dispatcher) Shutdown() error {
	return h.Stop(false)
}

// callReply carries a Call/Execute result back from the reactor thread to
// whichever goroutine invoked it.
type callReply struct {
	promise api.Promise[any]
	err     error
}

// Call submits a call to a registered callable by name and returns a
// promise for its eventual result. The submission itself — and every
// mutation it causes to the queue, pending table, and worker tables — runs
// on the reactor thread; Call only blocks the caller until that round trip
// completes.
func (h *Dispatcher) Call(name string, args ...any) (api.Promise[any], error) {
	reply := make(chan callReply, 1)
	h.reactor.RunImmediate(func() {
		p, err := h.core.Call(name, args...)
		reply <- callReply{p, err}
	})
	r := <-reply
	return r.promise, r.err
}

// Execute submits an opaque task directly and returns a promise for its
// eventual result, marshaled onto the reactor thread like Call.
func (h *Dispatcher) Execute(task api.Task) (api.Promise[any], error) {
	reply := make(chan callReply, 1)
	h.reactor.RunImmediate(func() {
		p, err := h.core.Execute(task)
		reply <- callReply{p, err}
	})
	r := <-reply
	return r.promise, r.err
}

// SetOption mutates a live tunable and returns its previous value. Applied
// on the reactor thread since it writes the same api.Options the reactor
// goroutine reads when sizing and timing the pool.
func (h *Dispatcher) SetOption(key api.OptionKey, value any) (any, error) {
	type reply struct {
		prior any
		err   error
	}
	ch := make(chan reply, 1)
	h.reactor.RunImmediate(func() {
		prior, err := h.core.SetOption(key, value)
		ch <- reply{prior, err}
	})
	r := <-ch
	return r.prior, r.err
}

// AddStartTask registers a task every newly spawned worker runs before
// accepting assigned work. Runs on the reactor thread: the start-task list
// is read by spawnWorker without a lock.
func (h *Dispatcher) AddStartTask(task api.Task) {
	done := make(chan struct{})
	h.reactor.RunImmediate(func() {
		h.core.AddStartTask(task)
		close(done)
	})
	<-done
}

// RemoveStartTask removes a previously registered start task by identity,
// marshaled onto the reactor thread for the same reason as AddStartTask.
func (h *Dispatcher) RemoveStartTask(task api.Task) {
	done := make(chan struct{})
	h.reactor.RunImmediate(func() {
		h.core.RemoveStartTask(task)
		close(done)
	})
	<-done
}

// Registry exposes the callable registry for registration before Start.
func (h *Dispatcher) Registry() *dispatch.Registry {
	return h.core.Registry()
}

// Metrics returns a point-in-time snapshot of pool and queue state, read on
// the reactor thread so it never races the worker/queue tables it samples.
func (h *Dispatcher) Metrics() api.DispatcherMetrics {
	ch := make(chan api.DispatcherMetrics, 1)
	h.reactor.RunImmediate(func() {
		ch <- h.core.Metrics()
	})
	return <-ch
}

// GetControl returns the Control interface for dynamic config and metrics.
func (h *Dispatcher) GetControl() api.Control {
	return h.control
}

// GetAffinity returns the Affinity interface for CPU/NUMA pinning.
func (h *Dispatcher) GetAffinity() api.Affinity {
	return h.affinity
}

// InstanceID returns the facade's generated unique identifier, stable for
// the lifetime of this Dispatcher value.
func (h *Dispatcher) InstanceID() string {
	return h.instanceID
}
