// File: internal/dispatch/dispatcher.go
// Author: momentics <momentics@gmail.com>
//
// Dispatcher (C4): the non-blocking worker-pool facade. All state here —
// the submission queue, the pending table, the worker-state table, the
// idle roster, the live option set — is mutated exclusively from the
// reactor thread the Dispatcher was built against; nothing in this file
// takes a lock. The only cross-thread boundary is the Result Channel,
// which is its own synchronized type.

package dispatch

import (
	"fmt"
	"reflect"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/taskline/dispatcher/api"
)

const idleSweepInterval = 1 * time.Second

// Metrics is the narrow observer the dispatch core reports to. control.Metrics
// implements it; tests can supply a no-op or recording stub without this
// package depending on Prometheus at all.
type Metrics interface {
	IncSubmitted()
	IncCompleted()
	IncFailed(reason string)
	ObserveLatency(d time.Duration)
	SetWorkerCounts(live, idle, busy int)
	SetQueueDepth(n int)
}

type noopMetrics struct{}

func (noopMetrics) IncSubmitted()                     {}
func (noopMetrics) IncCompleted()                     {}
func (noopMetrics) IncFailed(reason string)            {}
func (noopMetrics) ObserveLatency(d time.Duration)     {}
func (noopMetrics) SetWorkerCounts(live, idle, busy int) {}
func (noopMetrics) SetQueueDepth(n int)                {}

type workerRecord struct {
	state         api.WorkerState
	currentTaskID uint64
	taskCount     int
	idleSince     time.Time
}

// Dispatcher implements the call/execute/setOption/addStartTask/
// removeStartTask/stop surface (§4.4) on top of a Reactor, a Registry and a
// promise library supplied by the caller.
type Dispatcher struct {
	reactor     api.Reactor
	registry    *Registry
	promiseLib  api.PromiseLibrary[any]
	metrics     Metrics
	log         logrus.FieldLogger

	opts api.Options

	nextTaskID   uint64
	nextWorkerID uint64

	queue   *submitQueue
	pending map[uint64]*pendingEntry

	workers       map[uint64]*Worker
	workerRecords map[uint64]*workerRecord
	idle          *IdleRoster

	startTasks []api.Task

	resultCh        *ResultChannel
	idleSweepHandle api.Cancelable
	stopped         bool
	startedAt       time.Time

	tasksSubmitted uint64
	tasksCompleted uint64
	tasksFailed    uint64
}

// New creates a Dispatcher bound to reactor. It does not spawn any workers
// until Start is called.
func New(reactor api.Reactor, promiseLib api.PromiseLibrary[any], opts api.Options, log logrus.FieldLogger, metrics Metrics) *Dispatcher {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{
		reactor:       reactor,
		registry:      NewRegistry(),
		promiseLib:    promiseLib,
		metrics:       metrics,
		log:           log,
		opts:          opts,
		queue:         newSubmitQueue(),
		pending:       make(map[uint64]*pendingEntry),
		workers:       make(map[uint64]*Worker),
		workerRecords: make(map[uint64]*workerRecord),
		idle:          newIdleRoster(),
	}
}

// Registry exposes the callable registry for registration before Start.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Start brings the pool up to POOL_SIZE_MIN and arms the idle sweep and the
// Result Channel wakeup watcher. Must be called from the reactor thread.
func (d *Dispatcher) Start() error {
	d.startedAt = time.Now()
	d.resultCh = NewResultChannel()
	if err := d.reactor.WatchReadable(d.resultCh.Wakeup(), d.onResultWakeup); err != nil {
		return fmt.Errorf("dispatch: watch result channel: %w", err)
	}
	d.armIdleSweep()
	d.maybeSpawnToMin()
	return nil
}

// Call submits a call(name, args...) task (§4.4, Call variant).
func (d *Dispatcher) Call(name string, args ...any) (api.Promise[any], error) {
	if d.stopped {
		return nil, &api.SubmissionError{Reason: "dispatcher is stopped"}
	}
	if _, ok := d.registry.Lookup(name); !ok {
		return nil, &api.SubmissionError{Reason: fmt.Sprintf("unknown callable %q", name)}
	}
	return d.submit(newCallTask(name, args, d.registry))
}

// Execute submits an opaque task directly (§4.4, Custom variant).
func (d *Dispatcher) Execute(task api.Task) (api.Promise[any], error) {
	if d.stopped {
		return nil, &api.SubmissionError{Reason: "dispatcher is stopped"}
	}
	if task == nil {
		return nil, &api.SubmissionError{Reason: "task is nil"}
	}
	return d.submit(task)
}

// SetOption applies a §4.5 tunable and returns its prior value.
func (d *Dispatcher) SetOption(key api.OptionKey, value any) (any, error) {
	prior, err := applyOption(&d.opts, key, value)
	if err != nil {
		return nil, err
	}
	switch key {
	case api.OptPoolSizeMin:
		d.maybeSpawnToMin()
	case api.OptPoolSizeMax:
		d.shrinkIdleToMax()
	}
	return prior, nil
}

// AddStartTask registers task to run on every future worker spawn, with
// set-by-identity semantics: adding an already-present task is a no-op.
// Tasks are matched with sameTask, under which func-kinded tasks such as
// api.TaskFunc never match, not even themselves: adding one twice
// registers it twice, and RemoveStartTask does not remove it.
func (d *Dispatcher) AddStartTask(task api.Task) {
	for _, t := range d.startTasks {
		if sameTask(t, task) {
			return
		}
	}
	d.startTasks = append(d.startTasks, task)
}

// RemoveStartTask removes task if present, by identity.
func (d *Dispatcher) RemoveStartTask(task api.Task) {
	for i, t := range d.startTasks {
		if sameTask(t, task) {
			d.startTasks = append(d.startTasks[:i], d.startTasks[i+1:]...)
			return
		}
	}
}

// Stop stops accepting new submissions. Queued-but-unassigned tasks are
// cancelled with ShutdownError immediately. If force is false, in-flight
// tasks are allowed to finish naturally and their workers retire as they
// free up; if force is true, every in-flight task is settled with
// ShutdownError immediately and every worker is stopped without waiting.
func (d *Dispatcher) Stop(force bool) {
	if d.stopped {
		return
	}
	d.stopped = true
	if d.idleSweepHandle != nil {
		_ = d.idleSweepHandle.Cancel()
	}
	for {
		entry := d.queue.Pop()
		if entry == nil {
			break
		}
		entry.settle(&api.ShutdownError{TaskID: entry.taskID}, nil)
		d.tasksFailed++
		d.metrics.IncFailed("shutdown")
	}
	d.metrics.SetQueueDepth(0)

	if force {
		for taskID, pe := range d.pending {
			if pe.handle != nil {
				_ = pe.handle.Cancel()
			}
			pe.settle(&api.ShutdownError{TaskID: taskID}, nil)
			d.tasksFailed++
			d.metrics.IncFailed("shutdown")
		}
		d.pending = make(map[uint64]*pendingEntry)
		for id, w := range d.workers {
			w.Stop()
			delete(d.workers, id)
			delete(d.workerRecords, id)
		}
		d.idle = newIdleRoster()
		d.reportWorkerCounts()
		return
	}

	for {
		id, ok := d.idle.PopLRU()
		if !ok {
			break
		}
		if w, ok := d.workers[id]; ok {
			w.Stop()
			delete(d.workers, id)
			delete(d.workerRecords, id)
		}
	}
	d.reportWorkerCounts()
}

// Metrics returns a point-in-time snapshot for debug/metrics surfaces.
func (d *Dispatcher) Metrics() api.DispatcherMetrics {
	m := api.DispatcherMetrics{
		LiveWorkers:    len(d.workers),
		QueueDepth:     d.queue.Len(),
		PendingCount:   len(d.pending),
		TasksSubmitted: d.tasksSubmitted,
		TasksCompleted: d.tasksCompleted,
		TasksFailed:    d.tasksFailed,
		StartedAt:      d.startedAt,
	}
	for _, r := range d.workerRecords {
		switch r.state {
		case api.WorkerIdle:
			m.IdleWorkers++
		case api.WorkerBusy:
			m.BusyWorkers++
		}
	}
	return m
}

// --- submission & dispatch algorithm (§4.4) -------------------------------

func (d *Dispatcher) submit(task api.Task) (api.Promise[any], error) {
	d.nextTaskID++
	taskID := d.nextTaskID
	promise, settle := d.promiseLib.Deferred()

	now := time.Now()
	var deadline time.Time
	if d.opts.TaskTimeout > 0 {
		deadline = now.Add(d.opts.TaskTimeout)
	}
	entry := &queueEntry{taskID: taskID, task: task, submittedAt: now, deadline: deadline, settle: settle}
	d.tasksSubmitted++
	d.metrics.IncSubmitted()
	d.enqueueOrAssign(entry)
	return promise, nil
}

func (d *Dispatcher) enqueueOrAssign(entry *queueEntry) {
	if workerID, ok := d.idle.PopMRU(); ok {
		d.assign(workerID, entry)
		return
	}
	if len(d.workers) < d.opts.PoolSizeMax {
		d.spawnWorker()
	}
	d.queue.Push(entry)
	d.metrics.SetQueueDepth(d.queue.Len())
}

func (d *Dispatcher) assign(workerID uint64, entry *queueEntry) {
	w, ok := d.workers[workerID]
	if !ok {
		// Worker disappeared between idle-pop and assign (should not
		// happen on a single reactor thread, but fail safe): requeue.
		d.queue.Push(entry)
		return
	}
	rec := d.workerRecords[workerID]
	rec.state = api.WorkerBusy
	rec.currentTaskID = entry.taskID

	var handle api.Cancelable
	if !entry.deadline.IsZero() {
		h, err := d.reactor.ScheduleOnce(entry.deadline.Sub(time.Now()), func() { d.onTimeout(entry.taskID) })
		if err == nil {
			handle = h
		}
	}
	d.pending[entry.taskID] = &pendingEntry{
		workerID:    workerID,
		handle:      handle,
		settle:      entry.settle,
		submittedAt: entry.submittedAt,
	}
	w.Assign(entry)
	d.reportWorkerCounts()
}

// drainQueueOnce assigns at most one queued task to an idle worker, if both
// exist. Called whenever a worker becomes Idle.
func (d *Dispatcher) drainQueueOnce() {
	if d.queue.Len() == 0 {
		return
	}
	workerID, ok := d.idle.PopMRU()
	if !ok {
		return
	}
	entry := d.queue.Pop()
	d.assign(workerID, entry)
	d.metrics.SetQueueDepth(d.queue.Len())
}

// --- Result Channel handling ----------------------------------------------

func (d *Dispatcher) onResultWakeup() {
	for {
		o, ok := d.resultCh.Pop()
		if !ok {
			return
		}
		d.handleOutcome(o)
	}
}

func (d *Dispatcher) handleOutcome(o Outcome) {
	switch o.Kind {
	case outcomeSpawnDone:
		d.handleSpawnDone(o)
	case outcomeWorkerLost:
		d.handleWorkerLost(o)
	default:
		d.handleTaskOutcome(o)
	}
}

func (d *Dispatcher) handleTaskOutcome(o Outcome) {
	pe, ok := d.pending[o.TaskID]
	if !ok {
		return // already timed out and discarded
	}
	delete(d.pending, o.TaskID)
	if pe.handle != nil {
		_ = pe.handle.Cancel()
	}
	if o.Status == api.StatusSuccess {
		pe.settle(nil, o.Payload)
		d.tasksCompleted++
		d.metrics.IncCompleted()
	} else {
		pe.settle(&api.TaskError{TaskID: o.TaskID, Message: fmt.Sprint(o.Payload)}, nil)
		d.tasksFailed++
		d.metrics.IncFailed("task_error")
	}
	d.metrics.ObserveLatency(time.Since(pe.submittedAt))
	d.onWorkerFreed(o.WorkerID)
}

func (d *Dispatcher) onWorkerFreed(workerID uint64) {
	rec, ok := d.workerRecords[workerID]
	if !ok {
		return
	}
	rec.taskCount++
	rec.currentTaskID = 0

	if d.stopped || len(d.workers) > d.opts.PoolSizeMax {
		d.retireWorker(workerID)
		d.maybeSpawnToMin()
		return
	}
	if d.opts.ExecLimit != api.Unbounded && rec.taskCount >= d.opts.ExecLimit {
		d.retireWorker(workerID)
		d.maybeSpawnToMin()
		d.drainQueueOnce()
		return
	}
	rec.state = api.WorkerIdle
	rec.idleSince = time.Now()
	d.idle.PushMRU(workerID)
	d.reportWorkerCounts()
	d.drainQueueOnce()
}

func (d *Dispatcher) handleWorkerLost(o Outcome) {
	delete(d.workers, o.WorkerID)
	delete(d.workerRecords, o.WorkerID)
	d.idle.Remove(o.WorkerID)
	if o.TaskID != 0 {
		if pe, ok := d.pending[o.TaskID]; ok {
			delete(d.pending, o.TaskID)
			if pe.handle != nil {
				_ = pe.handle.Cancel()
			}
			pe.settle(&api.WorkerLostError{TaskID: o.TaskID, WorkerID: o.WorkerID, Cause: o.Err}, nil)
			d.tasksFailed++
			d.metrics.IncFailed("worker_lost")
		}
	}
	d.log.WithField("worker_id", o.WorkerID).WithField("task_id", o.TaskID).Warn("worker lost")
	d.reportWorkerCounts()
	if !d.stopped {
		d.maybeSpawnToMin()
	}
}

func (d *Dispatcher) handleSpawnDone(o Outcome) {
	if o.Err != nil {
		delete(d.workers, o.WorkerID)
		delete(d.workerRecords, o.WorkerID)
		d.log.WithError(o.Err).WithField("worker_id", o.WorkerID).Warn("worker failed to spawn")
		d.reportWorkerCounts()
		if !d.stopped {
			d.maybeSpawnToMin()
		}
		return
	}
	if d.stopped || len(d.workers) > d.opts.PoolSizeMax {
		d.retireWorker(o.WorkerID)
		return
	}
	rec, ok := d.workerRecords[o.WorkerID]
	if !ok {
		return
	}
	rec.state = api.WorkerIdle
	rec.idleSince = time.Now()
	d.idle.PushMRU(o.WorkerID)
	d.reportWorkerCounts()
	d.drainQueueOnce()
}

func (d *Dispatcher) onTimeout(taskID uint64) {
	pe, ok := d.pending[taskID]
	if !ok {
		return // already settled
	}
	delete(d.pending, taskID)
	pe.settle(&api.TimeoutError{TaskID: taskID, Timeout: d.opts.TaskTimeout.String()}, nil)
	d.tasksFailed++
	d.metrics.IncFailed("timeout")
	d.metrics.ObserveLatency(time.Since(pe.submittedAt))
	d.log.WithField("task_id", taskID).WithField("worker_id", pe.workerID).Warn("task timed out")
	d.retireWorker(pe.workerID)
	d.maybeSpawnToMin()
}

// --- pool elasticity --------------------------------------------------

func (d *Dispatcher) spawnWorker() {
	d.nextWorkerID++
	id := d.nextWorkerID
	w := NewWorker(id, d.resultCh, d.opts.ThreadFlags)
	d.workers[id] = w
	d.workerRecords[id] = &workerRecord{state: api.WorkerSpawning}
	w.Spawn(d.startTasksSnapshot())
	d.log.WithField("worker_id", id).Debug("worker spawning")
	d.reportWorkerCounts()
}

func (d *Dispatcher) maybeSpawnToMin() {
	for len(d.workers) < d.opts.PoolSizeMin {
		d.spawnWorker()
	}
}

func (d *Dispatcher) shrinkIdleToMax() {
	for len(d.workers) > d.opts.PoolSizeMax {
		id, ok := d.idle.PopLRU()
		if !ok {
			break // excess workers are busy; they retire as they free up
		}
		d.retireWorker(id)
	}
	d.reportWorkerCounts()
}

func (d *Dispatcher) retireWorker(workerID uint64) {
	w, ok := d.workers[workerID]
	if !ok {
		return
	}
	delete(d.workers, workerID)
	delete(d.workerRecords, workerID)
	d.idle.Remove(workerID)
	w.Stop()
	d.log.WithField("worker_id", workerID).Debug("worker retired")
}

func (d *Dispatcher) startTasksSnapshot() []api.Task {
	out := make([]api.Task, len(d.startTasks))
	copy(out, d.startTasks)
	return out
}

func (d *Dispatcher) armIdleSweep() {
	h, err := d.reactor.ScheduleOnce(idleSweepInterval, d.runIdleSweep)
	if err != nil {
		d.log.WithError(err).Warn("failed to arm idle sweep")
		return
	}
	d.idleSweepHandle = h
}

func (d *Dispatcher) runIdleSweep() {
	if d.stopped {
		return
	}
	now := time.Now()
	for d.idle.Len() > 0 && len(d.workers) > d.opts.PoolSizeMin {
		workerID, since, ok := d.idle.PeekLRU()
		if !ok || now.Sub(since) < d.opts.IdleWorkerTimeout {
			break
		}
		d.idle.PopLRU()
		d.retireWorker(workerID)
	}
	d.reportWorkerCounts()
	d.armIdleSweep()
}

func (d *Dispatcher) reportWorkerCounts() {
	live := len(d.workers)
	idle := d.idle.Len()
	busy := 0
	for _, r := range d.workerRecords {
		if r.state == api.WorkerBusy {
			busy++
		}
	}
	d.metrics.SetWorkerCounts(live, idle, busy)
}

// sameTask reports whether a and b refer to the same task by identity.
// Pointer-, channel- and map-kinded tasks compare by address; everything
// else — including func-kinded tasks such as api.TaskFunc — falls back to
// == with a panic guard, since an arbitrary Task implementation is not
// guaranteed to be comparable.
//
// Func is deliberately excluded from the address-comparison case above:
// reflect.Value.Pointer() on a func returns its code entry point, which is
// identical for every closure created from the same function literal
// regardless of what each one captured. Treating that as identity would
// make AddStartTask/RemoveStartTask wrongly de-duplicate two distinct
// closures sharing one call site. Go does not expose per-closure identity,
// so a func-kinded task can only ever match itself going through the ==
// path — which panics on any non-nil func comparison and is caught by the
// recover guard, settling to "not the same task" rather than a false
// positive.
func sameTask(a, b api.Task) bool {
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Kind() != bv.Kind() {
		return false
	}
	switch av.Kind() {
	case reflect.Ptr, reflect.Chan, reflect.Map, reflect.UnsafePointer:
		return av.Pointer() == bv.Pointer()
	default:
		equal := false
		func() {
			defer func() { recover() }()
			equal = a == b
		}()
		return equal
	}
}
