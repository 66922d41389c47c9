// File: internal/dispatch/worker.go
// Author: momentics <momentics@gmail.com>
//
// Worker (C2): one OS-thread-backed execution context. A worker runs its
// start tasks, reports readiness on the Result Channel, then loops
// accepting at most one assigned task at a time and reporting its outcome
// the same way. The Dispatcher owns all state *about* a worker (its
// WorkerState, task count, idle-since); the Worker itself only knows how to
// run tasks and report what happened.

package dispatch

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/taskline/dispatcher/affinity"
	"github.com/taskline/dispatcher/api"
)

// ErrWorkerCrash re-exports api.ErrWorkerCrash for existing call sites
// within this package.
var ErrWorkerCrash = api.ErrWorkerCrash

// Worker is one execution context: a goroutine pinned (best effort) to an
// OS thread, optionally affinitized, running tasks handed to it one at a
// time.
type Worker struct {
	id           uint64
	resultCh     *ResultChannel
	affinityMask uint64

	taskCh   chan *queueEntry
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a worker. Spawn must be called to actually start it.
func NewWorker(id uint64, resultCh *ResultChannel, affinityMask uint64) *Worker {
	return &Worker{
		id:           id,
		resultCh:     resultCh,
		affinityMask: affinityMask,
		taskCh:       make(chan *queueEntry, 1),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// ID returns the worker's identity.
func (w *Worker) ID() uint64 { return w.id }

// Done is closed once the worker's goroutine has fully exited, whether by
// graceful Stop or by a simulated crash.
func (w *Worker) Done() <-chan struct{} { return w.doneCh }

// Spawn starts the worker's execution context: it pins the goroutine to
// its OS thread, applies the affinity mask (best effort — failure does not
// stop the worker), runs start tasks in order, and reports readiness on
// the Result Channel as an outcomeSpawnDone record. A start task failure
// (including a simulated crash) reports outcomeSpawnDone with Err set and
// the worker never enters its accept loop.
func (w *Worker) Spawn(startTasks []api.Task) {
	go func() {
		runtime.LockOSThread()
		if w.affinityMask != 0 {
			_ = affinity.BindMask(w.affinityMask)
		}
		for _, st := range startTasks {
			status, payload, crashed := w.runSync(st)
			if crashed || status != api.StatusSuccess {
				reason := payload
				if crashed {
					reason = "worker context died during start task"
				}
				w.resultCh.Push(Outcome{
					Kind:     outcomeSpawnDone,
					WorkerID: w.id,
					Err:      fmt.Errorf("start task failed: %v", reason),
				})
				close(w.doneCh)
				return
			}
		}
		w.resultCh.Push(Outcome{Kind: outcomeSpawnDone, WorkerID: w.id})
		w.loop()
	}()
}

// Assign hands the worker its next task. Callers must only call this while
// the dispatcher considers the worker Idle — the channel is buffered by
// exactly one slot as a safety margin, not a queue.
func (w *Worker) Assign(entry *queueEntry) {
	w.taskCh <- entry
}

// Stop signals the worker to exit once it finishes any in-flight task. Stop
// is idempotent and never blocks.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *Worker) loop() {
	defer close(w.doneCh)
	for {
		select {
		case entry := <-w.taskCh:
			status, payload, crashed := w.runSync(entry.task)
			if crashed {
				w.resultCh.Push(Outcome{Kind: outcomeWorkerLost, WorkerID: w.id, TaskID: entry.taskID})
				return
			}
			w.resultCh.Push(Outcome{
				Kind:     outcomeTask,
				TaskID:   entry.taskID,
				WorkerID: w.id,
				Status:   status,
				Payload:  payload,
			})
		case <-w.stopCh:
			return
		}
	}
}

// syncResolver adapts the asynchronous api.Resolver contract to a
// synchronous call site: runSync blocks until Resolve is called (or the
// task's Execute returns without resolving).
type syncResolver struct {
	done    chan struct{}
	once    sync.Once
	status  api.Status
	payload any
}

func newSyncResolver() *syncResolver {
	return &syncResolver{done: make(chan struct{})}
}

func (r *syncResolver) Resolve(status api.Status, payload any) {
	r.once.Do(func() {
		r.status = status
		r.payload = payload
		close(r.done)
	})
}

// runSync executes task to completion on the calling goroutine, recovering
// from an ordinary panic (reported as FAILURE) and distinguishing a
// simulated crash (reported via the crashed return).
func (w *Worker) runSync(task api.Task) (status api.Status, payload any, crashed bool) {
	r := newSyncResolver()
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == ErrWorkerCrash {
					crashed = true
					return
				}
				r.Resolve(api.StatusFailure, fmt.Sprintf("panic: %v", rec))
			}
		}()
		task.Execute(r)
	}()
	if crashed {
		return api.StatusFailure, nil, true
	}
	select {
	case <-r.done:
		return r.status, r.payload, false
	default:
		return api.StatusFailure, "task did not resolve", false
	}
}
