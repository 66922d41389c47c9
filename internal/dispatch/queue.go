// File: internal/dispatch/queue.go
// Author: momentics <momentics@gmail.com>
//
// The FIFO submission queue and the pending table (§4.3). Both are plain
// reactor-thread-owned state; the queue borrows the teacher's unused
// eapache/queue dependency (a ring-buffer-backed, auto-growing FIFO) rather
// than hand-rolling one, and the pending table is a bare map keyed by task
// id.

package dispatch

import (
	"time"

	"github.com/eapache/queue"

	"github.com/taskline/dispatcher/api"
)

// queueEntry is a task waiting for a worker.
type queueEntry struct {
	taskID      uint64
	task        api.Task
	submittedAt time.Time
	deadline    time.Time // zero value means no per-task deadline
	settle      api.Settle[any]
}

// pendingEntry tracks a task that has been handed to a worker but has not
// yet settled.
type pendingEntry struct {
	workerID    uint64
	handle      api.Cancelable // timeout timer, nil if TASK_TIMEOUT is unbounded
	settle      api.Settle[any]
	submittedAt time.Time
}

// submitQueue wraps eapache/queue.Queue with the *queueEntry type the
// dispatcher actually pushes through it.
type submitQueue struct {
	q *queue.Queue
}

func newSubmitQueue() *submitQueue {
	return &submitQueue{q: queue.New()}
}

func (s *submitQueue) Push(e *queueEntry) {
	s.q.Add(e)
}

// Pop removes and returns the oldest entry, or nil if the queue is empty.
func (s *submitQueue) Pop() *queueEntry {
	if s.q.Length() == 0 {
		return nil
	}
	v := s.q.Peek()
	s.q.Remove()
	return v.(*queueEntry)
}

func (s *submitQueue) Len() int {
	return s.q.Length()
}
