// File: internal/dispatch/resultchan.go
// Author: momentics <momentics@gmail.com>
//
// The Result Channel (C3): the single MPSC conduit carrying outcomes from
// worker goroutines back to the reactor thread. Workers push without
// blocking on reactor-thread progress; the reactor drains it in response to
// a coalesced wakeup signal. Backed by a mutex-guarded eapache/queue rather
// than a fixed-capacity lock-free ring, since the ring's bounded-drop
// behavior would silently lose outcomes, which the delivery contract rules
// out (see DESIGN.md).

package dispatch

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/taskline/dispatcher/api"
	"github.com/taskline/dispatcher/pool"
)

type outcomeKind int

const (
	outcomeTask outcomeKind = iota
	outcomeWorkerLost
	outcomeSpawnDone
)

// Outcome is one record flowing through the Result Channel.
type Outcome struct {
	Kind     outcomeKind
	TaskID   uint64
	WorkerID uint64
	Status   api.Status
	Payload  any
	Err      error
}

var outcomePool = pool.NewSyncPool(func() *Outcome { return &Outcome{} })

// ResultChannel is the cross-thread outcome conduit. Push is safe to call
// concurrently from any number of worker goroutines; Pop is only ever
// called from the reactor thread.
type ResultChannel struct {
	mu     sync.Mutex
	q      *queue.Queue
	wakeup chan struct{}
}

// NewResultChannel creates an empty result channel.
func NewResultChannel() *ResultChannel {
	return &ResultChannel{
		q:      queue.New(),
		wakeup: make(chan struct{}, 1),
	}
}

// Wakeup is the signal the reactor watches; a send is coalesced, so many
// pushes between drains still wake the reactor exactly once.
func (rc *ResultChannel) Wakeup() <-chan struct{} {
	return rc.wakeup
}

// Push enqueues an outcome and signals the reactor. Never blocks.
func (rc *ResultChannel) Push(o Outcome) {
	rec := outcomePool.Get()
	*rec = o
	rc.mu.Lock()
	rc.q.Add(rec)
	rc.mu.Unlock()
	select {
	case rc.wakeup <- struct{}{}:
	default:
	}
}

// Pop removes and returns the oldest outcome, if any.
func (rc *ResultChannel) Pop() (Outcome, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.q.Length() == 0 {
		return Outcome{}, false
	}
	rec := rc.q.Peek().(*Outcome)
	rc.q.Remove()
	o := *rec
	outcomePool.Put(rec)
	return o, true
}
