// File: internal/dispatch/idleroster.go
// Author: momentics <momentics@gmail.com>
//
// Idle Roster (C8): the ordered set of Idle worker ids the dispatch
// algorithm draws from. Assignment prefers the most-recently-idled worker
// (keeps a hot worker's caches/thread-locals warm); the idle sweep retires
// from the least-recently-idled end. Backed by emirpasic/gods' doubly
// linked list so both ends are cheap and arbitrary removal (a worker lost
// to a crash or an explicit stop while idle) stays a single structure.

package dispatch

import (
	"time"

	"github.com/emirpasic/gods/lists/doublylinkedlist"
)

type idleEntry struct {
	workerID uint64
	since    time.Time
}

// IdleRoster tracks idle worker ids in MRU-at-back / LRU-at-front order.
// It is only ever touched from the reactor thread; no internal locking.
type IdleRoster struct {
	list *doublylinkedlist.List
}

func newIdleRoster() *IdleRoster {
	return &IdleRoster{list: doublylinkedlist.New()}
}

// PushMRU marks workerID idle as of now, at the most-recently-idled end.
func (r *IdleRoster) PushMRU(workerID uint64) {
	r.list.Append(idleEntry{workerID: workerID, since: time.Now()})
}

// PopMRU removes and returns the most-recently-idled worker, if any.
func (r *IdleRoster) PopMRU() (uint64, bool) {
	n := r.list.Size()
	if n == 0 {
		return 0, false
	}
	v, _ := r.list.Get(n - 1)
	r.list.Remove(n - 1)
	return v.(idleEntry).workerID, true
}

// PeekLRU returns the least-recently-idled worker and its idle-since time,
// without removing it.
func (r *IdleRoster) PeekLRU() (uint64, time.Time, bool) {
	if r.list.Size() == 0 {
		return 0, time.Time{}, false
	}
	v, _ := r.list.Get(0)
	e := v.(idleEntry)
	return e.workerID, e.since, true
}

// PopLRU removes and returns the least-recently-idled worker, if any.
func (r *IdleRoster) PopLRU() (uint64, bool) {
	if r.list.Size() == 0 {
		return 0, false
	}
	v, _ := r.list.Get(0)
	r.list.Remove(0)
	return v.(idleEntry).workerID, true
}

// Remove evicts workerID from the roster wherever it sits, e.g. because it
// was stopped or lost while idle. No-op if workerID is not present.
func (r *IdleRoster) Remove(workerID uint64) {
	for i, v := range r.list.Values() {
		if v.(idleEntry).workerID == workerID {
			r.list.Remove(i)
			return
		}
	}
}

// Len reports how many workers are currently idle.
func (r *IdleRoster) Len() int {
	return r.list.Size()
}
