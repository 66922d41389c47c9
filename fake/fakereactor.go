// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT
//
// FakeReactor is a deterministic, manually-driven stand-in for api.Reactor:
// nothing fires until the test calls Advance or Drain, so dispatcher tests
// can assert exact before/after state around a timeout or an idle sweep
// without racing a real clock.

package fake

import (
	"container/heap"
	"errors"
	"sync"
	"time"

	"github.com/taskline/dispatcher/api"
)

type timerItem struct {
	at        time.Time
	cb        func()
	cancelled bool
	index     int
}

type timerHeap []*timerItem

func (h timerHeap) Len() int           { return len(h) }
func (h timerHeap) Less(i, j int) bool { return h[i].at.Before(h[j].at) }
func (h timerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x any) {
	item := x.(*timerItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

type watcher struct {
	wakeup <-chan struct{}
	cb     func()
}

type fakeCancelable struct {
	item   *timerItem
	doneCh chan struct{}
	once   sync.Once
	err    error
}

func (c *fakeCancelable) Cancel() error {
	c.once.Do(func() {
		c.item.cancelled = true
		c.err = errors.New("cancelled")
		close(c.doneCh)
	})
	return nil
}
func (c *fakeCancelable) Done() <-chan struct{} { return c.doneCh }
func (c *fakeCancelable) Err() error            { return c.err }

// FakeReactor implements api.Reactor with an explicit fake clock.
type FakeReactor struct {
	mu        sync.Mutex
	now       time.Time
	timers    timerHeap
	watchers  []watcher
	immediate []func()
	stopped   bool
}

// NewFakeReactor creates a fake reactor whose clock starts at time.Now().
func NewFakeReactor() *FakeReactor {
	return &FakeReactor{now: time.Now()}
}

func (f *FakeReactor) ScheduleOnce(delay time.Duration, cb func()) (api.Cancelable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := &timerItem{at: f.now.Add(delay), cb: cb}
	heap.Push(&f.timers, item)
	return &fakeCancelable{item: item, doneCh: make(chan struct{})}, nil
}

func (f *FakeReactor) WatchReadable(wakeup <-chan struct{}, cb func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watchers = append(f.watchers, watcher{wakeup: wakeup, cb: cb})
	return nil
}

func (f *FakeReactor) RunImmediate(cb func()) {
	f.mu.Lock()
	f.immediate = append(f.immediate, cb)
	f.mu.Unlock()
}

func (f *FakeReactor) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

// Advance moves the fake clock forward by d and drains everything that
// becomes ready as a result.
func (f *FakeReactor) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
	f.Drain()
}

// Now returns the fake reactor's current time.
func (f *FakeReactor) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Drain runs queued immediate callbacks, due timers, and polls every
// watched wakeup channel once each, repeating until a full pass makes no
// progress — so a callback that itself arms new immediate work settles
// before Drain returns.
func (f *FakeReactor) Drain() {
	for {
		progressed := false

		f.mu.Lock()
		imm := f.immediate
		f.immediate = nil
		f.mu.Unlock()
		for _, cb := range imm {
			cb()
			progressed = true
		}

		for {
			f.mu.Lock()
			if f.timers.Len() == 0 || f.timers[0].at.After(f.now) {
				f.mu.Unlock()
				break
			}
			item := heap.Pop(&f.timers).(*timerItem)
			f.mu.Unlock()
			if item.cancelled {
				continue
			}
			item.cb()
			progressed = true
		}

		f.mu.Lock()
		watchers := append([]watcher(nil), f.watchers...)
		f.mu.Unlock()
		for _, w := range watchers {
			select {
			case <-w.wakeup:
				w.cb()
				progressed = true
			default:
			}
		}

		if !progressed {
			return
		}
	}
}
