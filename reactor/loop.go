// File: reactor/loop.go
// Author: momentics <momentics@gmail.com>
//
// Loop is a minimal single-threaded event loop satisfying api.Reactor: a
// monotonic timer heap plus a channel of immediate callbacks, run from one
// goroutine with an adaptive backoff when idle — the same batched-drain-
// then-backoff shape as the teacher's event loop, narrowed to the
// dispatcher's actual needs (timers, wakeup watches, immediate callbacks)
// instead of a general event/handler bus.
package reactor

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

type cancelable struct {
	item   *timerItem
	doneCh chan struct{}
	once   sync.Once
	err    error
}

func (c *cancelable) Cancel() error {
	c.once.Do(func() {
		c.item.cancelled = true
		c.err = errors.New("cancelled")
		close(c.doneCh)
	})
	return nil
}
func (c *cancelable) Done() <-chan struct{} { return c.doneCh }
func (c *cancelable) Err() error            { return c.err }

type watch struct {
	wakeup <-chan struct{}
	cb     func()
}

// Loop is the reference api.Reactor implementation.
type Loop struct {
	mu        sync.Mutex
	timers    timerHeap
	watches   []watch
	immediate chan func()
	quitCh    chan struct{}
	doneCh    chan struct{}
	running   bool
}

// New creates a Loop. Call Run to start it on a goroutine of the caller's
// choosing.
func New() *Loop {
	return &Loop{
		immediate: make(chan func(), 256),
		quitCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

func (l *Loop) ScheduleOnce(delay time.Duration, cb func()) (api.Cancelable, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	item := &timerItem{at: time.Now().Add(delay), cb: cb}
	heap.Push(&l.timers, item)
	return &cancelable{item: item, doneCh: make(chan struct{})}, nil
}

func (l *Loop) WatchReadable(wakeup <-chan struct{}, cb func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.watches = append(l.watches, watch{wakeup: wakeup, cb: cb})
	return nil
}

func (l *Loop) RunImmediate(cb func()) {
	select {
	case l.immediate <- cb:
	case <-l.quitCh:
	}
}

// Run drives the loop until Stop is called. It blocks the calling
// goroutine, so callers typically invoke it as `go loop.Run()`.
func (l *Loop) Run() {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.mu.Unlock()
	defer close(l.doneCh)

	backoff := time.Millisecond
	const maxBackoff = 50 * time.Millisecond
	timer := time.NewTimer(backoff)
	defer timer.Stop()

	for {
		progressed := l.runImmediateReady()
		progressed = l.runDueTimers() || progressed
		progressed = l.pollWatches() || progressed

		if progressed {
			backoff = time.Millisecond
			continue
		}

		wait := l.nextTimerWait(maxBackoff)
		timer.Reset(wait)
		select {
		case <-l.quitCh:
			return
		case cb := <-l.immediate:
			cb()
		case <-timer.C:
			if backoff < maxBackoff {
				backoff *= 2
			}
		}
	}
}

func (l *Loop) runImmediateReady() bool {
	progressed := false
	for {
		select {
		case cb := <-l.immediate:
			cb()
			progressed = true
		default:
			return progressed
		}
	}
}

func (l *Loop) runDueTimers() bool {
	progressed := false
	now := time.Now()
	for {
		l.mu.Lock()
		if l.timers.Len() == 0 || l.timers[0].at.After(now) {
			l.mu.Unlock()
			return progressed
		}
		item := heap.Pop(&l.timers).(*timerItem)
		l.mu.Unlock()
		if item.cancelled {
			continue
		}
		item.cb()
		progressed = true
	}
}

func (l *Loop) pollWatches() bool {
	l.mu.Lock()
	watches := append([]watch(nil), l.watches...)
	l.mu.Unlock()
	progressed := false
	for _, w := range watches {
		select {
		case <-w.wakeup:
			w.cb()
			progressed = true
		default:
		}
	}
	return progressed
}

func (l *Loop) nextTimerWait(cap time.Duration) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timers.Len() == 0 {
		return cap
	}
	d := time.Until(l.timers[0].at)
	if d <= 0 {
		return time.Microsecond
	}
	if d > cap {
		return cap
	}
	return d
}

// Stop shuts the loop down and waits for Run to return, if it was started.
func (l *Loop) Stop() {
	l.mu.Lock()
	running := l.running
	l.mu.Unlock()
	select {
	case <-l.quitCh:
	default:
		close(l.quitCh)
	}
	if running {
		<-l.doneCh
	}
}

var _ api.Reactor = (*Loop)(nil)
