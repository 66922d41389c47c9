package reactor

import (
	"sync"
	"testing"
	"time"
)

func TestScheduleOnceFiresInOrder(t *testing.T) {
	l := New()
	go l.Run()
	defer l.Stop()

	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	wg.Add(2)
	l.ScheduleOnce(20*time.Millisecond, func() {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		wg.Done()
	})
	l.ScheduleOnce(5*time.Millisecond, func() {
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
		wg.Done()
	})

	waitWithTimeout(t, &wg, time.Second)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("got order %v, want [1 2]", order)
	}
}

func TestScheduleOnceCancelPreventsFiring(t *testing.T) {
	l := New()
	go l.Run()
	defer l.Stop()

	fired := make(chan struct{}, 1)
	c, err := l.ScheduleOnce(20*time.Millisecond, func() {
		fired <- struct{}{}
	})
	if err != nil {
		t.Fatalf("ScheduleOnce: %v", err)
	}
	if err := c.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	select {
	case <-fired:
		t.Fatalf("cancelled callback fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatchReadableCoalescesMultipleSends(t *testing.T) {
	l := New()
	go l.Run()
	defer l.Stop()

	wakeup := make(chan struct{}, 1)
	done := make(chan struct{})
	var mu sync.Mutex
	var callCount int
	if err := l.WatchReadable(wakeup, func() {
		mu.Lock()
		callCount++
		n := callCount
		mu.Unlock()
		if n == 1 {
			close(done)
		}
	}); err != nil {
		t.Fatalf("WatchReadable: %v", err)
	}

	select {
	case wakeup <- struct{}{}:
	default:
	}
	select {
	case wakeup <- struct{}{}:
	default:
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("watch callback never fired")
	}
}

func TestRunImmediateOrder(t *testing.T) {
	l := New()
	go l.Run()
	defer l.Stop()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 1; i <= 3; i++ {
		i := i
		l.RunImmediate(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}

	waitWithTimeout(t, &wg, time.Second)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("got order %v, want [1 2 3]", order)
	}
}

func TestStopMakesRunReturn(t *testing.T) {
	l := New()
	done := make(chan struct{})
	go func() {
		l.Run()
		close(done)
	}()

	l.RunImmediate(func() {})
	l.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after Stop")
	}
}

func waitWithTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("timed out waiting for callbacks")
	}
}
