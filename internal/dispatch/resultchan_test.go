package dispatch

import (
	"sync"
	"testing"
)

func TestResultChannelFIFOAndWakeup(t *testing.T) {
	rc := NewResultChannel()
	rc.Push(Outcome{Kind: outcomeTask, TaskID: 1})
	rc.Push(Outcome{Kind: outcomeTask, TaskID: 2})

	select {
	case <-rc.Wakeup():
	default:
		t.Fatalf("expected a coalesced wakeup signal")
	}

	o, ok := rc.Pop()
	if !ok || o.TaskID != 1 {
		t.Fatalf("got (%+v,%v), want task 1", o, ok)
	}
	o, ok = rc.Pop()
	if !ok || o.TaskID != 2 {
		t.Fatalf("got (%+v,%v), want task 2", o, ok)
	}
	if _, ok := rc.Pop(); ok {
		t.Fatalf("expected empty channel")
	}
}

func TestResultChannelWakeupCoalesces(t *testing.T) {
	rc := NewResultChannel()
	for i := 0; i < 5; i++ {
		rc.Push(Outcome{Kind: outcomeTask, TaskID: uint64(i)})
	}
	fired := 0
	for {
		select {
		case <-rc.Wakeup():
			fired++
		default:
			goto done
		}
	}
done:
	if fired != 1 {
		t.Fatalf("got %d wakeup signals, want exactly 1 (coalesced)", fired)
	}
}

func TestResultChannelConcurrentPush(t *testing.T) {
	rc := NewResultChannel()
	var wg sync.WaitGroup
	const n = 100
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			rc.Push(Outcome{Kind: outcomeTask, TaskID: id})
		}(uint64(i))
	}
	wg.Wait()

	count := 0
	for {
		if _, ok := rc.Pop(); !ok {
			break
		}
		count++
	}
	if count != n {
		t.Fatalf("got %d outcomes, want %d", count, n)
	}
}
