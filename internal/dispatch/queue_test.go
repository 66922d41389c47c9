package dispatch

import "testing"

func TestSubmitQueueFIFOOrder(t *testing.T) {
	q := newSubmitQueue()
	q.Push(&queueEntry{taskID: 1})
	q.Push(&queueEntry{taskID: 2})
	q.Push(&queueEntry{taskID: 3})

	if q.Len() != 3 {
		t.Fatalf("got len %d, want 3", q.Len())
	}
	for _, want := range []uint64{1, 2, 3} {
		e := q.Pop()
		if e == nil || e.taskID != want {
			t.Fatalf("got %v, want taskID %d", e, want)
		}
	}
	if q.Pop() != nil {
		t.Fatalf("expected nil on empty queue")
	}
}
