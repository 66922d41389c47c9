package dispatch

import "testing"

func TestIdleRosterMRUOrder(t *testing.T) {
	r := newIdleRoster()
	r.PushMRU(1)
	r.PushMRU(2)
	r.PushMRU(3)

	id, ok := r.PopMRU()
	if !ok || id != 3 {
		t.Fatalf("got (%v,%v), want (3,true)", id, ok)
	}
	id, ok = r.PopMRU()
	if !ok || id != 2 {
		t.Fatalf("got (%v,%v), want (2,true)", id, ok)
	}
}

func TestIdleRosterLRUOrder(t *testing.T) {
	r := newIdleRoster()
	r.PushMRU(1)
	r.PushMRU(2)
	r.PushMRU(3)

	id, ok := r.PopLRU()
	if !ok || id != 1 {
		t.Fatalf("got (%v,%v), want (1,true)", id, ok)
	}
	id, ok = r.PopLRU()
	if !ok || id != 2 {
		t.Fatalf("got (%v,%v), want (2,true)", id, ok)
	}
}

func TestIdleRosterRemoveArbitrary(t *testing.T) {
	r := newIdleRoster()
	r.PushMRU(1)
	r.PushMRU(2)
	r.PushMRU(3)

	r.Remove(2)
	if r.Len() != 2 {
		t.Fatalf("got len %d, want 2", r.Len())
	}
	_, _, ok := r.PeekLRU()
	if !ok {
		t.Fatalf("expected a remaining entry")
	}
	for r.Len() > 0 {
		id, _ := r.PopLRU()
		if id == 2 {
			t.Fatalf("removed worker 2 resurfaced")
		}
	}
}

func TestIdleRosterEmptyPops(t *testing.T) {
	r := newIdleRoster()
	if _, ok := r.PopMRU(); ok {
		t.Fatalf("expected miss on empty roster")
	}
	if _, ok := r.PopLRU(); ok {
		t.Fatalf("expected miss on empty roster")
	}
	if _, _, ok := r.PeekLRU(); ok {
		t.Fatalf("expected miss on empty roster")
	}
}
