package promise

import (
	"context"
	"testing"
	"time"
)

func TestDeferredSettleOnceThenWait(t *testing.T) {
	lib := NewLibrary[int]()
	p, settle := lib.Deferred()
	if p.IsSettled() {
		t.Fatalf("expected unsettled promise")
	}

	settle(nil, 42)
	settle(nil, 99) // second call must be a no-op, not a panic

	pp := p.(*Promise[int])
	v, err := pp.Wait(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("got %v, want 42 (second settle must be ignored)", v)
	}
	if !p.IsSettled() {
		t.Fatalf("expected settled promise")
	}
}

func TestWaitRespectsContextCancellation(t *testing.T) {
	lib := NewLibrary[int]()
	p, _ := lib.Deferred()
	pp := p.(*Promise[int])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := pp.Wait(ctx)
	if err == nil {
		t.Fatalf("expected context deadline error")
	}
}

func TestThenFiresAfterSettle(t *testing.T) {
	lib := NewLibrary[string]()
	p, settle := lib.Deferred()
	pp := p.(*Promise[string])

	done := make(chan struct{})
	var gotVal string
	var gotErr error
	pp.Then(func(v string, err error) {
		gotVal, gotErr = v, err
		close(done)
	})

	settle(nil, "hello")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Then callback did not fire")
	}
	if gotErr != nil {
		t.Fatalf("unexpected error: %v", gotErr)
	}
	if gotVal != "hello" {
		t.Fatalf("got %q, want %q", gotVal, "hello")
	}
}
