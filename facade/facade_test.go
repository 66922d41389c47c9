package facade_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/taskline/dispatcher/api"
	"github.com/taskline/dispatcher/facade"
	"github.com/taskline/dispatcher/fake"
	"github.com/taskline/dispatcher/promise"
)

// callResult carries a Call/Execute round trip back from the goroutine that
// issued it to the test goroutine that is pumping the fake reactor.
type callResult struct {
	p   api.Promise[any]
	err error
}

// Test the full lifecycle: construction, start, a round-trip task, a
// registered callable, debug probe registration, and shutdown. The fake
// reactor keeps this deterministic — nothing fires until Advance/Drain, so
// every facade call that now marshals through RunImmediate is issued from
// its own goroutine while the test goroutine pumps Advance to unblock it.
func TestDispatcherFullLifecycle(t *testing.T) {
	r := fake.NewFakeReactor()
	cfg := facade.DefaultConfig()
	cfg.PoolSizeMin = 1
	cfg.PoolSizeMax = 2
	cfg.Reactor = r
	cfg.PromiseLib = promise.NewLibrary[any]()
	cfg.EnableMetrics = true

	h, err := facade.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}

	h.Registry().Register("double", func(args []any) (any, error) {
		n := args[0].(int)
		return n * 2, nil
	})

	res := drainOnFake(t, r, func() callResult {
		p, err := h.Call("double", 21)
		return callResult{p, err}
	})
	if res.err != nil {
		t.Fatal(res.err)
	}
	pp := waitSettled(t, res.p, r)
	v, err := pp.Wait(context.Background())
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if v != 42 {
		t.Errorf("got %v, want 42", v)
	}

	res2 := drainOnFake(t, r, func() callResult {
		p, err := h.Execute(fake.SuccessTask{Payload: "direct"})
		return callResult{p, err}
	})
	if res2.err != nil {
		t.Fatal(res2.err)
	}
	pp2 := waitSettled(t, res2.p, r)
	v2, err := pp2.Wait(context.Background())
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if v2 != "direct" {
		t.Errorf("got %v, want direct", v2)
	}

	h.GetControl().RegisterDebugProbe("custom", func() any { return "ok" })
	stats := h.GetControl().Stats()
	if stats["debug.custom"] != "ok" {
		t.Errorf("debug probe not wired through facade: %v", stats)
	}

	metrics := drainOnFake(t, r, h.Metrics)
	if metrics.TasksCompleted < 2 {
		t.Errorf("expected at least 2 completed tasks, got %d", metrics.TasksCompleted)
	}

	if err := drainOnFake(t, r, func() error { return h.Stop(false) }); err != nil {
		t.Fatal(err)
	}

	rejectRes := drainOnFake(t, r, func() callResult {
		p, err := h.Call("double", 1)
		return callResult{p, err}
	})
	if rejectRes.err == nil {
		t.Error("expected submission after stop to be rejected")
	}
}

// TestDispatcherConcurrentCallsRealReactor drives the production reactor
// loop on its own goroutine — the configuration Start uses whenever no
// reactor is injected — and submits from many goroutines concurrently. It
// guards the invariant that Call/Execute/SetOption/Stop/Metrics all run
// their core-mutating work on the reactor thread rather than the caller's;
// run with -race to catch a regression.
func TestDispatcherConcurrentCallsRealReactor(t *testing.T) {
	cfg := facade.DefaultConfig()
	cfg.PoolSizeMin = 2
	cfg.PoolSizeMax = 4

	h, err := facade.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	h.Registry().Register("square", func(args []any) (any, error) {
		n := args[0].(int)
		return n * n, nil
	})
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	defer h.Stop(true)

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := h.Call("square", i)
			if err != nil {
				errs <- fmt.Errorf("call(%d): %w", i, err)
				return
			}
			pp, ok := p.(*promise.Promise[any])
			if !ok {
				errs <- fmt.Errorf("unexpected promise type %T", p)
				return
			}
			v, err := pp.Wait(context.Background())
			if err != nil {
				errs <- fmt.Errorf("wait(%d): %w", i, err)
				return
			}
			if v != i*i {
				errs <- fmt.Errorf("got %v, want %d", v, i*i)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

// drainOnFake runs fn — a facade call that now blocks on a RunImmediate
// round trip to the reactor thread — on its own goroutine while repeatedly
// advancing r, since nothing else drives the fake reactor's queue forward.
func drainOnFake[T any](t *testing.T, r *fake.FakeReactor, fn func() T) T {
	t.Helper()
	ch := make(chan T, 1)
	go func() { ch <- fn() }()
	for i := 0; i < 500; i++ {
		select {
		case v := <-ch:
			return v
		default:
		}
		r.Advance(time.Millisecond)
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for reactor-marshaled call")
	panic("unreachable")
}

func waitSettled(t *testing.T, p api.Promise[any], r *fake.FakeReactor) *promise.Promise[any] {
	t.Helper()
	pp, ok := p.(*promise.Promise[any])
	if !ok {
		t.Fatalf("promise is not *promise.Promise[any]")
	}
	for i := 0; i < 200 && !pp.IsSettled(); i++ {
		r.Advance(5 * time.Millisecond)
		time.Sleep(time.Millisecond)
	}
	return pp
}
