// File: internal/dispatch/dispatcher_test.go
// Author: momentics <momentics@gmail.com>

package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/taskline/dispatcher/api"
	"github.com/taskline/dispatcher/fake"
	"github.com/taskline/dispatcher/promise"
)

func newTestDispatcher(t *testing.T, opts api.Options) (*Dispatcher, *fake.FakeReactor) {
	t.Helper()
	r := fake.NewFakeReactor()
	d := New(r, promise.NewLibrary[any](), opts, nil, nil)
	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return d, r
}

func waitSettled(t *testing.T, p api.Promise[any], r *fake.FakeReactor) *promise.Promise[any] {
	t.Helper()
	pp, ok := p.(*promise.Promise[any])
	if !ok {
		t.Fatalf("promise is not *promise.Promise[any]")
	}
	for i := 0; i < 100 && !pp.IsSettled(); i++ {
		r.Advance(5 * time.Millisecond)
		time.Sleep(time.Millisecond)
	}
	return pp
}

func TestExecuteSuccess(t *testing.T) {
	opts := api.DefaultOptions()
	d, r := newTestDispatcher(t, opts)

	p, err := d.Execute(fake.SuccessTask{Payload: 42})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	pp := waitSettled(t, p, r)
	val, perr := pp.Wait(context.Background())
	if perr != nil {
		t.Fatalf("unexpected error: %v", perr)
	}
	if val != 42 {
		t.Fatalf("got %v, want 42", val)
	}
}

func TestExecuteFailure(t *testing.T) {
	d, r := newTestDispatcher(t, api.DefaultOptions())

	p, err := d.Execute(fake.FailureTask{Message: "boom"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	pp := waitSettled(t, p, r)
	_, perr := pp.Wait(context.Background())
	if perr == nil {
		t.Fatalf("expected error")
	}
	if _, ok := perr.(*api.TaskError); !ok {
		t.Fatalf("got %T, want *api.TaskError", perr)
	}
}

func TestExecutePanicRecovered(t *testing.T) {
	d, r := newTestDispatcher(t, api.DefaultOptions())

	p, err := d.Execute(fake.PanicTask{Value: "kaboom"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	pp := waitSettled(t, p, r)
	_, perr := pp.Wait(context.Background())
	if perr == nil {
		t.Fatalf("expected a recovered-panic failure")
	}
}

func TestCallUnknownCallableRejected(t *testing.T) {
	d, _ := newTestDispatcher(t, api.DefaultOptions())
	if _, err := d.Call("does-not-exist"); err == nil {
		t.Fatalf("expected SubmissionError for unknown callable")
	}
}

func TestCallRegisteredCallable(t *testing.T) {
	d, r := newTestDispatcher(t, api.DefaultOptions())
	d.Registry().Register("add", func(args []any) (any, error) {
		return args[0].(int) + args[1].(int), nil
	})
	p, err := d.Call("add", 2, 3)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	pp := waitSettled(t, p, r)
	val, perr := pp.Wait(context.Background())
	if perr != nil {
		t.Fatalf("unexpected error: %v", perr)
	}
	if val != 5 {
		t.Fatalf("got %v, want 5", val)
	}
}

func TestTaskTimeout(t *testing.T) {
	opts := api.DefaultOptions()
	opts.TaskTimeout = 10 * time.Millisecond
	opts.PoolSizeMin = 1
	opts.PoolSizeMax = 1
	d, r := newTestDispatcher(t, opts)

	unblock := make(chan struct{})
	defer close(unblock)

	p, err := d.Execute(fake.HangingTask{Unblock: unblock})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	pp := p.(*promise.Promise[any])
	r.Advance(20 * time.Millisecond)
	for i := 0; i < 50 && !pp.IsSettled(); i++ {
		r.Advance(5 * time.Millisecond)
		time.Sleep(time.Millisecond)
	}
	_, perr := pp.Wait(context.Background())
	if perr == nil {
		t.Fatalf("expected TimeoutError")
	}
	if _, ok := perr.(*api.TimeoutError); !ok {
		t.Fatalf("got %T, want *api.TimeoutError", perr)
	}
}

func TestWorkerCrashSynthesizesWorkerLostError(t *testing.T) {
	d, r := newTestDispatcher(t, api.DefaultOptions())

	p, err := d.Execute(fake.CrashTask{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	pp := waitSettled(t, p, r)
	_, perr := pp.Wait(context.Background())
	if perr == nil {
		t.Fatalf("expected WorkerLostError")
	}
	if _, ok := perr.(*api.WorkerLostError); !ok {
		t.Fatalf("got %T, want *api.WorkerLostError", perr)
	}
}

func TestStopRejectsNewSubmissions(t *testing.T) {
	d, _ := newTestDispatcher(t, api.DefaultOptions())
	d.Stop(false)
	if _, err := d.Execute(fake.SuccessTask{Payload: 1}); err == nil {
		t.Fatalf("expected SubmissionError after Stop")
	}
}

func TestForceStopCancelsQueued(t *testing.T) {
	opts := api.DefaultOptions()
	opts.PoolSizeMin = 0
	opts.PoolSizeMax = 0
	d, r := newTestDispatcher(t, opts)
	_ = r

	p, err := d.Execute(fake.SuccessTask{Payload: 1})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	d.Stop(true)
	pp := p.(*promise.Promise[any])
	if !pp.IsSettled() {
		t.Fatalf("expected queued task to settle immediately on force stop")
	}
	_, perr := pp.Wait(context.Background())
	if _, ok := perr.(*api.ShutdownError); !ok {
		t.Fatalf("got %T, want *api.ShutdownError", perr)
	}
}

func TestSetOptionPoolSizeBoundsValidated(t *testing.T) {
	d, _ := newTestDispatcher(t, api.DefaultOptions())
	if _, err := d.SetOption(api.OptPoolSizeMin, 100); err == nil {
		t.Fatalf("expected OptionError when MIN > MAX")
	}
	prior, err := d.SetOption(api.OptPoolSizeMax, 4)
	if err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	if prior != api.DefaultOptions().PoolSizeMax {
		t.Fatalf("got prior=%v", prior)
	}
}

func TestAddStartTaskIdempotentByIdentity(t *testing.T) {
	d, _ := newTestDispatcher(t, api.DefaultOptions())
	task := fake.SuccessTask{Payload: 1}
	d.AddStartTask(task)
	d.AddStartTask(task)
	if len(d.startTasks) != 1 {
		t.Fatalf("got %d start tasks, want 1", len(d.startTasks))
	}
	d.RemoveStartTask(task)
	if len(d.startTasks) != 0 {
		t.Fatalf("got %d start tasks, want 0", len(d.startTasks))
	}
}
