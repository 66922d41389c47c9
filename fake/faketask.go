// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT
//
// Task doubles covering the outcomes a worker can observe: clean success,
// reported failure, a recovered panic, a task that blocks until released,
// and one that simulates its worker losing its execution context entirely.

package fake

import (
	"github.com/taskline/dispatcher/api"
)

// SuccessTask resolves SUCCESS with payload immediately.
type SuccessTask struct{ Payload any }

func (t SuccessTask) Execute(r api.Resolver) { r.Resolve(api.StatusSuccess, t.Payload) }

// FailureTask resolves FAILURE with message immediately.
type FailureTask struct{ Message string }

func (t FailureTask) Execute(r api.Resolver) { r.Resolve(api.StatusFailure, t.Message) }

// PanicTask panics with Value; the worker recovers and reports FAILURE.
type PanicTask struct{ Value any }

func (t PanicTask) Execute(r api.Resolver) { panic(t.Value) }

// HangingTask blocks until Unblock is closed and then resolves SUCCESS with
// a nil payload; a test keeps it blocked past the task timeout to exercise
// timeout handling.
type HangingTask struct {
	Unblock chan struct{}
}

func (t HangingTask) Execute(r api.Resolver) {
	<-t.Unblock
	r.Resolve(api.StatusSuccess, nil)
}

// CrashTask panics with api.ErrWorkerCrash, simulating the worker's
// execution context dying instead of an ordinary task failure.
type CrashTask struct{}

func (t CrashTask) Execute(r api.Resolver) { panic(api.ErrWorkerCrash) }
