// File: internal/dispatch/task.go
// Author: momentics <momentics@gmail.com>
//
// callTask adapts a call(name, args...) submission into the same api.Task
// contract execute(task) uses, so the worker and the rest of the dispatch
// core never need to know which form a submission originally took.

package dispatch

import (
	"fmt"

	"github.com/taskline/dispatcher/api"
)

type callTask struct {
	name     string
	args     []any
	registry *Registry
}

func newCallTask(name string, args []any, registry *Registry) *callTask {
	return &callTask{name: name, args: args, registry: registry}
}

func (c *callTask) Execute(r api.Resolver) {
	fn, ok := c.registry.Lookup(c.name)
	if !ok {
		r.Resolve(api.StatusFailure, fmt.Sprintf("callable %q not registered", c.name))
		return
	}
	value, err := fn(c.args)
	if err != nil {
		r.Resolve(api.StatusFailure, err.Error())
		return
	}
	r.Resolve(api.StatusSuccess, value)
}
