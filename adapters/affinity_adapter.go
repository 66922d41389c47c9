// File: adapters/affinity_adapter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Adapter implementing api.Affinity by delegating to the affinity package's
// platform-specific CPU pinning.

package adapters

import (
	"github.com/taskline/dispatcher/affinity"
	"github.com/taskline/dispatcher/api"
)

// AffinityAdapter implements api.Affinity on top of the affinity package.
// NUMA node tracking is kept as caller-supplied metadata only — binding
// itself is purely per-CPU, matching what the underlying syscalls support.
type AffinityAdapter struct {
	currentCPU  int
	currentNUMA int
	pinned      bool
}

// NewAffinityAdapter creates an AffinityAdapter with no binding yet applied.
func NewAffinityAdapter() api.Affinity {
	return &AffinityAdapter{currentCPU: -1, currentNUMA: -1}
}

// Pin binds the calling OS thread to cpuID. numaID is recorded for Get but
// is otherwise informational.
func (a *AffinityAdapter) Pin(cpuID int, numaID int) error {
	if err := affinity.SetAffinity(cpuID); err != nil {
		return err
	}
	a.currentCPU = cpuID
	a.currentNUMA = numaID
	a.pinned = true
	return nil
}

// Unpin clears the adapter's recorded binding. The underlying OS thread
// affinity itself is not reset — there is no portable "clear affinity"
// syscall this module's platforms all agree on — so Unpin only updates
// bookkeeping; a subsequent Pin is the supported way to rebind.
func (a *AffinityAdapter) Unpin() error {
	a.pinned = false
	a.currentCPU = -1
	a.currentNUMA = -1
	return nil
}

// Get returns the currently recorded CPU and NUMA IDs for this adapter.
func (a *AffinityAdapter) Get() (cpuID int, numaID int, err error) {
	return a.currentCPU, a.currentNUMA, nil
}
