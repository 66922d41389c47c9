//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific implementation for setting thread CPU affinity, via
// golang.org/x/sys/unix rather than cgo — it is pure Go, so a worker
// binary cross-compiles and ships the same way the rest of this module
// does.

package affinity

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// setAffinityPlatform sets thread affinity to a given CPU for Linux.
func setAffinityPlatform(cpuID int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: SchedSetaffinity failed: %w", err)
	}
	return nil
}

// bindMaskPlatform pins the calling thread to every CPU set in mask.
func bindMaskPlatform(mask uint64) error {
	var set unix.CPUSet
	set.Zero()
	for cpu := 0; cpu < 64; cpu++ {
		if mask&(1<<uint(cpu)) != 0 {
			set.Set(cpu)
		}
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: SchedSetaffinity failed: %w", err)
	}
	return nil
}
