package utils

import (
	"runtime"

	"github.com/notargets/BlockRemap/scheduler"
)

// CreateTestScheduler creates a Scheduler for testing, preferring parallel backends
func CreateTestScheduler() scheduler.Scheduler {
	// Try the worker pool with at least two workers so shared reads really
	// overlap, then fall back to serial execution
	modes := []string{
		scheduler.ModePool,
		scheduler.ModeSerial,
	}

	for _, mode := range modes {
		sched, err := scheduler.New(mode, max(2, runtime.NumCPU()), nil)
		if err == nil {
			return sched
		}
	}

	// Should not reach here
	panic("Failed to create any Scheduler")
}
