package sched

import "github.com/joeycumines/go-sched/internal/lograte"

// CPU is the per-CPU record of spec §3: the currently-executing thread,
// the idle thread, the SMP swap_ok flag, the timeslice counter, and the
// metairq-preempted slot. All fields are owned by the Kernel lock except
// where noted; nothing here is read by any CPU other than its own owner
// without holding that lock.
type CPU struct {
	id int

	Current *Thread
	Idle    *Thread

	// SwapOK is the SMP-only "has next_up already decided a swap is due"
	// flag of spec §4.2 step 4.
	SwapOK bool

	// Slice is the remaining timeslice tick budget of the current thread
	// (spec §4.7).
	Slice int

	// MetaIRQPreempted is the cooperative thread a metairq displaced, if
	// any (spec §4.8).
	MetaIRQPreempted *Thread

	// PendingCurrent is the swap-nonatomic sentinel of spec §5/§9: set
	// when current has been logically pended but the architecture swap
	// has not yet completed, so TimeSlice can recognize and ignore ticks
	// arriving in that window.
	PendingCurrent *Thread

	// elapsedSinceTick accumulates fractional-tick time for
	// resetTimeSlice's tickless-kernel arming (spec §4.7).
	elapsedSinceTick int

	// Metrics tracks ready->running latency for threads last scheduled on
	// this CPU (ambient addition, SPEC_FULL §4.14).
	Metrics *LatencyMetrics

	// traceLimiter throttles structured trace logging for this CPU.
	traceLimiter *lograte.Limiter
}
