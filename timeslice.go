package sched

// sliceable implements spec §4.7: a thread is sliceable iff it is
// preemptible, runnable, at or below slice_max_prio, and not idle.
func (k *Kernel) sliceable(cpu *CPU, t *Thread) bool {
	if k.sliceTime <= 0 || t == nil || t == cpu.Idle {
		return false
	}
	return t.Preemptible() && t.State.runnable() && t.Priority <= k.sliceMaxPrio
}

// resetTimeSliceLocked implements spec §4.7 reset_time_slice, called by
// performSwitch whenever the chosen thread differs from the previous one.
func (k *Kernel) resetTimeSliceLocked(cpu *CPU) {
	cpu.Slice = k.sliceTime + cpu.elapsedSinceTick
	cpu.elapsedSinceTick = 0
	// A tickless kernel would re-arm the next tick interrupt for
	// cpu.Slice ticks out here; this simulation's driver instead polls at
	// a fixed TickDuration (see Kernel.Run), so there is nothing further
	// to arm.
}

// TimeSlice implements spec §4.7/§6 time_slice(ticks_elapsed): the tick
// source's clock-announce path into the scheduler. It also advances the
// shared timer wheel, firing any pend/sleep timeouts that have come due
// (spec §4.5, §4.6, §4.9).
func (k *Kernel) TimeSlice(ticksElapsed int) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.tick += uint64(ticksElapsed)

	for _, cpu := range k.cpus {
		if cpu.PendingCurrent != nil {
			// Swap-nonatomic race window (spec §5, §9): current has been
			// logically pended but the architecture swap has not yet
			// completed. Treat this tick as a no-op.
			cpu.Slice = k.sliceTime
			continue
		}
		if k.sliceable(cpu, cpu.Current) {
			cpu.Slice -= ticksElapsed
			if cpu.Slice <= 0 {
				// current is never queue-resident while running, on UP or
				// SMP alike (see nextUpLocked); record that a rotation is
				// due and let it take effect at current's own next
				// CheckPreempt, rather than physically requeuing here.
				cpu.SwapOK = true
				cpu.Slice = k.sliceTime
				k.recomputeCacheLocked()
			}
		} else {
			cpu.Slice = 0
		}
		cpu.elapsedSinceTick += ticksElapsed
	}

	k.wheel.Flush(uint64(ticksElapsed))
}

// SchedTimeSliceSet implements spec §6 sched_time_slice_set: reconfigures
// the global slice length and the priority ceiling eligible for slicing.
func (k *Kernel) SchedTimeSliceSet(sliceTicks int, maxPrio int32) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.ticklessSlice && sliceTicks > 0 && sliceTicks < 2 {
		sliceTicks = 2
	}
	k.sliceTime = sliceTicks
	k.sliceMaxPrio = maxPrio
}
