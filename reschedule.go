package sched

// cpuOf returns the CPU record t is currently running on, or nil if t is
// not presently assigned to any CPU.
func (k *Kernel) cpuOf(t *Thread) *CPU {
	if t.cpu < 0 || t.cpu >= len(k.cpus) {
		return nil
	}
	return k.cpus[t.cpu]
}

// CheckPreempt is the cooperation point that stands in for spec §5's
// "implicit preemption at any instruction when a higher-priority thread
// becomes runnable and IRQs are enabled": since this simulation cannot
// forcibly suspend a running goroutine, thread bodies call this
// explicitly at points where real hardware would take an interrupt. It
// is a no-op if t is not actually the CPU's current thread, or if
// nothing more urgent is due to run.
func (k *Kernel) CheckPreempt(t *Thread) {
	cpu := k.cpuOf(t)
	if cpu == nil {
		return
	}
	k.mu.Lock()
	if cpu.Current != t {
		k.mu.Unlock()
		return
	}
	if t.SchedLocked > 0 {
		// sched_lock suspends preemption by anything but a metairq
		// (spec §4.6, §8 invariant 10).
		affinityCPU := -1
		if k.smp() {
			affinityCPU = cpu.id
		}
		best := k.readyQ.Best(affinityCPU)
		if best == nil || !best.(*Thread).IsMetaIRQ() {
			k.mu.Unlock()
			return
		}
	}
	choice := k.nextUpLocked(cpu, false)
	k.performSwitch(cpu, choice)
}

// Reschedule implements spec §4.6 reschedule: if the calling thread is
// no longer the best choice, switch away now. Unlike CheckPreempt, the
// caller is explicitly asking for this (spec §4.3 "the caller explicitly
// permits preemption"), so equal-priority ties and sched_lock do not
// protect it.
func (k *Kernel) Reschedule(t *Thread) {
	cpu := k.cpuOf(t)
	if cpu == nil {
		return
	}
	k.mu.Lock()
	if cpu.Current != t {
		k.mu.Unlock()
		return
	}
	choice := k.nextUpLocked(cpu, true)
	k.performSwitch(cpu, choice)
}

// Yield implements spec §4.6 yield: gives up the remainder of t's slice,
// switching away if anything else - including an equal-priority sibling -
// is now the better choice.
func (k *Kernel) Yield(t *Thread) {
	cpu := k.cpuOf(t)
	if cpu == nil {
		return
	}
	k.mu.Lock()
	choice := k.nextUpLocked(cpu, true)
	k.performSwitch(cpu, choice)
}

// Sleep implements spec §4.6 sleep(ticks): zero ticks behaves as Yield;
// otherwise t blocks until the timeout fires, and Sleep returns the
// unslept remainder in ticks.
func (k *Kernel) Sleep(t *Thread, ticks int) int {
	if ticks <= 0 {
		k.Yield(t)
		return 0
	}
	cpu := k.cpuOf(t)
	k.mu.Lock()
	k.unreadyLocked(t)
	t.State |= StateSuspended
	deadline := k.tick + uint64(ticks)
	k.armTimeoutLocked(t, ticks, func() {
		if t.State.has(StateDead | StateAborting) {
			return
		}
		t.State &^= StateSuspended
		k.readyLocked(t)
	})
	choice := k.nextUpLocked(cpu, false)
	k.performSwitch(cpu, choice)

	k.mu.Lock()
	remaining := int64(deadline) - int64(k.tick)
	k.mu.Unlock()
	if remaining < 0 {
		remaining = 0
	}
	return int(remaining)
}

// Wakeup implements spec §6 wakeup(t): cancels a Sleep-ing thread's armed
// timeout and readies it immediately, short-circuiting the remainder of
// its sleep. It is a no-op if t is not currently suspended (e.g. already
// awake, or suspended via Suspend rather than Sleep - cancelling a timeout
// that was never armed is harmless, but readying it early would not be).
func (k *Kernel) Wakeup(t *Thread) {
	k.mu.Lock()
	if !t.State.has(StateSuspended) {
		k.mu.Unlock()
		return
	}
	k.cancelTimeoutLocked(t)
	t.State &^= StateSuspended
	k.readyLocked(t)
	k.mu.Unlock()
	k.PollIdle()
}

// Usleep implements spec §6 usleep(us): sleeps t for us microseconds,
// converting to ticks via the configured TickDuration, and returns the
// unslept remainder in microseconds.
func (k *Kernel) Usleep(t *Thread, us int64) int64 {
	if us <= 0 {
		k.Yield(t)
		return 0
	}
	tickUs := k.cfg.TickDuration.Microseconds()
	if tickUs <= 0 {
		tickUs = 1
	}
	ticks := int((us + tickUs - 1) / tickUs) // round up: never wake earlier than requested
	remainingTicks := k.Sleep(t, ticks)
	return int64(remainingTicks) * tickUs
}
