package sched

// Start implements spec §3/§6 start(t): clears PRESTART and inserts the
// thread into the ready queue.
func (k *Kernel) Start(t *Thread) {
	k.mu.Lock()
	t.State &^= StatePrestart
	k.readyLocked(t)
	k.mu.Unlock()
	k.PollIdle()
}

// endThreadLocked implements spec §4.9 end_thread. Caller holds k.mu.
func (k *Kernel) endThreadLocked(t *Thread) {
	if t.State.has(StateQueued) {
		k.readyQ.Remove(t)
	}
	if wq := t.PendedOn; wq != nil {
		wq.Remove(t)
		t.PendedOn = nil
	}
	k.cancelTimeoutLocked(t)
	t.State = StateDead

	// cpu.Current is deliberately left pointing at t, even though t is now
	// dead: Abort's caller is responsible for switching the affected CPU
	// away (via performSwitch, which needs Current == t to correctly hand
	// t to Arch as the departing thread - see Abort).
	for _, cpu := range k.cpus {
		if cpu.MetaIRQPreempted == t {
			cpu.MetaIRQPreempted = nil
		}
	}

	if t.JoinQueue != nil {
		for {
			j := k.unpendFirstThreadLocked(t.JoinQueue)
			if j == nil {
				break
			}
			j.pendResult = 0
			j.pendResultOK = true
			k.readyLocked(j)
		}
	}
	k.recomputeCacheLocked()
}

// Abort implements spec §4.9 abort(thread). caller is the thread asking
// for target to be aborted - it may equal target ("abort self").
func (k *Kernel) Abort(caller, target *Thread) {
	k.mu.Lock()

	if target.State.has(StateDead) {
		k.mu.Unlock()
		return
	}

	if caller != target && k.smp() {
		if cpu := k.cpuOf(target); cpu != nil && cpu.Current == target {
			// target is running on another CPU: request it abort itself
			// and wait on its join queue (spec §4.9 SMP branch).
			target.State |= StateAborting
			k.arch.IPI(cpu.id)

			callerCPU := k.cpuOf(caller)
			k.pendLocked(caller, target.JoinQueue, Forever)
			choice := k.nextUpLocked(callerCPU, false)
			k.performSwitch(callerCPU, choice)
			return
		}
	}

	k.endThreadLocked(target)

	if cpu := k.cpuOf(target); cpu != nil && cpu.Current == target {
		// target was actually running when it died (UP, or an SMP build
		// where caller and target share a CPU): switch away now, exactly
		// as any other scheduling point would. performSwitch needs
		// cpu.Current == target here so Arch.SwitchTo parks target's own
		// execution context (which may be this very call stack, in the
		// self-abort case) rather than one already overwritten.
		choice := k.nextUpLocked(cpu, false)
		k.performSwitch(cpu, choice)
		if caller == target {
			// Aborting self forces a context switch that must never
			// return (spec §4.9, §7 "assertion failure").
			panic(invariantViolation{"thread resumed after aborting itself"})
		}
		k.PollIdle()
		return
	}

	k.mu.Unlock()
	k.PollIdle()
}

// Join implements spec §4.9/§6 join(thread, timeout).
func (k *Kernel) Join(caller, target *Thread, timeoutTicks int) error {
	k.mu.Lock()

	if target.State.has(StateDead) {
		k.mu.Unlock()
		return nil
	}
	if timeoutTicks == NoWait {
		k.mu.Unlock()
		return ErrBusy
	}
	if target == caller || wouldCycle(caller, target) {
		k.mu.Unlock()
		return ErrDeadlock
	}

	cpu := k.cpuOf(caller)
	k.pendLocked(caller, target.JoinQueue, timeoutTicks)
	choice := k.nextUpLocked(cpu, false)
	k.performSwitch(cpu, choice)

	if !caller.pendResultOK {
		return ErrTimeout
	}
	return nil
}

// wouldCycle reports whether b is already blocked (transitively) waiting
// for a to terminate, which would make a joining b deadlock. Join chains
// are short in practice; a simple walk suffices.
func wouldCycle(a, b *Thread) bool {
	seen := map[*Thread]bool{a: true}
	for cur := b; cur != nil; {
		if seen[cur] {
			return true
		}
		seen[cur] = true
		wq := cur.PendedOn
		if wq == nil {
			return false
		}
		best := wq.Best()
		if best == nil {
			return false
		}
		next, ok := best.(*Thread)
		if !ok || next == cur {
			return false
		}
		cur = next
	}
	return false
}

// Suspend implements spec §6 suspend(t): marks t SUSPENDED and removes
// it from the ready queue, if resident.
func (k *Kernel) Suspend(t *Thread) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.unreadyLocked(t)
	t.State |= StateSuspended
}

// Resume implements spec §6 resume(t): clears SUSPENDED and readies t.
func (k *Kernel) Resume(t *Thread) {
	k.mu.Lock()
	t.State &^= StateSuspended
	k.readyLocked(t)
	k.mu.Unlock()
	k.PollIdle()
}
