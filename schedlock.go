package sched

// SchedLock implements spec §4.6/§6 sched_lock(): enters a recursive
// critical section within which t cannot be preempted by anything but a
// metairq (spec §8 invariant 10).
func (k *Kernel) SchedLock(t *Thread) {
	k.mu.Lock()
	defer k.mu.Unlock()
	t.SchedLocked++
}

// SchedUnlock implements spec §4.6/§6 sched_unlock(): leaves the
// critical section, switching away immediately if a higher-priority
// thread became ready while it was held (spec §5 "sched_unlock when a
// higher-priority thread became ready during the locked region").
func (k *Kernel) SchedUnlock(t *Thread) {
	cpu := k.cpuOf(t)
	k.mu.Lock()
	if t.SchedLocked > 0 {
		t.SchedLocked--
	}
	if t.SchedLocked > 0 || cpu == nil {
		k.mu.Unlock()
		return
	}
	choice := k.nextUpLocked(cpu, false)
	k.performSwitch(cpu, choice)
}
