package sched

// PriorityGet implements spec §6 priority_get(t).
func (k *Kernel) PriorityGet(t *Thread) int32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return t.Priority
}

// PrioritySet implements spec §4.12 priority_set for kernel callers,
// which may raise or lower priority freely.
func (k *Kernel) PrioritySet(t *Thread, prio int32) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.prioritySetLocked(t, prio)
}

func (k *Kernel) prioritySetLocked(t *Thread, prio int32) {
	queued := t.State.has(StateQueued)
	if queued {
		k.readyQ.Remove(t)
	}
	t.Priority = prio
	if queued {
		k.readyQ.Add(t)
	}
	k.recomputeCacheLocked()
}

// PrioritySetUser implements spec §4.12/§6's user-mode-restricted
// priority_set: rejects raising priority (lowering the numeric value,
// i.e. becoming more urgent) with ErrInvalidArgument.
func (k *Kernel) PrioritySetUser(t *Thread, prio int32) error {
	k.mu.Lock()
	if prio < t.Priority {
		k.mu.Unlock()
		return ErrInvalidArgument
	}
	k.prioritySetLocked(t, prio)
	k.mu.Unlock()
	return nil
}

// DeadlineSet implements spec §4.12/§6 deadline_set(t, delta_cycles): the
// deadline is an absolute value in the rolling 32-bit tick space,
// deltaTicks in the future from now.
func (k *Kernel) DeadlineSet(t *Thread, deltaTicks uint32) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d := uint32(k.tick) + deltaTicks
	queued := t.State.has(StateQueued)
	if queued {
		k.readyQ.Remove(t)
	}
	t.Deadline = &d
	if queued {
		k.readyQ.Add(t)
	}
	k.recomputeCacheLocked()
}
