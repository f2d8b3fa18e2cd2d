package sched

import (
	"github.com/joeycumines/go-sched/internal/timerwheel"
	"github.com/joeycumines/go-sched/waitq"
)

// Forever, passed as a timeout to Pend/PendCurr/Sleep/Join, means "block
// with no timeout" (spec §6 K_FOREVER). NoWait means "do not block at
// all" (spec §6 K_NO_WAIT).
const (
	Forever = -1
	NoWait  = 0
)

// armTimeoutLocked registers a timeout for t, firing onExpire at most
// once, ticks in the future. Caller holds k.mu.
func (k *Kernel) armTimeoutLocked(t *Thread, ticks int, onExpire func()) {
	k.cancelTimeoutLocked(t)
	node := &timerwheel.Node{Deadline: k.tick + uint64(ticks), Fire: onExpire}
	k.wheel.Arm(node)
	t.timeout = node
}

// cancelTimeoutLocked disarms and clears t's pending timeout, if any.
func (k *Kernel) cancelTimeoutLocked(t *Thread) {
	if t.timeout == nil {
		return
	}
	k.wheel.Disarm(t.timeout)
	t.timeout = nil
}

// pendLocked implements spec §4.5 pend(thread, wait_q, timeout). Caller
// holds k.mu.
func (k *Kernel) pendLocked(t *Thread, wq *waitq.WaitQueue, timeoutTicks int) {
	k.unreadyLocked(t)
	t.State = (t.State &^ StateSuspended) | StatePending
	t.PendedOn = wq
	wq.Add(t)
	t.pendResult = 0
	t.pendResultOK = false

	if timeoutTicks != Forever {
		k.armTimeoutLocked(t, timeoutTicks, func() {
			if t.State.has(StateDead | StateAborting) {
				return
			}
			wq.Remove(t)
			t.State &^= StatePending
			t.PendedOn = nil
			k.readyLocked(t)
		})
	}
}

// Pend implements spec §6 behavior underlying blocking primitives: blocks
// t on wq without switching away (used when the caller isn't pending
// itself, e.g. pending a thread other than current).
func (k *Kernel) Pend(t *Thread, wq *waitq.WaitQueue, timeoutTicks int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pendLocked(t, wq, timeoutTicks)
}

// PendCurr implements spec §4.5 pend_curr: pends the calling thread and
// switches away. It returns the value SchedWake stored, or ErrTimeout if
// the timeout fired first.
func (k *Kernel) PendCurr(t *Thread, wq *waitq.WaitQueue, timeoutTicks int) (int, error) {
	cpu := k.cpuOf(t)
	k.mu.Lock()
	k.pendLocked(t, wq, timeoutTicks)
	choice := k.nextUpLocked(cpu, false)
	k.performSwitch(cpu, choice)

	if !t.pendResultOK {
		return 0, ErrTimeout
	}
	return t.pendResult, nil
}

// UnpendFirstThread implements spec §4.5: pops the highest-priority
// pended thread from wq, clears PENDING, cancels its timeout, and
// returns it without readying it - the caller decides that.
func (k *Kernel) UnpendFirstThread(wq *waitq.WaitQueue) *Thread {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.unpendFirstThreadLocked(wq)
}

func (k *Kernel) unpendFirstThreadLocked(wq *waitq.WaitQueue) *Thread {
	best := wq.PopBest()
	if best == nil {
		return nil
	}
	t := best.(*Thread)
	t.State &^= StatePending
	t.PendedOn = nil
	k.cancelTimeoutLocked(t)
	return t
}

// UnpendThread removes t from whatever wait queue it is on, without
// readying it (spec §6 unpend_thread).
func (k *Kernel) UnpendThread(t *Thread) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if wq := t.PendedOn; wq != nil {
		wq.Remove(t)
	}
	t.State &^= StatePending
	t.PendedOn = nil
	k.cancelTimeoutLocked(t)
}

// UnpendAll implements spec §4.5: readies every thread pended on wq,
// returning whether any were readied.
func (k *Kernel) UnpendAll(wq *waitq.WaitQueue) bool {
	k.mu.Lock()
	any := k.unpendAllLocked(wq)
	k.mu.Unlock()
	k.PollIdle()
	return any
}

func (k *Kernel) unpendAllLocked(wq *waitq.WaitQueue) bool {
	any := false
	for {
		t := k.unpendFirstThreadLocked(wq)
		if t == nil {
			break
		}
		k.readyLocked(t)
		any = true
	}
	return any
}

// SchedWake implements spec §6 sched_wake(wait_q, retval, data): wakes
// the single highest-priority thread pended on wq, if any, storing
// retval for it to observe once resumed via PendCurr. Returns false (no
// state change) if wq was empty - spec §8 invariant 8 "no lost wakeup".
func (k *Kernel) SchedWake(wq *waitq.WaitQueue, retval int) bool {
	k.mu.Lock()
	t := k.unpendFirstThreadLocked(wq)
	if t == nil {
		k.mu.Unlock()
		return false
	}
	t.pendResult = retval
	t.pendResultOK = true
	k.readyLocked(t)
	k.mu.Unlock()
	k.PollIdle()
	return true
}

// SchedWait implements spec §6 sched_wait: equivalent to PendCurr, kept
// as a distinct name because kernel-object primitives (semaphores,
// mutexes, message queues) call it under that name in the spec's
// external-interface grouping.
func (k *Kernel) SchedWait(t *Thread, wq *waitq.WaitQueue, timeoutTicks int) (int, error) {
	return k.PendCurr(t, wq, timeoutTicks)
}
