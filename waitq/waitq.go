// Package waitq implements the wait-queue machinery of spec §3/§4.5: a
// priority-ordered set of threads blocked on a kernel object, plus the
// join-queue special case embedded in every thread.
//
// A WaitQueue is deliberately thin: it is a queue.Backend plus the owning
// kernel object's name for diagnostics. All the "pend means exactly one of
// {ready, one wait queue}" bookkeeping lives on the Thread itself, in the
// sched package, because that is where the scheduler lock is held.
package waitq

import "github.com/joeycumines/go-sched/queue"

// WaitQueue is a priority-ordered set of pended threads, owned by the
// kernel object (semaphore, mutex, message queue, thread-join-slot, ...)
// it belongs to.
type WaitQueue struct {
	Name    string
	backend queue.Backend
}

// New constructs a WaitQueue using the given back-end kind and config -
// every wait queue in a kernel build uses the same Kind as the ready
// queue, so back-end behavior (e.g. affinity support) is uniform.
func New(name string, kind queue.Kind, cfg queue.Config) *WaitQueue {
	return &WaitQueue{Name: name, backend: queue.New(kind, cfg)}
}

// Add inserts t into the wait queue, by priority.
func (w *WaitQueue) Add(t queue.Comparable) { w.backend.Add(t) }

// Remove deletes t from the wait queue. No-op if absent.
func (w *WaitQueue) Remove(t queue.Comparable) { w.backend.Remove(t) }

// Best returns the highest-priority pended thread, or nil if empty.
func (w *WaitQueue) Best() queue.Comparable { return w.backend.Best(-1) }

// Len returns the number of pended threads.
func (w *WaitQueue) Len() int { return w.backend.Len() }

// PopBest removes and returns the highest-priority pended thread, or nil
// if the wait queue is empty. This is the primitive behind
// UnpendFirstThread.
func (w *WaitQueue) PopBest() queue.Comparable {
	best := w.backend.Best(-1)
	if best == nil {
		return nil
	}
	w.backend.Remove(best)
	return best
}
