// Package timerwheel batches pended-thread timeout expiries by absolute
// tick, so TimeSlice does not need to linearly scan every pended thread on
// every tick (spec §4.5, §4.7).
//
// The shape is grounded on the teacher's microbatch.Batcher: entries
// accumulate until a trigger fires a batch. microbatch uses two
// independent triggers (MaxSize, FlushInterval) and runs the batch
// processor on its own goroutine. A timer wheel cannot borrow that
// concurrency model wholesale: firing a timeout early is a correctness
// bug (spec §5, "no blocking primitives... while holding the lock", and
// §4.5's no-op-unless-due timeout contract), so Flush here is purely
// synchronous, called from inside TimeSlice while the scheduler lock is
// already held, and the "size" signal is repurposed as an overflow-fanout
// observability hook rather than an early-fire trigger.
package timerwheel

import "github.com/joeycumines/go-sched/internal/ring"

// Node is one armed timeout. Fire is invoked synchronously from Flush,
// under the caller's lock, exactly once, when Deadline is reached.
type Node struct {
	Deadline uint64
	Fire     func()
	armed    bool
}

// Armed reports whether the node is currently scheduled.
func (n *Node) Armed() bool { return n.armed }

// Wheel is a tick-indexed bucket array of pending Node expiries.
type Wheel struct {
	span      int
	current   uint64
	buckets   map[uint64]*ring.Ring[*Node]
	overflow  *ring.Ring[*Node]
	maxFanout int
	// OnOverflowFanout, if set, is called with the overflow list's size
	// whenever it grows past maxFanout - an observability hook, not a
	// correctness mechanism (see package doc).
	OnOverflowFanout func(n int)
}

// New constructs a Wheel with span buckets addressed directly (deadlines
// more than span ticks in the future spill into an overflow list that is
// re-examined on every Flush). maxBucketFanout is the overflow-list size
// that triggers OnOverflowFanout.
func New(span, maxBucketFanout int) *Wheel {
	if span <= 0 {
		span = 64
	}
	return &Wheel{
		span:      span,
		buckets:   make(map[uint64]*ring.Ring[*Node]),
		overflow:  ring.New[*Node](4),
		maxFanout: maxBucketFanout,
	}
}

// Arm schedules n to Fire at n.Deadline (an absolute tick count).
func (w *Wheel) Arm(n *Node) {
	n.armed = true
	if n.Deadline <= w.current {
		n.Deadline = w.current
	}
	if n.Deadline-w.current < uint64(w.span) {
		w.bucket(n.Deadline).PushBack(n)
		return
	}
	w.overflow.PushBack(n)
	if w.maxFanout > 0 && w.overflow.Len() > w.maxFanout && w.OnOverflowFanout != nil {
		w.OnOverflowFanout(w.overflow.Len())
	}
}

// Disarm cancels n, if still armed. No-op otherwise (already fired, or
// never armed) - mirrors the DEAD/ABORTING no-op contract of spec §4.5.
func (w *Wheel) Disarm(n *Node) {
	if !n.armed {
		return
	}
	n.armed = false
	var r *ring.Ring[*Node]
	if n.Deadline-w.current < uint64(w.span) {
		r = w.buckets[n.Deadline]
	} else {
		r = w.overflow
	}
	if r == nil {
		return
	}
	for i := 0; i < r.Len(); i++ {
		if r.Get(i) == n {
			r.RemoveAt(i)
			return
		}
	}
}

func (w *Wheel) bucket(tick uint64) *ring.Ring[*Node] {
	r := w.buckets[tick]
	if r == nil {
		r = ring.New[*Node](4)
		w.buckets[tick] = r
	}
	return r
}

// Flush advances the wheel by elapsed ticks, firing (and disarming) every
// node whose deadline now falls at or before the new current tick.
func (w *Wheel) Flush(elapsed uint64) {
	if elapsed == 0 {
		return
	}
	newCurrent := w.current + elapsed
	for tick := w.current; tick < newCurrent; tick++ {
		b, ok := w.buckets[tick]
		if !ok {
			continue
		}
		for b.Len() > 0 {
			n := b.PopFront()
			if !n.armed {
				continue
			}
			n.armed = false
			n.Fire()
		}
		delete(w.buckets, tick)
	}
	w.current = newCurrent

	// re-home overflow entries that now fall within the window; fire any
	// that are already due.
	pending := w.overflow.Len()
	for i := 0; i < pending; i++ {
		n := w.overflow.PopFront()
		if !n.armed {
			continue
		}
		if n.Deadline <= w.current {
			n.armed = false
			n.Fire()
			continue
		}
		if n.Deadline-w.current < uint64(w.span) {
			w.bucket(n.Deadline).PushBack(n)
		} else {
			w.overflow.PushBack(n)
		}
	}
}

// Current returns the wheel's current absolute tick.
func (w *Wheel) Current() uint64 { return w.current }
