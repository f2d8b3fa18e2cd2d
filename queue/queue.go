// Package queue implements the three interchangeable priority-queue
// back-ends the scheduler's ready queue and wait queues are built from
// (spec §4: "Polymorphism over three priority-queue back-ends").
//
// The back-end is a deploy-time choice, not a runtime one: pick a Kind once
// at Kernel construction via New, and every Thread flows through the same
// concrete type for the life of the process. There is exactly one
// type-switch, in New; nothing downstream dispatches dynamically on Kind.
//
// Threads do not embed native pointers/unions for list/tree/ring node
// storage. Per the design notes, each back-end instead owns an external
// mapping from a stable Comparable.ID() to its own node representation,
// which is what lets Thread stay a plain, back-end-agnostic struct.
package queue

// Comparable is the capability a back-end needs from a queued item. It is
// satisfied by *sched.Thread; this package never imports sched, to keep the
// dependency direction one-way (sched depends on queue, not vice versa).
type Comparable interface {
	// ID is a small, stable, dense, non-negative identifier, used as an
	// index into a back-end's side tables.
	ID() uint32
	// SchedPriority is the numeric priority; lower wins.
	SchedPriority() int32
	// SchedDeadline returns the absolute deadline in a rolling 32-bit
	// space, and whether one is set.
	SchedDeadline() (value uint32, ok bool)
	// OrderKey and SetOrderKey track FIFO insertion order for the rb
	// back-end's tie-break; the dumb and multiq back-ends get FIFO order
	// for free from their structure and never call SetOrderKey.
	OrderKey() uint64
	SetOrderKey(uint64)
	// AffinityOK reports whether the item may run on the given CPU.
	// Only consulted by the dumb back-end (spec §4.10); other back-ends
	// ignore affinity entirely, a documented limitation.
	AffinityOK(cpu int) bool
}

// Kind selects a back-end implementation at construction time.
type Kind int

const (
	// Dumb is a doubly linked list, insertion-sorted by priority.
	// O(n) insert, O(1) head. The only back-end supporting affinity.
	Dumb Kind = iota
	// RB is a red-black tree keyed by (priority, deadline, order_key).
	// O(log n) insert and remove.
	RB
	// Multiq is an array of 32 FIFO lanes indexed by priority bit, plus
	// a 32-bit occupancy bitmask. O(1) head and insert, but priorities
	// are restricted to [0, 32).
	Multiq
)

// Backend is the capability every priority-queue implementation provides.
type Backend interface {
	// Add inserts t. t must not already be present.
	Add(t Comparable)
	// Remove deletes t. It is a no-op if t is not present.
	Remove(t Comparable)
	// Best returns the highest-priority resident, or nil if empty.
	// cpu is the calling CPU id, consulted only by back-ends that support
	// affinity filtering (Dumb); pass -1 to disable filtering explicitly.
	Best(cpu int) Comparable
	// Len returns the number of resident items.
	Len() int
}

// Config controls priority comparison, shared by all back-ends.
type Config struct {
	// DeadlineEnabled turns on deadline-based tie-breaking (spec §4.1).
	DeadlineEnabled bool
}

// New constructs a Backend of the given Kind.
func New(kind Kind, cfg Config) Backend {
	switch kind {
	case RB:
		return newRBTree(cfg)
	case Multiq:
		return newMultiq(cfg)
	default:
		return newDumbList(cfg)
	}
}

// less implements the priority comparison of spec §4.1: priority first,
// then (if enabled) modular-32-bit deadline, then order_key as a final
// FIFO tiebreak. Returns true iff a strictly precedes b.
func less(cfg Config, a, b Comparable) bool {
	ap, bp := a.SchedPriority(), b.SchedPriority()
	if ap != bp {
		return ap < bp
	}
	if cfg.DeadlineEnabled {
		ad, aok := a.SchedDeadline()
		bd, bok := b.SchedDeadline()
		if aok && bok {
			// (d_b - d_a) reinterpreted as signed: positive means a is
			// earlier. Equivalent formulation, avoiding the subtraction
			// being read backwards: a precedes b iff int32(a-b) < 0.
			if diff := int32(ad - bd); diff != 0 {
				return diff < 0
			}
		} else if aok != bok {
			// a thread with a deadline is considered more urgent than one
			// without, at equal priority.
			return aok
		}
	}
	return a.OrderKey() < b.OrderKey()
}
