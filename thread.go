package sched

import (
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-sched/internal/cpuset"
	"github.com/joeycumines/go-sched/internal/timerwheel"
	"github.com/joeycumines/go-sched/waitq"
)

// MetaIRQPriorityBand is the number of top priorities (the most negative,
// i.e. numerically smallest) treated as metairq threads (spec §4.8,
// glossary "Metairq thread").
const MetaIRQPriorityBand = 4

var nextThreadID atomic.Uint32

// Thread is the fixed-size control block of spec §3. It is never copied
// once registered with a Kernel: all fields are mutated only under the
// owning Kernel's lock.
type Thread struct {
	id   uint32
	Name string

	// Priority: lower wins. Negative means cooperative; priorities in
	// [minPriority, minPriority+MetaIRQPriorityBand) are metairq.
	Priority int32
	// Deadline is an absolute tick in a rolling 32-bit space, or nil if
	// deadline scheduling does not apply to this thread.
	Deadline *uint32

	State State

	// Affinity is consulted only by the Dumb back-end (spec §4.10).
	Affinity cpuset.Mask

	// PendedOn is the wait queue this thread is blocked on, or nil.
	PendedOn *waitq.WaitQueue

	// JoinQueue holds threads awaiting this thread's termination.
	JoinQueue *waitq.WaitQueue

	// timeout is this thread's armed wheel node, or nil if none pending.
	timeout *timerwheel.Node

	// SwitchHandle is opaque scheduler-chosen state handed to Arch.SwitchTo;
	// the scheduler never interprets it.
	SwitchHandle any

	// PreemptThresh is the priority threshold below which the thread is
	// preemptible (spec §4.3); only meaningful for Priority >= 0 threads.
	PreemptThresh int32

	// SchedLocked is the per-thread recursive sched_lock counter (spec
	// §4.6). Nesting is permitted.
	SchedLocked int

	// orderKey is the rb back-end's FIFO tiebreak; unused by dumb/multiq.
	orderKey uint64

	// cpu is the id of the CPU this thread is pinned to while running, or
	// -1 if not currently running anywhere. Used by abort's cross-CPU
	// spin-wait (spec §4.9).
	cpu int

	// run is the thread body, invoked by Arch implementations that
	// actually execute Go code per thread (e.g. SimArch). The core
	// scheduler never calls this directly - it is purely a payload for
	// the Arch collaborator.
	run func()

	// pendResult is set by sched_wake and read back by PendCurr/Join once
	// the blocked operation resumes.
	pendResult   int
	pendResultOK bool

	// readiedAt is the wall-clock time this thread last transitioned into
	// StateQueued, used to compute ready->running latency for CPU.Metrics
	// (SPEC_FULL §4.14). Zero if never readied.
	readiedAt time.Time
}

// ID implements queue.Comparable.
func (t *Thread) ID() uint32 { return t.id }

// SchedPriority implements queue.Comparable.
func (t *Thread) SchedPriority() int32 { return t.Priority }

// SchedDeadline implements queue.Comparable.
func (t *Thread) SchedDeadline() (uint32, bool) {
	if t.Deadline == nil {
		return 0, false
	}
	return *t.Deadline, true
}

// OrderKey implements queue.Comparable.
func (t *Thread) OrderKey() uint64 { return t.orderKey }

// SetOrderKey implements queue.Comparable.
func (t *Thread) SetOrderKey(k uint64) { t.orderKey = k }

// AffinityOK implements queue.Comparable.
func (t *Thread) AffinityOK(cpu int) bool {
	if t.Affinity == 0 {
		return true // unset mask: treat as "any CPU" (UP builds never set it)
	}
	return t.Affinity.Enabled(cpu)
}

// Cooperative reports whether the thread cannot be preempted by threads
// of equal or lower priority (glossary).
func (t *Thread) Cooperative() bool { return t.Priority < 0 }

// Preemptible reports whether the thread has priority >= 0.
func (t *Thread) Preemptible() bool { return t.Priority >= 0 }

// IsMetaIRQ reports whether the thread is in the top MetaIRQPriorityBand
// priorities (glossary "Metairq thread"). MetaIRQ priorities are the most
// negative representable values, i.e. Priority < minPriority+band, where
// minPriority is fixed at -16 (Zephyr's conventional cooperative floor;
// see DESIGN.md for why this constant was chosen over making it
// configurable).
func (t *Thread) IsMetaIRQ() bool {
	return t.Priority < minPriority+MetaIRQPriorityBand
}

// minPriority is the most negative (highest) priority a thread may hold.
const minPriority = -16

// maxPriority is the least urgent (lowest) priority a thread may hold.
const maxPriority = 31
