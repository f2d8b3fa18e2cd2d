package sched

import "errors"

// Sentinel errors returned by the scheduler's external interfaces (spec
// §7). Matched with errors.Is, in the style of the teacher's
// eventloop/loop.go sentinel set.
var (
	// ErrInvalidArgument is returned for a bad priority, bad deadline, or
	// an out-of-range channel/CPU count.
	ErrInvalidArgument = errors.New("sched: invalid argument")

	// ErrBusy is returned by Join when timeout is zero (K_NO_WAIT) and the
	// target thread is still alive.
	ErrBusy = errors.New("sched: would block")

	// ErrTimeout is returned from Sleep/Join/PendCurr when a timeout
	// fires before the operation is satisfied.
	ErrTimeout = errors.New("sched: timed out")

	// ErrDeadlock is returned by Join on self-join or a join cycle.
	ErrDeadlock = errors.New("sched: join would deadlock")

	// ErrPermission is returned when a user-mode caller attempts an
	// operation it does not own (e.g. raising its own priority). The
	// scheduler core never checks caller identity itself - it only
	// exposes the boolean the syscall gate needs; see PrioritySet.
	ErrPermission = errors.New("sched: permission denied")
)

// invariantViolation panics, rather than returning an error, for the
// assertion failures of spec §7: "these are bugs, not runtime errors."
// The top-level driver (cmd/schedsim, or a Kernel embedder) is expected
// not to recover from this - an invariant violation halts the kernel.
type invariantViolation struct {
	msg string
}

func (e invariantViolation) Error() string { return "sched: invariant violation: " + e.msg }

func assertInvariant(cond bool, msg string) {
	if !cond {
		panic(invariantViolation{msg})
	}
}
