package sched

import (
	"time"

	"github.com/joeycumines/go-sched/queue"
)

// Config configures a Kernel at construction time (spec §6 "configuration
// knobs", styled after the teacher's LoopOption pattern but expressed as
// a plain struct since every field here is a deploy-time constant, not a
// runtime-toggleable behaviour).
type Config struct {
	// NumCPUs is the number of simulated CPUs. Must be >= 1. Values > 1
	// exercise the SMP paths of spec §4.2-§4.3, §4.10, §9.
	NumCPUs int

	// QueueKind selects the ready-queue back-end (spec §4.1, §9): Dumb is
	// the only back-end that honors per-thread CPU affinity.
	QueueKind queue.Kind

	// DeadlineEnabled turns on deadline-based tiebreaking ahead of
	// insertion order (spec §4.1, §6).
	DeadlineEnabled bool

	// TimesliceTicks is the default timeslice length in ticks; 0 disables
	// timeslicing entirely (spec §4.7).
	TimesliceTicks int

	// TimesliceMaxPriority: only threads with Priority <= this value are
	// timesliced (spec §4.7, §6); threads of lower priority (numerically
	// greater) run to completion or until they block.
	TimesliceMaxPriority int32

	// Tickless, when true, arms the timer wheel only out to the next
	// thread's remaining slice rather than ticking every CPU every time
	// unit (spec §4.7 "tickless kernel" consideration).
	Tickless bool

	// TickDuration is the wall-clock duration of one scheduler tick, used
	// only by Kernel.Run's driver loop; it has no bearing on scheduling
	// correctness.
	TickDuration time.Duration

	// Arch is the architecture collaborator (spec §1/§5). If nil,
	// NewKernel installs a fresh *SimArch.
	Arch Arch

	// LogRates configures the per-CPU trace-log limiter (SPEC_FULL §4.14);
	// nil or empty disables throttling (every trace call logs).
	LogRates map[time.Duration]int

	// Logger receives structured scheduling trace events. The zero value
	// (nil) disables logging entirely.
	Logger *Logger
}

// resolveConfig fills in defaults for zero-valued fields, mirroring
// eventloop's resolveLoopOptions defaulting pattern.
func resolveConfig(cfg Config) Config {
	if cfg.NumCPUs <= 0 {
		cfg.NumCPUs = 1
	}
	if cfg.TimesliceMaxPriority == 0 {
		cfg.TimesliceMaxPriority = maxPriority
	}
	if cfg.TickDuration <= 0 {
		cfg.TickDuration = time.Millisecond
	}
	return cfg
}
