package sched

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/joeycumines/go-sched/internal/cpuset"
	"github.com/joeycumines/go-sched/internal/lograte"
	"github.com/joeycumines/go-sched/internal/timerwheel"
	"github.com/joeycumines/go-sched/queue"
	"github.com/joeycumines/go-sched/waitq"
)

// Kernel is the scheduler singleton of spec §9 "global mutable scheduler
// state": one ready queue, one per-CPU array, one lock. Every exported
// method acquires lock internally; none may be called while already
// holding it (there is no recursive-lock support, matching the "bounded,
// non-blocking critical section" contract of spec §5).
type Kernel struct {
	mu sync.Mutex

	cfg     Config
	arch    Arch
	readyQ  queue.Backend
	qConfig queue.Config

	// cache is the uniprocessor next-thread hint of spec §3/§9. Unused
	// (left nil) on SMP configurations.
	cache *Thread

	cpus []*CPU

	wheel *timerwheel.Wheel
	tick  uint64

	sliceTime     int
	sliceMaxPrio  int32
	ticklessSlice bool
}

// NewKernel constructs a Kernel per cfg (spec §6 "sched_init": the
// back-end starts empty and the compile-time slice configuration, if
// any, is applied immediately).
func NewKernel(cfg Config) *Kernel {
	cfg = resolveConfig(cfg)

	qcfg := queue.Config{DeadlineEnabled: cfg.DeadlineEnabled}
	arch := cfg.Arch
	if arch == nil {
		arch = NewSimArch()
	}

	k := &Kernel{
		cfg:           cfg,
		arch:          arch,
		readyQ:        queue.New(cfg.QueueKind, qcfg),
		qConfig:       qcfg,
		wheel:         timerwheel.New(64, 64),
		sliceTime:     cfg.TimesliceTicks,
		sliceMaxPrio:  cfg.TimesliceMaxPriority,
		ticklessSlice: cfg.Tickless,
	}
	if k.ticklessSlice && k.sliceTime > 0 && k.sliceTime < 2 {
		k.sliceTime = 2 // spec §4.7: tickless kernels cannot arm a reliable 1-tick timeout
	}

	k.cpus = make([]*CPU, cfg.NumCPUs)
	for i := range k.cpus {
		idle := &Thread{
			id:       nextThreadID.Add(1),
			Name:     "idle",
			Priority: maxPriority,
			State:    StateDummy,
			cpu:      -1,
		}
		cpu := &CPU{id: i, Idle: idle, Current: idle}
		if len(cfg.LogRates) > 0 {
			cpu.traceLimiter = lograte.New(cfg.LogRates)
		}
		cpu.Metrics = &LatencyMetrics{}
		k.cpus[i] = cpu
	}
	return k
}

// smp reports whether this Kernel is configured with more than one CPU;
// the cache hint of spec §3 applies only when this is false.
func (k *Kernel) smp() bool { return len(k.cpus) > 1 }

// NumCPUs returns the configured CPU count.
func (k *Kernel) NumCPUs() int { return len(k.cpus) }

// CPU returns the per-CPU record for id, or nil if out of range.
func (k *Kernel) CPU(id int) *CPU {
	if id < 0 || id >= len(k.cpus) {
		return nil
	}
	return k.cpus[id]
}

// NewThread allocates and registers a thread in PRESTART state (spec §3
// "Creation allocates and zeroes the control block"). run is invoked by
// the Arch implementation once the thread is first switched in; it may
// be nil for a thread that is never meant to execute Go code (e.g. a
// synthetic placeholder in tests).
func (k *Kernel) NewThread(name string, priority int32, run func()) *Thread {
	return &Thread{
		id:       nextThreadID.Add(1),
		Name:     name,
		Priority: priority,
		State:    StatePrestart,
		// PreemptThresh defaults one past the least-urgent representable
		// priority, so every ordinary preemptible thread starts out fully
		// preemptible (spec §4.3); lowering it models a priority-ceiling
		// style "don't preempt me below this point" restriction.
		PreemptThresh: maxPriority + 1,
		Affinity:      cpuset.All(len(k.cpus)),
		cpu:           -1,
		run:           run,
		JoinQueue:     waitq.New(name+":join", queue.Dumb, queue.Config{}),
	}
}

// schedLess orders two threads by spec §4.1's priority-then-deadline
// rule, WITHOUT consulting order_key: it is used only to compare a
// running (non-resident) current thread against a queue-resident
// candidate, where current has no meaningful queue position to break
// ties with. Returns true if a strictly precedes (is more urgent than) b.
func schedLess(cfg queue.Config, a, b *Thread) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if cfg.DeadlineEnabled {
		ad, aok := a.SchedDeadline()
		bd, bok := b.SchedDeadline()
		if aok && bok {
			diff := int32(ad - bd)
			if diff != 0 {
				return diff < 0
			}
		} else if aok != bok {
			return aok
		}
	}
	return false
}

// schedEqual reports whether neither thread precedes the other under
// schedLess, i.e. they are tied on priority (and deadline, if enabled).
func schedEqual(cfg queue.Config, a, b *Thread) bool {
	return !schedLess(cfg, a, b) && !schedLess(cfg, b, a)
}

// readyLocked implements spec §4.4 ready(thread); caller holds k.mu.
func (k *Kernel) readyLocked(t *Thread) {
	if t.State.has(StateQueued) || !t.State.runnable() {
		return
	}
	k.readyQ.Add(t)
	t.State |= StateQueued
	t.readiedAt = time.Now()
	k.recomputeCacheLocked()
	for _, cpu := range k.cpus {
		k.arch.IPI(cpu.id)
	}
}

// Ready implements spec §4.4 and §6's ready_thread.
func (k *Kernel) Ready(t *Thread) {
	k.mu.Lock()
	k.readyLocked(t)
	k.mu.Unlock()
	k.PollIdle()
}

// unreadyLocked implements spec §4.4 unready(thread); caller holds k.mu.
func (k *Kernel) unreadyLocked(t *Thread) {
	if t.State.has(StateQueued) {
		k.readyQ.Remove(t)
		t.State &^= StateQueued
	}
	k.recomputeCacheLocked()
}

// Unready implements spec §4.4 and §6's unpend_thread's queue-removal half.
func (k *Kernel) Unready(t *Thread) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.unreadyLocked(t)
}

// recomputeCacheLocked refreshes the UP cache hint (spec §3 invariant 5).
// It is a no-op on SMP, which never consults cache.
func (k *Kernel) recomputeCacheLocked() {
	if k.smp() {
		return
	}
	cpu := k.cpus[0]
	if cpu.Current != nil && cpu.Current.SchedLocked > 0 {
		return // sched_lock suspends cache recomputation (spec invariant 5)
	}
	k.cache = k.nextUpLocked(cpu, false)
}

// nextUpLocked implements spec §4.2 next_up. pendingYield is true only
// when this call originates from an explicit Yield, so that an
// equal-priority candidate wins the SMP tie-break (spec §4.2 step 4,
// "current wins, or ties without a pending yield").
func (k *Kernel) nextUpLocked(cpu *CPU, pendingYield bool) *Thread {
	affinityCPU := -1
	if k.smp() {
		affinityCPU = cpu.id
	}
	best := k.readyQ.Best(affinityCPU)
	var bestThread *Thread
	if best != nil {
		bestThread = best.(*Thread)
	}

	// Metairq return override (spec §4.8).
	if cpu.MetaIRQPreempted != nil {
		if bestThread == nil || !bestThread.IsMetaIRQ() {
			remembered := cpu.MetaIRQPreempted
			cpu.MetaIRQPreempted = nil
			if remembered.State.runnable() {
				return remembered
			}
		}
	}

	// Step 4 of spec §4.2 is written as an SMP-only path, contrasting with
	// a UP path (step 3) that just returns best/idle unconditionally and
	// relies on cache/reschedule call sites to gate preemption. This
	// implementation instead runs the same preemption-aware selection on
	// both topologies - current is never queue-resident while it runs,
	// on UP or SMP alike - which preserves every scheduling decision and
	// testable property spec §8 describes while giving up only the UP
	// "current also appears in ready_q" bookkeeping curiosity (recorded
	// as an Open Question resolution in DESIGN.md).
	current := cpu.Current
	if current != nil && current.State.has(StateAborting) {
		k.endThreadLocked(current)
		current = cpu.Current
	}

	if bestThread == nil {
		bestThread = cpu.Idle
	}

	queued := current != nil && current.State.has(StateQueued)
	active := current != nil && current.State.runnable()

	var choice *Thread
	if active {
		if schedLess(k.qConfig, bestThread, current) {
			// best is strictly more urgent than current.
			if k.shouldPreemptLocked(cpu, bestThread, false) {
				choice = bestThread
			} else {
				choice = current
			}
		} else if schedEqual(k.qConfig, current, bestThread) && pendingYield {
			if k.shouldPreemptLocked(cpu, bestThread, true) {
				choice = bestThread
			} else {
				choice = current
			}
		} else {
			choice = current
		}
	} else {
		choice = bestThread
	}

	// Metairq preempting a cooperative current (spec §4.8): current isn't
	// being preempted because it ran out of slice or a higher-priority
	// preemptible thread showed up, so it must be remembered and resumed
	// directly once the metairq blocks, bypassing ordinary priority
	// reselection.
	if choice == bestThread && choice != current && active && bestThread.IsMetaIRQ() && !current.IsMetaIRQ() && !current.Preemptible() {
		cpu.MetaIRQPreempted = current
	}

	if choice != current && active && !queued && current != cpu.Idle {
		k.readyQ.Add(current)
		current.State |= StateQueued
	}
	if choice.State.has(StateQueued) {
		k.readyQ.Remove(choice)
		choice.State &^= StateQueued
	}
	cpu.SwapOK = false
	return choice
}

// shouldPreemptLocked implements spec §4.3 should_preempt. target is the
// candidate thread being considered in place of cpu.Current.
// explicitPermit covers "the caller explicitly permits preemption (e.g.
// yield, reschedule)".
func (k *Kernel) shouldPreemptLocked(cpu *CPU, target *Thread, explicitPermit bool) bool {
	if explicitPermit || cpu.SwapOK {
		return true
	}
	current := cpu.Current
	if current == nil || !current.State.runnable() {
		return true
	}
	if k.arch.IsNonAtomicSwap() && target.timeout != nil && target.timeout.Armed() {
		return true
	}
	if current.Preemptible() && current.Priority < current.PreemptThresh {
		return true
	}
	if target.IsMetaIRQ() {
		return true
	}
	return false
}

// requeueCurrentLocked implements spec §4.11: the atomic commit-point
// re-insertion of a thread that the swap path has already logically
// marked QUEUED, preventing two CPUs from both selecting it.
func (k *Kernel) requeueCurrentLocked(t *Thread) {
	if t.State.has(StateQueued) {
		k.readyQ.Add(t)
	}
}

// RequeueCurrent is the public entry point for spec §4.11, invoked by an
// Arch implementation at its switch commit point.
func (k *Kernel) RequeueCurrent(t *Thread) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.requeueCurrentLocked(t)
}

// performSwitch commits the scheduling decision and performs the actual
// context switch. The caller must hold k.mu on entry; performSwitch
// releases it before calling into Arch (spec §5: "the lock is never held
// across an architecture swap") and does NOT re-acquire it - whatever
// thread resumes after SwitchTo returns continues unlocked, reading only
// its own single-owner fields (spec §5 "per-CPU resources").
func (k *Kernel) performSwitch(cpu *CPU, choice *Thread) {
	prev := cpu.Current
	if choice == prev {
		k.mu.Unlock()
		return
	}

	if prev != nil && prev != cpu.Idle {
		prev.cpu = -1
	}
	cpu.Current = choice
	choice.cpu = cpu.id
	choice.State &^= StateQueued
	if choice != cpu.Idle && !choice.readiedAt.IsZero() {
		cpu.Metrics.Record(float64(time.Since(choice.readiedAt)))
		choice.readiedAt = time.Time{}
	}
	k.resetTimeSliceLocked(cpu)
	if !k.smp() {
		k.cache = choice
	}
	k.trace(cpu, "switch", func(e *zerolog.Event) {
		threadField(e, "from", prev)
		threadField(e, "to", choice)
	})

	k.mu.Unlock()
	k.arch.SwitchTo(cpu.id, prev, choice)
}
