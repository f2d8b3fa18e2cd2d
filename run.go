package sched

import (
	"context"
	"time"
)

// Run drives the tick source until ctx is cancelled: every cfg.TickDuration
// it delivers one tick to TimeSlice, exactly as a real clock-announce path
// would. Thread execution itself is driven independently by Arch (e.g.
// SimArch spawns a goroutine per thread the first time it is switched
// in) - Run's only job is keeping time moving.
func (k *Kernel) Run(ctx context.Context) error {
	ticker := time.NewTicker(k.cfg.TickDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			k.TimeSlice(1)
		}
	}
}

// Tick delivers elapsed ticks directly, bypassing the wall-clock driver -
// useful for deterministic tests that want to control time explicitly
// rather than racing a real ticker.
func (k *Kernel) Tick(elapsed int) { k.TimeSlice(elapsed) }

// PollIdle gives every idle CPU a chance to reconsider next_up. Real
// hardware does this via the IPI Arch.IPI requests; since SimArch has no
// standing per-CPU driver goroutine to receive that interrupt, callers
// that ready a thread invoke PollIdle afterwards (with no lock held) to
// get the same prompt-wakeup effect described in spec §5 "ready issues
// an IPI on SMP-with-IPI-support builds so idle CPUs wake promptly".
func (k *Kernel) PollIdle() {
	for _, cpu := range k.cpus {
		k.mu.Lock()
		if cpu.Current != cpu.Idle {
			k.mu.Unlock()
			continue
		}
		choice := k.nextUpLocked(cpu, false)
		k.performSwitch(cpu, choice)
	}
}

// Cache returns the uniprocessor next-thread hint (spec §3 "cache"); it
// is always nil on SMP configurations, which never consult it.
func (k *Kernel) Cache() *Thread {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cache
}
