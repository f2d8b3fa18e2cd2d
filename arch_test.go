package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSimArch_IPIIsNoop(t *testing.T) {
	a := NewSimArch()
	require.NotPanics(t, func() { a.IPI(0) })
}

func TestSimArch_IsNonAtomicSwapDefaultsFalse(t *testing.T) {
	a := NewSimArch()
	require.False(t, a.IsNonAtomicSwap())
	a.NonAtomic = true
	require.True(t, a.IsNonAtomicSwap())
}

// TestSimArch_SwitchToNilRunIsSynchronous covers the nil-run shortcut
// that every bookkeeping-only test in this package relies on: switching
// to or from a thread with no body never blocks the calling goroutine.
func TestSimArch_SwitchToNilRunIsSynchronous(t *testing.T) {
	a := NewSimArch()
	from := &Thread{id: 1}
	to := &Thread{id: 2}
	done := make(chan struct{})
	go func() {
		a.SwitchTo(0, from, to)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SwitchTo with nil-run threads must not block")
	}
}

// TestSimArch_SpawnsOnFirstSwitchOnly exercises the spawn/resume split:
// the first SwitchTo to a thread with a body starts its goroutine, which
// parks itself (by calling SwitchTo away from itself, exactly as
// performSwitch does on th's behalf from inside a real Yield/Suspend
// call); a later switch back in just wakes it via its channel, without
// spawning a second goroutine.
func TestSimArch_SpawnsOnFirstSwitchOnly(t *testing.T) {
	a := NewSimArch()
	var spawns int
	a.onSpawn = func(*Thread) { spawns++ }

	entered := make(chan struct{}, 2)
	leave := make(chan struct{})
	th := &Thread{id: 7}
	th.run = func() {
		entered <- struct{}{}
		a.SwitchTo(0, th, nil) // parks th's own goroutine here
		entered <- struct{}{}
		close(leave)
	}

	a.SwitchTo(0, nil, th) // spawns th's goroutine
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("thread body never ran after first SwitchTo")
	}
	require.Equal(t, 1, spawns)

	a.SwitchTo(0, nil, th) // already spawned: wakes the parked goroutine
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("thread body never resumed after second wake")
	}
	require.Equal(t, 1, spawns, "second switch-in must not respawn")

	select {
	case <-leave:
	case <-time.After(time.Second):
		t.Fatal("thread body never completed")
	}
}
