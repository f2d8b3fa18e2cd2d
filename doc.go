// Package sched implements the preemptive thread scheduler of a small
// real-time kernel: the subsystem that decides, at every scheduling point
// and every timer tick, which of a bounded set of threads runs next on
// each CPU.
//
// # Architecture
//
// A [Kernel] owns exactly one ready queue (a [queue.Backend] instance,
// see the queue package for the three interchangeable back-ends) plus one
// [CPU] record per configured CPU. Every mutation of the ready queue, any
// wait queue, or per-thread scheduler state happens under Kernel's single
// lock - there is no finer-grained locking, matching the "one big lock"
// model of a small RTOS kernel.
//
// The scheduler never talks to real hardware: interrupts, tick sources,
// and the architecture context-switch primitive are all represented by
// the [Arch] interface, an opaque collaborator the Kernel is constructed
// with. [SimArch] is the in-repo reference implementation, used by tests
// and cmd/schedsim, simulating each CPU as a dedicated goroutine.
//
// # Thread Safety
//
// All of Kernel's external interface methods (Ready, Pend, Unpend, Wake,
// Yield, Reschedule, TimeSlice, Start, Abort, Join, PrioritySet, ...) are
// safe to call concurrently from any goroutine representing any CPU or
// ISR context; each acquires Kernel's lock internally.
//
// # Usage
//
//	k := sched.NewKernel(sched.Config{NumCPUs: 1, QueueKind: queue.Dumb})
//	t := k.NewThread("worker", 5, func() { ... })
//	k.Start(t)
//	k.Run(ctx) // drives the simulated CPU(s) via Arch until ctx is done
package sched
