// Command schedsim drives a small fixed scenario through a real
// sched.Kernel (backed by sched.SimArch) and prints the resulting
// scheduling trace, demonstrating priority preemption, timeslicing, and
// cooperative yielding side by side.
//
// Run with: go run ./cmd/schedsim
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	sched "github.com/joeycumines/go-sched"
	"github.com/joeycumines/go-sched/queue"
)

func main() {
	var (
		duration = flag.Duration("duration", 500*time.Millisecond, "how long to run the simulated kernel")
		tick     = flag.Duration("tick", time.Millisecond, "wall-clock duration of one scheduler tick")
		verbose  = flag.Bool("v", false, "emit the full structured scheduling trace")
	)
	flag.Parse()

	var logger *sched.Logger
	if *verbose {
		logger = sched.NewConsoleLogger(os.Stdout)
	}

	k := sched.NewKernel(sched.Config{
		NumCPUs:              1,
		QueueKind:            queue.Dumb,
		TimesliceTicks:       10,
		TimesliceMaxPriority: 31,
		TickDuration:         *tick,
		Logger:               logger,
	})

	done := make(chan string, 3)

	// worker and reporter are equal-priority, timesliced threads that
	// round-robin under the timeslice clock; each yields early a few
	// times to also exercise cooperative rotation.
	var worker, reporter *sched.Thread
	worker = k.NewThread("worker", 5, func() {
		for i := 0; i < 3; i++ {
			fmt.Printf("worker: doing unit of work %d\n", i)
			k.Yield(worker)
		}
		done <- "worker done"
	})
	reporter = k.NewThread("reporter", 5, func() {
		for i := 0; i < 3; i++ {
			fmt.Printf("reporter: tick %d\n", i)
			k.Yield(reporter)
		}
		done <- "reporter done"
	})

	// urgent is a higher-priority thread readied partway through, to
	// demonstrate priority preemption at worker's own checkpoints.
	var urgent *sched.Thread
	urgent = k.NewThread("urgent", 1, func() {
		fmt.Println("urgent: running ahead of worker/reporter")
		done <- "urgent done"
	})

	k.Start(worker)
	k.Start(reporter)

	go func() {
		time.Sleep(5 * (*tick))
		k.Ready(urgent)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	go func() {
		for i := 0; i < 3; i++ {
			select {
			case msg := <-done:
				fmt.Println(msg)
			case <-ctx.Done():
				return
			}
		}
		cancel()
	}()

	if err := k.Run(ctx); err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		fmt.Fprintln(os.Stderr, "schedsim:", err)
		os.Exit(1)
	}

	m := k.CPU(0).Metrics
	fmt.Printf("ready->running latency: p50=%.0fns p90=%.0fns p99=%.0fns max=%.0fns (n=%d)\n",
		m.P50(), m.P90(), m.P99(), m.Max(), m.Count())
}
