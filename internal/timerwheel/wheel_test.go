package timerwheel

import "testing"

func TestWheel_FiresAtExactDeadline(t *testing.T) {
	w := New(16, 0)
	var fired []string
	n1 := &Node{Deadline: 3, Fire: func() { fired = append(fired, "n1") }}
	n2 := &Node{Deadline: 5, Fire: func() { fired = append(fired, "n2") }}
	w.Arm(n1)
	w.Arm(n2)

	w.Flush(3) // current: 0 -> 3
	if len(fired) != 1 || fired[0] != "n1" {
		t.Fatalf("after tick 3, fired = %v, want [n1]", fired)
	}
	w.Flush(2) // current: 3 -> 5
	if len(fired) != 2 || fired[1] != "n2" {
		t.Fatalf("after tick 5, fired = %v, want [n1 n2]", fired)
	}
}

func TestWheel_DisarmPreventsFiring(t *testing.T) {
	w := New(16, 0)
	fired := false
	n := &Node{Deadline: 2, Fire: func() { fired = true }}
	w.Arm(n)
	w.Disarm(n)
	w.Flush(10)
	if fired {
		t.Fatal("disarmed node must not fire")
	}
	// disarming twice, or disarming an unarmed node, must not panic
	w.Disarm(n)
}

func TestWheel_OverflowEntriesMigrateIntoWindow(t *testing.T) {
	w := New(4, 0)
	fired := false
	n := &Node{Deadline: 10, Fire: func() { fired = true }} // starts in overflow (span=4)
	w.Arm(n)
	w.Flush(4) // current 0 -> 4, deadline 10 still > current+span
	if fired {
		t.Fatal("fired too early")
	}
	w.Flush(6) // current 4 -> 10
	if !fired {
		t.Fatal("expected node to fire once its deadline is reached")
	}
}

func TestWheel_OverflowFanoutHookFires(t *testing.T) {
	w := New(4, 2)
	var hookCalls int
	w.OnOverflowFanout = func(int) { hookCalls++ }
	for i := 0; i < 5; i++ {
		w.Arm(&Node{Deadline: 1000, Fire: func() {}})
	}
	if hookCalls == 0 {
		t.Fatal("expected overflow fanout hook to fire at least once")
	}
}
