// Package cpuset implements the CPU affinity bitmask used by SMP builds of
// the scheduler (spec §4.10, §6 "Affinity (SMP)").
package cpuset

import "math/bits"

// MaxCPUs bounds the affinity mask to a single machine word of bits. Real
// kernels with more CPUs than this would widen the mask to a slice of
// words; this scheduler targets small embedded-class SMP configurations.
const MaxCPUs = 32

// Mask is a bitmask of eligible CPU ids, bit i set meaning CPU i is
// eligible to run the owning thread.
type Mask uint32

// All returns a mask with every CPU in [0, n) enabled.
func All(n int) Mask {
	if n <= 0 {
		return 0
	}
	if n >= MaxCPUs {
		return ^Mask(0)
	}
	return Mask(1<<uint(n)) - 1
}

// Enabled reports whether cpu is eligible under m.
func (m Mask) Enabled(cpu int) bool {
	if cpu < 0 || cpu >= MaxCPUs {
		return false
	}
	return m&(1<<uint(cpu)) != 0
}

// Enable returns m with cpu added.
func (m Mask) Enable(cpu int) Mask {
	if cpu < 0 || cpu >= MaxCPUs {
		return m
	}
	return m | 1<<uint(cpu)
}

// Disable returns m with cpu removed.
func (m Mask) Disable(cpu int) Mask {
	if cpu < 0 || cpu >= MaxCPUs {
		return m
	}
	return m &^ (1 << uint(cpu))
}

// Empty reports whether no CPU is eligible.
func (m Mask) Empty() bool {
	return m == 0
}

// Count returns the number of eligible CPUs.
func (m Mask) Count() int {
	return bits.OnesCount32(uint32(m))
}
