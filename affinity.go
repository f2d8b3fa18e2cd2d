package sched

import "github.com/joeycumines/go-sched/internal/cpuset"

// cpuMaskOp implements the common guard of spec §4.10/§9: affinity
// mutation is permitted only when the thread is prevented from running
// (documented limitation; see spec's Open Questions and DESIGN.md).
func (k *Kernel) cpuMaskOp(t *Thread, f func(cpuset.Mask) cpuset.Mask) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if t.State.runnable() {
		return ErrInvalidArgument
	}
	t.Affinity = f(t.Affinity)
	return nil
}

// CPUMaskClear implements spec §6 cpu_mask_clear(t): no CPU is eligible.
func (k *Kernel) CPUMaskClear(t *Thread) error {
	return k.cpuMaskOp(t, func(cpuset.Mask) cpuset.Mask { return 0 })
}

// CPUMaskEnableAll implements spec §6 cpu_mask_enable_all(t): every
// configured CPU is eligible.
func (k *Kernel) CPUMaskEnableAll(t *Thread) error {
	n := k.NumCPUs()
	return k.cpuMaskOp(t, func(cpuset.Mask) cpuset.Mask { return cpuset.All(n) })
}

// CPUMaskEnable implements spec §6 cpu_mask_enable(t, cpu).
func (k *Kernel) CPUMaskEnable(t *Thread, cpu int) error {
	return k.cpuMaskOp(t, func(m cpuset.Mask) cpuset.Mask { return m.Enable(cpu) })
}

// CPUMaskDisable implements spec §6 cpu_mask_disable(t, cpu).
func (k *Kernel) CPUMaskDisable(t *Thread, cpu int) error {
	return k.cpuMaskOp(t, func(m cpuset.Mask) cpuset.Mask { return m.Disable(cpu) })
}
