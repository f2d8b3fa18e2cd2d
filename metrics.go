package sched

import "math"

// LatencyMetrics tracks the distribution of ready->running latency (the
// time between a thread being readied and it actually being switched in)
// for one CPU (SPEC_FULL.md §4.14, an ambient addition; spec.md itself is
// silent on observability).
//
// Unlike the teacher's eventloop.LatencyMetrics, this type carries no
// mutex of its own: every CPU's Metrics is only ever touched while the
// owning Kernel's lock is held, so a second lock here would be redundant
// (see DESIGN.md).
type LatencyMetrics struct {
	psquare *pSquareMultiQuantile
}

// Record adds a ready->running latency observation, measured in
// nanoseconds.
func (m *LatencyMetrics) Record(latencyNanos float64) {
	if m.psquare == nil {
		m.psquare = newPSquareMultiQuantile(0.50, 0.90, 0.99)
	}
	m.psquare.Update(latencyNanos)
}

// P50 returns the estimated 50th percentile latency in nanoseconds, or 0
// if no observations have been recorded.
func (m *LatencyMetrics) P50() float64 { return m.quantile(0) }

// P90 returns the estimated 90th percentile latency in nanoseconds.
func (m *LatencyMetrics) P90() float64 { return m.quantile(1) }

// P99 returns the estimated 99th percentile latency in nanoseconds.
func (m *LatencyMetrics) P99() float64 { return m.quantile(2) }

// Max returns the largest observed latency in nanoseconds.
func (m *LatencyMetrics) Max() float64 {
	if m.psquare == nil {
		return 0
	}
	return m.psquare.Max()
}

// Mean returns the running mean latency in nanoseconds.
func (m *LatencyMetrics) Mean() float64 {
	if m.psquare == nil || m.psquare.count == 0 {
		return 0
	}
	return m.psquare.sum / float64(m.psquare.count)
}

// Count returns the number of recorded observations.
func (m *LatencyMetrics) Count() int {
	if m.psquare == nil {
		return 0
	}
	return m.psquare.count
}

func (m *LatencyMetrics) quantile(i int) float64 {
	if m.psquare == nil {
		return 0
	}
	return m.psquare.estimators[i].Quantile()
}

// pSquareQuantile implements the PÂ² algorithm for streaming quantile
// estimation (Jain, R. and Chlamtac, I. (1985), "The PÂ² Algorithm for
// Dynamic Calculation of Quantiles and Histograms Without Storing
// Observations", CACM 28(10)), adapted from eventloop/psquare.go: O(1)
// per-observation update and O(1) quantile retrieval. Not thread-safe;
// callers serialize access (here, via the Kernel lock).
type pSquareQuantile struct {
	p float64

	q  [5]float64
	n  [5]int
	np [5]float64
	dn [5]float64

	initialized bool
	count       int
	initBuffer  [5]float64
}

func newPSquareQuantile(p float64) *pSquareQuantile {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return &pSquareQuantile{
		p:  p,
		dn: [5]float64{0, p / 2, p, (1 + p) / 2, 1},
	}
}

func (ps *pSquareQuantile) Update(x float64) {
	ps.count++

	if ps.count <= 5 {
		ps.initBuffer[ps.count-1] = x
		if ps.count == 5 {
			ps.initialize()
		}
		return
	}

	var k int
	if x < ps.q[0] {
		ps.q[0] = x
		k = 0
	} else if x >= ps.q[4] {
		ps.q[4] = x
		k = 3
	} else {
		for k = 0; k < 4; k++ {
			if ps.q[k] <= x && x < ps.q[k+1] {
				break
			}
		}
	}

	for i := k + 1; i < 5; i++ {
		ps.n[i]++
	}
	for i := 0; i < 5; i++ {
		ps.np[i] += ps.dn[i]
	}

	for i := 1; i < 4; i++ {
		d := ps.np[i] - float64(ps.n[i])
		if (d >= 1 && ps.n[i+1]-ps.n[i] > 1) || (d <= -1 && ps.n[i-1]-ps.n[i] < -1) {
			sign := 1
			if d < 0 {
				sign = -1
			}
			qPrime := ps.parabolic(i, sign)
			if ps.q[i-1] < qPrime && qPrime < ps.q[i+1] {
				ps.q[i] = qPrime
			} else {
				ps.q[i] = ps.linear(i, sign)
			}
			ps.n[i] += sign
		}
	}
}

func (ps *pSquareQuantile) initialize() {
	for i := 1; i < 5; i++ {
		key := ps.initBuffer[i]
		j := i - 1
		for j >= 0 && ps.initBuffer[j] > key {
			ps.initBuffer[j+1] = ps.initBuffer[j]
			j--
		}
		ps.initBuffer[j+1] = key
	}
	for i := 0; i < 5; i++ {
		ps.q[i] = ps.initBuffer[i]
		ps.n[i] = i
	}
	ps.np = [5]float64{0, 2 * ps.p, 4 * ps.p, 2 + 2*ps.p, 4}
	ps.initialized = true
}

func (ps *pSquareQuantile) parabolic(i, d int) float64 {
	df := float64(d)
	ni := float64(ps.n[i])
	niPrev := float64(ps.n[i-1])
	niNext := float64(ps.n[i+1])

	term1 := df / (niNext - niPrev)
	term2 := (ni - niPrev + df) * (ps.q[i+1] - ps.q[i]) / (niNext - ni)
	term3 := (niNext - ni - df) * (ps.q[i] - ps.q[i-1]) / (ni - niPrev)

	return ps.q[i] + term1*(term2+term3)
}

func (ps *pSquareQuantile) linear(i, d int) float64 {
	if d == 1 {
		return ps.q[i] + (ps.q[i+1]-ps.q[i])/float64(ps.n[i+1]-ps.n[i])
	}
	return ps.q[i] - (ps.q[i]-ps.q[i-1])/float64(ps.n[i]-ps.n[i-1])
}

func (ps *pSquareQuantile) Quantile() float64 {
	if ps.count == 0 {
		return 0
	}
	if ps.count < 5 {
		sorted := make([]float64, ps.count)
		copy(sorted, ps.initBuffer[:ps.count])
		for i := 1; i < ps.count; i++ {
			key := sorted[i]
			j := i - 1
			for j >= 0 && sorted[j] > key {
				sorted[j+1] = sorted[j]
				j--
			}
			sorted[j+1] = key
		}
		index := int(float64(ps.count-1) * ps.p)
		if index >= ps.count {
			index = ps.count - 1
		}
		return sorted[index]
	}
	return ps.q[2]
}

func (ps *pSquareQuantile) Max() float64 {
	if ps.count == 0 {
		return 0
	}
	if ps.count < 5 {
		max := ps.initBuffer[0]
		for i := 1; i < ps.count; i++ {
			if ps.initBuffer[i] > max {
				max = ps.initBuffer[i]
			}
		}
		return max
	}
	return ps.q[4]
}

// pSquareMultiQuantile tracks several quantiles of the same stream at
// once, adapted from eventloop/psquare.go's pSquareMultiQuantile.
type pSquareMultiQuantile struct {
	estimators []*pSquareQuantile
	sum        float64
	count      int
	max        float64
}

func newPSquareMultiQuantile(percentiles ...float64) *pSquareMultiQuantile {
	m := &pSquareMultiQuantile{
		estimators: make([]*pSquareQuantile, len(percentiles)),
		max:        -math.MaxFloat64,
	}
	for i, p := range percentiles {
		m.estimators[i] = newPSquareQuantile(p)
	}
	return m
}

func (m *pSquareMultiQuantile) Update(x float64) {
	m.count++
	m.sum += x
	if x > m.max {
		m.max = x
	}
	for _, est := range m.estimators {
		est.Update(x)
	}
}

func (m *pSquareMultiQuantile) Max() float64 {
	if m.count == 0 {
		return 0
	}
	return m.max
}
