package queue

import (
	"math/bits"

	"github.com/joeycumines/go-sched/internal/ring"
)

// numLanes is the number of priority lanes the multiq back-end supports,
// one per bit of the occupancy bitmask (spec §4, "array of 32 FIFO lists").
const numLanes = 32

// multiq is the O(1) back-end: an array of 32 FIFO lanes indexed by
// priority bit, plus a bitmask of non-empty lanes. Best() is a single
// TrailingZeros32 on the bitmask; Add/Remove touch only one lane.
//
// Priorities outside [0, numLanes) cannot be represented; Add panics in
// that case, since a deploy that selects Multiq is asserting its priority
// range fits. Deadlines and order_key are not consulted: within a lane,
// insertion order (FIFO) is the only tiebreak, which matches spec §4.1's
// requirement whenever all resident priorities are distinct per lane.
type multiq struct {
	occupied uint32
	lanes    [numLanes]*ring.Ring[Comparable]
	index    map[uint32]int8 // item ID -> lane, for Remove
}

func newMultiq(Config) *multiq {
	return &multiq{index: make(map[uint32]int8)}
}

func (m *multiq) lane(prio int32) int {
	if prio < 0 || prio >= numLanes {
		panic("queue: multiq: priority out of range [0, 32)")
	}
	return int(prio)
}

func (m *multiq) Add(t Comparable) {
	l := m.lane(t.SchedPriority())
	if m.lanes[l] == nil {
		m.lanes[l] = ring.New[Comparable](4)
	}
	m.lanes[l].PushBack(t)
	m.occupied |= 1 << uint(l)
	m.index[t.ID()] = int8(l)
}

func (m *multiq) Remove(t Comparable) {
	l, ok := m.index[t.ID()]
	if !ok {
		return
	}
	r := m.lanes[l]
	for i := 0; i < r.Len(); i++ {
		if r.Get(i).ID() == t.ID() {
			r.RemoveAt(i)
			break
		}
	}
	delete(m.index, t.ID())
	if r.Len() == 0 {
		m.occupied &^= 1 << uint(l)
	}
}

func (m *multiq) Best(int) Comparable {
	if m.occupied == 0 {
		return nil
	}
	l := bits.TrailingZeros32(m.occupied)
	return m.lanes[l].Get(0)
}

func (m *multiq) Len() int {
	return len(m.index)
}
