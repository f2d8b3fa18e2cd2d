package queue

import "container/list"

// dumbList is the "dumb" back-end: a doubly linked list, insertion-sorted
// by priority. O(n) insert, O(1) head. It is the only back-end that
// supports CPU affinity filtering (spec §4.10).
type dumbList struct {
	cfg  Config
	l    *list.List
	node map[uint32]*list.Element
}

func newDumbList(cfg Config) *dumbList {
	return &dumbList{
		cfg:  cfg,
		l:    list.New(),
		node: make(map[uint32]*list.Element),
	}
}

func (d *dumbList) Add(t Comparable) {
	for e := d.l.Front(); e != nil; e = e.Next() {
		if less(d.cfg, t, e.Value.(Comparable)) {
			d.node[t.ID()] = d.l.InsertBefore(t, e)
			return
		}
	}
	d.node[t.ID()] = d.l.PushBack(t)
}

func (d *dumbList) Remove(t Comparable) {
	if e, ok := d.node[t.ID()]; ok {
		d.l.Remove(e)
		delete(d.node, t.ID())
	}
}

func (d *dumbList) Best(cpu int) Comparable {
	for e := d.l.Front(); e != nil; e = e.Next() {
		c := e.Value.(Comparable)
		if cpu < 0 || c.AffinityOK(cpu) {
			return c
		}
	}
	return nil
}

func (d *dumbList) Len() int {
	return d.l.Len()
}
