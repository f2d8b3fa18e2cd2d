package queue

// rbTree is the "scalable" back-end: a red-black tree keyed by
// (priority, deadline, order_key), giving O(log n) insert and remove.
//
// Nodes are addressed by the item's stable ID rather than embedded in the
// item itself (design notes: "make the back-end own an external mapping
// from thread-index to node... eliminates internal pointer aliasing").
type rbTree struct {
	cfg      Config
	root     *rbNode
	nodes    map[uint32]*rbNode
	nextKey  uint64
	sentinel *rbNode // shared nil leaf, simplifies delete-fixup
}

type rbColor bool

const (
	red   rbColor = true
	black rbColor = false
)

type rbNode struct {
	item                Comparable
	color               rbColor
	left, right, parent *rbNode
}

func newRBTree(cfg Config) *rbTree {
	nilNode := &rbNode{color: black}
	nilNode.left, nilNode.right, nilNode.parent = nilNode, nilNode, nilNode
	return &rbTree{
		cfg:      cfg,
		root:     nilNode,
		nodes:    make(map[uint32]*rbNode),
		sentinel: nilNode,
	}
}

func (t *rbTree) Len() int { return len(t.nodes) }

// assignOrderKey hands out a monotonically increasing FIFO tiebreak key.
// On wraparound (spec §4.1, "rare, requires a queue that never empties")
// every resident thread is re-keyed from zero in tree order.
func (t *rbTree) assignOrderKey(item Comparable) {
	if t.nextKey == ^uint64(0) {
		t.rekeyAll()
	}
	item.SetOrderKey(t.nextKey)
	t.nextKey++
}

func (t *rbTree) rekeyAll() {
	var key uint64
	var walk func(n *rbNode)
	walk = func(n *rbNode) {
		if n == t.sentinel {
			return
		}
		walk(n.left)
		n.item.SetOrderKey(key)
		key++
		walk(n.right)
	}
	walk(t.root)
	t.nextKey = key
}

func (t *rbTree) Add(item Comparable) {
	t.assignOrderKey(item)

	n := &rbNode{item: item, color: red, left: t.sentinel, right: t.sentinel, parent: t.sentinel}
	t.nodes[item.ID()] = n

	var parent *rbNode = t.sentinel
	cur := t.root
	for cur != t.sentinel {
		parent = cur
		if less(t.cfg, item, cur.item) {
			cur = cur.left
		} else {
			cur = cur.right
		}
	}
	n.parent = parent
	switch {
	case parent == t.sentinel:
		t.root = n
	case less(t.cfg, item, parent.item):
		parent.left = n
	default:
		parent.right = n
	}
	t.insertFixup(n)
}

func (t *rbTree) insertFixup(z *rbNode) {
	for z.parent.color == red {
		if z.parent == z.parent.parent.left {
			y := z.parent.parent.right
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.rotateLeft(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rotateRight(z.parent.parent)
			}
		} else {
			y := z.parent.parent.left
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rotateRight(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rotateLeft(z.parent.parent)
			}
		}
	}
	t.root.color = black
}

func (t *rbTree) rotateLeft(x *rbNode) {
	y := x.right
	x.right = y.left
	if y.left != t.sentinel {
		y.left.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == t.sentinel:
		t.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *rbTree) rotateRight(x *rbNode) {
	y := x.left
	x.left = y.right
	if y.right != t.sentinel {
		y.right.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == t.sentinel:
		t.root = y
	case x == x.parent.right:
		x.parent.right = y
	default:
		x.parent.left = y
	}
	y.right = x
	x.parent = y
}

func (t *rbTree) Remove(item Comparable) {
	z, ok := t.nodes[item.ID()]
	if !ok {
		return
	}
	delete(t.nodes, item.ID())

	y := z
	yOrigColor := y.color
	var x *rbNode
	switch {
	case z.left == t.sentinel:
		x = z.right
		t.transplant(z, z.right)
	case z.right == t.sentinel:
		x = z.left
		t.transplant(z, z.left)
	default:
		y = t.minimum(z.right)
		yOrigColor = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}
	if yOrigColor == black {
		t.deleteFixup(x)
	}
}

func (t *rbTree) transplant(u, v *rbNode) {
	switch {
	case u.parent == t.sentinel:
		t.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}
	v.parent = u.parent
}

func (t *rbTree) minimum(n *rbNode) *rbNode {
	for n.left != t.sentinel {
		n = n.left
	}
	return n
}

func (t *rbTree) deleteFixup(x *rbNode) {
	for x != t.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rotateLeft(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.right.color == black {
					w.left.color = black
					w.color = red
					t.rotateRight(w)
					w = x.parent.right
				}
				w.color = x.parent.color
				x.parent.color = black
				w.right.color = black
				t.rotateLeft(x.parent)
				x = t.root
			}
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rotateRight(x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.left.color == black {
					w.right.color = black
					w.color = red
					t.rotateLeft(w)
					w = x.parent.left
				}
				w.color = x.parent.color
				x.parent.color = black
				w.left.color = black
				t.rotateRight(x.parent)
				x = t.root
			}
		}
	}
	x.color = black
}

func (t *rbTree) Best(int) Comparable {
	if t.root == t.sentinel {
		return nil
	}
	return t.minimum(t.root).item
}
