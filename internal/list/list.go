// Package list implements the intrusive doubly-linked list primitive
// every queue, tree, and inbox in the kernel is built from.
//
// The source kernel threads a `struct list_head` through each PCB and
// message so one allocation can sit on many different kinds of list.
// Go has no pointer-cycle-friendly way to embed a raw linked-list node
// in an arena slot and hand out aliases to it, so this package follows
// Design Note §9 option (a): elements live in an arena (pcbpool,
// msgpool) addressed by a small integer Handle, and the link fields
// live *inside* the arena slot. A List value never owns elements; it
// only threads Handles together through a Store, which is the arena
// itself (or a thin per-relation wrapper around it) telling the list
// where to find a given Handle's link fields.
package list

// Handle addresses one element in some arena. The zero Handle is
// reserved to mean "no element" (mirrors the source's NULL/NOPROC).
type Handle uint32

// Nil is the reserved empty handle.
const Nil Handle = 0

// Node is the pair of links embedded in an arena slot for one list
// relation. A slot that participates in several unrelated relations
// (e.g. a PCB's queue membership and its sibling-list membership)
// embeds one Node per relation.
type Node struct {
	prev, next Handle
}

// Linked reports whether the node is currently threaded into a list.
func (n Node) Linked() bool { return n.prev != Nil || n.next != Nil }

// Store gives a List access to the Node embedded in a Handle's slot
// for the relation this List represents. Arenas implement Store
// directly when a slot has exactly one relevant Node; when a slot
// participates in more than one relation (PCBs do: queue membership
// and tree sibling membership are independent), the arena exposes one
// small Store-shaped accessor per relation instead.
type Store interface {
	Link(h Handle) *Node
}

// StoreFunc adapts a plain accessor function to Store.
type StoreFunc func(h Handle) *Node

func (f StoreFunc) Link(h Handle) *Node { return f(h) }

// List is a FIFO queue of Handles, threaded through a Store. The zero
// List is empty but has no Store, so inserting into it panics; build
// lists with New.
type List struct {
	store      Store
	head, tail Handle
	length     int
}

// New returns an empty list backed by store.
func New(store Store) *List {
	return &List{store: store}
}

// Len returns the number of elements currently linked into the list.
func (l *List) Len() int { return l.length }

// Empty reports whether the list has no elements.
func (l *List) Empty() bool { return l.length == 0 }

// Head returns the first element without removing it, or Nil if empty.
func (l *List) Head() Handle { return l.head }

// InsertTail appends h to the end of the list.
func (l *List) InsertTail(h Handle) {
	node := l.store.Link(h)
	node.prev = l.tail
	node.next = Nil
	if l.tail != Nil {
		l.store.Link(l.tail).next = h
	} else {
		l.head = h
	}
	l.tail = h
	l.length++
}

// InsertHead prepends h to the front of the list.
func (l *List) InsertHead(h Handle) {
	node := l.store.Link(h)
	node.next = l.head
	node.prev = Nil
	if l.head != Nil {
		l.store.Link(l.head).prev = h
	} else {
		l.tail = h
	}
	l.head = h
	l.length++
}

// RemoveHead removes and returns the first element, or Nil if empty.
func (l *List) RemoveHead() Handle {
	h := l.head
	if h == Nil {
		return Nil
	}
	l.unlink(h)
	return h
}

// Remove detaches h from the list. It returns Nil if h is not
// currently in this list (a soft error, per §4.1's "Failure modes" —
// callers use this to detect stale references) and h otherwise.
func (l *List) Remove(h Handle) Handle {
	if h == Nil || !l.contains(h) {
		return Nil
	}
	l.unlink(h)
	return h
}

// Contains reports whether h is currently linked into this list.
// It is O(n): the source's queues have the same cost, and MAXPROC is small.
func (l *List) Contains(h Handle) bool { return l.contains(h) }

func (l *List) contains(h Handle) bool {
	for cur := l.head; cur != Nil; cur = l.store.Link(cur).next {
		if cur == h {
			return true
		}
	}
	return false
}

func (l *List) unlink(h Handle) {
	node := l.store.Link(h)
	if node.prev != Nil {
		l.store.Link(node.prev).next = node.next
	} else {
		l.head = node.next
	}
	if node.next != Nil {
		l.store.Link(node.next).prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev, node.next = Nil, Nil
	l.length--
}

// Each calls fn for every handle in the list, head to tail. fn must
// not mutate the list.
func (l *List) Each(fn func(Handle)) {
	for cur := l.head; cur != Nil; cur = l.store.Link(cur).next {
		fn(cur)
	}
}

// Find returns the first handle for which match returns true, or Nil.
func (l *List) Find(match func(Handle) bool) Handle {
	for cur := l.head; cur != Nil; cur = l.store.Link(cur).next {
		if match(cur) {
			return cur
		}
	}
	return Nil
}
