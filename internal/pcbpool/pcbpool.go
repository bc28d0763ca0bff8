// Package pcbpool implements the static pool of process control blocks
// (§3, §4.1): a fixed-capacity arena addressed by list.Handle, a free
// list, the intrusive queue-membership relation shared by the ready
// queue/blocked lists/pseudoclock list, and the parent/child/sibling
// tree relation.
package pcbpool

import (
	"time"

	"github.com/tinyrange/pandos/internal/kconst"
	"github.com/tinyrange/pandos/internal/list"
	"github.com/tinyrange/pandos/internal/machine"
	"github.com/tinyrange/pandos/internal/msgpool"
)

// PCB is one process control block (§3).
type PCB struct {
	queueLink list.Node // membership in free/ready/blocked/pseudoclock (mutually exclusive)
	sibLink   list.Node // membership in parent's Children list

	PID int

	State machine.ProcessorState
	Time  time.Duration // accumulated CPU time (§4.3's accounting)

	Parent   list.Handle
	Children list.List // child handles, threaded through sibLink

	Inbox list.List // message queue, threaded through the message pool's link

	Support list.Handle // optional; list.Nil if this process has no support level

	// Set by RECEIVE when no matching message is queued (§4.5): the
	// filter a blocked process is still waiting to satisfy.
	ReceiveFilter  list.Handle
	ReceiveWaiting bool
}

// Pool is the static MAXPROC-sized PCB arena.
type Pool struct {
	slots [kconst.MaxProc + 1]PCB // index 0 is the reserved Nil slot, unused
	free  *list.List
	msgs  *msgpool.Pool

	nextPID int
}

// New returns a Pool with every slot on the free list. msgs backs the
// Inbox list of every PCB the pool hands out.
func New(msgs *msgpool.Pool) *Pool {
	p := &Pool{nextPID: 1, msgs: msgs}
	p.free = list.New(list.StoreFunc(p.queueLinkOf))
	for i := kconst.MaxProc; i >= 1; i-- {
		p.free.InsertHead(list.Handle(i))
	}
	return p
}

func (p *Pool) queueLinkOf(h list.Handle) *list.Node { return &p.slots[h].queueLink }
func (p *Pool) sibLinkOf(h list.Handle) *list.Node   { return &p.slots[h].sibLink }

// NewQueue returns a queue-relation list backed by this pool — used
// for the ready queue, each blocked-device list, and the pseudoclock list.
func (p *Pool) NewQueue() *list.List { return list.New(list.StoreFunc(p.queueLinkOf)) }

func (p *Pool) newChildList() list.List { return *list.New(list.StoreFunc(p.sibLinkOf)) }

// Get returns the PCB for h. h must be a currently-allocated handle.
func (p *Pool) Get(h list.Handle) *PCB { return &p.slots[h] }

// Allocated reports whether h currently denotes a live PCB (§4.5's
// "dest is on the free list" check).
func (p *Pool) Allocated(h list.Handle) bool {
	return h != list.Nil && !p.free.Contains(h)
}

// Alloc returns a zeroed PCB from the free pool, or list.Nil if the
// pool is exhausted (§4.1's pool-exhaustion failure mode).
func (p *Pool) Alloc() list.Handle {
	h := p.free.RemoveHead()
	if h == list.Nil {
		return list.Nil
	}
	pid := p.nextPID
	p.nextPID++
	p.slots[h] = PCB{
		PID:      pid,
		Parent:   list.Nil,
		Support:  list.Nil,
		Children: p.newChildList(),
		Inbox:    p.msgs.NewInbox(),
	}
	return h
}

// Free returns h to the free pool. The caller must ensure h is not
// currently a member of any other list.
func (p *Pool) Free(h list.Handle) {
	p.free.InsertTail(h)
}

// InsertChild appends child to parent's children and sets child's Parent.
func (p *Pool) InsertChild(parent, child list.Handle) {
	p.slots[parent].Children.InsertTail(child)
	p.slots[child].Parent = parent
}

// RemoveFirstChild detaches and returns parent's first child, or list.Nil.
func (p *Pool) RemoveFirstChild(parent list.Handle) list.Handle {
	child := p.slots[parent].Children.RemoveHead()
	if child != list.Nil {
		p.slots[child].Parent = list.Nil
	}
	return child
}

// DetachFromParent removes h from its parent's children list. Returns
// list.Nil if h has no parent (soft error, matching outChild).
func (p *Pool) DetachFromParent(h list.Handle) list.Handle {
	parent := p.slots[h].Parent
	if parent == list.Nil {
		return list.Nil
	}
	p.slots[parent].Children.Remove(h)
	p.slots[h].Parent = list.Nil
	return h
}
