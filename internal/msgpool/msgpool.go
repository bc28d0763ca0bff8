// Package msgpool implements the static pool of message records
// (§3, §4.1) and the inbox operations used by SEND/RECEIVE (§4.5).
package msgpool

import (
	"github.com/tinyrange/pandos/internal/kconst"
	"github.com/tinyrange/pandos/internal/list"
)

// Message is one message record (§3). Aux carries a service request's
// "pointer to more state" (e.g. CreateProcess's initial processor
// state and support handle) — this stand-in has no shared memory for
// a real pointer to address, so a boxed Go value fills the same role
// as §6's "arg is itself a pointer to a two-word struct" for services
// whose argument doesn't fit in one word. Plain messages leave it nil.
type Message struct {
	link    list.Node
	Sender  list.Handle // the sending PCB's handle
	Payload uint32
	Aux     any
}

// Pool is the static MAXMESSAGES-sized message arena.
type Pool struct {
	slots [kconst.MaxMessages + 1]Message
	free  *list.List
}

// New returns a Pool with every slot on the free list.
func New() *Pool {
	p := &Pool{}
	p.free = list.New(list.StoreFunc(p.linkOf))
	for i := kconst.MaxMessages; i >= 1; i-- {
		p.free.InsertHead(list.Handle(i))
	}
	return p
}

func (p *Pool) linkOf(h list.Handle) *list.Node { return &p.slots[h].link }

// NewInbox returns an empty inbox list backed by this pool.
func (p *Pool) NewInbox() list.List { return *list.New(list.StoreFunc(p.linkOf)) }

// Get returns the message for h.
func (p *Pool) Get(h list.Handle) *Message { return &p.slots[h] }

// Alloc returns a zeroed message from the free pool, or list.Nil if
// the pool is exhausted (the MSGNOGOOD condition, §4.5).
func (p *Pool) Alloc() list.Handle {
	h := p.free.RemoveHead()
	if h == list.Nil {
		return list.Nil
	}
	p.slots[h] = Message{}
	return h
}

// Free returns h to the free pool.
func (p *Pool) Free(h list.Handle) {
	p.free.InsertTail(h)
}

// Push prepends a message to inbox (pushMessage, §4.1).
func (p *Pool) Push(inbox *list.List, h list.Handle) {
	inbox.InsertHead(h)
}

// Insert appends a message to inbox (insertMessage, §4.1).
func (p *Pool) Insert(inbox *list.List, h list.Handle) {
	inbox.InsertTail(h)
}

// Pop scans inbox in order and removes+returns the first message
// matching filter: list.Nil (ANY) matches the head regardless of
// sender; any other handle matches only a message sent by that
// handle. Returns list.Nil if nothing matches.
//
// The scan does not check whether filter (or any message's Sender)
// still denotes a live PCB — a message from a sender that has since
// been freed is still delivered, matching the source's behavior
// (Open Question, §9; see DESIGN.md).
func (p *Pool) Pop(inbox *list.List, filter list.Handle) list.Handle {
	var match list.Handle
	if filter == list.Nil {
		match = inbox.Head()
	} else {
		match = inbox.Find(func(h list.Handle) bool {
			return p.slots[h].Sender == filter
		})
	}
	if match == list.Nil {
		return list.Nil
	}
	inbox.Remove(match)
	return match
}
