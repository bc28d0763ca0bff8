package support

import (
	"fmt"

	"github.com/tinyrange/pandos/internal/kconst"
	"github.com/tinyrange/pandos/internal/list"
)

// Pool is the static UPROCMAX-sized arena of Support descriptors,
// addressed by the same list.Handle space PCB.Support stores (§3).
// Unlike pcbpool/msgpool, descriptors are fixed-identity once created
// (an ASID is never recycled mid-run, per the ASID exhaustion decision
// in DESIGN.md), so Pool has no free list — just a bump allocator
// bounded by UprocMax.
type Pool struct {
	slots [kconst.UprocMax + 1]Descriptor
	next  list.Handle
	asids *Allocator
}

// NewPool returns an empty Pool.
func NewPool() *Pool {
	return &Pool{next: 1, asids: NewAllocator()}
}

// Get returns the descriptor for h.
func (p *Pool) Get(h list.Handle) *Descriptor { return &p.slots[h] }

// Alloc assigns the next ASID and returns a fresh descriptor's handle,
// or an error once every ASID in [MinASID, MaxASID] is in use (the
// exhaustion fix recorded in DESIGN.md).
func (p *Pool) Alloc(parent list.Handle) (list.Handle, error) {
	asid, err := p.asids.Alloc()
	if err != nil {
		return list.Nil, err
	}
	if int(p.next) > kconst.UprocMax {
		return list.Nil, fmt.Errorf("support: descriptor pool exhausted (max %d)", kconst.UprocMax)
	}
	h := p.next
	p.next++
	p.slots[h] = *NewDescriptor(asid, parent)
	return h, nil
}
