package support

import (
	"fmt"

	"github.com/tinyrange/pandos/internal/kconst"
)

// Allocator hands out unique ASIDs in [MinASID, MaxASID] (§3's "ASID
// (1..8)"), grounded on stdlib.c's getASID with its off-by-one bug
// fixed: the source panics on the 8th call (`next_asid >= 8` trips
// before the 8th ASID, 8, is ever handed out — see DESIGN.md), capping
// the system at 7 usable user processes despite UPROCMAX being 8. This
// allocator hands out the full range and reports exhaustion only once
// it is actually exhausted.
type Allocator struct {
	next int
}

// NewAllocator returns an Allocator starting at MinASID.
func NewAllocator() *Allocator { return &Allocator{next: kconst.MinASID} }

// Alloc returns the next ASID, or an error once every ASID up to
// MaxASID is in use.
func (a *Allocator) Alloc() (int, error) {
	if a.next > kconst.MaxASID {
		return 0, fmt.Errorf("support: no ASIDs available (max %d)", kconst.MaxASID)
	}
	id := a.next
	a.next++
	return id, nil
}
