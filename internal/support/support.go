// Package support implements the support layer (§4.9, §4.10): per-user
// Support descriptors, the ASID allocator, the USEND/URECEIVE syscall
// wrapper, and the swap-pool pager. It implements kernel.SupportHooks
// so internal/kernel can pass control up to it on TLB/general traps
// without importing this package (avoiding an import cycle), grounded
// on original_source/phase3/{stdlib.c,sysSupport.c,vmManager.c}.
package support

import (
	"github.com/tinyrange/pandos/internal/kconst"
	"github.com/tinyrange/pandos/internal/kernel"
	"github.com/tinyrange/pandos/internal/list"
	"github.com/tinyrange/pandos/internal/machine"
)

// PTE is one private page-table entry (§3, §4.10): a virtual page
// mapped to a physical frame, with the permission bits the pager
// flips. Structured the same way as machine.TLBEntry rather than a
// bit-packed entryHI/entryLO word, matching this repo's existing
// choice to expose booleans instead of reimplementing CP0 bit layout.
type PTE struct {
	VPN   uint32
	Frame uint32
	Valid bool
	Dirty bool
}

// Descriptor is one process's Support Structure (§3): its ASID, a
// private page table, the saved exception state/context pairs pass-up-
// or-die copies into and resumes from, and the handle of its
// controlling process (its SST) for PARENT-sentinel translation (§4.9).
type Descriptor struct {
	ASID      int
	PageTable [kconst.UserPageTableSize]PTE
	Parent    list.Handle

	ExceptionState   [2]machine.ProcessorState
	exceptionContext [2]machine.ProcessorState
}

// NewDescriptor returns a Descriptor for asid, with its page table
// initialized the way initUprocPageTable does: every entry's VPN
// mirrors its index (so EntryHi-style VPN lookups are trivial) and the
// stack page (the last entry) is pinned to the fixed user stack VPN.
func NewDescriptor(asid int, parent list.Handle) *Descriptor {
	d := &Descriptor{ASID: asid, Parent: parent}
	for i := range d.PageTable {
		d.PageTable[i].VPN = uint32(i)
	}
	d.PageTable[kconst.UserPageTableSize-1].VPN = stackVPN
	return d
}

// stackVPN is the fixed virtual page number backing every user
// process's stack (the source's 0xbffff page), pinned separately from
// the otherwise-sequential VPN assignment initUprocPageTable performs.
const stackVPN = 0xbffff

// ExceptionContext backs Hooks.ExceptionContext (kernel.SupportHooks):
// it returns the already-initialized resume point for kind (the pager's
// or the general-exception handler's entry, set up once at process
// creation by SetExceptionContext), the way defaultSupportData wires
// sup_exceptContext.
func (d *Descriptor) ExceptionContext(kind kernel.ExceptionKind) machine.ProcessorState {
	return d.exceptionContext[kind]
}

// SaveExceptionState backs Hooks.SaveExceptionState (kernel.SupportHooks): pass-up-or-die
// copies the faulting state here before transferring control to
// ExceptionContext(kind) (§4.8).
func (d *Descriptor) SaveExceptionState(kind kernel.ExceptionKind, state machine.ProcessorState) {
	d.ExceptionState[kind] = state
}

// SetExceptionContext installs the resume point pass-up-or-die LDSTs
// into for kind — the support layer's boot-time equivalent of
// defaultSupportData's sup_exceptContext initialization.
func (d *Descriptor) SetExceptionContext(kind kernel.ExceptionKind, ctx machine.ProcessorState) {
	d.exceptionContext[kind] = ctx
}

// Hooks adapts a Pool to kernel.SupportHooks: Kernel holds one Hooks
// for every support descriptor it might pass up to, addressed by the
// same list.Handle PCB.Support stores.
type Hooks struct {
	Pool *Pool
}

func (h Hooks) SaveExceptionState(support list.Handle, kind kernel.ExceptionKind, state machine.ProcessorState) {
	h.Pool.Get(support).SaveExceptionState(kind, state)
}

func (h Hooks) ExceptionContext(support list.Handle, kind kernel.ExceptionKind) machine.ProcessorState {
	return h.Pool.Get(support).ExceptionContext(kind)
}
