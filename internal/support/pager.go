package support

import (
	"github.com/tinyrange/pandos/internal/kconst"
	"github.com/tinyrange/pandos/internal/kernel"
	"github.com/tinyrange/pandos/internal/list"
	"github.com/tinyrange/pandos/internal/machine"
)

// SwapPool is the shared frame pool the pager swaps pages through
// (§4.10), grounded on vmManager.c's swap_pool/swap_t. Frames holds
// the pool's backing storage directly — there is no separate guest RAM
// in this stand-in, so a frame index doubles as the Flash device's
// "physical address" argument (wired as the ram callback passed to
// devices.NewFlash in cmd/pandos).
type SwapPool struct {
	Frames [kconst.PoolSize][kconst.PageSize]byte

	entries  [kconst.PoolSize]swapEntry
	next     int
	registry map[int]*Descriptor
}

type swapEntry struct {
	occupied bool
	asid     int
	vpn      int
}

// NewSwapPool returns an empty swap pool.
func NewSwapPool() *SwapPool {
	return &SwapPool{registry: make(map[int]*Descriptor)}
}

// RAM resolves a frame index to its backing bytes — the ram callback
// devices.NewFlash needs (§4.9's DoIO addressing).
func (sp *SwapPool) RAM(frame uint32) []byte { return sp.Frames[frame][:] }

// Register associates asid with its owning descriptor, so the pager
// can reach the victim's page table when it steals that ASID's frame.
func (sp *SwapPool) Register(asid int, d *Descriptor) { sp.registry[asid] = d }

// pickVictim returns the lowest-numbered free frame if one exists;
// otherwise it returns the FIFO pointer's current frame and advances
// it, matching getFrameFromSwapPool's "prefer any free frame, else
// round-robin" behavior exactly, including the source's one quirk:
// the FIFO pointer only advances on a true eviction, not a cache-miss
// scan hit.
func (sp *SwapPool) pickVictim() int {
	for i := range sp.entries {
		if !sp.entries[i].occupied {
			return i
		}
	}
	v := sp.next % kconst.PoolSize
	sp.next++
	return v
}

// Pager implements the page-fault handler (§4.10), driven one
// documented phase at a time: the driver calls these in sequence,
// interleaving SwapMutex's gain/release steps and Kernel.Schedule/Tick
// calls exactly the way kernel_test.go already drives deferred
// replies. There is no internal scheduling loop here — letting another
// process run while "inside" this PCB's fault handler would leave
// Kernel.current pointing at the wrong PCB, so every step that can
// block is surfaced explicitly instead.
type Pager struct {
	Pool  *SwapPool
	Mutex *SwapMutex
}

// NewPager returns a Pager over pool, guarded by mutex.
func NewPager(pool *SwapPool, mutex *SwapMutex) *Pager {
	return &Pager{Pool: pool, Mutex: mutex}
}

// HandleFault begins page-fault handling for self (§4.10 step 1): a
// TLB-Modification exception is always a program trap, never a real
// fault. Callers check this before driving the rest of the sequence.
func (p *Pager) HandleFault(d *Descriptor) (trap bool) {
	return d.ExceptionState[kernel.ExcPageFault].Cause.Code == machine.ExcTLBModified
}

// FaultingVPN extracts the missing page number from the saved
// page-fault state's EntryHi (§4.10 step 4).
func (p *Pager) FaultingVPN(d *Descriptor) int {
	vpn := int(d.ExceptionState[kernel.ExcPageFault].EntryHi)
	if vpn >= kconst.UserPageTableSize {
		vpn = kconst.UserPageTableSize - 1
	}
	return vpn
}

// NeedsSwapIn reports whether vpn is genuinely absent from memory
// (PTE invalid), meaning the full swap-in sequence (steps 2-7) must
// run, as opposed to a plain TLB-miss on an already-resident page —
// the latter only needs RefillTLB, the fast path a real TLB-refill
// exception vector would take instead of ever reaching the pager.
func (p *Pager) NeedsSwapIn(d *Descriptor, vpn int) bool {
	return !d.PageTable[vpn].Valid
}

// PickVictim selects the frame to use (§4.10 step 3) and reports
// whether it must first be evicted.
func (p *Pager) PickVictim() (frame int, needsEviction bool) {
	frame = p.Pool.pickVictim()
	return frame, p.Pool.entries[frame].occupied
}

// BeginEviction performs step 3a's atomic region: invalidate the
// victim's page-table entry and drop it from the TLB. Because this
// runs as one uninterrupted Go call with no Kernel.Schedule in
// between, no process switch can occur here — the atomicity contract
// (§4.10, §5) holds for free in this single-threaded model, unlike the
// source which must explicitly mask interrupts around it.
func (p *Pager) BeginEviction(k *kernel.Kernel, frame int) {
	e := &p.Pool.entries[frame]
	victim := p.Pool.registry[e.asid]
	if victim != nil {
		victim.PageTable[e.vpn].Valid = false
	}
	k.Machine.TLB.Clear(uint32(e.asid))
}

// IssueWriteback starts the DOIO that writes the victim frame back to
// its owning ASID's flash device (§4.10 step 3a) by writing the device
// registers directly and SENDing the SSI a DOIO request. The driver
// must Schedule (to let the SSI register the command and block self on
// the device), then Tick until the device completes, then Receive the
// status.
func (p *Pager) IssueWriteback(k *kernel.Kernel, self list.Handle, frame int) {
	e := &p.Pool.entries[frame]
	p.issueFlashIO(k, self, e.asid, e.vpn, frame, kconst.FlashWrite)
}

// IssueRead starts the DOIO that reads the faulting page from its
// flash device into frame (§4.10 step 4).
func (p *Pager) IssueRead(k *kernel.Kernel, self list.Handle, asid, vpn, frame int) {
	p.issueFlashIO(k, self, asid, vpn, frame, kconst.FlashRead)
}

func (p *Pager) issueFlashIO(k *kernel.Kernel, self list.Handle, asid, vpn, frame int, cmd uint32) {
	line, dev := kconst.DevLines-1, asid-1 // flash is wired onto the last line, one device per ASID
	regs := k.Bus.Registers(line, dev)
	regs.Data0 = uint32(vpn)
	regs.Data1 = uint32(frame)
	k.Send(self, k.SSI(), 0, kernel.Request{
		Service: kconst.ServiceDoIO,
		Aux:     kernel.DoIOArgs{Line: line, Device: dev, Command: cmd},
	})
}

// CollectIO receives the deferred DOIO reply (§4.10 steps 3a/4): ok is
// false if the status is not yet available and the driver must Tick
// and retry; status is the device's final status word once it is. A
// flash I/O error is unrecoverable (§7's error table: "Flash I/O error
// in pager | PANIC"), so it halts the machine here rather than being
// handed back to the caller to notice.
func (p *Pager) CollectIO(k *kernel.Kernel, self list.Handle) (status uint32, ok bool) {
	got, _, payload, _ := k.Receive(self, k.SSI())
	if got && payload == kconst.DeviceError {
		k.Machine.Panic("flash I/O error in pager")
	}
	return payload, got
}

// CommitFrame updates the swap-pool table and the new page's
// permission bits (§4.10 steps 5-6). d is the faulting process's own
// descriptor, vpn its missing page, frame the chosen (now loaded) frame.
func (p *Pager) CommitFrame(k *kernel.Kernel, d *Descriptor, asid, vpn, frame int) {
	p.Pool.entries[frame] = swapEntry{occupied: true, asid: asid, vpn: vpn}
	p.Pool.registry[asid] = d

	pte := &d.PageTable[vpn]
	pte.Valid = true
	pte.Dirty = true
	pte.Frame = uint32(frame)

	k.Machine.TLB.Write(machine.TLBEntry{
		ASID:  uint32(asid),
		VPN:   uint32(vpn),
		Frame: uint32(frame),
		Valid: true,
		Dirty: true,
	})
}

// Resume LDSTs back to the faulting state (§4.10 step 7's final LDST),
// once the mutex has been released by the caller.
func (p *Pager) Resume(k *kernel.Kernel, d *Descriptor) {
	state := d.ExceptionState[kernel.ExcPageFault]
	k.Machine.LDST(&state)
}

// RefillTLB is the TLB-miss shim (§4.10's "TLB refill shim"): locate
// the matching page-table entry by VPN in the current process's
// private page table and write it into the TLB, then resume. vpn comes
// from the saved page-fault state's EntryHi, the same way
// FaultingVPN reads it.
func (p *Pager) RefillTLB(k *kernel.Kernel, d *Descriptor) {
	vpn := p.FaultingVPN(d)
	pte := d.PageTable[vpn]
	k.Machine.TLB.Write(machine.TLBEntry{
		ASID:  uint32(d.ASID),
		VPN:   pte.VPN,
		Frame: pte.Frame,
		Valid: pte.Valid,
		Dirty: pte.Dirty,
	})
	state := d.ExceptionState[kernel.ExcPageFault]
	k.Machine.LDST(&state)
}
