// Package kernel implements the nucleus (§2 L2, §4.2-§4.8): PCB/message
// allocation is delegated to pcbpool/msgpool, and this package adds the
// ready queue, blocked lists, pseudoclock list, the exception
// dispatcher, the scheduler, SEND/RECEIVE, the SSI's service loop, and
// pass-up-or-die. Kernel is a plain Go value driven by ordinary method
// calls — see SPEC_FULL.md §5: there is no goroutine standing in for
// a process, blocking is PCB state, and a test "program" is just a
// sequence of Kernel method calls in the order the process would have
// issued the corresponding syscalls.
package kernel

import (
	"log/slog"
	"time"

	"github.com/tinyrange/pandos/internal/chipset"
	"github.com/tinyrange/pandos/internal/kconst"
	"github.com/tinyrange/pandos/internal/list"
	"github.com/tinyrange/pandos/internal/machine"
	"github.com/tinyrange/pandos/internal/msgpool"
	"github.com/tinyrange/pandos/internal/pcbpool"
)

// ExceptionKind distinguishes the two pass-up contexts a support
// descriptor holds (§4.8, §3).
type ExceptionKind int

const (
	ExcPageFault ExceptionKind = iota
	ExcGeneral
)

// SupportHooks is the support layer's half of pass-up-or-die (§4.8).
// Kernel depends on this interface, not on internal/support directly,
// so the support layer can import kernel without a cycle.
type SupportHooks interface {
	SaveExceptionState(support list.Handle, kind ExceptionKind, state machine.ProcessorState)
	ExceptionContext(support list.Handle, kind ExceptionKind) machine.ProcessorState
}

// Kernel holds every piece of nucleus global state named in §3's
// "Global nucleus state".
type Kernel struct {
	log *slog.Logger

	PCBs    *pcbpool.Pool
	Msgs    *msgpool.Pool
	Machine *machine.Machine
	Bus     *chipset.Bus
	Support SupportHooks

	ready   *list.List
	blocked [kconst.DevLines][kconst.DevPerLine]*list.List
	pseudo  *list.List

	current list.Handle
	ssi     list.Handle

	// servers holds the handles of PCBs that never really run: the SSI
	// and (once internal/support registers it) the swap-mutex
	// controller. Schedule calls the registered loop synchronously in
	// place of dispatching these as ordinary processes (§5's
	// implementation note) — a generalization of the SSI special case
	// so the support layer's own synchronous service loops can reuse it.
	servers map[list.Handle]func()

	// pending holds a message handed directly to a receiver already
	// blocked in Receive, realizing §4.5's "hand the message to dest"
	// fast path without threading it through the dest's inbox.
	pending map[list.Handle]list.Handle

	processCount   int
	softBlockCount int

	// permanent counts the server processes (the SSI, and any the
	// support layer registers, e.g. the swap-mutex controller) that are
	// never scheduled to real user code and never terminate. HALT (§4.3)
	// means only these are left, not literally processCount==1 — that
	// held only as long as the SSI was the sole permanent process.
	permanent int

	// timeSlice and pseudoClockPeriod default to kconst's fixed values
	// but may be overridden by internal/config's boot configuration
	// (through SetTiming), so cmd/pandos can run a faster or
	// slower simulated clock without recompiling.
	timeSlice         time.Duration
	pseudoClockPeriod time.Duration
}

// New returns a Kernel wired to mach and bus. msgs/pcbs are created
// internally since nothing outside the kernel package should mutate
// the pools directly.
func New(mach *machine.Machine, bus *chipset.Bus, log *slog.Logger) *Kernel {
	if log == nil {
		log = slog.Default()
	}
	msgs := msgpool.New()
	pcbs := pcbpool.New(msgs)
	k := &Kernel{
		log:               log,
		PCBs:              pcbs,
		Msgs:              msgs,
		Machine:           mach,
		Bus:               bus,
		pending:           make(map[list.Handle]list.Handle),
		servers:           make(map[list.Handle]func()),
		timeSlice:         kconst.TimeSlice,
		pseudoClockPeriod: kconst.PseudoClockPeriod,
	}
	k.ready = pcbs.NewQueue()
	k.pseudo = pcbs.NewQueue()
	for l := 0; l < kconst.DevLines; l++ {
		for d := 0; d < kconst.DevPerLine; d++ {
			k.blocked[l][d] = pcbs.NewQueue()
		}
	}
	return k
}

// Boot performs nucleus initialization (§4.2): populate the pools
// (done by New), zero the globals (done by New), arm the pseudoclock,
// and construct the SSI PCB, privileged with interrupts enabled.
func (k *Kernel) Boot() {
	k.Machine.Clock.Load(k.pseudoClockPeriod)
	k.ssi = k.PCBs.Alloc()
	ssi := k.PCBs.Get(k.ssi)
	ssi.State.Status = machine.StatusPrivileged | machine.StatusInterruptsEnabled
	k.ready.InsertTail(k.ssi)
	k.processCount = 1
	k.RegisterServer(k.ssi, k.runSSI)
	k.MarkPermanent(k.ssi)
	k.log.Info("nucleus booted", "ssi", k.ssi)
}

// SSI returns the distinguished SSI process's handle.
func (k *Kernel) SSI() list.Handle { return k.ssi }

// SetTiming overrides the PLT quantum and pseudoclock period New set
// to the kconst defaults. Call before Boot; internal/config's loaded
// Boot.TimeSlice()/PseudoClockPeriod() are its intended callers. Zero
// durations are ignored, leaving the current value in place.
func (k *Kernel) SetTiming(timeSlice, pseudoClockPeriod time.Duration) {
	if timeSlice > 0 {
		k.timeSlice = timeSlice
	}
	if pseudoClockPeriod > 0 {
		k.pseudoClockPeriod = pseudoClockPeriod
	}
}

// RegisterServer marks h as a synchronous service loop rather than an
// ordinary schedulable process: when Schedule dequeues h it calls loop
// directly instead of dispatching it. internal/support uses this for
// the swap-mutex controller (§4.10), the same way Boot uses it for the
// SSI (§4.7). Every registered server's PCB was already counted by
// Spawn (or, for the SSI, Boot's manual processCount=1); MarkPermanent
// excludes it from the HALT condition.
func (k *Kernel) RegisterServer(h list.Handle, loop func()) { k.servers[h] = loop }

// MarkPermanent records h as infrastructure that should never count
// toward "only the permanent processes are left" for HALT (§4.3).
func (k *Kernel) MarkPermanent(h list.Handle) { k.permanent++ }

// Current returns the running PCB's handle, or list.Nil if none.
func (k *Kernel) Current() list.Handle { return k.current }

// ProcessCount and SoftBlockCount expose the invariants §8 checks.
func (k *Kernel) ProcessCount() int   { return k.processCount }
func (k *Kernel) SoftBlockCount() int { return k.softBlockCount }

// Spawn allocates a new PCB, makes it a child of parent (list.Nil for
// none), attaches an optional support descriptor, and enqueues it
// ready to run. This is CreateProcess's (§4.7) mechanism, also used
// directly by boot code to create the first application process.
func (k *Kernel) Spawn(parent list.Handle, state machine.ProcessorState, support list.Handle) (list.Handle, bool) {
	h := k.PCBs.Alloc()
	if h == list.Nil {
		return list.Nil, false
	}
	pcb := k.PCBs.Get(h)
	pcb.State = state
	pcb.Support = support
	if parent != list.Nil {
		k.PCBs.InsertChild(parent, h)
	}
	k.ready.InsertTail(h)
	k.processCount++
	return h, true
}

// Charge accrues d into h's CPU-time accounting (§4.3). Callers charge
// whatever burst of simulated execution a process ran for between
// kernel entries — there is no real ISA interpreter to time
// automatically. h need not be k.current: GETCPUTIME charges the
// requesting sender, which is no longer current once its SSI call has
// blocked it.
func (k *Kernel) Charge(h list.Handle, d machine.Elapsed) {
	if h == list.Nil {
		return
	}
	k.PCBs.Get(h).Time += d
}

// Terminate recursively destroys h and its entire subtree (§4.7's
// TERMPROCESS, §4.8's pass-up-to-no-support path, §7's transitivity
// guarantee).
func (k *Kernel) Terminate(h list.Handle) {
	for {
		child := k.PCBs.RemoveFirstChild(h)
		if child == list.Nil {
			break
		}
		k.Terminate(child)
	}
	k.removeFromAnyList(h)
	k.freeInbox(h)
	k.PCBs.DetachFromParent(h)
	k.PCBs.Free(h)
	k.processCount--
}

func (k *Kernel) removeFromAnyList(h list.Handle) {
	if k.current == h {
		k.current = list.Nil
	}
	delete(k.pending, h)
	if k.ready.Remove(h) != list.Nil {
		return
	}
	for l := range k.blocked {
		for d := range k.blocked[l] {
			if k.blocked[l][d].Remove(h) != list.Nil {
				k.softBlockCount--
				return
			}
		}
	}
	if k.pseudo.Remove(h) != list.Nil {
		k.softBlockCount--
		return
	}
	// Otherwise h was blocked-on-receive (ReceiveWaiting, no list
	// membership) or not scheduled at all; nothing further to unlink.
}

func (k *Kernel) freeInbox(h list.Handle) {
	pcb := k.PCBs.Get(h)
	for {
		m := pcb.Inbox.RemoveHead()
		if m == list.Nil {
			break
		}
		k.Msgs.Free(m)
	}
}
