package support

import (
	"github.com/tinyrange/pandos/internal/kconst"
	"github.com/tinyrange/pandos/internal/kernel"
	"github.com/tinyrange/pandos/internal/list"
	"github.com/tinyrange/pandos/internal/machine"
)

// SwapMutex is the swap pool's single controller process (§4.10),
// grounded on vmManager.c's entrySwapFunction: a client SENDs an empty
// message to request entry, the controller RECEIVEs and grants it back
// with a SEND, the client's critical section runs, and the client
// SENDs again on exit to release. The controller never runs as real
// code — like the SSI, it is registered with Kernel.RegisterServer and
// driven synchronously whenever it reaches the head of the ready
// queue. FIFO fairness falls out of the message queue itself: other
// requesters queue behind the held client and are only popped once the
// release arrives.
type SwapMutex struct {
	controller list.Handle
	held       list.Handle
}

// NewSwapMutex spawns the controller PCB and registers its service
// loop with k.
func NewSwapMutex(k *kernel.Kernel) *SwapMutex {
	h, _ := k.Spawn(list.Nil, machine.ProcessorState{}, list.Nil)
	m := &SwapMutex{controller: h}
	k.RegisterServer(h, func() { m.run(k) })
	k.MarkPermanent(h)
	return m
}

// Handle returns the controller PCB's handle.
func (m *SwapMutex) Handle() list.Handle { return m.controller }

// Held reports which PCB currently holds the mutex, or list.Nil.
func (m *SwapMutex) Held() list.Handle { return m.held }

// run is the controller's service loop (§4.10): grant the mutex to the
// next FIFO requester, then wait for that specific holder's release,
// and repeat — the protocol's state (who currently holds the mutex)
// survives across the call boundary via m.held, the same way runSSI's
// dispatch loop survives across RECEIVE calls that return immediately.
// Like runSSI, this keeps going until a RECEIVE genuinely blocks, so a
// grant or release that was already queued when the controller is
// dispatched gets drained in the same call instead of stranding the
// controller parked with no way back into the ready queue.
func (m *SwapMutex) run(k *kernel.Kernel) {
	for {
		if m.held == list.Nil {
			ok, sender, _, _ := k.Receive(m.controller, kconst.AnySender)
			if !ok {
				return
			}
			m.held = sender
			k.Send(m.controller, sender, kconst.OK, nil)
			continue
		}
		ok, _, _, _ := k.Receive(m.controller, m.held)
		if !ok {
			return
		}
		m.held = list.Nil
	}
}

// RequestGain sends the entry request (gainSwapMutex's first half).
// The driver must let the controller run (Schedule) and then poll
// TryGain before entering the critical section.
func (m *SwapMutex) RequestGain(k *kernel.Kernel, self list.Handle) {
	k.Send(self, m.controller, kconst.OK, nil)
}

// TryGain reports whether the controller has granted self entry yet.
func (m *SwapMutex) TryGain(k *kernel.Kernel, self list.Handle) bool {
	ok, _, _, _ := k.Receive(self, m.controller)
	return ok
}

// Release signals the controller that self's critical section is over
// (releaseSwapMutex): a fire-and-forget SEND, no reply expected.
func (m *SwapMutex) Release(k *kernel.Kernel, self list.Handle) {
	k.Send(self, m.controller, kconst.OK, nil)
}
