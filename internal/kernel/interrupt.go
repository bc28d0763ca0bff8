package kernel

import (
	"time"

	"github.com/tinyrange/pandos/internal/kconst"
	"github.com/tinyrange/pandos/internal/list"
)

// Tick advances the PLT, pseudoclock, and device bus by elapsed and
// services whatever fires, in the fixed order PLT, pseudoclock,
// device lines low-to-high, subdevices low-to-high (§4.6's ordering
// guarantee). The driver calls this once per simulated time step; a
// real trap vector would instead re-enter here on every interrupt.
func (k *Kernel) Tick(elapsed time.Duration) Outcome {
	k.Bus.Tick(elapsed)

	if k.Machine.PLT.Tick(elapsed) {
		k.handlePLT()
	}
	if k.Machine.Clock.Tick(elapsed) {
		k.handlePseudoClock()
	}
	for line := 0; line < kconst.DevLines; line++ {
		for {
			dev, ok := k.Bus.Pending(line)
			if !ok {
				break
			}
			k.handleDevice(line, dev)
			k.Bus.Ack(line, dev)
		}
	}

	if k.current != list.Nil {
		k.Machine.LDST(&k.PCBs.Get(k.current).State)
		return OutcomeRunning
	}
	return k.Schedule()
}

// handlePLT preempts the running process, the only preemption the
// nucleus performs (§4.3, §4.6): requeue at the tail and let Tick's
// caller fall through to Schedule.
func (k *Kernel) handlePLT() {
	if k.current == list.Nil {
		return
	}
	h := k.current
	k.Charge(h, k.timeSlice)
	k.ready.InsertTail(h)
	k.current = list.Nil
}

// handlePseudoClock wakes every pseudoclock waiter with an empty
// message from the SSI (§4.6).
func (k *Kernel) handlePseudoClock() {
	for {
		h := k.pseudo.RemoveHead()
		if h == list.Nil {
			break
		}
		k.softBlockCount--
		k.Send(k.ssi, h, 0, nil)
	}
}

// handleDevice wakes the single waiter for (line, dev), if any, with
// the device's final status word as payload (§4.6). Reusing Send to
// deliver means a waiter that has not yet called Receive(ssi) simply
// finds the message queued in its inbox instead of losing the wakeup.
func (k *Kernel) handleDevice(line, dev int) {
	waiter := k.blocked[line][dev].RemoveHead()
	if waiter == list.Nil {
		return
	}
	k.softBlockCount--
	status := k.Bus.Registers(line, dev).Status
	k.Send(k.ssi, waiter, status, nil)
}
