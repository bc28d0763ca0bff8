package kernel

import (
	"github.com/tinyrange/pandos/internal/list"
	"github.com/tinyrange/pandos/internal/machine"
)

// Outcome reports what the scheduler did (§4.3).
type Outcome int

const (
	// OutcomeRunning means a process is now current and loaded (LDST);
	// the driver should resume simulating that process.
	OutcomeRunning Outcome = iota
	// OutcomeHalt means the machine executed HALT: normal shutdown.
	OutcomeHalt
	// OutcomeWait means the machine executed WAIT: idle until the next interrupt.
	OutcomeWait
	// OutcomePanic means the machine executed PANIC: deadlock or a fatal device error.
	OutcomePanic
)

// Schedule implements the scheduler's contract (§4.3). The SSI (and,
// once registered, the support layer's swap-mutex controller) is not
// real user code (§5's implementation note): when one reaches the head
// of the ready queue, the kernel runs its service loop synchronously
// in place of dispatching it, then loops to find the next process to
// actually hand control to.
func (k *Kernel) Schedule() Outcome {
	for {
		h := k.ready.RemoveHead()
		if h == list.Nil {
			return k.idle()
		}
		if loop, ok := k.servers[h]; ok {
			k.current = h
			loop()
			continue
		}
		k.current = h
		k.Machine.PLT.Set(k.timeSlice)
		k.Machine.LDST(&k.PCBs.Get(h).State)
		return OutcomeRunning
	}
}

func (k *Kernel) idle() Outcome {
	switch {
	case k.processCount == k.permanent:
		k.Machine.Halt()
		return OutcomeHalt
	case k.softBlockCount > 0:
		k.Machine.SetStatus(machine.StatusInterruptsEnabled)
		k.Machine.PLT.Stop()
		k.Machine.Wait()
		return OutcomeWait
	default:
		k.Machine.Panic("deadlock: no ready process and nothing soft-blocked")
		return OutcomePanic
	}
}
