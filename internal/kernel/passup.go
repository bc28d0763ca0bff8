package kernel

import (
	"github.com/tinyrange/pandos/internal/list"
	"github.com/tinyrange/pandos/internal/machine"
)

// PassUpOrDie implements §4.8: a process with no support descriptor is
// terminated along with its subtree; one with support has its saved
// state copied into the matching exception slot and control transferred
// into the support layer's handler context.
func (k *Kernel) PassUpOrDie(h list.Handle, kind ExceptionKind, state machine.ProcessorState) Outcome {
	pcb := k.PCBs.Get(h)
	if pcb.Support == list.Nil || k.Support == nil {
		k.Terminate(h)
		return k.Schedule()
	}
	k.Support.SaveExceptionState(pcb.Support, kind, state)
	ctx := k.Support.ExceptionContext(pcb.Support, kind)
	k.Machine.LDST(&ctx)
	return OutcomeRunning
}
