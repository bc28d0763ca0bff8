package kernel

import "github.com/tinyrange/pandos/internal/machine"

// Dispatch demultiplexes one exception entry for the current process
// (§4.4), for the two trap classes that are not already plain method
// calls: device/timer interrupts and TLB/general traps. Kernel-level
// SEND and RECEIVE (§4.5) are exposed directly as Kernel.Send/Receive
// rather than routed through Dispatch: since there is no real ISA to
// decode a0/a1/a2 out of, a privileged ecall *is* a call to Send or
// Receive, made by whichever Go code is standing in for the process
// that issued it (the SSI, the support layer, or a test driver).
//
// cause and state are what the (absent) trap vector would have read
// from the BIOS data page; cmd/pandos and tests construct them
// directly for the scenario being driven.
func (k *Kernel) Dispatch(cause machine.Cause, state machine.ProcessorState) Outcome {
	if cause.Interrupt {
		return k.Tick(0)
	}

	h := k.current
	switch cause.Code {
	case machine.ExcIllegalInstruction:
		// User-mode attempted a privileged ecall: forced trap, §4.4.
		return k.PassUpOrDie(h, ExcGeneral, state)
	case machine.ExcTLBInvalid, machine.ExcTLBModified:
		return k.PassUpOrDie(h, ExcPageFault, state)
	default:
		return k.PassUpOrDie(h, ExcGeneral, state)
	}
}
