package support

import (
	"github.com/tinyrange/pandos/internal/kconst"
	"github.com/tinyrange/pandos/internal/kernel"
	"github.com/tinyrange/pandos/internal/list"
	"github.com/tinyrange/pandos/internal/machine"
)

// translate resolves a1's raw register value to a PCB handle,
// translating the PARENT sentinel to the caller's SST (§4.9).
func (d *Descriptor) translate(raw uint64) list.Handle {
	if int64(raw) == int64(kconst.ParentSentinel) {
		return d.Parent
	}
	return list.Handle(raw)
}

// resume writes a0/a2, advances past the ecall, and LDSTs — the
// "after handling, the PC is advanced past the user ecall and the
// saved state is reloaded" step common to every USEND/URECEIVE path
// (§4.9).
func (d *Descriptor) resume(k *kernel.Kernel, a0, a2 uint64) {
	state := &d.ExceptionState[kernel.ExcGeneral]
	state.Regs[machine.RegA0] = a0
	state.Regs[machine.RegA2] = a2
	state.PC += 4
	k.Machine.LDST(state)
}

// HandleGeneralException is the support general-exception handler
// (§4.9): it inspects the saved GENERAL exception state pass-up-or-die
// populated, and for a0 ∈ {USEND, URECEIVE} performs the corresponding
// kernel SEND/RECEIVE on self's behalf. Any other cause is a program
// trap. self is the PCB this descriptor belongs to — the same handle
// SEND/RECEIVE already use as sender/receiver.
//
// A URECEIVE that cannot complete immediately returns Schedule's
// outcome without resuming self: self's PCB sits blocked the same way
// any kernel-level RECEIVE blocks (§4.5). Once the eventual sender's
// message is available — the driver will see this via a later
// Kernel.Receive(self, ...) succeeding — call CompleteReceive to finish
// the wrapper (write a0/a2, advance PC, LDST), mirroring the two-step
// pattern kernel_test.go already uses for a deferred CLOCKWAIT reply;
// there is no hidden automatic resumption to reason about.
func (d *Descriptor) HandleGeneralException(k *kernel.Kernel, self list.Handle, mutex *SwapMutex) kernel.Outcome {
	state := d.ExceptionState[kernel.ExcGeneral]
	a0 := int64(state.Regs[machine.RegA0])

	switch a0 {
	case kconst.USend:
		dest := d.translate(state.Regs[machine.RegA1])
		payload := uint32(state.Regs[machine.RegA2])
		code := k.Send(self, dest, payload, nil)
		d.resume(k, uint64(int64(code)), 0)
		return kernel.OutcomeRunning
	case kconst.UReceive:
		filter := d.translate(state.Regs[machine.RegA1])
		ok, sender, payload, _ := k.Receive(self, filter)
		if !ok {
			return k.Schedule()
		}
		d.CompleteReceive(k, sender, payload)
		return kernel.OutcomeRunning
	default:
		return d.programTrap(k, self, mutex)
	}
}

// CompleteReceive finishes a URECEIVE that blocked in
// HandleGeneralException, once the driver has observed it unblock.
func (d *Descriptor) CompleteReceive(k *kernel.Kernel, sender list.Handle, payload uint32) {
	d.resume(k, uint64(sender), uint64(payload))
}

// programTrap is any general exception that is not a recognized
// syscall wrapper request (§4.9): release the swap mutex if self holds
// it, then request TERMPROCESS(self) from the SSI. There is no reply
// to wait for — serviceTermProcess replies before destroying the
// target, and the target here is self, so the reply is simply dropped
// along with the rest of self's inbox when Terminate frees it.
func (d *Descriptor) programTrap(k *kernel.Kernel, self list.Handle, mutex *SwapMutex) kernel.Outcome {
	if mutex != nil && mutex.Held() == self {
		mutex.Release(k, self)
	}
	k.Send(self, k.SSI(), 0, kernel.Request{Service: kconst.ServiceTermProcess, Arg: 0})
	return k.Schedule()
}
