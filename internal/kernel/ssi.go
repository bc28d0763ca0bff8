package kernel

import (
	"github.com/tinyrange/pandos/internal/kconst"
	"github.com/tinyrange/pandos/internal/list"
	"github.com/tinyrange/pandos/internal/machine"
)

// Request is the SSI's {service_code, arg} struct (§6). Aux carries
// a service's larger argument (CreateProcess's initial state and
// support handle, DoIO's target register) the same way Message.Aux
// does — see msgpool.Message's doc comment.
type Request struct {
	Service int
	Arg     uint32
	Aux     any
}

// CreateArgs is CreateProcess's Aux payload.
type CreateArgs struct {
	State   machine.ProcessorState
	Support list.Handle
}

// DoIOArgs is DoIO's Aux payload: the bus slot to command and the
// value to write into its command register.
type DoIOArgs struct {
	Line, Device int
	Command      uint32
}

// Reply is what the SSI sends back, when it replies immediately.
type Reply struct {
	Code uint32
	Aux  any
}

// runSSI is the SSI's service loop (§4.7): RECEIVE(ANY), dispatch,
// SEND(sender, result), repeat until it would block. The kernel calls
// this synchronously in place of dispatching the SSI as a schedulable
// process (§5's implementation note): the SSI never gets to "run"
// independently, its entire body executes inline whenever a request
// is pending.
func (k *Kernel) runSSI() {
	for {
		ok, sender, _, aux := k.Receive(k.ssi, kconst.AnySender)
		if !ok {
			return
		}
		req, _ := aux.(Request)
		reply, deferred := k.dispatchService(sender, req)
		if !deferred {
			k.Send(k.ssi, sender, reply.Code, reply.Aux)
		}
	}
}

func (k *Kernel) dispatchService(sender list.Handle, req Request) (Reply, bool) {
	switch req.Service {
	case kconst.ServiceCreateProcess:
		return k.serviceCreateProcess(sender, req)
	case kconst.ServiceTermProcess:
		return k.serviceTermProcess(sender, req)
	case kconst.ServiceDoIO:
		return k.serviceDoIO(sender, req)
	case kconst.ServiceGetCPUTime:
		// Accrue the partial quantum sender has run since its last
		// dispatch before reading Time (§4.3): the PLT is still counting
		// down sender's own slice here, since blocking into this SSI call
		// didn't re-arm it the way a fresh dispatch would.
		k.Charge(sender, k.timeSlice-k.Machine.PLT.Remaining())
		return Reply{Code: uint32(k.PCBs.Get(sender).Time.Microseconds())}, false
	case kconst.ServiceClockWait:
		k.pseudo.InsertTail(sender)
		k.softBlockCount++
		return Reply{}, true
	case kconst.ServiceGetSupportPtr:
		return Reply{Code: uint32(k.PCBs.Get(sender).Support)}, false
	case kconst.ServiceGetProcessID:
		return k.serviceGetProcessID(sender, req)
	default:
		k.Terminate(sender)
		return Reply{}, true
	}
}

func (k *Kernel) serviceCreateProcess(sender list.Handle, req Request) (Reply, bool) {
	args, _ := req.Aux.(CreateArgs)
	h, ok := k.Spawn(sender, args.State, args.Support)
	if !ok {
		code := int32(kconst.ErrPoolFull)
		return Reply{Code: uint32(code)}, false
	}
	return Reply{Code: uint32(h), Aux: h}, false
}

// serviceTermProcess implements TERMPROCESS (§4.7): arg 0 means
// "terminate the caller". The reply is sent before the target is
// destroyed, matching the source's self-termination ordering (the
// caller may be the target): once a reply is queued, freeing the
// target's inbox during termination simply drops the now-undeliverable
// copy, which is harmless since nothing will ever schedule it again.
func (k *Kernel) serviceTermProcess(sender list.Handle, req Request) (Reply, bool) {
	target := sender
	if req.Arg != 0 {
		target = list.Handle(req.Arg)
	}
	k.Send(k.ssi, sender, kconst.OK, nil)
	k.Terminate(target)
	return Reply{}, true
}

func (k *Kernel) serviceDoIO(sender list.Handle, req Request) (Reply, bool) {
	args, _ := req.Aux.(DoIOArgs)
	_ = k.Bus.Command(args.Line, args.Device, args.Command)
	k.blocked[args.Line][args.Device].InsertTail(sender)
	k.softBlockCount++
	return Reply{}, true
}

func (k *Kernel) serviceGetProcessID(sender list.Handle, req Request) (Reply, bool) {
	if req.Arg == 0 {
		return Reply{Code: uint32(k.PCBs.Get(sender).PID)}, false
	}
	parent := k.PCBs.Get(sender).Parent
	if parent == list.Nil {
		return Reply{Code: 0}, false
	}
	return Reply{Code: uint32(k.PCBs.Get(parent).PID)}, false
}
