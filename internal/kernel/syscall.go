package kernel

import (
	"github.com/tinyrange/pandos/internal/kconst"
	"github.com/tinyrange/pandos/internal/list"
)

// Send implements SEND (§4.5). aux stands in for a request argument
// too large for one payload word (see msgpool.Message.Aux); ordinary
// sends pass nil.
func (k *Kernel) Send(sender, dest list.Handle, payload uint32, aux any) int {
	if dest == list.Nil || !k.PCBs.Allocated(dest) {
		return kconst.DestNotExist
	}

	m := k.Msgs.Alloc()
	if m == list.Nil {
		return kconst.MsgNoGood
	}
	msg := k.Msgs.Get(m)
	msg.Sender = sender
	msg.Payload = payload
	msg.Aux = aux

	destPCB := k.PCBs.Get(dest)
	if destPCB.ReceiveWaiting && (destPCB.ReceiveFilter == list.Nil || destPCB.ReceiveFilter == sender) {
		destPCB.ReceiveWaiting = false
		destPCB.ReceiveFilter = list.Nil
		k.pending[dest] = m
		k.ready.InsertTail(dest)
	} else {
		k.Msgs.Insert(&destPCB.Inbox, m)
	}
	return kconst.OK
}

// Receive implements RECEIVE (§4.5). On a match it returns
// immediately; the sender's does not lose its quantum and neither
// does the caller. On no match, caller blocks (ReceiveWaiting) and
// the driver must call Schedule next — current_process becomes NONE.
func (k *Kernel) Receive(caller, filter list.Handle) (ok bool, sender list.Handle, payload uint32, aux any) {
	if m, have := k.pending[caller]; have {
		delete(k.pending, caller)
		return k.consume(m)
	}

	pcb := k.PCBs.Get(caller)
	if m := k.Msgs.Pop(&pcb.Inbox, filter); m != list.Nil {
		return k.consume(m)
	}

	pcb.ReceiveFilter = filter
	pcb.ReceiveWaiting = true
	if k.current == caller {
		k.current = list.Nil
	}
	return false, list.Nil, 0, nil
}

func (k *Kernel) consume(m list.Handle) (bool, list.Handle, uint32, any) {
	msg := k.Msgs.Get(m)
	sender, payload, aux := msg.Sender, msg.Payload, msg.Aux
	k.Msgs.Free(m)
	return true, sender, payload, aux
}
