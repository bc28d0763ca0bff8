package kernel

import (
	"testing"

	"github.com/tinyrange/pandos/internal/kconst"
	"github.com/tinyrange/pandos/internal/list"
	"github.com/tinyrange/pandos/internal/machine"
)

func TestPLTFiringChargesTheRunningProcess(t *testing.T) {
	k := newTestKernel(t)
	p1, _ := k.Spawn(list.Nil, machine.ProcessorState{}, list.Nil)
	_, _ = k.Spawn(list.Nil, machine.ProcessorState{}, list.Nil)

	if outcome := k.Schedule(); outcome != OutcomeRunning || k.Current() != p1 {
		t.Fatalf("expected p1 running, got outcome=%v current=%v", outcome, k.Current())
	}
	if got := k.PCBs.Get(p1).Time; got != 0 {
		t.Fatalf("p1 Time before any tick = %v, want 0", got)
	}

	k.Tick(kconst.TimeSlice) // PLT fires, preempts and charges p1

	if got := k.PCBs.Get(p1).Time; got != k.timeSlice {
		t.Fatalf("p1 Time after one full quantum = %v, want %v", got, k.timeSlice)
	}
}

func TestGetCPUTimeChargesThePartialQuantum(t *testing.T) {
	k := newTestKernel(t)
	p1, _ := k.Spawn(list.Nil, machine.ProcessorState{}, list.Nil)

	if outcome := k.Schedule(); outcome != OutcomeRunning || k.Current() != p1 {
		t.Fatalf("expected p1 running, got outcome=%v current=%v", outcome, k.Current())
	}

	half := k.timeSlice / 2
	k.Machine.PLT.Tick(half) // simulate half a quantum elapsing before the ecall

	if code := k.Send(p1, k.SSI(), 0, Request{Service: kconst.ServiceGetCPUTime}); code != kconst.OK {
		t.Fatalf("Send(getcputime) = %d, want OK", code)
	}
	ok, _, _, _ := k.Receive(p1, k.SSI())
	if ok {
		t.Fatalf("expected p1 to block until the SSI replies")
	}

	k.Schedule() // the SSI charges and answers the request

	if got := k.PCBs.Get(p1).Time; got < half {
		t.Fatalf("p1 Time after GETCPUTIME = %v, want at least %v", got, half)
	}

	ok2, sender, payload, _ := k.Receive(p1, k.SSI())
	if !ok2 || sender != k.SSI() {
		t.Fatalf("Receive(p1) = %v %v, want true %v", ok2, sender, k.SSI())
	}
	if payload == 0 {
		t.Fatalf("GETCPUTIME reply = 0, want a nonzero microsecond count")
	}
}
