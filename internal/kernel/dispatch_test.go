package kernel

import (
	"testing"

	"github.com/tinyrange/pandos/internal/list"
	"github.com/tinyrange/pandos/internal/machine"
)

// stubSupport is a minimal SupportHooks recording what Dispatch passes
// up, so these tests don't need to import internal/support (which
// itself imports this package).
type stubSupport struct {
	saved   map[ExceptionKind]machine.ProcessorState
	context map[ExceptionKind]machine.ProcessorState
}

func newStubSupport() *stubSupport {
	return &stubSupport{
		saved:   map[ExceptionKind]machine.ProcessorState{},
		context: map[ExceptionKind]machine.ProcessorState{},
	}
}

func (s *stubSupport) SaveExceptionState(_ list.Handle, kind ExceptionKind, state machine.ProcessorState) {
	s.saved[kind] = state
}

func (s *stubSupport) ExceptionContext(_ list.Handle, kind ExceptionKind) machine.ProcessorState {
	return s.context[kind]
}

func TestDispatchInterruptReturnsToCurrentProcess(t *testing.T) {
	k := newTestKernel(t)

	self, ok := k.Spawn(list.Nil, machine.ProcessorState{}, list.Nil)
	if !ok {
		t.Fatal("spawn self failed")
	}
	if outcome := k.Schedule(); outcome != OutcomeRunning {
		t.Fatalf("Schedule() = %v, want OutcomeRunning (self dispatched)", outcome)
	}

	outcome := k.Dispatch(machine.Cause{Interrupt: true}, machine.ProcessorState{})
	if outcome != OutcomeRunning {
		t.Fatalf("Dispatch(interrupt) = %v, want OutcomeRunning (self still current)", outcome)
	}
	if k.Current() != self {
		t.Fatalf("Current() = %v, want %v", k.Current(), self)
	}
}

func TestDispatchTLBTrapPassesUpToPager(t *testing.T) {
	k := newTestKernel(t)
	stub := newStubSupport()
	k.Support = stub

	self, ok := k.Spawn(list.Nil, machine.ProcessorState{}, 1)
	if !ok {
		t.Fatal("spawn self failed")
	}
	k.Schedule() // dispatch self as current

	var resume machine.ProcessorState
	resume.PC = 0x2000
	stub.context[ExcPageFault] = resume

	var fault machine.ProcessorState
	fault.Cause = machine.Cause{Code: machine.ExcTLBInvalid}
	fault.EntryHi = 5

	outcome := k.Dispatch(fault.Cause, fault)
	if outcome != OutcomeRunning {
		t.Fatalf("Dispatch(TLB trap) = %v, want OutcomeRunning", outcome)
	}
	if got := stub.saved[ExcPageFault]; got.EntryHi != 5 {
		t.Fatalf("saved exception state EntryHi = %d, want 5", got.EntryHi)
	}
	if k.Machine.STST().PC != 0x2000 {
		t.Fatalf("resumed PC = %#x, want %#x (the pager handler's entry)", k.Machine.STST().PC, 0x2000)
	}
	if k.Current() != self {
		t.Fatalf("Current() = %v, want %v (pass-up doesn't change current)", k.Current(), self)
	}
}

func TestDispatchGeneralTrapWithoutSupportTerminates(t *testing.T) {
	k := newTestKernel(t)

	self, _ := k.Spawn(list.Nil, machine.ProcessorState{}, list.Nil)
	k.Schedule()

	before := k.ProcessCount()
	outcome := k.Dispatch(machine.Cause{Code: machine.ExcIllegalInstruction}, machine.ProcessorState{})
	if outcome == OutcomeRunning {
		t.Fatalf("Dispatch(illegal instruction, no support) = %v, want termination outcome", outcome)
	}
	if k.ProcessCount() != before-1 {
		t.Fatalf("process count = %d, want %d after Dispatch terminates %d", k.ProcessCount(), before-1, self)
	}
}
