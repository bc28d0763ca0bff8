// Package machine models the external collaborator §1 and §6 describe:
// a BIOS data page holding saved exception state, atomic state
// save/restore instructions, TLB management primitives, a per-CPU
// local timer and system interval timer, and memory-mapped device
// register blocks. It is deliberately not a RISC-V instruction
// interpreter — decoding and executing guest instructions remains out
// of scope (§1's Non-goals); Machine exists so the kernel's dispatcher,
// scheduler, and pager have a concrete, testable stand-in to drive.
package machine

import (
	"fmt"
	"time"
)

// Register indices into ProcessorState.Regs, named for the ones the
// syscall and pass-up paths touch directly (§4.5, §6).
const (
	RegA0 = iota
	RegA1
	RegA2
	RegA3
	RegSP
	RegCount = 32
)

// ProcessorState is the BIOS-data-page layout (§3, §6): the full saved
// processor state an exception entry captures and LDST restores.
type ProcessorState struct {
	Regs    [RegCount]uint64
	PC      uint64
	Status  uint32
	Cause   Cause
	EntryHi uint32
	MIE     uint32
}

// Status bits (§6: "a status word with a machine-interrupt-enable bit,
// a previous-privilege field, and per-line interrupt-mask bits").
const (
	StatusInterruptsEnabled uint32 = 1 << 0
	StatusPrivileged        uint32 = 1 << 1
)

// Privileged reports whether the saved state reflects privileged-mode
// execution — the single boolean the dispatcher needs, per Design
// Note §9 ("expose that as a single boolean derived from the saved
// status") rather than reimplementing the source's status-bit arithmetic.
func (s *ProcessorState) Privileged() bool { return s.Status&StatusPrivileged != 0 }

// ExcCode classifies a non-interrupt exception (§4.4's cause table,
// collapsed to what the dispatcher actually branches on).
type ExcCode int

const (
	ExcEcall              ExcCode = iota // SEND/RECEIVE request from privileged mode
	ExcIllegalInstruction                // forced when user mode attempts a privileged ecall
	ExcTLBInvalid                        // TLB miss: refill is possible
	ExcTLBModified                       // TLB-Modification: always a program trap
	ExcOther                             // any other program trap
)

// Cause is the decoded Cause register (§4.4): either a pending
// external interrupt, or a synchronous exception with a code.
type Cause struct {
	Interrupt bool
	Code      ExcCode
}

// Machine is the stand-in hardware platform: BIOS data page, PLT,
// interval timer, TLB, and halt/panic/wait state. It holds no guest
// instruction memory and runs no code — kernel tests and cmd/pandos
// drive it by calling Dispatch-adjacent methods directly.
type Machine struct {
	bios ProcessorState

	PLT    *PLT
	Clock  *IntervalTimer
	TLB    *TLB

	waiting bool
	halted  bool
	paniced bool
	reason  string
}

// New returns a Machine with the PLT and interval timer unarmed.
func New() *Machine {
	return &Machine{
		PLT:   NewPLT(),
		Clock: NewIntervalTimer(),
		TLB:   NewTLB(),
	}
}

// STST returns the BIOS data page: the processor state saved by the
// most recent exception entry (§6).
func (m *Machine) STST() *ProcessorState { return &m.bios }

// SetBIOS overwrites the BIOS data page — used by tests and by the
// (absent) real trap entry to simulate an exception arriving.
func (m *Machine) SetBIOS(s ProcessorState) { m.bios = s }

// LDST restores state and returns control to it (§6). In this stand-in
// there is no guest code to resume, so LDST just records the state as
// current and clears wait/halt/panic — callers (the scheduler, the
// syscall/interrupt handlers) use this to mark "control has left the
// kernel for this process."
func (m *Machine) LDST(s *ProcessorState) {
	m.bios = *s
	m.waiting = false
}

// Wait idles the CPU until the next interrupt (§4.3).
func (m *Machine) Wait() { m.waiting = true }

// Waiting reports whether the machine is in the WAIT state.
func (m *Machine) Waiting() bool { return m.waiting }

// Halt stops the machine normally (§4.3: ready queue empty, only the permanent server processes left).
func (m *Machine) Halt() { m.halted = true }

// Halted reports whether HALT has been executed.
func (m *Machine) Halted() bool { return m.halted }

// Panic stops the machine abnormally (deadlock or flash I/O error,
// §4.3, §4.10, §7).
func (m *Machine) Panic(reason string) {
	m.paniced = true
	m.reason = reason
}

// Paniced reports whether PANIC has been executed, and why.
func (m *Machine) Paniced() (bool, string) { return m.paniced, m.reason }

func (m *Machine) String() string {
	switch {
	case m.paniced:
		return fmt.Sprintf("PANIC: %s", m.reason)
	case m.halted:
		return "HALT"
	case m.waiting:
		return "WAIT"
	default:
		return "RUNNING"
	}
}

// SetStatus overwrites the BIOS data page's status word with status;
// the scheduler's WAIT path passes the interrupt-enable bit, mirroring
// setSTATUS(TEBITON) (§4.3).
func (m *Machine) SetStatus(status uint32) { m.bios.Status = status }

// Elapsed is a trivial clock abstraction so CPU-time accounting (§4.3)
// doesn't depend on wall-clock time in tests: callers advance it
// explicitly by the duration a quantum actually ran.
type Elapsed = time.Duration
