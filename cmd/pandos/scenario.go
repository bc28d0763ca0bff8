package main

import (
	"fmt"

	"github.com/tinyrange/pandos/internal/devices"
	"github.com/tinyrange/pandos/internal/kconst"
	"github.com/tinyrange/pandos/internal/kernel"
	"github.com/tinyrange/pandos/internal/list"
	"github.com/tinyrange/pandos/internal/machine"
	"github.com/tinyrange/pandos/internal/sst"
)

// scenario is a scripted demo driven directly against a rig's Kernel and
// support services, standing in for the user-level program a real
// uMPS3 image would execute — there is no instruction interpreter here,
// so the scenario itself plays the role of the process at each syscall.
type scenario struct {
	name string
	run  func(r *rig) []string
}

var scenarios = map[string]scenario{
	"pingpong": {"pingpong", runPingPong},
	"print":    {"print", runPrint},
	"pager":    {"pager", runPager},
}

func codeOutcome(code int) kernel.Outcome {
	if code == kconst.OK {
		return kernel.OutcomeRunning
	}
	return kernel.OutcomePanic
}

// runPingPong spawns two ordinary processes and bounces one message each
// way between them, grounded on internal/kernel's TestPingPong.
func runPingPong(r *rig) []string {
	k := r.Kernel
	var log []string

	p1, ok := k.Spawn(list.Nil, machine.ProcessorState{}, list.Nil)
	if !ok {
		return []string{"pingpong: spawn p1 failed"}
	}
	p2, ok := k.Spawn(list.Nil, machine.ProcessorState{}, list.Nil)
	if !ok {
		return []string{"pingpong: spawn p2 failed"}
	}

	code := k.Send(p1, p2, 42, nil)
	log = append(log, monitorLine(1, codeOutcome(code), fmt.Sprintf("p1 -> p2 : %d", 42)))

	_, sender, payload, _ := k.Receive(p2, kconst.AnySender)
	log = append(log, monitorLine(2, kernel.OutcomeRunning, fmt.Sprintf("p2 <- %d : %d", sender, payload)))

	code = k.Send(p2, p1, payload+1, nil)
	log = append(log, monitorLine(3, codeOutcome(code), fmt.Sprintf("p2 -> p1 : %d", payload+1)))

	_, sender, payload, _ = k.Receive(p1, p2)
	log = append(log, monitorLine(4, kernel.OutcomeRunning, fmt.Sprintf("p1 <- %d : %d", sender, payload)))

	return log
}

// runPrint drives the rig's shared sst.Controller through a full
// character-by-character terminal write, grounded on internal/sst's
// TestControllerWritesTerminalCharByChar but using a real Spawn'd
// process so it participates in scheduling like a uproc would.
func runPrint(r *rig) []string {
	k := r.Kernel
	var log []string

	supportHandle, err := r.Pool.Alloc(list.Nil)
	if err != nil {
		return []string{fmt.Sprintf("print: pool.Alloc: %v", err)}
	}

	self, ok := k.Spawn(list.Nil, machine.ProcessorState{}, supportHandle)
	if !ok {
		return []string{"print: spawn self failed"}
	}
	k.Schedule() // dispatch self as current, vacating the ready queue

	const text = "hello, pandos\n"
	r.SST.Print(k, self, sst.ServiceWriteTerminal, text)
	k.Schedule() // controller accepts the request and issues the first character
	log = append(log, monitorLine(1, kernel.OutcomeRunning, fmt.Sprintf("uproc %d requests WRITETERMINAL %q", self, text)))

	step := 2
	for i := 0; i < len(text); i++ {
		k.Tick(devices.TerminalLatency)
		k.Schedule()
		log = append(log, monitorLine(step, kernel.OutcomeRunning, fmt.Sprintf("character %d transmitted", i+1)))
		step++
	}

	ok2, sender, code, _ := k.Receive(self, r.SST.Handle())
	log = append(log, monitorLine(step, kernel.OutcomeRunning,
		fmt.Sprintf("uproc %d resumed: ok=%v sender=%d code=%d", self, ok2, sender, code)))

	return log
}

// runPager walks one swap-in through the rig's pager exactly as
// internal/support's TestPagerSwapInRoundTrip does, reusing the rig's
// preloaded flash backing store instead of seeding one by hand.
func runPager(r *rig) []string {
	k := r.Kernel
	var log []string

	if len(r.Flash) == 0 || r.Flash[0] == nil {
		return []string{"pager: no flash device attached at asid 1"}
	}

	const vpn = 0
	supportHandle, err := r.Pool.Alloc(list.Nil)
	if err != nil {
		return []string{fmt.Sprintf("pager: pool.Alloc: %v", err)}
	}
	d := r.Pool.Get(supportHandle)
	r.SwapPool.Register(d.ASID, d)

	// The pager handler's own resume point: an arbitrary marker PC, just
	// enough for the assertion that Dispatch actually transferred control
	// there instead of leaving the faulting state loaded.
	var handlerEntry machine.ProcessorState
	handlerEntry.PC = 0xf0000000
	d.SetExceptionContext(kernel.ExcPageFault, handlerEntry)

	self, ok := k.Spawn(list.Nil, machine.ProcessorState{}, supportHandle)
	if !ok {
		return []string{"pager: spawn self failed"}
	}
	k.Schedule() // dispatch self as current, so Dispatch's k.current is self

	var fault machine.ProcessorState
	fault.Cause = machine.Cause{Code: machine.ExcTLBInvalid}
	fault.EntryHi = vpn

	// Route the fault through the unified exception table (§4.4) instead
	// of calling PassUpOrDie directly: this is the real call site that
	// makes Dispatch more than an orphaned alternative to Send/Receive.
	outcome := k.Dispatch(fault.Cause, fault)
	log = append(log, monitorLine(1, outcome, fmt.Sprintf("uproc %d TLB-invalid on vpn %d, passed up to the pager", self, vpn)))
	if outcome != kernel.OutcomeRunning {
		return append(log, fmt.Sprintf("pager: Dispatch = %v, want OutcomeRunning", outcome))
	}
	if k.Machine.STST().PC != handlerEntry.PC {
		return append(log, fmt.Sprintf("pager: resumed PC = %#x, want the pager handler's entry %#x", k.Machine.STST().PC, handlerEntry.PC))
	}

	if r.Pager.HandleFault(d) {
		return append(log, "pager: unexpected TLB-Modification trap")
	}
	if !r.Pager.NeedsSwapIn(d, vpn) {
		return append(log, fmt.Sprintf("pager: vpn %d unexpectedly resident", vpn))
	}

	frame, needsEviction := r.Pager.PickVictim()
	step := 2
	if needsEviction {
		log = append(log, monitorLine(step, kernel.OutcomeRunning, fmt.Sprintf("evicting frame %d before swap-in", frame)))
		step++
		r.Pager.BeginEviction(k, frame)
		r.Pager.IssueWriteback(k, self, frame)
		k.Schedule()
		for {
			k.Tick(devices.FlashLatency)
			k.Schedule()
			if _, ok := r.Pager.CollectIO(k, self); ok {
				break
			}
		}
	}

	r.Pager.IssueRead(k, self, d.ASID, vpn, frame)
	k.Schedule() // SSI registers the DOIO command and blocks self
	log = append(log, monitorLine(step, kernel.OutcomeRunning, fmt.Sprintf("swap-in of vpn %d issued to frame %d", vpn, frame)))
	step++
	log = append(log, registerDump(fmt.Sprintf("flash[asid %d]", d.ASID), k.Bus.Registers(kconst.DevLines-1, d.ASID-1)))

	for {
		k.Tick(devices.FlashLatency)
		log = append(log, monitorLine(step, kernel.OutcomeRunning, fmt.Sprintf("polling flash for vpn %d", vpn)))
		step++
		if status, ok := r.Pager.CollectIO(k, self); ok {
			log = append(log, monitorLine(step, kernel.OutcomeRunning, fmt.Sprintf("swap-in complete, status=%d", status)))
			step++
			break
		}
	}

	r.Pager.CommitFrame(k, d, d.ASID, vpn, frame)
	log = append(log, monitorLine(step, kernel.OutcomeRunning, fmt.Sprintf("vpn %d now resident in frame %d", vpn, frame)))

	return log
}
