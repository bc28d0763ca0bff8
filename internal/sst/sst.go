// Package sst implements the Support System Terminal (supplemented
// feature; not in the distilled spec): a user-level print service that
// forwards WRITETERMINAL/WRITEPRINTER requests the same way the SSI
// forwards kernel services, grounded on
// original_source/phase3/{headers/sst.h,sst.c}. The original spawns one
// SST per user process (sst_pcb[asid]); here it is one shared,
// registered server — the same generalization internal/kernel already
// applies to the SSI — addressed by every process's Support.Parent for
// USEND/URECEIVE's PARENT sentinel (§4.9).
package sst

import (
	"github.com/tinyrange/pandos/internal/chipset"
	"github.com/tinyrange/pandos/internal/devices"
	"github.com/tinyrange/pandos/internal/kconst"
	"github.com/tinyrange/pandos/internal/kernel"
	"github.com/tinyrange/pandos/internal/list"
	"github.com/tinyrange/pandos/internal/machine"
	"github.com/tinyrange/pandos/internal/support"
)

// Service codes the Controller's Request carries — this package's own
// small vocabulary, parallel to kconst's SSI service codes but not
// part of it, since these never reach the kernel's dispatcher.
const (
	ServiceWriteTerminal = iota + 1
	ServiceWritePrinter
)

// Request is what a process SENDs the Controller to print text.
type Request struct {
	Service int
	Text    string
}

// ErrWrite is the completion reply's payload when the underlying
// device reported an error partway through a write — this package's
// own small reply vocabulary, distinct from kconst's SSI reply codes.
const ErrWrite = 1

// job tracks one in-flight write, one character at a time, across the
// Controller's dispatches — the same role SwapMutex.held plays: state
// that must survive the call boundary where RECEIVE blocks.
type job struct {
	sender list.Handle
	line   int
	dev    int
	text   []byte
	next   int
}

// Controller is the shared SST process (§4.9's supplemented print
// service): registered with Kernel.RegisterServer like the SSI and
// internal/support's SwapMutex, so it never runs as ordinary user
// code. It drives one character's DOIO at a time through the SSI,
// exactly the way internal/support's Pager drives flash I/O, since a
// character transmit's completion depends on simulated device latency
// only the driver's Kernel.Tick advances.
type Controller struct {
	handle                    list.Handle
	bus                       *chipset.Bus
	pool                      *support.Pool
	terminalLine, printerLine int

	pending *job
}

// New spawns the controller process and wires it to terminalLine and
// printerLine — the bus lines the caller attached one devices.Terminal
// and devices.Printer per ASID to, addressed (device=asid-1) the same
// way internal/support's Pager addresses flash.
func New(k *kernel.Kernel, bus *chipset.Bus, pool *support.Pool, terminalLine, printerLine int) *Controller {
	h, _ := k.Spawn(list.Nil, machine.ProcessorState{}, list.Nil)
	c := &Controller{handle: h, bus: bus, pool: pool, terminalLine: terminalLine, printerLine: printerLine}
	k.RegisterServer(h, func() { c.run(k) })
	k.MarkPermanent(h)
	return c
}

// Handle returns the controller's PCB handle — what every Descriptor's
// Parent field should be set to, so PARENT-sentinel USEND/URECEIVE
// reaches this process (§4.9).
func (c *Controller) Handle() list.Handle { return c.handle }

// Print sends a write request (the USEND wrapper's caller-facing half):
// the driver must Schedule/Tick/Schedule per character, then Receive
// the completion the same way any other SEND/RECEIVE round trip works.
func (c *Controller) Print(k *kernel.Kernel, self list.Handle, service int, text string) {
	k.Send(self, c.handle, 0, Request{Service: service, Text: text})
}

// run is the controller's service loop (§4.7's SSI pattern generalized,
// per internal/kernel's RegisterServer doc comment): finish the
// in-flight job's current character before accepting a new request,
// looping until a RECEIVE genuinely blocks.
func (c *Controller) run(k *kernel.Kernel) {
	for {
		if c.pending != nil {
			ok, _, status, _ := k.Receive(c.handle, k.SSI())
			if !ok {
				return
			}
			c.advance(k, status)
			continue
		}

		ok, sender, _, aux := k.Receive(c.handle, kconst.AnySender)
		if !ok {
			return
		}
		req, _ := aux.(Request)
		c.begin(k, sender, req)
	}
}

func (c *Controller) begin(k *kernel.Kernel, sender list.Handle, req Request) {
	line := c.terminalLine
	if req.Service == ServiceWritePrinter {
		line = c.printerLine
	}
	supportHandle := k.PCBs.Get(sender).Support
	asid := c.pool.Get(supportHandle).ASID

	c.pending = &job{sender: sender, line: line, dev: asid - 1, text: []byte(req.Text)}
	if len(c.pending.text) == 0 {
		c.finish(k, kconst.OK)
		return
	}
	c.issue(k)
}

// advance consumes one character's completion status and either moves
// on to the next character or finishes the job.
func (c *Controller) advance(k *kernel.Kernel, status uint32) {
	c.pending.next++
	if status != kconst.DeviceReady || c.pending.next >= len(c.pending.text) {
		code := uint32(kconst.OK)
		if status != kconst.DeviceReady {
			code = ErrWrite // device error partway through: report failure, not a silent success
		}
		c.finish(k, code)
		return
	}
	c.issue(k)
}

func (c *Controller) issue(k *kernel.Kernel) {
	j := c.pending
	regs := k.Bus.Registers(j.line, j.dev)
	regs.Data0 = uint32(j.text[j.next])
	cmd := uint32(devices.TerminalCmdTransmit)
	if j.line == c.printerLine {
		cmd = devices.PrinterCmdWrite
	}
	k.Send(c.handle, k.SSI(), 0, kernel.Request{
		Service: kconst.ServiceDoIO,
		Aux:     kernel.DoIOArgs{Line: j.line, Device: j.dev, Command: cmd},
	})
}

func (c *Controller) finish(k *kernel.Kernel, code uint32) {
	k.Send(c.handle, c.pending.sender, code, nil)
	c.pending = nil
}
