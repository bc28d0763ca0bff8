package devices

import (
	"io"
	"time"

	"github.com/tinyrange/pandos/internal/chipset"
	"github.com/tinyrange/pandos/internal/kconst"
)

// PrinterLatency models the time a single character print takes.
const PrinterLatency = time.Millisecond

// PrinterCmdWrite is the only command a Printer recognizes, named for
// symmetry with Terminal's command vocabulary even though Command
// below doesn't switch on it — a print operation has exactly one verb.
const PrinterCmdWrite = 1

// Printer is a write-only character device (supplemented feature: the
// SST's printer write call). Data0 holds the character to print.
type Printer struct {
	regs chipset.DeviceRegisters
	out  io.Writer

	pending time.Duration
}

// NewPrinter returns a Printer that writes to out.
func NewPrinter(out io.Writer) *Printer {
	p := &Printer{out: out}
	p.regs.Status = kconst.DeviceReady
	return p
}

func (p *Printer) Registers() *chipset.DeviceRegisters { return &p.regs }

func (p *Printer) Command(cmd uint32) {
	p.regs.Command = cmd
	p.regs.Status = kconst.DeviceBusy
	p.pending = PrinterLatency
}

func (p *Printer) Tick(elapsed time.Duration) bool {
	if p.pending <= 0 {
		return false
	}
	p.pending -= elapsed
	if p.pending > 0 {
		return false
	}
	if p.out != nil {
		_, _ = p.out.Write([]byte{byte(p.regs.Data0)})
	}
	p.regs.Status = kconst.DeviceReady
	return true
}
