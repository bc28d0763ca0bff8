package devices

import (
	"io"
	"time"

	"github.com/tinyrange/pandos/internal/chipset"
	"github.com/tinyrange/pandos/internal/kconst"
)

// TerminalLatency models the time a single character transmit or
// receive takes to complete.
const TerminalLatency = 500 * time.Microsecond

// TerminalCmd values a process writes to Command to start a transfer.
const (
	TerminalCmdTransmit = 1
	TerminalCmdReceive  = 2
)

// Terminal is a one-character-at-a-time I/O device (§6, supplemented
// feature: backs the SST's terminal read/write calls). Data0 holds
// the character being transmitted or the last character received.
type Terminal struct {
	regs chipset.DeviceRegisters

	out io.Writer
	in  func() (byte, bool) // returns false when no input is available

	pending time.Duration
}

// NewTerminal returns a Terminal that writes transmitted characters to
// out and pulls received characters from in.
func NewTerminal(out io.Writer, in func() (byte, bool)) *Terminal {
	t := &Terminal{out: out, in: in}
	t.regs.Status = kconst.DeviceReady
	return t
}

func (t *Terminal) Registers() *chipset.DeviceRegisters { return &t.regs }

func (t *Terminal) Command(cmd uint32) {
	t.regs.Command = cmd
	t.regs.Status = kconst.DeviceBusy
	t.pending = TerminalLatency
}

func (t *Terminal) Tick(elapsed time.Duration) bool {
	if t.pending <= 0 {
		return false
	}
	t.pending -= elapsed
	if t.pending > 0 {
		return false
	}
	switch t.regs.Command {
	case TerminalCmdTransmit:
		if t.out != nil {
			_, _ = t.out.Write([]byte{byte(t.regs.Data0)})
		}
		t.regs.Status = kconst.DeviceReady
	case TerminalCmdReceive:
		if t.in != nil {
			if ch, ok := t.in(); ok {
				t.regs.Data0 = uint32(ch)
				t.regs.Status = kconst.DeviceReady
			} else {
				t.regs.Status = kconst.DeviceError
			}
		} else {
			t.regs.Status = kconst.DeviceError
		}
	}
	return true
}
