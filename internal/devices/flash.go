// Package devices implements the device models pandOS drives through
// internal/chipset's bus (§4.6, §4.9, §6): a flash backing store used
// by the pager for swap I/O, and terminal/printer devices used by the
// SST print service (internal/sst). All three are adapted from the
// teacher's register-file device pattern (previously a 16550 UART),
// replacing its byte-wide LSR/THRE register semantics with the
// four-word status/command/data0/data1 block real course hardware
// uses.
package devices

import (
	"fmt"
	"time"

	"github.com/tinyrange/pandos/internal/chipset"
	"github.com/tinyrange/pandos/internal/kconst"
)

// FlashLatency is how long a simulated block read or write takes to
// complete; real backing-store latency is not part of this spec, so a
// fixed small delay is enough to exercise the asynchronous DoIO path.
const FlashLatency = 2 * time.Millisecond

// Flash is the per-process backing-store device the pager uses for
// swap I/O (§4.9): Data0 carries the block number, Data1 the physical
// RAM address of the frame being read into or written from.
type Flash struct {
	regs chipset.DeviceRegisters

	blocks [][kconst.PageSize]byte
	ram    func(addr uint32) []byte

	pending    time.Duration
	pendingErr bool
}

// NewFlash returns a Flash backing store of blockCount PageSize
// blocks. ram resolves a physical address to the live backing slice a
// transfer reads from or writes to — cmd/pandos supplies this from
// the emulator's memory; tests supply a plain byte-slice-backed stub.
func NewFlash(blockCount int, ram func(addr uint32) []byte) *Flash {
	f := &Flash{
		blocks: make([][kconst.PageSize]byte, blockCount),
		ram:    ram,
	}
	f.regs.Status = kconst.DeviceReady
	return f
}

func (f *Flash) Registers() *chipset.DeviceRegisters { return &f.regs }

// Command starts a read or write (§6's FlashRead/FlashWrite commands).
// Data0 must already hold the block number and Data1 the RAM address;
// an out-of-range block is reported as a device error once the
// transfer would otherwise complete, matching real flash controllers
// that can only detect a bad block mid-operation.
func (f *Flash) Command(cmd uint32) {
	f.regs.Command = cmd
	f.regs.Status = kconst.DeviceBusy
	f.pending = FlashLatency
	f.pendingErr = int(f.regs.Data0) < 0 || int(f.regs.Data0) >= len(f.blocks)
}

func (f *Flash) Tick(elapsed time.Duration) bool {
	if f.pending <= 0 {
		return false
	}
	f.pending -= elapsed
	if f.pending > 0 {
		return false
	}
	if f.pendingErr {
		f.regs.Status = kconst.DeviceError
		return true
	}
	block := int(f.regs.Data0)
	buf := f.ram(f.regs.Data1)
	switch f.regs.Command {
	case kconst.FlashRead:
		copy(buf, f.blocks[block][:])
	case kconst.FlashWrite:
		copy(f.blocks[block][:], buf)
	}
	f.regs.Status = kconst.DeviceReady
	return true
}

// LoadBlock seeds block's contents directly — used by cmd/pandos to
// preload a process image before boot, and by pager tests to set up
// backing-store fixtures without going through Command/Tick.
func (f *Flash) LoadBlock(block int, data []byte) error {
	if block < 0 || block >= len(f.blocks) {
		return fmt.Errorf("devices: block %d out of range [0,%d)", block, len(f.blocks))
	}
	copy(f.blocks[block][:], data)
	return nil
}
