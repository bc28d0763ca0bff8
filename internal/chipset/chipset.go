package chipset

import (
	"fmt"
	"time"

	"github.com/tinyrange/pandos/internal/kconst"
)

// Bus is the device grid the interrupt handler and the pager's DoIO
// path address (§4.6): DevLines lines, each with up to DevPerLine
// devices, each exposing a DeviceRegisters block.
type Bus struct {
	devices [kconst.DevLines][kconst.DevPerLine]Device
	lines   [kconst.DevLines]LineSet
}

// NewBus returns an empty Bus. Prefer Builder when devices need
// validated, error-returning registration before first use.
func NewBus() *Bus { return &Bus{} }

// Registers returns the register block at (line, devNum), or nil if
// nothing is attached there.
func (b *Bus) Registers(line, devNum int) *DeviceRegisters {
	dev := b.devices[line][devNum]
	if dev == nil {
		return nil
	}
	return dev.Registers()
}

// Command writes devNum's command register on line, starting whatever
// operation the device associates with cmd.
func (b *Bus) Command(line, devNum int, cmd uint32) error {
	dev := b.devices[line][devNum]
	if dev == nil {
		return fmt.Errorf("chipset: no device at (%d,%d)", line, devNum)
	}
	dev.Command(cmd)
	return nil
}

// Tick advances every attached device by elapsed and latches any
// newly completed operations into their line's pending set. Call this
// once per simulated time step, the same step CPU-time and PLT/clock
// accounting advance by (§4.3, §4.7).
func (b *Bus) Tick(elapsed time.Duration) {
	for line := 0; line < kconst.DevLines; line++ {
		for devNum := 0; devNum < kconst.DevPerLine; devNum++ {
			dev := b.devices[line][devNum]
			if dev == nil {
				continue
			}
			if dev.Tick(elapsed) {
				b.lines[line].Assert(devNum)
			}
		}
	}
}

// Pending reports the lowest-numbered device with a completed,
// unacknowledged operation on line, and whether one exists — the
// interrupt handler's device-selection rule (§4.6).
func (b *Bus) Pending(line int) (int, bool) {
	return b.lines[line].Lowest()
}

// LinePending reports whether any device on line has a pending interrupt.
func (b *Bus) LinePending(line int) bool { return b.lines[line].Pending() }

// Ack clears devNum's pending interrupt on line after the handler has
// read its final status.
func (b *Bus) Ack(line, devNum int) { b.lines[line].Ack(devNum) }
