package chipset

import (
	"encoding/binary"
	"time"

	"golang.org/x/sys/cpu"
)

// DeviceRegisters is the four-word register block every device on the
// bus exposes (§4.6): a status word the kernel polls or waits on, a
// command word the kernel writes to start an operation, and two data
// words (used differently by different devices — terminal transmit
// vs. receive, flash block number vs. DMA pointer).
type DeviceRegisters struct {
	Status  uint32
	Command uint32
	Data0   uint32
	Data1   uint32
}

// byteOrder is the host's native word order — real memory-mapped
// register blocks are read by whatever byte order the CPU uses, not a
// fixed wire endianness, so the monitor dump in cmd/pandos renders
// registers the same way this host's CPU would.
var byteOrder = func() binary.ByteOrder {
	if cpu.IsBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}()

// Bytes renders the register block as 16 raw bytes in host byte
// order, for the monitor's register dump (cmd/pandos).
func (r *DeviceRegisters) Bytes() [16]byte {
	var buf [16]byte
	byteOrder.PutUint32(buf[0:4], r.Status)
	byteOrder.PutUint32(buf[4:8], r.Command)
	byteOrder.PutUint32(buf[8:12], r.Data0)
	byteOrder.PutUint32(buf[12:16], r.Data1)
	return buf
}

// Device is one device sitting behind the bus at a fixed (line,
// device-number) slot. Command starts an operation; the bus calls
// Tick once per simulated time step to let the device make progress
// and report completion.
type Device interface {
	// Registers returns the device's live register block. The kernel
	// reads status/data through this; the bus routes command writes
	// through Command below.
	Registers() *DeviceRegisters

	// Command starts an operation (the kernel's store into the
	// command register). Implementations set Registers().Status to
	// DeviceBusy and record whatever state Tick needs to finish.
	Command(cmd uint32)

	// Tick advances the device's in-flight operation, if any, by
	// elapsed. It returns true on exactly the tick an operation
	// completes, signaling the bus to assert the device's line.
	Tick(elapsed time.Duration) bool
}
