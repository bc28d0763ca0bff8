package chipset

import (
	"testing"
	"time"
)

type fakeDevice struct {
	regs    DeviceRegisters
	pending time.Duration
}

func (f *fakeDevice) Registers() *DeviceRegisters { return &f.regs }

func (f *fakeDevice) Command(cmd uint32) {
	f.regs.Command = cmd
	f.regs.Status = 0
	f.pending = time.Millisecond
}

func (f *fakeDevice) Tick(elapsed time.Duration) bool {
	if f.pending <= 0 {
		return false
	}
	f.pending -= elapsed
	if f.pending <= 0 {
		f.regs.Status = 1
		return true
	}
	return false
}

func TestBuilderAttachValidatesSlot(t *testing.T) {
	b := NewBuilder()
	if err := b.Attach(0, 0, &fakeDevice{}); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := b.Attach(0, 0, &fakeDevice{}); err == nil {
		t.Fatalf("expected error re-attaching the same slot")
	}
	if err := b.Attach(99, 0, &fakeDevice{}); err == nil {
		t.Fatalf("expected error for out-of-range line")
	}
}

func TestBusTickAssertsLine(t *testing.T) {
	b := NewBuilder()
	dev := &fakeDevice{}
	if err := b.Attach(1, 2, dev); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	bus := b.Build()

	if err := bus.Command(1, 2, 3); err != nil {
		t.Fatalf("Command: %v", err)
	}
	if bus.LinePending(1) {
		t.Fatalf("should not be pending before the operation completes")
	}
	bus.Tick(time.Millisecond)
	if !bus.LinePending(1) {
		t.Fatalf("expected line 1 pending after completion")
	}
	devNum, ok := bus.Pending(1)
	if !ok || devNum != 2 {
		t.Fatalf("Pending(1) = %d, %v, want 2, true", devNum, ok)
	}
	bus.Ack(1, 2)
	if bus.LinePending(1) {
		t.Fatalf("Ack should clear pending")
	}
}
