package devices

import (
	"bytes"
	"testing"
	"time"

	"github.com/tinyrange/pandos/internal/kconst"
)

func TestFlashReadWriteRoundTrip(t *testing.T) {
	ram := make([]byte, kconst.PageSize)
	f := NewFlash(4, func(addr uint32) []byte { return ram })

	if err := f.LoadBlock(2, []byte("hello")); err != nil {
		t.Fatalf("LoadBlock: %v", err)
	}

	f.Registers().Data0 = 2
	f.Registers().Data1 = 0
	f.Command(kconst.FlashRead)
	for !f.Tick(time.Millisecond) {
	}
	if f.Registers().Status != kconst.DeviceReady {
		t.Fatalf("status = %d, want DeviceReady", f.Registers().Status)
	}
	if string(ram[:5]) != "hello" {
		t.Fatalf("ram = %q, want %q", ram[:5], "hello")
	}
}

func TestFlashOutOfRangeBlockErrors(t *testing.T) {
	ram := make([]byte, kconst.PageSize)
	f := NewFlash(2, func(addr uint32) []byte { return ram })
	f.Registers().Data0 = 99
	f.Command(kconst.FlashRead)
	for !f.Tick(time.Millisecond) {
	}
	if f.Registers().Status != kconst.DeviceError {
		t.Fatalf("status = %d, want DeviceError", f.Registers().Status)
	}
}

func TestTerminalTransmit(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, nil)
	term.Registers().Data0 = 'A'
	term.Command(TerminalCmdTransmit)
	for !term.Tick(time.Millisecond) {
	}
	if buf.String() != "A" {
		t.Fatalf("buf = %q, want %q", buf.String(), "A")
	}
	if term.Registers().Status != kconst.DeviceReady {
		t.Fatalf("status = %d, want DeviceReady", term.Registers().Status)
	}
}

func TestTerminalReceiveNoInputErrors(t *testing.T) {
	term := NewTerminal(nil, func() (byte, bool) { return 0, false })
	term.Command(TerminalCmdReceive)
	for !term.Tick(time.Millisecond) {
	}
	if term.Registers().Status != kconst.DeviceError {
		t.Fatalf("status = %d, want DeviceError", term.Registers().Status)
	}
}

func TestPrinterWrites(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.Registers().Data0 = 'Z'
	p.Command(1)
	for !p.Tick(time.Millisecond) {
	}
	if buf.String() != "Z" {
		t.Fatalf("buf = %q, want %q", buf.String(), "Z")
	}
}
