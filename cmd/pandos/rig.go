package main

import (
	"io"
	"log/slog"

	"github.com/tinyrange/pandos/internal/chipset"
	"github.com/tinyrange/pandos/internal/config"
	"github.com/tinyrange/pandos/internal/devices"
	"github.com/tinyrange/pandos/internal/kconst"
	"github.com/tinyrange/pandos/internal/kernel"
	"github.com/tinyrange/pandos/internal/machine"
	"github.com/tinyrange/pandos/internal/sst"
	"github.com/tinyrange/pandos/internal/support"
)

// Device line assignment: line 2 carries terminals, line 3 printers,
// and the last line the flash backing store, one device per ASID
// (device = asid-1), matching internal/support and internal/sst's test
// fixtures.
const (
	terminalLine = 2
	printerLine  = 3
)

func flashLine() int { return kconst.DevLines - 1 }

// rig bundles every piece cmd/pandos wires together to stand up a
// bootable Kernel: the bus and its devices, the support layer, and the
// shared SST print service.
type rig struct {
	cfg config.Boot
	log *slog.Logger

	Kernel *kernel.Kernel
	Bus    *chipset.Bus

	Pool     *support.Pool
	SwapPool *support.SwapPool
	Mutex    *support.SwapMutex
	Pager    *support.Pager
	SST      *sst.Controller

	Flash []*devices.Flash // indexed by asid-1
}

// newRig builds the bus, devices, kernel, and support layer from cfg,
// then boots the kernel. termOut/printOut receive every ASID's
// terminal/printer writes, interleaved — enough for a single-process
// demo; a real monitor would fan these out per ASID. It does not spawn
// any user processes — that is left to the scenario, which knows what
// descriptors it needs.
func newRig(cfg config.Boot, log *slog.Logger, termOut, printOut io.Writer) *rig {
	swap := support.NewSwapPool()

	b := chipset.NewBuilder()
	flashes := make([]*devices.Flash, cfg.MaxUserProcesses)
	for i := 0; i < cfg.MaxUserProcesses; i++ {
		f := devices.NewFlash(kconst.UserPageTableSize, swap.RAM)
		if err := b.Attach(flashLine(), i, f); err != nil {
			log.Warn("attach flash failed", "asid", i+1, "err", err)
			continue
		}
		flashes[i] = f
	}
	for i := 0; i < cfg.Devices.Terminals && i < kconst.DevPerLine; i++ {
		if err := b.Attach(terminalLine, i, devices.NewTerminal(termOut, nil)); err != nil {
			log.Warn("attach terminal failed", "asid", i+1, "err", err)
		}
	}
	for i := 0; i < cfg.Devices.Printers && i < kconst.DevPerLine; i++ {
		if err := b.Attach(printerLine, i, devices.NewPrinter(printOut)); err != nil {
			log.Warn("attach printer failed", "asid", i+1, "err", err)
		}
	}
	bus := b.Build()

	mach := machine.New()
	k := kernel.New(mach, bus, log.With("source", "kernel"))
	k.SetTiming(cfg.TimeSlice(), cfg.PseudoClockPeriod())
	k.Boot()

	pool := support.NewPool()
	mutex := support.NewSwapMutex(k)
	pager := support.NewPager(swap, mutex)
	sstCtrl := sst.New(k, bus, pool, terminalLine, printerLine)
	k.Support = support.Hooks{Pool: pool}

	return &rig{
		cfg:      cfg,
		log:      log,
		Kernel:   k,
		Bus:      bus,
		Pool:     pool,
		SwapPool: swap,
		Mutex:    mutex,
		Pager:    pager,
		SST:      sstCtrl,
		Flash:    flashes,
	}
}
