package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/tinyrange/pandos/internal/chipset"
	"github.com/tinyrange/pandos/internal/kernel"
)

// outcomeColor is the SGR foreground code for each scheduler outcome —
// a uriscv-gui monitor's RUNNING/WAIT/HALT/PANIC state light,
// rendered as plain text instead of a GUI widget.
var outcomeColor = map[kernel.Outcome]int{
	kernel.OutcomeRunning: 32, // green
	kernel.OutcomeWait:    33, // yellow
	kernel.OutcomePanic:   31, // red
	kernel.OutcomeHalt:    34, // blue
}

func outcomeLabel(o kernel.Outcome) string {
	switch o {
	case kernel.OutcomeRunning:
		return "RUNNING"
	case kernel.OutcomeWait:
		return "WAIT"
	case kernel.OutcomeHalt:
		return "HALT"
	case kernel.OutcomePanic:
		return "PANIC"
	default:
		return "?"
	}
}

func colorize(code int, s string) string {
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", code, s)
}

// monitorLine formats one scheduler step for the demo's console output,
// padding the colorized label to a fixed visible width (ansi.StringWidth
// ignores the escape sequences colorize wraps the label in, the same
// way a real terminal does) so the step counter column stays aligned.
func monitorLine(step int, o kernel.Outcome, detail string) string {
	label := colorize(outcomeColor[o], outcomeLabel(o))
	pad := strings.Repeat(" ", 8-ansi.StringWidth(ansi.Strip(label)))
	return fmt.Sprintf("step %3d  %s%s  %s", step, label, pad, detail)
}

// registerDump renders a device's register block the way a uriscv-gui
// memory-mapped I/O view would: the raw host-order bytes a debugger
// attached to the bus would see, rather than the decoded Status/
// Command/Data0/Data1 fields the kernel itself reads.
func registerDump(name string, regs *chipset.DeviceRegisters) string {
	b := regs.Bytes()
	return fmt.Sprintf("%s regs: % 02x", name, b)
}
