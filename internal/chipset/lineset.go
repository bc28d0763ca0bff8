package chipset

import "github.com/tinyrange/pandos/internal/kconst"

// LineSet tracks which devices on one interrupt line currently have a
// completed operation pending acknowledgement (§4.6): several devices
// share a line, and the interrupt handler resolves the ambiguity by
// taking the lowest-numbered pending device.
type LineSet struct {
	pending [kconst.DevPerLine]bool
}

// Assert marks devNum as having raised its line.
func (l *LineSet) Assert(devNum int) { l.pending[devNum] = true }

// Ack clears devNum's pending interrupt — the kernel's device handler
// does this once it has read the device's status register.
func (l *LineSet) Ack(devNum int) { l.pending[devNum] = false }

// Pending reports whether any device on the line is asserting.
func (l *LineSet) Pending() bool {
	for _, p := range l.pending {
		if p {
			return true
		}
	}
	return false
}

// Lowest returns the lowest device number currently pending on the
// line, and whether one exists (§4.6's tie-break rule).
func (l *LineSet) Lowest() (int, bool) {
	for i, p := range l.pending {
		if p {
			return i, true
		}
	}
	return 0, false
}
