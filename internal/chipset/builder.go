package chipset

import (
	"fmt"

	"github.com/tinyrange/pandos/internal/kconst"
)

// Builder assembles a Bus before it starts serving kernel accesses,
// mirroring the teacher's register-then-Build two-phase chipset setup
// (builder.go) so device wiring errors surface at boot, not mid-run.
type Builder struct {
	devices [kconst.DevLines][kconst.DevPerLine]Device
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// Attach registers dev at (line, devNum). Both (§4.6) are fixed-size:
// DevLines device interrupt lines (the PLT and pseudoclock are not on
// the bus), DevPerLine devices per line.
func (b *Builder) Attach(line, devNum int, dev Device) error {
	if line < 0 || line >= kconst.DevLines {
		return fmt.Errorf("chipset: line %d out of range [0,%d)", line, kconst.DevLines)
	}
	if devNum < 0 || devNum >= kconst.DevPerLine {
		return fmt.Errorf("chipset: device number %d out of range [0,%d)", devNum, kconst.DevPerLine)
	}
	if dev == nil {
		return fmt.Errorf("chipset: device at (%d,%d) is nil", line, devNum)
	}
	if b.devices[line][devNum] != nil {
		return fmt.Errorf("chipset: (%d,%d) already attached", line, devNum)
	}
	b.devices[line][devNum] = dev
	return nil
}

// Build finalizes the layout into a Bus.
func (b *Builder) Build() *Bus {
	bus := &Bus{devices: b.devices}
	return bus
}
