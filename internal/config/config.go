// Package config loads the boot-time configuration cmd/pandos reads
// before wiring up a Kernel: user-process count, scheduling timing, and
// the device/backing-store layout, following internal/bundle's
// Metadata/BootConfig pattern (load from YAML, normalize zero values to
// the kconst defaults).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tinyrange/pandos/internal/kconst"
)

// Filename is the default boot configuration file name, parallel to
// the teacher's ccbundle.yaml.
const Filename = "pandos.yaml"

// Boot describes everything cmd/pandos needs to stand up a Kernel
// (§SUPPLEMENTED and the AMBIENT STACK configuration entry): the
// user-process count, scheduling timing, and the device/backing-store
// layout. Arena capacities (process table, message pool, swap pool)
// are kconst compile-time constants, not configured here. Zero-valued
// fields are filled in by normalize() from kconst.
type Boot struct {
	Version int    `yaml:"version"`
	Name    string `yaml:"name"`

	MaxUserProcesses int `yaml:"maxUserProcesses"`

	TimeSliceMS         int `yaml:"timeSliceMs"`
	PseudoClockPeriodMS int `yaml:"pseudoClockPeriodMs"`

	Devices      DeviceConfig      `yaml:"devices"`
	BackingStore BackingStoreConfig `yaml:"backingStore"`
}

// DeviceConfig describes how many terminal/printer pairs to attach —
// one pair per user process is the common case, but the count is
// configurable for tests that boot fewer uprocs than UprocMax.
type DeviceConfig struct {
	Terminals int `yaml:"terminals"`
	Printers  int `yaml:"printers"`
}

// BackingStoreConfig points at the on-disk images the flash devices
// are seeded from, one file per ASID, loaded with devices.Flash.LoadBlock.
type BackingStoreConfig struct {
	ImageDir string `yaml:"imageDir"`
}

// DefaultImageDir is used when BackingStore.ImageDir is unset.
const DefaultImageDir = "images"

// TimeSlice returns the configured scheduling quantum as a Duration.
func (b *Boot) TimeSlice() time.Duration {
	return time.Duration(b.TimeSliceMS) * time.Millisecond
}

// PseudoClockPeriod returns the configured pseudoclock period as a Duration.
func (b *Boot) PseudoClockPeriod() time.Duration {
	return time.Duration(b.PseudoClockPeriodMS) * time.Millisecond
}

func (b *Boot) normalize() {
	if b.Version == 0 {
		b.Version = 1
	}
	if b.Name == "" {
		b.Name = "pandos"
	}
	if b.MaxUserProcesses == 0 {
		b.MaxUserProcesses = kconst.UprocMax
	}
	if b.TimeSliceMS == 0 {
		b.TimeSliceMS = int(kconst.TimeSlice / time.Millisecond)
	}
	if b.PseudoClockPeriodMS == 0 {
		b.PseudoClockPeriodMS = int(kconst.PseudoClockPeriod / time.Millisecond)
	}
	if b.Devices.Terminals == 0 {
		b.Devices.Terminals = kconst.UprocMax
	}
	if b.Devices.Printers == 0 {
		b.Devices.Printers = kconst.UprocMax
	}
	if b.BackingStore.ImageDir == "" {
		b.BackingStore.ImageDir = DefaultImageDir
	}
}

// Load reads and normalizes a boot configuration file.
func Load(path string) (Boot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Boot{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var b Boot
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Boot{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	b.normalize()
	return b, nil
}

// Default returns a normalized configuration with no on-disk file,
// for tests and for cmd/pandos's no-config-file fallback.
func Default() Boot {
	var b Boot
	b.normalize()
	return b
}

// WriteTemplate writes a starter boot configuration, mirroring the
// teacher's bundle.WriteTemplate.
func WriteTemplate(path string, b Boot) error {
	b.normalize()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(&b); err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}
	return enc.Close()
}
