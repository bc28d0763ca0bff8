package machine

import "time"

// IntervalTimer is the system-wide interval timer that drives the
// pseudoclock (§4.7): it free-runs on a fixed period, reloading itself
// in Tick, and each time it fires the interrupt handler wakes every
// process blocked on ClockWait.
type IntervalTimer struct {
	period    time.Duration
	remaining time.Duration
}

// NewIntervalTimer returns an unloaded interval timer that never fires
// until Load gives it a period (kconst.PseudoClockPeriod is the
// caller's concern).
func NewIntervalTimer() *IntervalTimer { return &IntervalTimer{} }

// Load (re)loads the timer with period d and resets its countdown —
// used once at boot and again every time it fires.
func (t *IntervalTimer) Load(d time.Duration) {
	t.period = d
	t.remaining = d
}

// Tick advances the timer by d and reports whether it fires. A fired
// timer auto-reloads to its period (the pseudoclock is free-running,
// unlike the PLT).
func (t *IntervalTimer) Tick(d time.Duration) bool {
	if t.period == 0 {
		return false
	}
	t.remaining -= d
	if t.remaining <= 0 {
		t.remaining += t.period
		return true
	}
	return false
}
