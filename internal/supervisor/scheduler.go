package supervisor

import "time"

// Scheduler arms one-shot timers.
type Scheduler interface {
	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a handle to an armed one-shot timer.
type Timer interface {
	// Stop disarms the timer. It returns false if the timer already fired
	// or was already stopped.
	Stop() bool
}

// SystemScheduler arms timers on the runtime clock.
type SystemScheduler struct{}

// AfterFunc implements Scheduler using time.AfterFunc.
func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
