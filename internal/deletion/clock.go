package deletion

import "time"

type Timer interface {
	// Stop reports whether the call stopped the timer before it fired.
	Stop() bool
}

// Clock starts grace timers. Tests swap in a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

var SystemClock Clock = systemClock{}
