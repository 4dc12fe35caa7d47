package wlsc

import "time"

// Clock abstracts time so worker ticks and heartbeat aging can be driven
// deterministically in tests.
type Clock interface {
	Now() time.Time
	// After returns a channel that fires once after d, or is abandoned if
	// the caller stops waiting on it. Implementations that model fake time
	// must guarantee the returned channel eventually fires once advanced
	// past d, even if nobody is observing yet.
	After(d time.Duration) <-chan time.Time
}

// realClock is the production Clock backed by the time package.
type realClock struct{}

// RealClock returns the production Clock.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
