package funnel

import (
	"time"

	"github.com/Proton-105/funnel-bot/internal/state"
)

// Clock schedules retention timers. Implementations must make Timer.Stop
// safe to call after the callback already ran.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) state.Timer
}

// SystemClock is the wall clock backed by time.AfterFunc.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// AfterFunc runs f in its own goroutine after d.
func (SystemClock) AfterFunc(d time.Duration, f func()) state.Timer {
	return time.AfterFunc(d, f)
}
