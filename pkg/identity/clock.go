package identity

import (
	"time"

	"github.com/adsid/adsid-go/pkg/kernel"
)

// Clock abstracts wall-clock time so the Manager is deterministically
// testable: classification and timer arming read the clock through this
// interface rather than calling time.Now directly.
type Clock interface {
	// Now returns the current time.
	Now() kernel.Millis
	// AfterFunc schedules fn to run after d and returns a handle that
	// cancels the scheduled call.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is the cancellation handle returned by Clock.AfterFunc.
type Timer interface {
	// Stop cancels the timer. Returns false if it already fired or was
	// already stopped.
	Stop() bool
}

// SystemClock is the production Clock backed by the real wall clock and
// the runtime timer wheel.
type SystemClock struct{}

func (SystemClock) Now() kernel.Millis {
	return kernel.FromTime(time.Now())
}

func (SystemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return &systemTimer{t: time.AfterFunc(d, fn)}
}

type systemTimer struct {
	t *time.Timer
}

func (s *systemTimer) Stop() bool {
	return s.t.Stop()
}
