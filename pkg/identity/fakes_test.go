package identity

import (
	"context"
	"sync"
	"time"

	"github.com/adsid/adsid-go/pkg/kernel"
)

// fakeClock gives tests full control over time and timer firing, avoiding
// time.Sleep races.
type fakeClock struct {
	mu     sync.Mutex
	now    kernel.Millis
	timers []*fakeTimerEntry
}

type fakeTimerEntry struct {
	deadline kernel.Millis
	fn       func()
	fired    bool
	stopped  bool
}

func newFakeClock(start kernel.Millis) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() kernel.Millis {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimerEntry{deadline: c.now + kernel.Millis(d.Milliseconds()), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d and synchronously fires any timer
// whose deadline has passed, in the order they were armed.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += kernel.Millis(d.Milliseconds())
	var due []*fakeTimerEntry
	for _, t := range c.timers {
		if !t.fired && !t.stopped && t.deadline <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

func (t *fakeTimerEntry) Stop() bool {
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// fakeTransport hands control of the refresh RPC to the test: Refresh
// blocks until the test sends a response on responses.
type fakeTransport struct {
	requests  chan string
	responses chan RefreshResult
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		requests:  make(chan string, 8),
		responses: make(chan RefreshResult, 8),
	}
}

func (t *fakeTransport) Refresh(ctx context.Context, baseURL, refreshToken string, key []byte) (RefreshResult, error) {
	t.requests <- refreshToken
	return <-t.responses, nil
}
