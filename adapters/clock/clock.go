// Package clock provides Clock implementations.
package clock

import (
	"sync"
	"time"

	"github.com/artpar/rewardctl/ports"
)

// Real uses the system clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

var _ ports.Clock = Real{}

// Fake is a manual clock for tests. After never blocks: it advances the
// fake time by d and fires immediately, so polling loops run without sleeping.
type Fake struct {
	mu      sync.Mutex
	current time.Time
	waits   []time.Duration
}

// NewFake creates a fake clock set to t.
func NewFake(t time.Time) *Fake {
	return &Fake{current: t}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// After advances the clock by d and returns a channel holding the new time.
func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	f.current = f.current.Add(d)
	f.waits = append(f.waits, d)
	now := f.current
	f.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// Advance moves the fake time forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.Add(d)
}

// Waits returns the durations passed to After, in call order.
func (f *Fake) Waits() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.waits))
	copy(out, f.waits)
	return out
}

var _ ports.Clock = (*Fake)(nil)
