// Package testutil holds test doubles and the integration-test bootstrap
// shared by the relay packages.
package testutil

import (
	"sync"
	"time"

	"github.com/Sokol111/ecommerce-relay/pkg/relay"
)

// FixedClock is a settable clock. It only moves when told to.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock starts at t, truncated to microseconds like relay.SystemClock.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{now: t.UTC().Truncate(time.Microsecond)}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC().Truncate(time.Microsecond)
}

// Clock returns c as a relay.Clock.
func (c *FixedClock) Clock() relay.Clock {
	return c.Now
}
