package mocks

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcoot/topten/internal/dependencies/clock"
)

// MockClock is a fake Clock for testing. Timers fire when the clock is advanced past them.
type MockClock struct {
	*clockwork.FakeClock
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{FakeClock: clockwork.NewFakeClockAt(t)}
}

// OffsetClock reports another clock's time shifted by a fixed offset.
// Tests use it to model a store whose clock disagrees with the client's.
type OffsetClock struct {
	clock.Clock
	Offset time.Duration
}

// Now returns the wrapped clock's time plus the offset
func (c *OffsetClock) Now() time.Time {
	return c.Clock.Now().Add(c.Offset)
}
