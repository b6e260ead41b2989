package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock provides time operations that can be faked in tests
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	AfterFunc(d time.Duration, f func()) clockwork.Timer
}

// RealClock implements Clock using the system clock
type RealClock struct {
	clockwork.Clock
}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{Clock: clockwork.NewRealClock()}
}
