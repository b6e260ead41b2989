package resilience

import (
	"sync"
	"time"

	"github.com/mcoot/topten/internal/dependencies/clock"
	"github.com/mcoot/topten/internal/model"
)

type limiterKey struct {
	code     model.RoomCode
	playerID model.PlayerID
}

type actionWindow struct {
	start   time.Time
	count   int
	flagged bool
}

// Decision is the limiter's verdict on one action
type Decision struct {
	Allowed bool
	// Flagged is set only on the action that first crossed the threshold in this window
	Flagged bool
	Count   int
	ResetAt time.Time
}

// RateLimiter counts actions per player in fixed windows. It is advisory:
// each process keeps its own counts and persists flags on the room.
type RateLimiter struct {
	clock     clock.Clock
	window    time.Duration
	threshold int

	mu        sync.Mutex
	windows   map[limiterKey]*actionWindow
	lastPrune time.Time
}

// NewRateLimiter creates a limiter allowing threshold actions per window
func NewRateLimiter(clk clock.Clock, window time.Duration, threshold int) *RateLimiter {
	return &RateLimiter{
		clock:     clk,
		window:    window,
		threshold: threshold,
		windows:   make(map[limiterKey]*actionWindow),
	}
}

// Record counts one action by a player
func (l *RateLimiter) Record(code model.RoomCode, playerID model.PlayerID) Decision {
	now := l.clock.Now()
	key := limiterKey{code: code, playerID: playerID}

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastPrune) >= l.window {
		l.prune(now)
	}

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		w = &actionWindow{start: now}
		l.windows[key] = w
	}
	w.count++

	d := Decision{
		Allowed: w.count <= l.threshold,
		Count:   w.count,
		ResetAt: w.start.Add(l.window),
	}
	if !d.Allowed && !w.flagged {
		w.flagged = true
		d.Flagged = true
	}
	return d
}

// Restricted reports whether a player is over the threshold in the current window
func (l *RateLimiter) Restricted(code model.RoomCode, playerID model.PlayerID) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[limiterKey{code: code, playerID: playerID}]
	if !ok || now.Sub(w.start) >= l.window {
		return false
	}
	return w.count > l.threshold
}

// prune drops expired windows, including those of rooms that vanished
// without a Forget. Callers hold mu.
func (l *RateLimiter) prune(now time.Time) {
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, key)
		}
	}
	l.lastPrune = now
}

// Tracked returns the number of live counters
func (l *RateLimiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Forget drops all counters for a room
func (l *RateLimiter) Forget(code model.RoomCode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.windows {
		if key.code == code {
			delete(l.windows, key)
		}
	}
}
