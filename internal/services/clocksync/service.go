package clocksync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/topten/internal/dependencies/clock"
)

// TempStore is the part of the store the synchronizer samples against
type TempStore interface {
	WriteTemp(ctx context.Context, key string) (time.Time, error)
	DeleteTemp(ctx context.Context, key string) error
}

// Config holds synchronizer settings
type Config struct {
	// Samples is how many round trips are averaged per estimate
	Samples int
	// CacheTTL is how long an estimate is reused before sampling again
	CacheTTL time.Duration
}

// DefaultConfig returns the default synchronizer configuration
func DefaultConfig() Config {
	return Config{
		Samples:  3,
		CacheTTL: 30 * time.Second,
	}
}

// Synchronizer estimates the offset between the local clock and the store's clock
type Synchronizer struct {
	store  TempStore
	clock  clock.Clock
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	offset    time.Duration
	sampledAt time.Time
	hasSample bool
}

// New creates a new Synchronizer
func New(store TempStore, clk clock.Clock, cfg Config, logger *slog.Logger) *Synchronizer {
	if cfg.Samples <= 0 {
		cfg.Samples = DefaultConfig().Samples
	}
	return &Synchronizer{
		store:  store,
		clock:  clk,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "clock-sync")),
	}
}

// EstimateOffset returns the store clock minus the local clock. A cached estimate is
// reused within the cache TTL. Sampling failures fall back to the last known offset
// (or zero) so gameplay never blocks on the estimate.
func (s *Synchronizer) EstimateOffset(ctx context.Context) time.Duration {
	s.mu.Lock()
	if s.hasSample && s.clock.Now().Sub(s.sampledAt) < s.cfg.CacheTTL {
		offset := s.offset
		s.mu.Unlock()
		return offset
	}
	fallback := s.offset
	s.mu.Unlock()

	var total time.Duration
	taken := 0
	for i := 0; i < s.cfg.Samples; i++ {
		offset, err := s.sample(ctx)
		if err != nil {
			s.logger.Warn("clock sample failed",
				slog.Int("sample", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		total += offset
		taken++
	}

	if taken == 0 {
		return fallback
	}

	estimate := total / time.Duration(taken)

	s.mu.Lock()
	s.offset = estimate
	s.sampledAt = s.clock.Now()
	s.hasSample = true
	s.mu.Unlock()

	s.logger.Debug("clock offset estimated",
		slog.Duration("offset", estimate),
		slog.Int("samples", taken),
	)
	return estimate
}

// sample performs one write/read round trip against the store
func (s *Synchronizer) sample(ctx context.Context) (time.Duration, error) {
	key := "clock-sample-" + uuid.NewString()

	before := s.clock.Now()
	serverTime, err := s.store.WriteTemp(ctx, key)
	after := s.clock.Now()
	if err != nil {
		return 0, err
	}

	if err := s.store.DeleteTemp(ctx, key); err != nil {
		s.logger.Warn("failed to delete clock sample",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	return Offset(serverTime, before, after), nil
}

// AuthoritativeNow returns the local time corrected by the estimated offset
func (s *Synchronizer) AuthoritativeNow(ctx context.Context) time.Time {
	offset := s.EstimateOffset(ctx)
	return s.clock.Now().Add(offset)
}

// Now returns the local clock's time
func (s *Synchronizer) Now() time.Time {
	return s.clock.Now()
}

// LastOffset returns the most recent estimate without sampling
func (s *Synchronizer) LastOffset() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// Invalidate drops the cached estimate so the next call samples again
func (s *Synchronizer) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasSample = false
}

// Offset computes serverTime minus the midpoint of the local round trip
func Offset(serverTime, localBefore, localAfter time.Time) time.Duration {
	midpoint := localBefore.Add(localAfter.Sub(localBefore) / 2)
	return serverTime.Sub(midpoint)
}

// TimeRemaining returns how much of a turn is left, never negative.
// now is the local clock; offset converts it to the store's clock.
func TimeRemaining(turnStart time.Time, limitSeconds int, offset time.Duration, now time.Time) time.Duration {
	limit := time.Duration(limitSeconds) * time.Second
	elapsed := now.Add(offset).Sub(turnStart)
	remaining := limit - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
