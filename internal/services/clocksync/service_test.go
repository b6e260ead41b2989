package clocksync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/topten/internal/dependencies/mocks"
	"github.com/mcoot/topten/internal/storage/memory"
	"github.com/mcoot/topten/internal/testutil"
)

// flakyStore serves temp writes from a fixed server time and can be told to fail
type flakyStore struct {
	serverTime time.Time
	fail       bool
	writes     int
	deletes    int
}

func (f *flakyStore) WriteTemp(ctx context.Context, key string) (time.Time, error) {
	f.writes++
	if f.fail {
		return time.Time{}, errors.New("store unreachable")
	}
	return f.serverTime, nil
}

func (f *flakyStore) DeleteTemp(ctx context.Context, key string) error {
	f.deletes++
	return nil
}

type SynchronizerSuite struct {
	suite.Suite
	clock *mocks.MockClock
	ctx   context.Context
}

func TestSynchronizerSuite(t *testing.T) {
	suite.Run(t, new(SynchronizerSuite))
}

func (s *SynchronizerSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.ctx = context.Background()
}

func (s *SynchronizerSuite) TestEstimateOffsetAgainstSkewedStore() {
	storeClock := &mocks.OffsetClock{Clock: s.clock, Offset: 1500 * time.Millisecond}
	store := memory.New(memory.WithClock(storeClock))
	sync := New(store, s.clock, DefaultConfig(), testutil.NopLogger())

	offset := sync.EstimateOffset(s.ctx)

	s.Equal(1500*time.Millisecond, offset)
	s.Equal(0, store.TempCount(), "samples should be cleaned up")
}

func (s *SynchronizerSuite) TestEstimateOffsetIsCached() {
	store := &flakyStore{serverTime: s.clock.Now().Add(2 * time.Second)}
	sync := New(store, s.clock, DefaultConfig(), testutil.NopLogger())

	first := sync.EstimateOffset(s.ctx)
	s.Equal(3, store.writes)
	s.Equal(3, store.deletes)

	s.clock.Advance(10 * time.Second)
	second := sync.EstimateOffset(s.ctx)
	s.Equal(first, second)
	s.Equal(3, store.writes, "cached estimate should not sample")
}

func (s *SynchronizerSuite) TestEstimateOffsetResamplesAfterTTL() {
	store := &flakyStore{serverTime: s.clock.Now().Add(2 * time.Second)}
	sync := New(store, s.clock, DefaultConfig(), testutil.NopLogger())

	_ = sync.EstimateOffset(s.ctx)
	s.clock.Advance(31 * time.Second)
	_ = sync.EstimateOffset(s.ctx)

	s.Equal(6, store.writes)
}

func (s *SynchronizerSuite) TestInvalidateForcesResample() {
	store := &flakyStore{serverTime: s.clock.Now()}
	sync := New(store, s.clock, DefaultConfig(), testutil.NopLogger())

	_ = sync.EstimateOffset(s.ctx)
	sync.Invalidate()
	_ = sync.EstimateOffset(s.ctx)

	s.Equal(6, store.writes)
}

func (s *SynchronizerSuite) TestFailureFallsBackToZero() {
	store := &flakyStore{fail: true}
	sync := New(store, s.clock, DefaultConfig(), testutil.NopLogger())

	s.Equal(time.Duration(0), sync.EstimateOffset(s.ctx))
}

func (s *SynchronizerSuite) TestFailureFallsBackToLastKnownOffset() {
	store := &flakyStore{serverTime: s.clock.Now().Add(4 * time.Second)}
	sync := New(store, s.clock, DefaultConfig(), testutil.NopLogger())
	s.Equal(4*time.Second, sync.EstimateOffset(s.ctx))

	store.fail = true
	sync.Invalidate()
	s.Equal(4*time.Second, sync.EstimateOffset(s.ctx))
}

func (s *SynchronizerSuite) TestAuthoritativeNow() {
	store := &flakyStore{serverTime: s.clock.Now().Add(-3 * time.Second)}
	sync := New(store, s.clock, DefaultConfig(), testutil.NopLogger())

	s.Equal(s.clock.Now().Add(-3*time.Second), sync.AuthoritativeNow(s.ctx))
}

// Pure function tests

func (s *SynchronizerSuite) TestOffsetUsesRoundTripMidpoint() {
	before := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	after := before.Add(200 * time.Millisecond)
	server := before.Add(600 * time.Millisecond)

	s.Equal(500*time.Millisecond, Offset(server, before, after))
}

func (s *SynchronizerSuite) TestTimeRemaining() {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	s.Equal(60*time.Second, TimeRemaining(start, 60, 0, start))
	s.Equal(45*time.Second, TimeRemaining(start, 60, 0, start.Add(15*time.Second)))
	// Local clock is 5s behind the store
	s.Equal(40*time.Second, TimeRemaining(start, 60, 5*time.Second, start.Add(15*time.Second)))
	s.Equal(time.Duration(0), TimeRemaining(start, 60, 0, start.Add(60*time.Second)))
	s.Equal(time.Duration(0), TimeRemaining(start, 60, 0, start.Add(time.Hour)))
}

func (s *SynchronizerSuite) TestTimeRemainingIsNonIncreasing() {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	prev := TimeRemaining(start, 30, 0, start.Add(-5*time.Second))
	for step := 0; step < 100; step++ {
		now := start.Add(time.Duration(step) * 500 * time.Millisecond)
		remaining := TimeRemaining(start, 30, 0, now)
		s.LessOrEqual(remaining, prev)
		s.GreaterOrEqual(remaining, time.Duration(0))
		prev = remaining
	}
}
