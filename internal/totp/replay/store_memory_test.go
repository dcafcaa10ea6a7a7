package replay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type MemoryGuardSuite struct {
	suite.Suite
	clock time.Time
	guard *MemoryGuard
	ctx   context.Context
}

func TestMemoryGuardSuite(t *testing.T) {
	suite.Run(t, new(MemoryGuardSuite))
}

func (s *MemoryGuardSuite) SetupTest() {
	s.clock = time.Unix(1_700_000_000, 0)
	s.guard = NewMemory(WithClock(func() time.Time { return s.clock }))
	s.ctx = context.Background()
}

func (s *MemoryGuardSuite) advance(d time.Duration) {
	s.clock = s.clock.Add(d)
}

func (s *MemoryGuardSuite) TestMarkThenIsUsed() {
	used, err := s.guard.IsUsed(s.ctx, "popup-1", "user-1", "482913")
	s.Require().NoError(err)
	s.False(used)

	s.Require().NoError(s.guard.MarkUsed(s.ctx, "popup-1", "user-1", "482913"))

	used, err = s.guard.IsUsed(s.ctx, "popup-1", "user-1", "482913")
	s.Require().NoError(err)
	s.True(used)
}

func (s *MemoryGuardSuite) TestScopedToExactTriple() {
	s.Require().NoError(s.guard.MarkUsed(s.ctx, "popup-1", "user-1", "482913"))

	// Same code, different user
	used, err := s.guard.IsUsed(s.ctx, "popup-1", "user-2", "482913")
	s.Require().NoError(err)
	s.False(used)

	// Same code and user, different store
	used, err = s.guard.IsUsed(s.ctx, "popup-2", "user-1", "482913")
	s.Require().NoError(err)
	s.False(used)
}

func (s *MemoryGuardSuite) TestCheckAndMarkIsAtomic() {
	used, err := s.guard.CheckAndMark(s.ctx, "popup-1", "user-1", "482913")
	s.Require().NoError(err)
	s.False(used)

	used, err = s.guard.CheckAndMark(s.ctx, "popup-1", "user-1", "482913")
	s.Require().NoError(err)
	s.True(used)
}

func (s *MemoryGuardSuite) TestEntryExpiresAfterTTL() {
	s.Require().NoError(s.guard.MarkUsed(s.ctx, "popup-1", "user-1", "482913"))

	// Inside the TTL the entry holds even past the TOTP acceptance span
	s.advance(TTL)
	used, err := s.guard.IsUsed(s.ctx, "popup-1", "user-1", "482913")
	s.Require().NoError(err)
	s.True(used)

	s.advance(time.Second)
	used, err = s.guard.IsUsed(s.ctx, "popup-1", "user-1", "482913")
	s.Require().NoError(err)
	s.False(used)
}

func (s *MemoryGuardSuite) TestSweepEvictsExpiredEntries() {
	s.Require().NoError(s.guard.MarkUsed(s.ctx, "popup-1", "user-1", "111111"))
	s.Require().NoError(s.guard.MarkUsed(s.ctx, "popup-1", "user-2", "222222"))
	s.Equal(2, s.guard.Len())

	// Past the TTL, the next call over the sweep interval cleans up
	s.advance(TTL + time.Minute)
	_, err := s.guard.IsUsed(s.ctx, "popup-1", "user-3", "333333")
	s.Require().NoError(err)
	s.Equal(0, s.guard.Len())
}

func (s *MemoryGuardSuite) TestSweepFrequencyIsBounded() {
	s.Require().NoError(s.guard.MarkUsed(s.ctx, "popup-1", "user-1", "111111"))

	// Entry is expired but the sweep interval hasn't elapsed since the last
	// sweep, so it lingers (IsUsed still answers correctly via its own check).
	guard := NewMemory(
		WithClock(func() time.Time { return s.clock }),
		WithTTL(time.Second),
		WithSweepInterval(time.Hour),
	)
	s.Require().NoError(guard.MarkUsed(s.ctx, "popup-1", "user-1", "111111"))
	s.advance(2 * time.Second)

	used, err := guard.IsUsed(s.ctx, "popup-1", "user-1", "111111")
	s.Require().NoError(err)
	s.False(used)
	s.Equal(1, guard.Len())
}
