package replay

import (
	"context"
	"log/slog"
)

// FailoverGuard prefers a distributed primary and degrades to a local
// fallback when the primary errors, matching the rate limiter's posture: a
// store outage must never fail a verification request. The trade-off is that
// during an outage replay state is per-instance only.
type FailoverGuard struct {
	primary  Guard
	fallback Guard
	logger   *slog.Logger
}

// NewFailover wires a primary guard with a local fallback. logger may be nil.
func NewFailover(primary, fallback Guard, logger *slog.Logger) *FailoverGuard {
	if logger == nil {
		logger = slog.Default()
	}
	return &FailoverGuard{primary: primary, fallback: fallback, logger: logger}
}

func (g *FailoverGuard) IsUsed(ctx context.Context, storeID, userID, code string) (bool, error) {
	used, err := g.primary.IsUsed(ctx, storeID, userID, code)
	if err != nil {
		g.logger.Warn("replay guard primary unavailable, using fallback", "op", "is_used", "error", err)
		return g.fallback.IsUsed(ctx, storeID, userID, code)
	}
	return used, nil
}

func (g *FailoverGuard) MarkUsed(ctx context.Context, storeID, userID, code string) error {
	if err := g.primary.MarkUsed(ctx, storeID, userID, code); err != nil {
		g.logger.Warn("replay guard primary unavailable, using fallback", "op", "mark_used", "error", err)
		return g.fallback.MarkUsed(ctx, storeID, userID, code)
	}
	// Mirror into the fallback so a mid-flight failover still sees the code.
	_ = g.fallback.MarkUsed(ctx, storeID, userID, code)
	return nil
}

func (g *FailoverGuard) CheckAndMark(ctx context.Context, storeID, userID, code string) (bool, error) {
	used, err := g.primary.CheckAndMark(ctx, storeID, userID, code)
	if err != nil {
		g.logger.Warn("replay guard primary unavailable, using fallback", "op", "check_and_mark", "error", err)
		return g.fallback.CheckAndMark(ctx, storeID, userID, code)
	}
	// Keep the local view warm for failover continuity.
	_, _ = g.fallback.CheckAndMark(ctx, storeID, userID, code)
	return used, nil
}
