// Package replay remembers which one-time codes have already been accepted
// so the engine's previous-window tolerance cannot be turned into a replay
// window. Only a one-way hash of (storeID, userID, code) is ever kept, so a
// memory inspection cannot recover codes that are still valid.
package replay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"popcheck/internal/totp"
)

// TTL must comfortably exceed the two-window acceptance span so a code cannot
// be replayed across the boundary where the previous-window check still
// accepts it. Two windows plus a 30s safety buffer.
const TTL = 2*totp.Window + 30*time.Second

// Guard is the replay-protection contract. CheckAndMark is the atomic form
// services should prefer: it reports whether the code was already consumed
// and, if not, consumes it in the same step.
type Guard interface {
	IsUsed(ctx context.Context, storeID, userID, code string) (bool, error)
	MarkUsed(ctx context.Context, storeID, userID, code string) error
	CheckAndMark(ctx context.Context, storeID, userID, code string) (used bool, err error)
}

// hashKey derives the storage key. The raw code never persists.
func hashKey(storeID, userID, code string) string {
	sum := sha256.Sum256([]byte(storeID + ":" + userID + ":" + code))
	return hex.EncodeToString(sum[:])
}
