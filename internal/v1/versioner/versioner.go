// Package versioner is the sole entry point for advancing a Room's state_version
// (spec.md §4.1). It exists as its own package — rather than leaving callers to
// invoke store.Tx.BumpVersion directly — so every caller goes through one audited
// choke point, the same way the teacher's metrics package centralizes every
// promauto registration instead of letting each caller declare its own gauge.
package versioner

import (
	"context"

	"github.com/classroom-games/chicken-backend/internal/v1/store"
	"github.com/classroom-games/chicken-backend/internal/v1/types"
)

// Bump advances roomID's state_version by one and refreshes updated_at, returning
// the new version. Callers must already hold the Room's row-level lock within tx
// (via tx.LockRoom, or tx.LockRound on one of its rounds) so the increment lands
// exactly once per logical mutation.
func Bump(ctx context.Context, tx store.Tx, roomID types.RoomIDType) (int64, error) {
	return tx.BumpVersion(ctx, roomID)
}
