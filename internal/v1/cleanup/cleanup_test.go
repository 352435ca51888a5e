package cleanup_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/classroom-games/chicken-backend/internal/v1/cleanup"
	"github.com/classroom-games/chicken-backend/internal/v1/store"
	"github.com/classroom-games/chicken-backend/internal/v1/store/memstore"
	"github.com/classroom-games/chicken-backend/internal/v1/types"
)

func insertRoomWithAge(t *testing.T, db *memstore.Store, status types.RoomStatus, age time.Duration) types.RoomIDType {
	t.Helper()
	ctx := context.Background()
	var id types.RoomIDType
	require.NoError(t, db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		room := &types.Room{Code: "ABCDEF", Status: status, StateVersion: 1}
		if err := tx.InsertRoom(ctx, room); err != nil {
			return err
		}
		id = room.ID
		return nil
	}))

	// Backdate updated_at by forcing a version bump and then rewinding the clock
	// is not available through the Tx interface, so age is asserted indirectly by
	// threshold choice in the tests below; this helper exists for readability.
	_ = age
	return id
}

func TestSweepOnce_LeavesFreshRoomsAlone(t *testing.T) {
	db := memstore.New()
	insertRoomWithAge(t, db, types.RoomStatusWaiting, 0)

	c := cleanup.New(db, time.Hour, time.Hour, 24*time.Hour)
	deleted, err := c.SweepOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, deleted)
}

func TestSweepOnce_DeletesImmediatelyWithZeroThreshold(t *testing.T) {
	db := memstore.New()
	insertRoomWithAge(t, db, types.RoomStatusFinished, 0)

	// A one-nanosecond threshold means "anything older than essentially now"
	// qualifies as stale, exercising the FINISHED branch of the policy.
	c := cleanup.New(db, time.Hour, time.Hour, time.Nanosecond)
	time.Sleep(2 * time.Millisecond)

	deleted, err := c.SweepOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, deleted)
}

func TestStop_WithoutStartIsNoop(t *testing.T) {
	db := memstore.New()
	c := cleanup.New(db, time.Hour, time.Hour, time.Hour)
	require.NoError(t, c.Stop(context.Background()))
}

func TestStartStop_StopsCleanly(t *testing.T) {
	db := memstore.New()
	c := cleanup.New(db, time.Millisecond, time.Hour, time.Hour)
	c.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
}
