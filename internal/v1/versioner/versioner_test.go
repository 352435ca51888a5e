package versioner_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classroom-games/chicken-backend/internal/v1/store"
	"github.com/classroom-games/chicken-backend/internal/v1/store/memstore"
	"github.com/classroom-games/chicken-backend/internal/v1/types"
	"github.com/classroom-games/chicken-backend/internal/v1/versioner"
)

func TestBump_Increments(t *testing.T) {
	db := memstore.New()
	ctx := context.Background()

	var roomID types.RoomIDType
	require.NoError(t, db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		room := &types.Room{Code: "ABC123", Status: types.RoomStatusWaiting, StateVersion: 1}
		if err := tx.InsertRoom(ctx, room); err != nil {
			return err
		}
		roomID = room.ID
		return nil
	}))

	require.NoError(t, db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.LockRoom(ctx, roomID); err != nil {
			return err
		}
		v, err := versioner.Bump(ctx, tx, roomID)
		require.NoError(t, err)
		require.Equal(t, int64(2), v)
		return nil
	}))

	require.NoError(t, db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		room, err := tx.GetRoomByID(ctx, roomID)
		require.NoError(t, err)
		require.Equal(t, int64(2), room.StateVersion)
		return nil
	}))
}
