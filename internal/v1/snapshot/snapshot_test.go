package snapshot_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classroom-games/chicken-backend/internal/v1/snapshot"
	"github.com/classroom-games/chicken-backend/internal/v1/store"
	"github.com/classroom-games/chicken-backend/internal/v1/store/memstore"
	"github.com/classroom-games/chicken-backend/internal/v1/types"
)

func TestBuild_NoUpdateWhenClientIsCurrent(t *testing.T) {
	db := memstore.New()
	ctx := context.Background()
	var roomID types.RoomIDType
	require.NoError(t, db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		room := &types.Room{Code: "ABCDEF", Status: types.RoomStatusWaiting, StateVersion: 3}
		if err := tx.InsertRoom(ctx, room); err != nil {
			return err
		}
		roomID = room.ID
		return nil
	}))

	b := snapshot.New(db)
	snap, err := b.Build(ctx, roomID, 3, nil)
	require.NoError(t, err)
	require.False(t, snap.HasUpdate)
	require.Equal(t, int64(3), snap.Version)
	require.Nil(t, snap.Data)
}

func TestBuild_PersonalizedCompletedRound(t *testing.T) {
	db := memstore.New()
	ctx := context.Background()

	var roomID types.RoomIDType
	var alice, bob types.PlayerIDType
	require.NoError(t, db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		room := &types.Room{Code: "ABCDEF", Status: types.RoomStatusPlaying, CurrentRound: 1, StateVersion: 5}
		if err := tx.InsertRoom(ctx, room); err != nil {
			return err
		}
		roomID = room.ID

		a := &types.Player{RoomID: roomID, Nickname: "Alice", DisplayName: "Alice"}
		b := &types.Player{RoomID: roomID, Nickname: "Bob", DisplayName: "Bob"}
		if err := tx.InsertPlayer(ctx, a); err != nil {
			return err
		}
		if err := tx.InsertPlayer(ctx, b); err != nil {
			return err
		}
		alice, bob = a.ID, b.ID

		rnd := &types.Round{RoomID: roomID, RoundNumber: 1, Phase: types.RoundPhaseNormal, Status: types.RoundStatusCompleted}
		if err := tx.InsertRound(ctx, rnd); err != nil {
			return err
		}
		if err := tx.InsertPairs(ctx, []types.Pair{{RoundID: rnd.ID, P1: alice, P2: bob}}); err != nil {
			return err
		}

		aliceAction := &types.Action{RoundID: rnd.ID, PlayerID: alice, Choice: types.ChoiceAccelerate}
		if err := tx.InsertAction(ctx, aliceAction); err != nil {
			return err
		}
		bobAction := &types.Action{RoundID: rnd.ID, PlayerID: bob, Choice: types.ChoiceTurn}
		if err := tx.InsertAction(ctx, bobAction); err != nil {
			return err
		}
		if err := tx.UpdateActionPayoff(ctx, aliceAction.ID, 10); err != nil {
			return err
		}
		return tx.UpdateActionPayoff(ctx, bobAction.ID, -3)
	}))

	b := snapshot.New(db)
	snap, err := b.Build(ctx, roomID, 0, &alice)
	require.NoError(t, err)
	require.True(t, snap.HasUpdate)
	require.NotNil(t, snap.Data.Round)
	require.NotNil(t, snap.Data.Round.YourChoice)
	require.Equal(t, types.ChoiceAccelerate, *snap.Data.Round.YourChoice)
	require.Equal(t, types.ChoiceTurn, *snap.Data.Round.OpponentChoice)
	require.Equal(t, 10, *snap.Data.Round.YourPayoff)
	require.Equal(t, -3, *snap.Data.Round.OpponentPayoff)
	require.Equal(t, "Bob", *snap.Data.Round.OpponentName)
}
