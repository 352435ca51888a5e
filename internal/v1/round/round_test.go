package round_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classroom-games/chicken-backend/internal/v1/round"
	"github.com/classroom-games/chicken-backend/internal/v1/store"
	"github.com/classroom-games/chicken-backend/internal/v1/store/memstore"
	"github.com/classroom-games/chicken-backend/internal/v1/types"
)

type fixture struct {
	db       *memstore.Store
	roomID   types.RoomIDType
	alice    types.PlayerIDType
	bob      types.PlayerIDType
	roundID  types.RoundIDType
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memstore.New()
	ctx := context.Background()

	f := &fixture{db: db}
	require.NoError(t, db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		room := &types.Room{Code: "ABCDEF", Status: types.RoomStatusPlaying, CurrentRound: 1, StateVersion: 1}
		if err := tx.InsertRoom(ctx, room); err != nil {
			return err
		}
		f.roomID = room.ID

		alice := &types.Player{RoomID: room.ID, Nickname: "Alice", DisplayName: "Alice"}
		bob := &types.Player{RoomID: room.ID, Nickname: "Bob", DisplayName: "Bob"}
		if err := tx.InsertPlayer(ctx, alice); err != nil {
			return err
		}
		if err := tx.InsertPlayer(ctx, bob); err != nil {
			return err
		}
		f.alice, f.bob = alice.ID, bob.ID

		rnd := &types.Round{RoomID: room.ID, RoundNumber: 1, Phase: types.RoundPhaseNormal, Status: types.RoundStatusWaitingActions}
		if err := tx.InsertRound(ctx, rnd); err != nil {
			return err
		}
		f.roundID = rnd.ID

		return tx.InsertPairs(ctx, []types.Pair{{RoundID: rnd.ID, P1: alice.ID, P2: bob.ID}})
	}))
	return f
}

func (f *fixture) getRound(t *testing.T) *types.Round {
	t.Helper()
	var rnd *types.Round
	require.NoError(t, f.db.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		r, err := tx.GetRound(ctx, f.roomID, 1)
		rnd = r
		return err
	}))
	return rnd
}

func (f *fixture) roomVersion(t *testing.T) int64 {
	t.Helper()
	var v int64
	require.NoError(t, f.db.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		r, err := tx.GetRoomByID(ctx, f.roomID)
		if err != nil {
			return err
		}
		v = r.StateVersion
		return nil
	}))
	return v
}

func TestSubmitAction_FinalizesOnLastSubmission(t *testing.T) {
	f := newFixture(t)
	mgr := round.New(f.db)
	ctx := context.Background()

	before := f.roomVersion(t)
	require.NoError(t, mgr.SubmitAction(ctx, f.roomID, 1, f.alice, types.ChoiceAccelerate))
	require.NoError(t, mgr.SubmitAction(ctx, f.roomID, 1, f.bob, types.ChoiceTurn))

	rnd := f.getRound(t)
	require.Equal(t, types.RoundStatusReadyToPublish, rnd.Status)
	require.Greater(t, f.roomVersion(t), before)

	require.NoError(t, f.db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		aliceAction, err := tx.GetAction(ctx, f.roundID, f.alice)
		if err != nil {
			return err
		}
		require.NotNil(t, aliceAction.Payoff)
		require.Equal(t, 10, *aliceAction.Payoff)

		bobAction, err := tx.GetAction(ctx, f.roundID, f.bob)
		if err != nil {
			return err
		}
		require.NotNil(t, bobAction.Payoff)
		require.Equal(t, -3, *bobAction.Payoff)
		return nil
	}))
}

func TestSubmitAction_IdempotentRepeat(t *testing.T) {
	f := newFixture(t)
	mgr := round.New(f.db)
	ctx := context.Background()

	require.NoError(t, mgr.SubmitAction(ctx, f.roomID, 1, f.alice, types.ChoiceAccelerate))
	v1 := f.roomVersion(t)

	// Repeat with the same choice: no-op, no version bump.
	require.NoError(t, mgr.SubmitAction(ctx, f.roomID, 1, f.alice, types.ChoiceAccelerate))
	require.Equal(t, v1, f.roomVersion(t))

	// Repeat with a different choice: stored value wins, still no error, no bump.
	require.NoError(t, mgr.SubmitAction(ctx, f.roomID, 1, f.alice, types.ChoiceTurn))
	require.Equal(t, v1, f.roomVersion(t))

	require.NoError(t, f.db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		a, err := tx.GetAction(ctx, f.roundID, f.alice)
		if err != nil {
			return err
		}
		require.Equal(t, types.ChoiceAccelerate, a.Choice)
		return nil
	}))
}

func TestSubmitAction_ConcurrentLastSubmitterFinalizesOnce(t *testing.T) {
	f := newFixture(t)
	mgr := round.New(f.db)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		require.NoError(t, mgr.SubmitAction(ctx, f.roomID, 1, f.alice, types.ChoiceAccelerate))
	}()
	go func() {
		defer wg.Done()
		require.NoError(t, mgr.SubmitAction(ctx, f.roomID, 1, f.bob, types.ChoiceTurn))
	}()
	wg.Wait()

	rnd := f.getRound(t)
	require.Equal(t, types.RoundStatusReadyToPublish, rnd.Status)
}

func TestPublishRound_IdempotentAfterCompletion(t *testing.T) {
	f := newFixture(t)
	mgr := round.New(f.db)
	ctx := context.Background()

	require.NoError(t, mgr.SubmitAction(ctx, f.roomID, 1, f.alice, types.ChoiceAccelerate))
	require.NoError(t, mgr.SubmitAction(ctx, f.roomID, 1, f.bob, types.ChoiceTurn))

	require.NoError(t, mgr.PublishRound(ctx, f.roomID, 1))
	v := f.roomVersion(t)
	require.NoError(t, mgr.PublishRound(ctx, f.roomID, 1))
	require.Equal(t, v, f.roomVersion(t))

	require.Equal(t, types.RoundStatusCompleted, f.getRound(t).Status)
}

func TestPublishRound_RejectsBeforeReady(t *testing.T) {
	f := newFixture(t)
	mgr := round.New(f.db)
	err := mgr.PublishRound(context.Background(), f.roomID, 1)
	require.Error(t, err)
}

func TestSkipRound_BackfillsMissingActionAsTurn(t *testing.T) {
	f := newFixture(t)
	mgr := round.New(f.db)
	ctx := context.Background()

	require.NoError(t, mgr.SubmitAction(ctx, f.roomID, 1, f.alice, types.ChoiceTurn))
	require.NoError(t, mgr.SkipRound(ctx, f.roomID, 1))

	rnd := f.getRound(t)
	require.Equal(t, types.RoundStatusCompleted, rnd.Status)
	require.True(t, rnd.Skipped)

	require.NoError(t, f.db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		bobAction, err := tx.GetAction(ctx, f.roundID, f.bob)
		if err != nil {
			return err
		}
		require.Equal(t, types.ChoiceTurn, bobAction.Choice)
		require.NotNil(t, bobAction.Payoff)
		require.Equal(t, 3, *bobAction.Payoff)
		return nil
	}))
}

func TestGetPair_ReturnsOpponentDisplayName(t *testing.T) {
	f := newFixture(t)
	mgr := round.New(f.db)
	ctx := context.Background()

	pair, err := mgr.GetPair(ctx, f.roomID, 1, f.alice)
	require.NoError(t, err)
	require.Equal(t, f.bob, pair.OpponentID)
	require.Equal(t, "Bob", pair.OpponentDisplayName)
}

func TestGetResult_NilFieldsBeforeCompletion(t *testing.T) {
	f := newFixture(t)
	mgr := round.New(f.db)
	ctx := context.Background()

	result, err := mgr.GetResult(ctx, f.roomID, 1, f.alice)
	require.NoError(t, err)
	require.Equal(t, types.RoundStatusWaitingActions, result.Status)
	require.Nil(t, result.YourChoice)
	require.Nil(t, result.OpponentPayoff)
}

func TestGetResult_PopulatedAfterCompletion(t *testing.T) {
	f := newFixture(t)
	mgr := round.New(f.db)
	ctx := context.Background()

	require.NoError(t, mgr.SubmitAction(ctx, f.roomID, 1, f.alice, types.ChoiceAccelerate))
	require.NoError(t, mgr.SubmitAction(ctx, f.roomID, 1, f.bob, types.ChoiceTurn))
	require.NoError(t, mgr.PublishRound(ctx, f.roomID, 1))

	result, err := mgr.GetResult(ctx, f.roomID, 1, f.alice)
	require.NoError(t, err)
	require.Equal(t, types.RoundStatusCompleted, result.Status)
	require.Equal(t, "Bob", result.OpponentDisplayName)
	require.Equal(t, types.ChoiceAccelerate, *result.YourChoice)
	require.Equal(t, 10, *result.YourPayoff)
	require.Equal(t, types.ChoiceTurn, *result.OpponentChoice)
	require.Equal(t, -3, *result.OpponentPayoff)
}

func TestGetCurrentRound_ReturnsRoomsActiveRound(t *testing.T) {
	f := newFixture(t)
	mgr := round.New(f.db)

	rnd, err := mgr.GetCurrentRound(context.Background(), f.roomID)
	require.NoError(t, err)
	require.Equal(t, 1, rnd.RoundNumber)
}
