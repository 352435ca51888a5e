package indicator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classroom-games/chicken-backend/internal/v1/indicator"
	"github.com/classroom-games/chicken-backend/internal/v1/store"
	"github.com/classroom-games/chicken-backend/internal/v1/store/memstore"
	"github.com/classroom-games/chicken-backend/internal/v1/types"
)

func setupRoom(t *testing.T, db *memstore.Store, currentRound, playerCount int) types.RoomIDType {
	t.Helper()
	ctx := context.Background()
	var roomID types.RoomIDType
	require.NoError(t, db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		room := &types.Room{Code: "ABCDEF", Status: types.RoomStatusPlaying, CurrentRound: currentRound, StateVersion: 1}
		if err := tx.InsertRoom(ctx, room); err != nil {
			return err
		}
		roomID = room.ID
		for i := 0; i < playerCount; i++ {
			p := &types.Player{RoomID: roomID, Nickname: "p", DisplayName: "p"}
			if err := tx.InsertPlayer(ctx, p); err != nil {
				return err
			}
		}
		return nil
	}))
	return roomID
}

func TestAssignIndicators_RejectsBeforeRound6(t *testing.T) {
	db := memstore.New()
	roomID := setupRoom(t, db, 5, 4)
	svc := indicator.New(db)
	err := svc.AssignIndicators(context.Background(), roomID)
	require.Error(t, err)
}

func TestAssignIndicators_RejectsSecondCall(t *testing.T) {
	db := memstore.New()
	roomID := setupRoom(t, db, 6, 4)
	svc := indicator.New(db)
	ctx := context.Background()

	require.NoError(t, svc.AssignIndicators(ctx, roomID))
	err := svc.AssignIndicators(ctx, roomID)
	require.Error(t, err)
}

func TestAssignIndicators_EveryPlayerGetsAWhitelistSymbol(t *testing.T) {
	db := memstore.New()
	const playerCount = 10
	roomID := setupRoom(t, db, 6, playerCount)
	svc := indicator.New(db)
	ctx := context.Background()
	require.NoError(t, svc.AssignIndicators(ctx, roomID))

	require.NoError(t, db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		players, err := tx.ListNonHostPlayers(ctx, roomID)
		if err != nil {
			return err
		}
		whitelistSet := make(map[string]bool)
		for _, s := range types.IndicatorWhitelist {
			whitelistSet[s] = true
		}
		counts := make(map[string]int)
		for _, p := range players {
			ind, err := tx.GetIndicator(ctx, roomID, p.ID)
			if err != nil {
				return err
			}
			require.True(t, whitelistSet[ind.Symbol])
			counts[ind.Symbol]++
		}

		// spec.md §8 scenario 6: symbol distribution must be within ⌈N/K⌉ of
		// ⌊N/K⌋ per symbol for K whitelist size, not merely whitelist membership.
		maxAllowed := (playerCount + len(types.IndicatorWhitelist) - 1) / len(types.IndicatorWhitelist)
		for symbol, count := range counts {
			require.LessOrEqual(t, count, maxAllowed, "symbol %s assigned to %d players, exceeds ceil-balance of %d", symbol, count, maxAllowed)
		}
		return nil
	}))
}

func TestAssignIndicators_FlipsPhaseOnAlreadyCreatedRounds(t *testing.T) {
	db := memstore.New()
	ctx := context.Background()
	roomID := setupRoom(t, db, 8, 4)

	var roundIDs [11]types.RoundIDType
	require.NoError(t, db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		for n := 1; n <= 8; n++ {
			rnd := &types.Round{RoomID: roomID, RoundNumber: n, Phase: types.DerivePhase(n, false), Status: types.RoundStatusWaitingActions}
			if err := tx.InsertRound(ctx, rnd); err != nil {
				return err
			}
			roundIDs[n] = rnd.ID
		}
		return nil
	}))

	svc := indicator.New(db)
	require.NoError(t, svc.AssignIndicators(ctx, roomID))

	require.NoError(t, db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		for n := 1; n <= 6; n++ {
			rnd, err := tx.GetRound(ctx, roomID, n)
			if err != nil {
				return err
			}
			require.NotEqual(t, types.RoundPhaseIndicator, rnd.Phase, "round %d predates the indicator phase entirely", n)
		}
		for n := 7; n <= 8; n++ {
			rnd, err := tx.GetRound(ctx, roomID, n)
			if err != nil {
				return err
			}
			require.Equal(t, types.RoundPhaseIndicator, rnd.Phase, "round %d should have been retagged INDICATOR", n)
		}
		return nil
	}))
}
