// Package round implements the RoundManager: action submission, finalization,
// publication, and host-driven skip (spec.md §4.5), the concurrency core of the
// backend. Every mutating method suspends on exactly one point — locking the
// target Round row inside a single database transaction — matching spec.md §5's
// "every state-changing operation suspends on exactly one point" requirement.
package round

import (
	"context"
	"time"

	"github.com/classroom-games/chicken-backend/internal/v1/apierr"
	"github.com/classroom-games/chicken-backend/internal/v1/metrics"
	"github.com/classroom-games/chicken-backend/internal/v1/payoff"
	"github.com/classroom-games/chicken-backend/internal/v1/statemachine"
	"github.com/classroom-games/chicken-backend/internal/v1/store"
	"github.com/classroom-games/chicken-backend/internal/v1/types"
	"github.com/classroom-games/chicken-backend/internal/v1/versioner"
)

// Manager is the RoundManager. It depends only on the store.DB interface, never
// on a concrete driver, so it runs identically against PgStore in production and
// memstore.Store in tests.
type Manager struct {
	db store.DB
}

// New returns a Manager backed by db.
func New(db store.DB) *Manager {
	return &Manager{db: db}
}

// SubmitAction records player's choice for a round. It is idempotent: a repeat
// submission — whether it matches the stored choice or not — returns success
// with no further state change, per spec.md §4.5.
func (m *Manager) SubmitAction(ctx context.Context, roomID types.RoomIDType, roundNumber int, playerID types.PlayerIDType, choice types.Choice) error {
	if !choice.Valid() {
		return apierr.InvalidInput("invalid_choice", "choice must be TURN or ACCELERATE")
	}

	return m.db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		room, err := tx.GetRoomByID(ctx, roomID)
		if err != nil {
			return err
		}
		if room.Status != types.RoomStatusPlaying {
			return apierr.InvalidState("room is not playing")
		}

		rnd, err := tx.LockRound(ctx, roomID, roundNumber)
		if err != nil {
			return err
		}
		if rnd.Status != types.RoundStatusWaitingActions && rnd.Status != types.RoundStatusReadyToPublish {
			return apierr.InvalidState("round is not accepting actions")
		}

		if _, err := tx.GetPairForPlayer(ctx, rnd.ID, playerID); err != nil {
			return err
		}

		existing, err := tx.GetAction(ctx, rnd.ID, playerID)
		if err != nil {
			return err
		}
		if existing != nil {
			// Stored value wins; this is a retry, not an error, and must not bump
			// state_version again.
			return nil
		}

		action := &types.Action{RoundID: rnd.ID, PlayerID: playerID, Choice: choice}
		if err := tx.InsertAction(ctx, action); err != nil {
			return err
		}
		metrics.ActionsSubmittedTotal.WithLabelValues(string(choice)).Inc()
		if _, err := versioner.Bump(ctx, tx, roomID); err != nil {
			return err
		}

		return m.tryFinalizeLocked(ctx, tx, rnd)
	})
}

// TryFinalizeRound computes payoffs and advances a round to ready_to_publish once
// every non-host player has submitted. It is idempotent: called on a round that
// is not waiting_actions, or one still missing submissions, it is a no-op.
func (m *Manager) TryFinalizeRound(ctx context.Context, roomID types.RoomIDType, roundNumber int) error {
	return m.db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		rnd, err := tx.LockRound(ctx, roomID, roundNumber)
		if err != nil {
			return err
		}
		return m.tryFinalizeLocked(ctx, tx, rnd)
	})
}

// tryFinalizeLocked must run with the Round already locked by the caller within
// tx. It is the single place the "last submitter finalizes" race resolves: every
// concurrent submitter calls this, but the Round row lock ensures only the one
// that observes status == waiting_actions and a complete action set actually
// mutates anything.
func (m *Manager) tryFinalizeLocked(ctx context.Context, tx store.Tx, rnd *types.Round) error {
	if rnd.Status != types.RoundStatusWaitingActions {
		return nil
	}

	nonHostCount, err := tx.CountNonHostPlayers(ctx, rnd.RoomID)
	if err != nil {
		return err
	}
	actionCount, err := tx.CountActions(ctx, rnd.ID)
	if err != nil {
		return err
	}
	if actionCount < nonHostCount {
		return nil
	}

	start := time.Now()
	if err := m.storePayoffs(ctx, tx, rnd); err != nil {
		return err
	}

	if err := statemachine.CheckRoundTransition(rnd.Status, types.RoundStatusReadyToPublish); err != nil {
		return err
	}
	rnd.Status = types.RoundStatusReadyToPublish
	if err := tx.UpdateRound(ctx, rnd); err != nil {
		return err
	}
	if _, err := versioner.Bump(ctx, tx, rnd.RoomID); err != nil {
		return err
	}
	metrics.RoundFinalizationDuration.Observe(time.Since(start).Seconds())
	metrics.RoundsFinalizedTotal.WithLabelValues("false").Inc()
	return nil
}

// storePayoffs computes and persists the payoff for every Action in rnd via
// PayoffEngine. Precondition: every Pair in rnd has an Action on both sides.
func (m *Manager) storePayoffs(ctx context.Context, tx store.Tx, rnd *types.Round) error {
	pairs, err := tx.ListPairs(ctx, rnd.ID)
	if err != nil {
		return err
	}
	actions, err := tx.ListActions(ctx, rnd.ID)
	if err != nil {
		return err
	}

	byPlayer := make(map[types.PlayerIDType]types.Action, len(actions))
	for _, a := range actions {
		byPlayer[a.PlayerID] = a
	}

	for _, pair := range pairs {
		a1, ok1 := byPlayer[pair.P1]
		a2, ok2 := byPlayer[pair.P2]
		if !ok1 || !ok2 {
			continue
		}
		p1 := payoff.Compute(a1.Choice, a2.Choice)
		p2 := payoff.Compute(a2.Choice, a1.Choice)
		if err := tx.UpdateActionPayoff(ctx, a1.ID, p1); err != nil {
			return err
		}
		if err := tx.UpdateActionPayoff(ctx, a2.ID, p2); err != nil {
			return err
		}
	}
	return nil
}

// GetCurrentRound returns the room's in-progress round.
func (m *Manager) GetCurrentRound(ctx context.Context, roomID types.RoomIDType) (*types.Round, error) {
	var rnd *types.Round
	err := m.db.ReadOnly(ctx, func(ctx context.Context, tx store.Tx) error {
		room, err := tx.GetRoomByID(ctx, roomID)
		if err != nil {
			return err
		}
		r, err := tx.GetRound(ctx, roomID, room.CurrentRound)
		if err != nil {
			return err
		}
		rnd = r
		return nil
	})
	return rnd, err
}

// PairView is a player's opponent assignment for a round, personalized with the
// opponent's display name.
type PairView struct {
	OpponentID          types.PlayerIDType
	OpponentDisplayName string
}

// GetPair returns the opponent a given player is paired with for roundNumber.
func (m *Manager) GetPair(ctx context.Context, roomID types.RoomIDType, roundNumber int, playerID types.PlayerIDType) (*PairView, error) {
	var view *PairView
	err := m.db.ReadOnly(ctx, func(ctx context.Context, tx store.Tx) error {
		rnd, err := tx.GetRound(ctx, roomID, roundNumber)
		if err != nil {
			return err
		}
		pair, err := tx.GetPairForPlayer(ctx, rnd.ID, playerID)
		if err != nil {
			return err
		}
		opponentID, ok := pair.Opponent(playerID)
		if !ok {
			return apierr.NotFoundCode("not_participant", "player is not a participant in this round")
		}
		opponent, err := tx.GetPlayer(ctx, opponentID)
		if err != nil {
			return err
		}
		view = &PairView{OpponentID: opponentID, OpponentDisplayName: opponent.DisplayName}
		return nil
	})
	return view, err
}

// RoundResult is the outcome of a completed round as seen by one requester: both
// participants' choices and payoffs, once the round has finished.
type RoundResult struct {
	RoundNumber         int
	Status              types.RoundStatus
	OpponentDisplayName string
	YourChoice          *types.Choice
	YourPayoff          *int
	OpponentChoice      *types.Choice
	OpponentPayoff      *int
}

// GetResult returns the requesting player's view of a round's outcome. Choice and
// payoff fields stay nil until the round reaches completed.
func (m *Manager) GetResult(ctx context.Context, roomID types.RoomIDType, roundNumber int, playerID types.PlayerIDType) (*RoundResult, error) {
	var result *RoundResult
	err := m.db.ReadOnly(ctx, func(ctx context.Context, tx store.Tx) error {
		rnd, err := tx.GetRound(ctx, roomID, roundNumber)
		if err != nil {
			return err
		}
		pair, err := tx.GetPairForPlayer(ctx, rnd.ID, playerID)
		if err != nil {
			return err
		}
		opponentID, ok := pair.Opponent(playerID)
		if !ok {
			return apierr.NotFoundCode("not_participant", "player is not a participant in this round")
		}
		opponent, err := tx.GetPlayer(ctx, opponentID)
		if err != nil {
			return err
		}

		res := &RoundResult{RoundNumber: rnd.RoundNumber, Status: rnd.Status, OpponentDisplayName: opponent.DisplayName}
		if rnd.Status != types.RoundStatusCompleted {
			result = res
			return nil
		}

		yours, err := tx.GetAction(ctx, rnd.ID, playerID)
		if err != nil {
			return err
		}
		opponents, err := tx.GetAction(ctx, rnd.ID, opponentID)
		if err != nil {
			return err
		}
		if yours != nil {
			res.YourChoice, res.YourPayoff = &yours.Choice, yours.Payoff
		}
		if opponents != nil {
			res.OpponentChoice, res.OpponentPayoff = &opponents.Choice, opponents.Payoff
		}
		result = res
		return nil
	})
	return result, err
}

// PublishRound advances a ready_to_publish round to completed. Idempotent: a
// second call on an already-completed round returns success with no effect.
func (m *Manager) PublishRound(ctx context.Context, roomID types.RoomIDType, roundNumber int) error {
	return m.db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		rnd, err := tx.LockRound(ctx, roomID, roundNumber)
		if err != nil {
			return err
		}

		switch rnd.Status {
		case types.RoundStatusCompleted:
			return nil
		case types.RoundStatusWaitingActions:
			return apierr.InvalidState("round is not ready to publish")
		}

		if err := statemachine.CheckRoundTransition(rnd.Status, types.RoundStatusCompleted); err != nil {
			return err
		}
		now := time.Now().UTC()
		rnd.Status = types.RoundStatusCompleted
		rnd.EndedAt = &now
		if err := tx.UpdateRound(ctx, rnd); err != nil {
			return err
		}
		_, err = versioner.Bump(ctx, tx, roomID)
		return err
	})
}

// SkipRound is the host emergency path: every non-host participant missing an
// Action is given a default TURN, then the round is finalized and completed in
// one step regardless of how many players had actually submitted.
func (m *Manager) SkipRound(ctx context.Context, roomID types.RoomIDType, roundNumber int) error {
	return m.db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		rnd, err := tx.LockRound(ctx, roomID, roundNumber)
		if err != nil {
			return err
		}
		if err := statemachine.CheckRoundTransition(rnd.Status, types.RoundStatusCompleted); err != nil {
			return err
		}

		players, err := tx.ListNonHostPlayers(ctx, roomID)
		if err != nil {
			return err
		}
		for _, p := range players {
			existing, err := tx.GetAction(ctx, rnd.ID, p.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			if err := tx.InsertAction(ctx, &types.Action{RoundID: rnd.ID, PlayerID: p.ID, Choice: types.ChoiceTurn}); err != nil {
				return err
			}
		}

		if err := m.storePayoffs(ctx, tx, rnd); err != nil {
			return err
		}

		now := time.Now().UTC()
		rnd.Status = types.RoundStatusCompleted
		rnd.Skipped = true
		rnd.EndedAt = &now
		if err := tx.UpdateRound(ctx, rnd); err != nil {
			return err
		}
		if _, err := versioner.Bump(ctx, tx, roomID); err != nil {
			return err
		}
		metrics.RoundsFinalizedTotal.WithLabelValues("true").Inc()
		return nil
	})
}
