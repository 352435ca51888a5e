// Package snapshot implements the SnapshotBuilder described in spec.md §4.9: the
// versioned, optionally personalized payload served by the /state poll endpoint.
package snapshot

import (
	"context"

	"github.com/classroom-games/chicken-backend/internal/v1/store"
	"github.com/classroom-games/chicken-backend/internal/v1/types"
)

// RoundView is the snapshot's round section, personalized for a given player
// when one was requested.
type RoundView struct {
	RoundNumber    int               `json:"round_number"`
	Phase          types.RoundPhase  `json:"phase"`
	Status         types.RoundStatus `json:"status"`
	YourChoice     *types.Choice     `json:"your_choice,omitempty"`
	OpponentChoice *types.Choice     `json:"opponent_choice,omitempty"`
	OpponentName   *string           `json:"opponent_display_name,omitempty"`
	YourPayoff     *int              `json:"your_payoff,omitempty"`
	OpponentPayoff *int              `json:"opponent_payoff,omitempty"`
}

// MessageView carries the opponent's latest message for the current round, only
// populated when the round's phase is MESSAGE.
type MessageView struct {
	Content      string `json:"content"`
	FromOpponent bool   `json:"from_opponent"`
}

// Data is the snapshot payload returned when the client's version is stale.
type Data struct {
	Room               types.Room     `json:"room"`
	Players            []types.Player `json:"players"`
	Round              *RoundView     `json:"round,omitempty"`
	Message            *MessageView   `json:"message,omitempty"`
	IndicatorSymbol    *string        `json:"indicator_symbol,omitempty"`
	IndicatorsAssigned bool           `json:"indicators_assigned"`
}

// Snapshot is the full response shape for GET .../state.
type Snapshot struct {
	Version   int64 `json:"version"`
	HasUpdate bool  `json:"has_update"`
	Data      *Data `json:"data,omitempty"`
}

// Builder is the SnapshotBuilder.
type Builder struct {
	db store.DB
}

// New returns a Builder backed by db.
func New(db store.DB) *Builder {
	return &Builder{db: db}
}

// Build assembles the snapshot for roomID as seen by clientVersion, optionally
// personalized for playerID. It runs inside a single read-only transaction so
// every field reflects one consistent point in time.
func (b *Builder) Build(ctx context.Context, roomID types.RoomIDType, clientVersion int64, playerID *types.PlayerIDType) (*Snapshot, error) {
	var snap *Snapshot
	err := b.db.ReadOnly(ctx, func(ctx context.Context, tx store.Tx) error {
		room, err := tx.GetRoomByID(ctx, roomID)
		if err != nil {
			return err
		}

		if room.StateVersion <= clientVersion {
			snap = &Snapshot{Version: room.StateVersion, HasUpdate: false}
			return nil
		}

		players, err := tx.ListPlayers(ctx, roomID)
		if err != nil {
			return err
		}

		data := &Data{Room: *room, Players: players}

		if room.CurrentRound >= 1 {
			rv, msgView, err := buildRound(ctx, tx, room, playerID)
			if err != nil {
				return err
			}
			data.Round = rv
			data.Message = msgView
		}

		indCount, err := tx.CountIndicators(ctx, roomID)
		if err != nil {
			return err
		}
		data.IndicatorsAssigned = indCount > 0
		if playerID != nil && data.IndicatorsAssigned {
			ind, err := tx.GetIndicator(ctx, roomID, *playerID)
			if err == nil && ind != nil {
				sym := ind.Symbol
				data.IndicatorSymbol = &sym
			}
		}

		snap = &Snapshot{Version: room.StateVersion, HasUpdate: true, Data: data}
		return nil
	})
	return snap, err
}

func buildRound(ctx context.Context, tx store.Tx, room *types.Room, playerID *types.PlayerIDType) (*RoundView, *MessageView, error) {
	rnd, err := tx.GetRound(ctx, room.ID, room.CurrentRound)
	if err != nil {
		return nil, nil, err
	}

	rv := &RoundView{RoundNumber: rnd.RoundNumber, Phase: rnd.Phase, Status: rnd.Status}

	var msgView *MessageView
	if playerID != nil {
		pair, err := tx.GetPairForPlayer(ctx, rnd.ID, *playerID)
		if err == nil {
			opponentID, _ := pair.Opponent(*playerID)

			yourAction, err := tx.GetAction(ctx, rnd.ID, *playerID)
			if err != nil {
				return nil, nil, err
			}
			opponentAction, err := tx.GetAction(ctx, rnd.ID, opponentID)
			if err != nil {
				return nil, nil, err
			}

			if yourAction != nil {
				c := yourAction.Choice
				rv.YourChoice = &c
			}
			if opponentAction != nil {
				c := opponentAction.Choice
				rv.OpponentChoice = &c
			}

			opponent, err := tx.GetPlayer(ctx, opponentID)
			if err != nil {
				return nil, nil, err
			}
			name := opponent.DisplayName
			rv.OpponentName = &name

			if rnd.Status == types.RoundStatusCompleted && yourAction != nil && opponentAction != nil {
				rv.YourPayoff = yourAction.Payoff
				rv.OpponentPayoff = opponentAction.Payoff
			}

			if rnd.Phase == types.RoundPhaseMessage {
				m, err := tx.GetLatestMessageForReceiver(ctx, rnd.ID, *playerID)
				if err != nil {
					return nil, nil, err
				}
				if m != nil {
					msgView = &MessageView{Content: m.Content, FromOpponent: true}
				}
			}
		}
	}

	return rv, msgView, nil
}
