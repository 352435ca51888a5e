// Package summary implements the host-facing end-of-game report named but left
// unspecified by GET /rooms/{room_id}/summary: per non-host player, total payoff
// across every round whose payoffs have been computed, round-by-round choice history, and indicator
// symbol when assigned.
package summary

import (
	"context"
	"sort"

	"github.com/classroom-games/chicken-backend/internal/v1/store"
	"github.com/classroom-games/chicken-backend/internal/v1/types"
)

// RoundOutcome is one player's recorded choice and payoff for a single round.
// Payoff is nil for a round that has not yet been finalized.
type RoundOutcome struct {
	RoundNumber int          `json:"round_number"`
	Choice      types.Choice `json:"choice"`
	Payoff      *int         `json:"payoff,omitempty"`
}

// PlayerSummary is one non-host player's contribution to the report.
type PlayerSummary struct {
	PlayerID        types.PlayerIDType `json:"player_id"`
	DisplayName     string             `json:"display_name"`
	TotalPayoff     int                `json:"total_payoff"`
	Rounds          []RoundOutcome     `json:"rounds"`
	IndicatorSymbol *string            `json:"indicator_symbol,omitempty"`
}

// Summary is the full report for a room.
type Summary struct {
	RoomID  types.RoomIDType `json:"room_id"`
	Players []PlayerSummary  `json:"players"`
}

// Builder is the SummaryBuilder.
type Builder struct {
	db store.DB
}

// New returns a Builder backed by db.
func New(db store.DB) *Builder {
	return &Builder{db: db}
}

// Build assembles the report for roomID. Available regardless of room status:
// a host may want a partial summary from a still-PLAYING room. Round rows
// without a payoff yet are included in history but omitted from TotalPayoff.
func (b *Builder) Build(ctx context.Context, roomID types.RoomIDType) (*Summary, error) {
	var summary *Summary
	err := b.db.ReadOnly(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetRoomByID(ctx, roomID); err != nil {
			return err
		}

		players, err := tx.ListNonHostPlayers(ctx, roomID)
		if err != nil {
			return err
		}
		byPlayer := make(map[types.PlayerIDType]*PlayerSummary, len(players))
		for _, p := range players {
			byPlayer[p.ID] = &PlayerSummary{PlayerID: p.ID, DisplayName: p.DisplayName}
		}

		rounds, err := tx.ListRounds(ctx, roomID)
		if err != nil {
			return err
		}
		for _, rnd := range rounds {
			actions, err := tx.ListActions(ctx, rnd.ID)
			if err != nil {
				return err
			}
			for _, a := range actions {
				entry, ok := byPlayer[a.PlayerID]
				if !ok {
					continue
				}
				entry.Rounds = append(entry.Rounds, RoundOutcome{
					RoundNumber: rnd.RoundNumber,
					Choice:      a.Choice,
					Payoff:      a.Payoff,
				})
				if a.Payoff != nil {
					entry.TotalPayoff += *a.Payoff
				}
			}
		}

		indCount, err := tx.CountIndicators(ctx, roomID)
		if err != nil {
			return err
		}
		if indCount > 0 {
			for _, p := range players {
				ind, err := tx.GetIndicator(ctx, roomID, p.ID)
				if err != nil {
					return err
				}
				if ind != nil {
					sym := ind.Symbol
					byPlayer[p.ID].IndicatorSymbol = &sym
				}
			}
		}

		result := make([]PlayerSummary, 0, len(players))
		for _, p := range players {
			entry := byPlayer[p.ID]
			sort.Slice(entry.Rounds, func(i, j int) bool {
				return entry.Rounds[i].RoundNumber < entry.Rounds[j].RoundNumber
			})
			result = append(result, *entry)
		}
		sort.Slice(result, func(i, j int) bool { return result[i].DisplayName < result[j].DisplayName })

		summary = &Summary{RoomID: roomID, Players: result}
		return nil
	})
	return summary, err
}
