// Package indicator implements the IndicatorService described in spec.md §4.8: a
// one-shot, post-round-6 assignment of a closed emoji whitelist to every
// non-host player, distributed as evenly as the whitelist size allows.
package indicator

import (
	"context"
	"errors"
	"math/rand"

	"github.com/classroom-games/chicken-backend/internal/v1/apierr"
	"github.com/classroom-games/chicken-backend/internal/v1/store"
	"github.com/classroom-games/chicken-backend/internal/v1/types"
	"github.com/classroom-games/chicken-backend/internal/v1/versioner"
)

// Service is the IndicatorService.
type Service struct {
	db store.DB
}

// New returns a Service backed by db.
func New(db store.DB) *Service {
	return &Service{db: db}
}

func isNotFound(err error) bool {
	var apiErr *apierr.Error
	return errors.As(err, &apiErr) && apiErr.Kind == apierr.KindNotFound
}

// AssignIndicators is a host operation. It requires the room to have reached
// round 6 and rejects with already_assigned if any Indicator already exists for
// the room. Players are shuffled, then assigned whitelist symbols in a
// ceil-balanced round so no symbol is used more than ⌈N/K⌉ times.
func (s *Service) AssignIndicators(ctx context.Context, roomID types.RoomIDType) error {
	return s.db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		room, err := tx.LockRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if room.CurrentRound < 6 {
			return apierr.InvalidState("indicators can only be assigned from round 6 onward")
		}

		count, err := tx.CountIndicators(ctx, roomID)
		if err != nil {
			return err
		}
		if count > 0 {
			return apierr.Conflict("already_assigned", "indicators have already been assigned for this room")
		}

		players, err := tx.ListNonHostPlayers(ctx, roomID)
		if err != nil {
			return err
		}

		shuffled := make([]types.Player, len(players))
		copy(shuffled, players)
		rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		whitelist := types.IndicatorWhitelist
		indicators := make([]types.Indicator, len(shuffled))
		for i, p := range shuffled {
			indicators[i] = types.Indicator{
				RoomID:   roomID,
				PlayerID: p.ID,
				Symbol:   whitelist[i%len(whitelist)],
			}
		}

		if err := tx.InsertIndicators(ctx, indicators); err != nil {
			return err
		}

		// Rounds 7-10 created before this call were stamped NORMAL at creation
		// time (indicators weren't assigned yet); flip them to the INDICATOR
		// display hint now. Rounds 7-10 created later by NextRound derive their
		// phase from indicator-assignment state directly.
		for n := 7; n <= 10; n++ {
			rnd, getErr := tx.GetRound(ctx, roomID, n)
			if getErr != nil {
				if isNotFound(getErr) {
					continue
				}
				return getErr
			}
			rnd.Phase = types.RoundPhaseIndicator
			if err := tx.UpdateRound(ctx, rnd); err != nil {
				return err
			}
		}

		_, err = versioner.Bump(ctx, tx, roomID)
		return err
	})
}

// GetIndicator returns the stored symbol for player, or a not-found error.
func (s *Service) GetIndicator(ctx context.Context, roomID types.RoomIDType, playerID types.PlayerIDType) (*types.Indicator, error) {
	var ind *types.Indicator
	err := s.db.ReadOnly(ctx, func(ctx context.Context, tx store.Tx) error {
		i, err := tx.GetIndicator(ctx, roomID, playerID)
		if err != nil {
			return err
		}
		ind = i
		return nil
	})
	return ind, err
}
