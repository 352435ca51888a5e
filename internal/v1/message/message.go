// Package message implements the MessageService described in spec.md §4.7: the
// round-5/6 inter-player note exchange with per-round, per-sender uniqueness.
package message

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/classroom-games/chicken-backend/internal/v1/apierr"
	"github.com/classroom-games/chicken-backend/internal/v1/store"
	"github.com/classroom-games/chicken-backend/internal/v1/types"
	"github.com/classroom-games/chicken-backend/internal/v1/versioner"
)

// Service is the MessageService.
type Service struct {
	db store.DB
}

// New returns a Service backed by db.
func New(db store.DB) *Service {
	return &Service{db: db}
}

func messageAllowed(roundNumber int) bool {
	return roundNumber == 5 || roundNumber == 6
}

// SendMessage delivers content from sender to the opponent derived from the
// round's Pair. It rejects with not_allowed outside rounds 5–6 and already_sent
// on a second send from the same sender in the same round.
func (s *Service) SendMessage(ctx context.Context, roomID types.RoomIDType, roundNumber int, sender types.PlayerIDType, content string) error {
	if !messageAllowed(roundNumber) {
		return apierr.InvalidStateCode("not_allowed", "messages are only allowed in rounds 5 and 6")
	}

	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n < 1 || n > 100 {
		return apierr.InvalidInput("invalid_message_length", "message content must be between 1 and 100 characters")
	}

	return s.db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		rnd, err := tx.LockRound(ctx, roomID, roundNumber)
		if err != nil {
			return err
		}

		pair, err := tx.GetPairForPlayer(ctx, rnd.ID, sender)
		if err != nil {
			return err
		}
		receiver, ok := pair.Opponent(sender)
		if !ok {
			return apierr.NotFoundCode("not_participant", "player is not a participant in this round")
		}

		existing, err := tx.GetMessageBySender(ctx, rnd.ID, sender)
		if err != nil {
			return err
		}
		if existing != nil {
			return apierr.Conflict("already_sent", "a message has already been sent by this player for this round")
		}

		msg := &types.Message{RoundID: rnd.ID, Sender: sender, Receiver: receiver, Content: content}
		if err := tx.InsertMessage(ctx, msg); err != nil {
			return err
		}
		_, err = versioner.Bump(ctx, tx, roomID)
		return err
	})
}

// GetMessage returns the most recent Message addressed to player for this round,
// or nil if none exists.
func (s *Service) GetMessage(ctx context.Context, roomID types.RoomIDType, roundNumber int, player types.PlayerIDType) (*types.Message, error) {
	var msg *types.Message
	err := s.db.ReadOnly(ctx, func(ctx context.Context, tx store.Tx) error {
		rnd, err := tx.GetRound(ctx, roomID, roundNumber)
		if err != nil {
			return err
		}
		m, err := tx.GetLatestMessageForReceiver(ctx, rnd.ID, player)
		if err != nil {
			return err
		}
		msg = m
		return nil
	})
	return msg, err
}
