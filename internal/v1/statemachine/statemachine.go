// Package statemachine validates the Room and Round transitions described in
// spec.md §4.2. Every transition function is pure: given a current status, it
// either permits the move or returns an apierr.InvalidState with code
// "invalid_state_transition", and leaves persistence entirely to the caller.
package statemachine

import (
	"fmt"

	"github.com/classroom-games/chicken-backend/internal/v1/apierr"
	"github.com/classroom-games/chicken-backend/internal/v1/types"
)

// CheckRoomTransition reports whether a Room may move from `from` to `to`. Valid
// moves: WAITING→PLAYING (StartGame), PLAYING→FINISHED (EndGame). No
// back-transitions, no same-state moves.
func CheckRoomTransition(from, to types.RoomStatus) error {
	switch {
	case from == types.RoomStatusWaiting && to == types.RoomStatusPlaying:
		return nil
	case from == types.RoomStatusPlaying && to == types.RoomStatusFinished:
		return nil
	default:
		return apierr.InvalidState(fmt.Sprintf("cannot transition room from %s to %s", from, to))
	}
}

// CheckRoundTransition reports whether a Round may move from `from` to `to`.
// Valid moves: waiting_actions→ready_to_publish (all actions submitted),
// waiting_actions→completed (skip), ready_to_publish→completed (publish or
// skip). No back-transitions.
func CheckRoundTransition(from, to types.RoundStatus) error {
	switch {
	case from == types.RoundStatusWaitingActions && to == types.RoundStatusReadyToPublish:
		return nil
	case from == types.RoundStatusWaitingActions && to == types.RoundStatusCompleted:
		return nil
	case from == types.RoundStatusReadyToPublish && to == types.RoundStatusCompleted:
		return nil
	default:
		return apierr.InvalidState(fmt.Sprintf("cannot transition round from %s to %s", from, to))
	}
}
