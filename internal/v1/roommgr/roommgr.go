// Package roommgr implements the RoomManager described in spec.md §4.6: room
// creation, the WAITING→PLAYING→FINISHED lifecycle, round advancement, and
// deletion. It also owns Join, since a joining Player is created exactly the way
// the host Player is at CreateRoom time.
package roommgr

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"unicode/utf8"

	"github.com/classroom-games/chicken-backend/internal/v1/apierr"
	"github.com/classroom-games/chicken-backend/internal/v1/metrics"
	"github.com/classroom-games/chicken-backend/internal/v1/pairing"
	"github.com/classroom-games/chicken-backend/internal/v1/statemachine"
	"github.com/classroom-games/chicken-backend/internal/v1/store"
	"github.com/classroom-games/chicken-backend/internal/v1/types"
	"github.com/classroom-games/chicken-backend/internal/v1/versioner"
)

const (
	codeAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength     = 6
	maxCodeRetries = 10
	maxRound       = 10
)

// Manager is the RoomManager.
type Manager struct {
	db store.DB
}

// New returns a Manager backed by db.
func New(db store.DB) *Manager {
	return &Manager{db: db}
}

func generateCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}

func isNotFound(err error) bool {
	var apiErr *apierr.Error
	return errors.As(err, &apiErr) && apiErr.Kind == apierr.KindNotFound
}

// CreateRoom creates a Room in WAITING status with a unique 6-character
// uppercase alphanumeric code, retrying on collision, and creates the host
// Player alongside it in the same transaction.
func (m *Manager) CreateRoom(ctx context.Context) (room *types.Room, hostPlayerID types.PlayerIDType, err error) {
	err = m.db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		for attempt := 0; attempt < maxCodeRetries; attempt++ {
			code := generateCode()
			if _, lookupErr := tx.GetRoomByCode(ctx, code); lookupErr == nil {
				continue // collision, retry with a new code
			} else if !isNotFound(lookupErr) {
				return lookupErr
			}

			r := &types.Room{Code: code, Status: types.RoomStatusWaiting, CurrentRound: 0, StateVersion: 1}
			if err := tx.InsertRoom(ctx, r); err != nil {
				return err
			}
			host := &types.Player{RoomID: r.ID, Nickname: "Host", DisplayName: "Host", IsHost: true}
			if err := tx.InsertPlayer(ctx, host); err != nil {
				return err
			}
			room = r
			hostPlayerID = host.ID
			return nil
		}
		return apierr.Conflict("code_collision", "failed to generate a unique room code")
	})
	if err == nil {
		metrics.RoomsCreatedTotal.Inc()
		metrics.ActiveRooms.Inc()
		metrics.RoomPlayers.WithLabelValues(string(room.ID)).Set(1)
	}
	return room, hostPlayerID, err
}

// Join creates a non-host Player in the room identified by code. Joining is only
// accepted while the room is WAITING — once play starts, the round-1 pairing has
// already been fixed and a new arrival has no pair to join.
func (m *Manager) Join(ctx context.Context, code, nickname string) (playerID types.PlayerIDType, roomID types.RoomIDType, displayName string, err error) {
	nickname = strings.TrimSpace(nickname)
	if n := utf8.RuneCountInString(nickname); n < 1 || n > 50 {
		return "", "", "", apierr.InvalidInput("invalid_nickname", "nickname must be between 1 and 50 characters")
	}

	err = m.db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		r, lookupErr := tx.GetRoomByCode(ctx, code)
		if lookupErr != nil {
			return lookupErr
		}
		room, lockErr := tx.LockRoom(ctx, r.ID)
		if lockErr != nil {
			return lockErr
		}
		if room.Status != types.RoomStatusWaiting {
			return apierr.InvalidState("room is no longer accepting new players")
		}

		player := &types.Player{RoomID: room.ID, Nickname: nickname, DisplayName: nickname, IsHost: false}
		if err := tx.InsertPlayer(ctx, player); err != nil {
			return err
		}
		if _, err := versioner.Bump(ctx, tx, room.ID); err != nil {
			return err
		}

		playerID, roomID, displayName = player.ID, room.ID, player.DisplayName
		return nil
	})
	if err == nil {
		metrics.RoomPlayers.WithLabelValues(string(roomID)).Inc()
	}
	return playerID, roomID, displayName, err
}

// StartGame transitions a room from WAITING to PLAYING, builds the Round-1
// pairing, and sets current_round=1.
func (m *Manager) StartGame(ctx context.Context, roomID types.RoomIDType) error {
	return m.db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		room, err := tx.LockRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if err := statemachine.CheckRoomTransition(room.Status, types.RoomStatusPlaying); err != nil {
			return err
		}

		players, err := tx.ListNonHostPlayers(ctx, roomID)
		if err != nil {
			return err
		}
		playerIDs := make([]types.PlayerIDType, len(players))
		for i, p := range players {
			playerIDs[i] = p.ID
		}

		rnd := &types.Round{RoomID: roomID, RoundNumber: 1, Phase: types.DerivePhase(1, false), Status: types.RoundStatusWaitingActions}
		if err := tx.InsertRound(ctx, rnd); err != nil {
			return err
		}

		pairs, err := pairing.BuildRound1(playerIDs, rnd.ID)
		if err != nil {
			return err
		}
		if err := tx.InsertPairs(ctx, pairs); err != nil {
			return err
		}

		room.Status = types.RoomStatusPlaying
		room.CurrentRound = 1
		if err := tx.UpdateRoom(ctx, room); err != nil {
			return err
		}
		_, err = versioner.Bump(ctx, tx, roomID)
		return err
	})
}

// NextRound advances the room to round current_round+1, replicating the Round-1
// pairing. It is idempotent: calling it again after a successful advance to
// round n returns n with no further effect.
func (m *Manager) NextRound(ctx context.Context, roomID types.RoomIDType) (roundNumber int, err error) {
	err = m.db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		room, lockErr := tx.LockRoom(ctx, roomID)
		if lockErr != nil {
			return lockErr
		}
		if room.Status != types.RoomStatusPlaying {
			return apierr.InvalidState("room is not playing")
		}

		next := room.CurrentRound + 1
		if next > maxRound {
			return apierr.InvalidState("no further rounds available")
		}

		if existing, getErr := tx.GetRound(ctx, roomID, next); getErr == nil {
			roundNumber = existing.RoundNumber
			return nil
		} else if !isNotFound(getErr) {
			return getErr
		}

		curRound, curErr := tx.GetRound(ctx, roomID, room.CurrentRound)
		if curErr != nil {
			return curErr
		}
		if curRound.Status != types.RoundStatusCompleted {
			// A repeat call after a successful advance finds the new round still
			// waiting for its first action: report that round again.
			if room.CurrentRound > 1 && curRound.Status == types.RoundStatusWaitingActions {
				submitted, countErr := tx.CountActions(ctx, curRound.ID)
				if countErr != nil {
					return countErr
				}
				if submitted == 0 {
					roundNumber = room.CurrentRound
					return nil
				}
			}
			return apierr.InvalidState("current round is not completed")
		}

		sourcePairs, err := tx.ListPairs(ctx, curRound.ID)
		if err != nil {
			return err
		}

		indicatorCount, err := tx.CountIndicators(ctx, roomID)
		if err != nil {
			return err
		}

		newRound := &types.Round{RoomID: roomID, RoundNumber: next, Phase: types.DerivePhase(next, indicatorCount > 0), Status: types.RoundStatusWaitingActions}
		if err := tx.InsertRound(ctx, newRound); err != nil {
			return err
		}
		if err := tx.InsertPairs(ctx, pairing.Replicate(sourcePairs, newRound.ID)); err != nil {
			return err
		}

		room.CurrentRound = next
		if err := tx.UpdateRoom(ctx, room); err != nil {
			return err
		}
		if _, err := versioner.Bump(ctx, tx, roomID); err != nil {
			return err
		}
		roundNumber = next
		return nil
	})
	return roundNumber, err
}

// EndGame transitions a room from PLAYING to FINISHED.
func (m *Manager) EndGame(ctx context.Context, roomID types.RoomIDType) error {
	err := m.db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		room, err := tx.LockRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if err := statemachine.CheckRoomTransition(room.Status, types.RoomStatusFinished); err != nil {
			return err
		}
		room.Status = types.RoomStatusFinished
		if err := tx.UpdateRoom(ctx, room); err != nil {
			return err
		}
		_, err = versioner.Bump(ctx, tx, roomID)
		return err
	})
	if err == nil {
		metrics.ActiveRooms.Dec()
	}
	return err
}

// DeleteRoom removes a room and cascades to every descendant entity.
func (m *Manager) DeleteRoom(ctx context.Context, roomID types.RoomIDType) error {
	var wasActive bool
	err := m.db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		room, err := tx.LockRoom(ctx, roomID)
		if err != nil {
			return err
		}
		wasActive = room.Status != types.RoomStatusFinished
		return tx.DeleteRoom(ctx, roomID)
	})
	if err == nil && wasActive {
		// FINISHED rooms were already removed from the active gauge by EndGame.
		metrics.ActiveRooms.Dec()
	}
	return err
}

// GetRoomByCode looks up a room by its human-facing code, along with its
// current total player count (host included).
func (m *Manager) GetRoomByCode(ctx context.Context, code string) (room *types.Room, playerCount int, err error) {
	err = m.db.ReadOnly(ctx, func(ctx context.Context, tx store.Tx) error {
		r, err := tx.GetRoomByCode(ctx, code)
		if err != nil {
			return err
		}
		players, err := tx.ListPlayers(ctx, r.ID)
		if err != nil {
			return err
		}
		room, playerCount = r, len(players)
		return nil
	})
	return room, playerCount, err
}

// ListRooms returns a page of rooms matching filter along with the total count.
func (m *Manager) ListRooms(ctx context.Context, filter store.RoomFilter) (rooms []types.Room, total int, err error) {
	err = m.db.ReadOnly(ctx, func(ctx context.Context, tx store.Tx) error {
		r, t, err := tx.ListRooms(ctx, filter)
		rooms, total = r, t
		return err
	})
	return rooms, total, err
}
