package store

import (
	"context"

	"github.com/classroom-games/chicken-backend/internal/v1/types"
)

// RoomFilter narrows a ListRooms query; a nil Status means "any status".
type RoomFilter struct {
	Status *types.RoomStatus
	Limit  int
	Offset int
}

// DB is the top-level handle domain packages depend on. Every mutating operation
// must go through WithTx so all its writes land in one atomic transaction; reads
// that only need a consistent snapshot use ReadOnly.
type DB interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	ReadOnly(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
}

// Tx is the set of persistence operations available within a single transaction.
// LockRoom/LockRound acquire a row-level lock (SELECT ... FOR UPDATE in the
// Postgres implementation) that is held until the transaction commits or rolls
// back — this is the single suspension point spec.md §5 requires every
// state-changing operation to go through.
type Tx interface {
	// Room
	InsertRoom(ctx context.Context, room *types.Room) error
	LockRoom(ctx context.Context, id types.RoomIDType) (*types.Room, error)
	GetRoomByID(ctx context.Context, id types.RoomIDType) (*types.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*types.Room, error)
	UpdateRoom(ctx context.Context, room *types.Room) error
	DeleteRoom(ctx context.Context, id types.RoomIDType) error
	ListRooms(ctx context.Context, filter RoomFilter) ([]types.Room, int, error)
	ListStaleRooms(ctx context.Context, waitingPlayingOlderThan, finishedOlderThan int64) ([]types.Room, error)

	// Player
	InsertPlayer(ctx context.Context, p *types.Player) error
	GetPlayer(ctx context.Context, id types.PlayerIDType) (*types.Player, error)
	ListPlayers(ctx context.Context, roomID types.RoomIDType) ([]types.Player, error)
	ListNonHostPlayers(ctx context.Context, roomID types.RoomIDType) ([]types.Player, error)
	CountNonHostPlayers(ctx context.Context, roomID types.RoomIDType) (int, error)

	// Round
	InsertRound(ctx context.Context, r *types.Round) error
	LockRound(ctx context.Context, roomID types.RoomIDType, roundNumber int) (*types.Round, error)
	GetRound(ctx context.Context, roomID types.RoomIDType, roundNumber int) (*types.Round, error)
	UpdateRound(ctx context.Context, r *types.Round) error
	ListRounds(ctx context.Context, roomID types.RoomIDType) ([]types.Round, error)

	// Pair
	InsertPairs(ctx context.Context, pairs []types.Pair) error
	ListPairs(ctx context.Context, roundID types.RoundIDType) ([]types.Pair, error)
	GetPairForPlayer(ctx context.Context, roundID types.RoundIDType, playerID types.PlayerIDType) (*types.Pair, error)

	// Action
	InsertAction(ctx context.Context, a *types.Action) error
	GetAction(ctx context.Context, roundID types.RoundIDType, playerID types.PlayerIDType) (*types.Action, error)
	ListActions(ctx context.Context, roundID types.RoundIDType) ([]types.Action, error)
	UpdateActionPayoff(ctx context.Context, actionID types.ActionIDType, payoff int) error
	CountActions(ctx context.Context, roundID types.RoundIDType) (int, error)

	// Message
	InsertMessage(ctx context.Context, m *types.Message) error
	GetMessageBySender(ctx context.Context, roundID types.RoundIDType, sender types.PlayerIDType) (*types.Message, error)
	GetLatestMessageForReceiver(ctx context.Context, roundID types.RoundIDType, receiver types.PlayerIDType) (*types.Message, error)

	// Indicator
	InsertIndicators(ctx context.Context, indicators []types.Indicator) error
	ListIndicators(ctx context.Context, roomID types.RoomIDType) ([]types.Indicator, error)
	GetIndicator(ctx context.Context, roomID types.RoomIDType, playerID types.PlayerIDType) (*types.Indicator, error)
	CountIndicators(ctx context.Context, roomID types.RoomIDType) (int, error)

	// Versioner — the sole entry point for bumping state_version (spec.md §4.1).
	// Must be called after LockRoom, or LockRound on one of the room's rounds,
	// within the same transaction.
	BumpVersion(ctx context.Context, roomID types.RoomIDType) (int64, error)
}
