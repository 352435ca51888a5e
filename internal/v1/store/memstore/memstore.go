// Package memstore is an in-memory implementation of store.DB/store.Tx used by the
// unit tests of every domain package (round, roommgr, message, indicator, snapshot,
// cleanup). It exists so those packages' tests stay hermetic (no live Postgres),
// the same way the teacher's room/session packages test against hand-written mocks
// of types.ClientInterface instead of a real WebSocket connection.
//
// Unlike a plain map-backed stub, memstore genuinely serializes LockRoom/LockRound
// behind per-entity mutexes held for the lifetime of the enclosing transaction, so
// the concurrency tests in internal/v1/round (the "last submitter finalizes exactly
// once" race) exercise real contention instead of a no-op lock.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/classroom-games/chicken-backend/internal/v1/apierr"
	"github.com/classroom-games/chicken-backend/internal/v1/store"
	"github.com/classroom-games/chicken-backend/internal/v1/types"
)

// Store is the in-memory backing state. Zero value is not usable; use New().
type Store struct {
	mu sync.Mutex // guards every map below

	rooms      map[types.RoomIDType]*types.Room
	roomByCode map[string]types.RoomIDType

	players       map[types.PlayerIDType]*types.Player
	playersByRoom map[types.RoomIDType][]types.PlayerIDType

	rounds       map[types.RoundIDType]*types.Round
	roundsByRoom map[types.RoomIDType]map[int]types.RoundIDType

	pairs        map[types.PairIDType]*types.Pair
	pairsByRound map[types.RoundIDType][]types.PairIDType

	actions        map[types.ActionIDType]*types.Action
	actionsByRound map[types.RoundIDType]map[types.PlayerIDType]types.ActionIDType

	messages              map[types.MessageIDType]*types.Message
	messageBySenderRound  map[types.RoundIDType]map[types.PlayerIDType]types.MessageIDType
	messagesByReceiver    map[types.RoundIDType]map[types.PlayerIDType][]types.MessageIDType

	indicators       map[types.IndicatorIDType]*types.Indicator
	indicatorsByRoom map[types.RoomIDType]map[types.PlayerIDType]types.IndicatorIDType

	roomLocks  map[types.RoomIDType]*sync.Mutex
	roundLocks map[types.RoundIDType]*sync.Mutex
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		rooms:                make(map[types.RoomIDType]*types.Room),
		roomByCode:           make(map[string]types.RoomIDType),
		players:              make(map[types.PlayerIDType]*types.Player),
		playersByRoom:        make(map[types.RoomIDType][]types.PlayerIDType),
		rounds:               make(map[types.RoundIDType]*types.Round),
		roundsByRoom:         make(map[types.RoomIDType]map[int]types.RoundIDType),
		pairs:                make(map[types.PairIDType]*types.Pair),
		pairsByRound:         make(map[types.RoundIDType][]types.PairIDType),
		actions:              make(map[types.ActionIDType]*types.Action),
		actionsByRound:       make(map[types.RoundIDType]map[types.PlayerIDType]types.ActionIDType),
		messages:             make(map[types.MessageIDType]*types.Message),
		messageBySenderRound: make(map[types.RoundIDType]map[types.PlayerIDType]types.MessageIDType),
		messagesByReceiver:   make(map[types.RoundIDType]map[types.PlayerIDType][]types.MessageIDType),
		indicators:           make(map[types.IndicatorIDType]*types.Indicator),
		indicatorsByRoom:     make(map[types.RoomIDType]map[types.PlayerIDType]types.IndicatorIDType),
		roomLocks:            make(map[types.RoomIDType]*sync.Mutex),
		roundLocks:           make(map[types.RoundIDType]*sync.Mutex),
	}
}

// Ping always succeeds; there is nothing to ping in memory.
func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) roomLock(id types.RoomIDType) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.roomLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.roomLocks[id] = l
	}
	return l
}

func (s *Store) roundLock(id types.RoundIDType) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.roundLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.roundLocks[id] = l
	}
	return l
}

// memTx is a single logical transaction. Every lock it acquires is released when
// the enclosing WithTx/ReadOnly call returns, mirroring a Postgres transaction
// holding row locks until COMMIT/ROLLBACK.
type memTx struct {
	s     *Store
	locks []*sync.Mutex
}

func (t *memTx) acquireRoom(id types.RoomIDType) {
	l := t.s.roomLock(id)
	l.Lock()
	t.locks = append(t.locks, l)
}

func (t *memTx) acquireRound(id types.RoundIDType) {
	l := t.s.roundLock(id)
	l.Lock()
	t.locks = append(t.locks, l)
}

func (t *memTx) release() {
	for i := len(t.locks) - 1; i >= 0; i-- {
		t.locks[i].Unlock()
	}
}

// WithTx runs fn with a fresh transaction handle, releasing any row locks it
// acquired once fn returns.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	t := &memTx{s: s}
	defer t.release()
	return fn(ctx, t)
}

// ReadOnly is identical to WithTx in the in-memory store: there is no separate
// read-only transaction mode to emulate, only the interface shape.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	t := &memTx{s: s}
	defer t.release()
	return fn(ctx, t)
}

func newID[T ~string]() T {
	return T(uuid.New().String())
}

// --- Room ---

func (t *memTx) InsertRoom(ctx context.Context, room *types.Room) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	room.ID = newID[types.RoomIDType]()
	now := time.Now().UTC()
	room.CreatedAt = now
	room.UpdatedAt = now
	cp := *room
	s.rooms[room.ID] = &cp
	s.roomByCode[room.Code] = room.ID
	return nil
}

func (t *memTx) LockRoom(ctx context.Context, id types.RoomIDType) (*types.Room, error) {
	t.acquireRoom(id)
	return t.GetRoomByID(ctx, id)
}

func (t *memTx) GetRoomByID(ctx context.Context, id types.RoomIDType) (*types.Room, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, apierr.NotFound("room not found")
	}
	cp := *r
	return &cp, nil
}

func (t *memTx) GetRoomByCode(ctx context.Context, code string) (*types.Room, error) {
	s := t.s
	s.mu.Lock()
	id, ok := s.roomByCode[code]
	s.mu.Unlock()
	if !ok {
		return nil, apierr.NotFound("room not found")
	}
	return t.GetRoomByID(ctx, id)
}

func (t *memTx) UpdateRoom(ctx context.Context, room *types.Room) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rooms[room.ID]
	if !ok {
		return apierr.NotFound("room not found")
	}
	existing.Status = room.Status
	existing.CurrentRound = room.CurrentRound
	return nil
}

func (t *memTx) DeleteRoom(ctx context.Context, id types.RoomIDType) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[id]
	if !ok {
		return apierr.NotFound("room not found")
	}
	delete(s.roomByCode, room.Code)
	delete(s.rooms, id)

	for _, pid := range s.playersByRoom[id] {
		delete(s.players, pid)
	}
	delete(s.playersByRoom, id)

	for roundNum, rid := range s.roundsByRoom[id] {
		_ = roundNum
		for _, pairID := range s.pairsByRound[rid] {
			delete(s.pairs, pairID)
		}
		delete(s.pairsByRound, rid)

		for _, actionID := range s.actionsByRound[rid] {
			delete(s.actions, actionID)
		}
		delete(s.actionsByRound, rid)

		for _, msgID := range s.messageBySenderRound[rid] {
			delete(s.messages, msgID)
		}
		delete(s.messageBySenderRound, rid)
		delete(s.messagesByReceiver, rid)

		delete(s.rounds, rid)
	}
	delete(s.roundsByRoom, id)

	for _, indID := range s.indicatorsByRoom[id] {
		delete(s.indicators, indID)
	}
	delete(s.indicatorsByRoom, id)

	return nil
}

func (t *memTx) ListRooms(ctx context.Context, filter store.RoomFilter) ([]types.Room, int, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []types.Room
	for _, r := range s.rooms {
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		all = append(all, *r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	total := len(all)
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	start := filter.Offset
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (t *memTx) ListStaleRooms(ctx context.Context, waitingPlayingOlderThanSeconds, finishedOlderThanSeconds int64) ([]types.Room, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var out []types.Room
	for _, r := range s.rooms {
		age := now.Sub(r.UpdatedAt)
		switch r.Status {
		case types.RoomStatusFinished:
			if age > time.Duration(finishedOlderThanSeconds)*time.Second {
				out = append(out, *r)
			}
		case types.RoomStatusWaiting, types.RoomStatusPlaying:
			if age > time.Duration(waitingPlayingOlderThanSeconds)*time.Second {
				out = append(out, *r)
			}
		}
	}
	return out, nil
}

// --- Player ---

func (t *memTx) InsertPlayer(ctx context.Context, p *types.Player) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = newID[types.PlayerIDType]()
	p.JoinedAt = time.Now().UTC()
	cp := *p
	s.players[p.ID] = &cp
	s.playersByRoom[p.RoomID] = append(s.playersByRoom[p.RoomID], p.ID)
	return nil
}

func (t *memTx) GetPlayer(ctx context.Context, id types.PlayerIDType) (*types.Player, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return nil, apierr.NotFound("player not found")
	}
	cp := *p
	return &cp, nil
}

func (t *memTx) ListPlayers(ctx context.Context, roomID types.RoomIDType) ([]types.Player, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Player
	for _, id := range s.playersByRoom[roomID] {
		out = append(out, *s.players[id])
	}
	return out, nil
}

func (t *memTx) ListNonHostPlayers(ctx context.Context, roomID types.RoomIDType) ([]types.Player, error) {
	all, err := t.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	var out []types.Player
	for _, p := range all {
		if !p.IsHost {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *memTx) CountNonHostPlayers(ctx context.Context, roomID types.RoomIDType) (int, error) {
	nonHost, err := t.ListNonHostPlayers(ctx, roomID)
	if err != nil {
		return 0, err
	}
	return len(nonHost), nil
}

// --- Round ---

func (t *memTx) InsertRound(ctx context.Context, r *types.Round) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = newID[types.RoundIDType]()
	r.StartedAt = time.Now().UTC()
	cp := *r
	s.rounds[r.ID] = &cp
	if s.roundsByRoom[r.RoomID] == nil {
		s.roundsByRoom[r.RoomID] = make(map[int]types.RoundIDType)
	}
	s.roundsByRoom[r.RoomID][r.RoundNumber] = r.ID
	return nil
}

func (t *memTx) roundIDFor(roomID types.RoomIDType, roundNumber int) (types.RoundIDType, bool) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.roundsByRoom[roomID][roundNumber]
	return id, ok
}

func (t *memTx) LockRound(ctx context.Context, roomID types.RoomIDType, roundNumber int) (*types.Round, error) {
	id, ok := t.roundIDFor(roomID, roundNumber)
	if !ok {
		return nil, apierr.NotFound("round not found")
	}
	t.acquireRound(id)
	return t.getRoundByID(id)
}

func (t *memTx) getRoundByID(id types.RoundIDType) (*types.Round, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[id]
	if !ok {
		return nil, apierr.NotFound("round not found")
	}
	cp := *r
	return &cp, nil
}

func (t *memTx) GetRound(ctx context.Context, roomID types.RoomIDType, roundNumber int) (*types.Round, error) {
	id, ok := t.roundIDFor(roomID, roundNumber)
	if !ok {
		return nil, apierr.NotFound("round not found")
	}
	return t.getRoundByID(id)
}

func (t *memTx) UpdateRound(ctx context.Context, r *types.Round) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rounds[r.ID]
	if !ok {
		return apierr.NotFound("round not found")
	}
	existing.Status = r.Status
	existing.Skipped = r.Skipped
	existing.EndedAt = r.EndedAt
	existing.Phase = r.Phase
	return nil
}

func (t *memTx) ListRounds(ctx context.Context, roomID types.RoomIDType) ([]types.Round, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Round
	for _, id := range s.roundsByRoom[roomID] {
		out = append(out, *s.rounds[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundNumber < out[j].RoundNumber })
	return out, nil
}

// --- Pair ---

func (t *memTx) InsertPairs(ctx context.Context, pairs []types.Pair) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pairs {
		p.ID = newID[types.PairIDType]()
		cp := p
		s.pairs[p.ID] = &cp
		s.pairsByRound[p.RoundID] = append(s.pairsByRound[p.RoundID], p.ID)
	}
	return nil
}

func (t *memTx) ListPairs(ctx context.Context, roundID types.RoundIDType) ([]types.Pair, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Pair
	for _, id := range s.pairsByRound[roundID] {
		out = append(out, *s.pairs[id])
	}
	return out, nil
}

func (t *memTx) GetPairForPlayer(ctx context.Context, roundID types.RoundIDType, playerID types.PlayerIDType) (*types.Pair, error) {
	pairs, _ := t.ListPairs(ctx, roundID)
	for _, p := range pairs {
		if p.Has(playerID) {
			cp := p
			return &cp, nil
		}
	}
	return nil, apierr.NotFound("pair not found for player")
}

// --- Action ---

func (t *memTx) InsertAction(ctx context.Context, a *types.Action) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.actionsByRound[a.RoundID] == nil {
		s.actionsByRound[a.RoundID] = make(map[types.PlayerIDType]types.ActionIDType)
	}
	if _, exists := s.actionsByRound[a.RoundID][a.PlayerID]; exists {
		return apierr.Conflict("duplicate_action", "action already exists for this player and round")
	}

	a.ID = newID[types.ActionIDType]()
	a.CreatedAt = time.Now().UTC()
	cp := *a
	s.actions[a.ID] = &cp
	s.actionsByRound[a.RoundID][a.PlayerID] = a.ID
	return nil
}

func (t *memTx) GetAction(ctx context.Context, roundID types.RoundIDType, playerID types.PlayerIDType) (*types.Action, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.actionsByRound[roundID][playerID]
	if !ok {
		return nil, nil
	}
	cp := *s.actions[id]
	return &cp, nil
}

func (t *memTx) ListActions(ctx context.Context, roundID types.RoundIDType) ([]types.Action, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Action
	for _, id := range s.actionsByRound[roundID] {
		out = append(out, *s.actions[id])
	}
	return out, nil
}

func (t *memTx) UpdateActionPayoff(ctx context.Context, actionID types.ActionIDType, payoff int) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[actionID]
	if !ok {
		return apierr.NotFound("action not found")
	}
	v := payoff
	a.Payoff = &v
	return nil
}

func (t *memTx) CountActions(ctx context.Context, roundID types.RoundIDType) (int, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actionsByRound[roundID]), nil
}

// --- Message ---

func (t *memTx) InsertMessage(ctx context.Context, m *types.Message) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.messageBySenderRound[m.RoundID] == nil {
		s.messageBySenderRound[m.RoundID] = make(map[types.PlayerIDType]types.MessageIDType)
	}
	if _, exists := s.messageBySenderRound[m.RoundID][m.Sender]; exists {
		return apierr.Conflict("already_sent", "message already sent by this player for this round")
	}

	m.ID = newID[types.MessageIDType]()
	m.CreatedAt = time.Now().UTC()
	cp := *m
	s.messages[m.ID] = &cp
	s.messageBySenderRound[m.RoundID][m.Sender] = m.ID
	if s.messagesByReceiver[m.RoundID] == nil {
		s.messagesByReceiver[m.RoundID] = make(map[types.PlayerIDType][]types.MessageIDType)
	}
	s.messagesByReceiver[m.RoundID][m.Receiver] = append(s.messagesByReceiver[m.RoundID][m.Receiver], m.ID)
	return nil
}

func (t *memTx) GetMessageBySender(ctx context.Context, roundID types.RoundIDType, sender types.PlayerIDType) (*types.Message, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.messageBySenderRound[roundID][sender]
	if !ok {
		return nil, nil
	}
	cp := *s.messages[id]
	return &cp, nil
}

func (t *memTx) GetLatestMessageForReceiver(ctx context.Context, roundID types.RoundIDType, receiver types.PlayerIDType) (*types.Message, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.messagesByReceiver[roundID][receiver]
	if len(ids) == 0 {
		return nil, nil
	}
	var latest *types.Message
	for _, id := range ids {
		m := s.messages[id]
		if latest == nil || m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	cp := *latest
	return &cp, nil
}

// --- Indicator ---

func (t *memTx) InsertIndicators(ctx context.Context, indicators []types.Indicator) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ind := range indicators {
		if s.indicatorsByRoom[ind.RoomID] != nil {
			if _, exists := s.indicatorsByRoom[ind.RoomID][ind.PlayerID]; exists {
				return apierr.Conflict("already_assigned", "indicator already assigned for this player")
			}
		}
	}

	for _, ind := range indicators {
		ind.ID = newID[types.IndicatorIDType]()
		cp := ind
		s.indicators[ind.ID] = &cp
		if s.indicatorsByRoom[ind.RoomID] == nil {
			s.indicatorsByRoom[ind.RoomID] = make(map[types.PlayerIDType]types.IndicatorIDType)
		}
		s.indicatorsByRoom[ind.RoomID][ind.PlayerID] = ind.ID
	}
	return nil
}

func (t *memTx) ListIndicators(ctx context.Context, roomID types.RoomIDType) ([]types.Indicator, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Indicator
	for _, id := range s.indicatorsByRoom[roomID] {
		out = append(out, *s.indicators[id])
	}
	return out, nil
}

func (t *memTx) GetIndicator(ctx context.Context, roomID types.RoomIDType, playerID types.PlayerIDType) (*types.Indicator, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.indicatorsByRoom[roomID][playerID]
	if !ok {
		return nil, apierr.NotFound("indicator not found")
	}
	cp := *s.indicators[id]
	return &cp, nil
}

func (t *memTx) CountIndicators(ctx context.Context, roomID types.RoomIDType) (int, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.indicatorsByRoom[roomID]), nil
}

// --- Versioner ---

func (t *memTx) BumpVersion(ctx context.Context, roomID types.RoomIDType) (int64, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return 0, apierr.NotFound("room not found")
	}
	r.StateVersion++
	r.UpdatedAt = time.Now().UTC()
	return r.StateVersion, nil
}

var _ store.DB = (*Store)(nil)
var _ store.Tx = (*memTx)(nil)
