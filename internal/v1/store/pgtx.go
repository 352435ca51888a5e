package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/classroom-games/chicken-backend/internal/v1/apierr"
	"github.com/classroom-games/chicken-backend/internal/v1/types"
)

// pgTx implements Tx against a live pgx.Tx. Every method here is a thin, direct SQL
// statement — no query builder, matching the corpus's preference for hand-written
// SQL over an ORM (no example repo in the pack reaches for gorm when pgx is
// available).
type pgTx struct {
	tx pgx.Tx
}

func wrapNotFound(err error, detail string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apierr.NotFound(detail)
	}
	return err
}

// --- Room ---

func (t *pgTx) InsertRoom(ctx context.Context, room *types.Room) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO rooms (code, status, current_round, state_version)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		room.Code, room.Status, room.CurrentRound, room.StateVersion,
	).Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
}

func scanRoom(row pgx.Row) (*types.Room, error) {
	var r types.Room
	err := row.Scan(&r.ID, &r.Code, &r.Status, &r.CurrentRound, &r.StateVersion, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const roomColumns = "id, code, status, current_round, state_version, created_at, updated_at"

func (t *pgTx) LockRoom(ctx context.Context, id types.RoomIDType) (*types.Room, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1 FOR UPDATE`, id)
	r, err := scanRoom(row)
	if err != nil {
		return nil, wrapNotFound(err, "room not found")
	}
	return r, nil
}

func (t *pgTx) GetRoomByID(ctx context.Context, id types.RoomIDType) (*types.Room, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
	r, err := scanRoom(row)
	if err != nil {
		return nil, wrapNotFound(err, "room not found")
	}
	return r, nil
}

func (t *pgTx) GetRoomByCode(ctx context.Context, code string) (*types.Room, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE code = $1`, code)
	r, err := scanRoom(row)
	if err != nil {
		return nil, wrapNotFound(err, "room not found")
	}
	return r, nil
}

func (t *pgTx) UpdateRoom(ctx context.Context, room *types.Room) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE rooms SET status = $2, current_round = $3
		WHERE id = $1`,
		room.ID, room.Status, room.CurrentRound)
	return err
}

func (t *pgTx) DeleteRoom(ctx context.Context, id types.RoomIDType) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound("room not found")
	}
	return nil
}

func (t *pgTx) ListRooms(ctx context.Context, filter RoomFilter) ([]types.Room, int, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}

	var rows pgx.Rows
	var err error
	var total int

	if filter.Status != nil {
		if err := t.tx.QueryRow(ctx, `SELECT count(*) FROM rooms WHERE status = $1`, *filter.Status).Scan(&total); err != nil {
			return nil, 0, err
		}
		rows, err = t.tx.Query(ctx, `SELECT `+roomColumns+` FROM rooms WHERE status = $1 ORDER BY created_at LIMIT $2 OFFSET $3`,
			*filter.Status, limit, filter.Offset)
	} else {
		if err := t.tx.QueryRow(ctx, `SELECT count(*) FROM rooms`).Scan(&total); err != nil {
			return nil, 0, err
		}
		rows, err = t.tx.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY created_at LIMIT $1 OFFSET $2`, limit, filter.Offset)
	}
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []types.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

func (t *pgTx) ListStaleRooms(ctx context.Context, waitingPlayingOlderThanSeconds, finishedOlderThanSeconds int64) ([]types.Room, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+roomColumns+` FROM rooms
		WHERE (status = 'FINISHED' AND updated_at < now() - make_interval(secs => $1))
		   OR (status IN ('WAITING', 'PLAYING') AND updated_at < now() - make_interval(secs => $2))`,
		finishedOlderThanSeconds, waitingPlayingOlderThanSeconds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// --- Player ---

func (t *pgTx) InsertPlayer(ctx context.Context, p *types.Player) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO players (room_id, nickname, display_name, is_host)
		VALUES ($1, $2, $3, $4)
		RETURNING id, joined_at`,
		p.RoomID, p.Nickname, p.DisplayName, p.IsHost,
	).Scan(&p.ID, &p.JoinedAt)
}

func scanPlayer(row pgx.Row) (*types.Player, error) {
	var p types.Player
	err := row.Scan(&p.ID, &p.RoomID, &p.Nickname, &p.DisplayName, &p.IsHost, &p.JoinedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const playerColumns = "id, room_id, nickname, display_name, is_host, joined_at"

func (t *pgTx) GetPlayer(ctx context.Context, id types.PlayerIDType) (*types.Player, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id)
	p, err := scanPlayer(row)
	if err != nil {
		return nil, wrapNotFound(err, "player not found")
	}
	return p, nil
}

func (t *pgTx) ListPlayers(ctx context.Context, roomID types.RoomIDType) ([]types.Player, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+playerColumns+` FROM players WHERE room_id = $1 ORDER BY joined_at`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (t *pgTx) ListNonHostPlayers(ctx context.Context, roomID types.RoomIDType) ([]types.Player, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+playerColumns+` FROM players WHERE room_id = $1 AND is_host = false ORDER BY joined_at`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (t *pgTx) CountNonHostPlayers(ctx context.Context, roomID types.RoomIDType) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT count(*) FROM players WHERE room_id = $1 AND is_host = false`, roomID).Scan(&n)
	return n, err
}

// --- Round ---

func (t *pgTx) InsertRound(ctx context.Context, r *types.Round) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO rounds (room_id, round_number, phase, status, skipped)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, started_at`,
		r.RoomID, r.RoundNumber, r.Phase, r.Status, r.Skipped,
	).Scan(&r.ID, &r.StartedAt)
}

func scanRound(row pgx.Row) (*types.Round, error) {
	var r types.Round
	err := row.Scan(&r.ID, &r.RoomID, &r.RoundNumber, &r.Phase, &r.Status, &r.Skipped, &r.StartedAt, &r.EndedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const roundColumns = "id, room_id, round_number, phase, status, skipped, started_at, ended_at"

func (t *pgTx) LockRound(ctx context.Context, roomID types.RoomIDType, roundNumber int) (*types.Round, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+roundColumns+` FROM rounds WHERE room_id = $1 AND round_number = $2 FOR UPDATE`, roomID, roundNumber)
	r, err := scanRound(row)
	if err != nil {
		return nil, wrapNotFound(err, "round not found")
	}
	return r, nil
}

func (t *pgTx) GetRound(ctx context.Context, roomID types.RoomIDType, roundNumber int) (*types.Round, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+roundColumns+` FROM rounds WHERE room_id = $1 AND round_number = $2`, roomID, roundNumber)
	r, err := scanRound(row)
	if err != nil {
		return nil, wrapNotFound(err, "round not found")
	}
	return r, nil
}

func (t *pgTx) UpdateRound(ctx context.Context, r *types.Round) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE rounds SET status = $2, skipped = $3, ended_at = $4, phase = $5
		WHERE id = $1`,
		r.ID, r.Status, r.Skipped, r.EndedAt, r.Phase)
	return err
}

func (t *pgTx) ListRounds(ctx context.Context, roomID types.RoomIDType) ([]types.Round, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+roundColumns+` FROM rounds WHERE room_id = $1 ORDER BY round_number`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// --- Pair ---

func (t *pgTx) InsertPairs(ctx context.Context, pairs []types.Pair) error {
	batch := &pgx.Batch{}
	for _, p := range pairs {
		batch.Queue(`INSERT INTO pairs (round_id, player1, player2) VALUES ($1, $2, $3)`, p.RoundID, p.P1, p.P2)
	}
	br := t.tx.SendBatch(ctx, batch)
	defer br.Close()
	for range pairs {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) ListPairs(ctx context.Context, roundID types.RoundIDType) ([]types.Pair, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, round_id, player1, player2 FROM pairs WHERE round_id = $1`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Pair
	for rows.Next() {
		var p types.Pair
		if err := rows.Scan(&p.ID, &p.RoundID, &p.P1, &p.P2); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *pgTx) GetPairForPlayer(ctx context.Context, roundID types.RoundIDType, playerID types.PlayerIDType) (*types.Pair, error) {
	row := t.tx.QueryRow(ctx, `SELECT id, round_id, player1, player2 FROM pairs WHERE round_id = $1 AND (player1 = $2 OR player2 = $2)`, roundID, playerID)
	var p types.Pair
	if err := row.Scan(&p.ID, &p.RoundID, &p.P1, &p.P2); err != nil {
		return nil, wrapNotFound(err, "pair not found for player")
	}
	return &p, nil
}

// --- Action ---

func (t *pgTx) InsertAction(ctx context.Context, a *types.Action) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO actions (round_id, player_id, choice, payoff)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		a.RoundID, a.PlayerID, a.Choice, a.Payoff,
	).Scan(&a.ID, &a.CreatedAt)
}

func scanAction(row pgx.Row) (*types.Action, error) {
	var a types.Action
	err := row.Scan(&a.ID, &a.RoundID, &a.PlayerID, &a.Choice, &a.Payoff, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const actionColumns = "id, round_id, player_id, choice, payoff, created_at"

func (t *pgTx) GetAction(ctx context.Context, roundID types.RoundIDType, playerID types.PlayerIDType) (*types.Action, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+actionColumns+` FROM actions WHERE round_id = $1 AND player_id = $2`, roundID, playerID)
	a, err := scanAction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (t *pgTx) ListActions(ctx context.Context, roundID types.RoundIDType) ([]types.Action, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+actionColumns+` FROM actions WHERE round_id = $1`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (t *pgTx) UpdateActionPayoff(ctx context.Context, actionID types.ActionIDType, payoff int) error {
	_, err := t.tx.Exec(ctx, `UPDATE actions SET payoff = $2 WHERE id = $1`, actionID, payoff)
	return err
}

func (t *pgTx) CountActions(ctx context.Context, roundID types.RoundIDType) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT count(DISTINCT player_id) FROM actions WHERE round_id = $1`, roundID).Scan(&n)
	return n, err
}

// --- Message ---

func (t *pgTx) InsertMessage(ctx context.Context, m *types.Message) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO messages (round_id, sender, receiver, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		m.RoundID, m.Sender, m.Receiver, m.Content,
	).Scan(&m.ID, &m.CreatedAt)
}

const messageColumns = "id, round_id, sender, receiver, content, created_at"

func scanMessage(row pgx.Row) (*types.Message, error) {
	var m types.Message
	err := row.Scan(&m.ID, &m.RoundID, &m.Sender, &m.Receiver, &m.Content, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (t *pgTx) GetMessageBySender(ctx context.Context, roundID types.RoundIDType, sender types.PlayerIDType) (*types.Message, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE round_id = $1 AND sender = $2`, roundID, sender)
	m, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (t *pgTx) GetLatestMessageForReceiver(ctx context.Context, roundID types.RoundIDType, receiver types.PlayerIDType) (*types.Message, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE round_id = $1 AND receiver = $2
		ORDER BY created_at DESC LIMIT 1`, roundID, receiver)
	m, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// --- Indicator ---

func (t *pgTx) InsertIndicators(ctx context.Context, indicators []types.Indicator) error {
	batch := &pgx.Batch{}
	for _, ind := range indicators {
		batch.Queue(`INSERT INTO indicators (room_id, player_id, symbol) VALUES ($1, $2, $3)`, ind.RoomID, ind.PlayerID, ind.Symbol)
	}
	br := t.tx.SendBatch(ctx, batch)
	defer br.Close()
	for range indicators {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) ListIndicators(ctx context.Context, roomID types.RoomIDType) ([]types.Indicator, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, room_id, player_id, symbol FROM indicators WHERE room_id = $1`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Indicator
	for rows.Next() {
		var ind types.Indicator
		if err := rows.Scan(&ind.ID, &ind.RoomID, &ind.PlayerID, &ind.Symbol); err != nil {
			return nil, err
		}
		out = append(out, ind)
	}
	return out, rows.Err()
}

func (t *pgTx) GetIndicator(ctx context.Context, roomID types.RoomIDType, playerID types.PlayerIDType) (*types.Indicator, error) {
	row := t.tx.QueryRow(ctx, `SELECT id, room_id, player_id, symbol FROM indicators WHERE room_id = $1 AND player_id = $2`, roomID, playerID)
	var ind types.Indicator
	if err := row.Scan(&ind.ID, &ind.RoomID, &ind.PlayerID, &ind.Symbol); err != nil {
		return nil, wrapNotFound(err, "indicator not found")
	}
	return &ind, nil
}

func (t *pgTx) CountIndicators(ctx context.Context, roomID types.RoomIDType) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT count(*) FROM indicators WHERE room_id = $1`, roomID).Scan(&n)
	return n, err
}

// --- Versioner ---

func (t *pgTx) BumpVersion(ctx context.Context, roomID types.RoomIDType) (int64, error) {
	var v int64
	err := t.tx.QueryRow(ctx, `
		UPDATE rooms SET state_version = state_version + 1, updated_at = now()
		WHERE id = $1
		RETURNING state_version`, roomID).Scan(&v)
	if err != nil {
		return 0, wrapNotFound(err, "room not found")
	}
	return v, nil
}
