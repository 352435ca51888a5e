package store

// schemaSQL is the DDL for the relational store described in spec.md §3. Applied by
// PgStore.Migrate at startup; idempotent via IF NOT EXISTS so repeated boots (or
// concurrent instances) don't race each other.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS rooms (
	id            uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	code          text NOT NULL UNIQUE,
	status        text NOT NULL DEFAULT 'WAITING',
	current_round integer NOT NULL DEFAULT 0,
	state_version bigint NOT NULL DEFAULT 1,
	created_at    timestamptz NOT NULL DEFAULT now(),
	updated_at    timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS players (
	id           uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	room_id      uuid NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	nickname     text NOT NULL,
	display_name text NOT NULL,
	is_host      boolean NOT NULL DEFAULT false,
	joined_at    timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_players_room ON players(room_id);

CREATE TABLE IF NOT EXISTS rounds (
	id           uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	room_id      uuid NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	round_number integer NOT NULL,
	phase        text NOT NULL,
	status       text NOT NULL DEFAULT 'waiting_actions',
	skipped      boolean NOT NULL DEFAULT false,
	started_at   timestamptz NOT NULL DEFAULT now(),
	ended_at     timestamptz,
	UNIQUE (room_id, round_number)
);

CREATE TABLE IF NOT EXISTS pairs (
	id       uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	round_id uuid NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
	player1  uuid NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	player2  uuid NOT NULL REFERENCES players(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_pairs_round ON pairs(round_id);

CREATE TABLE IF NOT EXISTS actions (
	id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	round_id   uuid NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
	player_id  uuid NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	choice     text NOT NULL,
	payoff     integer,
	created_at timestamptz NOT NULL DEFAULT now(),
	UNIQUE (round_id, player_id)
);

CREATE TABLE IF NOT EXISTS messages (
	id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	round_id   uuid NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
	sender     uuid NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	receiver   uuid NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	content    text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	UNIQUE (round_id, sender)
);

CREATE TABLE IF NOT EXISTS indicators (
	id        uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	room_id   uuid NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	player_id uuid NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	symbol    text NOT NULL,
	UNIQUE (room_id, player_id)
);
`
