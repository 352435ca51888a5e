// Package types defines the shared domain entities and enums for the chicken-game
// classroom backend. Every other internal package builds on these.
package types

import "time"

// RoomIDType is the internal identity of a Room, distinct from its human-facing Code.
type RoomIDType string

// PlayerIDType is the internal identity of a Player.
type PlayerIDType string

// RoundIDType is the internal identity of a Round.
type RoundIDType string

// PairIDType is the internal identity of a Pair.
type PairIDType string

// ActionIDType is the internal identity of an Action.
type ActionIDType string

// MessageIDType is the internal identity of a Message.
type MessageIDType string

// IndicatorIDType is the internal identity of an Indicator.
type IndicatorIDType string

// RoomStatus is the lifecycle state of a Room.
type RoomStatus string

const (
	RoomStatusWaiting  RoomStatus = "WAITING"
	RoomStatusPlaying  RoomStatus = "PLAYING"
	RoomStatusFinished RoomStatus = "FINISHED"
)

// RoundPhase is a display hint derived from the round number; it never changes a
// round's transition rules.
type RoundPhase string

const (
	RoundPhaseNormal    RoundPhase = "NORMAL"
	RoundPhaseMessage   RoundPhase = "MESSAGE"
	RoundPhaseIndicator RoundPhase = "INDICATOR"
)

// RoundStatus is the lifecycle state of a Round.
type RoundStatus string

const (
	RoundStatusWaitingActions RoundStatus = "waiting_actions"
	RoundStatusReadyToPublish RoundStatus = "ready_to_publish"
	RoundStatusCompleted      RoundStatus = "completed"
)

// Choice is a player's move in a single round.
type Choice string

const (
	ChoiceTurn       Choice = "TURN"
	ChoiceAccelerate Choice = "ACCELERATE"
)

// Valid reports whether c is one of the two legal choices.
func (c Choice) Valid() bool {
	return c == ChoiceTurn || c == ChoiceAccelerate
}

// Room is the root entity of the containment tree described in spec.md §3.
type Room struct {
	ID           RoomIDType `json:"room_id"`
	Code         string     `json:"code"`
	Status       RoomStatus `json:"status"`
	CurrentRound int        `json:"current_round"`
	StateVersion int64      `json:"state_version"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Player is a room member; exactly one player per room has IsHost set.
type Player struct {
	ID          PlayerIDType `json:"player_id"`
	RoomID      RoomIDType   `json:"room_id"`
	Nickname    string       `json:"nickname"`
	DisplayName string       `json:"display_name"`
	IsHost      bool         `json:"is_host"`
	JoinedAt    time.Time    `json:"joined_at"`
}

// DerivePhase returns the display phase for a 1-indexed round number, per spec.md
// §3: NORMAL for 1–4 and 7–10, MESSAGE for 5–6, and INDICATOR for 7–10 once
// indicators have been assigned for the room (indicatorsAssigned).
func DerivePhase(roundNumber int, indicatorsAssigned bool) RoundPhase {
	switch {
	case roundNumber >= 5 && roundNumber <= 6:
		return RoundPhaseMessage
	case roundNumber >= 7 && roundNumber <= 10 && indicatorsAssigned:
		return RoundPhaseIndicator
	default:
		return RoundPhaseNormal
	}
}

// Round is one of up to ten rounds played within a Room.
type Round struct {
	ID          RoundIDType `json:"round_id"`
	RoomID      RoomIDType  `json:"room_id"`
	RoundNumber int         `json:"round_number"`
	Phase       RoundPhase  `json:"phase"`
	Status      RoundStatus `json:"status"`
	Skipped     bool        `json:"skipped"`
	StartedAt   time.Time   `json:"started_at"`
	EndedAt     *time.Time  `json:"ended_at,omitempty"`
}

// Pair binds two non-host players as opponents for a Round.
type Pair struct {
	ID      PairIDType   `json:"pair_id"`
	RoundID RoundIDType  `json:"round_id"`
	P1      PlayerIDType `json:"player1_id"`
	P2      PlayerIDType `json:"player2_id"`
}

// Has reports whether player is one of the two participants in the pair.
func (p Pair) Has(player PlayerIDType) bool {
	return p.P1 == player || p.P2 == player
}

// Opponent returns the other participant in the pair, given one side.
func (p Pair) Opponent(player PlayerIDType) (PlayerIDType, bool) {
	switch player {
	case p.P1:
		return p.P2, true
	case p.P2:
		return p.P1, true
	default:
		return "", false
	}
}

// Action is a single player's submitted choice for a round, with payoff filled in
// only once the round has been finalized.
type Action struct {
	ID        ActionIDType `json:"action_id"`
	RoundID   RoundIDType  `json:"round_id"`
	PlayerID  PlayerIDType `json:"player_id"`
	Choice    Choice       `json:"choice"`
	Payoff    *int         `json:"payoff,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Message is an inter-player note allowed only in rounds 5 and 6.
type Message struct {
	ID        MessageIDType `json:"message_id"`
	RoundID   RoundIDType   `json:"round_id"`
	Sender    PlayerIDType  `json:"sender_id"`
	Receiver  PlayerIDType  `json:"receiver_id"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"created_at"`
}

// Indicator is a one-shot emoji identity marker assigned after round 6.
type Indicator struct {
	ID       IndicatorIDType `json:"indicator_id"`
	RoomID   RoomIDType      `json:"room_id"`
	PlayerID PlayerIDType    `json:"player_id"`
	Symbol   string          `json:"symbol"`
}

// IndicatorWhitelist is the closed set of symbols AssignIndicators draws from.
// Order is only meaningful for deterministic tests; assignment itself shuffles players.
var IndicatorWhitelist = []string{
	"🦊", "🐢", "🦁", "🐙", "🦉", "🐺", "🐝", "🐧",
}
