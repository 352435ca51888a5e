// Package payoff implements the iterated Chicken game's pure 2x2 payoff table
// (spec.md §3/§4.4). It has no dependency on storage or transport, the same way the
// teacher's room_helpers.go keeps pure predicates like canClientJoinSFU separate
// from anything that touches a connection or a lock.
package payoff

import "github.com/classroom-games/chicken-backend/internal/v1/types"

// Payoffs for (your choice, opponent's choice). Both swerving is the safe
// compromise, accelerating while the opponent swerves is the best outcome, mutual
// acceleration is the crash.
const (
	bothTurn         = 3
	turnVsAccelerate = -3
	accelerateVsTurn = 10
	bothAccelerate   = -10
)

// Compute returns the payoff for a player who chose mine against an opponent who
// chose theirs, per the table in spec.md §4.4. The table is symmetric under
// swapping the two arguments and the two outcomes, so the payoff engine never
// favors either pairing slot.
func Compute(mine, theirs types.Choice) int {
	switch {
	case mine == types.ChoiceTurn && theirs == types.ChoiceTurn:
		return bothTurn
	case mine == types.ChoiceTurn && theirs == types.ChoiceAccelerate:
		return turnVsAccelerate
	case mine == types.ChoiceAccelerate && theirs == types.ChoiceTurn:
		return accelerateVsTurn
	default:
		return bothAccelerate
	}
}
