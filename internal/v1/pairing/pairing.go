// Package pairing builds the Round-1 shuffle pairing and replicates it into later
// rounds, per spec.md §4.3. Opponents stay fixed across the whole game so the
// message and indicator subsystems can build reputation effects on top of a
// stable relationship.
package pairing

import (
	"math/rand"

	"github.com/classroom-games/chicken-backend/internal/v1/apierr"
	"github.com/classroom-games/chicken-backend/internal/v1/types"
)

// BuildRound1 shuffles players uniformly and pairs consecutive elements. It
// rejects fewer than two players or an odd count with invalid_player_count,
// matching spec.md §4.3's constraint that every non-host player appears in
// exactly one pair per round.
func BuildRound1(players []types.PlayerIDType, roundID types.RoundIDType) ([]types.Pair, error) {
	if len(players) < 2 || len(players)%2 != 0 {
		return nil, apierr.InvalidInput("invalid_player_count", "round requires an even number of at least two non-host players")
	}

	shuffled := make([]types.PlayerIDType, len(players))
	copy(shuffled, players)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	pairs := make([]types.Pair, 0, len(shuffled)/2)
	for i := 0; i < len(shuffled); i += 2 {
		pairs = append(pairs, types.Pair{
			RoundID: roundID,
			P1:      shuffled[i],
			P2:      shuffled[i+1],
		})
	}
	return pairs, nil
}

// Replicate copies the (player1, player2) pairs of a prior round into a new
// round, preserving opponents across rounds as spec.md §4.3 requires.
func Replicate(source []types.Pair, newRoundID types.RoundIDType) []types.Pair {
	out := make([]types.Pair, len(source))
	for i, p := range source {
		out[i] = types.Pair{
			RoundID: newRoundID,
			P1:      p.P1,
			P2:      p.P2,
		}
	}
	return out
}
