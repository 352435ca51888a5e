package payoff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/classroom-games/chicken-backend/internal/v1/types"
)

func TestCompute(t *testing.T) {
	cases := []struct {
		name    string
		mine    types.Choice
		theirs  types.Choice
		want    int
	}{
		{"both turn", types.ChoiceTurn, types.ChoiceTurn, 3},
		{"turn vs accelerate", types.ChoiceTurn, types.ChoiceAccelerate, -3},
		{"accelerate vs turn", types.ChoiceAccelerate, types.ChoiceTurn, 10},
		{"both accelerate", types.ChoiceAccelerate, types.ChoiceAccelerate, -10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Compute(tc.mine, tc.theirs))
		})
	}
}

// TestCompute_RoleSwapConsistent checks that computing both sides of a pairing by
// swapping arguments reproduces the table in spec.md §4.4 in both directions.
func TestCompute_RoleSwapConsistent(t *testing.T) {
	assert.Equal(t, Compute(types.ChoiceTurn, types.ChoiceAccelerate), -3)
	assert.Equal(t, Compute(types.ChoiceAccelerate, types.ChoiceTurn), 10)
	assert.NotEqual(t, Compute(types.ChoiceTurn, types.ChoiceAccelerate), Compute(types.ChoiceAccelerate, types.ChoiceTurn))
}
