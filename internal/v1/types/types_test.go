package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChoiceValid(t *testing.T) {
	assert.True(t, ChoiceTurn.Valid())
	assert.True(t, ChoiceAccelerate.Valid())
	assert.False(t, Choice("SWERVE").Valid())
	assert.False(t, Choice("").Valid())
}

func TestDerivePhase(t *testing.T) {
	cases := []struct {
		name               string
		roundNumber        int
		indicatorsAssigned bool
		want               RoundPhase
	}{
		{"round 1 is normal", 1, false, RoundPhaseNormal},
		{"round 4 is normal", 4, false, RoundPhaseNormal},
		{"round 5 is message", 5, false, RoundPhaseMessage},
		{"round 6 is message", 6, false, RoundPhaseMessage},
		{"round 5 stays message even if indicators somehow assigned", 5, true, RoundPhaseMessage},
		{"round 7 is normal before indicators are assigned", 7, false, RoundPhaseNormal},
		{"round 10 is normal before indicators are assigned", 10, false, RoundPhaseNormal},
		{"round 7 becomes indicator once assigned", 7, true, RoundPhaseIndicator},
		{"round 10 becomes indicator once assigned", 10, true, RoundPhaseIndicator},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DerivePhase(tc.roundNumber, tc.indicatorsAssigned))
		})
	}
}

func TestPairHas(t *testing.T) {
	pair := Pair{P1: "alice", P2: "bob"}
	assert.True(t, pair.Has("alice"))
	assert.True(t, pair.Has("bob"))
	assert.False(t, pair.Has("carol"))
}

func TestPairOpponent(t *testing.T) {
	pair := Pair{P1: "alice", P2: "bob"}

	opp, ok := pair.Opponent("alice")
	assert.True(t, ok)
	assert.Equal(t, PlayerIDType("bob"), opp)

	opp, ok = pair.Opponent("bob")
	assert.True(t, ok)
	assert.Equal(t, PlayerIDType("alice"), opp)

	_, ok = pair.Opponent("carol")
	assert.False(t, ok)
}

func TestIndicatorWhitelistNonEmptyAndUnique(t *testing.T) {
	seen := make(map[string]bool, len(IndicatorWhitelist))
	for _, sym := range IndicatorWhitelist {
		assert.NotEmpty(t, sym)
		assert.False(t, seen[sym], "duplicate symbol in whitelist: %s", sym)
		seen[sym] = true
	}
	assert.NotEmpty(t, IndicatorWhitelist)
}
