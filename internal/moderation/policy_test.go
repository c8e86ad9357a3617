package moderation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyLadder(t *testing.T) {
	policy, err := NewPolicy(testLadder, 5)
	require.NoError(t, err)

	for i, d := range testLadder {
		assert.Equal(t, Action{Kind: ActionRestrict, Duration: d}, policy.Decide(i+1))
	}
	assert.Equal(t, Action{Kind: ActionBan}, policy.Decide(5))
	assert.Equal(t, Action{Kind: ActionBan}, policy.Decide(12))
	assert.Equal(t, Action{Kind: ActionNone}, policy.Decide(0))
	assert.Equal(t, Action{Kind: ActionNone}, policy.Decide(-1))
}

func TestPolicyBeyondLadderWithoutBan(t *testing.T) {
	policy, err := NewPolicy([]time.Duration{time.Minute}, 3)
	require.NoError(t, err)

	assert.Equal(t, ActionRestrict, policy.Decide(1).Kind)
	assert.Equal(t, ActionNone, policy.Decide(2).Kind)
	assert.Equal(t, ActionBan, policy.Decide(3).Kind)
}

func TestPolicyThresholdBelowLadder(t *testing.T) {
	policy, err := NewPolicy(testLadder, 2)
	require.NoError(t, err)
	assert.Equal(t, ActionBan, policy.Decide(2).Kind)
}

func TestNewPolicyValidates(t *testing.T) {
	_, err := NewPolicy(nil, 5)
	assert.Error(t, err)
	_, err = NewPolicy([]time.Duration{time.Hour, time.Minute}, 5)
	assert.Error(t, err)
	_, err = NewPolicy([]time.Duration{0}, 5)
	assert.Error(t, err)
	_, err = NewPolicy(testLadder, 0)
	assert.Error(t, err)
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "ban", Action{Kind: ActionBan}.String())
	assert.Equal(t, "restrict(5m0s)", Action{Kind: ActionRestrict, Duration: 5 * time.Minute}.String())
	assert.Equal(t, "none", Action{}.String())
}
