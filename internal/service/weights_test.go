package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWeightState_EqualShares(t *testing.T) {
	state := NewWeightState([]string{"issues", "precedent", "limitations"})

	weights := state.Snapshot()
	require.Len(t, weights, 3)
	for _, w := range weights {
		assert.InDelta(t, 1.0/3.0, w, 1e-9)
	}
	assert.InDelta(t, 1.0, weightSum(weights), 1e-9)
}

func TestNewWeightState_NoAgents(t *testing.T) {
	state := NewWeightState(nil)
	assert.Empty(t, state.Snapshot())
}

func TestWeightState_Load(t *testing.T) {
	state := NewWeightState([]string{"issues", "precedent"})

	state.Load(map[string]float64{
		"issues":    0.7,
		"unknown":   0.9,
		"precedent": -1,
	})

	weights := state.Snapshot()
	assert.Equal(t, 0.7, weights["issues"])
	// Unknown agents are not admitted; non-positive weights are ignored.
	assert.NotContains(t, weights, "unknown")
	assert.Equal(t, 0.5, weights["precedent"])
}

func TestWeightState_SnapshotIsCopy(t *testing.T) {
	state := NewWeightState([]string{"issues"})

	snapshot := state.Snapshot()
	snapshot["issues"] = 99

	assert.Equal(t, 1.0, state.Snapshot()["issues"])
}
