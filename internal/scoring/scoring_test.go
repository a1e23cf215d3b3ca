package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/web3guy0/pumpwatch/internal/analyzers"
)

func uniformResults(score float64) map[string]analyzers.Result {
	out := make(map[string]analyzers.Result, len(analyzers.Names))
	for _, name := range analyzers.Names {
		out[name] = analyzers.Result{Name: name, Score: score}
	}
	return out
}

func TestCombineUnweightedMean(t *testing.T) {
	results := uniformResults(5.0)
	results[analyzers.NameOrderbook] = analyzers.Result{Name: analyzers.NameOrderbook, Score: 10}
	results[analyzers.NameFunding] = analyzers.Result{Name: analyzers.NameFunding, Score: 0}

	c := Combine(results, 0, 0, false, 0, false)
	assert.InDelta(t, 5.0, c.Base, 1e-6)
	assert.InDelta(t, 5.0, c.Final, 1e-6)
	assert.Equal(t, TierReject, c.Tier)
}

func TestCombineMissingAnalyzerCountsNeutral(t *testing.T) {
	results := uniformResults(8.0)
	delete(results, analyzers.NameCandle)

	c := Combine(results, 0, 0, false, 0, false)
	// nine at 8.0 plus one neutral 5.0
	assert.InDelta(t, 7.7, c.Base, 1e-6)
}

func TestCombineMemoryAdjustment(t *testing.T) {
	c := Combine(uniformResults(7.2), 1.0, 0, false, 0, false)
	assert.InDelta(t, 8.2, c.Adjusted, 1e-6)
	assert.Equal(t, TierA, c.Tier)

	c = Combine(uniformResults(7.2), -2.0, 0, false, 0, false)
	assert.InDelta(t, 5.2, c.Adjusted, 1e-6)
	assert.Equal(t, TierReject, c.Tier)
}

func TestCombineAdjustmentClamps(t *testing.T) {
	c := Combine(uniformResults(9.5), 1.0, 0, false, 0, false)
	assert.InDelta(t, 10.0, c.Adjusted, 1e-6)

	c = Combine(uniformResults(1.0), -2.0, 0, false, 0, false)
	assert.InDelta(t, 0.0, c.Adjusted, 1e-6)
}

func TestCombineClassifierBlend(t *testing.T) {
	c := Combine(uniformResults(8.0), 0, 0.9, true, 0, false)
	assert.True(t, c.ClassifierUsed)
	assert.InDelta(t, 8.5, c.Blended, 1e-6)
	assert.Equal(t, TierA, c.Tier)

	// untrained classifier is ignored entirely
	c = Combine(uniformResults(8.0), 0, 0.1, false, 0, false)
	assert.False(t, c.ClassifierUsed)
	assert.InDelta(t, 8.0, c.Blended, 1e-6)
}

func TestCombineSmartOverlayCapped(t *testing.T) {
	c := Combine(uniformResults(6.0), 0, 0, false, 10.0, true)
	assert.InDelta(t, 2.0, c.SmartDelta, 1e-6)
	assert.InDelta(t, 8.0, c.Final, 1e-6)
	assert.Equal(t, TierA, c.Tier)

	c = Combine(uniformResults(6.0), 0, 0, false, 0.0, true)
	assert.InDelta(t, -2.0, c.SmartDelta, 1e-6)
	assert.InDelta(t, 4.0, c.Final, 1e-6)
	assert.Equal(t, TierReject, c.Tier)

	c = Combine(uniformResults(6.0), 0, 0, false, 5.5, true)
	assert.InDelta(t, 0.5, c.SmartDelta, 1e-6)
	assert.InDelta(t, 6.5, c.Final, 1e-6)
}

func TestTierBoundaries(t *testing.T) {
	assert.Equal(t, TierA, tierFor(8.0))
	assert.Equal(t, TierB, tierFor(7.99))
	assert.Equal(t, TierB, tierFor(6.0))
	assert.Equal(t, TierReject, tierFor(5.99))
	assert.True(t, TierA.Emit())
	assert.True(t, TierB.Emit())
	assert.False(t, TierReject.Emit())
}
