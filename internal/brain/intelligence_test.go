package brain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rows builds finalized records newest first from result labels
func finalizedRows(results ...string) []SignalRecord {
	out := make([]SignalRecord, len(results))
	now := time.Now().UTC()
	for i, res := range results {
		out[i] = SignalRecord{
			Symbol:        "TEST_USDT",
			FinalResult:   res,
			PumpPct:       12,
			CombinedScore: 7.0,
			CreatedAt:     now.Add(-time.Duration(i) * time.Hour),
		}
		switch res {
		case ResultWinTP1:
			out[i].HitTP1 = true
		case ResultWinTP2:
			out[i].HitTP1, out[i].HitTP2 = true, true
		case ResultWinTP3:
			out[i].HitTP1, out[i].HitTP2, out[i].HitTP3 = true, true, true
		case ResultLossSL:
			out[i].HitSL = true
		}
	}
	return out
}

func TestDeriveEmptyHistory(t *testing.T) {
	intel := DeriveIntelligence("X_USDT", nil)
	assert.Equal(t, 0, intel.Total)
	assert.InDelta(t, 1.0, intel.TPMultiplier, 1e-6)
	assert.InDelta(t, 1.0, intel.SLMultiplier, 1e-6)
	assert.Equal(t, ActionCaution, intel.RecommendedAction)
}

func TestDeriveCounts(t *testing.T) {
	rows := finalizedRows(ResultWinTP1, ResultLossSL, ResultWinTP2, ResultBreakeven, ResultWinTP1)
	intel := DeriveIntelligence("TEST_USDT", rows)

	assert.Equal(t, 5, intel.Total)
	assert.Equal(t, 3, intel.Wins)
	assert.Equal(t, 1, intel.Losses)
	assert.InDelta(t, 0.6, intel.WinRate, 1e-6)
	assert.InDelta(t, 4.0/5.0, intel.TP1Rate, 1e-6)
	assert.InDelta(t, 1.0/5.0, intel.TP2Rate, 1e-6)
	assert.InDelta(t, 0.2, intel.SLRate, 1e-6)
}

func TestWeightedWinRateFavorsRecent(t *testing.T) {
	// recent wins, old losses
	recent := DeriveIntelligence("A", finalizedRows(ResultWinTP1, ResultWinTP1, ResultLossSL, ResultLossSL))
	// recent losses, old wins
	stale := DeriveIntelligence("B", finalizedRows(ResultLossSL, ResultLossSL, ResultWinTP1, ResultWinTP1))

	assert.InDelta(t, 0.5, recent.WinRate, 1e-6)
	assert.InDelta(t, 0.5, stale.WinRate, 1e-6)
	assert.Greater(t, recent.WeightedWinRate, 0.5)
	assert.Less(t, stale.WeightedWinRate, 0.5)

	// exact: (1 + 0.95) / (1 + 0.95 + 0.9025 + 0.857375)
	assert.InDelta(t, 1.95/3.709875, recent.WeightedWinRate, 1e-6)
}

func TestStreaks(t *testing.T) {
	intel := DeriveIntelligence("T", finalizedRows(
		ResultWinTP1, ResultWinTP2, ResultWinTP1, // current run of 3 wins
		ResultLossSL, ResultLossSL,
		ResultWinTP1,
	))
	assert.Equal(t, 3, intel.CurrentStreak)
	assert.True(t, intel.IsHot)
	assert.False(t, intel.IsCold)
	assert.Equal(t, 3, intel.MaxWinStreak)
	assert.Equal(t, 2, intel.MaxLossStreak)

	cold := DeriveIntelligence("T", finalizedRows(ResultLossSL, ResultLossSL, ResultLossSL, ResultWinTP1))
	assert.Equal(t, -3, cold.CurrentStreak)
	assert.True(t, cold.IsCold)
}

func TestLevelMultipliersFromHitRates(t *testing.T) {
	// SL rate 3/5 = 0.6 > 0.5, TP1 rate 1/5 = 0.2 < 0.3
	choppy := DeriveIntelligence("T", finalizedRows(
		ResultLossSL, ResultLossSL, ResultLossSL, ResultWinTP1, ResultBreakeven,
	))
	assert.InDelta(t, 1.2, choppy.SLMultiplier, 1e-6)
	assert.InDelta(t, 0.8, choppy.TPMultiplier, 1e-6)

	// TP3 rate 3/5 > 0.5
	runner := DeriveIntelligence("T", finalizedRows(
		ResultWinTP3, ResultWinTP3, ResultWinTP3, ResultWinTP1, ResultLossSL,
	))
	assert.InDelta(t, 1.2, runner.TPMultiplier, 1e-6)
	assert.InDelta(t, 1.0, runner.SLMultiplier, 1e-6)
}

func TestConfidenceAdjustmentBands(t *testing.T) {
	cases := []struct {
		results []string
		adj     float64
		action  string
	}{
		{[]string{ResultWinTP1, ResultWinTP1, ResultWinTP1, ResultWinTP2, ResultWinTP3}, 1.0, ActionTrade},
		{[]string{ResultWinTP1, ResultLossSL}, 0, ActionCaution},
		{[]string{ResultWinTP1, ResultLossSL, ResultLossSL}, -1.0, ActionAvoid},
		{[]string{ResultLossSL, ResultLossSL, ResultLossSL, ResultLossSL}, -2.0, ActionAvoid},
	}
	for _, tc := range cases {
		intel := DeriveIntelligence("T", finalizedRows(tc.results...))
		assert.InDelta(t, tc.adj, intel.ConfidenceAdjustment, 1e-6)
		assert.Equal(t, tc.action, intel.RecommendedAction)
	}
}

func TestPerfectRecordNeedsSampleForBoost(t *testing.T) {
	// 3 for 3 is not enough history for the +1 band
	intel := DeriveIntelligence("T", finalizedRows(ResultWinTP1, ResultWinTP1, ResultWinTP1))
	assert.InDelta(t, 0, intel.ConfidenceAdjustment, 1e-6)
}

func TestOptimalConditionsMinedFromWins(t *testing.T) {
	now := time.Date(2026, 8, 24, 14, 0, 0, 0, time.UTC)
	rows := []SignalRecord{
		{FinalResult: ResultWinTP1, HitTP1: true, PumpPct: 10, CombinedScore: 7, CreatedAt: now, OrderbookScore: 9, FundingScore: 8},
		{FinalResult: ResultWinTP2, HitTP1: true, HitTP2: true, PumpPct: 18, CombinedScore: 8, CreatedAt: now.Add(-time.Hour), OrderbookScore: 8, FundingScore: 7},
		{FinalResult: ResultLossSL, HitSL: true, PumpPct: 35, CombinedScore: 6, CreatedAt: now.Add(-2 * time.Hour), OrderbookScore: 4, FundingScore: 6},
	}

	intel := DeriveIntelligence("T", rows)
	require.NotNil(t, intel.Optimal)

	assert.InDelta(t, 10, intel.Optimal.MinPumpPct, 1e-6)
	assert.InDelta(t, 18, intel.Optimal.MaxPumpPct, 1e-6)
	assert.InDelta(t, 7.5, intel.Optimal.MeanCombinedScore, 1e-6)
	assert.True(t, intel.Optimal.InPumpRange(12))
	assert.False(t, intel.Optimal.InPumpRange(35))

	assert.Contains(t, intel.Optimal.TopHours, 14)
	assert.True(t, intel.Optimal.InTopHours(13))

	// orderbook separated wins from losses far more than funding did
	ob := intel.Optimal.FeatureImportance["orderbook"]
	fu := intel.Optimal.FeatureImportance["funding"]
	assert.InDelta(t, 4.5, ob, 1e-6)
	assert.InDelta(t, 1.5, fu, 1e-6)
}

func TestNoOptimalWithoutWins(t *testing.T) {
	intel := DeriveIntelligence("T", finalizedRows(ResultLossSL, ResultTimeout))
	assert.Nil(t, intel.Optimal)
}
