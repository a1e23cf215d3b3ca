package brain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSmartPredictNoHistory(t *testing.T) {
	p := SmartPredict(nil, nil, 12, 7, 14)
	assert.InDelta(t, 5.0, p.Score, 1e-6)
	assert.InDelta(t, 30, p.Confidence, 1e-6)
	assert.NotEmpty(t, p.Reasons)
}

func TestSmartPredictStrongHistory(t *testing.T) {
	rows := finalizedRows(ResultWinTP1, ResultWinTP2, ResultWinTP1, ResultWinTP1, ResultWinTP3)
	for i := range rows {
		// pin every win to hour 14 so the hour bonus is deterministic
		rows[i].CreatedAt = time.Date(2026, 8, 24, 14, 0, 0, 0, time.UTC).Add(-time.Duration(i) * 24 * time.Hour)
	}
	intel := DeriveIntelligence("T", rows)

	// rows all sit at pump 12 / score 7, so the lookup sees 5 similar wins
	p := SmartPredict(intel, rows, 12, 7, 3)

	// +2 win rate, +0.5 trend is flat (skipped), +1 similar setups,
	// +0.5 hot streak, +0.5 optimal pump range, +0.5 solid consensus
	assert.InDelta(t, 9.5, p.Score, 1e-6)
	assert.InDelta(t, 50, p.Confidence, 1e-6)
}

func TestSmartPredictWeakHistoryPunished(t *testing.T) {
	rows := finalizedRows(ResultLossSL, ResultLossSL, ResultLossSL, ResultLossSL, ResultLossSL)
	intel := DeriveIntelligence("T", rows)

	p := SmartPredict(intel, rows, 12, 7, 3)

	// -2 win rate, -1 similar setups, -0.5 cold streak, +0.5 consensus
	assert.InDelta(t, 2.0, p.Score, 1e-6)
}

func TestSmartPredictNegativeNeedsSample(t *testing.T) {
	rows := finalizedRows(ResultLossSL, ResultLossSL)
	intel := DeriveIntelligence("T", rows)

	p := SmartPredict(intel, rows, 50, 9, 3)

	// two losses are not enough for the -2 band; cold streak needs 3
	// similar-setup lookup needs 5; consensus at 9 adds +1
	assert.InDelta(t, 6.0, p.Score, 1e-6)
	assert.InDelta(t, 30, p.Confidence, 1e-6)
}

func TestSmartPredictSimilarSetupLookup(t *testing.T) {
	// history clustered at pump 12 / score 7, all losses, but lifetime
	// win rate padded by wins far from the current setup
	rows := finalizedRows(ResultLossSL, ResultLossSL, ResultLossSL, ResultLossSL, ResultLossSL)
	for i := range rows {
		rows[i].PumpPct = 12
		rows[i].CombinedScore = 7
	}
	wins := finalizedRows(ResultWinTP1, ResultWinTP1, ResultWinTP1, ResultWinTP1, ResultWinTP1)
	for i := range wins {
		wins[i].PumpPct = 80
		wins[i].CombinedScore = 9.5
	}
	all := append(rows, wins...)
	intel := DeriveIntelligence("T", all)

	near := SmartPredict(intel, all, 12, 7, 3)
	far := SmartPredict(intel, all, 80, 9.5, 3)

	// same lifetime stats, opposite similar-setup verdicts
	assert.Less(t, near.Score, far.Score)
}

func TestSmartPredictConfidenceBands(t *testing.T) {
	mk := func(n int) *Intelligence {
		results := make([]string, n)
		for i := range results {
			if i%2 == 0 {
				results[i] = ResultWinTP1
			} else {
				results[i] = ResultLossSL
			}
		}
		return DeriveIntelligence("T", finalizedRows(results...))
	}

	assert.InDelta(t, 90, SmartPredict(mk(20), nil, 12, 7, 3).Confidence, 1e-6)
	assert.InDelta(t, 70, SmartPredict(mk(10), nil, 12, 7, 3).Confidence, 1e-6)
	assert.InDelta(t, 50, SmartPredict(mk(5), nil, 12, 7, 3).Confidence, 1e-6)
	assert.InDelta(t, 30, SmartPredict(mk(3), nil, 12, 7, 3).Confidence, 1e-6)
}

func TestSmartPredictClampedToTen(t *testing.T) {
	rows := finalizedRows(
		ResultWinTP3, ResultWinTP3, ResultWinTP3, ResultWinTP3, ResultWinTP3,
		ResultWinTP3, ResultWinTP3, ResultWinTP3, ResultWinTP3, ResultWinTP3,
	)
	for i := range rows {
		rows[i].CombinedScore = 9
	}
	intel := DeriveIntelligence("T", rows)

	p := SmartPredict(intel, rows, 12, 9, rows[0].HourOfDay())
	assert.LessOrEqual(t, p.Score, 10.0)
	assert.GreaterOrEqual(t, p.Score, 9.0)
}
