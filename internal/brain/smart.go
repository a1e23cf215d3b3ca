package brain

import (
	"fmt"
	"math"
)

// Prediction is the reasoning-based overlay score for one setup
type Prediction struct {
	Score      float64  // 0..10
	Confidence float64  // percent
	Reasons    []string // human-readable trail for the notification
}

// similarity window for historical lookups
const (
	similarPumpDelta  = 10.0
	similarScoreDelta = 2.0
	similarMinCount   = 5
)

// SmartPredict scores the current setup against the symbol's history. It
// starts neutral and applies small reasoned corrections; the combination
// layer caps its influence.
func SmartPredict(intel *Intelligence, rows []SignalRecord, pumpPct, combinedScore float64, hour int) Prediction {
	p := Prediction{Score: 5.0}

	if intel == nil || intel.Total == 0 {
		p.Confidence = 30
		p.Reasons = append(p.Reasons, "no history for this symbol")
		return p
	}

	// win-rate bands, negative corrections need a real sample
	switch {
	case intel.WinRate >= 0.7 && intel.Total >= 5:
		p.Score += 2.0
		p.Reasons = append(p.Reasons, fmt.Sprintf("strong win rate %.0f%% over %d signals", intel.WinRate*100, intel.Total))
	case intel.WinRate >= 0.5:
		p.Score += 0.5
		p.Reasons = append(p.Reasons, fmt.Sprintf("positive win rate %.0f%%", intel.WinRate*100))
	case intel.WinRate >= 0.3:
		p.Reasons = append(p.Reasons, fmt.Sprintf("mixed win rate %.0f%%", intel.WinRate*100))
	case intel.Total >= 5:
		p.Score -= 2.0
		p.Reasons = append(p.Reasons, fmt.Sprintf("weak win rate %.0f%% over %d signals", intel.WinRate*100, intel.Total))
	}

	// recent trend vs lifetime
	trend := intel.WeightedWinRate - intel.WinRate
	if trend >= 0.1 {
		p.Score += 0.5
		p.Reasons = append(p.Reasons, "recent outcomes improving")
	} else if trend <= -0.1 {
		p.Score -= 0.5
		p.Reasons = append(p.Reasons, "recent outcomes deteriorating")
	}

	// similar historical setups
	var simTotal, simWins int
	for _, r := range rows {
		if math.Abs(r.PumpPct-pumpPct) < similarPumpDelta && math.Abs(r.CombinedScore-combinedScore) < similarScoreDelta {
			simTotal++
			if r.IsWin() {
				simWins++
			}
		}
	}
	if simTotal >= similarMinCount {
		simRate := float64(simWins) / float64(simTotal)
		if simRate >= 0.7 {
			p.Score += 1.0
			p.Reasons = append(p.Reasons, fmt.Sprintf("%d similar setups won %.0f%%", simTotal, simRate*100))
		} else if simRate <= 0.3 {
			p.Score -= 1.0
			p.Reasons = append(p.Reasons, fmt.Sprintf("%d similar setups won only %.0f%%", simTotal, simRate*100))
		}
	}

	if intel.IsHot {
		p.Score += 0.5
		p.Reasons = append(p.Reasons, fmt.Sprintf("hot streak of %d wins", intel.CurrentStreak))
	} else if intel.IsCold {
		p.Score -= 0.5
		p.Reasons = append(p.Reasons, fmt.Sprintf("cold streak of %d losses", -intel.CurrentStreak))
	}

	if intel.Optimal != nil {
		if intel.Optimal.InPumpRange(pumpPct) {
			p.Score += 0.5
			p.Reasons = append(p.Reasons, "pump size inside the winning range")
		}
		if intel.Optimal.InTopHours(hour) {
			p.Score += 0.5
			p.Reasons = append(p.Reasons, "hour among the symbol's best")
		}
	}

	// the raw combined score itself
	switch {
	case combinedScore >= 8.0:
		p.Score += 1.0
		p.Reasons = append(p.Reasons, "very strong analyzer consensus")
	case combinedScore >= 6.5:
		p.Score += 0.5
		p.Reasons = append(p.Reasons, "solid analyzer consensus")
	case combinedScore < 5.0:
		p.Score -= 1.0
		p.Reasons = append(p.Reasons, "weak analyzer consensus")
	}

	if p.Score < 0 {
		p.Score = 0
	} else if p.Score > 10 {
		p.Score = 10
	}

	switch {
	case intel.Total >= 20:
		p.Confidence = 90
	case intel.Total >= 10:
		p.Confidence = 70
	case intel.Total >= 5:
		p.Confidence = 50
	default:
		p.Confidence = 30
	}

	return p
}
