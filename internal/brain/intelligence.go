package brain

import (
	"sort"

	"github.com/web3guy0/pumpwatch/internal/analyzers"
)

// Recommended actions derived from the win rate
const (
	ActionTrade   = "TRADE"
	ActionCaution = "CAUTION"
	ActionAvoid   = "AVOID"
)

// outcome decay per step back in history, newest first
const winRateDecay = 0.95

// OptimalConditions is mined from a symbol's winning signals
type OptimalConditions struct {
	MinPumpPct        float64            `json:"min_pump_pct"`
	MaxPumpPct        float64            `json:"max_pump_pct"`
	MeanCombinedScore float64            `json:"mean_combined_score"`
	TopHours          []int              `json:"top_hours"`
	FeatureImportance map[string]float64 `json:"feature_importance"` // analyzer -> win mean - loss mean
}

// InPumpRange reports whether a pump falls inside the winning band
func (o *OptimalConditions) InPumpRange(pumpPct float64) bool {
	return pumpPct >= o.MinPumpPct && pumpPct <= o.MaxPumpPct
}

// InTopHours reports whether the hour is among the best-performing ones
func (o *OptimalConditions) InTopHours(hour int) bool {
	for _, h := range o.TopHours {
		if h == hour {
			return true
		}
	}
	return false
}

// Intelligence is the per-symbol derivation the scorer and the level
// calculator consult.
type Intelligence struct {
	Symbol string

	Total  int
	Wins   int
	Losses int

	WinRate         float64
	WeightedWinRate float64
	TP1Rate         float64
	TP2Rate         float64
	TP3Rate         float64
	SLRate          float64

	CurrentStreak int
	MaxWinStreak  int
	MaxLossStreak int
	IsHot         bool
	IsCold        bool

	TPMultiplier         float64
	SLMultiplier         float64
	ConfidenceAdjustment float64
	RecommendedAction    string

	Optimal *OptimalConditions
}

// DeriveIntelligence recomputes the symbol's profile from its finalized
// rows, newest first. It is a pure function so it can be replayed from
// the log at any time.
func DeriveIntelligence(symbol string, rows []SignalRecord) *Intelligence {
	intel := &Intelligence{
		Symbol:       symbol,
		TPMultiplier: 1.0,
		SLMultiplier: 1.0,
	}
	if len(rows) == 0 {
		intel.RecommendedAction = ActionCaution
		return intel
	}

	intel.Total = len(rows)

	var tp1, tp2, tp3, sl int
	var decaySum, weightedWins float64
	decay := 1.0
	for _, r := range rows {
		if r.IsWin() {
			intel.Wins++
			weightedWins += decay
		}
		if r.IsLoss() {
			intel.Losses++
		}
		if r.HitTP1 {
			tp1++
		}
		if r.HitTP2 {
			tp2++
		}
		if r.HitTP3 {
			tp3++
		}
		if r.HitSL {
			sl++
		}
		decaySum += decay
		decay *= winRateDecay
	}

	total := float64(intel.Total)
	intel.WinRate = float64(intel.Wins) / total
	intel.WeightedWinRate = weightedWins / decaySum
	intel.TP1Rate = float64(tp1) / total
	intel.TP2Rate = float64(tp2) / total
	intel.TP3Rate = float64(tp3) / total
	intel.SLRate = float64(sl) / total

	deriveStreaks(intel, rows)
	intel.IsHot = intel.CurrentStreak >= 3
	intel.IsCold = intel.CurrentStreak <= -3

	// Frequent early stop-outs with few first targets hit: widen the stop
	// and pull targets in. A high TP3 rate earns wider targets.
	if intel.SLRate > 0.5 && intel.TP1Rate < 0.3 {
		intel.SLMultiplier = 1.2
		intel.TPMultiplier = 0.8
	} else if intel.TP3Rate > 0.5 {
		intel.TPMultiplier = 1.2
	}

	switch {
	case intel.WinRate >= 0.7 && intel.Total >= 5:
		intel.ConfidenceAdjustment = 1.0
		intel.RecommendedAction = ActionTrade
	case intel.WinRate >= 0.5:
		intel.ConfidenceAdjustment = 0
		intel.RecommendedAction = ActionCaution
	case intel.WinRate >= 0.3:
		intel.ConfidenceAdjustment = -1.0
		intel.RecommendedAction = ActionAvoid
	default:
		intel.ConfidenceAdjustment = -2.0
		intel.RecommendedAction = ActionAvoid
	}

	intel.Optimal = deriveOptimal(rows)
	return intel
}

// deriveStreaks fills the run ending at the newest row plus the max runs
func deriveStreaks(intel *Intelligence, rows []SignalRecord) {
	// current run, newest first
	for _, r := range rows {
		if r.IsWin() {
			if intel.CurrentStreak < 0 {
				break
			}
			intel.CurrentStreak++
		} else if r.IsLoss() {
			if intel.CurrentStreak > 0 {
				break
			}
			intel.CurrentStreak--
		} else {
			break
		}
	}

	// max runs over the whole history
	var winRun, lossRun int
	for _, r := range rows {
		switch {
		case r.IsWin():
			winRun++
			lossRun = 0
		case r.IsLoss():
			lossRun++
			winRun = 0
		default:
			winRun = 0
			lossRun = 0
		}
		if winRun > intel.MaxWinStreak {
			intel.MaxWinStreak = winRun
		}
		if lossRun > intel.MaxLossStreak {
			intel.MaxLossStreak = lossRun
		}
	}
}

func deriveOptimal(rows []SignalRecord) *OptimalConditions {
	var wins, losses []SignalRecord
	for _, r := range rows {
		if r.IsWin() {
			wins = append(wins, r)
		} else if r.IsLoss() {
			losses = append(losses, r)
		}
	}
	if len(wins) == 0 {
		return nil
	}

	opt := &OptimalConditions{
		MinPumpPct:        wins[0].PumpPct,
		MaxPumpPct:        wins[0].PumpPct,
		FeatureImportance: make(map[string]float64, len(analyzers.Names)),
	}

	var scoreSum float64
	hourCounts := make(map[int]int)
	for _, w := range wins {
		if w.PumpPct < opt.MinPumpPct {
			opt.MinPumpPct = w.PumpPct
		}
		if w.PumpPct > opt.MaxPumpPct {
			opt.MaxPumpPct = w.PumpPct
		}
		scoreSum += w.CombinedScore
		hourCounts[w.HourOfDay()]++
	}
	opt.MeanCombinedScore = scoreSum / float64(len(wins))

	type hourCount struct {
		hour  int
		count int
	}
	hours := make([]hourCount, 0, len(hourCounts))
	for h, c := range hourCounts {
		hours = append(hours, hourCount{h, c})
	}
	sort.Slice(hours, func(i, j int) bool {
		if hours[i].count != hours[j].count {
			return hours[i].count > hours[j].count
		}
		return hours[i].hour < hours[j].hour
	})
	for i := 0; i < len(hours) && i < 3; i++ {
		opt.TopHours = append(opt.TopHours, hours[i].hour)
	}

	// per-analyzer win-vs-loss separation
	winMeans := analyzerMeans(wins)
	lossMeans := analyzerMeans(losses)
	for i, name := range analyzers.Names {
		if lossMeans == nil {
			opt.FeatureImportance[name] = winMeans[i]
			continue
		}
		opt.FeatureImportance[name] = winMeans[i] - lossMeans[i]
	}

	return opt
}

func analyzerMeans(rows []SignalRecord) []float64 {
	if len(rows) == 0 {
		return nil
	}
	sums := make([]float64, len(analyzers.Names))
	for _, r := range rows {
		for i, s := range r.AnalyzerScores() {
			sums[i] += s
		}
	}
	for i := range sums {
		sums[i] /= float64(len(rows))
	}
	return sums
}
