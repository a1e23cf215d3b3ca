package analyzers

import (
	"context"

	"github.com/web3guy0/pumpwatch/internal/indicators"
	"github.com/web3guy0/pumpwatch/internal/market"
)

// Trend labels one timeframe's direction
type Trend string

const (
	TrendUp       Trend = "UP"
	TrendDown     Trend = "DOWN"
	TrendSideways Trend = "SIDEWAYS"
	TrendUnknown  Trend = "UNKNOWN"
)

// MTFDetail is the MultiTimeframe payload
type MTFDetail struct {
	Trends         map[string]Trend
	Recommendation string // STRONG_SHORT / WEAK_SHORT / NEUTRAL / AVOID_SHORT
}

func (MTFDetail) isDetail() {}

// MultiTimeframe labels the trend on four intervals via 8/21 EMA crossover
// and 10-bar momentum, then fuses them with interval weights.
type MultiTimeframe struct{}

var mtfWeights = map[string]float64{
	"5m":  0.15,
	"15m": 0.25,
	"1h":  0.35,
	"4h":  0.25,
}

func (a *MultiTimeframe) Name() string { return NameMTF }

func (a *MultiTimeframe) Analyze(ctx context.Context, in Inputs) (Result, error) {
	if len(in.KlinesByInterval) == 0 {
		return Neutral(a.Name()), nil
	}

	detail := MTFDetail{Trends: make(map[string]Trend, 4)}

	var weighted, weightSum float64
	for interval, weight := range mtfWeights {
		trend := classifyTrend(in.KlinesByInterval[interval])
		detail.Trends[interval] = trend

		weighted += trendShortScore(trend) * weight
		weightSum += weight
	}

	score := weighted / weightSum

	switch {
	case score >= 7.5:
		detail.Recommendation = "STRONG_SHORT"
	case score >= 6:
		detail.Recommendation = "WEAK_SHORT"
	case score >= 4:
		detail.Recommendation = "NEUTRAL"
	default:
		detail.Recommendation = "AVOID_SHORT"
	}

	return Result{Name: a.Name(), Score: clampScore(score), Detail: detail}, nil
}

func classifyTrend(klines []market.Kline) Trend {
	if len(klines) < 21 {
		return TrendUnknown
	}

	closes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
	}

	fast := indicators.EMA(closes, 8)
	slow := indicators.EMA(closes, 21)
	momentum := indicators.Momentum(closes, 10)

	switch {
	case fast > slow && momentum > 0:
		return TrendUp
	case fast < slow && momentum < 0:
		return TrendDown
	default:
		return TrendSideways
	}
}

// For a short entry a downtrend is the best context and an uptrend the worst
func trendShortScore(t Trend) float64 {
	switch t {
	case TrendDown:
		return 10
	case TrendSideways:
		return 5
	case TrendUp:
		return 0
	default:
		return 5
	}
}
