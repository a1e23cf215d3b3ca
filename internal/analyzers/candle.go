package analyzers

import (
	"context"

	"github.com/web3guy0/pumpwatch/internal/market"
)

// CandleDetail is the CandleStructure payload
type CandleDetail struct {
	Pattern        string // SHOOTING_STAR / BEARISH_ENGULFING / LONG_UPPER_WICK / DOJI / STRONG_BEARISH / NONE
	UpperWickRatio float64
	BodyRatio      float64
	TPMultiplier   float64 // consumed by the level calculator
}

func (CandleDetail) isDetail() {}

// CandleStructure reads the last candle's shape. Rejection wicks and
// bearish reversal patterns at a pump top mark exhaustion.
type CandleStructure struct{}

func (a *CandleStructure) Name() string { return NameCandle }

func (a *CandleStructure) Analyze(ctx context.Context, in Inputs) (Result, error) {
	klines := in.Klines
	if len(klines) == 0 {
		return Neutral(a.Name()), nil
	}

	last := klines[len(klines)-1]
	total := last.High - last.Low
	if total == 0 {
		return Neutral(a.Name()), nil
	}

	body := last.Close - last.Open
	if body < 0 {
		body = -body
	}
	upperWick := last.High - maxOf(last.Open, last.Close)

	detail := CandleDetail{
		UpperWickRatio: upperWick / total,
		BodyRatio:      body / total,
		Pattern:        "NONE",
		TPMultiplier:   1.0,
	}

	isRed := last.Close < last.Open

	var score float64
	switch {
	case detail.UpperWickRatio > 0.6 && detail.BodyRatio < 0.3:
		detail.Pattern = "SHOOTING_STAR"
		detail.TPMultiplier = 1.25
		score = 9
	case isBearishEngulfing(klines):
		detail.Pattern = "BEARISH_ENGULFING"
		detail.TPMultiplier = 1.2
		score = 8.5
	case detail.UpperWickRatio > 0.4 && detail.BodyRatio < 0.3:
		detail.Pattern = "SHOOTING_STAR"
		detail.TPMultiplier = 1.2
		score = 8
	case detail.UpperWickRatio > 0.5:
		detail.Pattern = "LONG_UPPER_WICK"
		detail.TPMultiplier = 1.1
		score = 7
	case detail.BodyRatio > 0.7 && isRed:
		detail.Pattern = "STRONG_BEARISH"
		detail.TPMultiplier = 1.15
		score = 7.5
	case detail.BodyRatio < 0.1:
		detail.Pattern = "DOJI"
		detail.TPMultiplier = 0.9
		score = 5.5
	default:
		score = 4
	}

	return Result{Name: a.Name(), Score: score, Detail: detail}, nil
}

func isBearishEngulfing(klines []market.Kline) bool {
	if len(klines) < 2 {
		return false
	}
	last := klines[len(klines)-1]
	prev := klines[len(klines)-2]

	// red candle fully engulfing the prior green body
	return last.Close < last.Open &&
		prev.Close > prev.Open &&
		last.Close < prev.Open &&
		last.Open > prev.Close
}

func maxOf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
