package analyzers

import (
	"context"

	"github.com/web3guy0/pumpwatch/internal/indicators"
	"github.com/web3guy0/pumpwatch/internal/market"
)

// GodEyeDetail is the GodEye payload
type GodEyeDetail struct {
	RSI           float64
	BollingerPos  float64 // 0 lower band .. 1 upper band
	ADX           float64
	POCDistance   float64 // percent, positive when price trades above POC
	Divergence    bool    // bearish momentum divergence
	Multiplier    float64 // combined nudge applied to the base score
}

func (GodEyeDetail) isDetail() {}

// GodEye is a composite of precision indicators. Each sub-factor nudges a
// multiplicative score: overbought RSI, an upper-band breach, a strong
// trend reading, price stretched above the volume POC, and a bearish
// momentum divergence all strengthen the short case.
type GodEye struct{}

func (a *GodEye) Name() string { return NameGodEye }

func (a *GodEye) Analyze(ctx context.Context, in Inputs) (Result, error) {
	klines := in.Klines
	if len(klines) < 25 {
		return Neutral(a.Name()), nil
	}

	closes := make([]float64, len(klines))
	highs := make([]float64, len(klines))
	lows := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
		highs[i] = k.High
		lows[i] = k.Low
	}

	detail := GodEyeDetail{Multiplier: 1.0}

	// RSI
	detail.RSI = indicators.RSI(closes, 14)
	switch {
	case detail.RSI > 75:
		detail.Multiplier *= 1.2
	case detail.RSI > 60:
		detail.Multiplier *= 1.1
	case detail.RSI < 25:
		detail.Multiplier *= 0.85
	}

	// Bollinger band position
	detail.BollingerPos = indicators.BollingerPosition(closes, 20, 2)
	switch {
	case detail.BollingerPos > 1.0:
		detail.Multiplier *= 1.2
	case detail.BollingerPos > 0.85:
		detail.Multiplier *= 1.1
	case detail.BollingerPos < 0.2:
		detail.Multiplier *= 0.9
	}

	// EMA 9/21 crossover: price still riding above both means the reversal
	// has not printed yet
	fast := indicators.EMA(closes, 9)
	slow := indicators.EMA(closes, 21)
	current := closes[len(closes)-1]
	if fast < slow && current < fast {
		detail.Multiplier *= 1.15
	} else if fast > slow && current > fast {
		detail.Multiplier *= 0.95
	}

	// ADX trend strength
	detail.ADX = indicators.ADX(highs, lows, closes, 14)
	if detail.ADX > 40 {
		detail.Multiplier *= 1.1
	} else if detail.ADX < 15 {
		detail.Multiplier *= 0.95
	}

	// Distance from the volume point of control
	poc := pointOfControl(klines)
	if poc > 0 {
		detail.POCDistance = (current - poc) / poc * 100
		if detail.POCDistance > 5 {
			detail.Multiplier *= 1.15
		} else if detail.POCDistance > 2 {
			detail.Multiplier *= 1.05
		}
	}

	// Bearish momentum divergence: price made a higher high while momentum fell
	detail.Divergence = bearishDivergence(closes)
	if detail.Divergence {
		detail.Multiplier *= 1.15
	}

	score := clampScore(5.0 * detail.Multiplier)
	return Result{Name: a.Name(), Score: score, Detail: detail}, nil
}

// pointOfControl is a VWAP over the recent candles
func pointOfControl(klines []market.Kline) float64 {
	start := 0
	if len(klines) > 20 {
		start = len(klines) - 20
	}

	var tpVol, totalVol float64
	for _, k := range klines[start:] {
		tp := (k.High + k.Low + k.Close) / 3
		tpVol += tp * k.Volume
		totalVol += k.Volume
	}
	if totalVol == 0 {
		return 0
	}
	return tpVol / totalVol
}

func bearishDivergence(closes []float64) bool {
	if len(closes) < 20 {
		return false
	}

	half := len(closes) - 10
	prevHigh := indicators.Max(closes[half-10 : half])
	lastHigh := indicators.Max(closes[half:])

	prevMom := indicators.Momentum(closes[:half], 5)
	lastMom := indicators.Momentum(closes, 5)

	return lastHigh > prevHigh && lastMom < prevMom
}
