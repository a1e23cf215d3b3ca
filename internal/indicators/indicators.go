package indicators

import (
	"math"

	"github.com/shopspring/decimal"
)

// RSI calculates Relative Strength Index
func RSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50 // Neutral if not enough data
	}

	gains := make([]float64, 0)
	losses := make([]float64, 0)

	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}

	if len(gains) < period {
		return 50
	}

	avgGain := Average(gains[:period])
	avgLoss := Average(losses[:period])

	// Smooth with remaining data
	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// EMA calculates Exponential Moving Average
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return Average(prices)
	}

	multiplier := 2.0 / float64(period+1)
	ema := Average(prices[:period])

	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
	}

	return ema
}

// SMA calculates Simple Moving Average
func SMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return Average(prices)
	}

	return Average(prices[len(prices)-period:])
}

// Momentum calculates percent price change over a period
func Momentum(prices []float64, period int) float64 {
	if len(prices) <= period {
		return 0
	}

	current := prices[len(prices)-1]
	previous := prices[len(prices)-1-period]

	if previous == 0 {
		return 0
	}

	return ((current - previous) / previous) * 100
}

// Volatility calculates price volatility (standard deviation)
func Volatility(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}

	avg := Average(prices)
	sumSquares := 0.0

	for _, p := range prices {
		sumSquares += (p - avg) * (p - avg)
	}

	return math.Sqrt(sumSquares / float64(len(prices)))
}

// ATR calculates Average True Range
func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) < period+1 || len(lows) < period+1 || len(closes) < period+1 {
		return 0
	}

	trs := make([]float64, 0)

	for i := 1; i < len(closes); i++ {
		tr := math.Max(
			highs[i]-lows[i],
			math.Max(
				math.Abs(highs[i]-closes[i-1]),
				math.Abs(lows[i]-closes[i-1]),
			),
		)
		trs = append(trs, tr)
	}

	return SMA(trs, period)
}

// ATRPct returns ATR as a percentage of the reference price
func ATRPct(highs, lows, closes []float64, period int, reference float64) float64 {
	if reference == 0 {
		return 0
	}
	return ATR(highs, lows, closes, period) / reference * 100
}

// BollingerBands calculates Bollinger Bands
func BollingerBands(prices []float64, period int, stdDev float64) (upper, middle, lower float64) {
	if len(prices) < period {
		return 0, 0, 0
	}

	middle = SMA(prices, period)

	recentPrices := prices[len(prices)-period:]
	volatility := Volatility(recentPrices)

	upper = middle + (volatility * stdDev)
	lower = middle - (volatility * stdDev)

	return upper, middle, lower
}

// BollingerPosition returns where price sits in the band: 0 at the lower
// band, 1 at the upper band. Values outside [0,1] mean a band breach.
func BollingerPosition(prices []float64, period int, stdDev float64) float64 {
	upper, _, lower := BollingerBands(prices, period, stdDev)
	if upper == lower {
		return 0.5
	}
	current := prices[len(prices)-1]
	return (current - lower) / (upper - lower)
}

// ADX calculates the Average Directional Index (trend strength, 0-100)
func ADX(highs, lows, closes []float64, period int) float64 {
	if len(highs) < 2*period+1 || len(lows) < 2*period+1 || len(closes) < 2*period+1 {
		return 0
	}

	plusDM := make([]float64, 0, len(highs)-1)
	minusDM := make([]float64, 0, len(highs)-1)
	trs := make([]float64, 0, len(highs)-1)

	for i := 1; i < len(highs); i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]

		if up > down && up > 0 {
			plusDM = append(plusDM, up)
		} else {
			plusDM = append(plusDM, 0)
		}
		if down > up && down > 0 {
			minusDM = append(minusDM, down)
		} else {
			minusDM = append(minusDM, 0)
		}

		tr := math.Max(
			highs[i]-lows[i],
			math.Max(
				math.Abs(highs[i]-closes[i-1]),
				math.Abs(lows[i]-closes[i-1]),
			),
		)
		trs = append(trs, tr)
	}

	dxs := make([]float64, 0)
	for i := period; i <= len(trs); i++ {
		trSum := sum(trs[i-period : i])
		if trSum == 0 {
			dxs = append(dxs, 0)
			continue
		}
		plusDI := sum(plusDM[i-period:i]) / trSum * 100
		minusDI := sum(minusDM[i-period:i]) / trSum * 100
		if plusDI+minusDI == 0 {
			dxs = append(dxs, 0)
			continue
		}
		dxs = append(dxs, math.Abs(plusDI-minusDI)/(plusDI+minusDI)*100)
	}

	if len(dxs) < period {
		return Average(dxs)
	}
	return Average(dxs[len(dxs)-period:])
}

// Helper functions

// Average returns the arithmetic mean
func Average(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return sum(data) / float64(len(data))
}

// Min returns the smallest value
func Min(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m := data[0]
	for _, v := range data[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the largest value
func Max(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m := data[0]
	for _, v := range data[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func sum(data []float64) float64 {
	s := 0.0
	for _, v := range data {
		s += v
	}
	return s
}

// DecimalToFloat converts decimal to float64
func DecimalToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// FloatToDecimal converts float64 to decimal
func FloatToDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
