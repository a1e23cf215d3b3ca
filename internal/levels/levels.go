package levels

import (
	"math"
	"sort"

	"github.com/web3guy0/pumpwatch/internal/analyzers"
	"github.com/web3guy0/pumpwatch/internal/indicators"
	"github.com/web3guy0/pumpwatch/internal/market"
)

// Levels are the short-trade exit prices for one signal
type Levels struct {
	TPs []float64 // ascending, deepest profit first
	SL  float64
}

// TP1 is the closest target to entry
func (l Levels) TP1() float64 { return l.TPs[len(l.TPs)-1] }

// TP2 is the middle target
func (l Levels) TP2() float64 { return l.TPs[len(l.TPs)-2] }

// TP3 is the deepest target
func (l Levels) TP3() float64 { return l.TPs[0] }

// Inputs is everything the calculator considers
type Inputs struct {
	Entry          float64
	Peak           float64
	Start          float64
	ElapsedMinutes float64

	Klines    []market.Kline // 1m candles for the ATR stop
	Orderbook *market.Orderbook

	Candle       *analyzers.CandleDetail // optional TP stretch from the last candle shape
	LiqZones     []analyzers.LiqZone     // optional long-liquidation overlay
	TPMultiplier float64                 // per-symbol memory, 1.0 when unknown
}

var fibRatios = []float64{0.382, 0.5, 0.618}

const (
	wallSearchPct   = 3.0   // orderbook snap window around each TP
	wallMinShare    = 5.0   // pct of total bid volume that makes a bid "large"
	psychSnapPct    = 1.0   // round to a psychological level within this
	slPeakBuffer    = 1.01  // stop just above the peak
	slCap           = 1.10  // never risk more than 10%
	atrPeriod       = 14
	atrSLMultiplier = 1.5
)

// Calculate produces the TP ladder and the stop for a short at entry.
// Guarantees sl > entry >= every tp, tps ascending.
func Calculate(in Inputs) Levels {
	tps := make([]float64, len(fibRatios))
	for i, k := range fibRatios {
		tps[i] = in.Peak - (in.Peak-in.Start)*k
	}

	mult := speedMultiplier(in.ElapsedMinutes)
	if in.Candle != nil && in.Candle.TPMultiplier > 1 {
		mult *= in.Candle.TPMultiplier
	}
	// stretch each target deeper below entry
	for i, tp := range tps {
		tps[i] = in.Entry - (in.Entry-tp)*mult
	}

	// snap each target just above the nearest large bid wall
	if in.Orderbook != nil {
		for i, tp := range tps {
			if wall, ok := nearestLargeBid(in.Orderbook, tp); ok {
				tps[i] = wall * 1.003
			}
		}
	}

	// blend with the liquidation zones when the heatmap produced any
	if len(in.LiqZones) > 0 {
		for i := range tps {
			if i < len(in.LiqZones) {
				tps[i] = (tps[i] + in.LiqZones[i].Price) / 2
			}
		}
	}

	// per-symbol memory
	tpMult := in.TPMultiplier
	if tpMult == 0 {
		tpMult = 1.0
	}
	for i, tp := range tps {
		tps[i] = in.Entry - (in.Entry-tp)*tpMult
	}

	for i, tp := range tps {
		tps[i] = snapPsychological(tp)
	}

	// keep every target strictly below entry
	for i, tp := range tps {
		if tp >= in.Entry {
			tps[i] = in.Entry * 0.999
		}
		if tps[i] < 0 {
			tps[i] = 0
		}
	}

	sort.Float64s(tps)

	return Levels{TPs: tps, SL: stopLoss(in)}
}

func speedMultiplier(elapsed float64) float64 {
	switch {
	case elapsed <= 2:
		return 1.4
	case elapsed <= 5:
		return 1.2
	case elapsed <= 10:
		return 1.0
	default:
		return 0.8
	}
}

// nearestLargeBid searches within ±3% of the target for the closest bid
// holding at least 5% of total bid volume.
func nearestLargeBid(book *market.Orderbook, target float64) (float64, bool) {
	var total float64
	for _, b := range book.Bids {
		total += b.Quantity
	}
	if total == 0 {
		return 0, false
	}

	lo := target * (1 - wallSearchPct/100)
	hi := target * (1 + wallSearchPct/100)

	best := 0.0
	bestDist := math.MaxFloat64
	for _, b := range book.Bids {
		if b.Price < lo || b.Price > hi {
			continue
		}
		if b.Quantity/total*100 < wallMinShare {
			continue
		}
		if dist := math.Abs(b.Price - target); dist < bestDist {
			bestDist = dist
			best = b.Price
		}
	}
	return best, best > 0
}

// snapPsychological rounds to the nearest "round number" when within 1%.
// The grid is one significant decimal step below the price's magnitude.
func snapPsychological(price float64) float64 {
	if price <= 0 {
		return price
	}
	magnitude := math.Pow(10, math.Floor(math.Log10(price)))
	for _, step := range []float64{magnitude, magnitude / 2, magnitude / 10} {
		rounded := math.Round(price/step) * step
		if rounded > 0 && math.Abs(rounded-price)/price*100 <= psychSnapPct {
			return rounded
		}
	}
	return price
}

func stopLoss(in Inputs) float64 {
	sl := in.Peak * slPeakBuffer

	if atrPct := atrPercent(in.Klines, in.Entry); atrPct > 0 {
		atrStop := in.Entry * (1 + atrPct*atrSLMultiplier/100)
		if atrStop > sl {
			sl = atrStop
		}
	}

	if maxSL := in.Entry * slCap; sl > maxSL {
		sl = maxSL
	}
	// the invariant: stop strictly above entry
	if sl <= in.Entry {
		sl = in.Entry * 1.005
	}
	return sl
}

// atrPercent is the mean true range over the last 14 minute bars as a
// percentage of entry.
func atrPercent(klines []market.Kline, entry float64) float64 {
	if len(klines) < 2 || entry == 0 {
		return 0
	}
	start := 0
	if len(klines) > atrPeriod+1 {
		start = len(klines) - atrPeriod - 1
	}
	window := klines[start:]

	highs := make([]float64, len(window))
	lows := make([]float64, len(window))
	closes := make([]float64, len(window))
	for i, k := range window {
		highs[i] = k.High
		lows[i] = k.Low
		closes[i] = k.Close
	}
	return indicators.ATRPct(highs, lows, closes, atrPeriod, entry)
}
