package analyzers

import (
	"context"
	"sort"
)

// LiqZone is one implied liquidation cluster
type LiqZone struct {
	Price       float64
	Leverage    int
	DistancePct float64 // distance from current price
	Intensity   string  // HIGH / MEDIUM / LOW
}

// LiquidationDetail is the LiquidationHeatmap payload
type LiquidationDetail struct {
	LongZones  []LiqZone // below current price
	ShortZones []LiqZone // above current price
	SweptAbove bool      // pump already liquidated the shorts overhead
}

func (LiquidationDetail) isDetail() {}

// LiquidationHeatmap estimates where leveraged positions liquidate. A pump
// that already swept short liquidity overhead, with clustered long
// liquidations below, makes price a magnet downward.
type LiquidationHeatmap struct{}

var leverageTiers = []int{5, 10, 20, 50, 100}

func (a *LiquidationHeatmap) Name() string { return NameLiquidation }

func (a *LiquidationHeatmap) Analyze(ctx context.Context, in Inputs) (Result, error) {
	if in.Pump == nil {
		return Neutral(a.Name()), nil
	}

	current := in.EntryPrice
	if current == 0 {
		current = in.Pump.CurrentPrice
	}
	start := in.Pump.PriceStart
	peak := in.Pump.PricePeak
	if current == 0 || start == 0 || peak == 0 {
		return Neutral(a.Name()), nil
	}

	detail := LiquidationDetail{}

	// Longs averaged in somewhere between start and peak; 90% margin loss
	// triggers the liquidation
	avgLongEntry := (start + peak) / 2
	for _, lev := range leverageTiers {
		liqPrice := avgLongEntry * (1 - 0.9/float64(lev))
		if liqPrice < current {
			detail.LongZones = append(detail.LongZones, LiqZone{
				Price:       liqPrice,
				Leverage:    lev,
				DistancePct: (current - liqPrice) / current * 100,
				Intensity:   intensityFor(lev),
			})
		}
	}

	// Shorts opened into the peak
	for _, lev := range leverageTiers {
		liqPrice := peak * (1 + 0.9/float64(lev))
		if liqPrice > current {
			detail.ShortZones = append(detail.ShortZones, LiqZone{
				Price:       liqPrice,
				Leverage:    lev,
				DistancePct: (liqPrice - current) / current * 100,
				Intensity:   intensityFor(lev),
			})
		}
	}

	sort.Slice(detail.LongZones, func(i, j int) bool {
		return detail.LongZones[i].DistancePct < detail.LongZones[j].DistancePct
	})
	sort.Slice(detail.ShortZones, func(i, j int) bool {
		return detail.ShortZones[i].DistancePct < detail.ShortZones[j].DistancePct
	})

	pumpPct := in.Pump.PumpPct
	detail.SweptAbove = pumpPct >= 10

	score := 5.0
	if detail.SweptAbove {
		score += 2.0
	}

	highIntensity := 0
	for _, z := range detail.LongZones {
		if z.Intensity == "HIGH" {
			highIntensity++
		}
	}
	if highIntensity >= 2 {
		score += 2.0
	} else if highIntensity >= 1 {
		score += 1.0
	}

	if pumpPct >= 20 {
		score += 1.0
	}

	return Result{Name: a.Name(), Score: clampScore(score), Detail: detail}, nil
}

// Lower leverage tiers hold more positions, so their clusters run hotter
func intensityFor(leverage int) string {
	switch {
	case leverage <= 10:
		return "HIGH"
	case leverage <= 25:
		return "MEDIUM"
	default:
		return "LOW"
	}
}
