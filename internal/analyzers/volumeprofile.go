package analyzers

import (
	"context"

	"github.com/web3guy0/pumpwatch/internal/indicators"
)

// VolumeZone is one high-volume price band
type VolumeZone struct {
	Price  float64
	Volume float64
	Kind   string // "support" or "resistance"
}

// VolumeProfileDetail is the VolumeProfile payload
type VolumeProfileDetail struct {
	Zones           []VolumeZone
	POC             float64 // point of control: the heaviest price level
	SupportCount    int
	ResistanceCount int
}

func (VolumeProfileDetail) isDetail() {}

// VolumeProfile buckets 24h of hourly candles into price levels. Heavy
// zones overhead act as resistance; more resistance than support favors
// the short.
type VolumeProfile struct{}

const volumeProfileBins = 24

func (a *VolumeProfile) Name() string { return NameVolumeProfile }

func (a *VolumeProfile) Analyze(ctx context.Context, in Inputs) (Result, error) {
	klines := in.HourlyKlines
	if len(klines) < 6 {
		return Neutral(a.Name()), nil
	}

	current := in.EntryPrice
	if current == 0 && in.Pump != nil {
		current = in.Pump.CurrentPrice
	}
	if current == 0 {
		current = klines[len(klines)-1].Close
	}

	lo := klines[0].Low
	hi := klines[0].High
	for _, k := range klines {
		if k.Low < lo {
			lo = k.Low
		}
		if k.High > hi {
			hi = k.High
		}
	}
	if hi <= lo {
		return Neutral(a.Name()), nil
	}

	binWidth := (hi - lo) / volumeProfileBins
	volumes := make([]float64, volumeProfileBins)

	// Each candle's volume spreads uniformly across the bins its range touches
	for _, k := range klines {
		if k.High <= k.Low {
			idx := binIndex(k.Close, lo, binWidth)
			volumes[idx] += k.Volume
			continue
		}
		first := binIndex(k.Low, lo, binWidth)
		last := binIndex(k.High, lo, binWidth)
		span := float64(last - first + 1)
		for i := first; i <= last; i++ {
			volumes[i] += k.Volume / span
		}
	}

	mean := indicators.Average(volumes)
	if mean == 0 {
		return Neutral(a.Name()), nil
	}

	detail := VolumeProfileDetail{}
	var pocVolume float64
	for i, vol := range volumes {
		price := lo + (float64(i)+0.5)*binWidth
		if vol > pocVolume {
			pocVolume = vol
			detail.POC = price
		}
		if vol >= 1.5*mean {
			zone := VolumeZone{Price: price, Volume: vol}
			if price > current {
				zone.Kind = "resistance"
				detail.ResistanceCount++
			} else {
				zone.Kind = "support"
				detail.SupportCount++
			}
			detail.Zones = append(detail.Zones, zone)
		}
	}

	score := 5.0
	diff := detail.ResistanceCount - detail.SupportCount
	switch {
	case diff >= 3:
		score = 9
	case diff == 2:
		score = 8
	case diff == 1:
		score = 7
	case diff == 0:
		score = 5
	case diff == -1:
		score = 4
	default:
		score = 2.5
	}

	return Result{Name: a.Name(), Score: score, Detail: detail}, nil
}

func binIndex(price, lo, width float64) int {
	idx := int((price - lo) / width)
	if idx < 0 {
		return 0
	}
	if idx >= volumeProfileBins {
		return volumeProfileBins - 1
	}
	return idx
}
