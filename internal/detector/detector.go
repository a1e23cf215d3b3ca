package detector

import (
	"time"

	"github.com/web3guy0/pumpwatch/internal/market"
)

// Kind classifies how quickly the pump happened
type Kind string

const (
	// KindFast is a sharp impulse: >=10% within 5 minutes
	KindFast Kind = "FAST"
	// KindElite is a sustained run: >=20% within 20 minutes
	KindElite Kind = "ELITE"
)

// Rank orders kinds by entry quality, higher is better
func (k Kind) Rank() int {
	switch k {
	case KindFast:
		return 2
	case KindElite:
		return 1
	}
	return 0
}

// PumpEvent describes one detected abnormal rise
type PumpEvent struct {
	Symbol         string
	Kind           Kind
	PumpPct        float64
	ElapsedMinutes float64
	PriceStart     float64
	PricePeak      float64
	CurrentPrice   float64
	DetectedAt     time.Time
}

// window is one detection rule evaluated against the series
type window struct {
	kind      Kind
	span      time.Duration
	threshold float64 // pct rise
}

// Detector finds FAST and ELITE pumps in a snapshot series
type Detector struct {
	windows []window

	maxPeakAge   time.Duration
	minDropFresh float64 // pct drop from peak that keeps an old peak interesting
}

// Config tunes the detection windows
type Config struct {
	FastWindow     time.Duration
	FastThreshold  float64
	EliteWindow    time.Duration
	EliteThreshold float64
}

// DefaultConfig returns the production detection thresholds
func DefaultConfig() Config {
	return Config{
		FastWindow:     5 * time.Minute,
		FastThreshold:  10.0,
		EliteWindow:    20 * time.Minute,
		EliteThreshold: 20.0,
	}
}

// New creates a detector
func New(cfg Config) *Detector {
	return &Detector{
		windows: []window{
			{kind: KindFast, span: cfg.FastWindow, threshold: cfg.FastThreshold},
			{kind: KindElite, span: cfg.EliteWindow, threshold: cfg.EliteThreshold},
		},
		maxPeakAge:   3 * time.Minute,
		minDropFresh: 1.5,
	}
}

// Detect evaluates the series at the given instant. Returns nil when no
// window qualifies or the best candidate is stale.
func (d *Detector) Detect(symbol string, series []market.Snapshot, now time.Time) *PumpEvent {
	if len(series) < 2 {
		return nil
	}

	nowMs := now.UnixMilli()

	for _, w := range d.windows {
		ev := d.evaluate(symbol, series, w, nowMs, now)
		if ev != nil {
			return ev
		}
	}
	return nil
}

func (d *Detector) evaluate(symbol string, series []market.Snapshot, w window, nowMs int64, now time.Time) *PumpEvent {
	cutoff := nowMs - w.span.Milliseconds()

	var slice []market.Snapshot
	for i := range series {
		if series[i].Timestamp >= cutoff {
			slice = series[i:]
			break
		}
	}
	if len(slice) < 2 {
		return nil
	}

	start := slice[0]
	peak := slice[0]
	for _, s := range slice {
		if s.Price < start.Price {
			start = s
		}
		if s.Price > peak.Price {
			peak = s
		}
	}
	if start.Price <= 0 {
		return nil
	}

	rise := (peak.Price - start.Price) / start.Price * 100
	if rise < w.threshold {
		return nil
	}

	current := slice[len(slice)-1]

	// Old peak that has not started reversing yet: waiting is wasted
	peakAge := time.Duration(nowMs-peak.Timestamp) * time.Millisecond
	dropFromPeak := 0.0
	if peak.Price > 0 {
		dropFromPeak = (peak.Price - current.Price) / peak.Price * 100
	}
	if peakAge > d.maxPeakAge && dropFromPeak < d.minDropFresh {
		return nil
	}

	elapsed := float64(peak.Timestamp-start.Timestamp) / 60000.0
	if elapsed < 0.1 {
		elapsed = 0.1
	}

	return &PumpEvent{
		Symbol:         symbol,
		Kind:           w.kind,
		PumpPct:        rise,
		ElapsedMinutes: elapsed,
		PriceStart:     start.Price,
		PricePeak:      peak.Price,
		CurrentPrice:   current.Price,
		DetectedAt:     now,
	}
}
