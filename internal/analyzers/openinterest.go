package analyzers

import (
	"context"
)

// OIDetail is the OpenInterestDelta payload
type OIDetail struct {
	ChangePct float64
	Direction string // "rising", "falling", "flat"
}

func (OIDetail) isDetail() {}

// OpenInterestDelta scores the OI change over a short lookback. During a
// pump both directions are informative: rising OI means shorts are being
// liquidated into the top, falling OI means longs are unwinding.
type OpenInterestDelta struct {
	LookbackMinutes int
}

func (a *OpenInterestDelta) Name() string { return NameOpenInterest }

func (a *OpenInterestDelta) Analyze(ctx context.Context, in Inputs) (Result, error) {
	if len(in.OIHistory) < 2 {
		return Neutral(a.Name()), nil
	}

	nowMs := in.Now.UnixMilli()
	cutoff := nowMs - int64(a.LookbackMinutes)*60_000

	// oldest sample inside the lookback
	base := in.OIHistory[0]
	for _, p := range in.OIHistory {
		if p.Timestamp >= cutoff {
			base = p
			break
		}
	}
	latest := in.OIHistory[len(in.OIHistory)-1]

	if base.Contracts == 0 || base.Timestamp == latest.Timestamp {
		return Neutral(a.Name()), nil
	}

	changePct := (latest.Contracts - base.Contracts) / base.Contracts * 100

	var score float64
	var direction string
	switch {
	case changePct >= 5:
		// shorts liquidated into the peak
		direction = "rising"
		score = 8.5
	case changePct <= -5:
		// longs unwinding
		direction = "falling"
		score = 7.5
	case changePct >= 2 || changePct <= -2:
		direction = "flat"
		score = 5.0
	default:
		direction = "flat"
		score = 3.0
	}

	return Result{
		Name:   a.Name(),
		Score:  score,
		Detail: OIDetail{ChangePct: changePct, Direction: direction},
	}, nil
}
