package analyzers

import (
	"context"
)

// FundingDetail is the FundingRateAnalyzer payload
type FundingDetail struct {
	RatePct  float64 // funding rate in percent
	NextTime int64
}

func (FundingDetail) isDetail() {}

// FundingRateAnalyzer maps the funding rate to a short score. Positive
// funding means longs pay shorts; the hotter it runs, the better the entry.
type FundingRateAnalyzer struct{}

func (a *FundingRateAnalyzer) Name() string { return NameFunding }

func (a *FundingRateAnalyzer) Analyze(ctx context.Context, in Inputs) (Result, error) {
	if in.Funding == nil {
		return Neutral(a.Name()), nil
	}

	ratePct := in.Funding.Rate * 100
	score := fundingScore(ratePct)

	return Result{
		Name:   a.Name(),
		Score:  score,
		Detail: FundingDetail{RatePct: ratePct, NextTime: in.Funding.NextFundingTime},
	}, nil
}

// fundingScore is a piecewise-linear mapping from funding percent to 0..10
func fundingScore(ratePct float64) float64 {
	switch {
	case ratePct <= 0:
		return 0
	case ratePct >= 0.20:
		return 10
	case ratePct >= 0.10:
		return 7 + (ratePct-0.10)/0.10*3
	case ratePct >= 0.05:
		return 5 + (ratePct-0.05)/0.05*2
	case ratePct >= 0.01:
		return 2 + (ratePct-0.01)/0.04*3
	default:
		return ratePct / 0.01 * 2
	}
}
