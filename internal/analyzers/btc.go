package analyzers

import (
	"context"
)

// BTCDetail is the BTCCorrelation payload
type BTCDetail struct {
	Change24h float64
}

func (BTCDetail) isDetail() {}

// BTCCorrelation scores the reference asset's direction. Altcoin pumps
// against a dumping market rarely hold; a rising market can carry them.
type BTCCorrelation struct{}

func (a *BTCCorrelation) Name() string { return NameBTC }

func (a *BTCCorrelation) Analyze(ctx context.Context, in Inputs) (Result, error) {
	change := in.BTCChange24h

	// 9 at -3% and below, 2 at +3% and above, linear between
	var score float64
	switch {
	case change <= -3:
		score = 9
	case change >= 3:
		score = 2
	default:
		score = 9 - (change+3)/6*7
	}

	return Result{Name: a.Name(), Score: score, Detail: BTCDetail{Change24h: change}}, nil
}
