package analyzers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/pumpwatch/internal/detector"
	"github.com/web3guy0/pumpwatch/internal/market"
)

// Canonical analyzer names, in reporting order
const (
	NameOrderbook     = "orderbook"
	NameOpenInterest  = "open_interest"
	NameFunding       = "funding"
	NameLiquidation   = "liquidation"
	NameBTC           = "btc_correlation"
	NameMTF           = "multi_timeframe"
	NameVolumeProfile = "volume_profile"
	NameCrossPair     = "cross_pair"
	NameGodEye        = "god_eye"
	NameCandle        = "candle"
)

// Names lists every analyzer in reporting order
var Names = []string{
	NameOrderbook, NameOpenInterest, NameFunding, NameLiquidation, NameBTC,
	NameMTF, NameVolumeProfile, NameCrossPair, NameGodEye, NameCandle,
}

// NeutralScore is returned whenever an analyzer fails or times out
const NeutralScore = 5.0

// OIPoint is one open-interest sample
type OIPoint struct {
	Timestamp int64 // unix ms
	Contracts float64
}

// Inputs bundles everything the suite needs. The orchestrator gathers it
// once per evaluation; analyzers never do their own IO.
type Inputs struct {
	Symbol     string
	Pump       *detector.PumpEvent
	EntryPrice float64

	Klines           []market.Kline            // 1m candles, newest last
	KlinesByInterval map[string][]market.Kline // "5m","15m","1h","4h"
	HourlyKlines     []market.Kline            // last 24 hourly candles
	Orderbook        *market.Orderbook
	Funding          *market.Funding
	OIHistory        []OIPoint

	BTCChange24h float64
	PeerChanges  map[string]float64 // 24h change of sector peers

	Now time.Time
}

// Detail is the typed per-analyzer payload attached to a Result
type Detail interface {
	isDetail()
}

// Result is one analyzer's verdict
type Result struct {
	Name   string
	Score  float64 // 0..10, higher favors the short
	Detail Detail
}

// Neutral returns the sentinel result for a failed analyzer
func Neutral(name string) Result {
	return Result{Name: name, Score: NeutralScore}
}

// Analyzer scores one aspect of a pump for short entry quality
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, in Inputs) (Result, error)
}

// Suite fans all analyzers out in parallel and joins them with a deadline.
// A failed or late analyzer contributes the neutral score.
type Suite struct {
	analyzers []Analyzer
	timeout   time.Duration
}

// NewSuite builds the production roster
func NewSuite(timeout time.Duration) *Suite {
	return &Suite{
		analyzers: []Analyzer{
			&OrderbookPressure{WallThresholdPct: 5.0},
			&OpenInterestDelta{LookbackMinutes: 5},
			&FundingRateAnalyzer{},
			&LiquidationHeatmap{},
			&BTCCorrelation{},
			&MultiTimeframe{},
			&VolumeProfile{},
			&CrossPair{Sectors: DefaultSectors()},
			&GodEye{},
			&CandleStructure{},
		},
		timeout: timeout,
	}
}

// NewSuiteWith builds a suite from an explicit roster
func NewSuiteWith(timeout time.Duration, analyzers ...Analyzer) *Suite {
	return &Suite{analyzers: analyzers, timeout: timeout}
}

// Run executes every analyzer concurrently. The returned map always holds
// one entry per analyzer.
func (s *Suite) Run(ctx context.Context, in Inputs) map[string]Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type outcome struct {
		name   string
		result Result
		err    error
	}

	ch := make(chan outcome, len(s.analyzers))
	for _, a := range s.analyzers {
		go func(a Analyzer) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Str("analyzer", a.Name()).Interface("panic", r).Msg("Analyzer panicked")
					ch <- outcome{name: a.Name(), result: Neutral(a.Name())}
				}
			}()
			res, err := a.Analyze(ctx, in)
			ch <- outcome{name: a.Name(), result: res, err: err}
		}(a)
	}

	results := make(map[string]Result, len(s.analyzers))
	for range s.analyzers {
		select {
		case out := <-ch:
			if out.err != nil {
				log.Debug().Str("analyzer", out.name).Err(out.err).Msg("Analyzer failed, using neutral")
				results[out.name] = Neutral(out.name)
			} else {
				results[out.name] = out.result
			}
		case <-ctx.Done():
			// late analyzers are discarded
			for _, a := range s.analyzers {
				if _, ok := results[a.Name()]; !ok {
					results[a.Name()] = Neutral(a.Name())
				}
			}
			return results
		}
	}
	return results
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}
