package analyzers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/pumpwatch/internal/detector"
	"github.com/web3guy0/pumpwatch/internal/market"
)

func pumpEvent() *detector.PumpEvent {
	return &detector.PumpEvent{
		Symbol:         "TEST_USDT",
		Kind:           detector.KindFast,
		PumpPct:        12.0,
		ElapsedMinutes: 2.0,
		PriceStart:     100,
		PricePeak:      112,
		CurrentPrice:   111,
		DetectedAt:     time.Now(),
	}
}

func TestOrderbookPressureSellWalls(t *testing.T) {
	a := &OrderbookPressure{WallThresholdPct: 5.0}

	book := &market.Orderbook{
		Bids: []market.BookLevel{
			{Price: 110.5, Quantity: 100},
			{Price: 110.0, Quantity: 100},
		},
		Asks: []market.BookLevel{
			{Price: 111.5, Quantity: 1200}, // 1200/1600 = 75% wall
			{Price: 112.0, Quantity: 200},
		},
	}

	res, err := a.Analyze(context.Background(), Inputs{Orderbook: book})
	require.NoError(t, err)

	detail := res.Detail.(OrderbookDetail)
	require.NotNil(t, detail.LargestSellWall)
	assert.Greater(t, detail.LargestSellWall.PctOfTotal, 15.0)
	assert.Less(t, detail.Imbalance, -0.2)

	// 2 sell walls (4.0) + giant wall bonus (3.0) + imbalance (2.0)
	assert.InDelta(t, 9.0, res.Score, 1e-6)
}

func TestOrderbookPressureNeutralWithoutBook(t *testing.T) {
	a := &OrderbookPressure{WallThresholdPct: 5.0}
	res, err := a.Analyze(context.Background(), Inputs{})
	require.NoError(t, err)
	assert.InDelta(t, NeutralScore, res.Score, 1e-6)
}

func TestOpenInterestDeltaRising(t *testing.T) {
	a := &OpenInterestDelta{LookbackMinutes: 5}
	now := time.Now()

	in := Inputs{
		Now: now,
		OIHistory: []OIPoint{
			{Timestamp: now.Add(-4 * time.Minute).UnixMilli(), Contracts: 1000},
			{Timestamp: now.UnixMilli(), Contracts: 1080},
		},
	}

	res, err := a.Analyze(context.Background(), in)
	require.NoError(t, err)

	detail := res.Detail.(OIDetail)
	assert.InDelta(t, 8.0, detail.ChangePct, 1e-6)
	assert.Equal(t, "rising", detail.Direction)
	assert.InDelta(t, 8.5, res.Score, 1e-6)
}

func TestOpenInterestDeltaFalling(t *testing.T) {
	a := &OpenInterestDelta{LookbackMinutes: 5}
	now := time.Now()

	in := Inputs{
		Now: now,
		OIHistory: []OIPoint{
			{Timestamp: now.Add(-4 * time.Minute).UnixMilli(), Contracts: 1000},
			{Timestamp: now.UnixMilli(), Contracts: 900},
		},
	}

	res, err := a.Analyze(context.Background(), in)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, res.Score, 1e-6)
}

func TestOpenInterestDeltaFlat(t *testing.T) {
	a := &OpenInterestDelta{LookbackMinutes: 5}
	now := time.Now()

	in := Inputs{
		Now: now,
		OIHistory: []OIPoint{
			{Timestamp: now.Add(-4 * time.Minute).UnixMilli(), Contracts: 1000},
			{Timestamp: now.UnixMilli(), Contracts: 1005},
		},
	}

	res, err := a.Analyze(context.Background(), in)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, res.Score, 1e-6)
}

func TestFundingScoreMapping(t *testing.T) {
	cases := []struct {
		ratePct float64
		want    float64
	}{
		{-0.01, 0},
		{0, 0},
		{0.005, 1},
		{0.01, 2},
		{0.05, 5},
		{0.10, 7},
		{0.20, 10},
		{0.50, 10},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, fundingScore(tc.ratePct), 1e-6, "rate %.3f", tc.ratePct)
	}

	// strictly monotonic inside the positive range
	assert.Greater(t, fundingScore(0.15), fundingScore(0.08))
	assert.Greater(t, fundingScore(0.03), fundingScore(0.01))
}

func TestFundingAnalyzer(t *testing.T) {
	a := &FundingRateAnalyzer{}

	res, err := a.Analyze(context.Background(), Inputs{
		Funding: &market.Funding{Rate: 0.002}, // 0.2%
	})
	require.NoError(t, err)
	assert.InDelta(t, 10.0, res.Score, 1e-6)

	res, err = a.Analyze(context.Background(), Inputs{})
	require.NoError(t, err)
	assert.InDelta(t, NeutralScore, res.Score, 1e-6)
}

func TestLiquidationHeatmapSweptPump(t *testing.T) {
	a := &LiquidationHeatmap{}

	res, err := a.Analyze(context.Background(), Inputs{
		Pump:       pumpEvent(),
		EntryPrice: 111,
	})
	require.NoError(t, err)

	detail := res.Detail.(LiquidationDetail)
	assert.True(t, detail.SweptAbove)
	require.NotEmpty(t, detail.LongZones)

	// zones sorted by distance from price
	for i := 1; i < len(detail.LongZones); i++ {
		assert.GreaterOrEqual(t, detail.LongZones[i].DistancePct, detail.LongZones[i-1].DistancePct)
	}

	// swept +2 and two HIGH-intensity long zones +2
	assert.GreaterOrEqual(t, res.Score, 8.0)
}

func TestBTCCorrelation(t *testing.T) {
	a := &BTCCorrelation{}

	res, _ := a.Analyze(context.Background(), Inputs{BTCChange24h: -5})
	assert.InDelta(t, 9.0, res.Score, 1e-6)

	res, _ = a.Analyze(context.Background(), Inputs{BTCChange24h: 4})
	assert.InDelta(t, 2.0, res.Score, 1e-6)

	res, _ = a.Analyze(context.Background(), Inputs{BTCChange24h: 0})
	assert.InDelta(t, 5.5, res.Score, 1e-6)
}

func trendingKlines(n int, step float64) []market.Kline {
	out := make([]market.Kline, n)
	price := 100.0
	for i := 0; i < n; i++ {
		next := price + step
		out[i] = market.Kline{
			Time:   int64(i) * 60_000,
			Open:   price,
			High:   maxOf(price, next) + 0.1,
			Low:    minOf(price, next) - 0.1,
			Close:  next,
			Volume: 1000,
		}
		price = next
	}
	return out
}

func minOf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func TestMultiTimeframeAllDown(t *testing.T) {
	a := &MultiTimeframe{}

	down := trendingKlines(40, -1)
	in := Inputs{
		KlinesByInterval: map[string][]market.Kline{
			"5m": down, "15m": down, "1h": down, "4h": down,
		},
	}

	res, err := a.Analyze(context.Background(), in)
	require.NoError(t, err)

	detail := res.Detail.(MTFDetail)
	assert.Equal(t, TrendDown, detail.Trends["1h"])
	assert.Equal(t, "STRONG_SHORT", detail.Recommendation)
	assert.InDelta(t, 10.0, res.Score, 1e-6)
}

func TestMultiTimeframeAllUp(t *testing.T) {
	a := &MultiTimeframe{}

	up := trendingKlines(40, 1)
	in := Inputs{
		KlinesByInterval: map[string][]market.Kline{
			"5m": up, "15m": up, "1h": up, "4h": up,
		},
	}

	res, err := a.Analyze(context.Background(), in)
	require.NoError(t, err)

	detail := res.Detail.(MTFDetail)
	assert.Equal(t, "AVOID_SHORT", detail.Recommendation)
	assert.InDelta(t, 0.0, res.Score, 1e-6)
}

func TestMultiTimeframeShortHistoryIsUnknown(t *testing.T) {
	a := &MultiTimeframe{}

	in := Inputs{
		KlinesByInterval: map[string][]market.Kline{
			"5m": trendingKlines(5, -1),
		},
	}

	res, err := a.Analyze(context.Background(), in)
	require.NoError(t, err)

	detail := res.Detail.(MTFDetail)
	assert.Equal(t, TrendUnknown, detail.Trends["5m"])
	assert.Equal(t, TrendUnknown, detail.Trends["4h"])
	assert.InDelta(t, 5.0, res.Score, 1e-6)
}

func TestVolumeProfileResistanceOverhead(t *testing.T) {
	a := &VolumeProfile{}

	// heavy trading high above the current price, thin below
	klines := make([]market.Kline, 24)
	for i := range klines {
		price := 100.0
		vol := 100.0
		if i < 12 {
			price = 140.0
			vol = 5000.0
		}
		klines[i] = market.Kline{
			Time: int64(i) * 3_600_000,
			Open: price, High: price + 2, Low: price - 2, Close: price,
			Volume: vol,
		}
	}

	res, err := a.Analyze(context.Background(), Inputs{
		HourlyKlines: klines,
		EntryPrice:   100,
	})
	require.NoError(t, err)

	detail := res.Detail.(VolumeProfileDetail)
	assert.Greater(t, detail.ResistanceCount, detail.SupportCount)
	assert.GreaterOrEqual(t, res.Score, 7.0)
	assert.Greater(t, detail.POC, 100.0)
}

func TestCrossPairSectorDump(t *testing.T) {
	a := &CrossPair{Sectors: DefaultSectors()}

	in := Inputs{
		Symbol: "PEPE_USDT",
		PeerChanges: map[string]float64{
			"DOGE_USDT":  -4.0,
			"SHIB_USDT":  -3.2,
			"FLOKI_USDT": -2.5,
			"BONK_USDT":  1.0,
		},
	}

	res, err := a.Analyze(context.Background(), in)
	require.NoError(t, err)

	detail := res.Detail.(CrossPairDetail)
	assert.Equal(t, "meme", detail.Sector)
	assert.Equal(t, 3, detail.Dumping)
	assert.InDelta(t, 8.5, res.Score, 1e-6)
}

func TestCrossPairUnknownSymbolNeutral(t *testing.T) {
	a := &CrossPair{Sectors: DefaultSectors()}

	res, err := a.Analyze(context.Background(), Inputs{Symbol: "OBSCURE_USDT", PeerChanges: map[string]float64{"DOGE_USDT": -5}})
	require.NoError(t, err)
	assert.InDelta(t, NeutralScore, res.Score, 1e-6)
}

func TestGodEyeOverboughtBlowoff(t *testing.T) {
	a := &GodEye{}

	// steady grind up then a vertical blowoff: overbought, above bands
	klines := trendingKlines(30, 0.2)
	last := klines[len(klines)-1].Close
	for i := 0; i < 5; i++ {
		next := last * 1.04
		klines = append(klines, market.Kline{
			Open: last, High: next + 0.2, Low: last - 0.1, Close: next, Volume: 8000,
		})
		last = next
	}

	res, err := a.Analyze(context.Background(), Inputs{Klines: klines})
	require.NoError(t, err)

	detail := res.Detail.(GodEyeDetail)
	assert.Greater(t, detail.RSI, 60.0)
	assert.Greater(t, detail.BollingerPos, 0.85)
	assert.Greater(t, res.Score, NeutralScore)
}

func TestGodEyeNeutralOnShortHistory(t *testing.T) {
	a := &GodEye{}
	res, err := a.Analyze(context.Background(), Inputs{Klines: trendingKlines(5, 1)})
	require.NoError(t, err)
	assert.InDelta(t, NeutralScore, res.Score, 1e-6)
}

func TestCandleShootingStar(t *testing.T) {
	a := &CandleStructure{}

	klines := []market.Kline{
		{Open: 100, High: 101, Low: 99.5, Close: 100.8, Volume: 100},
		// tall upper wick, tiny body near the low
		{Open: 100.8, High: 112, Low: 100.5, Close: 101.2, Volume: 900},
	}

	res, err := a.Analyze(context.Background(), Inputs{Klines: klines})
	require.NoError(t, err)

	detail := res.Detail.(CandleDetail)
	assert.Equal(t, "SHOOTING_STAR", detail.Pattern)
	assert.InDelta(t, 1.25, detail.TPMultiplier, 1e-6)
	assert.InDelta(t, 9.0, res.Score, 1e-6)
}

func TestCandleBearishEngulfing(t *testing.T) {
	a := &CandleStructure{}

	klines := []market.Kline{
		{Open: 100, High: 103.1, Low: 99.9, Close: 103, Volume: 100},
		// red candle engulfing the prior green body, modest wick
		{Open: 103.5, High: 103.8, Low: 99.2, Close: 99.5, Volume: 900},
	}

	res, err := a.Analyze(context.Background(), Inputs{Klines: klines})
	require.NoError(t, err)

	detail := res.Detail.(CandleDetail)
	assert.Equal(t, "BEARISH_ENGULFING", detail.Pattern)
	assert.InDelta(t, 8.5, res.Score, 1e-6)
}

func TestCandleNeutralWithoutKlines(t *testing.T) {
	a := &CandleStructure{}
	res, err := a.Analyze(context.Background(), Inputs{})
	require.NoError(t, err)
	assert.InDelta(t, NeutralScore, res.Score, 1e-6)
}
