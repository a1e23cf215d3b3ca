package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/pumpwatch/internal/brain"
	"github.com/web3guy0/pumpwatch/internal/detector"
	"github.com/web3guy0/pumpwatch/internal/market"
	"github.com/web3guy0/pumpwatch/internal/ml"
	"github.com/web3guy0/pumpwatch/internal/scoring"
	"github.com/web3guy0/pumpwatch/internal/tracker"
)

// fakeExchange serves a strongly bearish picture so the pipeline scores
// high enough to emit.
type fakeExchange struct {
	oiCalls int
}

func (f *fakeExchange) ListSymbols(ctx context.Context) ([]string, error) {
	return []string{"TEST_USDT"}, nil
}

func (f *fakeExchange) BatchTicker(ctx context.Context) (map[string]market.Ticker, error) {
	return nil, errors.New("not used")
}

func (f *fakeExchange) Klines(ctx context.Context, symbol, interval string, limit int) ([]market.Kline, error) {
	switch interval {
	case "1m":
		return blowoffKlines(), nil
	default:
		return downtrendKlines(40), nil
	}
}

func (f *fakeExchange) OrderbookDepth(ctx context.Context, symbol string, limit int) (*market.Orderbook, error) {
	return &market.Orderbook{
		Bids: []market.BookLevel{{Price: 110.5, Quantity: 100}, {Price: 110.0, Quantity: 100}},
		Asks: []market.BookLevel{{Price: 111.5, Quantity: 1200}, {Price: 112.0, Quantity: 200}},
	}, nil
}

func (f *fakeExchange) FundingRate(ctx context.Context, symbol string) (*market.Funding, error) {
	return &market.Funding{Rate: 0.003}, nil
}

func (f *fakeExchange) OpenInterest(ctx context.Context, symbol string) (*market.OpenInterest, error) {
	f.oiCalls++
	return &market.OpenInterest{Contracts: 1000 + float64(f.oiCalls)*50, ContractSize: 1}, nil
}

// a grind up ending in a vertical blowoff with a rejection wick
func blowoffKlines() []market.Kline {
	out := make([]market.Kline, 0, 40)
	price := 100.0
	for i := 0; i < 35; i++ {
		next := price * 1.001
		out = append(out, market.Kline{
			Time: int64(i) * 60_000,
			Open: price, High: next + 0.05, Low: price - 0.05, Close: next, Volume: 500,
		})
		price = next
	}
	for i := 35; i < 39; i++ {
		next := price * 1.02
		out = append(out, market.Kline{
			Time: int64(i) * 60_000,
			Open: price, High: next + 0.1, Low: price - 0.1, Close: next, Volume: 5000,
		})
		price = next
	}
	// shooting star at the top
	out = append(out, market.Kline{
		Time: 39 * 60_000,
		Open: price, High: price * 1.04, Low: price * 0.999, Close: price * 1.003, Volume: 9000,
	})
	return out
}

func downtrendKlines(n int) []market.Kline {
	out := make([]market.Kline, n)
	price := 140.0
	for i := 0; i < n; i++ {
		next := price - 1
		out[i] = market.Kline{
			Time: int64(i) * 300_000,
			Open: price, High: price + 0.5, Low: next - 0.5, Close: next, Volume: 1000,
		}
		price = next
	}
	return out
}

func testEngine(t *testing.T) (*Engine, *fakeExchange) {
	t.Helper()

	memory, err := brain.New(filepath.Join(t.TempDir(), "brain.db"))
	require.NoError(t, err)
	t.Cleanup(memory.Close)

	store := market.NewStore(40 * time.Minute)
	ex := &fakeExchange{}

	trk := tracker.New(tracker.Config{
		Horizons: []time.Duration{10 * time.Millisecond, 20 * time.Millisecond},
	}, func(string) (float64, bool) { return 111, true }, memory)
	t.Cleanup(trk.Stop)

	cfg := DefaultConfig()
	cfg.FastConfirm = ConfirmParams{Timeout: 300 * time.Millisecond, ReversalPct: 0.5, Poll: 2 * time.Millisecond}
	cfg.EliteConfirm = ConfirmParams{Timeout: 300 * time.Millisecond, ReversalPct: 1.0, Poll: 2 * time.Millisecond}
	cfg.AnalyzingTimeout = 500 * time.Millisecond
	cfg.AnalyzingPollFast = 5 * time.Millisecond
	cfg.AnalyzingPollSlow = 10 * time.Millisecond

	e := New(cfg, ex, store, memory, ml.New(""), trk)
	return e, ex
}

// seedPump replays the reference scenario: 100 -> 104 -> 110 -> 112 -> 111
// over two minutes at 30s steps.
func seedPump(e *Engine, nowMs int64) {
	prices := []float64{100, 104, 110, 112, 111}
	for i, p := range prices {
		ts := nowMs - int64(4-i)*30_000
		e.store.Insert("TEST_USDT", market.Snapshot{Timestamp: ts, Price: p, Volume: 1000})
	}
}

func TestDetectReferencePump(t *testing.T) {
	e, _ := testEngine(t)
	now := time.Now()
	seedPump(e, now.UnixMilli())

	series := e.store.Recent("TEST_USDT", e.cfg.Detector.EliteWindow, now.UnixMilli())
	ev := e.det.Detect("TEST_USDT", series, now)

	require.NotNil(t, ev)
	assert.Equal(t, detector.KindFast, ev.Kind)
	assert.InDelta(t, 12.0, ev.PumpPct, 1e-6)
	assert.InDelta(t, 1.5, ev.ElapsedMinutes, 1e-6)
	assert.InDelta(t, 100, ev.PriceStart, 1e-6)
	assert.InDelta(t, 112, ev.PricePeak, 1e-6)
}

func TestInstantShortOnConfirmedReversal(t *testing.T) {
	e, _ := testEngine(t)
	now := time.Now()
	seedPump(e, now.UnixMilli())

	// live price holds at 111: a 0.89% drop from the 112 peak
	e.SetStreamPrice(func(string) (float64, bool) { return 111, true })
	e.tickerMu.Lock()
	e.tickers["BTC_USDT"] = market.Ticker{Symbol: "BTC_USDT", Change24h: -5}
	e.tickerMu.Unlock()

	signals := make(chan *Signal, 1)
	e.OnSignal(func(s *Signal) { signals <- s })

	series := e.store.Recent("TEST_USDT", e.cfg.Detector.EliteWindow, now.UnixMilli())
	ev := e.det.Detect("TEST_USDT", series, now)
	require.NotNil(t, ev)

	e.handlePump(ev)

	var sig *Signal
	select {
	case sig = <-signals:
	case <-time.After(5 * time.Second):
		t.Fatal("no signal emitted")
	}

	assert.Equal(t, "TEST_USDT", sig.Symbol)
	assert.InDelta(t, 111, sig.Entry, 1e-6)
	assert.True(t, sig.Tier.Emit())
	assert.Len(t, sig.Results, 10)

	// levels honor the short invariant
	assert.Greater(t, sig.Levels.SL, sig.Entry)
	for _, tp := range sig.Levels.TPs {
		assert.Less(t, tp, sig.Entry)
	}

	// the signal row is durable with outcome still open
	pending, err := e.memory.PendingRows()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, sig.ID, pending[0].ID)
	assert.InDelta(t, sig.Combination.Final, pending[0].CombinedScore, 1e-6)

	// actor slot freed after emission
	assert.Eventually(t, func() bool { return e.ActiveAnalyses() == 0 }, time.Second, 10*time.Millisecond)
}

func TestShouldNotifyRules(t *testing.T) {
	e, _ := testEngine(t)

	fast := &detector.PumpEvent{Symbol: "X_USDT", Kind: detector.KindFast, PricePeak: 112}
	elite := &detector.PumpEvent{Symbol: "X_USDT", Kind: detector.KindElite, PricePeak: 112}

	st := &symbolState{}
	assert.True(t, e.shouldNotify(st, fast), "new symbol always notifies")

	st = &symbolState{lastNotifiedPeak: 112, lastNotifiedTier: detector.KindFast.Rank(), lastNotifyTime: time.Now()}
	assert.False(t, e.shouldNotify(st, fast), "same peak, same tier")
	assert.False(t, e.shouldNotify(st, elite), "tier dropped")

	// peak up 10% re-notifies
	bigger := &detector.PumpEvent{Symbol: "X_USDT", Kind: detector.KindFast, PricePeak: 112 * 1.10}
	assert.True(t, e.shouldNotify(st, bigger))

	// tier rose from ELITE to FAST
	st = &symbolState{lastNotifiedPeak: 112, lastNotifiedTier: detector.KindElite.Rank(), lastNotifyTime: time.Now()}
	assert.True(t, e.shouldNotify(st, fast))

	// time cooldown blocks everything
	e.cfg.Cooldown = time.Hour
	assert.False(t, e.shouldNotify(st, bigger))
}

func TestNoSignalThrottled(t *testing.T) {
	e, _ := testEngine(t)

	var notices int
	e.OnNoSignal(func(symbol, reason string) { notices++ })
	e.mu.Lock()
	e.states["Y_USDT"] = &symbolState{}
	e.mu.Unlock()

	e.noSignal("Y_USDT", "unwound")
	e.noSignal("Y_USDT", "unwound")
	assert.Equal(t, 1, notices)
}

func TestAbandonedPumpEmitsNoSignal(t *testing.T) {
	e, _ := testEngine(t)
	now := time.Now()
	seedPump(e, now.UnixMilli())

	// cold history rejects the instant entry, and by then the price has
	// collapsed back to the start: the pump unwound without an entry
	coldHistory(t, e, "TEST_USDT", now)
	e.SetStreamPrice(func(string) (float64, bool) { return 100.5, true })

	done := make(chan string, 1)
	e.OnNoSignal(func(symbol, reason string) { done <- reason })

	series := e.store.Recent("TEST_USDT", e.cfg.Detector.EliteWindow, now.UnixMilli())
	ev := e.det.Detect("TEST_USDT", series, now)
	require.NotNil(t, ev)

	e.handlePump(ev)

	select {
	case reason := <-done:
		assert.Contains(t, reason, "unwound")
	case <-time.After(5 * time.Second):
		t.Fatal("no abandonment notice")
	}
	assert.Eventually(t, func() bool { return e.ActiveAnalyses() == 0 }, time.Second, 10*time.Millisecond)
}

// coldHistory seeds six straight stop-outs so the memory adjustment and
// the overlay push any new score under the emission bar
func coldHistory(t *testing.T, e *Engine, symbol string, now time.Time) {
	t.Helper()
	for i := 0; i < 6; i++ {
		rec := &brain.SignalRecord{
			ID: "hist-" + string(rune('a'+i)), Symbol: symbol,
			PumpPct: 12, CombinedScore: 7, CreatedAt: now.Add(-time.Duration(i+1) * time.Hour),
		}
		require.NoError(t, e.memory.RecordSignal(rec))
		require.NoError(t, e.memory.UpdateOutcome(rec.ID, brain.Outcome{FinalResult: brain.ResultLossSL, HitSL: true}))
	}
}

func TestRejectedScoreFallsToAnalyzing(t *testing.T) {
	e, _ := testEngine(t)
	now := time.Now()
	seedPump(e, now.UnixMilli())

	// cold history drags the score under the emission bar
	coldHistory(t, e, "TEST_USDT", now)
	require.InDelta(t, -2.0, e.memory.ConfidenceAdjustment("TEST_USDT"), 1e-6)

	e.SetStreamPrice(func(string) (float64, bool) { return 111, true })

	signals := make(chan *Signal, 1)
	e.OnSignal(func(s *Signal) { signals <- s })
	noSig := make(chan string, 1)
	e.OnNoSignal(func(symbol, reason string) { noSig <- reason })

	series := e.store.Recent("TEST_USDT", e.cfg.Detector.EliteWindow, now.UnixMilli())
	ev := e.det.Detect("TEST_USDT", series, now)
	require.NotNil(t, ev)

	e.handlePump(ev)

	// -2 memory adjustment plus the cold-streak smart overlay keeps the
	// score below tier B until the analyzing window times out
	select {
	case sig := <-signals:
		t.Fatalf("unexpected signal with score %.2f", sig.Combination.Final)
	case reason := <-noSig:
		assert.NotEmpty(t, reason)
	case <-time.After(5 * time.Second):
		t.Fatal("no resolution")
	}
}

func TestReplacedActorKeepsSlot(t *testing.T) {
	e, _ := testEngine(t)
	now := time.Now()

	// reject every evaluation so the replacement actor stays busy for the
	// whole confirm + analyzing window
	coldHistory(t, e, "Z_USDT", now)
	e.SetStreamPrice(func(string) (float64, bool) { return 118.5, true })

	var pumps int
	e.OnPump(func(ev *detector.PumpEvent, notify bool) { pumps++ })

	ev1 := &detector.PumpEvent{
		Symbol: "Z_USDT", Kind: detector.KindFast,
		PumpPct: 12, ElapsedMinutes: 1.5, PriceStart: 100, PricePeak: 112, CurrentPrice: 111,
	}
	e.handlePump(ev1)
	assert.Equal(t, 1, e.ActiveAnalyses())

	// a 12% higher peak replaces the actor (and re-notifies, advancing the
	// recorded peak); the slot must stay held even after the cancelled
	// actor's deferred release runs
	ev2 := *ev1
	ev2.PricePeak = 112 * 1.12
	e.handlePump(&ev2)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, e.ActiveAnalyses(), "replacement actor lost its slot")

	// a non-qualifying re-detection must not spawn a second actor
	ev3 := ev2
	e.handlePump(&ev3)
	assert.Equal(t, 1, e.ActiveAnalyses())
	assert.Equal(t, 2, pumps, "third pump should have been absorbed by the running actor")

	assert.Eventually(t, func() bool { return e.ActiveAnalyses() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestTierMapping(t *testing.T) {
	// sanity on the tier the reference scenario should produce
	assert.True(t, scoring.TierB.Emit())
}
