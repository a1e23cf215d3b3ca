package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/pumpwatch/internal/analyzers"
	"github.com/web3guy0/pumpwatch/internal/brain"
	"github.com/web3guy0/pumpwatch/internal/config"
	"github.com/web3guy0/pumpwatch/internal/detector"
	"github.com/web3guy0/pumpwatch/internal/levels"
	"github.com/web3guy0/pumpwatch/internal/market"
	"github.com/web3guy0/pumpwatch/internal/ml"
	"github.com/web3guy0/pumpwatch/internal/scoring"
	"github.com/web3guy0/pumpwatch/internal/tracker"
)

// ConfirmParams tune the reversal-confirmation loop for one pump kind
type ConfirmParams struct {
	Timeout     time.Duration
	ReversalPct float64
	Poll        time.Duration
}

// Config tunes the orchestrator. FromConfig maps the app configuration.
type Config struct {
	ScanInterval time.Duration
	Detector     detector.Config

	RepeatThresholdPct float64 // peak growth that re-notifies a known pump
	Cooldown           time.Duration
	NoSignalCooldown   time.Duration
	ReplaceRisePct     float64 // peak growth that replaces a running actor

	FastConfirm  ConfirmParams
	EliteConfirm ConfirmParams

	AnalyzingTimeout  time.Duration
	AnalyzingPollFast time.Duration // first two minutes
	AnalyzingPollSlow time.Duration
	AnalyzerTimeout   time.Duration

	OISampleInterval time.Duration
}

// DefaultConfig returns the production parameters
func DefaultConfig() Config {
	return Config{
		ScanInterval:       50 * time.Millisecond,
		Detector:           detector.DefaultConfig(),
		RepeatThresholdPct: 10.0,
		Cooldown:           0,
		NoSignalCooldown:   30 * time.Minute,
		ReplaceRisePct:     5.0,
		FastConfirm:        ConfirmParams{Timeout: 60 * time.Second, ReversalPct: 0.5, Poll: 500 * time.Millisecond},
		EliteConfirm:       ConfirmParams{Timeout: 120 * time.Second, ReversalPct: 1.0, Poll: time.Second},
		AnalyzingTimeout:   15 * time.Minute,
		AnalyzingPollFast:  2 * time.Second,
		AnalyzingPollSlow:  5 * time.Second,
		AnalyzerTimeout:    3 * time.Second,
		OISampleInterval:   30 * time.Second,
	}
}

// FromConfig maps the app configuration onto the engine parameters
func FromConfig(c *config.Config) Config {
	e := DefaultConfig()
	e.ScanInterval = c.ScanInterval
	e.Detector = detector.Config{
		FastWindow:     c.FastWindow,
		FastThreshold:  c.FastThreshold,
		EliteWindow:    c.EliteWindow,
		EliteThreshold: c.EliteThreshold,
	}
	e.RepeatThresholdPct = c.RepeatThreshold
	e.Cooldown = time.Duration(c.CooldownMinutes) * time.Minute
	e.NoSignalCooldown = c.NoSignalCooldown
	e.AnalyzingTimeout = c.AnalyzingTimeout
	e.AnalyzerTimeout = c.AnalyzerTimeout
	return e
}

// Signal is one emitted short entry with its full attribution
type Signal struct {
	ID             string
	Symbol         string
	Kind           detector.Kind
	Tier           scoring.Tier
	ClassifierProb float64
	PumpPct        float64
	ElapsedMinutes float64
	Entry          float64
	Start          float64
	Peak           float64
	Levels         levels.Levels
	Combination    scoring.Combination
	Results        map[string]analyzers.Result
	Smart          brain.Prediction
	Intelligence   *brain.Intelligence
	CreatedAt      time.Time
}

// symbolState is the per-symbol debounce and actor bookkeeping
type symbolState struct {
	lastNotifiedPeak float64
	lastNotifiedTier int
	lastNotifyTime   time.Time
	lastNoSignal     time.Time
	active           bool
	cancel           chan struct{}
}

// Engine runs the poll loop and one monitoring actor per pumping symbol
type Engine struct {
	cfg       Config
	exchange  market.Exchange
	store     *market.Store
	det       *detector.Detector
	suite     *analyzers.Suite
	memory    *brain.Brain
	predictor *ml.Predictor
	trk       *tracker.Tracker

	// optional push stream; when set its prices beat the poll loop
	streamPrice PriceFunc

	mu     sync.Mutex
	states map[string]*symbolState

	tickerMu sync.RWMutex
	tickers  map[string]market.Ticker

	onPump     func(*detector.PumpEvent, bool)
	onSignal   func(*Signal)
	onNoSignal func(symbol, reason string)
	onOutcome  func(tracker.Event)

	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// PriceFunc resolves the freshest known price for a symbol
type PriceFunc func(symbol string) (float64, bool)

// New wires the engine. The tracker is constructed by the caller first so
// its event stream exists before any signal can be emitted.
func New(cfg Config, exchange market.Exchange, store *market.Store, memory *brain.Brain, predictor *ml.Predictor, trk *tracker.Tracker) *Engine {
	return &Engine{
		cfg:       cfg,
		exchange:  exchange,
		store:     store,
		det:       detector.New(cfg.Detector),
		suite:     analyzers.NewSuite(cfg.AnalyzerTimeout),
		memory:    memory,
		predictor: predictor,
		trk:       trk,
		states:    make(map[string]*symbolState),
		tickers:   make(map[string]market.Ticker),
		stopCh:    make(chan struct{}),
	}
}

// SetStreamPrice installs a push-stream price source
func (e *Engine) SetStreamPrice(fn PriceFunc) { e.streamPrice = fn }

// OnPump registers the pump-notification callback; notify reports whether
// the debounce rules allowed a broadcast.
func (e *Engine) OnPump(fn func(ev *detector.PumpEvent, notify bool)) { e.onPump = fn }

// OnSignal registers the signal-emission callback
func (e *Engine) OnSignal(fn func(*Signal)) { e.onSignal = fn }

// OnNoSignal registers the abandoned-pump callback
func (e *Engine) OnNoSignal(fn func(symbol, reason string)) { e.onNoSignal = fn }

// OnOutcome registers the tracker-event callback
func (e *Engine) OnOutcome(fn func(tracker.Event)) { e.onOutcome = fn }

// Start launches the poll loop and the outcome consumer
func (e *Engine) Start() {
	e.wg.Add(2)
	go e.pollLoop()
	go e.outcomeLoop()
	log.Info().Dur("interval", e.cfg.ScanInterval).Msg("🚀 Engine started")
}

// Stop shuts the loops down and waits for in-flight actors
func (e *Engine) Stop() {
	e.stopped.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}

// PriceNow resolves the freshest price: stream first, then the store
func (e *Engine) PriceNow(symbol string) (float64, bool) {
	if e.streamPrice != nil {
		if p, ok := e.streamPrice(symbol); ok {
			return p, true
		}
	}
	if snap, ok := e.store.Latest(symbol); ok {
		return snap.Price, true
	}
	return 0, false
}

// Tickers returns a copy of the last ticker batch
func (e *Engine) Tickers() map[string]market.Ticker {
	e.tickerMu.RLock()
	defer e.tickerMu.RUnlock()
	out := make(map[string]market.Ticker, len(e.tickers))
	for k, v := range e.tickers {
		out[k] = v
	}
	return out
}

// ActiveAnalyses counts symbols with a running actor
func (e *Engine) ActiveAnalyses() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, st := range e.states {
		if st.active {
			n++
		}
	}
	return n
}

func (e *Engine) pollLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

func (e *Engine) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tickers, err := e.exchange.BatchTicker(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Ticker batch failed")
		return
	}

	e.tickerMu.Lock()
	for sym, t := range tickers {
		e.tickers[sym] = t
	}
	e.tickerMu.Unlock()

	now := time.Now().UnixMilli()
	for sym, t := range tickers {
		ts := t.Timestamp
		if ts == 0 {
			ts = now
		}
		e.store.Insert(sym, market.Snapshot{Timestamp: ts, Price: t.LastPrice, Volume: t.Volume24})
	}

	nowT := time.Now()
	for sym := range tickers {
		series := e.store.Recent(sym, e.cfg.Detector.EliteWindow, now)
		if ev := e.det.Detect(sym, series, nowT); ev != nil {
			e.handlePump(ev)
		}
	}
}

// handlePump applies the debounce rules and spawns or replaces the
// symbol's actor.
func (e *Engine) handlePump(ev *detector.PumpEvent) {
	e.mu.Lock()
	st, known := e.states[ev.Symbol]
	if !known {
		st = &symbolState{}
		e.states[ev.Symbol] = st
	}

	if st.active {
		// replacement: a substantially higher peak restarts the pipeline
		if st.lastNotifiedPeak > 0 && ev.PricePeak >= st.lastNotifiedPeak*(1+e.cfg.ReplaceRisePct/100) {
			log.Info().Str("symbol", ev.Symbol).Float64("peak", ev.PricePeak).
				Msg("♻️ Higher peak, replacing actor")
			close(st.cancel)
		} else {
			e.mu.Unlock()
			return
		}
	}

	notify := e.shouldNotify(st, ev)
	if notify {
		st.lastNotifiedPeak = ev.PricePeak
		st.lastNotifiedTier = ev.Kind.Rank()
		st.lastNotifyTime = time.Now()
	}

	st.active = true
	st.cancel = make(chan struct{})
	cancel := st.cancel
	e.mu.Unlock()

	log.Info().Str("symbol", ev.Symbol).Str("kind", string(ev.Kind)).
		Float64("pump_pct", ev.PumpPct).Float64("peak", ev.PricePeak).
		Bool("notify", notify).Msg("📈 Pump detected")

	if e.onPump != nil {
		e.onPump(ev, notify)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.release(ev.Symbol, cancel)
		e.monitor(ev, cancel)
	}()
}

func (e *Engine) shouldNotify(st *symbolState, ev *detector.PumpEvent) bool {
	if !st.lastNotifyTime.IsZero() && time.Since(st.lastNotifyTime) < e.cfg.Cooldown {
		return false
	}
	if st.lastNotifiedPeak == 0 {
		return true // new symbol
	}
	if ev.Kind.Rank() > st.lastNotifiedTier {
		return true
	}
	return ev.PricePeak >= st.lastNotifiedPeak*(1+e.cfg.RepeatThresholdPct/100)
}

// release clears the active flag, but only for the actor generation that
// owns it. A replaced actor's deferred release must not free the slot the
// replacement is still holding.
func (e *Engine) release(symbol string, cancel chan struct{}) {
	e.mu.Lock()
	if st, ok := e.states[symbol]; ok && st.cancel == cancel {
		st.active = false
	}
	e.mu.Unlock()
}

// noSignal emits the abandoned-pump notice, rate limited per symbol
func (e *Engine) noSignal(symbol, reason string) {
	e.mu.Lock()
	st := e.states[symbol]
	throttled := st != nil && !st.lastNoSignal.IsZero() && time.Since(st.lastNoSignal) < e.cfg.NoSignalCooldown
	if st != nil && !throttled {
		st.lastNoSignal = time.Now()
	}
	e.mu.Unlock()

	log.Info().Str("symbol", symbol).Str("reason", reason).Msg("🚫 Pump abandoned")
	if throttled || e.onNoSignal == nil {
		return
	}
	e.onNoSignal(symbol, reason)
}

// outcomeLoop forwards tracker events and retrains the classifier as
// outcomes accumulate.
func (e *Engine) outcomeLoop() {
	defer e.wg.Done()
	if e.trk == nil {
		return
	}
	for {
		select {
		case <-e.stopCh:
			return
		case ev := <-e.trk.Events():
			if e.onOutcome != nil {
				e.onOutcome(ev)
			}
			if ev.Type != tracker.EventFinalized {
				continue
			}
			count, err := e.memory.FinalizedCount()
			if err != nil || count < ml.MinTrainingSamples {
				continue
			}
			rows, err := e.memory.TrainingRows()
			if err != nil {
				log.Error().Err(err).Msg("Could not load training rows")
				continue
			}
			if err := e.predictor.Train(rows); err != nil {
				log.Warn().Err(err).Msg("Classifier training skipped")
			}
		}
	}
}
