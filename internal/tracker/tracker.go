package tracker

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/pumpwatch/internal/brain"
)

// EventType labels tracker notifications
type EventType string

const (
	EventFinalized         EventType = "FINALIZED"
	EventTrailingActivated EventType = "TRAILING_ACTIVATED"
	EventTrailingTPHit     EventType = "TP_HIT"
	EventTrailingSLHit     EventType = "SL_HIT"
	EventTrailingExpired   EventType = "EXPIRED"
)

// Event is pushed on the outbound channel as signals resolve
type Event struct {
	Type     EventType
	SignalID string
	Symbol   string
	Price    float64
	Result   string // final result label on FINALIZED
	Outcome  *brain.Outcome
}

// Signal is one emitted short the tracker follows
type Signal struct {
	ID        string
	Symbol    string
	Entry     float64
	TP1       float64
	TP2       float64
	TP3       float64
	SL        float64
	EmittedAt time.Time
}

// Sample is one scheduled price read
type Sample struct {
	Offset time.Duration
	Price  float64
	OK     bool
}

// PriceFunc reads the current price for a symbol
type PriceFunc func(symbol string) (float64, bool)

// OutcomeSink receives the final verdict for a signal
type OutcomeSink interface {
	UpdateOutcome(id string, out brain.Outcome) error
}

// Config tunes the tracker. Zero values fall back to production defaults.
type Config struct {
	Horizons []time.Duration // scheduled sampling offsets

	Trailing         bool // trailing follower as the source of truth
	ActivationPct    float64
	TrailDistancePct float64
	MaxTracking      time.Duration
	CheckInterval    time.Duration
}

// DefaultConfig returns the production sampling schedule
func DefaultConfig() Config {
	return Config{
		Horizons: []time.Duration{
			5 * time.Minute, 15 * time.Minute, 30 * time.Minute,
			60 * time.Minute, 240 * time.Minute,
		},
		ActivationPct:    2.0,
		TrailDistancePct: 1.0,
		MaxTracking:      240 * time.Minute,
		CheckInterval:    5 * time.Second,
	}
}

// breakeven band around entry for the TIMEOUT / BREAKEVEN split
const breakevenPct = 0.5

// Tracker follows emitted signals until their outcome is known. It is
// constructed before the detection pipeline and communicates only through
// the outbound event channel and the outcome sink.
type Tracker struct {
	cfg   Config
	price PriceFunc
	sink  OutcomeSink

	events chan Event
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu     sync.Mutex
	active map[string]bool // signal ids in flight
}

// New builds a tracker. Track starts a goroutine per signal.
func New(cfg Config, price PriceFunc, sink OutcomeSink) *Tracker {
	def := DefaultConfig()
	if len(cfg.Horizons) == 0 {
		cfg.Horizons = def.Horizons
	}
	if cfg.ActivationPct == 0 {
		cfg.ActivationPct = def.ActivationPct
	}
	if cfg.TrailDistancePct == 0 {
		cfg.TrailDistancePct = def.TrailDistancePct
	}
	if cfg.MaxTracking == 0 {
		cfg.MaxTracking = def.MaxTracking
	}
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = def.CheckInterval
	}
	return &Tracker{
		cfg:    cfg,
		price:  price,
		sink:   sink,
		events: make(chan Event, 32),
		stopCh: make(chan struct{}),
		active: make(map[string]bool),
	}
}

// Events is the outbound notification stream
func (t *Tracker) Events() <-chan Event { return t.events }

// ActiveCount reports how many signals are still being followed
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// Track begins following a signal. Duplicate ids are ignored.
func (t *Tracker) Track(sig Signal) {
	t.mu.Lock()
	if t.active[sig.ID] {
		t.mu.Unlock()
		return
	}
	t.active[sig.ID] = true
	t.mu.Unlock()

	if sig.EmittedAt.IsZero() {
		sig.EmittedAt = time.Now()
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			t.mu.Lock()
			delete(t.active, sig.ID)
			t.mu.Unlock()
		}()
		if t.cfg.Trailing {
			t.followTrailing(sig)
		} else {
			t.followScheduled(sig)
		}
	}()

	log.Info().Str("signal", sig.ID).Str("symbol", sig.Symbol).
		Float64("entry", sig.Entry).Msg("🔭 Tracking signal")
}

// Stop cancels all followers and waits for them
func (t *Tracker) Stop() {
	close(t.stopCh)
	t.wg.Wait()
}

func (t *Tracker) followScheduled(sig Signal) {
	samples := make([]Sample, 0, len(t.cfg.Horizons))
	for _, h := range t.cfg.Horizons {
		wait := time.Until(sig.EmittedAt.Add(h))
		if wait > 0 {
			select {
			case <-time.After(wait):
			case <-t.stopCh:
				return
			}
		}
		price, ok := t.price(sig.Symbol)
		samples = append(samples, Sample{Offset: h, Price: price, OK: ok})
	}

	out := Classify(sig, samples)
	t.finalize(sig, out)
}

func (t *Tracker) finalize(sig Signal, out brain.Outcome) {
	if err := t.sink.UpdateOutcome(sig.ID, out); err != nil {
		log.Error().Err(err).Str("signal", sig.ID).Msg("Could not record outcome")
	}
	log.Info().Str("signal", sig.ID).Str("symbol", sig.Symbol).
		Str("result", out.FinalResult).Msg("🏁 Signal finalized")

	t.emit(Event{
		Type:     EventFinalized,
		SignalID: sig.ID,
		Symbol:   sig.Symbol,
		Result:   out.FinalResult,
		Outcome:  &out,
	})
}

func (t *Tracker) emit(ev Event) {
	select {
	case t.events <- ev:
	default:
		log.Warn().Str("signal", ev.SignalID).Str("type", string(ev.Type)).
			Msg("Event channel full, dropping")
	}
}

// Classify derives the final outcome from the scheduled samples. Short
// semantics: a target is hit when the sample trades at or below it, the
// stop when at or above. The first level reached in sample order decides.
func Classify(sig Signal, samples []Sample) brain.Outcome {
	out := brain.Outcome{FinalizedAt: time.Now().UTC()}

	var lastPrice float64
	decided := false
	for i, s := range samples {
		if !s.OK {
			continue
		}
		lastPrice = s.Price
		storeSample(&out, i, s.Price)

		if sig.Entry > 0 {
			excursion := (sig.Entry - s.Price) / sig.Entry * 100
			if excursion > out.MaxProfitPct {
				out.MaxProfitPct = excursion
			}
			if -excursion > out.MaxDrawdownPct {
				out.MaxDrawdownPct = -excursion
			}
		}

		if s.Price <= sig.TP1 {
			out.HitTP1 = true
		}
		if s.Price <= sig.TP2 {
			out.HitTP2 = true
		}
		if s.Price <= sig.TP3 {
			out.HitTP3 = true
		}
		if s.Price >= sig.SL {
			out.HitSL = true
		}

		if decided {
			continue
		}
		switch {
		case s.Price <= sig.TP3:
			out.FinalResult = brain.ResultWinTP3
			decided = true
		case s.Price <= sig.TP2:
			out.FinalResult = brain.ResultWinTP2
			decided = true
		case s.Price <= sig.TP1:
			out.FinalResult = brain.ResultWinTP1
			decided = true
		case s.Price >= sig.SL:
			out.FinalResult = brain.ResultLossSL
			decided = true
		}
	}

	if !decided {
		if lastPrice > 0 && sig.Entry > 0 &&
			math.Abs(lastPrice-sig.Entry)/sig.Entry*100 <= breakevenPct {
			out.FinalResult = brain.ResultBreakeven
		} else {
			out.FinalResult = brain.ResultTimeout
		}
	}
	return out
}

func storeSample(out *brain.Outcome, idx int, price float64) {
	switch idx {
	case 0:
		out.PriceAt5m = price
	case 1:
		out.PriceAt15m = price
	case 2:
		out.PriceAt30m = price
	case 3:
		out.PriceAt1h = price
	case 4:
		out.PriceAt4h = price
	}
}
