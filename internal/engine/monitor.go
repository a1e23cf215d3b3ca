package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/pumpwatch/internal/analyzers"
	"github.com/web3guy0/pumpwatch/internal/brain"
	"github.com/web3guy0/pumpwatch/internal/detector"
	"github.com/web3guy0/pumpwatch/internal/levels"
	"github.com/web3guy0/pumpwatch/internal/market"
	"github.com/web3guy0/pumpwatch/internal/scoring"
	"github.com/web3guy0/pumpwatch/internal/tracker"
)

// monitor is one symbol's actor: confirm the reversal, or watch the pump
// until a signal emerges or it unwinds.
func (e *Engine) monitor(ev *detector.PumpEvent, cancel <-chan struct{}) {
	var oiHistory []analyzers.OIPoint
	lastOISample := time.Time{}
	sampleOI := func() {
		if len(oiHistory) > 0 && time.Since(lastOISample) < e.cfg.OISampleInterval {
			return
		}
		ctx, cancelOI := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelOI()
		if oi, err := e.exchange.OpenInterest(ctx, ev.Symbol); err == nil {
			oiHistory = append(oiHistory, analyzers.OIPoint{
				Timestamp: time.Now().UnixMilli(),
				Contracts: oi.Contracts,
			})
			lastOISample = time.Now()
		}
	}
	sampleOI()

	// reversal confirmation with kind-adaptive parameters
	params := e.cfg.EliteConfirm
	if ev.Kind == detector.KindFast {
		params = e.cfg.FastConfirm
	}

	peak := ev.PricePeak
	confirmDeadline := time.Now().Add(params.Timeout)
	poll := time.NewTicker(params.Poll)
	defer poll.Stop()

	confirmed := false
	entry := 0.0
	for time.Now().Before(confirmDeadline) {
		select {
		case <-cancel:
			return
		case <-e.stopCh:
			return
		case <-poll.C:
		}

		price, ok := e.PriceNow(ev.Symbol)
		if !ok {
			continue
		}
		if price > peak {
			peak = price // still pumping
			continue
		}
		if (peak-price)/peak*100 >= params.ReversalPct {
			confirmed = true
			entry = price
			break
		}
	}
	ev.PricePeak = peak

	if confirmed {
		log.Info().Str("symbol", ev.Symbol).Float64("entry", entry).
			Msg("✅ Reversal confirmed, instant short")
		sampleOI()
		if sig := e.evaluate(ev, entry, oiHistory); sig != nil {
			e.emit(sig)
			return
		}
		// rejected by scoring, keep watching
	}

	e.analyzing(ev, cancel, &oiHistory, sampleOI)
}

// analyzing is the slow path: bounded monitoring until a tier-A/B score
// appears or the pump unwinds.
func (e *Engine) analyzing(ev *detector.PumpEvent, cancel <-chan struct{}, oiHistory *[]analyzers.OIPoint, sampleOI func()) {
	started := time.Now()
	deadline := started.Add(e.cfg.AnalyzingTimeout)

	for time.Now().Before(deadline) {
		interval := e.cfg.AnalyzingPollSlow
		if time.Since(started) < 2*time.Minute {
			interval = e.cfg.AnalyzingPollFast
		}
		select {
		case <-cancel:
			return
		case <-e.stopCh:
			return
		case <-time.After(interval):
		}

		price, ok := e.PriceNow(ev.Symbol)
		if !ok {
			continue
		}
		if price > ev.PricePeak {
			ev.PricePeak = price
		}

		// the pump unwound without an entry
		retraced := ev.PricePeak - 0.7*(ev.PricePeak-ev.PriceStart)
		if price < retraced || price <= ev.PriceStart*1.01 {
			e.noSignal(ev.Symbol, "pump unwound before entry")
			return
		}

		sampleOI()
		if sig := e.evaluate(ev, price, *oiHistory); sig != nil {
			e.emit(sig)
			return
		}
	}

	e.noSignal(ev.Symbol, "no qualifying score before timeout")
}

// evaluate runs the full pipeline at a fixed entry price. Returns nil
// when the tier rejects.
func (e *Engine) evaluate(ev *detector.PumpEvent, entry float64, oiHistory []analyzers.OIPoint) *Signal {
	in := e.gatherInputs(ev, entry, oiHistory)
	ctx, cancelRun := context.WithTimeout(context.Background(), e.cfg.AnalyzerTimeout+time.Second)
	defer cancelRun()
	results := e.suite.Run(ctx, in)

	adjustment := e.memory.ConfidenceAdjustment(ev.Symbol)
	trained := e.predictor.Trained()

	rec := e.buildRecord(ev, entry, results)
	var prob float64
	if trained {
		prob = e.predictor.PredictRecord(rec).Probability
	}

	// first pass without the overlay gives the smart layer its input score
	prelim := scoring.Combine(results, adjustment, prob, trained, 0, false)
	rec.CombinedScore = prelim.Blended

	smart, err := e.memory.Predict(ev.Symbol, ev.PumpPct, prelim.Blended, time.Now().UTC().Hour())
	if err != nil {
		log.Debug().Err(err).Str("symbol", ev.Symbol).Msg("Smart prediction unavailable")
		smart = brain.Prediction{Score: 5.0, Confidence: 30}
	}

	comb := scoring.Combine(results, adjustment, prob, trained, smart.Score, true)
	if !comb.Tier.Emit() {
		log.Info().Str("symbol", ev.Symbol).Float64("score", comb.Final).
			Msg("⛔ Signal rejected by score")
		return nil
	}

	intel := e.memory.Intelligence(ev.Symbol)
	lv := e.calcLevels(ev, entry, in, results, intel)

	return &Signal{
		ID:             uuid.New().String(),
		Symbol:         ev.Symbol,
		Kind:           ev.Kind,
		Tier:           comb.Tier,
		ClassifierProb: prob,
		PumpPct:        ev.PumpPct,
		ElapsedMinutes: ev.ElapsedMinutes,
		Entry:          entry,
		Start:          ev.PriceStart,
		Peak:           ev.PricePeak,
		Levels:         lv,
		Combination:    comb,
		Results:        results,
		Smart:          smart,
		Intelligence:   intel,
		CreatedAt:      time.Now().UTC(),
	}
}

func (e *Engine) calcLevels(ev *detector.PumpEvent, entry float64, in analyzers.Inputs, results map[string]analyzers.Result, intel *brain.Intelligence) levels.Levels {
	lvIn := levels.Inputs{
		Entry:          entry,
		Peak:           ev.PricePeak,
		Start:          ev.PriceStart,
		ElapsedMinutes: ev.ElapsedMinutes,
		Klines:         in.Klines,
		Orderbook:      in.Orderbook,
		TPMultiplier:   1.0,
	}
	if intel != nil {
		lvIn.TPMultiplier = intel.TPMultiplier
	}
	if detail, ok := results[analyzers.NameCandle].Detail.(analyzers.CandleDetail); ok {
		lvIn.Candle = &detail
	}
	if detail, ok := results[analyzers.NameLiquidation].Detail.(analyzers.LiquidationDetail); ok {
		lvIn.LiqZones = detail.LongZones
	}
	return levels.Calculate(lvIn)
}

// gatherInputs pulls every data source the analyzers read. Failures leave
// fields nil; the analyzers degrade to neutral.
func (e *Engine) gatherInputs(ev *detector.PumpEvent, entry float64, oiHistory []analyzers.OIPoint) analyzers.Inputs {
	ctx, cancelIn := context.WithTimeout(context.Background(), e.cfg.AnalyzerTimeout)
	defer cancelIn()

	in := analyzers.Inputs{
		Symbol:     ev.Symbol,
		Pump:       ev,
		EntryPrice: entry,
		OIHistory:  oiHistory,
		Now:        time.Now(),
	}

	if klines, err := e.exchange.Klines(ctx, ev.Symbol, "1m", 60); err == nil && len(klines) > 0 {
		in.Klines = klines
	} else {
		in.Klines = e.store.SyntheticKlines(ev.Symbol, time.Minute, time.Now().UnixMilli())
	}

	in.KlinesByInterval = make(map[string][]market.Kline, 4)
	for _, interval := range []string{"5m", "15m", "1h", "4h"} {
		if klines, err := e.exchange.Klines(ctx, ev.Symbol, interval, 50); err == nil {
			in.KlinesByInterval[interval] = klines
		}
	}
	if hourly := in.KlinesByInterval["1h"]; len(hourly) > 24 {
		in.HourlyKlines = hourly[len(hourly)-24:]
	} else {
		in.HourlyKlines = hourly
	}

	if book, err := e.exchange.OrderbookDepth(ctx, ev.Symbol, 20); err == nil {
		in.Orderbook = book
	}
	if funding, err := e.exchange.FundingRate(ctx, ev.Symbol); err == nil {
		in.Funding = funding
	}

	e.tickerMu.RLock()
	if btc, ok := e.tickers["BTC_USDT"]; ok {
		in.BTCChange24h = btc.Change24h
	}
	in.PeerChanges = make(map[string]float64, len(e.tickers))
	for sym, t := range e.tickers {
		in.PeerChanges[sym] = t.Change24h
	}
	e.tickerMu.RUnlock()

	return in
}

func (e *Engine) buildRecord(ev *detector.PumpEvent, entry float64, results map[string]analyzers.Result) *brain.SignalRecord {
	score := func(name string) float64 {
		if r, ok := results[name]; ok {
			return r.Score
		}
		return analyzers.NeutralScore
	}
	return &brain.SignalRecord{
		Symbol:             ev.Symbol,
		PumpPct:            ev.PumpPct,
		PumpSpeedMin:       ev.ElapsedMinutes,
		PriceStart:         ev.PriceStart,
		PricePeak:          ev.PricePeak,
		EntryPrice:         entry,
		OrderbookScore:     score(analyzers.NameOrderbook),
		OpenInterestScore:  score(analyzers.NameOpenInterest),
		FundingScore:       score(analyzers.NameFunding),
		LiquidationScore:   score(analyzers.NameLiquidation),
		BTCScore:           score(analyzers.NameBTC),
		MTFScore:           score(analyzers.NameMTF),
		VolumeProfileScore: score(analyzers.NameVolumeProfile),
		CrossPairScore:     score(analyzers.NameCrossPair),
		GodEyeScore:        score(analyzers.NameGodEye),
		CandleScore:        score(analyzers.NameCandle),
		CreatedAt:          time.Now().UTC(),
	}
}

// emit persists the signal, hands it to the tracker and broadcasts it
func (e *Engine) emit(sig *Signal) {
	rec := e.buildRecord(&detector.PumpEvent{
		Symbol:         sig.Symbol,
		Kind:           sig.Kind,
		PumpPct:        sig.PumpPct,
		ElapsedMinutes: sig.ElapsedMinutes,
		PriceStart:     sig.Start,
		PricePeak:      sig.Peak,
	}, sig.Entry, sig.Results)
	rec.ID = sig.ID
	rec.Tier = string(sig.Tier)
	rec.CombinedScore = sig.Combination.Final
	rec.BaseScore = sig.Combination.Base
	rec.SmartScore = sig.Smart.Score
	rec.ClassifierProb = sig.ClassifierProb
	rec.TP1 = sig.Levels.TP1()
	rec.TP2 = sig.Levels.TPs[1]
	rec.TP3 = sig.Levels.TP3()
	rec.SL = sig.Levels.SL
	rec.CreatedAt = sig.CreatedAt

	if err := e.memory.RecordSignal(rec); err != nil {
		log.Error().Err(err).Str("symbol", sig.Symbol).Msg("Could not persist signal")
	}

	if e.trk != nil {
		e.trk.Track(tracker.Signal{
			ID:        sig.ID,
			Symbol:    sig.Symbol,
			Entry:     sig.Entry,
			TP1:       sig.Levels.TP1(),
			TP2:       sig.Levels.TPs[1],
			TP3:       sig.Levels.TP3(),
			SL:        sig.Levels.SL,
			EmittedAt: sig.CreatedAt,
		})
	}

	log.Info().Str("symbol", sig.Symbol).Str("tier", string(sig.Tier)).
		Float64("entry", sig.Entry).Float64("score", sig.Combination.Final).
		Msg("🎯 SHORT signal emitted")

	if e.onSignal != nil {
		e.onSignal(sig)
	}
}
