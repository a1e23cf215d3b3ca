package tracker

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/pumpwatch/internal/brain"
)

// Trailing follower statuses
const (
	StatusTracking = "TRACKING"
	StatusTPHit    = "TP_HIT"
	StatusSLHit    = "SL_HIT"
	StatusExpired  = "EXPIRED"
)

// followTrailing rides the short down with a trailing take-profit. The
// follower arms once profit reaches the activation threshold, then exits
// when price bounces the trail distance off the lowest print.
func (t *Tracker) followTrailing(sig Signal) {
	deadline := sig.EmittedAt.Add(t.cfg.MaxTracking)
	ticker := time.NewTicker(t.cfg.CheckInterval)
	defer ticker.Stop()

	status := StatusTracking
	activated := false
	lowest := sig.Entry
	highest := sig.Entry
	trailingTP := 0.0
	var exitPrice, lastPrice float64

	for status == StatusTracking {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
		}

		// deadline first, so a silent feed cannot pin the follower
		if time.Now().After(deadline) {
			status = StatusExpired
			exitPrice = lastPrice
			break
		}

		price, ok := t.price(sig.Symbol)
		if !ok {
			continue
		}
		lastPrice = price
		if price > highest {
			highest = price
		}

		// stop check runs every tick regardless of activation
		if price >= sig.SL {
			status = StatusSLHit
			exitPrice = price
			break
		}

		if price < lowest {
			lowest = price
			if activated {
				trailingTP = lowest * (1 + t.cfg.TrailDistancePct/100)
			}
		}

		if !activated {
			profit := (sig.Entry - price) / sig.Entry * 100
			if profit >= t.cfg.ActivationPct {
				activated = true
				trailingTP = lowest * (1 + t.cfg.TrailDistancePct/100)
				log.Info().Str("symbol", sig.Symbol).Float64("price", price).
					Float64("trailing_tp", trailingTP).Msg("🎯 Trailing TP armed")
				t.emit(Event{Type: EventTrailingActivated, SignalID: sig.ID, Symbol: sig.Symbol, Price: price})
			}
		} else if price >= trailingTP {
			status = StatusTPHit
			exitPrice = price
			break
		}
	}

	out := trailingOutcome(sig, status, exitPrice)
	if sig.Entry > 0 {
		out.MaxProfitPct = (sig.Entry - lowest) / sig.Entry * 100
		out.MaxDrawdownPct = (highest - sig.Entry) / sig.Entry * 100
	}
	switch status {
	case StatusTPHit:
		t.emit(Event{Type: EventTrailingTPHit, SignalID: sig.ID, Symbol: sig.Symbol, Price: exitPrice})
	case StatusSLHit:
		t.emit(Event{Type: EventTrailingSLHit, SignalID: sig.ID, Symbol: sig.Symbol, Price: exitPrice})
	case StatusExpired:
		t.emit(Event{Type: EventTrailingExpired, SignalID: sig.ID, Symbol: sig.Symbol, Price: exitPrice})
	}
	t.finalize(sig, out)
}

// trailingOutcome maps a follower exit onto the fixed-target result labels
func trailingOutcome(sig Signal, status string, exitPrice float64) brain.Outcome {
	out := brain.Outcome{FinalizedAt: time.Now().UTC()}

	switch status {
	case StatusTPHit:
		out.HitTP1 = true
		out.FinalResult = brain.ResultWinTP1
		if exitPrice <= sig.TP2 {
			out.HitTP2 = true
			out.FinalResult = brain.ResultWinTP2
		}
		if exitPrice <= sig.TP3 {
			out.HitTP3 = true
			out.FinalResult = brain.ResultWinTP3
		}
	case StatusSLHit:
		out.HitSL = true
		out.FinalResult = brain.ResultLossSL
	default:
		if sig.Entry > 0 && exitPrice > 0 &&
			math.Abs(exitPrice-sig.Entry)/sig.Entry*100 <= breakevenPct {
			out.FinalResult = brain.ResultBreakeven
		} else {
			out.FinalResult = brain.ResultTimeout
		}
	}
	return out
}
