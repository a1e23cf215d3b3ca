package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/web3guy0/pumpwatch/internal/analyzers"
	"github.com/web3guy0/pumpwatch/internal/brain"
	"github.com/web3guy0/pumpwatch/internal/detector"
	"github.com/web3guy0/pumpwatch/internal/engine"
	"github.com/web3guy0/pumpwatch/internal/scoring"
	"github.com/web3guy0/pumpwatch/internal/tracker"
)

// Display labels for the analyzer breakdown, keyed by canonical name
var analyzerLabels = map[string]string{
	analyzers.NameOrderbook:     "Orderbook",
	analyzers.NameOpenInterest:  "Open Interest",
	analyzers.NameFunding:       "Funding",
	analyzers.NameLiquidation:   "Liquidations",
	analyzers.NameBTC:           "BTC Context",
	analyzers.NameMTF:           "Multi-TF",
	analyzers.NameVolumeProfile: "Volume Profile",
	analyzers.NameCrossPair:     "Cross-Pair",
	analyzers.NameGodEye:        "God Eye",
	analyzers.NameCandle:        "Candle",
}

// fmtPrice keeps enough precision for micro-cap contracts while not
// printing 100.000000 for large ones
func fmtPrice(p float64) string {
	switch {
	case p >= 100:
		return fmt.Sprintf("%.2f", p)
	case p >= 1:
		return fmt.Sprintf("%.4f", p)
	default:
		return fmt.Sprintf("%.6f", p)
	}
}

func scoreBar(score float64) string {
	filled := int(score + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}

func formatPump(ev *detector.PumpEvent) string {
	return fmt.Sprintf(`🚀 *PUMP DETECTED* `+"`%s`"+`

Type: *%s*
Move: *+%.1f%%* in %.1f min
Start: %s → Peak: %s
Now: %s

Watching for the reversal...`,
		ev.Symbol, ev.Kind, ev.PumpPct, ev.ElapsedMinutes,
		fmtPrice(ev.PriceStart), fmtPrice(ev.PricePeak), fmtPrice(ev.CurrentPrice))
}

func formatSignal(sig *engine.Signal) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s *SHORT %s* Tier %s\n\n", sig.Tier.Glyph(), escapeMarkdown(sig.Symbol), sig.Tier)
	fmt.Fprintf(&sb, "Pump: +%.1f%% (%s) in %.1f min\n", sig.PumpPct, sig.Kind, sig.ElapsedMinutes)
	fmt.Fprintf(&sb, "Entry: `%s`\n", fmtPrice(sig.Entry))
	for i, tp := range []float64{sig.Levels.TP1(), sig.Levels.TP2(), sig.Levels.TP3()} {
		fmt.Fprintf(&sb, "TP%d: `%s` (%.1f%%)\n", i+1, fmtPrice(tp), (sig.Entry-tp)/sig.Entry*100)
	}
	fmt.Fprintf(&sb, "SL: `%s` (%.1f%%)\n\n", fmtPrice(sig.Levels.SL), (sig.Levels.SL-sig.Entry)/sig.Entry*100)

	fmt.Fprintf(&sb, "*Score: %.1f/10*", sig.Combination.Final)
	if sig.Combination.ClassifierUsed {
		fmt.Fprintf(&sb, " · win prob %.0f%%", sig.ClassifierProb*100)
	}
	sb.WriteString("\n")

	for _, name := range analyzers.Names {
		res, ok := sig.Results[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "`%s` %4.1f  %s\n", scoreBar(res.Score), res.Score, analyzerLabels[name])
	}

	if len(sig.Smart.Reasons) > 0 {
		fmt.Fprintf(&sb, "\n🧠 *Read* (%.0f%% confidence):\n", sig.Smart.Confidence)
		for _, r := range sig.Smart.Reasons {
			fmt.Fprintf(&sb, "• %s\n", r)
		}
	}

	if intel := sig.Intelligence; intel != nil && intel.Total > 0 {
		fmt.Fprintf(&sb, "\n📒 History: %d/%d wins (%s)", intel.Wins, intel.Total, intel.RecommendedAction)
		if intel.IsHot {
			sb.WriteString(" 🔥")
		} else if intel.IsCold {
			sb.WriteString(" 🧊")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatNoSignal(symbol, reason string) string {
	return fmt.Sprintf("🚫 `%s` no signal: %s", symbol, reason)
}

func formatOutcome(ev tracker.Event) string {
	switch ev.Type {
	case tracker.EventTrailingActivated:
		return fmt.Sprintf("🎯 `%s` trailing TP armed at %s", ev.Symbol, fmtPrice(ev.Price))
	case tracker.EventFinalized:
		glyph := "➖"
		switch {
		case strings.HasPrefix(ev.Result, "WIN"):
			glyph = "✅"
		case ev.Result == brain.ResultLossSL:
			glyph = "❌"
		}
		msg := fmt.Sprintf("%s `%s` finalized: *%s*", glyph, ev.Symbol, ev.Result)
		if out := ev.Outcome; out != nil && out.MaxProfitPct > 0 {
			msg += fmt.Sprintf(" (best %.1f%% below entry)", out.MaxProfitPct)
		}
		return msg
	default:
		return ""
	}
}

func formatListing(symbols []string) string {
	var sb strings.Builder
	sb.WriteString("🚨 *NEW LISTING*\n\n")
	for _, s := range symbols {
		fmt.Fprintf(&sb, "• `%s`\n", s)
	}
	sb.WriteString("\nFresh contracts tend to pump then dump hard. Watching.")
	return sb.String()
}

// formatTestSignal fabricates a plausible signal for /test
func formatTestSignal() string {
	sig := &engine.Signal{
		Symbol:         "TEST_USDT",
		Kind:           detector.KindFast,
		Tier:           scoring.TierA,
		ClassifierProb: 0.72,
		PumpPct:        14.2,
		ElapsedMinutes: 3.5,
		Entry:          0.05421,
		Combination: scoring.Combination{
			Final:          8.4,
			ClassifierUsed: true,
		},
		Results: map[string]analyzers.Result{
			analyzers.NameOrderbook: {Name: analyzers.NameOrderbook, Score: 9.0},
			analyzers.NameFunding:   {Name: analyzers.NameFunding, Score: 7.0},
			analyzers.NameCandle:    {Name: analyzers.NameCandle, Score: 8.5},
		},
		Smart: brain.Prediction{
			Score:      8.0,
			Confidence: 70,
			Reasons:    []string{"strong win rate 75% over 8 signals", "similar setups won 4/5"},
		},
		CreatedAt: time.Now(),
	}
	sig.Levels.TPs = []float64{0.0488, 0.0510, 0.0525}
	sig.Levels.SL = 0.0572
	return "🧪 *TEST MESSAGE*\n\n" + formatSignal(sig)
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`")
	return replacer.Replace(s)
}
