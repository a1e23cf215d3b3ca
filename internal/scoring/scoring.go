package scoring

import (
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/pumpwatch/internal/analyzers"
)

// Tier buckets a final score
type Tier string

const (
	TierA      Tier = "A"
	TierB      Tier = "B"
	TierReject Tier = "REJECT"
)

// Emit reports whether the tier produces a signal
func (t Tier) Emit() bool { return t == TierA || t == TierB }

// Glyph is the tier marker used in notifications
func (t Tier) Glyph() string {
	switch t {
	case TierA:
		return "🔥"
	case TierB:
		return "⚡"
	default:
		return "❌"
	}
}

// Combination carries every intermediate of the score pipeline so the
// notification layer and the memory store can attribute the decision.
type Combination struct {
	Base           float64 // unweighted mean of the analyzer scores
	Adjusted       float64 // base + per-symbol memory adjustment
	Blended        float64 // classifier blend, equals Adjusted when untrained
	SmartDelta     float64 // overlay correction, capped at ±2
	Final          float64
	Tier           Tier
	ClassifierUsed bool
}

// maximum correction the smart overlay may apply
const smartOverlayCap = 2.0

// Combine folds the analyzer results, the per-symbol memory adjustment,
// the classifier probability and the smart-prediction overlay into one
// final score and tier.
//
// The analyzer mean is unweighted: each analyzer already encodes its own
// confidence scale, and the memory adjustment carries the per-symbol
// adaptation.
func Combine(results map[string]analyzers.Result, memoryAdjustment float64, classifierProb float64, classifierTrained bool, smartScore float64, smartAvailable bool) Combination {
	var sum float64
	for _, name := range analyzers.Names {
		res, ok := results[name]
		if !ok {
			res = analyzers.Neutral(name)
		}
		sum += res.Score
	}
	base := sum / float64(len(analyzers.Names))

	c := Combination{Base: base}
	c.Adjusted = clamp(base + memoryAdjustment)

	c.Blended = c.Adjusted
	if classifierTrained {
		c.Blended = (c.Adjusted + classifierProb*10) / 2
		c.ClassifierUsed = true
	}

	if smartAvailable {
		delta := smartScore - 5.0
		if delta > smartOverlayCap {
			delta = smartOverlayCap
		} else if delta < -smartOverlayCap {
			delta = -smartOverlayCap
		}
		c.SmartDelta = delta
	}

	c.Final = clamp(c.Blended + c.SmartDelta)
	c.Tier = tierFor(c.Final)

	log.Debug().
		Float64("base", c.Base).
		Float64("adjusted", c.Adjusted).
		Float64("blended", c.Blended).
		Float64("smart_delta", c.SmartDelta).
		Float64("final", c.Final).
		Str("tier", string(c.Tier)).
		Msg("Score combined")

	return c
}

func tierFor(score float64) Tier {
	switch {
	case score >= 8.0:
		return TierA
	case score >= 6.0:
		return TierB
	default:
		return TierReject
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
