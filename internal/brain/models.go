package brain

import (
	"strings"
	"time"
)

// Final outcome labels
const (
	ResultWinTP1    = "WIN_TP1"
	ResultWinTP2    = "WIN_TP2"
	ResultWinTP3    = "WIN_TP3"
	ResultLossSL    = "LOSS_SL"
	ResultBreakeven = "BREAKEVEN"
	ResultTimeout   = "TIMEOUT"
)

// SignalRecord is one emitted signal with its eventual outcome. Outcome
// fields stay zero until the tracker finalizes the row.
type SignalRecord struct {
	ID     string `gorm:"primaryKey"`
	Symbol string `gorm:"index:idx_signals_symbol"`
	Tier   string

	PumpPct      float64
	PumpSpeedMin float64
	PriceStart   float64
	PricePeak    float64
	EntryPrice   float64

	CombinedScore  float64
	BaseScore      float64
	SmartScore     float64
	ClassifierProb float64

	OrderbookScore     float64
	OpenInterestScore  float64
	FundingScore       float64
	LiquidationScore   float64
	BTCScore           float64
	MTFScore           float64
	VolumeProfileScore float64
	CrossPairScore     float64
	GodEyeScore        float64
	CandleScore        float64

	TP1 float64
	TP2 float64
	TP3 float64
	SL  float64

	FinalResult string `gorm:"index:idx_signals_result"`
	HitTP1      bool
	HitTP2      bool
	HitTP3      bool
	HitSL       bool

	PriceAt5m  float64
	PriceAt15m float64
	PriceAt30m float64
	PriceAt1h  float64
	PriceAt4h  float64

	MaxProfitPct   float64 // best favorable excursion, pct below entry
	MaxDrawdownPct float64 // worst adverse excursion, pct above entry

	CreatedAt   time.Time `gorm:"index:idx_signals_created"`
	FinalizedAt *time.Time
}

// IsWin reports whether the finalized row took profit
func (r *SignalRecord) IsWin() bool {
	return strings.HasPrefix(r.FinalResult, "WIN")
}

// IsLoss reports whether the finalized row stopped out
func (r *SignalRecord) IsLoss() bool {
	return r.FinalResult == ResultLossSL
}

// HourOfDay is the signal's emission hour, a classifier feature
func (r *SignalRecord) HourOfDay() int {
	return r.CreatedAt.UTC().Hour()
}

// AnalyzerScores returns the ten scores in canonical order
func (r *SignalRecord) AnalyzerScores() []float64 {
	return []float64{
		r.OrderbookScore, r.OpenInterestScore, r.FundingScore,
		r.LiquidationScore, r.BTCScore, r.MTFScore,
		r.VolumeProfileScore, r.CrossPairScore, r.GodEyeScore, r.CandleScore,
	}
}

// Outcome carries everything the tracker learned about one signal
type Outcome struct {
	FinalResult string
	HitTP1      bool
	HitTP2      bool
	HitTP3      bool
	HitSL       bool
	PriceAt5m  float64
	PriceAt15m float64
	PriceAt30m float64
	PriceAt1h  float64
	PriceAt4h  float64

	MaxProfitPct   float64
	MaxDrawdownPct float64

	FinalizedAt time.Time
}

// CoinIntelligenceRecord is the persisted per-symbol derivation. The
// in-memory Intelligence is the working form; this row survives restarts.
type CoinIntelligenceRecord struct {
	Symbol string `gorm:"primaryKey"`

	Total  int
	Wins   int
	Losses int

	WinRate         float64
	WeightedWinRate float64
	TP1Rate         float64
	TP2Rate         float64
	TP3Rate         float64
	SLRate          float64

	CurrentStreak int // positive run of wins, negative run of losses
	MaxWinStreak  int
	MaxLossStreak int

	TPMultiplier         float64
	SLMultiplier         float64
	ConfidenceAdjustment float64
	RecommendedAction    string

	OptimalJSON string // serialized OptimalConditions, empty when none

	UpdatedAt time.Time
}
