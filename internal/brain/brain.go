package brain

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrClosed is returned for writes after Close
var ErrClosed = errors.New("brain: store closed")

// Brain is the durable signal log plus the derived per-symbol
// intelligence. All writes funnel through a single goroutine so SQLite
// never sees concurrent writers.
type Brain struct {
	db *gorm.DB

	mu    sync.RWMutex
	intel map[string]*Intelligence

	writeCh chan writeOp
	done    chan struct{}
	wg      sync.WaitGroup

	closeMu sync.RWMutex
	closed  bool
}

type writeOp struct {
	fn  func() error
	err chan error
}

// New opens the store at dbPath. A postgres:// URL selects PostgreSQL,
// anything else is a SQLite file path.
func New(dbPath string) (*Brain, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(dbPath, "postgres://") || strings.HasPrefix(dbPath, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Brain connected (PostgreSQL)")
	} else {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dbPath).Msg("Brain initialized (SQLite)")
	}

	if err := db.AutoMigrate(&SignalRecord{}, &CoinIntelligenceRecord{}); err != nil {
		return nil, err
	}

	b := &Brain{
		db:      db,
		intel:   make(map[string]*Intelligence),
		writeCh: make(chan writeOp, 64),
		done:    make(chan struct{}),
	}
	if err := b.loadIntelligence(); err != nil {
		return nil, err
	}

	b.wg.Add(1)
	go b.writer()

	return b, nil
}

// Close drains pending writes and stops the writer
func (b *Brain) Close() {
	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		return
	}
	b.closed = true
	b.closeMu.Unlock()

	close(b.done)
	b.wg.Wait()
}

func (b *Brain) writer() {
	defer b.wg.Done()
	for {
		select {
		case op := <-b.writeCh:
			op.err <- op.fn()
		case <-b.done:
			// drain whatever is queued
			for {
				select {
				case op := <-b.writeCh:
					op.err <- op.fn()
				default:
					return
				}
			}
		}
	}
}

func (b *Brain) submit(fn func() error) error {
	// holding the read lock through the enqueue guarantees the writer is
	// still draining when the op lands
	b.closeMu.RLock()
	if b.closed {
		b.closeMu.RUnlock()
		return ErrClosed
	}
	op := writeOp{fn: fn, err: make(chan error, 1)}
	b.writeCh <- op
	b.closeMu.RUnlock()

	return <-op.err
}

// RecordSignal appends a signal row with outcome fields left empty
func (b *Brain) RecordSignal(rec *SignalRecord) error {
	if rec.ID == "" {
		return errors.New("brain: signal record needs an id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return b.submit(func() error {
		return b.db.Create(rec).Error
	})
}

// UpdateOutcome finalizes a signal row and recomputes the symbol's
// intelligence. Repeated calls for the same id are no-ops.
func (b *Brain) UpdateOutcome(id string, out Outcome) error {
	var symbol string
	err := b.submit(func() error {
		var rec SignalRecord
		if err := b.db.First(&rec, "id = ?", id).Error; err != nil {
			return fmt.Errorf("load signal %s: %w", id, err)
		}
		if rec.FinalResult != "" {
			symbol = rec.Symbol
			return nil
		}

		rec.FinalResult = out.FinalResult
		rec.HitTP1 = out.HitTP1
		rec.HitTP2 = out.HitTP2
		rec.HitTP3 = out.HitTP3
		rec.HitSL = out.HitSL
		rec.PriceAt5m = out.PriceAt5m
		rec.PriceAt15m = out.PriceAt15m
		rec.PriceAt30m = out.PriceAt30m
		rec.PriceAt1h = out.PriceAt1h
		rec.PriceAt4h = out.PriceAt4h
		rec.MaxProfitPct = out.MaxProfitPct
		rec.MaxDrawdownPct = out.MaxDrawdownPct
		finalized := out.FinalizedAt
		if finalized.IsZero() {
			finalized = time.Now().UTC()
		}
		rec.FinalizedAt = &finalized

		if err := b.db.Save(&rec).Error; err != nil {
			return err
		}
		symbol = rec.Symbol
		return nil
	})
	if err != nil {
		return err
	}
	return b.refreshIntelligence(symbol)
}

// refreshIntelligence rederives and persists one symbol's profile
func (b *Brain) refreshIntelligence(symbol string) error {
	rows, err := b.FinalizedRows(symbol, 0)
	if err != nil {
		return err
	}
	intel := DeriveIntelligence(symbol, rows)

	b.mu.Lock()
	b.intel[symbol] = intel
	b.mu.Unlock()

	rec := intelToRecord(intel)
	return b.submit(func() error {
		return b.db.Save(rec).Error
	})
}

// Intelligence returns the cached profile, nil when the symbol has no
// finalized history.
func (b *Brain) Intelligence(symbol string) *Intelligence {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.intel[symbol]
}

// ConfidenceAdjustment is the scorer's per-symbol correction
func (b *Brain) ConfidenceAdjustment(symbol string) float64 {
	if intel := b.Intelligence(symbol); intel != nil {
		return intel.ConfidenceAdjustment
	}
	return 0
}

// Predict runs the smart overlay for the current setup
func (b *Brain) Predict(symbol string, pumpPct, combinedScore float64, hour int) (Prediction, error) {
	intel := b.Intelligence(symbol)
	rows, err := b.FinalizedRows(symbol, 0)
	if err != nil {
		return Prediction{}, err
	}
	return SmartPredict(intel, rows, pumpPct, combinedScore, hour), nil
}

// FinalizedRows returns the symbol's finalized rows newest first.
// limit 0 means all.
func (b *Brain) FinalizedRows(symbol string, limit int) ([]SignalRecord, error) {
	var rows []SignalRecord
	q := b.db.Where("symbol = ? AND final_result <> ''", symbol).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

// TrainingRows returns every finalized row, newest first, for the
// classifier.
func (b *Brain) TrainingRows() ([]SignalRecord, error) {
	var rows []SignalRecord
	err := b.db.Where("final_result <> ''").Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// FinalizedCount gates the classifier
func (b *Brain) FinalizedCount() (int64, error) {
	var n int64
	err := b.db.Model(&SignalRecord{}).Where("final_result <> ''").Count(&n).Error
	return n, err
}

// PendingRows returns signals the tracker has not finalized yet
func (b *Brain) PendingRows() ([]SignalRecord, error) {
	var rows []SignalRecord
	err := b.db.Where("final_result = ''").Order("created_at ASC").Find(&rows).Error
	return rows, err
}

// Stats summarizes the whole log for the status command
type Stats struct {
	TotalSignals int64
	Finalized    int64
	Wins         int64
	Losses       int64
	WinRate      float64
	Symbols      int64
}

// GlobalStats aggregates across all symbols
func (b *Brain) GlobalStats() (Stats, error) {
	var s Stats
	if err := b.db.Model(&SignalRecord{}).Count(&s.TotalSignals).Error; err != nil {
		return s, err
	}
	if err := b.db.Model(&SignalRecord{}).Where("final_result <> ''").Count(&s.Finalized).Error; err != nil {
		return s, err
	}
	if err := b.db.Model(&SignalRecord{}).Where("final_result LIKE 'WIN%'").Count(&s.Wins).Error; err != nil {
		return s, err
	}
	if err := b.db.Model(&SignalRecord{}).Where("final_result = ?", ResultLossSL).Count(&s.Losses).Error; err != nil {
		return s, err
	}
	if err := b.db.Model(&SignalRecord{}).Distinct("symbol").Count(&s.Symbols).Error; err != nil {
		return s, err
	}
	if s.Finalized > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Finalized)
	}
	return s, nil
}

// TopSymbols lists the best profiles by win rate, most-traded first on ties
func (b *Brain) TopSymbols(limit int) []*Intelligence {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*Intelligence, 0, len(b.intel))
	for _, intel := range b.intel {
		out = append(out, intel)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WinRate != out[j].WinRate {
			return out[i].WinRate > out[j].WinRate
		}
		return out[i].Total > out[j].Total
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (b *Brain) loadIntelligence() error {
	var recs []CoinIntelligenceRecord
	if err := b.db.Find(&recs).Error; err != nil {
		return err
	}
	for _, rec := range recs {
		b.intel[rec.Symbol] = recordToIntel(&rec)
	}
	if len(recs) > 0 {
		log.Info().Int("symbols", len(recs)).Msg("🧠 Intelligence profiles loaded")
	}
	return nil
}

func intelToRecord(intel *Intelligence) *CoinIntelligenceRecord {
	rec := &CoinIntelligenceRecord{
		Symbol:               intel.Symbol,
		Total:                intel.Total,
		Wins:                 intel.Wins,
		Losses:               intel.Losses,
		WinRate:              intel.WinRate,
		WeightedWinRate:      intel.WeightedWinRate,
		TP1Rate:              intel.TP1Rate,
		TP2Rate:              intel.TP2Rate,
		TP3Rate:              intel.TP3Rate,
		SLRate:               intel.SLRate,
		CurrentStreak:        intel.CurrentStreak,
		MaxWinStreak:         intel.MaxWinStreak,
		MaxLossStreak:        intel.MaxLossStreak,
		TPMultiplier:         intel.TPMultiplier,
		SLMultiplier:         intel.SLMultiplier,
		ConfidenceAdjustment: intel.ConfidenceAdjustment,
		RecommendedAction:    intel.RecommendedAction,
		UpdatedAt:            time.Now().UTC(),
	}
	if intel.Optimal != nil {
		if data, err := json.Marshal(intel.Optimal); err == nil {
			rec.OptimalJSON = string(data)
		}
	}
	return rec
}

func recordToIntel(rec *CoinIntelligenceRecord) *Intelligence {
	intel := &Intelligence{
		Symbol:               rec.Symbol,
		Total:                rec.Total,
		Wins:                 rec.Wins,
		Losses:               rec.Losses,
		WinRate:              rec.WinRate,
		WeightedWinRate:      rec.WeightedWinRate,
		TP1Rate:              rec.TP1Rate,
		TP2Rate:              rec.TP2Rate,
		TP3Rate:              rec.TP3Rate,
		SLRate:               rec.SLRate,
		CurrentStreak:        rec.CurrentStreak,
		MaxWinStreak:         rec.MaxWinStreak,
		MaxLossStreak:        rec.MaxLossStreak,
		IsHot:                rec.CurrentStreak >= 3,
		IsCold:               rec.CurrentStreak <= -3,
		TPMultiplier:         rec.TPMultiplier,
		SLMultiplier:         rec.SLMultiplier,
		ConfidenceAdjustment: rec.ConfidenceAdjustment,
		RecommendedAction:    rec.RecommendedAction,
	}
	if rec.OptimalJSON != "" {
		var opt OptimalConditions
		if err := json.Unmarshal([]byte(rec.OptimalJSON), &opt); err == nil {
			intel.Optimal = &opt
		}
	}
	return intel
}
