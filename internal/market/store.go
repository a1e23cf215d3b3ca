package market

import (
	"math"
	"sync"
	"time"
)

// Store keeps a bounded per-symbol price history with adaptive granularity:
// every tick is kept during fast moves, while calm stretches collapse into a
// single drifting head snapshot so the buffer stays small.
type Store struct {
	mu        sync.RWMutex
	series    map[string][]Snapshot
	retention time.Duration
}

// NewStore creates a snapshot store with the given retention window
func NewStore(retention time.Duration) *Store {
	return &Store{
		series:    make(map[string][]Snapshot),
		retention: retention,
	}
}

// Insert appends or drifts the head of the symbol's series.
//
// Append when the price moved >=0.5% since the head, or >=0.2% with more than
// 2s since the previous historical point, or more than 5s passed regardless.
// Otherwise the head is overwritten in place.
func (s *Store) Insert(symbol string, snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	series := s.series[symbol]

	if len(series) == 0 {
		s.series[symbol] = append(series, snap)
		return
	}

	head := series[len(series)-1]
	if snap.Timestamp == head.Timestamp && snap.Price == head.Price {
		// duplicate tick
		return
	}

	deltaPct := 0.0
	if head.Price != 0 {
		deltaPct = math.Abs(snap.Price-head.Price) / head.Price * 100
	}

	var sincePrev time.Duration
	if len(series) >= 2 {
		prev := series[len(series)-2]
		sincePrev = time.Duration(snap.Timestamp-prev.Timestamp) * time.Millisecond
	} else {
		sincePrev = time.Duration(snap.Timestamp-head.Timestamp) * time.Millisecond
	}

	append_ := false
	switch {
	case len(series) == 1 && sincePrev > time.Second:
		append_ = true
	case deltaPct >= 0.5:
		append_ = true
	case deltaPct >= 0.2 && sincePrev > 2*time.Second:
		append_ = true
	case sincePrev > 5*time.Second:
		append_ = true
	}

	if append_ {
		series = append(series, snap)
	} else {
		series[len(series)-1] = snap
	}

	// Prune by age against the newest timestamp
	cutoff := snap.Timestamp - s.retention.Milliseconds()
	start := 0
	for start < len(series) && series[start].Timestamp < cutoff {
		start++
	}
	s.series[symbol] = series[start:]
}

// Recent returns the snapshots for symbol within the given lookback window,
// measured backwards from nowMs
func (s *Store) Recent(symbol string, within time.Duration, nowMs int64) []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.series[symbol]
	if len(series) == 0 {
		return nil
	}

	cutoff := nowMs - within.Milliseconds()
	start := 0
	for start < len(series) && series[start].Timestamp < cutoff {
		start++
	}

	out := make([]Snapshot, len(series)-start)
	copy(out, series[start:])
	return out
}

// Latest returns the most recent snapshot for symbol
func (s *Store) Latest(symbol string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.series[symbol]
	if len(series) == 0 {
		return Snapshot{}, false
	}
	return series[len(series)-1], true
}

// Len returns the number of retained snapshots for symbol
func (s *Store) Len(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series[symbol])
}

// Symbols returns every symbol with at least one retained snapshot
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.series))
	for sym := range s.series {
		out = append(out, sym)
	}
	return out
}

// SyntheticKlines buckets the retained snapshots into fixed-width candles.
// Used as a fallback when the exchange kline endpoint is unavailable.
func (s *Store) SyntheticKlines(symbol string, bucket time.Duration, nowMs int64) []Kline {
	snaps := s.Recent(symbol, s.retention, nowMs)
	if len(snaps) == 0 {
		return nil
	}

	bucketMs := bucket.Milliseconds()
	var klines []Kline
	var cur *Kline

	for _, snap := range snaps {
		bucketStart := snap.Timestamp - snap.Timestamp%bucketMs
		if cur == nil || cur.Time != bucketStart {
			klines = append(klines, Kline{
				Time:   bucketStart,
				Open:   snap.Price,
				High:   snap.Price,
				Low:    snap.Price,
				Close:  snap.Price,
				Volume: snap.Volume,
			})
			cur = &klines[len(klines)-1]
			continue
		}
		if snap.Price > cur.High {
			cur.High = snap.Price
		}
		if snap.Price < cur.Low {
			cur.Low = snap.Price
		}
		cur.Close = snap.Price
		cur.Volume += snap.Volume
	}

	return klines
}
