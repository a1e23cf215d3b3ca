package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(tsMs int64, price float64) Snapshot {
	return Snapshot{Timestamp: tsMs, Price: price, Volume: 1}
}

func TestStoreAppendsOnFastMove(t *testing.T) {
	s := NewStore(40 * time.Minute)

	s.Insert("BTC_USDT", snap(0, 100))
	s.Insert("BTC_USDT", snap(100, 100.6)) // +0.6% within 100ms

	assert.Equal(t, 2, s.Len("BTC_USDT"))
}

func TestStoreDriftsHeadDuringCalm(t *testing.T) {
	s := NewStore(40 * time.Minute)

	s.Insert("BTC_USDT", snap(0, 100))
	s.Insert("BTC_USDT", snap(2000, 100.01))
	s.Insert("BTC_USDT", snap(2500, 100.02)) // tiny move, fast tick: drift
	s.Insert("BTC_USDT", snap(3000, 100.03))

	// first append (len==1, dt>1s) then drifting head only
	assert.Equal(t, 2, s.Len("BTC_USDT"))

	latest, ok := s.Latest("BTC_USDT")
	require.True(t, ok)
	assert.Equal(t, int64(3000), latest.Timestamp)
	assert.InDelta(t, 100.03, latest.Price, 1e-6)
}

func TestStoreAppendsAfterFiveSeconds(t *testing.T) {
	s := NewStore(40 * time.Minute)

	s.Insert("X_USDT", snap(0, 100))
	s.Insert("X_USDT", snap(1500, 100.01))
	s.Insert("X_USDT", snap(7000, 100.02)) // >5s since previous historical point

	assert.Equal(t, 3, s.Len("X_USDT"))
}

func TestStoreMidMoveAppend(t *testing.T) {
	s := NewStore(40 * time.Minute)

	s.Insert("X_USDT", snap(0, 100))
	s.Insert("X_USDT", snap(1500, 100.1))
	// +0.3% vs head, >2s since previous historical point
	s.Insert("X_USDT", snap(4000, 100.4))

	assert.Equal(t, 3, s.Len("X_USDT"))
}

func TestStoreIdempotentInsert(t *testing.T) {
	s := NewStore(40 * time.Minute)

	s.Insert("X_USDT", snap(1000, 100))
	s.Insert("X_USDT", snap(1000, 100))

	assert.Equal(t, 1, s.Len("X_USDT"))
}

func TestStorePrunesByAge(t *testing.T) {
	s := NewStore(40 * time.Minute)

	old := int64(0)
	s.Insert("X_USDT", snap(old, 100))
	s.Insert("X_USDT", snap(old+10_000, 101))

	// 41 minutes later a new tick evicts everything older than the window
	later := old + 41*60*1000
	s.Insert("X_USDT", snap(later, 102))

	recent := s.Recent("X_USDT", 40*time.Minute, later)
	require.Len(t, recent, 1)
	assert.Equal(t, later, recent[0].Timestamp)
}

func TestStoreRecentWindowing(t *testing.T) {
	s := NewStore(40 * time.Minute)

	base := int64(1_000_000)
	s.Insert("X_USDT", snap(base, 100))
	s.Insert("X_USDT", snap(base+60_000, 101))
	s.Insert("X_USDT", snap(base+120_000, 102))

	got := s.Recent("X_USDT", time.Minute, base+120_000)
	require.Len(t, got, 2)
	assert.Equal(t, base+60_000, got[0].Timestamp)
}

func TestStoreSyntheticKlines(t *testing.T) {
	s := NewStore(40 * time.Minute)

	base := int64(600_000) // aligned to a minute
	s.Insert("X_USDT", snap(base, 100))
	s.Insert("X_USDT", snap(base+10_000, 103))
	s.Insert("X_USDT", snap(base+20_000, 98))
	s.Insert("X_USDT", snap(base+70_000, 105)) // next minute

	klines := s.SyntheticKlines("X_USDT", time.Minute, base+70_000)
	require.Len(t, klines, 2)

	assert.InDelta(t, 100.0, klines[0].Open, 1e-6)
	assert.InDelta(t, 103.0, klines[0].High, 1e-6)
	assert.InDelta(t, 98.0, klines[0].Low, 1e-6)
	assert.InDelta(t, 98.0, klines[0].Close, 1e-6)
	assert.InDelta(t, 105.0, klines[1].Open, 1e-6)
}

func TestStoreUnknownSymbol(t *testing.T) {
	s := NewStore(40 * time.Minute)

	_, ok := s.Latest("NOPE_USDT")
	assert.False(t, ok)
	assert.Nil(t, s.Recent("NOPE_USDT", time.Minute, 0))
}
