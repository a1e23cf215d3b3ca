// Package listing watches the contract roster for freshly listed
// perpetuals. New listings pump hard and fast, so the channel gets a
// heads-up the moment a symbol appears.
package listing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/pumpwatch/internal/market"
)

// Listing is one newly observed contract
type Listing struct {
	Symbol string
	SeenAt time.Time
}

// Detector polls the symbol roster and reports additions
type Detector struct {
	exchange market.Exchange
	interval time.Duration

	mu     sync.RWMutex
	known  map[string]struct{}
	recent []Listing

	onListing func(symbols []string)

	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// New creates a detector polling at the given interval
func New(exchange market.Exchange, interval time.Duration) *Detector {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Detector{
		exchange: exchange,
		interval: interval,
		known:    make(map[string]struct{}),
		stopCh:   make(chan struct{}),
	}
}

// OnListing registers the new-listing callback
func (d *Detector) OnListing(fn func(symbols []string)) {
	d.onListing = fn
}

// Start seeds the baseline roster and begins polling. The first fetch
// never announces, otherwise startup would spam every listed contract.
func (d *Detector) Start(ctx context.Context) error {
	symbols, err := d.exchange.ListSymbols(ctx)
	if err != nil {
		return err
	}
	d.mu.Lock()
	for _, s := range symbols {
		d.known[s] = struct{}{}
	}
	d.mu.Unlock()

	log.Info().Int("contracts", len(symbols)).Msg("🆕 Listing detector started")

	d.wg.Add(1)
	go d.loop()
	return nil
}

// Stop halts polling
func (d *Detector) Stop() {
	d.stopped.Do(func() { close(d.stopCh) })
	d.wg.Wait()
}

// Recent returns the newest listings seen since startup, newest first
func (d *Detector) Recent(limit int) []Listing {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := len(d.recent)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Listing, 0, n)
	for i := len(d.recent) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, d.recent[i])
	}
	return out
}

func (d *Detector) loop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.poll()
		case <-d.stopCh:
			return
		}
	}
}

func (d *Detector) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	symbols, err := d.exchange.ListSymbols(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Listing poll failed")
		return
	}

	fresh := d.diff(symbols)
	if len(fresh) == 0 {
		return
	}

	log.Info().Strs("symbols", fresh).Msg("🚨 New contract listed")
	if d.onListing != nil {
		d.onListing(fresh)
	}
}

func (d *Detector) diff(symbols []string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var fresh []string
	now := time.Now()
	for _, s := range symbols {
		if _, ok := d.known[s]; ok {
			continue
		}
		d.known[s] = struct{}{}
		d.recent = append(d.recent, Listing{Symbol: s, SeenAt: now})
		fresh = append(fresh, s)
	}
	return fresh
}
