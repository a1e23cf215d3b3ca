package mexc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/web3guy0/pumpwatch/internal/indicators"
	"github.com/web3guy0/pumpwatch/internal/market"
)

// Client talks to the MEXC contract REST API. It implements market.Exchange,
// converting decimal wire values to float64 at this boundary.
type Client struct {
	restURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker

	// cached contract details for OI lookups (the endpoint returns the
	// whole list, one fetch serves every symbol)
	mu          sync.RWMutex
	details     map[string]ContractDetail
	detailsAt   time.Time
	detailsTTL  time.Duration
}

// NewClient creates a MEXC client with pooled connections
func NewClient(restURL string, timeout time.Duration) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 50,
		IdleConnTimeout:     30 * time.Second,
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "mexc-rest",
		Timeout: 15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("⚡ Circuit breaker state changed")
		},
	})

	return &Client{
		restURL:    restURL,
		http:       &http.Client{Timeout: timeout, Transport: transport},
		limiter:    rate.NewLimiter(rate.Limit(40), 40),
		breaker:    breaker,
		details:    make(map[string]ContractDetail),
		detailsTTL: 30 * time.Second,
	}
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restURL+path, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("mexc: %s returned %d", path, resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("mexc: decode %s: %w", path, err)
		}
		return nil, nil
	})
	return err
}

func (c *Client) contractDetails(ctx context.Context) (map[string]ContractDetail, error) {
	c.mu.RLock()
	if time.Since(c.detailsAt) < c.detailsTTL && len(c.details) > 0 {
		cached := c.details
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	var resp contractDetailResponse
	if err := c.get(ctx, "/api/v1/contract/detail", &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("mexc: contract detail failed: %s", resp.Message)
	}

	details := make(map[string]ContractDetail, len(resp.Data))
	for _, d := range resp.Data {
		details[d.Symbol] = d
	}

	c.mu.Lock()
	c.details = details
	c.detailsAt = time.Now()
	c.mu.Unlock()

	return details, nil
}

// ListSymbols returns every listed contract symbol
func (c *Client) ListSymbols(ctx context.Context) ([]string, error) {
	details, err := c.contractDetails(ctx)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(details))
	for sym := range details {
		symbols = append(symbols, sym)
	}
	return symbols, nil
}

// BatchTicker fetches every contract ticker in one request
func (c *Client) BatchTicker(ctx context.Context) (map[string]market.Ticker, error) {
	var resp tickerResponse
	if err := c.get(ctx, "/api/v1/contract/ticker", &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("mexc: ticker batch failed: %s", resp.Message)
	}

	now := time.Now().UnixMilli()
	tickers := make(map[string]market.Ticker, len(resp.Data))
	for _, t := range resp.Data {
		if t.Symbol == "" {
			continue
		}
		ts := t.Timestamp
		if ts == 0 {
			ts = now
		}
		tickers[t.Symbol] = market.Ticker{
			Symbol:    t.Symbol,
			LastPrice: indicators.DecimalToFloat(t.LastPrice),
			Volume24:  indicators.DecimalToFloat(t.Volume24),
			Change24h: indicators.DecimalToFloat(t.RiseFallRate) * 100,
			Timestamp: ts,
		}
	}
	return tickers, nil
}

// Ticker fetches one contract ticker
func (c *Client) Ticker(ctx context.Context, symbol string) (*market.Ticker, error) {
	var resp singleTickerResponse
	if err := c.get(ctx, "/api/v1/contract/ticker?symbol="+symbol, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("mexc: ticker %s failed: %s", symbol, resp.Message)
	}

	return &market.Ticker{
		Symbol:    resp.Data.Symbol,
		LastPrice: indicators.DecimalToFloat(resp.Data.LastPrice),
		Volume24:  indicators.DecimalToFloat(resp.Data.Volume24),
		Change24h: indicators.DecimalToFloat(resp.Data.RiseFallRate) * 100,
		Timestamp: resp.Data.Timestamp,
	}, nil
}

// wireIntervals maps the shorthand the rest of the codebase speaks to the
// exchange's kline notation.
var wireIntervals = map[string]string{
	"1m":  "Min1",
	"5m":  "Min5",
	"15m": "Min15",
	"30m": "Min30",
	"1h":  "Min60",
	"4h":  "Hour4",
	"8h":  "Hour8",
	"1d":  "Day1",
}

// Klines fetches historical candles. Interval takes the shorthand form
// ("1m", "5m", "15m", "1h", "4h"); exchange notation passes through as-is.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]market.Kline, error) {
	if wire, ok := wireIntervals[interval]; ok {
		interval = wire
	}
	path := fmt.Sprintf("/api/v1/contract/kline/%s?interval=%s&limit=%d", symbol, interval, limit)

	var resp klineResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("mexc: klines %s failed: %s", symbol, resp.Message)
	}

	klines := make([]market.Kline, len(resp.Data))
	for i, k := range resp.Data {
		klines[i] = market.Kline{
			Time:   k.Time,
			Open:   indicators.DecimalToFloat(k.Open),
			High:   indicators.DecimalToFloat(k.High),
			Low:    indicators.DecimalToFloat(k.Low),
			Close:  indicators.DecimalToFloat(k.Close),
			Volume: indicators.DecimalToFloat(k.Volume),
		}
	}
	return klines, nil
}

// OrderbookDepth fetches aggregated depth for one symbol
func (c *Client) OrderbookDepth(ctx context.Context, symbol string, limit int) (*market.Orderbook, error) {
	path := fmt.Sprintf("/api/v1/contract/depth/%s?limit=%d", symbol, limit)

	var resp depthResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("mexc: depth %s failed: %s", symbol, resp.Message)
	}

	book := &market.Orderbook{
		Bids: make([]market.BookLevel, 0, len(resp.Data.Bids)),
		Asks: make([]market.BookLevel, 0, len(resp.Data.Asks)),
	}
	for _, b := range resp.Data.Bids {
		if len(b) < 2 {
			continue
		}
		book.Bids = append(book.Bids, market.BookLevel{
			Price:    indicators.DecimalToFloat(b[0]),
			Quantity: indicators.DecimalToFloat(b[1]),
		})
	}
	for _, a := range resp.Data.Asks {
		if len(a) < 2 {
			continue
		}
		book.Asks = append(book.Asks, market.BookLevel{
			Price:    indicators.DecimalToFloat(a[0]),
			Quantity: indicators.DecimalToFloat(a[1]),
		})
	}
	return book, nil
}

// FundingRate fetches the current funding state of one contract
func (c *Client) FundingRate(ctx context.Context, symbol string) (*market.Funding, error) {
	var resp fundingResponse
	if err := c.get(ctx, "/api/v1/contract/funding_rate/"+symbol, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("mexc: funding rate %s failed: %s", symbol, resp.Message)
	}

	return &market.Funding{
		Rate:            indicators.DecimalToFloat(resp.Data.FundingRate),
		NextFundingTime: resp.Data.NextSettleTime,
	}, nil
}

// OpenInterest reads the open position size from the cached contract details
func (c *Client) OpenInterest(ctx context.Context, symbol string) (*market.OpenInterest, error) {
	details, err := c.contractDetails(ctx)
	if err != nil {
		return nil, err
	}

	d, ok := details[symbol]
	if !ok {
		return nil, fmt.Errorf("mexc: unknown contract %s", symbol)
	}

	contractSize := indicators.DecimalToFloat(d.ContractSize)
	if contractSize == 0 {
		contractSize = 1
	}

	return &market.OpenInterest{
		Contracts:    indicators.DecimalToFloat(d.PositionSize),
		ContractSize: contractSize,
	}, nil
}
