package market

import "context"

// Snapshot is one observed (timestamp, price, volume) point for a symbol.
// Timestamp is unix milliseconds.
type Snapshot struct {
	Timestamp int64
	Price     float64
	Volume    float64
}

// Ticker is the latest state of one contract from the batch ticker feed
type Ticker struct {
	Symbol    string
	LastPrice float64
	Volume24  float64
	Change24h float64 // percent
	Timestamp int64
}

// Kline is a single candlestick
type Kline struct {
	Time   int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// BookLevel is one price level of the orderbook
type BookLevel struct {
	Price    float64
	Quantity float64
}

// Orderbook holds aggregated depth for one symbol
type Orderbook struct {
	Bids []BookLevel
	Asks []BookLevel
}

// Funding is the current funding state of a perpetual contract
type Funding struct {
	Rate            float64
	NextFundingTime int64
}

// OpenInterest is the open position size of a contract
type OpenInterest struct {
	Contracts    float64
	ContractSize float64
}

// Exchange is the read-only surface the pipeline needs from a futures exchange
type Exchange interface {
	ListSymbols(ctx context.Context) ([]string, error)
	BatchTicker(ctx context.Context) (map[string]Ticker, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error)
	OrderbookDepth(ctx context.Context, symbol string, limit int) (*Orderbook, error)
	FundingRate(ctx context.Context, symbol string) (*Funding, error)
	OpenInterest(ctx context.Context, symbol string) (*OpenInterest, error)
}
