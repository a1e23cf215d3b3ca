package mexc

import "github.com/shopspring/decimal"

// Envelope shared by all contract API responses
type apiResponse struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// TickerData is one contract ticker row
type TickerData struct {
	Symbol       string          `json:"symbol"`
	LastPrice    decimal.Decimal `json:"lastPrice"`
	Volume24     decimal.Decimal `json:"volume24"`
	RiseFallRate decimal.Decimal `json:"riseFallRate"` // fraction, 0.05 = +5%
	Timestamp    int64           `json:"timestamp"`
}

type tickerResponse struct {
	apiResponse
	Data []TickerData `json:"data"`
}

type singleTickerResponse struct {
	apiResponse
	Data TickerData `json:"data"`
}

// ContractDetail describes one listed perpetual contract
type ContractDetail struct {
	Symbol       string          `json:"symbol"`
	State        int             `json:"state"`
	PositionSize decimal.Decimal `json:"positionSize"` // open interest in contracts
	ContractSize decimal.Decimal `json:"contractSize"`
}

type contractDetailResponse struct {
	apiResponse
	Data []ContractDetail `json:"data"`
}

// KlineData is one candle
type KlineData struct {
	Time   int64           `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"vol"`
}

type klineResponse struct {
	apiResponse
	Data []KlineData `json:"data"`
}

// DepthData is the orderbook payload: [[price, qty, orders], ...]
type DepthData struct {
	Bids [][]decimal.Decimal `json:"bids"`
	Asks [][]decimal.Decimal `json:"asks"`
}

type depthResponse struct {
	apiResponse
	Data DepthData `json:"data"`
}

// FundingData is the current funding rate of a contract
type FundingData struct {
	Symbol          string          `json:"symbol"`
	FundingRate     decimal.Decimal `json:"fundingRate"`
	NextSettleTime  int64           `json:"nextSettleTime"`
	CollectCycle    int             `json:"collectCycle"`
	MaxFundingRate  decimal.Decimal `json:"maxFundingRate"`
	MinFundingRate  decimal.Decimal `json:"minFundingRate"`
}

type fundingResponse struct {
	apiResponse
	Data FundingData `json:"data"`
}
