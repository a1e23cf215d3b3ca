package mexc

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/pumpwatch/internal/indicators"
	"github.com/web3guy0/pumpwatch/internal/market"
)

// Stream subscribes to the contract ticker push channel and keeps a live
// price table. Optional low-latency companion to the REST poll loop.
type Stream struct {
	wsURL string
	conn  *websocket.Conn

	prices map[string]market.Ticker

	onTicker func(market.Ticker)

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
}

type wsCommand struct {
	Method string      `json:"method"`
	Param  interface{} `json:"param,omitempty"`
}

type wsPush struct {
	Channel string `json:"channel"`
	Ts      int64  `json:"ts"`
	Data    []struct {
		Symbol       string          `json:"symbol"`
		LastPrice    decimal.Decimal `json:"lastPrice"`
		Volume24     decimal.Decimal `json:"volume24"`
		RiseFallRate decimal.Decimal `json:"riseFallRate"`
	} `json:"data"`
}

// NewStream creates a ticker stream client
func NewStream(wsURL string) *Stream {
	return &Stream{
		wsURL:  wsURL,
		prices: make(map[string]market.Ticker),
		stopCh: make(chan struct{}),
	}
}

// SetTickerCallback sets the callback invoked on every ticker push
func (s *Stream) SetTickerCallback(cb func(market.Ticker)) {
	s.onTicker = cb
}

// Start connects and begins streaming
func (s *Stream) Start() error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	go s.runWebSocket()
	go s.pingLoop()

	log.Info().Str("url", s.wsURL).Msg("📡 Ticker stream started")
	return nil
}

// Stop closes the connection
func (s *Stream) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	if s.conn != nil {
		s.conn.Close()
	}
}

func (s *Stream) isRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Stream) runWebSocket() {
	for s.isRunning() {
		if err := s.connect(); err != nil {
			log.Error().Err(err).Msg("Ticker stream connection failed")
			time.Sleep(5 * time.Second)
			continue
		}

		s.readMessages()

		if s.isRunning() {
			log.Warn().Msg("Ticker stream disconnected, reconnecting...")
			time.Sleep(time.Second)
		}
	}
}

func (s *Stream) connect() error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.Dial(s.wsURL, nil)
	if err != nil {
		return err
	}
	s.conn = conn

	// Subscribe to the all-tickers push channel
	sub := wsCommand{Method: "sub.tickers", Param: map[string]interface{}{}}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return err
	}

	log.Info().Msg("🔌 Ticker stream connected")
	return nil
}

func (s *Stream) readMessages() {
	for s.isRunning() {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if s.isRunning() {
				log.Error().Err(err).Msg("Ticker stream read error")
			}
			return
		}
		s.handleMessage(message)
	}
}

func (s *Stream) handleMessage(data []byte) {
	var push wsPush
	if err := json.Unmarshal(data, &push); err != nil {
		return
	}
	if push.Channel != "push.tickers" {
		return
	}

	for _, t := range push.Data {
		if t.Symbol == "" {
			continue
		}
		ticker := market.Ticker{
			Symbol:    t.Symbol,
			LastPrice: indicators.DecimalToFloat(t.LastPrice),
			Volume24:  indicators.DecimalToFloat(t.Volume24),
			Change24h: indicators.DecimalToFloat(t.RiseFallRate) * 100,
			Timestamp: push.Ts,
		}

		s.mu.Lock()
		s.prices[t.Symbol] = ticker
		s.mu.Unlock()

		if s.onTicker != nil {
			s.onTicker(ticker)
		}
	}
}

func (s *Stream) pingLoop() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.conn != nil {
				s.conn.WriteJSON(wsCommand{Method: "ping"})
			}
		case <-s.stopCh:
			return
		}
	}
}

// Latest returns the last pushed ticker for symbol
func (s *Stream) Latest(symbol string) (market.Ticker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.prices[symbol]
	return t, ok
}
