package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/balkhaev/trader-api/internal/model"
)

// StreamConfig configures the public-feed WebSocket client.
type StreamConfig struct {
	// URL of the public spot stream, e.g. "wss://stream.bybit.com/v5/public/spot".
	URL string

	// Symbols to subscribe ticker and trade topics for.
	Symbols []string

	// Reconnect backoff bounds. The delay doubles per failed attempt up to
	// MaxReconnectDelay; after MaxAttempts consecutive failures the stream
	// gives up and Run returns an error.
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	MaxAttempts       int

	// TradeBuffer is the per-symbol trade ring capacity.
	TradeBuffer int
}

func (c *StreamConfig) defaults() {
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = 30 * time.Second
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 10
	}
	if c.TradeBuffer == 0 {
		c.TradeBuffer = 4096
	}
}

// wire envelope and payloads for the public spot stream.
type streamMessage struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

type tickerPayload struct {
	Symbol       string `json:"symbol"`
	LastPrice    string `json:"lastPrice"`
	Volume24h    string `json:"volume24h"`
	Turnover24h  string `json:"turnover24h"`
	Price24hPcnt string `json:"price24hPcnt"`
}

type tradePayload struct {
	Symbol string `json:"s"`
	Price  string `json:"p"`
	Qty    string `json:"v"`
	TimeMs int64  `json:"T"`
}

// Stream keeps a live ticker cache and a bounded ring of recent trades per
// symbol, fed by the public WebSocket. It reconnects with exponential backoff
// and surfaces a hard error only after the attempt budget is spent.
type Stream struct {
	cfg StreamConfig

	mu      sync.RWMutex
	tickers map[string]model.Ticker
	trades  map[string]*tradeRing

	// OnReconnect is called on every reconnection attempt, for metrics.
	OnReconnect func()
}

// NewStream creates a stream client; Run must be started for data to flow.
func NewStream(cfg StreamConfig) *Stream {
	cfg.defaults()
	s := &Stream{
		cfg:     cfg,
		tickers: make(map[string]model.Ticker, len(cfg.Symbols)),
		trades:  make(map[string]*tradeRing, len(cfg.Symbols)),
	}
	for _, sym := range cfg.Symbols {
		s.trades[sym] = newTradeRing(cfg.TradeBuffer)
	}
	return s
}

// LastTicker returns the cached ticker for symbol, if one has arrived.
func (s *Stream) LastTicker(symbol string) (model.Ticker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickers[symbol]
	return t, ok
}

// DrainTrades pops all buffered trades for symbol, oldest first.
func (s *Stream) DrainTrades(symbol string) []Trade {
	s.mu.RLock()
	ring := s.trades[symbol]
	s.mu.RUnlock()
	if ring == nil {
		return nil
	}
	out := make([]Trade, 0, ring.len())
	for {
		t, ok := ring.pop()
		if !ok {
			return out
		}
		out = append(out, t)
	}
}

// SecondCandles drains symbol's buffered trades and folds them into
// 1-second candles.
func (s *Stream) SecondCandles(symbol string) []model.Candle {
	return ResampleSeconds(s.DrainTrades(symbol))
}

// Run connects and consumes until ctx is cancelled. Returns nil on clean
// shutdown, an error when the reconnect budget is exhausted.
func (s *Stream) Run(ctx context.Context) error {
	delay := s.cfg.ReconnectDelay
	failures := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := s.runOnce(ctx)
		if err == nil {
			return nil
		}

		failures++
		if failures >= s.cfg.MaxAttempts {
			return fmt.Errorf("stream: giving up after %d attempts: %w", failures, err)
		}
		log.Printf("[stream] disconnected (%v), reconnecting in %s...", err, delay)
		if s.OnReconnect != nil {
			s.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > s.cfg.MaxReconnectDelay {
			delay = s.cfg.MaxReconnectDelay
		}
	}
}

func (s *Stream) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := s.subscribe(conn); err != nil {
		return err
	}
	log.Printf("[stream] connected to %s, %d symbols", s.cfg.URL, len(s.cfg.Symbols))

	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}
		s.handle(raw)
	}
}

func (s *Stream) subscribe(conn *websocket.Conn) error {
	args := make([]string, 0, 2*len(s.cfg.Symbols))
	for _, sym := range s.cfg.Symbols {
		args = append(args, "tickers."+sym, "publicTrade."+sym)
	}
	return conn.WriteJSON(map[string]any{"op": "subscribe", "args": args})
}

func (s *Stream) handle(raw []byte) {
	var msg streamMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Topic == "" {
		return
	}

	switch {
	case len(msg.Topic) > 8 && msg.Topic[:8] == "tickers.":
		var p tickerPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil || p.Symbol == "" {
			log.Printf("[stream] bad ticker payload: %v", err)
			return
		}
		s.mu.Lock()
		s.tickers[p.Symbol] = model.Ticker{
			Symbol:      p.Symbol,
			LastPrice:   parseFloat(p.LastPrice),
			Volume24h:   parseFloat(p.Volume24h),
			Turnover24h: parseFloat(p.Turnover24h),
			Change24h:   parseFloat(p.Price24hPcnt) * 100,
		}
		s.mu.Unlock()

	case len(msg.Topic) > 12 && msg.Topic[:12] == "publicTrade.":
		var payload []tradePayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			log.Printf("[stream] bad trade payload: %v", err)
			return
		}
		for _, p := range payload {
			s.mu.RLock()
			ring := s.trades[p.Symbol]
			s.mu.RUnlock()
			if ring == nil {
				continue
			}
			ring.push(Trade{
				Symbol: p.Symbol,
				Price:  parseFloat(p.Price),
				Qty:    parseFloat(p.Qty),
				At:     time.Unix(0, p.TimeMs*int64(time.Millisecond)).UTC(),
			})
		}
	}
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
