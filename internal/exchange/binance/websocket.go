package binance

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/your-org/momentum-growth-bot/pkg/logger"
)

var (
	// defaultStreamURL can be overridden for testing.
	defaultStreamURL = "wss://stream.binance.com:9443/ws/!miniTicker@arr"
)

// SetStreamURL sets the websocket stream URL. Intended for tests.
func SetStreamURL(u string) {
	defaultStreamURL = u
}

const (
	pingInterval     = 30 * time.Second
	readTimeout      = 90 * time.Second
	maxReconnectWait = 60 * time.Second
)

// TickerHandler receives one price tick.
type TickerHandler func(symbol string, price float64)

// TickerStream maintains a persistent miniticker subscription and forwards
// every price update to the handler. It reconnects with exponential backoff
// when the connection drops, so consumers only ever observe stale prices,
// never errors.
type TickerStream struct {
	quoteSuffix string
	handler     TickerHandler
}

// NewTickerStream creates a stream that forwards ticks for symbols quoted in
// quoteSuffix (e.g. "USDT"). An empty suffix forwards every symbol.
func NewTickerStream(quoteSuffix string, handler TickerHandler) *TickerStream {
	return &TickerStream{quoteSuffix: quoteSuffix, handler: handler}
}

// Run connects and consumes ticks until ctx is cancelled. Connection
// failures are retried with exponential backoff; Run only returns on
// cancellation.
func (s *TickerStream) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		err := s.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		logger.Errorf("[WS] Ticker stream disconnected: %v. Reconnecting in %v...", err, backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

// consume dials the stream and processes messages until an error occurs.
func (s *TickerStream) consume(ctx context.Context) error {
	logger.Infof("[WS] Connecting to %s", defaultStreamURL)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, defaultStreamURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Info("[WS] Ticker stream connected")

	// Close the connection when the context is cancelled so the blocked
	// ReadMessage below returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()
	go func() {
		for {
			select {
			case <-pingTicker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return err
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.handleMessage(message)
	}
}

func (s *TickerStream) handleMessage(message []byte) {
	var tickers []miniTicker
	if err := json.Unmarshal(message, &tickers); err != nil {
		// Single-object events (subscription acks, errors) are not ticks.
		logger.Debugf("[WS] Ignoring non-ticker message: %s", message)
		return
	}

	for _, t := range tickers {
		if t.Symbol == "" || t.LastPrice == "" {
			continue
		}
		if s.quoteSuffix != "" && !strings.HasSuffix(t.Symbol, s.quoteSuffix) {
			continue
		}
		price, err := strconv.ParseFloat(t.LastPrice, 64)
		if err != nil {
			logger.Warnf("[WS] Invalid price %q for symbol %s", t.LastPrice, t.Symbol)
			continue
		}
		s.handler(t.Symbol, price)
	}
}
