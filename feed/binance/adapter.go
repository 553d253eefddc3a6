// Package binance implements the secondary feed adapter against
// Binance's public combined-stream websocket: aggregate trades and best
// bid/ask ticker updates, no authentication required.
package binance

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/coinbase-dtc/bridge/feed"
)

const (
	wsHost       = "stream.binance.com:9443"
	pingCheck    = 28 * time.Second
	exchangeName = "BINANCE"
)

type aggTradeEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Qty       string `json:"q"`
	TradeTime int64  `json:"T"`
	IsBuyer   bool   `json:"m"` // true: buyer is market maker, i.e. a sell-initiated trade
}

type bookTickerEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	BidPrice  string `json:"b"`
	BidQty    string `json:"B"`
	AskPrice  string `json:"a"`
	AskQty    string `json:"A"`
}

// combinedEnvelope is Binance's combined-stream wrapper: {"stream":
// "btcusdt@aggTrade", "data": {...}}.
type combinedEnvelope struct {
	Stream string          `json:"stream"`
	Data    json.RawMessage `json:"data"`
}

// Adapter is the secondary feed adapter, speaking Binance's public
// combined-stream websocket API.
type Adapter struct {
	sink   feed.Sink
	logger zerolog.Logger
	ctx    context.Context
	wsc    *feed.WebsocketController

	mu         sync.Mutex
	subscribed map[string]struct{}
	state      feed.ConnectionState
}

var _ feed.Adapter = (*Adapter)(nil)

// NewAdapter builds a Binance adapter with no symbols subscribed yet.
func NewAdapter(ctx context.Context, sink feed.Sink, logger zerolog.Logger) *Adapter {
	a := &Adapter{
		sink:       sink,
		logger:     logger.With().Str("exchange", exchangeName).Logger(),
		ctx:        ctx,
		subscribed: make(map[string]struct{}),
	}
	return a
}

func (a *Adapter) Name() string { return exchangeName }

func (a *Adapter) Start() {
	a.mu.Lock()
	symbols := make([]string, 0, len(a.subscribed))
	for s := range a.subscribed {
		symbols = append(symbols, s)
	}
	a.mu.Unlock()
	a.dial(symbols)
}

func (a *Adapter) Stop() {
	a.mu.Lock()
	a.subscribed = make(map[string]struct{})
	old := a.wsc
	a.wsc = nil
	a.mu.Unlock()
	if old != nil {
		old.Stop()
	}
}

func (a *Adapter) State() feed.ConnectionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Subscribe re-dials the combined stream with symbol added, since Binance
// expresses subscriptions as part of the stream URL rather than an
// in-band subscribe message for the combined-stream endpoint. Existing
// subscriptions are preserved across the reconnect.
func (a *Adapter) Subscribe(symbol string) error {
	a.mu.Lock()
	if _, ok := a.subscribed[symbol]; ok {
		a.mu.Unlock()
		return nil
	}
	a.subscribed[symbol] = struct{}{}
	symbols := make([]string, 0, len(a.subscribed))
	for s := range a.subscribed {
		symbols = append(symbols, s)
	}
	a.mu.Unlock()

	a.dial(symbols)
	return nil
}

func (a *Adapter) Unsubscribe(symbol string) error {
	a.mu.Lock()
	delete(a.subscribed, symbol)
	symbols := make([]string, 0, len(a.subscribed))
	for s := range a.subscribed {
		symbols = append(symbols, s)
	}
	a.mu.Unlock()

	a.dial(symbols)
	return nil
}

// dial tears down whatever controller is currently running (if any) and
// opens a fresh one against the combined stream URL built from symbols.
// The old controller must be stopped, not just dropped, because its
// maintain loop otherwise keeps reconnecting to the stale stream URL on
// a.ctx and keeps delivering duplicate trades/quotes alongside the new
// one.
func (a *Adapter) dial(symbols []string) {
	a.mu.Lock()
	old := a.wsc
	a.wsc = nil
	a.mu.Unlock()
	if old != nil {
		old.Stop()
	}

	if len(symbols) == 0 {
		return
	}

	streams := make([]string, 0, len(symbols)*2)
	for _, s := range symbols {
		lower := strings.ToLower(binanceWireSymbol(s))
		streams = append(streams, lower+"@aggTrade", lower+"@bookTicker")
	}

	wsURL := url.URL{
		Scheme:   "wss",
		Host:     wsHost,
		Path:     "/stream",
		RawQuery: "streams=" + strings.Join(streams, "/"),
	}

	wsc := feed.NewWebsocketController(
		a.ctx,
		exchangeName,
		wsURL,
		nil,
		a.onMessage,
		pingCheck,
		websocket.PingMessage,
		a.logger,
	)
	wsc.OnStateChange(func(state feed.ConnectionState) {
		a.mu.Lock()
		a.state = state
		a.mu.Unlock()
		a.sink.OnConnection(exchangeName, state)
	})

	a.mu.Lock()
	a.wsc = wsc
	a.mu.Unlock()
}

// binanceWireSymbol converts a canonical "BTC-USD" symbol to Binance's
// concatenated "BTCUSD" form.
func binanceWireSymbol(canonical string) string {
	return strings.ReplaceAll(canonical, "-", "")
}

func (a *Adapter) onMessage(_ int, _ *feed.WebsocketConnection, data []byte) {
	var env combinedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		a.logger.Error().Err(err).Msg("unable to unmarshal binance message")
		a.sink.OnError(exchangeName, err)
		return
	}

	switch {
	case strings.HasSuffix(env.Stream, "@aggTrade"):
		a.handleTrade(env.Data)
	case strings.HasSuffix(env.Stream, "@bookTicker"):
		a.handleBookTicker(env.Data)
	}
}

func (a *Adapter) handleTrade(raw json.RawMessage) {
	var ev aggTradeEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		a.logger.Error().Err(err).Msg("unable to unmarshal aggTrade event")
		return
	}
	price, err := strconv.ParseFloat(ev.Price, 64)
	if err != nil {
		return
	}
	qty, err := strconv.ParseFloat(ev.Qty, 64)
	if err != nil {
		return
	}
	side := feed.SideBuy
	if ev.IsBuyer {
		side = feed.SideSell
	}
	a.sink.OnTrade(feed.NormalizedTrade{
		Symbol:      canonicalSymbol(ev.Symbol),
		Exchange:    exchangeName,
		TimestampNS: ev.TradeTime * int64(time.Millisecond),
		Price:       price,
		Size:        qty,
		Side:        side,
	})
}

func (a *Adapter) handleBookTicker(raw json.RawMessage) {
	var ev bookTickerEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		a.logger.Error().Err(err).Msg("unable to unmarshal bookTicker event")
		return
	}
	bidPrice, _ := strconv.ParseFloat(ev.BidPrice, 64)
	bidQty, _ := strconv.ParseFloat(ev.BidQty, 64)
	askPrice, _ := strconv.ParseFloat(ev.AskPrice, 64)
	askQty, _ := strconv.ParseFloat(ev.AskQty, 64)

	a.sink.OnQuote(feed.NormalizedQuote{
		Symbol:      canonicalSymbol(ev.Symbol),
		Exchange:    exchangeName,
		TimestampNS: time.Now().UnixNano(),
		BidPrice:    bidPrice,
		BidSize:     bidQty,
		AskPrice:    askPrice,
		AskSize:     askQty,
	})
}

// canonicalSymbol is a best-effort reverse of binanceWireSymbol: Binance
// does not delimit base/quote on the wire, so this only recognizes the
// quote currencies USDC, USDT, USD and EUR.
func canonicalSymbol(wireSymbol string) string {
	for _, quote := range []string{"USDC", "USDT", "USD", "EUR"} {
		if strings.HasSuffix(wireSymbol, quote) && len(wireSymbol) > len(quote) {
			base := wireSymbol[:len(wireSymbol)-len(quote)]
			return base + "-" + quote
		}
	}
	return wireSymbol
}
