package coinbase

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/coinbase-dtc/bridge/feed"
)

const (
	wsHost      = "advanced-trade-ws.coinbase.com"
	pingCheck   = 28 * time.Second
	exchangeName = "COINBASE"
)

// subscriptionMsg mirrors Coinbase's Advanced Trade websocket
// subscribe/unsubscribe envelope.
type subscriptionMsg struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channel    string   `json:"channel"`
}

// envelope is the outer shape of every inbound Advanced Trade message;
// Events is decoded again per-channel once Channel is known.
type envelope struct {
	Channel string          `json:"channel"`
	Events  json.RawMessage `json:"events"`
}

type marketTradesEvent struct {
	Type   string `json:"type"`
	Trades []struct {
		ProductID string `json:"product_id"`
		Price     string `json:"price"`
		Size      string `json:"size"`
		Time      string `json:"time"`
		Side      string `json:"side"`
	} `json:"trades"`
}

type level2Event struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
	Updates   []struct {
		Side     string `json:"side"`
		PriceLvl string `json:"price_level"`
		Qty      string `json:"new_quantity"`
	} `json:"updates"`
}

// Adapter is the primary feed adapter, speaking Coinbase's Advanced
// Trade websocket API over a JWT-authenticated connection.
type Adapter struct {
	sink   feed.Sink
	logger zerolog.Logger
	wsc    *feed.WebsocketController

	mu          sync.Mutex
	subscribed  map[string]struct{}
	state       feed.ConnectionState
	bestBidAsk  map[string]*bookState

	tokenForSubscribe func() (string, error)
}

type bookState struct {
	mu       sync.Mutex
	bidPrice float64
	bidSize  float64
	askPrice float64
	askSize  float64
}

var _ feed.Adapter = (*Adapter)(nil)

// NewAdapter builds a Coinbase adapter. tokenForSubscribe, when non-nil,
// is called on every Subscribe and on every (re)connect's subscription
// replay to obtain the JWT carried in the
// subscribe message's "jwt" field, as Advanced Trade's websocket auth
// requires; a nil func leaves subscriptions unauthenticated (public
// channels only).
func NewAdapter(ctx context.Context, sink feed.Sink, logger zerolog.Logger, tokenForSubscribe func() (string, error)) *Adapter {
	a := &Adapter{
		sink:       sink,
		logger:     logger.With().Str("exchange", exchangeName).Logger(),
		subscribed: make(map[string]struct{}),
		bestBidAsk: make(map[string]*bookState),
	}

	wsURL := url.URL{Scheme: "wss", Host: wsHost}
	a.wsc = feed.NewWebsocketController(
		ctx,
		exchangeName,
		wsURL,
		nil,
		a.onMessage,
		pingCheck,
		websocket.PingMessage,
		a.logger,
	)
	a.wsc.OnStateChange(a.onStateChange)
	a.tokenForSubscribe = tokenForSubscribe
	a.wsc.SetSubscriptionRefresher(a.buildSubscriptionMsgs)
	return a
}

// buildSubscriptionMsgs replays the authoritative a.subscribed book as a
// fresh set of subscribe messages, with a newly minted jwt where
// authentication is configured. The WebsocketController calls this on
// every (re)connect, so a dropped connection comes back subscribed to
// exactly what it was subscribed to before the drop, per symbol added or
// removed since.
func (a *Adapter) buildSubscriptionMsgs() []interface{} {
	a.mu.Lock()
	symbols := make([]string, 0, len(a.subscribed))
	for s := range a.subscribed {
		symbols = append(symbols, s)
	}
	a.mu.Unlock()
	if len(symbols) == 0 {
		return nil
	}

	var jwt string
	if a.tokenForSubscribe != nil {
		token, err := a.tokenForSubscribe()
		if err != nil {
			a.logger.Error().Err(err).Msg("failed to mint jwt for subscription replay")
		} else {
			jwt = token
		}
	}

	msgs := make([]interface{}, 0, 2)
	for _, channel := range []string{"market_trades", "level2"} {
		msg := map[string]interface{}{
			"type":        "subscribe",
			"product_ids": symbols,
			"channel":     channel,
		}
		if jwt != "" {
			msg["jwt"] = jwt
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func (a *Adapter) Name() string { return exchangeName }

func (a *Adapter) Start() { a.wsc.StartConnections() }

func (a *Adapter) Stop() {
	a.mu.Lock()
	a.subscribed = make(map[string]struct{})
	a.mu.Unlock()
	a.wsc.Stop()
}

func (a *Adapter) State() feed.ConnectionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Adapter) onStateChange(state feed.ConnectionState) {
	a.mu.Lock()
	a.state = state
	a.mu.Unlock()
	a.sink.OnConnection(exchangeName, state)
}

// Subscribe opens market_trades and level2 channels for symbol on its
// underlying connection. Coinbase uses a dash-delimited product id
// identical to this bridge's canonical symbol form, so symbol is sent
// unchanged; it is not validated here.
func (a *Adapter) Subscribe(symbol string) error {
	a.mu.Lock()
	if _, ok := a.subscribed[symbol]; ok {
		a.mu.Unlock()
		return nil
	}
	a.subscribed[symbol] = struct{}{}
	a.bestBidAsk[symbol] = &bookState{}
	a.mu.Unlock()

	var jwt string
	if a.tokenForSubscribe != nil {
		token, err := a.tokenForSubscribe()
		if err != nil {
			return err
		}
		jwt = token
	}

	for _, channel := range []string{"market_trades", "level2"} {
		msg := map[string]interface{}{
			"type":        "subscribe",
			"product_ids": []string{symbol},
			"channel":     channel,
		}
		if jwt != "" {
			msg["jwt"] = jwt
		}
		if err := a.wsc.WriteFirst(msg); err != nil {
			return err
		}
	}
	return nil
}

// Unsubscribe closes out symbol's channels. Coinbase tolerates
// unsubscribe-when-not-subscribed, so this never errors on a miss.
func (a *Adapter) Unsubscribe(symbol string) error {
	a.mu.Lock()
	delete(a.subscribed, symbol)
	delete(a.bestBidAsk, symbol)
	a.mu.Unlock()

	for _, channel := range []string{"market_trades", "level2"} {
		msg := map[string]interface{}{
			"type":        "unsubscribe",
			"product_ids": []string{symbol},
			"channel":     channel,
		}
		if err := a.wsc.WriteFirst(msg); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) onMessage(_ int, _ *feed.WebsocketConnection, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		a.logger.Error().Err(err).Msg("unable to unmarshal coinbase message")
		a.sink.OnError(exchangeName, err)
		return
	}

	switch env.Channel {
	case "market_trades":
		a.handleTrades(env.Events)
	case "l2_data":
		a.handleLevel2(env.Events)
	case "subscriptions", "heartbeats":
		// acknowledgement/keepalive frames carry nothing to forward
	default:
	}
}

func (a *Adapter) handleTrades(raw json.RawMessage) {
	var events []marketTradesEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		a.logger.Error().Err(err).Msg("unable to unmarshal market_trades events")
		return
	}
	for _, ev := range events {
		for _, t := range ev.Trades {
			price, err := strconv.ParseFloat(t.Price, 64)
			if err != nil {
				continue
			}
			size, err := strconv.ParseFloat(t.Size, 64)
			if err != nil {
				continue
			}
			ts, err := time.Parse(time.RFC3339, t.Time)
			if err != nil {
				ts = time.Now().UTC()
			}
			side := feed.SideUnspecified
			switch t.Side {
			case "BUY":
				side = feed.SideBuy
			case "SELL":
				side = feed.SideSell
			}
			a.sink.OnTrade(feed.NormalizedTrade{
				Symbol:      t.ProductID,
				Exchange:    exchangeName,
				TimestampNS: ts.UnixNano(),
				Price:       price,
				Size:        size,
				Side:        side,
			})
		}
	}
}

func (a *Adapter) handleLevel2(raw json.RawMessage) {
	var events []level2Event
	if err := json.Unmarshal(raw, &events); err != nil {
		a.logger.Error().Err(err).Msg("unable to unmarshal level2 events")
		return
	}
	for _, ev := range events {
		a.mu.Lock()
		book, ok := a.bestBidAsk[ev.ProductID]
		a.mu.Unlock()
		if !ok {
			continue
		}

		book.mu.Lock()
		for _, u := range ev.Updates {
			price, err := strconv.ParseFloat(u.PriceLvl, 64)
			if err != nil {
				continue
			}
			qty, err := strconv.ParseFloat(u.Qty, 64)
			if err != nil {
				continue
			}
			switch u.Side {
			case "bid":
				book.bidPrice, book.bidSize = price, qty
			case "offer", "ask":
				book.askPrice, book.askSize = price, qty
			}
		}
		quote := feed.NormalizedQuote{
			Symbol:      ev.ProductID,
			Exchange:    exchangeName,
			TimestampNS: time.Now().UnixNano(),
			BidPrice:    book.bidPrice,
			BidSize:     book.bidSize,
			AskPrice:    book.askPrice,
			AskSize:     book.askSize,
		}
		book.mu.Unlock()

		a.sink.OnQuote(quote)
	}
}
