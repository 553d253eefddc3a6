package coinbase

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/coinbase-dtc/bridge/feed"
)

type fakeSink struct {
	trades      []feed.NormalizedTrade
	quotes      []feed.NormalizedQuote
	connections []feed.ConnectionState
	errors      []error
}

func (f *fakeSink) OnTrade(t feed.NormalizedTrade)               { f.trades = append(f.trades, t) }
func (f *fakeSink) OnQuote(q feed.NormalizedQuote)                { f.quotes = append(f.quotes, q) }
func (f *fakeSink) OnConnection(_ string, s feed.ConnectionState) { f.connections = append(f.connections, s) }
func (f *fakeSink) OnError(_ string, err error)                   { f.errors = append(f.errors, err) }

func newTestAdapter(sink feed.Sink) *Adapter {
	return &Adapter{
		sink:       sink,
		logger:     zerolog.Nop(),
		subscribed: make(map[string]struct{}),
		bestBidAsk: make(map[string]*bookState),
	}
}

func TestHandleTradesEmitsNormalizedTrade(t *testing.T) {
	sink := &fakeSink{}
	a := newTestAdapter(sink)

	raw := []byte(`[{"type":"update","trades":[{"product_id":"BTC-USD","price":"65000.5","size":"0.01","time":"2026-01-01T00:00:00Z","side":"BUY"}]}]`)
	a.handleTrades(raw)

	require.Len(t, sink.trades, 1)
	require.Equal(t, "BTC-USD", sink.trades[0].Symbol)
	require.Equal(t, exchangeName, sink.trades[0].Exchange)
	require.Equal(t, 65000.5, sink.trades[0].Price)
	require.Equal(t, 0.01, sink.trades[0].Size)
	require.Equal(t, feed.SideBuy, sink.trades[0].Side)
}

func TestHandleLevel2EmitsNormalizedQuote(t *testing.T) {
	sink := &fakeSink{}
	a := newTestAdapter(sink)
	a.bestBidAsk["BTC-USD"] = &bookState{}

	raw := []byte(`[{"type":"snapshot","product_id":"BTC-USD","updates":[{"side":"bid","price_level":"64999.0","new_quantity":"1.5"},{"side":"offer","price_level":"65001.0","new_quantity":"2.0"}]}]`)
	a.handleLevel2(raw)

	require.Len(t, sink.quotes, 1)
	q := sink.quotes[0]
	require.Equal(t, "BTC-USD", q.Symbol)
	require.Equal(t, 64999.0, q.BidPrice)
	require.Equal(t, 1.5, q.BidSize)
	require.Equal(t, 65001.0, q.AskPrice)
	require.Equal(t, 2.0, q.AskSize)
}

func TestHandleLevel2IgnoresUnsubscribedProduct(t *testing.T) {
	sink := &fakeSink{}
	a := newTestAdapter(sink)

	raw := []byte(`[{"type":"snapshot","product_id":"ETH-USD","updates":[{"side":"bid","price_level":"1.0","new_quantity":"1.0"}]}]`)
	a.handleLevel2(raw)

	require.Empty(t, sink.quotes)
}

func TestOnMessageRoutesByChannel(t *testing.T) {
	sink := &fakeSink{}
	a := newTestAdapter(sink)
	a.bestBidAsk["BTC-USD"] = &bookState{}

	tradeMsg := []byte(`{"channel":"market_trades","events":[{"type":"update","trades":[{"product_id":"BTC-USD","price":"1","size":"1","time":"2026-01-01T00:00:00Z","side":"BUY"}]}]}`)
	a.onMessage(0, nil, tradeMsg)
	require.Len(t, sink.trades, 1)

	heartbeat := []byte(`{"channel":"heartbeats","events":[]}`)
	a.onMessage(0, nil, heartbeat)
	require.Len(t, sink.trades, 1)
}
