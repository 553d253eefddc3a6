package binance

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
	return &Adapter{sink: sink, logger: zerolog.Nop(), subscribed: make(map[string]struct{})}
}

func TestCanonicalSymbol(t *testing.T) {
	require.Equal(t, "BTC-USDT", canonicalSymbol("BTCUSDT"))
	require.Equal(t, "ETH-USDC", canonicalSymbol("ETHUSDC"))
	require.Equal(t, "UNKNOWN", canonicalSymbol("UNKNOWN"))
}

func TestBinanceWireSymbol(t *testing.T) {
	require.Equal(t, "BTCUSDT", binanceWireSymbol("BTC-USDT"))
}

func TestHandleTradeEmitsNormalizedTrade(t *testing.T) {
	sink := &fakeSink{}
	a := newTestAdapter(sink)

	raw := []byte(`{"e":"aggTrade","s":"BTCUSDT","p":"65000.5","q":"0.01","T":1735689600000,"m":false}`)
	a.handleTrade(raw)

	require.Len(t, sink.trades, 1)
	require.Equal(t, "BTC-USDT", sink.trades[0].Symbol)
	require.Equal(t, 65000.5, sink.trades[0].Price)
	require.Equal(t, feed.SideBuy, sink.trades[0].Side)
}

func TestHandleBookTickerEmitsNormalizedQuote(t *testing.T) {
	sink := &fakeSink{}
	a := newTestAdapter(sink)

	raw := []byte(`{"e":"bookTicker","s":"BTCUSDT","b":"64999.0","B":"1.5","a":"65001.0","A":"2.0"}`)
	a.handleBookTicker(raw)

	require.Len(t, sink.quotes, 1)
	q := sink.quotes[0]
	require.Equal(t, "BTC-USDT", q.Symbol)
	require.Equal(t, 64999.0, q.BidPrice)
	require.Equal(t, 65001.0, q.AskPrice)
}

func TestOnMessageRoutesByStreamSuffix(t *testing.T) {
	sink := &fakeSink{}
	a := newTestAdapter(sink)

	msg := []byte(`{"stream":"btcusdt@aggTrade","data":{"e":"aggTrade","s":"BTCUSDT","p":"1","q":"1","T":1,"m":false}}`)
	a.onMessage(0, nil, msg)
	require.Len(t, sink.trades, 1)

	msg2 := []byte(`{"stream":"btcusdt@bookTicker","data":{"e":"bookTicker","s":"BTCUSDT","b":"1","B":"1","a":"1","A":"1"}}`)
	a.onMessage(0, nil, msg2)
	require.Len(t, sink.quotes, 1)
}
