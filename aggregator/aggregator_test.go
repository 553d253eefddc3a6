package aggregator

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/coinbase-dtc/bridge/feed"
)

type fakeAdapter struct {
	name          string
	started       bool
	stopped       bool
	subscribes    []string
	unsubscribes  []string
	state         feed.ConnectionState
}

func (f *fakeAdapter) Name() string { return f.name }
func (f *fakeAdapter) Start()       { f.started = true }
func (f *fakeAdapter) Stop()        { f.stopped = true }
func (f *fakeAdapter) Subscribe(symbol string) error {
	f.subscribes = append(f.subscribes, symbol)
	return nil
}
func (f *fakeAdapter) Unsubscribe(symbol string) error {
	f.unsubscribes = append(f.unsubscribes, symbol)
	return nil
}
func (f *fakeAdapter) State() feed.ConnectionState { return f.state }

type fakeSink struct {
	trades []feed.NormalizedTrade
}

func (f *fakeSink) OnTrade(t feed.NormalizedTrade)               { f.trades = append(f.trades, t) }
func (f *fakeSink) OnQuote(feed.NormalizedQuote)                 {}
func (f *fakeSink) OnConnection(string, feed.ConnectionState)    {}
func (f *fakeSink) OnError(string, error)                        {}

func TestAddExchangeStartsAdapter(t *testing.T) {
	agg := New(zerolog.Nop(), &fakeSink{})
	a := &fakeAdapter{name: "COINBASE"}
	require.NoError(t, agg.AddExchange(a))
	require.True(t, a.started)

	err := agg.AddExchange(&fakeAdapter{name: "COINBASE"})
	require.Error(t, err)
}

func TestSubscribeSymbolReferenceCounts(t *testing.T) {
	agg := New(zerolog.Nop(), &fakeSink{})
	a := &fakeAdapter{name: "COINBASE"}
	require.NoError(t, agg.AddExchange(a))

	require.NoError(t, agg.SubscribeSymbol("BTC-USD", "COINBASE"))
	require.NoError(t, agg.SubscribeSymbol("BTC-USD", "COINBASE"))
	require.Equal(t, []string{"BTC-USD"}, a.subscribes) // second subscribe is a no-op on the adapter

	require.NoError(t, agg.UnsubscribeSymbol("BTC-USD", "COINBASE"))
	require.Empty(t, a.unsubscribes) // still one subscriber left

	require.NoError(t, agg.UnsubscribeSymbol("BTC-USD", "COINBASE"))
	require.Equal(t, []string{"BTC-USD"}, a.unsubscribes)
}

func TestSubscribeSymbolBroadcastsToAllExchanges(t *testing.T) {
	agg := New(zerolog.Nop(), &fakeSink{})
	a1 := &fakeAdapter{name: "COINBASE"}
	a2 := &fakeAdapter{name: "BINANCE"}
	require.NoError(t, agg.AddExchange(a1))
	require.NoError(t, agg.AddExchange(a2))

	require.NoError(t, agg.SubscribeSymbol("BTC-USD", ""))
	require.Equal(t, []string{"BTC-USD"}, a1.subscribes)
	require.Equal(t, []string{"BTC-USD"}, a2.subscribes)
}

func TestSubscribeSymbolUnknownExchange(t *testing.T) {
	agg := New(zerolog.Nop(), &fakeSink{})
	err := agg.SubscribeSymbol("BTC-USD", "KRAKEN")
	require.Error(t, err)
}

func TestRemoveExchangeStopsAdapter(t *testing.T) {
	agg := New(zerolog.Nop(), &fakeSink{})
	a := &fakeAdapter{name: "COINBASE"}
	require.NoError(t, agg.AddExchange(a))
	require.NoError(t, agg.RemoveExchange("COINBASE"))
	require.True(t, a.stopped)

	err := agg.RemoveExchange("COINBASE")
	require.Error(t, err)
}

func TestStatusReportsPerExchangeState(t *testing.T) {
	agg := New(zerolog.Nop(), &fakeSink{})
	a := &fakeAdapter{name: "COINBASE", state: feed.ConnectionUp}
	require.NoError(t, agg.AddExchange(a))

	status := agg.Status()
	require.Equal(t, feed.ConnectionUp, status["COINBASE"])
}

func TestTotalSubscriptionsCountsDistinctPairs(t *testing.T) {
	agg := New(zerolog.Nop(), &fakeSink{})
	a := &fakeAdapter{name: "COINBASE"}
	require.NoError(t, agg.AddExchange(a))

	require.NoError(t, agg.SubscribeSymbol("BTC-USD", "COINBASE"))
	require.NoError(t, agg.SubscribeSymbol("ETH-USD", "COINBASE"))
	require.Equal(t, 2, agg.TotalSubscriptions())
}
