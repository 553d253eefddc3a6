package bridge

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/coinbase-dtc/bridge/aggregator"
	"github.com/coinbase-dtc/bridge/dtc"
	"github.com/coinbase-dtc/bridge/feed"
	"github.com/coinbase-dtc/bridge/platform"
	"github.com/coinbase-dtc/bridge/registry"
	"github.com/coinbase-dtc/bridge/session"
)

// fakeFeedAdapter is a no-op feed.Adapter for driving the aggregator
// without a real exchange connection.
type fakeFeedAdapter struct {
	name         string
	subscribes   []string
	unsubscribes []string
}

func (f *fakeFeedAdapter) Name() string { return f.name }
func (f *fakeFeedAdapter) Start()       {}
func (f *fakeFeedAdapter) Stop()        {}
func (f *fakeFeedAdapter) Subscribe(symbol string) error {
	f.subscribes = append(f.subscribes, symbol)
	return nil
}
func (f *fakeFeedAdapter) Unsubscribe(symbol string) error {
	f.unsubscribes = append(f.unsubscribes, symbol)
	return nil
}
func (f *fakeFeedAdapter) State() feed.ConnectionState { return feed.ConnectionUp }

func newTestServer(t *testing.T, cfg ServerConfig) (*Server, *aggregator.Aggregator, *fakeFeedAdapter) {
	t.Helper()
	catalog := registry.NewSeededCatalog(registry.DefaultSeed())
	clock := platform.NewFixedClock(time.Now())
	srv := New(cfg, zerolog.Nop(), clock, catalog, nil)
	agg := aggregator.New(zerolog.Nop(), srv)
	srv.SetAggregator(agg)
	adapter := &fakeFeedAdapter{name: "COINBASE"}
	require.NoError(t, agg.AddExchange(adapter))
	return srv, agg, adapter
}

func newTestSession(srv *Server) (*session.Session, *platform.FakeTransport) {
	transport := platform.NewFakeTransport()
	sess := session.New(transport, srv.clock)
	srv.mu.Lock()
	srv.sessions[sess.ID] = sess
	srv.mu.Unlock()
	return sess, transport
}

func lastDecoded(t *testing.T, transport *platform.FakeTransport) dtc.Message {
	t.Helper()
	written := transport.Written()
	require.NotEmpty(t, written)
	// Multiple frames may have accumulated; decode only the last one.
	for len(written) > 0 {
		n, ok, err := dtc.PeekFrameLength(written)
		require.Nil(t, err)
		require.True(t, ok)
		frame := written[:n]
		rest := written[n:]
		if len(rest) == 0 {
			msg, decErr := dtc.Decode(frame)
			require.Nil(t, decErr)
			return msg
		}
		written = rest
	}
	t.Fatal("no frames found")
	return nil
}

// TestHandleLogonAccepted covers scenario E1: a valid logon receives a
// successful LogonResponse and moves the session to Authenticated.
func TestHandleLogonAccepted(t *testing.T) {
	srv, _, _ := newTestServer(t, ServerConfig{ServerName: "test-bridge", HeartbeatInterval: 15 * time.Second})
	sess, transport := newTestSession(srv)

	frame, err := dtc.Encode(dtc.LogonRequest{ProtocolVersion: dtc.ProtocolVersion, Username: "trader"})
	require.NoError(t, err)

	ok := srv.handleFrame(sess, frame, zerolog.Nop())
	require.True(t, ok)
	require.Equal(t, session.Authenticated, sess.State())

	resp, ok := lastDecoded(t, transport).(dtc.LogonResponse)
	require.True(t, ok)
	require.EqualValues(t, 1, resp.Result)
	require.Equal(t, "test-bridge", resp.ServerName)
}

// TestHandleLogonRejectedInvalidCredentials covers the RequireAuth path:
// a bad password is rejected and the connection is torn down.
func TestHandleLogonRejectedInvalidCredentials(t *testing.T) {
	srv, _, _ := newTestServer(t, ServerConfig{
		HeartbeatInterval: 15 * time.Second,
		RequireAuth:       true,
		ValidUsername:     "trader",
		ValidPassword:     "correct-horse",
	})
	sess, transport := newTestSession(srv)

	frame, err := dtc.Encode(dtc.LogonRequest{ProtocolVersion: dtc.ProtocolVersion, Username: "trader", Password: "wrong"})
	require.NoError(t, err)

	ok := srv.handleFrame(sess, frame, zerolog.Nop())
	require.False(t, ok)

	resp, ok := lastDecoded(t, transport).(dtc.LogonResponse)
	require.True(t, ok)
	require.EqualValues(t, 0, resp.Result)
}

// TestTradeFanOutTranslatesPerSessionSymbolIDs covers E2/E4: a broadcast
// trade reaches every subscribed session with that session's own
// session-local symbol id substituted for the global canonical symbol.
func TestTradeFanOutTranslatesPerSessionSymbolIDs(t *testing.T) {
	srv, _, adapter := newTestServer(t, ServerConfig{HeartbeatInterval: 15 * time.Second})

	sessA, transportA := newTestSession(srv)
	sessB, transportB := newTestSession(srv)

	// sessA subscribes to a throwaway symbol first so its session-local id
	// for BTC-USDC ends up as 2, while sessB's is 1 - this is what proves
	// the translation is genuinely per session rather than global.
	subscribe := func(sess *session.Session, symbol string) {
		req, err := dtc.Encode(dtc.MarketDataRequest{RequestAction: dtc.RequestActionSubscribe, Symbol: symbol})
		require.NoError(t, err)
		require.True(t, srv.handleFrame(sess, req, zerolog.Nop()))
	}
	subscribe(sessA, "ETH-USDC")
	subscribe(sessA, "BTC-USDC")
	subscribe(sessB, "BTC-USDC")

	require.Contains(t, adapter.subscribes, "BTC-USDC")

	srv.OnTrade(feed.NormalizedTrade{
		Symbol:      "BTC-USDC",
		Exchange:    "COINBASE",
		TimestampNS: time.Now().UnixNano(),
		Price:       65000.5,
		Size:        0.25,
		Side:        feed.SideBuy,
	})

	tradeA, ok := lastDecoded(t, transportA).(dtc.MarketDataUpdateTrade)
	require.True(t, ok)
	require.EqualValues(t, 2, tradeA.SymbolID)
	require.Equal(t, 2.0, tradeA.AtBidOrAsk)

	tradeB, ok := lastDecoded(t, transportB).(dtc.MarketDataUpdateTrade)
	require.True(t, ok)
	require.EqualValues(t, 1, tradeB.SymbolID)
}

// TestHeartbeatExpiryDisconnectsSession covers E3: a session that stops
// sending heartbeats past 2x the configured interval is disconnected by
// the heartbeat monitor sweep.
func TestHeartbeatExpiryDisconnectsSession(t *testing.T) {
	srv, _, _ := newTestServer(t, ServerConfig{HeartbeatInterval: 10 * time.Second})
	sess, transport := newTestSession(srv)
	_, _ = sess.Transition(session.EventLogonValid)

	clock := srv.clock.(*platform.FixedClock)
	clock.Advance(21 * time.Second)

	srv.scanHeartbeats()

	require.Equal(t, session.Disconnected, sess.State())
	require.Error(t, transport.WriteAll([]byte{0}, time.Now().Add(time.Second)))
}

// TestHandleConnDrainsFramesSplitAcrossReads covers E6: two DTC frames
// delivered to ReadFrames across separate partial reads (the first read
// stops mid-header) are both eventually recovered and dispatched in
// order, with no byte lost at the read boundary.
func TestHandleConnDrainsFramesSplitAcrossReads(t *testing.T) {
	srv, _, _ := newTestServer(t, ServerConfig{HeartbeatInterval: 15 * time.Second})
	sess, transport := newTestSession(srv)

	logon, err := dtc.Encode(dtc.LogonRequest{ProtocolVersion: dtc.ProtocolVersion, Username: "trader"})
	require.NoError(t, err)
	heartbeat, err := dtc.Encode(dtc.Heartbeat{NumDrops: 0, CurrentDateTime: 42})
	require.NoError(t, err)
	full := append(append([]byte{}, logon...), heartbeat...)

	// Split mid-header of the first frame: feed one byte, then the rest.
	transport.Feed(full[:1])
	frames, err := sess.ReadFrames(time.Now().Add(time.Second))
	require.NoError(t, err)
	require.Empty(t, frames, "a single header byte must not yield a complete frame")

	transport.Feed(full[1:])
	frames, err = sess.ReadFrames(time.Now().Add(time.Second))
	require.NoError(t, err)
	require.Len(t, frames, 2)

	require.True(t, srv.handleFrame(sess, frames[0], zerolog.Nop()))
	require.Equal(t, session.Authenticated, sess.State())
	require.True(t, srv.handleFrame(sess, frames[1], zerolog.Nop()))
}
