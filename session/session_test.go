package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coinbase-dtc/bridge/dtc"
	"github.com/coinbase-dtc/bridge/platform"
)

func TestStateMachineLogonSuccess(t *testing.T) {
	next, ok := Apply(Connected, EventLogonValid)
	require.True(t, ok)
	require.Equal(t, Authenticated, next)
}

func TestStateMachineLogonFailure(t *testing.T) {
	next, ok := Apply(Connected, EventLogonInvalid)
	require.True(t, ok)
	require.Equal(t, Disconnecting, next)
}

func TestStateMachineRejectsIllegalTransition(t *testing.T) {
	_, ok := Apply(Disconnecting, EventSubscribeRequest)
	require.False(t, ok)
}

func TestStateMachineSubscribeCycle(t *testing.T) {
	next, ok := Apply(Authenticated, EventSubscribeRequest)
	require.True(t, ok)
	require.Equal(t, Subscribed, next)

	next, ok = Apply(Subscribed, EventUnsubscribeRequest)
	require.True(t, ok)
	require.Equal(t, Subscribed, next)
}

func TestSessionTransitionUpdatesState(t *testing.T) {
	s := New(platform.NewFakeTransport(), platform.NewFixedClock(time.Now()))
	next, err := s.Transition(EventLogonValid)
	require.NoError(t, err)
	require.Equal(t, Authenticated, next)
	require.Equal(t, Authenticated, s.State())
}

func TestSessionTransitionRejectsInvalid(t *testing.T) {
	s := New(platform.NewFakeTransport(), platform.NewFixedClock(time.Now()))
	_, err := s.Transition(EventSubscribeRequest)
	require.Error(t, err)
	require.Equal(t, Connected, s.State())
}

func TestSessionSendEncodesAndWrites(t *testing.T) {
	transport := platform.NewFakeTransport()
	s := New(transport, platform.NewFixedClock(time.Now()))

	err := s.Send(dtc.Heartbeat{NumDrops: 0, CurrentDateTime: 123}, time.Now().Add(time.Second))
	require.NoError(t, err)

	written := transport.Written()
	require.NotEmpty(t, written)
	decoded, decErr := dtc.Decode(written)
	require.Nil(t, decErr)
	require.Equal(t, dtc.Heartbeat{NumDrops: 0, CurrentDateTime: 123}, decoded)
}

func TestSessionReadFramesDrainsMultipleFrames(t *testing.T) {
	transport := platform.NewFakeTransport()
	s := New(transport, platform.NewFixedClock(time.Now()))

	frame1, err := dtc.Encode(dtc.Heartbeat{NumDrops: 0, CurrentDateTime: 1})
	require.NoError(t, err)
	frame2, err := dtc.Encode(dtc.Heartbeat{NumDrops: 0, CurrentDateTime: 2})
	require.NoError(t, err)

	transport.Feed(append(append([]byte{}, frame1...), frame2...))

	frames, err := s.ReadFrames(time.Now().Add(time.Second))
	require.NoError(t, err)
	require.Len(t, frames, 2)
}

func TestSessionHeartbeatExpiry(t *testing.T) {
	clock := platform.NewFixedClock(time.Now())
	s := New(platform.NewFakeTransport(), clock)

	require.False(t, s.IsHeartbeatExpired(30*time.Second))
	clock.Advance(61 * time.Second)
	require.True(t, s.IsHeartbeatExpired(30*time.Second))

	s.TouchHeartbeat()
	require.False(t, s.IsHeartbeatExpired(30*time.Second))
}

func TestSessionSubscriptionBookkeeping(t *testing.T) {
	s := New(platform.NewFakeTransport(), platform.NewFixedClock(time.Now()))
	require.False(t, s.IsSubscribed("BTC-USD"))
	s.Subscribe("BTC-USD")
	require.True(t, s.IsSubscribed("BTC-USD"))
	require.Equal(t, []string{"BTC-USD"}, s.SubscribedSymbols())
	s.Unsubscribe("BTC-USD")
	require.False(t, s.IsSubscribed("BTC-USD"))
}

func TestNextClientIDIsMonotonic(t *testing.T) {
	a := NextClientID()
	b := NextClientID()
	require.Greater(t, b, a)
}
