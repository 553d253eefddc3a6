package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffIsMonotonicAndCapped(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 1; attempt <= 12; attempt++ {
		d := Backoff(attempt)
		require.GreaterOrEqual(t, d, prev)
		require.LessOrEqual(t, d, 30*time.Second)
		prev = d
	}
}

func TestBackoffSchedule(t *testing.T) {
	require.Equal(t, 1000*time.Millisecond, Backoff(1))
	require.Equal(t, 2000*time.Millisecond, Backoff(2))
	require.Equal(t, 4000*time.Millisecond, Backoff(3))
	require.Equal(t, 30000*time.Millisecond, Backoff(20))
}

func TestConnectionStateString(t *testing.T) {
	require.Equal(t, "down", ConnectionDown.String())
	require.Equal(t, "connecting", ConnectionConnecting.String())
	require.Equal(t, "up", ConnectionUp.String())
	require.Equal(t, "feed_down", ConnectionFeedDown.String())
}
