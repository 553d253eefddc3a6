package dtc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundtrip(t *testing.T) {
	cases := []Message{
		LogonRequest{
			ProtocolVersion:      ProtocolVersion,
			Username:             "trader1",
			Password:             "hunter2",
			HeartbeatIntervalSec: 30,
			ClientName:           "Sierra Chart",
		},
		LogonResponse{
			ProtocolVersion: ProtocolVersion,
			Result:          1,
			ResultText:      "OK",
			ServerName:      "coinbase-dtc-bridge",
			Capabilities:    DefaultLogonCapabilities(),
		},
		Heartbeat{NumDrops: 0, CurrentDateTime: 1735689600},
		Logoff{Reason: "client requested", DoNotReconnect: 1},
		MarketDataRequest{RequestAction: RequestActionSubscribe, SymbolID: 7, Symbol: "BTC-USD", Exchange: "COINBASE"},
		MarketDataReject{SymbolID: 7, RejectText: "unknown symbol"},
		MarketDataUpdateTrade{SymbolID: 1, AtBidOrAsk: 1, Price: 65000.125, Volume: 0.5, DateTime: 1735689600},
		MarketDataUpdateBidAsk{SymbolID: 1, BidPrice: 64999, BidQty: 1.25, AskPrice: 65001, AskQty: 2.5, DateTime: 1735689600},
		SubmitNewSingleOrder{Symbol: "BTC-USD", Exchange: "COINBASE", OrderType: OrderTypeLimit, BuySell: BuySellBuy, Price1: 65000, Quantity: 1, TimeInForce: TimeInForceDay},
		OrderUpdate{ClientOrderID: "c1", ServerOrderID: "s1", Symbol: "BTC-USD", OrderStatus: OrderStatusFilled, FilledQty: 1, RemainingQty: 0},
		CurrentPositionsRequest{TradeAccount: "default"},
		PositionUpdate{TradeAccount: "default", Symbol: "BTC-USD", Quantity: 1.5, AveragePrice: 64000},
		CurrentPositionsReject{RejectText: "no account"},
		SecurityDefinitionForSymbolRequest{RequestID: 1, Symbol: "BTC-USD", Exchange: "COINBASE"},
		SecurityDefinitionResponse{RequestID: 1, Symbol: "BTC-USD", Exchange: "COINBASE", Description: "Bitcoin/US Dollar", PriceIncrement: 0.01, SizeIncrement: 0.00000001, IsFinalMessage: 1},
		SymbolSearchRequest{RequestID: 1, SearchText: "BTC"},
		SymbolSearchResponse{RequestID: 1, Symbol: "BTC-USD", Exchange: "COINBASE", Description: "Bitcoin/US Dollar", IsFinalMessage: 1},
		GeneralLogMessage{MessageText: "session established"},
		AlertMessage{MessageText: "feed degraded"},
	}

	for _, m := range cases {
		m := m
		t.Run(m.Type().String(), func(t *testing.T) {
			frame, err := Encode(m)
			require.NoError(t, err)
			decoded, decErr := Decode(frame)
			require.Nil(t, decErr)
			require.Equal(t, m, decoded)
		})
	}
}

func TestFrameLengthInvariant(t *testing.T) {
	frame, err := Encode(LogonRequest{
		ProtocolVersion:      ProtocolVersion,
		Username:             "trader1",
		Password:             "hunter2",
		HeartbeatIntervalSec: 30,
		ClientName:           "Sierra Chart",
	})
	require.NoError(t, err)

	length, ok, peekErr := PeekFrameLength(frame)
	require.True(t, ok)
	require.Nil(t, peekErr)
	require.Equal(t, len(frame), length)
}

func TestLogonRequestSizeIsExact(t *testing.T) {
	short, err := Encode(LogonRequest{ProtocolVersion: ProtocolVersion, Username: "a"})
	require.NoError(t, err)
	long, err := Encode(LogonRequest{ProtocolVersion: ProtocolVersion, Username: "a-much-longer-username-value"})
	require.NoError(t, err)

	require.NotEqual(t, len(short), len(long))
	gotShort, _, _ := PeekFrameLength(short)
	gotLong, _, _ := PeekFrameLength(long)
	require.Equal(t, len(short), gotShort)
	require.Equal(t, len(long), gotLong)
}

func TestUnknownMessageTypeDoesNotError(t *testing.T) {
	var w byteWriter
	w.str("payload")
	body := w.bytes()
	frame := make([]byte, headerSize+len(body))
	encodeHeader(frame, uint16(len(frame)), MessageType(9999))
	copy(frame[headerSize:], body)

	decoded, err := Decode(frame)
	require.Nil(t, err)
	unk, ok := decoded.(UnknownMessage)
	require.True(t, ok)
	require.Equal(t, MessageType(9999), unk.RawType)
}

func TestDecodeShortFrame(t *testing.T) {
	_, err := Decode([]byte{0x01, 0x00})
	require.NotNil(t, err)
	require.Equal(t, ShortFrame, err.Kind)
}

func TestDecodeMalformedHeader(t *testing.T) {
	frame := []byte{0x02, 0x00, 0x01, 0x00}
	_, err := Decode(frame)
	require.NotNil(t, err)
	require.Equal(t, MalformedHeader, err.Kind)
}

func TestDecodeTruncatedField(t *testing.T) {
	frame := []byte{0x05, 0x00, byte(MsgHeartbeat), byte(MsgHeartbeat >> 8), 0xFF}
	_, err := Decode(frame)
	require.NotNil(t, err)
	require.Equal(t, TruncatedField, err.Kind)
}

func TestPeekFrameLengthNeedsMoreBytes(t *testing.T) {
	_, ok, err := PeekFrameLength([]byte{0x01})
	require.False(t, ok)
	require.Nil(t, err)
}
