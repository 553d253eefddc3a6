// Package dtc implements the DTC (Data and Trading Communications)
// protocol version 8 binary wire format: frame headers, variable-length
// string fields, and the closed set of message types this bridge speaks.
package dtc

// ProtocolVersion is the DTC protocol version this codec implements.
const ProtocolVersion uint16 = 8

// MessageType is the closed set of DTC message codes this bridge
// recognizes. Unknown codes on the wire decode to an UnknownMessage
// carrying the raw code rather than failing the frame.
type MessageType uint16

const (
	MsgUnknown MessageType = 0

	MsgLogonRequest  MessageType = 1
	MsgLogonResponse MessageType = 2
	MsgHeartbeat     MessageType = 3
	MsgLogoff        MessageType = 5

	MsgMarketDataRequest        MessageType = 101
	MsgMarketDataReject         MessageType = 103
	MsgMarketDataUpdateTrade    MessageType = 107
	MsgMarketDataUpdateBidAsk   MessageType = 108

	MsgSubmitNewSingleOrder MessageType = 208
	MsgOrderUpdate          MessageType = 210

	MsgCurrentPositionsRequest MessageType = 400
	MsgPositionUpdate          MessageType = 401
	MsgCurrentPositionsReject  MessageType = 402

	MsgSecurityDefinitionForSymbolRequest MessageType = 501
	MsgSecurityDefinitionResponse         MessageType = 502
	MsgSymbolSearchRequest                MessageType = 503
	MsgSymbolSearchResponse                MessageType = 504

	MsgGeneralLogMessage MessageType = 700
	MsgAlertMessage      MessageType = 701
)

// String gives a human-readable name for logging; unrecognized codes
// print their numeric value.
func (t MessageType) String() string {
	switch t {
	case MsgLogonRequest:
		return "LogonRequest"
	case MsgLogonResponse:
		return "LogonResponse"
	case MsgHeartbeat:
		return "Heartbeat"
	case MsgLogoff:
		return "Logoff"
	case MsgMarketDataRequest:
		return "MarketDataRequest"
	case MsgMarketDataReject:
		return "MarketDataReject"
	case MsgMarketDataUpdateTrade:
		return "MarketDataUpdateTrade"
	case MsgMarketDataUpdateBidAsk:
		return "MarketDataUpdateBidAsk"
	case MsgSubmitNewSingleOrder:
		return "SubmitNewSingleOrder"
	case MsgOrderUpdate:
		return "OrderUpdate"
	case MsgCurrentPositionsRequest:
		return "CurrentPositionsRequest"
	case MsgPositionUpdate:
		return "PositionUpdate"
	case MsgCurrentPositionsReject:
		return "CurrentPositionsReject"
	case MsgSecurityDefinitionForSymbolRequest:
		return "SecurityDefinitionForSymbolRequest"
	case MsgSecurityDefinitionResponse:
		return "SecurityDefinitionResponse"
	case MsgSymbolSearchRequest:
		return "SymbolSearchRequest"
	case MsgSymbolSearchResponse:
		return "SymbolSearchResponse"
	case MsgGeneralLogMessage:
		return "GeneralLogMessage"
	case MsgAlertMessage:
		return "AlertMessage"
	default:
		return "Unknown"
	}
}

// RequestAction is the action requested by a MarketDataRequest. Values
// outside the declared domain decode to RequestActionUnspecified rather
// than failing the surrounding message.
type RequestAction uint8

const (
	RequestActionUnspecified RequestAction = 0
	RequestActionSubscribe   RequestAction = 1
	RequestActionUnsubscribe RequestAction = 2
	RequestActionSnapshot    RequestAction = 3
)

func parseRequestAction(v uint8) RequestAction {
	switch v {
	case 1, 2, 3:
		return RequestAction(v)
	default:
		return RequestActionUnspecified
	}
}

// OrderStatus mirrors the DTC OrderStatusEnum domain {0..8}.
type OrderStatus uint8

const (
	OrderStatusUnspecified     OrderStatus = 0
	OrderStatusOrderSent       OrderStatus = 1
	OrderStatusPendingOpen     OrderStatus = 2
	OrderStatusPendingChild    OrderStatus = 3
	OrderStatusOpen            OrderStatus = 4
	OrderStatusFilled          OrderStatus = 5
	OrderStatusCanceled        OrderStatus = 6
	OrderStatusRejected        OrderStatus = 7
	OrderStatusPartiallyFilled OrderStatus = 8
)

func parseOrderStatus(v uint8) OrderStatus {
	if v <= 8 {
		return OrderStatus(v)
	}
	return OrderStatusUnspecified
}

// OrderType mirrors the DTC OrderTypeEnum domain {0..5}.
type OrderType uint8

const (
	OrderTypeUnset            OrderType = 0
	OrderTypeMarket           OrderType = 1
	OrderTypeLimit            OrderType = 2
	OrderTypeStop             OrderType = 3
	OrderTypeStopLimit        OrderType = 4
	OrderTypeMarketIfTouched  OrderType = 5
)

func parseOrderType(v uint8) OrderType {
	if v <= 5 {
		return OrderType(v)
	}
	return OrderTypeUnset
}

// BuySell mirrors the DTC BuySellEnum domain {0,1,2}.
type BuySell uint8

const (
	BuySellUnset BuySell = 0
	BuySellBuy   BuySell = 1
	BuySellSell  BuySell = 2
)

func parseBuySell(v uint8) BuySell {
	if v <= 2 {
		return BuySell(v)
	}
	return BuySellUnset
}

// TimeInForce mirrors the DTC TimeInForceEnum domain {0..6}.
type TimeInForce uint8

const (
	TimeInForceUnset             TimeInForce = 0
	TimeInForceDay               TimeInForce = 1
	TimeInForceGoodTillCanceled  TimeInForce = 2
	TimeInForceGoodTillDateTime  TimeInForce = 3
	TimeInForceImmediateOrCancel TimeInForce = 4
	TimeInForceFillOrKill        TimeInForce = 5
	TimeInForceGoodTillCrossing  TimeInForce = 6
)

func parseTimeInForce(v uint8) TimeInForce {
	if v <= 6 {
		return TimeInForce(v)
	}
	return TimeInForceUnset
}
