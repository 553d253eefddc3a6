package dtc

// Decode parses one complete frame (as sliced by PeekFrameLength) into its
// typed Message. Unknown type codes never produce a decode error: they
// come back as an UnknownMessage carrying the raw body, so one
// unrecognized message never breaks framing sync on the rest of the
// stream.
func Decode(frame []byte) (Message, *DecodeError) {
	h, err := decodeHeader(frame)
	if err != nil {
		return nil, err
	}
	if len(frame) < int(h.Size) {
		return nil, newDecodeError(ShortFrame, "frame declares %d bytes, have %d", h.Size, len(frame))
	}
	body := frame[headerSize:h.Size]
	r := newByteReader(body)

	switch h.Type {
	case MsgLogonRequest:
		return decodeLogonRequest(r)
	case MsgLogonResponse:
		return decodeLogonResponse(r)
	case MsgHeartbeat:
		return decodeHeartbeat(r)
	case MsgLogoff:
		return decodeLogoff(r)
	case MsgMarketDataRequest:
		return decodeMarketDataRequest(r)
	case MsgMarketDataReject:
		return decodeMarketDataReject(r)
	case MsgMarketDataUpdateTrade:
		return decodeMarketDataUpdateTrade(r)
	case MsgMarketDataUpdateBidAsk:
		return decodeMarketDataUpdateBidAsk(r)
	case MsgSubmitNewSingleOrder:
		return decodeSubmitNewSingleOrder(r)
	case MsgOrderUpdate:
		return decodeOrderUpdate(r)
	case MsgCurrentPositionsRequest:
		return decodeCurrentPositionsRequest(r)
	case MsgPositionUpdate:
		return decodePositionUpdate(r)
	case MsgCurrentPositionsReject:
		return decodeCurrentPositionsReject(r)
	case MsgSecurityDefinitionForSymbolRequest:
		return decodeSecurityDefinitionForSymbolRequest(r)
	case MsgSecurityDefinitionResponse:
		return decodeSecurityDefinitionResponse(r)
	case MsgSymbolSearchRequest:
		return decodeSymbolSearchRequest(r)
	case MsgSymbolSearchResponse:
		return decodeSymbolSearchResponse(r)
	case MsgGeneralLogMessage:
		return decodeGeneralLogMessage(r)
	case MsgAlertMessage:
		return decodeAlertMessage(r)
	default:
		raw := make([]byte, len(body))
		copy(raw, body)
		return UnknownMessage{RawType: h.Type, Body: raw}, nil
	}
}

// decodeLogonRequest and friends return (concrete, *DecodeError); each
// concrete value is assignable to Message through its Type() method, so
// the switch above returns the helper's results directly. These
// assertions pin that every concrete type satisfies Message.
var (
	_ Message = LogonRequest{}
	_ Message = LogonResponse{}
	_ Message = Heartbeat{}
	_ Message = Logoff{}
	_ Message = MarketDataRequest{}
	_ Message = MarketDataReject{}
	_ Message = MarketDataUpdateTrade{}
	_ Message = MarketDataUpdateBidAsk{}
	_ Message = SubmitNewSingleOrder{}
	_ Message = OrderUpdate{}
	_ Message = CurrentPositionsRequest{}
	_ Message = PositionUpdate{}
	_ Message = CurrentPositionsReject{}
	_ Message = SecurityDefinitionForSymbolRequest{}
	_ Message = SecurityDefinitionResponse{}
	_ Message = SymbolSearchRequest{}
	_ Message = SymbolSearchResponse{}
	_ Message = GeneralLogMessage{}
	_ Message = AlertMessage{}
	_ Message = UnknownMessage{}
)
