package dtc

// Message is implemented by every concrete DTC message type. Rather than
// the source's virtual DTCMessage base with per-type serialize/deserialize
// overrides, the catalog here is a closed sum type: Encode/Decode are free
// functions that switch on MessageType, and each concrete struct below
// only knows how to write and read its own body.
type Message interface {
	Type() MessageType
}

type LogonRequest struct {
	ProtocolVersion        uint16
	Username               string
	Password               string
	GeneralTextData        string
	Integer1               string
	Integer2               string
	HeartbeatIntervalSec   uint8
	Unused1                uint8
	TradeAccount           string
	HardwareIdentifier     string
	ClientName             string
}

func (LogonRequest) Type() MessageType { return MsgLogonRequest }

func (m LogonRequest) body(w *byteWriter) {
	w.u16(m.ProtocolVersion)
	w.str(m.Username)
	w.str(m.Password)
	w.str(m.GeneralTextData)
	w.str(m.Integer1)
	w.str(m.Integer2)
	w.u8(m.HeartbeatIntervalSec)
	w.u8(m.Unused1)
	w.str(m.TradeAccount)
	w.str(m.HardwareIdentifier)
	w.str(m.ClientName)
}

func decodeLogonRequest(r *byteReader) (LogonRequest, *DecodeError) {
	var m LogonRequest
	var err *DecodeError
	if m.ProtocolVersion, err = r.u16(); err != nil {
		return m, err
	}
	if m.Username, err = r.str(); err != nil {
		return m, err
	}
	if m.Password, err = r.str(); err != nil {
		return m, err
	}
	if m.GeneralTextData, err = r.str(); err != nil {
		return m, err
	}
	if m.Integer1, err = r.str(); err != nil {
		return m, err
	}
	if m.Integer2, err = r.str(); err != nil {
		return m, err
	}
	if m.HeartbeatIntervalSec, err = r.u8(); err != nil {
		return m, err
	}
	if m.Unused1, err = r.u8(); err != nil {
		return m, err
	}
	if m.TradeAccount, err = r.str(); err != nil {
		return m, err
	}
	if m.HardwareIdentifier, err = r.str(); err != nil {
		return m, err
	}
	if m.ClientName, err = r.str(); err != nil {
		return m, err
	}
	return m, nil
}

// LogonCapabilities is the eleven-flag capability block the original
// appends to LogonResponse after server_name. The bridge advertises a
// fixed, conservative profile: market depth via bid/ask updates and
// security definitions are supported; trading, historical data, and
// bracket orders are not (order entry is out of scope for this server).
type LogonCapabilities struct {
	MarketDepthUpdatesBestBidAndAsk             uint8
	TradingIsSupported                          uint8
	OrderCancelReplaceSupported                 uint8
	SymbolExchangeDelimiter                     string
	SecurityDefinitionsSupported                uint8
	HistoricalPriceDataSupported                uint8
	ResubscribeWhenMarketDataFeedAvailable      uint8
	MarketDepthIsSupported                      uint8
	OneHistoricalPriceDataRequestPerConnection  uint8
	UseIntegerPriceOrderMessages                uint8
	BracketOrderSupported                       uint8
	UseLookupTableForOrderID                    uint8
}

// DefaultLogonCapabilities is the capability profile this bridge
// advertises in every LogonResponse.
func DefaultLogonCapabilities() LogonCapabilities {
	return LogonCapabilities{
		MarketDepthUpdatesBestBidAndAsk:            1,
		TradingIsSupported:                         0,
		OrderCancelReplaceSupported:                0,
		SymbolExchangeDelimiter:                    "-",
		SecurityDefinitionsSupported:                1,
		HistoricalPriceDataSupported:                0,
		ResubscribeWhenMarketDataFeedAvailable:      1,
		MarketDepthIsSupported:                      1,
		OneHistoricalPriceDataRequestPerConnection:  0,
		UseIntegerPriceOrderMessages:                0,
		BracketOrderSupported:                       0,
		UseLookupTableForOrderID:                    0,
	}
}

type LogonResponse struct {
	ProtocolVersion  uint16
	Result           uint8 // 1 = success, 0 = failure
	ResultText       string
	ReconnectAddress string
	Integer1         uint16
	ServerName       string
	Capabilities     LogonCapabilities
}

func (LogonResponse) Type() MessageType { return MsgLogonResponse }

func (m LogonResponse) body(w *byteWriter) {
	w.u16(m.ProtocolVersion)
	w.u8(m.Result)
	w.str(m.ResultText)
	w.str(m.ReconnectAddress)
	w.u16(m.Integer1)
	w.str(m.ServerName)
	w.u8(m.Capabilities.MarketDepthUpdatesBestBidAndAsk)
	w.u8(m.Capabilities.TradingIsSupported)
	w.u8(m.Capabilities.OrderCancelReplaceSupported)
	w.str(m.Capabilities.SymbolExchangeDelimiter)
	w.u8(m.Capabilities.SecurityDefinitionsSupported)
	w.u8(m.Capabilities.HistoricalPriceDataSupported)
	w.u8(m.Capabilities.ResubscribeWhenMarketDataFeedAvailable)
	w.u8(m.Capabilities.MarketDepthIsSupported)
	w.u8(m.Capabilities.OneHistoricalPriceDataRequestPerConnection)
	w.u8(m.Capabilities.UseIntegerPriceOrderMessages)
	w.u8(m.Capabilities.BracketOrderSupported)
	w.u8(m.Capabilities.UseLookupTableForOrderID)
}

func decodeLogonResponse(r *byteReader) (LogonResponse, *DecodeError) {
	var m LogonResponse
	var err *DecodeError
	if m.ProtocolVersion, err = r.u16(); err != nil {
		return m, err
	}
	if m.Result, err = r.u8(); err != nil {
		return m, err
	}
	if m.ResultText, err = r.str(); err != nil {
		return m, err
	}
	if m.ReconnectAddress, err = r.str(); err != nil {
		return m, err
	}
	if m.Integer1, err = r.u16(); err != nil {
		return m, err
	}
	if m.ServerName, err = r.str(); err != nil {
		return m, err
	}
	c := &m.Capabilities
	for _, dst := range []*uint8{
		&c.MarketDepthUpdatesBestBidAndAsk,
		&c.TradingIsSupported,
		&c.OrderCancelReplaceSupported,
	} {
		if *dst, err = r.u8(); err != nil {
			return m, err
		}
	}
	if c.SymbolExchangeDelimiter, err = r.str(); err != nil {
		return m, err
	}
	for _, dst := range []*uint8{
		&c.SecurityDefinitionsSupported,
		&c.HistoricalPriceDataSupported,
		&c.ResubscribeWhenMarketDataFeedAvailable,
		&c.MarketDepthIsSupported,
		&c.OneHistoricalPriceDataRequestPerConnection,
		&c.UseIntegerPriceOrderMessages,
		&c.BracketOrderSupported,
		&c.UseLookupTableForOrderID,
	} {
		if *dst, err = r.u8(); err != nil {
			return m, err
		}
	}
	return m, nil
}

type Heartbeat struct {
	NumDrops        uint32
	CurrentDateTime uint64
}

func (Heartbeat) Type() MessageType { return MsgHeartbeat }

func (m Heartbeat) body(w *byteWriter) {
	w.u32(m.NumDrops)
	w.u64(m.CurrentDateTime)
}

func decodeHeartbeat(r *byteReader) (Heartbeat, *DecodeError) {
	var m Heartbeat
	var err *DecodeError
	if m.NumDrops, err = r.u32(); err != nil {
		return m, err
	}
	if m.CurrentDateTime, err = r.u64(); err != nil {
		return m, err
	}
	return m, nil
}

type Logoff struct {
	Reason         string
	DoNotReconnect uint8
}

func (Logoff) Type() MessageType { return MsgLogoff }

func (m Logoff) body(w *byteWriter) {
	w.str(m.Reason)
	w.u8(m.DoNotReconnect)
}

func decodeLogoff(r *byteReader) (Logoff, *DecodeError) {
	var m Logoff
	var err *DecodeError
	if m.Reason, err = r.str(); err != nil {
		return m, err
	}
	if m.DoNotReconnect, err = r.u8(); err != nil {
		return m, err
	}
	return m, nil
}

type MarketDataRequest struct {
	RequestAction RequestAction
	SymbolID      uint16
	Symbol        string
	Exchange      string
}

func (MarketDataRequest) Type() MessageType { return MsgMarketDataRequest }

func (m MarketDataRequest) body(w *byteWriter) {
	w.u8(uint8(m.RequestAction))
	w.u16(m.SymbolID)
	w.str(m.Symbol)
	w.str(m.Exchange)
}

func decodeMarketDataRequest(r *byteReader) (MarketDataRequest, *DecodeError) {
	var m MarketDataRequest
	action, err := r.u8()
	if err != nil {
		return m, err
	}
	m.RequestAction = parseRequestAction(action)
	if m.SymbolID, err = r.u16(); err != nil {
		return m, err
	}
	if m.Symbol, err = r.str(); err != nil {
		return m, err
	}
	if m.Exchange, err = r.str(); err != nil {
		return m, err
	}
	return m, nil
}

type MarketDataReject struct {
	SymbolID   uint16
	RejectText string
}

func (MarketDataReject) Type() MessageType { return MsgMarketDataReject }

func (m MarketDataReject) body(w *byteWriter) {
	w.u16(m.SymbolID)
	w.str(m.RejectText)
}

func decodeMarketDataReject(r *byteReader) (MarketDataReject, *DecodeError) {
	var m MarketDataReject
	var err *DecodeError
	if m.SymbolID, err = r.u16(); err != nil {
		return m, err
	}
	if m.RejectText, err = r.str(); err != nil {
		return m, err
	}
	return m, nil
}

// MarketDataUpdateTrade carries AtBidOrAsk as f64 rather than the u8 the
// off-the-shelf DTC toolkits use; see the design notes for why this
// divergence is retained rather than "corrected".
type MarketDataUpdateTrade struct {
	SymbolID     uint16
	AtBidOrAsk   float64
	Price        float64
	Volume       float64
	DateTime     uint64
}

func (MarketDataUpdateTrade) Type() MessageType { return MsgMarketDataUpdateTrade }

func (m MarketDataUpdateTrade) body(w *byteWriter) {
	w.u16(m.SymbolID)
	w.f64(m.AtBidOrAsk)
	w.f64(m.Price)
	w.f64(m.Volume)
	w.u64(m.DateTime)
}

func decodeMarketDataUpdateTrade(r *byteReader) (MarketDataUpdateTrade, *DecodeError) {
	var m MarketDataUpdateTrade
	var err *DecodeError
	if m.SymbolID, err = r.u16(); err != nil {
		return m, err
	}
	if m.AtBidOrAsk, err = r.f64(); err != nil {
		return m, err
	}
	if m.Price, err = r.f64(); err != nil {
		return m, err
	}
	if m.Volume, err = r.f64(); err != nil {
		return m, err
	}
	if m.DateTime, err = r.u64(); err != nil {
		return m, err
	}
	return m, nil
}

// MarketDataUpdateBidAsk fixes BidQty at f32 per the DTC v8 compact
// variant; the two original protocol headers disagreed between float and
// double here.
type MarketDataUpdateBidAsk struct {
	SymbolID    uint16
	BidPrice    float64
	BidQty      float32
	AskPrice    float64
	AskQty      float32
	DateTime    uint64
	IsBidChange uint8
	IsAskChange uint8
}

func (MarketDataUpdateBidAsk) Type() MessageType { return MsgMarketDataUpdateBidAsk }

func (m MarketDataUpdateBidAsk) body(w *byteWriter) {
	w.u16(m.SymbolID)
	w.f64(m.BidPrice)
	w.f32(m.BidQty)
	w.f64(m.AskPrice)
	w.f32(m.AskQty)
	w.u64(m.DateTime)
	w.u8(m.IsBidChange)
	w.u8(m.IsAskChange)
}

func decodeMarketDataUpdateBidAsk(r *byteReader) (MarketDataUpdateBidAsk, *DecodeError) {
	var m MarketDataUpdateBidAsk
	var err *DecodeError
	if m.SymbolID, err = r.u16(); err != nil {
		return m, err
	}
	if m.BidPrice, err = r.f64(); err != nil {
		return m, err
	}
	if m.BidQty, err = r.f32(); err != nil {
		return m, err
	}
	if m.AskPrice, err = r.f64(); err != nil {
		return m, err
	}
	if m.AskQty, err = r.f32(); err != nil {
		return m, err
	}
	if m.DateTime, err = r.u64(); err != nil {
		return m, err
	}
	if m.IsBidChange, err = r.u8(); err != nil {
		return m, err
	}
	if m.IsAskChange, err = r.u8(); err != nil {
		return m, err
	}
	return m, nil
}

// SubmitNewSingleOrder is decoded in full but never acted on: order entry
// is out of scope. The session dispatcher responds with a reject.
type SubmitNewSingleOrder struct {
	Symbol        string
	Exchange      string
	TradeAccount  string
	ClientOrderID string
	OrderType     OrderType
	BuySell       BuySell
	Price1        float64
	Price2        float64
	Quantity      float64
	TimeInForce   TimeInForce
}

func (SubmitNewSingleOrder) Type() MessageType { return MsgSubmitNewSingleOrder }

func (m SubmitNewSingleOrder) body(w *byteWriter) {
	w.str(m.Symbol)
	w.str(m.Exchange)
	w.str(m.TradeAccount)
	w.str(m.ClientOrderID)
	w.u8(uint8(m.OrderType))
	w.u8(uint8(m.BuySell))
	w.f64(m.Price1)
	w.f64(m.Price2)
	w.f64(m.Quantity)
	w.u8(uint8(m.TimeInForce))
}

func decodeSubmitNewSingleOrder(r *byteReader) (SubmitNewSingleOrder, *DecodeError) {
	var m SubmitNewSingleOrder
	var err *DecodeError
	if m.Symbol, err = r.str(); err != nil {
		return m, err
	}
	if m.Exchange, err = r.str(); err != nil {
		return m, err
	}
	if m.TradeAccount, err = r.str(); err != nil {
		return m, err
	}
	if m.ClientOrderID, err = r.str(); err != nil {
		return m, err
	}
	orderType, err := r.u8()
	if err != nil {
		return m, err
	}
	m.OrderType = parseOrderType(orderType)
	buySell, err := r.u8()
	if err != nil {
		return m, err
	}
	m.BuySell = parseBuySell(buySell)
	if m.Price1, err = r.f64(); err != nil {
		return m, err
	}
	if m.Price2, err = r.f64(); err != nil {
		return m, err
	}
	if m.Quantity, err = r.f64(); err != nil {
		return m, err
	}
	tif, err := r.u8()
	if err != nil {
		return m, err
	}
	m.TimeInForce = parseTimeInForce(tif)
	return m, nil
}

type OrderUpdate struct {
	ClientOrderID string
	ServerOrderID string
	Symbol        string
	OrderStatus   OrderStatus
	RejectText    string
	FilledQty     float64
	RemainingQty  float64
}

func (OrderUpdate) Type() MessageType { return MsgOrderUpdate }

func (m OrderUpdate) body(w *byteWriter) {
	w.str(m.ClientOrderID)
	w.str(m.ServerOrderID)
	w.str(m.Symbol)
	w.u8(uint8(m.OrderStatus))
	w.str(m.RejectText)
	w.f64(m.FilledQty)
	w.f64(m.RemainingQty)
}

func decodeOrderUpdate(r *byteReader) (OrderUpdate, *DecodeError) {
	var m OrderUpdate
	var err *DecodeError
	if m.ClientOrderID, err = r.str(); err != nil {
		return m, err
	}
	if m.ServerOrderID, err = r.str(); err != nil {
		return m, err
	}
	if m.Symbol, err = r.str(); err != nil {
		return m, err
	}
	status, err := r.u8()
	if err != nil {
		return m, err
	}
	m.OrderStatus = parseOrderStatus(status)
	if m.RejectText, err = r.str(); err != nil {
		return m, err
	}
	if m.FilledQty, err = r.f64(); err != nil {
		return m, err
	}
	if m.RemainingQty, err = r.f64(); err != nil {
		return m, err
	}
	return m, nil
}

type CurrentPositionsRequest struct {
	TradeAccount string
}

func (CurrentPositionsRequest) Type() MessageType { return MsgCurrentPositionsRequest }

func (m CurrentPositionsRequest) body(w *byteWriter) { w.str(m.TradeAccount) }

func decodeCurrentPositionsRequest(r *byteReader) (CurrentPositionsRequest, *DecodeError) {
	var m CurrentPositionsRequest
	var err *DecodeError
	if m.TradeAccount, err = r.str(); err != nil {
		return m, err
	}
	return m, nil
}

type CurrentPositionsReject struct {
	RejectText string
}

func (CurrentPositionsReject) Type() MessageType { return MsgCurrentPositionsReject }

func (m CurrentPositionsReject) body(w *byteWriter) { w.str(m.RejectText) }

func decodeCurrentPositionsReject(r *byteReader) (CurrentPositionsReject, *DecodeError) {
	var m CurrentPositionsReject
	var err *DecodeError
	if m.RejectText, err = r.str(); err != nil {
		return m, err
	}
	return m, nil
}

type PositionUpdate struct {
	TradeAccount string
	Symbol       string
	Quantity     float64
	AveragePrice float64
	Unsolicited  uint8
}

func (PositionUpdate) Type() MessageType { return MsgPositionUpdate }

func (m PositionUpdate) body(w *byteWriter) {
	w.str(m.TradeAccount)
	w.str(m.Symbol)
	w.f64(m.Quantity)
	w.f64(m.AveragePrice)
	w.u8(m.Unsolicited)
}

func decodePositionUpdate(r *byteReader) (PositionUpdate, *DecodeError) {
	var m PositionUpdate
	var err *DecodeError
	if m.TradeAccount, err = r.str(); err != nil {
		return m, err
	}
	if m.Symbol, err = r.str(); err != nil {
		return m, err
	}
	if m.Quantity, err = r.f64(); err != nil {
		return m, err
	}
	if m.AveragePrice, err = r.f64(); err != nil {
		return m, err
	}
	if m.Unsolicited, err = r.u8(); err != nil {
		return m, err
	}
	return m, nil
}

type SecurityDefinitionForSymbolRequest struct {
	RequestID uint32
	Symbol    string
	Exchange  string
}

func (SecurityDefinitionForSymbolRequest) Type() MessageType {
	return MsgSecurityDefinitionForSymbolRequest
}

func (m SecurityDefinitionForSymbolRequest) body(w *byteWriter) {
	w.u32(m.RequestID)
	w.str(m.Symbol)
	w.str(m.Exchange)
}

func decodeSecurityDefinitionForSymbolRequest(r *byteReader) (SecurityDefinitionForSymbolRequest, *DecodeError) {
	var m SecurityDefinitionForSymbolRequest
	var err *DecodeError
	if m.RequestID, err = r.u32(); err != nil {
		return m, err
	}
	if m.Symbol, err = r.str(); err != nil {
		return m, err
	}
	if m.Exchange, err = r.str(); err != nil {
		return m, err
	}
	return m, nil
}

type SecurityDefinitionResponse struct {
	RequestID      uint32
	Symbol         string
	Exchange       string
	Description    string
	PriceIncrement float64
	SizeIncrement  float64
	IsFinalMessage uint8
}

func (SecurityDefinitionResponse) Type() MessageType { return MsgSecurityDefinitionResponse }

func (m SecurityDefinitionResponse) body(w *byteWriter) {
	w.u32(m.RequestID)
	w.str(m.Symbol)
	w.str(m.Exchange)
	w.str(m.Description)
	w.f64(m.PriceIncrement)
	w.f64(m.SizeIncrement)
	w.u8(m.IsFinalMessage)
}

func decodeSecurityDefinitionResponse(r *byteReader) (SecurityDefinitionResponse, *DecodeError) {
	var m SecurityDefinitionResponse
	var err *DecodeError
	if m.RequestID, err = r.u32(); err != nil {
		return m, err
	}
	if m.Symbol, err = r.str(); err != nil {
		return m, err
	}
	if m.Exchange, err = r.str(); err != nil {
		return m, err
	}
	if m.Description, err = r.str(); err != nil {
		return m, err
	}
	if m.PriceIncrement, err = r.f64(); err != nil {
		return m, err
	}
	if m.SizeIncrement, err = r.f64(); err != nil {
		return m, err
	}
	if m.IsFinalMessage, err = r.u8(); err != nil {
		return m, err
	}
	return m, nil
}

type SymbolSearchRequest struct {
	RequestID   uint32
	SearchText  string
}

func (SymbolSearchRequest) Type() MessageType { return MsgSymbolSearchRequest }

func (m SymbolSearchRequest) body(w *byteWriter) {
	w.u32(m.RequestID)
	w.str(m.SearchText)
}

func decodeSymbolSearchRequest(r *byteReader) (SymbolSearchRequest, *DecodeError) {
	var m SymbolSearchRequest
	var err *DecodeError
	if m.RequestID, err = r.u32(); err != nil {
		return m, err
	}
	if m.SearchText, err = r.str(); err != nil {
		return m, err
	}
	return m, nil
}

type SymbolSearchResponse struct {
	RequestID      uint32
	Symbol         string
	Exchange       string
	Description    string
	IsFinalMessage uint8
}

func (SymbolSearchResponse) Type() MessageType { return MsgSymbolSearchResponse }

func (m SymbolSearchResponse) body(w *byteWriter) {
	w.u32(m.RequestID)
	w.str(m.Symbol)
	w.str(m.Exchange)
	w.str(m.Description)
	w.u8(m.IsFinalMessage)
}

func decodeSymbolSearchResponse(r *byteReader) (SymbolSearchResponse, *DecodeError) {
	var m SymbolSearchResponse
	var err *DecodeError
	if m.RequestID, err = r.u32(); err != nil {
		return m, err
	}
	if m.Symbol, err = r.str(); err != nil {
		return m, err
	}
	if m.Exchange, err = r.str(); err != nil {
		return m, err
	}
	if m.Description, err = r.str(); err != nil {
		return m, err
	}
	if m.IsFinalMessage, err = r.u8(); err != nil {
		return m, err
	}
	return m, nil
}

type GeneralLogMessage struct {
	MessageText string
}

func (GeneralLogMessage) Type() MessageType { return MsgGeneralLogMessage }

func (m GeneralLogMessage) body(w *byteWriter) { w.str(m.MessageText) }

func decodeGeneralLogMessage(r *byteReader) (GeneralLogMessage, *DecodeError) {
	var m GeneralLogMessage
	var err *DecodeError
	if m.MessageText, err = r.str(); err != nil {
		return m, err
	}
	return m, nil
}

type AlertMessage struct {
	MessageText string
}

func (AlertMessage) Type() MessageType { return MsgAlertMessage }

func (m AlertMessage) body(w *byteWriter) { w.str(m.MessageText) }

func decodeAlertMessage(r *byteReader) (AlertMessage, *DecodeError) {
	var m AlertMessage
	var err *DecodeError
	if m.MessageText, err = r.str(); err != nil {
		return m, err
	}
	return m, nil
}

// UnknownMessage preserves the raw body of a frame whose type code is not
// in the closed catalog, so the session can log and reject it without
// losing framing sync on the stream.
type UnknownMessage struct {
	RawType MessageType
	Body    []byte
}

func (m UnknownMessage) Type() MessageType { return m.RawType }
