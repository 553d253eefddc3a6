package bridge

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinbase-dtc/bridge/dtc"
	"github.com/coinbase-dtc/bridge/session"
)

// handleFrame decodes and dispatches one inbound frame. It returns false
// when the session should be closed after this call (logon rejected,
// logoff, or a send failure while replying).
func (s *Server) handleFrame(sess *session.Session, frame []byte, logger zerolog.Logger) bool {
	msg, decErr := dtc.Decode(frame)
	if decErr != nil {
		logger.Warn().Err(decErr).Msg("dropping unparseable frame")
		return true
	}

	switch m := msg.(type) {
	case dtc.LogonRequest:
		return s.handleLogon(sess, m, logger)
	case dtc.Heartbeat:
		sess.TouchHeartbeat()
		return true
	case dtc.Logoff:
		sess.TouchHeartbeat()
		_, _ = sess.Transition(session.EventLogoff)
		return false
	case dtc.MarketDataRequest:
		sess.TouchHeartbeat()
		s.handleMarketDataRequest(sess, m, logger)
		return true
	case dtc.SecurityDefinitionForSymbolRequest:
		sess.TouchHeartbeat()
		s.handleSecurityDefinitionRequest(sess, m)
		return true
	case dtc.SymbolSearchRequest:
		sess.TouchHeartbeat()
		s.handleSymbolSearchRequest(sess, m)
		return true
	case dtc.SubmitNewSingleOrder:
		sess.TouchHeartbeat()
		s.rejectOrder(sess, m)
		return true
	case dtc.CurrentPositionsRequest:
		sess.TouchHeartbeat()
		s.sendOrDisconnect(sess, dtc.CurrentPositionsReject{RejectText: "trading and position keeping are not supported by this bridge"})
		return true
	case dtc.UnknownMessage:
		logger.Debug().Uint16("type", uint16(m.RawType)).Msg("ignoring unrecognized message type")
		return true
	default:
		return true
	}
}

func (s *Server) handleLogon(sess *session.Session, req dtc.LogonRequest, logger zerolog.Logger) bool {
	sess.Username = req.Username
	sess.TouchHeartbeat()

	if s.cfg.RequireAuth {
		if req.Username != s.cfg.ValidUsername || req.Password != s.cfg.ValidPassword {
			_, _ = sess.Transition(session.EventLogonInvalid)
			_ = sess.Send(dtc.LogonResponse{
				ProtocolVersion: dtc.ProtocolVersion,
				Result:          0,
				ResultText:      "invalid username or password",
			}, s.clock.Now().Add(5*time.Second))
			logger.Warn().Str("username", req.Username).Msg("logon rejected")
			return false
		}
	}

	if _, err := sess.Transition(session.EventLogonValid); err != nil {
		return false
	}

	resp := dtc.LogonResponse{
		ProtocolVersion:  dtc.ProtocolVersion,
		Result:           1,
		ResultText:       "logon successful",
		ReconnectAddress: s.cfg.ReconnectAddress,
		ServerName:       s.cfg.ServerName,
		Capabilities:     dtc.DefaultLogonCapabilities(),
	}
	if err := sess.Send(resp, s.clock.Now().Add(5*time.Second)); err != nil {
		return false
	}
	logger.Info().Str("username", req.Username).Msg("logon accepted")
	return true
}

func (s *Server) handleMarketDataRequest(sess *session.Session, req dtc.MarketDataRequest, logger zerolog.Logger) {
	symbol := strings.ToUpper(req.Symbol)

	switch req.RequestAction {
	case dtc.RequestActionSubscribe, dtc.RequestActionSnapshot:
		info, ok := s.catalog.Lookup(symbol)
		if !ok {
			id := req.SymbolID
			if id == 0 {
				if allocatedID, idErr := sess.Symbols.IDFor(symbol); idErr == nil {
					id = allocatedID
				}
			}
			s.sendOrDisconnect(sess, dtc.MarketDataReject{SymbolID: id, RejectText: "unknown symbol: " + req.Symbol})
			return
		}

		if _, err := sess.Symbols.IDFor(info.Canonical); err != nil {
			s.sendOrDisconnect(sess, dtc.MarketDataReject{SymbolID: req.SymbolID, RejectText: err.Error()})
			return
		}

		if !sess.IsSubscribed(info.Canonical) {
			sess.Subscribe(info.Canonical)
			s.trackSubscription(sess.ID, info.Canonical)
			if err := s.agg.SubscribeSymbol(info.Canonical, ""); err != nil {
				logger.Warn().Err(err).Str("symbol", info.Canonical).Msg("aggregator subscribe failed")
			}
			_, _ = sess.Transition(session.EventSubscribeRequest)
		}

	case dtc.RequestActionUnsubscribe:
		info, ok := s.catalog.Lookup(symbol)
		if !ok {
			return
		}
		if sess.IsSubscribed(info.Canonical) {
			sess.Unsubscribe(info.Canonical)
			s.untrackSubscription(sess.ID, info.Canonical)
			if err := s.agg.UnsubscribeSymbol(info.Canonical, ""); err != nil {
				logger.Warn().Err(err).Str("symbol", info.Canonical).Msg("aggregator unsubscribe failed")
			}
			_, _ = sess.Transition(session.EventUnsubscribeRequest)
		}

	default:
		s.sendOrDisconnect(sess, dtc.MarketDataReject{SymbolID: req.SymbolID, RejectText: "unrecognized request action"})
	}
}

func (s *Server) handleSecurityDefinitionRequest(sess *session.Session, req dtc.SecurityDefinitionForSymbolRequest) {
	info, ok := s.catalog.Lookup(strings.ToUpper(req.Symbol))
	if !ok {
		s.sendOrDisconnect(sess, dtc.SecurityDefinitionResponse{
			RequestID:      req.RequestID,
			Symbol:         req.Symbol,
			IsFinalMessage: 1,
		})
		return
	}
	s.sendOrDisconnect(sess, dtc.SecurityDefinitionResponse{
		RequestID:      req.RequestID,
		Symbol:         info.Canonical,
		Exchange:       info.Exchange,
		Description:    info.Display,
		PriceIncrement: info.PriceIncrement.InexactFloat64(),
		SizeIncrement:  info.SizeIncrement.InexactFloat64(),
		IsFinalMessage: 1,
	})
}

func (s *Server) handleSymbolSearchRequest(sess *session.Session, req dtc.SymbolSearchRequest) {
	needle := strings.ToUpper(req.SearchText)
	matches := s.catalog.AvailableSymbols()

	for _, info := range matches {
		if needle != "" && !strings.Contains(info.Canonical, needle) {
			continue
		}
		s.sendOrDisconnect(sess, dtc.SymbolSearchResponse{
			RequestID:      req.RequestID,
			Symbol:         info.Canonical,
			Exchange:       info.Exchange,
			Description:    info.Display,
			IsFinalMessage: 0,
		})
	}
	s.sendOrDisconnect(sess, dtc.SymbolSearchResponse{RequestID: req.RequestID, IsFinalMessage: 1})
}

func (s *Server) rejectOrder(sess *session.Session, req dtc.SubmitNewSingleOrder) {
	s.sendOrDisconnect(sess, dtc.OrderUpdate{
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		OrderStatus:   dtc.OrderStatusRejected,
		RejectText:    "order entry is not supported by this bridge",
	})
}
