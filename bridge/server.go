// Package bridge implements the DTC-facing server: the accept loop,
// per-session handler goroutines, heartbeat supervision, and the
// broadcast fan-out that turns aggregator events into per-session DTC
// frames.
package bridge

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/coinbase-dtc/bridge/aggregator"
	"github.com/coinbase-dtc/bridge/dtc"
	"github.com/coinbase-dtc/bridge/feed"
	"github.com/coinbase-dtc/bridge/platform"
	"github.com/coinbase-dtc/bridge/registry"
	"github.com/coinbase-dtc/bridge/session"
)

// ServerConfig carries the runtime settings Config & Bootstrap (C10)
// assembles from the application config file.
type ServerConfig struct {
	BindAddress        string
	Port               int
	MaxClients         int
	HeartbeatInterval   time.Duration
	ReconnectAddress   string
	ServerName         string
	RequireAuth        bool
	ValidUsername      string
	ValidPassword      string
}

const heartbeatMonitorPeriod = 1 * time.Second

// Server owns the listening socket, every live session, the symbol
// catalog, and the aggregator it receives normalized market data from.
type Server struct {
	cfg     ServerConfig
	logger  zerolog.Logger
	clock   platform.Clock
	catalog *registry.Catalog
	agg     *aggregator.Aggregator

	mu       sync.RWMutex
	sessions map[uint64]*session.Session
	bySymbol map[string]map[uint64]struct{} // canonical -> set of session ids subscribed

	listener net.Listener
}

var _ feed.Sink = (*Server)(nil)

// New builds a server. agg may be nil and installed later with
// SetAggregator, which is how callers break the server/aggregator
// construction cycle.
func New(cfg ServerConfig, logger zerolog.Logger, clock platform.Clock, catalog *registry.Catalog, agg *aggregator.Aggregator) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		clock:    clock,
		catalog:  catalog,
		agg:      agg,
		sessions: make(map[uint64]*session.Session),
		bySymbol: make(map[string]map[uint64]struct{}),
	}
}

// SetAggregator wires the aggregator the server dispatches subscribe and
// unsubscribe calls to. The server must be constructed before the
// aggregator because the aggregator needs the server as its feed.Sink, so
// this breaks the construction cycle: build the server with a nil
// aggregator, build the aggregator with the server as sink, then call
// SetAggregator once before Run.
func (s *Server) SetAggregator(agg *aggregator.Aggregator) {
	s.agg = agg
}

// ActiveSessionCount reports how many sessions are currently tracked.
func (s *Server) ActiveSessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Run binds the listening socket and runs the accept loop and heartbeat
// monitor until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.BindAddress, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return ErrListenFailed.Wrapf("%s: %v", addr, err)
	}
	s.listener = ln
	s.logger.Info().Str("addr", addr).Msg("dtc bridge listening")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.acceptLoop(gctx) })
	g.Go(func() error { return s.heartbeatMonitor(gctx) })

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	return g.Wait()
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		if s.ActiveSessionCount() >= s.cfg.MaxClients {
			s.logger.Warn().Str("remote", conn.RemoteAddr().String()).Msg("rejecting connection, at max_clients")
			_ = conn.Close()
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	transport := platform.NewTCPTransport(conn)
	sess := session.New(transport, s.clock)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	logger := s.logger.With().Uint64("session_id", sess.ID).Str("remote", conn.RemoteAddr().String()).Logger()
	logger.Info().Msg("session connected")

	defer s.closeSession(sess, logger)

	readTimeout := s.cfg.HeartbeatInterval
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frames, err := sess.ReadFrames(s.clock.Now().Add(readTimeout))
		if err != nil {
			if isTimeout(err) {
				if sess.IsHeartbeatExpired(readTimeout) {
					logger.Warn().Msg("heartbeat expired, disconnecting")
					return
				}
				continue
			}
			logger.Debug().Err(err).Msg("session read ended")
			return
		}

		for _, frame := range frames {
			if !s.handleFrame(sess, frame, logger) {
				return
			}
		}
	}
}

func (s *Server) closeSession(sess *session.Session, logger zerolog.Logger) {
	for _, symbol := range sess.SubscribedSymbols() {
		s.untrackSubscription(sess.ID, symbol)
		_ = s.agg.UnsubscribeSymbol(symbol, "")
	}
	_ = sess.Close()

	s.mu.Lock()
	delete(s.sessions, sess.ID)
	s.mu.Unlock()

	logger.Info().Msg("session disconnected")
}

func (s *Server) heartbeatMonitor(ctx context.Context) error {
	ticker := time.NewTicker(heartbeatMonitorPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.scanHeartbeats()
		}
	}
}

func (s *Server) scanHeartbeats() {
	interval := s.cfg.HeartbeatInterval
	if interval <= 0 {
		return
	}
	s.mu.RLock()
	sessions := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	for _, sess := range sessions {
		if sess.State() == session.Disconnected {
			continue
		}
		if sess.IsHeartbeatExpired(interval) {
			_, _ = sess.Transition(session.EventPeerClosed)
			_ = sess.Close()
		}
	}
}

func (s *Server) trackSubscription(sessionID uint64, canonical string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.bySymbol[canonical]
	if !ok {
		set = make(map[uint64]struct{})
		s.bySymbol[canonical] = set
	}
	set[sessionID] = struct{}{}
}

func (s *Server) untrackSubscription(sessionID uint64, canonical string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.bySymbol[canonical]
	if !ok {
		return
	}
	delete(set, sessionID)
	if len(set) == 0 {
		delete(s.bySymbol, canonical)
	}
}

// OnTrade implements feed.Sink: it fans a normalized trade out to every
// session currently subscribed to its symbol, translating the global
// canonical symbol to each session's local id. One session's send
// failure transitions only that session; it never stops the fan-out for
// the rest.
func (s *Server) OnTrade(trade feed.NormalizedTrade) {
	s.mu.RLock()
	set := s.bySymbol[trade.Symbol]
	targets := make([]*session.Session, 0, len(set))
	for id := range set {
		if sess, ok := s.sessions[id]; ok {
			targets = append(targets, sess)
		}
	}
	s.mu.RUnlock()

	for _, sess := range targets {
		id, err := sess.Symbols.IDFor(trade.Symbol)
		if err != nil {
			continue
		}
		atBidOrAsk := 0.0
		switch trade.Side {
		case feed.SideBuy:
			atBidOrAsk = 2
		case feed.SideSell:
			atBidOrAsk = 1
		}
		msg := dtc.MarketDataUpdateTrade{
			SymbolID:   id,
			AtBidOrAsk: atBidOrAsk,
			Price:      trade.Price,
			Volume:     trade.Size,
			DateTime:   uint64(trade.TimestampNS / int64(time.Second)),
		}
		s.sendOrDisconnect(sess, msg)
	}
}

// OnQuote implements feed.Sink, mirroring OnTrade's fan-out for
// top-of-book updates.
func (s *Server) OnQuote(quote feed.NormalizedQuote) {
	s.mu.RLock()
	set := s.bySymbol[quote.Symbol]
	targets := make([]*session.Session, 0, len(set))
	for id := range set {
		if sess, ok := s.sessions[id]; ok {
			targets = append(targets, sess)
		}
	}
	s.mu.RUnlock()

	for _, sess := range targets {
		id, err := sess.Symbols.IDFor(quote.Symbol)
		if err != nil {
			continue
		}
		msg := dtc.MarketDataUpdateBidAsk{
			SymbolID:    id,
			BidPrice:    quote.BidPrice,
			BidQty:      float32(quote.BidSize),
			AskPrice:    quote.AskPrice,
			AskQty:      float32(quote.AskSize),
			DateTime:    uint64(quote.TimestampNS / int64(time.Second)),
			IsBidChange: 1,
			IsAskChange: 1,
		}
		s.sendOrDisconnect(sess, msg)
	}
}

// OnConnection implements feed.Sink; adapter connectivity changes are
// logged but otherwise do not affect live sessions (the server keeps
// serving whatever data it has).
func (s *Server) OnConnection(exchange string, state feed.ConnectionState) {
	s.logger.Info().Str("exchange", exchange).Str("state", state.String()).Msg("feed connection state changed")
}

// OnError implements feed.Sink.
func (s *Server) OnError(exchange string, err error) {
	s.logger.Error().Str("exchange", exchange).Err(err).Msg("feed adapter error")
}

func (s *Server) sendOrDisconnect(sess *session.Session, msg dtc.Message) {
	if err := sess.Send(msg, s.clock.Now().Add(5*time.Second)); err != nil {
		_, _ = sess.Transition(session.EventSendFailed)
		_ = sess.Close()
	}
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}

