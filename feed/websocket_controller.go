package feed

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// MessageHandler processes one inbound websocket frame. messageType is
// the gorilla/websocket frame type (TextMessage/BinaryMessage).
type MessageHandler func(messageType int, conn *WebsocketConnection, data []byte)

// WebsocketConnection wraps one dialed connection: its send mutex (writes
// must be serialized per the gorilla/websocket contract), the messages it
// was opened with, and the ping cadence it is held to.
type WebsocketConnection struct {
	url              url.URL
	subscriptionMsgs []interface{}
	// refreshSubscriptions, when set, is called in place of subscriptionMsgs
	// on every (re)connect, so an adapter whose subscription set or auth
	// token changes over the connection's lifetime always replays its
	// current state rather than the set it was opened with.
	refreshSubscriptions func() []interface{}
	pingDuration          time.Duration
	pingMsgType           int
	onMessage             MessageHandler

	mu   sync.Mutex
	conn *websocket.Conn
}

// WriteJSON sends v as a single text frame, serialized against concurrent
// writers on this connection.
func (c *WebsocketConnection) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return websocket.ErrCloseSent
	}
	return c.conn.WriteJSON(v)
}

func (c *WebsocketConnection) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return websocket.ErrCloseSent
	}
	return c.conn.WriteMessage(c.pingMsgType, nil)
}

func (c *WebsocketConnection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// WebsocketController owns every WebsocketConnection a single adapter
// has open, dials them, and keeps them alive with a ping loop and
// exponential-backoff reconnect. Connections are independent: one
// connection failing to reconnect after MaxReconnectAttempts reports
// ConnectionFeedDown without affecting sibling connections.
type WebsocketController struct {
	ctx    context.Context
	cancel context.CancelFunc
	name   string
	logger zerolog.Logger
	onState func(ConnectionState)

	mu          sync.Mutex
	connections []*WebsocketConnection
}

// NewWebsocketController builds a controller for exchange name and opens
// the first connection with the given subscription messages. The
// controller derives its own cancelable context from ctx, so Stop can
// tear this controller down without affecting ctx's other owners.
func NewWebsocketController(
	ctx context.Context,
	name string,
	wsURL url.URL,
	subscriptionMsgs []interface{},
	onMessage MessageHandler,
	pingDuration time.Duration,
	pingMsgType int,
	logger zerolog.Logger,
) *WebsocketController {
	runCtx, cancel := context.WithCancel(ctx)
	wsc := &WebsocketController{
		ctx:    runCtx,
		cancel: cancel,
		name:   name,
		logger: logger,
	}
	wsc.AddWebsocketConnection(subscriptionMsgs, onMessage, pingDuration, pingMsgType, wsURL)
	return wsc
}

// Stop cancels every connection's maintain loop and closes the live
// sockets. Callers that replace a controller (e.g. to re-dial with a
// different stream URL) must Stop the old one, otherwise its reconnect
// loop keeps running against the stale URL and keeps delivering events.
func (wsc *WebsocketController) Stop() {
	wsc.mu.Lock()
	cancel := wsc.cancel
	conns := append([]*WebsocketConnection(nil), wsc.connections...)
	wsc.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	for _, c := range conns {
		c.close()
	}
}

// OnStateChange registers a callback invoked whenever any owned
// connection's lifecycle reaches a new ConnectionState. Only one callback
// is kept; the adapter installs it once at construction.
func (wsc *WebsocketController) OnStateChange(f func(ConnectionState)) {
	wsc.mu.Lock()
	defer wsc.mu.Unlock()
	wsc.onState = f
}

// AddWebsocketConnection opens an additional connection under this
// controller's supervision, dialing wsURL (or the controller's default
// URL when wsURL is the zero value is not supported — callers always
// pass an explicit URL).
func (wsc *WebsocketController) AddWebsocketConnection(
	subscriptionMsgs []interface{},
	onMessage MessageHandler,
	pingDuration time.Duration,
	pingMsgType int,
	wsURL url.URL,
) {
	conn := &WebsocketConnection{
		url:              wsURL,
		subscriptionMsgs: subscriptionMsgs,
		pingDuration:     pingDuration,
		pingMsgType:      pingMsgType,
		onMessage:        onMessage,
	}
	wsc.mu.Lock()
	wsc.connections = append(wsc.connections, conn)
	wsc.mu.Unlock()

	go wsc.maintain(conn)
}

// SetSubscriptionRefresher installs f on the controller's first
// connection. f is called every time that connection (re)connects and
// its return value replaces the static subscriptionMsgs replay list for
// that attempt, letting adapters that multiplex all subscriptions over
// one connection keep the authoritative subscribed set (and a fresh auth
// token, where one is required) current across reconnects.
func (wsc *WebsocketController) SetSubscriptionRefresher(f func() []interface{}) {
	wsc.mu.Lock()
	var conn *WebsocketConnection
	if len(wsc.connections) > 0 {
		conn = wsc.connections[0]
	}
	wsc.mu.Unlock()
	if conn == nil {
		return
	}
	conn.mu.Lock()
	conn.refreshSubscriptions = f
	conn.mu.Unlock()
}

// WriteFirst sends v on the controller's first connection. Adapters that
// multiplex every subscription over a single connection (rather than
// opening one connection per symbol) use this instead of tracking the
// *WebsocketConnection themselves.
func (wsc *WebsocketController) WriteFirst(v interface{}) error {
	wsc.mu.Lock()
	var conn *WebsocketConnection
	if len(wsc.connections) > 0 {
		conn = wsc.connections[0]
	}
	wsc.mu.Unlock()
	if conn == nil {
		return websocket.ErrCloseSent
	}
	return conn.WriteJSON(v)
}

// StartConnections is a no-op retained for parity with the adapter
// construction pattern the rest of the codebase follows: connections are
// already started by AddWebsocketConnection as they are added.
func (wsc *WebsocketController) StartConnections() {}

func (wsc *WebsocketController) reportState(state ConnectionState) {
	wsc.mu.Lock()
	cb := wsc.onState
	wsc.mu.Unlock()
	if cb != nil {
		cb(state)
	}
}

func (wsc *WebsocketController) maintain(conn *WebsocketConnection) {
	attempt := 0
	for {
		select {
		case <-wsc.ctx.Done():
			return
		default:
		}

		wsc.reportState(ConnectionConnecting)
		dialed, _, err := websocket.DefaultDialer.DialContext(wsc.ctx, conn.url.String(), nil)
		if err != nil {
			attempt++
			if attempt >= MaxReconnectAttempts {
				wsc.logger.Error().Str("exchange", wsc.name).Int("attempts", attempt).Msg("feed down: exceeded max reconnect attempts")
				wsc.reportState(ConnectionFeedDown)
				return
			}
			wsc.logger.Warn().Err(err).Str("exchange", wsc.name).Int("attempt", attempt).Msg("websocket dial failed, backing off")
			wsc.sleep(Backoff(attempt))
			continue
		}

		conn.mu.Lock()
		conn.conn = dialed
		refresh := conn.refreshSubscriptions
		msgs := conn.subscriptionMsgs
		conn.mu.Unlock()
		attempt = 0
		wsc.reportState(ConnectionUp)

		if refresh != nil {
			msgs = refresh()
		}
		for _, msg := range msgs {
			if err := conn.WriteJSON(msg); err != nil {
				wsc.logger.Error().Err(err).Str("exchange", wsc.name).Msg("failed to send subscription message")
			}
		}

		wsc.runConnection(conn)
		conn.close()
		wsc.reportState(ConnectionDown)

		select {
		case <-wsc.ctx.Done():
			return
		default:
		}
	}
}

func (wsc *WebsocketController) runConnection(conn *WebsocketConnection) {
	stopPing := make(chan struct{})
	defer close(stopPing)

	go func() {
		ticker := time.NewTicker(conn.pingDuration)
		defer ticker.Stop()
		for {
			select {
			case <-stopPing:
				return
			case <-wsc.ctx.Done():
				return
			case <-ticker.C:
				if err := conn.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		select {
		case <-wsc.ctx.Done():
			return
		default:
		}

		conn.mu.Lock()
		c := conn.conn
		conn.mu.Unlock()
		if c == nil {
			return
		}

		msgType, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		conn.onMessage(msgType, conn, data)
	}
}

func (wsc *WebsocketController) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-wsc.ctx.Done():
	}
}
