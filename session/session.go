package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/coinbase-dtc/bridge/dtc"
	"github.com/coinbase-dtc/bridge/platform"
	"github.com/coinbase-dtc/bridge/registry"
)

var nextClientID uint64

// NextClientID returns a fresh, monotonically increasing client id.
func NextClientID() uint64 {
	return atomic.AddUint64(&nextClientID, 1)
}

// Session is one connected DTC client: its transport, state machine,
// send mutex, receive reassembly buffer, and per-client symbol aliases.
type Session struct {
	ID        uint64
	Username  string
	ConnectAt time.Time

	transport platform.Transport
	clock     platform.Clock

	mu    sync.Mutex
	state State

	sendMu sync.Mutex

	reassembler *Reassembler

	lastHeartbeat time.Time

	Symbols *registry.SessionTable

	// Subscriptions tracks which canonical symbols this session currently
	// wants events for, independent of the per-session numeric aliasing
	// in Symbols.
	subMu         sync.Mutex
	subscriptions map[string]struct{}
}

// New builds a session in the Connected state, ready to receive a
// LogonRequest.
func New(transport platform.Transport, clock platform.Clock) *Session {
	now := clock.Now()
	return &Session{
		ID:            NextClientID(),
		ConnectAt:     now,
		transport:     transport,
		clock:         clock,
		state:         Connected,
		reassembler:   NewReassembler(),
		lastHeartbeat: now,
		Symbols:       registry.NewSessionTable(),
		subscriptions: make(map[string]struct{}),
	}
}

// State reports the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transition applies event to the session's state machine.
func (s *Session) Transition(event Event) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := Apply(s.state, event)
	if !ok {
		return s.state, ErrInvalidTransition.Wrapf("%s on event %d", s.state, event)
	}
	s.state = next
	return next, nil
}

// Send serializes msg and writes it to the transport under the session's
// send mutex, so outbound frames from different goroutines (broadcast
// fan-out vs. direct replies) never interleave on the wire.
func (s *Session) Send(msg dtc.Message, deadline time.Time) error {
	frame, err := dtc.Encode(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.transport.WriteAll(frame, deadline)
}

// ReadFrames reads available bytes from the transport and returns every
// complete frame now available, feeding the reassembly buffer first.
func (s *Session) ReadFrames(deadline time.Time) ([][]byte, error) {
	var buf [4096]byte
	n, err := s.transport.ReadSome(buf[:], deadline)
	if n > 0 {
		if feedErr := s.reassembler.Feed(buf[:n]); feedErr != nil {
			return nil, feedErr
		}
	}
	if err != nil {
		return nil, err
	}
	return s.reassembler.DrainAll(peekDTCFrame)
}

func peekDTCFrame(buf []byte) (int, bool, error) {
	length, ok, decErr := dtc.PeekFrameLength(buf)
	if decErr != nil {
		return 0, false, decErr
	}
	return length, ok, nil
}

// TouchHeartbeat records an inbound heartbeat (or any authenticated
// traffic) as keeping the session alive.
func (s *Session) TouchHeartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHeartbeat = s.clock.Now()
}

// IsHeartbeatExpired reports whether more than 2*interval has elapsed
// since the last inbound heartbeat.
func (s *Session) IsHeartbeatExpired(interval time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Now().Sub(s.lastHeartbeat) > 2*interval
}

// Subscribe records canonical as wanted by this session.
func (s *Session) Subscribe(canonical string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscriptions[canonical] = struct{}{}
}

// Unsubscribe removes canonical from this session's wanted set.
func (s *Session) Unsubscribe(canonical string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	delete(s.subscriptions, canonical)
}

// IsSubscribed reports whether this session currently wants canonical.
func (s *Session) IsSubscribed(canonical string) bool {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	_, ok := s.subscriptions[canonical]
	return ok
}

// SubscribedSymbols returns a snapshot of every canonical symbol this
// session currently wants, for unsubscribe-cascade bookkeeping on close.
func (s *Session) SubscribedSymbols() []string {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	out := make([]string, 0, len(s.subscriptions))
	for sym := range s.subscriptions {
		out = append(out, sym)
	}
	return out
}

// Close releases the session's transport.
func (s *Session) Close() error {
	return s.transport.Close()
}
