// Package session implements the per-client DTC session: its state
// machine, serialized send path, receive reassembly buffer, and
// heartbeat bookkeeping.
package session

// State is a session's position in the DTC connection lifecycle.
type State uint8

const (
	Connected State = iota
	Authenticating
	Authenticated
	Subscribed
	Disconnecting
	Disconnected
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Subscribed:
		return "subscribed"
	case Disconnecting:
		return "disconnecting"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is a trigger offered to the state machine.
type Event uint8

const (
	EventLogonValid Event = iota
	EventLogonInvalid
	EventSubscribeRequest
	EventUnsubscribeRequest
	EventHeartbeat
	EventLogoff
	EventPeerClosed
	EventSendFailed
)

// transitions encodes the table from the session lifecycle design: which
// (state, event) pairs are legal and what state they land in. Anything
// absent here is rejected by Apply.
var transitions = map[State]map[Event]State{
	Connected: {
		EventLogonValid:   Authenticated,
		EventLogonInvalid: Disconnecting,
		EventPeerClosed:   Disconnected,
	},
	Authenticating: {
		EventLogonValid:   Authenticated,
		EventLogonInvalid: Disconnecting,
		EventPeerClosed:   Disconnected,
	},
	Authenticated: {
		EventSubscribeRequest: Subscribed,
		EventHeartbeat:        Authenticated,
		EventLogoff:           Disconnecting,
		EventPeerClosed:       Disconnected,
		EventSendFailed:       Disconnecting,
	},
	Subscribed: {
		EventSubscribeRequest:   Subscribed,
		EventUnsubscribeRequest: Subscribed,
		EventHeartbeat:          Subscribed,
		EventLogoff:             Disconnecting,
		EventPeerClosed:         Disconnected,
		EventSendFailed:         Disconnecting,
	},
	Disconnecting: {
		EventPeerClosed: Disconnected,
	},
}

// Apply returns the next state for (current, event), or ok=false if the
// transition is not legal from current.
func Apply(current State, event Event) (State, bool) {
	byEvent, ok := transitions[current]
	if !ok {
		return current, false
	}
	next, ok := byEvent[event]
	return next, ok
}
