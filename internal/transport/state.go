package transport

// State is the lifecycle of a Client's connection. Closed and Error are
// terminal; a Client is never reconnected.
type State int

const (
	StateDisconnected State = iota // Connect not called yet
	StateConnecting                // Handshake in flight
	StateOpen                      // Messages are delivered
	StateClosing                   // Close requested
	StateClosed                    // Closed locally or by the peer
	StateError                     // Dial or network fault
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateError
}
