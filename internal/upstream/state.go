package upstream

// ConnectionState tracks one server's progress through its connection
// attempt. Transitions run strictly forward; Connected and Failed are
// terminal.
type ConnectionState int

const (
	StateIdle ConnectionState = iota
	StateResolving
	StateConnecting
	StateAuthenticating
	StateConnected
	StateFailed
)

func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateResolving:
		return "Resolving"
	case StateConnecting:
		return "Connecting"
	case StateAuthenticating:
		return "Authenticating"
	case StateConnected:
		return "Connected"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}
