package session

// State is the lifecycle state of the Session.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Closing
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Closing:
		return "Closing"
	default:
		return "Unknown"
	}
}
