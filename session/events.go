package session

import "fmt"

// Fixed display strings.
const (
	NoPointsText          = "No points left"
	PointsUnavailableText = "Could not load points"
	HostNotFoundText      = "Could not find host."
	ConnectFailedText     = "Could not connect to game server."
)

// Event is a UI-visible effect published on Manager.Events. Consumers
// type-switch on the concrete event.
type Event interface {
	// Kind names the event for logging.
	Kind() string
}

// StateEvent reports a Session state transition.
type StateEvent struct {
	State State
	// Failed is set once a connection attempt failed; the run will not connect.
	Failed bool
}

// ConnectionFailedEvent reports that the single connection attempt failed.
type ConnectionFailedEvent struct {
	Err     error
	Message string
}

// WonEvent is a transient "won N points" notification.
type WonEvent struct {
	Points  int
	Message string
}

// NextClicksEvent carries the clicks remaining until the next award.
type NextClicksEvent struct {
	Remaining int
}

// PointsEvent refreshes the displayed balance.
type PointsEvent struct {
	Points int
	Text   string
}

// PointsUnavailableEvent is published by the handshake when an identity is
// stored but its balance is missing or unreadable.
type PointsUnavailableEvent struct {
	Text string
	Err  error
}

// NoPointsEvent switches the UI into exhausted mode.
type NoPointsEvent struct {
	Text         string
	PlayEnabled  bool
	ResetEnabled bool
}

// IdentityEvent reports that the server issued, and we stored, an identity.
type IdentityEvent struct {
	Identity string
}

func (StateEvent) Kind() string             { return "state" }
func (ConnectionFailedEvent) Kind() string  { return "connection_failed" }
func (WonEvent) Kind() string               { return "won" }
func (NextClicksEvent) Kind() string        { return "next_clicks" }
func (PointsEvent) Kind() string            { return "points" }
func (PointsUnavailableEvent) Kind() string { return "points_unavailable" }
func (NoPointsEvent) Kind() string          { return "no_points" }
func (IdentityEvent) Kind() string          { return "identity" }

func wonMessage(points int) string {
	return fmt.Sprintf("You won %d points!", points)
}
