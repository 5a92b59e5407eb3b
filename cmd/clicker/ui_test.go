package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cyberinferno/clickergame/session"
)

func TestConsole_InitialButtons(t *testing.T) {
	var out bytes.Buffer
	c := newConsole(&out)

	assert.True(t, c.press("play"))
	assert.False(t, c.press("reset"))
	assert.Contains(t, out.String(), "reset is disabled")
}

func TestConsole_NoPointsMode(t *testing.T) {
	var out bytes.Buffer
	c := newConsole(&out)

	c.render(session.NoPointsEvent{Text: session.NoPointsText, PlayEnabled: false, ResetEnabled: true})
	assert.Contains(t, out.String(), "points: No points left")

	assert.False(t, c.press("play"))
	assert.True(t, c.press("reset"))

	assert.True(t, c.press("play"), "reset re-enables play")
	assert.False(t, c.press("reset"), "reset disables itself")
}

func TestConsole_Render(t *testing.T) {
	tests := []struct {
		name string
		ev   session.Event
		want string
	}{
		{"state", session.StateEvent{State: session.Connected}, "[Connected]"},
		{"failed", session.ConnectionFailedEvent{Message: session.HostNotFoundText}, "Could not find host."},
		{"won", session.WonEvent{Points: 5, Message: "You won 5 points!"}, "You won 5 points!"},
		{"next", session.NextClicksEvent{Remaining: 3}, "next: 3"},
		{"points", session.PointsEvent{Points: 17, Text: "17"}, "points: 17"},
		{"unavailable", session.PointsUnavailableEvent{Text: session.PointsUnavailableText}, "points: Could not load points"},
		{"identity", session.IdentityEvent{Identity: "U1"}, "player: U1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			newConsole(&out).render(tt.ev)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestConsole_UnknownCommand(t *testing.T) {
	var out bytes.Buffer
	assert.False(t, newConsole(&out).press("jump"))
}
