package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/cyberinferno/clickergame/session"
)

// console is the terminal stand-in for the game screen: a points display,
// a next-clicks display and the play/reset buttons.
type console struct {
	out io.Writer

	mu           sync.Mutex
	playEnabled  bool
	resetEnabled bool
}

func newConsole(out io.Writer) *console {
	return &console{
		out:         out,
		playEnabled: true,
	}
}

// press handles a button. It reports whether the command should be sent.
func (c *console) press(cmd string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch cmd {
	case "play":
		if !c.playEnabled {
			fmt.Fprintln(c.out, "play is disabled, type reset")
			return false
		}
		return true
	case "reset":
		if !c.resetEnabled {
			fmt.Fprintln(c.out, "reset is disabled")
			return false
		}
		c.resetEnabled = false
		c.playEnabled = true
		return true
	default:
		return false
	}
}

func (c *console) render(ev session.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e := ev.(type) {
	case session.StateEvent:
		fmt.Fprintf(c.out, "[%s]\n", e.State)
	case session.ConnectionFailedEvent:
		fmt.Fprintln(c.out, e.Message)
	case session.WonEvent:
		fmt.Fprintln(c.out, e.Message)
	case session.NextClicksEvent:
		fmt.Fprintf(c.out, "next: %d\n", e.Remaining)
	case session.PointsEvent:
		fmt.Fprintf(c.out, "points: %s\n", e.Text)
	case session.PointsUnavailableEvent:
		fmt.Fprintf(c.out, "points: %s\n", e.Text)
	case session.NoPointsEvent:
		c.playEnabled = e.PlayEnabled
		c.resetEnabled = e.ResetEnabled
		fmt.Fprintf(c.out, "points: %s\n", e.Text)
	case session.IdentityEvent:
		fmt.Fprintf(c.out, "player: %s\n", e.Identity)
	}
}
