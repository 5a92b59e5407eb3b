// Package dispatcher interprets inbound clicker frames and reconciles the
// player's in-memory balance, next-click threshold and identity with them.
package dispatcher

import (
	"context"
	"sync"

	"github.com/cyberinferno/clickergame/logger"
	"github.com/cyberinferno/clickergame/protocol"
)

// MaxNextClicks is the upper bound of the next-award threshold.
const MaxNextClicks = 10

// Listener receives the effects of dispatched frames. It is called from the
// goroutine that calls Dispatch; implementations hand the effect over to
// whatever context owns the UI.
type Listener interface {
	// PointsWon reports a ":won" award.
	PointsWon(points int)
	// NextClicksChanged reports an accepted ":next" threshold.
	NextClicksChanged(remaining int)
	// PointsChanged reports an accepted ":points" balance.
	PointsChanged(points int)
	// PointsExhausted reports ":nopoints": play must be disabled and reset
	// enabled.
	PointsExhausted()
	// IdentityAssigned reports that a ":id" identity was persisted.
	IdentityAssigned(identity string)
}

// IdentityStore is the part of the local state the dispatcher writes.
type IdentityStore interface {
	SetIdentity(ctx context.Context, id string) (bool, error)
}

// Dispatcher routes parsed frames to their handlers. It is safe for
// concurrent use.
type Dispatcher struct {
	store    IdentityStore
	listener Listener
	log      logger.Logger
	handlers map[protocol.Tag]func(context.Context, protocol.Message)

	mu        sync.RWMutex
	points    int
	hasPoints bool
	next      int
	hasNext   bool
}

// New returns a Dispatcher with no known balance or threshold.
//
// Parameters:
//   - store: Where ":id" identities are persisted
//   - listener: Receives the effects of accepted frames
//   - log: Logger for ignored frames
func New(store IdentityStore, listener Listener, log logger.Logger) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		listener: listener,
		log:      log.With(logger.Field{Key: "component", Value: "dispatcher"}),
	}

	d.handlers = map[protocol.Tag]func(context.Context, protocol.Message){
		protocol.TagWon:      d.handleWon,
		protocol.TagNext:     d.handleNext,
		protocol.TagPoints:   d.handlePoints,
		protocol.TagNoPoints: d.handleNoPoints,
		protocol.TagID:       d.handleID,
	}

	return d
}

// Dispatch parses raw and applies it. Malformed frames and unknown tags are
// logged and otherwise ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, raw string) {
	msg := protocol.Parse(raw)

	if !msg.Tag.Known() {
		d.log.Debug("ignoring unknown frame", logger.Field{Key: "frame", Value: raw})
		return
	}

	d.handlers[msg.Tag](ctx, msg)
}

// Seed sets the balance loaded from local state at connection-open without
// notifying the listener. Negative values are ignored.
func (d *Dispatcher) Seed(points int) {
	if points < 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.points = points
	d.hasPoints = true
}

// Points returns the current balance and whether one is known.
func (d *Dispatcher) Points() (int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.points, d.hasPoints
}

// NextClicks returns the current threshold and whether one is known.
func (d *Dispatcher) NextClicks() (int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.next, d.hasNext
}

func (d *Dispatcher) handleWon(_ context.Context, msg protocol.Message) {
	points, err := msg.Int()
	if err != nil {
		d.ignore(msg, err)
		return
	}

	d.listener.PointsWon(points)
}

func (d *Dispatcher) handleNext(_ context.Context, msg protocol.Message) {
	next, err := msg.Int()
	if err != nil {
		d.ignore(msg, err)
		return
	}

	if next < 0 || next > MaxNextClicks {
		d.ignore(msg, nil)
		return
	}

	d.mu.Lock()
	d.next = next
	d.hasNext = true
	d.mu.Unlock()

	d.listener.NextClicksChanged(next)
}

func (d *Dispatcher) handlePoints(_ context.Context, msg protocol.Message) {
	points, err := msg.Int()
	if err != nil {
		d.ignore(msg, err)
		return
	}

	if points < 0 {
		d.ignore(msg, nil)
		return
	}

	d.mu.Lock()
	d.points = points
	d.hasPoints = true
	d.mu.Unlock()

	d.listener.PointsChanged(points)
}

func (d *Dispatcher) handleNoPoints(_ context.Context, _ protocol.Message) {
	d.listener.PointsExhausted()
}

func (d *Dispatcher) handleID(ctx context.Context, msg protocol.Message) {
	if !msg.HasArg {
		d.ignore(msg, protocol.ErrMissingArgument)
		return
	}

	stored, err := d.store.SetIdentity(ctx, msg.Arg)
	if err != nil {
		d.log.Error("failed to persist identity", logger.Err(err))
		return
	}

	if !stored {
		d.log.Debug("identity already set, keeping it", logger.Field{Key: "offered", Value: msg.Arg})
		return
	}

	d.listener.IdentityAssigned(msg.Arg)
}

func (d *Dispatcher) ignore(msg protocol.Message, err error) {
	fields := []logger.Field{
		{Key: "tag", Value: string(msg.Tag)},
		{Key: "arg", Value: msg.Arg},
	}
	if err != nil {
		fields = append(fields, logger.Err(err))
	}

	d.log.Debug("ignoring invalid frame", fields...)
}
