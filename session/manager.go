// Package session owns the clicker client's single connection to the game
// server: the Session lifecycle, the post-connect identity handshake, inbound
// dispatch, outbound commands and the close-time commit of the balance.
// Everything the UI must react to is published on the Events channel.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/cyberinferno/clickergame/dispatcher"
	"github.com/cyberinferno/clickergame/logger"
	"github.com/cyberinferno/clickergame/protocol"
	"github.com/cyberinferno/clickergame/wsclient"
)

// DefaultURL is the game server endpoint.
const DefaultURL = "ws://clicker-game-server.herokuapp.com:80/game/"

var (
	// ErrAlreadyStarted is returned by a second Connect.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrClosed is returned by Connect after Close.
	ErrClosed = errors.New("session is closed")
)

// LocalStore is the durable player state the session reconciles with.
type LocalStore interface {
	GetIdentity(ctx context.Context) (string, bool, error)
	SetIdentity(ctx context.Context, id string) (bool, error)
	GetPoints(ctx context.Context) (int, bool, error)
	SetPoints(ctx context.Context, points int) error
}

// Config holds the session settings.
type Config struct {
	// Client configures the WebSocket connection.
	Client wsclient.Config
	// EventBufferSize is the capacity of the Events channel.
	EventBufferSize int
}

// DefaultConfig returns the configuration for the public game server.
func DefaultConfig() Config {
	return Config{
		Client:          wsclient.DefaultConfig(DefaultURL),
		EventBufferSize: 64,
	}
}

// Manager is the ConnectionManager of one application run. It makes at most
// one connection attempt and cannot be reused after Close.
type Manager struct {
	id         uuid.UUID
	config     Config
	store      LocalStore
	log        logger.Logger
	client     *wsclient.Client
	dispatcher *dispatcher.Dispatcher
	sender     *CommandSender

	// ctx scopes store access from callbacks; cancelled once Close is done.
	ctx    context.Context
	cancel context.CancelFunc

	events chan Event
	stop   chan struct{}
	wg     sync.WaitGroup

	// stateMu orders state changes with their StateEvents.
	stateMu sync.Mutex

	mu         sync.Mutex
	state      State
	failed     bool
	started    bool
	closing    bool
	cancelDial context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// NewManager creates a Manager in Disconnected state. Nothing touches the
// network until Connect.
//
// Parameters:
//   - config: Endpoint and buffering (e.g. from DefaultConfig)
//   - store: Local player state
//   - log: Base logger; the manager derives a child tagged with its session id
func NewManager(config Config, store LocalStore, log logger.Logger) *Manager {
	if config.EventBufferSize < 0 {
		config.EventBufferSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New()

	m := &Manager{
		id:     id,
		config: config,
		store:  store,
		log:    log.With(logger.Field{Key: "session", Value: id.String()}),
		ctx:    ctx,
		cancel: cancel,
		events: make(chan Event, config.EventBufferSize),
		stop:   make(chan struct{}),
		state:  Disconnected,
	}

	h := &handler{m: m}
	m.client = wsclient.New(config.Client, h)
	m.dispatcher = dispatcher.New(store, h, m.log)
	m.sender = NewCommandSender(m.client, m.log)

	return m
}

// ID returns the session's correlation id, used in log entries.
func (m *Manager) ID() uuid.UUID {
	return m.id
}

// Events returns the channel of UI-visible effects. It is closed when Close
// completes. Publishing blocks while the buffer is full, so the consumer must
// keep draining until Close is called.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// State returns the current Session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Failed reports whether the connection attempt failed. A failed session
// stays Disconnected for the rest of the run.
func (m *Manager) Failed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed
}

// Points returns the in-memory balance and whether one is known.
func (m *Manager) Points() (int, bool) {
	return m.dispatcher.Points()
}

// NextClicks returns the in-memory next-award threshold and whether one is known.
func (m *Manager) NextClicks() (int, bool) {
	return m.dispatcher.NextClicks()
}

// Connect starts the single connection attempt on its own goroutine and
// returns immediately. The outcome is reported through Events: a StateEvent
// for Connected, or a ConnectionFailedEvent. There is no retry.
//
// Parameters:
//   - ctx: Bounds the dial only; Close also aborts a dial in progress
//
// Returns:
//   - ErrAlreadyStarted or ErrClosed if the attempt cannot start, nil otherwise
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}

	dialCtx, cancel := context.WithCancel(ctx)
	m.started = true
	m.cancelDial = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	if !m.transition(Disconnected, Connecting) {
		cancel()
		m.wg.Done()
		return ErrClosed
	}

	go func() {
		defer m.wg.Done()
		defer cancel()
		m.connect(dialCtx)
	}()

	return nil
}

// Send queues cmd for transmission. It never blocks and never reports
// failure; commands sent while disconnected are dropped and logged.
func (m *Manager) Send(cmd protocol.Command) {
	_ = m.sender.Send(cmd)
}

// Play sends the "play" command.
func (m *Manager) Play() {
	m.Send(protocol.CommandPlay)
}

// Reset sends the "reset" command.
func (m *Manager) Reset() {
	m.Send(protocol.CommandReset)
}

// Close sends "exit", moves the Session to Closing, flushes and closes the
// connection, commits the in-memory balance to local state and finally closes
// the Events channel. Safe to call at any point and more than once; later
// calls return the first call's result.
//
// Parameters:
//   - ctx: Bounds the balance commit
//
// Returns:
//   - An error if the balance could not be committed
func (m *Manager) Close(ctx context.Context) error {
	m.closeOnce.Do(func() {
		m.closeErr = m.close(ctx)
	})

	return m.closeErr
}

func (m *Manager) close(ctx context.Context) error {
	m.Send(protocol.CommandExit)

	m.mu.Lock()
	m.closing = true
	cancelDial := m.cancelDial
	m.mu.Unlock()

	close(m.stop)
	if cancelDial != nil {
		cancelDial()
	}

	m.setState(Closing)

	if err := m.client.Close(); err != nil {
		m.log.Warn("failed to close connection", logger.Err(err))
	}
	m.wg.Wait()

	err := m.commit(ctx)

	m.setState(Disconnected)
	m.cancel()
	close(m.events)

	m.log.Info("session closed")
	return err
}

func (m *Manager) connect(ctx context.Context) {
	m.log.Info("connecting", logger.Field{Key: "url", Value: m.config.Client.URL})

	err := m.client.Connect(ctx)
	if err == nil {
		return
	}

	if errors.Is(err, wsclient.ErrClosed) || m.isClosing() {
		m.log.Debug("connection attempt abandoned", logger.Err(err))
		return
	}

	if !m.changeState(Connecting, Disconnected, true, true) {
		m.log.Debug("connection attempt abandoned", logger.Err(err))
		return
	}

	msg := failureMessage(err)
	m.log.Error("connection failed", logger.Field{Key: "reason", Value: msg}, logger.Err(err))
	m.publish(ConnectionFailedEvent{Err: err, Message: msg})
}

// handshake announces the stored identity, or its absence, right after the
// connection opens.
func (m *Manager) handshake() {
	id, ok, err := m.store.GetIdentity(m.ctx)
	if err != nil {
		m.log.Error("failed to read identity, continuing without one", logger.Err(err))
	}

	if !ok {
		_ = m.sender.Send(protocol.CommandNoID)
		return
	}

	_ = m.sender.Send(protocol.IdentityCommand(id))

	points, ok, err := m.store.GetPoints(m.ctx)
	if err != nil || !ok {
		if err != nil {
			m.log.Warn("failed to read stored points", logger.Err(err))
		}

		m.publish(PointsUnavailableEvent{Text: PointsUnavailableText, Err: err})
		return
	}

	m.dispatcher.Seed(points)
	m.publish(PointsEvent{Points: points, Text: strconv.Itoa(points)})
}

// commit persists the in-memory balance. A balance is only stored for a
// known player, and an unknown balance never replaces a stored one.
func (m *Manager) commit(ctx context.Context) error {
	points, ok := m.dispatcher.Points()
	if !ok {
		return nil
	}

	_, hasID, err := m.store.GetIdentity(ctx)
	if err != nil {
		return fmt.Errorf("commit points: %w", err)
	}

	if !hasID {
		m.log.Debug("no identity stored, not committing points")
		return nil
	}

	if err := m.store.SetPoints(ctx, points); err != nil {
		m.log.Error("failed to commit points", logger.Err(err))
		return fmt.Errorf("commit points: %w", err)
	}

	m.log.Info("points committed", logger.Field{Key: "points", Value: points})
	return nil
}

func (m *Manager) setState(state State) {
	m.changeState(Disconnected, state, false, false)
}

// transition moves from one state to another only if the session is still
// in the expected state.
func (m *Manager) transition(from, to State) bool {
	return m.changeState(from, to, true, false)
}

// changeState sets the state, optionally only when it currently equals from,
// and publishes the StateEvent before any later change can publish its own.
// fail marks the run as failed together with the change.
func (m *Manager) changeState(from, to State, checkFrom, fail bool) bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	m.mu.Lock()
	if checkFrom && m.state != from {
		m.mu.Unlock()
		return false
	}

	if fail {
		m.failed = true
	}

	if m.state == to {
		m.mu.Unlock()
		return true
	}

	m.state = to
	failed := m.failed
	m.mu.Unlock()

	m.log.Debug("session state changed", logger.Field{Key: "state", Value: to.String()})
	m.publish(StateEvent{State: to, Failed: failed})
	return true
}

// publish hands ev to the UI. Until Close starts it waits for buffer space;
// afterwards it only delivers if there is room.
func (m *Manager) publish(ev Event) {
	select {
	case m.events <- ev:
		return
	case <-m.stop:
	}

	select {
	case m.events <- ev:
	default:
		m.log.Debug("dropping event during close", logger.Field{Key: "event", Value: ev.Kind()})
	}
}

func (m *Manager) isClosing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closing
}

func failureMessage(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return HostNotFoundText
	}

	return ConnectFailedText
}

// handler adapts connection callbacks and dispatcher effects onto the
// Manager without widening its exported API.
type handler struct {
	m *Manager
}

func (h *handler) OnOpen() {
	if !h.m.transition(Connecting, Connected) {
		return
	}

	h.m.log.Info("connected")
	h.m.handshake()
}

func (h *handler) OnMessage(text string) {
	h.m.dispatcher.Dispatch(h.m.ctx, text)
}

func (h *handler) OnClose(code int, reason string) {
	if h.m.transition(Connected, Disconnected) {
		h.m.log.Warn("connection lost",
			logger.Field{Key: "code", Value: code},
			logger.Field{Key: "reason", Value: reason})
	}
}

func (h *handler) OnError(err error) {
	h.m.log.Warn("connection error", logger.Err(err))
}

func (h *handler) PointsWon(points int) {
	h.m.publish(WonEvent{Points: points, Message: wonMessage(points)})
}

func (h *handler) NextClicksChanged(remaining int) {
	h.m.publish(NextClicksEvent{Remaining: remaining})
}

func (h *handler) PointsChanged(points int) {
	h.m.publish(PointsEvent{Points: points, Text: strconv.Itoa(points)})
}

func (h *handler) PointsExhausted() {
	h.m.publish(NoPointsEvent{Text: NoPointsText, PlayEnabled: false, ResetEnabled: true})
}

func (h *handler) IdentityAssigned(identity string) {
	h.m.log.Info("identity assigned", logger.Field{Key: "identity", Value: identity})
	h.m.publish(IdentityEvent{Identity: identity})
}
