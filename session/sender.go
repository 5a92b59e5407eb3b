package session

import (
	"errors"
	"fmt"

	"github.com/cyberinferno/clickergame/logger"
	"github.com/cyberinferno/clickergame/protocol"
	"github.com/cyberinferno/clickergame/wsclient"
)

// Transport accepts text frames for asynchronous transmission.
type Transport interface {
	Send(text string) error
}

// CommandSender validates outbound commands and hands them to the transport's
// queue. It never blocks on the network.
type CommandSender struct {
	transport Transport
	log       logger.Logger
}

// NewCommandSender returns a CommandSender writing to transport.
func NewCommandSender(transport Transport, log logger.Logger) *CommandSender {
	return &CommandSender{
		transport: transport,
		log:       log.With(logger.Field{Key: "component", Value: "sender"}),
	}
}

// Send queues cmd. Failures are logged and returned for diagnostics; callers
// on the UI path ignore them.
func (s *CommandSender) Send(cmd protocol.Command) error {
	if err := cmd.Validate(); err != nil {
		s.log.Warn("refusing to send command", logger.Err(err))
		return err
	}

	if err := s.transport.Send(cmd.String()); err != nil {
		if errors.Is(err, wsclient.ErrNotConnected) {
			s.log.Debug("dropping command, not connected", logger.Field{Key: "command", Value: cmd.String()})
		} else {
			s.log.Warn("dropping command", logger.Field{Key: "command", Value: cmd.String()}, logger.Err(err))
		}

		return fmt.Errorf("send %q: %w", cmd.String(), err)
	}

	s.log.Debug("command queued", logger.Field{Key: "command", Value: cmd.String()})
	return nil
}
