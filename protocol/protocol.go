// Package protocol defines the clicker game's text wire vocabulary: the closed
// set of outbound commands and the parsing of inbound tagged frames.
//
// Frames are "<tag> [argument]". Inbound tags start with ':'; outbound
// commands never do.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownCommand is returned when a command outside the outbound
// vocabulary is validated.
var ErrUnknownCommand = errors.New("unknown command")

// ErrMissingArgument is returned when a numeric argument is requested from a
// frame that carried none.
var ErrMissingArgument = errors.New("missing argument")

// Command is one outbound frame.
type Command string

const (
	CommandPlay  Command = "play"
	CommandReset Command = "reset"
	CommandExit  Command = "exit"
	CommandNoID  Command = "noID"
)

const identityPrefix = "ID "

// IdentityCommand announces a previously issued player identity.
func IdentityCommand(identity string) Command {
	return Command(identityPrefix + identity)
}

// Validate reports whether c belongs to the outbound vocabulary.
func (c Command) Validate() error {
	switch c {
	case CommandPlay, CommandReset, CommandExit, CommandNoID:
		return nil
	}

	if id, ok := strings.CutPrefix(string(c), identityPrefix); ok && id != "" {
		return nil
	}

	return fmt.Errorf("%w: %q", ErrUnknownCommand, string(c))
}

// String implements fmt.Stringer.
func (c Command) String() string {
	return string(c)
}

// Tag identifies the type of an inbound frame.
type Tag string

const (
	TagWon      Tag = ":won"
	TagNext     Tag = ":next"
	TagPoints   Tag = ":points"
	TagNoPoints Tag = ":nopoints"
	TagID       Tag = ":id"
)

// Known reports whether t is part of the inbound vocabulary.
func (t Tag) Known() bool {
	switch t {
	case TagWon, TagNext, TagPoints, TagNoPoints, TagID:
		return true
	default:
		return false
	}
}

// Message is a parsed inbound frame.
type Message struct {
	Tag Tag
	// Arg is the single token after the tag. Empty when HasArg is false.
	Arg    string
	HasArg bool
}

// Parse splits a raw frame on single spaces: the first token is the tag and
// the second is the argument. Trailing line terminators and any tokens after
// the argument are dropped. Parse never fails: validation is left to each
// handler.
//
// Parameters:
//   - raw: One inbound text frame
//
// Returns:
//   - The tag and, if present and non-empty, its single-token argument
func Parse(raw string) Message {
	raw = strings.TrimRight(raw, "\r\n")

	tag, rest, _ := strings.Cut(raw, " ")
	arg, _, _ := strings.Cut(rest, " ")
	return Message{
		Tag:    Tag(tag),
		Arg:    arg,
		HasArg: arg != "",
	}
}

// Int returns the argument as a decimal integer.
func (m Message) Int() (int, error) {
	if !m.HasArg {
		return 0, fmt.Errorf("%s: %w", m.Tag, ErrMissingArgument)
	}

	n, err := strconv.Atoi(m.Arg)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer argument %q: %w", m.Tag, m.Arg, err)
	}

	return n, nil
}
