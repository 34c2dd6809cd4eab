package domain

import (
	"context"
	"fmt"
	"strings"
)

// Command is a control-boundary message. It carries no payload.
type Command int

const (
	CommandShow Command = iota + 1
	CommandHide
)

func (c Command) String() string {
	switch c {
	case CommandShow:
		return "show"
	case CommandHide:
		return "hide"
	default:
		return "unknown"
	}
}

// ParseCommand converts a case-insensitive name into a Command.
func ParseCommand(s string) (Command, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "show":
		return CommandShow, nil
	case "hide":
		return CommandHide, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
	}
}

// CommandSender delivers commands across the control boundary. Delivery is fire-and-forget:
// Send returns once the command is handed off, not once it has been processed.
type CommandSender interface {
	Send(ctx context.Context, cmd Command) error
}
