package controller

import (
	"strings"
	"unicode"
)

// CommandKind is the closed set of invocation commands.
type CommandKind string

// Commands.
const (
	CommandUpdateStatus      CommandKind = "update_status"
	CommandToggleAlertLights CommandKind = "toggle_alert_lights"
	CommandMoveItems         CommandKind = "move_items"
	CommandUnknown           CommandKind = "unknown"
)

// Command is a parsed invocation argument.
type Command struct {
	Kind CommandKind `json:"kind"`
	// Argument is the trimmed argument as received.
	Argument string `json:"argument"`
	// Destination is the override container for move_items, if one was given.
	Destination string `json:"destination,omitempty"`
}

// ParseCommand maps an invocation argument onto a command. A blank argument
// is update_status. Otherwise the first whitespace-separated token is matched
// case-insensitively; for move_items the rest of the argument, which may
// itself contain spaces, is the destination override.
func ParseCommand(argument string) Command {
	arg := strings.TrimSpace(argument)
	if arg == "" {
		return Command{Kind: CommandUpdateStatus}
	}

	token, rest := arg, ""
	if i := strings.IndexFunc(arg, unicode.IsSpace); i >= 0 {
		token, rest = arg[:i], strings.TrimSpace(arg[i:])
	}

	cmd := Command{Argument: arg}
	switch kind := CommandKind(strings.ToLower(token)); kind {
	case CommandUpdateStatus, CommandToggleAlertLights:
		cmd.Kind = kind
	case CommandMoveItems:
		cmd.Kind = kind
		cmd.Destination = rest
	default:
		cmd.Kind = CommandUnknown
	}
	return cmd
}
