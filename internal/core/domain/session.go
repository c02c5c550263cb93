package domain

import "strings"

// SessionState is a state of the interactive session.
type SessionState int

const (
	// StateSelectingIndex waits for an index name or "all".
	StateSelectingIndex SessionState = iota

	// StateReady routes free text to retrieval and synthesis.
	StateReady

	// StateAwaitingTemperature waits for a value in [0.0, 1.0].
	StateAwaitingTemperature

	// StateQuit is terminal.
	StateQuit
)

func (s SessionState) String() string {
	switch s {
	case StateSelectingIndex:
		return "selecting-index"
	case StateReady:
		return "ready"
	case StateAwaitingTemperature:
		return "awaiting-temperature"
	case StateQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// CommandKind enumerates what a line of session input means.
type CommandKind int

const (
	// CmdText is free text: a query, an index name or a temperature,
	// depending on the state.
	CmdText CommandKind = iota
	CmdQuit
	CmdChangeIndex
	CmdToggleTTS
	CmdSetTemperature
	CmdHelp
)

func (k CommandKind) String() string {
	switch k {
	case CmdQuit:
		return "quit"
	case CmdChangeIndex:
		return "change index"
	case CmdToggleTTS:
		return "toggle tts"
	case CmdSetTemperature:
		return "set temperature"
	case CmdHelp:
		return "help"
	default:
		return "text"
	}
}

// Command is one parsed line of session input.
type Command struct {
	Kind CommandKind
	Text string
}

var reservedTokens = map[string]CommandKind{
	"quit":            CmdQuit,
	"exit":            CmdQuit,
	"change index":    CmdChangeIndex,
	"toggle tts":      CmdToggleTTS,
	"set temperature": CmdSetTemperature,
	"help":            CmdHelp,
}

// ReservedTokens lists the session commands in display order.
func ReservedTokens() []string {
	return []string{"quit", "change index", "toggle tts", "set temperature", "help"}
}

// ParseCommand classifies a line. Reserved tokens match case-insensitively
// and treat '-', '_' and repeated whitespace as a single space.
func ParseCommand(line string) Command {
	text := strings.TrimSpace(line)
	key := strings.Join(strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(strings.ToLower(text))), " ")
	if kind, ok := reservedTokens[key]; ok {
		return Command{Kind: kind}
	}
	return Command{Kind: CmdText, Text: text}
}
