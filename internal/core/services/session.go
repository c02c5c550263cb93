package services

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driven"
	"github.com/sl2676/TexQuery/internal/core/ports/driving"
	"github.com/sl2676/TexQuery/internal/logger"
)

// Ensure SessionService implements the interface.
var _ driving.Session = (*SessionService)(nil)

// Session prompts.
const (
	PromptSelectIndex = "Enter the index name to query (or 'all' to query all indexes): "
	PromptQuery       = "Enter your query (or 'help' for commands): "
	PromptTemperature = "Enter a temperature between 0.0 and 1.0: "
)

// SessionService is the interactive loop's finite-state machine.
// It is driven one line at a time and holds no goroutines, so the loop
// around it can stop between any two inputs.
type SessionService struct {
	answers driving.AnswerService
	speaker driven.Speaker

	state       domain.SessionState
	prev        domain.SessionState
	target      domain.Target
	temperature float64
	tts         bool
	indexes     []string
}

// NewSessionService creates a session starting in StateSelectingIndex.
// The speaker parameter is optional (can be nil).
func NewSessionService(answers driving.AnswerService, speaker driven.Speaker, temperature float64) *SessionService {
	if !domain.ValidTemperature(temperature) {
		temperature = domain.DefaultTemperature
	}
	return &SessionService{
		answers:     answers,
		speaker:     speaker,
		state:       domain.StateSelectingIndex,
		prev:        domain.StateSelectingIndex,
		temperature: temperature,
	}
}

// State returns the current state.
func (s *SessionService) State() domain.SessionState { return s.state }

// Temperature returns the synthesis temperature in effect.
func (s *SessionService) Temperature() float64 { return s.temperature }

// TTSEnabled reports whether answers are spoken.
func (s *SessionService) TTSEnabled() bool { return s.tts }

// Target returns the selected index.
func (s *SessionService) Target() domain.Target { return s.target }

// Start loads the index list and asks for an index.
func (s *SessionService) Start(ctx context.Context) driving.Reply {
	s.state = domain.StateSelectingIndex
	return s.reply(s.refreshIndexes(ctx))
}

// Handle processes one line of input.
func (s *SessionService) Handle(ctx context.Context, line string) driving.Reply {
	if s.state == domain.StateQuit {
		return s.reply("")
	}

	cmd := domain.ParseCommand(line)
	switch cmd.Kind {
	case domain.CmdQuit:
		s.state = domain.StateQuit
		return s.reply("Exiting...")

	case domain.CmdChangeIndex:
		s.target = domain.Target{}
		s.state = domain.StateSelectingIndex
		return s.reply(s.refreshIndexes(ctx))

	case domain.CmdSetTemperature:
		if s.state != domain.StateAwaitingTemperature {
			s.prev = s.state
		}
		s.state = domain.StateAwaitingTemperature
		return s.reply(fmt.Sprintf("Current temperature is %.2f.", s.temperature))

	case domain.CmdToggleTTS:
		return s.reply(s.toggleTTS())

	case domain.CmdHelp:
		return s.reply(helpText())
	}

	switch s.state {
	case domain.StateSelectingIndex:
		return s.reply(s.selectIndex(ctx, cmd.Text))
	case domain.StateAwaitingTemperature:
		return s.reply(s.setTemperature(cmd.Text))
	default:
		return s.reply(s.query(ctx, cmd.Text))
	}
}

func (s *SessionService) selectIndex(ctx context.Context, name string) string {
	if name == "" {
		return ""
	}
	target := domain.ParseTarget(name)
	if target.IsAll() {
		s.target = target
		s.state = domain.StateReady
		return "Querying all indexes."
	}

	resolved, ok := s.resolve(name)
	if !ok {
		// Another run may have ingested since the list was loaded.
		s.refreshIndexes(ctx)
		resolved, ok = s.resolve(name)
	}
	if !ok {
		return fmt.Sprintf("Invalid index name %q.", name)
	}
	s.target = domain.NamedIndex(resolved)
	s.state = domain.StateReady
	return fmt.Sprintf("Querying index %q.", resolved)
}

// resolve accepts an exact index name, or a source name that sanitises to one.
func (s *SessionService) resolve(name string) (string, bool) {
	for _, candidate := range []string{name, domain.SanitizeIndexName(name), domain.IndexNameFor(name)} {
		if slices.Contains(s.indexes, candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (s *SessionService) setTemperature(text string) string {
	t, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || !domain.ValidTemperature(t) {
		return fmt.Sprintf("Invalid temperature %q: %v.", text, domain.ErrTemperatureRange)
	}
	s.temperature = t
	s.state = s.prev
	return fmt.Sprintf("Temperature set to %.2f.", t)
}

func (s *SessionService) toggleTTS() string {
	if s.speaker == nil || !s.speaker.Available() {
		s.tts = false
		return "Text-to-speech is not available."
	}
	s.tts = !s.tts
	if s.tts {
		return "Text-to-speech enabled."
	}
	return "Text-to-speech disabled."
}

func (s *SessionService) query(ctx context.Context, text string) string {
	if text == "" {
		return ""
	}

	ans, err := s.answers.Answer(ctx, domain.AnswerRequest{
		Query:       text,
		Target:      s.target,
		Temperature: s.temperature,
	})
	if err != nil {
		logger.L().Error().
			Str("query", text).
			Str("index", s.target.String()).
			Str("error_kind", domain.KindOf(err).String()).
			Err(err).
			Msg("query failed")
		if domain.IsFatal(err) {
			s.state = domain.StateQuit
		}
		return fmt.Sprintf("Error (%s): %v", domain.KindOf(err), err)
	}

	if s.tts && s.speaker != nil {
		if err := s.speaker.Speak(ctx, ans.Text); err != nil {
			logger.Warn("text-to-speech failed: %v", err)
		}
	}
	return ans.Text
}

func (s *SessionService) refreshIndexes(ctx context.Context) string {
	names, err := s.answers.Indexes(ctx)
	if err != nil {
		logger.L().Error().Err(err).Msg("list indexes failed")
		return fmt.Sprintf("Error (%s): %v", domain.KindOf(err), err)
	}
	s.indexes = names
	if len(names) == 0 {
		return "No indexes to query. Run 'texquery ingest' first."
	}

	var b strings.Builder
	b.WriteString("Available indexes to query:")
	for _, n := range names {
		b.WriteString("\n- ")
		b.WriteString(n)
	}
	return b.String()
}

func (s *SessionService) reply(output string) driving.Reply {
	r := driving.Reply{Output: output, State: s.state}
	switch s.state {
	case domain.StateSelectingIndex:
		r.Prompt = PromptSelectIndex
	case domain.StateAwaitingTemperature:
		r.Prompt = PromptTemperature
	case domain.StateReady:
		r.Prompt = PromptQuery
	case domain.StateQuit:
		r.Quit = true
	}
	return r
}

func helpText() string {
	return `Commands:
  quit             exit the session
  change index     choose a different index (or 'all')
  set temperature  change the synthesis temperature (0.0 to 1.0)
  toggle tts       speak answers aloud
  help             show this message
Anything else is sent as a query to the selected index.`
}
