// Package status provides the status bar component for the TUI.
package status

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sl2676/TexQuery/internal/adapters/driving/tui/keymap"
	"github.com/sl2676/TexQuery/internal/adapters/driving/tui/styles"
	"github.com/sl2676/TexQuery/internal/core/domain"
)

// Bar displays the session state and keybinding hints.
type Bar struct {
	styles      *styles.Styles
	keymap      *keymap.KeyMap
	state       domain.SessionState
	target      string
	temperature float64
	tts         bool
	busy        bool
	width       int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles:      s,
		keymap:      km,
		state:       domain.StateSelectingIndex,
		temperature: domain.DefaultTemperature,
		width:       80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (s *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	// Bar is passive, updated via Set methods
	return s, nil
}

// View renders the status bar on a single line. Hints that do not fit
// are dropped from the end, then the whole line is cut to width.
func (s *Bar) View() string {
	inner := max(s.width-s.styles.StatusBar.GetHorizontalFrameSize(), 1)
	left := s.renderLeft()
	right := s.renderRight(inner - lipgloss.Width(left) - 1)

	line := left
	if right != "" {
		gap := max(inner-lipgloss.Width(left)-lipgloss.Width(right), 1)
		line += strings.Repeat(" ", gap) + right
	}
	line = lipgloss.NewStyle().MaxWidth(inner).Render(line)

	return s.styles.StatusBar.Width(s.width).Render(line)
}

func (s *Bar) renderLeft() string {
	if s.busy {
		return s.styles.Muted.Render("Thinking...")
	}

	parts := []string{s.state.String()}
	if s.target != "" {
		parts = append(parts, "index: "+s.target)
	}
	parts = append(parts, fmt.Sprintf("temp: %.2f", s.temperature))
	if s.tts {
		parts = append(parts, s.styles.Success.Render("tts"))
	}
	return s.styles.Muted.Render(strings.Join(parts, " | "))
}

// renderRight joins as many hints as fit in room columns.
func (s *Bar) renderRight(room int) string {
	const sep = " | "

	var hints []string
	used := 0
	for _, b := range s.keymap.ShortHelp() {
		h := b.Help()
		hint := fmt.Sprintf("%s: %s", h.Key, h.Desc)
		w := lipgloss.Width(hint)
		if len(hints) > 0 {
			w += len(sep)
		}
		if used+w > room {
			break
		}
		hints = append(hints, hint)
		used += w
	}
	if len(hints) == 0 {
		return ""
	}
	return s.styles.Muted.Render(strings.Join(hints, sep))
}

// SetSession copies the displayed session fields.
func (s *Bar) SetSession(state domain.SessionState, target domain.Target, temperature float64, tts bool) {
	s.state = state
	s.target = target.String()
	s.temperature = temperature
	s.tts = tts
}

// State returns the displayed session state.
func (s *Bar) State() domain.SessionState {
	return s.state
}

// Target returns the displayed index name.
func (s *Bar) Target() string {
	return s.target
}

// SetBusy marks a request as in flight.
func (s *Bar) SetBusy(busy bool) {
	s.busy = busy
}

// Busy reports whether a request is in flight.
func (s *Bar) Busy() bool {
	return s.busy
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}
