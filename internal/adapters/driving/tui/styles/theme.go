// Package styles holds the palette and lipgloss styles of the chat UI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette is the set of colours the chat UI draws with. Each colour
// adapts to light and dark terminal backgrounds.
type Palette struct {
	Accent   lipgloss.AdaptiveColor
	Question lipgloss.AdaptiveColor
	Text     lipgloss.AdaptiveColor
	Dim      lipgloss.AdaptiveColor
	OK       lipgloss.AdaptiveColor
	Prompt   lipgloss.AdaptiveColor
	Failure  lipgloss.AdaptiveColor
	Frame    lipgloss.AdaptiveColor
	Bar      lipgloss.AdaptiveColor
}

// DefaultPalette returns the built-in palette.
func DefaultPalette() *Palette {
	return &Palette{
		Accent:   lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: "#A78BFA"},
		Question: lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#67E8F9"},
		Text:     lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"},
		Dim:      lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"},
		OK:       lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#86EFAC"},
		Prompt:   lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FCD34D"},
		Failure:  lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#FCA5A5"},
		Frame:    lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"},
		Bar:      lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#1F2937"},
	}
}

// Styles are the rendered styles used by the app and its components.
type Styles struct {
	palette *Palette

	Title      lipgloss.Style
	Question   lipgloss.Style
	Answer     lipgloss.Style
	Muted      lipgloss.Style
	Error      lipgloss.Style
	Success    lipgloss.Style
	Prompt     lipgloss.Style
	InputField lipgloss.Style
	StatusBar  lipgloss.Style
}

// NewStyles builds styles from p. A nil palette means DefaultPalette.
func NewStyles(p *Palette) *Styles {
	if p == nil {
		p = DefaultPalette()
	}
	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}

	return &Styles{
		palette:  p,
		Title:    fg(p.Accent).Bold(true),
		Question: fg(p.Question).Bold(true),
		Answer:   fg(p.Text),
		Muted:    fg(p.Dim),
		Error:    fg(p.Failure),
		Success:  fg(p.OK),
		Prompt:   fg(p.Prompt),
		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Frame).
			Padding(0, 1),
		StatusBar: fg(p.Dim).
			Background(p.Bar).
			Padding(0, 1),
	}
}

// DefaultStyles returns styles built from the default palette.
func DefaultStyles() *Styles {
	return NewStyles(nil)
}

// Palette returns the palette the styles were built from.
func (s *Styles) Palette() *Palette {
	return s.palette
}
