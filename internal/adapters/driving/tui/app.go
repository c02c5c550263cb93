// Package tui provides the full-screen interactive session.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sl2676/TexQuery/internal/adapters/driving/tui/components/status"
	"github.com/sl2676/TexQuery/internal/adapters/driving/tui/keymap"
	"github.com/sl2676/TexQuery/internal/adapters/driving/tui/messages"
	"github.com/sl2676/TexQuery/internal/adapters/driving/tui/styles"
	"github.com/sl2676/TexQuery/internal/core/ports/driving"
)

// Rows taken by the bordered input line and the status bar.
const chromeHeight = 4

// App is the chat model following the Elm architecture.
// The session is only touched from commands, one at a time; busy guards
// against a second line being submitted while a reply is pending.
type App struct {
	session driving.Session
	ctx     context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	status   *status.Bar

	// transcript holds rendered lines, oldest first.
	transcript []string

	busy     bool
	quitting bool

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the chat model for session.
func NewApp(session driving.Session) (*App, error) {
	if session == nil {
		return nil, ErrMissingSession
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	in := textinput.New()
	in.Prompt = "> "
	in.PromptStyle = s.Prompt
	in.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.Muted

	bar := status.NewBar(s, km)
	bar.SetSession(session.State(), session.Target(), session.Temperature(), session.TTSEnabled())
	bar.SetBusy(true)

	return &App{
		session: session,
		ctx:     context.Background(),
		styles:  s,
		keymap:  km,
		input:   in,
		spinner: sp,
		status:  bar,
		busy:    true,
	}, nil
}

// WithContext sets the context passed to the session.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	a.status.SetBusy(true)
	return tea.Batch(
		tea.SetWindowTitle("texquery"),
		textinput.Blink,
		a.spinner.Tick,
		a.start(),
	)
}

func (a *App) start() tea.Cmd {
	session, ctx := a.session, a.ctx
	return func() tea.Msg {
		return messages.SessionStarted{Reply: session.Start(ctx)}
	}
}

func (a *App) handle(line string) tea.Cmd {
	session, ctx := a.session, a.ctx
	return func() tea.Msg {
		return messages.ReplyReceived{Input: line, Reply: session.Handle(ctx, line)}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.SessionStarted:
		return a, a.apply(msg.Reply)

	case messages.ReplyReceived:
		return a, a.apply(msg.Reply)

	case messages.Quit:
		a.quitting = true
		return a, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keymap.Quit):
		a.quitting = true
		return a, tea.Quit

	case key.Matches(msg, a.keymap.Submit):
		if a.busy {
			return a, nil
		}
		line := a.input.Value()
		a.input.Reset()
		a.appendLines(a.styles.Question.Render("> " + line))
		a.busy = true
		a.status.SetBusy(true)
		return a, tea.Batch(a.handle(line), a.spinner.Tick)

	case key.Matches(msg, a.keymap.Clear):
		a.input.Reset()
		return a, nil

	case key.Matches(msg, a.keymap.ScrollUp), key.Matches(msg, a.keymap.ScrollDown):
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// apply renders a session reply and adopts its prompt.
func (a *App) apply(r driving.Reply) tea.Cmd {
	a.busy = false
	a.status.SetBusy(false)
	a.status.SetSession(r.State, a.session.Target(), a.session.Temperature(), a.session.TTSEnabled())

	if out := strings.TrimSpace(r.Output); out != "" {
		style := a.styles.Answer
		if strings.HasPrefix(out, "Error (") {
			style = a.styles.Error
		}
		a.appendLines(style.Render(out))
	}
	a.input.Placeholder = placeholder(r.Prompt)

	if r.Quit {
		a.quitting = true
		return tea.Quit
	}
	return nil
}

func (a *App) appendLines(lines ...string) {
	a.transcript = append(a.transcript, lines...)
	a.refresh()
}

func (a *App) refresh() {
	if !a.ready {
		return
	}
	wrap := lipgloss.NewStyle().Width(a.width)
	a.viewport.SetContent(wrap.Render(strings.Join(a.transcript, "\n")))
	a.viewport.GotoBottom()
}

func (a *App) resize(width, height int) {
	a.width, a.height = width, height
	h := max(height-chromeHeight, 1)
	if !a.ready {
		a.viewport = viewport.New(width, h)
		a.ready = true
	} else {
		a.viewport.Width = width
		a.viewport.Height = h
	}
	// The field frame and the prompt take six columns, the cursor one more.
	a.input.Width = max(width-7, 10)
	a.status.SetWidth(width)
	a.refresh()
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}
	if !a.ready {
		return a.styles.Muted.Render("Starting...")
	}

	line := a.input.View()
	if a.busy {
		line = a.spinner.View() + " " + a.styles.Muted.Render("working...")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.viewport.View(),
		a.styles.InputField.Width(max(a.width-2, 1)).Render(line),
		a.status.View(),
	)
}

// Transcript returns the rendered transcript lines.
func (a *App) Transcript() []string {
	return a.transcript
}

// Busy reports whether a reply is pending.
func (a *App) Busy() bool {
	return a.busy
}

// Quitting reports whether the app is shutting down.
func (a *App) Quitting() bool {
	return a.quitting
}

// placeholder turns a session prompt into input placeholder text.
func placeholder(prompt string) string {
	p := strings.TrimSpace(prompt)
	return strings.TrimSuffix(p, ":")
}
