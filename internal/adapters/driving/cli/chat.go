package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sl2676/TexQuery/internal/adapters/driving/tui"
	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driving"
	"github.com/sl2676/TexQuery/internal/logger"
)

var chatPlain bool

// isTerminal reports whether stdin and stdout are both terminals.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive question session",
	Long: `Starts an interactive session: pick an index (or 'all'), then ask
questions. Uses the full-screen UI when attached to a terminal and plain
line mode otherwise.

Commands:
  quit             exit the session
  change index     choose a different index
  set temperature  change the synthesis temperature
  toggle tts       speak answers aloud
  help             list commands`,
	Annotations: map[string]string{annotationNeedsLLM: "true"},
	RunE:        runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "use line mode even on a terminal")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	if svc.NewSession == nil {
		return domain.FatalError("chat", "", errors.New("sessions not configured"))
	}
	session := svc.NewSession()

	if chatPlain || !isTerminal() {
		return runLineMode(cmd.Context(), session, cmd.InOrStdin(), cmd.OutOrStdout())
	}
	return runTUI(cmd.Context(), session)
}

func runTUI(ctx context.Context, session driving.Session) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = domain.FatalError("chat", "", fmt.Errorf("tui panic: %v", r))
		}
	}()

	app, err := tui.NewApp(session)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(ctx)

	// Console logging is off while the alternate screen is up.
	logger.SetOutput(io.Discard)
	defer logger.SetOutput(os.Stderr)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runLineMode drives session from newline-separated input until the
// session quits, input ends or ctx is done. Cancellation is observed
// between lines only.
func runLineMode(ctx context.Context, session driving.Session, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	reply := session.Start(ctx)
	for {
		writeReply(out, reply)
		if reply.Quit {
			return nil
		}

		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("reading input: %w", err)
					}
				default:
				}
				return nil
			}
			reply = session.Handle(ctx, line)
		}
	}
}

func writeReply(w io.Writer, r driving.Reply) {
	if r.Output != "" {
		fmt.Fprintln(w, r.Output)
	}
	if r.Prompt != "" {
		fmt.Fprint(w, r.Prompt)
	}
}
