// Package cli provides the cobra command tree for texquery.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driven"
	"github.com/sl2676/TexQuery/internal/core/ports/driving"
	"github.com/sl2676/TexQuery/internal/observability"
)

// version is set at build time via SetVersion.
var version = "dev"

// Annotation keys recognised on commands.
const (
	// annotationNoServices marks commands that run without bootstrapping.
	annotationNoServices = "texquery/no-services"

	// annotationNeedsLLM marks commands that synthesise answers.
	annotationNeedsLLM = "texquery/needs-llm"
)

// HealthCheck is the result of pinging one provider.
type HealthCheck struct {
	Component string
	Model     string
	Err       error
}

// MetricsServer exposes process metrics over HTTP until ctx is done.
type MetricsServer interface {
	Serve(ctx context.Context, addr string) error
}

// Services are the ports the commands drive. The composition root
// builds them; tests install fakes with SetServices.
type Services struct {
	Ingest  driving.IngestService
	Answers driving.AnswerService
	Indexes driving.IndexAdmin

	// Source backs `ingest FILE...` and `watch`.
	Source driven.WatchableSource

	// RefFor maps a file argument to a source reference.
	RefFor func(path string) driven.SourceRef

	// NewSession starts a fresh interactive session.
	NewSession func() driving.Session

	// Health pings the configured providers.
	Health func(ctx context.Context) ([]HealthCheck, error)

	Metrics     MetricsServer
	MetricsAddr string

	// Temperature is the configured synthesis temperature.
	Temperature float64

	// Close releases adapters. Optional.
	Close func() error
}

// Options are handed to the Bootstrap function.
type Options struct {
	ConfigPath string
	Verbose    bool
	NeedsLLM   bool
}

// Bootstrap builds Services from configuration.
type Bootstrap func(ctx context.Context, opts Options) (*Services, error)

var (
	configPath string
	verbose    bool

	bootstrap   Bootstrap
	svcs        *Services
	commandSpan trace.Span
)

var rootCmd = &cobra.Command{
	Use:   "texquery",
	Short: "Ask questions about converted papers",
	Long: `texquery embeds structured paper documents into vector indexes and
answers questions about them with retrieved context and a language model.

Run 'texquery ingest' to index the input directory, then 'texquery chat'
for an interactive session or 'texquery ask' for a single question.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: prepare,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version printed by `texquery version`.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetBootstrap sets the function that builds Services on first use.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices installs ready-made Services, bypassing Bootstrap.
func SetServices(s *Services) {
	svcs = s
}

// Execute runs the command tree and releases services afterwards.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if commandSpan != nil {
		observability.RecordError(commandSpan, err)
		commandSpan.End()
		commandSpan = nil
	}
	if svcs != nil && svcs.Close != nil {
		if cerr := svcs.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// ExitCode maps a command error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case domain.IsFatal(err):
		return 2
	default:
		return 1
	}
}

func prepare(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[annotationNoServices] == "true" {
		return nil
	}

	if svcs == nil {
		if bootstrap == nil {
			return domain.FatalError("bootstrap", cmd.Name(), errors.New("services not configured"))
		}
		s, err := bootstrap(cmd.Context(), Options{
			ConfigPath: configPath,
			Verbose:    verbose,
			NeedsLLM:   cmd.Annotations[annotationNeedsLLM] == "true",
		})
		if err != nil {
			return err
		}
		svcs = s
	}

	// The tracer provider is installed by bootstrap.
	ctx, span := observability.StartCommandSpan(cmd.Context(), cmd.Name())
	commandSpan = span
	cmd.SetContext(ctx)
	return nil
}

// requireServices returns the installed Services or a fatal error.
func requireServices() (*Services, error) {
	if svcs == nil {
		return nil, domain.FatalError("run", "", errors.New("services not configured"))
	}
	return svcs, nil
}
