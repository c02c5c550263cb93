package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driven"
	"github.com/sl2676/TexQuery/internal/logger"
)

var watchInitial bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Ingest documents as they appear",
	Long: `Watches the input directory and ingests each document that is created
or rewritten. When metrics.addr is configured, Prometheus metrics are
served on /metrics for as long as the watch runs.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchInitial, "initial", true, "ingest existing documents before watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	if svc.Source == nil {
		return domain.FatalError("watch", "", errors.New("document source is not watchable"))
	}
	out := cmd.OutOrStdout()

	g, ctx := errgroup.WithContext(cmd.Context())
	if svc.Metrics != nil && svc.MetricsAddr != "" {
		g.Go(func() error {
			return svc.Metrics.Serve(ctx, svc.MetricsAddr)
		})
	}

	g.Go(func() error {
		if watchInitial {
			reports, err := svc.Ingest.IngestAll(ctx)
			for i := range reports {
				printReport(out, &reports[i])
			}
			if domain.IsFatal(err) {
				return err
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("initial ingestion incomplete: %v", err)
			}
		}

		fmt.Fprintln(out, "Watching for documents. Press Ctrl+C to stop.")
		return svc.Source.Watch(ctx, func(ref driven.SourceRef) {
			report, err := svc.Ingest.IngestRef(ctx, ref)
			if err != nil {
				logger.L().Error().
					Str("source", ref.ID).
					Str("path", ref.Path).
					Str("error_kind", domain.KindOf(err).String()).
					Err(err).
					Msg("watch ingestion failed")
				return
			}
			printReport(out, &report)
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
