package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sl2676/TexQuery/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Embed and index documents",
	Long: `Reads structured documents from the configured input directory, splits
each section into chunks, embeds them and upserts the records into one
index per source file.

With file arguments only those documents are ingested. A malformed
document is reported and skipped; the remaining documents still run.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var reports []domain.IngestReport
	if len(args) == 0 {
		reports, err = svc.Ingest.IngestAll(ctx)
	} else {
		reports, err = ingestFiles(ctx, svc, args)
	}

	out := cmd.OutOrStdout()
	for i := range reports {
		printReport(out, &reports[i])
	}
	if domain.IsFatal(err) || errors.Is(err, context.Canceled) {
		return err
	}

	if names, lerr := svc.Answers.Indexes(ctx); lerr == nil {
		printIndexList(out, names)
	}
	if err != nil {
		return fmt.Errorf("some documents were not ingested: %w", err)
	}
	return nil
}

func ingestFiles(ctx context.Context, svc *Services, paths []string) ([]domain.IngestReport, error) {
	if svc.RefFor == nil {
		return nil, domain.FatalError("ingest", "", errors.New("file arguments are not supported by this source"))
	}

	var (
		reports []domain.IngestReport
		errs    []error
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := svc.Ingest.IngestRef(ctx, svc.RefFor(path))
		if err != nil {
			if domain.IsFatal(err) {
				return reports, err
			}
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		reports = append(reports, report)
	}
	return reports, errors.Join(errs...)
}

func printReport(w io.Writer, r *domain.IngestReport) {
	fmt.Fprintf(w, "%s: stored %d vectors in %s", r.Source, r.VectorCount, r.IndexName)
	if r.Skipped > 0 || r.Failed > 0 {
		fmt.Fprintf(w, " (%d skipped, %d failed)", r.Skipped, r.Failed)
	}
	fmt.Fprintln(w)
}

func printIndexList(w io.Writer, names []string) {
	if len(names) == 0 {
		fmt.Fprintln(w, "No indexes.")
		return
	}
	fmt.Fprintln(w, "Available indexes:")
	for _, n := range names {
		fmt.Fprintf(w, "  - %s\n", n)
	}
}
