package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sl2676/TexQuery/internal/core/domain"
)

var (
	askIndex       string
	askTemperature float64
	askSources     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Answer one question from indexed documents",
	Long: `Retrieves the closest chunks from the selected index (or from every
index with --index all) and asks the language model to answer using them
as context.`,
	Args:        cobra.MinimumNArgs(1),
	Annotations: map[string]string{annotationNeedsLLM: "true"},
	RunE:        runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askIndex, "index", "i", "", "index to query, or 'all'")
	askCmd.Flags().Float64VarP(&askTemperature, "temperature", "t", domain.DefaultTemperature, "synthesis temperature (0.0 to 1.0)")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "list the matches used as context")
	_ = askCmd.MarkFlagRequired("index")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}

	temperature := svc.Temperature
	if cmd.Flags().Changed("temperature") {
		temperature = askTemperature
	}

	ans, err := svc.Answers.Answer(cmd.Context(), domain.AnswerRequest{
		Query:       strings.Join(args, " "),
		Target:      domain.ParseTarget(askIndex),
		Temperature: temperature,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ans.Text)
	if askSources {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		printMatches(out, ans.Matches)
	}
	return nil
}

func printMatches(w io.Writer, matches []domain.Match) {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}
	for i, m := range matches {
		fmt.Fprintf(w, "[%d] %s / %s (%s, score %.4f)\n",
			i+1, m.Metadata.SourceFile, m.Metadata.SectionTitle, m.Index, m.Score)
	}
}
