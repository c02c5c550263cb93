package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sl2676/TexQuery/internal/core/domain"
)

var (
	searchIndex string
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Embeds the query and prints the nearest chunks from the selected index,
or from every index with --index all. No language model is called.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchIndex, "index", "i", domain.AllIndexesToken, "index to query, or 'all'")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// searchHit is the JSON shape of one match.
type searchHit struct {
	ID       string          `json:"id"`
	Index    string          `json:"index"`
	Score    float64         `json:"score"`
	Metadata domain.Metadata `json:"metadata"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}

	res, err := svc.Answers.Retrieve(cmd.Context(), strings.Join(args, " "), domain.ParseTarget(searchIndex))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if !searchJSON {
		printMatches(out, res.Matches)
		return nil
	}

	hits := make([]searchHit, 0, len(res.Matches))
	for _, m := range res.Matches {
		hits = append(hits, searchHit{ID: m.ID, Index: m.Index, Score: m.Score, Metadata: m.Metadata})
	}
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
