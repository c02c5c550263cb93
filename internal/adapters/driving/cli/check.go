package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:         "check",
	Short:       "Check connectivity to the configured providers",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNeedsLLM: "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := requireServices()
		if err != nil {
			return err
		}
		if svc.Health == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No checks configured.")
			return nil
		}

		checks, err := svc.Health(cmd.Context())
		out := cmd.OutOrStdout()
		for _, c := range checks {
			status := "ok"
			if c.Err != nil {
				status = "FAILED: " + c.Err.Error()
			}
			fmt.Fprintf(out, "%-10s %-28s %s\n", c.Component, c.Model, status)
		}
		if err != nil {
			return fmt.Errorf("check failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
