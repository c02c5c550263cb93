package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sl2676/TexQuery/internal/core/domain"
)

var indexesResetYes bool

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Manage vector indexes",
	Long:  `List, delete or reset the vector indexes created by ingestion.`,
}

var indexesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all indexes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := requireServices()
		if err != nil {
			return err
		}
		names, err := svc.Indexes.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list indexes: %w", err)
		}
		printIndexList(cmd.OutOrStdout(), names)
		return nil
	},
}

var indexesDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete one index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireServices()
		if err != nil {
			return err
		}
		if err := svc.Indexes.Delete(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete index: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted index %s\n", args[0])
		return nil
	},
}

var indexesResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !indexesResetYes {
			return domain.InputError("reset", "", errors.New("refusing to delete every index without --yes"))
		}
		svc, err := requireServices()
		if err != nil {
			return err
		}
		n, err := svc.Indexes.Reset(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to reset indexes: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d indexes\n", n)
		return nil
	},
}

func init() {
	indexesResetCmd.Flags().BoolVar(&indexesResetYes, "yes", false, "confirm deleting every index")
	indexesCmd.AddCommand(indexesListCmd, indexesDeleteCmd, indexesResetCmd)
	rootCmd.AddCommand(indexesCmd)
}
