// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare ID [ID...]",
	Short: "Compare saved research items feature by feature",
	Long: `Compare sends the extracted data of the given history items to the
deep model and prints a comparison table with a recommendation. The
comparison is saved to history as its own item.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		task, err := s.researcher.StartComparison(cmd.Context(), args)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Comparing %d items...\n", len(args))

		out, err := task.Wait()
		if err != nil {
			return reportFailure(err)
		}
		printOutcome(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}
