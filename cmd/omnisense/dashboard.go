// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show counts and the most recent research and alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		d := s.state.Dashboard()
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), d)
		}
		printDashboard(cmd.OutOrStdout(), d)
		return nil
	},
}

func init() {
	dashboardCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(dashboardCmd)
}
