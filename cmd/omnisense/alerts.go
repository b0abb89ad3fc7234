// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List and dismiss alerts",
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alerts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		alerts := s.state.Alerts()
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), alerts)
		}
		printAlerts(cmd.OutOrStdout(), alerts)
		return nil
	},
}

var alertsDismissCmd = &cobra.Command{
	Use:   "dismiss ID",
	Short: "Dismiss one alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.state.DismissAlert(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Dismissed %s\n", args[0])
		return nil
	},
}

var alertsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Dismiss all alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		n := len(s.state.Alerts())
		if err := s.state.ClearAlerts(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d alerts\n", n)
		return nil
	},
}

func init() {
	alertsListCmd.Flags().Bool("json", false, "output alerts as JSON")

	alertsCmd.AddCommand(alertsListCmd)
	alertsCmd.AddCommand(alertsDismissCmd)
	alertsCmd.AddCommand(alertsClearCmd)

	rootCmd.AddCommand(alertsCmd)
}
