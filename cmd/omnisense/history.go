// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/omnisense/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse and manage saved research",
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved research, newest first",
	Long: `List prints saved research items, newest first. --filter keeps items
whose title or URL contains the text, ignoring case.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetString("filter")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		items := s.state.FilterHistory(filter)
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), items)
		}
		printItems(cmd.OutOrStdout(), items)
		return nil
	},
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one research item in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		item, err := s.state.Item(args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), item)
		}
		printItem(cmd.OutOrStdout(), item)
		return nil
	},
}

// --- delete / clear subcommands ---

var historyDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete one research item",
	Long:  `Delete removes one item from history. Alerts raised by it are kept.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.state.DeleteItem(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all saved research",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		n := len(s.state.History())
		if err := s.state.ClearHistory(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d items\n", n)
		return nil
	},
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export history and alerts as YAML or JSON",
	Long: `Export writes all saved research and alerts to stdout, or to --output
when given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		return exportTo(cmd.OutOrStdout(), output, s.state.Snapshot(), format)
	},
}

func init() {
	historyListCmd.Flags().String("filter", "", "keep items whose title or URL contains this text")
	historyListCmd.Flags().Bool("json", false, "output items as JSON")
	historyShowCmd.Flags().Bool("json", false, "output the item as JSON")

	historyExportCmd.Flags().String("format", store.FormatYAML, "export format: yaml or json")
	historyExportCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(historyCmd)
}
