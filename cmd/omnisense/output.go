// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pdiddy/omnisense/internal/app"
	"github.com/pdiddy/omnisense/internal/provider"
	"github.com/pdiddy/omnisense/internal/store"
	"github.com/pdiddy/omnisense/pkg/types"
)

const timeLayout = "2006-01-02 15:04"

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// clip shortens s to n runes, marking the cut with "...".
func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func stamp(ms int64) string {
	return time.UnixMilli(ms).Local().Format(timeLayout)
}

func printItems(w io.Writer, items []types.ResearchItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No research items.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-10s  %-16s  %-30s  %s\n", "ID", "Type", "Created", "Title", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 130))
	for _, it := range items {
		fmt.Fprintf(w, "%-36s  %-10s  %-16s  %-30s  %s\n",
			it.ID, it.Type, stamp(it.Timestamp), clip(it.Title, 30), clip(it.URL, 40))
	}
	fmt.Fprintf(w, "\n%d items\n", len(items))
}

func printItem(w io.Writer, it types.ResearchItem) {
	fmt.Fprintf(w, "ID:       %s\n", it.ID)
	fmt.Fprintf(w, "Type:     %s\n", it.Type)
	fmt.Fprintf(w, "Title:    %s\n", it.Title)
	fmt.Fprintf(w, "URL:      %s\n", it.URL)
	fmt.Fprintf(w, "Created:  %s\n", stamp(it.Timestamp))
	fmt.Fprintln(w)

	switch data := it.ExtractedData.(type) {
	case string:
		fmt.Fprintln(w, data)
	case nil:
		fmt.Fprintln(w, it.Summary)
	default:
		printJSON(w, data)
	}
	printSources(w, it.Sources)
}

func printSources(w io.Writer, sources []types.Citation) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSources:")
	for i, s := range sources {
		fmt.Fprintf(w, "  [%d] %s\n      %s\n", i+1, s.DisplayTitle(), s.URI)
	}
}

func printAlerts(w io.Writer, alerts []types.Alert) {
	if len(alerts) == 0 {
		fmt.Fprintln(w, "No alerts.")
		return
	}
	for _, a := range alerts {
		fmt.Fprintf(w, "%-8s  %-16s  %s\n          id: %s  source: %s\n",
			strings.ToUpper(string(a.Severity)), stamp(a.Timestamp), a.Message, a.ID, a.SourceID)
	}
}

func printDashboard(w io.Writer, d app.Dashboard) {
	fmt.Fprintf(w, "%d research items, %d alerts\n\n", d.ItemCount, d.AlertCount)
	fmt.Fprintln(w, "Recent research:")
	if len(d.RecentItems) == 0 {
		fmt.Fprintln(w, "  none yet")
	}
	for _, it := range d.RecentItems {
		fmt.Fprintf(w, "  %s  %-10s  %s\n", stamp(it.Timestamp), it.Type, clip(it.Title, 60))
	}
	fmt.Fprintln(w, "\nRecent alerts:")
	if len(d.RecentAlerts) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, a := range d.RecentAlerts {
		fmt.Fprintf(w, "  %s  %s\n", stamp(a.Timestamp), a.Message)
	}
}

// printOutcome shows a finished task: the report, its sources, and what was
// saved.
func printOutcome(w io.Writer, out app.Outcome) {
	if s, ok := out.Result.(provider.Structured); ok {
		printJSON(w, s.Data)
		for _, v := range s.Violations {
			fmt.Fprintf(w, "warning: %s\n", v)
		}
	} else if out.Result != nil {
		fmt.Fprintln(w, out.Result.Body())
		printSources(w, provider.SourcesOf(out.Result))
	}

	if out.Item != nil {
		fmt.Fprintf(w, "\nSaved %s (%s)\n", out.Item.ID, out.Item.Type)
	}
	if out.Alert != nil {
		fmt.Fprintf(w, "Alert: %s\n", out.Alert.Message)
	}
}

// exportTo writes snap to path, or to w when path is empty.
func exportTo(w io.Writer, path string, snap store.Snapshot, format string) error {
	if path == "" {
		return store.Export(w, snap, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	if err := store.Export(f, snap, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Exported %d items and %d alerts to %s\n", len(snap.History), len(snap.Alerts), path)
	return nil
}
