package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [incident-id]",
	Short: "Show triage actions taken from this console",
	Long: `Show the local audit trail: status changes (including ones the backend
rejected) and submissions. Without an incident id the most recent entries
across all incidents are shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of entries")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()

	a, err := newApp(ctx, config, discardLogger)
	if err != nil {
		return err
	}
	defer a.Close()

	var id string
	if len(args) == 1 {
		id = args[0]
	}
	entries, err := a.store.GetAuditEntries(ctx, id, historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No history recorded")
		return nil
	}
	for _, e := range entries {
		target := e.IncidentID
		if target == "" {
			target = "-"
		}
		actor := e.Actor
		if actor == "" {
			actor = "unknown"
		}
		fmt.Fprintf(out, "%s  %-22s %-20s %s", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Action, target, actor)
		if len(e.Details) > 0 {
			fmt.Fprintf(out, "  %s", formatDetails(e.Details))
		}
		fmt.Fprintln(out)
	}
	return nil
}

func formatDetails(details map[string]string) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+details[k])
	}
	return strings.Join(parts, " ")
}
