package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/incident"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/ui"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List incidents",
	Long: `Fetch incidents from the analysis backend and print them as text.
This works in any terminal and is an alternative to the TUI when terminal
capabilities are limited.

Examples:
  # All incidents
  copilot list

  # Open critical incidents mentioning "checkout"
  copilot list --status open --severity critical --search checkout

  # Machine readable
  copilot list --json`,
	RunE: runList,
}

var (
	listStatus   string
	listSeverity string
	listSearch   string
	listLimit    int
	listJSON     bool
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listStatus, "status", "all", "Status filter: all, open, resolved")
	listCmd.Flags().StringVar(&listSeverity, "severity", "all", "Severity filter: all, low, medium, high, critical")
	listCmd.Flags().StringVar(&listSearch, "search", "", "Case-insensitive search over summary and service")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum number of incidents to show (0 = all)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print JSON instead of text")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()

	status, err := incident.ParseStatusFilter(listStatus)
	if err != nil {
		return err
	}
	severity, err := incident.ParseSeverityFilter(listSeverity)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, config, newLogger(cmd.ErrOrStderr(), "[list] ", quietLevel(config.Log.Level)))
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireSession(); err != nil {
		return err
	}

	a.dash.SetCriteria(incident.Criteria{Status: status, Severity: severity, Search: listSearch})
	if err := a.dash.Load(ctx); err != nil {
		return err
	}
	visible := a.dash.Visible()
	if listLimit > 0 && len(visible) > listLimit {
		visible = visible[:listLimit]
	}

	out := cmd.OutOrStdout()
	if listJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(visible)
	}
	printIncidents(out, visible)
	return nil
}

// quietLevel keeps one-shot commands to failures unless debugging.
func quietLevel(level string) string {
	if level == "debug" {
		return level
	}
	return "error"
}

func printIncidents(w io.Writer, list []incident.Incident) {
	if len(list) == 0 {
		fmt.Fprintln(w, ui.EmptyMessage)
		return
	}

	fmt.Fprintf(w, "Found %d incidents:\n\n", len(list))
	for i, inc := range list {
		printIncident(w, i+1, inc)
	}
}

func printIncident(w io.Writer, n int, inc incident.Incident) {
	fmt.Fprintf(w, "%d. [%s] %s\n", n, strings.ToUpper(string(inc.Severity)), inc.Summary)
	fmt.Fprintf(w, "   ID: %s\n", inc.IncidentID)
	fmt.Fprintf(w, "   Service: %s\n", inc.Service)
	fmt.Fprintf(w, "   Status: %s\n", inc.Status.Label())
	if inc.CreatedAt != "" {
		fmt.Fprintf(w, "   Created: %s\n", inc.CreatedAt)
	}
	if inc.RootCause != "" {
		fmt.Fprintf(w, "   Root cause: %s\n", inc.RootCause)
	}
	fmt.Fprintln(w)
}

// discardLogger is used by commands that print their own output.
var discardLogger = log.New(io.Discard, "", 0)
