package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/incident"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <incident-id>",
	Short: "Mark an incident as resolved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetStatus(cmd, args[0], incident.StatusResolved)
	},
}

var reopenCmd = &cobra.Command{
	Use:   "reopen <incident-id>",
	Short: "Reopen a resolved incident",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetStatus(cmd, args[0], incident.StatusOpen)
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd, reopenCmd)
}

// runSetStatus loads the list so the change goes through the same
// optimistic path, audit trail and activity feed as the dashboard.
func runSetStatus(cmd *cobra.Command, id string, status incident.Status) error {
	ctx := cmd.Context()
	config := GetConfig()

	a, err := newApp(ctx, config, newLogger(cmd.ErrOrStderr(), "[triage] ", quietLevel(config.Log.Level)))
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireSession(); err != nil {
		return err
	}
	a.printNotices(cmd.OutOrStdout())

	if err := a.dash.Load(ctx); err != nil {
		return err
	}
	return a.dash.SetStatus(ctx, id, status)
}
