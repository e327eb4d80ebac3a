package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/incident"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/ingest"
)

var analyzeText string

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Submit a log file or log text for analysis",
	Long: `Submit logs to the analysis backend and print the incidents it detects.

A file argument is uploaded first and then analyzed. With '-' or --text the
raw log text is sent directly.

Examples:
  # Upload and analyze a file
  copilot analyze ./app.log

  # Analyze text from stdin
  kubectl logs deploy/checkout | copilot analyze -

  # Analyze a single line
  copilot analyze --text "ERROR checkout 503 Service Unavailable"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeText, "text", "", "Raw log text to analyze instead of a file")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()

	if len(args) == 0 && analyzeText == "" {
		return fmt.Errorf("nothing to analyze: pass a file, '-' for stdin, or --text")
	}

	a, err := newApp(ctx, config, newLogger(cmd.ErrOrStderr(), "[analyze] ", quietLevel(config.Log.Level)))
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireSession(); err != nil {
		return err
	}
	a.printNotices(cmd.ErrOrStderr())

	var detected []incident.Incident
	switch {
	case analyzeText != "":
		detected, err = a.dash.SubmitText(ctx, analyzeText)
	case args[0] == "-":
		raw, readErr := io.ReadAll(cmd.InOrStdin())
		if readErr != nil {
			return fmt.Errorf("failed to read stdin: %w", readErr)
		}
		detected, err = a.dash.SubmitText(ctx, string(raw))
	default:
		f, openErr := ingest.OpenLogFile(expandHome(args[0]))
		if openErr != nil {
			return openErr
		}
		detected, err = a.dash.SubmitFile(ctx, f)
	}
	if err != nil {
		return err
	}

	if len(detected) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No incidents detected.")
		return nil
	}
	printIncidents(cmd.OutOrStdout(), detected)
	return nil
}

// expandHome turns a leading ~/ into the user's home directory.
func expandHome(p string) string {
	if len(p) < 2 || p[:2] != "~/" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return home + p[1:]
}
