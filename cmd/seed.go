package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Submit sample logs so the dashboard has incidents to show",
	Long: `Submit a few bundled log excerpts (5xx errors, OOM kills, dependency
timeouts, authentication failures) for analysis. This is useful for local
testing against an empty backend, such as a fresh 'copilot devserver'.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()

	logger := log.New(cmd.OutOrStdout(), "[seed] ", log.LstdFlags)
	logger.Println("Seeding sample data...")

	a, err := newApp(ctx, config, newLogger(cmd.ErrOrStderr(), "[seed] ", quietLevel(config.Log.Level)))
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireSession(); err != nil {
		return err
	}

	total, failed := 0, 0
	for _, s := range sampleLogs {
		detected, err := a.dash.SubmitText(ctx, s.text)
		if err != nil {
			logger.Printf("Failed to submit %s: %v", s.name, err)
			failed++
			continue
		}
		logger.Printf("Submitted %s: %d incident(s)", s.name, len(detected))
		total += len(detected)
	}

	if failed == len(sampleLogs) {
		return fmt.Errorf("all %d sample submissions failed", failed)
	}
	logger.Printf("Seeding completed: %d incident(s) detected", total)
	return nil
}
