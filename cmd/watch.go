package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/ingest"
)

var (
	watchPatterns string
	watchExisting bool
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Submit log files dropped into a directory for analysis",
	Long: `Watch a drop folder and submit every matching file for analysis once it
stops changing. Files already present are skipped unless --existing is set.

Examples:
  # Watch ./incoming for the default patterns
  copilot watch ./incoming

  # Only .log files, including ones already in the folder
  copilot watch ./incoming --pattern "*.log" --existing`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchPatterns, "pattern", "", "Comma-separated glob patterns (default ingest.patterns)")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "Also submit files already in the folder")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()

	logger := newLogger(os.Stderr, "[watch] ", config.Log.Level)
	a, err := newApp(ctx, config, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireSession(); err != nil {
		return err
	}
	a.printNotices(cmd.OutOrStdout())

	patterns := config.Ingest.Patterns
	if watchPatterns != "" {
		patterns = splitPatterns(watchPatterns)
	}

	dir := resolvePathRelativeToBase(getWorkingDir(), expandHome(args[0]))
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	w := ingest.NewWatcher(a.dash, ingest.WatchOptions{
		Dir:             dir,
		Patterns:        patterns,
		IncludeExisting: watchExisting,
		Logger:          log.New(logger.Writer(), "[ingest] ", log.LstdFlags),
	})
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func splitPatterns(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
