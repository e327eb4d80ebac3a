package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/bus"
)

var (
	confirmReset bool
	resetRedis   bool
	resetDB      bool
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the local database and/or the activity stream",
	Long: `Reset clears the local SQLite database (stored session and audit trail)
and/or deletes the Redis activity stream.

By default both are reset. Use --redis-only or --db-only to pick one.
Incidents live in the analysis backend and are not touched.

WARNING: This operation is irreversible.

Examples:
  # Reset both (asks for confirmation)
  copilot reset

  # Reset with automatic confirmation
  copilot reset --yes

  # Only delete the activity stream
  copilot reset --redis-only`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().BoolVarP(&confirmReset, "yes", "y", false, "Automatically confirm reset operation")
	resetCmd.Flags().BoolVar(&resetRedis, "redis-only", false, "Reset only the Redis activity stream")
	resetCmd.Flags().BoolVar(&resetDB, "db-only", false, "Reset only the local database")
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()
	out := cmd.OutOrStdout()

	doRedis, doDB := resetRedis, resetDB
	if !doRedis && !doDB {
		doRedis, doDB = true, true
	}
	if doRedis && config.Redis.URL == "" {
		if !doDB {
			return fmt.Errorf("no Redis configured (--redis or redis.url)")
		}
		doRedis = false
	}

	var targets []string
	if doRedis {
		targets = append(targets, "the Redis activity stream")
	}
	if doDB {
		targets = append(targets, "the local database")
	}
	fmt.Fprintf(out, "This will permanently delete: %s\n", strings.Join(targets, " and "))

	if !confirmReset && !confirm(cmd, "Are you sure you want to continue? (y/N): ") {
		fmt.Fprintln(out, "Reset operation cancelled.")
		return nil
	}

	if doRedis {
		if err := resetActivityStream(ctx, config.Redis.URL); err != nil {
			if !doDB {
				return fmt.Errorf("failed to reset Redis data: %w", err)
			}
			fmt.Fprintf(out, "Warning: Failed to reset Redis data: %v\n", err)
			if !confirmReset && !confirm(cmd, "Would you like to continue with database reset only? (y/N): ") {
				return fmt.Errorf("reset operation cancelled due to Redis connection failure")
			}
		} else {
			fmt.Fprintln(out, "✓ Activity stream cleared")
		}
	}

	if doDB {
		path := resolvePathRelativeToBase(getWorkingDir(), config.Database.Path)
		removed, err := removeDatabaseFiles(path)
		if err != nil {
			return fmt.Errorf("failed to reset database: %w", err)
		}
		if len(removed) == 0 {
			fmt.Fprintln(out, "No database files found to remove")
		} else {
			fmt.Fprintf(out, "Removed database files: %s\n", strings.Join(removed, ", "))
		}
	}

	fmt.Fprintln(out, "Reset operation completed successfully!")
	return nil
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	var response string
	fmt.Fscanln(cmd.InOrStdin(), &response)
	response = strings.ToLower(response)
	return response == "y" || response == "yes"
}

// resetActivityStream deletes only the activity stream, leaving other keys alone.
func resetActivityStream(ctx context.Context, redisURL string) error {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	if err := client.Del(ctx, bus.ActivityStream).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", bus.ActivityStream, err)
	}
	return nil
}

// removeDatabaseFiles deletes the database and its WAL side files.
func removeDatabaseFiles(dbPath string) ([]string, error) {
	if dbPath == ":memory:" {
		return nil, nil
	}
	var removed []string
	for _, file := range []string{dbPath, dbPath + "-shm", dbPath + "-wal"} {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := os.Remove(file); err != nil {
			return removed, fmt.Errorf("failed to remove database file %s: %w", file, err)
		}
		removed = append(removed, filepath.Base(file))
	}
	return removed, nil
}
