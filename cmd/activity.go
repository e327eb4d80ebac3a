package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/bus"
)

var (
	activityGroup    string
	activityConsumer string
	activityTrim     int64
	activityStats    bool
)

// activityCmd tails the Redis activity stream written by every console.
var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Follow the shared incident activity feed",
	Long: `Follow the Redis Streams activity feed (incident-activity) that every
console publishes to: submissions and status changes, with the acting user.

Runs until interrupted (Ctrl+C).

Examples:
  # Follow with a private consumer
  copilot activity --redis redis://localhost:6379

  # Show stream statistics and exit
  copilot activity --stats

  # Cap the stream at ~10000 entries before following
  copilot activity --trim 10000`,
	Args: cobra.NoArgs,
	RunE: runActivity,
}

func init() {
	rootCmd.AddCommand(activityCmd)

	activityCmd.Flags().StringVar(&activityGroup, "group", "copilot-activity", "Consumer group name")
	activityCmd.Flags().StringVar(&activityConsumer, "consumer", "", "Consumer name (random when empty)")
	activityCmd.Flags().Int64Var(&activityTrim, "trim", 0, "Trim the stream to about this many entries first (0 = no trim)")
	activityCmd.Flags().BoolVar(&activityStats, "stats", false, "Print stream statistics and exit")
}

func runActivity(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()
	if config.Redis.URL == "" {
		return errors.New("activity feed needs --redis or redis.url")
	}

	logger := newLogger(os.Stderr, "[activity] ", config.Log.Level)
	rb, err := bus.NewRedisBus(config.Redis.URL, logger)
	if err != nil {
		return err
	}
	defer rb.Close()

	out := cmd.OutOrStdout()
	if activityStats {
		stats, err := rb.GetStats(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	if activityTrim > 0 {
		if err := rb.TrimActivity(ctx, activityTrim); err != nil {
			return err
		}
	}

	consumer := activityConsumer
	if consumer == "" {
		consumer = "copilot-" + uuid.NewString()[:8]
	}
	logger.Printf("Following %s as %s/%s", bus.ActivityStream, activityGroup, consumer)

	err = rb.ReadActivity(ctx, activityGroup, consumer, func(_ context.Context, msg bus.ActivityMessage) error {
		printActivity(out, msg)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func printActivity(w io.Writer, msg bus.ActivityMessage) {
	at := time.Unix(msg.Timestamp, 0).Local().Format("15:04:05")
	actor := msg.Actor
	if actor == "" {
		actor = "someone"
	}
	switch msg.Kind {
	case bus.KindStatusChanged:
		fmt.Fprintf(w, "%s  %s moved %s from %s to %s\n", at, actor, msg.IncidentID, msg.PrevStatus, msg.Status)
	case bus.KindIngested:
		fmt.Fprintf(w, "%s  %s submitted logs: %s [%s] %s\n", at, actor, msg.IncidentID, msg.Severity, msg.Service)
	default:
		fmt.Fprintf(w, "%s  %s %s %s\n", at, actor, msg.Kind, msg.IncidentID)
	}
}
