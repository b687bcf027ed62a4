package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback [chunk-id] [delta]",
	Short: "Record engagement feedback on a chunk",
	Long: `Accumulates an engagement delta on a chunk. Positive deltas
boost the chunk in future rankings, negative deltas demote it.`,
	Args: cobra.ExactArgs(2),
	RunE: runFeedback,
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
}

func runFeedback(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if queryService == nil {
		return errors.New("query service not configured")
	}

	delta, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid delta %q: %w", args[1], err)
	}

	if err := queryService.RecordFeedback(context.Background(), tenant(), args[0], delta); err != nil {
		return fmt.Errorf("recording feedback: %w", err)
	}
	cmd.Printf("Recorded %+.2f on %s\n", delta, args[0])
	return nil
}
