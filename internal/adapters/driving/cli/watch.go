package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eaas-labs/recall-cli/internal/adapters/driving/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Watch a directory and ingest new files",
	Long: `Watches a directory and ingests every supported file that is
created or modified under it. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s (tenant %s), press Ctrl-C to stop.\n", args[0], tenant())
	err := watch.NewWatcher(ingestionService, tenant()).Run(ctx, args[0])
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
