package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-modality index sizes",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if queryService == nil {
		return errors.New("query service not configured")
	}

	statuses, err := queryService.Status(context.Background(), tenant())
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}

	if len(statuses) == 0 {
		cmd.Printf("Tenant %s has no indexed content.\n", tenant())
		return nil
	}
	cmd.Printf("Tenant %s:\n", tenant())
	for _, st := range statuses {
		cmd.Printf("  %-6s dim=%-5d size=%-8d updated=%s\n",
			st.Modality, st.Dimension, st.Size, st.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
