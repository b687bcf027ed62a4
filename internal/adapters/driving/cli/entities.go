package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var entitiesLimit int

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "Show the tenant's most central entities",
	Args:  cobra.NoArgs,
	RunE:  runEntities,
}

func init() {
	entitiesCmd.Flags().IntVarP(&entitiesLimit, "limit", "n", 20, "maximum number of entities")
	rootCmd.AddCommand(entitiesCmd)
}

func runEntities(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if graphService == nil {
		return errors.New("graph service not configured")
	}

	ranks, err := graphService.TopEntities(context.Background(), tenant(), entitiesLimit)
	if err != nil {
		return fmt.Errorf("listing entities: %w", err)
	}

	if len(ranks) == 0 {
		cmd.Println("No entities.")
		return nil
	}
	for _, rank := range ranks {
		cmd.Printf("%-8s %-40s %d\n", rank.Entity.Type, rank.Entity.Value, rank.TotalWeight)
	}
	return nil
}
