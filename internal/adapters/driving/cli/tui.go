package cli

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/eaas-labs/recall-cli/internal/adapters/driving/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive query view",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if queryService == nil {
		return errors.New("query service not configured")
	}

	program := tea.NewProgram(tui.New(queryService, tenant()), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}
