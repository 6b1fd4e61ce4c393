package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/praetorian-inc/yaraexec/pkg/explore"
)

var (
	exploreDatastore string
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Interactively explore scan results",
	Long: `Launch an interactive TUI to browse matched items from a datastore.

Features:
  - Three-pane layout: filters, items table, match details
  - Faceted filtering by rule, file extension, and scan
  - Vi-style navigation (hjkl, Ctrl-f/b, g/G)
  - Opens items that still exist on disk in $PAGER
  - Sortable items table`,
	RunE: runExplore,
}

func init() {
	exploreCmd.Flags().StringVar(&exploreDatastore, "datastore", "yaraexec.db", "Path to datastore file")
}

func runExplore(cmd *cobra.Command, args []string) error {
	model, err := explore.New(exploreDatastore)
	if err != nil {
		return fmt.Errorf("loading datastore: %w", err)
	}
	defer model.Close()

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running explore TUI: %w", err)
	}

	return nil
}
