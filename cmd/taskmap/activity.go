package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"taskmap/internal/monitor"
	"taskmap/internal/tui"
)

var (
	activityWindow int
	activityWatch  bool
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show recent pull request activity",
	Long: `List executions that produced a pull request within the activity
window. With --watch, opens a live terminal monitor instead.`,
	RunE: runActivity,
}

func init() {
	activityCmd.Flags().IntVar(&activityWindow, "window", 24, "Activity window in hours")
	activityCmd.Flags().BoolVar(&activityWatch, "watch", false, "Open the live activity monitor")
}

func runActivity(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if activityWatch {
		app := tui.New(db, activityWindow)
		_, err := tea.NewProgram(app, tea.WithAltScreen()).Run()
		return err
	}

	m := monitor.NewPrMonitor(db)
	recent, err := m.GetRecentPRActivity(activityWindow)
	if err != nil {
		return err
	}
	if len(recent) == 0 {
		fmt.Printf("No PR activity in the last %dh.\n", activityWindow)
		return nil
	}

	fmt.Printf("PR activity (last %dh):\n", activityWindow)
	for _, e := range recent {
		label := e.PRUrl
		if e.PRNumber > 0 {
			label = fmt.Sprintf("#%d %s", e.PRNumber, e.PRUrl)
		}
		fmt.Printf("  %s  %-10s %s\n", e.TaskID[:8], e.Status, label)
	}
	return nil
}
