package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tmzncty/modelverify/pkg/verify/config"
	"github.com/tmzncty/modelverify/pkg/verify/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View past verification and repair runs",
	Long: `View the history of verification and repair runs.

Each run is recorded with its repository, overall verdict, and the
problems found, so past cache states can be compared over time.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove runs older than the retention period",
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getHistory loads the configuration and opens the run log at the
// configured path.
func getHistory() (*history.Log, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	hlog, err := history.New(cfg.History.Path)
	if err != nil {
		return nil, nil, err
	}
	return hlog, cfg, nil
}

// runHistory lists recent runs.
func runHistory(cmd *cobra.Command, args []string) error {
	hlog, _, err := getHistory()
	if err != nil {
		return err
	}

	entries, err := hlog.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'modelverify <repository>' to verify a model cache.")
		return nil
	}

	for _, entry := range entries {
		verdict := "VALID"
		if !entry.Valid {
			verdict = fmt.Sprintf("INVALID (%d problems)", len(entry.Problems))
		}
		printInfo("%s  %-7s %-8s %s  %s",
			entry.Timestamp.Local().Format("2006-01-02 15:04:05"),
			entry.Operation, verdict, entry.Repository, entry.ID)
	}
	return nil
}

// runHistoryShow prints one run in full.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	hlog, _, err := getHistory()
	if err != nil {
		return err
	}

	entry, err := hlog.Get(args[0])
	if err != nil {
		return err
	}

	printInfo("ID:         %s", entry.ID)
	printInfo("Time:       %s", entry.Timestamp.Local().Format(time.RFC3339))
	printInfo("Operation:  %s", entry.Operation)
	printInfo("Repository: %s@%s", entry.Repository, entry.Revision)
	printInfo("Valid:      %t", entry.Valid)
	printInfo("Checked:    %d files (%d valid, %d missing)",
		entry.Summary.FilesChecked, entry.Summary.FilesValid, entry.Summary.FilesMissing)
	for _, p := range entry.Problems {
		printInfo("  - %s: %s", p.Name, p.Reason)
	}
	return nil
}

// runHistoryClean prunes old runs.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	hlog, cfg, err := getHistory()
	if err != nil {
		return err
	}

	days := cfg.History.RetentionDays
	removed, err := hlog.Prune(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	printInfo("Removed %d entries older than %d days.", removed, days)
	return nil
}
