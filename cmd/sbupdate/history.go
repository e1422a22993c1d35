package main

import (
	"fmt"

	"github.com/obentoo/sbupdate/internal/autoupdate"
	"github.com/obentoo/sbupdate/internal/common/logger"
	"github.com/obentoo/sbupdate/internal/common/output"
	"github.com/spf13/cobra"
)

// historyLimit is how many entries to show
var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded staging outcomes",
	Long: `Show what previous runs did for each package: staged, skipped because
the build already existed, or failed with an error.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		history, err := autoupdate.OpenHistory(cfg.StateDir)
		if err != nil {
			return err
		}
		displayHistory(history.Last(historyLimit))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func displayHistory(entries []autoupdate.HistoryEntry) {
	if len(entries) == 0 {
		logger.Info("No history recorded")
		return
	}

	fmt.Println()
	output.Header.Println("Staging History")
	fmt.Println()

	lastRun := ""
	for _, e := range entries {
		if e.RunID != lastRun {
			output.Dim.Printf("  run %s, %s\n", e.RunID, e.At.Local().Format("2006-01-02 15:04"))
			lastRun = e.RunID
		}

		line := fmt.Sprintf("    %s %s", output.FormatStatus(string(e.Status)), output.FormatBuild(e.Package, e.Version))
		if e.Error != "" {
			line += output.Sprintf(output.Dim, ": %s", e.Error)
		}
		fmt.Println(line)
	}
	fmt.Println()
}
