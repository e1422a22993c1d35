package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/obentoo/sbupdate/internal/autoupdate"
	"github.com/obentoo/sbupdate/internal/common/config"
	"github.com/obentoo/sbupdate/internal/common/logger"
	"github.com/obentoo/sbupdate/internal/common/output"
	"github.com/spf13/cobra"
)

var (
	// runPkgList names the packages to process
	runPkgList string
	// runVerList pins a version for each package in runPkgList
	runVerList string
	// runNoNotify suppresses the notification
	runNoNotify bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check upstream versions and stage new builds",
	Long: `Check every package for a new upstream version and stage a build
directory for each version that has none yet.

Examples:
  sbupdate run                                   Check all packages
  sbupdate run --pkg-list qemu,zenity            Check only qemu and zenity
  sbupdate run --pkg-list qemu --ver-list 9.1.0  Stage qemu 9.1.0 without checking upstream
  sbupdate run --no-notify                       Skip the desktop notification`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := runPipeline(ctx, cfg, runPkgList, runVerList, runNoNotify)
		if report != nil {
			displayRunReport(report)
		}
		return err
	},
}

func init() {
	runCmd.Flags().StringVar(&runPkgList, "pkg-list", "", "Comma separated packages to process")
	runCmd.Flags().StringVar(&runVerList, "ver-list", "", "Comma separated versions, one per --pkg-list entry")
	runCmd.Flags().BoolVar(&runNoNotify, "no-notify", false, "Do not send a notification")

	rootCmd.AddCommand(runCmd)
}

// runPipeline wires the configured catalog, stager, history and notifier and runs them
func runPipeline(ctx context.Context, cfg *config.Config, pkgList, verList string, noNotify bool) (*autoupdate.RunReport, error) {
	client := newClient(cfg)

	catalog, err := selectCatalog(func() (*autoupdate.Catalog, error) {
		return baseCatalog(cfg, client)
	}, pkgList, verList)
	if err != nil {
		return nil, err
	}

	stager, err := newStager(cfg, client)
	if err != nil {
		return nil, err
	}

	opts := []autoupdate.RunnerOption{autoupdate.WithNotifier(newNotifier(cfg, noNotify))}
	if history, err := autoupdate.OpenHistory(cfg.StateDir); err != nil {
		logger.Warn("History disabled: %v", err)
	} else {
		opts = append(opts, autoupdate.WithHistory(history))
	}

	return autoupdate.NewRunner(stager, opts...).Run(ctx, catalog)
}

// displayRunReport prints one line per package and a closing summary
func displayRunReport(report *autoupdate.RunReport) {
	if len(report.Results) == 0 {
		logger.Info("No packages to check")
		return
	}

	fmt.Println()
	output.Header.Println("Run Results")
	fmt.Println()

	for _, r := range report.Results {
		status := output.FormatStatus(string(r.Status))
		switch {
		case r.Error != nil:
			fmt.Printf("  %s %s: %v\n", status, r.Name, r.Error)
		default:
			fmt.Printf("  %s %s\n", status, output.FormatBuild(r.Name, r.Version))
		}
	}

	fmt.Println()
	if staged := report.Count(autoupdate.StatusStaged); staged > 0 {
		output.PrintSuccess("Staged %d new build(s)", staged)
	} else {
		output.Success.Println("No new versions")
	}
	if failed := report.Count(autoupdate.StatusFailed); failed > 0 {
		output.PrintWarning("%d package(s) had errors", failed)
	}
	output.Dim.Printf("Run %s\n", report.RunID)
}
