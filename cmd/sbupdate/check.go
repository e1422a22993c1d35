package main

import (
	"context"
	"fmt"

	"github.com/obentoo/sbupdate/internal/autoupdate"
	"github.com/obentoo/sbupdate/internal/common/config"
	"github.com/obentoo/sbupdate/internal/common/logger"
	"github.com/obentoo/sbupdate/internal/common/output"
	"github.com/obentoo/sbupdate/internal/common/slackbuild"
	"github.com/spf13/cobra"
)

// checkPkgList narrows the check to some packages
var checkPkgList string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Show upstream versions without staging anything",
	Long: `Ask every version source for its current version and compare it with
the newest build directory. Nothing is downloaded or created.

Examples:
  sbupdate check                     Check all packages
  sbupdate check --pkg-list steam    Check only steam`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		rows, err := checkVersions(cmd.Context(), cfg, checkPkgList)
		if err != nil {
			return err
		}
		displayCheckRows(rows)
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkPkgList, "pkg-list", "", "Comma separated packages to check")
	rootCmd.AddCommand(checkCmd)
}

// checkRow is one package of a check
type checkRow struct {
	autoupdate.CheckResult
	// Newest is the highest existing build, nil when there is none
	Newest *slackbuild.Build
	// Status is new, exists or failed
	Status string
}

// checkVersions resolves the catalog and classifies each package against the build root
func checkVersions(ctx context.Context, cfg *config.Config, pkgList string) ([]checkRow, error) {
	client := newClient(cfg)
	catalog, err := selectCatalog(func() (*autoupdate.Catalog, error) {
		return baseCatalog(cfg, client)
	}, pkgList, "")
	if err != nil {
		return nil, err
	}

	var rows []checkRow
	for _, r := range catalog.Resolve(ctx) {
		row := checkRow{CheckResult: r, Status: "failed"}
		if r.Error == nil {
			builds, err := autoupdate.ListBuilds(cfg.BuildDir, r.Name)
			if err != nil {
				logger.Warn("%s: %v", r.Name, err)
			}
			row.Newest = slackbuild.Newest(builds)
			row.Status = "new"
			for _, b := range builds {
				if b.Version == r.Version {
					row.Status = "exists"
					break
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// displayCheckRows formats and displays check results
func displayCheckRows(rows []checkRow) {
	if len(rows) == 0 {
		logger.Info("No packages to check")
		return
	}

	fmt.Println()
	output.Header.Println("Version Check Results")
	fmt.Println()

	var newCount int
	for _, r := range rows {
		switch r.Status {
		case "failed":
			output.Error.Printf("  %s: %v\n", r.Name, r.Error)
		case "exists":
			output.Dim.Printf("  %s: %s (staged)\n", r.Name, r.Version)
		default:
			newCount++
			current := "none"
			if r.Newest != nil {
				current = r.Newest.Version
			}
			output.Success.Printf("  %s: %s → %s\n", r.Name, current, r.Version)
		}
	}

	fmt.Println()
	if newCount > 0 {
		output.Info.Printf("Found %d new version(s)\n", newCount)
		output.Info.Println("Use 'sbupdate run' to stage them")
	} else {
		output.Success.Println("All packages are staged")
	}
}
