package main

import (
	"fmt"

	"github.com/obentoo/sbupdate/internal/autoupdate"
	"github.com/obentoo/sbupdate/internal/common/logger"
	"github.com/obentoo/sbupdate/internal/common/output"
	"github.com/obentoo/sbupdate/internal/common/slackbuild"
	"github.com/spf13/cobra"
)

var buildsCmd = &cobra.Command{
	Use:   "builds [package]",
	Short: "List staged build directories",
	Long: `List the {name}-{version} directories in the build directory, grouped by
package and oldest first. The newest build of each package is highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		builds, err := autoupdate.ListBuilds(cfg.BuildDir, name)
		if err != nil {
			return err
		}
		displayBuilds(builds)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildsCmd)
}

// groupBuilds splits a name-sorted build list per package, keeping order
func groupBuilds(builds []slackbuild.Build) [][]slackbuild.Build {
	var groups [][]slackbuild.Build
	for i, b := range builds {
		if i == 0 || builds[i-1].Name != b.Name {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], b)
	}
	return groups
}

func displayBuilds(builds []slackbuild.Build) {
	if len(builds) == 0 {
		logger.Info("No staged builds")
		return
	}

	fmt.Println()
	for _, group := range groupBuilds(builds) {
		newest := slackbuild.Newest(group)
		output.Package.Println(group[0].Name)
		for _, b := range group {
			if b.Version == newest.Version {
				output.Success.Printf("  %s (newest)\n", b.ID())
			} else {
				output.Dim.Printf("  %s\n", b.ID())
			}
		}
	}
	fmt.Println()
}
