// Package autoupdate provides the index of staged builds.
package autoupdate

import (
	"fmt"
	"os"
	"sort"

	"github.com/obentoo/sbupdate/internal/common/slackbuild"
)

// ListBuilds returns the staged builds under root, oldest version first.
// With a package name only that package's builds are returned; otherwise every
// directory that looks like {name}-{version} is, sorted by name.
// A missing root has no builds.
func ListBuilds(root, name string) ([]slackbuild.Build, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read build root: %w", err)
	}

	var builds []slackbuild.Build
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		var b *slackbuild.Build
		if name != "" {
			b, err = slackbuild.ParseBuildIDFor(e.Name(), name)
			// nvidia must not claim nvidia-driver-550.54
			if err == nil && !startsWithDigit(b.Version) {
				continue
			}
		} else {
			b, err = slackbuild.ParseBuildID(e.Name())
		}
		if err != nil {
			continue
		}
		builds = append(builds, *b)
	}

	sort.SliceStable(builds, func(i, j int) bool {
		if builds[i].Name != builds[j].Name {
			return builds[i].Name < builds[j].Name
		}
		return slackbuild.CompareVersions(builds[i].Version, builds[j].Version) < 0
	})
	return builds, nil
}

// NewestBuild returns the highest staged version of name, or nil when none exists
func NewestBuild(root, name string) (*slackbuild.Build, error) {
	builds, err := ListBuilds(root, name)
	if err != nil {
		return nil, err
	}
	return slackbuild.Newest(builds), nil
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}
