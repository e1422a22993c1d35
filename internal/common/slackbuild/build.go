package slackbuild

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidBuildID = errors.New("invalid build directory name")
)

// buildIDRegex matches: name-version where the version starts with a digit.
// The name is matched lazily so hyphenated names (nvidia-driver) stay whole.
var buildIDRegex = regexp.MustCompile(`^(.+?)-(\d[\w.+~-]*)$`)

// Build identifies one package at one version
type Build struct {
	Name    string // e.g., "qemu"
	Version string // e.g., "8.0.2"
}

// ID returns the build directory name: name-version
func (b Build) ID() string {
	return BuildID(b.Name, b.Version)
}

// BuildID joins a package name and version into a build directory name
func BuildID(name, version string) string {
	return name + "-" + version
}

// ParseBuildID splits a build directory name into package name and version
func ParseBuildID(id string) (*Build, error) {
	matches := buildIDRegex.FindStringSubmatch(id)
	if matches == nil {
		return nil, ErrInvalidBuildID
	}
	return &Build{Name: matches[1], Version: matches[2]}, nil
}

// ParseBuildIDFor splits a build directory name for a known package name.
// Unlike ParseBuildID it handles package names that themselves contain -<digit>.
func ParseBuildIDFor(id, name string) (*Build, error) {
	version, ok := strings.CutPrefix(id, name+"-")
	if !ok || version == "" {
		return nil, ErrInvalidBuildID
	}
	return &Build{Name: name, Version: version}, nil
}
