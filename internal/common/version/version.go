// Package version reports which sbupdate build is running.
package version

import (
	"fmt"
	"runtime"
)

// Stamped by the release build:
//
//	go build -ldflags "-X github.com/obentoo/sbupdate/internal/common/version.Version=1.2.0 ..."
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info is the multi-line text printed by `sbupdate version`
func Info() string {
	return fmt.Sprintf("sbupdate version %s\n  commit: %s\n  built: %s\n  go: %s\n  os/arch: %s/%s",
		Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short is the bare version shown by `sbupdate --version`
func Short() string {
	return Version
}
