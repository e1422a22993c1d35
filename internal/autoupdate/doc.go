// Package autoupdate checks upstream vendors for new versions of unsupported
// Slackware packages and stages SlackBuild directories for them.
//
// The package implements:
//   - Version sources: built-in vendor scrapers and declarative TOML sources
//   - The package catalog and its per-package isolated resolution
//   - Build staging: template copy, artifact download, .info patching
//   - The staging history kept in the state directory
//
// A build directory {build_root}/{name}-{version} is created once; its
// existence is what prevents a version from being downloaded twice.
//
// Usage:
//
//	client := autoupdate.NewRetryableHTTPClient()
//	stager := autoupdate.NewStager(templateDir, buildDir, client)
//	report, err := autoupdate.NewRunner(stager).Run(ctx, autoupdate.DefaultCatalog(client))
package autoupdate
