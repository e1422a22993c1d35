package main

import (
	"errors"
	"strings"

	"github.com/obentoo/sbupdate/internal/autoupdate"
	"github.com/obentoo/sbupdate/internal/common/config"
	"github.com/obentoo/sbupdate/internal/common/notify"
)

// ErrVersionsWithoutPackages is returned for --ver-list without --pkg-list
var ErrVersionsWithoutPackages = errors.New("--ver-list requires --pkg-list")

// newClient builds the HTTP client every source and download goes through
func newClient(cfg *config.Config) *autoupdate.RetryableHTTPClient {
	retry := autoupdate.DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries
	retry.Timeout = cfg.Timeout

	client := autoupdate.NewRetryableHTTPClientWithConfig(retry)
	client.SetDefaultHeaders(map[string]string{"User-Agent": cfg.UserAgent})
	client.SetRateLimit(cfg.RequestsPerSecond)
	if cfg.GitHubToken != "" {
		client.SetGitHubToken(cfg.GitHubToken)
	}
	return client
}

// baseCatalog is the sources file when one is configured, otherwise the built-in vendors
func baseCatalog(cfg *config.Config, client *autoupdate.RetryableHTTPClient) (*autoupdate.Catalog, error) {
	if cfg.SourcesFile == "" {
		return autoupdate.DefaultCatalog(client), nil
	}
	return autoupdate.LoadCatalog(cfg.SourcesFile, client)
}

// selectCatalog applies --pkg-list and --ver-list to the base catalog.
// Both lists give fixed versions; --pkg-list alone narrows the catalog.
func selectCatalog(base func() (*autoupdate.Catalog, error), pkgList, verList string) (*autoupdate.Catalog, error) {
	pkgs := splitList(pkgList)
	vers := splitList(verList)

	switch {
	case len(vers) > 0 && len(pkgs) == 0:
		return nil, ErrVersionsWithoutPackages
	case len(vers) > 0:
		return autoupdate.OverrideCatalog(pkgs, vers)
	}

	catalog, err := base()
	if err != nil {
		return nil, err
	}
	if len(pkgs) > 0 {
		return catalog.Filter(pkgs)
	}
	return catalog, nil
}

// splitList splits a comma separated flag value, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// newNotifier picks the notification sink. The desktop falls back to the
// console when there is no session bus.
func newNotifier(cfg *config.Config, disabled bool) notify.Notifier {
	if disabled || !cfg.NotifyEnabled() {
		return notify.NopNotifier{}
	}
	return notify.Fallback{
		Primary:   notify.NewDesktopNotifier(),
		Secondary: notify.NewConsoleNotifier(),
	}
}

// newStager builds the stager for the configured directories
func newStager(cfg *config.Config, client *autoupdate.RetryableHTTPClient) (*autoupdate.Stager, error) {
	if err := cfg.CheckTemplateDir(); err != nil {
		return nil, err
	}
	stager := autoupdate.NewStager(cfg.TemplateDir, cfg.BuildDir, client)
	stager.KeepPartial = cfg.KeepPartial
	return stager, nil
}
