// Package autoupdate provides the package catalog checked on each run.
package autoupdate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Error variables for catalog errors
var (
	// ErrPackageNotFound is returned when a package is not in the catalog
	ErrPackageNotFound = errors.New("package not found in catalog")
	// ErrOverrideMismatch is returned when --pkg-list and --ver-list differ in length
	ErrOverrideMismatch = errors.New("package and version lists differ in length")
	// ErrFetchFailed wraps any failure of a version source
	ErrFetchFailed = errors.New("failed to fetch upstream version")
)

// PackageRef identifies one package at one version
type PackageRef struct {
	Name    string
	Version string
}

// CheckResult is the outcome of asking one catalog entry for its version.
// Error is set instead of Version when the source failed.
type CheckResult struct {
	PackageRef
	Error error
}

// CatalogEntry pairs a package name with the source of its version
type CatalogEntry struct {
	Name   string
	Source VersionSource
}

// Catalog is the ordered list of packages checked on a run.
// Duplicates are allowed; each entry is resolved independently.
type Catalog struct {
	entries []CatalogEntry
}

// NewCatalog creates a catalog from entries in order
func NewCatalog(entries ...CatalogEntry) *Catalog {
	return &Catalog{entries: append([]CatalogEntry(nil), entries...)}
}

// DefaultCatalog returns the built-in vendor packages
func DefaultCatalog(client *RetryableHTTPClient) *Catalog {
	c := &Catalog{}
	for _, p := range defaultPackages {
		// defaultPackages only names known vendors
		src, _ := NewVendorSource(client, p[1])
		c.Add(p[0], src)
	}
	return c
}

// LoadCatalog builds a catalog from a TOML sources file, keeping file order
func LoadCatalog(path string, client *RetryableHTTPClient) (*Catalog, error) {
	defs, err := ReadCatalogFile(path)
	if err != nil {
		return nil, err
	}

	c := &Catalog{}
	for _, def := range defs {
		src, err := NewSource(client, &def.Config)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", def.Name, err)
		}
		c.Add(def.Name, src)
	}
	return c, nil
}

// NewSource builds a VersionSource from a validated source definition
func NewSource(client *RetryableHTTPClient, cfg *SourceConfig) (VersionSource, error) {
	if cfg.Source != "" {
		return NewVendorSource(client, cfg.Source)
	}

	switch cfg.Parser {
	case "header", "redirect":
		re, err := compileCapturing(cfg.Pattern)
		if err != nil {
			return nil, err
		}
		if cfg.Parser == "header" {
			return &HeaderSource{Client: client, URL: cfg.URL, Pattern: re}, nil
		}
		return &RedirectSource{Client: client, URL: cfg.URL, Pattern: re}, nil
	default:
		// Fail now on a bad parser rather than on every run
		if _, err := NewParser(cfg); err != nil {
			return nil, err
		}
		return &PageSource{Client: client, Config: *cfg}, nil
	}
}

// OverrideCatalog builds a catalog of fixed versions from parallel name and version lists
func OverrideCatalog(names, versions []string) (*Catalog, error) {
	if len(names) != len(versions) {
		return nil, fmt.Errorf("%w: %d packages, %d versions", ErrOverrideMismatch, len(names), len(versions))
	}
	c := &Catalog{}
	for i, name := range names {
		c.Add(name, StaticSource(versions[i]))
	}
	return c, nil
}

// Add appends an entry
func (c *Catalog) Add(name string, src VersionSource) {
	c.entries = append(c.entries, CatalogEntry{Name: name, Source: src})
}

// Entries returns the entries in order
func (c *Catalog) Entries() []CatalogEntry {
	return c.entries
}

// Len returns the number of entries
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Filter returns a catalog of only the named packages, in the order given.
// Every name must be present; duplicates of a name in the catalog are all kept.
func (c *Catalog) Filter(names []string) (*Catalog, error) {
	out := &Catalog{}
	for _, name := range names {
		found := false
		for _, e := range c.entries {
			if e.Name == name {
				out.entries = append(out.entries, e)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, name)
		}
	}
	return out, nil
}

// versionSanity rejects scraper output that cannot be a version or a directory name
var versionSanity = regexp.MustCompile(`^[\w.+~-]+$`)

// Resolve asks every source for its version, in order. A failing source only
// marks its own result; the rest of the catalog is still resolved.
func (c *Catalog) Resolve(ctx context.Context) []CheckResult {
	results := make([]CheckResult, 0, len(c.entries))
	for _, e := range c.entries {
		results = append(results, resolveEntry(ctx, e))
	}
	return results
}

func resolveEntry(ctx context.Context, e CatalogEntry) (result CheckResult) {
	result.Name = e.Name

	// A panicking scraper is just another broken scraper
	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("%w: source panicked: %v", ErrFetchFailed, r)
		}
	}()

	version, err := e.Source.LatestVersion(ctx, e.Name)
	if err != nil {
		result.Error = fmt.Errorf("%w: %w", ErrFetchFailed, err)
		return result
	}

	version = strings.TrimSpace(version)
	if version == "" {
		result.Error = fmt.Errorf("%w: %w", ErrFetchFailed, ErrEmptyVersion)
		return result
	}
	if !versionSanity.MatchString(version) {
		result.Error = fmt.Errorf("%w: implausible version %q", ErrFetchFailed, version)
		return result
	}

	result.Version = version
	return result
}

// Resolved returns the package references of the successful results
func Resolved(results []CheckResult) []PackageRef {
	var refs []PackageRef
	for _, r := range results {
		if r.Error == nil {
			refs = append(refs, r.PackageRef)
		}
	}
	return refs
}
