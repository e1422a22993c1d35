// Package autoupdate provides the TOML catalog file format.
package autoupdate

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Error variables for catalog file errors
var (
	// ErrCatalogNotFound is returned when the sources file does not exist
	ErrCatalogNotFound = errors.New("sources file not found")
	// ErrMissingURL is returned when a generic source is missing the required URL field
	ErrMissingURL = errors.New("missing required field: url")
	// ErrMissingParser is returned when neither source nor parser is given
	ErrMissingParser = errors.New("missing required field: source or parser")
	// ErrMissingPath is returned when a JSON parser is missing the required path field
	ErrMissingPath = errors.New("missing required field: path (required for json parser)")
	// ErrMissingPattern is returned when a pattern-based parser has no pattern
	ErrMissingPattern = errors.New("missing required field: pattern")
	// ErrUnknownVendor is returned when source names no built-in vendor scraper
	ErrUnknownVendor = errors.New("unknown vendor source")
	// ErrUnknownField is returned for keys the catalog format does not define
	ErrUnknownField = errors.New("unknown field in sources file")
)

// SourceConfig describes how to find the upstream version of one package.
// Either Source names a built-in vendor scraper, or Parser and URL describe a
// generic one:
//
//	json     - Path into a JSON document (e.g. "tag_name")
//	regex    - first capture group of Pattern over the body
//	html     - Selector or XPath, optionally narrowed by Pattern
//	header   - Pattern over the Content-Disposition filename
//	redirect - Pattern over the filename of the final URL
type SourceConfig struct {
	Source          string            `toml:"source,omitempty"`
	URL             string            `toml:"url,omitempty"`
	Parser          string            `toml:"parser,omitempty"`
	Path            string            `toml:"path,omitempty"`
	Pattern         string            `toml:"pattern,omitempty"`
	Selector        string            `toml:"selector,omitempty"`
	XPath           string            `toml:"xpath,omitempty"`
	TrimPrefix      string            `toml:"trim_prefix,omitempty"`
	Headers         map[string]string `toml:"headers,omitempty"`
	FallbackURL     string            `toml:"fallback_url,omitempty"`
	FallbackParser  string            `toml:"fallback_parser,omitempty"`
	FallbackPattern string            `toml:"fallback_pattern,omitempty"`
}

// NamedSourceConfig keeps a package name with its definition, in file order
type NamedSourceConfig struct {
	Name   string
	Config SourceConfig
}

// ReadCatalogFile decodes a sources file. Each top-level table is a package
// name; the result preserves document order.
func ReadCatalogFile(path string) ([]NamedSourceConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, path)
	}

	var raw map[string]SourceConfig
	md, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, strings.Join(keys, ", "))
	}

	var entries []NamedSourceConfig
	for _, key := range md.Keys() {
		if len(key) != 1 {
			continue
		}
		name := key[0]
		cfg := raw[name]
		if err := ValidateSourceConfig(name, &cfg); err != nil {
			return nil, err
		}
		entries = append(entries, NamedSourceConfig{Name: name, Config: cfg})
	}

	return entries, nil
}

// ValidateSourceConfig checks for required fields and valid parser types.
func ValidateSourceConfig(name string, cfg *SourceConfig) error {
	if cfg.Source != "" {
		if _, ok := vendorURLs[cfg.Source]; !ok {
			return fmt.Errorf("package %s: %w: %q", name, ErrUnknownVendor, cfg.Source)
		}
		return nil
	}

	if cfg.Parser == "" {
		return fmt.Errorf("package %s: %w", name, ErrMissingParser)
	}
	if cfg.URL == "" {
		return fmt.Errorf("package %s: %w", name, ErrMissingURL)
	}

	switch cfg.Parser {
	case "json":
		if cfg.Path == "" {
			return fmt.Errorf("package %s: %w", name, ErrMissingPath)
		}
	case "regex", "header", "redirect":
		if cfg.Pattern == "" {
			return fmt.Errorf("package %s: %w", name, ErrMissingPattern)
		}
		if _, err := compileCapturing(cfg.Pattern); err != nil {
			return fmt.Errorf("package %s: %w", name, err)
		}
	case "html":
		if cfg.Selector == "" && cfg.XPath == "" {
			return fmt.Errorf("package %s: %w", name, ErrNoSelectorOrXPath)
		}
	default:
		return fmt.Errorf("package %s: %w: got %q", name, ErrInvalidParserType, cfg.Parser)
	}

	if cfg.FallbackURL != "" && cfg.FallbackParser != "" {
		switch cfg.FallbackParser {
		case "json", "html":
		case "regex":
			if cfg.FallbackPattern == "" {
				return fmt.Errorf("package %s: fallback_pattern required for regex fallback parser", name)
			}
		default:
			return fmt.Errorf("package %s: invalid fallback_parser type: %q", name, cfg.FallbackParser)
		}
	}

	return nil
}
