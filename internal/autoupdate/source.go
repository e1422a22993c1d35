// Package autoupdate provides version sources that query upstream endpoints.
package autoupdate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrEmptyVersion is returned when a source produces a blank version
var ErrEmptyVersion = errors.New("source returned an empty version")

// VersionSource produces the current upstream version of a named package.
// Implementations are narrow, vendor-bound scrapers: no retries beyond the
// HTTP client's policy and no caching.
type VersionSource interface {
	LatestVersion(ctx context.Context, name string) (string, error)
}

// SourceFunc adapts a function to VersionSource
type SourceFunc func(ctx context.Context, name string) (string, error)

// LatestVersion calls f
func (f SourceFunc) LatestVersion(ctx context.Context, name string) (string, error) {
	return f(ctx, name)
}

// StaticSource always reports the same version. Used for command-line overrides.
type StaticSource string

// LatestVersion returns the fixed version
func (s StaticSource) LatestVersion(_ context.Context, _ string) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrEmptyVersion
	}
	return string(s), nil
}

// PageSource fetches a page body and extracts the version with a configured parser.
// A fallback URL, when configured, is fetched and parsed with the fallback parser
// only after the primary URL fails.
type PageSource struct {
	Client *RetryableHTTPClient
	Config SourceConfig
}

// LatestVersion fetches the configured URL and parses it
func (s *PageSource) LatestVersion(ctx context.Context, _ string) (string, error) {
	version, err := s.fetchAndParse(ctx, s.Config.URL, &s.Config)
	if err == nil {
		return version, nil
	}
	primaryErr := err

	if s.Config.FallbackURL != "" && s.Config.FallbackParser != "" {
		fallback := s.Config
		fallback.Parser = s.Config.FallbackParser
		fallback.Pattern = s.Config.FallbackPattern
		fallback.FallbackParser = ""
		if version, err := s.fetchAndParse(ctx, s.Config.FallbackURL, &fallback); err == nil {
			return version, nil
		}
	}

	return "", primaryErr
}

func (s *PageSource) fetchAndParse(ctx context.Context, url string, cfg *SourceConfig) (string, error) {
	resp, err := s.Client.GetWithHeadersContext(ctx, url, cfg.Headers)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, resp.StatusCode, url)
	}

	content, err := readLimited(resp.Body)
	if err != nil {
		return "", err
	}

	return ParseVersion(content, cfg)
}

// HeaderSource requests a download URL and extracts the version from the
// filename announced in Content-Disposition. The body is never read.
type HeaderSource struct {
	Client  *RetryableHTTPClient
	URL     string
	Pattern *regexp.Regexp
}

// LatestVersion reads the attachment filename and applies the pattern
func (s *HeaderSource) LatestVersion(ctx context.Context, _ string) (string, error) {
	resp, err := s.Client.GetOK(ctx, s.URL)
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	name := dispositionFilename(resp.Header.Get("Content-Disposition"))
	if name == "" {
		return "", fmt.Errorf("%w: no Content-Disposition filename from %s", ErrNoVersionFound, s.URL)
	}
	return matchFirstGroup(s.Pattern, name)
}

// RedirectSource follows redirects from a stable URL and extracts the version
// from the filename of the final URL. The body is never read.
type RedirectSource struct {
	Client  *RetryableHTTPClient
	URL     string
	Pattern *regexp.Regexp
}

// LatestVersion resolves the redirect chain and applies the pattern
func (s *RedirectSource) LatestVersion(ctx context.Context, _ string) (string, error) {
	resp, err := s.Client.GetOK(ctx, s.URL)
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	name, err := urlFilename(resp.Request.URL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoVersionFound, err)
	}
	return matchFirstGroup(s.Pattern, name)
}

func matchFirstGroup(re *regexp.Regexp, s string) (string, error) {
	m := re.FindStringSubmatch(s)
	if m == nil || m[1] == "" {
		return "", fmt.Errorf("%w: %q does not match %s", ErrNoVersionFound, s, re)
	}
	return m[1], nil
}
