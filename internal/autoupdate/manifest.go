// Package autoupdate provides SlackBuild .info manifest patching.
package autoupdate

import (
	"errors"
	"strings"
)

const (
	// VersionPlaceholder is substituted with the resolved version
	VersionPlaceholder = "$VERSION"
	// downloadField opens the quoted URL list
	downloadField = "DOWNLOAD="
	// emptyChecksumField is replaced with the accumulated digests
	emptyChecksumField = `MD5SUM=""`
	// ChecksumSeparator joins digests using the .info line continuation
	ChecksumSeparator = " \\\n        "
)

// ErrNoDownloadField is returned when a manifest has no DOWNLOAD= field
var ErrNoDownloadField = errors.New("manifest has no DOWNLOAD field")

// Manifest is the text of a {name}.info file. Edits are literal substring
// replacements; fields the manifest lacks are left alone.
type Manifest struct {
	text string
}

// NewManifest wraps manifest text
func NewManifest(text string) *Manifest {
	return &Manifest{text: text}
}

// String returns the current text
func (m *Manifest) String() string {
	return m.text
}

// ReplaceVersion substitutes every version placeholder. It reports whether one was present.
func (m *Manifest) ReplaceVersion(version string) bool {
	if !strings.Contains(m.text, VersionPlaceholder) {
		return false
	}
	m.text = strings.ReplaceAll(m.text, VersionPlaceholder, version)
	return true
}

// DownloadURLs returns the URLs listed in the DOWNLOAD field in order.
// Line continuations are stripped and blank lines dropped.
func (m *Manifest) DownloadURLs() ([]string, error) {
	idx := strings.Index(m.text, downloadField)
	if idx < 0 {
		return nil, ErrNoDownloadField
	}

	parts := strings.SplitN(m.text[idx:], `"`, 3)
	// Without a closing quote, everything after the opening one is the value
	if len(parts) < 2 {
		return nil, ErrNoDownloadField
	}
	value := strings.ReplaceAll(parts[1], `\`, "")

	var urls []string
	for _, line := range strings.Split(value, "\n") {
		if u := strings.TrimSpace(line); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

// SetChecksums fills the empty MD5SUM field with the digests in order.
// It reports whether the field was present.
func (m *Manifest) SetChecksums(digests []string) bool {
	if !strings.Contains(m.text, emptyChecksumField) {
		return false
	}
	value := `MD5SUM="` + JoinChecksums(digests) + `"`
	m.text = strings.Replace(m.text, emptyChecksumField, value, 1)
	return true
}

// JoinChecksums joins digests with the manifest continuation separator
func JoinChecksums(digests []string) string {
	return strings.Join(digests, ChecksumSeparator)
}
