// Package autoupdate provides the built-in vendor scrapers.
package autoupdate

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Upstream endpoints for the built-in vendor scrapers. Each scraper is bound
// to the page layout of its vendor and is expected to break when that changes.
var vendorURLs = map[string]string{
	"qemu":           "https://www.qemu.org/download/",
	"nvidia":         "https://download.nvidia.com/XFree86/Linux-x86_64/latest.txt",
	"brave-browser":  "http://brave.com/latest",
	"vscode-bin":     "https://code.visualstudio.com/sha/download?build=stable&os=linux-x64",
	"teams":          "https://go.microsoft.com/fwlink/p/?LinkID=2112886&clcid=0x409&culture=en-us&country=US",
	"zenity":         "https://www.linuxfromscratch.org/blfs/view/svn/gnome/zenity.html",
	"steam":          "https://repo.steampowered.com/steam/archive/precise/steam_latest-stable.dsc",
	"signal-desktop": "https://api.github.com/repos/signalapp/Signal-Desktop/releases/latest",
}

// signalReleasesPage is the HTML fallback when the GitHub API refuses the request
const signalReleasesPage = "https://github.com/signalapp/Signal-Desktop/releases/latest"

// defaultPackages is the catalog used when no sources file is configured,
// as package name and vendor scraper name.
var defaultPackages = [][2]string{
	{"qemu", "qemu"},
	{"nvidia-driver", "nvidia"},
	{"nvidia-kernel", "nvidia"},
	{"brave-browser", "brave-browser"},
	{"vscode-bin", "vscode-bin"},
	{"teams", "teams"},
	{"zenity", "zenity"},
	{"steam", "steam"},
	{"signal-desktop", "signal-desktop"},
}

// VendorNames returns the names accepted by the source field of a sources file
func VendorNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, p := range defaultPackages {
		if !seen[p[1]] {
			seen[p[1]] = true
			names = append(names, p[1])
		}
	}
	return names
}

// NewVendorSource returns the built-in scraper with the given name
func NewVendorSource(client *RetryableHTTPClient, vendor string) (VersionSource, error) {
	url, ok := vendorURLs[vendor]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVendor, vendor)
	}

	switch vendor {
	case "qemu":
		return NewQemuSource(client, url), nil
	case "nvidia":
		return NewNvidiaSource(client, url), nil
	case "brave-browser":
		return NewBraveSource(client, url), nil
	case "vscode-bin":
		return NewVSCodeSource(client, url), nil
	case "teams":
		return NewTeamsSource(client, url), nil
	case "zenity":
		return NewZenitySource(client, url), nil
	case "steam":
		return NewSteamSource(client, url), nil
	default:
		return NewSignalSource(client, url, signalReleasesPage), nil
	}
}

// NewQemuSource reads the first download.qemu.org tarball link on the download page
func NewQemuSource(client *RetryableHTTPClient, url string) VersionSource {
	return SourceFunc(func(ctx context.Context, _ string) (string, error) {
		content, err := client.FetchBody(ctx, url)
		if err != nil {
			return "", err
		}
		parser, _ := NewHTMLParser(`a[href*="download.qemu.org/qemu-"]`, "", `(\d+(?:\.\d+)+)`)
		return parser.Parse(content)
	})
}

// NewNvidiaSource reads the first field of NVIDIA's latest.txt
func NewNvidiaSource(client *RetryableHTTPClient, url string) VersionSource {
	return SourceFunc(func(ctx context.Context, _ string) (string, error) {
		content, err := client.FetchBody(ctx, url)
		if err != nil {
			return "", err
		}
		fields := strings.Fields(string(content))
		if len(fields) == 0 {
			return "", fmt.Errorf("%w: empty latest.txt", ErrNoVersionFound)
		}
		return fields[0], nil
	})
}

// NewBraveSource reads the release-notes heading: the text after the first
// "V" on that line, up to the next tag.
func NewBraveSource(client *RetryableHTTPClient, url string) VersionSource {
	return SourceFunc(func(ctx context.Context, _ string) (string, error) {
		content, err := client.FetchBody(ctx, url)
		if err != nil {
			return "", err
		}
		return scanLines(content, func(line string) (string, bool) {
			if !strings.Contains(line, "release-notes-") {
				return "", false
			}
			_, after, found := strings.Cut(line, "V")
			if !found {
				return "", false
			}
			version, _, _ := strings.Cut(after, "<")
			return strings.TrimSpace(version), true
		})
	})
}

// NewVSCodeSource reads the build stamp from the tarball name in Content-Disposition
func NewVSCodeSource(client *RetryableHTTPClient, url string) VersionSource {
	return &HeaderSource{
		Client:  client,
		URL:     url,
		Pattern: regexp.MustCompile(`-([^-]+)\.tar\.gz$`),
	}
}

// NewTeamsSource reads the version from the redirected package name teams_<version>_amd64.deb
func NewTeamsSource(client *RetryableHTTPClient, url string) VersionSource {
	return &RedirectSource{
		Client:  client,
		URL:     url,
		Pattern: regexp.MustCompile(`^[^_]*_([^_]+)`),
	}
}

// NewZenitySource reads the BLFS section heading "Zenity-<version>"
func NewZenitySource(client *RetryableHTTPClient, url string) VersionSource {
	return &PageSource{
		Client: client,
		Config: SourceConfig{
			URL:     url,
			Parser:  "html",
			XPath:   `//h1[contains(., 'Zenity-')]`,
			Pattern: `Zenity-(\d+(?:\.\d+)+)`,
		},
	}
}

// NewSteamSource reads the Version: field of the Debian source control file, minus its epoch
func NewSteamSource(client *RetryableHTTPClient, url string) VersionSource {
	return &PageSource{
		Client: client,
		Config: SourceConfig{
			URL:     url,
			Parser:  "regex",
			Pattern: `(?m)^Version:\s*(?:\d+:)?(\S+)`,
		},
	}
}

// NewSignalSource asks the GitHub releases API for the latest tag and falls back
// to the tag in the releases/latest redirect.
func NewSignalSource(client *RetryableHTTPClient, apiURL, pageURL string) VersionSource {
	return FirstOf{
		&PageSource{
			Client: client,
			Config: SourceConfig{
				URL:        apiURL,
				Parser:     "json",
				Path:       "tag_name",
				TrimPrefix: "v",
				Headers:    map[string]string{"Accept": "application/vnd.github+json"},
			},
		},
		&RedirectSource{
			Client:  client,
			URL:     pageURL,
			Pattern: regexp.MustCompile(`^v?(\d[\w.-]*)$`),
		},
	}
}

// FirstOf tries each source in order and returns the first version found.
// The error of the first source is reported when all fail.
type FirstOf []VersionSource

// LatestVersion returns the first successful result
func (f FirstOf) LatestVersion(ctx context.Context, name string) (string, error) {
	var firstErr error
	for _, src := range f {
		version, err := src.LatestVersion(ctx, name)
		if err == nil {
			return version, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = errors.New("no sources configured")
	}
	return "", firstErr
}

// scanLines calls match with every line until it reports a non-empty hit
func scanLines(content []byte, match func(line string) (string, bool)) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), maxPageSize)

	for scanner.Scan() {
		if version, ok := match(scanner.Text()); ok && version != "" {
			return version, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to scan page: %w", err)
	}
	return "", ErrNoVersionFound
}
