// Package autoupdate provides artifact download and hashing.
package autoupdate

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

var (
	// ErrNoFilename is returned when neither the response nor the URL names the artifact
	ErrNoFilename = errors.New("cannot determine artifact filename")
	// ErrReservedFilename is returned when an artifact would overwrite a template file
	ErrReservedFilename = errors.New("artifact filename is reserved")
	// ErrPageTooLarge is returned when a version page exceeds maxPageSize
	ErrPageTooLarge = errors.New("upstream page too large")
)

// maxPageSize bounds version pages read into memory; artifacts are streamed instead
const maxPageSize = 16 << 20

// dispositionFallback mirrors the loose filename=... form some servers send
var dispositionFallback = regexp.MustCompile(`filename=(.+)`)

// Artifact is one downloaded file referenced by a manifest's DOWNLOAD field
type Artifact struct {
	URL      string // as listed in the manifest
	FinalURL string // after redirects
	Filename string
	Path     string
	Size     int64
	MD5      string // hex digest of the exact bytes written to Path
}

// DownloadArtifact GETs rawURL following redirects and writes the body into dir.
// The filename comes from Content-Disposition when present, otherwise from the
// last path segment of the final URL. The MD5 digest is computed while writing.
// A resolved filename listed in reserved is refused before anything is written.
func DownloadArtifact(ctx context.Context, client *RetryableHTTPClient, rawURL, dir string, reserved ...string) (*Artifact, error) {
	resp, err := client.GetOK(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	name := dispositionFilename(resp.Header.Get("Content-Disposition"))
	if name == "" {
		if name, err = urlFilename(resp.Request.URL); err != nil {
			return nil, fmt.Errorf("download %s: %w", rawURL, err)
		}
	}

	if slices.Contains(reserved, name) {
		return nil, fmt.Errorf("download %s: %w: %s", rawURL, ErrReservedFilename, name)
	}

	target := filepath.Join(dir, name)
	f, err := os.Create(target)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", target, err)
	}
	defer f.Close()

	h := md5.New()
	n, err := io.Copy(io.MultiWriter(f, h), resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("write %s: %w", target, err)
	}

	return &Artifact{
		URL:      rawURL,
		FinalURL: resp.Request.URL.String(),
		Filename: name,
		Path:     target,
		Size:     n,
		MD5:      hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// dispositionFilename extracts a safe base filename from a Content-Disposition value
func dispositionFilename(cd string) string {
	if cd == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
		return safeBase(params["filename"])
	}
	if m := dispositionFallback.FindStringSubmatch(cd); m != nil {
		name, _, _ := strings.Cut(m[1], ";")
		return safeBase(strings.ReplaceAll(strings.TrimSpace(name), `"`, ""))
	}
	return ""
}

// urlFilename returns the last path segment of u
func urlFilename(u *url.URL) (string, error) {
	if u == nil {
		return "", ErrNoFilename
	}
	name := safeBase(u.Path)
	if name == "" {
		return "", fmt.Errorf("%w: %s", ErrNoFilename, u)
	}
	return name, nil
}

// safeBase reduces a name to its final element so it cannot leave the build directory
func safeBase(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	switch name {
	case ".", "..", "/":
		return ""
	}
	return name
}

// readLimited reads a version page, refusing bodies over maxPageSize
func readLimited(r io.Reader) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(r, maxPageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(content) > maxPageSize {
		return nil, ErrPageTooLarge
	}
	return content, nil
}
