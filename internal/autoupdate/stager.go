// Package autoupdate provides build directory staging.
package autoupdate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/obentoo/sbupdate/internal/common/slackbuild"
)

// Error variables for staging errors
var (
	// ErrTemplateNotFound is returned when a package has no template directory
	ErrTemplateNotFound = errors.New("package template not found")
	// ErrManifestNotFound is returned when the template lacks {name}.info
	ErrManifestNotFound = errors.New("package manifest not found")
)

// Stager materializes {name}-{version} build directories from package templates.
//
// A build directory is only ever created once per name and version: its
// existence is what makes Stage idempotent. When staging fails after the
// directory was created it is removed again, unless KeepPartial is set.
type Stager struct {
	// TemplateRoot holds one template directory per package
	TemplateRoot string
	// BuildRoot receives the staged build directories
	BuildRoot string
	// Client downloads the artifacts
	Client *RetryableHTTPClient
	// KeepPartial leaves a half-staged directory behind for inspection
	KeepPartial bool
}

// NewStager creates a Stager
func NewStager(templateRoot, buildRoot string, client *RetryableHTTPClient) *Stager {
	return &Stager{
		TemplateRoot: templateRoot,
		BuildRoot:    buildRoot,
		Client:       client,
	}
}

// BuildDir returns the directory Stage uses for name and version
func (s *Stager) BuildDir(name, version string) string {
	return filepath.Join(s.BuildRoot, slackbuild.BuildID(name, version))
}

// ManifestName returns the manifest file name for a package
func ManifestName(name string) string {
	return name + ".info"
}

// Stage creates the build directory for name at version, downloads every
// artifact its manifest lists and patches the manifest with the version and
// digests. It returns the build ID, or "" when the build already exists.
func (s *Stager) Stage(ctx context.Context, name, version string) (string, error) {
	buildID := slackbuild.BuildID(name, version)
	target := filepath.Join(s.BuildRoot, buildID)

	// An existing build is done, even if its template has since been retired
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return "", nil
	}

	template := filepath.Join(s.TemplateRoot, name)
	if info, err := os.Stat(template); err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, template)
	}

	// Mkdir also fails when another process created the build meanwhile
	if err := os.Mkdir(target, 0755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to create build directory: %w", err)
	}

	if err := s.populate(ctx, name, version, template, target); err != nil {
		if !s.KeepPartial {
			os.RemoveAll(target)
		}
		return "", fmt.Errorf("stage %s: %w", buildID, err)
	}

	return buildID, nil
}

// populate fills an empty build directory
func (s *Stager) populate(ctx context.Context, name, version, template, target string) error {
	if err := copyTree(template, target); err != nil {
		return fmt.Errorf("failed to copy template: %w", err)
	}

	manifestPath := filepath.Join(target, ManifestName(name))
	info, err := os.Stat(manifestPath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrManifestNotFound, manifestPath)
	}
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	manifest := NewManifest(string(data))
	manifest.ReplaceVersion(version)

	urls, err := manifest.DownloadURLs()
	if err != nil {
		return err
	}

	digests := make([]string, 0, len(urls))
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}
		artifact, err := DownloadArtifact(ctx, s.Client, u, target, ManifestName(name))
		if err != nil {
			return err
		}
		digests = append(digests, artifact.MD5)
	}

	manifest.SetChecksums(digests)
	if err := os.WriteFile(manifestPath, []byte(manifest.String()), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// copyTree copies the contents of src into the existing directory dst,
// keeping file modes and symlinks.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.Mkdir(target, info.Mode().Perm())
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		default:
			return fmt.Errorf("unsupported file type: %s", path)
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
