package autoupdate

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const qemuInfo = `PRGNAM="qemu"
VERSION="$VERSION"
HOMEPAGE="https://www.qemu.org/"
DOWNLOAD="https://download.qemu.org/qemu-$VERSION.tar.xz \
          https://download.qemu.org/qemu-$VERSION.tar.xz.sig"
MD5SUM=""
DOWNLOAD_x86_64=""
MD5SUM_x86_64=""
REQUIRES="SDL2"
MAINTAINER="me"
`

func TestManifestReplaceVersion(t *testing.T) {
	m := NewManifest(qemuInfo)
	if !m.ReplaceVersion("9.1.0") {
		t.Fatal("ReplaceVersion() reported no placeholder")
	}
	if strings.Contains(m.String(), VersionPlaceholder) {
		t.Errorf("placeholder left in manifest:\n%s", m)
	}
	if !strings.Contains(m.String(), `VERSION="9.1.0"`) {
		t.Errorf("VERSION not substituted:\n%s", m)
	}
}

func TestManifestReplaceVersionAbsent(t *testing.T) {
	text := "PRGNAM=\"foo\"\nVERSION=\"1.0\"\n"
	m := NewManifest(text)
	if m.ReplaceVersion("2.0") {
		t.Error("ReplaceVersion() reported a placeholder that is not there")
	}
	if m.String() != text {
		t.Errorf("manifest changed without placeholder:\n%s", m)
	}
}

func TestManifestDownloadURLs(t *testing.T) {
	m := NewManifest(qemuInfo)
	m.ReplaceVersion("9.1.0")

	got, err := m.DownloadURLs()
	if err != nil {
		t.Fatalf("DownloadURLs() error: %v", err)
	}
	want := []string{
		"https://download.qemu.org/qemu-9.1.0.tar.xz",
		"https://download.qemu.org/qemu-9.1.0.tar.xz.sig",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DownloadURLs() = %q, want %q", got, want)
	}
}

func TestManifestDownloadURLsFirstFieldOnly(t *testing.T) {
	// DOWNLOAD_x86_64 follows DOWNLOAD and must not be read
	m := NewManifest("DOWNLOAD=\"http://x/a.bin\"\nMD5SUM=\"\"\nDOWNLOAD_x86_64=\"http://x/b.bin\"\n")
	got, err := m.DownloadURLs()
	if err != nil {
		t.Fatalf("DownloadURLs() error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"http://x/a.bin"}) {
		t.Errorf("DownloadURLs() = %q", got)
	}
}

func TestManifestDownloadURLsEmptyAndMissing(t *testing.T) {
	got, err := NewManifest(`DOWNLOAD=""`).DownloadURLs()
	if err != nil || len(got) != 0 {
		t.Errorf("empty DOWNLOAD = %q, %v; want no URLs", got, err)
	}

	if _, err := NewManifest("PRGNAM=\"x\"\n").DownloadURLs(); !errors.Is(err, ErrNoDownloadField) {
		t.Errorf("Expected ErrNoDownloadField, got %v", err)
	}
	if _, err := NewManifest("DOWNLOAD=").DownloadURLs(); !errors.Is(err, ErrNoDownloadField) {
		t.Errorf("Expected ErrNoDownloadField for unquoted field, got %v", err)
	}
}

func TestManifestSetChecksums(t *testing.T) {
	m := NewManifest(qemuInfo)
	if !m.SetChecksums([]string{"aaa", "bbb"}) {
		t.Fatal("SetChecksums() reported no field")
	}
	want := "MD5SUM=\"aaa \\\n        bbb\"\n"
	if !strings.Contains(m.String(), want) {
		t.Errorf("checksums not written as %q:\n%s", want, m)
	}
	// Only the first empty field is filled
	if !strings.Contains(m.String(), `MD5SUM_x86_64=""`) {
		t.Errorf("MD5SUM_x86_64 was modified:\n%s", m)
	}
	if m.SetChecksums([]string{"ccc"}) {
		t.Error("SetChecksums() filled a field twice")
	}
}

// TestChecksumRoundTrip checks that the written field splits back into the digests
func TestChecksumRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("one digest per artifact", prop.ForAll(
		func(digests []string) bool {
			m := NewManifest("DOWNLOAD=\"\"\nMD5SUM=\"\"\n")
			m.SetChecksums(digests)

			text := m.String()
			start := strings.Index(text, `MD5SUM="`) + len(`MD5SUM="`)
			end := strings.Index(text[start:], `"`)
			value := text[start : start+end]

			if len(digests) == 0 {
				return value == ""
			}
			return reflect.DeepEqual(strings.Split(value, ChecksumSeparator), digests)
		},
		gen.SliceOf(gen.RegexMatch(`^[0-9a-f]{32}$`)),
	))

	properties.TestingRun(t)
}
