package autoupdate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
)

// newVendorServer serves canned vendor pages keyed by path
func newVendorServer(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range routes {
		mux.HandleFunc(path, h)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(server *httptest.Server) *RetryableHTTPClient {
	client := NewRetryableHTTPClient()
	client.SetHTTPClient(server.Client())
	client.SetDefaultHeaders(map[string]string{"User-Agent": "Slackware-Linux"})
	return client
}

func text(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}
}

func TestVendorSources(t *testing.T) {
	server := newVendorServer(t, map[string]http.HandlerFunc{
		"/qemu": text(qemuDownloadPage),
		"/nvidia/latest.txt": text("550.78 550.78/NVIDIA-Linux-x86_64-550.78.run\n"),
		"/brave": text("<html>\n<h2 id=\"release-notes-v1-65-114\">Release Notes V1.65.114</h2>\n<p>Chromium 124</p>\n"),
		"/vscode": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Disposition", `attachment; filename="code-stable-x64-1714530869.tar.gz"`)
			w.Write([]byte("tarball"))
		},
		"/teams": func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/pkgs/teams_1.5.00.10453_amd64.deb", http.StatusFound)
		},
		"/pkgs/": text("deb"),
		"/zenity": text(`<html><h1 class="sect1">Zenity-4.0.1</h1></html>`),
		"/steam": text("Format: 1.0\nSource: steam\nVersion: 1:1.0.0.79\n"),
		"/signal/api": text(`{"tag_name": "v7.9.0", "name": "v7.9.0"}`),
	})
	client := newTestClient(server)

	tests := []struct {
		name   string
		source VersionSource
		want   string
	}{
		{"qemu", NewQemuSource(client, server.URL+"/qemu"), "9.1.0"},
		{"nvidia", NewNvidiaSource(client, server.URL+"/nvidia/latest.txt"), "550.78"},
		{"brave", NewBraveSource(client, server.URL+"/brave"), "1.65.114"},
		{"vscode", NewVSCodeSource(client, server.URL+"/vscode"), "1714530869"},
		{"teams", NewTeamsSource(client, server.URL+"/teams"), "1.5.00.10453"},
		{"zenity", NewZenitySource(client, server.URL+"/zenity"), "4.0.1"},
		{"steam", NewSteamSource(client, server.URL+"/steam"), "1.0.0.79"},
		{"signal", NewSignalSource(client, server.URL+"/signal/api", server.URL+"/signal/page"), "7.9.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.source.LatestVersion(context.Background(), tt.name)
			if err != nil {
				t.Fatalf("LatestVersion() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("LatestVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSignalSourceFallsBackToRedirect(t *testing.T) {
	server := newVendorServer(t, map[string]http.HandlerFunc{
		"/api": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusForbidden)
		},
		"/releases/latest": func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/releases/tag/v7.10.0", http.StatusFound)
		},
		"/releases/tag/": text("release page"),
	})
	client := newTestClient(server)

	got, err := NewSignalSource(client, server.URL+"/api", server.URL+"/releases/latest").
		LatestVersion(context.Background(), "signal-desktop")
	if err != nil {
		t.Fatalf("LatestVersion() error: %v", err)
	}
	if got != "7.10.0" {
		t.Errorf("LatestVersion() = %q, want 7.10.0", got)
	}
}

func TestVendorSourceLayoutChange(t *testing.T) {
	server := newVendorServer(t, map[string]http.HandlerFunc{
		"/": text("<html><body>We redesigned our site!</body></html>"),
	})
	client := newTestClient(server)

	sources := map[string]VersionSource{
		"qemu":   NewQemuSource(client, server.URL+"/"),
		"brave":  NewBraveSource(client, server.URL+"/"),
		"zenity": NewZenitySource(client, server.URL+"/"),
		"steam":  NewSteamSource(client, server.URL+"/"),
		"vscode": NewVSCodeSource(client, server.URL+"/"),
	}
	for name, src := range sources {
		if _, err := src.LatestVersion(context.Background(), name); err == nil {
			t.Errorf("%s: expected an error for an unrecognized page", name)
		}
	}
}

func TestNewVendorSourceUnknown(t *testing.T) {
	if _, err := NewVendorSource(NewRetryableHTTPClient(), "firefox"); !errors.Is(err, ErrUnknownVendor) {
		t.Errorf("Expected ErrUnknownVendor, got %v", err)
	}
}

func TestVendorNames(t *testing.T) {
	names := VendorNames()
	if len(names) != 8 {
		t.Fatalf("VendorNames() = %v, want 8 vendors", names)
	}
	for _, name := range names {
		if _, ok := vendorURLs[name]; !ok {
			t.Errorf("vendor %q has no URL", name)
		}
	}
}

func TestPageSourceStatusAndFallback(t *testing.T) {
	server := newVendorServer(t, map[string]http.HandlerFunc{
		"/broken": func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		},
		"/mirror": text("latest: 2.1.0"),
	})
	client := newTestClient(server)

	src := &PageSource{Client: client, Config: SourceConfig{
		URL:             server.URL + "/broken",
		Parser:          "json",
		Path:            "version",
		FallbackURL:     server.URL + "/mirror",
		FallbackParser:  "regex",
		FallbackPattern: `latest: (\S+)`,
	}}
	got, err := src.LatestVersion(context.Background(), "pkg")
	if err != nil {
		t.Fatalf("LatestVersion() error: %v", err)
	}
	if got != "2.1.0" {
		t.Errorf("LatestVersion() = %q, want 2.1.0", got)
	}

	src.Config.FallbackURL = ""
	if _, err := src.LatestVersion(context.Background(), "pkg"); !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("Expected ErrUnexpectedStatus without fallback, got %v", err)
	}
}

func TestPageSourceSendsHeaders(t *testing.T) {
	var gotAccept, gotUA string
	server := newVendorServer(t, map[string]http.HandlerFunc{
		"/": func(w http.ResponseWriter, r *http.Request) {
			gotAccept = r.Header.Get("Accept")
			gotUA = r.Header.Get("User-Agent")
			w.Write([]byte(`{"version": "1.0"}`))
		},
	})
	client := newTestClient(server)

	src := &PageSource{Client: client, Config: SourceConfig{
		URL:     server.URL + "/",
		Parser:  "json",
		Path:    "version",
		Headers: map[string]string{"Accept": "application/json"},
	}}
	if _, err := src.LatestVersion(context.Background(), "pkg"); err != nil {
		t.Fatalf("LatestVersion() error: %v", err)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q", gotAccept)
	}
	if gotUA != "Slackware-Linux" {
		t.Errorf("User-Agent = %q, want Slackware-Linux", gotUA)
	}
}

func TestHeaderSourceWithoutDisposition(t *testing.T) {
	server := newVendorServer(t, map[string]http.HandlerFunc{"/": text("body")})
	src := &HeaderSource{Client: newTestClient(server), URL: server.URL + "/", Pattern: regexp.MustCompile(`-(\d+)`)}
	if _, err := src.LatestVersion(context.Background(), "pkg"); !errors.Is(err, ErrNoVersionFound) {
		t.Errorf("Expected ErrNoVersionFound, got %v", err)
	}
}

func TestStaticSource(t *testing.T) {
	got, err := StaticSource("8.0").LatestVersion(context.Background(), "qemu")
	if err != nil || got != "8.0" {
		t.Errorf("LatestVersion() = %q, %v", got, err)
	}
	if _, err := StaticSource(" ").LatestVersion(context.Background(), "qemu"); !errors.Is(err, ErrEmptyVersion) {
		t.Errorf("Expected ErrEmptyVersion, got %v", err)
	}
}

func TestFirstOfReportsFirstError(t *testing.T) {
	first := errors.New("first")
	src := FirstOf{
		SourceFunc(func(context.Context, string) (string, error) { return "", first }),
		SourceFunc(func(context.Context, string) (string, error) { return "", errors.New("second") }),
	}
	if _, err := src.LatestVersion(context.Background(), "x"); !errors.Is(err, first) {
		t.Errorf("Expected first error, got %v", err)
	}
}
