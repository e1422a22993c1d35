package autoupdate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/obentoo/sbupdate/internal/common/logger"
)

// recordingNotifier remembers every message
type recordingNotifier struct {
	titles  []string
	bodies  []string
	ctxErrs []error
	err     error
}

func (n *recordingNotifier) Notify(ctx context.Context, title, body string) error {
	n.titles = append(n.titles, title)
	n.bodies = append(n.bodies, body)
	n.ctxErrs = append(n.ctxErrs, ctx.Err())
	return n.err
}

// cancelOnWrite cancels a run once a log line contains marker
type cancelOnWrite struct {
	marker string
	cancel context.CancelFunc
}

func (w *cancelOnWrite) Write(p []byte) (int, error) {
	if strings.Contains(string(p), w.marker) {
		w.cancel()
	}
	return len(p), nil
}

func newTestRunner(t *testing.T, f *stagingFixture, opts ...RunnerOption) (*Runner, *recordingNotifier, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	notifier := &recordingNotifier{}
	base := []RunnerOption{
		WithNotifier(notifier),
		WithLogger(logger.New(&logs, logger.LevelDebug)),
		WithRunIDFunc(func() string { return "run-1" }),
	}
	return NewRunner(f.stager, append(base, opts...)...), notifier, &logs
}

func TestRunnerStagesAndNotifies(t *testing.T) {
	f := newStagingFixture(t, map[string]string{"/a.bin": "a", "/b.bin": "b"})
	f.addTemplate(t, "alpha", fmt.Sprintf("DOWNLOAD=\"%s\"\nMD5SUM=\"\"\n", f.url("/a.bin")), nil)
	f.addTemplate(t, "beta", fmt.Sprintf("DOWNLOAD=\"%s\"\nMD5SUM=\"\"\n", f.url("/b.bin")), nil)

	history, err := OpenHistory(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner, notifier, _ := newTestRunner(t, f, WithHistory(history))

	catalog := NewCatalog(
		CatalogEntry{Name: "alpha", Source: StaticSource("1.0")},
		CatalogEntry{Name: "broken", Source: failing(ErrNoVersionFound)},
		CatalogEntry{Name: "ghost", Source: StaticSource("2.0")},
		CatalogEntry{Name: "beta", Source: StaticSource("3.0")},
	)

	report, err := runner.Run(context.Background(), catalog)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if got := report.Staged(); len(got) != 2 || got[0] != "alpha-1.0" || got[1] != "beta-3.0" {
		t.Errorf("Staged() = %v", got)
	}
	if report.Count(StatusFailed) != 2 {
		t.Errorf("failed = %d, want 2 (broken source, missing template)", report.Count(StatusFailed))
	}
	if !errors.Is(report.Results[2].Error, ErrTemplateNotFound) {
		t.Errorf("ghost error = %v", report.Results[2].Error)
	}

	if len(notifier.bodies) != 1 || notifier.titles[0] != NotificationTitle || notifier.bodies[0] != "alpha-1.0\nbeta-3.0" {
		t.Errorf("notifications = %q / %q", notifier.titles, notifier.bodies)
	}

	entries := history.List()
	if len(entries) != 4 {
		t.Fatalf("history has %d entries, want 4", len(entries))
	}
	for _, e := range entries {
		if e.RunID != "run-1" {
			t.Errorf("entry %s has run ID %q", e.Package, e.RunID)
		}
	}
	if entries[1].Status != StatusFailed || entries[1].Error == "" {
		t.Errorf("broken entry = %+v", entries[1])
	}
}

func TestRunnerSecondRunSkipsAndStaysQuiet(t *testing.T) {
	f := newStagingFixture(t, map[string]string{"/a.bin": "a"})
	f.addTemplate(t, "alpha", fmt.Sprintf("DOWNLOAD=\"%s\"\nMD5SUM=\"\"\n", f.url("/a.bin")), nil)
	runner, notifier, _ := newTestRunner(t, f)
	catalog := NewCatalog(CatalogEntry{Name: "alpha", Source: StaticSource("1.0")})

	if _, err := runner.Run(context.Background(), catalog); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	report, err := runner.Run(context.Background(), catalog)
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}

	if report.Count(StatusSkipped) != 1 || report.Summary != "" {
		t.Errorf("second run = %+v", report)
	}
	if len(notifier.bodies) != 1 {
		t.Errorf("notified %d times, want only for the first run", len(notifier.bodies))
	}
}

func TestRunnerWarnsOnDowngrade(t *testing.T) {
	f := newStagingFixture(t, map[string]string{"/a.bin": "a"})
	f.addTemplate(t, "alpha", fmt.Sprintf("DOWNLOAD=\"%s\"\nMD5SUM=\"\"\n", f.url("/a.bin")), nil)
	mkdirs(t, f.builds, "alpha-2.0")
	runner, _, logs := newTestRunner(t, f)

	report, err := runner.Run(context.Background(), NewCatalog(CatalogEntry{Name: "alpha", Source: StaticSource("1.5")}))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if d := report.Results[0].Downgrade; d == nil || d.Version != "2.0" {
		t.Errorf("Downgrade = %+v, want alpha-2.0", d)
	}
	if !strings.Contains(logs.String(), "older than staged alpha-2.0") {
		t.Errorf("no downgrade warning in log:\n%s", logs.String())
	}
	// A downgrade is reported, not refused
	if report.Results[0].Status != StatusStaged {
		t.Errorf("status = %s, want staged", report.Results[0].Status)
	}
}

func TestRunnerNotificationFailureIsNotFatal(t *testing.T) {
	f := newStagingFixture(t, map[string]string{"/a.bin": "a"})
	f.addTemplate(t, "alpha", fmt.Sprintf("DOWNLOAD=\"%s\"\nMD5SUM=\"\"\n", f.url("/a.bin")), nil)
	runner, notifier, logs := newTestRunner(t, f)
	notifier.err = errors.New("no session bus")

	report, err := runner.Run(context.Background(), NewCatalog(CatalogEntry{Name: "alpha", Source: StaticSource("1.0")}))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.Summary != "alpha-1.0" {
		t.Errorf("Summary = %q", report.Summary)
	}
	if !strings.Contains(logs.String(), "no session bus") {
		t.Errorf("notification failure not logged:\n%s", logs.String())
	}
}

func TestRunnerCreatesBuildRoot(t *testing.T) {
	f := newStagingFixture(t, nil)
	f.stager.BuildRoot = filepath.Join(t.TempDir(), "deep", "builds")
	runner, _, _ := newTestRunner(t, f)

	if _, err := runner.Run(context.Background(), NewCatalog()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if builds, err := ListBuilds(f.stager.BuildRoot, ""); err != nil || len(builds) != 0 {
		t.Errorf("ListBuilds() = %v, %v", builds, err)
	}
}

func TestRunnerCancelled(t *testing.T) {
	f := newStagingFixture(t, nil)
	runner, notifier, _ := newTestRunner(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := runner.Run(ctx, NewCatalog(CatalogEntry{Name: "alpha", Source: StaticSource("1.0")}))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if report == nil || len(report.Results) != 0 || len(notifier.bodies) != 0 {
		t.Errorf("cancelled run staged or notified: %+v", report)
	}
}

// TestRunnerNotifiesAfterCancel tests that builds staged before an interrupt are still announced
func TestRunnerNotifiesAfterCancel(t *testing.T) {
	f := newStagingFixture(t, map[string]string{"/a.bin": "a", "/b.bin": "b"})
	f.addTemplate(t, "alpha", fmt.Sprintf("DOWNLOAD=\"%s\"\nMD5SUM=\"\"\n", f.url("/a.bin")), nil)
	f.addTemplate(t, "beta", fmt.Sprintf("DOWNLOAD=\"%s\"\nMD5SUM=\"\"\n", f.url("/b.bin")), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner, notifier, _ := newTestRunner(t, f,
		WithLogger(logger.New(&cancelOnWrite{marker: "Staged alpha-1.0", cancel: cancel}, logger.LevelInfo)))

	report, err := runner.Run(ctx, NewCatalog(
		CatalogEntry{Name: "alpha", Source: StaticSource("1.0")},
		CatalogEntry{Name: "beta", Source: StaticSource("2.0")},
	))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if report.Summary != "alpha-1.0" {
		t.Errorf("Summary = %q, want alpha-1.0", report.Summary)
	}
	if len(notifier.bodies) != 1 || notifier.bodies[0] != "alpha-1.0" {
		t.Fatalf("notifications = %q", notifier.bodies)
	}
	if notifier.ctxErrs[0] != nil {
		t.Errorf("notification context already cancelled: %v", notifier.ctxErrs[0])
	}
}
