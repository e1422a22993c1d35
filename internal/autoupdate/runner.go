// Package autoupdate provides the run pipeline: resolve, stage, record, notify.
package autoupdate

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/obentoo/sbupdate/internal/common/logger"
	"github.com/obentoo/sbupdate/internal/common/notify"
	"github.com/obentoo/sbupdate/internal/common/slackbuild"
)

// StageResult is the outcome of one catalog entry in a run
type StageResult struct {
	PackageRef
	// BuildID is set when a new build directory was staged
	BuildID string
	Status  StageStatus
	Error   error
	// Downgrade is set when Version is older than the newest existing build
	Downgrade *slackbuild.Build
}

// RunReport describes a finished run
type RunReport struct {
	RunID   string
	Results []StageResult
	// Summary is the notification body, empty when nothing was staged
	Summary string
}

// Staged returns the build IDs created by the run, in catalog order
func (r *RunReport) Staged() []string {
	var ids []string
	for _, res := range r.Results {
		if res.BuildID != "" {
			ids = append(ids, res.BuildID)
		}
	}
	return ids
}

// Count returns how many results have the given status
func (r *RunReport) Count(status StageStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Runner stages every package of a catalog, one at a time
type Runner struct {
	stager   *Stager
	history  *History
	notifier notify.Notifier
	log      *logger.Logger
	newRunID func() string
}

// RunnerOption is a functional option for configuring Runner
type RunnerOption func(*Runner)

// WithHistory records every outcome in h
func WithHistory(h *History) RunnerOption {
	return func(r *Runner) {
		r.history = h
	}
}

// WithNotifier delivers the summary through n
func WithNotifier(n notify.Notifier) RunnerOption {
	return func(r *Runner) {
		r.notifier = n
	}
}

// WithLogger sets the logger used for progress messages
func WithLogger(l *logger.Logger) RunnerOption {
	return func(r *Runner) {
		r.log = l
	}
}

// WithRunIDFunc sets a custom run ID generator for testing
func WithRunIDFunc(fn func() string) RunnerOption {
	return func(r *Runner) {
		r.newRunID = fn
	}
}

// NewRunner creates a runner around a stager
func NewRunner(stager *Stager, opts ...RunnerOption) *Runner {
	r := &Runner{
		stager:   stager,
		notifier: notify.NopNotifier{},
		log:      logger.Default(),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run resolves the catalog and stages each resolved package. A failing
// package is recorded and skipped; only a missing build root or a cancelled
// context stops the run.
func (r *Runner) Run(ctx context.Context, catalog *Catalog) (*RunReport, error) {
	if err := os.MkdirAll(r.stager.BuildRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create build root: %w", err)
	}

	report := &RunReport{RunID: r.newRunID()}
	r.log.Debug("Run %s: checking %d packages", report.RunID, catalog.Len())

	var runErr error
	for _, check := range catalog.Resolve(ctx) {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		report.Results = append(report.Results, r.stageOne(ctx, check))
	}

	r.record(report)

	if summary, ok := Summarize(report.Staged()); ok {
		report.Summary = summary
		// Builds staged before a cancellation are still announced
		if err := r.notifier.Notify(context.WithoutCancel(ctx), NotificationTitle, summary); err != nil {
			r.log.Warn("Failed to send notification: %v", err)
		}
	}

	return report, runErr
}

// stageOne stages a single resolved package
func (r *Runner) stageOne(ctx context.Context, check CheckResult) StageResult {
	res := StageResult{PackageRef: check.PackageRef}

	if check.Error != nil {
		r.log.Warn("%s: %v", check.Name, check.Error)
		res.Status = StatusFailed
		res.Error = check.Error
		return res
	}
	r.log.Debug("%s: upstream version %s", check.Name, check.Version)

	if newest, err := NewestBuild(r.stager.BuildRoot, check.Name); err == nil && newest != nil &&
		slackbuild.CompareVersions(check.Version, newest.Version) < 0 {
		r.log.Warn("%s: upstream version %s is older than staged %s", check.Name, check.Version, newest.ID())
		res.Downgrade = newest
	}

	id, err := r.stager.Stage(ctx, check.Name, check.Version)
	switch {
	case err != nil:
		r.log.Error("%s: %v", check.Name, err)
		res.Status = StatusFailed
		res.Error = err
	case id == "":
		r.log.Debug("%s: %s already staged", check.Name, slackbuild.BuildID(check.Name, check.Version))
		res.Status = StatusSkipped
	default:
		r.log.Info("Staged %s", id)
		res.Status = StatusStaged
		res.BuildID = id
	}
	return res
}

// record appends the run to the history; failures only warn
func (r *Runner) record(report *RunReport) {
	if r.history == nil || len(report.Results) == 0 {
		return
	}

	entries := make([]HistoryEntry, 0, len(report.Results))
	for _, res := range report.Results {
		e := HistoryEntry{
			RunID:   report.RunID,
			BuildID: res.BuildID,
			Package: res.Name,
			Version: res.Version,
			Status:  res.Status,
		}
		if res.Error != nil {
			e.Error = res.Error.Error()
		}
		entries = append(entries, e)
	}
	if err := r.history.Append(entries...); err != nil {
		r.log.Warn("Failed to record history: %v", err)
	}
}
