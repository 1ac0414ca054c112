// Package pipeline runs the CI pipeline: independent jobs fanned out with
// bounded parallelism, each a sequence of quality checks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rhai-examples/qgate/internal/core/quality"
)

// ErrJobTimeout indicates a job exceeded the per-job time limit.
var ErrJobTimeout = errors.New("pipeline: job timed out")

// Job is one independent unit of the pipeline.
type Job struct {
	Name string
	// Steps run sequentially; the first failure ends the job.
	Steps []quality.Check
	// Files are handed to every step.
	Files []string
}

// JobResult is the outcome of one job.
type JobResult struct {
	Name     string                 `json:"name"`
	Passed   bool                   `json:"passed"`
	Failed   string                 `json:"failed_step,omitempty"`
	Steps    []*quality.CheckResult `json:"steps"`
	Error    string                 `json:"error,omitempty"`
	Duration time.Duration          `json:"duration"`
}

// Report is the outcome of a pipeline run.
type Report struct {
	RunID    string        `json:"run_id"`
	Started  time.Time     `json:"started"`
	Jobs     []JobResult   `json:"jobs"`
	Passed   bool          `json:"passed"`
	Duration time.Duration `json:"duration"`
}

// FailedJobs returns the names of failed jobs.
func (r *Report) FailedJobs() []string {
	var out []string
	for _, j := range r.Jobs {
		if !j.Passed {
			out = append(out, j.Name)
		}
	}
	return out
}

// Matrix maps a dimension name to its values.
type Matrix map[string][]string

// Combinations returns every assignment of the matrix dimensions, ordered
// by dimension name and then by value order.
func (m Matrix) Combinations() []map[string]string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	combos := []map[string]string{{}}
	for _, k := range keys {
		var next []map[string]string
		for _, c := range combos {
			for _, v := range m[k] {
				nc := make(map[string]string, len(c)+1)
				for ck, cv := range c {
					nc[ck] = cv
				}
				nc[k] = v
				next = append(next, nc)
			}
		}
		combos = next
	}
	return combos
}

// JobName renders a matrix job name such as "test (python=3.11)".
func JobName(base string, combo map[string]string) string {
	if len(combo) == 0 {
		return base
	}
	keys := make([]string, 0, len(combo))
	for k := range combo {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+combo[k])
	}
	return fmt.Sprintf("%s (%s)", base, strings.Join(parts, ", "))
}

// ExpandMatrix builds one job per matrix combination.
func ExpandMatrix(base string, m Matrix, files []string, steps func(combo map[string]string) []quality.Check) []Job {
	combos := m.Combinations()
	if len(combos) == 0 {
		return []Job{{Name: base, Steps: steps(nil), Files: files}}
	}
	jobs := make([]Job, 0, len(combos))
	for _, c := range combos {
		jobs = append(jobs, Job{Name: JobName(base, c), Steps: steps(c), Files: files})
	}
	return jobs
}

// Observer is notified when a job finishes. It may be called concurrently.
type Observer func(JobResult)

// Runner fans jobs out with bounded parallelism.
type Runner struct {
	parallelism int
	jobTimeout  time.Duration
	observer    Observer
	newID       func() string
	logger      *slog.Logger
}

// NewRunner creates a Runner. A parallelism below one runs jobs one at a
// time; a zero jobTimeout disables the per-job limit.
func NewRunner(parallelism int, jobTimeout time.Duration) *Runner {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Runner{
		parallelism: parallelism,
		jobTimeout:  jobTimeout,
		newID:       func() string { return uuid.NewString() },
		logger:      slog.Default().With("module", "pipeline"),
	}
}

// WithObserver sets a job completion observer.
func (r *Runner) WithObserver(o Observer) *Runner {
	r.observer = o
	return r
}

// Run executes jobs and waits for all of them. A failing job never cancels
// the others; only ctx does. The report lists jobs in input order and passes
// only when every job passed.
func (r *Runner) Run(ctx context.Context, jobs []Job) *Report {
	report := &Report{RunID: r.newID(), Started: time.Now(), Jobs: make([]JobResult, len(jobs))}
	r.logger.Info("pipeline started", "run_id", report.RunID, "jobs", len(jobs), "parallelism", r.parallelism)

	var g errgroup.Group
	g.SetLimit(r.parallelism)
	for i, job := range jobs {
		g.Go(func() error {
			res := r.runJob(ctx, job)
			report.Jobs[i] = res
			if r.observer != nil {
				r.observer(res)
			}
			// Job failures are recorded, never returned, so siblings keep running.
			return nil
		})
	}
	_ = g.Wait()

	report.Passed = true
	for _, j := range report.Jobs {
		report.Passed = report.Passed && j.Passed
	}
	report.Duration = time.Since(report.Started)
	r.logger.Info("pipeline finished",
		"run_id", report.RunID,
		"passed", report.Passed,
		"failed", strings.Join(report.FailedJobs(), ","),
		"duration", report.Duration.String(),
	)
	return report
}

func (r *Runner) runJob(ctx context.Context, job Job) JobResult {
	start := time.Now()
	res := JobResult{Name: job.Name, Passed: true}

	if r.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.jobTimeout)
		defer cancel()
	}

	for _, step := range job.Steps {
		if err := ctx.Err(); err != nil {
			res.Passed = false
			res.Failed = step.Name()
			res.Error = jobError(err, r.jobTimeout).Error()
			break
		}
		sr := step.Run(ctx, job.Files)
		res.Steps = append(res.Steps, sr)
		if sr.Status == quality.StatusFailed {
			res.Passed = false
			res.Failed = sr.Name
			if err := ctx.Err(); err != nil {
				res.Error = jobError(err, r.jobTimeout).Error()
			}
			break
		}
	}
	res.Duration = time.Since(start)
	r.logger.Debug("job finished", "job", job.Name, "passed", res.Passed, "duration", res.Duration.String())
	return res
}

func jobError(err error, limit time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrJobTimeout, limit)
	}
	return err
}
