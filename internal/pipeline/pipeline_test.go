package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rhai-examples/qgate/internal/config"
	"github.com/rhai-examples/qgate/internal/core/quality"
	"github.com/rhai-examples/qgate/internal/tool"
)

// stubCheck returns a fixed status, optionally blocking until ctx ends.
type stubCheck struct {
	name   string
	status quality.Status
	block  bool
	delay  time.Duration
	runs   *atomic.Int32
}

func (s *stubCheck) Name() string       { return s.name }
func (s *stubCheck) Kind() quality.Kind { return quality.KindChecker }

func (s *stubCheck) Run(ctx context.Context, _ []string) *quality.CheckResult {
	if s.runs != nil {
		s.runs.Add(1)
	}
	if s.block {
		<-ctx.Done()
		return &quality.CheckResult{Name: s.name, Status: quality.StatusFailed, Err: ctx.Err()}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return &quality.CheckResult{Name: s.name, Status: s.status, Output: s.name + " output"}
}

func TestRunner_JobsAreIndependent(t *testing.T) {
	t.Parallel()

	var afterFailure atomic.Int32
	jobs := []Job{
		{Name: "quality", Steps: []quality.Check{
			&stubCheck{name: "ruff", status: quality.StatusFailed},
			&stubCheck{name: "mypy", status: quality.StatusPassed, runs: &afterFailure},
		}},
		{Name: "test", Steps: []quality.Check{&stubCheck{name: "pytest", status: quality.StatusPassed, delay: 20 * time.Millisecond}}},
		{Name: "deps", Steps: []quality.Check{&stubCheck{name: "pip-audit", status: quality.StatusPassed}}},
	}

	var observed atomic.Int32
	r := NewRunner(2, 0).WithObserver(func(JobResult) { observed.Add(1) })
	report := r.Run(context.Background(), jobs)

	if report.Passed {
		t.Error("Passed = true, want false")
	}
	if len(report.Jobs) != 3 {
		t.Fatalf("jobs reported = %d, want 3", len(report.Jobs))
	}
	if report.Jobs[0].Passed || report.Jobs[0].Failed != "ruff" {
		t.Errorf("quality job = %+v", report.Jobs[0])
	}
	if !report.Jobs[1].Passed || !report.Jobs[2].Passed {
		t.Errorf("independent jobs did not pass: %+v", report.Jobs[1:])
	}
	if afterFailure.Load() != 0 {
		t.Error("step after a failing step ran")
	}
	if observed.Load() != 3 {
		t.Errorf("observer called %d times, want 3", observed.Load())
	}
	if report.RunID == "" {
		t.Error("RunID is empty")
	}
	if got := report.FailedJobs(); !slices.Equal(got, []string{"quality"}) {
		t.Errorf("FailedJobs() = %v", got)
	}
}

func TestRunner_AllPass(t *testing.T) {
	t.Parallel()

	jobs := []Job{
		{Name: "a", Steps: []quality.Check{&stubCheck{name: "x", status: quality.StatusPassed}}},
		{Name: "b", Steps: []quality.Check{&stubCheck{name: "y", status: quality.StatusSkipped}}},
	}
	if report := NewRunner(0, 0).Run(context.Background(), jobs); !report.Passed {
		t.Errorf("report = %+v, want passed", report)
	}
}

func TestRunner_JobTimeout(t *testing.T) {
	t.Parallel()

	jobs := []Job{
		{Name: "slow", Steps: []quality.Check{&stubCheck{name: "hang", block: true}}},
		{Name: "fast", Steps: []quality.Check{&stubCheck{name: "ok", status: quality.StatusPassed}}},
	}
	report := NewRunner(2, 20*time.Millisecond).Run(context.Background(), jobs)

	if report.Jobs[0].Passed || !strings.Contains(report.Jobs[0].Error, "timed out") {
		t.Errorf("slow job = %+v", report.Jobs[0])
	}
	if !report.Jobs[1].Passed {
		t.Errorf("fast job = %+v", report.Jobs[1])
	}
}

func TestMatrix(t *testing.T) {
	t.Parallel()

	m := Matrix{"python": {"3.11", "3.12"}, "os": {"linux"}}
	combos := m.Combinations()
	if len(combos) != 2 {
		t.Fatalf("combinations = %v", combos)
	}
	if got := JobName("test", combos[0]); got != "test (os=linux, python=3.11)" {
		t.Errorf("JobName() = %q", got)
	}

	jobs := ExpandMatrix("test", Matrix{"python": {"3.11", "3.12"}}, nil, func(c map[string]string) []quality.Check {
		return []quality.Check{&stubCheck{name: "pytest " + c["python"]}}
	})
	names := []string{jobs[0].Name, jobs[1].Name}
	if !slices.Equal(names, []string{"test (python=3.11)", "test (python=3.12)"}) {
		t.Errorf("job names = %v", names)
	}

	if got := ExpandMatrix("lint", nil, nil, func(map[string]string) []quality.Check { return nil }); len(got) != 1 || got[0].Name != "lint" {
		t.Errorf("ExpandMatrix(no matrix) = %+v", got)
	}
}

type nopRunner struct{}

func (nopRunner) Run(_ context.Context, spec tool.Spec) *tool.Result {
	return &tool.Result{Name: spec.Name}
}
func (nopRunner) Available(string) bool { return true }

func TestBuildJobs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cat, err := quality.NewCatalog(config.NewDefaultConfig(), root, nopRunner{})
	if err != nil {
		t.Fatal(err)
	}

	jobs, err := BuildJobs(cat, BuildOptions{})
	if err != nil {
		t.Fatalf("BuildJobs() error = %v", err)
	}
	var names []string
	for _, j := range jobs {
		names = append(names, j.Name)
	}
	want := []string{"quality", "test (python=3.11)", "test (python=3.12)", "notebooks", "deps"}
	if !slices.Equal(names, want) {
		t.Errorf("job names = %v, want %v", names, want)
	}
	if len(jobs[0].Steps) != 6 || jobs[0].Steps[1].Kind() != quality.KindChecker {
		t.Errorf("quality job must run fixers in check mode: %+v", jobs[0].Steps)
	}

	jobs, err = BuildJobs(cat, BuildOptions{Jobs: []string{"test"}, Python: "3.12"})
	if err != nil || len(jobs) != 1 || jobs[0].Name != "test (python=3.12)" {
		t.Errorf("filtered jobs = %+v, %v", jobs, err)
	}

	if _, err := BuildJobs(cat, BuildOptions{Jobs: []string{"docs"}}); err == nil {
		t.Error("expected ErrUnknownJob")
	}
}

func TestWorkflow(t *testing.T) {
	t.Parallel()

	data, err := Workflow(config.NewDefaultConfig())
	if err != nil {
		t.Fatalf("Workflow() error = %v", err)
	}

	var doc struct {
		Name string `yaml:"name"`
		Jobs map[string]struct {
			RunsOn   string `yaml:"runs-on"`
			If       string `yaml:"if"`
			Strategy struct {
				FailFast bool                `yaml:"fail-fast"`
				Matrix   map[string][]string `yaml:"matrix"`
			} `yaml:"strategy"`
			Steps []struct {
				Run string `yaml:"run"`
			} `yaml:"steps"`
		} `yaml:"jobs"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("generated workflow is not valid YAML: %v\n%s", err, data)
	}
	if doc.Name != "quality" {
		t.Errorf("name = %q", doc.Name)
	}
	for _, job := range []string{"quality", "test", "notebooks", "deps", "review"} {
		if _, ok := doc.Jobs[job]; !ok {
			t.Errorf("missing job %s", job)
		}
	}
	test := doc.Jobs["test"]
	if test.Strategy.FailFast || !slices.Equal(test.Strategy.Matrix["python"], []string{"3.11", "3.12"}) {
		t.Errorf("test strategy = %+v", test.Strategy)
	}
	last := test.Steps[len(test.Steps)-1].Run
	if !strings.Contains(last, "qgate ci run --job test --python ${{ matrix.python }}") {
		t.Errorf("test run step = %q", last)
	}
	if doc.Jobs["review"].If == "" {
		t.Error("review job must be limited to pull requests")
	}
	// Job order follows ci.jobs.
	if qi, ri := bytes.Index(data, []byte("\n  quality:")), bytes.Index(data, []byte("\n  review:")); qi < 0 || ri < qi {
		t.Errorf("unexpected job order:\n%s", data)
	}
}

func TestRenderTable(t *testing.T) {
	t.Parallel()

	report := &Report{
		RunID: "0123456789abcdef",
		Jobs: []JobResult{
			{Name: "quality", Passed: false, Failed: "ruff", Steps: []*quality.CheckResult{
				{Name: "secrets", Status: quality.StatusPassed},
				{Name: "ruff", Status: quality.StatusFailed, Output: "a.py:1:1: F401 unused"},
			}},
			{Name: "deps", Passed: true, Steps: []*quality.CheckResult{{Name: "pip-audit", Status: quality.StatusPassed}}},
		},
	}

	var buf bytes.Buffer
	RenderTable(&buf, report)
	out := buf.String()
	for _, want := range []string{"quality", "FAIL", "1 passed, 1 failed", "01234567", "F401 unused"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBuildJobs_NotebooksUseRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "examples"), 0o755); err != nil {
		t.Fatal(err)
	}
	cat, err := quality.NewCatalog(config.NewDefaultConfig(), root, nopRunner{})
	if err != nil {
		t.Fatal(err)
	}
	jobs, err := BuildJobs(cat, BuildOptions{Jobs: []string{"notebooks"}})
	if err != nil {
		t.Fatal(err)
	}
	res := jobs[0].Steps[0].Run(context.Background(), nil)
	if res.Status != quality.StatusSkipped {
		t.Errorf("empty examples dir status = %s, want skipped", res.Status)
	}
}
