package pipeline

import (
	"errors"
	"fmt"

	"github.com/rhai-examples/qgate/internal/config"
	"github.com/rhai-examples/qgate/internal/core/quality"
	"github.com/rhai-examples/qgate/internal/notebook"
)

// ErrUnknownJob indicates a job name without a builder.
var ErrUnknownJob = errors.New("pipeline: unknown job")

// BuildOptions narrows the jobs built from configuration.
type BuildOptions struct {
	// Jobs lists job names to build; empty means ci.jobs.
	Jobs []string
	// Python restricts the test matrix to one runtime version.
	Python string
	// Files are the project files handed to file-based steps.
	Files []string
}

// BuildJobs builds the CI jobs described by the catalog's configuration.
func BuildJobs(cat *quality.Catalog, opts BuildOptions) ([]Job, error) {
	cfg := cat.Config()
	names := opts.Jobs
	if len(names) == 0 {
		names = cfg.CI.Jobs
	}

	var jobs []Job
	for _, name := range names {
		switch name {
		case config.JobQuality:
			steps, err := cat.GateChecks(quality.ModeCheck)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, Job{Name: name, Steps: steps, Files: opts.Files})
		case config.JobTest:
			versions := cfg.Test.PythonVersions
			if opts.Python != "" {
				versions = []string{opts.Python}
			}
			jobs = append(jobs, ExpandMatrix(name, Matrix{"python": versions}, nil, func(c map[string]string) []quality.Check {
				return []quality.Check{cat.TestCheck(c["python"])}
			})...)
		case config.JobNotebooks:
			chk := notebook.NewCheck(cat.Root(), cfg.Notebooks, cfg.Paths.Exclude, cat.Runner())
			jobs = append(jobs, Job{Name: name, Steps: []quality.Check{chk}})
		case config.JobDeps:
			chk, err := cat.Check(config.CheckerDeps, quality.ModeCheck)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, Job{Name: name, Steps: []quality.Check{chk}})
		default:
			return nil, fmt.Errorf("%q: %w", name, ErrUnknownJob)
		}
	}
	return jobs, nil
}
