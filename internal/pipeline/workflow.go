package pipeline

import (
	"bytes"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/rhai-examples/qgate/internal/config"
)

// InstallCommand installs the qgate binary inside a workflow job.
const InstallCommand = "go install github.com/rhai-examples/qgate/cmd/qgate@latest"

type workflowStep struct {
	Name string            `yaml:"name,omitempty"`
	Uses string            `yaml:"uses,omitempty"`
	With map[string]string `yaml:"with,omitempty"`
	Run  string            `yaml:"run,omitempty"`
	Env  map[string]string `yaml:"env,omitempty"`
}

type workflowStrategy struct {
	FailFast bool                `yaml:"fail-fast"`
	Matrix   map[string][]string `yaml:"matrix"`
}

type workflowJob struct {
	Name           string            `yaml:"name,omitempty"`
	If             string            `yaml:"if,omitempty"`
	RunsOn         string            `yaml:"runs-on"`
	TimeoutMinutes int               `yaml:"timeout-minutes,omitempty"`
	Strategy       *workflowStrategy `yaml:"strategy,omitempty"`
	Steps          []workflowStep    `yaml:"steps"`
}

type branchFilter struct {
	Branches []string `yaml:"branches,omitempty"`
}

type workflowTriggers struct {
	Push        branchFilter `yaml:"push"`
	PullRequest branchFilter `yaml:"pull_request"`
}

type workflowDoc struct {
	Name        string            `yaml:"name"`
	On          workflowTriggers  `yaml:"on"`
	Permissions map[string]string `yaml:"permissions"`
	Jobs        *yaml.Node        `yaml:"jobs"`
}

// Workflow renders a GitHub Actions workflow running each configured job as
// an independent workflow job, plus the PR annotation job.
func Workflow(cfg *config.Config) ([]byte, error) {
	wf := cfg.CI.Workflow
	jobs := &yaml.Node{Kind: yaml.MappingNode}

	timeout := (cfg.CI.JobTimeoutSeconds + 59) / 60
	newest := ""
	if n := len(cfg.Test.PythonVersions); n > 0 {
		newest = cfg.Test.PythonVersions[n-1]
	}

	for _, name := range cfg.CI.Jobs {
		job := workflowJob{RunsOn: wf.RunsOn, TimeoutMinutes: timeout}
		python := newest
		run := fmt.Sprintf("qgate ci run --job %s", name)
		if name == config.JobTest {
			job.Strategy = &workflowStrategy{
				FailFast: false,
				Matrix:   map[string][]string{"python": slices.Clone(cfg.Test.PythonVersions)},
			}
			python = "${{ matrix.python }}"
			run += " --python ${{ matrix.python }}"
		}
		job.Steps = setupSteps(python, cfg.Install.DevExtra)
		job.Steps = append(job.Steps, workflowStep{Name: name, Run: run})
		if err := appendJob(jobs, name, job); err != nil {
			return nil, err
		}
	}

	review := workflowJob{
		If:             "github.event_name == 'pull_request'",
		RunsOn:         wf.RunsOn,
		TimeoutMinutes: timeout,
		Steps:          setupSteps(newest, cfg.Install.DevExtra),
	}
	review.Steps = append(review.Steps, workflowStep{
		Name: "annotate pull request",
		Run:  "qgate review --pr ${{ github.event.pull_request.number }} --base origin/${{ github.base_ref }}",
		Env:  map[string]string{"GITHUB_TOKEN": "${{ secrets.GITHUB_TOKEN }}", "GH_TOKEN": "${{ secrets.GITHUB_TOKEN }}"},
	})
	if err := appendJob(jobs, "review", review); err != nil {
		return nil, err
	}

	doc := workflowDoc{
		Name: wf.Name,
		On: workflowTriggers{
			Push:        branchFilter{Branches: wf.Branches},
			PullRequest: branchFilter{Branches: wf.Branches},
		},
		Permissions: map[string]string{"contents": "read", "pull-requests": "write"},
		Jobs:        jobs,
	}

	var buf bytes.Buffer
	buf.WriteString("# Generated by qgate ci workflow. Edit qgate.yaml and regenerate.\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode workflow: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode workflow: %w", err)
	}
	return buf.Bytes(), nil
}

func setupSteps(python, devExtra string) []workflowStep {
	steps := []workflowStep{
		{Uses: "actions/checkout@v4", With: map[string]string{"fetch-depth": "0"}},
		{Uses: "actions/setup-python@v5", With: map[string]string{"python-version": python}},
		{Uses: "actions/setup-go@v5", With: map[string]string{"go-version": "stable"}},
		{Name: "install qgate", Run: InstallCommand},
	}
	install := "qgate install"
	if devExtra != "" {
		install = "qgate install-dev --skip-hooks"
	}
	return append(steps, workflowStep{Name: "install project", Run: install})
}

func appendJob(jobs *yaml.Node, name string, job workflowJob) error {
	var value yaml.Node
	if err := value.Encode(job); err != nil {
		return fmt.Errorf("encode job %s: %w", name, err)
	}
	jobs.Content = append(jobs.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: name},
		&value,
	)
	return nil
}
