package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rhai-examples/qgate/internal/defs"
	"github.com/rhai-examples/qgate/internal/pipeline"
	"github.com/rhai-examples/qgate/internal/task"
	"github.com/rhai-examples/qgate/internal/ui"
)

func newCICmd() *cobra.Command {
	ciCmd := &cobra.Command{
		Use:   "ci",
		Short: "Run the CI pipeline or generate its workflow",
	}
	ciCmd.AddCommand(newCIRunCmd(), newCIWorkflowCmd())
	return ciCmd
}

func newCIRunCmd() *cobra.Command {
	var (
		jobs    []string
		python  string
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run CI jobs in parallel and report every job",
		Long: `Run the configured CI jobs with bounded parallelism.

Jobs are independent: a failing job never stops the others. The run
passes only when every job passes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := requireDeps()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			files, err := projectFiles(cmd, d)
			if err != nil {
				return err
			}
			built, err := pipeline.BuildJobs(d.Catalog, pipeline.BuildOptions{
				Jobs:   jobs,
				Python: python,
				Files:  files,
			})
			if err != nil {
				return err
			}

			cfg := d.Config.CI
			runner := pipeline.NewRunner(cfg.Parallelism, time.Duration(cfg.JobTimeoutSeconds)*time.Second)
			var board ui.JobBoard
			if !jsonOut {
				board = d.Progress.Jobs(len(built))
				runner = runner.WithObserver(ui.JobObserver(board))
			}
			report := runner.Run(ctx, built)
			if board != nil {
				board.Done()
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				pipeline.RenderTable(out, report)
			}

			if !report.Passed {
				return fmt.Errorf("ci jobs %v: %w", report.FailedJobs(), ErrChecksFailed)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&jobs, "job", nil, "job to run (repeatable, default: ci.jobs)")
	cmd.Flags().StringVar(&python, "python", "", "restrict the test matrix to one runtime version")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the report as JSON")
	return cmd
}

func newCIWorkflowCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Print the GitHub Actions workflow for the pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := requireDeps()
			if err != nil {
				return err
			}
			data, err := pipeline.Workflow(d.Config)
			if err != nil {
				return err
			}
			if !write {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			path := filepath.Join(d.Root, defs.WorkflowPath)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create workflow directory: %w", err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write workflow: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", defs.WorkflowPath)
			return err
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "write the workflow into the repository instead of printing it")
	return cmd
}

// projectFiles lists tracked files, or walks the tree outside git.
func projectFiles(cmd *cobra.Command, d *Dependencies) ([]string, error) {
	if d.Repo != nil {
		files, err := d.Repo.TrackedFiles(cmd.Context())
		if err != nil {
			return nil, fmt.Errorf("list tracked files: %w", err)
		}
		return files, nil
	}
	return task.WalkFiles(d.Root, d.Config.Paths.Exclude)
}
