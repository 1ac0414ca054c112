package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rhai-examples/qgate/internal/core/quality"
	"github.com/rhai-examples/qgate/internal/task"
	"github.com/rhai-examples/qgate/internal/ui"
)

// taskFlags binds the flags a task command accepts into task.Options.
type taskFlags func(cmd *cobra.Command, opts *task.Options)

// newTaskCmds builds one command per task definition.
func newTaskCmds() []*cobra.Command {
	extra := map[string]taskFlags{
		task.InstallDev: func(cmd *cobra.Command, opts *task.Options) {
			cmd.Flags().BoolVar(&opts.SkipHooks, "skip-hooks", false, "do not install the git pre-commit hook")
			cmd.Flags().BoolVar(&opts.ForceHook, "force-hook", false, "replace an existing foreign pre-commit hook")
		},
		task.Format: func(cmd *cobra.Command, opts *task.Options) {
			cmd.Flags().BoolVar(&opts.CheckIdempotent, "check-idempotent", false, "run the fixers a second time and fail if they change anything")
		},
		task.Test: func(cmd *cobra.Command, opts *task.Options) {
			cmd.Flags().StringVar(&opts.Python, "python", "", "runtime version to test with (default: first of test.python_versions)")
		},
		task.CheckAll: func(cmd *cobra.Command, opts *task.Options) {
			cmd.Flags().StringVar(&opts.Python, "python", "", "runtime version to test with")
		},
		task.PreCommit: func(cmd *cobra.Command, opts *task.Options) {
			cmd.Flags().BoolVar(&opts.Restage, "restage", false, "re-add files modified by fixers instead of failing")
		},
		task.Clean: func(cmd *cobra.Command, opts *task.Options) {
			cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "remove without asking")
			cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "list what would be removed")
		},
	}

	// Tasks that take no file arguments.
	noFiles := map[string]bool{
		task.Install:    true,
		task.InstallDev: true,
		task.Test:       true,
		task.Clean:      true,
	}

	defs := task.Definitions()
	cmds := make([]*cobra.Command, 0, len(defs))
	for _, def := range defs {
		cmds = append(cmds, newTaskCmd(def, extra[def.Name], noFiles[def.Name]))
	}
	return cmds
}

func newTaskCmd(def task.Definition, bind taskFlags, noFiles bool) *cobra.Command {
	var opts task.Options
	cmd := &cobra.Command{
		Use:   def.Name + " [files...]",
		Short: def.Description,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Files = args
			return runTask(cmd, def.Name, opts)
		},
	}
	if noFiles {
		cmd.Use = def.Name
		cmd.Args = cobra.NoArgs
	}
	if bind != nil {
		bind(cmd, &opts)
	}
	return cmd
}

// runTask runs a task and prints its summary card.
func runTask(cmd *cobra.Command, name string, opts task.Options) error {
	d, err := requireDeps()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	report, err := d.TaskRunner(out).Run(cmd.Context(), name, opts)
	if report != nil {
		printTaskOutput(out, name, report)
		_, _ = fmt.Fprintln(out, ui.GateSummary(d.Theme, report))
	}
	if err != nil {
		return err
	}
	if report != nil && !report.Passed {
		return fmt.Errorf("%s: %w", name, ErrChecksFailed)
	}
	return nil
}

// printTaskOutput prints step output for tasks whose result is the output
// itself rather than a verdict.
func printTaskOutput(w io.Writer, name string, report *quality.Report) {
	if name != task.Clean && name != task.InstallDev {
		return
	}
	for _, res := range report.Results {
		if res.Passed() && res.Output != "" {
			_, _ = fmt.Fprintln(w, res.Output)
		}
	}
}
