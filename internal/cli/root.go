// Package cli provides the Cobra command tree for qgate.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rhai-examples/qgate/pkg/version"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool
	dir        string
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "qgate",
		Short: "Quality gate orchestrator for Python and notebook repositories",
		Long: `qgate runs formatters, linters, type checkers, security scanners,
tests and notebook execution as one quality gate.

It powers the git pre-commit hook, the CI pipeline and the pull request
annotation bot from a single qgate.yaml.`,
		Version:      version.GetVersion(),
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if deps != nil {
				return nil
			}
			return InitDependencies(flags)
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("qgate %s\n", version.GetFullVersion()))

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "configuration file (default qgate.yaml in the project root)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format: text or json")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colors and animations")
	pf.StringVarP(&flags.dir, "chdir", "C", "", "run as if started in this directory")

	for _, cmd := range newTaskCmds() {
		root.AddCommand(cmd)
	}
	root.AddCommand(
		newHookCmd(),
		newCICmd(),
		newReviewCmd(),
		newWatchCmd(),
		newTasksCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command tree until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "qgate %s\n", version.GetFullVersion())
			return err
		},
	}
}
