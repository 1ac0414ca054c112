package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHookCmd() *cobra.Command {
	hookCmd := &cobra.Command{
		Use:   "hook",
		Short: "Manage the git pre-commit hook",
	}

	var force bool
	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Install the pre-commit hook running qgate pre-commit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := requireDeps()
			if err != nil {
				return err
			}
			path, err := d.TaskRunner(cmd.OutOrStdout()).InstallHook(cmd.Context(), force)
			if err != nil {
				return fmt.Errorf("install hook: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "installed %s\n", path)
			return err
		},
	}
	installCmd.Flags().BoolVar(&force, "force", false, "replace an existing hook not written by qgate")

	hookCmd.AddCommand(installCmd)
	return hookCmd
}
