package cli

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rhai-examples/qgate/internal/task"
)

func newTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List the developer tasks and their steps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Task", "Description", "Steps"})
			for _, def := range task.Definitions() {
				t.AppendRow(table.Row{def.Name, def.Description, strings.Join(def.Steps, " → ")})
			}
			t.Render()
			return nil
		},
	}
}
