package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/rhai-examples/qgate/internal/config"
	"github.com/rhai-examples/qgate/internal/core/quality"
	"github.com/rhai-examples/qgate/internal/ui"
	"github.com/rhai-examples/qgate/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var debounce = watch.DefaultDebounce
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the quality gate in check mode whenever files change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := requireDeps()
			if err != nil {
				return err
			}
			// Check mode keeps fixers from rewriting files and retriggering events.
			checks, err := d.Catalog.GateChecks(quality.ModeCheck)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := watch.New(d.Root, d.Config.Paths.Exclude,
				watch.WithDebounce(debounce),
				watch.WithExtensions(watchExtensions(d.Config)...),
			)
			_, _ = fmt.Fprintf(out, "watching %s (Ctrl-C to stop)\n", d.Root)

			err = w.Run(cmd.Context(), func(ctx context.Context, files []string) {
				gate := quality.NewGate(checks, quality.WithObserver(ui.NewGateObserver(d.Theme, d.Progress, out)))
				report, err := gate.Run(ctx, files)
				_, _ = fmt.Fprintln(out, ui.GateSummary(d.Theme, report))
				var failed *quality.CheckFailedError
				if err != nil && !errors.As(err, &failed) {
					d.Logger.Warn("gate run failed", "error", err)
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before re-running")
	return cmd
}

// watchExtensions collects the file extensions of the enabled gate tools.
func watchExtensions(cfg *config.Config) []string {
	var exts []string
	for _, tc := range []config.ToolConfig{
		cfg.Format.ImportSorter,
		cfg.Format.Formatter,
		cfg.Lint.Linter,
		cfg.Typecheck.Checker,
		cfg.Security.Scanner,
	} {
		if !tc.Enabled {
			continue
		}
		for _, ext := range tc.Extensions {
			if !slices.Contains(exts, ext) {
				exts = append(exts, ext)
			}
		}
	}
	return exts
}
