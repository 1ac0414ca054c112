package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rhai-examples/qgate/internal/core/quality"
	"github.com/rhai-examples/qgate/internal/defs"
	"github.com/rhai-examples/qgate/internal/finding"
	"github.com/rhai-examples/qgate/internal/github"
	"github.com/rhai-examples/qgate/internal/review"
	"github.com/rhai-examples/qgate/internal/task"
	"github.com/rhai-examples/qgate/internal/ui"
)

// errPRRequired is returned when review runs without --pr outside dry-run.
var errPRRequired = errors.New("review: --pr is required unless --dry-run is set")

type reviewFlags struct {
	pr     string
	base   string
	repo   string
	dryRun bool
}

func newReviewCmd() *cobra.Command {
	var flags reviewFlags
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Annotate a pull request with quality findings",
		Long: `Run the quality gate in check mode over the files changed by a pull
request and publish the findings.

Findings on lines present in the diff become inline review comments.
Everything else is listed in one summary comment, which later runs update
in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReview(cmd, flags)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.pr, "pr", "", "pull request number or URL")
	f.StringVar(&flags.base, "base", "", "git ref to diff against (default: origin/<PR base branch>)")
	f.StringVar(&flags.repo, "repo", "", "GitHub repository as owner/name (default: review.repo or the current repository)")
	f.BoolVar(&flags.dryRun, "dry-run", false, "render the summary instead of posting it")
	return cmd
}

func runReview(cmd *cobra.Command, flags reviewFlags) error {
	d, err := requireDeps()
	if err != nil {
		return err
	}
	if d.Repo == nil {
		return task.ErrNoRepository
	}
	if flags.pr == "" && !flags.dryRun {
		return errPRRequired
	}
	ctx := cmd.Context()

	repoName := flags.repo
	if repoName == "" {
		repoName = d.Config.Review.Repo
	}

	var (
		number int
		gh     github.Client
	)
	base := flags.base
	if flags.pr != "" {
		number, err = github.ParsePRRef(flags.pr)
		if err != nil {
			return err
		}
		if os.Getenv(defs.EnvGitHubToken) == "" {
			d.Logger.Debug("GITHUB_TOKEN not set, relying on gh login")
		}
		gh = d.NewGitHub(repoName)
		if err := gh.IsAuthenticated(ctx); err != nil {
			return err
		}
		if base == "" {
			pr, err := gh.PRView(ctx, number)
			if err != nil {
				return err
			}
			base = "origin/" + pr.BaseBranch
		}
	}

	files, err := d.Repo.ChangedFiles(ctx, base)
	if err != nil {
		return fmt.Errorf("list changed files: %w", err)
	}
	checks, err := d.Catalog.GateChecks(quality.ModeCheck)
	if err != nil {
		return err
	}
	results := quality.Collect(ctx, checks, files)

	var summary string
	if gh == nil {
		findings := finding.Filter(quality.Findings(results), finding.Severity(d.Config.Review.MinSeverity))
		finding.Sort(findings)
		summary = review.BuildSummary(review.SummaryData{
			Results:  results,
			Findings: findings,
			Unmapped: findings,
		})
	} else {
		bot, err := review.NewBot(gh, review.Options{
			MaxInline:   d.Config.Review.MaxInlineComments,
			MinSeverity: finding.Severity(d.Config.Review.MinSeverity),
			DryRun:      flags.dryRun,
		})
		if err != nil {
			return err
		}
		res, err := bot.Annotate(ctx, number, results)
		if err != nil {
			return err
		}
		if !flags.dryRun {
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"PR #%d: %d inline comment(s), %d already posted, summary %s\n",
				number, len(res.Inline), res.Duplicates, res.Action)
			return err
		}
		summary = res.Summary
	}

	rendered, err := ui.RenderMarkdown(d.Theme, summary)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), rendered)
	return err
}
