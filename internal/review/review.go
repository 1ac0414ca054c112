// Package review annotates pull requests with checker findings.
//
// Findings on lines present in the pull request diff become inline review
// comments. Everything is summarized in a single comment that is located by
// a hidden marker and edited in place on later pushes.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rhai-examples/qgate/internal/core/quality"
	"github.com/rhai-examples/qgate/internal/defs"
	"github.com/rhai-examples/qgate/internal/finding"
	"github.com/rhai-examples/qgate/internal/github"
)

var (
	// ErrNilClient indicates a Bot was created without a GitHub client.
	ErrNilClient = errors.New("review: github client is nil")

	// ErrPRNotOpen indicates the pull request is closed or merged.
	ErrPRNotOpen = errors.New("review: pull request is not open")
)

// SummaryAction describes what happened to the summary comment.
type SummaryAction string

const (
	SummaryCreated   SummaryAction = "created"
	SummaryUpdated   SummaryAction = "updated"
	SummaryUnchanged SummaryAction = "unchanged"
	SummaryDryRun    SummaryAction = "dry-run"
)

// Options configures a Bot.
type Options struct {
	// MaxInline caps the number of new inline comments per run. Zero disables
	// inline comments.
	MaxInline int
	// MinSeverity drops findings below this severity.
	MinSeverity finding.Severity
	// DryRun computes the review without posting anything.
	DryRun bool
}

// Result is the outcome of annotating a pull request.
type Result struct {
	PR         *github.PRDetails
	Findings   []finding.Finding
	Inline     []github.DraftComment
	Duplicates int
	Overflow   []finding.Finding
	Unmapped   []finding.Finding
	Summary    string
	Action     SummaryAction
	CommentID  int64
}

// Bot posts review comments for checker results.
type Bot struct {
	gh     github.Client
	opts   Options
	logger *slog.Logger
}

// NewBot creates a Bot using gh for every GitHub call.
func NewBot(gh github.Client, opts Options) (*Bot, error) {
	if gh == nil {
		return nil, ErrNilClient
	}
	if opts.MinSeverity == "" {
		opts.MinSeverity = finding.SeverityInfo
	}
	return &Bot{
		gh:     gh,
		opts:   opts,
		logger: slog.Default().With("module", "review"),
	}, nil
}

// Annotate reviews pull request number with the findings of results.
func (b *Bot) Annotate(ctx context.Context, number int, results []*quality.CheckResult) (*Result, error) {
	b.logger.Info("starting PR review", "pr", number, "checks", len(results))

	pr, err := b.gh.PRView(ctx, number)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(pr.State, "OPEN") {
		return nil, fmt.Errorf("PR #%d is %s: %w", number, pr.State, ErrPRNotOpen)
	}

	diffText, err := b.gh.PRDiff(ctx, number)
	if err != nil {
		return nil, err
	}
	diff := ParseDiff(diffText)

	existing, err := b.gh.ListReviewComments(ctx, number)
	if err != nil {
		return nil, err
	}
	posted := make(map[string]bool, len(existing))
	for _, c := range existing {
		posted[commentKey(c.Path, c.Line, c.Body)] = true
	}

	res := &Result{PR: pr, Findings: b.selectFindings(quality.Findings(results))}
	for _, f := range res.Findings {
		if !f.Located() || !diff.Commentable(f.File, f.Line) {
			res.Unmapped = append(res.Unmapped, f)
			continue
		}
		draft := github.DraftComment{
			Path: NormalizePath(f.File),
			Line: f.Line,
			Side: github.SideRight,
			Body: InlineBody(f),
		}
		switch {
		case posted[commentKey(draft.Path, draft.Line, draft.Body)]:
			res.Duplicates++
		case len(res.Inline) < b.opts.MaxInline:
			res.Inline = append(res.Inline, draft)
		default:
			res.Overflow = append(res.Overflow, f)
		}
	}

	res.Summary = BuildSummary(SummaryData{
		HeadSHA:    pr.HeadSHA,
		Results:    results,
		Findings:   res.Findings,
		Inline:     len(res.Inline),
		Duplicates: res.Duplicates,
		Overflow:   res.Overflow,
		Unmapped:   res.Unmapped,
	})

	if b.opts.DryRun {
		res.Action = SummaryDryRun
		return res, nil
	}

	if len(res.Inline) > 0 {
		err := b.gh.CreateReview(ctx, number, github.ReviewRequest{
			CommitID: pr.HeadSHA,
			Body:     fmt.Sprintf("qgate found %d issue(s) on changed lines.", len(res.Inline)),
			Event:    github.ReviewEventComment,
			Comments: res.Inline,
		})
		if err != nil {
			return nil, err
		}
	}

	res.Action, res.CommentID, err = b.upsertSummary(ctx, number, res.Summary)
	if err != nil {
		return nil, err
	}

	b.logger.Info("PR review complete",
		"pr", number,
		"inline", len(res.Inline),
		"duplicates", res.Duplicates,
		"unmapped", len(res.Unmapped),
		"summary", string(res.Action),
	)
	return res, nil
}

// upsertSummary edits the existing summary comment or creates one.
func (b *Bot) upsertSummary(ctx context.Context, number int, body string) (SummaryAction, int64, error) {
	comments, err := b.gh.ListIssueComments(ctx, number)
	if err != nil {
		return "", 0, err
	}
	for _, c := range comments {
		if !strings.Contains(c.Body, defs.SummaryMarker) {
			continue
		}
		if normalizeBody(c.Body) == normalizeBody(body) {
			return SummaryUnchanged, c.ID, nil
		}
		if err := b.gh.UpdateIssueComment(ctx, c.ID, body); err != nil {
			return "", 0, err
		}
		return SummaryUpdated, c.ID, nil
	}

	created, err := b.gh.CreateIssueComment(ctx, number, body)
	if err != nil {
		return "", 0, err
	}
	return SummaryCreated, created.ID, nil
}

// selectFindings filters by severity, sorts and removes duplicate findings.
func (b *Bot) selectFindings(findings []finding.Finding) []finding.Finding {
	kept := finding.Filter(findings, b.opts.MinSeverity)
	finding.Sort(kept)

	seen := make(map[string]bool, len(kept))
	out := kept[:0]
	for _, f := range kept {
		key := f.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

func commentKey(path string, line int, body string) string {
	return fmt.Sprintf("%s\x00%d\x00%s", NormalizePath(path), line, normalizeBody(body))
}

func normalizeBody(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}
