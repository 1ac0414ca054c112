// Package github talks to the GitHub REST API through the gh CLI, which
// owns authentication. Callers never handle tokens directly.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/rhai-examples/qgate/internal/resilience"
)

// ghBin caches the resolved gh binary path to avoid repeated exec.LookPath calls.
var (
	ghBinOnce sync.Once
	ghBinPath string
	ghBinErr  error
)

var reHTTPStatus = regexp.MustCompile(`HTTP (\d{3})`)

// PRDetails holds information about a pull request.
type PRDetails struct {
	Number     int    `json:"number"`
	Title      string `json:"title"`
	State      string `json:"state"`
	HeadSHA    string `json:"headRefOid"`
	HeadBranch string `json:"headRefName"`
	BaseBranch string `json:"baseRefName"`
	URL        string `json:"url"`
}

// User is a GitHub account.
type User struct {
	Login string `json:"login"`
}

// IssueComment is a top-level pull request conversation comment.
type IssueComment struct {
	ID      int64  `json:"id"`
	Body    string `json:"body"`
	User    User   `json:"user"`
	HTMLURL string `json:"html_url"`
}

// ReviewComment is an inline comment attached to a diff line.
type ReviewComment struct {
	ID       int64  `json:"id"`
	Path     string `json:"path"`
	Line     int    `json:"line"`
	Side     string `json:"side"`
	Body     string `json:"body"`
	CommitID string `json:"commit_id"`
}

// DraftComment is an inline comment submitted with a review.
type DraftComment struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Side string `json:"side"`
	Body string `json:"body"`
}

// ReviewRequest creates a pull request review.
type ReviewRequest struct {
	CommitID string         `json:"commit_id,omitempty"`
	Body     string         `json:"body,omitempty"`
	Event    string         `json:"event"`
	Comments []DraftComment `json:"comments,omitempty"`
}

// ReviewEventComment leaves a review without approving or blocking.
const ReviewEventComment = "COMMENT"

// SideRight addresses the new version of a diff line.
const SideRight = "RIGHT"

// Client abstracts the GitHub operations used by the annotation bot.
type Client interface {
	PRView(ctx context.Context, number int) (*PRDetails, error)
	PRDiff(ctx context.Context, number int) (string, error)
	ListIssueComments(ctx context.Context, number int) ([]IssueComment, error)
	CreateIssueComment(ctx context.Context, number int, body string) (*IssueComment, error)
	UpdateIssueComment(ctx context.Context, id int64, body string) error
	ListReviewComments(ctx context.Context, number int) ([]ReviewComment, error)
	CreateReview(ctx context.Context, number int, req ReviewRequest) error
	IsAuthenticated(ctx context.Context) error
}

// execFunc is the function signature for executing gh CLI commands.
// Used for dependency injection in tests.
type execFunc func(ctx context.Context, dir string, stdin []byte, args ...string) (string, error)

// ghClient implements Client using the gh CLI binary.
type ghClient struct {
	root   string
	repo   string
	policy resilience.RetryPolicy
	logger *slog.Logger
	// execFn is the function used to execute gh commands.
	execFn execFunc
}

// Compile-time interface compliance check.
var _ Client = (*ghClient)(nil)

// NewGHClient creates a client running gh in root. An empty repo lets gh
// resolve the repository from the local git remote.
func NewGHClient(root, repo string, policy resilience.RetryPolicy) *ghClient {
	return newGHClientWithExec(root, repo, policy, execGH)
}

// newGHClientWithExec creates a ghClient with a custom exec function for testing.
func newGHClientWithExec(root, repo string, policy resilience.RetryPolicy, fn execFunc) *ghClient {
	return &ghClient{
		root:   root,
		repo:   repo,
		policy: policy,
		logger: slog.Default().With("module", "github"),
		execFn: fn,
	}
}

// call runs an idempotent gh call (GET or PATCH) under the retry policy.
// HTTP 4xx responses other than rate limiting are treated as client errors
// and fail immediately.
func (c *ghClient) call(ctx context.Context, op string, stdin []byte, args ...string) (string, error) {
	var out string
	policy := c.policy
	policy.Name = op
	err := resilience.Retry(ctx, policy, func() error {
		var err error
		out, err = c.execFn(ctx, c.root, stdin, args...)
		if err != nil && isClientStatus(err) {
			return resilience.AsClientError(err)
		}
		return err
	})
	return out, err
}

// send runs a POST exactly once. A 5xx can arrive after GitHub already
// created the resource, and a second attempt would post it twice.
func (c *ghClient) send(ctx context.Context, op string, stdin []byte, args ...string) (string, error) {
	out, err := c.execFn(ctx, c.root, stdin, args...)
	if err != nil {
		c.logger.Debug("gh call failed", "operation", op, "error", err)
	}
	return out, err
}

// repoPath returns the REST path prefix of the repository.
func (c *ghClient) repoPath() string {
	if c.repo == "" {
		return "repos/{owner}/{repo}"
	}
	return "repos/" + c.repo
}

func (c *ghClient) repoArgs() []string {
	if c.repo == "" {
		return nil
	}
	return []string{"--repo", c.repo}
}

// IsAuthenticated checks whether the gh CLI is authenticated.
func (c *ghClient) IsAuthenticated(ctx context.Context) error {
	if _, err := c.execFn(ctx, c.root, nil, "auth", "status"); err != nil {
		if errors.Is(err, ErrGHNotFound) {
			return err
		}
		return fmt.Errorf("check auth: %w", ErrGHNotAuthenticated)
	}
	return nil
}

// PRView retrieves pull request details by number.
func (c *ghClient) PRView(ctx context.Context, number int) (*PRDetails, error) {
	args := append([]string{
		"pr", "view", strconv.Itoa(number),
		"--json", "number,title,state,headRefOid,headRefName,baseRefName,url",
	}, c.repoArgs()...)
	output, err := c.call(ctx, "pr view", nil, args...)
	if err != nil {
		return nil, fmt.Errorf("view PR #%d: %w", number, notFound(err))
	}

	var details PRDetails
	if err := json.Unmarshal([]byte(output), &details); err != nil {
		return nil, fmt.Errorf("parse PR #%d JSON: %w", number, err)
	}
	return &details, nil
}

// PRDiff returns the unified diff of a pull request.
func (c *ghClient) PRDiff(ctx context.Context, number int) (string, error) {
	args := append([]string{"pr", "diff", strconv.Itoa(number)}, c.repoArgs()...)
	out, err := c.call(ctx, "pr diff", nil, args...)
	if err != nil {
		return "", fmt.Errorf("diff PR #%d: %w", number, notFound(err))
	}
	return out, nil
}

// ListIssueComments lists every conversation comment on a pull request.
func (c *ghClient) ListIssueComments(ctx context.Context, number int) ([]IssueComment, error) {
	path := fmt.Sprintf("%s/issues/%d/comments", c.repoPath(), number)
	out, err := c.call(ctx, "list issue comments", nil, "api", "--paginate", path)
	if err != nil {
		return nil, fmt.Errorf("list comments on #%d: %w", number, notFound(err))
	}
	return decodePages[IssueComment](out)
}

// CreateIssueComment posts a conversation comment.
func (c *ghClient) CreateIssueComment(ctx context.Context, number int, body string) (*IssueComment, error) {
	path := fmt.Sprintf("%s/issues/%d/comments", c.repoPath(), number)
	out, err := c.send(ctx, "create issue comment", nil, "api", "-X", "POST", path, "-f", "body="+body)
	if err != nil {
		return nil, fmt.Errorf("comment on #%d: %w", number, err)
	}
	var comment IssueComment
	if err := json.Unmarshal([]byte(out), &comment); err != nil {
		return nil, fmt.Errorf("parse created comment: %w", err)
	}
	c.logger.Info("comment created", "pr", number, "id", comment.ID)
	return &comment, nil
}

// UpdateIssueComment replaces the body of a conversation comment.
func (c *ghClient) UpdateIssueComment(ctx context.Context, id int64, body string) error {
	path := fmt.Sprintf("%s/issues/comments/%d", c.repoPath(), id)
	if _, err := c.call(ctx, "update issue comment", nil, "api", "-X", "PATCH", path, "-f", "body="+body); err != nil {
		return fmt.Errorf("update comment %d: %w", id, err)
	}
	c.logger.Info("comment updated", "id", id)
	return nil
}

// ListReviewComments lists every inline review comment on a pull request.
func (c *ghClient) ListReviewComments(ctx context.Context, number int) ([]ReviewComment, error) {
	path := fmt.Sprintf("%s/pulls/%d/comments", c.repoPath(), number)
	out, err := c.call(ctx, "list review comments", nil, "api", "--paginate", path)
	if err != nil {
		return nil, fmt.Errorf("list review comments on #%d: %w", number, notFound(err))
	}
	return decodePages[ReviewComment](out)
}

// CreateReview submits a review with inline comments.
func (c *ghClient) CreateReview(ctx context.Context, number int, req ReviewRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode review: %w", err)
	}
	path := fmt.Sprintf("%s/pulls/%d/reviews", c.repoPath(), number)
	if _, err := c.send(ctx, "create review", payload, "api", "-X", "POST", path, "--input", "-"); err != nil {
		return fmt.Errorf("review #%d: %w", number, err)
	}
	c.logger.Info("review created", "pr", number, "comments", len(req.Comments))
	return nil
}

// decodePages decodes `gh api --paginate` output, which concatenates one
// JSON array per page.
func decodePages[T any](out string) ([]T, error) {
	dec := json.NewDecoder(strings.NewReader(out))
	var all []T
	for {
		var page []T
		err := dec.Decode(&page)
		if errors.Is(err, io.EOF) {
			return all, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode page: %w", err)
		}
		all = append(all, page...)
	}
}

// isClientStatus reports whether err carries an HTTP 4xx status other than
// 429, which signals rate limiting and is worth retrying.
func isClientStatus(err error) bool {
	m := reHTTPStatus.FindStringSubmatch(err.Error())
	if m == nil {
		return false
	}
	code, _ := strconv.Atoi(m[1])
	return code >= 400 && code < 500 && code != 429
}

func notFound(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "HTTP 404") || strings.Contains(msg, "Could not resolve") || strings.Contains(msg, "no pull requests found") {
		return fmt.Errorf("%w: %v", ErrPRNotFound, err)
	}
	return err
}

// execGH runs a gh CLI command and returns its stdout output.
func execGH(ctx context.Context, dir string, stdin []byte, args ...string) (string, error) {
	ghBinOnce.Do(func() {
		ghBinPath, ghBinErr = exec.LookPath("gh")
	})
	if ghBinErr != nil {
		return "", fmt.Errorf("gh lookup: %w", ErrGHNotFound)
	}

	cmd := exec.CommandContext(ctx, ghBinPath, args...)
	cmd.Dir = dir
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg == "" {
			errMsg = err.Error()
		}
		if len(args) == 0 {
			return "", fmt.Errorf("gh: %s: %w", errMsg, err)
		}
		return "", fmt.Errorf("gh %s: %s: %w", args[0], errMsg, err)
	}

	return strings.TrimRight(stdout.String(), "\n\r"), nil
}

// ParsePRRef parses a pull request number from "123", "#123" or a pull
// request URL such as https://github.com/owner/repo/pull/123.
func ParsePRRef(ref string) (int, error) {
	ref = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ref), "#"))
	if ref == "" {
		return 0, fmt.Errorf("empty reference: %w", ErrInvalidPRRef)
	}

	last := ref
	if strings.Contains(ref, "/") {
		parts := strings.Split(strings.TrimSuffix(ref, "/"), "/")
		if len(parts) < 2 || parts[len(parts)-2] != "pull" {
			return 0, fmt.Errorf("URL missing /pull/ segment %q: %w", ref, ErrInvalidPRRef)
		}
		last = parts[len(parts)-1]
	}

	number, err := strconv.Atoi(last)
	if err != nil || number <= 0 {
		return 0, fmt.Errorf("%q: %w", ref, ErrInvalidPRRef)
	}
	return number, nil
}
