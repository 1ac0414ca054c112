package quality

import (
	"context"
	"time"

	"github.com/rhai-examples/qgate/internal/config"
	"github.com/rhai-examples/qgate/internal/secrets"
)

// secretsCheck runs the built-in secret scanner.
type secretsCheck struct {
	root    string
	exclude []string
	scanner *secrets.Scanner
}

// NewSecretsCheck creates a Check around scanner.
func NewSecretsCheck(root string, exclude []string, scanner *secrets.Scanner) Check {
	return &secretsCheck{root: root, exclude: exclude, scanner: scanner}
}

func (c *secretsCheck) Name() string { return config.CheckerSecrets }
func (c *secretsCheck) Kind() Kind   { return KindChecker }

// Run fails when any file contains a secret pattern.
func (c *secretsCheck) Run(ctx context.Context, files []string) *CheckResult {
	res := &CheckResult{Name: c.Name(), Kind: KindChecker}
	matched := FilterFiles(files, nil, c.exclude)
	if len(matched) == 0 {
		res.Status = StatusSkipped
		res.Reason = "no matching files"
		return res
	}
	res.Files = len(matched)

	start := time.Now()
	found, err := c.scanner.Scan(ctx, c.root, matched)
	res.Duration = time.Since(start)
	res.Findings = found

	switch {
	case err != nil:
		res.Status = StatusFailed
		res.ExitCode = 2
		res.Err = err
		res.Output = err.Error()
	case len(found) > 0:
		res.Status = StatusFailed
		res.ExitCode = 1
		res.Output = secrets.Format(found)
	default:
		res.Status = StatusPassed
	}
	return res
}
