package quality

import (
	"context"
	"time"
)

// funcCheck adapts an in-process step to the Check interface.
type funcCheck struct {
	name string
	fn   func(ctx context.Context) (string, error)
}

// NewFuncCheck creates a Check that runs fn. fn returns output shown to the
// user; a non-nil error fails the check.
func NewFuncCheck(name string, fn func(ctx context.Context) (string, error)) Check {
	return &funcCheck{name: name, fn: fn}
}

func (c *funcCheck) Name() string { return c.name }
func (c *funcCheck) Kind() Kind   { return KindChecker }

func (c *funcCheck) Run(ctx context.Context, _ []string) *CheckResult {
	start := time.Now()
	out, err := c.fn(ctx)
	res := &CheckResult{
		Name:     c.name,
		Kind:     KindChecker,
		Status:   StatusPassed,
		Output:   out,
		Duration: time.Since(start),
	}
	if err != nil {
		res.Status = StatusFailed
		res.ExitCode = 1
		res.Err = err
		if res.Output == "" {
			res.Output = err.Error()
		}
	}
	return res
}
