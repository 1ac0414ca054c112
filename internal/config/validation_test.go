package config

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
		wantErr   error
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:      "unknown log level",
			mutate:    func(c *Config) { c.System.LogLevel = "loud" },
			wantField: "system.log_level",
			wantErr:   ErrInvalidConfig,
		},
		{
			name:      "line length too large",
			mutate:    func(c *Config) { c.Format.LineLength = 1000 },
			wantField: "format.line_length",
			wantErr:   ErrInvalidConfig,
		},
		{
			name:      "enabled tool without command",
			mutate:    func(c *Config) { c.Lint.Linter.Command = " " },
			wantField: "lint.linter.command",
			wantErr:   ErrInvalidConfig,
		},
		{
			name: "disabled tool without command is fine",
			mutate: func(c *Config) {
				c.Lint.Linter.Enabled = false
				c.Lint.Linter.Command = ""
			},
		},
		{
			name:      "unknown output format",
			mutate:    func(c *Config) { c.Typecheck.Checker.Format = "pyright-json" },
			wantField: "typecheck.checker.format",
			wantErr:   ErrInvalidConfig,
		},
		{
			name:   "known output format",
			mutate: func(c *Config) { c.Typecheck.Checker.Format = "mypy" },
		},
		{
			name:      "unknown gate checker",
			mutate:    func(c *Config) { c.Gate.Order = []string{"secrets", "pylint"} },
			wantField: "gate.order",
			wantErr:   ErrUnknownChecker,
		},
		{
			name:      "duplicate gate checker",
			mutate:    func(c *Config) { c.Gate.Order = []string{"black", "black"} },
			wantField: "gate.order",
			wantErr:   ErrInvalidConfig,
		},
		{
			name:      "zero parallelism",
			mutate:    func(c *Config) { c.CI.Parallelism = 0 },
			wantField: "ci.parallelism",
			wantErr:   ErrInvalidConfig,
		},
		{
			name:      "unknown job",
			mutate:    func(c *Config) { c.CI.Jobs = []string{"deploy"} },
			wantField: "ci.jobs",
			wantErr:   ErrInvalidConfig,
		},
		{
			name:      "bad secret pattern",
			mutate:    func(c *Config) { c.Security.Secrets.ExtraPatterns = []string{"("} },
			wantField: "security.secrets.extra_patterns[0]",
			wantErr:   ErrInvalidConfig,
		},
		{
			name:      "empty version matrix",
			mutate:    func(c *Config) { c.Test.PythonVersions = nil },
			wantField: "test.python_versions",
			wantErr:   ErrInvalidConfig,
		},
		{
			name:      "malformed repo",
			mutate:    func(c *Config) { c.Review.Repo = "just-a-name" },
			wantField: "review.repo",
			wantErr:   ErrInvalidConfig,
		},
		{
			name:      "unknown min severity",
			mutate:    func(c *Config) { c.Review.MinSeverity = "fatal" },
			wantField: "review.min_severity",
			wantErr:   ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			var verrs *ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("error type = %T, want *ValidationErrors", err)
			}
			found := false
			for _, ve := range verrs.Errors {
				if ve.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("no validation error for field %q in %v", tt.wantField, err)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	withValue := &ValidationError{Field: "a", Message: "bad", Value: 3}
	if got := withValue.Error(); got != `validation error: field "a": bad (got: 3)` {
		t.Errorf("Error() = %q", got)
	}
	noValue := &ValidationError{Field: "a", Message: "bad"}
	if got := noValue.Error(); got != `validation error: field "a": bad` {
		t.Errorf("Error() = %q", got)
	}
}
