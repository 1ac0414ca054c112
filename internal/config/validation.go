package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/rhai-examples/qgate/internal/finding"
)

// Line length bounds accepted by the formatter section.
const (
	MinLineLength = 40
	MaxLineLength = 400
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
	validSeverities = []string{"error", "warning", "info"}
)

// Validate checks the configuration for correctness and returns a
// *ValidationErrors describing every problem found.
func Validate(cfg *Config) error {
	var errs []ValidationError

	errs = append(errs, validateSystem(&cfg.System)...)
	errs = append(errs, validateFormat(&cfg.Format)...)
	errs = append(errs, validateTools(cfg)...)
	errs = append(errs, validateSecrets(&cfg.Security.Secrets)...)
	errs = append(errs, validateTest(&cfg.Test)...)
	errs = append(errs, validateGate(&cfg.Gate)...)
	errs = append(errs, validateCI(&cfg.CI)...)
	errs = append(errs, validateReview(&cfg.Review)...)

	if len(errs) > 0 {
		return &ValidationErrors{Errors: errs}
	}
	return nil
}

func validateSystem(s *SystemConfig) []ValidationError {
	var errs []ValidationError
	if !slices.Contains(validLogLevels, strings.ToLower(s.LogLevel)) {
		errs = append(errs, ValidationError{
			Field:   "system.log_level",
			Message: "must be one of: " + strings.Join(validLogLevels, ", "),
			Value:   s.LogLevel,
			Wrapped: ErrInvalidConfig,
		})
	}
	if !slices.Contains(validLogFormats, strings.ToLower(s.LogFormat)) {
		errs = append(errs, ValidationError{
			Field:   "system.log_format",
			Message: "must be one of: " + strings.Join(validLogFormats, ", "),
			Value:   s.LogFormat,
			Wrapped: ErrInvalidConfig,
		})
	}
	return errs
}

func validateFormat(f *FormatConfig) []ValidationError {
	if f.LineLength < MinLineLength || f.LineLength > MaxLineLength {
		return []ValidationError{{
			Field:   "format.line_length",
			Message: fmt.Sprintf("must be between %d and %d", MinLineLength, MaxLineLength),
			Value:   f.LineLength,
			Wrapped: ErrInvalidConfig,
		}}
	}
	return nil
}

// validateTools checks every enabled tool has a command and a positive
// timeout, and that every tool names an output format the parsers know.
func validateTools(cfg *Config) []ValidationError {
	tools := []struct {
		field string
		tool  *ToolConfig
	}{
		{"format.formatter", &cfg.Format.Formatter},
		{"format.import_sorter", &cfg.Format.ImportSorter},
		{"lint.linter", &cfg.Lint.Linter},
		{"typecheck.checker", &cfg.Typecheck.Checker},
		{"security.scanner", &cfg.Security.Scanner},
		{"test.runner", &cfg.Test.Runner},
		{"notebooks.executor", &cfg.Notebooks.Executor},
		{"deps.auditor", &cfg.Deps.Auditor},
	}

	var errs []ValidationError
	formats := finding.Formats()
	for _, t := range tools {
		if t.tool.Format != "" && !slices.Contains(formats, t.tool.Format) {
			errs = append(errs, ValidationError{
				Field:   t.field + ".format",
				Message: "must be one of: " + strings.Join(formats, ", "),
				Value:   t.tool.Format,
				Wrapped: ErrInvalidConfig,
			})
		}
		if !t.tool.Enabled {
			continue
		}
		if strings.TrimSpace(t.tool.Command) == "" {
			errs = append(errs, ValidationError{
				Field:   t.field + ".command",
				Message: "required when the tool is enabled",
				Wrapped: ErrInvalidConfig,
			})
		}
		if t.tool.TimeoutSeconds <= 0 {
			errs = append(errs, ValidationError{
				Field:   t.field + ".timeout_seconds",
				Message: "must be positive",
				Value:   t.tool.TimeoutSeconds,
				Wrapped: ErrInvalidConfig,
			})
		}
	}
	return errs
}

func validateSecrets(s *SecretsConfig) []ValidationError {
	var errs []ValidationError
	for i, p := range s.ExtraPatterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("security.secrets.extra_patterns[%d]", i),
				Message: "invalid regular expression: " + err.Error(),
				Value:   p,
				Wrapped: ErrInvalidConfig,
			})
		}
	}
	if s.MaxFileBytes <= 0 {
		errs = append(errs, ValidationError{
			Field:   "security.secrets.max_file_bytes",
			Message: "must be positive",
			Value:   s.MaxFileBytes,
			Wrapped: ErrInvalidConfig,
		})
	}
	return errs
}

func validateTest(t *TestConfig) []ValidationError {
	if t.Runner.Enabled && len(t.PythonVersions) == 0 {
		return []ValidationError{{
			Field:   "test.python_versions",
			Message: "at least one runtime version is required",
			Wrapped: ErrInvalidConfig,
		}}
	}
	return nil
}

func validateGate(g *GateConfig) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(g.Order))
	for _, name := range g.Order {
		if !slices.Contains(KnownGateCheckers, name) {
			errs = append(errs, ValidationError{
				Field:   "gate.order",
				Message: "must only name: " + strings.Join(KnownGateCheckers, ", "),
				Value:   name,
				Wrapped: ErrUnknownChecker,
			})
			continue
		}
		if seen[name] {
			errs = append(errs, ValidationError{
				Field:   "gate.order",
				Message: "duplicate checker",
				Value:   name,
				Wrapped: ErrInvalidConfig,
			})
		}
		seen[name] = true
	}
	return errs
}

func validateCI(c *CIConfig) []ValidationError {
	var errs []ValidationError
	if c.Parallelism < 1 {
		errs = append(errs, ValidationError{
			Field:   "ci.parallelism",
			Message: "must be at least 1",
			Value:   c.Parallelism,
			Wrapped: ErrInvalidConfig,
		})
	}
	if c.JobTimeoutSeconds <= 0 {
		errs = append(errs, ValidationError{
			Field:   "ci.job_timeout_seconds",
			Message: "must be positive",
			Value:   c.JobTimeoutSeconds,
			Wrapped: ErrInvalidConfig,
		})
	}
	for _, job := range c.Jobs {
		if !slices.Contains(KnownJobs, job) {
			errs = append(errs, ValidationError{
				Field:   "ci.jobs",
				Message: "must only name: " + strings.Join(KnownJobs, ", "),
				Value:   job,
				Wrapped: ErrInvalidConfig,
			})
		}
	}
	return errs
}

func validateReview(r *ReviewConfig) []ValidationError {
	var errs []ValidationError
	if r.MaxInlineComments < 0 {
		errs = append(errs, ValidationError{
			Field:   "review.max_inline_comments",
			Message: "must be non-negative",
			Value:   r.MaxInlineComments,
			Wrapped: ErrInvalidConfig,
		})
	}
	if !slices.Contains(validSeverities, r.MinSeverity) {
		errs = append(errs, ValidationError{
			Field:   "review.min_severity",
			Message: "must be one of: " + strings.Join(validSeverities, ", "),
			Value:   r.MinSeverity,
			Wrapped: ErrInvalidConfig,
		})
	}
	if r.MaxRetries < 0 {
		errs = append(errs, ValidationError{
			Field:   "review.max_retries",
			Message: "must be non-negative",
			Value:   r.MaxRetries,
			Wrapped: ErrInvalidConfig,
		})
	}
	if r.Repo != "" && strings.Count(r.Repo, "/") != 1 {
		errs = append(errs, ValidationError{
			Field:   "review.repo",
			Message: "must be in owner/name form",
			Value:   r.Repo,
			Wrapped: ErrInvalidConfig,
		})
	}
	return errs
}
