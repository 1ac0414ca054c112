package config

// Checker names shared by the gate order, tasks and CI jobs.
const (
	CheckerSecrets      = "secrets"
	CheckerImportSorter = "isort"
	CheckerFormatter    = "black"
	CheckerLinter       = "ruff"
	CheckerTypecheck    = "mypy"
	CheckerSecurity     = "bandit"
	CheckerTests        = "pytest"
	CheckerNotebooks    = "notebooks"
	CheckerDeps         = "pip-audit"
)

// CI job names.
const (
	JobQuality   = "quality"
	JobTest      = "test"
	JobNotebooks = "notebooks"
	JobDeps      = "deps"
)

// Default value constants to avoid magic numbers and strings.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultLineLength = 100

	DefaultToolTimeoutSeconds     = 300
	DefaultNotebookTimeoutSeconds = 600
	DefaultJobTimeoutSeconds      = 1800
	DefaultParallelism            = 4

	DefaultMaxInlineComments = 50
	DefaultMinSeverity       = "warning"
	DefaultReviewRetries     = 3
	DefaultRetryDelayMillis  = 500

	DefaultSecretMaxFileBytes = 1 << 20

	DefaultPython   = "python3"
	DefaultPackage  = "."
	DefaultDevExtra = "dev"

	DefaultWorkflowName   = "quality"
	DefaultWorkflowRunsOn = "ubuntu-latest"
)

// KnownGateCheckers lists the checker names accepted in gate.order.
var KnownGateCheckers = []string{
	CheckerSecrets,
	CheckerImportSorter,
	CheckerFormatter,
	CheckerLinter,
	CheckerTypecheck,
	CheckerSecurity,
}

// KnownJobs lists the CI job names accepted in ci.jobs.
var KnownJobs = []string{JobQuality, JobTest, JobNotebooks, JobDeps}

// NewDefaultConfig returns a Config with all fields set to compiled defaults.
func NewDefaultConfig() *Config {
	return &Config{
		System:    NewDefaultSystemConfig(),
		Paths:     NewDefaultPathsConfig(),
		Format:    NewDefaultFormatConfig(),
		Lint:      NewDefaultLintConfig(),
		Typecheck: NewDefaultTypecheckConfig(),
		Security:  NewDefaultSecurityConfig(),
		Test:      NewDefaultTestConfig(),
		Notebooks: NewDefaultNotebooksConfig(),
		Deps:      NewDefaultDepsConfig(),
		Install:   NewDefaultInstallConfig(),
		Gate:      NewDefaultGateConfig(),
		CI:        NewDefaultCIConfig(),
		Review:    NewDefaultReviewConfig(),
		Clean:     NewDefaultCleanConfig(),
	}
}

// NewDefaultSystemConfig returns a SystemConfig with default values.
func NewDefaultSystemConfig() SystemConfig {
	return SystemConfig{
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}
}

// NewDefaultPathsConfig returns a PathsConfig with default values.
func NewDefaultPathsConfig() PathsConfig {
	return PathsConfig{
		Exclude: []string{
			".git", ".venv", "venv", "node_modules",
			"__pycache__", ".mypy_cache", ".pytest_cache", ".ruff_cache",
			".ipynb_checkpoints", "build", "dist",
		},
	}
}

var pythonExtensions = []string{".py", ".pyi"}

// NewDefaultFormatConfig returns a FormatConfig using black and isort.
func NewDefaultFormatConfig() FormatConfig {
	return FormatConfig{
		LineLength: DefaultLineLength,
		Formatter: ToolConfig{
			Enabled:        true,
			Command:        "black",
			Args:           []string{"--line-length", "{line_length}", "{files}"},
			CheckArgs:      []string{"--check", "--line-length", "{line_length}", "{files}"},
			Extensions:     append([]string{".ipynb"}, pythonExtensions...),
			Format:         "black",
			TimeoutSeconds: DefaultToolTimeoutSeconds,
		},
		ImportSorter: ToolConfig{
			Enabled:        true,
			Command:        "isort",
			Args:           []string{"--profile", "black", "--line-length", "{line_length}", "{files}"},
			CheckArgs:      []string{"--check-only", "--profile", "black", "--line-length", "{line_length}", "{files}"},
			Extensions:     pythonExtensions,
			Format:         "isort",
			TimeoutSeconds: DefaultToolTimeoutSeconds,
		},
	}
}

// NewDefaultLintConfig returns a LintConfig using ruff.
func NewDefaultLintConfig() LintConfig {
	return LintConfig{
		Linter: ToolConfig{
			Enabled:        true,
			Command:        "ruff",
			Args:           []string{"check", "--output-format=json", "--line-length", "{line_length}", "{files}"},
			Extensions:     pythonExtensions,
			Format:         "ruff-json",
			TimeoutSeconds: DefaultToolTimeoutSeconds,
		},
		Select: []string{"E", "F", "W", "I", "B", "UP"},
		Ignore: []string{"E501"},
	}
}

// NewDefaultTypecheckConfig returns a TypecheckConfig using mypy.
func NewDefaultTypecheckConfig() TypecheckConfig {
	return TypecheckConfig{
		Checker: ToolConfig{
			Enabled:        true,
			Command:        "mypy",
			Args:           []string{"--show-column-numbers", "--no-error-summary", "--no-color-output", "--ignore-missing-imports", "{files}"},
			Extensions:     pythonExtensions,
			Format:         "mypy",
			TimeoutSeconds: DefaultToolTimeoutSeconds,
		},
		Strict: false,
	}
}

// NewDefaultSecurityConfig returns a SecurityConfig using bandit and the built-in secret scan.
func NewDefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		Scanner: ToolConfig{
			Enabled:        true,
			Command:        "bandit",
			Args:           []string{"-q", "-f", "json", "{files}"},
			Extensions:     pythonExtensions,
			Format:         "bandit-json",
			TimeoutSeconds: DefaultToolTimeoutSeconds,
		},
		Secrets: SecretsConfig{
			Enabled:      true,
			MaxFileBytes: DefaultSecretMaxFileBytes,
		},
	}
}

// NewDefaultTestConfig returns a TestConfig using pytest across supported runtimes.
func NewDefaultTestConfig() TestConfig {
	return TestConfig{
		Runner: ToolConfig{
			Enabled:        true,
			Command:        "python{python}",
			Args:           []string{"-m", "pytest", "-q", "{paths}"},
			Format:         "text",
			TimeoutSeconds: DefaultJobTimeoutSeconds,
		},
		Paths:          []string{"tests"},
		PythonVersions: []string{"3.11", "3.12"},
	}
}

// NewDefaultNotebooksConfig returns a NotebooksConfig executing notebooks with nbconvert.
func NewDefaultNotebooksConfig() NotebooksConfig {
	return NotebooksConfig{
		Executor: ToolConfig{
			Enabled: true,
			Command: "jupyter",
			Args: []string{
				"nbconvert", "--to", "notebook", "--execute",
				"--ExecutePreprocessor.timeout={timeout}",
				"--output-dir", "{output_dir}", "{file}",
			},
			Extensions:     []string{".ipynb"},
			Format:         "text",
			TimeoutSeconds: DefaultNotebookTimeoutSeconds,
		},
		Paths:          []string{"examples"},
		TimeoutSeconds: DefaultNotebookTimeoutSeconds,
	}
}

// NewDefaultDepsConfig returns a DepsConfig using pip-audit.
func NewDefaultDepsConfig() DepsConfig {
	return DepsConfig{
		Auditor: ToolConfig{
			Enabled:        true,
			Command:        "pip-audit",
			Args:           []string{"--format", "json", "{requirements}"},
			Format:         "pip-audit-json",
			TimeoutSeconds: DefaultToolTimeoutSeconds,
		},
		RequirementFiles: []string{"requirements.txt"},
	}
}

// NewDefaultInstallConfig returns an InstallConfig with default values.
func NewDefaultInstallConfig() InstallConfig {
	return InstallConfig{
		Python:   DefaultPython,
		Package:  DefaultPackage,
		DevExtra: DefaultDevExtra,
	}
}

// NewDefaultGateConfig returns a GateConfig with the canonical checker order.
func NewDefaultGateConfig() GateConfig {
	order := make([]string, len(KnownGateCheckers))
	copy(order, KnownGateCheckers)
	return GateConfig{Order: order, Restage: false}
}

// NewDefaultCIConfig returns a CIConfig running all known jobs.
func NewDefaultCIConfig() CIConfig {
	jobs := make([]string, len(KnownJobs))
	copy(jobs, KnownJobs)
	return CIConfig{
		Parallelism:       DefaultParallelism,
		JobTimeoutSeconds: DefaultJobTimeoutSeconds,
		Jobs:              jobs,
		Workflow: WorkflowConfig{
			Name:     DefaultWorkflowName,
			Branches: []string{"main"},
			RunsOn:   DefaultWorkflowRunsOn,
		},
	}
}

// NewDefaultReviewConfig returns a ReviewConfig with default values.
func NewDefaultReviewConfig() ReviewConfig {
	return ReviewConfig{
		MaxInlineComments: DefaultMaxInlineComments,
		MinSeverity:       DefaultMinSeverity,
		MaxRetries:        DefaultReviewRetries,
		RetryDelayMillis:  DefaultRetryDelayMillis,
	}
}

// NewDefaultCleanConfig returns a CleanConfig covering the usual Python
// caches. Build output is only removed at the project root.
func NewDefaultCleanConfig() CleanConfig {
	return CleanConfig{
		Patterns: []string{
			".mypy_cache", ".pytest_cache", ".ruff_cache", "__pycache__",
			".ipynb_checkpoints", "*.egg-info",
			"/build", "/dist", "/.coverage", "/htmlcov",
		},
	}
}
