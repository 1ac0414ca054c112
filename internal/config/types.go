package config

// Config is the root configuration aggregate. Every section is decoded
// from qgate.yaml on top of the compiled defaults in NewDefaultConfig.
type Config struct {
	System    SystemConfig    `yaml:"system"`
	Paths     PathsConfig     `yaml:"paths"`
	Format    FormatConfig    `yaml:"format"`
	Lint      LintConfig      `yaml:"lint"`
	Typecheck TypecheckConfig `yaml:"typecheck"`
	Security  SecurityConfig  `yaml:"security"`
	Test      TestConfig      `yaml:"test"`
	Notebooks NotebooksConfig `yaml:"notebooks"`
	Deps      DepsConfig      `yaml:"deps"`
	Install   InstallConfig   `yaml:"install"`
	Gate      GateConfig      `yaml:"gate"`
	CI        CIConfig        `yaml:"ci"`
	Review    ReviewConfig    `yaml:"review"`
	Clean     CleanConfig     `yaml:"clean"`
}

// SystemConfig controls logging and terminal output.
type SystemConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	NoColor   bool   `yaml:"no_color"`
}

// PathsConfig controls which project files are handed to checkers.
type PathsConfig struct {
	// Exclude lists directory names skipped at any depth.
	Exclude []string `yaml:"exclude"`
}

// ToolConfig describes one external command line tool.
//
// Args may contain placeholders: {files} and other list placeholders expand
// into several arguments when they form a whole argument; scalar placeholders
// such as {line_length} are substituted inside arguments.
type ToolConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Command        string   `yaml:"command"`
	Args           []string `yaml:"args"`
	CheckArgs      []string `yaml:"check_args,omitempty"`
	Extensions     []string `yaml:"extensions,omitempty"`
	Format         string   `yaml:"format,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// FormatConfig configures the auto-fixing formatter and import sorter.
type FormatConfig struct {
	LineLength   int        `yaml:"line_length"`
	Formatter    ToolConfig `yaml:"formatter"`
	ImportSorter ToolConfig `yaml:"import_sorter"`
}

// LintConfig configures the linter and its rule selection.
type LintConfig struct {
	Linter ToolConfig `yaml:"linter"`
	Select []string   `yaml:"select"`
	Ignore []string   `yaml:"ignore"`
}

// TypecheckConfig configures the static type checker.
type TypecheckConfig struct {
	Checker ToolConfig `yaml:"checker"`
	Strict  bool       `yaml:"strict"`
}

// SecurityConfig configures the security scanner and the built-in secret scan.
type SecurityConfig struct {
	Scanner    ToolConfig    `yaml:"scanner"`
	ConfigFile string        `yaml:"config_file"`
	Secrets    SecretsConfig `yaml:"secrets"`
}

// SecretsConfig configures the built-in secret pattern scanner.
type SecretsConfig struct {
	Enabled       bool     `yaml:"enabled"`
	ExtraPatterns []string `yaml:"extra_patterns"`
	AllowPaths    []string `yaml:"allow_paths"`
	MaxFileBytes  int64    `yaml:"max_file_bytes"`
}

// TestConfig configures the test runner and the runtime version matrix.
type TestConfig struct {
	Runner         ToolConfig `yaml:"runner"`
	Paths          []string   `yaml:"paths"`
	PythonVersions []string   `yaml:"python_versions"`
}

// NotebooksConfig configures notebook execution validation.
type NotebooksConfig struct {
	Executor       ToolConfig `yaml:"executor"`
	Paths          []string   `yaml:"paths"`
	Skip           []string   `yaml:"skip"`
	TimeoutSeconds int        `yaml:"timeout_seconds"`
}

// DepsConfig configures the dependency vulnerability scan.
type DepsConfig struct {
	Auditor          ToolConfig `yaml:"auditor"`
	RequirementFiles []string   `yaml:"requirement_files"`
}

// InstallConfig configures the install and install-dev tasks.
type InstallConfig struct {
	Python   string `yaml:"python"`
	Package  string `yaml:"package"`
	DevExtra string `yaml:"dev_extra"`
}

// GateConfig configures the local pre-commit quality gate.
type GateConfig struct {
	// Order lists checker names in execution order.
	Order []string `yaml:"order"`
	// Restage re-adds files modified by fixers to the index instead of
	// failing the commit.
	Restage bool `yaml:"restage"`
}

// CIConfig configures the CI pipeline fan-out and workflow generation.
type CIConfig struct {
	Parallelism       int            `yaml:"parallelism"`
	JobTimeoutSeconds int            `yaml:"job_timeout_seconds"`
	Jobs              []string       `yaml:"jobs"`
	Workflow          WorkflowConfig `yaml:"workflow"`
}

// WorkflowConfig shapes the generated GitHub Actions workflow.
type WorkflowConfig struct {
	Name     string   `yaml:"name"`
	Branches []string `yaml:"branches"`
	RunsOn   string   `yaml:"runs_on"`
}

// ReviewConfig configures the PR annotation bot.
type ReviewConfig struct {
	Repo              string `yaml:"repo"`
	MaxInlineComments int    `yaml:"max_inline_comments"`
	MinSeverity       string `yaml:"min_severity"`
	MaxRetries        int    `yaml:"max_retries"`
	RetryDelayMillis  int    `yaml:"retry_delay_millis"`
}

// CleanConfig lists cache directory names and globs removed by `qgate clean`.
// A leading "/" anchors a pattern to the project root.
type CleanConfig struct {
	Patterns []string `yaml:"patterns"`
}
