package defs

// Configuration file names, searched in this order at the project root.
const (
	// ConfigYAML is the primary qgate configuration file.
	ConfigYAML = "qgate.yaml"

	// ConfigDotYAML is the hidden alternative configuration file.
	ConfigDotYAML = ".qgate.yaml"
)

// Environment variables read by qgate.
const (
	EnvConfig         = "QGATE_CONFIG"
	EnvLogLevel       = "QGATE_LOG_LEVEL"
	EnvLogFormat      = "QGATE_LOG_FORMAT"
	EnvNoColor        = "QGATE_NO_COLOR"
	EnvLineLength     = "QGATE_LINE_LENGTH"
	EnvPythonVersions = "QGATE_PYTHON_VERSIONS"
	EnvGitHubToken    = "GITHUB_TOKEN"
)

// Git integration paths.
const (
	// GitHooksDir is the hooks directory relative to the git dir.
	GitHooksDir = "hooks"

	// PreCommitHook is the hook file name installed by `qgate hook install`.
	PreCommitHook = "pre-commit"
)

// WorkflowPath is where `qgate ci workflow --write` places the generated workflow.
const WorkflowPath = ".github/workflows/quality.yml"

// SummaryMarker identifies the aggregate PR summary comment so it can be
// updated in place on later pushes.
const SummaryMarker = "<!-- qgate:summary -->"

// InlineMarker is appended to every inline review comment posted by qgate.
const InlineMarker = "<!-- qgate:inline -->"
