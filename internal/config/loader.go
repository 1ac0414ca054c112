package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rhai-examples/qgate/internal/defs"
)

// Loader reads the qgate configuration file.
// It is thread-safe via sync.RWMutex.
type Loader struct {
	mu   sync.RWMutex
	path string
}

// NewLoader creates a new Loader instance.
func NewLoader() *Loader {
	return &Loader{}
}

// Load resolves the configuration file for projectRoot and returns the merged,
// validated Config. explicitPath takes precedence over QGATE_CONFIG, which
// takes precedence over qgate.yaml and .qgate.yaml in projectRoot.
// A missing implicit file yields the compiled defaults; a missing explicit
// file is ErrConfigNotFound.
func (l *Loader) Load(projectRoot, explicitPath string) (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg := NewDefaultConfig()

	path, explicit := resolveConfigPath(projectRoot, explicitPath)
	l.path = ""

	if path != "" {
		loaded, err := loadYAMLFile(path, cfg)
		if err != nil {
			return nil, err
		}
		if !loaded && explicit {
			return nil, fmt.Errorf("load %s: %w", path, ErrConfigNotFound)
		}
		if loaded {
			l.path = path
		}
	}

	if l.path == "" {
		slog.Debug("no configuration file found, using defaults", "root", projectRoot)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Path returns the configuration file used by the last Load, or "" when
// defaults were used.
func (l *Loader) Path() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.path
}

// resolveConfigPath picks the configuration file path and reports whether
// it was requested explicitly.
func resolveConfigPath(projectRoot, explicitPath string) (string, bool) {
	if explicitPath != "" {
		return filepath.Clean(explicitPath), true
	}
	if envPath := os.Getenv(defs.EnvConfig); envPath != "" {
		return filepath.Clean(envPath), true
	}
	root := filepath.Clean(projectRoot)
	for _, name := range []string{defs.ConfigYAML, defs.ConfigDotYAML} {
		candidate := filepath.Join(root, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, false
		}
	}
	return "", false
}

// loadYAMLFile reads a YAML file and unmarshals it onto target.
// Returns (true, nil) if the file was found and parsed,
// (false, nil) if the file does not exist, or (false, error) on failure.
func loadYAMLFile(path string, target any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("parse %s: %w: %v", path, ErrInvalidYAML, err)
	}

	return true, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment values have higher priority than the configuration file.
func applyEnvOverrides(cfg *Config) {
	if level := os.Getenv(defs.EnvLogLevel); level != "" {
		cfg.System.LogLevel = level
	}
	if format := os.Getenv(defs.EnvLogFormat); format != "" {
		cfg.System.LogFormat = format
	}
	if noColor := os.Getenv(defs.EnvNoColor); noColor == "true" || noColor == "1" {
		cfg.System.NoColor = true
	}
	if raw := os.Getenv(defs.EnvLineLength); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			cfg.Format.LineLength = n
		} else {
			slog.Warn("ignoring invalid line length override", "value", raw)
		}
	}
	if raw := os.Getenv(defs.EnvPythonVersions); raw != "" {
		var versions []string
		for v := range strings.SplitSeq(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				versions = append(versions, v)
			}
		}
		if len(versions) > 0 {
			cfg.Test.PythonVersions = versions
		}
	}
}
