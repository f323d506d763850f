package config

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ProjectConfigFile is the config file name searched for in the working
// directory and its parents.
const ProjectConfigFile = "toolbridge.yaml"

// Loader resolves the effective configuration for one invocation:
// defaults, overlaid with the nearest project file, plus git-root
// auto-detection for the repo path the filesystem tools are confined to.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load builds the effective configuration. A toolbridge.yaml found in
// the working directory or a parent is merged over DefaultConfig(); a
// malformed project file is an error, not a silently ignored layer.
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	if path := l.findProjectConfig(); path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("load project config %s: %w", path, err)
		}
		config.Merge(fileCfg)
		l.logger.Debug("loaded project config", slog.String("path", path))
	}

	if config.Repo.Path == "" {
		config.Repo.Path = l.detectRepoRoot()
		l.logger.Debug("auto-detected repo root", slog.String("path", config.Repo.Path))
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// findProjectConfig walks from the working directory toward the
// filesystem root and returns the first toolbridge.yaml found.
func (l *Loader) findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// detectRepoRoot asks git for the repository top level, falling back to
// the working directory outside a checkout.
func (l *Loader) detectRepoRoot() string {
	if out, err := exec.Command("git", "rev-parse", "--show-toplevel").Output(); err == nil {
		return strings.TrimSpace(string(out))
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return cwd
}
