// Package config provides configuration loading and management for
// toolbridge: a YAML file merged over defaults, either named explicitly
// or found as the nearest project-level toolbridge.yaml.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete toolbridge configuration.
type Config struct {
	Bridge    BridgeConfig    `yaml:"bridge"`
	Repo      RepoConfig      `yaml:"repo"`
	NATS      NATSConfig      `yaml:"nats"`
	Executor  ExecutorConfig  `yaml:"executor"`
	Tools     ToolsConfig     `yaml:"tools"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ToolsConfig restricts which tools may be registered with the bridge.
type ToolsConfig struct {
	// Allowlist, when non-empty, limits registration to the named tools,
	// matched against the prefixed descriptor name (e.g. "file.read").
	Allowlist []string `yaml:"allowlist"`
}

// BridgeConfig configures the sandboxed execution bridge itself.
type BridgeConfig struct {
	// TimeoutMS is the wall-clock execution ceiling.
	TimeoutMS int `yaml:"timeout_ms"`
	// MaxHeapMB is the isolate heap upper bound.
	MaxHeapMB int `yaml:"max_heap_mb"`
}

// RepoConfig configures the repository settings used by filesystem-
// confined providers (filetools).
type RepoConfig struct {
	// Path is the repository root path (auto-detected from git if empty).
	Path string `yaml:"path"`
}

// NATSConfig configures the NATS connection used by the host service and
// execution-record store.
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server).
	URL string `yaml:"url"`
	// Embedded records whether the embedded NATS server is in use; it is
	// cleared whenever a URL is set. The service runs an embedded server
	// whenever URL is empty and does not read this field.
	Embedded bool `yaml:"embedded"`
}

// ExecutorConfig configures the bounded-concurrency async tool dispatch
// pool.
type ExecutorConfig struct {
	// MaxConcurrent bounds the number of async tool calls running at
	// once (<=0 means unbounded).
	MaxConcurrent int64 `yaml:"max_concurrent"`
}

// ProvidersConfig toggles and configures the built-in tool providers.
type ProvidersConfig struct {
	WebFetch    WebFetchConfig    `yaml:"web_fetch"`
	CodeOutline CodeOutlineConfig `yaml:"code_outline"`
	DirSource   DirSourceConfig   `yaml:"dir_source"`
	MCP         []MCPServerConfig `yaml:"mcp"`
}

// WebFetchConfig enables the web.fetch_url / web.readable_text tools.
type WebFetchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// CodeOutlineConfig enables the code.outline tool.
type CodeOutlineConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DirSourceConfig enables the directory-of-descriptor-files provider.
type DirSourceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Prefix  string `yaml:"prefix"`
}

// MCPServerConfig describes one MCP server to launch and register tools
// from, under Prefix.
type MCPServerConfig struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
	Prefix  string            `yaml:"prefix"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			TimeoutMS: 30000,
			MaxHeapMB: 128,
		},
		Repo: RepoConfig{
			Path: "", // Auto-detect
		},
		NATS: NATSConfig{
			URL:      "",
			Embedded: true,
		},
		Executor: ExecutorConfig{
			MaxConcurrent: 16,
		},
		Providers: ProvidersConfig{
			WebFetch:    WebFetchConfig{Enabled: true},
			CodeOutline: CodeOutlineConfig{Enabled: true},
		},
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Bridge.TimeoutMS <= 0 {
		return fmt.Errorf("bridge.timeout_ms must be positive")
	}
	if c.Bridge.MaxHeapMB <= 0 {
		return fmt.Errorf("bridge.max_heap_mb must be positive")
	}
	if c.Providers.DirSource.Enabled && c.Providers.DirSource.Dir == "" {
		return fmt.Errorf("providers.dir_source.dir is required when dir_source is enabled")
	}
	for i, m := range c.Providers.MCP {
		if m.Command == "" {
			return fmt.Errorf("providers.mcp[%d].command is required", i)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, starting from
// DefaultConfig() so unset fields keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Merge merges other into c; non-zero fields in other take precedence.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Bridge.TimeoutMS != 0 {
		c.Bridge.TimeoutMS = other.Bridge.TimeoutMS
	}
	if other.Bridge.MaxHeapMB != 0 {
		c.Bridge.MaxHeapMB = other.Bridge.MaxHeapMB
	}

	if other.Repo.Path != "" {
		c.Repo.Path = other.Repo.Path
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}

	if other.Executor.MaxConcurrent != 0 {
		c.Executor.MaxConcurrent = other.Executor.MaxConcurrent
	}

	if len(other.Tools.Allowlist) > 0 {
		c.Tools.Allowlist = other.Tools.Allowlist
	}

	if other.Providers.WebFetch.Enabled {
		c.Providers.WebFetch.Enabled = true
	}
	if other.Providers.CodeOutline.Enabled {
		c.Providers.CodeOutline.Enabled = true
	}
	if other.Providers.DirSource.Dir != "" {
		c.Providers.DirSource = other.Providers.DirSource
	}
	if len(other.Providers.MCP) > 0 {
		c.Providers.MCP = other.Providers.MCP
	}
}
