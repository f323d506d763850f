package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Bridge.TimeoutMS != 30000 {
		t.Errorf("expected default timeout_ms 30000, got %d", cfg.Bridge.TimeoutMS)
	}
	if cfg.Bridge.MaxHeapMB != 128 {
		t.Errorf("expected default max_heap_mb 128, got %d", cfg.Bridge.MaxHeapMB)
	}
	if !cfg.NATS.Embedded {
		t.Error("expected embedded NATS by default")
	}
	if !cfg.Providers.WebFetch.Enabled {
		t.Error("expected web_fetch provider enabled by default")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing timeout",
			modify:  func(c *Config) { c.Bridge.TimeoutMS = 0 },
			wantErr: true,
		},
		{
			name:    "missing max heap",
			modify:  func(c *Config) { c.Bridge.MaxHeapMB = 0 },
			wantErr: true,
		},
		{
			name: "dir source enabled without dir",
			modify: func(c *Config) {
				c.Providers.DirSource.Enabled = true
			},
			wantErr: true,
		},
		{
			name: "mcp server missing command",
			modify: func(c *Config) {
				c.Providers.MCP = []MCPServerConfig{{Name: "x"}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
bridge:
  timeout_ms: 5000
  max_heap_mb: 256
repo:
  path: "/test/path"
nats:
  url: "nats://test:4222"
executor:
  max_concurrent: 4
providers:
  web_fetch:
    enabled: true
  mcp:
    - name: filesystem
      command: mcp-filesystem
      prefix: fs
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Bridge.TimeoutMS != 5000 {
		t.Errorf("expected timeout_ms 5000, got %d", cfg.Bridge.TimeoutMS)
	}
	if cfg.Bridge.MaxHeapMB != 256 {
		t.Errorf("expected max_heap_mb 256, got %d", cfg.Bridge.MaxHeapMB)
	}
	if cfg.Repo.Path != "/test/path" {
		t.Errorf("expected repo path /test/path, got %s", cfg.Repo.Path)
	}
	if cfg.NATS.URL != "nats://test:4222" {
		t.Errorf("expected NATS URL nats://test:4222, got %s", cfg.NATS.URL)
	}
	if cfg.Executor.MaxConcurrent != 4 {
		t.Errorf("expected max_concurrent 4, got %d", cfg.Executor.MaxConcurrent)
	}
	if len(cfg.Providers.MCP) != 1 || cfg.Providers.MCP[0].Command != "mcp-filesystem" {
		t.Errorf("expected one mcp server with command mcp-filesystem, got %+v", cfg.Providers.MCP)
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Bridge: BridgeConfig{
			TimeoutMS: 1000,
		},
		Repo: RepoConfig{
			Path: "/override/path",
		},
	}

	base.Merge(override)

	if base.Bridge.TimeoutMS != 1000 {
		t.Errorf("expected timeout_ms 1000, got %d", base.Bridge.TimeoutMS)
	}
	// MaxHeapMB should remain from base since override didn't set it.
	if base.Bridge.MaxHeapMB != 128 {
		t.Errorf("expected max_heap_mb to remain default, got %d", base.Bridge.MaxHeapMB)
	}
	if base.Repo.Path != "/override/path" {
		t.Errorf("expected repo path /override/path, got %s", base.Repo.Path)
	}
}

func TestLoaderFindsProjectConfig(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
bridge:
  timeout_ms: 1234
repo:
  path: "/repo"
`
	if err := os.WriteFile(filepath.Join(tmpDir, ProjectConfigFile), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write project config: %v", err)
	}
	nested := filepath.Join(tmpDir, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}
	t.Chdir(nested)

	cfg, err := NewLoader(nil).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Bridge.TimeoutMS != 1234 {
		t.Errorf("expected project timeout_ms 1234, got %d", cfg.Bridge.TimeoutMS)
	}
	if cfg.Repo.Path != "/repo" {
		t.Errorf("expected repo path from project config, got %s", cfg.Repo.Path)
	}
	// Unset fields keep their defaults.
	if cfg.Bridge.MaxHeapMB != 128 {
		t.Errorf("expected default max_heap_mb, got %d", cfg.Bridge.MaxHeapMB)
	}
}

func TestLoaderRejectsMalformedProjectConfig(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ProjectConfigFile), []byte("{not yaml"), 0o644); err != nil {
		t.Fatalf("failed to write project config: %v", err)
	}
	t.Chdir(tmpDir)

	if _, err := NewLoader(nil).Load(); err == nil {
		t.Fatal("expected an error for a malformed project config")
	}
}
