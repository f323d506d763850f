// Package filetools exposes repo-confined file operations as a
// bridge.SyncCaller, so a script can read, write, and list files under
// a configured root without any direct filesystem access. The list
// tool's pattern argument supports "**"-style doublestar globs.
package filetools

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/toolbridge/bridge"
)

// Provider implements bridge.SyncCaller and bridge.MetadataProvider for
// the file.read / file.write / file.list tool set, confined to its repo
// root.
type Provider struct {
	repoRoot string
}

// New returns a Provider confined to repoRoot; all tool calls resolve
// paths relative to (and validated against) this root.
func New(repoRoot string) *Provider {
	return &Provider{repoRoot: repoRoot}
}

// ListTools returns the three file tool descriptors, reported under
// their unprefixed leaf names; hosts register them under the "file"
// prefix.
func (p *Provider) ListTools() ([]bridge.ToolDescriptor, error) {
	return []bridge.ToolDescriptor{
		{
			Name:        "read",
			Description: "Read the contents of a file",
			Tags:        []string{"filesystem"},
			Inputs: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path to the file to read (relative to repo root)",
					},
				},
				"required": []any{"path"},
			},
			Outputs: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"content": map[string]any{"type": "string"},
				},
			},
		},
		{
			Name:        "write",
			Description: "Write content to a file, creating parent directories if needed",
			Tags:        []string{"filesystem"},
			Inputs: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":    map[string]any{"type": "string", "description": "Path to the file to write (relative to repo root)"},
					"content": map[string]any{"type": "string", "description": "Content to write to the file"},
				},
				"required": []any{"path", "content"},
			},
			Outputs: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"bytes_written": map[string]any{"type": "integer"},
				},
			},
		},
		{
			Name:        "list",
			Description: "List files in a directory, optionally filtered by a doublestar glob pattern",
			Tags:        []string{"filesystem"},
			Inputs: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":    map[string]any{"type": "string", "description": "Path to the directory to list (relative to repo root)"},
					"pattern": map[string]any{"type": "string", "description": "Optional doublestar glob pattern to filter entries (e.g. '**/*.go')"},
				},
				"required": []any{"path"},
			},
			Outputs: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"entries": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
			},
		},
	}, nil
}

// Call dispatches name (the raw_name reported by ListTools, i.e. the
// unprefixed "read"/"write"/"list"; the host applies the "file" prefix
// at registration) to the matching handler.
func (p *Provider) Call(name string, args map[string]any) (any, error) {
	switch name {
	case "read":
		return p.fileRead(args)
	case "write":
		return p.fileWrite(args)
	case "list":
		return p.fileList(args)
	default:
		return nil, bridge.NewCallError(fmt.Sprintf("unknown tool: %s", name))
	}
}

func (p *Provider) fileRead(args map[string]any) (map[string]any, error) {
	path, ok := args["path"].(string)
	if !ok {
		return nil, bridge.NewCallError("path argument is required")
	}
	full, err := p.validatePath(path)
	if err != nil {
		return nil, bridge.NewCallError(err.Error())
	}
	content, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, bridge.NewCallError(fmt.Sprintf("file not found: %s", path))
		}
		return nil, bridge.NewCallError(fmt.Sprintf("failed to read file: %s", err))
	}
	return map[string]any{"content": string(content)}, nil
}

func (p *Provider) fileWrite(args map[string]any) (map[string]any, error) {
	path, ok := args["path"].(string)
	if !ok {
		return nil, bridge.NewCallError("path argument is required")
	}
	content, ok := args["content"].(string)
	if !ok {
		return nil, bridge.NewCallError("content argument is required")
	}
	full, err := p.validatePath(path)
	if err != nil {
		return nil, bridge.NewCallError(err.Error())
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, bridge.NewCallError(fmt.Sprintf("failed to create directory: %s", err))
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return nil, bridge.NewCallError(fmt.Sprintf("failed to write file: %s", err))
	}
	return map[string]any{"bytes_written": float64(len(content))}, nil
}

func (p *Provider) fileList(args map[string]any) (map[string]any, error) {
	path, ok := args["path"].(string)
	if !ok {
		return nil, bridge.NewCallError("path argument is required")
	}
	pattern, _ := args["pattern"].(string)

	full, err := p.validatePath(path)
	if err != nil {
		return nil, bridge.NewCallError(err.Error())
	}
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, bridge.NewCallError(fmt.Sprintf("directory not found: %s", path))
		}
		return nil, bridge.NewCallError(fmt.Sprintf("failed to stat path: %s", err))
	}
	if !info.IsDir() {
		return nil, bridge.NewCallError(fmt.Sprintf("path is not a directory: %s", path))
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, bridge.NewCallError(fmt.Sprintf("failed to read directory: %s", err))
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if pattern != "" {
			matched, err := doublestar.Match(pattern, name)
			if err != nil {
				return nil, bridge.NewCallError(fmt.Sprintf("invalid pattern: %s", err))
			}
			if !matched {
				continue
			}
		}
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	// json.Marshal round trip keeps the shape identical to what the
	// engine's own JSON.parse would produce for a []string.
	raw, _ := json.Marshal(names)
	var asAny []any
	_ = json.Unmarshal(raw, &asAny)

	return map[string]any{"entries": asAny}, nil
}

// validatePath resolves path against repoRoot and rejects any path
// that would escape it.
func (p *Provider) validatePath(path string) (string, error) {
	var full string
	if filepath.IsAbs(path) {
		full = filepath.Clean(path)
	} else {
		full = filepath.Clean(filepath.Join(p.repoRoot, path))
	}

	absPath, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	absRoot, err := filepath.Abs(p.repoRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve repo root: %w", err)
	}
	if !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) && absPath != absRoot {
		return "", fmt.Errorf("access denied: path is outside repository root")
	}
	return absPath, nil
}
