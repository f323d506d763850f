package filetools_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/toolbridge/providers/filetools"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	root := t.TempDir()
	p := filetools.New(root)

	result, err := p.Call("write", map[string]any{
		"path":    "notes/hello.txt",
		"content": "hello world",
	})
	require.NoError(t, err)
	out, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(11), out["bytes_written"])

	result, err = p.Call("read", map[string]any{"path": "notes/hello.txt"})
	require.NoError(t, err)
	out, ok = result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello world", out["content"])
}

func TestListFiltersWithPattern(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))

	p := filetools.New(root)
	result, err := p.Call("list", map[string]any{"path": ".", "pattern": "*.go"})
	require.NoError(t, err)
	out, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"a.go"}, out["entries"])

	result, err = p.Call("list", map[string]any{"path": "."})
	require.NoError(t, err)
	out = result.(map[string]any)
	assert.Equal(t, []any{"a.go", "b.txt", "sub/"}, out["entries"])
}

func TestPathEscapeIsDenied(t *testing.T) {
	root := t.TempDir()
	p := filetools.New(root)

	_, err := p.Call("read", map[string]any{"path": "../outside.txt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside repository root")

	_, err = p.Call("write", map[string]any{"path": "../../etc/evil", "content": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside repository root")
}

func TestReadMissingFile(t *testing.T) {
	p := filetools.New(t.TempDir())
	_, err := p.Call("read", map[string]any{"path": "nope.txt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestUnknownToolName(t *testing.T) {
	p := filetools.New(t.TempDir())
	_, err := p.Call("delete", map[string]any{"path": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
}

func TestListToolsReportsLeafNames(t *testing.T) {
	p := filetools.New(t.TempDir())
	tools, err := p.ListTools()
	require.NoError(t, err)
	require.Len(t, tools, 3)
	names := []string{tools[0].Name, tools[1].Name, tools[2].Name}
	assert.ElementsMatch(t, []string{"read", "write", "list"}, names)
}
