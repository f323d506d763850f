package dirsource_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/toolbridge/providers/dirsource"
)

func writeTool(t *testing.T, dir, name, descriptor, script string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".tool.json"), []byte(descriptor), 0o644))
	if script != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".js"), []byte(script), 0o644))
	}
}

func TestInitialScanAndCall(t *testing.T) {
	dir := t.TempDir()
	writeTool(t, dir, "sum", `{
  "name": "sum",
  "description": "Add two numbers",
  "is_async": true,
  "inputs": {"type": "object", "properties": {"a": {"type": "number"}, "b": {"type": "number"}}},
  "outputs": {"type": "object"},
  "script": "sum.js"
}`, `function main(args) { return { total: args.a + args.b }; }`)

	p, err := dirsource.New(dir, nil)
	require.NoError(t, err)

	tools, err := p.ListTools()
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "sum", tools[0].Name)
	assert.True(t, tools[0].IsAsync)

	result, err := p.Call(context.Background(), "sum", map[string]any{"a": 2, "b": 3})
	require.NoError(t, err)
	out, ok := result.(map[string]any)
	require.True(t, ok, "expected object result, got %T", result)
	assert.EqualValues(t, 5, out["total"])
}

func TestCallReturnsNonObjectValuesVerbatim(t *testing.T) {
	dir := t.TempDir()
	writeTool(t, dir, "greet", `{
  "name": "greet",
  "inputs": {"type": "object"},
  "outputs": {"type": "string"},
  "script": "greet.js"
}`, `function main(args) { return "hello " + args.name; }`)

	p, err := dirsource.New(dir, nil)
	require.NoError(t, err)

	result, err := p.Call(context.Background(), "greet", map[string]any{"name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", result)
}

func TestMalformedDescriptorIsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeTool(t, dir, "good", `{"name": "good", "script": "good.js"}`,
		`function main() { return null; }`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.tool.json"), []byte("{not json"), 0o644))

	p, err := dirsource.New(dir, nil)
	require.NoError(t, err)

	tools, err := p.ListTools()
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "good", tools[0].Name)
}

func TestCallUnknownTool(t *testing.T) {
	p, err := dirsource.New(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = p.Call(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
}

func TestScriptWithoutMainIsAnError(t *testing.T) {
	dir := t.TempDir()
	writeTool(t, dir, "broken", `{"name": "broken", "script": "broken.js"}`,
		`var notMain = 1;`)

	p, err := dirsource.New(dir, nil)
	require.NoError(t, err)

	_, err = p.Call(context.Background(), "broken", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "main")
}
