package codeoutline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/toolbridge/providers/codeoutline"
)

func symbolNames(t *testing.T, result any) []string {
	t.Helper()
	out, ok := result.(map[string]any)
	require.True(t, ok, "expected object result, got %T", result)
	symbols, ok := out["symbols"].([]any)
	require.True(t, ok, "expected symbols array, got %T", out["symbols"])
	names := make([]string, 0, len(symbols))
	for _, s := range symbols {
		m := s.(map[string]any)
		names = append(names, m["name"].(string))
	}
	return names
}

func TestOutlineGoSnippet(t *testing.T) {
	p := codeoutline.New()
	source := `package demo

const version = "1.0"

type Widget struct{}

func NewWidget() *Widget { return &Widget{} }

func (w *Widget) Spin() {}
`
	result, err := p.Call("outline", map[string]any{"language": "go", "source": source})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"version", "Widget", "NewWidget", "Spin"}, symbolNames(t, result))
}

func TestOutlinePythonSnippet(t *testing.T) {
	p := codeoutline.New()
	source := "class Widget:\n    pass\n\ndef spin(widget):\n    return widget\n"
	result, err := p.Call("outline", map[string]any{"language": "python", "source": source})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Widget", "spin"}, symbolNames(t, result))
}

func TestOutlineUnsupportedLanguage(t *testing.T) {
	p := codeoutline.New()
	_, err := p.Call("outline", map[string]any{"language": "cobol", "source": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

func TestOutlineInvalidGoSource(t *testing.T) {
	p := codeoutline.New()
	_, err := p.Call("outline", map[string]any{"language": "go", "source": "not go at all {{{"})
	require.Error(t, err)
}

func TestOutlineMissingSource(t *testing.T) {
	p := codeoutline.New()
	_, err := p.Call("outline", map[string]any{"language": "go"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source argument is required")
}
