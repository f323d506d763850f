package interfacetext_test

import (
	"strings"
	"testing"

	"github.com/c360studio/toolbridge/interfacetext"
)

func TestGeneratesNamespacedInterfacesWithJSDoc(t *testing.T) {
	d := interfacetext.Descriptor{
		Name:        "github.get_pull_request",
		Description: "Fetch a pull request",
		Tags:        []string{"github", "pulls"},
		Inputs: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"owner":       map[string]any{"type": "string", "description": "Repository owner"},
				"repo":        map[string]any{"type": "string"},
				"pull_number": map[string]any{"type": "integer"},
				"state":       map[string]any{"type": "string", "enum": []any{"open", "closed"}},
			},
			"required": []any{"owner", "repo", "pull_number"},
		},
		Outputs: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{"type": "string"},
			},
		},
		IsAsync: true,
	}

	gen := interfacetext.NewGenerator()
	output := gen.ToInterfaceText(d)

	wantSubstrings := []string{
		"namespace github",
		"interface get_pull_requestInput",
		"pull_number: number",
		`state?: "open" | "closed"`,
		"Promise<get_pull_requestOutputBase>",
		"Access as: await github.get_pull_request(args)",
	}
	for _, want := range wantSubstrings {
		if !strings.Contains(output, want) {
			t.Errorf("interface text missing %q, got:\n%s", want, output)
		}
	}
}

func TestToInterfaceTextIsIdempotentAndCached(t *testing.T) {
	d := interfacetext.Descriptor{
		Name:    "add",
		Inputs:  map[string]any{"type": "object", "properties": map[string]any{"a": map[string]any{"type": "number"}}},
		Outputs: map[string]any{"type": "number"},
		IsAsync: false,
	}
	gen := interfacetext.NewGenerator()
	first := gen.ToInterfaceText(d)
	second := gen.ToInterfaceText(d)
	if first != second {
		t.Fatalf("expected deterministic, cached output; got %q then %q", first, second)
	}
	if !strings.Contains(first, "Access as: add(args)") {
		t.Errorf("expected sync non-dotted access form, got:\n%s", first)
	}
	if !strings.Contains(first, "export type addOutputBase = number;") {
		t.Errorf("expected a non-object Outputs schema to render as a type alias, not an interface, got:\n%s", first)
	}
	if strings.Contains(first, "interface addOutputBase") {
		t.Errorf("number-typed Outputs must not be wrapped as an object interface, got:\n%s", first)
	}
}

func TestArrayAndStringOutputsRenderAsTypeAliases(t *testing.T) {
	gen := interfacetext.NewGenerator()

	arrayDesc := interfacetext.Descriptor{
		Name:    "ns.values",
		Inputs:  map[string]any{"type": "object"},
		Outputs: map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		IsAsync: true,
	}
	arrayOut := gen.ToInterfaceText(arrayDesc)
	if !strings.Contains(arrayOut, "export type valuesOutputBase = string[];") {
		t.Errorf("expected array Outputs to render as a string[] type alias, got:\n%s", arrayOut)
	}
	if !strings.Contains(arrayOut, "Promise<valuesOutputBase>") {
		t.Errorf("expected async return type to wrap the alias in Promise<>, got:\n%s", arrayOut)
	}

	stringDesc := interfacetext.Descriptor{
		Name:    "greet",
		Inputs:  map[string]any{"type": "object"},
		Outputs: map[string]any{"type": "string"},
		IsAsync: false,
	}
	stringOut := gen.ToInterfaceText(stringDesc)
	if !strings.Contains(stringOut, "export type greetOutputBase = string;") {
		t.Errorf("expected string Outputs to render as a string type alias, got:\n%s", stringOut)
	}
}

func TestNonDottedToolHasNoNamespaceWrapper(t *testing.T) {
	d := interfacetext.Descriptor{
		Name:    "1weird-name",
		Inputs:  map[string]any{"type": "object"},
		Outputs: map[string]any{"type": "object"},
		IsAsync: false,
	}
	gen := interfacetext.NewGenerator()
	output := gen.ToInterfaceText(d)
	if strings.Contains(output, "namespace ") {
		t.Errorf("non-dotted tool should not be namespace-wrapped, got:\n%s", output)
	}
	if !strings.Contains(output, "interface _1weird_nameInput") {
		t.Errorf("expected sanitised identifier in interface name, got:\n%s", output)
	}
}
