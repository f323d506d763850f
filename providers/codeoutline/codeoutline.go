// Package codeoutline provides the code.outline sync tool: given a
// source snippet and a language tag, it returns the top-level symbols
// (functions, types/classes, and for Go also vars and consts) declared
// in it, without the whole-repo
// indexing machinery of a full AST pass. Go snippets go through the
// standard library's go/parser; Python snippets through tree-sitter's
// Python grammar.
package codeoutline

import (
	"context"
	"fmt"
	goast "go/ast"
	"go/parser"
	"go/token"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/c360studio/toolbridge/bridge"
)

// Symbol is one top-level declaration found in a snippet.
type Symbol struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	Line int    `json:"line"`
}

// Provider implements bridge.SyncCaller and bridge.MetadataProvider for
// the code.outline tool.
type Provider struct{}

// New returns a ready-to-use Provider.
func New() *Provider { return &Provider{} }

// ListTools returns the outline descriptor, reported under its
// unprefixed leaf name; hosts register it under the "code" prefix.
func (p *Provider) ListTools() ([]bridge.ToolDescriptor, error) {
	return []bridge.ToolDescriptor{
		{
			Name:        "outline",
			Description: "List top-level symbols (functions, types/classes; for Go also vars and consts) declared in a source snippet",
			Tags:        []string{"code"},
			Inputs: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"language": map[string]any{"type": "string", "enum": []any{"go", "python"}},
					"source":   map[string]any{"type": "string", "description": "Source snippet to parse"},
				},
				"required": []any{"language", "source"},
			},
			Outputs: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"symbols": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"kind": map[string]any{"type": "string"},
								"name": map[string]any{"type": "string"},
								"line": map[string]any{"type": "integer"},
							},
						},
					},
				},
			},
		},
	}, nil
}

// Call dispatches outline (the raw_name; hosts register it under the
// "code" prefix) to the parser matching args["language"].
func (p *Provider) Call(name string, args map[string]any) (any, error) {
	if name != "outline" {
		return nil, bridge.NewCallError(fmt.Sprintf("unknown tool: %s", name))
	}
	lang, _ := args["language"].(string)
	source, _ := args["source"].(string)
	if source == "" {
		return nil, bridge.NewCallError("source argument is required")
	}

	var symbols []Symbol
	var err error
	switch lang {
	case "go":
		symbols, err = outlineGo(source)
	case "python":
		symbols, err = outlinePython(source)
	default:
		return nil, bridge.NewCallError(fmt.Sprintf("unsupported language: %s", lang))
	}
	if err != nil {
		return nil, bridge.NewCallError(err.Error())
	}

	out := make([]any, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, map[string]any{
			"kind": s.Kind,
			"name": s.Name,
			"line": float64(s.Line),
		})
	}
	return map[string]any{"symbols": out}, nil
}

// outlineGo parses source as a Go file body and extracts top-level
// func/type/var/const declarations.
func outlineGo(source string) ([]Symbol, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "snippet.go", source, parser.AllErrors)
	if err != nil {
		return nil, fmt.Errorf("parse go snippet: %w", err)
	}

	var symbols []Symbol
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *goast.FuncDecl:
			pos := fset.Position(d.Pos())
			symbols = append(symbols, Symbol{Kind: "func", Name: d.Name.Name, Line: pos.Line})
		case *goast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *goast.TypeSpec:
					pos := fset.Position(s.Pos())
					symbols = append(symbols, Symbol{Kind: "type", Name: s.Name.Name, Line: pos.Line})
				case *goast.ValueSpec:
					pos := fset.Position(s.Pos())
					for _, name := range s.Names {
						kind := "var"
						if d.Tok == token.CONST {
							kind = "const"
						}
						symbols = append(symbols, Symbol{Kind: kind, Name: name.Name, Line: pos.Line})
					}
				}
			}
		}
	}
	return symbols, nil
}

// outlinePython parses source with tree-sitter's Python grammar and
// extracts top-level class/function definitions, looking through
// decorators.
func outlinePython(source string) ([]Symbol, error) {
	sp := sitter.NewParser()
	sp.SetLanguage(python.GetLanguage())

	content := []byte(source)
	tree, err := sp.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse python snippet: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	var symbols []Symbol
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		sym, ok := pythonTopLevelSymbol(node, content)
		if ok {
			symbols = append(symbols, sym)
		}
	}
	return symbols, nil
}

func pythonTopLevelSymbol(node *sitter.Node, content []byte) (Symbol, bool) {
	switch node.Type() {
	case "class_definition":
		if name := node.ChildByFieldName("name"); name != nil {
			return Symbol{Kind: "class", Name: name.Content(content), Line: int(node.StartPoint().Row) + 1}, true
		}
	case "function_definition":
		if name := node.ChildByFieldName("name"); name != nil {
			return Symbol{Kind: "function", Name: name.Content(content), Line: int(node.StartPoint().Row) + 1}, true
		}
	case "decorated_definition":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == "class_definition" || child.Type() == "function_definition" {
				return pythonTopLevelSymbol(child, content)
			}
		}
	}
	return Symbol{}, false
}
