package interfacetext

import (
	"fmt"
	"strings"
	"sync"
)

// Descriptor is the subset of a tool descriptor the generator needs; it
// mirrors bridge.ToolDescriptor's shape without importing the bridge
// package, keeping this pure-formatter package dependency-free.
type Descriptor struct {
	Name        string
	Description string
	Tags        []string
	Inputs      map[string]any
	Outputs     map[string]any
	IsAsync     bool
}

// Generator produces TypeScript interface text for tool descriptors,
// caching one string per tool name so repeat generation for an unchanged
// descriptor is a map lookup, not a recomputation.
type Generator struct {
	mu    sync.RWMutex
	cache map[string]string
}

// NewGenerator returns a ready-to-use Generator with an empty cache.
func NewGenerator() *Generator {
	return &Generator{cache: make(map[string]string)}
}

// ToInterfaceText returns the interface text for d, computing and
// caching it on first use. Subsequent calls for the same descriptor name
// return the cached string without recomputation.
func (g *Generator) ToInterfaceText(d Descriptor) string {
	g.mu.RLock()
	if cached, ok := g.cache[d.Name]; ok {
		g.mu.RUnlock()
		return cached
	}
	g.mu.RUnlock()

	text := renderInterfaceText(d)

	g.mu.Lock()
	g.cache[d.Name] = text
	g.mu.Unlock()
	return text
}

// Invalidate drops any cached text for name, forcing the next
// ToInterfaceText call to recompute it. Used when a tool is
// re-registered with a changed descriptor under the same name.
func (g *Generator) Invalidate(name string) {
	g.mu.Lock()
	delete(g.cache, name)
	g.mu.Unlock()
}

func renderInterfaceText(d Descriptor) string {
	ns, leaf, hasNamespace := AccessPath(d.Name)

	inputTypeName := leaf + "Input"
	outputTypeName := leaf + "OutputBase"

	var body strings.Builder
	if hasNamespace {
		fmt.Fprintf(&body, "namespace %s {\n", ns)
		writeIndentedDecl(&body, "  ", inputTypeName, d.Inputs)
		body.WriteString("\n")
		writeIndentedDecl(&body, "  ", outputTypeName, d.Outputs)
		body.WriteString("\n")
		returnType := outputTypeName
		if d.IsAsync {
			returnType = fmt.Sprintf("Promise<%s>", outputTypeName)
		}
		fmt.Fprintf(&body, "  export function %s(args: %s): %s;\n", leaf, inputTypeName, returnType)
		body.WriteString("}\n")
	} else {
		writeIndentedDecl(&body, "", inputTypeName, d.Inputs)
		body.WriteString("\n")
		writeIndentedDecl(&body, "", outputTypeName, d.Outputs)
		body.WriteString("\n")
		returnType := outputTypeName
		if d.IsAsync {
			returnType = fmt.Sprintf("Promise<%s>", outputTypeName)
		}
		fmt.Fprintf(&body, "export function %s(args: %s): %s;\n", leaf, inputTypeName, returnType)
	}

	accessPath := leaf
	if hasNamespace {
		accessPath = ns + "." + leaf
	}
	accessForm := accessPath + "(args)"
	if d.IsAsync {
		accessForm = "await " + accessForm
	}

	body.WriteString("/**\n")
	if d.Description != "" {
		fmt.Fprintf(&body, " * %s\n", escapeComment(d.Description))
	}
	if len(d.Tags) > 0 {
		fmt.Fprintf(&body, " * Tags: %s\n", escapeComment(strings.Join(d.Tags, ", ")))
	}
	fmt.Fprintf(&body, " * Access as: %s\n", escapeComment(accessForm))
	body.WriteString(" */\n")

	return body.String()
}

// writeIndentedDecl emits name's declaration at the top level of an
// input/output schema: an `interface` with a property body for an
// object-shaped schema (the common case, and the default when "type" is
// left unspecified), or a `type` alias for any other declared JSON
// schema type (string/number/integer/boolean/null/array), so a
// number- or array-shaped output is not forced into an object interface.
func writeIndentedDecl(b *strings.Builder, indent, name string, schema map[string]any) {
	switch schemaType(schema) {
	case "", "object":
		fmt.Fprintf(b, "%sexport interface %s {\n", indent, name)
		b.WriteString(objectSchemaBody(schema, indent+"  "))
		fmt.Fprintf(b, "%s}\n", indent)
	default:
		fmt.Fprintf(b, "%sexport type %s = %s;\n", indent, name, schemaToTypeScriptType(schema))
	}
}
