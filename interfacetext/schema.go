package interfacetext

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// schemaType returns the schema's declared "type" as a string, or "" if
// missing or not a string.
func schemaType(schema map[string]any) string {
	t, _ := schema["type"].(string)
	return t
}

// schemaToTypeScriptType maps one JSON schema node to a TypeScript type
// expression.
func schemaToTypeScriptType(schema map[string]any) string {
	if schema == nil {
		return "any"
	}
	if enumVals, ok := schema["enum"].([]any); ok && len(enumVals) > 0 {
		return enumUnion(enumVals)
	}
	switch schemaType(schema) {
	case "string":
		return "string"
	case "number", "integer":
		return "number"
	case "boolean":
		return "boolean"
	case "null":
		return "null"
	case "object":
		return objectSchemaInline(schema)
	case "array":
		return arraySchemaToTypeScript(schema)
	default:
		return "any"
	}
}

// enumUnion renders a JSON-schema enum as a TypeScript literal union.
func enumUnion(vals []any) string {
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		switch tv := v.(type) {
		case string:
			parts = append(parts, strconv.Quote(tv))
		case bool:
			parts = append(parts, strconv.FormatBool(tv))
		case float64:
			parts = append(parts, formatNumber(tv))
		default:
			parts = append(parts, "any")
		}
	}
	return strings.Join(parts, " | ")
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// arraySchemaToTypeScript maps a "array"-typed schema. Missing items
// becomes any[]; items given as a single schema becomes Type[]; items
// given as an array of schemas becomes a union of the element types.
func arraySchemaToTypeScript(schema map[string]any) string {
	items, ok := schema["items"]
	if !ok || items == nil {
		return "any[]"
	}
	switch it := items.(type) {
	case map[string]any:
		return fmt.Sprintf("%s[]", schemaToTypeScriptType(it))
	case []any:
		if len(it) == 0 {
			return "any[]"
		}
		parts := make([]string, 0, len(it))
		for _, raw := range it {
			if m, ok := raw.(map[string]any); ok {
				parts = append(parts, schemaToTypeScriptType(m))
			} else {
				parts = append(parts, "any")
			}
		}
		return fmt.Sprintf("(%s)[]", strings.Join(parts, " | "))
	default:
		return "any[]"
	}
}

// objectSchemaInline renders a nested object schema used as a property
// type (not the top-level input/output interface). An object with no
// "properties" becomes an index signature.
func objectSchemaInline(schema map[string]any) string {
	props, ok := schema["properties"].(map[string]any)
	if !ok || len(props) == 0 {
		return "{ [key: string]: any }"
	}
	required := requiredSet(schema)
	names := sortedKeys(props)
	var b strings.Builder
	b.WriteString("{ ")
	for i, name := range names {
		propSchema, _ := props[name].(map[string]any)
		b.WriteString(propertyDecl(name, propSchema, required[name]))
		if i < len(names)-1 {
			b.WriteString("; ")
		}
	}
	b.WriteString(" }")
	return b.String()
}

func requiredSet(schema map[string]any) map[string]bool {
	out := map[string]bool{}
	reqList, _ := schema["required"].([]any)
	for _, r := range reqList {
		if s, ok := r.(string); ok {
			out[s] = true
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func propertyDecl(name string, schema map[string]any, required bool) string {
	opt := ""
	if !required {
		opt = "?"
	}
	return fmt.Sprintf("%s%s: %s", name, opt, schemaToTypeScriptType(schema))
}

// objectSchemaBody renders an object schema's property list as
// newline-separated interface members, with a doc comment per property
// that declares a "description", for use inside an `interface Name { }`
// block.
func objectSchemaBody(schema map[string]any, indent string) string {
	props, ok := schema["properties"].(map[string]any)
	if !ok || len(props) == 0 {
		return indent + "[key: string]: any;\n"
	}
	required := requiredSet(schema)
	names := sortedKeys(props)
	var b strings.Builder
	for _, name := range names {
		propSchema, _ := props[name].(map[string]any)
		if desc, ok := propSchema["description"].(string); ok && desc != "" {
			b.WriteString(indent)
			b.WriteString("/** ")
			b.WriteString(escapeComment(desc))
			b.WriteString(" */\n")
		}
		b.WriteString(indent)
		b.WriteString(propertyDecl(name, propSchema, required[name]))
		b.WriteString(";\n")
	}
	return b.String()
}

// escapeComment escapes text for embedding inside a /* */ comment:
// "*/" becomes "*\/" and newlines become spaces.
func escapeComment(s string) string {
	s = strings.ReplaceAll(s, "*/", "*\\/")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
