package openapi

import (
	"fmt"
	"math"
	"strings"

	props "github.com/goliatone/go-props"
)

const (
	extensionEmpty     = "x-empty-behavior"
	extensionValidator = "x-validator"
	extensionOrder     = "x-props-order"
)

// buildPropsSchema renders the declared fields as a single object schema.
// JSON objects lose key order, so declaration order travels in x-props-order.
func buildPropsSchema(schema props.SchemaMap, cfg generatorConfig) (map[string]any, error) {
	properties := make(map[string]any, schema.Len())
	for _, entry := range schema.Entries() {
		field, err := fieldSchema(entry.Key, entry.Spec, cfg)
		if err != nil {
			return nil, err
		}
		properties[entry.Key] = field
	}

	root := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if cfg.extensions {
		root[extensionOrder] = schema.Keys()
	}
	return root, nil
}

func fieldSchema(key string, spec props.FieldSpec, cfg generatorConfig) (map[string]any, error) {
	node := kindSchema(spec.Kind)

	if len(spec.Enum) > 0 {
		enum := make([]any, 0, len(spec.Enum))
		for _, literal := range spec.Enum {
			value, err := jsonLiteral(literal)
			if err != nil {
				return nil, fmt.Errorf("openapi: field %q enum: %w", key, err)
			}
			enum = append(enum, value)
		}
		node["enum"] = enum
	}

	if spec.Range != nil {
		if spec.Range.Min != nil {
			node["minimum"] = *spec.Range.Min
		}
		if spec.Range.Max != nil {
			node["maximum"] = *spec.Range.Max
		}
	}

	if spec.Default != nil {
		value, err := jsonLiteral(*spec.Default)
		if err != nil {
			return nil, fmt.Errorf("openapi: field %q default: %w", key, err)
		}
		node["default"] = value
	}

	behavior := spec.Empty.Effective()
	if behavior == props.EmptyAccept {
		markNullable(node, cfg.openAPIVersion)
	}
	if !cfg.extensions {
		return node, nil
	}

	node[extensionEmpty] = behavior.String()
	if name := spec.Validator.Name(); name != "" {
		node[extensionValidator] = name
	}
	return node, nil
}

func kindSchema(kind props.FieldKind) map[string]any {
	switch kind {
	case props.KindBoolean:
		return map[string]any{"type": "boolean"}
	case props.KindString:
		return map[string]any{"type": "string"}
	case props.KindNumber:
		return map[string]any{"type": "number"}
	case props.KindObject:
		// structured payloads cover both maps and lists
		return map[string]any{
			"oneOf": []any{
				map[string]any{"type": "object"},
				map[string]any{"type": "array", "items": map[string]any{}},
			},
		}
	default:
		return map[string]any{}
	}
}

// markNullable uses the 3.0 nullable keyword, or a type union from 3.1 on.
func markNullable(node map[string]any, version string) {
	if !strings.HasPrefix(version, "3.0") {
		if typ, ok := node["type"].(string); ok {
			node["type"] = []any{typ, "null"}
		}
		return
	}
	if _, ok := node["type"]; ok {
		node["nullable"] = true
	}
}

func jsonLiteral(v props.Value) (any, error) {
	if n, ok := v.AsNumber(); ok && (math.IsNaN(n) || math.IsInf(n, 0)) {
		return nil, fmt.Errorf("literal %s has no JSON representation", v.Text())
	}
	return v.Interface(), nil
}
