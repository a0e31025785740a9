package transform

import (
	"encoding/json"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"dbcopy/value"
)

// UnmarshalYAML accepts either the plain scalar "nullify" or a single-key
// mapping: replace, merge or jsonpatch.
func (t *Transformer) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == KindNullify.String() {
			*t = Nullify()
			return nil
		}
		return fmt.Errorf("line %d: unknown transformer %q", node.Line, node.Value)
	case yaml.MappingNode:
	default:
		return fmt.Errorf("line %d: transformer must be a scalar or mapping", node.Line)
	}

	if len(node.Content) != 2 {
		return fmt.Errorf("line %d: transformer mapping must have exactly one key", node.Line)
	}
	key, arg := node.Content[0], node.Content[1]

	var err error
	switch key.Value {
	case "replace":
		var v value.Value
		if v, err = literalValue(arg); err == nil {
			*t = Replace(v)
		}
	case "nullify":
		*t = Nullify()
	case "merge":
		var doc []byte
		if doc, err = jsonArgument(arg); err == nil {
			*t, err = Merge(doc)
		}
	case "jsonpatch", "patch":
		var ops []byte
		if ops, err = jsonArgument(arg); err == nil {
			*t, err = Patch(ops)
		}
	default:
		return fmt.Errorf("line %d: unknown transformer %q", key.Line, key.Value)
	}
	if err != nil {
		return fmt.Errorf("line %d: %s: %w", key.Line, key.Value, err)
	}
	return nil
}

// literalValue maps a YAML scalar onto a Value. Timestamps keep their
// source text so the server parses them for the column's type. Sequences,
// mappings and custom tags fall outside the literal grammar and resolve to
// Null.
func literalValue(node *yaml.Node) (value.Value, error) {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	if node.Kind != yaml.ScalarNode {
		return value.Null(), nil
	}

	switch node.ShortTag() {
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err == nil {
			return value.Bool(b), nil
		}
	case "!!int":
		var i int64
		if err := node.Decode(&i); err == nil {
			return value.Int(i), nil
		}
		var u uint64
		if err := node.Decode(&u); err == nil {
			return value.UInt(u), nil
		}
	case "!!float":
		var f float64
		if err := node.Decode(&f); err == nil {
			if math.IsInf(f, 0) || math.IsNaN(f) {
				return value.Value{}, fmt.Errorf("non-finite number %q has no SQL literal", node.Value)
			}
			return value.Double(f), nil
		}
	case "!!str", "!!timestamp":
		return value.String(node.Value), nil
	}
	return value.Null(), nil
}

// jsonArgument returns the JSON text for a merge or patch argument, given
// either as a string holding JSON or as structured YAML.
func jsonArgument(node *yaml.Node) ([]byte, error) {
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!str" {
		return []byte(node.Value), nil
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
