// Package transform rewrites individual column values while rows are copied.
package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"dbcopy/internal"
	"dbcopy/value"
)

type Kind uint8

const (
	KindReplace Kind = iota + 1
	KindNullify
	KindMerge
	KindPatch
)

func (k Kind) String() string {
	switch k {
	case KindReplace:
		return "replace"
	case KindNullify:
		return "nullify"
	case KindMerge:
		return "merge"
	case KindPatch:
		return "jsonpatch"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Transformer is an immutable per-column rule. The zero Transformer leaves
// values untouched.
type Transformer struct {
	kind    Kind
	literal value.Value
	doc     []byte
	ops     jsonpatch.Patch
}

// Replace discards the input and yields v.
func Replace(v value.Value) Transformer {
	return Transformer{kind: KindReplace, literal: v}
}

func Nullify() Transformer {
	return Transformer{kind: KindNullify}
}

// Merge returns a transformer applying doc to JSON cells as an RFC 7386
// merge patch: object keys overwrite or extend the cell, any other value
// replaces the subtree.
func Merge(doc []byte) (Transformer, error) {
	if !json.Valid(doc) {
		return Transformer{}, fmt.Errorf("invalid merge document: %s", doc)
	}
	return Transformer{kind: KindMerge, doc: compact(doc)}, nil
}

// Patch returns a transformer applying RFC 6902 operations to JSON cells.
func Patch(ops []byte) (Transformer, error) {
	p, err := jsonpatch.DecodePatch(ops)
	if err != nil {
		return Transformer{}, fmt.Errorf("invalid json patch: %w", err)
	}
	return Transformer{kind: KindPatch, ops: p}, nil
}

func (t Transformer) Kind() Kind { return t.kind }

func (t Transformer) String() string { return t.kind.String() }

// Apply rewrites v. It never fails: on malformed input a warning is logged
// and v is returned as it was.
func (t Transformer) Apply(v value.Value) value.Value {
	return t.ApplyLogged(v, internal.Logger)
}

// ApplyLogged is Apply reporting warnings to log.
func (t Transformer) ApplyLogged(v value.Value, log *slog.Logger) value.Value {
	switch t.kind {
	case KindReplace:
		return t.literal
	case KindNullify:
		return value.Null()
	case KindMerge:
		if bytes.Equal(t.doc, []byte("{}")) {
			return v
		}
		return t.applyJSON(v, log)
	case KindPatch:
		return t.applyJSON(v, log)
	default:
		return v
	}
}

func (t Transformer) applyJSON(v value.Value, log *slog.Logger) value.Value {
	var doc []byte
	switch v.Kind() {
	case value.KindString:
		doc = []byte(v.AsString())
	case value.KindBytes:
		doc = v.AsBytes()
	case value.KindNull:
		return v
	default:
		log.Warn("Transformer not supported for value", "transformer", t.kind, "kind", v.Kind())
		return v
	}

	if !json.Valid(doc) {
		log.Warn("Failed to decode json", "transformer", t.kind, "value", v)
		return v
	}

	if t.kind == KindMerge && !isObject(doc) {
		log.Warn("Merge target is not a json object", "transformer", t.kind, "value", v)
		return v
	}

	var (
		out []byte
		err error
	)
	if t.kind == KindMerge {
		out, err = jsonpatch.MergePatch(doc, t.doc)
	} else {
		out, err = t.ops.Apply(doc)
	}
	if err != nil {
		log.Warn("Failed to apply json patch", "transformer", t.kind, "error", err)
		return v
	}
	if !json.Valid(out) {
		log.Warn("Failed to encode json", "transformer", t.kind)
		return v
	}

	if v.Kind() == value.KindString {
		return value.String(string(out))
	}
	return value.Bytes(out)
}

func isObject(doc []byte) bool {
	doc = bytes.TrimLeft(doc, " \t\r\n")
	return len(doc) > 0 && doc[0] == '{'
}

func compact(doc []byte) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, doc); err != nil {
		return doc
	}
	return buf.Bytes()
}
