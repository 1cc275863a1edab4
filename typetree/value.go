package typetree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Value is one decoded field value. Its dynamic type is one of:
//
//   - int8, uint8, int16, uint16, int32, uint32, int64, uint64
//   - float32, float64, bool, string
//   - []byte for TypelessData and byte vectors
//   - []Value for arrays
//   - []Pair for maps
//   - *Tree for nested classes
type Value = any

// Field is a named value in declaration order.
type Field struct {
	Name  string
	Value Value
}

// Pair is one map entry.
type Pair struct {
	Key   Value `json:"first"`
	Value Value `json:"second"`
}

// Tree is an ordered field-name to value mapping produced by Decode.
type Tree struct {
	Type   string
	Fields []Field
}

// Len returns the number of fields.
func (t *Tree) Len() int { return len(t.Fields) }

// Get returns the value of the named field.
func (t *Tree) Get(name string) (Value, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Lookup follows a dotted field path through nested trees, for example
// "m_Script.m_PathID".
func (t *Tree) Lookup(path string) (Value, bool) {
	cur := t
	parts := strings.Split(path, ".")
	for i, p := range parts {
		v, ok := cur.Get(p)
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := v.(*Tree)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// Int returns the named field converted to int64 if it holds any integer kind.
func (t *Tree) Int(path string) (int64, bool) {
	v, ok := t.Lookup(path)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int8:
		return int64(n), true
	case uint8:
		return int64(n), true
	case int16:
		return int64(n), true
	case uint16:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true //nolint:gosec // caller asked for a signed view
	}
	return 0, false
}

// String returns the named field if it holds a string.
func (t *Tree) String(path string) (string, bool) {
	v, ok := t.Lookup(path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// MarshalJSON encodes the tree as a JSON object with keys in field order.
// Byte slices are encoded as base64 strings.
func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range t.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("typetree: field %s: %w", f.Name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
