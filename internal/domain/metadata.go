package domain

import (
	"encoding/json"
	"fmt"
)

// Value is a metadata value restricted to string, number, or bool so
// the data model stays checkable instead of an untyped map.
type Value struct {
	kind valueKind
	str  string
	num  float64
	b    bool
}

type valueKind uint8

const (
	kindString valueKind = iota
	kindNumber
	kindBool
)

func StringValue(s string) Value  { return Value{kind: kindString, str: s} }
func NumberValue(n float64) Value { return Value{kind: kindNumber, num: n} }
func BoolValue(b bool) Value      { return Value{kind: kindBool, b: b} }

// String returns the string form of the value. Numbers and bools are
// formatted; this is what CLI output and source comparison use.
func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return fmt.Sprintf("%g", v.num)
	case kindBool:
		return fmt.Sprintf("%t", v.b)
	default:
		return v.str
	}
}

func (v Value) Number() (float64, bool) { return v.num, v.kind == kindNumber }
func (v Value) Bool() (bool, bool)      { return v.b, v.kind == kindBool }

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNumber:
		return json.Marshal(v.num)
	case kindBool:
		return json.Marshal(v.b)
	default:
		return json.Marshal(v.str)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case string:
		*v = StringValue(t)
	case float64:
		*v = NumberValue(t)
	case bool:
		*v = BoolValue(t)
	case nil:
		*v = StringValue("")
	default:
		return fmt.Errorf("unsupported metadata value type %T", raw)
	}
	return nil
}

// Metadata is an open map of string keys to scalar values. Common keys
// are "source" (originating file path), "created_at", and "type".
type Metadata map[string]Value

// SourceKey is the metadata key holding the originating file path.
const SourceKey = "source"

// GetString returns the string form of the value for key, or "" when
// the key is absent.
func (m Metadata) GetString(key string) string {
	if m == nil {
		return ""
	}
	v, ok := m[key]
	if !ok {
		return ""
	}
	return v.String()
}

// Source returns the originating file path, or "" when untracked.
func (m Metadata) Source() string { return m.GetString(SourceKey) }

// Clone returns a copy so stored metadata is never aliased by callers.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
