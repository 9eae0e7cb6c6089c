// Package envelope implements the JSON-plus-buffers envelope exchanged with
// the boundary endpoint: the structured half is a Payload, the raw half is an
// ordered list of byte buffers whose positions are part of each method's or
// event's contract.
package envelope

import (
	"encoding/json"
	"math"
	"strings"

	jsoncodec "github.com/drblury/mediabridge/internal/runtime/jsoncodec"
)

// Payload is the structured (JSON-serializable) half of an envelope.
type Payload map[string]any

// Parse decodes text as a JSON object. Malformed or non-object input yields an
// empty payload and ok=false; callers treat that as a normal outcome.
func Parse(text string) (Payload, bool) {
	if strings.TrimSpace(text) == "" {
		return Payload{}, false
	}
	var out map[string]any
	if err := jsoncodec.UnmarshalFromString(text, &out); err != nil || out == nil {
		return Payload{}, false
	}
	return Payload(out), true
}

// SplitPath turns "frame.buffer" into []string{"frame", "buffer"}.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Lookup walks nested objects along path.
func (p Payload) Lookup(path ...string) (any, bool) {
	if len(path) == 0 || p == nil {
		return nil, false
	}
	var current any = map[string]any(p)
	for _, key := range path {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Has reports whether path resolves to a present value.
func (p Payload) Has(path ...string) bool {
	_, ok := p.Lookup(path...)
	return ok
}

// Int64 reads an integral number at path. JSON numbers may arrive as int64,
// float64 or json.Number depending on the decoder configuration.
func (p Payload) Int64(path ...string) (int64, bool) {
	v, ok := p.Lookup(path...)
	if !ok {
		return 0, false
	}
	return ToInt64(v)
}

// String reads a string at path.
func (p Payload) String(path ...string) (string, bool) {
	v, ok := p.Lookup(path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bytes reads a spliced buffer at path.
func (p Payload) Bytes(path ...string) ([]byte, bool) {
	v, ok := p.Lookup(path...)
	if !ok {
		return nil, false
	}
	return asBuffer(v)
}

// Object reads a nested object at path.
func (p Payload) Object(path ...string) (Payload, bool) {
	v, ok := p.Lookup(path...)
	if !ok {
		return nil, false
	}
	m, ok := asMap(v)
	if !ok {
		return nil, false
	}
	return Payload(m), true
}

// Clone returns a shallow copy.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ToInt64 converts the numeric representations produced by JSON decoding.
func ToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Payload:
		return m, true
	default:
		return nil, false
	}
}

func asBuffer(v any) ([]byte, bool) {
	b, ok := v.([]byte)
	return b, ok
}
