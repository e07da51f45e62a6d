package macros

import (
	"encoding/json"
	"strconv"

	"github.com/tidwall/gjson"
)

// Payload is an untyped nutrition payload. Objects preserve key order.
type Payload = gjson.Result

// ParsePayload interprets raw as JSON when it is valid JSON and as free text
// otherwise.
func ParsePayload(raw []byte) Payload {
	if gjson.ValidBytes(raw) {
		return gjson.ParseBytes(raw)
	}
	return Text(string(raw))
}

// Text wraps a free-text payload.
func Text(s string) Payload {
	return gjson.Result{Type: gjson.String, Str: s, Raw: strconv.Quote(s)}
}

// FromValue converts a Go value into a Payload. Maps are marshalled with
// sorted keys, so their enumeration order is the sorted key order.
func FromValue(v any) Payload {
	switch x := v.(type) {
	case gjson.Result:
		return x
	case []byte:
		return ParsePayload(x)
	case json.RawMessage:
		return ParsePayload(x)
	case string:
		return Text(x)
	case nil:
		return gjson.Result{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return gjson.Result{}
	}
	return gjson.ParseBytes(data)
}

type member struct {
	key   string
	value gjson.Result
}

// members returns object properties in document order.
func members(obj gjson.Result) []member {
	if !obj.IsObject() {
		return nil
	}
	var out []member
	obj.ForEach(func(k, v gjson.Result) bool {
		out = append(out, member{key: k.String(), value: v})
		return true
	})
	return out
}

// Lookup returns the first property named key. Unlike gjson paths, key is
// matched literally so synonyms containing path characters are safe.
func Lookup(obj gjson.Result, key string) (gjson.Result, bool) {
	for _, m := range members(obj) {
		if m.key == key {
			return m.value, true
		}
	}
	return gjson.Result{}, false
}

// Snippet returns at most n runes of the payload's raw text for diagnostics.
func Snippet(p Payload, n int) string {
	raw := p.Raw
	if p.Type == gjson.String {
		raw = p.Str
	}
	runes := []rune(raw)
	if len(runes) <= n {
		return raw
	}
	return string(runes[:n]) + "…"
}
