package estimator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"foodlog/internal/config"
	"foodlog/internal/macros"
)

// FieldPaths locates meal fields inside a reply with JSONPath expressions.
// Empty paths are skipped and leave the field to the built-in lookup.
type FieldPaths struct {
	paths config.FieldPaths
}

// NewFieldPaths wraps the configured expressions.
func NewFieldPaths(paths config.FieldPaths) FieldPaths {
	return FieldPaths{paths: paths}
}

// Empty reports whether no expression is configured.
func (f FieldPaths) Empty() bool {
	p := f.paths
	return p.Item == "" && p.Portion == "" && p.Per100g == "" && p.Totals == ""
}

// Validate compiles every configured expression.
func (f FieldPaths) Validate() error {
	for name, path := range f.named() {
		if path == "" {
			continue
		}
		if _, err := jsonpath.New(path); err != nil {
			return fmt.Errorf("estimator.fields.%s: %w", name, err)
		}
	}
	return nil
}

func (f FieldPaths) named() map[string]string {
	return map[string]string{
		"item":     f.paths.Item,
		"portion":  f.paths.Portion,
		"per_100g": f.paths.Per100g,
		"totals":   f.paths.Totals,
	}
}

// Located holds the fields found by FieldPaths. Nil or empty values were
// not found.
type Located struct {
	Item    string
	Portion *float64
	Per100g *macros.Payload
	Totals  *macros.Payload
}

// Locate evaluates the expressions against raw.
func (f FieldPaths) Locate(raw json.RawMessage) (Located, error) {
	var out Located
	if f.Empty() {
		return out, nil
	}
	var obj any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return out, fmt.Errorf("locate fields: %w", err)
	}
	if v, ok := lookupPath(f.paths.Item, obj); ok {
		if s, isString := v.(string); isString {
			out.Item = strings.TrimSpace(s)
		}
	}
	if v, ok := lookupPath(f.paths.Portion, obj); ok {
		out.Portion = macros.Number(v)
	}
	if v, ok := lookupPath(f.paths.Per100g, obj); ok {
		p := macros.FromValue(v)
		out.Per100g = &p
	}
	if v, ok := lookupPath(f.paths.Totals, obj); ok {
		p := macros.FromValue(v)
		out.Totals = &p
	}
	return out, nil
}

// lookupPath evaluates path and keeps the first match when the result is
// a list.
func lookupPath(path string, obj any) (any, bool) {
	if path == "" {
		return nil, false
	}
	v, err := jsonpath.Get(path, obj)
	if err != nil {
		return nil, false
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, false
		}
		v = list[0]
	}
	return v, v != nil
}
