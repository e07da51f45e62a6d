package macros

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Strategy is one way of pulling a Set out of a payload. Extract reports
// false when the strategy found nothing.
type Strategy interface {
	Name() string
	Extract(p Payload) (Set, bool)
}

// Pipeline runs strategies in order and stops at the first success.
type Pipeline []Strategy

// DefaultDepth bounds the recursive strategies.
const DefaultDepth = 4

// DefaultPipeline is the extraction order used throughout foodlog.
var DefaultPipeline = Pipeline{
	DirectKeys{},
	DeepSearch{MaxDepth: DefaultDepth},
	LooseSearch{MaxDepth: DefaultDepth},
	FreeText{Fields: []string{"message", "raw", "markdown"}},
}

// Run returns the first non-empty result and the name of the strategy that
// produced it. When every strategy fails it returns an empty Set and "".
func (p Pipeline) Run(payload Payload) (Set, string) {
	for _, s := range p {
		if out, ok := s.Extract(payload); ok {
			return out, s.Name()
		}
	}
	return Set{}, ""
}

// Extract runs DefaultPipeline.
func Extract(payload Payload) Set {
	out, _ := DefaultPipeline.Run(payload)
	return out
}

var synonyms = [...]struct {
	field Field
	keys  []string
}{
	{Calories, []string{"calories", "kcal", "cal", "energy", "калории"}},
	{Proteins, []string{"proteins", "protein", "белки", "белок"}},
	{Fats, []string{"fats", "fat", "жиры", "жир"}},
	{Carbohydrates, []string{"carbohydrates", "carbs", "углеводы", "углеводы,г"}},
}

// DirectKeys reads the fixed synonym table from an object. The first
// present key wins for each field even when its value is not numeric.
type DirectKeys struct{}

func (DirectKeys) Name() string { return "direct" }

func (DirectKeys) Extract(p Payload) (Set, bool) {
	out := directKeys(p)
	return out, out.HasAny()
}

func directKeys(obj gjson.Result) Set {
	var out Set
	if !obj.IsObject() {
		return out
	}
	for _, syn := range synonyms {
		for _, key := range syn.keys {
			v, ok := Lookup(obj, key)
			if !ok || v.Type == gjson.Null {
				continue
			}
			out = out.With(syn.field, numberFrom(v))
			break
		}
	}
	return out
}

// DeepSearch walks arrays left to right and objects in key order, trying
// DirectKeys at every object and ExtractText at every string.
type DeepSearch struct {
	MaxDepth int
}

func (DeepSearch) Name() string { return "deep" }

func (d DeepSearch) Extract(p Payload) (Set, bool) {
	out := deepSearch(p, d.MaxDepth)
	return out, out.HasAny()
}

func deepSearch(x gjson.Result, depth int) Set {
	if depth < 0 {
		return Set{}
	}
	switch {
	case x.Type == gjson.String:
		return ExtractText(x.Str)
	case x.IsArray():
		for _, el := range x.Array() {
			if m := deepSearch(el, depth-1); m.HasAny() {
				return m
			}
		}
	case x.IsObject():
		if direct := directKeys(x); direct.HasAny() {
			return direct
		}
		for _, m := range members(x) {
			if found := deepSearch(m.value, depth-1); found.HasAny() {
				return found
			}
		}
	}
	return Set{}
}

var loosePatterns = [...]struct {
	field   Field
	pattern *regexp.Regexp
}{
	{Calories, regexp.MustCompile(`(?i)cal|kcal|ккал|energy|кал`)},
	{Proteins, regexp.MustCompile(`(?i)prot|protein|белк`)},
	{Fats, regexp.MustCompile(`(?i)fat|жир`)},
	{Carbohydrates, regexp.MustCompile(`(?i)carb|углевод`)},
}

// LooseSearch matches property names against per-field patterns. Nested
// containers are searched first as they are met; the first nested success
// ends the search. Strings reached directly, as the payload or an array
// element, go through ExtractText.
type LooseSearch struct {
	MaxDepth int
}

func (LooseSearch) Name() string { return "loose" }

func (l LooseSearch) Extract(p Payload) (Set, bool) {
	out := looseSearch(p, l.MaxDepth)
	return out, out.HasAny()
}

func looseSearch(x gjson.Result, depth int) Set {
	if depth < 0 {
		return Set{}
	}
	if x.Type == gjson.String {
		return ExtractText(x.Str)
	}
	if x.IsArray() {
		for _, el := range x.Array() {
			if m := looseSearch(el, depth-1); m.HasAny() {
				return m
			}
		}
		return Set{}
	}
	if !x.IsObject() {
		return Set{}
	}
	var out Set
	for _, m := range members(x) {
		if m.value.IsObject() || m.value.IsArray() {
			if nested := looseSearch(m.value, depth-1); nested.HasAny() {
				return nested
			}
			continue
		}
		for _, lp := range loosePatterns {
			if !lp.pattern.MatchString(m.key) || out.Get(lp.field) != nil {
				continue
			}
			if n := numberFrom(m.value); n != nil {
				out = out.With(lp.field, n)
			}
		}
	}
	return out
}

const numberGroup = `(\d+(?:\.\d+)?)`

var textPatterns = [...]struct {
	field   Field
	pattern *regexp.Regexp
}{
	{Calories, regexp.MustCompile(`(?i)` + numberGroup + `\s*(?:ккал|kcal|кал|cal)`)},
	{Proteins, regexp.MustCompile(`(?i)(?:белк(?:и|а)?|proteins?|б)\s*:?\s*` + numberGroup)},
	{Fats, regexp.MustCompile(`(?i)(?:жир(?:ы|а)?|fats?|ж)\s*:?\s*` + numberGroup)},
	{Carbohydrates, regexp.MustCompile(`(?i)(?:углевод(?:ы|а|ов)?|carbohydrates?|carbs?|у)\s*:?\s*` + numberGroup)},
}

// FreeText applies keyword regexes to a string payload, or to the first
// string among Fields when the payload is an object.
type FreeText struct {
	Fields []string
}

func (FreeText) Name() string { return "text" }

func (t FreeText) Extract(p Payload) (Set, bool) {
	if p.Type == gjson.String {
		out := ExtractText(p.Str)
		return out, out.HasAny()
	}
	if !p.IsObject() {
		return Set{}, false
	}
	for _, name := range t.Fields {
		v, ok := Lookup(p, name)
		if !ok || v.Type != gjson.String {
			continue
		}
		if out := ExtractText(v.Str); out.HasAny() {
			return out, true
		}
	}
	return Set{}, false
}

// ExtractText pulls macros out of prose such as "250 ккал, Б 12 / Ж 8".
func ExtractText(text string) Set {
	var out Set
	if strings.TrimSpace(text) == "" {
		return out
	}
	normalized := strings.ReplaceAll(text, ",", ".")
	for _, tp := range textPatterns {
		m := tp.pattern.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}
		out = out.With(tp.field, ParseNumber(m[1]))
	}
	return out
}
