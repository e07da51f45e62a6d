package macros

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/unicode/norm"
)

var numberPattern = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)

// ParseNumber extracts the first signed decimal number from s. A comma is
// accepted as decimal separator and compatibility forms such as full-width
// digits are folded first. Returns nil when no finite number is present.
func ParseNumber(s string) *float64 {
	s = norm.NFKC.String(s)
	s = strings.Replace(s, ",", ".", 1)
	token := numberPattern.FindString(s)
	if token == "" {
		return nil
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return nil
	}
	return finite(v)
}

// Number coerces an arbitrary Go value with the same rules as ParseNumber.
func Number(v any) *float64 {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return Float(float64(n))
	case int64:
		return Float(float64(n))
	case *float64:
		if n == nil {
			return nil
		}
		return finite(*n)
	case json.Number:
		return ParseNumber(n.String())
	case string:
		return ParseNumber(n)
	case gjson.Result:
		return numberFrom(n)
	default:
		return nil
	}
}

func numberFrom(r gjson.Result) *float64 {
	switch r.Type {
	case gjson.Number:
		return finite(r.Num)
	case gjson.String:
		return ParseNumber(r.Str)
	default:
		return nil
	}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return Float(v)
}
