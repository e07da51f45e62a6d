package macros

// Set holds calories, proteins, fats and carbohydrates. A nil field means
// unknown, which is distinct from zero.
type Set struct {
	Calories      *float64 `json:"calories"`
	Proteins      *float64 `json:"proteins"`
	Fats          *float64 `json:"fats"`
	Carbohydrates *float64 `json:"carbohydrates"`
}

// Field names a member of Set.
type Field int

const (
	Calories Field = iota
	Proteins
	Fats
	Carbohydrates
)

// Fields lists every Field in canonical order.
var Fields = [...]Field{Calories, Proteins, Fats, Carbohydrates}

func (f Field) String() string {
	switch f {
	case Calories:
		return "calories"
	case Proteins:
		return "proteins"
	case Fats:
		return "fats"
	case Carbohydrates:
		return "carbohydrates"
	default:
		return "unknown"
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Get returns the value stored for f.
func (s Set) Get(f Field) *float64 {
	switch f {
	case Calories:
		return s.Calories
	case Proteins:
		return s.Proteins
	case Fats:
		return s.Fats
	case Carbohydrates:
		return s.Carbohydrates
	}
	return nil
}

// With returns a copy of s with f set to v.
func (s Set) With(f Field, v *float64) Set {
	switch f {
	case Calories:
		s.Calories = v
	case Proteins:
		s.Proteins = v
	case Fats:
		s.Fats = v
	case Carbohydrates:
		s.Carbohydrates = v
	}
	return s
}

// HasAny reports whether at least one field is known.
func (s Set) HasAny() bool {
	return s.Calories != nil || s.Proteins != nil || s.Fats != nil || s.Carbohydrates != nil
}

// Scale converts per-100g values into values for a portion of grams.
// Unknown fields stay unknown.
func (s Set) Scale(grams float64) Set {
	var out Set
	for _, f := range Fields {
		if v := s.Get(f); v != nil {
			out = out.With(f, Float(*v*grams/100))
		}
	}
	return out
}

// ScalePortion is Scale with a nullable portion; a nil portion yields an
// all-unknown set.
func (s Set) ScalePortion(grams *float64) Set {
	if grams == nil {
		return Set{}
	}
	return s.Scale(*grams)
}

// Sum adds sets field by field. Unknown entries do not contribute; a field
// stays nil when no set contributed to it.
func Sum(sets ...Set) Set {
	var out Set
	for _, s := range sets {
		for _, f := range Fields {
			v := s.Get(f)
			if v == nil {
				continue
			}
			acc := 0.0
			if cur := out.Get(f); cur != nil {
				acc = *cur
			}
			out = out.With(f, Float(acc+*v))
		}
	}
	return out
}
