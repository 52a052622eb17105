package expr

import (
	"sort"
	"strings"

	"github.com/sells-group/hotspot-cli/internal/feature"
)

// DefaultWeights is the compiled-in weight table for known POI categories.
var DefaultWeights = map[string]float64{
	"edu_num":            2,
	"food_num":           3,
	"siteseeing_num":     5,
	"shopping_num":       3,
	"infrastructure_num": 1,
	"medicine_num":       1,
}

// Term is one weighted field. Explicit is false when the weight is the unit default.
type Term struct {
	Field    string
	Weight   float64
	Explicit bool
}

// WeightedSum is a linear combination of fields.
type WeightedSum struct {
	Terms []Term
}

// Weighted builds a sum over fields, taking weights from table and defaulting to 1.
// Terms are ordered by field name.
func Weighted(fields []string, table map[string]float64) WeightedSum {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)

	s := WeightedSum{Terms: make([]Term, 0, len(sorted))}
	for _, f := range sorted {
		w, ok := table[f]
		if !ok {
			w = 1
		}
		s.Terms = append(s.Terms, Term{Field: f, Weight: w, Explicit: ok})
	}
	return s
}

// Empty reports whether the sum has no terms.
func (s WeightedSum) Empty() bool { return len(s.Terms) == 0 }

// String renders the sum in field-calculator syntax, e.g. "!edu_num! * 2 + !other_num!".
func (s WeightedSum) String() string {
	parts := make([]string, 0, len(s.Terms))
	for _, t := range s.Terms {
		part := "!" + t.Field + "!"
		if t.Explicit {
			part += " * " + formatNumber(t.Weight)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " + ")
}

// SQL renders the sum against a JSON attribute column. Missing attributes count as zero.
func (s WeightedSum) SQL(column string) (string, error) {
	if s.Empty() {
		return "", ErrEmptyExpression
	}
	parts := make([]string, 0, len(s.Terms))
	for _, t := range s.Terms {
		if err := ValidateField(t.Field); err != nil {
			return "", err
		}
		parts = append(parts, "COALESCE("+JSONPath(column, t.Field)+", 0) * "+formatNumber(t.Weight))
	}
	return "CAST(" + strings.Join(parts, " + ") + " AS REAL)", nil
}

// Eval computes the sum for one row. Missing attributes count as zero; no floor is applied.
func (s WeightedSum) Eval(attrs map[string]any) float64 {
	var total float64
	for _, t := range s.Terms {
		v, _ := feature.AsFloat(attrs[t.Field])
		total += v * t.Weight
	}
	return total
}
