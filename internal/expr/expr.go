// Package expr builds attribute predicates and weighted field expressions as clause lists and
// renders them for display or for SQLite evaluation over JSON attributes.
package expr

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/sells-group/hotspot-cli/internal/feature"
)

// ErrEmptyExpression is returned when rendering a predicate or sum with no clauses.
var ErrEmptyExpression = eris.New("expr: empty expression")

// Op is a comparison operator.
type Op string

const (
	Lt Op = "<"
	Le Op = "<="
	Gt Op = ">"
	Ge Op = ">="
	Eq Op = "="
	Ne Op = "<>"
)

// Clause compares one numeric field against a constant.
type Clause struct {
	Field string
	Op    Op
	Value float64
}

// Predicate is a conjunction of clauses.
type Predicate struct {
	Clauses []Clause
}

// AllBelow builds "f < v AND ..." for every field.
func AllBelow(fields []string, v float64) Predicate {
	p := Predicate{Clauses: make([]Clause, 0, len(fields))}
	for _, f := range fields {
		p.Clauses = append(p.Clauses, Clause{Field: f, Op: Lt, Value: v})
	}
	return p
}

// Empty reports whether the predicate has no clauses.
func (p Predicate) Empty() bool { return len(p.Clauses) == 0 }

// String renders the predicate in attribute-query syntax.
func (p Predicate) String() string {
	parts := make([]string, 0, len(p.Clauses))
	for _, c := range p.Clauses {
		parts = append(parts, c.Field+" "+string(c.Op)+" "+formatNumber(c.Value))
	}
	return strings.Join(parts, " AND ")
}

// SQL renders the predicate against a JSON attribute column, with one bind argument per clause.
func (p Predicate) SQL(column string) (string, []any, error) {
	if p.Empty() {
		return "", nil, ErrEmptyExpression
	}
	parts := make([]string, 0, len(p.Clauses))
	args := make([]any, 0, len(p.Clauses))
	for _, c := range p.Clauses {
		if err := ValidateField(c.Field); err != nil {
			return "", nil, err
		}
		if !c.Op.valid() {
			return "", nil, eris.Errorf("expr: unsupported operator %q", c.Op)
		}
		parts = append(parts, JSONPath(column, c.Field)+" "+string(c.Op)+" ?")
		args = append(args, c.Value)
	}
	return "(" + strings.Join(parts, " AND ") + ")", args, nil
}

// Match evaluates the predicate in memory. Missing or non-numeric attributes never match,
// which mirrors SQL NULL comparison.
func (p Predicate) Match(attrs map[string]any) bool {
	if p.Empty() {
		return false
	}
	for _, c := range p.Clauses {
		v, ok := feature.AsFloat(attrs[c.Field])
		if !ok || !c.Op.compare(v, c.Value) {
			return false
		}
	}
	return true
}

func (o Op) valid() bool {
	switch o {
	case Lt, Le, Gt, Ge, Eq, Ne:
		return true
	}
	return false
}

func (o Op) compare(a, b float64) bool {
	switch o {
	case Lt:
		return a < b
	case Le:
		return a <= b
	case Gt:
		return a > b
	case Ge:
		return a >= b
	case Eq:
		return a == b
	case Ne:
		return a != b
	}
	return false
}

// ValidateField rejects names that cannot be embedded in a JSON path literal.
func ValidateField(name string) error {
	if strings.TrimSpace(name) == "" {
		return eris.New("expr: empty field name")
	}
	for _, r := range name {
		if r == '"' || r == '\\' || r == '\'' || unicode.IsControl(r) {
			return eris.Errorf("expr: invalid character %q in field name %q", r, name)
		}
	}
	return nil
}

// JSONPath returns the SQLite json_extract call for a field of a JSON column.
func JSONPath(column, field string) string {
	return "json_extract(" + column + `, '$."` + field + `"')`
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
