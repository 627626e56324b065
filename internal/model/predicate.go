package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Predicate is a typed filter tree evaluated against delegation attachments.
// A leaf compares a named field with a literal; All/Any compose sub-trees.
// This deliberately replaces live code evaluation: there is nothing to
// sandbox because nothing is executed.
type Predicate struct {
	All   []Predicate `json:"all,omitempty"`
	Any   []Predicate `json:"any,omitempty"`
	Field string      `json:"field,omitempty"`
	Op    string      `json:"op,omitempty"`
	Value any         `json:"value,omitempty"`
}

// Predicate comparators.
const (
	OpEq       = "eq"
	OpNe       = "ne"
	OpGt       = "gt"
	OpGte      = "gte"
	OpLt       = "lt"
	OpLte      = "lte"
	OpContains = "contains"
)

// ParsePredicate decodes a predicate tree from its jsonb storage form.
// An empty document means "match everything".
func ParsePredicate(raw string) (Predicate, error) {
	if strings.TrimSpace(raw) == "" {
		return Predicate{}, nil
	}
	var p Predicate
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Predicate{}, fmt.Errorf("malformed predicate: %w", err)
	}
	return p, nil
}

// Eval evaluates the tree against a field map. Unknown fields and
// incomparable value pairs are errors, not silent non-matches, so a
// misconfigured rule fails loudly at evaluation time.
func (p Predicate) Eval(fields map[string]any) (bool, error) {
	switch {
	case len(p.All) > 0:
		for _, sub := range p.All {
			ok, err := sub.Eval(fields)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case len(p.Any) > 0:
		for _, sub := range p.Any {
			ok, err := sub.Eval(fields)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case p.Field == "":
		// empty predicate matches everything
		return true, nil
	}

	actual, ok := fields[p.Field]
	if !ok {
		return false, fmt.Errorf("predicate references unknown field %q", p.Field)
	}
	return comparePredicateValues(p.Op, actual, p.Value)
}

func comparePredicateValues(op string, actual, expected any) (bool, error) {
	if op == OpContains {
		as, aok := actual.(string)
		es, eok := expected.(string)
		if !aok || !eok {
			return false, fmt.Errorf("'contains' needs string operands")
		}
		return strings.Contains(as, es), nil
	}

	if an, aok := toDecimal(actual); aok {
		en, eok := toDecimal(expected)
		if !eok {
			return false, fmt.Errorf("cannot compare number with %T", expected)
		}
		cmp := an.Cmp(en)
		return cmpToBool(op, cmp)
	}

	as := fmt.Sprintf("%v", actual)
	es := fmt.Sprintf("%v", expected)
	switch op {
	case OpEq:
		return as == es, nil
	case OpNe:
		return as != es, nil
	default:
		return cmpToBool(op, strings.Compare(as, es))
	}
}

func cmpToBool(op string, cmp int) (bool, error) {
	switch op {
	case OpEq:
		return cmp == 0, nil
	case OpNe:
		return cmp != 0, nil
	case OpGt:
		return cmp > 0, nil
	case OpGte:
		return cmp >= 0, nil
	case OpLt:
		return cmp < 0, nil
	case OpLte:
		return cmp <= 0, nil
	default:
		return false, fmt.Errorf("unknown comparator %q", op)
	}
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case float64:
		return decimal.NewFromFloat(n), true
	case decimal.Decimal:
		return n, true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}
