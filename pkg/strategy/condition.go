package strategy

import (
	"fmt"
	"strings"
)

// PredicateOp is the small, fixed operator vocabulary conditional routing
// is restricted to: equality and substring/element containment on a dotted
// path into the canonical request body. Deliberately not the full mpl
// policy language - a routing predicate is declarative data, not a rule
// with actions, and doesn't need one.
type PredicateOp string

const (
	PredicateEqual    PredicateOp = "eq"
	PredicateContains PredicateOp = "contains"
)

// Predicate is one conditional-strategy rule query.
type Predicate struct {
	Field string
	Op    PredicateOp
	Value interface{}
}

// Match evaluates the predicate against a JSON-shaped request body.
func (p Predicate) Match(body map[string]interface{}) (bool, error) {
	actual, ok := lookupDottedPath(body, p.Field)
	if !ok {
		return false, nil
	}

	switch p.Op {
	case PredicateEqual:
		return fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", p.Value), nil
	case PredicateContains:
		actualStr, ok := actual.(string)
		if !ok {
			return false, nil
		}
		valueStr, ok := p.Value.(string)
		if !ok {
			return false, fmt.Errorf("strategy: contains predicate requires a string value")
		}
		return strings.Contains(actualStr, valueStr), nil
	default:
		return false, fmt.Errorf("strategy: unknown predicate op %q", p.Op)
	}
}

func lookupDottedPath(body map[string]interface{}, path string) (interface{}, bool) {
	segments := strings.Split(path, ".")
	var cur interface{} = body
	for _, seg := range segments {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// FirstMatch evaluates an ordered condition list against body and returns
// the index of the first matching target, or defaultIndex if none match.
func FirstMatch(conditions []Condition, defaultIndex int, body map[string]interface{}) (int, error) {
	for _, c := range conditions {
		matched, err := c.Query.Match(body)
		if err != nil {
			return 0, err
		}
		if matched {
			return c.TargetIndex, nil
		}
	}
	return defaultIndex, nil
}
