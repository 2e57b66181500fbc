package hooks

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/relaymind/relaymind/pkg/mpl/ast"
)

// PredicateHook denies a request when a dotted-path field of the body
// matches an operator comparison against a fixed value. It is the built-in
// Hook implementation for the common "block if field X looks like Y" case;
// more elaborate verdicts (overrides, annotations) belong in a
// purpose-written Hook.
type PredicateHook struct {
	name       string
	stages     map[Stage]bool
	field      string
	op         ast.Operator
	expected   interface{}
	denyReason string
}

// NewPredicateHook builds a hook that denies when the dotted-path field
// evaluates true against op/expected, at the given stages.
func NewPredicateHook(name, field string, op ast.Operator, expected interface{}, denyReason string, stages ...Stage) *PredicateHook {
	set := make(map[Stage]bool, len(stages))
	for _, s := range stages {
		set[s] = true
	}
	return &PredicateHook{name: name, stages: set, field: field, op: op, expected: expected, denyReason: denyReason}
}

func (h *PredicateHook) Name() string { return h.name }

func (h *PredicateHook) RunsAt(stage Stage) bool { return h.stages[stage] }

func (h *PredicateHook) Evaluate(ctx context.Context, inv *Invocation) (*Verdict, error) {
	actual, ok := lookupDottedPath(inv.Body, h.field)
	if !ok {
		return nil, nil
	}

	matched, err := evaluateOperator(h.op, actual, h.expected)
	if err != nil {
		return nil, fmt.Errorf("hooks: predicate %q: %w", h.name, err)
	}
	if !matched {
		return nil, nil
	}

	return &Verdict{DenyRequest: true, DenyReason: h.denyReason}, nil
}

// lookupDottedPath reads a dotted path out of a JSON-shaped body map, e.g.
// "usage.total_tokens". Intermediate segments must be maps; a missing
// segment returns ok=false rather than an error, mirroring how an absent
// canonical field is treated as "doesn't match" rather than a failure.
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

// evaluateOperator mirrors pkg/policy/engine/operators.go's comparison
// semantics (numeric-aware equality, substring contains, regex matches)
// over plain interface{} values rather than the policy engine's
// EvaluationContext, since hooks compare against body maps, not enriched
// request/response structs.
func evaluateOperator(op ast.Operator, actual, expected interface{}) (bool, error) {
	switch op {
	case ast.OperatorEqual:
		return valuesEqual(actual, expected), nil
	case ast.OperatorNotEqual:
		return !valuesEqual(actual, expected), nil
	case ast.OperatorContains:
		actualStr, ok := toString(actual)
		if !ok {
			return false, fmt.Errorf("contains requires a string-like actual value")
		}
		expectedStr, ok := toString(expected)
		if !ok {
			return false, fmt.Errorf("contains requires a string-like expected value")
		}
		return strings.Contains(actualStr, expectedStr), nil
	case ast.OperatorMatches:
		actualStr, ok := toString(actual)
		if !ok {
			return false, fmt.Errorf("matches requires a string-like actual value")
		}
		pattern, ok := expected.(string)
		if !ok {
			return false, fmt.Errorf("matches requires a string pattern")
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("invalid regex %q: %w", pattern, err)
		}
		return re.MatchString(actualStr), nil
	case ast.OperatorGreaterThan, ast.OperatorLessThan, ast.OperatorGreaterEqual, ast.OperatorLessEqual:
		a, aok := toFloat(actual)
		b, bok := toFloat(expected)
		if !aok || !bok {
			return false, fmt.Errorf("%s requires numeric operands", op)
		}
		switch op {
		case ast.OperatorGreaterThan:
			return a > b, nil
		case ast.OperatorLessThan:
			return a < b, nil
		case ast.OperatorGreaterEqual:
			return a >= b, nil
		default:
			return a <= b, nil
		}
	case ast.OperatorIn:
		return containsElement(expected, actual)
	case ast.OperatorNotIn:
		in, err := containsElement(expected, actual)
		return !in, err
	default:
		return false, fmt.Errorf("unsupported operator: %q", op)
	}
}

func valuesEqual(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

func toString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func containsElement(list, elem interface{}) (bool, error) {
	v := reflect.ValueOf(list)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return false, fmt.Errorf("in/not_in requires a list operand")
	}
	for i := 0; i < v.Len(); i++ {
		if reflect.DeepEqual(v.Index(i).Interface(), elem) {
			return true, nil
		}
	}
	return false, nil
}
