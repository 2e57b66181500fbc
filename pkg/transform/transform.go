// Package transform applies a dialect's parameter table to a canonical
// request, producing the upstream body map. The field-walking idiom here -
// splitting a dotted path and creating intermediate maps as needed - mirrors
// the dotted-path field accessors the policy engine uses to read context
// fields, generalized here to writes.
package transform

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/wire"
)

// MissingParameterError is returned when a required field has no value and
// no default.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("transform: missing required parameter %q", e.Name)
}

// DroppedField records a parameter the per-model capability override
// removed; attached to the log's metadata rather than surfaced as an error.
type DroppedField struct {
	Field  string
	Reason string
}

// Capabilities is the optional per-(provider,model,function) override:
// fields named here are dropped from the upstream body without error, and
// fields named as a rename take the upstream param name given.
type Capabilities struct {
	Unsupported map[string]string // canonical field -> reason
	Renamed     map[string]string // canonical field -> legacy upstream param name
}

// Engine applies a dialect.ParameterTable to a canonical request.
type Engine struct{}

// NewEngine returns a ready-to-use transform Engine. The engine is stateless;
// one instance is shared by every request.
func NewEngine() *Engine {
	return &Engine{}
}

// Result is the outcome of Apply: the upstream body plus bookkeeping the
// caller attaches to the request log.
type Result struct {
	Body    map[string]interface{}
	Dropped []DroppedField
}

// Apply walks a parameter table in a fixed order for every field: run
// transform if present, else read the canonical field by name; fail if
// required and absent; else substitute the default; clamp numeric bounds;
// then write to the table's dotted output path. Fields named unsupported in
// caps are dropped without error, after their value is computed, so the
// drop is recorded against the final resolved value's field name.
func (e *Engine) Apply(table dialect.ParameterTable, req *wire.Request, caps *Capabilities) (*Result, error) {
	result := &Result{Body: make(map[string]interface{})}

	for field, policy := range table {
		if caps != nil {
			if reason, dropped := caps.Unsupported[field]; dropped {
				result.Dropped = append(result.Dropped, DroppedField{Field: field, Reason: reason})
				continue
			}
		}

		value, err := resolveValue(field, policy, req)
		if err != nil {
			return nil, err
		}
		if value == nil {
			continue
		}

		value = dereference(value)
		value = clamp(value, policy.Min, policy.Max)

		outputPath := policy.Param
		if caps != nil {
			if renamed, ok := caps.Renamed[field]; ok {
				outputPath = renamed
			}
		}

		writeDottedPath(result.Body, outputPath, value)
	}

	return result, nil
}

func resolveValue(field string, policy dialect.FieldPolicy, req *wire.Request) (interface{}, error) {
	var value interface{}

	if policy.Transform != nil {
		canonical := readCanonicalField(field, req)
		v, err := policy.Transform(canonical, req)
		if err != nil {
			return nil, fmt.Errorf("transform: field %q: %w", field, err)
		}
		value = v
	} else {
		value = readCanonicalField(field, req)
	}

	if isAbsent(value) {
		if policy.Required {
			return nil, &MissingParameterError{Name: field}
		}
		if policy.Default != nil {
			return policy.Default, nil
		}
		return nil, nil
	}

	return value, nil
}

func isAbsent(v interface{}) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		return rv.IsNil()
	}
	return false
}

// readCanonicalField reads a named field off the canonical request or its
// AdditionalParams map. The well-known fields are resolved directly; any
// other name falls through to AdditionalParams, matching the spec's
// provision for long-tail provider-specific fields.
func readCanonicalField(field string, req *wire.Request) interface{} {
	switch field {
	case "model":
		return req.Model
	case "messages":
		return req.Messages
	case "prompt":
		return req.Prompt
	case "temperature":
		return req.Temperature
	case "top_p":
		return req.TopP
	case "max_tokens":
		return req.MaxTokens
	case "frequency_penalty":
		return req.FrequencyPenalty
	case "presence_penalty":
		return req.PresencePenalty
	case "stop":
		return req.Stop
	case "stream":
		return req.Stream
	case "tools":
		return req.Tools
	case "tool_choice":
		return req.ToolChoice
	case "seed":
		return req.Seed
	case "user":
		return req.User
	case "reasoning_effort":
		return req.ReasoningEffort
	default:
		if req.AdditionalParams != nil {
			return req.AdditionalParams[field]
		}
		return nil
	}
}

// dereference unwraps the pointer types the canonical request uses for
// optional numeric fields, so downstream clamping and JSON encoding deal in
// plain values.
func dereference(value interface{}) interface{} {
	switch v := value.(type) {
	case *float64:
		if v == nil {
			return nil
		}
		return *v
	case *int:
		if v == nil {
			return nil
		}
		return *v
	default:
		return value
	}
}

func clamp(value interface{}, min, max *float64) interface{} {
	if min == nil && max == nil {
		return value
	}
	f, ok := asFloat(value)
	if !ok {
		return value
	}
	if min != nil && f < *min {
		f = *min
	}
	if max != nil && f > *max {
		f = *max
	}
	return restoreType(value, f)
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case *float64:
		if v == nil {
			return 0, false
		}
		return *v, true
	case int:
		return float64(v), true
	case *int:
		if v == nil {
			return 0, false
		}
		return float64(*v), true
	default:
		return 0, false
	}
}

func restoreType(original interface{}, f float64) interface{} {
	switch original.(type) {
	case int, *int:
		i := int(f)
		return i
	default:
		return f
	}
}

// writeDottedPath writes value into body at a dotted path such as
// "parameters.top_p", creating intermediate maps as needed.
func writeDottedPath(body map[string]interface{}, path string, value interface{}) {
	segments := strings.Split(path, ".")
	cursor := body
	for i, seg := range segments {
		if i == len(segments)-1 {
			cursor[seg] = value
			return
		}
		next, ok := cursor[seg].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			cursor[seg] = next
		}
		cursor = next
	}
}

// ParseIndexSegment reports whether a dotted path segment is an array index
// (e.g. "0" in "inputs.0.data"), used by dialects such as Triton whose
// output paths address array elements.
func ParseIndexSegment(seg string) (int, bool) {
	i, err := strconv.Atoi(seg)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}
