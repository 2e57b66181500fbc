package classifier

import (
	"reflect"
	"strings"
)

// maxWalkDepth bounds the string-leaf walk so a deeply (or adversarially)
// nested error payload can't make classification unbounded.
const maxWalkDepth = 10

// matchFamily walks payload's string leaves looking for the first indicator
// family (in spec order) whose keyword appears anywhere, case-insensitive.
// It returns the matched family (the empty Family if none match, in which
// case statusFor resolves the status from statusHint) and the first
// string leaf encountered, used as the original message for client-error
// passthrough and server-error preservation.
func matchFamily(payload interface{}) (Family, string) {
	leaves := collectStringLeaves(payload, maxWalkDepth, make(map[uintptr]bool))
	joined := strings.ToLower(strings.Join(leaves, " \x00 "))

	for _, entry := range indicatorOrder {
		for _, kw := range entry.keywords {
			if strings.Contains(joined, kw) {
				return entry.family, firstNonEmpty(leaves)
			}
		}
	}

	return "", firstNonEmpty(leaves)
}

func firstNonEmpty(leaves []string) string {
	for _, l := range leaves {
		if l != "" {
			return l
		}
	}
	return ""
}

// collectStringLeaves recursively gathers every string value reachable from
// v, stopping at maxDepth and refusing to re-enter a pointer/map/slice
// already on the visited set so a cyclic payload terminates.
func collectStringLeaves(v interface{}, depth int, visited map[uintptr]bool) []string {
	if depth <= 0 || v == nil {
		return nil
	}

	rv := reflect.ValueOf(v)
	return walkValue(rv, depth, visited)
}

func walkValue(rv reflect.Value, depth int, visited map[uintptr]bool) []string {
	if depth <= 0 || !rv.IsValid() {
		return nil
	}

	switch rv.Kind() {
	case reflect.String:
		return []string{rv.String()}

	case reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return walkValue(rv.Elem(), depth, visited)

	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		ptr := rv.Pointer()
		if visited[ptr] {
			return nil
		}
		visited[ptr] = true
		return walkValue(rv.Elem(), depth-1, visited)

	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		ptr := rv.Pointer()
		if visited[ptr] {
			return nil
		}
		visited[ptr] = true
		var out []string
		for _, key := range rv.MapKeys() {
			out = append(out, walkValue(rv.MapIndex(key), depth-1, visited)...)
		}
		return out

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		var out []string
		for i := 0; i < rv.Len(); i++ {
			out = append(out, walkValue(rv.Index(i), depth-1, visited)...)
		}
		return out

	case reflect.Struct:
		var out []string
		for i := 0; i < rv.NumField(); i++ {
			if !rv.Field(i).CanInterface() {
				continue
			}
			out = append(out, walkValue(rv.Field(i), depth-1, visited)...)
		}
		return out

	default:
		return nil
	}
}
