package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Evaluate applies op to a field value. present is false when the lead has no
// value for the field; only not_in holds for an absent field.
func Evaluate(op Operator, field any, present bool, value any) bool {
	if !present {
		return op == OpNotIn
	}

	switch op {
	case OpEquals:
		return anyElement(field, func(f any) bool { return equals(f, value) })
	case OpContains:
		needle := strings.ToLower(stringify(value))
		return anyElement(field, func(f any) bool {
			return strings.Contains(strings.ToLower(stringify(f)), needle)
		})
	case OpGreaterThan, OpLessThan:
		a, okA := toNumber(field, true)
		b, okB := toNumber(value, true)
		if !okA || !okB {
			return false
		}
		if op == OpGreaterThan {
			return a > b
		}
		return a < b
	case OpIn:
		return inList(field, value)
	case OpNotIn:
		return !inList(field, value)
	}
	return false
}

func equals(field, value any) bool {
	a, okA := toNumber(field, false)
	b, okB := toNumber(value, false)
	if okA && okB {
		return a == b
	}
	return stringify(field) == stringify(value)
}

func inList(field, value any) bool {
	list := toList(value)
	return anyElement(field, func(f any) bool {
		s := stringify(f)
		for _, item := range list {
			if item == s {
				return true
			}
		}
		return false
	})
}

// anyElement applies fn to each element of a slice field, or to the scalar itself.
func anyElement(field any, fn func(any) bool) bool {
	switch v := field.(type) {
	case []string:
		for _, s := range v {
			if fn(s) {
				return true
			}
		}
		return false
	case []any:
		for _, s := range v {
			if fn(s) {
				return true
			}
		}
		return false
	default:
		return fn(field)
	}
}

// toList accepts a slice or a comma separated string.
func toList(value any) []string {
	switch v := value.(type) {
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			out = append(out, strings.TrimSpace(s))
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, s := range v {
			out = append(out, strings.TrimSpace(stringify(s)))
		}
		return out
	case string:
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	case nil:
		return nil
	default:
		return []string{stringify(v)}
	}
}

// toNumber converts numeric types. Numeric strings are accepted only when parseStrings is set.
func toNumber(v any, parseStrings bool) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case *float64:
		if n == nil {
			return 0, false
		}
		return *n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		if !parseStrings {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case LeadSource:
		return string(s)
	case LeadStatus:
		return string(s)
	case Priority:
		return string(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case []string:
		return strings.Join(s, ",")
	default:
		return fmt.Sprint(v)
	}
}
