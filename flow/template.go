package flow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// tokenPattern matches {{var}} tokens, including dot-path references such as
// {{item.score}}.
var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+)*)\s*\}\}`)

// substitute replaces every {{token}} in text with its value from vars.
// Dot paths descend into nested maps. When keepUnresolved is true a missing
// variable leaves the token as literal text (action templates); when false it
// substitutes to the empty string (condition expressions).
func substitute(text string, vars map[string]any, keepUnresolved bool) string {
	return tokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		path := tokenPattern.FindStringSubmatch(token)[1]
		value, ok := lookupPath(vars, path)
		if !ok {
			if keepUnresolved {
				return token
			}
			return ""
		}
		return formatValue(value)
	})
}

// lookupPath resolves a dot path against nested maps. A map[string]string
// leaf is supported for the final segment.
func lookupPath(vars map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = vars
	for _, seg := range segments {
		switch m := current.(type) {
		case map[string]any:
			v, ok := m[seg]
			if !ok {
				return nil, false
			}
			current = v
		case map[string]string:
			v, ok := m[seg]
			if !ok {
				return nil, false
			}
			current = v
		default:
			return nil, false
		}
	}
	return current, true
}

// formatValue renders a variable for template substitution: booleans are
// lower-cased, floats drop a trailing ".0" when integral, everything else is
// its natural string form.
func formatValue(v any) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case string:
		return vv
	case bool:
		return strconv.FormatBool(vv)
	case int:
		return strconv.Itoa(vv)
	case int64:
		return strconv.FormatInt(vv, 10)
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(vv), 'f', -1, 32)
	case []string:
		return strings.Join(vv, ", ")
	case []any:
		parts := make([]string, 0, len(vv))
		for _, item := range vv {
			parts = append(parts, formatValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", vv)
	}
}
