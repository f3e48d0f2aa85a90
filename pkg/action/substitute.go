package action

import "regexp"

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// substituteValue walks v recursively, replacing {{name}} placeholders in
// every string it finds. Maps and slices are rebuilt at any depth; other
// values pass through untouched.
func substituteValue(v any, vars map[string]string) any {
	switch t := v.(type) {
	case string:
		return substituteString(t, vars)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = substituteValue(item, vars)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = substituteValue(item, vars)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, s := range t {
			out[i] = substituteString(s, vars)
		}
		return out
	default:
		return v
	}
}

func substituteString(s string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if val, ok := vars[name]; ok {
			return val
		}
		// Unresolved placeholders stay verbatim.
		return match
	})
}
