package flow

import "strings"

// DefaultDecisionKey is the variable a DictCondition reads when no key is
// configured.
const DefaultDecisionKey = "decision"

// DictCondition routes on a decision value, e.g.
//
//	NewDictCondition(map[string]any{
//	    "approved": []string{"publish"},
//	    "rejected": "revise",
//	}, "")
//
// Route keys are matched case-insensitively. A bare string target is
// normalized to a single-element list. There is no implicit default route; a
// literal "default" key supplied by the caller behaves like any other key.
type DictCondition struct {
	routes map[string][]string
	key    string
}

// NewDictCondition creates a routing condition over the given routes. An
// empty key falls back to DefaultDecisionKey.
func NewDictCondition(routes map[string]any, key string) *DictCondition {
	if key == "" {
		key = DefaultDecisionKey
	}
	normalized := make(map[string][]string, len(routes))
	for k, raw := range routes {
		lk := strings.ToLower(k)
		switch target := raw.(type) {
		case string:
			normalized[lk] = []string{target}
		case []string:
			normalized[lk] = append([]string(nil), target...)
		case []any:
			normalized[lk] = toStringSlice(target)
		}
	}
	return &DictCondition{routes: normalized, key: key}
}

// Evaluate reports whether the lower-cased decision value is a known route.
func (c *DictCondition) Evaluate(vars map[string]any) bool {
	_, ok := c.match(vars)
	return ok
}

// Targets returns the route for the current decision value, or an empty list
// when the decision matches nothing.
func (c *DictCondition) Targets(vars map[string]any) []string {
	targets, ok := c.match(vars)
	if !ok {
		return []string{}
	}
	return append([]string(nil), targets...)
}

func (c *DictCondition) match(vars map[string]any) ([]string, bool) {
	raw, ok := vars[c.key]
	if !ok {
		return nil, false
	}
	decision := strings.ToLower(strings.TrimSpace(formatValue(raw)))
	targets, ok := c.routes[decision]
	return targets, ok
}
