package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstitute(t *testing.T) {
	vars := map[string]any{
		"name":  "Ada",
		"score": 92.0,
		"count": 3,
		"done":  true,
		"item":  map[string]any{"score": 87.5},
		"tags":  []string{"a", "b"},
	}

	tests := []struct {
		name string
		text string
		keep bool
		want string
	}{
		{"plain string", "Hello {{name}}", true, "Hello Ada"},
		{"integral float drops decimal", "score={{score}}", true, "score=92"},
		{"int", "n={{count}}", true, "n=3"},
		{"bool lower-cased", "done={{done}}", true, "done=true"},
		{"dot path", "item score is {{item.score}}", true, "item score is 87.5"},
		{"string slice joined", "tags: {{tags}}", true, "tags: a, b"},
		{"whitespace inside braces", "Hello {{ name }}", true, "Hello Ada"},
		{"missing kept literal", "Hello {{missing}}", true, "Hello {{missing}}"},
		{"missing substituted empty", "Hello {{missing}}", false, "Hello "},
		{"missing dot path kept", "v={{a.b.c}}", true, "v={{a.b.c}}"},
		{"multiple tokens", "{{name}} scored {{score}}", true, "Ada scored 92"},
		{"no tokens", "just text", true, "just text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, substitute(tt.text, vars, tt.keep))
		})
	}
}

func TestLookupPath(t *testing.T) {
	vars := map[string]any{
		"outer": map[string]any{
			"inner": map[string]string{"leaf": "value"},
		},
		"flat": 7,
	}

	v, ok := lookupPath(vars, "outer.inner.leaf")
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	v, ok = lookupPath(vars, "flat")
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	_, ok = lookupPath(vars, "outer.missing")
	assert.False(t, ok)

	// Descending through a non-map leaf fails rather than panicking.
	_, ok = lookupPath(vars, "flat.deeper")
	assert.False(t, ok)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", formatValue(nil))
	assert.Equal(t, "text", formatValue("text"))
	assert.Equal(t, "false", formatValue(false))
	assert.Equal(t, "42", formatValue(42))
	assert.Equal(t, "42", formatValue(int64(42)))
	assert.Equal(t, "3.14", formatValue(3.14))
	assert.Equal(t, "1, 2", formatValue([]any{1, 2}))
}
