package jsonx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`, true},
		{"surrounded by prose", `Sure! Here it is: {"a": 1} hope that helps.`, `{"a": 1}`, true},
		{"markdown fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`, true},
		{"nested objects", `{"a": {"b": {"c": 3}}}`, `{"a": {"b": {"c": 3}}}`, true},
		{"brace inside string", `{"text": "closing } brace"}`, `{"text": "closing } brace"}`, true},
		{"escaped quote inside string", `{"text": "she said \"}\" loudly"}`, `{"text": "she said \"}\" loudly"}`, true},
		{"unterminated", `{"a": 1`, "", false},
		{"no object", "plain text only", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstObject(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstArray(t *testing.T) {
	got, ok := FirstArray(`The steps are [1, [2, 3], 4] as listed.`)
	require.True(t, ok)
	assert.Equal(t, `[1, [2, 3], 4]`, got)

	_, ok = FirstArray("no array here")
	assert.False(t, ok)
}

func TestDecodeFirstObject(t *testing.T) {
	var out struct {
		Complexity string `json:"complexity"`
		Domain     string `json:"domain"`
	}

	err := DecodeFirstObject(`verdict: {"complexity": "simple", "domain": "coding"}`, &out)
	require.NoError(t, err)
	assert.Equal(t, "simple", out.Complexity)
	assert.Equal(t, "coding", out.Domain)
}

func TestDecodeFirstObject_RepairsMalformedJSON(t *testing.T) {
	// Trailing commas and single quotes are the most common model mistakes.
	var out struct {
		Name string   `json:"name"`
		Tags []string `json:"tags"`
	}

	err := DecodeFirstObject(`{'name': 'core', 'tags': ['a', 'b',],}`, &out)
	require.NoError(t, err)
	assert.Equal(t, "core", out.Name)
	assert.Equal(t, []string{"a", "b"}, out.Tags)
}

func TestDecodeFirstObject_NoJSON(t *testing.T) {
	var out map[string]any
	err := DecodeFirstObject("I could not produce a plan, sorry.", &out)
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestDecodeFirstArray(t *testing.T) {
	var out []int
	err := DecodeFirstArray("counts: [1, 2, 3]", &out)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, out)

	err = DecodeFirstArray("nothing structured", &out)
	assert.ErrorIs(t, err, ErrNoJSON)
}
