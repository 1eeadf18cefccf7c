package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		strategy Strategy
		expected string
		used     Strategy
	}{
		{"auto multi word is quoted", "funções lsp", StrategyAuto, `"funções lsp"`, StrategyQuoted},
		{"auto single word passes through", "dataset", StrategyAuto, "dataset", StrategyPassthrough},
		{"auto surrounding whitespace is not inner", "  dataset  ", StrategyAuto, "  dataset  ", StrategyPassthrough},
		{"quoted wraps", "funções lsp", StrategyQuoted, `"funções lsp"`, StrategyQuoted},
		{"quoted single word", "dataset", StrategyQuoted, `"dataset"`, StrategyQuoted},
		{"and joins terms", "funções lsp", StrategyAnd, "funções AND lsp", StrategyAnd},
		{"and collapses whitespace", "  a \t b\n c ", StrategyAnd, "a AND b AND c", StrategyAnd},
		{"and single term", "dataset", StrategyAnd, "dataset", StrategyAnd},
		{"empty auto", "", StrategyAuto, "", StrategyPassthrough},
		{"whitespace auto", "   ", StrategyAuto, "", StrategyPassthrough},
		{"empty quoted", "", StrategyQuoted, "", StrategyQuoted},
		{"whitespace and", " \t ", StrategyAnd, "", StrategyAnd},
		{"unknown behaves like auto", "a b", Strategy("fuzzy"), `"a b"`, StrategyQuoted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Resolve(tt.query, tt.strategy))

			literal, used := ResolveWithStrategy(tt.query, tt.strategy)
			assert.Equal(t, tt.expected, literal)
			assert.Equal(t, tt.used, used)
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	for _, s := range Strategies() {
		assert.Equal(t, Resolve("processo de workflow", s), Resolve("processo de workflow", s))
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		input   string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyAuto, false},
		{"auto", StrategyAuto, false},
		{"QUOTED", StrategyQuoted, false},
		{" and ", StrategyAnd, false},
		{"or", "", true},
		{"passthrough", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStrategy(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownStrategy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsMultiWord(t *testing.T) {
	assert.True(t, IsMultiWord("a b"))
	assert.True(t, IsMultiWord("a\tb"))
	assert.False(t, IsMultiWord(" ab "))
	assert.False(t, IsMultiWord(""))
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"nil", nil, ""},
		{"string trimmed", "  BPM ", "BPM"},
		{"single element list", []any{"BPM"}, "BPM"},
		{"nested list", []any{[]any{"ECM"}}, "ECM"},
		{"string slice", []string{"Workflow", "x"}, "Workflow"},
		{"empty list", []any{}, ""},
		{"float", 12.0, "12"},
		{"fraction", 1.5, "1.5"},
		{"int", 7, "7"},
		{"bool", true, "true"},
		{"json number", json.Number("42"), "42"},
		{"object", map[string]any{"a": 1}, ""},
		{"float32", float32(2.5), "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Coerce(tt.input))
		})
	}
}

func TestCoerceInt(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   int
		wantOK bool
	}{
		{"nil", nil, 0, false},
		{"float whole", 5.0, 5, true},
		{"float fraction", 5.5, 0, false},
		{"numeric string", "20", 20, true},
		{"list", []any{"3"}, 3, true},
		{"word", "ten", 0, false},
		{"json number", json.Number("8"), 8, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceInt(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromArgs(t *testing.T) {
	defaults := Defaults{Limit: 10, MaxLimit: 50}

	tests := []struct {
		name string
		args map[string]any
		want Request
	}{
		{
			name: "defaults",
			args: map[string]any{"query": "workflow"},
			want: Request{Query: "workflow", Strategy: StrategyAuto, Limit: 10},
		},
		{
			name: "list shaped values from a tool client",
			args: map[string]any{"query": []any{"funções lsp"}, "module": []any{"BPM"}, "strategy": []any{"and"}, "limit": []any{5.0}},
			want: Request{Query: "funções lsp", Strategy: StrategyAnd, Limit: 5, Module: "BPM"},
		},
		{
			name: "q alias and string limit",
			args: map[string]any{"q": "dataset", "limit": "3"},
			want: Request{Query: "dataset", Strategy: StrategyAuto, Limit: 3},
		},
		{
			name: "zero limit takes default",
			args: map[string]any{"query": "x", "limit": 0.0},
			want: Request{Query: "x", Strategy: StrategyAuto, Limit: 10},
		},
		{
			name: "limit clamped to max",
			args: map[string]any{"query": "x", "limit": 1000.0},
			want: Request{Query: "x", Strategy: StrategyAuto, Limit: 50},
		},
		{
			name: "empty query allowed",
			args: map[string]any{},
			want: Request{Strategy: StrategyAuto, Limit: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromArgs(tt.args, defaults)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromArgs_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{"unknown strategy", map[string]any{"query": "x", "strategy": "fuzzy"}},
		{"negative limit", map[string]any{"query": "x", "limit": -1.0}},
		{"non numeric limit", map[string]any{"query": "x", "limit": "many"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromArgs(tt.args, DefaultDefaults())
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestRequestValidate(t *testing.T) {
	assert.NoError(t, Request{Strategy: StrategyAnd, Limit: 1}.Validate())
	assert.ErrorIs(t, Request{Strategy: StrategyAnd, Limit: 0}.Validate(), ErrInvalidRequest)
	assert.ErrorIs(t, Request{Strategy: StrategyPassthrough, Limit: 1}.Validate(), ErrInvalidRequest)
}
