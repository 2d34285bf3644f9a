package engine

import (
	"context"
	"errors"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\nhello\n```", "hello"},
		{"no fence", "  plain  ", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.raw); got != tt.want {
				t.Errorf("StripFences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"exact", `{"summary":"x"}`, `{"summary":"x"}`},
		{"prose around", `Here you go: {"a":{"b":1}} thanks`, `{"a":{"b":1}}`},
		{"brace in string", `{"s":"a } b"}`, `{"s":"a } b"}`},
		{"escaped quote", `{"s":"say \"}\" now"}`, `{"s":"say \"}\" now"}`},
		{"escaped backslash", `{"s":"back\\"}tail`, `{"s":"back\\"}`},
		{"script tail", `{"a":1};var x = {"b":2};`, `{"a":1}`},
		{"unclosed", `{"s":"x"`, ""},
		{"none", "no json here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSONObject(tt.raw); got != tt.want {
				t.Errorf("ExtractJSONObject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLLMDisabled(t *testing.T) {
	l := NewLLM(Config{})
	if _, err := l.Complete(context.Background(), "", "hi"); !errors.Is(err, ErrLLMDisabled) {
		t.Errorf("expected ErrLLMDisabled, got %v", err)
	}
}
