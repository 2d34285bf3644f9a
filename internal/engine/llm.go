package engine

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anatolykoptev/go-kit/llm"
)

// ErrLLMDisabled is returned when no API key is configured.
var ErrLLMDisabled = errors.New("llm: no API key configured")

// LLM wraps the go-kit client with metrics and output cleanup.
type LLM struct {
	client *llm.Client
}

// NewLLM builds the client from engine config. A missing key yields an LLM
// whose calls fail with ErrLLMDisabled.
func NewLLM(c Config) *LLM {
	if c.LLMAPIKey == "" {
		return &LLM{}
	}
	return &LLM{client: llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
		llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
		llm.WithMaxTokens(c.LLMMaxTokens),
		llm.WithTemperature(c.LLMTemperature),
		llm.WithHTTPClient(&http.Client{Timeout: c.LLMTimeout}),
	)}
}

// Complete sends one system+user prompt pair and returns the reply with code fences removed.
func (l *LLM) Complete(ctx context.Context, system, prompt string) (string, error) {
	if l == nil || l.client == nil {
		return "", ErrLLMDisabled
	}
	metrics.LLMCalls.Add(1)
	resp, err := l.client.Complete(ctx, system, prompt)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return "", err
	}
	return StripFences(resp), nil
}

// StripFences removes markdown code fences from LLM output.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject returns the first balanced {...} object in s, or "" if none.
// Tolerates prose the model wraps around its JSON.
func ExtractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inStr := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
