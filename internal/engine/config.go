package engine

import (
	"net/http"
	"time"
)

// Config holds the shared engine configuration, built in main and passed
// explicitly to every constructor that needs it.
type Config struct {
	LLMAPIKey            string
	LLMAPIKeyFallbacks   []string
	LLMAPIBase           string
	LLMModel             string
	LLMTemperature       float64
	LLMMaxTokens         int
	LLMTimeout           time.Duration
	MaxTranscriptChars   int // transcript budget per generation prompt
	CacheTTL             time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	RedisURL             string // empty = L1 only
	HTTPClient           *http.Client
	BrowserClient        *BrowserClient // nil = plain HTTP client for watch pages
	Retry                RetryConfig
}

// Defaults fills zero fields with production defaults.
func (c Config) Defaults() Config {
	if c.LLMAPIBase == "" {
		c.LLMAPIBase = "https://generativelanguage.googleapis.com/v1beta/openai"
	}
	if c.LLMModel == "" {
		c.LLMModel = "gemini-2.5-flash"
	}
	if c.LLMMaxTokens == 0 {
		c.LLMMaxTokens = 8192
	}
	if c.LLMTimeout == 0 {
		c.LLMTimeout = 60 * time.Second
	}
	if c.MaxTranscriptChars == 0 {
		c.MaxTranscriptChars = 12000
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 15 * time.Minute
	}
	if c.HTTPClient == nil {
		c.HTTPClient = NewHTTPClient(15 * time.Second)
	}
	if c.Retry == (RetryConfig{}) {
		c.Retry = DefaultRetryConfig
	}
	return c
}
