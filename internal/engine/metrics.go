package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	TranscriptRequests    atomic.Int64
	TranscriptAttempts    atomic.Int64
	TranscriptResolved    atomic.Int64
	TranscriptUnavailable atomic.Int64
	TranscriptFallback    atomic.Int64 // resolved by the caption endpoint
	LLMCalls              atomic.Int64
	LLMErrors             atomic.Int64
	NotesGenerated        atomic.Int64
	Translations          atomic.Int64
	TranslationFallbacks  atomic.Int64
	Exports               atomic.Int64
}

// metricKeys fixes the output order of FormatMetrics.
var metricKeys = []string{
	"transcript_requests", "transcript_attempts",
	"transcript_resolved", "transcript_unavailable", "transcript_fallback",
	"llm_calls", "llm_errors",
	"notes_generated", "translations", "translation_fallbacks",
	"exports",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"transcript_requests":    metrics.TranscriptRequests.Load(),
		"transcript_attempts":    metrics.TranscriptAttempts.Load(),
		"transcript_resolved":    metrics.TranscriptResolved.Load(),
		"transcript_unavailable": metrics.TranscriptUnavailable.Load(),
		"transcript_fallback":    metrics.TranscriptFallback.Load(),
		"llm_calls":              metrics.LLMCalls.Load(),
		"llm_errors":             metrics.LLMErrors.Load(),
		"notes_generated":        metrics.NotesGenerated.Load(),
		"translations":           metrics.Translations.Load(),
		"translation_fallbacks":  metrics.TranslationFallbacks.Load(),
		"exports":                metrics.Exports.Load(),
		"cache_hits":             hits,
		"cache_misses":           misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for the transcript package.
func IncrTranscriptRequests()    { metrics.TranscriptRequests.Add(1) }
func IncrTranscriptAttempts()    { metrics.TranscriptAttempts.Add(1) }
func IncrTranscriptUnavailable() { metrics.TranscriptUnavailable.Add(1) }

// IncrTranscriptResolved counts a success; anything but the primary source is a fallback.
func IncrTranscriptResolved(source string) {
	metrics.TranscriptResolved.Add(1)
	if source != SourceInnertube {
		metrics.TranscriptFallback.Add(1)
	}
}

// Incrementors for notes and export.
func IncrNotesGenerated()       { metrics.NotesGenerated.Add(1) }
func IncrTranslations()         { metrics.Translations.Add(1) }
func IncrTranslationFallbacks() { metrics.TranslationFallbacks.Add(1) }
func IncrExports()              { metrics.Exports.Add(1) }

// SourceInnertube is the name reported by the primary transcript source.
const SourceInnertube = "innertube"

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	if elapsed := time.Since(start); elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
