// Package notes turns transcripts into structured study notes, previews and
// translations with an LLM.
package notes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anatolykoptev/go_edunote/internal/engine"
	"github.com/anatolykoptev/go_edunote/internal/store"
)

// Transcript excerpt limits.
const (
	DefaultMaxChars = 12000
	summaryChars    = 3000
	truncatedMarker = " ...(truncated)"
	defaultTitle    = "Video"
	slowGeneration  = 30 * time.Second
)

var (
	ErrEmptyTranscript = errors.New("notes: transcript is required")
	ErrInvalidNotes    = errors.New("notes: invalid notes structure")
)

// Completer is the LLM call the generator needs. *engine.LLM satisfies it.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Generator produces notes. Generated notes are cached by title and transcript hash.
type Generator struct {
	llm      Completer
	cache    *engine.Cache
	maxChars int
}

// New returns a Generator. cache may be nil; maxChars <= 0 uses DefaultMaxChars.
func New(llm Completer, cache *engine.Cache, maxChars int) *Generator {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Generator{llm: llm, cache: cache, maxChars: maxChars}
}

// Notes is the generated result.
type Notes struct {
	Summary     string          `json:"summary"`
	KeyPoints   []string        `json:"keyPoints"`
	Sections    []store.Section `json:"sections"`
	Tags        []string        `json:"tags"`
	FullContent string          `json:"fullContent"`
}

// Structured returns the stored form of the notes.
func (n *Notes) Structured() store.Structured {
	return store.Structured{Summary: n.Summary, KeyPoints: n.KeyPoints, Sections: n.Sections}
}

// Generate asks the model for structured notes about transcript.
// The model reply must carry summary, keyPoints and sections.
func (g *Generator) Generate(ctx context.Context, transcript, title string) (*Notes, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, ErrEmptyTranscript
	}
	if strings.TrimSpace(title) == "" {
		title = defaultTitle
	}

	key := engine.CacheKey("notes", contentHash(title, transcript))
	if cached, ok := engine.CacheLoadJSON[Notes](ctx, g.cache, key); ok {
		return &cached, nil
	}

	prompt := fmt.Sprintf(notesPrompt, title, excerpt(transcript, g.maxChars, truncatedMarker))
	var raw string
	err := engine.TrackOperation(ctx, "notes_generate", slowGeneration, func(ctx context.Context) error {
		var err error
		raw, err = g.llm.Complete(ctx, systemNotes, prompt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("generate notes: %w", err)
	}
	n, err := parseNotes(raw)
	if err != nil {
		slog.Warn("notes: unusable model reply", slog.Int("len", len(raw)), slog.Any("error", err))
		return nil, err
	}

	engine.IncrNotesGenerated()
	engine.CacheStoreJSON(ctx, g.cache, key, *n)
	return n, nil
}

// parseNotes decodes the model reply. nil slices after decoding mean the
// field was missing or null.
func parseNotes(raw string) (*Notes, error) {
	body := engine.ExtractJSONObject(engine.StripFences(raw))
	if body == "" {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrInvalidNotes)
	}
	var n Notes
	if err := json.Unmarshal([]byte(body), &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNotes, err)
	}
	if strings.TrimSpace(n.Summary) == "" || n.KeyPoints == nil || n.Sections == nil {
		return nil, fmt.Errorf("%w: summary, keyPoints and sections are required", ErrInvalidNotes)
	}
	n.Tags = engine.NormalizeTags(n.Tags)
	n.FullContent = FullContent(n.Summary, n.KeyPoints, n.Sections)
	return &n, nil
}

// FullContent renders notes as markdown.
func FullContent(summary string, keyPoints []string, sections []store.Section) string {
	var sb strings.Builder
	sb.WriteString("# Summary\n\n")
	sb.WriteString(summary)
	sb.WriteString("\n\n# Key Points\n\n")
	for i, p := range keyPoints {
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString(". ")
		sb.WriteString(p)
		sb.WriteByte('\n')
	}
	sb.WriteString("\n# Detailed Notes\n\n")
	for _, s := range sections {
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n", s.Heading, s.Content)
	}
	return sb.String()
}

// Summarize returns a one-sentence preview of the first 3000 characters of text.
func (g *Generator) Summarize(ctx context.Context, text string, maxLength int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyTranscript
	}
	if maxLength <= 0 {
		maxLength = 200
	}
	prompt := fmt.Sprintf(summaryPrompt, maxLength, excerpt(text, summaryChars, ""))
	out, err := g.llm.Complete(ctx, systemSummary, prompt)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return engine.TruncateAtWord(strings.Trim(strings.TrimSpace(out), `"`), maxLength), nil
}

// excerpt cuts s to limit runes and appends marker when it did.
func excerpt(s string, limit int, marker string) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + marker
}

func contentHash(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}
