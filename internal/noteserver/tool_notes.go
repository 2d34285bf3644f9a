package noteserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_edunote/internal/engine/notes"
	"github.com/anatolykoptev/go_edunote/internal/toolutil"
)

// --- notes_generate ---

type GenerateInput struct {
	Transcript string `json:"transcript,omitempty" jsonschema:"Transcript text. Optional when url is given"`
	URL        string `json:"url,omitempty" jsonschema:"YouTube URL or video id; the transcript is fetched when transcript is empty"`
	Title      string `json:"title,omitempty" jsonschema:"Video title used in the prompt (default: Video)"`
	Languages  string `json:"languages,omitempty" jsonschema:"Comma-separated caption languages when fetching by url"`
}

type GenerateOutput struct {
	VideoID string       `json:"video_id,omitempty"`
	Title   string       `json:"title"`
	Notes   *notes.Notes `json:"notes"`
}

func registerGenerate(server *mcp.Server, t *tools) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "notes_generate",
		Description: "Generate structured study notes (summary, key points, sections, tags and a markdown rendering) from a transcript. Pass the transcript directly, or a YouTube url to fetch it first.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.generate)
}

func (t *tools) generate(ctx context.Context, _ *mcp.CallToolRequest, input GenerateInput) (*mcp.CallToolResult, GenerateOutput, error) {
	text := strings.TrimSpace(input.Transcript)
	out := GenerateOutput{Title: strings.TrimSpace(input.Title)}

	if text == "" {
		if input.URL == "" {
			return nil, GenerateOutput{}, errors.New("transcript or url is required")
		}
		res, err := t.deps.Fetcher.Fetch(ctx, input.URL, toolutil.SplitLangs(input.Languages)...)
		if err != nil {
			return nil, GenerateOutput{}, fmt.Errorf("transcript fetch failed: %w", err)
		}
		text = res.Text
		out.VideoID = res.VideoID
	}
	if out.Title == "" {
		out.Title = "Video"
	}

	n, err := t.deps.Notes.Generate(ctx, text, out.Title)
	if err != nil {
		slog.Warn("notes_generate failed", slog.Any("error", err))
		return nil, GenerateOutput{}, fmt.Errorf("notes generation failed: %w", err)
	}
	out.Notes = n
	return nil, out, nil
}

// --- notes_summarize ---

type SummarizeInput struct {
	Text      string `json:"text" jsonschema:"Text to summarize; only the first 3000 characters are used"`
	MaxLength int    `json:"max_length,omitempty" jsonschema:"Maximum summary length in characters (default 200)"`
}

type SummarizeOutput struct {
	Summary string `json:"summary"`
}

func registerSummarize(server *mcp.Server, t *tools) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "notes_summarize",
		Description: "Summarize text in one concise sentence. Fast preview for a transcript or note.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.summarize)
}

func (t *tools) summarize(ctx context.Context, _ *mcp.CallToolRequest, input SummarizeInput) (*mcp.CallToolResult, SummarizeOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, SummarizeOutput{}, errors.New("text is required")
	}
	s, err := t.deps.Notes.Summarize(ctx, input.Text, input.MaxLength)
	if err != nil {
		return nil, SummarizeOutput{}, err
	}
	return nil, SummarizeOutput{Summary: s}, nil
}

// --- notes_translate ---

type TranslateInput struct {
	Text           string `json:"text" jsonschema:"Text to translate"`
	TargetLanguage string `json:"target_language" jsonschema:"Target language code: en, es, fr, de, hi, zh, ja, ko, ar, pt, ru, it"`
	SourceLanguage string `json:"source_language,omitempty" jsonschema:"Source language code (default: auto-detect)"`
}

func registerTranslate(server *mcp.Server, t *tools) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "notes_translate",
		Description: "Translate text into one of the supported languages. Never fails on model errors: fallback=true means the original text is returned untranslated.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.translate)
}

func (t *tools) translate(ctx context.Context, _ *mcp.CallToolRequest, input TranslateInput) (*mcp.CallToolResult, notes.Translation, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, notes.Translation{}, errors.New("text is required")
	}
	target := strings.ToLower(strings.TrimSpace(input.TargetLanguage))
	if _, ok := notes.LanguageName(target); !ok {
		return nil, notes.Translation{}, fmt.Errorf("unsupported target_language %q", input.TargetLanguage)
	}
	tr := t.deps.Notes.Translate(ctx, input.Text, target, toolutil.NormLang(input.SourceLanguage))
	return nil, *tr, nil
}

// --- notes_languages ---

type LanguagesInput struct{}

type LanguagesOutput struct {
	Languages []notes.Language `json:"languages"`
}

func registerLanguages(server *mcp.Server, t *tools) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "notes_languages",
		Description: "List the language codes accepted by notes_translate.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.languages)
}

func (t *tools) languages(context.Context, *mcp.CallToolRequest, LanguagesInput) (*mcp.CallToolResult, LanguagesOutput, error) {
	return nil, LanguagesOutput{Languages: notes.SupportedLanguages()}, nil
}
