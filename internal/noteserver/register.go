// Package noteserver exposes transcript fetching and note generation as MCP tools.
package noteserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_edunote/internal/engine/notes"
	"github.com/anatolykoptev/go_edunote/internal/engine/transcript"
)

// TranscriptFetcher resolves a transcript. *transcript.Fetcher satisfies it.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, ref string, prefs ...string) (*transcript.Result, error)
}

// NoteWriter is the LLM-backed side. *notes.Generator satisfies it.
type NoteWriter interface {
	Generate(ctx context.Context, transcript, title string) (*notes.Notes, error)
	Summarize(ctx context.Context, text string, maxLength int) (string, error)
	Translate(ctx context.Context, text, target, source string) *notes.Translation
}

// Deps are the services behind the tools. Notes may be nil, in which case
// only youtube_transcript and notes_languages are registered.
type Deps struct {
	Fetcher TranscriptFetcher
	Notes   NoteWriter
}

type tools struct {
	deps Deps
}

// RegisterTools registers the EduNote tools on the given MCP server:
// youtube_transcript, notes_languages and, with a NoteWriter,
// notes_generate, notes_summarize, notes_translate.
func RegisterTools(server *mcp.Server, deps Deps) {
	t := &tools{deps: deps}
	registerTranscript(server, t)
	registerLanguages(server, t)
	if deps.Notes == nil {
		return
	}
	registerGenerate(server, t)
	registerSummarize(server, t)
	registerTranslate(server, t)
}
