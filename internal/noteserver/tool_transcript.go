package noteserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_edunote/internal/engine/transcript"
	"github.com/anatolykoptev/go_edunote/internal/toolutil"
)

type TranscriptInput struct {
	URL       string `json:"url" jsonschema:"YouTube URL or 11-character video id"`
	Languages string `json:"languages,omitempty" jsonschema:"Comma-separated preferred caption languages, tried in order (e.g. es,en). Use auto for the video default"`
	MaxChars  int    `json:"max_chars,omitempty" jsonschema:"Cap the returned transcript at this many characters (default: no cap)"`
}

type TranscriptOutput struct {
	VideoID    string                `json:"video_id"`
	URL        string                `json:"url"`
	Transcript string                `json:"transcript"`
	Segments   int                   `json:"transcript_segments"`
	Provenance transcript.Provenance `json:"provenance"`
	Truncated  bool                  `json:"truncated,omitempty"`
}

func registerTranscript(server *mcp.Server, t *tools) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcript",
		Description: "Fetch the plain-text transcript of a YouTube video. Tries the player caption tracks first, then the public caption endpoint, across the preferred languages and English fallbacks. Returns the text plus which source, language and caption type answered.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.transcript)
}

func (t *tools) transcript(ctx context.Context, _ *mcp.CallToolRequest, input TranscriptInput) (*mcp.CallToolResult, TranscriptOutput, error) {
	if input.URL == "" {
		return nil, TranscriptOutput{}, errors.New("url is required")
	}
	res, err := t.deps.Fetcher.Fetch(ctx, input.URL, toolutil.SplitLangs(input.Languages)...)
	if err != nil {
		if errors.Is(err, transcript.ErrNoTranscript) {
			slog.Info("youtube_transcript: unavailable", slog.String("url", input.URL))
		}
		return nil, TranscriptOutput{}, fmt.Errorf("transcript fetch failed: %w", err)
	}

	text, cut := toolutil.Clip(res.Text, input.MaxChars)
	return nil, TranscriptOutput{
		VideoID:    res.VideoID,
		URL:        res.URL,
		Transcript: text,
		Segments:   res.Segments,
		Provenance: res.Provenance,
		Truncated:  cut,
	}, nil
}
