package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anatolykoptev/go_edunote/internal/engine"
)

// Config controls candidate ordering and per-attempt bounds.
type Config struct {
	Languages         []string      // primary-source priority list
	FallbackLanguages []string      // caption-endpoint language list
	PrimaryTimeout    time.Duration // per primary attempt; 0 = bounded by ctx only
	FallbackTimeout   time.Duration // per caption-endpoint attempt
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		Languages:         DefaultLanguages,
		FallbackLanguages: DefaultFallbackLanguages,
		PrimaryTimeout:    20 * time.Second,
		FallbackTimeout:   8 * time.Second,
	}
}

// Fetcher walks primary then secondary candidates; the first usable one wins.
// It holds no mutable state and is safe for concurrent use.
type Fetcher struct {
	cfg       Config
	primary   Source
	secondary Source
}

// New creates a Fetcher. Either source may be nil, in which case its candidates are skipped.
func New(cfg Config, primary, secondary Source) *Fetcher {
	if cfg.Languages == nil {
		cfg.Languages = DefaultLanguages
	}
	if cfg.FallbackLanguages == nil {
		cfg.FallbackLanguages = DefaultFallbackLanguages
	}
	return &Fetcher{cfg: cfg, primary: primary, secondary: secondary}
}

// candidate is one (source, request) pair with its time bound.
type candidate struct {
	src     Source
	req     Request
	timeout time.Duration
}

// candidates returns the full ordered attempt list for videoID.
// Secondary candidates are language-major, uploaded before ASR.
func (f *Fetcher) candidates(videoID string, prefs []string) []candidate {
	var out []candidate
	if f.primary != nil {
		for _, lang := range BuildLanguageAttempts(prefs, f.cfg.Languages) {
			out = append(out, candidate{
				src:     f.primary,
				req:     Request{VideoID: videoID, Language: lang},
				timeout: f.cfg.PrimaryTimeout,
			})
		}
	}
	if f.secondary != nil {
		for _, lang := range f.cfg.FallbackLanguages {
			for _, kind := range []CaptionKind{KindUploaded, KindASR} {
				out = append(out, candidate{
					src:     f.secondary,
					req:     Request{VideoID: videoID, Language: lang, Kind: kind},
					timeout: f.cfg.FallbackTimeout,
				})
			}
		}
	}
	return out
}

// Fetch resolves ref to a video id and returns the first usable transcript.
// prefs may be empty, "auto", a single code or several codes.
// Errors: ErrInvalidReference (wrapped) or *UnavailableError.
func (f *Fetcher) Fetch(ctx context.Context, ref string, prefs ...string) (*Result, error) {
	engine.IncrTranscriptRequests()

	videoID, ok := ExtractReference(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}

	var (
		last     error
		attempts int
	)
	for _, c := range f.candidates(videoID, prefs) {
		if err := ctx.Err(); err != nil {
			last = err
			break
		}
		attempts++
		engine.IncrTranscriptAttempts()

		res, err := f.attempt(ctx, c)
		if err != nil {
			last = err
			slog.Warn("transcript: attempt failed",
				slog.String("id", videoID),
				slog.String("source", c.src.Name()),
				slog.String("lang", displayLang(c.req.Language)),
				slog.String("kind", string(c.req.Kind)),
				slog.Any("error", err))
			continue
		}

		res.URL = ref
		engine.IncrTranscriptResolved(c.src.Name())
		slog.Info("transcript: resolved",
			slog.String("id", videoID),
			slog.String("source", res.Provenance.Source),
			slog.String("lang", res.Provenance.Language),
			slog.Int("segments", res.Segments),
			slog.Int("attempts", attempts))
		return res, nil
	}

	engine.IncrTranscriptUnavailable()
	return nil, &UnavailableError{VideoID: videoID, Attempts: attempts, Last: last}
}

type attemptResult struct {
	segs []Segment
	err  error
}

// attempt runs one candidate under its timeout. A source that ignores ctx
// still cannot hold the pipeline past the bound.
func (f *Fetcher) attempt(ctx context.Context, c candidate) (*Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ch := make(chan attemptResult, 1)
	go func() {
		segs, err := c.src.Fetch(ctx, c.req)
		ch <- attemptResult{segs: segs, err: err}
	}()

	var r attemptResult
	select {
	case r = <-ch:
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", c.src.Name(), ctx.Err())
	}
	if r.err != nil {
		return nil, fmt.Errorf("%s: %w", c.src.Name(), r.err)
	}

	text := JoinSegments(r.segs)
	if len(r.segs) == 0 || text == "" {
		return nil, fmt.Errorf("%s: %w", c.src.Name(), errEmptyTranscript)
	}

	lang := c.req.Language
	if lang == LangDefault {
		lang = r.segs[0].Language
	}
	if lang == "" {
		lang = "unknown"
	}

	return &Result{
		VideoID:  c.req.VideoID,
		Text:     text,
		Segments: len(r.segs),
		Provenance: Provenance{
			Source:      c.src.Name(),
			Language:    lang,
			CaptionType: c.req.Kind,
		},
	}, nil
}

// JoinSegments concatenates segment texts with single spaces, collapsing
// whitespace runs and trimming the ends.
func JoinSegments(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		parts = append(parts, s.Text)
	}
	return CollapseSpace(strings.Join(parts, " "))
}

// CollapseSpace replaces every whitespace run with one space and trims.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func displayLang(code string) string {
	if code == LangDefault {
		return "default"
	}
	return code
}
