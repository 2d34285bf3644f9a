package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anatolykoptev/go_edunote/internal/engine"
	"github.com/anatolykoptev/go_edunote/internal/engine/transcript"
)

func testYouTubeConfig(base string) YouTubeConfig {
	return YouTubeConfig{
		BaseURL:    base,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		Retry:      engine.NoRetry,
	}
}

func TestCaptionLineValue(t *testing.T) {
	tests := []struct {
		name string
		line captionLine
		want string
	}{
		{"content", captionLine{Content: "hello"}, "hello"},
		{"attribute", captionLine{Attr: "from attr"}, "from attr"},
		{"content wins", captionLine{Content: "body", Attr: "attr"}, "body"},
		{"blank content falls back", captionLine{Content: "  \n ", Attr: "attr"}, "attr"},
		{"entities", captionLine{Content: "it&#39;s &quot;fine&quot;"}, `it's "fine"`},
		{"markup", captionLine{Content: `<font color="#E5E5E5">so</font> what`}, "so what"},
		{"whitespace", captionLine{Content: " a\n\n b  "}, "a b"},
		{"escaped comparison", captionLine{Content: "if a &lt; b then b &gt; a"}, "if a < b then b > a"},
		{"bare angle brackets", captionLine{Content: "x < y and y > z"}, "x < y and y > z"},
		{"single entity layer", captionLine{Content: "&amp;lt;"}, "&lt;"},
		{"inline tag inside word", captionLine{Content: "wor<b>d</b>s"}, "words"},
		{"line break", captionLine{Content: "one<br/>two"}, "one two"},
		{"empty", captionLine{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.line.Value(); got != tt.want {
				t.Errorf("Value() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTimedText(t *testing.T) {
	t.Run("content and attribute placements", func(t *testing.T) {
		body := `<?xml version="1.0" encoding="utf-8" ?><transcript>` +
			`<text start="0.5" dur="1.25">foo</text>` +
			`<text start="2" dur="1" text="bar"/>` +
			`<text start="3" dur="1">   </text>` +
			`</transcript>`
		segs, err := parseTimedText([]byte(body), "en")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(segs) != 2 {
			t.Fatalf("got %d segments, want 2", len(segs))
		}
		if segs[0].Text != "foo" || segs[1].Text != "bar" {
			t.Errorf("texts = %q, %q", segs[0].Text, segs[1].Text)
		}
		if segs[0].Start != 500*time.Millisecond || segs[0].Duration != 1250*time.Millisecond {
			t.Errorf("timing = %v/%v", segs[0].Start, segs[0].Duration)
		}
		if segs[1].Language != "en" {
			t.Errorf("language = %q", segs[1].Language)
		}
	})

	t.Run("double escaped entities", func(t *testing.T) {
		body := `<transcript>` +
			`<text start="0" dur="1">if a &amp;lt; b it&amp;#39;s &lt;font color="#fff"&gt;fine&lt;/font&gt;</text>` +
			`</transcript>`
		segs, err := parseTimedText([]byte(body), "en")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(segs) != 1 || segs[0].Text != "if a < b it's fine" {
			t.Errorf("segments = %+v", segs)
		}
	})

	t.Run("srv3", func(t *testing.T) {
		body := `<timedtext format="3"><body>` +
			`<p t="0" d="1500"><s>Hello</s><s> there</s></p>` +
			`<p t="1500" d="900">general</p>` +
			`</body></timedtext>`
		segs, err := parseTimedText([]byte(body), "en")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := transcript.JoinSegments(segs); got != "Hello there general" {
			t.Errorf("joined = %q", got)
		}
		if segs[1].Start != 1500*time.Millisecond {
			t.Errorf("start = %v", segs[1].Start)
		}
	})

	t.Run("no text nodes", func(t *testing.T) {
		_, err := parseTimedText([]byte(`<transcript></transcript>`), "en")
		if !errors.Is(err, errNoTextNodes) {
			t.Errorf("expected errNoTextNodes, got %v", err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		if _, err := parseTimedText([]byte(""), "en"); err == nil {
			t.Error("expected error for empty body")
		}
		if _, err := parseTimedText([]byte("<transcript><text>"), "en"); err == nil {
			t.Error("expected error for truncated XML")
		}
	})
}

func TestTimedTextURL(t *testing.T) {
	s := NewTimedText(testYouTubeConfig("https://yt.example"))
	got := s.URL(transcript.Request{VideoID: "dQw4w9WgXcQ", Language: "en-US", Kind: transcript.KindASR})
	want := "https://yt.example/api/timedtext?lang=en-US&type=asr&v=dQw4w9WgXcQ"
	if got != want {
		t.Errorf("URL = %q, want %q", got, want)
	}
	got = s.URL(transcript.Request{VideoID: "dQw4w9WgXcQ", Language: "en", Kind: transcript.KindUploaded})
	want = "https://yt.example/api/timedtext?lang=en&v=dQw4w9WgXcQ"
	if got != want {
		t.Errorf("URL = %q, want %q", got, want)
	}
}

func TestTimedTextFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/timedtext" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		switch {
		case q.Get("lang") == "en" && q.Get("type") == "":
			w.Write([]byte(`<transcript><text start="0" dur="1">foo</text><text start="1" dur="1">bar</text></transcript>`))
		case q.Get("lang") == "en" && q.Get("type") == "asr":
			w.Write([]byte(""))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := NewTimedText(testYouTubeConfig(srv.URL))
	ctx := context.Background()

	segs, err := s.Fetch(ctx, transcript.Request{VideoID: "dQw4w9WgXcQ", Language: "en", Kind: transcript.KindUploaded})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := transcript.JoinSegments(segs); got != "foo bar" {
		t.Errorf("joined = %q", got)
	}

	if _, err := s.Fetch(ctx, transcript.Request{VideoID: "dQw4w9WgXcQ", Language: "en", Kind: transcript.KindASR}); err == nil {
		t.Error("empty body must fail")
	}

	_, err = s.Fetch(ctx, transcript.Request{VideoID: "dQw4w9WgXcQ", Language: "de", Kind: transcript.KindUploaded})
	var se *engine.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 status error, got %v", err)
	}
}

func TestTimedTextHonorsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	s := NewTimedText(testYouTubeConfig(srv.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := s.Fetch(ctx, transcript.Request{VideoID: "dQw4w9WgXcQ", Language: "en"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("fetch blocked for %v", elapsed)
	}
}

// Pipeline-level: primary exhausts, caption endpoint "en" uploaded answers.
func TestFetcherFallsBackToTimedText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/timedtext" && r.URL.Query().Get("lang") == "en" && r.URL.Query().Get("type") == "" {
			w.Write([]byte(`<transcript><text>foo</text><text>bar</text></transcript>`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := testYouTubeConfig(srv.URL)
	f := transcript.New(transcript.Config{
		Languages:         []string{"en", "es"},
		FallbackLanguages: transcript.DefaultFallbackLanguages,
		PrimaryTimeout:    time.Second,
		FallbackTimeout:   time.Second,
	}, NewInnertube(cfg), NewTimedText(cfg))

	res, err := f.Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "foo bar" {
		t.Errorf("text = %q, want %q", res.Text, "foo bar")
	}
	want := transcript.Provenance{Source: SourceTimedText, Language: "en", CaptionType: transcript.KindUploaded}
	if res.Provenance != want {
		t.Errorf("provenance = %+v, want %+v", res.Provenance, want)
	}
}

func TestFetcherExhaustsBothSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := testYouTubeConfig(srv.URL)
	f := transcript.New(transcript.Config{
		Languages:       []string{"en"},
		PrimaryTimeout:  time.Second,
		FallbackTimeout: time.Second,
	}, NewInnertube(cfg), NewTimedText(cfg))

	_, err := f.Fetch(context.Background(), "dQw4w9WgXcQ")
	if !errors.Is(err, transcript.ErrNoTranscript) {
		t.Fatalf("expected ErrNoTranscript, got %v", err)
	}
	var ue *transcript.UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnavailableError, got %T", err)
	}
	// default + en on primary, 3 langs x 2 kinds on the caption endpoint
	if ue.Attempts != 8 {
		t.Errorf("attempts = %d, want 8", ue.Attempts)
	}
}
