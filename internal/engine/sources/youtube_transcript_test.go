package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anatolykoptev/go_edunote/internal/engine/transcript"
)

func TestPickTrack(t *testing.T) {
	tracks := []captionTrack{
		{BaseURL: "u/es-asr", LanguageCode: "es", Kind: "asr"},
		{BaseURL: "u/en-asr", LanguageCode: "en", Kind: "asr"},
		{BaseURL: "u/en", LanguageCode: "en"},
		{BaseURL: "u/fr&exp=xpe", LanguageCode: "fr"},
		{BaseURL: "u/de", LanguageCode: "de"},
	}
	tests := []struct {
		name   string
		lang   string
		kind   transcript.CaptionKind
		want   string
		wantOK bool
	}{
		{"manual before asr", "en", transcript.KindAny, "u/en", true},
		{"asr only", "es", transcript.KindAny, "u/es-asr", true},
		{"case insensitive", "DE", transcript.KindAny, "u/de", true},
		{"po token skipped", "fr", transcript.KindAny, "", false},
		{"missing", "ja", transcript.KindAny, "", false},
		{"default prefers manual", "", transcript.KindAny, "u/en", true},
		{"asr requested", "en", transcript.KindASR, "u/en-asr", true},
		{"uploaded requested", "es", transcript.KindUploaded, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickTrack(tracks, tt.lang, tt.kind)
			if ok != tt.wantOK || got.BaseURL != tt.want {
				t.Errorf("pickTrack(%q) = (%q, %v), want (%q, %v)", tt.lang, got.BaseURL, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// youtubeStub serves a watch page, the WEB engagement panel, an ANDROID
// player endpoint and caption tracks.
type youtubeStub struct {
	watchHasCaptions bool
	androidCaptions  bool
	panel            bool
	srv              *httptest.Server
}

func (y *youtubeStub) playerJSON() string {
	base := y.srv.URL
	return fmt.Sprintf(`{"playabilityStatus":{"status":"OK"},`+
		`"videoDetails":{"videoId":"dQw4w9WgXcQ","title":"Never Gonna","author":"Rick","lengthSeconds":"213"},`+
		`"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[`+
		`{"baseUrl":"%s/track?lang=en","languageCode":"en"},`+
		`{"baseUrl":"%s/track?lang=es&kind=asr","languageCode":"es","kind":"asr"}]}}}`, base, base)
}

func (y *youtubeStub) handler(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/watch":
		if !y.watchHasCaptions {
			fmt.Fprint(w, `<html><body><script>var ytInitialPlayerResponse = {"playabilityStatus":{"status":"LOGIN_REQUIRED","reason":"Sign in"}};</script></body></html>`)
			return
		}
		fmt.Fprintf(w, `<html><head><script>var other = {};</script></head><body><script>var ytInitialPlayerResponse = %s;var meta = {};</script></body></html>`, y.playerJSON())
	case ytNextPath:
		if !y.panel {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"engagementPanels":[{"continuationItemRenderer":{"continuationEndpoint":`+
			`{"getTranscriptEndpoint":{"params":"Q2dOc2RXYSUzRA%3D%3D"}}}}]}`)
	case ytGetTranscriptPath:
		var body webTranscriptReq
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Params != "Q2dOc2RXYSUzRA==" ||
			r.Header.Get("X-Goog-Visitor-Id") != body.Context.Client.VisitorData {
			http.Error(w, "bad params", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"actions":[{"updateEngagementPanelAction":{"content":{"transcriptRenderer":{"content":`+
			`{"transcriptSearchPanelRenderer":{"body":{"transcriptSegmentListRenderer":{"initialSegments":[`+
			`{"transcriptSectionHeaderRenderer":{}},`+
			`{"transcriptSegmentRenderer":{"startMs":"0","endMs":"1800","snippet":{"runs":[{"text":"from "},{"text":"the panel"}]}}},`+
			`{"transcriptSegmentRenderer":{"startMs":"1800","endMs":"3000","snippet":{"runs":[{"text":"  "}]}}},`+
			`{"transcriptSegmentRenderer":{"startMs":"3000","endMs":"4500","snippet":{"runs":[{"text":"again"}]}}}`+
			`]}}}}}}}}]}`)
	case ytPlayerPath:
		if !y.androidCaptions {
			fmt.Fprint(w, `{"playabilityStatus":{"status":"UNPLAYABLE","reason":"Video unavailable"}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, y.playerJSON())
	case "/track":
		if r.URL.Query().Get("lang") == "es" {
			fmt.Fprint(w, `<transcript><text start="0" dur="1">hola</text><text start="1" dur="1">mundo</text></transcript>`)
			return
		}
		fmt.Fprint(w, `<transcript><text start="0" dur="1">Hello </text><text start="1" dur="1"> world</text></transcript>`)
	default:
		http.NotFound(w, r)
	}
}

func newYouTubeStub(t *testing.T, watch, android bool) *youtubeStub {
	t.Helper()
	y := &youtubeStub{watchHasCaptions: watch, androidCaptions: android}
	y.srv = httptest.NewServer(http.HandlerFunc(y.handler))
	t.Cleanup(y.srv.Close)
	return y
}

func TestInnertubeFetchFromWatchPage(t *testing.T) {
	y := newYouTubeStub(t, true, false)
	s := NewInnertube(testYouTubeConfig(y.srv.URL))

	segs, err := s.Fetch(context.Background(), transcript.Request{VideoID: "dQw4w9WgXcQ", Language: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := transcript.JoinSegments(segs); got != "Hello world" {
		t.Errorf("joined = %q", got)
	}
	if segs[0].Language != "en" || segs[1].Start != time.Second {
		t.Errorf("segment meta = %+v", segs[1])
	}

	segs, err = s.Fetch(context.Background(), transcript.Request{VideoID: "dQw4w9WgXcQ", Language: "es"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := transcript.JoinSegments(segs); got != "hola mundo" {
		t.Errorf("joined = %q", got)
	}

	_, err = s.Fetch(context.Background(), transcript.Request{VideoID: "dQw4w9WgXcQ", Language: "ja"})
	if err == nil || !strings.Contains(err.Error(), "caption track") {
		t.Errorf("expected missing track error, got %v", err)
	}
}

func TestInnertubeFallsBackToAndroidPlayer(t *testing.T) {
	y := newYouTubeStub(t, false, true)
	s := NewInnertube(testYouTubeConfig(y.srv.URL))

	segs, err := s.Fetch(context.Background(), transcript.Request{VideoID: "dQw4w9WgXcQ"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := transcript.JoinSegments(segs); got != "Hello world" {
		t.Errorf("joined = %q", got)
	}
}

func TestInnertubeEngagementPanel(t *testing.T) {
	y := newYouTubeStub(t, false, true)
	y.panel = true
	s := NewInnertube(testYouTubeConfig(y.srv.URL))

	segs, err := s.Fetch(context.Background(), transcript.Request{VideoID: "dQw4w9WgXcQ"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := transcript.JoinSegments(segs); got != "from the panel again" {
		t.Errorf("joined = %q", got)
	}
	if len(segs) != 2 || segs[1].Start != 3*time.Second || segs[1].Duration != 1500*time.Millisecond {
		t.Errorf("segments = %+v", segs)
	}

	// A specific language skips the panel and goes to the player.
	segs, err = s.Fetch(context.Background(), transcript.Request{VideoID: "dQw4w9WgXcQ", Language: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := transcript.JoinSegments(segs); got != "Hello world" {
		t.Errorf("joined = %q", got)
	}
}

func TestTranscriptToken(t *testing.T) {
	tok, err := transcriptToken([]byte(`{"x":{"getTranscriptEndpoint":{"params":"Q2dO%3D"}}}`))
	if err != nil || tok != "Q2dO=" {
		t.Errorf("token = %q, %v", tok, err)
	}
	if _, err := transcriptToken([]byte(`{"engagementPanels":[]}`)); err == nil {
		t.Error("expected error without getTranscriptEndpoint")
	}
}

func TestPlayerFromWatchPage(t *testing.T) {
	page := `<html><script>var ytInitialPlayerResponse = {"videoDetails":{"videoId":"x","title":"a } b \"q\""}};var after = {"y":1};</script></html>`
	p, err := playerFromWatchPage([]byte(page))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.VideoDetails == nil || p.VideoDetails.Title != `a } b "q"` {
		t.Errorf("details = %+v", p.VideoDetails)
	}

	if _, err := playerFromWatchPage([]byte(`<script>var ytInitialPlayerResponse = {"open":</script>`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
	if _, err := playerFromWatchPage([]byte(`<html><body>nothing</body></html>`)); err == nil {
		t.Error("expected error when the marker is missing")
	}
}

func TestInnertubeNoCaptionsAnywhere(t *testing.T) {
	y := newYouTubeStub(t, false, false)
	s := NewInnertube(testYouTubeConfig(y.srv.URL))

	_, err := s.Fetch(context.Background(), transcript.Request{VideoID: "dQw4w9WgXcQ", Language: "en"})
	if err == nil || !strings.Contains(err.Error(), "Video unavailable") {
		t.Errorf("expected playability reason in error, got %v", err)
	}
}

func TestInnertubeDetails(t *testing.T) {
	y := newYouTubeStub(t, true, false)
	s := NewInnertube(testYouTubeConfig(y.srv.URL))

	d, err := s.Details(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Title != "Never Gonna" || d.Channel != "Rick" || d.Duration != 213*time.Second {
		t.Errorf("details = %+v", d)
	}
}
