package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_edunote/internal/engine"
	"github.com/anatolykoptev/go_edunote/internal/engine/transcript"
)

// Innertube is the primary transcript source.
// Tracks: scrape watch page ytInitialPlayerResponse (works from any IP),
// then the WEB engagement panel /next → /get_transcript for the default
// track, then ANDROID Innertube /player.
type Innertube struct {
	cfg YouTubeConfig
}

// NewInnertube creates the primary source.
func NewInnertube(cfg YouTubeConfig) *Innertube {
	return &Innertube{cfg: cfg}
}

func (s *Innertube) Name() string { return engine.SourceInnertube }

// Fetch returns the segments of the track matching req.
// An empty req.Language selects the video's default track.
func (s *Innertube) Fetch(ctx context.Context, req transcript.Request) ([]transcript.Segment, error) {
	p, err := s.watchPlayer(ctx, req.VideoID)
	if err == nil {
		return s.fromPlayer(ctx, p, req)
	}
	slog.Debug("youtube: page scrape failed",
		slog.String("id", req.VideoID), slog.Any("error", err))

	// The panel serves whatever track YouTube picks, so it only answers
	// requests for the default one.
	if req.Language == transcript.LangDefault && req.Kind == transcript.KindAny {
		segs, perr := fetchEngagementPanel(ctx, s.cfg, req.VideoID)
		if perr == nil {
			return segs, nil
		}
		slog.Debug("youtube: engagement panel failed, trying android player",
			slog.String("id", req.VideoID), slog.Any("error", perr))
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	p, err = postAndroidPlayer(ctx, s.cfg, req.VideoID)
	if err != nil {
		return nil, err
	}
	return s.fromPlayer(ctx, p, req)
}

func (s *Innertube) fromPlayer(ctx context.Context, p *playerResp, req transcript.Request) ([]transcript.Segment, error) {
	tracks, err := p.tracks()
	if err != nil {
		return nil, err
	}
	track, ok := pickTrack(tracks, req.Language, req.Kind)
	if !ok {
		return nil, fmt.Errorf("no usable %q caption track among %d", req.Language, len(tracks))
	}
	return s.fetchTrack(ctx, track)
}

// fetchEngagementPanel fetches the default transcript via:
//  1. POST /next → engagementPanels carrying the transcript continuation token
//  2. POST /get_transcript with the token → JSON segments
//
// This works from datacenter IPs where /player returns LOGIN_REQUIRED.
func fetchEngagementPanel(ctx context.Context, cfg YouTubeConfig, videoID string) ([]transcript.Segment, error) {
	visitorData := newVisitorData()

	next, err := postInnertubeWeb(ctx, cfg, ytNextPath, webNextReq{
		VideoID: videoID,
		Context: webContext(visitorData),
	}, visitorData)
	if err != nil {
		return nil, fmt.Errorf("/next: %w", err)
	}
	token, err := transcriptToken(next)
	if err != nil {
		return nil, err
	}

	data, err := postInnertubeWeb(ctx, cfg, ytGetTranscriptPath, webTranscriptReq{
		Params:  token,
		Context: webContext(visitorData),
	}, visitorData)
	if err != nil {
		return nil, fmt.Errorf("/get_transcript: %w", err)
	}
	var resp getTranscriptResp
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	segs := panelSegments(resp)
	if len(segs) == 0 {
		return nil, errors.New("empty transcript segments")
	}
	return segs, nil
}

// panelSegments flattens the /get_transcript segment list, skipping section
// headers and empty snippets.
func panelSegments(resp getTranscriptResp) []transcript.Segment {
	var out []transcript.Segment
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		list := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, item := range list {
			seg := item.TranscriptSegmentRenderer
			if seg == nil {
				continue
			}
			var sb strings.Builder
			for _, run := range seg.Snippet.Runs {
				sb.WriteString(run.Text)
			}
			text := transcript.CollapseSpace(sb.String())
			if text == "" {
				continue
			}
			start, _ := strconv.ParseInt(seg.StartMs, 10, 64)
			end, _ := strconv.ParseInt(seg.EndMs, 10, 64)
			out = append(out, transcript.Segment{
				Text:     text,
				Start:    time.Duration(start) * time.Millisecond,
				Duration: time.Duration(max(end-start, 0)) * time.Millisecond,
			})
		}
	}
	return out
}

// VideoDetails is the metadata exposed by the player response.
type VideoDetails struct {
	VideoID  string
	Title    string
	Channel  string
	Duration time.Duration
}

// Details returns title, channel and duration for videoID.
func (s *Innertube) Details(ctx context.Context, videoID string) (*VideoDetails, error) {
	p, err := s.player(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if p.VideoDetails == nil {
		return nil, errors.New("no videoDetails in player response")
	}
	secs, _ := strconv.Atoi(p.VideoDetails.LengthSeconds)
	return &VideoDetails{
		VideoID:  videoID,
		Title:    p.VideoDetails.Title,
		Channel:  p.VideoDetails.Author,
		Duration: time.Duration(secs) * time.Second,
	}, nil
}

// player resolves the player response: watch page first, ANDROID player second.
func (s *Innertube) player(ctx context.Context, videoID string) (*playerResp, error) {
	p, err := s.watchPlayer(ctx, videoID)
	if err == nil {
		return p, nil
	}
	slog.Debug("youtube: page scrape failed, trying android player",
		slog.String("id", videoID), slog.Any("error", err))

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return postAndroidPlayer(ctx, s.cfg, videoID)
}

// watchPlayer scrapes the watch page; a page without captions is an error.
func (s *Innertube) watchPlayer(ctx context.Context, videoID string) (*playerResp, error) {
	page, err := fetchWatchPage(ctx, s.cfg, videoID)
	if err != nil {
		return nil, err
	}
	p, err := playerFromWatchPage(page)
	if err != nil {
		return nil, err
	}
	if p.Captions == nil {
		return nil, errors.New("watch page has no captions")
	}
	return p, nil
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickTrack selects a usable track for lang; manual tracks win over ASR.
// lang "" selects the default (first listed) track, preferring a manual one.
func pickTrack(tracks []captionTrack, lang string, kind transcript.CaptionKind) (captionTrack, bool) {
	var manual, asr []captionTrack
	for _, t := range tracks {
		if needsPoToken(t.BaseURL) || t.BaseURL == "" {
			continue
		}
		if lang != "" && !langMatches(t.LanguageCode, lang) {
			continue
		}
		if t.Kind == "asr" {
			asr = append(asr, t)
		} else {
			manual = append(manual, t)
		}
	}
	switch kind {
	case transcript.KindUploaded:
		asr = nil
	case transcript.KindASR:
		manual = nil
	}
	if len(manual) > 0 {
		return manual[0], true
	}
	if len(asr) > 0 {
		return asr[0], true
	}
	return captionTrack{}, false
}

// fetchTrack downloads and parses one caption track.
func (s *Innertube) fetchTrack(ctx context.Context, track captionTrack) ([]transcript.Segment, error) {
	resp, err := engine.RetryHTTP(ctx, s.cfg.Retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.BaseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentChrome)
		return s.cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch caption track: %w", err)
	}
	defer resp.Body.Close()

	body, err := engine.ReadBody(resp, s.cfg.maxBody())
	if err != nil {
		return nil, err
	}
	return parseTimedText(body, track.LanguageCode)
}
