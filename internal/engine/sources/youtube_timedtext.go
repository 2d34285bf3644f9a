package sources

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/anatolykoptev/go_edunote/internal/engine"
	"github.com/anatolykoptev/go_edunote/internal/engine/transcript"
)

// SourceTimedText is the name reported by the caption endpoint source.
const SourceTimedText = "timedtext"

var errNoTextNodes = errors.New("timedtext: no text nodes")

// TimedText is the secondary source: a direct GET of the caption endpoint
// per (language, caption kind).
type TimedText struct {
	cfg YouTubeConfig
}

// NewTimedText creates the secondary source.
func NewTimedText(cfg YouTubeConfig) *TimedText {
	return &TimedText{cfg: cfg}
}

func (s *TimedText) Name() string { return SourceTimedText }

// URL builds the caption endpoint address; KindASR adds type=asr.
func (s *TimedText) URL(req transcript.Request) string {
	q := url.Values{}
	q.Set("lang", req.Language)
	q.Set("v", req.VideoID)
	if req.Kind == transcript.KindASR {
		q.Set("type", "asr")
	}
	return s.cfg.base() + "/api/timedtext?" + q.Encode()
}

// Fetch downloads and parses one caption document. Non-2xx, malformed XML
// and documents without non-empty text nodes are failures.
func (s *TimedText) Fetch(ctx context.Context, req transcript.Request) ([]transcript.Segment, error) {
	target := s.URL(req)
	resp, err := engine.RetryHTTP(ctx, s.cfg.Retry, func() (*http.Response, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		r.Header.Set("User-Agent", engine.UserAgentChrome)
		r.Header.Set("Accept-Language", "en-US,en;q=0.9")
		return s.cfg.HTTPClient.Do(r)
	})
	if err != nil {
		return nil, fmt.Errorf("timedtext %s: %w", req.Language, err)
	}
	defer resp.Body.Close()

	body, err := engine.ReadBody(resp, s.cfg.maxBody())
	if err != nil {
		return nil, fmt.Errorf("read timedtext: %w", err)
	}
	return parseTimedText(body, req.Language)
}

// --- Timedtext XML types ---

// timedTextDoc covers both caption formats: <transcript><text> (format 1)
// and <timedtext><body><p> (srv3).
type timedTextDoc struct {
	Lines []captionLine `xml:"text"`
	Body  struct {
		Paras []captionPara `xml:"p"`
	} `xml:"body"`
}

// captionLine is one <text> node. The payload is usually element content,
// but some responses carry it in a text attribute instead.
type captionLine struct {
	Start   float64 `xml:"start,attr"`
	Dur     float64 `xml:"dur,attr"`
	Attr    string  `xml:"text,attr"`
	Content string  `xml:",chardata"`
}

// Value returns the normalized caption text from whichever placement is populated.
func (l captionLine) Value() string {
	if v := normalizeCaption(l.Content); v != "" {
		return v
	}
	return normalizeCaption(l.Attr)
}

type captionPara struct {
	T       int64  `xml:"t,attr"` // ms
	D       int64  `xml:"d,attr"` // ms
	Content string `xml:",chardata"`
	Spans   []struct {
		Content string `xml:",chardata"`
	} `xml:"s"`
}

func (p captionPara) Value() string {
	if len(p.Spans) == 0 {
		return normalizeCaption(p.Content)
	}
	var sb strings.Builder
	for _, s := range p.Spans {
		sb.WriteString(s.Content)
	}
	return normalizeCaption(sb.String())
}

// normalizeCaption drops inline markup such as <font>, then decodes the
// remaining entity layer and collapses whitespace. Tags are removed before
// unescaping so escaped angle brackets survive as literal text.
func normalizeCaption(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return transcript.CollapseSpace(sb.String())
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				sb.WriteByte(' ')
			}
		}
	}
}

// parseTimedText decodes a caption document into segments, skipping empty nodes.
func parseTimedText(body []byte, lang string) ([]transcript.Segment, error) {
	var doc timedTextDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	segs := make([]transcript.Segment, 0, len(doc.Lines)+len(doc.Body.Paras))
	for _, l := range doc.Lines {
		if v := l.Value(); v != "" {
			segs = append(segs, transcript.Segment{
				Text:     v,
				Start:    secondsToDuration(l.Start),
				Duration: secondsToDuration(l.Dur),
				Language: lang,
			})
		}
	}
	for _, p := range doc.Body.Paras {
		if v := p.Value(); v != "" {
			segs = append(segs, transcript.Segment{
				Text:     v,
				Start:    time.Duration(p.T) * time.Millisecond,
				Duration: time.Duration(p.D) * time.Millisecond,
				Language: lang,
			})
		}
	}
	if len(segs) == 0 {
		return nil, errNoTextNodes
	}
	return segs, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
