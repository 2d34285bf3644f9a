// Package transcript acquires a plain-text transcript for a video by walking
// an ordered list of (source, language, caption kind) candidates.
package transcript

import (
	"context"
	"time"
)

// CaptionKind distinguishes human-uploaded captions from speech recognition.
type CaptionKind string

const (
	KindAny      CaptionKind = ""
	KindUploaded CaptionKind = "uploaded"
	KindASR      CaptionKind = "asr"
)

// Segment is one timed fragment returned by a source.
type Segment struct {
	Text     string        `json:"text"`
	Start    time.Duration `json:"start"`
	Duration time.Duration `json:"duration"`
	Language string        `json:"language,omitempty"`
}

// Request identifies a single source attempt.
type Request struct {
	VideoID  string
	Language string // LangDefault = source default
	Kind     CaptionKind
}

// Source is a transcript provider queried once per candidate.
type Source interface {
	Name() string
	Fetch(ctx context.Context, req Request) ([]Segment, error)
}

// Provenance records which candidate satisfied the request.
type Provenance struct {
	Source      string      `json:"source"`
	Language    string      `json:"language"`
	CaptionType CaptionKind `json:"caption_type,omitempty"`
}

// Result is a successfully acquired transcript.
type Result struct {
	VideoID    string     `json:"video_id"`
	URL        string     `json:"url"`
	Text       string     `json:"transcript"`
	Segments   int        `json:"transcript_segments"`
	Provenance Provenance `json:"provenance"`
}
