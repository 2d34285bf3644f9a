package notebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_edunote/internal/engine/sources"
	"github.com/anatolykoptev/go_edunote/internal/engine/transcript"
	"github.com/anatolykoptev/go_edunote/internal/store"
	"github.com/anatolykoptev/go_edunote/internal/toolutil"
)

// TranscriptFetcher resolves a transcript. *transcript.Fetcher satisfies it.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, ref string, prefs ...string) (*transcript.Result, error)
}

// Detailer looks up video metadata. *sources.Innertube satisfies it.
type Detailer interface {
	Details(ctx context.Context, videoID string) (*sources.VideoDetails, error)
}

// FetchInput is a transcript request. Language may be a comma list or "auto".
type FetchInput struct {
	URL      string
	Title    string
	Language string
}

// FetchTranscript acquires the transcript for in.URL and returns the stored
// video, creating it on first fetch. Errors wrap transcript.ErrInvalidReference
// or transcript.ErrNoTranscript when those apply.
func (s *Service) FetchTranscript(ctx context.Context, userID string, in FetchInput) (*store.Video, *transcript.Result, error) {
	res, err := s.transcript.Fetch(ctx, in.URL, toolutil.SplitLangs(in.Language)...)
	if err != nil {
		return nil, nil, err
	}

	v, err := s.store.VideoByVideoID(ctx, res.VideoID)
	if err == nil {
		return v, res, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, nil, err
	}

	v = &store.Video{
		VideoID:          res.VideoID,
		URL:              res.URL,
		Title:            strings.TrimSpace(in.Title),
		Transcript:       res.Text,
		Language:         res.Provenance.Language,
		TranscriptSource: res.Provenance.Source,
		UploadedBy:       userID,
	}
	if v.Language == "unknown" {
		v.Language = "" // store default
	}
	s.fillDetails(ctx, v)
	if v.Title == "" {
		v.Title = "Video " + res.VideoID
	}

	if err := s.store.CreateVideo(ctx, v); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// lost a race with a concurrent first fetch
			existing, lookupErr := s.store.VideoByVideoID(ctx, res.VideoID)
			if lookupErr == nil {
				return existing, res, nil
			}
		}
		return nil, nil, fmt.Errorf("store video: %w", err)
	}
	slog.Info("video stored", slog.String("video_id", v.VideoID), slog.String("source", v.TranscriptSource))
	return v, res, nil
}

func (s *Service) fillDetails(ctx context.Context, v *store.Video) {
	if s.details == nil {
		return
	}
	d, err := s.details.Details(ctx, v.VideoID)
	if err != nil {
		slog.Debug("video details unavailable", slog.String("video_id", v.VideoID), slog.Any("error", err))
		return
	}
	if v.Title == "" {
		v.Title = d.Title
	}
	v.ChannelName = d.Channel
	v.DurationSeconds = int(d.Duration.Seconds())
}

// Video returns a stored video by record id.
func (s *Service) Video(ctx context.Context, id string) (*store.Video, error) {
	v, err := s.store.VideoByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrVideoNotFound
	}
	return v, err
}
