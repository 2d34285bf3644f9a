// Package notebook holds the owner-checked operations behind the REST API:
// fetching and storing transcripts, and saving, listing, editing and
// translating a user's notes.
package notebook

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/anatolykoptev/go_edunote/internal/engine"
	"github.com/anatolykoptev/go_edunote/internal/engine/notes"
	"github.com/anatolykoptev/go_edunote/internal/store"
)

var (
	ErrForbidden           = errors.New("notebook: not the owner")
	ErrNoteNotFound        = errors.New("notebook: note not found")
	ErrVideoNotFound       = errors.New("notebook: video not found")
	ErrInvalidColor        = errors.New("notebook: invalid highlight color")
	ErrInvalidPosition     = errors.New("notebook: invalid highlight position")
	ErrUnsupportedLanguage = errors.New("notebook: unsupported language")
	ErrMissingFields       = errors.New("notebook: missing required fields")
)

// Translator translates note content. *notes.Generator satisfies it.
type Translator interface {
	Translate(ctx context.Context, text, target, source string) *notes.Translation
}

// Service is the notebook.
type Service struct {
	store      store.Store
	transcript TranscriptFetcher
	details    Detailer
	translator Translator
}

// New wires a Service. details and translator may be nil.
func New(st store.Store, fetcher TranscriptFetcher, details Detailer, translator Translator) *Service {
	return &Service{store: st, transcript: fetcher, details: details, translator: translator}
}

// VideoSummary is the video embedded in a note response.
type VideoSummary struct {
	ID         string `json:"id"`
	VideoID    string `json:"videoId"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	Transcript string `json:"transcript,omitempty"`
}

// NoteView is a note with its video resolved.
type NoteView struct {
	*store.Note
	Video *VideoSummary `json:"video"`
}

// SaveInput is a new note.
type SaveInput struct {
	VideoID    string
	Title      string
	Content    string
	Structured store.Structured
	Tags       []string
	Folder     string
}

// Save stores a note for userID. The referenced video must exist.
func (s *Service) Save(ctx context.Context, userID string, in SaveInput) (*NoteView, error) {
	if in.VideoID == "" || strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
		return nil, ErrMissingFields
	}
	v, err := s.store.VideoByID(ctx, in.VideoID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrVideoNotFound
	}
	if err != nil {
		return nil, err
	}

	n := &store.Note{
		UserID:     userID,
		VideoID:    v.ID,
		Title:      strings.TrimSpace(in.Title),
		Content:    in.Content,
		Structured: in.Structured,
		Tags:       engine.NormalizeTags(in.Tags),
		Folder:     strings.TrimSpace(in.Folder),
	}
	if err := s.store.CreateNote(ctx, n); err != nil {
		return nil, fmt.Errorf("save note: %w", err)
	}
	return &NoteView{Note: n, Video: summarize(v, false)}, nil
}

// List returns userID's notes, pinned first then newest.
func (s *Service) List(ctx context.Context, f store.NoteFilter) ([]NoteView, error) {
	list, err := s.store.ListNotes(ctx, f)
	if err != nil {
		return nil, err
	}
	videos := make(map[string]*VideoSummary)
	out := make([]NoteView, 0, len(list))
	for i := range list {
		n := &list[i]
		vs, ok := videos[n.VideoID]
		if !ok {
			if v, err := s.store.VideoByID(ctx, n.VideoID); err == nil {
				vs = summarize(v, false)
			} else if !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
			videos[n.VideoID] = vs
		}
		out = append(out, NoteView{Note: n, Video: vs})
	}
	return out, nil
}

// Get returns one of userID's notes with the video transcript attached.
func (s *Service) Get(ctx context.Context, userID, id string) (*NoteView, error) {
	n, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, n, true)
}

// Patch is a partial note update; nil fields are left alone.
type Patch struct {
	Title      *string
	Content    *string
	Structured *store.Structured
	Highlights *[]store.Highlight
	Tags       *[]string
	Folder     *string
	IsPinned   *bool
}

// Update applies p to one of userID's notes.
func (s *Service) Update(ctx context.Context, userID, id string, p Patch) (*NoteView, error) {
	n, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return nil, ErrMissingFields
		}
		n.Title = strings.TrimSpace(*p.Title)
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Structured != nil {
		n.Structured = *p.Structured
	}
	if p.Highlights != nil {
		hs := make([]store.Highlight, 0, len(*p.Highlights))
		for _, h := range *p.Highlights {
			if err := validateHighlight(&h); err != nil {
				return nil, err
			}
			hs = append(hs, h)
		}
		n.Highlights = hs
	}
	if p.Tags != nil {
		n.Tags = engine.NormalizeTags(*p.Tags)
	}
	if p.Folder != nil {
		n.Folder = strings.TrimSpace(*p.Folder)
		if n.Folder == "" {
			n.Folder = store.DefaultFolder
		}
	}
	if p.IsPinned != nil {
		n.IsPinned = *p.IsPinned
	}
	if err := s.store.UpdateNote(ctx, n); err != nil {
		return nil, s.mapNoteErr(err)
	}
	return s.view(ctx, n, false)
}

// Delete removes one of userID's notes.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.mapNoteErr(s.store.DeleteNote(ctx, id))
}

// AddHighlight appends h to the note. An empty color means yellow.
func (s *Service) AddHighlight(ctx context.Context, userID, id string, h store.Highlight) (*NoteView, error) {
	if err := validateHighlight(&h); err != nil {
		return nil, err
	}
	n, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	n.Highlights = append(n.Highlights, h)
	if err := s.store.UpdateNote(ctx, n); err != nil {
		return nil, s.mapNoteErr(err)
	}
	return s.view(ctx, n, false)
}

// TranslateNote translates the note content into target. The translation is
// stored unless the translator fell back to the original text.
func (s *Service) TranslateNote(ctx context.Context, userID, id, target string) (*NoteView, *notes.Translation, error) {
	if _, ok := notes.LanguageName(target); !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, target)
	}
	n, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	if s.translator == nil {
		return nil, nil, engine.ErrLLMDisabled
	}

	tr := s.translator.Translate(ctx, n.Content, strings.ToLower(target), notes.SourceAuto)
	if !tr.Fallback {
		n.IsTranslated = true
		n.Translation = &store.Translation{Language: tr.TargetLang, Content: tr.Text}
		if err := s.store.UpdateNote(ctx, n); err != nil {
			return nil, nil, s.mapNoteErr(err)
		}
	}
	v, err := s.view(ctx, n, false)
	if err != nil {
		return nil, nil, err
	}
	return v, tr, nil
}

func (s *Service) owned(ctx context.Context, userID, id string) (*store.Note, error) {
	n, err := s.store.NoteByID(ctx, id)
	if err != nil {
		return nil, s.mapNoteErr(err)
	}
	if n.UserID != userID {
		return nil, ErrForbidden
	}
	return n, nil
}

func (s *Service) view(ctx context.Context, n *store.Note, withTranscript bool) (*NoteView, error) {
	v, err := s.store.VideoByID(ctx, n.VideoID)
	if errors.Is(err, store.ErrNotFound) {
		return &NoteView{Note: n}, nil
	}
	if err != nil {
		return nil, err
	}
	return &NoteView{Note: n, Video: summarize(v, withTranscript)}, nil
}

func (s *Service) mapNoteErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoteNotFound
	}
	return err
}

func summarize(v *store.Video, withTranscript bool) *VideoSummary {
	vs := &VideoSummary{ID: v.ID, VideoID: v.VideoID, URL: v.URL, Title: v.Title}
	if withTranscript {
		vs.Transcript = v.Transcript
	}
	return vs
}

func validateHighlight(h *store.Highlight) error {
	if h.Color == "" {
		h.Color = store.ColorYellow
	}
	h.Color = strings.ToLower(h.Color)
	if !slices.Contains(store.HighlightColors, h.Color) {
		return fmt.Errorf("%w: %q", ErrInvalidColor, h.Color)
	}
	if h.Position.Start < 0 || h.Position.End < h.Position.Start {
		return fmt.Errorf("%w: %d-%d", ErrInvalidPosition, h.Position.Start, h.Position.End)
	}
	return nil
}
