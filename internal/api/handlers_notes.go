package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/anatolykoptev/go_edunote/internal/auth"
	"github.com/anatolykoptev/go_edunote/internal/engine/export"
	"github.com/anatolykoptev/go_edunote/internal/engine/notes"
	"github.com/anatolykoptev/go_edunote/internal/notebook"
	"github.com/anatolykoptev/go_edunote/internal/store"
)

type generateRequest struct {
	Transcript string `json:"transcript" validate:"required"`
	Title      string `json:"title" validate:"max=300"`
	VideoID    string `json:"videoId"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := s.decode(r, &req, "Transcript is required"); err != nil {
		writeError(w, r, err)
		return
	}
	if s.deps.Generator == nil {
		writeError(w, r, notesDisabled())
		return
	}
	n, err := s.deps.Generator.Generate(r.Context(), req.Transcript, req.Title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Notes generated successfully", map[string]any{"notes": n})
}

type saveNoteRequest struct {
	VideoID    string            `json:"videoId" validate:"required"`
	Title      string            `json:"title" validate:"required,max=300"`
	Content    string            `json:"content" validate:"required"`
	Structured *store.Structured `json:"structuredNotes"`
	Tags       []string          `json:"tags" validate:"max=50,dive,max=50"`
	Folder     string            `json:"folder" validate:"max=100"`
}

func (s *Server) handleSaveNote(w http.ResponseWriter, r *http.Request) {
	var req saveNoteRequest
	if err := s.decode(r, &req, "Video ID, title, and content are required"); err != nil {
		writeError(w, r, err)
		return
	}
	in := notebook.SaveInput{
		VideoID: req.VideoID,
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
		Folder:  req.Folder,
	}
	if req.Structured != nil {
		in.Structured = *req.Structured
	}
	n, err := s.deps.Notebook.Save(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "Note saved successfully", map[string]any{"note": n})
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.NoteFilter{
		UserID: userID(r),
		Folder: strings.TrimSpace(q.Get("folder")),
		Search: strings.TrimSpace(q.Get("search")),
	}
	if tags := q.Get("tags"); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.Tags = append(f.Tags, strings.ToLower(t))
			}
		}
	}
	list, err := s.deps.Notebook.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	count := len(list)
	writeJSON(w, http.StatusOK, envelope{Success: true, Count: &count, Data: map[string]any{"notes": list}})
}

func (s *Server) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	ok(w, http.StatusOK, "", map[string]any{"languages": notes.SupportedLanguages()})
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Notebook.Get(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", map[string]any{"note": n})
}

type updateNoteRequest struct {
	Title      *string            `json:"title" validate:"omitempty,max=300"`
	Content    *string            `json:"content"`
	Structured *store.Structured  `json:"structuredNotes"`
	Highlights *[]store.Highlight `json:"highlights"`
	Tags       *[]string          `json:"tags" validate:"omitempty,max=50,dive,max=50"`
	Folder     *string            `json:"folder" validate:"omitempty,max=100"`
	IsPinned   *bool              `json:"isPinned"`
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req updateNoteRequest
	if err := s.decode(r, &req, ""); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.deps.Notebook.Update(r.Context(), userID(r), mux.Vars(r)["id"], notebook.Patch{
		Title:      req.Title,
		Content:    req.Content,
		Structured: req.Structured,
		Highlights: req.Highlights,
		Tags:       req.Tags,
		Folder:     req.Folder,
		IsPinned:   req.IsPinned,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Note updated successfully", map[string]any{"note": n})
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Notebook.Delete(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Note deleted successfully", nil)
}

type highlightRequest struct {
	Text     string         `json:"text" validate:"required"`
	Color    string         `json:"color" validate:"omitempty,oneof=yellow green blue pink orange"`
	Position store.Position `json:"position"`
}

func (s *Server) handleAddHighlight(w http.ResponseWriter, r *http.Request) {
	var req highlightRequest
	if err := s.decode(r, &req, "Highlight text is required"); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.deps.Notebook.AddHighlight(r.Context(), userID(r), mux.Vars(r)["id"], store.Highlight{
		Text: req.Text, Color: req.Color, Position: req.Position,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Highlight added successfully", map[string]any{"note": n})
}

type translateRequest struct {
	TargetLanguage string `json:"targetLanguage" validate:"required"`
}

func (s *Server) handleTranslateNote(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := s.decode(r, &req, "Target language is required"); err != nil {
		writeError(w, r, err)
		return
	}
	n, tr, err := s.deps.Notebook.TranslateNote(r.Context(), userID(r), mux.Vars(r)["id"], req.TargetLanguage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "Note translated successfully"
	if tr.Fallback {
		msg = "Translation unavailable, original content returned"
	}
	ok(w, http.StatusOK, msg, map[string]any{"note": n, "translation": tr})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	format, err := export.ParseFormat(vars["format"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.deps.Notebook.Get(r.Context(), userID(r), vars["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	doc := export.Document{Note: n.Note}
	if n.Video != nil {
		doc.Video = export.Video{Title: n.Video.Title, URL: n.Video.URL}
	}
	body, filename, err := export.Render(format, doc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func userID(r *http.Request) string {
	return auth.UserFrom(r.Context()).ID
}

func notesDisabled() error {
	return &httpError{http.StatusServiceUnavailable, "AI service is not configured"}
}
