package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/anatolykoptev/go_edunote/internal/auth"
	"github.com/anatolykoptev/go_edunote/internal/engine/transcript"
	"github.com/anatolykoptev/go_edunote/internal/notebook"
)

type fetchTranscriptRequest struct {
	VideoURL string `json:"videoUrl" validate:"required"`
	Title    string `json:"title" validate:"max=300"`
	Language string `json:"language" validate:"max=100"`
}

func (s *Server) handleFetchTranscript(w http.ResponseWriter, r *http.Request) {
	var req fetchTranscriptRequest
	if err := s.decode(r, &req, "Video URL is required"); err != nil {
		writeError(w, r, err)
		return
	}
	if !transcript.IsValidReference(strings.TrimSpace(req.VideoURL)) {
		writeError(w, r, badRequest("Invalid YouTube URL"))
		return
	}

	u := auth.UserFrom(r.Context())
	video, res, err := s.deps.Notebook.FetchTranscript(r.Context(), u.ID, notebook.FetchInput{
		URL:      strings.TrimSpace(req.VideoURL),
		Title:    req.Title,
		Language: req.Language,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Transcript fetched successfully", map[string]any{
		"transcript": res,
		"video":      video,
	})
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	video, err := s.deps.Notebook.Video(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", map[string]any{"video": video})
}
