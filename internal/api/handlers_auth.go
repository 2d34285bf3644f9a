package api

import (
	"net/http"
	"time"

	"github.com/anatolykoptev/go_edunote/internal/auth"
	"github.com/anatolykoptev/go_edunote/internal/store"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	SavedNotes any       `json:"savedNotes,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitzero"`
}

func publicUser(u *store.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.decode(r, &req, "Please provide all required fields"); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.deps.Auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "User registered successfully", sessionData(sess))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decode(r, &req, "Please provide email and password"); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Authorization", "Bearer "+sess.Token)
	ok(w, http.StatusOK, "Login successful", sessionData(sess))
}

func sessionData(sess *auth.Session) map[string]any {
	return map[string]any{"token": sess.Token, "user": publicUser(sess.User)}
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFrom(r.Context())
	saved, err := s.deps.Notebook.List(r.Context(), store.NoteFilter{UserID: u.ID})
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := publicUser(u)
	resp.SavedNotes = saved
	resp.CreatedAt = u.CreatedAt
	ok(w, http.StatusOK, "", map[string]any{"user": resp})
}
