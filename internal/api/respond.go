package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/anatolykoptev/go_edunote/internal/auth"
	"github.com/anatolykoptev/go_edunote/internal/engine"
	"github.com/anatolykoptev/go_edunote/internal/engine/export"
	"github.com/anatolykoptev/go_edunote/internal/engine/notes"
	"github.com/anatolykoptev/go_edunote/internal/engine/transcript"
	"github.com/anatolykoptev/go_edunote/internal/notebook"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("write response", slog.Any("error", err))
	}
}

func ok(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// httpError carries a status and client-facing message.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(msg string) error { return &httpError{http.StatusBadRequest, msg} }

// writeError maps domain errors to status codes. Unknown errors are logged
// and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Any("error", err),
		)
	}
	writeJSON(w, status, envelope{Message: msg})
}

func classify(err error) (int, string) {
	var he *httpError
	if errors.As(err, &he) {
		return he.status, he.msg
	}
	switch {
	case errors.Is(err, auth.ErrUserExists):
		return http.StatusBadRequest, "User already exists with this email"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "Not authorized, token failed"

	case errors.Is(err, transcript.ErrInvalidReference):
		return http.StatusBadRequest, "Invalid YouTube URL"
	case errors.Is(err, transcript.ErrNoTranscript):
		return http.StatusNotFound, "Failed to fetch transcript: " + err.Error()

	case errors.Is(err, notebook.ErrNoteNotFound):
		return http.StatusNotFound, "Note not found"
	case errors.Is(err, notebook.ErrVideoNotFound):
		return http.StatusNotFound, "Video not found"
	case errors.Is(err, notebook.ErrForbidden):
		return http.StatusForbidden, "Not authorized to access this note"
	case errors.Is(err, notebook.ErrMissingFields):
		return http.StatusBadRequest, "Video ID, title, and content are required"
	case errors.Is(err, notebook.ErrInvalidColor),
		errors.Is(err, notebook.ErrInvalidPosition),
		errors.Is(err, notebook.ErrUnsupportedLanguage):
		return http.StatusBadRequest, trimPrefix(err.Error())

	case errors.Is(err, notes.ErrEmptyTranscript):
		return http.StatusBadRequest, "Transcript is required"
	case errors.Is(err, notes.ErrInvalidNotes):
		return http.StatusBadGateway, "Failed to generate notes: " + trimPrefix(err.Error())
	case errors.Is(err, engine.ErrLLMDisabled):
		return http.StatusServiceUnavailable, "AI service is not configured"

	case errors.Is(err, export.ErrUnknownFormat):
		return http.StatusBadRequest, "Invalid format. Use pdf, txt, or md"
	}
	return http.StatusInternalServerError, "Server Error"
}

// trimPrefix drops the "pkg: " prefix of sentinel errors.
func trimPrefix(msg string) string {
	if pkg, rest, found := strings.Cut(msg, ": "); found && !strings.Contains(pkg, " ") {
		return rest
	}
	return msg
}

// decode reads a JSON body into dst and validates it. A failed "required"
// rule is reported with requiredMsg.
func (s *Server) decode(r *http.Request, dst any, requiredMsg string) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if requiredMsg != "" {
				return badRequest(requiredMsg)
			}
			return badRequest("Request body is required")
		}
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return &httpError{http.StatusRequestEntityTooLarge, "Request body too large"}
		}
		return badRequest("Invalid JSON body")
	}
	if err := s.validate.Struct(dst); err != nil {
		return validationError(err, requiredMsg)
	}
	return nil
}

func validationError(err error, requiredMsg string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return badRequest("Invalid request")
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" && requiredMsg != "" {
			return badRequest(requiredMsg)
		}
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return badRequest(fmt.Sprintf("%s is required", fe.Field()))
	case "email":
		return badRequest("Please provide a valid email")
	case "min":
		return badRequest(fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
	case "max":
		return badRequest(fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
	case "oneof":
		return badRequest(fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", ")))
	}
	return badRequest(fmt.Sprintf("%s is invalid", fe.Field()))
}
